package workers

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/open-builders/guild-bot/internal/common/logger"
	ds "github.com/open-builders/guild-bot/internal/domain/stats"
)

const (
	GiveawayPruneInterval = 6 * time.Hour
	jobTimeout            = 5 * time.Minute
)

type GiveawayPruner interface {
	PruneExpired(ctx context.Context, retentionDays int) (int, error)
}

type StatsMaintainer interface {
	PruneOldStats(ctx context.Context, retentionDays int) (int, error)
	ResetCounters(ctx context.Context, period ds.Period) (int, error)
}

type OnlineRecorder interface {
	UpdateMaxOnline(ctx context.Context, guildID string, count int64) error
}

// PresenceSource reports the current online member count per guild.
type PresenceSource interface {
	OnlineCounts(ctx context.Context) (map[string]int64, error)
}

type GiveawayPruneCronJob struct {
	pruner        GiveawayPruner
	retentionDays int
	log           zerolog.Logger
}

func NewGiveawayPruneCronJob(pruner GiveawayPruner, retentionDays int) *GiveawayPruneCronJob {
	return &GiveawayPruneCronJob{pruner: pruner, retentionDays: retentionDays, log: logger.Component("cron")}
}

func (job *GiveawayPruneCronJob) Name() string { return "giveaway_prune" }

func (job *GiveawayPruneCronJob) Do(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()
	if _, err := job.pruner.PruneExpired(ctx, job.retentionDays); err != nil {
		job.log.Error().Err(err).Msg("giveaway prune failed")
	}
}

func (job *GiveawayPruneCronJob) RunNow() bool { return true }

func (job *GiveawayPruneCronJob) Next(now time.Time) time.Time {
	return now.Add(GiveawayPruneInterval)
}

type StatsPruneCronJob struct {
	stats         StatsMaintainer
	retentionDays int
	log           zerolog.Logger
}

func NewStatsPruneCronJob(stats StatsMaintainer, retentionDays int) *StatsPruneCronJob {
	return &StatsPruneCronJob{stats: stats, retentionDays: retentionDays, log: logger.Component("cron")}
}

func (job *StatsPruneCronJob) Name() string { return "stats_prune" }

func (job *StatsPruneCronJob) Do(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()
	if _, err := job.stats.PruneOldStats(ctx, job.retentionDays); err != nil {
		job.log.Error().Err(err).Msg("stats prune failed")
	}
}

func (job *StatsPruneCronJob) RunNow() bool { return true }

func (job *StatsPruneCronJob) Next(now time.Time) time.Time {
	return NextDay(now)
}

// CounterResetCronJob zeroes one period's message counters on rollover:
// daily at 00:00 UTC, weekly on Monday, monthly on the first.
type CounterResetCronJob struct {
	stats  StatsMaintainer
	period ds.Period
	log    zerolog.Logger
}

func NewCounterResetCronJob(stats StatsMaintainer, period ds.Period) *CounterResetCronJob {
	return &CounterResetCronJob{stats: stats, period: period, log: logger.Component("cron")}
}

func (job *CounterResetCronJob) Name() string { return "reset_" + string(job.period) }

func (job *CounterResetCronJob) Do(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()
	if _, err := job.stats.ResetCounters(ctx, job.period); err != nil {
		job.log.Error().Err(err).Str("period", string(job.period)).Msg("counter reset failed")
	}
}

func (job *CounterResetCronJob) RunNow() bool { return false }

func (job *CounterResetCronJob) Next(now time.Time) time.Time {
	switch job.period {
	case ds.PeriodWeekly:
		return NextWeekday(now, time.Monday)
	case ds.PeriodMonthly:
		return NextMonth(now)
	default:
		return NextDay(now)
	}
}

// PresenceSampleCronJob feeds periodic online counts into the daily peak.
type PresenceSampleCronJob struct {
	source   PresenceSource
	recorder OnlineRecorder
	interval time.Duration
	log      zerolog.Logger
}

func NewPresenceSampleCronJob(source PresenceSource, recorder OnlineRecorder, interval time.Duration) *PresenceSampleCronJob {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &PresenceSampleCronJob{source: source, recorder: recorder, interval: interval, log: logger.Component("cron")}
}

func (job *PresenceSampleCronJob) Name() string { return "presence_sample" }

func (job *PresenceSampleCronJob) Do(ctx context.Context) {
	counts, err := job.source.OnlineCounts(ctx)
	if err != nil {
		job.log.Warn().Err(err).Msg("failed to sample presence")
		return
	}
	for guildID, n := range counts {
		if err := job.recorder.UpdateMaxOnline(ctx, guildID, n); err != nil {
			job.log.Error().Err(err).Str("guild_id", guildID).Msg("failed to record online peak")
		}
	}
}

func (job *PresenceSampleCronJob) RunNow() bool { return false }

func (job *PresenceSampleCronJob) Next(now time.Time) time.Time {
	return now.Add(job.interval)
}
