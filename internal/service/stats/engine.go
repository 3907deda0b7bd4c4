package stats

import (
	"context"
	"errors"
	"time"

	"github.com/puzpuzpuz/xsync"
	"github.com/rs/zerolog"

	apperrors "github.com/open-builders/guild-bot/internal/common/errors"
	"github.com/open-builders/guild-bot/internal/common/logger"
	ds "github.com/open-builders/guild-bot/internal/domain/stats"
	"github.com/open-builders/guild-bot/internal/metrics"
	"github.com/open-builders/guild-bot/internal/utils/keylock"
)

const (
	DefaultRetentionDays = 30
	DefaultLeaderboard   = 10
	DefaultActiveDays    = 7
)

// Engine accumulates per-guild daily records and per-user counters.
// Read-modify-write of a guild day is serialized per (guild, day).
type Engine struct {
	repo     ds.Repository
	locks    *keylock.Locker
	sessions *xsync.MapOf[string, VoiceSession]
	loc      *time.Location
	now      func() time.Time
	log      zerolog.Logger
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLocation sets the zone whose calendar days and hours bucket events.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

func NewEngine(repo ds.Repository, opts ...Option) *Engine {
	e := &Engine{
		repo:     repo,
		locks:    keylock.New(0),
		sessions: xsync.NewMapOf[VoiceSession](),
		loc:      time.UTC,
		now:      time.Now,
		log:      logger.Component("stats"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// today returns the local midnight and hour of day for the current instant.
func (e *Engine) today() (time.Time, int) {
	t := e.now().In(e.loc)
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, e.loc), t.Hour()
}

func (e *Engine) updateToday(ctx context.Context, guildID, kind string, fn func(r *ds.DailyRecord, hour int) error) error {
	day, hour := e.today()
	unlock := e.locks.Lock(guildID + "/" + day.Format(ds.DateLayout))
	defer unlock()

	if _, err := e.repo.UpdateDay(ctx, guildID, day, func(r *ds.DailyRecord) error {
		return fn(r, hour)
	}); err != nil {
		metrics.Inc(metrics.StatsWriteFailure, kind)
		e.log.Error().Err(err).Str("guild_id", guildID).Str("kind", kind).Msg("failed to update daily stats")
		return apperrors.NewDatabaseError("update daily stats", err)
	}
	metrics.Inc(metrics.StatsEvents, kind)
	return nil
}

// RecordMessage counts one message in today's record and the author's counters.
func (e *Engine) RecordMessage(ctx context.Context, guildID, channelID, userID, displayName string) error {
	dayErr := e.updateToday(ctx, guildID, "message", func(r *ds.DailyRecord, hour int) error {
		r.Messages.Total++
		r.Hourly.Messages[hour]++
		if channelID != "" {
			r.Messages.ByChannel[channelID]++
		}
		if userID != "" {
			r.Messages.ByUser[userID]++
		}
		return nil
	})

	if userID == "" {
		return dayErr
	}
	if err := e.repo.RecordUserMessage(ctx, guildID, userID, displayName, e.now().UTC()); err != nil {
		metrics.Inc(metrics.StatsWriteFailure, "user_message")
		e.log.Error().Err(err).Str("guild_id", guildID).Str("user_id", userID).Msg("failed to update user stats")
		if dayErr == nil {
			return apperrors.NewDatabaseError("update user stats", err)
		}
	}
	return dayErr
}

func (e *Engine) RecordMemberJoin(ctx context.Context, guildID string) error {
	return e.updateToday(ctx, guildID, "member_join", func(r *ds.DailyRecord, _ int) error {
		r.Members.Joins++
		r.Members.Total++
		return nil
	})
}

// RecordMemberLeave never lets the running total drop below zero.
func (e *Engine) RecordMemberLeave(ctx context.Context, guildID string) error {
	return e.updateToday(ctx, guildID, "member_leave", func(r *ds.DailyRecord, _ int) error {
		r.Members.Leaves++
		if r.Members.Total > 0 {
			r.Members.Total--
		}
		return nil
	})
}

// SyncMemberTotal overwrites the running total with an authoritative count.
func (e *Engine) SyncMemberTotal(ctx context.Context, guildID string, count int64) error {
	if count < 0 {
		count = 0
	}
	return e.updateToday(ctx, guildID, "member_sync", func(r *ds.DailyRecord, _ int) error {
		r.Members.Total = count
		return nil
	})
}

// UpdateMaxOnline raises today's peak and the current hour's bucket.
func (e *Engine) UpdateMaxOnline(ctx context.Context, guildID string, count int64) error {
	return e.updateToday(ctx, guildID, "presence", func(r *ds.DailyRecord, hour int) error {
		r.ObserveOnline(hour, count)
		return nil
	})
}

// ResetCounters zeroes the period's message counter for every user in every guild.
func (e *Engine) ResetCounters(ctx context.Context, period ds.Period) (int, error) {
	if !period.Resettable() {
		return 0, apperrors.NewValidationError("period", "must be daily, weekly or monthly")
	}
	n, err := e.repo.ResetUserCounter(ctx, ds.MessageCounter(period))
	if err != nil {
		return n, apperrors.NewDatabaseError("reset counters", err)
	}
	e.log.Info().Str("period", string(period)).Int("users", n).Msg("message counters reset")
	return n, nil
}

// PruneOldStats deletes daily records older than the retention window in
// every guild and returns the number removed.
func (e *Engine) PruneOldStats(ctx context.Context, retentionDays int) (int, error) {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	guilds, err := e.repo.Guilds(ctx)
	if err != nil {
		return 0, apperrors.NewDatabaseError("list stats guilds", err)
	}

	today, _ := e.today()
	cutoff := today.AddDate(0, 0, -retentionDays)
	total := 0
	var errs []error
	for _, guildID := range guilds {
		n, err := e.repo.DeleteDaysBefore(ctx, guildID, cutoff)
		if err != nil {
			e.log.Error().Err(err).Str("guild_id", guildID).Msg("failed to prune daily stats")
			errs = append(errs, err)
			continue
		}
		total += n
	}
	if len(errs) > 0 {
		return total, apperrors.NewDatabaseError("prune daily stats", errors.Join(errs...))
	}
	if total > 0 {
		e.log.Info().Int("deleted", total).Int("retention_days", retentionDays).Msg("pruned daily stats")
	}
	return total, nil
}

// GiveawayEntered bumps the user's entered counter.
func (e *Engine) GiveawayEntered(ctx context.Context, guildID, userID string) error {
	return e.repo.IncrUserCounter(ctx, guildID, userID, ds.CounterGiveawaysEntered, 1, time.Time{})
}

// GiveawayWon bumps the user's won counter.
func (e *Engine) GiveawayWon(ctx context.Context, guildID, userID string) error {
	return e.repo.IncrUserCounter(ctx, guildID, userID, ds.CounterGiveawaysWon, 1, time.Time{})
}
