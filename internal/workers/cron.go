package workers

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/open-builders/guild-bot/internal/common/logger"
	"github.com/open-builders/guild-bot/internal/metrics"
)

// CronJob is a periodic task. Next receives the instant the previous run
// finished and returns when the following run is due.
type CronJob interface {
	Name() string
	Do(ctx context.Context)
	RunNow() bool
	Next(now time.Time) time.Time
}

type CronJobManager struct {
	mutex   sync.Mutex
	jobs    map[CronJob]*time.Timer
	running sync.WaitGroup
	stopped bool
	now     func() time.Time
	log     zerolog.Logger
}

func NewCronJobManager() *CronJobManager {
	return &CronJobManager{
		jobs: make(map[CronJob]*time.Timer),
		now:  time.Now,
		log:  logger.Component("cron"),
	}
}

func (m *CronJobManager) Register(jobs ...CronJob) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	for _, job := range jobs {
		m.jobs[job] = nil
	}
}

// Start arms every registered job and blocks until ctx is done. In-flight
// runs are waited for before it returns.
func (m *CronJobManager) Start(ctx context.Context) {
	m.log.Info().Int("jobs", len(m.jobs)).Msg("cron job manager started")

	m.mutex.Lock()
	jobs := make([]CronJob, 0, len(m.jobs))
	for job := range m.jobs {
		jobs = append(jobs, job)
	}
	m.mutex.Unlock()

	for _, job := range jobs {
		if job.RunNow() {
			m.running.Add(1)
			go m.run(ctx, job)
		} else {
			m.schedule(ctx, job)
		}
	}

	<-ctx.Done()
	m.cancel()
	m.running.Wait()
	m.log.Info().Msg("cron job manager stopped")
}

func (m *CronJobManager) cancel() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.stopped = true
	for job, timer := range m.jobs {
		if timer != nil {
			timer.Stop()
		}
		m.jobs[job] = nil
	}
}

func (m *CronJobManager) run(ctx context.Context, job CronJob) {
	defer m.running.Done()

	start := m.now()
	m.log.Debug().Str("job", job.Name()).Msg("job running")
	job.Do(ctx)
	elapsed := m.now().Sub(start)
	metrics.Observe(metrics.CronJobDuration, elapsed.Seconds(), job.Name())
	m.log.Debug().Str("job", job.Name()).Dur("elapsed", elapsed).Msg("job finished")

	m.schedule(ctx, job)
}

func (m *CronJobManager) schedule(ctx context.Context, job CronJob) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.stopped || ctx.Err() != nil {
		return
	}
	if _, ok := m.jobs[job]; !ok {
		return
	}
	now := m.now()
	next := job.Next(now)
	m.jobs[job] = time.AfterFunc(next.Sub(now), func() {
		m.mutex.Lock()
		if m.stopped {
			m.mutex.Unlock()
			return
		}
		m.running.Add(1)
		m.mutex.Unlock()
		m.run(ctx, job)
	})
	m.log.Debug().Str("job", job.Name()).Time("next", next).Msg("job scheduled")
}

// NextDay returns the next UTC midnight strictly after now.
func NextDay(now time.Time) time.Time {
	y, mo, d := now.UTC().Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
}

// NextWeekday returns the next UTC midnight after now falling on wd.
func NextWeekday(now time.Time, wd time.Weekday) time.Time {
	next := NextDay(now)
	for next.Weekday() != wd {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// NextMonth returns 00:00 UTC on the first day of the following month.
func NextMonth(now time.Time) time.Time {
	y, mo, _ := now.UTC().Date()
	return time.Date(y, mo, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
}
