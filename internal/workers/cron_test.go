package workers

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	ds "github.com/open-builders/guild-bot/internal/domain/stats"
)

func TestNextBoundaries(t *testing.T) {
	// Wednesday
	now := time.Date(2026, 10, 21, 13, 45, 0, 0, time.UTC)

	require.Equal(t, time.Date(2026, 10, 22, 0, 0, 0, 0, time.UTC), NextDay(now))
	require.Equal(t, time.Date(2026, 10, 26, 0, 0, 0, 0, time.UTC), NextWeekday(now, time.Monday))
	require.Equal(t, time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC), NextMonth(now))

	monday := time.Date(2026, 10, 26, 0, 0, 0, 0, time.UTC)
	require.Equal(t, time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC), NextWeekday(monday, time.Monday))
	require.Equal(t, time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), NextMonth(time.Date(2026, 12, 31, 23, 59, 0, 0, time.UTC)))
}

type mockMaintainer struct {
	mu     sync.Mutex
	resets []ds.Period
	pruned []int
}

func (m *mockMaintainer) PruneOldStats(_ context.Context, days int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruned = append(m.pruned, days)
	return 0, nil
}

func (m *mockMaintainer) ResetCounters(_ context.Context, p ds.Period) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets = append(m.resets, p)
	return 0, nil
}

func TestCounterResetCronJob_Next(t *testing.T) {
	m := &mockMaintainer{}
	now := time.Date(2026, 10, 21, 13, 45, 0, 0, time.UTC)

	require.Equal(t, NextDay(now), NewCounterResetCronJob(m, ds.PeriodDaily).Next(now))
	require.Equal(t, time.Monday, NewCounterResetCronJob(m, ds.PeriodWeekly).Next(now).Weekday())
	require.Equal(t, 1, NewCounterResetCronJob(m, ds.PeriodMonthly).Next(now).Day())

	job := NewCounterResetCronJob(m, ds.PeriodWeekly)
	job.Do(context.Background())
	require.Equal(t, []ds.Period{ds.PeriodWeekly}, m.resets)
	require.Equal(t, "reset_weekly", job.Name())
}

type countingJob struct {
	runs   atomic.Int32
	every  time.Duration
	runNow bool
}

func (j *countingJob) Name() string { return "counting" }
func (j *countingJob) Do(context.Context) { j.runs.Add(1) }
func (j *countingJob) RunNow() bool { return j.runNow }
func (j *countingJob) Next(now time.Time) time.Time { return now.Add(j.every) }

func TestCronJobManager_RunsAndStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := NewCronJobManager()
	eager := &countingJob{every: 10 * time.Millisecond, runNow: true}
	lazy := &countingJob{every: time.Hour}
	m.Register(eager, lazy)

	done := make(chan struct{})
	go func() {
		m.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return eager.runs.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("manager did not stop")
	}
	require.Zero(t, lazy.runs.Load())

	stopped := eager.runs.Load()
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, stopped, eager.runs.Load())
}

type mockPresence struct {
	counts map[string]int64
}

func (m *mockPresence) OnlineCounts(context.Context) (map[string]int64, error) {
	return m.counts, nil
}

type mockOnline struct {
	got map[string]int64
}

func (m *mockOnline) UpdateMaxOnline(_ context.Context, guildID string, n int64) error {
	m.got[guildID] = n
	return nil
}

func TestPresenceSampleCronJob_Do(t *testing.T) {
	rec := &mockOnline{got: map[string]int64{}}
	job := NewPresenceSampleCronJob(&mockPresence{counts: map[string]int64{"g1": 4, "g2": 9}}, rec, 0)

	job.Do(context.Background())
	require.Equal(t, map[string]int64{"g1": 4, "g2": 9}, rec.got)
	now := time.Now()
	require.Equal(t, now.Add(5*time.Minute), job.Next(now))
}
