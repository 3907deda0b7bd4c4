package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/open-builders/guild-bot/internal/domain/stats"
)

func day(s string) time.Time {
	t, _ := time.Parse(stats.DateLayout, s)
	return t
}

func Test_statsRepository_UpdateDayCreatesAndCarriesTotal(t *testing.T) {
	ctx := context.Background()
	_, client := newTestClient(t)
	repo := NewStatsRepository(client)

	_, err := repo.UpdateDay(ctx, "g1", day("2026-10-17"), func(r *stats.DailyRecord) error {
		r.Members.Total = 42
		r.Members.Joins++
		return nil
	})
	require.NoError(t, err)

	rec, err := repo.UpdateDay(ctx, "g1", day("2026-10-19"), func(r *stats.DailyRecord) error {
		r.Messages.Total++
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, "2026-10-19", rec.Date)
	require.Equal(t, int64(42), rec.Members.Total)
	require.Zero(t, rec.Members.Joins)

	guilds, err := repo.Guilds(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"g1"}, guilds)

	latest, err := repo.LatestDay(ctx, "g1")
	require.NoError(t, err)
	require.Equal(t, "2026-10-19", latest.Date)
}

func Test_statsRepository_ConcurrentIncrements(t *testing.T) {
	ctx := context.Background()
	_, client := newTestClient(t)
	repo := NewStatsRepository(client)

	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.UpdateDay(ctx, "g1", day("2026-10-19"), func(r *stats.DailyRecord) error {
				r.Messages.Total++
				r.Hourly.Messages[9]++
				return nil
			})
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	rec, err := repo.GetDay(ctx, "g1", day("2026-10-19"))
	require.NoError(t, err)
	require.Equal(t, int64(workers), rec.Messages.Total)
	require.Equal(t, int64(workers), rec.Hourly.Messages[9])
}

func Test_statsRepository_ListAndDeleteDays(t *testing.T) {
	ctx := context.Background()
	_, client := newTestClient(t)
	repo := NewStatsRepository(client)

	for _, d := range []string{"2026-09-01", "2026-10-10", "2026-10-18", "2026-10-19"} {
		_, err := repo.UpdateDay(ctx, "g1", day(d), func(r *stats.DailyRecord) error { return nil })
		require.NoError(t, err)
	}

	list, err := repo.ListDays(ctx, "g1", day("2026-10-13"), day("2026-10-19"))
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "2026-10-18", list[0].Date)
	require.Equal(t, "2026-10-19", list[1].Date)

	n, err := repo.DeleteDaysBefore(ctx, "g1", day("2026-10-10"))
	require.NoError(t, err)
	require.Equal(t, 1, n)

	_, err = repo.GetDay(ctx, "g1", day("2026-09-01"))
	require.ErrorIs(t, err, stats.ErrDayNotFound)
}

func Test_statsRepository_CorruptHourlyHealsOnRead(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestClient(t)
	repo := NewStatsRepository(client)

	require.NoError(t, mr.Set(makeDayKeyFromDate("g1", "2026-10-19"),
		`{"date":"2026-10-19","messages":{"total":5},"hourly":{"messages":[1,"x",3]}}`))

	rec, err := repo.GetDay(ctx, "g1", day("2026-10-19"))
	require.NoError(t, err)
	require.Equal(t, int64(5), rec.Messages.Total)
	require.Equal(t, stats.HourlyBuckets{}, rec.Hourly.Messages)
}

func Test_statsRepository_UserCounters(t *testing.T) {
	ctx := context.Background()
	_, client := newTestClient(t)
	repo := NewStatsRepository(client)
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.RecordUserMessage(ctx, "g1", "u2", "Bob", now))
	require.NoError(t, repo.RecordUserMessage(ctx, "g1", "u1", "Alice", now.Add(-72*time.Hour)))
	require.NoError(t, repo.RecordUserMessage(ctx, "g1", "u2", "Bobby", now))
	require.NoError(t, repo.IncrUserCounter(ctx, "g1", "u1", stats.CounterVoiceMinutes, 7, time.Time{}))

	u2, err := repo.GetUser(ctx, "g1", "u2")
	require.NoError(t, err)
	require.Equal(t, "Bobby", u2.DisplayName)
	require.Equal(t, stats.MessagePeriods{Total: 2, Monthly: 2, Weekly: 2, Daily: 2}, u2.Messages)
	require.True(t, now.Equal(u2.LastActive))

	users, err := repo.ListUsers(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, users, 2)
	require.Equal(t, "u2", users[0].UserID)
	require.Equal(t, "u1", users[1].UserID)
	require.Equal(t, int64(7), users[1].VoiceMinutes)

	active, err := repo.CountActiveUsers(ctx, "g1", now.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Equal(t, 1, active)

	_, err = repo.GetUser(ctx, "g1", "nobody")
	require.ErrorIs(t, err, stats.ErrUserNotFound)
}

func Test_statsRepository_ResetUserCounterAcrossGuilds(t *testing.T) {
	ctx := context.Background()
	_, client := newTestClient(t)
	repo := NewStatsRepository(client)
	now := time.Now()

	require.NoError(t, repo.RecordUserMessage(ctx, "g1", "u1", "A", now))
	require.NoError(t, repo.RecordUserMessage(ctx, "g2", "u1", "A", now))
	require.NoError(t, repo.RecordUserMessage(ctx, "g2", "u3", "C", now))

	n, err := repo.ResetUserCounter(ctx, stats.CounterMessagesDaily)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	u, err := repo.GetUser(ctx, "g2", "u3")
	require.NoError(t, err)
	require.Zero(t, u.Messages.Daily)
	require.Equal(t, int64(1), u.Messages.Weekly)
	require.Equal(t, int64(1), u.Messages.Total)
}
