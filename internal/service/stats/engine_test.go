package stats

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/open-builders/guild-bot/internal/common/errors"
	ds "github.com/open-builders/guild-bot/internal/domain/stats"
	redisrepo "github.com/open-builders/guild-bot/internal/repository/redis"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestEngine(t *testing.T) (*Engine, *fakeClock, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	clock := &fakeClock{t: time.Date(2026, 10, 19, 14, 30, 0, 0, time.UTC)}
	e := NewEngine(redisrepo.NewStatsRepository(client), WithClock(clock.Now))
	return e, clock, mr
}

func Test_Engine_RecordMessage(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.RecordMessage(ctx, "g1", "c1", "u1", "Alice"))
	require.NoError(t, e.RecordMessage(ctx, "g1", "c1", "u2", "Bob"))
	require.NoError(t, e.RecordMessage(ctx, "g1", "c2", "u1", "Alice"))

	today := e.GetTodayStats(ctx, "g1")
	require.Equal(t, "2026-10-19", today.Date)
	require.Equal(t, int64(3), today.Messages)

	week := e.GetWeeklyStats(ctx, "g1")
	rec := week[len(week)-1]
	require.Equal(t, int64(2), rec.Messages.ByChannel["c1"])
	require.Equal(t, int64(2), rec.Messages.ByUser["u1"])
	require.Equal(t, int64(3), rec.Hourly.Messages[14])

	u, err := e.GetUserStats(ctx, "g1", "u1")
	require.NoError(t, err)
	require.Equal(t, ds.MessagePeriods{Total: 2, Monthly: 2, Weekly: 2, Daily: 2}, u.Messages)
}

func Test_Engine_ConcurrentMessagesAreNotLost(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = e.RecordMessage(ctx, "g1", "c1", "u1", "Alice")
		}()
	}
	wg.Wait()

	require.Equal(t, int64(25), e.GetTodayStats(ctx, "g1").Messages)
}

func Test_Engine_MemberCounters(t *testing.T) {
	e, clock, _ := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.RecordMemberLeave(ctx, "g1"))
	today := e.GetTodayStats(ctx, "g1")
	require.Equal(t, int64(1), today.Leaves)
	require.Zero(t, today.MemberTotal)

	require.NoError(t, e.SyncMemberTotal(ctx, "g1", 10))
	require.NoError(t, e.RecordMemberJoin(ctx, "g1"))
	require.NoError(t, e.RecordMemberJoin(ctx, "g1"))
	require.NoError(t, e.RecordMemberLeave(ctx, "g1"))
	require.Equal(t, int64(11), e.GetTodayStats(ctx, "g1").MemberTotal)

	clock.Advance(24 * time.Hour)
	require.NoError(t, e.RecordMemberJoin(ctx, "g1"))
	next := e.GetTodayStats(ctx, "g1")
	require.Equal(t, "2026-10-20", next.Date)
	require.Equal(t, int64(1), next.Joins)
	require.Equal(t, int64(12), next.MemberTotal)
}

func Test_Engine_VoiceSession(t *testing.T) {
	e, clock, _ := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.RecordVoiceJoin(ctx, "u1", "g1", "c1"))
	clock.Advance(125 * time.Second)
	minutes, err := e.RecordVoiceLeave(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, int64(2), minutes)

	today := e.GetTodayStats(ctx, "g1")
	require.Equal(t, int64(2), today.VoiceMinutes)
	require.Equal(t, int64(1), today.VoiceJoins)

	u, err := e.GetUserStats(ctx, "g1", "u1")
	require.NoError(t, err)
	require.Equal(t, int64(2), u.VoiceMinutes)

	minutes, err = e.RecordVoiceLeave(ctx, "u1")
	require.NoError(t, err)
	require.Zero(t, minutes)
	require.Equal(t, int64(2), e.GetTodayStats(ctx, "g1").VoiceMinutes)
}

func Test_Engine_VoiceRejoinReplacesSession(t *testing.T) {
	e, clock, _ := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.RecordVoiceJoin(ctx, "u1", "g1", "c1"))
	clock.Advance(10 * time.Minute)
	require.NoError(t, e.RecordVoiceJoin(ctx, "u1", "g1", "c2"))
	require.Equal(t, 1, e.OpenVoiceSessions())

	s, ok := e.Session("u1")
	require.True(t, ok)
	require.Equal(t, "c2", s.ChannelID)

	clock.Advance(3 * time.Minute)
	minutes, err := e.RecordVoiceLeave(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, int64(3), minutes)
	require.Equal(t, int64(1), e.GetTodayStats(ctx, "g1").VoiceJoins)
	require.Zero(t, e.OpenVoiceSessions())
}

func Test_Engine_ConcurrentVoiceJoinsCountOnce(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, e.RecordVoiceJoin(ctx, "u1", "g1", "c1"))
		}()
	}
	wg.Wait()

	require.Equal(t, 1, e.OpenVoiceSessions())
	require.Equal(t, int64(1), e.GetTodayStats(ctx, "g1").VoiceJoins)
}

func Test_Engine_UpdateMaxOnlineNeverDecreases(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.UpdateMaxOnline(ctx, "g1", 40))
	require.NoError(t, e.UpdateMaxOnline(ctx, "g1", 12))
	require.Equal(t, int64(40), e.GetTodayStats(ctx, "g1").MaxOnline)

	hourly := e.GetHourlyActivity(ctx, "g1", 24)
	require.Equal(t, int64(40), hourly[14].MembersOnline)
}

func Test_Engine_WeeklyAndMonthlyAreZeroFilled(t *testing.T) {
	e, clock, _ := newTestEngine(t)
	ctx := context.Background()

	clock.Advance(-3 * 24 * time.Hour)
	require.NoError(t, e.RecordMessage(ctx, "g1", "c1", "u1", "A"))
	clock.Advance(3 * 24 * time.Hour)
	require.NoError(t, e.RecordMessage(ctx, "g1", "c1", "u1", "A"))

	week := e.GetWeeklyStats(ctx, "g1")
	require.Len(t, week, 7)
	require.Equal(t, "2026-10-13", week[0].Date)
	require.Equal(t, "2026-10-19", week[6].Date)
	require.Equal(t, int64(1), week[3].Messages.Total)
	require.Equal(t, int64(1), week[6].Messages.Total)
	require.Zero(t, week[0].Messages.Total)
	require.NotNil(t, week[0].Messages.ByUser)

	month := e.GetMonthlyStats(ctx, "g1")
	require.Len(t, month, 30)
	require.Equal(t, "2026-09-20", month[0].Date)

	empty := e.GetWeeklyStats(ctx, "nobody")
	require.Len(t, empty, 7)
}

func Test_Engine_StatsDegradeWhenStoreIsDown(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 50 * time.Millisecond})
	t.Cleanup(func() { _ = client.Close() })
	e := NewEngine(redisrepo.NewStatsRepository(client))
	ctx := context.Background()

	require.Len(t, e.GetWeeklyStats(ctx, "g1"), 7)
	require.Empty(t, e.GetMessageLeaderboard(ctx, "g1", 10, ds.PeriodAll))
	require.Len(t, e.GetHourlyActivity(ctx, "g1", 0), 24)
	require.Zero(t, e.GetActiveMembersCount(ctx, "g1", 7))

	err := e.RecordMemberJoin(ctx, "g1")
	require.True(t, apperrors.HasCode(err, apperrors.ErrCodeDatabaseError))
}

func Test_Engine_HourlyActivity(t *testing.T) {
	e, _, mr := newTestEngine(t)
	ctx := context.Background()

	points := e.GetHourlyActivity(ctx, "g1", 6)
	require.Len(t, points, 6)
	for _, p := range points {
		require.Zero(t, p.Messages)
	}

	require.NoError(t, e.RecordMessage(ctx, "g1", "c1", "u1", "A"))
	points = e.GetHourlyActivity(ctx, "g1", 48)
	require.Len(t, points, 24)
	require.Equal(t, "14:00", points[14].Label)
	require.Equal(t, int64(1), points[14].Messages)

	require.NoError(t, mr.Set("stats:g1:day:2026-10-19",
		`{"date":"2026-10-19","hourly":{"messages":[1,"bad"],"voice_minutes":null}}`))
	points = e.GetHourlyActivity(ctx, "g1", 24)
	for _, p := range points {
		require.Zero(t, p.Messages)
	}
}

func Test_Engine_MessageLeaderboard(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	send := func(user string, n int) {
		for i := 0; i < n; i++ {
			require.NoError(t, e.RecordMessage(ctx, "g1", "c1", user, "name-"+user))
		}
	}
	send("first", 2)
	send("second", 5)
	send("third", 2)
	send("fourth", 1)

	board := e.GetMessageLeaderboard(ctx, "g1", 10, ds.PeriodDaily)
	require.Len(t, board, 4)
	require.Equal(t, []string{"second", "first", "third", "fourth"},
		[]string{board[0].UserID, board[1].UserID, board[2].UserID, board[3].UserID})
	require.Equal(t, 1, board[0].Rank)
	require.Equal(t, int64(5), board[0].Count)
	require.Equal(t, "name-second", board[0].DisplayName)

	top := e.GetMessageLeaderboard(ctx, "g1", 2, ds.PeriodAll)
	require.Len(t, top, 2)

	_, err := e.ResetCounters(ctx, ds.PeriodDaily)
	require.NoError(t, err)
	require.Empty(t, e.GetMessageLeaderboard(ctx, "g1", 10, ds.PeriodDaily))
	require.Len(t, e.GetMessageLeaderboard(ctx, "g1", 10, ds.PeriodWeekly), 4)
}

func Test_Engine_UserRanks(t *testing.T) {
	e, clock, _ := newTestEngine(t)
	ctx := context.Background()

	for _, u := range []string{"a", "b", "b", "c", "c"} {
		require.NoError(t, e.RecordMessage(ctx, "g1", "c1", u, u))
	}

	rank := e.GetUserLeaderboardRank(ctx, "g1", "c", ds.PeriodAll)
	require.NotNil(t, rank)
	require.Equal(t, 1, rank.Rank)
	require.Equal(t, 1, e.GetUserLeaderboardRank(ctx, "g1", "b", ds.PeriodAll).Rank)
	require.Equal(t, 3, e.GetUserLeaderboardRank(ctx, "g1", "a", ds.PeriodAll).Rank)
	require.Nil(t, e.GetUserLeaderboardRank(ctx, "g1", "ghost", ds.PeriodAll))

	require.NoError(t, e.RecordVoiceJoin(ctx, "a", "g1", "v1"))
	clock.Advance(5 * time.Minute)
	_, err := e.RecordVoiceLeave(ctx, "a")
	require.NoError(t, err)

	voice := e.GetUserVoiceRank(ctx, "g1", "a")
	require.Equal(t, 1, voice.Rank)
	require.Equal(t, int64(5), voice.Count)
	require.Equal(t, 2, e.GetUserVoiceRank(ctx, "g1", "b").Rank)

	board := e.GetVoiceLeaderboard(ctx, "g1", 0)
	require.Len(t, board, 1)
	require.Equal(t, "a", board[0].UserID)
}

func Test_Engine_ActiveMembers(t *testing.T) {
	e, clock, _ := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.RecordMessage(ctx, "g1", "c1", "old", "old"))
	clock.Advance(10 * 24 * time.Hour)
	require.NoError(t, e.RecordMessage(ctx, "g1", "c1", "new", "new"))

	require.Equal(t, 1, e.GetActiveMembersCount(ctx, "g1", 7))
	require.Equal(t, 2, e.GetActiveMembersCount(ctx, "g1", 30))
}

func Test_Engine_ResetCountersRejectsLifetime(t *testing.T) {
	e, _, _ := newTestEngine(t)
	_, err := e.ResetCounters(context.Background(), ds.PeriodAll)
	require.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))
}

func Test_Engine_PruneOldStats(t *testing.T) {
	e, clock, _ := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.RecordMessage(ctx, "g1", "c1", "u1", "A"))
	require.NoError(t, e.RecordMessage(ctx, "g2", "c1", "u1", "A"))
	clock.Advance(40 * 24 * time.Hour)
	require.NoError(t, e.RecordMessage(ctx, "g1", "c1", "u1", "A"))

	n, err := e.PruneOldStats(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, int64(1), e.GetTodayStats(ctx, "g1").Messages)
}

func Test_Engine_ParticipationCounters(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.GiveawayEntered(ctx, "g1", "u1"))
	require.NoError(t, e.GiveawayEntered(ctx, "g1", "u1"))
	require.NoError(t, e.GiveawayWon(ctx, "g1", "u1"))

	u, err := e.GetUserStats(ctx, "g1", "u1")
	require.NoError(t, err)
	require.Equal(t, int64(2), u.GiveawaysEntered)
	require.Equal(t, int64(1), u.GiveawaysWon)

	_, err = e.GetUserStats(ctx, "g1", "nobody")
	require.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotFound))
}
