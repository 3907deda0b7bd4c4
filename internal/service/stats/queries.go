package stats

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	apperrors "github.com/open-builders/guild-bot/internal/common/errors"
	ds "github.com/open-builders/guild-bot/internal/domain/stats"
)

// TodayStats is the flattened view of today's record.
type TodayStats struct {
	Date         string `json:"date"`
	Joins        int64  `json:"joins"`
	Leaves       int64  `json:"leaves"`
	MemberTotal  int64  `json:"member_total"`
	Messages     int64  `json:"messages"`
	VoiceMinutes int64  `json:"voice_minutes"`
	VoiceJoins   int64  `json:"voice_joins"`
	MaxOnline    int64  `json:"max_online"`
}

type LeaderboardEntry struct {
	Rank        int       `json:"rank"`
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Count       int64     `json:"count"`
	LastActive  time.Time `json:"last_active"`
}

type UserRank struct {
	Rank  int   `json:"rank"`
	Count int64 `json:"count"`
	Of    int   `json:"of"`
}

type HourlyPoint struct {
	Hour          int    `json:"hour"`
	Label         string `json:"label"`
	Messages      int64  `json:"messages"`
	VoiceMinutes  int64  `json:"voice_minutes"`
	MembersOnline int64  `json:"members_online"`
}

// GetTodayStats reads today's record. Missing records and read failures
// yield zeros.
func (e *Engine) GetTodayStats(ctx context.Context, guildID string) TodayStats {
	day, _ := e.today()
	rec, err := e.repo.GetDay(ctx, guildID, day)
	if err != nil {
		if !errors.Is(err, ds.ErrDayNotFound) {
			e.log.Error().Err(err).Str("guild_id", guildID).Msg("failed to read today's stats")
		}
		rec = ds.NewDailyRecord(day.Format(ds.DateLayout))
	}
	return TodayStats{
		Date:         rec.Date,
		Joins:        rec.Members.Joins,
		Leaves:       rec.Members.Leaves,
		MemberTotal:  rec.Members.Total,
		Messages:     rec.Messages.Total,
		VoiceMinutes: rec.Voice.TotalMinutes,
		VoiceJoins:   rec.Voice.Joins,
		MaxOnline:    rec.MaxOnline,
	}
}

// GetWeeklyStats returns the last 7 calendar days, oldest first.
func (e *Engine) GetWeeklyStats(ctx context.Context, guildID string) []*ds.DailyRecord {
	return e.lastDays(ctx, guildID, 7)
}

// GetMonthlyStats returns the last 30 calendar days, oldest first.
func (e *Engine) GetMonthlyStats(ctx context.Context, guildID string) []*ds.DailyRecord {
	return e.lastDays(ctx, guildID, 30)
}

// lastDays always returns n contiguous records ending today, synthesizing
// empty ones for days without data.
func (e *Engine) lastDays(ctx context.Context, guildID string, n int) []*ds.DailyRecord {
	today, _ := e.today()
	from := today.AddDate(0, 0, -(n - 1))

	stored, err := e.repo.ListDays(ctx, guildID, from, today)
	if err != nil {
		e.log.Error().Err(err).Str("guild_id", guildID).Int("days", n).Msg("failed to read daily stats")
	}
	byDate := make(map[string]*ds.DailyRecord, len(stored))
	for _, r := range stored {
		byDate[r.Date] = r
	}

	out := make([]*ds.DailyRecord, n)
	for i := 0; i < n; i++ {
		date := from.AddDate(0, 0, i).Format(ds.DateLayout)
		if r, ok := byDate[date]; ok {
			out[i] = r
		} else {
			out[i] = ds.NewDailyRecord(date)
		}
	}
	return out
}

// GetHourlyActivity returns the first hours buckets of the most recent day
// with data. hours outside 1..24 means all 24.
func (e *Engine) GetHourlyActivity(ctx context.Context, guildID string, hours int) []HourlyPoint {
	if hours <= 0 || hours > 24 {
		hours = 24
	}
	rec, err := e.repo.LatestDay(ctx, guildID)
	if err != nil {
		if !errors.Is(err, ds.ErrDayNotFound) {
			e.log.Error().Err(err).Str("guild_id", guildID).Msg("failed to read hourly activity")
		}
		rec = ds.NewDailyRecord("")
	}

	out := make([]HourlyPoint, hours)
	for h := 0; h < hours; h++ {
		out[h] = HourlyPoint{
			Hour:          h,
			Label:         fmt.Sprintf("%02d:00", h),
			Messages:      rec.Hourly.Messages[h],
			VoiceMinutes:  rec.Hourly.VoiceMinutes[h],
			MembersOnline: rec.Hourly.MembersOnline[h],
		}
	}
	return out
}

// GetMessageLeaderboard ranks users by the period's message counter. Ties
// keep arrival order and users without messages in the period are left out.
func (e *Engine) GetMessageLeaderboard(ctx context.Context, guildID string, limit int, period ds.Period) []LeaderboardEntry {
	return e.leaderboard(ctx, guildID, limit, func(u *ds.UserStats) int64 { return u.MessageCount(period) })
}

// GetVoiceLeaderboard ranks users by lifetime voice minutes.
func (e *Engine) GetVoiceLeaderboard(ctx context.Context, guildID string, limit int) []LeaderboardEntry {
	return e.leaderboard(ctx, guildID, limit, func(u *ds.UserStats) int64 { return u.VoiceMinutes })
}

func (e *Engine) leaderboard(ctx context.Context, guildID string, limit int, metric func(*ds.UserStats) int64) []LeaderboardEntry {
	if limit <= 0 {
		limit = DefaultLeaderboard
	}
	users, err := e.repo.ListUsers(ctx, guildID)
	if err != nil {
		e.log.Error().Err(err).Str("guild_id", guildID).Msg("failed to read leaderboard")
		return []LeaderboardEntry{}
	}

	ranked := make([]*ds.UserStats, 0, len(users))
	for _, u := range users {
		if metric(u) > 0 {
			ranked = append(ranked, u)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return metric(ranked[i]) > metric(ranked[j])
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	out := make([]LeaderboardEntry, len(ranked))
	for i, u := range ranked {
		out[i] = LeaderboardEntry{
			Rank:        i + 1,
			UserID:      u.UserID,
			DisplayName: u.DisplayName,
			Count:       metric(u),
			LastActive:  u.LastActive,
		}
	}
	return out
}

// GetUserLeaderboardRank returns the user's message rank for period, or nil
// when the user has no record.
func (e *Engine) GetUserLeaderboardRank(ctx context.Context, guildID, userID string, period ds.Period) *UserRank {
	return e.rank(ctx, guildID, userID, func(u *ds.UserStats) int64 { return u.MessageCount(period) })
}

// GetUserVoiceRank returns the user's voice-minutes rank, or nil when the
// user has no record.
func (e *Engine) GetUserVoiceRank(ctx context.Context, guildID, userID string) *UserRank {
	return e.rank(ctx, guildID, userID, func(u *ds.UserStats) int64 { return u.VoiceMinutes })
}

// rank is one plus the number of other users strictly ahead on metric.
func (e *Engine) rank(ctx context.Context, guildID, userID string, metric func(*ds.UserStats) int64) *UserRank {
	users, err := e.repo.ListUsers(ctx, guildID)
	if err != nil {
		e.log.Error().Err(err).Str("guild_id", guildID).Str("user_id", userID).Msg("failed to read ranks")
		return nil
	}

	var self *ds.UserStats
	for _, u := range users {
		if u.UserID == userID {
			self = u
			break
		}
	}
	if self == nil {
		return nil
	}

	mine := metric(self)
	ahead := 0
	for _, u := range users {
		if u.UserID != userID && metric(u) > mine {
			ahead++
		}
	}
	return &UserRank{Rank: ahead + 1, Count: mine, Of: len(users)}
}

// GetActiveMembersCount counts users active within the trailing days.
func (e *Engine) GetActiveMembersCount(ctx context.Context, guildID string, days int) int {
	if days <= 0 {
		days = DefaultActiveDays
	}
	since := e.now().Add(-time.Duration(days) * 24 * time.Hour)
	n, err := e.repo.CountActiveUsers(ctx, guildID, since)
	if err != nil {
		e.log.Error().Err(err).Str("guild_id", guildID).Msg("failed to count active members")
		return 0
	}
	return n
}

func (e *Engine) GetUserStats(ctx context.Context, guildID, userID string) (*ds.UserStats, error) {
	u, err := e.repo.GetUser(ctx, guildID, userID)
	if errors.Is(err, ds.ErrUserNotFound) {
		return nil, apperrors.NewNotFoundError("user stats", userID)
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError("get user stats", err)
	}
	return u, nil
}
