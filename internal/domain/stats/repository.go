package stats

import (
	"context"
	"errors"
	"time"
)

var (
	ErrDayNotFound  = errors.New("daily record not found")
	ErrUserNotFound = errors.New("user stats not found")
)

// UserCounter names a numeric per-user field that can be incremented.
type UserCounter string

const (
	CounterMessagesTotal    UserCounter = "messages_total"
	CounterMessagesDaily    UserCounter = "messages_daily"
	CounterMessagesWeekly   UserCounter = "messages_weekly"
	CounterMessagesMonthly  UserCounter = "messages_monthly"
	CounterVoiceMinutes     UserCounter = "voice_minutes"
	CounterGiveawaysEntered UserCounter = "giveaways_entered"
	CounterGiveawaysWon     UserCounter = "giveaways_won"
)

// MessageCounter maps a resettable period to its stored field.
func MessageCounter(p Period) UserCounter {
	switch p {
	case PeriodDaily:
		return CounterMessagesDaily
	case PeriodWeekly:
		return CounterMessagesWeekly
	case PeriodMonthly:
		return CounterMessagesMonthly
	default:
		return CounterMessagesTotal
	}
}

// Repository persists daily guild records and per-user statistics.
type Repository interface {
	GetDay(ctx context.Context, guildID string, day time.Time) (*DailyRecord, error)
	// UpdateDay finds or creates the record for day (a local midnight) and
	// persists fn's changes atomically with respect to concurrent writers.
	UpdateDay(ctx context.Context, guildID string, day time.Time, fn func(r *DailyRecord) error) (*DailyRecord, error)
	// ListDays returns stored records with from <= day <= to, oldest first.
	ListDays(ctx context.Context, guildID string, from, to time.Time) ([]*DailyRecord, error)
	LatestDay(ctx context.Context, guildID string) (*DailyRecord, error)
	DeleteDaysBefore(ctx context.Context, guildID string, cutoff time.Time) (int, error)
	Guilds(ctx context.Context) ([]string, error)

	// RecordUserMessage upserts the user and bumps every message counter by one.
	RecordUserMessage(ctx context.Context, guildID, userID, displayName string, at time.Time) error
	IncrUserCounter(ctx context.Context, guildID, userID string, counter UserCounter, delta int64, at time.Time) error
	GetUser(ctx context.Context, guildID, userID string) (*UserStats, error)
	// ListUsers returns all users of a guild in arrival order.
	ListUsers(ctx context.Context, guildID string) ([]*UserStats, error)
	CountActiveUsers(ctx context.Context, guildID string, since time.Time) (int, error)
	// ResetUserCounter zeroes counter for every user in every guild.
	ResetUserCounter(ctx context.Context, counter UserCounter) (int, error)
}
