package stats

import (
	"time"
)

// DateLayout formats the guild-local calendar day of a DailyRecord.
const DateLayout = "2006-01-02"

// DailyRecord aggregates one guild's activity for one calendar day.
type DailyRecord struct {
	Date      string          `json:"date"`
	Messages  MessageCounters `json:"messages"`
	Members   MemberCounters  `json:"members"`
	Voice     VoiceCounters   `json:"voice"`
	MaxOnline int64           `json:"max_online"`
	Hourly    HourlyActivity  `json:"hourly"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type MessageCounters struct {
	Total     int64            `json:"total"`
	ByChannel map[string]int64 `json:"by_channel"`
	ByUser    map[string]int64 `json:"by_user"`
}

type MemberCounters struct {
	Joins  int64 `json:"joins"`
	Leaves int64 `json:"leaves"`
	// Total is a running member count carried over between days.
	Total int64 `json:"total"`
}

type VoiceCounters struct {
	Joins        int64 `json:"joins"`
	Leaves       int64 `json:"leaves"`
	TotalMinutes int64 `json:"total_minutes"`
}

// HourlyActivity holds per-hour buckets indexed by hour of day.
type HourlyActivity struct {
	Messages      HourlyBuckets `json:"messages"`
	VoiceMinutes  HourlyBuckets `json:"voice_minutes"`
	MembersOnline HourlyBuckets `json:"members_online"`
}

// NewDailyRecord returns an empty record for date.
func NewDailyRecord(date string) *DailyRecord {
	r := &DailyRecord{Date: date}
	r.Normalize()
	return r
}

// NewDailyRecordFrom starts a new day, carrying the running member total from prev.
func NewDailyRecordFrom(date string, prev *DailyRecord) *DailyRecord {
	r := NewDailyRecord(date)
	if prev != nil {
		r.Members.Total = prev.Members.Total
	}
	return r
}

// Normalize allocates nil maps so callers can increment without checks.
func (r *DailyRecord) Normalize() {
	if r.Messages.ByChannel == nil {
		r.Messages.ByChannel = make(map[string]int64)
	}
	if r.Messages.ByUser == nil {
		r.Messages.ByUser = make(map[string]int64)
	}
}

// ObserveOnline raises the day peak and the hour bucket to count when larger.
func (r *DailyRecord) ObserveOnline(hour int, count int64) {
	if count > r.MaxOnline {
		r.MaxOnline = count
	}
	if count > r.Hourly.MembersOnline[hour] {
		r.Hourly.MembersOnline[hour] = count
	}
}

// UserStats holds per-guild per-user counters.
type UserStats struct {
	GuildID          string         `json:"guild_id"`
	UserID           string         `json:"user_id"`
	DisplayName      string         `json:"display_name"`
	Messages         MessagePeriods `json:"messages"`
	VoiceMinutes     int64          `json:"voice_minutes"`
	GiveawaysEntered int64          `json:"giveaways_entered"`
	GiveawaysWon     int64          `json:"giveaways_won"`
	LastActive       time.Time      `json:"last_active"`
	// Seq is the arrival order of the user within the guild.
	Seq int64 `json:"seq"`
}

type MessagePeriods struct {
	Total   int64 `json:"total"`
	Monthly int64 `json:"monthly"`
	Weekly  int64 `json:"weekly"`
	Daily   int64 `json:"daily"`
}

// MessageCount returns the counter matching period.
func (u *UserStats) MessageCount(p Period) int64 {
	switch p {
	case PeriodDaily:
		return u.Messages.Daily
	case PeriodWeekly:
		return u.Messages.Weekly
	case PeriodMonthly:
		return u.Messages.Monthly
	default:
		return u.Messages.Total
	}
}
