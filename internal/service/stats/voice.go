package stats

import (
	"context"
	"math"
	"time"

	ds "github.com/open-builders/guild-bot/internal/domain/stats"
	"github.com/open-builders/guild-bot/internal/metrics"
)

// VoiceSession is an open voice presence, kept in memory only.
type VoiceSession struct {
	UserID    string
	GuildID   string
	ChannelID string
	JoinedAt  time.Time
}

// RecordVoiceJoin opens a session for userID. A join while a session is open
// replaces its channel and start time instead of stacking.
func (e *Engine) RecordVoiceJoin(ctx context.Context, userID, guildID, channelID string) error {
	_, replaced := e.sessions.LoadAndStore(userID, VoiceSession{
		UserID:    userID,
		GuildID:   guildID,
		ChannelID: channelID,
		JoinedAt:  e.now(),
	})
	metrics.SetGauge(metrics.VoiceSessionsOpen, float64(e.OpenVoiceSessions()))
	if replaced {
		return nil
	}
	return e.updateToday(ctx, guildID, "voice_join", func(r *ds.DailyRecord, _ int) error {
		r.Voice.Joins++
		return nil
	})
}

// RecordVoiceLeave closes the user's session and credits the elapsed time,
// rounded to whole minutes. Without an open session it does nothing.
func (e *Engine) RecordVoiceLeave(ctx context.Context, userID string) (int64, error) {
	session, ok := e.sessions.LoadAndDelete(userID)
	metrics.SetGauge(metrics.VoiceSessionsOpen, float64(e.OpenVoiceSessions()))
	if !ok {
		return 0, nil
	}

	elapsed := e.now().Sub(session.JoinedAt)
	minutes := int64(math.Round(float64(elapsed.Milliseconds()) / 60000))
	if minutes < 0 {
		minutes = 0
	}

	err := e.updateToday(ctx, session.GuildID, "voice_leave", func(r *ds.DailyRecord, hour int) error {
		r.Voice.Leaves++
		r.Voice.TotalMinutes += minutes
		r.Hourly.VoiceMinutes[hour] += minutes
		return nil
	})
	if minutes > 0 {
		if uerr := e.repo.IncrUserCounter(ctx, session.GuildID, userID, ds.CounterVoiceMinutes, minutes, e.now().UTC()); uerr != nil {
			e.log.Error().Err(uerr).Str("guild_id", session.GuildID).Str("user_id", userID).Msg("failed to credit voice minutes")
		}
	}
	return minutes, err
}

// Session returns the user's open voice session, if any.
func (e *Engine) Session(userID string) (VoiceSession, bool) {
	return e.sessions.Load(userID)
}

func (e *Engine) OpenVoiceSessions() int {
	n := 0
	e.sessions.Range(func(string, VoiceSession) bool {
		n++
		return true
	})
	return n
}
