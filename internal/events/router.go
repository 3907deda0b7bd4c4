// Package events maps platform events onto giveaway and statistics
// operations. Both the live gateway session and the stream consumer feed it.
package events

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/open-builders/guild-bot/internal/common/logger"
	"github.com/open-builders/guild-bot/internal/metrics"
)

type Type string

const (
	TypeReactionAdd    Type = "reaction_add"
	TypeReactionRemove Type = "reaction_remove"
	TypeMessageCreate  Type = "message_create"
	TypeMemberJoin     Type = "member_join"
	TypeMemberLeave    Type = "member_leave"
	TypeVoiceState     Type = "voice_state"
	TypePresenceCount  Type = "presence_count"
	TypeMemberCount    Type = "member_count"
)

// Event is the platform-neutral shape of an ingested event. ChannelID is
// empty on a voice_state event when the user left voice. Roles are the
// reacting member's role ids on reaction_add.
type Event struct {
	Type        Type
	GuildID     string
	ChannelID   string
	UserID      string
	MessageID   string
	DisplayName string
	Emoji       string
	Roles       []string
	Count       int64
	Bot         bool
}

type GiveawayEntries interface {
	RecordMemberEntry(ctx context.Context, id, userID string, roles []string) (bool, error)
	RemoveEntry(ctx context.Context, id, userID string) (bool, error)
}

type StatsRecorder interface {
	RecordMessage(ctx context.Context, guildID, channelID, userID, displayName string) error
	RecordMemberJoin(ctx context.Context, guildID string) error
	RecordMemberLeave(ctx context.Context, guildID string) error
	SyncMemberTotal(ctx context.Context, guildID string, count int64) error
	RecordVoiceJoin(ctx context.Context, userID, guildID, channelID string) error
	RecordVoiceLeave(ctx context.Context, userID string) (int64, error)
	UpdateMaxOnline(ctx context.Context, guildID string, count int64) error
}

type Router struct {
	giveaways GiveawayEntries
	stats     StatsRecorder
	emoji     string
	log       zerolog.Logger
}

// NewRouter builds a router. Reactions count as entries only when they use
// entryEmoji.
func NewRouter(giveaways GiveawayEntries, stats StatsRecorder, entryEmoji string) *Router {
	return &Router{
		giveaways: giveaways,
		stats:     stats,
		emoji:     entryEmoji,
		log:       logger.Component("events"),
	}
}

// Dispatch applies ev. source labels metrics ("gateway", "stream").
func (r *Router) Dispatch(ctx context.Context, ev Event, source string) error {
	metrics.Inc(metrics.EventsDispatched, string(ev.Type), source)

	switch ev.Type {
	case TypeReactionAdd, TypeReactionRemove:
		if ev.Bot || ev.MessageID == "" || ev.UserID == "" || ev.Emoji != r.emoji {
			return nil
		}
		var err error
		if ev.Type == TypeReactionAdd {
			_, err = r.giveaways.RecordMemberEntry(ctx, ev.MessageID, ev.UserID, ev.Roles)
		} else {
			_, err = r.giveaways.RemoveEntry(ctx, ev.MessageID, ev.UserID)
		}
		return err

	case TypeMessageCreate:
		if ev.Bot || ev.GuildID == "" {
			return nil
		}
		return r.stats.RecordMessage(ctx, ev.GuildID, ev.ChannelID, ev.UserID, ev.DisplayName)

	case TypeMemberJoin:
		return r.stats.RecordMemberJoin(ctx, ev.GuildID)

	case TypeMemberLeave:
		return r.stats.RecordMemberLeave(ctx, ev.GuildID)

	case TypeMemberCount:
		return r.stats.SyncMemberTotal(ctx, ev.GuildID, ev.Count)

	case TypePresenceCount:
		return r.stats.UpdateMaxOnline(ctx, ev.GuildID, ev.Count)

	case TypeVoiceState:
		if ev.Bot || ev.UserID == "" {
			return nil
		}
		if ev.ChannelID == "" {
			_, err := r.stats.RecordVoiceLeave(ctx, ev.UserID)
			return err
		}
		return r.stats.RecordVoiceJoin(ctx, ev.UserID, ev.GuildID, ev.ChannelID)
	}

	r.log.Debug().Str("type", string(ev.Type)).Str("source", source).Msg("ignoring unknown event")
	return nil
}

// FromValues decodes a stream entry's field map into an Event. roles is a
// comma-separated list of role ids.
func FromValues(values map[string]interface{}) (Event, error) {
	str := func(key string) string {
		if v, ok := values[key].(string); ok {
			return v
		}
		return ""
	}

	ev := Event{
		Type:        Type(str("type")),
		GuildID:     str("guild_id"),
		ChannelID:   str("channel_id"),
		UserID:      str("user_id"),
		MessageID:   str("message_id"),
		DisplayName: str("display_name"),
		Emoji:       str("emoji"),
	}
	if ev.Type == "" {
		return Event{}, fmt.Errorf("missing event type")
	}
	for _, role := range strings.Split(str("roles"), ",") {
		if role = strings.TrimSpace(role); role != "" {
			ev.Roles = append(ev.Roles, role)
		}
	}
	if s := str("count"); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Event{}, fmt.Errorf("invalid count %q: %w", s, err)
		}
		ev.Count = n
	}
	if s := str("bot"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return Event{}, fmt.Errorf("invalid bot flag %q: %w", s, err)
		}
		ev.Bot = b
	}
	return ev, nil
}
