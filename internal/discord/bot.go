// Package discord connects the gateway session to the event router, renders
// giveaway announcements and serves slash commands.
package discord

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/open-builders/guild-bot/internal/common/logger"
	dg "github.com/open-builders/guild-bot/internal/domain/giveaway"
	"github.com/open-builders/guild-bot/internal/events"
)

const (
	gatewaySource  = "gateway"
	handlerTimeout = 15 * time.Second
)

// Intents the bot identifies with. Members and presences are privileged.
const Intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMembers |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsGuildMessageReactions |
	discordgo.IntentsGuildVoiceStates |
	discordgo.IntentsGuildPresences

// Dispatcher applies a platform event.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev events.Event, source string) error
}

// ReadyHook runs once the gateway session is ready, e.g. to re-arm timers.
type ReadyHook func(ctx context.Context) error

type Bot struct {
	session   *discordgo.Session
	router    Dispatcher
	giveaways GiveawayManager
	commands  *CommandHandler
	renderer  *Renderer
	emoji     string
	onReady   []ReadyHook
	log       zerolog.Logger
}

// New creates the session without connecting it. The returned Renderer must
// be handed to the giveaway service before Start.
func New(token, emoji string) (*Bot, *Renderer, error) {
	if token == "" {
		return nil, nil, errors.New("discord token is required")
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, nil, fmt.Errorf("create session: %w", err)
	}
	session.Identify.Intents = Intents
	session.StateEnabled = true
	session.State.TrackPresences = true
	session.State.TrackVoice = true

	renderer := NewRenderer(NewSessionMessenger(session), emoji)
	return &Bot{
		session:  session,
		renderer: renderer,
		emoji:    emoji,
		log:      logger.Component("discord"),
	}, renderer, nil
}

// Bind attaches the services the handlers call into.
func (b *Bot) Bind(router Dispatcher, giveaways GiveawayManager, stats StatsReader, hooks ...ReadyHook) {
	b.router = router
	b.giveaways = giveaways
	b.commands = NewCommandHandler(giveaways, stats)
	b.onReady = hooks
}

func (b *Bot) Start() error {
	b.session.AddHandler(b.handleReady)
	b.session.AddHandler(b.handleGuildCreate)
	b.session.AddHandler(b.handleMessageCreate)
	b.session.AddHandler(b.handleMemberAdd)
	b.session.AddHandler(b.handleMemberRemove)
	b.session.AddHandler(b.handleVoiceState)
	b.session.AddHandler(b.handleReactionAdd)
	b.session.AddHandler(b.handleReactionRemove)
	b.session.AddHandler(b.handleInteraction)

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open gateway: %w", err)
	}
	return nil
}

func (b *Bot) Close() error {
	return b.session.Close()
}

func (b *Bot) handleReady(s *discordgo.Session, r *discordgo.Ready) {
	b.log.Info().Str("user", r.User.Username).Int("guilds", len(r.Guilds)).Msg("discord ready")

	if _, err := s.ApplicationCommandBulkOverwrite(r.User.ID, "", Commands()); err != nil {
		b.log.Error().Err(err).Msg("failed to register application commands")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	for _, hook := range b.onReady {
		if err := hook(ctx); err != nil {
			b.log.Error().Err(err).Msg("ready hook failed")
		}
	}
}

func (b *Bot) dispatch(ev events.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()
	if err := b.router.Dispatch(ctx, ev, gatewaySource); err != nil {
		b.log.Error().Err(err).
			Str("type", string(ev.Type)).
			Str("guild_id", ev.GuildID).
			Str("user_id", ev.UserID).
			Msg("failed to apply gateway event")
	}
}

func (b *Bot) handleGuildCreate(_ *discordgo.Session, g *discordgo.GuildCreate) {
	if g.Guild == nil || g.Unavailable {
		return
	}
	b.dispatch(events.Event{Type: events.TypeMemberCount, GuildID: g.ID, Count: int64(g.MemberCount)})
}

func (b *Bot) handleMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if ev, ok := messageEvent(m); ok {
		b.dispatch(ev)
	}
}

func (b *Bot) handleMemberAdd(_ *discordgo.Session, m *discordgo.GuildMemberAdd) {
	b.dispatch(events.Event{Type: events.TypeMemberJoin, GuildID: m.GuildID})
}

func (b *Bot) handleMemberRemove(_ *discordgo.Session, m *discordgo.GuildMemberRemove) {
	b.dispatch(events.Event{Type: events.TypeMemberLeave, GuildID: m.GuildID})
}

func (b *Bot) handleVoiceState(_ *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	if ev, ok := voiceEvent(v); ok {
		b.dispatch(ev)
	}
}

func (b *Bot) handleReactionAdd(_ *discordgo.Session, r *discordgo.MessageReactionAdd) {
	ev := reactionEvent(events.TypeReactionAdd, r.MessageReaction, r.Member)
	if ev.Emoji != b.emoji || ev.Bot {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()
	if !b.allowedToEnter(ctx, r) {
		if err := b.renderer.RemoveReaction(r.ChannelID, r.MessageID, r.UserID); err != nil {
			b.log.Warn().Err(err).Str("giveaway_id", r.MessageID).Str("user_id", r.UserID).
				Msg("failed to remove reaction from ineligible member")
		}
		return
	}
	b.dispatch(ev)
}

// allowedToEnter checks a giveaway's role requirement against the reacting
// member. Unknown messages and lookup failures pass through to the router.
func (b *Bot) allowedToEnter(ctx context.Context, r *discordgo.MessageReactionAdd) bool {
	g, err := b.giveaways.Get(ctx, r.MessageID)
	if err != nil || g == nil {
		return true
	}
	return eligible(g, r.Member)
}

func eligible(g *dg.Giveaway, member *discordgo.Member) bool {
	if g.Requirements == nil || g.Requirements.RoleID == "" {
		return true
	}
	if member == nil {
		return false
	}
	return g.Requirements.Satisfied(member.Roles)
}

func (b *Bot) handleReactionRemove(_ *discordgo.Session, r *discordgo.MessageReactionRemove) {
	b.dispatch(reactionEvent(events.TypeReactionRemove, r.MessageReaction, nil))
}

func (b *Bot) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	reply := b.commands.Handle(ctx, commandFromInteraction(i))

	flags := discordgo.MessageFlags(0)
	if reply.Ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: reply.Content,
			Embeds:  reply.Embeds,
			Flags:   flags,
		},
	})
	if err != nil {
		b.log.Error().Err(err).Str("guild_id", i.GuildID).Msg("failed to respond to interaction")
	}
}

// OnlineCounts counts members with a non-offline presence per guild from the
// session state cache.
func (b *Bot) OnlineCounts(context.Context) (map[string]int64, error) {
	state := b.session.State
	if state == nil {
		return nil, errors.New("session state is disabled")
	}
	state.RLock()
	defer state.RUnlock()

	out := make(map[string]int64, len(state.Guilds))
	for _, g := range state.Guilds {
		out[g.ID] = countOnline(g.Presences)
	}
	return out, nil
}

func countOnline(presences []*discordgo.Presence) int64 {
	var n int64
	for _, p := range presences {
		if p != nil && p.Status != "" && p.Status != discordgo.StatusOffline {
			n++
		}
	}
	return n
}

func messageEvent(m *discordgo.MessageCreate) (events.Event, bool) {
	if m.Author == nil || m.GuildID == "" {
		return events.Event{}, false
	}
	return events.Event{
		Type:        events.TypeMessageCreate,
		GuildID:     m.GuildID,
		ChannelID:   m.ChannelID,
		UserID:      m.Author.ID,
		MessageID:   m.ID,
		DisplayName: displayName(m.Author, m.Member),
		Bot:         m.Author.Bot,
	}, true
}

// voiceEvent maps a voice state change onto a join or leave. Mute and deafen
// updates inside the same channel are dropped.
func voiceEvent(v *discordgo.VoiceStateUpdate) (events.Event, bool) {
	if v.VoiceState == nil {
		return events.Event{}, false
	}
	if v.BeforeUpdate != nil && v.BeforeUpdate.ChannelID == v.ChannelID {
		return events.Event{}, false
	}
	if v.BeforeUpdate == nil && v.ChannelID == "" {
		return events.Event{}, false
	}
	ev := events.Event{
		Type:      events.TypeVoiceState,
		GuildID:   v.GuildID,
		ChannelID: v.ChannelID,
		UserID:    v.UserID,
	}
	if v.Member != nil && v.Member.User != nil {
		ev.Bot = v.Member.User.Bot
	}
	return ev, true
}

func reactionEvent(t events.Type, r *discordgo.MessageReaction, member *discordgo.Member) events.Event {
	ev := events.Event{
		Type:      t,
		GuildID:   r.GuildID,
		ChannelID: r.ChannelID,
		UserID:    r.UserID,
		MessageID: r.MessageID,
		Emoji:     r.Emoji.Name,
	}
	if member != nil {
		ev.Roles = member.Roles
		if member.User != nil {
			ev.Bot = member.User.Bot
		}
	}
	return ev
}

func displayName(u *discordgo.User, m *discordgo.Member) string {
	if m != nil && m.Nick != "" {
		return m.Nick
	}
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}
