package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/open-builders/guild-bot/internal/common/logger"
	dg "github.com/open-builders/guild-bot/internal/domain/giveaway"
)

// postPermissions are required in a channel to host a giveaway there.
const postPermissions = discordgo.PermissionViewChannel |
	discordgo.PermissionSendMessages |
	discordgo.PermissionEmbedLinks |
	discordgo.PermissionAddReactions

// Messenger is the subset of the Discord REST API the renderer uses.
type Messenger interface {
	Send(channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error)
	Edit(edit *discordgo.MessageEdit) error
	React(channelID, messageID, emoji string) error
	Unreact(channelID, messageID, emoji, userID string) error
	Permissions(channelID string) (int64, error)
}

type sessionMessenger struct {
	s *discordgo.Session
}

// NewSessionMessenger adapts a live session to Messenger.
func NewSessionMessenger(s *discordgo.Session) Messenger {
	return &sessionMessenger{s: s}
}

func (m *sessionMessenger) Send(channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error) {
	return m.s.ChannelMessageSendComplex(channelID, msg)
}

func (m *sessionMessenger) Edit(edit *discordgo.MessageEdit) error {
	_, err := m.s.ChannelMessageEditComplex(edit)
	return err
}

func (m *sessionMessenger) React(channelID, messageID, emoji string) error {
	return m.s.MessageReactionAdd(channelID, messageID, emoji)
}

func (m *sessionMessenger) Unreact(channelID, messageID, emoji, userID string) error {
	return m.s.MessageReactionRemove(channelID, messageID, emoji, userID)
}

func (m *sessionMessenger) Permissions(channelID string) (int64, error) {
	if m.s.State == nil || m.s.State.User == nil {
		return 0, fmt.Errorf("session is not ready")
	}
	return m.s.UserChannelPermissions(m.s.State.User.ID, channelID)
}

// Renderer posts and edits giveaway announcements.
type Renderer struct {
	api   Messenger
	emoji string
	log   zerolog.Logger
}

func NewRenderer(api Messenger, emoji string) *Renderer {
	return &Renderer{api: api, emoji: emoji, log: logger.Component("renderer")}
}

var _ dg.Renderer = (*Renderer)(nil)

func (r *Renderer) CanPost(_ context.Context, channelID string) error {
	perms, err := r.api.Permissions(channelID)
	if err != nil {
		return fmt.Errorf("cannot resolve permissions in <#%s>: %w", channelID, err)
	}
	if perms&discordgo.PermissionAdministrator != 0 {
		return nil
	}
	if perms&postPermissions != postPermissions {
		return fmt.Errorf("missing send, embed or reaction permission in <#%s>", channelID)
	}
	return nil
}

// Publish posts the announcement and seeds the entry reaction. A failed seed
// reaction does not fail the publish; members can still add it themselves.
func (r *Renderer) Publish(_ context.Context, d dg.Draft) (string, error) {
	msg, err := r.api.Send(d.ChannelID, &discordgo.MessageSend{
		Content: "🎉 **GIVEAWAY** 🎉",
		Embeds:  []*discordgo.MessageEmbed{draftEmbed(d, r.emoji)},
	})
	if err != nil {
		return "", fmt.Errorf("send announcement: %w", err)
	}
	if err := r.api.React(d.ChannelID, msg.ID, r.emoji); err != nil {
		r.log.Warn().Err(err).Str("giveaway_id", msg.ID).Msg("failed to seed entry reaction")
	}
	return msg.ID, nil
}

func (r *Renderer) Render(_ context.Context, req dg.RenderRequest) error {
	g := req.Giveaway
	if err := r.editAnnouncement(g); err != nil {
		return err
	}

	var content string
	switch req.Intent {
	case dg.IntentAnnounceCreated, dg.IntentUpdateEntryCount:
		return nil
	case dg.IntentAnnounceWinners:
		content = fmt.Sprintf("Congratulations %s! You won **%s**!", mentions(g.Winners), g.Prize)
	case dg.IntentAnnounceNoEntries:
		content = fmt.Sprintf("The giveaway for **%s** ended with no valid entries.", g.Prize)
	case dg.IntentAnnounceCancelled:
		content = fmt.Sprintf("The giveaway for **%s** was cancelled.", g.Prize)
		if req.Reason != "" {
			content += " Reason: " + req.Reason
		}
	case dg.IntentAnnounceReroll:
		content = fmt.Sprintf("%s is the new winner of **%s**!", mention(req.NewWinnerID), g.Prize)
	default:
		return fmt.Errorf("unknown render intent %q", req.Intent)
	}

	_, err := r.api.Send(g.ChannelID, &discordgo.MessageSend{
		Content: content,
		Reference: &discordgo.MessageReference{
			MessageID: g.MessageID,
			ChannelID: g.ChannelID,
			GuildID:   g.GuildID,
		},
	})
	if err != nil {
		return fmt.Errorf("send %s: %w", req.Intent, err)
	}
	return nil
}

func (r *Renderer) editAnnouncement(g *dg.Giveaway) error {
	edit := discordgo.NewMessageEdit(g.ChannelID, g.MessageID).SetEmbed(giveawayEmbed(g, r.emoji))
	if err := r.api.Edit(edit); err != nil {
		return fmt.Errorf("edit announcement: %w", err)
	}
	return nil
}

// RemoveReaction drops userID's entry reaction from a giveaway message.
func (r *Renderer) RemoveReaction(channelID, messageID, userID string) error {
	return r.api.Unreact(channelID, messageID, r.emoji, userID)
}
