package discord

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/require"

	dg "github.com/open-builders/guild-bot/internal/domain/giveaway"
)

type mockMessenger struct {
	SendFunc        func(channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error)
	EditFunc        func(edit *discordgo.MessageEdit) error
	ReactFunc       func(channelID, messageID, emoji string) error
	PermissionsFunc func(channelID string) (int64, error)

	sent    []*discordgo.MessageSend
	edits   []*discordgo.MessageEdit
	removed []string
}

func (m *mockMessenger) Send(channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error) {
	m.sent = append(m.sent, msg)
	if m.SendFunc != nil {
		return m.SendFunc(channelID, msg)
	}
	return &discordgo.Message{ID: "1100000000000000001", ChannelID: channelID}, nil
}

func (m *mockMessenger) Edit(edit *discordgo.MessageEdit) error {
	m.edits = append(m.edits, edit)
	if m.EditFunc != nil {
		return m.EditFunc(edit)
	}
	return nil
}

func (m *mockMessenger) React(channelID, messageID, emoji string) error {
	if m.ReactFunc != nil {
		return m.ReactFunc(channelID, messageID, emoji)
	}
	return nil
}

func (m *mockMessenger) Unreact(_, _, _, userID string) error {
	m.removed = append(m.removed, userID)
	return nil
}

func (m *mockMessenger) Permissions(channelID string) (int64, error) {
	if m.PermissionsFunc != nil {
		return m.PermissionsFunc(channelID)
	}
	return discordgo.PermissionAdministrator, nil
}

func endedGiveaway(winners ...string) *dg.Giveaway {
	return &dg.Giveaway{
		MessageID:    "1100000000000000001",
		GuildID:      "g1",
		ChannelID:    "c1",
		HostID:       "host",
		Prize:        "Nitro",
		WinnerCount:  len(winners),
		EndTime:      time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC),
		Participants: []string{"a", "b", "c"},
		Ended:        true,
		Winners:      winners,
	}
}

func Test_Renderer_CanPost(t *testing.T) {
	ctx := context.Background()
	api := &mockMessenger{}
	r := NewRenderer(api, "🎉")

	require.NoError(t, r.CanPost(ctx, "c1"))

	api.PermissionsFunc = func(string) (int64, error) { return postPermissions, nil }
	require.NoError(t, r.CanPost(ctx, "c1"))

	api.PermissionsFunc = func(string) (int64, error) {
		return discordgo.PermissionViewChannel | discordgo.PermissionSendMessages, nil
	}
	require.Error(t, r.CanPost(ctx, "c1"))

	api.PermissionsFunc = func(string) (int64, error) { return 0, errors.New("unknown channel") }
	require.Error(t, r.CanPost(ctx, "c1"))
}

func Test_Renderer_Publish(t *testing.T) {
	var reacted []string
	api := &mockMessenger{
		ReactFunc: func(_, messageID, emoji string) error {
			reacted = append(reacted, messageID+emoji)
			return errors.New("missing access")
		},
	}
	r := NewRenderer(api, "🎉")

	id, err := r.Publish(context.Background(), dg.Draft{
		GuildID: "g1", ChannelID: "c1", HostID: "host", Prize: "Nitro", WinnerCount: 2,
		EndTime:      time.Now().Add(time.Hour),
		Requirements: &dg.Requirements{RoleID: "r1"},
	})
	require.NoError(t, err)
	require.Equal(t, "1100000000000000001", id)
	require.Equal(t, []string{"1100000000000000001🎉"}, reacted)
	require.Len(t, api.sent, 1)
	require.Equal(t, "Nitro", api.sent[0].Embeds[0].Title)
	require.Contains(t, api.sent[0].Embeds[0].Description, "<@&r1>")

	api.SendFunc = func(string, *discordgo.MessageSend) (*discordgo.Message, error) {
		return nil, errors.New("forbidden")
	}
	_, err = r.Publish(context.Background(), dg.Draft{ChannelID: "c1"})
	require.Error(t, err)
}

func Test_Renderer_Render(t *testing.T) {
	ctx := context.Background()

	t.Run("entry count only edits", func(t *testing.T) {
		api := &mockMessenger{}
		r := NewRenderer(api, "🎉")
		g := endedGiveaway()
		g.Ended = false

		require.NoError(t, r.Render(ctx, dg.RenderRequest{Giveaway: g, Intent: dg.IntentUpdateEntryCount}))
		require.Len(t, api.edits, 1)
		require.Empty(t, api.sent)
	})

	t.Run("winners edit and announce", func(t *testing.T) {
		api := &mockMessenger{}
		r := NewRenderer(api, "🎉")

		require.NoError(t, r.Render(ctx, dg.RenderRequest{Giveaway: endedGiveaway("a", "b"), Intent: dg.IntentAnnounceWinners}))
		require.Len(t, api.edits, 1)
		require.Len(t, api.sent, 1)
		require.Contains(t, api.sent[0].Content, "<@a>, <@b>")
		require.Equal(t, "1100000000000000001", api.sent[0].Reference.MessageID)
	})

	t.Run("reroll names the new winner", func(t *testing.T) {
		api := &mockMessenger{}
		r := NewRenderer(api, "🎉")

		req := dg.RenderRequest{Giveaway: endedGiveaway("a", "c"), Intent: dg.IntentAnnounceReroll, NewWinnerID: "c"}
		require.NoError(t, r.Render(ctx, req))
		require.Contains(t, api.sent[0].Content, "<@c> is the new winner")
	})

	t.Run("edit failure is returned", func(t *testing.T) {
		api := &mockMessenger{EditFunc: func(*discordgo.MessageEdit) error { return errors.New("deleted") }}
		r := NewRenderer(api, "🎉")

		err := r.Render(ctx, dg.RenderRequest{Giveaway: endedGiveaway(), Intent: dg.IntentAnnounceNoEntries})
		require.Error(t, err)
		require.Empty(t, api.sent)
	})
}

func TestGiveawayEmbed_States(t *testing.T) {
	g := endedGiveaway()
	require.Equal(t, colorMuted, giveawayEmbed(g, "🎉").Color)
	require.Contains(t, giveawayEmbed(g, "🎉").Description, "No valid entries")

	g.Winners = []string{"a"}
	require.Equal(t, colorEnded, giveawayEmbed(g, "🎉").Color)

	g.Cancelled = true
	g.CancelledBy = "mod"
	g.CancelReason = "duplicate"
	e := giveawayEmbed(g, "🎉")
	require.Equal(t, colorCancelled, e.Color)
	require.Contains(t, e.Description, "<@mod>")
	require.Contains(t, e.Description, "duplicate")

	active := endedGiveaway()
	active.Ended = false
	require.Contains(t, giveawayEmbed(active, "🎉").Description, "Entries: **3**")
}
