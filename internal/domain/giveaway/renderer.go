package giveaway

import (
	"context"
	"time"
)

// Intent tells the renderer which user-facing message to produce.
type Intent string

const (
	IntentAnnounceCreated   Intent = "announce-created"
	IntentUpdateEntryCount  Intent = "update-entry-count"
	IntentAnnounceWinners   Intent = "announce-winners"
	IntentAnnounceCancelled Intent = "announce-cancelled"
	IntentAnnounceNoEntries Intent = "announce-no-entries"
	IntentAnnounceReroll    Intent = "announce-reroll"
)

// Draft describes a giveaway before its announcement message exists.
type Draft struct {
	GuildID      string
	ChannelID    string
	HostID       string
	Prize        string
	WinnerCount  int
	EndTime      time.Time
	Requirements *Requirements
}

type RenderRequest struct {
	Giveaway    *Giveaway
	Intent      Intent
	ExecutorID  string
	Reason      string
	NewWinnerID string
}

// Renderer posts and edits chat messages for giveaways.
type Renderer interface {
	// CanPost fails when the bot cannot send messages to channelID.
	CanPost(ctx context.Context, channelID string) error
	// Publish posts the announcement and returns its message id.
	Publish(ctx context.Context, d Draft) (string, error)
	Render(ctx context.Context, req RenderRequest) error
}
