package giveaway

import (
	"slices"
	"time"
)

// GiveawayStatus represents the lifecycle state of a giveaway.
type GiveawayStatus string

const (
	GiveawayStatusActive    GiveawayStatus = "active"
	GiveawayStatusEnded     GiveawayStatus = "ended"
	GiveawayStatusCancelled GiveawayStatus = "cancelled"
)

// Giveaway is keyed by the platform message id of its announcement.
type Giveaway struct {
	MessageID    string        `json:"message_id"`
	GuildID      string        `json:"guild_id"`
	ChannelID    string        `json:"channel_id"`
	HostID       string        `json:"host_id"`
	Prize        string        `json:"prize"`
	WinnerCount  int           `json:"winner_count"`
	CreatedAt    time.Time     `json:"created_at"`
	EndTime      time.Time     `json:"end_time"`
	Participants []string      `json:"participants"`
	Ended        bool          `json:"ended"`
	Winners      []string      `json:"winners"`
	Requirements *Requirements `json:"requirements,omitempty"`

	// Cancellation is a terminal variant of ended with no winners.
	Cancelled    bool       `json:"cancelled,omitempty"`
	CancelledBy  string     `json:"cancelled_by,omitempty"`
	CancelReason string     `json:"cancel_reason,omitempty"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
}

// Status derives the lifecycle state from the persisted flags.
func (g *Giveaway) Status() GiveawayStatus {
	switch {
	case g.Cancelled:
		return GiveawayStatusCancelled
	case g.Ended:
		return GiveawayStatusEnded
	default:
		return GiveawayStatusActive
	}
}

// AcceptsEntries reports whether entry mutations are allowed at now. The end
// time is authoritative even if the resolution timer has not fired yet.
func (g *Giveaway) AcceptsEntries(now time.Time) bool {
	return !g.Ended && now.Before(g.EndTime)
}

func (g *Giveaway) HasParticipant(userID string) bool {
	return slices.Contains(g.Participants, userID)
}

func (g *Giveaway) HasWon(userID string) bool {
	return slices.Contains(g.Winners, userID)
}

// EligibleForReroll lists participants that have not won yet, in entry order.
func (g *Giveaway) EligibleForReroll() []string {
	out := make([]string, 0, len(g.Participants))
	for _, p := range g.Participants {
		if !g.HasWon(p) {
			out = append(out, p)
		}
	}
	return out
}

// Clone returns a deep copy safe to hand to collaborators.
func (g *Giveaway) Clone() *Giveaway {
	c := *g
	c.Participants = slices.Clone(g.Participants)
	c.Winners = slices.Clone(g.Winners)
	if g.Requirements != nil {
		r := *g.Requirements
		c.Requirements = &r
	}
	if g.EndedAt != nil {
		t := *g.EndedAt
		c.EndedAt = &t
	}
	return &c
}
