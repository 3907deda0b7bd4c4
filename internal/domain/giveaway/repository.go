package giveaway

import (
	"context"
	"errors"
	"time"
)

var (
	ErrGiveawayNotFound = errors.New("giveaway not found")
	ErrAlreadyExists    = errors.New("giveaway already exists")
	// ErrNoChange is returned by an Update mutator to leave storage untouched.
	ErrNoChange = errors.New("no change")
)

// Repository defines persistence operations for the Giveaway aggregate.
type Repository interface {
	Create(ctx context.Context, g *Giveaway) error
	GetByID(ctx context.Context, id string) (*Giveaway, error)
	// Update applies fn to the freshest stored copy and persists the result
	// atomically, retrying when a concurrent writer raced it. When fn returns
	// ErrNoChange the stored copy is returned with a nil error.
	Update(ctx context.Context, id string, fn func(g *Giveaway) error) (*Giveaway, error)
	ListActive(ctx context.Context) ([]*Giveaway, error)
	ListByGuild(ctx context.Context, guildID string, activeOnly bool) ([]*Giveaway, error)
	// DeleteEndedBefore removes ended giveaways whose end time is before cutoff.
	DeleteEndedBefore(ctx context.Context, cutoff time.Time) (int, error)
}
