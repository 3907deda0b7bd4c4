package giveaway

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	dg "github.com/open-builders/guild-bot/internal/domain/giveaway"
)

type memoryRepository struct {
	mu    sync.Mutex
	items map[string]*dg.Giveaway
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{items: make(map[string]*dg.Giveaway)}
}

func (r *memoryRepository) Create(_ context.Context, g *dg.Giveaway) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[g.MessageID]; ok {
		return dg.ErrAlreadyExists
	}
	r.items[g.MessageID] = g.Clone()
	return nil
}

func (r *memoryRepository) GetByID(_ context.Context, id string) (*dg.Giveaway, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.items[id]
	if !ok {
		return nil, dg.ErrGiveawayNotFound
	}
	return g.Clone(), nil
}

func (r *memoryRepository) Update(_ context.Context, id string, fn func(g *dg.Giveaway) error) (*dg.Giveaway, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.items[id]
	if !ok {
		return nil, dg.ErrGiveawayNotFound
	}
	g := stored.Clone()
	if err := fn(g); err != nil {
		if errors.Is(err, dg.ErrNoChange) {
			return stored.Clone(), nil
		}
		return nil, err
	}
	r.items[id] = g.Clone()
	return g, nil
}

func (r *memoryRepository) ListActive(_ context.Context) ([]*dg.Giveaway, error) {
	return r.filter(func(g *dg.Giveaway) bool { return !g.Ended }), nil
}

func (r *memoryRepository) ListByGuild(_ context.Context, guildID string, activeOnly bool) ([]*dg.Giveaway, error) {
	return r.filter(func(g *dg.Giveaway) bool {
		return g.GuildID == guildID && (!activeOnly || !g.Ended)
	}), nil
}

func (r *memoryRepository) DeleteEndedBefore(_ context.Context, cutoff time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, g := range r.items {
		if g.Ended && g.EndTime.Before(cutoff) {
			delete(r.items, id)
			n++
		}
	}
	return n, nil
}

func (r *memoryRepository) filter(keep func(g *dg.Giveaway) bool) []*dg.Giveaway {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*dg.Giveaway{}
	for _, g := range r.items {
		if keep(g) {
			out = append(out, g.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MessageID < out[j].MessageID })
	return out
}

type mockRenderer struct {
	CanPostFunc func(ctx context.Context, channelID string) error
	PublishFunc func(ctx context.Context, d dg.Draft) (string, error)
	RenderFunc  func(ctx context.Context, req dg.RenderRequest) error

	mu       sync.Mutex
	rendered []dg.RenderRequest
	nextID   int
}

func (m *mockRenderer) CanPost(ctx context.Context, channelID string) error {
	if m.CanPostFunc != nil {
		return m.CanPostFunc(ctx, channelID)
	}
	return nil
}

func (m *mockRenderer) Publish(ctx context.Context, d dg.Draft) (string, error) {
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, d)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	return snowflakeFor(m.nextID), nil
}

func (m *mockRenderer) Render(ctx context.Context, req dg.RenderRequest) error {
	m.mu.Lock()
	m.rendered = append(m.rendered, req)
	m.mu.Unlock()
	if m.RenderFunc != nil {
		return m.RenderFunc(ctx, req)
	}
	return nil
}

func (m *mockRenderer) intents() []dg.Intent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]dg.Intent, len(m.rendered))
	for i, r := range m.rendered {
		out[i] = r.Intent
	}
	return out
}

func (m *mockRenderer) count(intent dg.Intent) int {
	n := 0
	for _, i := range m.intents() {
		if i == intent {
			n++
		}
	}
	return n
}

type mockTracker struct {
	mu      sync.Mutex
	entered []string
	won     []string
}

func (m *mockTracker) GiveawayEntered(_ context.Context, _, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entered = append(m.entered, userID)
	return nil
}

func (m *mockTracker) GiveawayWon(_ context.Context, _, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.won = append(m.won, userID)
	return nil
}

func snowflakeFor(n int) string {
	base := int64(1100000000000000000)
	return strconv.FormatInt(base+int64(n), 10)
}
