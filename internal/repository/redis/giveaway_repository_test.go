package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/open-builders/guild-bot/internal/domain/giveaway"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, redis.UniversalClient) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func newGiveaway(id, guildID string, end time.Time) *giveaway.Giveaway {
	return &giveaway.Giveaway{
		MessageID:    id,
		GuildID:      guildID,
		ChannelID:    "c1",
		HostID:       "host",
		Prize:        "Nitro",
		WinnerCount:  1,
		CreatedAt:    end.Add(-time.Hour),
		EndTime:      end,
		Participants: []string{},
		Winners:      []string{},
	}
}

func Test_giveawayRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	_, client := newTestClient(t)
	repo := NewGiveawayRepository(client)

	g := newGiveaway("100", "g1", time.Now().Add(time.Hour))
	require.NoError(t, repo.Create(ctx, g))
	require.ErrorIs(t, repo.Create(ctx, g), giveaway.ErrAlreadyExists)

	got, err := repo.GetByID(ctx, "100")
	require.NoError(t, err)
	require.Equal(t, "Nitro", got.Prize)
	require.Empty(t, got.Participants)

	_, err = repo.GetByID(ctx, "missing")
	require.ErrorIs(t, err, giveaway.ErrGiveawayNotFound)
}

func Test_giveawayRepository_UpdateMovesEndedOutOfActive(t *testing.T) {
	ctx := context.Background()
	_, client := newTestClient(t)
	repo := NewGiveawayRepository(client)

	require.NoError(t, repo.Create(ctx, newGiveaway("1", "g1", time.Now().Add(time.Hour))))
	require.NoError(t, repo.Create(ctx, newGiveaway("2", "g1", time.Now().Add(time.Hour))))

	updated, err := repo.Update(ctx, "1", func(g *giveaway.Giveaway) error {
		g.Ended = true
		g.Winners = append(g.Winners, "u1")
		return nil
	})
	require.NoError(t, err)
	require.True(t, updated.Ended)

	active, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, "2", active[0].MessageID)

	all, err := repo.ListByGuild(ctx, "g1", false)
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func Test_giveawayRepository_UpdateNoChange(t *testing.T) {
	ctx := context.Background()
	_, client := newTestClient(t)
	repo := NewGiveawayRepository(client)
	require.NoError(t, repo.Create(ctx, newGiveaway("1", "g1", time.Now().Add(time.Hour))))

	got, err := repo.Update(ctx, "1", func(g *giveaway.Giveaway) error {
		g.Participants = append(g.Participants, "ghost")
		return giveaway.ErrNoChange
	})
	require.NoError(t, err)
	require.Empty(t, got.Participants)

	stored, err := repo.GetByID(ctx, "1")
	require.NoError(t, err)
	require.Empty(t, stored.Participants)

	_, err = repo.Update(ctx, "nope", func(g *giveaway.Giveaway) error { return nil })
	require.ErrorIs(t, err, giveaway.ErrGiveawayNotFound)
}

func Test_giveawayRepository_ConcurrentUpdatesDoNotLoseWrites(t *testing.T) {
	ctx := context.Background()
	_, client := newTestClient(t)
	repo := NewGiveawayRepository(client)
	require.NoError(t, repo.Create(ctx, newGiveaway("1", "g1", time.Now().Add(time.Hour))))

	var wg sync.WaitGroup
	users := []string{"a", "b", "c", "d", "e", "f"}
	for _, u := range users {
		wg.Add(1)
		go func(u string) {
			defer wg.Done()
			_, err := repo.Update(ctx, "1", func(g *giveaway.Giveaway) error {
				g.Participants = append(g.Participants, u)
				return nil
			})
			require.NoError(t, err)
		}(u)
	}
	wg.Wait()

	stored, err := repo.GetByID(ctx, "1")
	require.NoError(t, err)
	require.ElementsMatch(t, users, stored.Participants)
}

func Test_giveawayRepository_DeleteEndedBefore(t *testing.T) {
	ctx := context.Background()
	_, client := newTestClient(t)
	repo := NewGiveawayRepository(client)
	now := time.Now()

	old := newGiveaway("old", "g1", now.Add(-10*24*time.Hour))
	recent := newGiveaway("recent", "g1", now.Add(-24*time.Hour))
	running := newGiveaway("running", "g1", now.Add(time.Hour))
	for _, g := range []*giveaway.Giveaway{old, recent, running} {
		require.NoError(t, repo.Create(ctx, g))
	}
	for _, id := range []string{"old", "recent"} {
		_, err := repo.Update(ctx, id, func(g *giveaway.Giveaway) error {
			g.Ended = true
			return nil
		})
		require.NoError(t, err)
	}

	n, err := repo.DeleteEndedBefore(ctx, now.Add(-7*24*time.Hour))
	require.NoError(t, err)
	require.Equal(t, 1, n)

	_, err = repo.GetByID(ctx, "old")
	require.ErrorIs(t, err, giveaway.ErrGiveawayNotFound)

	left, err := repo.ListByGuild(ctx, "g1", false)
	require.NoError(t, err)
	require.Len(t, left, 2)
}

func Test_giveawayRepository_ListActiveDropsStaleIDs(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestClient(t)
	repo := NewGiveawayRepository(client)

	require.NoError(t, repo.Create(ctx, newGiveaway("1", "g1", time.Now().Add(time.Hour))))
	_, err := mr.SAdd(keyActiveGiveaways, "ghost")
	require.NoError(t, err)

	active, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)

	members, err := mr.Members(keyActiveGiveaways)
	require.NoError(t, err)
	require.Equal(t, []string{"1"}, members)
}
