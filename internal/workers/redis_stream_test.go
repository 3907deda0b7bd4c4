package workers

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/open-builders/guild-bot/internal/events"
)

type mockDispatcher struct {
	DispatchFunc func(ctx context.Context, ev events.Event, source string) error

	mu   sync.Mutex
	seen []events.Event
}

func (m *mockDispatcher) Dispatch(ctx context.Context, ev events.Event, source string) error {
	m.mu.Lock()
	m.seen = append(m.seen, ev)
	m.mu.Unlock()
	if m.DispatchFunc != nil {
		return m.DispatchFunc(ctx, ev, source)
	}
	return nil
}

func Test_RedisStreamWorker_Poll(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	d := &mockDispatcher{
		DispatchFunc: func(_ context.Context, ev events.Event, _ string) error {
			if ev.Type == events.TypeMemberLeave {
				return errors.New("store down")
			}
			return nil
		},
	}
	w := NewRedisStreamWorker(client, d, "", "", "")
	require.NoError(t, w.ensureGroup(ctx))
	require.NoError(t, w.ensureGroup(ctx))

	for _, values := range []map[string]interface{}{
		{"type": "message_create", "guild_id": "g1", "channel_id": "c1", "user_id": "u1"},
		{"guild_id": "g1"},
		{"type": "member_leave", "guild_id": "g1"},
	} {
		require.NoError(t, client.XAdd(ctx, &redis.XAddArgs{Stream: DefaultStream, Values: values}).Err())
	}

	acked, err := w.Poll(ctx, -1)
	require.NoError(t, err)
	require.Equal(t, 3, acked)
	require.Len(t, d.seen, 2)
	require.Equal(t, events.TypeMessageCreate, d.seen[0].Type)
	require.Equal(t, "u1", d.seen[0].UserID)

	pending, err := client.XPending(ctx, DefaultStream, DefaultConsumerGroup).Result()
	require.NoError(t, err)
	require.Zero(t, pending.Count)
}
