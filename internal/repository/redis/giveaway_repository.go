package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/open-builders/guild-bot/internal/domain/giveaway"
)

// ErrTxConflict is returned when an optimistic transaction kept racing.
var ErrTxConflict = errors.New("transaction conflict: too many concurrent writers")

type giveawayRepository struct {
	client redis.UniversalClient
}

func NewGiveawayRepository(client redis.UniversalClient) giveaway.Repository {
	return &giveawayRepository{client: client}
}

func (r *giveawayRepository) Create(ctx context.Context, g *giveaway.Giveaway) error {
	data, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("failed to marshal giveaway: %w", err)
	}

	ok, err := r.client.SetNX(ctx, makeGiveawayKey(g.MessageID), data, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return giveaway.ErrAlreadyExists
	}

	pipe := r.client.TxPipeline()
	pipe.SAdd(ctx, makeGuildGiveawaysKey(g.GuildID), g.MessageID)
	if g.Ended {
		pipe.ZAdd(ctx, keyEndedGiveaways, redis.Z{Score: float64(g.EndTime.Unix()), Member: g.MessageID})
	} else {
		pipe.SAdd(ctx, keyActiveGiveaways, g.MessageID)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (r *giveawayRepository) GetByID(ctx context.Context, id string) (*giveaway.Giveaway, error) {
	data, err := r.client.Get(ctx, makeGiveawayKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, giveaway.ErrGiveawayNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeGiveaway(data)
}

func (r *giveawayRepository) Update(ctx context.Context, id string, fn func(g *giveaway.Giveaway) error) (*giveaway.Giveaway, error) {
	key := makeGiveawayKey(id)
	var result *giveaway.Giveaway

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return giveaway.ErrGiveawayNotFound
		}
		if err != nil {
			return err
		}
		g, err := decodeGiveaway(data)
		if err != nil {
			return err
		}
		stored := g.Clone()

		if err := fn(g); err != nil {
			if errors.Is(err, giveaway.ErrNoChange) {
				result = stored
				return nil
			}
			return err
		}

		payload, err := json.Marshal(g)
		if err != nil {
			return fmt.Errorf("failed to marshal giveaway: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			if g.Ended {
				pipe.SRem(ctx, keyActiveGiveaways, id)
				pipe.ZAdd(ctx, keyEndedGiveaways, redis.Z{Score: float64(g.EndTime.Unix()), Member: id})
			}
			return nil
		})
		if err == nil {
			result = g
		}
		return err
	}

	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err := r.client.Watch(ctx, txf, key)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, err
	}
	return nil, ErrTxConflict
}

func (r *giveawayRepository) ListActive(ctx context.Context) ([]*giveaway.Giveaway, error) {
	ids, err := r.client.SMembers(ctx, keyActiveGiveaways).Result()
	if err != nil {
		return nil, err
	}
	list, missing, err := r.loadMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		// Index entries without a document are leftovers of interrupted writes.
		if err := r.client.SRem(ctx, keyActiveGiveaways, toMembers(missing)...).Err(); err != nil {
			log.Warn().Err(err).Int("count", len(missing)).Msg("failed to drop stale active giveaway ids")
		}
	}

	active := list[:0]
	for _, g := range list {
		if !g.Ended {
			active = append(active, g)
		}
	}
	return active, nil
}

func (r *giveawayRepository) ListByGuild(ctx context.Context, guildID string, activeOnly bool) ([]*giveaway.Giveaway, error) {
	ids, err := r.client.SMembers(ctx, makeGuildGiveawaysKey(guildID)).Result()
	if err != nil {
		return nil, err
	}
	list, _, err := r.loadMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	if !activeOnly {
		return list, nil
	}
	out := list[:0]
	for _, g := range list {
		if !g.Ended {
			out = append(out, g)
		}
	}
	return out, nil
}

func (r *giveawayRepository) DeleteEndedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	ids, err := r.client.ZRangeByScore(ctx, keyEndedGiveaways, &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(cutoff.Unix(), 10),
	}).Result()
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	list, _, err := r.loadMany(ctx, ids)
	if err != nil {
		return 0, err
	}
	guildOf := make(map[string]string, len(list))
	for _, g := range list {
		guildOf[g.MessageID] = g.GuildID
	}

	pipe := r.client.TxPipeline()
	for _, id := range ids {
		pipe.Del(ctx, makeGiveawayKey(id))
		pipe.ZRem(ctx, keyEndedGiveaways, id)
		if guildID, ok := guildOf[id]; ok {
			pipe.SRem(ctx, makeGuildGiveawaysKey(guildID), id)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return len(list), nil
}

// loadMany fetches documents for ids, returning ids without a document separately.
func (r *giveawayRepository) loadMany(ctx context.Context, ids []string) ([]*giveaway.Giveaway, []string, error) {
	if len(ids) == 0 {
		return []*giveaway.Giveaway{}, nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = makeGiveawayKey(id)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, nil, err
	}

	list := make([]*giveaway.Giveaway, 0, len(values))
	var missing []string
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			missing = append(missing, ids[i])
			continue
		}
		g, err := decodeGiveaway([]byte(s))
		if err != nil {
			log.Warn().Err(err).Str("giveaway_id", ids[i]).Msg("skipping undecodable giveaway")
			continue
		}
		list = append(list, g)
	}
	return list, missing, nil
}

func decodeGiveaway(data []byte) (*giveaway.Giveaway, error) {
	var g giveaway.Giveaway
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("failed to unmarshal giveaway: %w", err)
	}
	if g.Participants == nil {
		g.Participants = []string{}
	}
	if g.Winners == nil {
		g.Winners = []string{}
	}
	return &g, nil
}

func toMembers(ids []string) []interface{} {
	out := make([]interface{}, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}
