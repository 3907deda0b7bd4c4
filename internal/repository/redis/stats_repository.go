package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/open-builders/guild-bot/internal/domain/stats"
)

const (
	fieldDisplayName = "display_name"
	fieldLastActive  = "last_active"
	fieldSeq         = "seq"
)

type statsRepository struct {
	client redis.UniversalClient
}

func NewStatsRepository(client redis.UniversalClient) stats.Repository {
	return &statsRepository{client: client}
}

// dayScore orders day records by their calendar date independent of zone.
func dayScore(date string) (float64, error) {
	t, err := time.Parse(stats.DateLayout, date)
	if err != nil {
		return 0, fmt.Errorf("invalid day %q: %w", date, err)
	}
	return float64(t.Unix()), nil
}

func (r *statsRepository) GetDay(ctx context.Context, guildID string, day time.Time) (*stats.DailyRecord, error) {
	data, err := r.client.Get(ctx, makeDayKey(guildID, day)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, stats.ErrDayNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeDay(data)
}

func (r *statsRepository) UpdateDay(ctx context.Context, guildID string, day time.Time, fn func(rec *stats.DailyRecord) error) (*stats.DailyRecord, error) {
	date := day.Format(stats.DateLayout)
	score, err := dayScore(date)
	if err != nil {
		return nil, err
	}
	key := makeDayKeyFromDate(guildID, date)
	var result *stats.DailyRecord

	txf := func(tx *redis.Tx) error {
		var rec *stats.DailyRecord
		data, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
			prev, err := r.latestBefore(ctx, guildID, score)
			if err != nil {
				return err
			}
			rec = stats.NewDailyRecordFrom(date, prev)
		case err != nil:
			return err
		default:
			if rec, err = decodeDay(data); err != nil {
				return err
			}
		}

		if err := fn(rec); err != nil {
			return err
		}
		rec.UpdatedAt = time.Now().UTC()

		payload, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal daily record: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			pipe.ZAdd(ctx, makeDayIndexKey(guildID), redis.Z{Score: score, Member: date})
			pipe.SAdd(ctx, keyStatsGuilds, guildID)
			return nil
		})
		if err == nil {
			result = rec
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

func (r *statsRepository) latestBefore(ctx context.Context, guildID string, score float64) (*stats.DailyRecord, error) {
	dates, err := r.client.ZRevRangeByScore(ctx, makeDayIndexKey(guildID), &redis.ZRangeBy{
		Min:   "-inf",
		Max:   "(" + strconv.FormatFloat(score, 'f', 0, 64),
		Count: 1,
	}).Result()
	if err != nil || len(dates) == 0 {
		return nil, err
	}
	data, err := r.client.Get(ctx, makeDayKeyFromDate(guildID, dates[0])).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeDay(data)
}

func (r *statsRepository) ListDays(ctx context.Context, guildID string, from, to time.Time) ([]*stats.DailyRecord, error) {
	lo, err := dayScore(from.Format(stats.DateLayout))
	if err != nil {
		return nil, err
	}
	hi, err := dayScore(to.Format(stats.DateLayout))
	if err != nil {
		return nil, err
	}
	dates, err := r.client.ZRangeByScore(ctx, makeDayIndexKey(guildID), &redis.ZRangeBy{
		Min: strconv.FormatFloat(lo, 'f', 0, 64),
		Max: strconv.FormatFloat(hi, 'f', 0, 64),
	}).Result()
	if err != nil {
		return nil, err
	}
	return r.loadDays(ctx, guildID, dates)
}

func (r *statsRepository) LatestDay(ctx context.Context, guildID string) (*stats.DailyRecord, error) {
	dates, err := r.client.ZRevRange(ctx, makeDayIndexKey(guildID), 0, 0).Result()
	if err != nil {
		return nil, err
	}
	if len(dates) == 0 {
		return nil, stats.ErrDayNotFound
	}
	data, err := r.client.Get(ctx, makeDayKeyFromDate(guildID, dates[0])).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, stats.ErrDayNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeDay(data)
}

func (r *statsRepository) DeleteDaysBefore(ctx context.Context, guildID string, cutoff time.Time) (int, error) {
	score, err := dayScore(cutoff.Format(stats.DateLayout))
	if err != nil {
		return 0, err
	}
	indexKey := makeDayIndexKey(guildID)
	dates, err := r.client.ZRangeByScore(ctx, indexKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatFloat(score, 'f', 0, 64),
	}).Result()
	if err != nil {
		return 0, err
	}
	if len(dates) == 0 {
		return 0, nil
	}

	pipe := r.client.TxPipeline()
	for _, date := range dates {
		pipe.Del(ctx, makeDayKeyFromDate(guildID, date))
	}
	pipe.ZRem(ctx, indexKey, toMembers(dates)...)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return len(dates), nil
}

func (r *statsRepository) Guilds(ctx context.Context) ([]string, error) {
	return r.client.SMembers(ctx, keyStatsGuilds).Result()
}

func (r *statsRepository) loadDays(ctx context.Context, guildID string, dates []string) ([]*stats.DailyRecord, error) {
	if len(dates) == 0 {
		return []*stats.DailyRecord{}, nil
	}
	keys := make([]string, len(dates))
	for i, date := range dates {
		keys[i] = makeDayKeyFromDate(guildID, date)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*stats.DailyRecord, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		rec, err := decodeDay([]byte(s))
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func decodeDay(data []byte) (*stats.DailyRecord, error) {
	var rec stats.DailyRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal daily record: %w", err)
	}
	rec.Normalize()
	return &rec, nil
}

// ensureUser registers the user in the guild index on first sight, stamping
// its arrival sequence.
func (r *statsRepository) ensureUser(ctx context.Context, guildID, userID string) error {
	indexKey := makeUserIndexKey(guildID)
	err := r.client.ZScore(ctx, indexKey, userID).Err()
	if err == nil {
		return nil
	}
	if !errors.Is(err, redis.Nil) {
		return err
	}

	seq, err := r.client.Incr(ctx, keyUserSeq).Result()
	if err != nil {
		return err
	}
	added, err := r.client.ZAddNX(ctx, indexKey, redis.Z{Score: float64(seq), Member: userID}).Result()
	if err != nil {
		return err
	}
	if added == 0 {
		// Lost the race to a concurrent first message; keep the earlier seq.
		return nil
	}
	pipe := r.client.TxPipeline()
	pipe.HSetNX(ctx, makeUserKey(guildID, userID), fieldSeq, seq)
	pipe.SAdd(ctx, keyUserGuilds, guildID)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *statsRepository) RecordUserMessage(ctx context.Context, guildID, userID, displayName string, at time.Time) error {
	if err := r.ensureUser(ctx, guildID, userID); err != nil {
		return err
	}
	key := makeUserKey(guildID, userID)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrBy(ctx, key, string(stats.CounterMessagesTotal), 1)
		pipe.HIncrBy(ctx, key, string(stats.CounterMessagesMonthly), 1)
		pipe.HIncrBy(ctx, key, string(stats.CounterMessagesWeekly), 1)
		pipe.HIncrBy(ctx, key, string(stats.CounterMessagesDaily), 1)
		if displayName != "" {
			pipe.HSet(ctx, key, fieldDisplayName, displayName)
		}
		pipe.HSet(ctx, key, fieldLastActive, at.UnixMilli())
		pipe.ZAdd(ctx, makeUserActiveKey(guildID), redis.Z{Score: float64(at.UnixMilli()), Member: userID})
		return nil
	})
	return err
}

// IncrUserCounter adds delta to counter. A zero at leaves last-active untouched.
func (r *statsRepository) IncrUserCounter(ctx context.Context, guildID, userID string, counter stats.UserCounter, delta int64, at time.Time) error {
	if err := r.ensureUser(ctx, guildID, userID); err != nil {
		return err
	}
	key := makeUserKey(guildID, userID)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrBy(ctx, key, string(counter), delta)
		if !at.IsZero() {
			pipe.HSet(ctx, key, fieldLastActive, at.UnixMilli())
			pipe.ZAdd(ctx, makeUserActiveKey(guildID), redis.Z{Score: float64(at.UnixMilli()), Member: userID})
		}
		return nil
	})
	return err
}

func (r *statsRepository) GetUser(ctx context.Context, guildID, userID string) (*stats.UserStats, error) {
	fields, err := r.client.HGetAll(ctx, makeUserKey(guildID, userID)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, stats.ErrUserNotFound
	}
	return decodeUser(guildID, userID, fields), nil
}

func (r *statsRepository) ListUsers(ctx context.Context, guildID string) ([]*stats.UserStats, error) {
	ids, err := r.client.ZRange(ctx, makeUserIndexKey(guildID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*stats.UserStats{}, nil
	}

	pipe := r.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, makeUserKey(guildID, id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	out := make([]*stats.UserStats, 0, len(ids))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		out = append(out, decodeUser(guildID, ids[i], fields))
	}
	return out, nil
}

func (r *statsRepository) CountActiveUsers(ctx context.Context, guildID string, since time.Time) (int, error) {
	n, err := r.client.ZCount(ctx, makeUserActiveKey(guildID), strconv.FormatInt(since.UnixMilli(), 10), "+inf").Result()
	return int(n), err
}

func (r *statsRepository) ResetUserCounter(ctx context.Context, counter stats.UserCounter) (int, error) {
	guilds, err := r.client.SMembers(ctx, keyUserGuilds).Result()
	if err != nil {
		return 0, err
	}

	total := 0
	for _, guildID := range guilds {
		ids, err := r.client.ZRange(ctx, makeUserIndexKey(guildID), 0, -1).Result()
		if err != nil {
			return total, err
		}
		if len(ids) == 0 {
			continue
		}
		pipe := r.client.Pipeline()
		for _, id := range ids {
			pipe.HSet(ctx, makeUserKey(guildID, id), string(counter), 0)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return total, err
		}
		total += len(ids)
	}
	return total, nil
}

func decodeUser(guildID, userID string, fields map[string]string) *stats.UserStats {
	u := &stats.UserStats{
		GuildID:          guildID,
		UserID:           userID,
		DisplayName:      fields[fieldDisplayName],
		VoiceMinutes:     parseInt(fields[string(stats.CounterVoiceMinutes)]),
		GiveawaysEntered: parseInt(fields[string(stats.CounterGiveawaysEntered)]),
		GiveawaysWon:     parseInt(fields[string(stats.CounterGiveawaysWon)]),
		Seq:              parseInt(fields[fieldSeq]),
	}
	u.Messages.Total = parseInt(fields[string(stats.CounterMessagesTotal)])
	u.Messages.Monthly = parseInt(fields[string(stats.CounterMessagesMonthly)])
	u.Messages.Weekly = parseInt(fields[string(stats.CounterMessagesWeekly)])
	u.Messages.Daily = parseInt(fields[string(stats.CounterMessagesDaily)])
	if ms := parseInt(fields[fieldLastActive]); ms > 0 {
		u.LastActive = time.UnixMilli(ms).UTC()
	}
	return u
}

func parseInt(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}
