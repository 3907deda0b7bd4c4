package workers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/open-builders/guild-bot/internal/common/logger"
	"github.com/open-builders/guild-bot/internal/events"
	"github.com/open-builders/guild-bot/internal/metrics"
)

const (
	DefaultStream        = "bot:events"
	DefaultConsumerGroup = "guild_bot_consumers"
	streamSource         = "stream"
	readBlock            = 5 * time.Second
	readBatch            = 16
	errorBackoff         = time.Second
)

// Dispatcher applies a decoded event.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev events.Event, source string) error
}

// RedisStreamWorker consumes platform events published to a Redis stream by
// other processes and feeds them to the router.
type RedisStreamWorker struct {
	rdb      redis.UniversalClient
	router   Dispatcher
	stream   string
	group    string
	consumer string
	log      zerolog.Logger
}

func NewRedisStreamWorker(rdb redis.UniversalClient, router Dispatcher, stream, group, consumer string) *RedisStreamWorker {
	if stream == "" {
		stream = DefaultStream
	}
	if group == "" {
		group = DefaultConsumerGroup
	}
	if consumer == "" {
		consumer = "worker-" + uuid.NewString()
	}
	return &RedisStreamWorker{
		rdb:      rdb,
		router:   router,
		stream:   stream,
		group:    group,
		consumer: consumer,
		log:      logger.Component("stream").With().Str("stream", stream).Str("consumer", consumer).Logger(),
	}
}

// Start blocks reading the stream until ctx is cancelled.
func (w *RedisStreamWorker) Start(ctx context.Context) {
	if err := w.ensureGroup(ctx); err != nil {
		w.log.Error().Err(err).Msg("failed to create consumer group")
	}

	w.log.Info().Msg("stream worker started")
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("stream worker stopped")
			return
		default:
		}

		if _, err := w.Poll(ctx, readBlock); err != nil {
			if ctx.Err() != nil {
				continue
			}
			w.log.Error().Err(err).Msg("failed to read from stream")
			select {
			case <-ctx.Done():
			case <-time.After(errorBackoff):
			}
		}
	}
}

func (w *RedisStreamWorker) ensureGroup(ctx context.Context) error {
	err := w.rdb.XGroupCreateMkStream(ctx, w.stream, w.group, "$").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

// Poll reads one batch and returns the number of acknowledged entries.
func (w *RedisStreamWorker) Poll(ctx context.Context, block time.Duration) (int, error) {
	entries, err := w.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    w.group,
		Consumer: w.consumer,
		Streams:  []string{w.stream, ">"},
		Count:    readBatch,
		Block:    block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	acked := 0
	for _, stream := range entries {
		for _, msg := range stream.Messages {
			w.processMessage(ctx, msg)
			// Undecodable or failing entries are acked too; redelivery would not fix them.
			if err := w.rdb.XAck(ctx, w.stream, w.group, msg.ID).Err(); err != nil {
				w.log.Error().Err(err).Str("id", msg.ID).Msg("failed to ack stream entry")
				continue
			}
			metrics.Inc(metrics.StreamMessagesAcked, w.stream)
			acked++
		}
	}
	return acked, nil
}

func (w *RedisStreamWorker) processMessage(ctx context.Context, msg redis.XMessage) {
	ev, err := events.FromValues(msg.Values)
	if err != nil {
		metrics.Inc(metrics.StreamMessagesFailed, w.stream)
		w.log.Warn().Err(err).Str("id", msg.ID).Msg("dropping malformed stream entry")
		return
	}
	if err := w.router.Dispatch(ctx, ev, streamSource); err != nil {
		metrics.Inc(metrics.StreamMessagesFailed, w.stream)
		w.log.Error().Err(err).Str("id", msg.ID).Str("type", string(ev.Type)).Str("guild_id", ev.GuildID).
			Msg("failed to dispatch stream event")
	}
}
