package main

import (
	"context"
	"errors"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"

	"github.com/open-builders/guild-bot/internal/common/logger"
	"github.com/open-builders/guild-bot/internal/discord"
	ds "github.com/open-builders/guild-bot/internal/domain/stats"
	"github.com/open-builders/guild-bot/internal/events"
	apphttp "github.com/open-builders/guild-bot/internal/http"
	"github.com/open-builders/guild-bot/internal/metrics"
	"github.com/open-builders/guild-bot/internal/workers"
)

const shutdownTimeout = 30 * time.Second

func (s *srv) startBot(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := s.bootstrap(ctx); err != nil {
		return err
	}
	defer s.close()
	if s.cfg.Discord.Token == "" {
		return errors.New("DISCORD_TOKEN is required to run the bot")
	}

	bot, renderer, err := discord.New(s.cfg.Discord.Token, s.cfg.Discord.GiveawayEmoji)
	if err != nil {
		return err
	}
	s.loadGiveaways(renderer)

	router := events.NewRouter(s.giveaways, s.stats, s.cfg.Discord.GiveawayEmoji)
	bot.Bind(router, s.giveaways, s.stats, func(ctx context.Context) error {
		_, err := s.giveaways.LoadActiveOnReady(ctx)
		return err
	})

	cron := workers.NewCronJobManager()
	cron.Register(
		workers.NewGiveawayPruneCronJob(s.giveaways, s.cfg.Giveaway.RetentionDays),
		workers.NewStatsPruneCronJob(s.stats, s.cfg.Stats.RetentionDays),
		workers.NewCounterResetCronJob(s.stats, ds.PeriodDaily),
		workers.NewCounterResetCronJob(s.stats, ds.PeriodWeekly),
		workers.NewCounterResetCronJob(s.stats, ds.PeriodMonthly),
		workers.NewPresenceSampleCronJob(bot, s.stats, s.cfg.Discord.PresenceSampleInterval),
	)

	server := apphttp.NewServer(s.cfg.HTTP.Addr, apphttp.NewRouter(apphttp.Deps{
		Redis:       s.rdb,
		Health:      s.rdb,
		Stats:       s.stats,
		Giveaways:   s.giveaways,
		CORSOrigins: s.cfg.HTTP.CORSOrigins,
		Debug:       s.cfg.Debug,
		Collectors: []prometheus.Collector{
			metrics.HealedBucketsCollector(ds.HealedBuckets),
		},
	}))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		cron.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		logger.Info().Str("addr", s.cfg.HTTP.Addr).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil {
			logger.Error().Err(err).Msg("HTTP server failed")
			stop()
		}
	}()

	if s.cfg.Events.StreamEnabled {
		worker := workers.NewRedisStreamWorker(s.rdb, router, s.cfg.Events.Stream, s.cfg.Events.Group, s.cfg.Events.Consumer)
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker.Start(ctx)
		}()
	}

	startErr := bot.Start()
	if startErr != nil {
		stop()
	} else {
		logger.Info().Msg("Bot is running")
	}

	<-ctx.Done()
	logger.Info().Msg("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server forced to shutdown")
	}
	if startErr == nil {
		if err := bot.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close gateway session")
		}
	}
	wg.Wait()

	logger.Info().Msg("Bot exited")
	return startErr
}
