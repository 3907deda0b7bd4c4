package main

import (
	"context"
	"time"

	"github.com/open-builders/guild-bot/internal/common/logger"
	"github.com/open-builders/guild-bot/internal/config"
	dg "github.com/open-builders/guild-bot/internal/domain/giveaway"
	ds "github.com/open-builders/guild-bot/internal/domain/stats"
	rplatform "github.com/open-builders/guild-bot/internal/platform/redis"
	rrepo "github.com/open-builders/guild-bot/internal/repository/redis"
	gsvc "github.com/open-builders/guild-bot/internal/service/giveaway"
	"github.com/open-builders/guild-bot/internal/service/stats"
)

type srv struct {
	cfg *config.Config
	rdb *rplatform.Client

	giveawayRepo dg.Repository
	statsRepo    ds.Repository

	stats     *stats.Engine
	giveaways *gsvc.Service
}

func (s *srv) loadConfig() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	s.cfg = cfg
	return nil
}

func (s *srv) loadLogger() {
	logger.Init("guild-bot", s.cfg.Debug)
}

func (s *srv) loadRedis(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	rdb, err := rplatform.Open(ctx, s.cfg.Redis.Addr, s.cfg.Redis.Password, s.cfg.Redis.DB)
	if err != nil {
		return err
	}
	s.rdb = rdb
	logger.Info().Str("addr", s.cfg.Redis.Addr).Msg("Redis connection established")
	return nil
}

func (s *srv) loadRepos() {
	s.giveawayRepo = rrepo.NewGiveawayRepository(s.rdb)
	s.statsRepo = rrepo.NewStatsRepository(s.rdb)
}

func (s *srv) loadStats() error {
	loc, err := s.cfg.Location()
	if err != nil {
		return err
	}
	s.stats = stats.NewEngine(s.statsRepo, stats.WithLocation(loc))
	return nil
}

// loadGiveaways builds the lifecycle manager. renderer may be nil for
// maintenance commands that never announce anything.
func (s *srv) loadGiveaways(renderer dg.Renderer) {
	s.giveaways = gsvc.NewService(s.giveawayRepo, renderer,
		gsvc.WithTracker(s.stats),
		gsvc.WithMaxTimerDelay(s.cfg.Giveaway.MaxTimerDelay),
	)
}

// bootstrap runs the loaders shared by every command.
func (s *srv) bootstrap(ctx context.Context) error {
	if err := s.loadConfig(); err != nil {
		return err
	}
	s.loadLogger()
	if err := s.loadRedis(ctx); err != nil {
		return err
	}
	s.loadRepos()
	return s.loadStats()
}

func (s *srv) close() {
	if s.giveaways != nil {
		s.giveaways.Shutdown()
	}
	if s.rdb != nil {
		if err := s.rdb.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close redis client")
		}
	}
}
