package main

import (
	"github.com/urfave/cli/v2"

	"github.com/open-builders/guild-bot/internal/common/logger"
)

func (s *srv) prune(c *cli.Context) error {
	if err := s.bootstrap(c.Context); err != nil {
		return err
	}
	defer s.close()
	s.loadGiveaways(nil)

	giveawayDays := s.cfg.Giveaway.RetentionDays
	if c.IsSet("giveaway-days") {
		giveawayDays = c.Int("giveaway-days")
	}
	statsDays := s.cfg.Stats.RetentionDays
	if c.IsSet("stats-days") {
		statsDays = c.Int("stats-days")
	}

	giveaways, err := s.giveaways.PruneExpired(c.Context, giveawayDays)
	if err != nil {
		return err
	}
	days, err := s.stats.PruneOldStats(c.Context, statsDays)
	if err != nil {
		return err
	}
	logger.Info().Int("giveaways", giveaways).Int("daily_records", days).Msg("prune finished")
	return nil
}

func (s *srv) resetCounters(c *cli.Context) error {
	period, err := parseResettable(c.String("period"))
	if err != nil {
		return err
	}
	if err := s.bootstrap(c.Context); err != nil {
		return err
	}
	defer s.close()

	n, err := s.stats.ResetCounters(c.Context, period)
	if err != nil {
		return err
	}
	logger.Info().Str("period", string(period)).Int("users", n).Msg("counters reset")
	return nil
}
