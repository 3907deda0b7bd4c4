package main

import (
	"os"

	"github.com/open-builders/guild-bot/internal/common/logger"
)

// @title       Guild Bot API
// @version     1.0
// @description Read-only statistics and giveaway API of the guild bot.
// @BasePath    /api/v1

// @tag.name stats
// @tag.description Daily records, hourly activity, leaderboards and per-user counters

// @tag.name giveaways
// @tag.description Giveaway state as persisted by the lifecycle manager

func main() {
	var server srv
	if err := server.newApp().Run(os.Args); err != nil {
		logger.Fatal().Err(err).Msg("bot exited with error")
	}
}
