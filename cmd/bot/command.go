package main

import (
	"github.com/urfave/cli/v2"

	ds "github.com/open-builders/guild-bot/internal/domain/stats"
)

func (s *srv) newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "guild-bot"
	app.Usage = "Discord giveaways and server statistics"
	app.Action = s.startBot
	app.Commands = []*cli.Command{
		{
			Action:      s.startBot,
			Name:        "run",
			Usage:       "Start the bot",
			Category:    "Bot",
			Description: `Connects to the gateway, serves the ops API and runs periodic jobs. This is the default command.`,
		},
		{
			Action:   s.prune,
			Name:     "prune",
			Usage:    "Delete expired giveaways and statistics",
			Category: "Maintenance",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  "giveaway-days",
					Usage: "retention for ended giveaways (default GIVEAWAY_RETENTION_DAYS)",
				},
				&cli.IntFlag{
					Name:  "stats-days",
					Usage: "retention for daily records (default STATS_RETENTION_DAYS)",
				},
			},
		},
		{
			Action:   s.resetCounters,
			Name:     "reset-counters",
			Usage:    "Zero one period's message counters for every member",
			Category: "Maintenance",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "period",
					Usage:    "daily, weekly or monthly",
					Required: true,
				},
			},
		},
	}
	return app
}

func parseResettable(s string) (ds.Period, error) {
	p, err := ds.ParsePeriod(s)
	if err != nil {
		return "", err
	}
	if !p.Resettable() {
		return "", cli.Exit("period must be daily, weekly or monthly", 2)
	}
	return p, nil
}
