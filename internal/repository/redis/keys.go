package redis

import (
	"fmt"
	"time"

	"github.com/open-builders/guild-bot/internal/domain/stats"
)

const (
	keyPrefixGiveaway    = "giveaway:"
	keyActiveGiveaways   = "giveaways:active"
	keyEndedGiveaways    = "giveaways:ended"
	keyPrefixGuildGiveaw = "giveaways:guild:"

	keyStatsGuilds = "stats:guilds"
	keyUserGuilds  = "userstats:guilds"
	keyUserSeq     = "userstats:seq"

	// Optimistic transactions are retried this many times before giving up.
	maxTxRetries = 16
)

func makeGiveawayKey(id string) string {
	return keyPrefixGiveaway + id
}

func makeGuildGiveawaysKey(guildID string) string {
	return keyPrefixGuildGiveaw + guildID
}

func makeDayKey(guildID string, day time.Time) string {
	return fmt.Sprintf("stats:%s:day:%s", guildID, day.Format(stats.DateLayout))
}

func makeDayIndexKey(guildID string) string {
	return fmt.Sprintf("stats:%s:days", guildID)
}

func makeDayKeyFromDate(guildID, date string) string {
	return fmt.Sprintf("stats:%s:day:%s", guildID, date)
}

func makeUserKey(guildID, userID string) string {
	return fmt.Sprintf("userstats:%s:%s", guildID, userID)
}

func makeUserIndexKey(guildID string) string {
	return fmt.Sprintf("userstats:%s:index", guildID)
}

func makeUserActiveKey(guildID string) string {
	return fmt.Sprintf("userstats:%s:active", guildID)
}
