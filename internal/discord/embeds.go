package discord

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	dg "github.com/open-builders/guild-bot/internal/domain/giveaway"
	"github.com/open-builders/guild-bot/internal/duration"
	"github.com/open-builders/guild-bot/internal/service/stats"
)

const (
	colorActive    = 0x5865F2
	colorEnded     = 0x57F287
	colorCancelled = 0xED4245
	colorMuted     = 0x99AAB5
	colorStats     = 0xFEE75C

	maxEmbedFieldValue = 1024
)

func mention(userID string) string {
	return "<@" + userID + ">"
}

func mentions(userIDs []string) string {
	out := make([]string, len(userIDs))
	for i, id := range userIDs {
		out[i] = mention(id)
	}
	return strings.Join(out, ", ")
}

// relative renders a client-side "in 2 hours" style timestamp.
func relative(t time.Time) string {
	return fmt.Sprintf("<t:%d:R>", t.Unix())
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func activeEmbed(prize, hostID string, winners int, endTime time.Time, entries int, req *dg.Requirements, emoji string) *discordgo.MessageEmbed {
	lines := []string{
		fmt.Sprintf("React with %s to enter!", emoji),
		fmt.Sprintf("Ends: %s", relative(endTime)),
		fmt.Sprintf("Hosted by: %s", mention(hostID)),
		fmt.Sprintf("Entries: **%d**", entries),
		fmt.Sprintf("Winners: **%d**", winners),
	}
	if req != nil && req.RoleID != "" {
		lines = append(lines, fmt.Sprintf("Required role: <@&%s>", req.RoleID))
	}
	return &discordgo.MessageEmbed{
		Title:       prize,
		Description: strings.Join(lines, "\n"),
		Color:       colorActive,
		Footer:      &discordgo.MessageEmbedFooter{Text: "Ends at"},
		Timestamp:   endTime.UTC().Format(time.RFC3339),
	}
}

func draftEmbed(d dg.Draft, emoji string) *discordgo.MessageEmbed {
	return activeEmbed(d.Prize, d.HostID, d.WinnerCount, d.EndTime, 0, d.Requirements, emoji)
}

// giveawayEmbed renders the announcement for the giveaway's current state.
func giveawayEmbed(g *dg.Giveaway, emoji string) *discordgo.MessageEmbed {
	switch g.Status() {
	case dg.GiveawayStatusCancelled:
		desc := fmt.Sprintf("This giveaway was cancelled by %s.", mention(g.CancelledBy))
		if g.CancelledBy == "" {
			desc = "This giveaway was cancelled."
		}
		if g.CancelReason != "" {
			desc += "\nReason: " + g.CancelReason
		}
		return &discordgo.MessageEmbed{
			Title:       g.Prize,
			Description: desc,
			Color:       colorCancelled,
			Footer:      &discordgo.MessageEmbedFooter{Text: "Cancelled"},
		}
	case dg.GiveawayStatusEnded:
		winners := "No valid entries."
		color := colorMuted
		if len(g.Winners) > 0 {
			winners = truncate(mentions(g.Winners), 2000)
			color = colorEnded
		}
		return &discordgo.MessageEmbed{
			Title: g.Prize,
			Description: strings.Join([]string{
				fmt.Sprintf("Winners: %s", winners),
				fmt.Sprintf("Hosted by: %s", mention(g.HostID)),
				fmt.Sprintf("Entries: **%d**", len(g.Participants)),
			}, "\n"),
			Color:     color,
			Footer:    &discordgo.MessageEmbedFooter{Text: "Ended at"},
			Timestamp: g.EndTime.UTC().Format(time.RFC3339),
		}
	}
	return activeEmbed(g.Prize, g.HostID, g.WinnerCount, g.EndTime, len(g.Participants), g.Requirements, emoji)
}

func giveawayListEmbed(list []*dg.Giveaway, now time.Time) *discordgo.MessageEmbed {
	e := &discordgo.MessageEmbed{Title: "Active giveaways", Color: colorActive}
	if len(list) == 0 {
		e.Description = "There are no active giveaways in this server."
		return e
	}
	for _, g := range list {
		left := g.EndTime.Sub(now)
		if left < 0 {
			left = 0
		}
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{
			Name: truncate(g.Prize, 256),
			Value: fmt.Sprintf("ID `%s` in <#%s>\n%d entries, %d winners, ends in %s",
				g.MessageID, g.ChannelID, len(g.Participants), g.WinnerCount,
				duration.FormatDuration(left.Round(time.Second))),
		})
		if len(e.Fields) == 25 {
			break
		}
	}
	return e
}

func entriesEmbed(g *dg.Giveaway) *discordgo.MessageEmbed {
	value := "Nobody has entered yet."
	if len(g.Participants) > 0 {
		value = truncate(mentions(g.Participants), 4000)
	}
	return &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("Entries for %s (%d)", g.Prize, len(g.Participants)),
		Description: value,
		Color:       colorActive,
	}
}

func todayEmbed(s stats.TodayStats) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "Server activity for " + s.Date,
		Color: colorStats,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Messages", Value: fmt.Sprint(s.Messages), Inline: true},
			{Name: "Voice minutes", Value: fmt.Sprint(s.VoiceMinutes), Inline: true},
			{Name: "Voice joins", Value: fmt.Sprint(s.VoiceJoins), Inline: true},
			{Name: "Joins", Value: fmt.Sprint(s.Joins), Inline: true},
			{Name: "Leaves", Value: fmt.Sprint(s.Leaves), Inline: true},
			{Name: "Members", Value: fmt.Sprint(s.MemberTotal), Inline: true},
			{Name: "Peak online", Value: fmt.Sprint(s.MaxOnline), Inline: true},
		},
	}
}

// periodEmbed summarises a run of daily records, oldest first.
func periodEmbed(title string, days []*statsDay) *discordgo.MessageEmbed {
	var messages, voice, joins, leaves int64
	lines := make([]string, 0, len(days))
	for _, d := range days {
		messages += d.Messages
		voice += d.VoiceMinutes
		joins += d.Joins
		leaves += d.Leaves
		lines = append(lines, fmt.Sprintf("`%s` %d msgs, %d voice min", d.Date, d.Messages, d.VoiceMinutes))
	}
	return &discordgo.MessageEmbed{
		Title:       title,
		Color:       colorStats,
		Description: truncate(strings.Join(lines, "\n"), 4000),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Messages", Value: fmt.Sprint(messages), Inline: true},
			{Name: "Voice minutes", Value: fmt.Sprint(voice), Inline: true},
			{Name: "Net members", Value: fmt.Sprintf("%+d", joins-leaves), Inline: true},
		},
	}
}

type statsDay struct {
	Date         string
	Messages     int64
	VoiceMinutes int64
	Joins        int64
	Leaves       int64
}

func leaderboardEmbed(title, unit string, entries []stats.LeaderboardEntry) *discordgo.MessageEmbed {
	e := &discordgo.MessageEmbed{Title: title, Color: colorStats}
	if len(entries) == 0 {
		e.Description = "No activity recorded yet."
		return e
	}
	lines := make([]string, len(entries))
	for i, entry := range entries {
		lines[i] = fmt.Sprintf("**%d.** %s %d %s", entry.Rank, mention(entry.UserID), entry.Count, unit)
	}
	e.Description = strings.Join(lines, "\n")
	return e
}

func hourlyEmbed(points []stats.HourlyPoint) *discordgo.MessageEmbed {
	var peak int64
	for _, p := range points {
		if p.Messages > peak {
			peak = p.Messages
		}
	}
	lines := make([]string, len(points))
	for i, p := range points {
		lines[i] = fmt.Sprintf("`%s` %s %d", p.Label, bar(p.Messages, peak, 20), p.Messages)
	}
	return &discordgo.MessageEmbed{
		Title:       "Hourly message activity",
		Color:       colorStats,
		Description: truncate(strings.Join(lines, "\n"), 4000),
	}
}

func bar(v, peak int64, width int) string {
	if peak <= 0 || v <= 0 {
		return ""
	}
	n := int(v * int64(width) / peak)
	if n == 0 {
		n = 1
	}
	return strings.Repeat("█", n)
}

func userEmbed(u userView) *discordgo.MessageEmbed {
	fields := []*discordgo.MessageEmbedField{
		{Name: "Messages (all time)", Value: fmt.Sprint(u.Stats.Messages.Total), Inline: true},
		{Name: "This month", Value: fmt.Sprint(u.Stats.Messages.Monthly), Inline: true},
		{Name: "This week", Value: fmt.Sprint(u.Stats.Messages.Weekly), Inline: true},
		{Name: "Today", Value: fmt.Sprint(u.Stats.Messages.Daily), Inline: true},
		{Name: "Voice minutes", Value: fmt.Sprint(u.Stats.VoiceMinutes), Inline: true},
		{Name: "Giveaways", Value: fmt.Sprintf("%d entered, %d won", u.Stats.GiveawaysEntered, u.Stats.GiveawaysWon), Inline: true},
	}
	if u.MessageRank != nil {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name: "Message rank", Value: fmt.Sprintf("#%d of %d", u.MessageRank.Rank, u.MessageRank.Of), Inline: true,
		})
	}
	if u.VoiceRank != nil {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name: "Voice rank", Value: fmt.Sprintf("#%d of %d", u.VoiceRank.Rank, u.VoiceRank.Of), Inline: true,
		})
	}
	name := u.Stats.DisplayName
	if name == "" {
		name = u.Stats.UserID
	}
	return &discordgo.MessageEmbed{
		Title:  "Stats for " + name,
		Color:  colorStats,
		Fields: fields,
	}
}
