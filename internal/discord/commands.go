package discord

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	apperrors "github.com/open-builders/guild-bot/internal/common/errors"
	"github.com/open-builders/guild-bot/internal/common/logger"
	dg "github.com/open-builders/guild-bot/internal/domain/giveaway"
	ds "github.com/open-builders/guild-bot/internal/domain/stats"
	"github.com/open-builders/guild-bot/internal/duration"
	gsvc "github.com/open-builders/guild-bot/internal/service/giveaway"
	"github.com/open-builders/guild-bot/internal/service/stats"
)

// GiveawayManager is the giveaway surface reachable from slash commands.
type GiveawayManager interface {
	Create(ctx context.Context, in gsvc.CreateInput) (*dg.Giveaway, error)
	Get(ctx context.Context, id string) (*dg.Giveaway, error)
	ListActive(ctx context.Context, guildID string) ([]*dg.Giveaway, error)
	EndNow(ctx context.Context, id, executorID string) (*dg.Giveaway, error)
	Cancel(ctx context.Context, id, executorID, reason string) (*dg.Giveaway, error)
	Reroll(ctx context.Context, id, executorID string) (string, error)
	ResolveIdentifier(ctx context.Context, text string) (*dg.Giveaway, error)
}

// StatsReader is the statistics surface reachable from slash commands.
type StatsReader interface {
	GetTodayStats(ctx context.Context, guildID string) stats.TodayStats
	GetWeeklyStats(ctx context.Context, guildID string) []*ds.DailyRecord
	GetMonthlyStats(ctx context.Context, guildID string) []*ds.DailyRecord
	GetHourlyActivity(ctx context.Context, guildID string, hours int) []stats.HourlyPoint
	GetMessageLeaderboard(ctx context.Context, guildID string, limit int, period ds.Period) []stats.LeaderboardEntry
	GetVoiceLeaderboard(ctx context.Context, guildID string, limit int) []stats.LeaderboardEntry
	GetUserLeaderboardRank(ctx context.Context, guildID, userID string, period ds.Period) *stats.UserRank
	GetUserVoiceRank(ctx context.Context, guildID, userID string) *stats.UserRank
	GetActiveMembersCount(ctx context.Context, guildID string, days int) int
	GetUserStats(ctx context.Context, guildID, userID string) (*ds.UserStats, error)
}

// Command is a parsed slash command invocation.
type Command struct {
	Name       string
	Subcommand string
	GuildID    string
	ChannelID  string
	UserID     string
	// CanManage is set when the invoker may run host-only subcommands.
	CanManage bool
	Options   map[string]interface{}
}

func (c Command) str(name string) string {
	if v, ok := c.Options[name].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func (c Command) integer(name string, def int) int {
	switch v := c.Options[name].(type) {
	case int64:
		return int(v)
	case int:
		return v
	case float64:
		return int(v)
	}
	return def
}

// Reply is the response to a Command.
type Reply struct {
	Content   string
	Embeds    []*discordgo.MessageEmbed
	Ephemeral bool
}

func textReply(format string, args ...interface{}) Reply {
	return Reply{Content: fmt.Sprintf(format, args...), Ephemeral: true}
}

func embedReply(e *discordgo.MessageEmbed) Reply {
	return Reply{Embeds: []*discordgo.MessageEmbed{e}}
}

const (
	cmdGiveaway = "giveaway"
	cmdStats    = "stats"
)

// Commands lists the application commands registered on ready.
func Commands() []*discordgo.ApplicationCommand {
	giveawayID := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "giveaway",
		Description: "Giveaway message ID or link",
		Required:    true,
	}
	period := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "period",
		Description: "Counter period",
		Choices: []*discordgo.ApplicationCommandOptionChoice{
			{Name: "All time", Value: string(ds.PeriodAll)},
			{Name: "Today", Value: string(ds.PeriodDaily)},
			{Name: "This week", Value: string(ds.PeriodWeekly)},
			{Name: "This month", Value: string(ds.PeriodMonthly)},
		},
	}
	minOne := float64(1)

	return []*discordgo.ApplicationCommand{
		{
			Name:        cmdGiveaway,
			Description: "Host and manage giveaways",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "create",
					Description: "Start a new giveaway in this channel",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "prize",
							Description: "What is being given away",
							Required:    true,
						},
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "duration",
							Description: "How long it runs (e.g., 1h30m, 2d)",
							Required:    true,
						},
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "winners",
							Description: "Number of winners (default 1)",
							MinValue:    &minOne,
							MaxValue:    gsvc.MaxWinners,
						},
						{
							Type:        discordgo.ApplicationCommandOptionRole,
							Name:        "role",
							Description: "Role required to enter (optional)",
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "end",
					Description: "End a giveaway now and draw winners",
					Options:     []*discordgo.ApplicationCommandOption{giveawayID},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "cancel",
					Description: "Cancel a giveaway without drawing winners",
					Options: []*discordgo.ApplicationCommandOption{
						giveawayID,
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "reason",
							Description: "Why it is cancelled",
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "reroll",
					Description: "Draw one more winner for an ended giveaway",
					Options:     []*discordgo.ApplicationCommandOption{giveawayID},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "list",
					Description: "List running giveaways in this server",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "entries",
					Description: "Show who entered a giveaway",
					Options:     []*discordgo.ApplicationCommandOption{giveawayID},
				},
			},
		},
		{
			Name:        cmdStats,
			Description: "Server activity statistics",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "overview", Description: "Today's activity"},
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "daily", Description: "Today's activity and top chatters"},
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "weekly", Description: "The last 7 days"},
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "monthly", Description: "The last 30 days"},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "leaderboard",
					Description: "Most active members",
					Options: []*discordgo.ApplicationCommandOption{
						period,
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "metric",
							Description: "Rank by messages or voice minutes",
							Choices: []*discordgo.ApplicationCommandOptionChoice{
								{Name: "Messages", Value: "messages"},
								{Name: "Voice", Value: "voice"},
							},
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "activity",
					Description: "Hourly activity for today",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "hours",
							Description: "Hours to show (1-24)",
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "members",
					Description: "Members active recently",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "days",
							Description: "Look-back window in days (default 7)",
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "me",
					Description: "Your own statistics",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionUser,
							Name:        "user",
							Description: "Look up another member instead",
						},
					},
				},
			},
		},
	}
}

// CommandHandler executes slash commands against the giveaway and
// statistics services.
type CommandHandler struct {
	giveaways GiveawayManager
	stats     StatsReader
	now       func() time.Time
	log       zerolog.Logger
}

func NewCommandHandler(giveaways GiveawayManager, reader StatsReader) *CommandHandler {
	return &CommandHandler{
		giveaways: giveaways,
		stats:     reader,
		now:       time.Now,
		log:       logger.Component("commands"),
	}
}

// Handle runs cmd and returns what to reply with. Errors are folded into the
// reply; internal failures are logged and shown as a generic message.
func (h *CommandHandler) Handle(ctx context.Context, cmd Command) Reply {
	if cmd.GuildID == "" {
		return textReply("This command can only be used in a server.")
	}

	var (
		reply Reply
		err   error
	)
	switch cmd.Name {
	case cmdGiveaway:
		reply, err = h.giveaway(ctx, cmd)
	case cmdStats:
		reply, err = h.statistics(ctx, cmd)
	default:
		return textReply("Unknown command.")
	}
	if err != nil {
		return h.failure(cmd, err)
	}
	return reply
}

func (h *CommandHandler) failure(cmd Command, err error) Reply {
	if appErr, ok := apperrors.AsAppError(err); ok && appErr.IsUserFacing() {
		return textReply("%s", appErr.Message)
	}
	h.log.Error().Err(err).
		Str("command", cmd.Name).
		Str("subcommand", cmd.Subcommand).
		Str("guild_id", cmd.GuildID).
		Str("user_id", cmd.UserID).
		Msg("command failed")
	return textReply("Something went wrong, please try again later.")
}

func (h *CommandHandler) giveaway(ctx context.Context, cmd Command) (Reply, error) {
	switch cmd.Subcommand {
	case "list":
		list, err := h.giveaways.ListActive(ctx, cmd.GuildID)
		if err != nil {
			return Reply{}, err
		}
		return embedReply(giveawayListEmbed(list, h.now())), nil
	case "entries":
		g, err := h.lookup(ctx, cmd)
		if err != nil {
			return Reply{}, err
		}
		return Reply{Embeds: []*discordgo.MessageEmbed{entriesEmbed(g)}, Ephemeral: true}, nil
	}

	if !cmd.CanManage {
		return textReply("You need the Manage Server permission to do that."), nil
	}

	switch cmd.Subcommand {
	case "create":
		d, err := duration.ParseDuration(cmd.str("duration"))
		if err != nil {
			return Reply{}, apperrors.NewValidationError("duration", "use a format like 30m, 2h or 1d12h")
		}
		in := gsvc.CreateInput{
			GuildID:     cmd.GuildID,
			ChannelID:   cmd.ChannelID,
			HostID:      cmd.UserID,
			Prize:       cmd.str("prize"),
			Duration:    d,
			WinnerCount: cmd.integer("winners", 1),
		}
		if role := cmd.str("role"); role != "" {
			in.Requirements = &dg.Requirements{RoleID: role}
		}
		g, err := h.giveaways.Create(ctx, in)
		if err != nil {
			return Reply{}, err
		}
		return textReply("Giveaway for **%s** started! It ends %s.", g.Prize, relative(g.EndTime)), nil

	case "end":
		g, err := h.lookup(ctx, cmd)
		if err != nil {
			return Reply{}, err
		}
		g, err = h.giveaways.EndNow(ctx, g.MessageID, cmd.UserID)
		if err != nil {
			return Reply{}, err
		}
		if len(g.Winners) == 0 {
			return textReply("Giveaway ended with no valid entries."), nil
		}
		return textReply("Giveaway ended. Winners: %s", mentions(g.Winners)), nil

	case "cancel":
		g, err := h.lookup(ctx, cmd)
		if err != nil {
			return Reply{}, err
		}
		if _, err := h.giveaways.Cancel(ctx, g.MessageID, cmd.UserID, cmd.str("reason")); err != nil {
			return Reply{}, err
		}
		return textReply("Giveaway for **%s** cancelled.", g.Prize), nil

	case "reroll":
		g, err := h.lookup(ctx, cmd)
		if err != nil {
			return Reply{}, err
		}
		winner, err := h.giveaways.Reroll(ctx, g.MessageID, cmd.UserID)
		if err != nil {
			return Reply{}, err
		}
		return textReply("Rerolled! New winner: %s", mention(winner)), nil
	}
	return textReply("Unknown subcommand."), nil
}

// lookup resolves the giveaway option and scopes it to the invoking guild.
func (h *CommandHandler) lookup(ctx context.Context, cmd Command) (*dg.Giveaway, error) {
	raw := cmd.str("giveaway")
	g, err := h.giveaways.ResolveIdentifier(ctx, raw)
	if err != nil {
		return nil, err
	}
	if g == nil || g.GuildID != cmd.GuildID {
		return nil, apperrors.NewNotFoundError("Giveaway", raw)
	}
	return g, nil
}

type userView struct {
	Stats       *ds.UserStats
	MessageRank *stats.UserRank
	VoiceRank   *stats.UserRank
}

func (h *CommandHandler) statistics(ctx context.Context, cmd Command) (Reply, error) {
	switch cmd.Subcommand {
	case "overview":
		return embedReply(todayEmbed(h.stats.GetTodayStats(ctx, cmd.GuildID))), nil
	case "daily":
		entries := h.stats.GetMessageLeaderboard(ctx, cmd.GuildID, stats.DefaultLeaderboard, ds.PeriodDaily)
		return Reply{Embeds: []*discordgo.MessageEmbed{
			todayEmbed(h.stats.GetTodayStats(ctx, cmd.GuildID)),
			leaderboardEmbed("Top chatters today", "msgs", entries),
		}}, nil
	case "weekly":
		return embedReply(periodEmbed("Last 7 days", summarize(h.stats.GetWeeklyStats(ctx, cmd.GuildID)))), nil
	case "monthly":
		return embedReply(periodEmbed("Last 30 days", summarize(h.stats.GetMonthlyStats(ctx, cmd.GuildID)))), nil
	case "leaderboard":
		if cmd.str("metric") == "voice" {
			entries := h.stats.GetVoiceLeaderboard(ctx, cmd.GuildID, stats.DefaultLeaderboard)
			return embedReply(leaderboardEmbed("Voice leaderboard", "min", entries)), nil
		}
		p, err := ds.ParsePeriod(cmd.str("period"))
		if err != nil {
			return Reply{}, apperrors.NewValidationError("period", err.Error())
		}
		entries := h.stats.GetMessageLeaderboard(ctx, cmd.GuildID, stats.DefaultLeaderboard, p)
		return embedReply(leaderboardEmbed(fmt.Sprintf("Message leaderboard (%s)", p), "msgs", entries)), nil
	case "activity":
		return embedReply(hourlyEmbed(h.stats.GetHourlyActivity(ctx, cmd.GuildID, cmd.integer("hours", 24)))), nil
	case "members":
		days := cmd.integer("days", stats.DefaultActiveDays)
		n := h.stats.GetActiveMembersCount(ctx, cmd.GuildID, days)
		return textReply("%d members were active in the last %d days.", n, days), nil
	case "me":
		userID := cmd.str("user")
		if userID == "" {
			userID = cmd.UserID
		}
		u, err := h.stats.GetUserStats(ctx, cmd.GuildID, userID)
		if err != nil {
			return Reply{}, err
		}
		return embedReply(userEmbed(userView{
			Stats:       u,
			MessageRank: h.stats.GetUserLeaderboardRank(ctx, cmd.GuildID, userID, ds.PeriodAll),
			VoiceRank:   h.stats.GetUserVoiceRank(ctx, cmd.GuildID, userID),
		})), nil
	}
	return textReply("Unknown subcommand."), nil
}

func summarize(records []*ds.DailyRecord) []*statsDay {
	out := make([]*statsDay, len(records))
	for i, r := range records {
		out[i] = &statsDay{
			Date:         r.Date,
			Messages:     r.Messages.Total,
			VoiceMinutes: r.Voice.TotalMinutes,
			Joins:        r.Members.Joins,
			Leaves:       r.Members.Leaves,
		}
	}
	return out
}

// commandFromInteraction flattens an application command interaction. Role
// and user options arrive as snowflake strings.
func commandFromInteraction(i *discordgo.InteractionCreate) Command {
	data := i.ApplicationCommandData()
	cmd := Command{
		Name:      data.Name,
		GuildID:   i.GuildID,
		ChannelID: i.ChannelID,
		Options:   make(map[string]interface{}),
	}
	if i.Member != nil {
		if i.Member.User != nil {
			cmd.UserID = i.Member.User.ID
		}
		cmd.CanManage = i.Member.Permissions&(discordgo.PermissionManageServer|discordgo.PermissionAdministrator) != 0
	} else if i.User != nil {
		cmd.UserID = i.User.ID
	}

	opts := data.Options
	if len(opts) == 1 && opts[0].Type == discordgo.ApplicationCommandOptionSubCommand {
		cmd.Subcommand = opts[0].Name
		opts = opts[0].Options
	}
	for _, o := range opts {
		if o.Type == discordgo.ApplicationCommandOptionInteger {
			cmd.Options[o.Name] = o.IntValue()
			continue
		}
		cmd.Options[o.Name] = o.Value
	}
	return cmd
}
