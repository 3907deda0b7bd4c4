package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "github.com/open-builders/guild-bot/internal/common/errors"
	"github.com/open-builders/guild-bot/internal/common/middleware"
	ds "github.com/open-builders/guild-bot/internal/domain/stats"
	"github.com/open-builders/guild-bot/internal/service/stats"
)

// StatsReader is the read side of the aggregation engine.
type StatsReader interface {
	GetTodayStats(ctx context.Context, guildID string) stats.TodayStats
	GetWeeklyStats(ctx context.Context, guildID string) []*ds.DailyRecord
	GetMonthlyStats(ctx context.Context, guildID string) []*ds.DailyRecord
	GetHourlyActivity(ctx context.Context, guildID string, hours int) []stats.HourlyPoint
	GetMessageLeaderboard(ctx context.Context, guildID string, limit int, period ds.Period) []stats.LeaderboardEntry
	GetVoiceLeaderboard(ctx context.Context, guildID string, limit int) []stats.LeaderboardEntry
	GetActiveMembersCount(ctx context.Context, guildID string, days int) int
	GetUserStats(ctx context.Context, guildID, userID string) (*ds.UserStats, error)
}

type StatsHandlers struct {
	stats StatsReader
}

func NewStatsHandlers(s StatsReader) *StatsHandlers {
	return &StatsHandlers{stats: s}
}

func (h *StatsHandlers) RegisterRoutes(router *gin.RouterGroup) {
	guild := router.Group("/guilds/:guildID")
	{
		guild.GET("/stats/today", h.today)
		guild.GET("/stats/weekly", h.weekly)
		guild.GET("/stats/monthly", h.monthly)
		guild.GET("/stats/hourly", h.hourly)
		guild.GET("/stats/leaderboard", h.leaderboard)
		guild.GET("/stats/members", h.members)
		guild.GET("/users/:userID/stats", h.user)
	}
}

type ActiveMembersResponse struct {
	GuildID string `json:"guild_id"`
	Days    int    `json:"days"`
	Active  int    `json:"active"`
}

// @Summary Today's activity
// @Tags stats
// @Produce json
// @Param guildID path string true "Guild ID"
// @Success 200 {object} stats.TodayStats
// @Router /guilds/{guildID}/stats/today [get]
func (h *StatsHandlers) today(c *gin.Context) {
	c.JSON(http.StatusOK, h.stats.GetTodayStats(c.Request.Context(), c.Param("guildID")))
}

// @Summary Last 7 daily records, oldest first
// @Tags stats
// @Produce json
// @Param guildID path string true "Guild ID"
// @Success 200 {array} stats.DailyRecord
// @Router /guilds/{guildID}/stats/weekly [get]
func (h *StatsHandlers) weekly(c *gin.Context) {
	c.JSON(http.StatusOK, h.stats.GetWeeklyStats(c.Request.Context(), c.Param("guildID")))
}

// @Summary Last 30 daily records, oldest first
// @Tags stats
// @Produce json
// @Param guildID path string true "Guild ID"
// @Success 200 {array} stats.DailyRecord
// @Router /guilds/{guildID}/stats/monthly [get]
func (h *StatsHandlers) monthly(c *gin.Context) {
	c.JSON(http.StatusOK, h.stats.GetMonthlyStats(c.Request.Context(), c.Param("guildID")))
}

// @Summary Hourly activity of the latest recorded day
// @Tags stats
// @Produce json
// @Param guildID path string true "Guild ID"
// @Param hours query int false "Hours to return (1-24)"
// @Success 200 {array} stats.HourlyPoint
// @Failure 400 {object} middleware.ErrorResponse
// @Router /guilds/{guildID}/stats/hourly [get]
func (h *StatsHandlers) hourly(c *gin.Context) {
	hours, err := queryInt(c, "hours", 24)
	if err != nil {
		middleware.SendError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.stats.GetHourlyActivity(c.Request.Context(), c.Param("guildID"), hours))
}

// @Summary Top members by messages or voice minutes
// @Tags stats
// @Produce json
// @Param guildID path string true "Guild ID"
// @Param period query string false "all, daily, weekly or monthly"
// @Param metric query string false "messages or voice"
// @Param limit query int false "Entries to return (default 10)"
// @Success 200 {array} stats.LeaderboardEntry
// @Failure 400 {object} middleware.ErrorResponse
// @Router /guilds/{guildID}/stats/leaderboard [get]
func (h *StatsHandlers) leaderboard(c *gin.Context) {
	limit, err := queryInt(c, "limit", stats.DefaultLeaderboard)
	if err != nil {
		middleware.SendError(c, err)
		return
	}
	ctx, guildID := c.Request.Context(), c.Param("guildID")

	switch c.DefaultQuery("metric", "messages") {
	case "voice":
		c.JSON(http.StatusOK, h.stats.GetVoiceLeaderboard(ctx, guildID, limit))
	case "messages":
		period, err := ds.ParsePeriod(c.Query("period"))
		if err != nil {
			middleware.SendError(c, apperrors.NewValidationError("period", err.Error()))
			return
		}
		c.JSON(http.StatusOK, h.stats.GetMessageLeaderboard(ctx, guildID, limit, period))
	default:
		middleware.SendError(c, apperrors.NewValidationError("metric", "must be messages or voice"))
	}
}

// @Summary Members active within a look-back window
// @Tags stats
// @Produce json
// @Param guildID path string true "Guild ID"
// @Param days query int false "Window in days (default 7)"
// @Success 200 {object} ActiveMembersResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Router /guilds/{guildID}/stats/members [get]
func (h *StatsHandlers) members(c *gin.Context) {
	days, err := queryInt(c, "days", stats.DefaultActiveDays)
	if err != nil {
		middleware.SendError(c, err)
		return
	}
	guildID := c.Param("guildID")
	c.JSON(http.StatusOK, ActiveMembersResponse{
		GuildID: guildID,
		Days:    days,
		Active:  h.stats.GetActiveMembersCount(c.Request.Context(), guildID, days),
	})
}

// @Summary Per-user counters
// @Tags stats
// @Produce json
// @Param guildID path string true "Guild ID"
// @Param userID path string true "User ID"
// @Success 200 {object} stats.UserStats
// @Failure 404 {object} middleware.ErrorResponse
// @Router /guilds/{guildID}/users/{userID}/stats [get]
func (h *StatsHandlers) user(c *gin.Context) {
	u, err := h.stats.GetUserStats(c.Request.Context(), c.Param("guildID"), c.Param("userID"))
	if err != nil {
		middleware.SendError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func queryInt(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.NewValidationError(name, "must be an integer")
	}
	return n, nil
}
