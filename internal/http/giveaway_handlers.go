package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/open-builders/guild-bot/internal/common/middleware"
	dg "github.com/open-builders/guild-bot/internal/domain/giveaway"
)

// GiveawayReader is the read side of the lifecycle manager.
type GiveawayReader interface {
	Get(ctx context.Context, id string) (*dg.Giveaway, error)
	ListActive(ctx context.Context, guildID string) ([]*dg.Giveaway, error)
}

type GiveawayHandlers struct {
	service GiveawayReader
}

func NewGiveawayHandlers(svc GiveawayReader) *GiveawayHandlers {
	return &GiveawayHandlers{service: svc}
}

func (h *GiveawayHandlers) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/giveaways/:id", h.getByID)
	r.GET("/guilds/:guildID/giveaways", h.listActive)
}

// GiveawayResponse is a giveaway plus its derived status.
type GiveawayResponse struct {
	*dg.Giveaway
	Status       dg.GiveawayStatus `json:"status"`
	EntriesCount int               `json:"entries_count"`
}

func toResponse(g *dg.Giveaway) GiveawayResponse {
	return GiveawayResponse{Giveaway: g, Status: g.Status(), EntriesCount: len(g.Participants)}
}

// @Summary Get a giveaway
// @Tags giveaways
// @Produce json
// @Param id path string true "Announcement message ID"
// @Success 200 {object} GiveawayResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /giveaways/{id} [get]
func (h *GiveawayHandlers) getByID(c *gin.Context) {
	g, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.SendError(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(g))
}

// @Summary List active giveaways of a guild
// @Tags giveaways
// @Produce json
// @Param guildID path string true "Guild ID"
// @Success 200 {array} GiveawayResponse
// @Failure 503 {object} middleware.ErrorResponse
// @Router /guilds/{guildID}/giveaways [get]
func (h *GiveawayHandlers) listActive(c *gin.Context) {
	list, err := h.service.ListActive(c.Request.Context(), c.Param("guildID"))
	if err != nil {
		middleware.SendError(c, err)
		return
	}
	out := make([]GiveawayResponse, len(list))
	for i, g := range list {
		out[i] = toResponse(g)
	}
	c.JSON(http.StatusOK, out)
}
