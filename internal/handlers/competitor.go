package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/salesops/internal/logger"
	"github.com/localnerve/salesops/internal/models"
	"github.com/localnerve/salesops/internal/repos"
	"github.com/localnerve/salesops/internal/services"
)

// CompetitorHandler handles competitor registry routes
type CompetitorHandler struct {
	Service *services.CompetitorService
	Log     *logger.Logger
}

// CompetitorRequest is the body of register and update
type CompetitorRequest struct {
	Name              string `json:"name" validate:"required,max=255"`
	MarketPosition    string `json:"marketPosition" validate:"max=100"`
	DistributionModel string `json:"distributionModel" validate:"max=100"`
	Website           string `json:"website" validate:"omitempty,max=255,url"`
	Description       string `json:"description"`
}

func (r CompetitorRequest) model() *models.Competitor {
	return &models.Competitor{
		Name:              r.Name,
		MarketPosition:    r.MarketPosition,
		DistributionModel: r.DistributionModel,
		Website:           r.Website,
		Description:       r.Description,
	}
}

// InsightRequest is the body of add insight
type InsightRequest struct {
	Note     string     `json:"note" validate:"required"`
	AuthorID string     `json:"authorId" validate:"max=64"`
	NotedAt  *time.Time `json:"notedAt"`
}

// Register handles POST /api/competitors
// @Summary Register a competitor
// @Tags Competitors
// @Accept json
// @Produce json
// @Param competitor body CompetitorRequest true "Competitor"
// @Success 201 {object} models.Competitor
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /competitors [post]
func (h *CompetitorHandler) Register(c *fiber.Ctx) error {
	var req CompetitorRequest
	if err := bindJSON(c, &req); err != nil {
		return writeError(c, h.Log, err, "registerCompetitor")
	}
	created, err := h.Service.Register(c.UserContext(), req.model())
	if err != nil {
		return writeError(c, h.Log, err, "registerCompetitor")
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// Update handles PUT /api/competitors/:id
// @Summary Update a competitor
// @Tags Competitors
// @Accept json
// @Produce json
// @Param id path int true "Competitor ID"
// @Param competitor body CompetitorRequest true "Competitor"
// @Success 200 {object} models.Competitor
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /competitors/{id} [put]
func (h *CompetitorHandler) Update(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, h.Log, err, "updateCompetitor")
	}
	var req CompetitorRequest
	if err := bindJSON(c, &req); err != nil {
		return writeError(c, h.Log, err, "updateCompetitor")
	}
	comp := req.model()
	comp.ID = id
	updated, err := h.Service.Update(c.UserContext(), comp)
	if err != nil {
		return writeError(c, h.Log, err, "updateCompetitor")
	}
	return c.JSON(updated)
}

// Search handles GET /api/competitors
// @Summary Search competitors
// @Description All supplied filters must match; name is a case-insensitive partial match
// @Tags Competitors
// @Produce json
// @Param name query string false "Name contains"
// @Param marketPosition query string false "Market position"
// @Param distributionModel query string false "Distribution model"
// @Success 200 {array} models.Competitor
// @Router /competitors [get]
func (h *CompetitorHandler) Search(c *fiber.Ctx) error {
	results, err := h.Service.Search(c.UserContext(), repos.CompetitorFilter{
		Name:              c.Query("name"),
		MarketPosition:    c.Query("marketPosition"),
		DistributionModel: c.Query("distributionModel"),
	})
	if err != nil {
		return writeError(c, h.Log, err, "searchCompetitors")
	}
	return c.JSON(results)
}

// AddInsight handles POST /api/competitors/:id/insights
// @Summary Append an insight note
// @Tags Competitors
// @Accept json
// @Produce json
// @Param id path int true "Competitor ID"
// @Param insight body InsightRequest true "Insight"
// @Success 201 {object} models.CompetitorInsight
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /competitors/{id}/insights [post]
func (h *CompetitorHandler) AddInsight(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, h.Log, err, "addInsight")
	}
	var req InsightRequest
	if err := bindJSON(c, &req); err != nil {
		return writeError(c, h.Log, err, "addInsight")
	}
	in := &models.CompetitorInsight{CompetitorID: id, Note: req.Note, AuthorID: req.AuthorID}
	if req.NotedAt != nil {
		in.NotedAt = req.NotedAt.UTC()
	}
	created, err := h.Service.AddInsight(c.UserContext(), in)
	if err != nil {
		return writeError(c, h.Log, err, "addInsight")
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// GetInsights handles GET /api/competitors/:id/insights
// @Summary List insight notes
// @Tags Competitors
// @Produce json
// @Param id path int true "Competitor ID"
// @Success 200 {array} models.CompetitorInsight
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /competitors/{id}/insights [get]
func (h *CompetitorHandler) GetInsights(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, h.Log, err, "getInsights")
	}
	notes, err := h.Service.GetInsights(c.UserContext(), id)
	if err != nil {
		return writeError(c, h.Log, err, "getInsights")
	}
	return c.JSON(notes)
}
