package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/salesops/internal/logger"
	"github.com/localnerve/salesops/internal/services"
	"github.com/localnerve/salesops/internal/types"
	"github.com/localnerve/salesops/internal/utils"
)

// SimulationHandler handles the price simulation lab routes
type SimulationHandler struct {
	Service *services.SimulationService
	Log     *logger.Logger
}

// AssessmentRequest is the body of save assessment
type AssessmentRequest struct {
	CustomerSeq types.FlexID `json:"customerSeq" validate:"required"`
	AssessorID  string       `json:"assessorId" validate:"required,max=64"`
	Score       *int         `json:"score" validate:"required,gte=0,lte=100"`
	Comment     string       `json:"comment"`
}

// GetData handles GET /api/lab/price-simulation/data
// @Summary Read price simulation data
// @Description Rows for one customer over an inclusive ISO date range, with aggregates
// @Tags Simulation
// @Produce json
// @Param customerSeq query int true "Customer sequence"
// @Param startDate query string true "Start date (YYYY-MM-DD)"
// @Param endDate query string true "End date (YYYY-MM-DD)"
// @Success 200 {object} services.SimulationResult
// @Failure 400 {object} utils.ErrorResponseStruct
// @Router /lab/price-simulation/data [get]
func (h *SimulationHandler) GetData(c *fiber.Ctx) error {
	customerSeq, err := types.ParseID(c.Query("customerSeq"))
	if err != nil {
		return writeError(c, h.Log, types.Invalid("customerSeq must be a positive integer"), "getSimulationData")
	}
	result, err := h.Service.GetSimulationData(c.UserContext(), customerSeq, c.Query("startDate"), c.Query("endDate"))
	if err != nil {
		return writeError(c, h.Log, err, "getSimulationData")
	}
	return c.JSON(result)
}

// SaveAssessment handles POST /api/lab/price-simulation/assessment
// @Summary Record a simulation assessment
// @Tags Simulation
// @Accept json
// @Produce json
// @Param assessment body AssessmentRequest true "Assessment"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Router /lab/price-simulation/assessment [post]
func (h *SimulationHandler) SaveAssessment(c *fiber.Ctx) error {
	var req AssessmentRequest
	if err := bindJSON(c, &req); err != nil {
		return writeError(c, h.Log, err, "saveAssessment")
	}
	a, err := h.Service.SaveAssessment(c.UserContext(), req.CustomerSeq.Uint64(), req.AssessorID, *req.Score, req.Comment)
	if err != nil {
		return writeError(c, h.Log, err, "saveAssessment")
	}
	return utils.MutationSuccessResponse(c, fiber.StatusOK, fiber.Map{"id": a.ID, "token": a.Token})
}

// ListAssessments handles GET /api/lab/price-simulation/assessment
// @Summary List a customer's simulation assessments
// @Tags Simulation
// @Produce json
// @Param customerSeq query int true "Customer sequence"
// @Success 200 {array} models.SimulationAssessment
// @Router /lab/price-simulation/assessment [get]
func (h *SimulationHandler) ListAssessments(c *fiber.Ctx) error {
	customerSeq, err := types.ParseID(c.Query("customerSeq"))
	if err != nil {
		return writeError(c, h.Log, types.Invalid("customerSeq must be a positive integer"), "listAssessments")
	}
	results, err := h.Service.ListAssessments(c.UserContext(), customerSeq)
	if err != nil {
		return writeError(c, h.Log, err, "listAssessments")
	}
	return c.JSON(results)
}
