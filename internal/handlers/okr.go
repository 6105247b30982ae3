package handlers

import (
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	authorizer "github.com/localnerve/authorizer-go"
	"github.com/localnerve/salesops/internal/logger"
	"github.com/localnerve/salesops/internal/models"
	"github.com/localnerve/salesops/internal/repos"
	"github.com/localnerve/salesops/internal/services"
	"github.com/localnerve/salesops/internal/types"
)

// OkrHandler handles OKR cycle, item, approval and evaluation routes
type OkrHandler struct {
	Service *services.OkrService
	Log     *logger.Logger
}

// CycleRequest is the body of create and update cycle
type CycleRequest struct {
	Label       string `json:"label" validate:"required,max=100"`
	StartDate   string `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate     string `json:"endDate" validate:"required,datetime=2006-01-02"`
	Status      string `json:"status" validate:"omitempty,oneof=PLANNING ACTIVE CLOSED"`
	Description string `json:"description"`
}

func (r CycleRequest) model() (*models.OkrCycle, error) {
	start, err := parseDate("startDate", r.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := parseDate("endDate", r.EndDate)
	if err != nil {
		return nil, err
	}
	return &models.OkrCycle{
		Label:       r.Label,
		StartDate:   start,
		EndDate:     end,
		Status:      r.Status,
		Description: r.Description,
	}, nil
}

// ItemRequest is the body of create and update item. cycleId is ignored on update.
// A missing memberIds leaves members untouched on update; an empty list clears them.
type ItemRequest struct {
	CycleID      types.FlexID `json:"cycleId"`
	ParentID     types.FlexID `json:"parentId"`
	OwnerID      types.FlexID `json:"ownerId" validate:"required"`
	ApproverID   types.FlexID `json:"approverId"`
	ItemType     string       `json:"itemType" validate:"omitempty,oneof=OBJECTIVE KEY_RESULT"`
	Title        string       `json:"title" validate:"required,max=255"`
	Description  string       `json:"description"`
	TargetValue  float64      `json:"targetValue"`
	CurrentValue float64      `json:"currentValue"`
	Weight       float64      `json:"weight" validate:"gte=0"`
	StatusCode   string       `json:"statusCode" validate:"omitempty,oneof=DRAFT PENDING_APPROVAL"`
	Metadata     models.JSON  `json:"metadata" swaggertype:"object"`
	MemberIDs    types.IDList `json:"memberIds" swaggertype:"array,integer"`
}

func (r ItemRequest) model() *models.OkrItem {
	item := &models.OkrItem{
		CycleID:      r.CycleID.Uint64(),
		OwnerID:      r.OwnerID.Uint64(),
		ItemType:     r.ItemType,
		Title:        r.Title,
		Description:  r.Description,
		TargetValue:  r.TargetValue,
		CurrentValue: r.CurrentValue,
		Weight:       r.Weight,
		StatusCode:   r.StatusCode,
		Metadata:     r.Metadata,
	}
	if id := r.ParentID.Uint64(); id > 0 {
		item.ParentID = &id
	}
	if id := r.ApproverID.Uint64(); id > 0 {
		item.ApproverID = &id
	}
	return item
}

// ItemStatusRequest is the body of update item status
type ItemStatusRequest struct {
	StatusCode string `json:"statusCode" validate:"required"`
}

// MembersRequest is the body of replace members
type MembersRequest struct {
	MemberIDs types.IDList `json:"memberIds" swaggertype:"array,integer"`
}

// ApprovalRequest is the body of an approval decision
type ApprovalRequest struct {
	ApproverID types.FlexID `json:"approverId" validate:"required"`
	Decision   string       `json:"decision" validate:"required,oneof=APPROVED REJECTED"`
	Comment    string       `json:"comment"`
}

// EvaluationRequest is the body of an evaluation
type EvaluationRequest struct {
	EvaluatorID types.FlexID `json:"evaluatorId" validate:"required"`
	Score       *float64     `json:"score" validate:"required,gte=0"`
	Comment     string       `json:"comment"`
}

// ---- cycles ----

// CreateCycle handles POST /api/okr/cycles
// @Summary Create an OKR cycle
// @Tags OKR
// @Accept json
// @Produce json
// @Param cycle body CycleRequest true "Cycle"
// @Success 201 {object} models.OkrCycle
// @Failure 400 {object} utils.ErrorResponseStruct
// @Router /okr/cycles [post]
func (h *OkrHandler) CreateCycle(c *fiber.Ctx) error {
	var req CycleRequest
	if err := bindJSON(c, &req); err != nil {
		return writeError(c, h.Log, err, "createCycle")
	}
	cycle, err := req.model()
	if err != nil {
		return writeError(c, h.Log, err, "createCycle")
	}
	created, err := h.Service.CreateCycle(c.UserContext(), cycle)
	if err != nil {
		return writeError(c, h.Log, err, "createCycle")
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// UpdateCycle handles PUT /api/okr/cycles/:id
// @Summary Update an OKR cycle
// @Tags OKR
// @Accept json
// @Produce json
// @Param id path int true "Cycle ID"
// @Param cycle body CycleRequest true "Cycle"
// @Success 200 {object} models.OkrCycle
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /okr/cycles/{id} [put]
func (h *OkrHandler) UpdateCycle(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, h.Log, err, "updateCycle")
	}
	var req CycleRequest
	if err := bindJSON(c, &req); err != nil {
		return writeError(c, h.Log, err, "updateCycle")
	}
	cycle, err := req.model()
	if err != nil {
		return writeError(c, h.Log, err, "updateCycle")
	}
	cycle.ID = id
	updated, err := h.Service.UpdateCycle(c.UserContext(), cycle)
	if err != nil {
		return writeError(c, h.Log, err, "updateCycle")
	}
	return c.JSON(updated)
}

// ListCycles handles GET /api/okr/cycles
// @Summary List OKR cycles
// @Tags OKR
// @Produce json
// @Param status query string false "Cycle status"
// @Param year query int false "Start year"
// @Param label query string false "Label contains"
// @Success 200 {array} models.OkrCycle
// @Router /okr/cycles [get]
func (h *OkrHandler) ListCycles(c *fiber.Ctx) error {
	f := repos.CycleFilter{Status: c.Query("status"), Label: c.Query("label")}
	if raw := c.Query("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil || year < 1 {
			return writeError(c, h.Log, types.Invalid("year must be a positive integer"), "listCycles")
		}
		f.Year = year
	}
	cycles, err := h.Service.ListCycles(c.UserContext(), f)
	if err != nil {
		return writeError(c, h.Log, err, "listCycles")
	}
	return c.JSON(cycles)
}

// GetCycle handles GET /api/okr/cycles/:id
// @Summary Get an OKR cycle
// @Tags OKR
// @Produce json
// @Param id path int true "Cycle ID"
// @Success 200 {object} models.OkrCycle
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /okr/cycles/{id} [get]
func (h *OkrHandler) GetCycle(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, h.Log, err, "getCycle")
	}
	cycle, err := h.Service.GetCycle(c.UserContext(), id)
	if err != nil {
		return writeError(c, h.Log, err, "getCycle")
	}
	return c.JSON(cycle)
}

// DeleteCycle handles DELETE /api/okr/cycles/:id
// @Summary Delete an empty OKR cycle
// @Tags OKR
// @Param id path int true "Cycle ID"
// @Success 204
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Router /okr/cycles/{id} [delete]
func (h *OkrHandler) DeleteCycle(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, h.Log, err, "deleteCycle")
	}
	if err := h.Service.DeleteCycle(c.UserContext(), id); err != nil {
		return writeError(c, h.Log, err, "deleteCycle")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListCycleItems handles GET /api/okr/cycles/:id/items
// @Summary List the items of a cycle
// @Tags OKR
// @Produce json
// @Param id path int true "Cycle ID"
// @Success 200 {array} models.OkrItem
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /okr/cycles/{id}/items [get]
func (h *OkrHandler) ListCycleItems(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, h.Log, err, "listCycleItems")
	}
	items, err := h.Service.ListItemsByCycle(c.UserContext(), id)
	if err != nil {
		return writeError(c, h.Log, err, "listCycleItems")
	}
	return c.JSON(items)
}

// ---- items ----

// CreateItem handles POST /api/okr/items
// @Summary Create an OKR item
// @Tags OKR
// @Accept json
// @Produce json
// @Param item body ItemRequest true "Item"
// @Success 201 {object} models.OkrItem
// @Failure 400 {object} utils.ErrorResponseStruct
// @Router /okr/items [post]
func (h *OkrHandler) CreateItem(c *fiber.Ctx) error {
	var req ItemRequest
	if err := bindJSON(c, &req); err != nil {
		return writeError(c, h.Log, err, "createItem")
	}
	created, err := h.Service.CreateItem(c.UserContext(), req.model(), req.MemberIDs.Slice())
	if err != nil {
		return writeError(c, h.Log, err, "createItem")
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// UpdateItem handles PUT /api/okr/items/:id
// @Summary Update an OKR item
// @Tags OKR
// @Accept json
// @Produce json
// @Param id path int true "Item ID"
// @Param item body ItemRequest true "Item"
// @Success 200 {object} models.OkrItem
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /okr/items/{id} [put]
func (h *OkrHandler) UpdateItem(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, h.Log, err, "updateItem")
	}
	var req ItemRequest
	if err := bindJSON(c, &req); err != nil {
		return writeError(c, h.Log, err, "updateItem")
	}
	item := req.model()
	item.ID = id
	updated, err := h.Service.UpdateItem(c.UserContext(), item, req.MemberIDs.Slice())
	if err != nil {
		return writeError(c, h.Log, err, "updateItem")
	}
	return c.JSON(updated)
}

// ListItems handles GET /api/okr/items
// @Summary List OKR items by owner or member
// @Tags OKR
// @Produce json
// @Param ownerId query int false "Owner ID"
// @Param memberId query int false "Member ID"
// @Success 200 {array} models.OkrItem
// @Failure 400 {object} utils.ErrorResponseStruct
// @Router /okr/items [get]
func (h *OkrHandler) ListItems(c *fiber.Ctx) error {
	ownerID, err := queryID(c, "ownerId")
	if err != nil {
		return writeError(c, h.Log, err, "listItems")
	}
	memberID, err := queryID(c, "memberId")
	if err != nil {
		return writeError(c, h.Log, err, "listItems")
	}

	var items []models.OkrItem
	switch {
	case ownerID > 0 && memberID > 0:
		err = types.Invalid("use either ownerId or memberId, not both")
	case ownerID > 0:
		items, err = h.Service.ListItemsByOwner(c.UserContext(), ownerID)
	case memberID > 0:
		items, err = h.Service.ListItemsByMember(c.UserContext(), memberID)
	default:
		err = types.Invalid("ownerId or memberId is required")
	}
	if err != nil {
		return writeError(c, h.Log, err, "listItems")
	}
	return c.JSON(items)
}

// GetItem handles GET /api/okr/items/:id
// @Summary Get an OKR item with its members
// @Tags OKR
// @Produce json
// @Param id path int true "Item ID"
// @Success 200 {object} models.OkrItem
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /okr/items/{id} [get]
func (h *OkrHandler) GetItem(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, h.Log, err, "getItem")
	}
	item, err := h.Service.GetItem(c.UserContext(), id)
	if err != nil {
		return writeError(c, h.Log, err, "getItem")
	}
	return c.JSON(item)
}

// DeleteItem handles DELETE /api/okr/items/:id
// @Summary Delete a leaf OKR item
// @Tags OKR
// @Param id path int true "Item ID"
// @Success 204
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Router /okr/items/{id} [delete]
func (h *OkrHandler) DeleteItem(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, h.Log, err, "deleteItem")
	}
	if err := h.Service.DeleteItem(c.UserContext(), id); err != nil {
		return writeError(c, h.Log, err, "deleteItem")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// UpdateItemStatus handles PATCH /api/okr/items/:id/status
// @Summary Move an item between DRAFT and PENDING_APPROVAL
// @Tags OKR
// @Accept json
// @Produce json
// @Param id path int true "Item ID"
// @Param status body ItemStatusRequest true "Status"
// @Success 200 {object} models.OkrItem
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Router /okr/items/{id}/status [patch]
func (h *OkrHandler) UpdateItemStatus(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, h.Log, err, "updateItemStatus")
	}
	var req ItemStatusRequest
	if err := bindJSON(c, &req); err != nil {
		return writeError(c, h.Log, err, "updateItemStatus")
	}
	item, err := h.Service.UpdateItemStatus(c.UserContext(), id, req.StatusCode)
	if err != nil {
		return writeError(c, h.Log, err, "updateItemStatus")
	}
	return c.JSON(item)
}

// ReplaceMembers handles PUT /api/okr/items/:id/members
// @Summary Replace the member set of an item
// @Tags OKR
// @Accept json
// @Produce json
// @Param id path int true "Item ID"
// @Param members body MembersRequest true "Members"
// @Success 200 {object} models.OkrItem
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /okr/items/{id}/members [put]
func (h *OkrHandler) ReplaceMembers(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, h.Log, err, "replaceMembers")
	}
	var req MembersRequest
	if err := bindJSON(c, &req); err != nil {
		return writeError(c, h.Log, err, "replaceMembers")
	}
	item, err := h.Service.ReplaceMembers(c.UserContext(), id, req.MemberIDs.Slice())
	if err != nil {
		return writeError(c, h.Log, err, "replaceMembers")
	}
	return c.JSON(item)
}

// ---- approvals ----

// PendingApprovals handles GET /api/okr/approvals/pending
// @Summary List items awaiting approval
// @Tags OKR
// @Produce json
// @Param approverId query int false "Approver ID"
// @Param cycleId query int false "Cycle ID"
// @Success 200 {array} models.OkrItem
// @Router /okr/approvals/pending [get]
func (h *OkrHandler) PendingApprovals(c *fiber.Ctx) error {
	approverID, err := queryID(c, "approverId")
	if err != nil {
		return writeError(c, h.Log, err, "pendingApprovals")
	}
	cycleID, err := queryID(c, "cycleId")
	if err != nil {
		return writeError(c, h.Log, err, "pendingApprovals")
	}
	items, err := h.Service.FindPendingApprovalItems(c.UserContext(), repos.PendingFilter{ApproverID: approverID, CycleID: cycleID})
	if err != nil {
		return writeError(c, h.Log, err, "pendingApprovals")
	}
	return c.JSON(items)
}

// Approve handles POST /api/okr/items/:id/approvals
// @Summary Decide on an item awaiting approval
// @Tags OKR
// @Accept json
// @Produce json
// @Param id path int true "Item ID"
// @Param decision body ApprovalRequest true "Decision"
// @Success 201 {object} models.OkrApproval
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /okr/items/{id}/approvals [post]
func (h *OkrHandler) Approve(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, h.Log, err, "approve")
	}
	var req ApprovalRequest
	if err := bindJSON(c, &req); err != nil {
		return writeError(c, h.Log, err, "approve")
	}
	approverID := req.ApproverID.Uint64()
	if user, ok := c.Locals("user").(*authorizer.User); ok && user != nil {
		sessionID, ok := services.SessionApproverID(user)
		if !ok || sessionID != approverID {
			return writeError(c, h.Log, &types.CustomError{
				Code:    fiber.StatusForbidden,
				Message: fmt.Sprintf("Session user may not decide as approver %d", approverID),
				Type:    "okr.authorization.approver",
			}, "approve")
		}
	}
	approval, err := h.Service.Approve(c.UserContext(), id, approverID, req.Decision, req.Comment)
	if err != nil {
		return writeError(c, h.Log, err, "approve")
	}
	return c.Status(fiber.StatusCreated).JSON(approval)
}

// ListApprovals handles GET /api/okr/items/:id/approvals
// @Summary List an item's approval history
// @Tags OKR
// @Produce json
// @Param id path int true "Item ID"
// @Success 200 {array} models.OkrApproval
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /okr/items/{id}/approvals [get]
func (h *OkrHandler) ListApprovals(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, h.Log, err, "listApprovals")
	}
	approvals, err := h.Service.ListApprovals(c.UserContext(), id)
	if err != nil {
		return writeError(c, h.Log, err, "listApprovals")
	}
	return c.JSON(approvals)
}

// ApprovalSummary handles GET /api/okr/items/:id/approvals/summary
// @Summary Aggregate approval state of an item
// @Tags OKR
// @Produce json
// @Param id path int true "Item ID"
// @Success 200 {object} services.ApprovalSummary
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /okr/items/{id}/approvals/summary [get]
func (h *OkrHandler) ApprovalSummary(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, h.Log, err, "approvalSummary")
	}
	summary, err := h.Service.ApprovalSummary(c.UserContext(), id)
	if err != nil {
		return writeError(c, h.Log, err, "approvalSummary")
	}
	return c.JSON(summary)
}

// ---- evaluations ----

// Evaluate handles POST /api/okr/items/:id/evaluations
// @Summary Score an item; a second score by the same evaluator replaces the first
// @Tags OKR
// @Accept json
// @Produce json
// @Param id path int true "Item ID"
// @Param evaluation body EvaluationRequest true "Evaluation"
// @Success 200 {object} models.OkrEvaluation
// @Success 201 {object} models.OkrEvaluation
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /okr/items/{id}/evaluations [post]
func (h *OkrHandler) Evaluate(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, h.Log, err, "evaluate")
	}
	var req EvaluationRequest
	if err := bindJSON(c, &req); err != nil {
		return writeError(c, h.Log, err, "evaluate")
	}
	eval, created, err := h.Service.Evaluate(c.UserContext(), id, req.EvaluatorID.Uint64(), *req.Score, req.Comment)
	if err != nil {
		return writeError(c, h.Log, err, "evaluate")
	}
	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(eval)
}

// ListEvaluations handles GET /api/okr/items/:id/evaluations
// @Summary List an item's evaluations
// @Tags OKR
// @Produce json
// @Param id path int true "Item ID"
// @Success 200 {array} models.OkrEvaluation
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /okr/items/{id}/evaluations [get]
func (h *OkrHandler) ListEvaluations(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, h.Log, err, "listEvaluations")
	}
	evals, err := h.Service.ListEvaluations(c.UserContext(), id)
	if err != nil {
		return writeError(c, h.Log, err, "listEvaluations")
	}
	return c.JSON(evals)
}
