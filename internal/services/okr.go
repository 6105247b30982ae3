package services

import (
	"context"
	"slices"
	"time"

	"github.com/localnerve/salesops/internal/database"
	"github.com/localnerve/salesops/internal/dbctx"
	"github.com/localnerve/salesops/internal/logger"
	"github.com/localnerve/salesops/internal/models"
	"github.com/localnerve/salesops/internal/repos"
	"github.com/localnerve/salesops/internal/types"
	"gorm.io/gorm"
)

// ApprovalPending is the summary state of an item awaiting (or never sent for) a decision
const ApprovalPending = "PENDING"

// itemTransitions lists the status changes UpdateItemStatus may make.
// APPROVED and REJECTED are set only by Approve.
var itemTransitions = map[string][]string{
	models.OkrStatusDraft:           {models.OkrStatusPendingApproval},
	models.OkrStatusPendingApproval: {models.OkrStatusDraft},
	models.OkrStatusRejected:        {models.OkrStatusDraft, models.OkrStatusPendingApproval},
}

var cycleStatuses = []string{models.CycleStatusPlanning, models.CycleStatusActive, models.CycleStatusClosed}

// ApprovalSummary is the aggregate approval state derived from an item's history
type ApprovalSummary struct {
	ItemID         uint64     `json:"itemId"`
	StatusCode     string     `json:"statusCode"`
	State          string     `json:"state"`
	ApprovedCount  int        `json:"approvedCount"`
	RejectedCount  int        `json:"rejectedCount"`
	LastApproverID *uint64    `json:"lastApproverId,omitempty"`
	LastDecidedAt  *time.Time `json:"lastDecidedAt,omitempty"`
}

type OkrService struct {
	db   *gorm.DB
	repo repos.OkrRepo
	log  *logger.Logger
}

func NewOkrService(db *gorm.DB, repo repos.OkrRepo, baseLog *logger.Logger) *OkrService {
	return &OkrService{db: db, repo: repo, log: baseLog.With("service", "OkrService")}
}

// ---- cycles ----

func validateCycle(c *models.OkrCycle) error {
	c.Label = normalizeText(c.Label)
	if c.Label == "" {
		return types.Invalid("cycle label is required")
	}
	if c.StartDate.IsZero() || c.EndDate.IsZero() {
		return types.Invalid("cycle startDate and endDate are required")
	}
	if c.StartDate.After(c.EndDate) {
		return types.Invalid("cycle startDate is after endDate")
	}
	if c.Status == "" {
		c.Status = models.CycleStatusPlanning
	}
	if !slices.Contains(cycleStatuses, c.Status) {
		return types.Invalid("unknown cycle status %q", c.Status)
	}
	return nil
}

func (s *OkrService) CreateCycle(ctx context.Context, c *models.OkrCycle) (*models.OkrCycle, error) {
	if err := validateCycle(c); err != nil {
		return nil, err
	}
	c.ID = 0
	if err := s.repo.InsertCycle(dbctx.New(ctx), c); err != nil {
		return nil, err
	}
	s.log.Info("okr cycle created", "id", c.ID, "label", c.Label)
	return c, nil
}

func (s *OkrService) UpdateCycle(ctx context.Context, c *models.OkrCycle) (*models.OkrCycle, error) {
	if err := validateCycle(c); err != nil {
		return nil, err
	}
	dbc := dbctx.New(ctx)
	if _, err := s.requireCycle(dbc, c.ID); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateCycle(dbc, c); err != nil {
		return nil, err
	}
	return s.repo.FindCycleByID(dbc, c.ID)
}

func (s *OkrService) ListCycles(ctx context.Context, f repos.CycleFilter) ([]models.OkrCycle, error) {
	f.Label = normalizeText(f.Label)
	return s.repo.FindCycles(dbctx.New(ctx), f)
}

func (s *OkrService) GetCycle(ctx context.Context, id uint64) (*models.OkrCycle, error) {
	return s.requireCycle(dbctx.New(ctx), id)
}

// DeleteCycle removes an empty cycle; a cycle that still holds items is a conflict
func (s *OkrService) DeleteCycle(ctx context.Context, id uint64) error {
	return inTx(ctx, s.db, func(dbc dbctx.Context) error {
		c, err := s.repo.FindCycleByIDForUpdate(dbc, id)
		if err != nil {
			return err
		}
		if c == nil {
			return types.NotFound("okr cycle", id)
		}
		n, err := s.repo.CountItemsByCycleID(dbc, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return types.Conflict("cycle %d still has %d items", id, n)
		}
		return s.repo.DeleteCycle(dbc, id)
	})
}

func (s *OkrService) requireCycle(dbc dbctx.Context, id uint64) (*models.OkrCycle, error) {
	c, err := s.repo.FindCycleByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, types.NotFound("okr cycle", id)
	}
	return c, nil
}

// ---- items ----

func validateItem(item *models.OkrItem) error {
	item.Title = normalizeText(item.Title)
	if item.Title == "" {
		return types.Invalid("item title is required")
	}
	if item.ItemType == "" {
		item.ItemType = models.OkrTypeObjective
	}
	if item.ItemType != models.OkrTypeObjective && item.ItemType != models.OkrTypeKeyResult {
		return types.Invalid("unknown item type %q", item.ItemType)
	}
	if item.OwnerID == 0 {
		return types.Invalid("item ownerId is required")
	}
	if item.Weight < 0 {
		return types.Invalid("item weight must not be negative")
	}
	return nil
}

// CreateItem inserts an item and its member set in one transaction.
// New items start as DRAFT unless submitted directly for approval.
func (s *OkrService) CreateItem(ctx context.Context, item *models.OkrItem, memberIDs []uint64) (*models.OkrItem, error) {
	if err := validateItem(item); err != nil {
		return nil, err
	}
	if item.StatusCode == "" {
		item.StatusCode = models.OkrStatusDraft
	}
	if item.StatusCode != models.OkrStatusDraft && item.StatusCode != models.OkrStatusPendingApproval {
		return nil, types.Invalid("new items must be %s or %s", models.OkrStatusDraft, models.OkrStatusPendingApproval)
	}

	item.ID = 0
	err := inTx(ctx, s.db, func(dbc dbctx.Context) error {
		cycle, err := s.repo.FindCycleByIDForUpdate(dbc, item.CycleID)
		if err != nil {
			return err
		}
		if cycle == nil {
			return types.Invalid("okr cycle %d does not exist", item.CycleID)
		}
		if item.ParentID != nil {
			if err := s.checkParent(dbc, item); err != nil {
				return err
			}
		}
		if err := s.repo.InsertItem(dbc, item); err != nil {
			return err
		}
		return s.replaceMembers(dbc, item.ID, memberIDs)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("okr item created", "id", item.ID, "cycleId", item.CycleID)
	return s.GetItem(ctx, item.ID)
}

// UpdateItem rewrites the content fields of an item. The cycle and status are not
// changed here. A nil memberIDs leaves the member set untouched.
func (s *OkrService) UpdateItem(ctx context.Context, item *models.OkrItem, memberIDs []uint64) (*models.OkrItem, error) {
	if err := validateItem(item); err != nil {
		return nil, err
	}

	err := inTx(ctx, s.db, func(dbc dbctx.Context) error {
		existing, err := s.repo.FindItemByIDForUpdate(dbc, item.ID)
		if err != nil {
			return err
		}
		if existing == nil {
			return types.NotFound("okr item", item.ID)
		}
		item.CycleID = existing.CycleID
		item.StatusCode = existing.StatusCode

		if item.ParentID != nil {
			if err := s.checkParent(dbc, item); err != nil {
				return err
			}
		}
		if err := s.repo.UpdateItem(dbc, item); err != nil {
			return err
		}
		if memberIDs != nil {
			return s.replaceMembers(dbc, item.ID, memberIDs)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetItem(ctx, item.ID)
}

// checkParent requires the parent to exist in the item's cycle and refuses a
// parent chain that leads back to the item. The parent row stays locked so a
// concurrent DeleteItem on it waits for this insert.
func (s *OkrService) checkParent(dbc dbctx.Context, item *models.OkrItem) error {
	parentID := *item.ParentID
	if parentID == item.ID {
		return types.Invalid("item cannot be its own parent")
	}

	parent, err := s.repo.FindItemByIDForUpdate(dbc, parentID)
	if err != nil {
		return err
	}
	if parent == nil || parent.CycleID != item.CycleID {
		return types.Invalid("parent item %d does not exist in cycle %d", parentID, item.CycleID)
	}
	if item.ID == 0 {
		return nil
	}

	items, err := s.repo.FindItemsByCycleID(dbc, item.CycleID)
	if err != nil {
		return err
	}
	arena := make(map[uint64]*models.OkrItem, len(items))
	for i := range items {
		arena[items[i].ID] = &items[i]
	}
	if hasAncestor(arena, parentID, item.ID) {
		return types.Invalid("parent item %d would create a cycle in the hierarchy", parentID)
	}
	return nil
}

// hasAncestor walks parent links from start and reports whether target is reached.
// Existing loops in stored data end the walk rather than spin.
func hasAncestor(arena map[uint64]*models.OkrItem, start, target uint64) bool {
	seen := make(map[uint64]bool, len(arena))
	for id := start; ; {
		if id == target {
			return true
		}
		if seen[id] {
			return false
		}
		seen[id] = true
		node, ok := arena[id]
		if !ok || node.ParentID == nil {
			return false
		}
		id = *node.ParentID
	}
}

func (s *OkrService) GetItem(ctx context.Context, id uint64) (*models.OkrItem, error) {
	dbc := dbctx.New(ctx)
	item, err := s.requireItem(dbc, id)
	if err != nil {
		return nil, err
	}
	items := []models.OkrItem{*item}
	if err := s.attachMembers(dbc, items); err != nil {
		return nil, err
	}
	return &items[0], nil
}

func (s *OkrService) ListItemsByCycle(ctx context.Context, cycleID uint64) ([]models.OkrItem, error) {
	dbc := dbctx.New(ctx)
	if _, err := s.requireCycle(dbc, cycleID); err != nil {
		return nil, err
	}
	return s.withMembers(dbc)(s.repo.FindItemsByCycleID(dbc, cycleID))
}

func (s *OkrService) ListItemsByOwner(ctx context.Context, ownerID uint64) ([]models.OkrItem, error) {
	dbc := dbctx.New(ctx)
	return s.withMembers(dbc)(s.repo.FindItemsByOwnerID(dbc, ownerID))
}

func (s *OkrService) ListItemsByMember(ctx context.Context, memberID uint64) ([]models.OkrItem, error) {
	dbc := dbctx.New(ctx)
	return s.withMembers(dbc)(s.repo.FindItemsByMemberID(dbc, memberID))
}

// FindPendingApprovalItems lists PENDING_APPROVAL items, optionally for one approver or cycle
func (s *OkrService) FindPendingApprovalItems(ctx context.Context, f repos.PendingFilter) ([]models.OkrItem, error) {
	dbc := dbctx.New(ctx)
	return s.withMembers(dbc)(s.repo.FindPendingApprovalItems(dbc, f))
}

func (s *OkrService) withMembers(dbc dbctx.Context) func([]models.OkrItem, error) ([]models.OkrItem, error) {
	return func(items []models.OkrItem, err error) ([]models.OkrItem, error) {
		if err != nil {
			return nil, err
		}
		if err := s.attachMembers(dbc, items); err != nil {
			return nil, err
		}
		return items, nil
	}
}

func (s *OkrService) attachMembers(dbc dbctx.Context, items []models.OkrItem) error {
	ids := make([]uint64, len(items))
	for i := range items {
		ids[i] = items[i].ID
	}
	members, err := s.repo.FindMemberIDsByItemIDs(dbc, ids)
	if err != nil {
		return err
	}
	for i := range items {
		items[i].MemberIDs = members[items[i].ID]
		if items[i].MemberIDs == nil {
			items[i].MemberIDs = []uint64{}
		}
	}
	return nil
}

// DeleteItem removes a leaf item with its members, approvals and evaluations
func (s *OkrService) DeleteItem(ctx context.Context, id uint64) error {
	return inTx(ctx, s.db, func(dbc dbctx.Context) error {
		item, err := s.repo.FindItemByIDForUpdate(dbc, id)
		if err != nil {
			return err
		}
		if item == nil {
			return types.NotFound("okr item", id)
		}
		n, err := s.repo.CountChildItems(dbc, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return types.Conflict("okr item %d still has %d child items", id, n)
		}
		if err := s.repo.DeleteMembersByItemID(dbc, id); err != nil {
			return err
		}
		if err := s.repo.DeleteApprovalsByItemID(dbc, id); err != nil {
			return err
		}
		if err := s.repo.DeleteEvaluationsByItemID(dbc, id); err != nil {
			return err
		}
		return s.repo.DeleteItem(dbc, id)
	})
}

// UpdateItemStatus moves an item between the author-controlled statuses
func (s *OkrService) UpdateItemStatus(ctx context.Context, id uint64, statusCode string) (*models.OkrItem, error) {
	if statusCode == models.OkrStatusApproved || statusCode == models.OkrStatusRejected {
		return nil, types.Invalid("status %s is set by an approval decision", statusCode)
	}
	if statusCode != models.OkrStatusDraft && statusCode != models.OkrStatusPendingApproval {
		return nil, types.Invalid("unknown item status %q", statusCode)
	}

	err := inTx(ctx, s.db, func(dbc dbctx.Context) error {
		item, err := s.repo.FindItemByIDForUpdate(dbc, id)
		if err != nil {
			return err
		}
		if item == nil {
			return types.NotFound("okr item", id)
		}
		if !slices.Contains(itemTransitions[item.StatusCode], statusCode) {
			return types.Conflict("okr item %d cannot move from %s to %s", id, item.StatusCode, statusCode)
		}
		return s.repo.UpdateItemStatus(dbc, id, statusCode)
	})
	if err != nil {
		return nil, err
	}
	return s.GetItem(ctx, id)
}

// ReplaceMembers swaps the whole member set of an item in one transaction
func (s *OkrService) ReplaceMembers(ctx context.Context, itemID uint64, memberIDs []uint64) (*models.OkrItem, error) {
	err := inTx(ctx, s.db, func(dbc dbctx.Context) error {
		if _, err := s.requireItem(dbc, itemID); err != nil {
			return err
		}
		return s.replaceMembers(dbc, itemID, memberIDs)
	})
	if err != nil {
		return nil, err
	}
	return s.GetItem(ctx, itemID)
}

func (s *OkrService) replaceMembers(dbc dbctx.Context, itemID uint64, memberIDs []uint64) error {
	if err := s.repo.DeleteMembersByItemID(dbc, itemID); err != nil {
		return err
	}
	for _, id := range uniqueIDs(memberIDs) {
		if err := s.repo.InsertMember(dbc, &models.OkrMember{ItemID: itemID, MemberID: id}); err != nil {
			return err
		}
	}
	return nil
}

func (s *OkrService) requireItem(dbc dbctx.Context, id uint64) (*models.OkrItem, error) {
	item, err := s.repo.FindItemByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, types.NotFound("okr item", id)
	}
	return item, nil
}

// ---- approvals ----

// Approve records a decision on a PENDING_APPROVAL item and sets its status to match.
// The item row stays locked from the status check until the status write.
func (s *OkrService) Approve(ctx context.Context, itemID, approverID uint64, decision, comment string) (*models.OkrApproval, error) {
	if decision != models.DecisionApproved && decision != models.DecisionRejected {
		return nil, types.Invalid("decision must be %s or %s", models.DecisionApproved, models.DecisionRejected)
	}
	if approverID == 0 {
		return nil, types.Invalid("approverId is required")
	}

	approval := &models.OkrApproval{
		ItemID:     itemID,
		ApproverID: approverID,
		Decision:   decision,
		Comment:    comment,
		DecidedAt:  time.Now().UTC(),
	}
	err := inTx(ctx, s.db, func(dbc dbctx.Context) error {
		item, err := s.repo.FindItemByIDForUpdate(dbc, itemID)
		if err != nil {
			return err
		}
		if item == nil {
			return types.NotFound("okr item", itemID)
		}
		if item.StatusCode != models.OkrStatusPendingApproval {
			return types.Conflict("okr item %d is %s, not awaiting approval", itemID, item.StatusCode)
		}
		if item.ApproverID != nil && *item.ApproverID != approverID {
			return types.Conflict("okr item %d is assigned to approver %d", itemID, *item.ApproverID)
		}
		if err := s.repo.InsertApproval(dbc, approval); err != nil {
			return err
		}
		return s.repo.UpdateItemStatus(dbc, itemID, decision)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("okr item decided", "itemId", itemID, "approverId", approverID, "decision", decision)
	return approval, nil
}

func (s *OkrService) ListApprovals(ctx context.Context, itemID uint64) ([]models.OkrApproval, error) {
	dbc := dbctx.New(ctx)
	if _, err := s.requireItem(dbc, itemID); err != nil {
		return nil, err
	}
	return s.repo.FindApprovalsByItemID(dbc, itemID)
}

// ApprovalSummary derives the aggregate approval state. The item status is
// authoritative; the history supplies counts and the latest decision.
func (s *OkrService) ApprovalSummary(ctx context.Context, itemID uint64) (*ApprovalSummary, error) {
	dbc := dbctx.New(ctx)
	item, err := s.requireItem(dbc, itemID)
	if err != nil {
		return nil, err
	}
	history, err := s.repo.FindApprovalsByItemID(dbc, itemID)
	if err != nil {
		return nil, err
	}
	return summarizeApprovals(item, history), nil
}

func summarizeApprovals(item *models.OkrItem, history []models.OkrApproval) *ApprovalSummary {
	sum := &ApprovalSummary{
		ItemID:     item.ID,
		StatusCode: item.StatusCode,
		State:      ApprovalPending,
	}
	switch item.StatusCode {
	case models.OkrStatusApproved, models.OkrStatusRejected:
		sum.State = item.StatusCode
	}
	for i := range history {
		switch history[i].Decision {
		case models.DecisionApproved:
			sum.ApprovedCount++
		case models.DecisionRejected:
			sum.RejectedCount++
		}
	}
	if n := len(history); n > 0 {
		last := history[n-1]
		sum.LastApproverID = &last.ApproverID
		sum.LastDecidedAt = &last.DecidedAt
	}
	return sum
}

// ---- evaluations ----

// Evaluate stores the evaluator's score for an item, replacing an earlier one.
// It reports whether a new row was created.
func (s *OkrService) Evaluate(ctx context.Context, itemID, evaluatorID uint64, score float64, comment string) (*models.OkrEvaluation, bool, error) {
	if evaluatorID == 0 {
		return nil, false, types.Invalid("evaluatorId is required")
	}
	if score < 0 {
		return nil, false, types.Invalid("score must not be negative")
	}

	eval := &models.OkrEvaluation{ItemID: itemID, EvaluatorID: evaluatorID, Score: score, Comment: comment}
	created := false
	err := inTx(ctx, s.db, func(dbc dbctx.Context) error {
		if _, err := s.requireItem(dbc, itemID); err != nil {
			return err
		}
		existing, err := s.repo.FindEvaluationByItemAndEvaluator(dbc, itemID, evaluatorID)
		if err != nil {
			return err
		}
		if existing != nil {
			return s.repo.UpdateEvaluation(dbc, eval)
		}

		// A concurrent insert for the same pair trips the unique index; fall back to update.
		const savepoint = "okr_evaluation_insert"
		if err := dbc.Tx.SavePoint(savepoint).Error; err != nil {
			return err
		}
		err = s.repo.InsertEvaluation(dbc, eval)
		if database.IsUniqueViolation(err) {
			if err := dbc.Tx.RollbackTo(savepoint).Error; err != nil {
				return err
			}
			s.log.Warn("evaluation insert lost a race, updating", "itemId", itemID, "evaluatorId", evaluatorID)
			return s.repo.UpdateEvaluation(dbc, eval)
		}
		if err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	stored, err := s.repo.FindEvaluationByItemAndEvaluator(dbctx.New(ctx), itemID, evaluatorID)
	if err != nil {
		return nil, false, err
	}
	return stored, created, nil
}

func (s *OkrService) ListEvaluations(ctx context.Context, itemID uint64) ([]models.OkrEvaluation, error) {
	dbc := dbctx.New(ctx)
	if _, err := s.requireItem(dbc, itemID); err != nil {
		return nil, err
	}
	return s.repo.FindEvaluationsByItemID(dbc, itemID)
}

// uniqueIDs drops zeros and duplicates and sorts ascending
func uniqueIDs(ids []uint64) []uint64 {
	seen := make(map[uint64]bool, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}
