package repos

import (
	"errors"
	"time"

	"github.com/localnerve/salesops/internal/dbctx"
	"github.com/localnerve/salesops/internal/logger"
	"github.com/localnerve/salesops/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CycleFilter narrows ListCycles. Year matches cycles starting in that calendar year.
type CycleFilter struct {
	Status string
	Year   int
	Label  string
}

// PendingFilter narrows FindPendingApprovalItems
type PendingFilter struct {
	ApproverID uint64
	CycleID    uint64
}

type OkrRepo interface {
	// cycles
	InsertCycle(dbc dbctx.Context, c *models.OkrCycle) error
	UpdateCycle(dbc dbctx.Context, c *models.OkrCycle) error
	FindCycleByID(dbc dbctx.Context, id uint64) (*models.OkrCycle, error)
	FindCycleByIDForUpdate(dbc dbctx.Context, id uint64) (*models.OkrCycle, error)
	FindCycles(dbc dbctx.Context, f CycleFilter) ([]models.OkrCycle, error)
	DeleteCycle(dbc dbctx.Context, id uint64) error
	CountItemsByCycleID(dbc dbctx.Context, cycleID uint64) (int64, error)

	// items
	InsertItem(dbc dbctx.Context, item *models.OkrItem) error
	UpdateItem(dbc dbctx.Context, item *models.OkrItem) error
	UpdateItemStatus(dbc dbctx.Context, id uint64, statusCode string) error
	FindItemByID(dbc dbctx.Context, id uint64) (*models.OkrItem, error)
	FindItemByIDForUpdate(dbc dbctx.Context, id uint64) (*models.OkrItem, error)
	FindItemsByCycleID(dbc dbctx.Context, cycleID uint64) ([]models.OkrItem, error)
	FindItemsByOwnerID(dbc dbctx.Context, ownerID uint64) ([]models.OkrItem, error)
	FindItemsByMemberID(dbc dbctx.Context, memberID uint64) ([]models.OkrItem, error)
	FindPendingApprovalItems(dbc dbctx.Context, f PendingFilter) ([]models.OkrItem, error)
	CountChildItems(dbc dbctx.Context, parentID uint64) (int64, error)
	DeleteItem(dbc dbctx.Context, id uint64) error

	// members
	InsertMember(dbc dbctx.Context, m *models.OkrMember) error
	DeleteMembersByItemID(dbc dbctx.Context, itemID uint64) error
	FindMemberIDsByItemIDs(dbc dbctx.Context, itemIDs []uint64) (map[uint64][]uint64, error)

	// approvals
	InsertApproval(dbc dbctx.Context, a *models.OkrApproval) error
	FindApprovalsByItemID(dbc dbctx.Context, itemID uint64) ([]models.OkrApproval, error)
	DeleteApprovalsByItemID(dbc dbctx.Context, itemID uint64) error

	// evaluations
	InsertEvaluation(dbc dbctx.Context, e *models.OkrEvaluation) error
	UpdateEvaluation(dbc dbctx.Context, e *models.OkrEvaluation) error
	FindEvaluationByItemAndEvaluator(dbc dbctx.Context, itemID, evaluatorID uint64) (*models.OkrEvaluation, error)
	FindEvaluationsByItemID(dbc dbctx.Context, itemID uint64) ([]models.OkrEvaluation, error)
	DeleteEvaluationsByItemID(dbc dbctx.Context, itemID uint64) error
}

type okrRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOkrRepo(db *gorm.DB, baseLog *logger.Logger) OkrRepo {
	return &okrRepo{db: db, log: baseLog.With("repo", "OkrRepo")}
}

// ---- cycles ----

func (r *okrRepo) InsertCycle(dbc dbctx.Context, c *models.OkrCycle) error {
	return dbc.DB(r.db).Create(c).Error
}

func (r *okrRepo) UpdateCycle(dbc dbctx.Context, c *models.OkrCycle) error {
	return dbc.DB(r.db).
		Model(&models.OkrCycle{ID: c.ID}).
		Select("Label", "StartDate", "EndDate", "Status", "Description").
		Updates(c).Error
}

func (r *okrRepo) FindCycleByID(dbc dbctx.Context, id uint64) (*models.OkrCycle, error) {
	return r.findCycle(dbc.DB(r.db), id)
}

// FindCycleByIDForUpdate row-locks the cycle so item inserts and the cycle delete serialize
func (r *okrRepo) FindCycleByIDForUpdate(dbc dbctx.Context, id uint64) (*models.OkrCycle, error) {
	return r.findCycle(dbc.DB(r.db).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *okrRepo) findCycle(db *gorm.DB, id uint64) (*models.OkrCycle, error) {
	var c models.OkrCycle
	err := db.Where("id = ?", id).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *okrRepo) FindCycles(dbc dbctx.Context, f CycleFilter) ([]models.OkrCycle, error) {
	query := dbc.DB(r.db).Model(&models.OkrCycle{})
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.Year > 0 {
		from := time.Date(f.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
		query = query.Where("start_date >= ? AND start_date < ?", from, from.AddDate(1, 0, 0))
	}
	if f.Label != "" {
		query = query.Where("LOWER(label) LIKE ?"+likeEscape, likeLower(f.Label))
	}

	results := []models.OkrCycle{}
	if err := query.Order("start_date DESC, id DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *okrRepo) DeleteCycle(dbc dbctx.Context, id uint64) error {
	return dbc.DB(r.db).Where("id = ?", id).Delete(&models.OkrCycle{}).Error
}

func (r *okrRepo) CountItemsByCycleID(dbc dbctx.Context, cycleID uint64) (int64, error) {
	var n int64
	err := dbc.DB(r.db).Model(&models.OkrItem{}).Where("cycle_id = ?", cycleID).Count(&n).Error
	return n, err
}

// ---- items ----

func (r *okrRepo) InsertItem(dbc dbctx.Context, item *models.OkrItem) error {
	return dbc.DB(r.db).Create(item).Error
}

func (r *okrRepo) UpdateItem(dbc dbctx.Context, item *models.OkrItem) error {
	return dbc.DB(r.db).
		Model(&models.OkrItem{ID: item.ID}).
		Select("ParentID", "OwnerID", "ApproverID", "ItemType", "Title", "Description",
			"TargetValue", "CurrentValue", "Weight", "Metadata").
		Updates(item).Error
}

func (r *okrRepo) UpdateItemStatus(dbc dbctx.Context, id uint64, statusCode string) error {
	return dbc.DB(r.db).
		Model(&models.OkrItem{ID: id}).
		Update("status_code", statusCode).Error
}

func (r *okrRepo) FindItemByID(dbc dbctx.Context, id uint64) (*models.OkrItem, error) {
	return r.findItem(dbc.DB(r.db), id)
}

// FindItemByIDForUpdate row-locks the item for the rest of the transaction
func (r *okrRepo) FindItemByIDForUpdate(dbc dbctx.Context, id uint64) (*models.OkrItem, error) {
	return r.findItem(dbc.DB(r.db).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *okrRepo) findItem(db *gorm.DB, id uint64) (*models.OkrItem, error) {
	var item models.OkrItem
	err := db.Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *okrRepo) FindItemsByCycleID(dbc dbctx.Context, cycleID uint64) ([]models.OkrItem, error) {
	return r.findItems(dbc.DB(r.db).Where("cycle_id = ?", cycleID))
}

func (r *okrRepo) FindItemsByOwnerID(dbc dbctx.Context, ownerID uint64) ([]models.OkrItem, error) {
	return r.findItems(dbc.DB(r.db).Where("owner_id = ?", ownerID))
}

func (r *okrRepo) FindItemsByMemberID(dbc dbctx.Context, memberID uint64) ([]models.OkrItem, error) {
	return r.findItems(dbc.DB(r.db).
		Where("id IN (?)", dbc.DB(r.db).Model(&models.OkrMember{}).
			Select("item_id").
			Where("member_id = ?", memberID)))
}

func (r *okrRepo) FindPendingApprovalItems(dbc dbctx.Context, f PendingFilter) ([]models.OkrItem, error) {
	query := dbc.DB(r.db).Where("status_code = ?", models.OkrStatusPendingApproval)
	if f.ApproverID > 0 {
		query = query.Where("approver_id = ?", f.ApproverID)
	}
	if f.CycleID > 0 {
		query = query.Where("cycle_id = ?", f.CycleID)
	}
	return r.findItems(query)
}

func (r *okrRepo) findItems(query *gorm.DB) ([]models.OkrItem, error) {
	results := []models.OkrItem{}
	if err := query.Order("id").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *okrRepo) CountChildItems(dbc dbctx.Context, parentID uint64) (int64, error) {
	var n int64
	err := dbc.DB(r.db).Model(&models.OkrItem{}).Where("parent_id = ?", parentID).Count(&n).Error
	return n, err
}

func (r *okrRepo) DeleteItem(dbc dbctx.Context, id uint64) error {
	return dbc.DB(r.db).Where("id = ?", id).Delete(&models.OkrItem{}).Error
}

// ---- members ----

func (r *okrRepo) InsertMember(dbc dbctx.Context, m *models.OkrMember) error {
	return dbc.DB(r.db).Create(m).Error
}

func (r *okrRepo) DeleteMembersByItemID(dbc dbctx.Context, itemID uint64) error {
	return dbc.DB(r.db).Where("item_id = ?", itemID).Delete(&models.OkrMember{}).Error
}

// FindMemberIDsByItemIDs returns member ids keyed by item id, each list ascending
func (r *okrRepo) FindMemberIDsByItemIDs(dbc dbctx.Context, itemIDs []uint64) (map[uint64][]uint64, error) {
	out := make(map[uint64][]uint64, len(itemIDs))
	if len(itemIDs) == 0 {
		return out, nil
	}
	var rows []models.OkrMember
	if err := dbc.DB(r.db).
		Where("item_id IN ?", itemIDs).
		Order("item_id, member_id").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, m := range rows {
		out[m.ItemID] = append(out[m.ItemID], m.MemberID)
	}
	return out, nil
}

// ---- approvals ----

func (r *okrRepo) InsertApproval(dbc dbctx.Context, a *models.OkrApproval) error {
	return dbc.DB(r.db).Create(a).Error
}

func (r *okrRepo) FindApprovalsByItemID(dbc dbctx.Context, itemID uint64) ([]models.OkrApproval, error) {
	results := []models.OkrApproval{}
	if err := dbc.DB(r.db).
		Where("item_id = ?", itemID).
		Order("decided_at, id").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *okrRepo) DeleteApprovalsByItemID(dbc dbctx.Context, itemID uint64) error {
	return dbc.DB(r.db).Where("item_id = ?", itemID).Delete(&models.OkrApproval{}).Error
}

// ---- evaluations ----

func (r *okrRepo) InsertEvaluation(dbc dbctx.Context, e *models.OkrEvaluation) error {
	return dbc.DB(r.db).Create(e).Error
}

func (r *okrRepo) UpdateEvaluation(dbc dbctx.Context, e *models.OkrEvaluation) error {
	return dbc.DB(r.db).
		Model(&models.OkrEvaluation{}).
		Where("item_id = ? AND evaluator_id = ?", e.ItemID, e.EvaluatorID).
		Updates(map[string]interface{}{
			"score":      e.Score,
			"comment":    e.Comment,
			"updated_at": time.Now(),
		}).Error
}

func (r *okrRepo) FindEvaluationByItemAndEvaluator(dbc dbctx.Context, itemID, evaluatorID uint64) (*models.OkrEvaluation, error) {
	var e models.OkrEvaluation
	err := dbc.DB(r.db).
		Where("item_id = ? AND evaluator_id = ?", itemID, evaluatorID).
		First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *okrRepo) FindEvaluationsByItemID(dbc dbctx.Context, itemID uint64) ([]models.OkrEvaluation, error) {
	results := []models.OkrEvaluation{}
	if err := dbc.DB(r.db).
		Where("item_id = ?", itemID).
		Order("evaluator_id").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *okrRepo) DeleteEvaluationsByItemID(dbc dbctx.Context, itemID uint64) error {
	return dbc.DB(r.db).Where("item_id = ?", itemID).Delete(&models.OkrEvaluation{}).Error
}
