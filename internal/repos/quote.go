package repos

import (
	"database/sql"
	"errors"

	"github.com/localnerve/salesops/internal/dbctx"
	"github.com/localnerve/salesops/internal/logger"
	"github.com/localnerve/salesops/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/hints"
)

// QuoteFilter narrows SelectQuotes. Dates are compact YYYYMMDD, inclusive.
type QuoteFilter struct {
	StartDate string
	EndDate   string
	Status    string
	Keyword   string
	Customer  string
}

type QuoteRepo interface {
	SelectQuotes(dbc dbctx.Context, f QuoteFilter) ([]models.Quote, error)
	SelectQuoteByID(dbc dbctx.Context, id uint64) (*models.Quote, error)
	SelectQuoteByIDForUpdate(dbc dbctx.Context, id uint64) (*models.Quote, error)
	SelectQuoteCustomers(dbc dbctx.Context, quoteID uint64) ([]models.QuoteCustomer, error)
	SelectQuoteItems(dbc dbctx.Context, quoteID uint64) ([]models.QuoteItem, error)

	InsertQuote(dbc dbctx.Context, q *models.Quote) error
	UpdateQuote(dbc dbctx.Context, q *models.Quote) error
	UpdateQuoteStatus(dbc dbctx.Context, id uint64, status string, approvalRule *string) error
	InsertQuoteCustomer(dbc dbctx.Context, c *models.QuoteCustomer) error
	InsertQuoteItem(dbc dbctx.Context, it *models.QuoteItem) error
	DeleteQuoteCustomers(dbc dbctx.Context, quoteID uint64) error
	DeleteQuoteItems(dbc dbctx.Context, quoteID uint64) error
	DeleteQuote(dbc dbctx.Context, id uint64) error

	SelectMaxQuoteSeq(dbc dbctx.Context, quoteDate string) (int, error)
	FindQuoteSequence(dbc dbctx.Context, quoteDate string) (*models.QuoteSequence, error)
	LockQuoteSequence(dbc dbctx.Context, quoteDate string) (*models.QuoteSequence, error)
	InsertQuoteSequence(dbc dbctx.Context, seq *models.QuoteSequence) error
	UpdateQuoteSequence(dbc dbctx.Context, seq *models.QuoteSequence) error
}

type quoteRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuoteRepo(db *gorm.DB, baseLog *logger.Logger) QuoteRepo {
	return &quoteRepo{db: db, log: baseLog.With("repo", "QuoteRepo")}
}

func (r *quoteRepo) SelectQuotes(dbc dbctx.Context, f QuoteFilter) ([]models.Quote, error) {
	query := dbc.DB(r.db).
		Clauses(hints.Comment("select", "quote_search")).
		Model(&models.Quote{})

	if f.StartDate != "" {
		query = query.Where("quote_date >= ?", f.StartDate)
	}
	if f.EndDate != "" {
		query = query.Where("quote_date <= ?", f.EndDate)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.Keyword != "" {
		kw := likeLower(f.Keyword)
		query = query.Where("(LOWER(quote_no) LIKE ?"+likeEscape+" OR LOWER(title) LIKE ?"+likeEscape+" OR LOWER(note) LIKE ?"+likeEscape+")", kw, kw, kw)
	}
	if f.Customer != "" {
		cust := likeLower(f.Customer)
		sub := dbc.DB(r.db).Model(&models.QuoteCustomer{}).
			Select("quote_id").
			Where("LOWER(customer_name) LIKE ?"+likeEscape, cust)
		query = query.Where("(LOWER(customer_name) LIKE ?"+likeEscape+" OR id IN (?))", cust, sub)
	}

	results := []models.Quote{}
	if err := query.Order("quote_date DESC, quote_seq DESC").Find(&results).Error; err != nil {
		r.log.Error("quote search failed", "error", err)
		return nil, err
	}
	return results, nil
}

func (r *quoteRepo) SelectQuoteByID(dbc dbctx.Context, id uint64) (*models.Quote, error) {
	return r.selectQuote(dbc.DB(r.db), id)
}

// SelectQuoteByIDForUpdate row-locks the header for the rest of the transaction
func (r *quoteRepo) SelectQuoteByIDForUpdate(dbc dbctx.Context, id uint64) (*models.Quote, error) {
	return r.selectQuote(dbc.DB(r.db).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *quoteRepo) selectQuote(db *gorm.DB, id uint64) (*models.Quote, error) {
	var q models.Quote
	err := db.Where("id = ?", id).First(&q).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *quoteRepo) SelectQuoteCustomers(dbc dbctx.Context, quoteID uint64) ([]models.QuoteCustomer, error) {
	results := []models.QuoteCustomer{}
	if err := dbc.DB(r.db).
		Where("quote_id = ?", quoteID).
		Order("line_no, id").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *quoteRepo) SelectQuoteItems(dbc dbctx.Context, quoteID uint64) ([]models.QuoteItem, error) {
	results := []models.QuoteItem{}
	if err := dbc.DB(r.db).
		Where("quote_id = ?", quoteID).
		Order("customer_id, line_no, id").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *quoteRepo) InsertQuote(dbc dbctx.Context, q *models.Quote) error {
	return dbc.DB(r.db).Create(q).Error
}

// UpdateQuote rewrites the editable header fields; number, status and creator are immutable here
func (r *quoteRepo) UpdateQuote(dbc dbctx.Context, q *models.Quote) error {
	return dbc.DB(r.db).
		Model(&models.Quote{ID: q.ID}).
		Select("Title", "CustomerName", "Currency", "ValidUntil", "TotalAmount", "Note").
		Updates(q).Error
}

// UpdateQuoteStatus sets the status; a nil approvalRule leaves the stored rule alone
func (r *quoteRepo) UpdateQuoteStatus(dbc dbctx.Context, id uint64, status string, approvalRule *string) error {
	updates := map[string]interface{}{"status": status}
	if approvalRule != nil {
		updates["approval_rule"] = *approvalRule
	}
	return dbc.DB(r.db).Model(&models.Quote{ID: id}).Updates(updates).Error
}

func (r *quoteRepo) InsertQuoteCustomer(dbc dbctx.Context, c *models.QuoteCustomer) error {
	return dbc.DB(r.db).Create(c).Error
}

func (r *quoteRepo) InsertQuoteItem(dbc dbctx.Context, it *models.QuoteItem) error {
	return dbc.DB(r.db).Create(it).Error
}

func (r *quoteRepo) DeleteQuoteCustomers(dbc dbctx.Context, quoteID uint64) error {
	return dbc.DB(r.db).Where("quote_id = ?", quoteID).Delete(&models.QuoteCustomer{}).Error
}

func (r *quoteRepo) DeleteQuoteItems(dbc dbctx.Context, quoteID uint64) error {
	return dbc.DB(r.db).Where("quote_id = ?", quoteID).Delete(&models.QuoteItem{}).Error
}

func (r *quoteRepo) DeleteQuote(dbc dbctx.Context, id uint64) error {
	return dbc.DB(r.db).Where("id = ?", id).Delete(&models.Quote{}).Error
}

// SelectMaxQuoteSeq returns the highest sequence already issued for quoteDate, 0 when none
func (r *quoteRepo) SelectMaxQuoteSeq(dbc dbctx.Context, quoteDate string) (int, error) {
	var max sql.NullInt64
	row := dbc.DB(r.db).
		Model(&models.Quote{}).
		Select("MAX(quote_seq)").
		Where("quote_date = ?", quoteDate).
		Row()
	if err := row.Scan(&max); err != nil {
		return 0, err
	}
	return int(max.Int64), nil
}

// FindQuoteSequence reads the day's sequence without locking; nil when the day has no row yet
func (r *quoteRepo) FindQuoteSequence(dbc dbctx.Context, quoteDate string) (*models.QuoteSequence, error) {
	return r.findSequence(dbc.DB(r.db), quoteDate)
}

// LockQuoteSequence row-locks the day's sequence; nil when the day has no row yet
func (r *quoteRepo) LockQuoteSequence(dbc dbctx.Context, quoteDate string) (*models.QuoteSequence, error) {
	return r.findSequence(dbc.DB(r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}, hints.Comment("select", "quote_sequence")), quoteDate)
}

func (r *quoteRepo) findSequence(db *gorm.DB, quoteDate string) (*models.QuoteSequence, error) {
	var seq models.QuoteSequence
	err := db.Where("seq_date = ?", quoteDate).First(&seq).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &seq, nil
}

// InsertQuoteSequence creates the day's row unless a concurrent caller already did
func (r *quoteRepo) InsertQuoteSequence(dbc dbctx.Context, seq *models.QuoteSequence) error {
	return dbc.DB(r.db).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(seq).Error
}

func (r *quoteRepo) UpdateQuoteSequence(dbc dbctx.Context, seq *models.QuoteSequence) error {
	return dbc.DB(r.db).
		Model(&models.QuoteSequence{}).
		Where("seq_date = ?", seq.SeqDate).
		Update("last_seq", seq.LastSeq).Error
}
