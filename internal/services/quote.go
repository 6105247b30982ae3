// quote.go
//
// Sales operations data service
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of salesops.
// salesops is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// salesops is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with salesops.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package services

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/localnerve/salesops/internal/database"
	"github.com/localnerve/salesops/internal/dbctx"
	"github.com/localnerve/salesops/internal/logger"
	"github.com/localnerve/salesops/internal/models"
	"github.com/localnerve/salesops/internal/repos"
	"github.com/localnerve/salesops/internal/types"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// QuoteDateLayout is the compact date prefix of a quote number
const QuoteDateLayout = "20060102"

// quoteTransitions lists the legal status changes
var quoteTransitions = map[string][]string{
	models.QuoteStatusDraft:     {models.QuoteStatusSubmitted},
	models.QuoteStatusSubmitted: {models.QuoteStatusApproved, models.QuoteStatusRejected},
	models.QuoteStatusRejected:  {models.QuoteStatusDraft},
	models.QuoteStatusApproved:  {models.QuoteStatusSent},
	models.QuoteStatusSent:      {models.QuoteStatusWon, models.QuoteStatusLost},
}

var quoteStatuses = []string{
	models.QuoteStatusDraft, models.QuoteStatusSubmitted, models.QuoteStatusApproved, models.QuoteStatusRejected,
	models.QuoteStatusSent, models.QuoteStatusWon, models.QuoteStatusLost,
}

var editableQuoteStatuses = []string{models.QuoteStatusDraft, models.QuoteStatusRejected}

// QuoteSearch is the caller-facing filter; dates are ISO YYYY-MM-DD, inclusive
type QuoteSearch struct {
	StartDate string
	EndDate   string
	Status    string
	Keyword   string
	Customer  string
}

// QuoteNumber is a formatted quote number and its parts
type QuoteNumber struct {
	QuoteNo   string `json:"quoteNo"`
	QuoteDate string `json:"quoteDate"`
	QuoteSeq  int    `json:"quoteSeq"`
}

type QuoteService struct {
	db       *gorm.DB
	repo     repos.QuoteRepo
	seqWidth int
	now      func() time.Time
	log      *logger.Logger
}

func NewQuoteService(db *gorm.DB, repo repos.QuoteRepo, seqWidth int, baseLog *logger.Logger) *QuoteService {
	if seqWidth < 1 {
		seqWidth = 3
	}
	return &QuoteService{
		db:       db,
		repo:     repo,
		seqWidth: seqWidth,
		now:      time.Now,
		log:      baseLog.With("service", "QuoteService"),
	}
}

// FormatQuoteNo renders YYYYMMDD-NNN, zero padded to width and widening past it
func FormatQuoteNo(quoteDate string, seq, width int) string {
	return fmt.Sprintf("%s-%0*d", quoteDate, width, seq)
}

// NextQuoteNumber allocates the next number for day. It must run inside the
// caller's transaction: the day's sequence row stays locked until commit.
// The row is created before it is locked; a locking read on a missing row
// takes a gap lock that lets two first-of-day inserts deadlock on MySQL.
func (s *QuoteService) NextQuoteNumber(dbc dbctx.Context, day time.Time) (QuoteNumber, error) {
	quoteDate := day.Format(QuoteDateLayout)

	if err := s.repo.InsertQuoteSequence(dbc, &models.QuoteSequence{SeqDate: quoteDate}); err != nil {
		return QuoteNumber{}, err
	}
	seq, err := s.repo.LockQuoteSequence(dbc, quoteDate)
	if err != nil {
		return QuoteNumber{}, err
	}
	if seq == nil {
		return QuoteNumber{}, fmt.Errorf("quote sequence %s missing after insert", quoteDate)
	}

	// Quotes written outside the sequence table (imports, older data) still count
	maxSeq, err := s.repo.SelectMaxQuoteSeq(dbc, quoteDate)
	if err != nil {
		return QuoteNumber{}, err
	}
	seq.LastSeq = max(seq.LastSeq, maxSeq) + 1
	if err := s.repo.UpdateQuoteSequence(dbc, seq); err != nil {
		return QuoteNumber{}, err
	}

	return QuoteNumber{
		QuoteNo:   FormatQuoteNo(quoteDate, seq.LastSeq, s.seqWidth),
		QuoteDate: quoteDate,
		QuoteSeq:  seq.LastSeq,
	}, nil
}

// PreviewQuoteNumber reports the number the next quote created today would get, without allocating it
func (s *QuoteService) PreviewQuoteNumber(ctx context.Context) (QuoteNumber, error) {
	dbc := dbctx.New(ctx)
	quoteDate := s.now().Format(QuoteDateLayout)

	last := 0
	seq, err := s.repo.FindQuoteSequence(dbc, quoteDate)
	if err != nil {
		return QuoteNumber{}, err
	}
	if seq != nil {
		last = seq.LastSeq
	}
	maxSeq, err := s.repo.SelectMaxQuoteSeq(dbc, quoteDate)
	if err != nil {
		return QuoteNumber{}, err
	}
	next := max(last, maxSeq) + 1

	return QuoteNumber{
		QuoteNo:   FormatQuoteNo(quoteDate, next, s.seqWidth),
		QuoteDate: quoteDate,
		QuoteSeq:  next,
	}, nil
}

// SearchQuotes lists quote headers newest first
func (s *QuoteService) SearchQuotes(ctx context.Context, q QuoteSearch) ([]models.Quote, error) {
	f := repos.QuoteFilter{
		Status:   strings.ToUpper(normalizeText(q.Status)),
		Keyword:  normalizeText(q.Keyword),
		Customer: normalizeText(q.Customer),
	}
	var err error
	if f.StartDate, err = compactDate("startDate", q.StartDate); err != nil {
		return nil, err
	}
	if f.EndDate, err = compactDate("endDate", q.EndDate); err != nil {
		return nil, err
	}
	if f.StartDate != "" && f.EndDate != "" && f.StartDate > f.EndDate {
		return nil, types.Invalid("startDate %s is after endDate %s", q.StartDate, q.EndDate)
	}
	return s.repo.SelectQuotes(dbctx.New(ctx), f)
}

func compactDate(name, iso string) (string, error) {
	if iso == "" {
		return "", nil
	}
	t, err := time.Parse(models.DateLayout, iso)
	if err != nil {
		return "", types.Invalid("%s must be YYYY-MM-DD: %q", name, iso)
	}
	return t.Format(QuoteDateLayout), nil
}

// GetQuote assembles the header, its customers and their items. The three
// reads run concurrently.
func (s *QuoteService) GetQuote(ctx context.Context, id uint64) (*models.Quote, error) {
	var (
		header    *models.Quote
		customers []models.QuoteCustomer
		items     []models.QuoteItem
	)

	g, gctx := errgroup.WithContext(ctx)
	dbc := dbctx.New(gctx)
	g.Go(func() (err error) {
		header, err = s.repo.SelectQuoteByID(dbc, id)
		return err
	})
	g.Go(func() (err error) {
		customers, err = s.repo.SelectQuoteCustomers(dbc, id)
		return err
	})
	g.Go(func() (err error) {
		items, err = s.repo.SelectQuoteItems(dbc, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if header == nil {
		return nil, types.NotFound("quote", id)
	}

	header.Customers = assembleCustomers(customers, items)
	return header, nil
}

func assembleCustomers(customers []models.QuoteCustomer, items []models.QuoteItem) []models.QuoteCustomer {
	byID := make(map[uint64]int, len(customers))
	for i := range customers {
		customers[i].Items = []models.QuoteItem{}
		byID[customers[i].ID] = i
	}
	for _, it := range items {
		if i, ok := byID[it.CustomerID]; ok {
			customers[i].Items = append(customers[i].Items, it)
		}
	}
	return customers
}

// CreateQuote numbers and stores a quote with its customers and items in one transaction
func (s *QuoteService) CreateQuote(ctx context.Context, q *models.Quote) (*models.Quote, error) {
	if err := prepareQuote(q); err != nil {
		return nil, err
	}
	q.ID = 0
	q.Status = models.QuoteStatusDraft
	q.ApprovalRule = ""

	err := inTx(ctx, s.db, func(dbc dbctx.Context) error {
		num, err := s.NextQuoteNumber(dbc, s.now())
		if err != nil {
			return err
		}
		q.QuoteNo, q.QuoteDate, q.QuoteSeq = num.QuoteNo, num.QuoteDate, num.QuoteSeq

		if err := s.repo.InsertQuote(dbc, q); err != nil {
			return database.Translate(err, "quote number "+q.QuoteNo)
		}
		return s.insertLines(dbc, q)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("quote created", "id", q.ID, "quoteNo", q.QuoteNo)
	return s.GetQuote(ctx, q.ID)
}

// UpdateQuote replaces the header fields and all lines of an editable quote
func (s *QuoteService) UpdateQuote(ctx context.Context, q *models.Quote) (*models.Quote, error) {
	if err := prepareQuote(q); err != nil {
		return nil, err
	}

	err := inTx(ctx, s.db, func(dbc dbctx.Context) error {
		existing, err := s.repo.SelectQuoteByIDForUpdate(dbc, q.ID)
		if err != nil {
			return err
		}
		if existing == nil {
			return types.NotFound("quote", q.ID)
		}
		if !slices.Contains(editableQuoteStatuses, existing.Status) {
			return types.Conflict("quote %s is %s and cannot be edited", existing.QuoteNo, existing.Status)
		}

		if err := s.repo.UpdateQuote(dbc, q); err != nil {
			return err
		}
		if err := s.repo.DeleteQuoteItems(dbc, q.ID); err != nil {
			return err
		}
		if err := s.repo.DeleteQuoteCustomers(dbc, q.ID); err != nil {
			return err
		}
		return s.insertLines(dbc, q)
	})
	if err != nil {
		return nil, err
	}
	return s.GetQuote(ctx, q.ID)
}

// insertLines writes customers then their items, numbering lines from 1
func (s *QuoteService) insertLines(dbc dbctx.Context, q *models.Quote) error {
	for ci := range q.Customers {
		cust := &q.Customers[ci]
		cust.ID = 0
		cust.QuoteID = q.ID
		cust.LineNo = ci + 1
		if err := s.repo.InsertQuoteCustomer(dbc, cust); err != nil {
			return err
		}
		for ii := range cust.Items {
			it := &cust.Items[ii]
			it.ID = 0
			it.QuoteID = q.ID
			it.CustomerID = cust.ID
			it.LineNo = ii + 1
			if err := s.repo.InsertQuoteItem(dbc, it); err != nil {
				return err
			}
		}
	}
	return nil
}

// prepareQuote validates the input tree and recomputes line amounts and the total
func prepareQuote(q *models.Quote) error {
	q.Title = normalizeText(q.Title)
	if q.Title == "" {
		return types.Invalid("quote title is required")
	}
	q.Currency = strings.ToUpper(strings.TrimSpace(q.Currency))
	if len(q.Currency) != 3 {
		return types.Invalid("currency must be a 3-letter code")
	}

	total := decimal.Zero
	for ci := range q.Customers {
		cust := &q.Customers[ci]
		cust.CustomerName = normalizeText(cust.CustomerName)
		if cust.CustomerName == "" {
			return types.Invalid("customers[%d].customerName is required", ci)
		}
		for ii := range cust.Items {
			it := &cust.Items[ii]
			it.ProductCode = strings.TrimSpace(it.ProductCode)
			if it.ProductCode == "" {
				return types.Invalid("customers[%d].items[%d].productCode is required", ci, ii)
			}
			if it.Quantity.IsNegative() || it.UnitPrice.IsNegative() {
				return types.Invalid("customers[%d].items[%d] quantity and unitPrice must not be negative", ci, ii)
			}
			it.Amount = it.Quantity.Mul(it.UnitPrice).Round(4)
			total = total.Add(it.Amount)
		}
	}
	q.TotalAmount = total

	q.CustomerName = normalizeText(q.CustomerName)
	if q.CustomerName == "" && len(q.Customers) > 0 {
		q.CustomerName = q.Customers[0].CustomerName
	}
	return nil
}

// UpdateQuoteStatus applies a legal status transition. Decisions on a submitted
// quote need the approval rule that governed them, which is stored on the header.
func (s *QuoteService) UpdateQuoteStatus(ctx context.Context, id uint64, status, approvalRule string) (*models.Quote, error) {
	status = strings.ToUpper(strings.TrimSpace(status))
	approvalRule = strings.TrimSpace(approvalRule)
	if !slices.Contains(quoteStatuses, status) {
		return nil, types.Invalid("unknown quote status %q", status)
	}

	err := inTx(ctx, s.db, func(dbc dbctx.Context) error {
		q, err := s.repo.SelectQuoteByIDForUpdate(dbc, id)
		if err != nil {
			return err
		}
		if q == nil {
			return types.NotFound("quote", id)
		}
		if !slices.Contains(quoteTransitions[q.Status], status) {
			return types.Conflict("quote %s cannot move from %s to %s", q.QuoteNo, q.Status, status)
		}

		var rule *string
		switch {
		case q.Status == models.QuoteStatusSubmitted:
			if approvalRule == "" {
				return types.Invalid("approvalRule is required to %s a submitted quote", strings.ToLower(status))
			}
			rule = &approvalRule
		case status == models.QuoteStatusDraft:
			// a reopened quote goes through approval again
			cleared := ""
			rule = &cleared
		}
		return s.repo.UpdateQuoteStatus(dbc, id, status, rule)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("quote status changed", "id", id, "status", status)
	return s.GetQuote(ctx, id)
}

// DeleteQuote removes a DRAFT quote with all of its lines
func (s *QuoteService) DeleteQuote(ctx context.Context, id uint64) error {
	return inTx(ctx, s.db, func(dbc dbctx.Context) error {
		q, err := s.repo.SelectQuoteByIDForUpdate(dbc, id)
		if err != nil {
			return err
		}
		if q == nil {
			return types.NotFound("quote", id)
		}
		if q.Status != models.QuoteStatusDraft {
			return types.Conflict("quote %s is %s; only drafts can be deleted", q.QuoteNo, q.Status)
		}
		if err := s.repo.DeleteQuoteItems(dbc, id); err != nil {
			return err
		}
		if err := s.repo.DeleteQuoteCustomers(dbc, id); err != nil {
			return err
		}
		return s.repo.DeleteQuote(dbc, id)
	})
}
