package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/localnerve/salesops/internal/dbctx"
	"github.com/localnerve/salesops/internal/models"
	"github.com/localnerve/salesops/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quoteDay = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

func setupQuotes(t *testing.T) *QuoteService {
	t.Helper()
	svcs, _ := setupServices(t)
	svcs.Quote.now = func() time.Time { return quoteDay }
	return svcs.Quote
}

func sampleQuote() *models.Quote {
	return &models.Quote{
		Title:    "Spring bundle",
		Currency: "usd",
		Note:     "net 30",
		Customers: []models.QuoteCustomer{
			{
				CustomerName: "Acme",
				ContactName:  "Rae",
				Items: []models.QuoteItem{
					{ProductCode: "P1", ProductName: "Widget", Quantity: decimal.RequireFromString("2"), UnitPrice: decimal.RequireFromString("10.5")},
					{ProductCode: "P2", ProductName: "Gadget", Quantity: decimal.RequireFromString("1"), UnitPrice: decimal.RequireFromString("4")},
				},
			},
			{
				CustomerName: "Bravo",
				Items: []models.QuoteItem{
					{ProductCode: "P3", Quantity: decimal.RequireFromString("3"), UnitPrice: decimal.RequireFromString("1.25")},
				},
			},
		},
	}
}

func TestFormatQuoteNo(t *testing.T) {
	assert.Equal(t, "20240115-008", FormatQuoteNo("20240115", 8, 3))
	assert.Equal(t, "20240115-1234", FormatQuoteNo("20240115", 1234, 3))
	assert.Equal(t, "20240115-00042", FormatQuoteNo("20240115", 42, 5))
}

func TestQuoteNumberSequential(t *testing.T) {
	s := setupQuotes(t)
	ctx := context.Background()

	preview, err := s.PreviewQuoteNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, "20240115-001", preview.QuoteNo)

	again, err := s.PreviewQuoteNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, preview, again)

	for i := 1; i <= 5; i++ {
		q, err := s.CreateQuote(ctx, sampleQuote())
		require.NoError(t, err)
		assert.Equal(t, i, q.QuoteSeq)
		assert.Equal(t, FormatQuoteNo("20240115", i, 3), q.QuoteNo)
		assert.Equal(t, models.QuoteStatusDraft, q.Status)
	}

	preview, err = s.PreviewQuoteNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, "20240115-006", preview.QuoteNo)

	s.now = func() time.Time { return quoteDay.AddDate(0, 0, 1) }
	q, err := s.CreateQuote(ctx, sampleQuote())
	require.NoError(t, err)
	assert.Equal(t, "20240116-001", q.QuoteNo)
}

func TestQuoteNumberFollowsMaxSeq(t *testing.T) {
	s := setupQuotes(t)
	ctx := context.Background()

	// a quote numbered outside the sequence table
	imported := &models.Quote{
		QuoteNo: "20240115-007", QuoteDate: "20240115", QuoteSeq: 7,
		Title: "Imported", Status: models.QuoteStatusSent, Currency: "USD", TotalAmount: decimal.Zero,
	}
	require.NoError(t, s.repo.InsertQuote(dbctx.New(ctx), imported))

	q, err := s.CreateQuote(ctx, sampleQuote())
	require.NoError(t, err)
	assert.Equal(t, "20240115-008", q.QuoteNo)
	assert.Equal(t, 8, q.QuoteSeq)
}

func TestQuoteNumberConcurrent(t *testing.T) {
	s := setupQuotes(t)
	ctx := context.Background()

	const n = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		nums = make(map[string]bool, n)
		errs []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q, err := s.CreateQuote(ctx, sampleQuote())
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			nums[q.QuoteNo] = true
		}()
	}
	wg.Wait()

	require.Empty(t, errs)
	assert.Len(t, nums, n)
	for i := 1; i <= n; i++ {
		assert.True(t, nums[FormatQuoteNo("20240115", i, 3)], "missing sequence %d", i)
	}
}

func TestQuoteRoundTrip(t *testing.T) {
	s := setupQuotes(t)
	ctx := context.Background()

	created, err := s.CreateQuote(ctx, sampleQuote())
	require.NoError(t, err)

	got, err := s.GetQuote(ctx, created.ID)
	require.NoError(t, err)

	assert.Equal(t, "Spring bundle", got.Title)
	assert.Equal(t, "USD", got.Currency)
	assert.Equal(t, "Acme", got.CustomerName)
	assert.Equal(t, "net 30", got.Note)
	assert.True(t, decimal.RequireFromString("28.75").Equal(got.TotalAmount), got.TotalAmount.String())

	require.Len(t, got.Customers, 2)
	acme, bravo := got.Customers[0], got.Customers[1]
	assert.Equal(t, "Acme", acme.CustomerName)
	assert.Equal(t, "Rae", acme.ContactName)
	assert.Equal(t, 1, acme.LineNo)
	assert.Equal(t, "Bravo", bravo.CustomerName)
	assert.Equal(t, 2, bravo.LineNo)

	require.Len(t, acme.Items, 2)
	require.Len(t, bravo.Items, 1)
	assert.Equal(t, "P1", acme.Items[0].ProductCode)
	assert.Equal(t, "Widget", acme.Items[0].ProductName)
	assert.Equal(t, 1, acme.Items[0].LineNo)
	assert.True(t, decimal.RequireFromString("2").Equal(acme.Items[0].Quantity))
	assert.True(t, decimal.RequireFromString("10.5").Equal(acme.Items[0].UnitPrice))
	assert.True(t, decimal.RequireFromString("21").Equal(acme.Items[0].Amount))
	assert.Equal(t, "P2", acme.Items[1].ProductCode)
	assert.Equal(t, 2, acme.Items[1].LineNo)
	assert.Equal(t, "P3", bravo.Items[0].ProductCode)
	assert.True(t, decimal.RequireFromString("3.75").Equal(bravo.Items[0].Amount))
	assert.Equal(t, bravo.ID, bravo.Items[0].CustomerID)

	_, err = s.GetQuote(ctx, 999)
	assertKind(t, err, types.ErrNotFound)
}

func TestQuoteUpdateReplacesLines(t *testing.T) {
	s := setupQuotes(t)
	ctx := context.Background()

	created, err := s.CreateQuote(ctx, sampleQuote())
	require.NoError(t, err)

	edit := sampleQuote()
	edit.ID = created.ID
	edit.Title = "Spring bundle v2"
	edit.Customers = edit.Customers[1:]
	updated, err := s.UpdateQuote(ctx, edit)
	require.NoError(t, err)
	assert.Equal(t, "Spring bundle v2", updated.Title)
	assert.Equal(t, created.QuoteNo, updated.QuoteNo)
	require.Len(t, updated.Customers, 1)
	assert.Equal(t, "Bravo", updated.Customers[0].CustomerName)
	assert.True(t, decimal.RequireFromString("3.75").Equal(updated.TotalAmount))

	edit.ID = 999
	_, err = s.UpdateQuote(ctx, edit)
	assertKind(t, err, types.ErrNotFound)

	bad := sampleQuote()
	bad.ID = created.ID
	bad.Customers[0].Items[0].Quantity = decimal.RequireFromString("-1")
	_, err = s.UpdateQuote(ctx, bad)
	assertKind(t, err, types.ErrValidation)
}

func TestQuoteStatusTransitions(t *testing.T) {
	s := setupQuotes(t)
	ctx := context.Background()

	q, err := s.CreateQuote(ctx, sampleQuote())
	require.NoError(t, err)

	_, err = s.UpdateQuoteStatus(ctx, q.ID, models.QuoteStatusApproved, "R1")
	assertKind(t, err, types.ErrConflict)
	_, err = s.UpdateQuoteStatus(ctx, q.ID, "PAID", "")
	assertKind(t, err, types.ErrValidation)

	q, err = s.UpdateQuoteStatus(ctx, q.ID, "submitted", "")
	require.NoError(t, err)
	assert.Equal(t, models.QuoteStatusSubmitted, q.Status)

	_, err = s.UpdateQuoteStatus(ctx, q.ID, models.QuoteStatusApproved, "")
	assertKind(t, err, types.ErrValidation)

	q, err = s.UpdateQuoteStatus(ctx, q.ID, models.QuoteStatusApproved, "DISCOUNT_UNDER_10")
	require.NoError(t, err)
	assert.Equal(t, models.QuoteStatusApproved, q.Status)
	assert.Equal(t, "DISCOUNT_UNDER_10", q.ApprovalRule)

	edit := sampleQuote()
	edit.ID = q.ID
	_, err = s.UpdateQuote(ctx, edit)
	assertKind(t, err, types.ErrConflict)
	assertKind(t, s.DeleteQuote(ctx, q.ID), types.ErrConflict)

	q, err = s.UpdateQuoteStatus(ctx, q.ID, models.QuoteStatusSent, "")
	require.NoError(t, err)
	assert.Equal(t, "DISCOUNT_UNDER_10", q.ApprovalRule)
	q, err = s.UpdateQuoteStatus(ctx, q.ID, models.QuoteStatusWon, "")
	require.NoError(t, err)
	assert.Equal(t, models.QuoteStatusWon, q.Status)
}

func TestQuoteReopenClearsApprovalRule(t *testing.T) {
	s := setupQuotes(t)
	ctx := context.Background()

	q, err := s.CreateQuote(ctx, sampleQuote())
	require.NoError(t, err)
	_, err = s.UpdateQuoteStatus(ctx, q.ID, models.QuoteStatusSubmitted, "")
	require.NoError(t, err)
	q, err = s.UpdateQuoteStatus(ctx, q.ID, models.QuoteStatusRejected, "MGR")
	require.NoError(t, err)
	assert.Equal(t, "MGR", q.ApprovalRule)

	q, err = s.UpdateQuoteStatus(ctx, q.ID, models.QuoteStatusDraft, "")
	require.NoError(t, err)
	assert.Equal(t, models.QuoteStatusDraft, q.Status)
	assert.Empty(t, q.ApprovalRule)

	edit := sampleQuote()
	edit.ID = q.ID
	_, err = s.UpdateQuote(ctx, edit)
	assert.NoError(t, err)
}

func TestQuoteDeleteAndSearch(t *testing.T) {
	s := setupQuotes(t)
	ctx := context.Background()

	keep, err := s.CreateQuote(ctx, sampleQuote())
	require.NoError(t, err)
	drop := sampleQuote()
	drop.Title = "Clearance"
	dropped, err := s.CreateQuote(ctx, drop)
	require.NoError(t, err)

	found, err := s.SearchQuotes(ctx, QuoteSearch{StartDate: "2024-01-15", EndDate: "2024-01-15", Keyword: "clearance"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, dropped.ID, found[0].ID)

	require.NoError(t, s.DeleteQuote(ctx, dropped.ID))
	_, err = s.GetQuote(ctx, dropped.ID)
	assertKind(t, err, types.ErrNotFound)
	assertKind(t, s.DeleteQuote(ctx, dropped.ID), types.ErrNotFound)

	found, err = s.SearchQuotes(ctx, QuoteSearch{Customer: "bravo"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, keep.ID, found[0].ID)

	found, err = s.SearchQuotes(ctx, QuoteSearch{StartDate: "2024-02-01"})
	require.NoError(t, err)
	assert.Empty(t, found)

	_, err = s.SearchQuotes(ctx, QuoteSearch{StartDate: "2024-02-01", EndDate: "2024-01-01"})
	assertKind(t, err, types.ErrValidation)
	_, err = s.SearchQuotes(ctx, QuoteSearch{StartDate: "15/01/2024"})
	assertKind(t, err, types.ErrValidation)
}
