package repos_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/localnerve/salesops/internal/dbctx"
	"github.com/localnerve/salesops/internal/models"
	"github.com/localnerve/salesops/internal/repos"
	"github.com/localnerve/salesops/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setup(t *testing.T) (*gorm.DB, *repos.Repos, dbctx.Context) {
	t.Helper()
	db := testutil.DB(t)
	r, err := repos.New(db, testutil.Logger(t))
	require.NoError(t, err)
	return db, r, dbctx.New(context.Background())
}

func TestCompetitorSearch(t *testing.T) {
	_, r, dbc := setup(t)

	for _, c := range []models.Competitor{
		{Name: "Acme Foods", MarketPosition: "LEADER", DistributionModel: "DIRECT"},
		{Name: "Bravo Goods", MarketPosition: "CHALLENGER", DistributionModel: "DIRECT"},
		{Name: "acme logistics", MarketPosition: "NICHE", DistributionModel: "WHOLESALE"},
	} {
		c := c
		require.NoError(t, r.Competitor.Insert(dbc, &c))
	}

	found, err := r.Competitor.Search(dbc, repos.CompetitorFilter{Name: "ACME"})
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "Acme Foods", found[0].Name)

	found, err = r.Competitor.Search(dbc, repos.CompetitorFilter{Name: "acme", DistributionModel: "WHOLESALE"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "acme logistics", found[0].Name)

	found, err = r.Competitor.Search(dbc, repos.CompetitorFilter{})
	require.NoError(t, err)
	assert.Len(t, found, 3)

	missing, err := r.Competitor.FindByID(dbc, 999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSearchMatchesWildcardsLiterally(t *testing.T) {
	_, r, dbc := setup(t)

	for _, name := range []string{"100% Foods", "1000 Corp", "Under_Score", "UnderXScore", "Bang! Inc", "[Bracket] Co"} {
		require.NoError(t, r.Competitor.Insert(dbc, &models.Competitor{Name: name}))
	}

	tests := []struct {
		filter string
		want   []string
	}{
		{"100%", []string{"100% Foods"}},
		{"%", []string{"100% Foods"}},
		{"under_", []string{"Under_Score"}},
		{"g!", []string{"Bang! Inc"}},
		{"[b", []string{"[Bracket] Co"}},
	}
	for _, tt := range tests {
		found, err := r.Competitor.Search(dbc, repos.CompetitorFilter{Name: tt.filter})
		require.NoError(t, err)
		names := make([]string, len(found))
		for i := range found {
			names[i] = found[i].Name
		}
		assert.Equal(t, tt.want, names, "filter %q", tt.filter)
	}

	q := insertQuote(t, r, dbc, "20240110", 1, "50% off", "Acme")
	insertQuote(t, r, dbc, "20240110", 2, "500 units", "Acme")
	byKeyword, err := r.Quote.SelectQuotes(dbc, repos.QuoteFilter{Keyword: "50%"})
	require.NoError(t, err)
	require.Len(t, byKeyword, 1)
	assert.Equal(t, q.ID, byKeyword[0].ID)

	byCustomer, err := r.Quote.SelectQuotes(dbc, repos.QuoteFilter{Customer: "_"})
	require.NoError(t, err)
	assert.Empty(t, byCustomer)
}

func TestCompetitorInsightsOrder(t *testing.T) {
	_, r, dbc := setup(t)

	c := models.Competitor{Name: "Acme", MarketPosition: "LEADER", DistributionModel: "DIRECT"}
	require.NoError(t, r.Competitor.Insert(dbc, &c))

	now := time.Now().UTC()
	require.NoError(t, r.Competitor.InsertInsight(dbc, &models.CompetitorInsight{CompetitorID: c.ID, Note: "second", NotedAt: now}))
	require.NoError(t, r.Competitor.InsertInsight(dbc, &models.CompetitorInsight{CompetitorID: c.ID, Note: "first", NotedAt: now.Add(-time.Hour)}))

	notes, err := r.Competitor.FindInsightsByCompetitorID(dbc, c.ID)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "first", notes[0].Note)
	assert.Equal(t, "second", notes[1].Note)
}

func TestSimulationRange(t *testing.T) {
	db, r, dbc := setup(t)

	require.NoError(t, db.Exec(`INSERT INTO price_simulation_data
		(customer_seq, sim_date, run_id, product_code, product_name, base_price, simulated_price, volume, margin_rate)
		VALUES
		(7, '2024-01-10', 'r1', 'P2', 'Two', 10, 11, 100, 0.2),
		(7, '2024-01-10', 'r1', 'P1', 'One', 5, 6, 50, 0.1),
		(7, '2024-01-20', 'r1', 'P1', 'One', 5, 6, 40, 0.1),
		(7, '2024-02-01', 'r1', 'P1', 'One', 5, 6, 40, 0.1),
		(8, '2024-01-10', 'r1', 'P1', 'One', 5, 6, 40, 0.1)`).Error)

	rows, err := r.Simulation.FindSimulationData(dbc, 7, "2024-01-10", "2024-01-20")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, models.Date("2024-01-10"), rows[0].SimDate)
	assert.Equal(t, "P1", rows[0].ProductCode)
	assert.Equal(t, "P2", rows[1].ProductCode)
	assert.Equal(t, models.Date("2024-01-20"), rows[2].SimDate)

	rows, err = r.Simulation.FindSimulationData(dbc, 9, "2024-01-01", "2024-12-31")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestOkrCountsAndMembers(t *testing.T) {
	_, r, dbc := setup(t)

	cycle := models.OkrCycle{
		Label:     "FY24 H1",
		StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
		Status:    models.CycleStatusPlanning,
	}
	require.NoError(t, r.Okr.InsertCycle(dbc, &cycle))

	approver := uint64(9)
	parent := models.OkrItem{CycleID: cycle.ID, OwnerID: 1, ApproverID: &approver, ItemType: models.OkrTypeObjective,
		Title: "Grow", StatusCode: models.OkrStatusPendingApproval}
	require.NoError(t, r.Okr.InsertItem(dbc, &parent))
	child := models.OkrItem{CycleID: cycle.ID, ParentID: &parent.ID, OwnerID: 2, ItemType: models.OkrTypeKeyResult,
		Title: "Revenue", StatusCode: models.OkrStatusDraft}
	require.NoError(t, r.Okr.InsertItem(dbc, &child))

	n, err := r.Okr.CountItemsByCycleID(dbc, cycle.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	n, err = r.Okr.CountChildItems(dbc, parent.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	require.NoError(t, r.Okr.InsertMember(dbc, &models.OkrMember{ItemID: child.ID, MemberID: 5}))
	require.NoError(t, r.Okr.InsertMember(dbc, &models.OkrMember{ItemID: child.ID, MemberID: 3}))

	members, err := r.Okr.FindMemberIDsByItemIDs(dbc, []uint64{parent.ID, child.ID})
	require.NoError(t, err)
	assert.Equal(t, []uint64{3, 5}, members[child.ID])
	assert.Empty(t, members[parent.ID])

	byMember, err := r.Okr.FindItemsByMemberID(dbc, 3)
	require.NoError(t, err)
	require.Len(t, byMember, 1)
	assert.Equal(t, child.ID, byMember[0].ID)

	pending, err := r.Okr.FindPendingApprovalItems(dbc, repos.PendingFilter{ApproverID: approver})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, parent.ID, pending[0].ID)

	pending, err = r.Okr.FindPendingApprovalItems(dbc, repos.PendingFilter{ApproverID: 1})
	require.NoError(t, err)
	assert.Empty(t, pending)

	cycles, err := r.Okr.FindCycles(dbc, repos.CycleFilter{Year: 2024})
	require.NoError(t, err)
	assert.Len(t, cycles, 1)
	cycles, err = r.Okr.FindCycles(dbc, repos.CycleFilter{Year: 2023})
	require.NoError(t, err)
	assert.Empty(t, cycles)
}

func TestOkrEvaluationUniqueIndex(t *testing.T) {
	_, r, dbc := setup(t)

	require.NoError(t, r.Okr.InsertEvaluation(dbc, &models.OkrEvaluation{ItemID: 1, EvaluatorID: 2, Score: 3}))
	err := r.Okr.InsertEvaluation(dbc, &models.OkrEvaluation{ItemID: 1, EvaluatorID: 2, Score: 4})
	require.Error(t, err)

	require.NoError(t, r.Okr.UpdateEvaluation(dbc, &models.OkrEvaluation{ItemID: 1, EvaluatorID: 2, Score: 4}))
	got, err := r.Okr.FindEvaluationByItemAndEvaluator(dbc, 1, 2)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 4.0, got.Score)
}

func insertQuote(t *testing.T, r *repos.Repos, dbc dbctx.Context, date string, seq int, title, customer string) *models.Quote {
	t.Helper()
	q := &models.Quote{
		QuoteNo:      fmt.Sprintf("%s-%03d", date, seq),
		QuoteDate:    date,
		QuoteSeq:     seq,
		Title:        title,
		CustomerName: customer,
		Status:       models.QuoteStatusDraft,
		Currency:     "USD",
		TotalAmount:  decimal.Zero,
	}
	require.NoError(t, r.Quote.InsertQuote(dbc, q))
	return q
}

func TestQuoteSearch(t *testing.T) {
	_, r, dbc := setup(t)

	a := insertQuote(t, r, dbc, "20240110", 1, "Spring promo", "Acme")
	b := insertQuote(t, r, dbc, "20240115", 1, "Bulk order", "Bravo")
	c := insertQuote(t, r, dbc, "20240115", 2, "Renewal", "")
	require.NoError(t, r.Quote.InsertQuoteCustomer(dbc, &models.QuoteCustomer{QuoteID: c.ID, LineNo: 1, CustomerName: "Acme Subsidiary"}))

	all, err := r.Quote.SelectQuotes(dbc, repos.QuoteFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []uint64{c.ID, b.ID, a.ID}, []uint64{all[0].ID, all[1].ID, all[2].ID})

	byCustomer, err := r.Quote.SelectQuotes(dbc, repos.QuoteFilter{Customer: "acme"})
	require.NoError(t, err)
	require.Len(t, byCustomer, 2)
	assert.Equal(t, c.ID, byCustomer[0].ID)
	assert.Equal(t, a.ID, byCustomer[1].ID)

	byKeyword, err := r.Quote.SelectQuotes(dbc, repos.QuoteFilter{Keyword: "BULK"})
	require.NoError(t, err)
	require.Len(t, byKeyword, 1)
	assert.Equal(t, b.ID, byKeyword[0].ID)

	byDate, err := r.Quote.SelectQuotes(dbc, repos.QuoteFilter{StartDate: "20240111", EndDate: "20240115"})
	require.NoError(t, err)
	assert.Len(t, byDate, 2)
}

func TestQuoteSequenceRows(t *testing.T) {
	_, r, dbc := setup(t)

	max, err := r.Quote.SelectMaxQuoteSeq(dbc, "20240115")
	require.NoError(t, err)
	assert.Equal(t, 0, max)

	insertQuote(t, r, dbc, "20240115", 7, "Seven", "Acme")
	insertQuote(t, r, dbc, "20240116", 9, "Nine", "Acme")
	max, err = r.Quote.SelectMaxQuoteSeq(dbc, "20240115")
	require.NoError(t, err)
	assert.Equal(t, 7, max)

	seq, err := r.Quote.LockQuoteSequence(dbc, "20240115")
	require.NoError(t, err)
	assert.Nil(t, seq)

	require.NoError(t, r.Quote.InsertQuoteSequence(dbc, &models.QuoteSequence{SeqDate: "20240115", LastSeq: 7}))
	require.NoError(t, r.Quote.InsertQuoteSequence(dbc, &models.QuoteSequence{SeqDate: "20240115", LastSeq: 0}))

	seq, err = r.Quote.LockQuoteSequence(dbc, "20240115")
	require.NoError(t, err)
	require.NotNil(t, seq)
	assert.Equal(t, 7, seq.LastSeq)

	seq.LastSeq = 8
	require.NoError(t, r.Quote.UpdateQuoteSequence(dbc, seq))
	seq, err = r.Quote.LockQuoteSequence(dbc, "20240115")
	require.NoError(t, err)
	assert.Equal(t, 8, seq.LastSeq)
}
