package handlers_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	authorizer "github.com/localnerve/authorizer-go"
	"github.com/localnerve/salesops/internal/config"
	"github.com/localnerve/salesops/internal/handlers"
	"github.com/localnerve/salesops/internal/models"
	"github.com/localnerve/salesops/internal/repos"
	"github.com/localnerve/salesops/internal/services"
	"github.com/localnerve/salesops/internal/testutil"
	"github.com/localnerve/salesops/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// setupApp mounts every route over a fresh SQLite database, without auth
func setupApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()
	return setupAppWithGuard(t, func(c *fiber.Ctx) error { return c.Next() })
}

func setupAppWithGuard(t *testing.T, approverGuard fiber.Handler) (*fiber.App, *gorm.DB) {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)

	r, err := repos.New(db, log)
	require.NoError(t, err)
	cfg := &config.Config{DBType: "sqlite", DBHealthQuery: "SELECT 1", QuoteSeqWidth: 3, Profiles: []string{"test"}}

	app := fiber.New()
	handlers.New(services.New(cfg, db, r, log), log).
		Register(app, app.Group("/api"), approverGuard)
	return app, db
}

func do(t *testing.T, app *fiber.App, method, target string, body interface{}) *http.Response {
	t.Helper()
	resp, err := app.Test(testutil.JSONRequest(t, method, target, body), -1)
	require.NoError(t, err)
	return resp
}

func expectProblems(t *testing.T, resp *http.Response, fields ...string) {
	t.Helper()
	testutil.AssertStatus(t, resp, fiber.StatusBadRequest)
	var out utils.ErrorResponseStruct
	testutil.ParseJSON(t, resp, &out)
	assert.Equal(t, utils.ErrorTypeValidation, out.Type)
	for _, f := range fields {
		assert.Contains(t, out.Errors, f)
	}
}

func expectStatus(t *testing.T, resp *http.Response, status int, errType string) {
	t.Helper()
	testutil.AssertStatus(t, resp, status)
	var out utils.ErrorResponseStruct
	testutil.ParseJSON(t, resp, &out)
	assert.False(t, out.Ok)
	assert.Equal(t, errType, out.Type)
}

func TestHealthDB(t *testing.T) {
	app, _ := setupApp(t)

	resp := do(t, app, "GET", "/health/db", nil)
	testutil.AssertStatus(t, resp, fiber.StatusOK)
	var h services.DBHealth
	testutil.ParseJSON(t, resp, &h)
	assert.Equal(t, services.StatusUp, h.Status)
	assert.Equal(t, "SQLite", h.DatabaseProduct)
}

func TestCompetitorRoutes(t *testing.T) {
	app, _ := setupApp(t)

	expectProblems(t, do(t, app, "POST", "/api/competitors", map[string]interface{}{}), "name")

	resp := do(t, app, "POST", "/api/competitors", map[string]interface{}{
		"name": "Acme", "marketPosition": "LEADER", "distributionModel": "DIRECT",
	})
	testutil.AssertStatus(t, resp, fiber.StatusCreated)
	var acme models.Competitor
	testutil.ParseJSON(t, resp, &acme)
	require.NotZero(t, acme.ID)

	resp = do(t, app, "GET", "/api/competitors?name=acme", nil)
	testutil.AssertStatus(t, resp, fiber.StatusOK)
	var found []models.Competitor
	testutil.ParseJSON(t, resp, &found)
	require.Len(t, found, 1)
	assert.Equal(t, acme.ID, found[0].ID)

	expectStatus(t, do(t, app, "PUT", "/api/competitors/999", map[string]interface{}{"name": "Ghost"}),
		fiber.StatusNotFound, utils.ErrorTypeNotFound)
	expectStatus(t, do(t, app, "PUT", "/api/competitors/abc", map[string]interface{}{"name": "Ghost"}),
		fiber.StatusBadRequest, utils.ErrorTypeValidation)

	target := fmt.Sprintf("/api/competitors/%d/insights", acme.ID)
	testutil.AssertStatus(t, do(t, app, "POST", target, map[string]interface{}{"note": "new distributor"}), fiber.StatusCreated)
	expectProblems(t, do(t, app, "POST", target, map[string]interface{}{}), "note")

	resp = do(t, app, "GET", target, nil)
	testutil.AssertStatus(t, resp, fiber.StatusOK)
	var notes []models.CompetitorInsight
	testutil.ParseJSON(t, resp, &notes)
	assert.Len(t, notes, 1)
}

func TestSimulationRoutes(t *testing.T) {
	app, db := setupApp(t)
	require.NoError(t, db.Exec(`INSERT INTO price_simulation_data
		(customer_seq, sim_date, run_id, product_code, product_name, base_price, simulated_price, volume, margin_rate)
		VALUES (7, '2024-01-10', 'r1', 'P1', 'One', 5, 6, 50, 0.1)`).Error)

	resp := do(t, app, "GET", "/api/lab/price-simulation/data?customerSeq=7&startDate=2024-01-01&endDate=2024-01-31", nil)
	testutil.AssertStatus(t, resp, fiber.StatusOK)
	var result services.SimulationResult
	testutil.ParseJSON(t, resp, &result)
	assert.Len(t, result.Rows, 1)
	assert.Equal(t, 1, result.Summary.RowCount)

	expectStatus(t, do(t, app, "GET", "/api/lab/price-simulation/data?customerSeq=7&startDate=2024-02-01&endDate=2024-01-01", nil),
		fiber.StatusBadRequest, utils.ErrorTypeValidation)
	expectStatus(t, do(t, app, "GET", "/api/lab/price-simulation/data?startDate=2024-01-01&endDate=2024-01-31", nil),
		fiber.StatusBadRequest, utils.ErrorTypeValidation)

	expectProblems(t, do(t, app, "POST", "/api/lab/price-simulation/assessment", map[string]interface{}{
		"customerSeq": 7, "assessorId": "a1", "score": 101,
	}), "score")

	resp = do(t, app, "POST", "/api/lab/price-simulation/assessment", map[string]interface{}{
		"customerSeq": "7", "assessorId": "a1", "score": 0, "comment": "too aggressive",
	})
	testutil.AssertStatus(t, resp, fiber.StatusOK)
	var saved map[string]interface{}
	testutil.ParseJSON(t, resp, &saved)
	assert.Equal(t, true, saved["success"])
	assert.NotEmpty(t, saved["token"])

	resp = do(t, app, "GET", "/api/lab/price-simulation/assessment?customerSeq=7", nil)
	testutil.AssertStatus(t, resp, fiber.StatusOK)
	var list []models.SimulationAssessment
	testutil.ParseJSON(t, resp, &list)
	require.Len(t, list, 1)
	assert.Equal(t, 0, list[0].Score)
}

func TestOkrRoutes(t *testing.T) {
	app, _ := setupApp(t)

	expectProblems(t, do(t, app, "POST", "/api/okr/cycles", map[string]interface{}{
		"label": "FY24", "startDate": "2024-13-01", "endDate": "2024-06-30",
	}), "startDate")

	resp := do(t, app, "POST", "/api/okr/cycles", map[string]interface{}{
		"label": "FY24 H1", "startDate": "2024-01-01", "endDate": "2024-06-30",
	})
	testutil.AssertStatus(t, resp, fiber.StatusCreated)
	var cycle models.OkrCycle
	testutil.ParseJSON(t, resp, &cycle)

	resp = do(t, app, "POST", "/api/okr/items", map[string]interface{}{
		"cycleId": fmt.Sprint(cycle.ID), "ownerId": 1, "approverId": 9, "title": "Grow",
		"memberIds": []int{3, 2}, "metadata": map[string]interface{}{"theme": "growth"},
	})
	testutil.AssertStatus(t, resp, fiber.StatusCreated)
	var item models.OkrItem
	testutil.ParseJSON(t, resp, &item)
	assert.Equal(t, []uint64{2, 3}, item.MemberIDs)
	assert.Equal(t, models.OkrStatusDraft, item.StatusCode)

	itemURL := fmt.Sprintf("/api/okr/items/%d", item.ID)
	cycleURL := fmt.Sprintf("/api/okr/cycles/%d", cycle.ID)

	expectStatus(t, do(t, app, "DELETE", cycleURL, nil), fiber.StatusConflict, utils.ErrorTypeConflict)
	expectStatus(t, do(t, app, "GET", "/api/okr/items", nil), fiber.StatusBadRequest, utils.ErrorTypeValidation)

	resp = do(t, app, "GET", "/api/okr/items?memberId=3", nil)
	testutil.AssertStatus(t, resp, fiber.StatusOK)
	var byMember []models.OkrItem
	testutil.ParseJSON(t, resp, &byMember)
	assert.Len(t, byMember, 1)

	approve := map[string]interface{}{"approverId": 9, "decision": "APPROVED"}
	expectStatus(t, do(t, app, "POST", itemURL+"/approvals", approve), fiber.StatusConflict, utils.ErrorTypeConflict)

	resp = do(t, app, "PATCH", itemURL+"/status", map[string]interface{}{"statusCode": "PENDING_APPROVAL"})
	testutil.AssertStatus(t, resp, fiber.StatusOK)

	resp = do(t, app, "GET", "/api/okr/approvals/pending?approverId=9", nil)
	testutil.AssertStatus(t, resp, fiber.StatusOK)
	var pending []models.OkrItem
	testutil.ParseJSON(t, resp, &pending)
	assert.Len(t, pending, 1)

	expectProblems(t, do(t, app, "POST", itemURL+"/approvals", map[string]interface{}{"approverId": 9, "decision": "MAYBE"}), "decision")
	testutil.AssertStatus(t, do(t, app, "POST", itemURL+"/approvals", approve), fiber.StatusCreated)

	resp = do(t, app, "GET", itemURL+"/approvals/summary", nil)
	testutil.AssertStatus(t, resp, fiber.StatusOK)
	var sum services.ApprovalSummary
	testutil.ParseJSON(t, resp, &sum)
	assert.Equal(t, models.OkrStatusApproved, sum.State)
	assert.Equal(t, 1, sum.ApprovedCount)

	eval := map[string]interface{}{"evaluatorId": 4, "score": 75}
	testutil.AssertStatus(t, do(t, app, "POST", itemURL+"/evaluations", eval), fiber.StatusCreated)
	eval["score"] = 90
	testutil.AssertStatus(t, do(t, app, "POST", itemURL+"/evaluations", eval), fiber.StatusOK)
	expectProblems(t, do(t, app, "POST", itemURL+"/evaluations", map[string]interface{}{"evaluatorId": 4}), "score")

	resp = do(t, app, "GET", itemURL+"/evaluations", nil)
	testutil.AssertStatus(t, resp, fiber.StatusOK)
	var evals []models.OkrEvaluation
	testutil.ParseJSON(t, resp, &evals)
	require.Len(t, evals, 1)
	assert.Equal(t, 90.0, evals[0].Score)

	testutil.AssertStatus(t, do(t, app, "DELETE", itemURL, nil), fiber.StatusNoContent)
	expectStatus(t, do(t, app, "GET", itemURL, nil), fiber.StatusNotFound, utils.ErrorTypeNotFound)
	testutil.AssertStatus(t, do(t, app, "DELETE", cycleURL, nil), fiber.StatusNoContent)
}

func TestApproveRequiresSessionApprover(t *testing.T) {
	app, _ := setupAppWithGuard(t, func(c *fiber.Ctx) error {
		c.Locals("user", &authorizer.User{ID: "a1b2", AppData: map[string]interface{}{"approverId": float64(9)}})
		return c.Next()
	})

	resp := do(t, app, "POST", "/api/okr/cycles", map[string]interface{}{
		"label": "FY24 H2", "startDate": "2024-07-01", "endDate": "2024-12-31",
	})
	testutil.AssertStatus(t, resp, fiber.StatusCreated)
	var cycle models.OkrCycle
	testutil.ParseJSON(t, resp, &cycle)

	resp = do(t, app, "POST", "/api/okr/items", map[string]interface{}{
		"cycleId": cycle.ID, "ownerId": 1, "title": "Retain", "statusCode": "PENDING_APPROVAL",
	})
	testutil.AssertStatus(t, resp, fiber.StatusCreated)
	var item models.OkrItem
	testutil.ParseJSON(t, resp, &item)
	itemURL := fmt.Sprintf("/api/okr/items/%d/approvals", item.ID)

	expectStatus(t, do(t, app, "POST", itemURL, map[string]interface{}{"approverId": 8, "decision": "APPROVED"}),
		fiber.StatusForbidden, "okr.authorization.approver")
	testutil.AssertStatus(t, do(t, app, "POST", itemURL, map[string]interface{}{"approverId": 9, "decision": "APPROVED"}),
		fiber.StatusCreated)
}

func TestQuoteRoutes(t *testing.T) {
	app, _ := setupApp(t)

	expectProblems(t, do(t, app, "POST", "/api/quotes", map[string]interface{}{
		"title": "Empty", "currency": "USD", "customers": []interface{}{},
	}), "customers")

	expectProblems(t, do(t, app, "POST", "/api/quotes", map[string]interface{}{
		"title": "Bad line", "currency": "USD",
		"customers": []interface{}{
			map[string]interface{}{"customerName": "Acme", "items": []interface{}{
				map[string]interface{}{"quantity": 1, "unitPrice": 2},
			}},
		},
	}), "customers[0].items[0].productCode")

	resp := do(t, app, "GET", "/api/quotes/next-number", nil)
	testutil.AssertStatus(t, resp, fiber.StatusOK)
	var preview services.QuoteNumber
	testutil.ParseJSON(t, resp, &preview)
	assert.Equal(t, 1, preview.QuoteSeq)

	resp = do(t, app, "POST", "/api/quotes", map[string]interface{}{
		"title": "Spring bundle", "currency": "usd",
		"customers": []interface{}{
			map[string]interface{}{"customerName": "Acme", "items": []interface{}{
				map[string]interface{}{"productCode": "P1", "quantity": "2", "unitPrice": "10.50"},
				map[string]interface{}{"productCode": "P2", "quantity": 1, "unitPrice": 4},
			}},
			map[string]interface{}{"customerName": "Bravo", "items": []interface{}{
				map[string]interface{}{"productCode": "P3", "quantity": 3, "unitPrice": 1.25},
			}},
		},
	})
	testutil.AssertStatus(t, resp, fiber.StatusCreated)
	var q models.Quote
	testutil.ParseJSON(t, resp, &q)
	assert.Equal(t, preview.QuoteNo, q.QuoteNo)
	assert.Equal(t, "28.75", q.TotalAmount.String())
	require.Len(t, q.Customers, 2)
	assert.Len(t, q.Customers[0].Items, 2)

	quoteURL := fmt.Sprintf("/api/quotes/%d", q.ID)

	resp = do(t, app, "GET", "/api/quotes?customer=bravo", nil)
	testutil.AssertStatus(t, resp, fiber.StatusOK)
	var found []models.Quote
	testutil.ParseJSON(t, resp, &found)
	assert.Len(t, found, 1)

	expectStatus(t, do(t, app, "PATCH", quoteURL+"/status", map[string]interface{}{"status": "APPROVED", "approvalRule": "R1"}),
		fiber.StatusConflict, utils.ErrorTypeConflict)
	expectProblems(t, do(t, app, "PATCH", quoteURL+"/status", map[string]interface{}{"status": "PAID"}), "status")

	testutil.AssertStatus(t, do(t, app, "DELETE", quoteURL, nil), fiber.StatusNoContent)
	expectStatus(t, do(t, app, "GET", quoteURL, nil), fiber.StatusNotFound, utils.ErrorTypeNotFound)
	expectStatus(t, do(t, app, "DELETE", quoteURL, nil), fiber.StatusNotFound, utils.ErrorTypeNotFound)
}
