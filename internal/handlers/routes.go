// routes.go
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

package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/salesops/internal/logger"
	"github.com/localnerve/salesops/internal/services"
)

// Handlers bundles the route handlers of every feature area
type Handlers struct {
	Competitor *CompetitorHandler
	Simulation *SimulationHandler
	Okr        *OkrHandler
	Quote      *QuoteHandler
	Health     *HealthHandler
}

func New(svcs *services.Services, log *logger.Logger) *Handlers {
	return &Handlers{
		Competitor: &CompetitorHandler{Service: svcs.Competitor, Log: log.With("handler", "competitor")},
		Simulation: &SimulationHandler{Service: svcs.Simulation, Log: log.With("handler", "simulation")},
		Okr:        &OkrHandler{Service: svcs.Okr, Log: log.With("handler", "okr")},
		Quote:      &QuoteHandler{Service: svcs.Quote, Log: log.With("handler", "quote")},
		Health:     &HealthHandler{Service: svcs.Health},
	}
}

// Register mounts the health route on app and the feature routes on api.
// approver guards the approval decision route.
func (h *Handlers) Register(app *fiber.App, api fiber.Router, approver fiber.Handler) {
	app.Get("/health/db", h.Health.DB)

	competitors := api.Group("/competitors")
	competitors.Get("/", h.Competitor.Search)
	competitors.Post("/", h.Competitor.Register)
	competitors.Put("/:id", h.Competitor.Update)
	competitors.Get("/:id/insights", h.Competitor.GetInsights)
	competitors.Post("/:id/insights", h.Competitor.AddInsight)

	lab := api.Group("/lab/price-simulation")
	lab.Get("/data", h.Simulation.GetData)
	lab.Get("/assessment", h.Simulation.ListAssessments)
	lab.Post("/assessment", h.Simulation.SaveAssessment)

	okr := api.Group("/okr")
	okr.Get("/cycles", h.Okr.ListCycles)
	okr.Post("/cycles", h.Okr.CreateCycle)
	okr.Get("/cycles/:id", h.Okr.GetCycle)
	okr.Put("/cycles/:id", h.Okr.UpdateCycle)
	okr.Delete("/cycles/:id", h.Okr.DeleteCycle)
	okr.Get("/cycles/:id/items", h.Okr.ListCycleItems)

	okr.Get("/items", h.Okr.ListItems)
	okr.Post("/items", h.Okr.CreateItem)
	okr.Get("/items/:id", h.Okr.GetItem)
	okr.Put("/items/:id", h.Okr.UpdateItem)
	okr.Delete("/items/:id", h.Okr.DeleteItem)
	okr.Patch("/items/:id/status", h.Okr.UpdateItemStatus)
	okr.Put("/items/:id/members", h.Okr.ReplaceMembers)

	okr.Get("/approvals/pending", h.Okr.PendingApprovals)
	okr.Get("/items/:id/approvals", h.Okr.ListApprovals)
	okr.Post("/items/:id/approvals", approver, h.Okr.Approve)
	okr.Get("/items/:id/approvals/summary", h.Okr.ApprovalSummary)
	okr.Get("/items/:id/evaluations", h.Okr.ListEvaluations)
	okr.Post("/items/:id/evaluations", h.Okr.Evaluate)

	quotes := api.Group("/quotes")
	quotes.Get("/", h.Quote.Search)
	quotes.Post("/", h.Quote.Create)
	quotes.Get("/next-number", h.Quote.NextNumber)
	quotes.Get("/:id", h.Quote.Get)
	quotes.Put("/:id", h.Quote.Update)
	quotes.Delete("/:id", h.Quote.Delete)
	quotes.Patch("/:id/status", h.Quote.UpdateStatus)
}
