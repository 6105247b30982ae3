// services.go
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

// Package services applies the business rules: transaction boundaries,
// state transitions and invariants the mappers do not check.
package services

import (
	"context"
	"strings"

	"github.com/localnerve/salesops/internal/config"
	"github.com/localnerve/salesops/internal/dbctx"
	"github.com/localnerve/salesops/internal/logger"
	"github.com/localnerve/salesops/internal/repos"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"
)

// Services bundles the feature services over one database handle
type Services struct {
	Competitor *CompetitorService
	Simulation *SimulationService
	Okr        *OkrService
	Quote      *QuoteService
	Health     *HealthService
}

func New(cfg *config.Config, db *gorm.DB, r *repos.Repos, log *logger.Logger) *Services {
	return &Services{
		Competitor: NewCompetitorService(r.Competitor, log),
		Simulation: NewSimulationService(r.Simulation, log),
		Okr:        NewOkrService(db, r.Okr, log),
		Quote:      NewQuoteService(db, r.Quote, cfg.QuoteSeqWidth, log),
		Health:     NewHealthService(cfg, db, log),
	}
}

// inTx runs fn in one transaction bound to ctx. fn must only use the dbctx it is given.
func inTx(ctx context.Context, db *gorm.DB, fn func(dbc dbctx.Context) error) error {
	dbc := dbctx.New(ctx)
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(dbc.WithTx(tx))
	})
}

// normalizeText folds compatibility forms (full-width letters, ligatures) and trims,
// so searches and stored names compare the same way.
func normalizeText(s string) string {
	return strings.TrimSpace(norm.NFKC.String(s))
}
