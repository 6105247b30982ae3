// repos.go
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

// Package repos holds the data mappers: parameterized queries with no business rules.
// Every method takes a dbctx.Context so callers can run it inside their transaction.
package repos

import (
	"strings"

	"github.com/localnerve/salesops/internal/logger"
	"gorm.io/gorm"
)

// Repos bundles every mapper over one database handle
type Repos struct {
	Competitor CompetitorRepo
	Simulation SimulationRepo
	Okr        OkrRepo
	Quote      QuoteRepo
}

func New(db *gorm.DB, log *logger.Logger) (*Repos, error) {
	sim, err := NewSimulationRepo(db, log)
	if err != nil {
		return nil, err
	}
	return &Repos{
		Competitor: NewCompetitorRepo(db, log),
		Simulation: sim,
		Okr:        NewOkrRepo(db, log),
		Quote:      NewQuoteRepo(db, log),
	}, nil
}

// likeEscape follows every LIKE built from likeLower
const likeEscape = " ESCAPE '!'"

// likeEscaper makes user input match literally; '[' is a wildcard class on SQL Server
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_", "[", "![")

// likeLower builds a case-insensitive containment pattern for LOWER(col) LIKE ? ESCAPE '!'
func likeLower(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}
