package data

import (
	_ "embed"
)

//go:embed initdb/mariadb/001-price-simulation.sql
var InitdbMariaDBSimulation string

//go:embed initdb/sqlite/001-price-simulation.sql
var InitdbSQLiteSimulation string
