package repos

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/localnerve/salesops/internal/dbctx"
	"github.com/localnerve/salesops/internal/logger"
	"github.com/localnerve/salesops/internal/models"
	"gorm.io/gorm"
)

type SimulationRepo interface {
	FindSimulationData(dbc dbctx.Context, customerSeq uint64, startDate, endDate string) ([]models.SimulationRow, error)
	InsertAssessment(dbc dbctx.Context, a *models.SimulationAssessment) error
	FindAssessmentsByCustomer(dbc dbctx.Context, customerSeq uint64) ([]models.SimulationAssessment, error)
}

// simulationRepo reads the upstream projection through sqlx on the pool GORM already owns;
// assessments are an owned model and go through GORM.
type simulationRepo struct {
	db  *gorm.DB
	x   *sqlx.DB
	log *logger.Logger
}

const selectSimulationData = `
SELECT customer_seq, sim_date, run_id, product_code, product_name,
       base_price, simulated_price, volume, margin_rate
  FROM price_simulation_data
 WHERE customer_seq = ?
   AND sim_date >= ?
   AND sim_date <= ?
 ORDER BY sim_date, product_code, run_id`

func NewSimulationRepo(db *gorm.DB, baseLog *logger.Logger) (SimulationRepo, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying SQL DB: %w", err)
	}
	return &simulationRepo{
		db:  db,
		x:   sqlx.NewDb(sqlDB, sqlxDriverName(db.Dialector.Name())),
		log: baseLog.With("repo", "SimulationRepo"),
	}, nil
}

// sqlxDriverName maps a GORM dialect onto the driver name sqlx uses to pick a bind style
func sqlxDriverName(dialect string) string {
	switch dialect {
	case "postgres":
		return "pgx"
	case "sqlserver":
		return "sqlserver"
	case "sqlite":
		return "sqlite3"
	}
	return "mysql"
}

func (r *simulationRepo) FindSimulationData(dbc dbctx.Context, customerSeq uint64, startDate, endDate string) ([]models.SimulationRow, error) {
	rows := []models.SimulationRow{}
	query := r.x.Rebind(selectSimulationData)
	if err := r.x.SelectContext(dbc.Ctx, &rows, query, customerSeq, startDate, endDate); err != nil {
		r.log.Error("simulation data query failed", "customerSeq", customerSeq, "error", err)
		return nil, err
	}
	return rows, nil
}

func (r *simulationRepo) InsertAssessment(dbc dbctx.Context, a *models.SimulationAssessment) error {
	return dbc.DB(r.db).Create(a).Error
}

func (r *simulationRepo) FindAssessmentsByCustomer(dbc dbctx.Context, customerSeq uint64) ([]models.SimulationAssessment, error) {
	results := []models.SimulationAssessment{}
	if err := dbc.DB(r.db).
		Where("customer_seq = ?", customerSeq).
		Order("created_at DESC, id DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
