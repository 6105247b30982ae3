package repos

import (
	"errors"

	"github.com/localnerve/salesops/internal/dbctx"
	"github.com/localnerve/salesops/internal/logger"
	"github.com/localnerve/salesops/internal/models"
	"gorm.io/gorm"
)

// CompetitorFilter narrows a competitor search; empty fields impose no constraint
type CompetitorFilter struct {
	Name              string
	MarketPosition    string
	DistributionModel string
}

type CompetitorRepo interface {
	Insert(dbc dbctx.Context, c *models.Competitor) error
	Update(dbc dbctx.Context, c *models.Competitor) error
	FindByID(dbc dbctx.Context, id uint64) (*models.Competitor, error)
	Search(dbc dbctx.Context, f CompetitorFilter) ([]models.Competitor, error)
	InsertInsight(dbc dbctx.Context, in *models.CompetitorInsight) error
	FindInsightsByCompetitorID(dbc dbctx.Context, competitorID uint64) ([]models.CompetitorInsight, error)
}

type competitorRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCompetitorRepo(db *gorm.DB, baseLog *logger.Logger) CompetitorRepo {
	return &competitorRepo{db: db, log: baseLog.With("repo", "CompetitorRepo")}
}

func (r *competitorRepo) Insert(dbc dbctx.Context, c *models.Competitor) error {
	return dbc.DB(r.db).Create(c).Error
}

func (r *competitorRepo) Update(dbc dbctx.Context, c *models.Competitor) error {
	return dbc.DB(r.db).
		Model(&models.Competitor{ID: c.ID}).
		Select("Name", "MarketPosition", "DistributionModel", "Website", "Description").
		Updates(c).Error
}

// FindByID returns nil without error when the competitor does not exist
func (r *competitorRepo) FindByID(dbc dbctx.Context, id uint64) (*models.Competitor, error) {
	var c models.Competitor
	err := dbc.DB(r.db).Where("id = ?", id).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *competitorRepo) Search(dbc dbctx.Context, f CompetitorFilter) ([]models.Competitor, error) {
	query := dbc.DB(r.db).Model(&models.Competitor{})
	if f.Name != "" {
		query = query.Where("LOWER(name) LIKE ?"+likeEscape, likeLower(f.Name))
	}
	if f.MarketPosition != "" {
		query = query.Where("market_position = ?", f.MarketPosition)
	}
	if f.DistributionModel != "" {
		query = query.Where("distribution_model = ?", f.DistributionModel)
	}

	results := []models.Competitor{}
	if err := query.Order("id").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *competitorRepo) InsertInsight(dbc dbctx.Context, in *models.CompetitorInsight) error {
	return dbc.DB(r.db).Create(in).Error
}

func (r *competitorRepo) FindInsightsByCompetitorID(dbc dbctx.Context, competitorID uint64) ([]models.CompetitorInsight, error) {
	results := []models.CompetitorInsight{}
	if err := dbc.DB(r.db).
		Where("competitor_id = ?", competitorID).
		Order("noted_at, id").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
