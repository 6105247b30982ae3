package services

import (
	"context"
	"time"

	"github.com/localnerve/salesops/internal/dbctx"
	"github.com/localnerve/salesops/internal/logger"
	"github.com/localnerve/salesops/internal/models"
	"github.com/localnerve/salesops/internal/repos"
	"github.com/localnerve/salesops/internal/types"
)

type CompetitorService struct {
	repo repos.CompetitorRepo
	log  *logger.Logger
}

func NewCompetitorService(repo repos.CompetitorRepo, baseLog *logger.Logger) *CompetitorService {
	return &CompetitorService{repo: repo, log: baseLog.With("service", "CompetitorService")}
}

// Register inserts a new competitor and returns it with its id
func (s *CompetitorService) Register(ctx context.Context, c *models.Competitor) (*models.Competitor, error) {
	c.ID = 0
	c.Name = normalizeText(c.Name)
	if c.Name == "" {
		return nil, types.Invalid("competitor name is required")
	}
	if err := s.repo.Insert(dbctx.New(ctx), c); err != nil {
		return nil, err
	}
	s.log.Info("competitor registered", "id", c.ID, "name", c.Name)
	return c, nil
}

// Update overwrites the competitor identified by c.ID
func (s *CompetitorService) Update(ctx context.Context, c *models.Competitor) (*models.Competitor, error) {
	dbc := dbctx.New(ctx)
	c.Name = normalizeText(c.Name)
	if c.Name == "" {
		return nil, types.Invalid("competitor name is required")
	}

	existing, err := s.repo.FindByID(dbc, c.ID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, types.NotFound("competitor", c.ID)
	}

	if err := s.repo.Update(dbc, c); err != nil {
		return nil, err
	}
	return s.repo.FindByID(dbc, c.ID)
}

// Search matches all supplied filters; name is a case-insensitive partial match
func (s *CompetitorService) Search(ctx context.Context, f repos.CompetitorFilter) ([]models.Competitor, error) {
	f.Name = normalizeText(f.Name)
	f.MarketPosition = normalizeText(f.MarketPosition)
	f.DistributionModel = normalizeText(f.DistributionModel)
	return s.repo.Search(dbctx.New(ctx), f)
}

// AddInsight appends a note to an existing competitor. NotedAt defaults to now.
func (s *CompetitorService) AddInsight(ctx context.Context, in *models.CompetitorInsight) (*models.CompetitorInsight, error) {
	dbc := dbctx.New(ctx)
	if normalizeText(in.Note) == "" {
		return nil, types.Invalid("insight note is required")
	}
	if err := s.requireCompetitor(dbc, in.CompetitorID); err != nil {
		return nil, err
	}

	in.ID = 0
	if in.NotedAt.IsZero() {
		in.NotedAt = time.Now().UTC()
	}
	if err := s.repo.InsertInsight(dbc, in); err != nil {
		return nil, err
	}
	return in, nil
}

// GetInsights lists a competitor's notes oldest first
func (s *CompetitorService) GetInsights(ctx context.Context, competitorID uint64) ([]models.CompetitorInsight, error) {
	dbc := dbctx.New(ctx)
	if err := s.requireCompetitor(dbc, competitorID); err != nil {
		return nil, err
	}
	return s.repo.FindInsightsByCompetitorID(dbc, competitorID)
}

func (s *CompetitorService) requireCompetitor(dbc dbctx.Context, id uint64) error {
	c, err := s.repo.FindByID(dbc, id)
	if err != nil {
		return err
	}
	if c == nil {
		return types.NotFound("competitor", id)
	}
	return nil
}
