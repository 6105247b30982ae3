package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/localnerve/salesops/internal/dbctx"
	"github.com/localnerve/salesops/internal/logger"
	"github.com/localnerve/salesops/internal/models"
	"github.com/localnerve/salesops/internal/repos"
	"github.com/localnerve/salesops/internal/types"
)

// Assessment score bounds
const (
	MinAssessmentScore = 0
	MaxAssessmentScore = 100
)

// SimulationSummary aggregates the rows of one simulation read
type SimulationSummary struct {
	RowCount      int     `json:"rowCount"`
	TotalVolume   float64 `json:"totalVolume"`
	AvgMarginRate float64 `json:"avgMarginRate"`
}

// SimulationResult is the payload of a simulation read
type SimulationResult struct {
	CustomerSeq uint64                 `json:"customerSeq"`
	StartDate   string                 `json:"startDate"`
	EndDate     string                 `json:"endDate"`
	Rows        []models.SimulationRow `json:"rows"`
	Summary     SimulationSummary      `json:"summary"`
}

type SimulationService struct {
	repo repos.SimulationRepo
	log  *logger.Logger
}

func NewSimulationService(repo repos.SimulationRepo, baseLog *logger.Logger) *SimulationService {
	return &SimulationService{repo: repo, log: baseLog.With("service", "SimulationService")}
}

// GetSimulationData reads a customer's simulation rows over an inclusive ISO date range
func (s *SimulationService) GetSimulationData(ctx context.Context, customerSeq uint64, startDate, endDate string) (*SimulationResult, error) {
	start, err := time.Parse(models.DateLayout, startDate)
	if err != nil {
		return nil, types.Invalid("startDate must be YYYY-MM-DD: %q", startDate)
	}
	end, err := time.Parse(models.DateLayout, endDate)
	if err != nil {
		return nil, types.Invalid("endDate must be YYYY-MM-DD: %q", endDate)
	}
	if start.After(end) {
		return nil, types.Invalid("startDate %s is after endDate %s", startDate, endDate)
	}

	rows, err := s.repo.FindSimulationData(dbctx.New(ctx), customerSeq, startDate, endDate)
	if err != nil {
		return nil, err
	}

	return &SimulationResult{
		CustomerSeq: customerSeq,
		StartDate:   startDate,
		EndDate:     endDate,
		Rows:        rows,
		Summary:     summarize(rows),
	}, nil
}

func summarize(rows []models.SimulationRow) SimulationSummary {
	sum := SimulationSummary{RowCount: len(rows)}
	if len(rows) == 0 {
		return sum
	}
	var margin float64
	for _, r := range rows {
		sum.TotalVolume += r.Volume
		margin += r.MarginRate
	}
	sum.AvgMarginRate = margin / float64(len(rows))
	return sum
}

// SaveAssessment records a score against a customer's simulation. Every call inserts.
func (s *SimulationService) SaveAssessment(ctx context.Context, customerSeq uint64, assessorID string, score int, comment string) (*models.SimulationAssessment, error) {
	if score < MinAssessmentScore || score > MaxAssessmentScore {
		return nil, types.Invalid("score must be between %d and %d", MinAssessmentScore, MaxAssessmentScore)
	}
	if normalizeText(assessorID) == "" {
		return nil, types.Invalid("assessorId is required")
	}

	a := &models.SimulationAssessment{
		CustomerSeq: customerSeq,
		AssessorID:  normalizeText(assessorID),
		Score:       score,
		Comment:     comment,
		Token:       uuid.NewString(),
	}
	if err := s.repo.InsertAssessment(dbctx.New(ctx), a); err != nil {
		return nil, err
	}
	s.log.Info("simulation assessment saved", "customerSeq", customerSeq, "token", a.Token)
	return a, nil
}

// ListAssessments returns a customer's assessments, newest first
func (s *SimulationService) ListAssessments(ctx context.Context, customerSeq uint64) ([]models.SimulationAssessment, error) {
	return s.repo.FindAssessmentsByCustomer(dbctx.New(ctx), customerSeq)
}
