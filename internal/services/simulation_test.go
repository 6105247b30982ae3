package services

import (
	"context"
	"testing"

	"github.com/localnerve/salesops/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulationData(t *testing.T) {
	svcs, db := setupServices(t)
	ctx := context.Background()

	require.NoError(t, db.Exec(`INSERT INTO price_simulation_data
		(customer_seq, sim_date, run_id, product_code, product_name, base_price, simulated_price, volume, margin_rate)
		VALUES
		(7, '2024-01-10', 'r1', 'P1', 'One', 5, 6, 50, 0.1),
		(7, '2024-01-12', 'r1', 'P2', 'Two', 10, 11, 150, 0.3),
		(7, '2024-03-01', 'r1', 'P1', 'One', 5, 6, 40, 0.1)`).Error)

	res, err := svcs.Simulation.GetSimulationData(ctx, 7, "2024-01-01", "2024-01-31")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), res.CustomerSeq)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, 2, res.Summary.RowCount)
	assert.Equal(t, 200.0, res.Summary.TotalVolume)
	assert.InDelta(t, 0.2, res.Summary.AvgMarginRate, 1e-9)

	empty, err := svcs.Simulation.GetSimulationData(ctx, 8, "2024-01-01", "2024-01-31")
	require.NoError(t, err)
	assert.Empty(t, empty.Rows)
	assert.Zero(t, empty.Summary.AvgMarginRate)

	_, err = svcs.Simulation.GetSimulationData(ctx, 7, "2024-02-01", "2024-01-01")
	assertKind(t, err, types.ErrValidation)
	_, err = svcs.Simulation.GetSimulationData(ctx, 7, "2024-1-1", "2024-01-31")
	assertKind(t, err, types.ErrValidation)
}

func TestSimulationAssessments(t *testing.T) {
	svcs, _ := setupServices(t)
	ctx := context.Background()
	s := svcs.Simulation

	first, err := s.SaveAssessment(ctx, 7, "analyst-1", 70, "plausible")
	require.NoError(t, err)
	assert.NotZero(t, first.ID)
	assert.Len(t, first.Token, 36)

	second, err := s.SaveAssessment(ctx, 7, "analyst-1", 90, "")
	require.NoError(t, err)
	assert.NotEqual(t, first.Token, second.Token)

	for _, score := range []int{-1, 101} {
		_, err := s.SaveAssessment(ctx, 7, "analyst-1", score, "")
		assertKind(t, err, types.ErrValidation)
	}
	_, err = s.SaveAssessment(ctx, 7, " ", 50, "")
	assertKind(t, err, types.ErrValidation)

	list, err := s.ListAssessments(ctx, 7)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)

	none, err := s.ListAssessments(ctx, 8)
	require.NoError(t, err)
	assert.Empty(t, none)
}
