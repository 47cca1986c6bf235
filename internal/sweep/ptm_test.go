package sweep

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otacake/pricing-automation/internal/calculation"
	"github.com/otacake/pricing-automation/internal/domain"
	"github.com/otacake/pricing-automation/internal/tables"
)

func testEngine(t *testing.T) *calculation.ProfitTestEngine {
	t.Helper()
	rows := make([]tables.MortalityRow, 0, 81)
	for age := 20; age <= 100; age++ {
		male, female := 0.002, 0.0016
		rows = append(rows, tables.MortalityRow{Age: age, QMale: &male, QFemale: &female})
	}
	table, err := tables.NewMortalityTable(rows)
	require.NoError(t, err)

	engine, err := calculation.NewProfitTestEngine(calculation.Assumptions{
		PricingRate:     0.0025,
		ValuationRate:   0.0025,
		LapseRate:       0.03,
		PricingTable:    table,
		ExperienceTable: table,
		Curve:           tables.FlatCurve(0.0025, 40),
	}, calculation.LoadingProxyExpenseModel{}, zerolog.Nop())
	require.NoError(t, err)
	return engine
}

func sweepModelPoint() domain.ModelPoint {
	return domain.ModelPoint{
		ID:                 "m30_t10",
		Sex:                domain.SexMale,
		IssueAge:           30,
		TermYears:          10,
		PremiumPayingYears: 10,
		SumAssured:         10000000,
	}
}

func TestInclusiveRange(t *testing.T) {
	values, err := inclusiveRange(1.00, 1.05, 0.01)
	require.NoError(t, err)
	assert.Equal(t, []float64{1.00, 1.01, 1.02, 1.03, 1.04, 1.05}, values)

	single, err := inclusiveRange(1.0, 1.0, 0.01)
	require.NoError(t, err)
	assert.Equal(t, []float64{1.0}, single)

	_, err = inclusiveRange(1.0, 0.9, 0.01)
	require.Error(t, err)
	_, err = inclusiveRange(1.0, 1.1, 0)
	require.Error(t, err)
}

func TestSweepPTMGrid(t *testing.T) {
	sweeper := NewSweeper(testEngine(t), zerolog.Nop())
	mp := sweepModelPoint()

	result, err := sweeper.SweepPTM(context.Background(), mp, domain.DefaultLoadingCoefficients(), PTMSettings{
		Start: 1.00, End: 1.05, Step: 0.01, IRRThreshold: -1,
	})
	require.NoError(t, err)
	require.Len(t, result.Points, 6)
	assert.False(t, result.Truncated)

	for i, point := range result.Points {
		require.True(t, point.IRR.Converged, "grid point %d", i)
		// The premium is set so total premiums over the paying period
		// track r times the maturity benefit.
		assert.InDelta(t, point.R, point.PremiumToMaturity, 1e-4)
		if i > 0 {
			assert.Greater(t, point.IRR.Rate, result.Points[i-1].IRR.Rate, "IRR rises with premium")
			assert.Greater(t, point.NBV, result.Points[i-1].NBV)
		}
	}

	// Any converged IRR clears a -1 threshold, so the very first grid
	// point qualifies.
	assert.True(t, result.Found)
	assert.Equal(t, 1.00, result.MinQualifying)
}

func TestSweepPTMThresholdBoundary(t *testing.T) {
	sweeper := NewSweeper(testEngine(t), zerolog.Nop())
	mp := sweepModelPoint()
	coeffs := domain.DefaultLoadingCoefficients()

	probe, err := sweeper.SweepPTM(context.Background(), mp, coeffs, PTMSettings{
		Start: 1.00, End: 1.05, Step: 0.01, IRRThreshold: -1,
	})
	require.NoError(t, err)
	require.Len(t, probe.Points, 6)

	// A threshold between the IRRs at r=1.03 and r=1.04 makes 1.04
	// the first qualifying multiplier.
	threshold := (probe.Points[3].IRR.Rate + probe.Points[4].IRR.Rate) / 2
	result, err := sweeper.SweepPTM(context.Background(), mp, coeffs, PTMSettings{
		Start: 1.00, End: 1.05, Step: 0.01, IRRThreshold: threshold,
	})
	require.NoError(t, err)
	assert.True(t, result.Found)
	assert.Equal(t, 1.04, result.MinQualifying)
}

func TestSweepPTMNotFound(t *testing.T) {
	sweeper := NewSweeper(testEngine(t), zerolog.Nop())

	result, err := sweeper.SweepPTM(context.Background(), sweepModelPoint(), domain.DefaultLoadingCoefficients(), PTMSettings{
		Start: 1.00, End: 1.05, Step: 0.01, IRRThreshold: 10.0,
	})
	require.NoError(t, err)
	assert.False(t, result.Found)
	assert.Equal(t, 0.0, result.MinQualifying)
	assert.Len(t, result.Points, 6, "the full grid is still recorded")
}

func TestSweepPTMCancelled(t *testing.T) {
	sweeper := NewSweeper(testEngine(t), zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result, err := sweeper.SweepPTM(ctx, sweepModelPoint(), domain.DefaultLoadingCoefficients(), PTMSettings{
		Start: 1.00, End: 1.05, Step: 0.01, IRRThreshold: -1,
	})
	require.NoError(t, err)
	assert.True(t, result.Truncated)
	assert.Empty(t, result.Points)
}

func TestSweepAllWithGates(t *testing.T) {
	sweeper := NewSweeper(testEngine(t), zerolog.Nop())
	mp := sweepModelPoint()
	coeffs := domain.DefaultLoadingCoefficients()
	settings := PTMSettings{Start: 1.00, End: 1.05, Step: 0.01, IRRThreshold: -1}

	probe, err := sweeper.SweepPTM(context.Background(), mp, coeffs, settings)
	require.NoError(t, err)

	// An NBV floor between the values at r=1.01 and r=1.02 pushes the
	// minimum qualifying multiplier up to 1.02.
	gates := OpenGates()
	gates.NBVFloor = (probe.Points[1].NBV + probe.Points[2].NBV) / 2

	results, err := sweeper.SweepAll(context.Background(), []domain.ModelPoint{mp}, coeffs, settings, gates)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Found)
	assert.Equal(t, 1.02, results[0].MinQualifying)
}
