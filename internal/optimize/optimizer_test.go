package optimize

import (
	"context"
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otacake/pricing-automation/internal/calculation"
	"github.com/otacake/pricing-automation/internal/constraint"
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

func testPoints() []domain.ModelPoint {
	return []domain.ModelPoint{
		{ID: "m30_t10", Sex: domain.SexMale, IssueAge: 30, TermYears: 10, PremiumPayingYears: 10, SumAssured: 10000000},
		{ID: "f40_t15", Sex: domain.SexFemale, IssueAge: 40, TermYears: 15, PremiumPayingYears: 15, SumAssured: 10000000},
	}
}

// testSettings keep the grid small enough for unit tests.
func testSettings() Settings {
	return Settings{
		Stages: []Stage{
			{Name: "base", Coefficients: []domain.CoefficientName{domain.CoefA0, domain.CoefB0, domain.CoefG0}},
		},
		Bounds: map[domain.CoefficientName]Bound{
			domain.CoefA0: {Min: 0, Max: 0.06, Steps: []float64{0.01}},
			domain.CoefB0: {Min: 0, Max: 0.014, Steps: []float64{0.002}},
			domain.CoefG0: {Min: 0, Max: 0.06, Steps: []float64{0.01}},
		},
		Objective:             ObjectiveMaxMinIRR,
		MaxIterationsPerStage: 500,
		MaxPasses:             10,
	}
}

// openBounds disable every metric floor so only the structural
// loading constraints bind.
func openBounds() constraint.Bounds {
	return constraint.Bounds{
		IRRFloor:                 math.Inf(-1),
		NBVFloor:                 math.Inf(-1),
		LoadingSurplusRatioFloor: math.Inf(-1),
		PremiumToMaturityCeiling: math.Inf(1),
	}
}

func newOptimizer(t *testing.T, bounds constraint.Bounds) *Optimizer {
	t.Helper()
	evaluator, err := constraint.NewEvaluator(bounds, constraint.Lists{}, zerolog.Nop())
	require.NoError(t, err)
	return New(testEngine(t), evaluator, testSettings(), zerolog.Nop())
}

func TestRunImprovesObjectiveFromFeasibleStart(t *testing.T) {
	opt := newOptimizer(t, openBounds())
	initial := domain.DefaultLoadingCoefficients()

	result, err := opt.Run(context.Background(), testPoints(), initial)
	require.NoError(t, err)

	assert.True(t, result.Feasible)
	assert.Empty(t, result.Unresolved)
	require.NotEmpty(t, result.Results)

	// The reported objective is the minimum IRR across active points.
	minIRR := math.Inf(1)
	for _, res := range result.Results {
		require.True(t, res.IRR.Converged)
		if res.IRR.Rate < minIRR {
			minIRR = res.IRR.Rate
		}
	}
	assert.InDelta(t, minIRR, result.Objective, 1e-15)

	// Raising loadings raises premiums, so the search should have
	// found at least one improving move.
	assert.NotEmpty(t, result.Trace)
}

func TestRunDeterministic(t *testing.T) {
	initial := domain.DefaultLoadingCoefficients()

	first, err := newOptimizer(t, openBounds()).Run(context.Background(), testPoints(), initial)
	require.NoError(t, err)
	second, err := newOptimizer(t, openBounds()).Run(context.Background(), testPoints(), initial)
	require.NoError(t, err)

	assert.Equal(t, first.Coefficients, second.Coefficients)
	assert.Equal(t, first.Objective, second.Objective)
	assert.Equal(t, first.Iterations, second.Iterations)
	assert.Equal(t, first.Trace, second.Trace)
}

func TestRunTraceIsMonotone(t *testing.T) {
	result, err := newOptimizer(t, openBounds()).Run(context.Background(), testPoints(), domain.DefaultLoadingCoefficients())
	require.NoError(t, err)
	require.NotEmpty(t, result.Trace)

	prevViolations := math.MaxInt32
	prevObjective := math.Inf(-1)
	for _, step := range result.Trace {
		if step.Violations == prevViolations {
			assert.Greater(t, step.Objective, prevObjective, "tied violation counts require strict objective gain")
		} else {
			assert.Less(t, step.Violations, prevViolations, "violations never increase along accepted moves")
		}
		prevViolations = step.Violations
		prevObjective = step.Objective

		bound := testSettings().Bounds[step.Coefficient]
		assert.GreaterOrEqual(t, step.Value, bound.Min)
		assert.LessOrEqual(t, step.Value, bound.Max)
	}
}

func TestRunUnattainableFloor(t *testing.T) {
	bounds := constraint.DefaultBounds()
	bounds.IRRFloor = 0.99

	result, err := newOptimizer(t, bounds).Run(context.Background(), testPoints(), domain.DefaultLoadingCoefficients())
	require.NoError(t, err, "an infeasible search is a reported outcome, not an error")

	assert.False(t, result.Feasible)
	require.NotEmpty(t, result.Unresolved)
	found := false
	for _, st := range result.Unresolved {
		if st.Name == constraint.NameIRRFloor {
			found = true
			assert.Less(t, st.Slack, 0.0)
		}
	}
	assert.True(t, found, "the impossible floor is listed as unresolved")
}

func TestRunClampsInitialCoefficients(t *testing.T) {
	initial := domain.LoadingCoefficients{A0: 5.0, B0: -1.0, G0: 0.03}

	result, err := newOptimizer(t, openBounds()).Run(context.Background(), testPoints(), initial)
	require.NoError(t, err)

	bounds := testSettings().Bounds
	assert.LessOrEqual(t, result.Coefficients.A0, bounds[domain.CoefA0].Max)
	assert.GreaterOrEqual(t, result.Coefficients.B0, bounds[domain.CoefB0].Min)
}

func TestRunCancelledReturnsBestSoFar(t *testing.T) {
	opt := newOptimizer(t, openBounds())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := opt.Run(ctx, testPoints(), domain.DefaultLoadingCoefficients())
	// Cancellation before the first evaluation has nothing to return.
	require.Error(t, err)
}

func TestWatchPointExcludedFromObjective(t *testing.T) {
	evaluator, err := constraint.NewEvaluator(openBounds(), constraint.Lists{Watch: []string{"f40_t15"}}, zerolog.Nop())
	require.NoError(t, err)
	opt := New(testEngine(t), evaluator, testSettings(), zerolog.Nop())

	result, err := opt.Run(context.Background(), testPoints(), domain.DefaultLoadingCoefficients())
	require.NoError(t, err)

	var activeIRR float64
	for _, res := range result.Results {
		if res.ModelPoint.ID == "m30_t10" {
			activeIRR = res.IRR.Rate
		}
	}
	assert.InDelta(t, activeIRR, result.Objective, 1e-15, "objective tracks the active point only")
}
