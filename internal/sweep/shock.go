package sweep

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/otacake/pricing-automation/internal/calculation"
	"github.com/otacake/pricing-automation/internal/constraint"
	"github.com/otacake/pricing-automation/internal/domain"
)

// Shock is one assumption perturbation scenario. A factor of 1 leaves
// that input untouched; 1.1 and 0.9 are the common ±10% stresses.
type Shock struct {
	Name           string  `yaml:"name" json:"name"`
	InterestFactor float64 `yaml:"interest_factor" json:"interest_factor"`
	LapseFactor    float64 `yaml:"lapse_factor" json:"lapse_factor"`
	ExpenseFactor  float64 `yaml:"expense_factor" json:"expense_factor"`
}

// DefaultShocks are the standard ±10% single-input stresses.
func DefaultShocks() []Shock {
	return []Shock{
		{Name: "interest_up", InterestFactor: 1.1, LapseFactor: 1, ExpenseFactor: 1},
		{Name: "interest_down", InterestFactor: 0.9, LapseFactor: 1, ExpenseFactor: 1},
		{Name: "lapse_up", InterestFactor: 1, LapseFactor: 1.1, ExpenseFactor: 1},
		{Name: "lapse_down", InterestFactor: 1, LapseFactor: 0.9, ExpenseFactor: 1},
		{Name: "expense_up", InterestFactor: 1, LapseFactor: 1, ExpenseFactor: 1.1},
		{Name: "expense_down", InterestFactor: 1, LapseFactor: 1, ExpenseFactor: 0.9},
	}
}

// ShockResult is the constraint picture under one shocked assumption
// set, holding coefficients fixed.
type ShockResult struct {
	Shock          Shock                      `json:"shock"`
	WorstIRR       float64                    `json:"worst_irr"`
	MeanIRR        float64                    `json:"mean_irr"`
	WorstNBV       float64                    `json:"worst_nbv"`
	WorstPTM       float64                    `json:"worst_premium_to_maturity"`
	ViolationCount int                        `json:"violation_count"`
	Statuses       []domain.ConstraintStatus  `json:"statuses"`
	Results        []*domain.ProfitTestResult `json:"results,omitempty"`
}

// ShockSweep reruns the full profit test and constraint evaluation
// under each shock, reporting worst-case metrics per scenario. It
// bounds confidence in a chosen coefficient set without re-optimizing.
func (s *Sweeper) ShockSweep(ctx context.Context, points []domain.ModelPoint, coeffs domain.LoadingCoefficients, shocks []Shock, evaluator *constraint.Evaluator) ([]ShockResult, error) {
	out := make([]ShockResult, 0, len(shocks))
	for _, shock := range shocks {
		if err := ctx.Err(); err != nil {
			return out, nil
		}
		engine, err := s.shockedEngine(shock)
		if err != nil {
			return nil, fmt.Errorf("shock %s: %w", shock.Name, err)
		}
		results, err := engine.RunBatch(ctx, points, coeffs)
		if err != nil {
			return nil, fmt.Errorf("shock %s: %w", shock.Name, err)
		}
		report := evaluator.Evaluate(results)

		irrs := make([]float64, 0, len(results))
		nbvs := make([]float64, 0, len(results))
		ptms := make([]float64, 0, len(results))
		for _, res := range results {
			if res.IRR.Converged {
				irrs = append(irrs, res.IRR.Rate)
			}
			nbvs = append(nbvs, res.NewBusinessValue)
			ptms = append(ptms, res.PremiumToMaturity)
		}

		result := ShockResult{
			Shock:          shock,
			ViolationCount: report.ViolationCount,
			Statuses:       report.Statuses,
			Results:        results,
		}
		if len(irrs) > 0 {
			result.WorstIRR = floats.Min(irrs)
			result.MeanIRR = stat.Mean(irrs, nil)
		}
		if len(nbvs) > 0 {
			result.WorstNBV = floats.Min(nbvs)
		}
		if len(ptms) > 0 {
			result.WorstPTM = floats.Max(ptms)
		}
		s.log.Info().
			Str("shock", shock.Name).
			Float64("worst_irr", result.WorstIRR).
			Int("violations", result.ViolationCount).
			Msg("shock scenario evaluated")
		out = append(out, result)
	}
	return out, nil
}

// shockedEngine clones the sweeper's engine with each perturbed
// input applied.
func (s *Sweeper) shockedEngine(shock Shock) (*calculation.ProfitTestEngine, error) {
	a := s.engine.Assumptions()
	if shock.InterestFactor != 1 && shock.InterestFactor != 0 {
		a.Curve = a.Curve.Scale(shock.InterestFactor)
	}
	if shock.LapseFactor != 0 {
		a.LapseRate *= shock.LapseFactor
	}
	engine, err := s.engine.WithAssumptions(a)
	if err != nil {
		return nil, err
	}
	if shock.ExpenseFactor != 1 && shock.ExpenseFactor != 0 {
		engine, err = engine.WithExpenseModel(calculation.ScaledExpenseModel{
			Inner:  engine.ExpenseModel(),
			Factor: shock.ExpenseFactor,
		})
		if err != nil {
			return nil, err
		}
	}
	return engine, nil
}
