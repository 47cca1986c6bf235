// Package optimize searches loading-coefficient space with a staged,
// deterministic coordinate descent that only accepts improving,
// constraint-respecting candidates.
package optimize

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/otacake/pricing-automation/internal/calculation"
	"github.com/otacake/pricing-automation/internal/constraint"
	"github.com/otacake/pricing-automation/internal/domain"
)

// Objective selects the scalar the search maximizes across active
// model points.
type Objective string

const (
	// ObjectiveMaxMinIRR maximizes the minimum IRR across active
	// model points.
	ObjectiveMaxMinIRR Objective = "maximize_min_irr"
)

// Stage names a subset of coefficients searched together.
type Stage struct {
	Name         string
	Coefficients []domain.CoefficientName
}

// Bound holds the box constraint and the ordered candidate step sizes
// (coarse to fine) for one coefficient.
type Bound struct {
	Min   float64
	Max   float64
	Steps []float64
}

// Settings configure the staged search.
type Settings struct {
	Stages                []Stage
	Bounds                map[domain.CoefficientName]Bound
	Objective             Objective
	MaxIterationsPerStage int
	MaxPasses             int
}

// DefaultSettings mirror the standard three-stage search: base levels
// first, then age/term slopes, then sex offsets.
func DefaultSettings() Settings {
	return Settings{
		Stages: []Stage{
			{Name: "base", Coefficients: []domain.CoefficientName{
				domain.CoefA0, domain.CoefB0, domain.CoefG0,
			}},
			{Name: "age_term", Coefficients: []domain.CoefficientName{
				domain.CoefA0, domain.CoefB0, domain.CoefG0,
				domain.CoefAAge, domain.CoefATerm,
				domain.CoefBAge, domain.CoefBTerm,
				domain.CoefGTerm,
			}},
			{Name: "sex", Coefficients: []domain.CoefficientName{
				domain.CoefA0, domain.CoefB0, domain.CoefG0,
				domain.CoefAAge, domain.CoefATerm,
				domain.CoefBAge, domain.CoefBTerm,
				domain.CoefGTerm,
				domain.CoefASex, domain.CoefBSex,
			}},
		},
		Bounds: map[domain.CoefficientName]Bound{
			domain.CoefA0:    {Min: 0, Max: 0.1, Steps: []float64{0.01, 0.002}},
			domain.CoefAAge:  {Min: -0.005, Max: 0.005, Steps: []float64{0.0025, 0.0005}},
			domain.CoefATerm: {Min: -0.005, Max: 0.005, Steps: []float64{0.0025, 0.0005}},
			domain.CoefASex:  {Min: -0.01, Max: 0.01, Steps: []float64{0.005, 0.001}},
			domain.CoefB0:    {Min: 0, Max: 0.05, Steps: []float64{0.005, 0.001}},
			domain.CoefBAge:  {Min: -0.002, Max: 0.002, Steps: []float64{0.001, 0.0002}},
			domain.CoefBTerm: {Min: -0.002, Max: 0.002, Steps: []float64{0.001, 0.0002}},
			domain.CoefBSex:  {Min: -0.01, Max: 0.01, Steps: []float64{0.005, 0.001}},
			domain.CoefG0:    {Min: 0, Max: 0.2, Steps: []float64{0.025, 0.005}},
			domain.CoefGTerm: {Min: -0.02, Max: 0.02, Steps: []float64{0.01, 0.002}},
		},
		Objective:             ObjectiveMaxMinIRR,
		MaxIterationsPerStage: 5000,
		MaxPasses:             20,
	}
}

// Optimizer wires the profit-test engine and constraint evaluator
// into a staged coefficient search.
type Optimizer struct {
	engine    *calculation.ProfitTestEngine
	evaluator *constraint.Evaluator
	settings  Settings
	log       zerolog.Logger
}

// New builds an optimizer.
func New(engine *calculation.ProfitTestEngine, evaluator *constraint.Evaluator, settings Settings, log zerolog.Logger) *Optimizer {
	if settings.Objective == "" {
		settings.Objective = ObjectiveMaxMinIRR
	}
	if settings.MaxPasses <= 0 {
		settings.MaxPasses = 20
	}
	return &Optimizer{engine: engine, evaluator: evaluator, settings: settings, log: log}
}

// evaluation is one scored candidate: the profit-test batch, the
// constraint report and the reduction the acceptance rule needs.
type evaluation struct {
	coeffs     domain.LoadingCoefficients
	results    []*domain.ProfitTestResult
	report     *domain.ConstraintReport
	objective  float64
	violations int
	satisfied  map[string]bool
}

// Run performs the staged search from the initial coefficients. For
// fixed inputs and settings the accepted trace is bit-identical across
// runs. Cancellation via ctx stops issuing candidates and returns the
// best accepted snapshot so far. An infeasible start that no move can
// repair yields Feasible=false with the unresolved violations listed,
// never an error.
func (o *Optimizer) Run(ctx context.Context, points []domain.ModelPoint, initial domain.LoadingCoefficients) (*domain.OptimizationResult, error) {
	current, err := o.evaluate(ctx, points, o.clamp(initial))
	if err != nil {
		return nil, fmt.Errorf("initial candidate evaluation: %w", err)
	}
	iterations := 1
	trace := make([]domain.OptimizationStep, 0, 32)

search:
	for pass := 0; pass < o.settings.MaxPasses; pass++ {
		acceptedInPass := false
		for _, stage := range o.settings.Stages {
			accepted, stageIters, stageTrace, err := o.runStage(ctx, points, stage, current)
			iterations += stageIters
			trace = append(trace, stageTrace...)
			if err != nil {
				if ctx.Err() != nil {
					o.log.Warn().Msg("optimization cancelled, returning best accepted candidate")
					break search
				}
				return nil, fmt.Errorf("stage %s: %w", stage.Name, err)
			}
			if accepted {
				acceptedInPass = true
			}
		}
		if !acceptedInPass {
			break
		}
	}

	result := &domain.OptimizationResult{
		Coefficients:      current.coeffs,
		Objective:         current.objective,
		Feasible:          current.violations == 0,
		Iterations:        iterations,
		Trace:             trace,
		ExemptModelPoints: current.report.Rationales,
		Results:           current.results,
		Report:            current.report,
	}
	if !result.Feasible {
		for _, st := range constraint.ActiveStatuses(current.report) {
			if !st.Passed {
				result.Unresolved = append(result.Unresolved, st)
			}
		}
	}
	o.log.Info().
		Bool("feasible", result.Feasible).
		Float64("objective", result.Objective).
		Int("iterations", result.Iterations).
		Int("accepted_moves", len(trace)).
		Msg("optimization finished")
	return result, nil
}

// runStage walks the stage's coefficients in order, trying each
// candidate delta coarse to fine, until no move is acceptable or the
// stage iteration cap is hit.
func (o *Optimizer) runStage(ctx context.Context, points []domain.ModelPoint, stage Stage, current *evaluation) (bool, int, []domain.OptimizationStep, error) {
	iterations := 0
	var trace []domain.OptimizationStep
	acceptedAny := false

	for {
		improved := false
		for _, name := range stage.Coefficients {
			bound, ok := o.settings.Bounds[name]
			if !ok {
				continue
			}
			for _, step := range bound.Steps {
				if step <= 0 {
					continue
				}
				for _, delta := range []float64{step, -step} {
					next := current.coeffs.Value(name) + delta
					if next < bound.Min || next > bound.Max {
						continue
					}
					candidate, err := o.evaluate(ctx, points, current.coeffs.With(name, next))
					if err != nil {
						return acceptedAny, iterations, trace, err
					}
					iterations++
					if o.accepts(*current, *candidate) {
						*current = *candidate
						improved = true
						acceptedAny = true
						trace = append(trace, domain.OptimizationStep{
							Stage:       stage.Name,
							Coefficient: name,
							Delta:       delta,
							Value:       next,
							Objective:   candidate.objective,
							Violations:  candidate.violations,
						})
						break
					}
					if iterations >= o.settings.MaxIterationsPerStage {
						return acceptedAny, iterations, trace, nil
					}
				}
				if improved {
					break
				}
			}
			if improved || iterations >= o.settings.MaxIterationsPerStage {
				break
			}
		}
		if !improved || iterations >= o.settings.MaxIterationsPerStage {
			return acceptedAny, iterations, trace, nil
		}
	}
}

// accepts decides whether a candidate replaces the current snapshot.
// A move must not regress any satisfied hard constraint on an active
// point, and must either repair a violation or strictly improve the
// objective. Ties on the objective are accepted only when the
// violation count drops, which keeps the search terminating.
func (o *Optimizer) accepts(current, candidate evaluation) bool {
	for key, wasSatisfied := range current.satisfied {
		if wasSatisfied && !candidate.satisfied[key] {
			return false
		}
	}
	if candidate.violations < current.violations {
		return true
	}
	if candidate.violations > current.violations {
		return false
	}
	return candidate.objective > current.objective
}

func (o *Optimizer) evaluate(ctx context.Context, points []domain.ModelPoint, coeffs domain.LoadingCoefficients) (*evaluation, error) {
	results, err := o.engine.RunBatch(ctx, points, coeffs)
	if err != nil {
		return nil, err
	}
	report := o.evaluator.Evaluate(results)

	objective := math.Inf(1)
	active := 0
	for _, res := range results {
		if report.Classifications[res.ModelPoint.Label()] != domain.ClassActive {
			continue
		}
		active++
		irr := res.IRR.Rate
		if !res.IRR.Converged {
			irr = math.Inf(-1)
		}
		if irr < objective {
			objective = irr
		}
	}
	if active == 0 {
		objective = 0
	}

	satisfied := make(map[string]bool)
	for _, st := range constraint.ActiveStatuses(report) {
		satisfied[st.Name+"|"+st.ModelPointID] = st.Passed
	}
	return &evaluation{
		coeffs:     coeffs,
		results:    results,
		report:     report,
		objective:  objective,
		violations: report.ViolationCount,
		satisfied:  satisfied,
	}, nil
}

// clamp boxes every coefficient into its configured bounds.
func (o *Optimizer) clamp(coeffs domain.LoadingCoefficients) domain.LoadingCoefficients {
	for _, name := range domain.CoefficientNames {
		bound, ok := o.settings.Bounds[name]
		if !ok {
			continue
		}
		value := coeffs.Value(name)
		if value < bound.Min {
			coeffs = coeffs.With(name, bound.Min)
		} else if value > bound.Max {
			coeffs = coeffs.With(name, bound.Max)
		}
	}
	return coeffs
}
