// Package constraint classifies model points and scores hard
// constraint slack against profit-test results.
package constraint

import (
	"math"

	"github.com/rs/zerolog"

	"github.com/otacake/pricing-automation/internal/domain"
)

// Hard constraint names as reported in ConstraintStatus and logs.
const (
	NameAlphaNonNegative      = "alpha_non_negative"
	NameBetaNonNegative       = "beta_non_negative"
	NameGammaNonNegative      = "gamma_non_negative"
	NameLoadingPositive       = "loading_positive"
	NameIRRFloor              = "irr_floor"
	NameNBVFloor              = "nbv_floor"
	NameLoadingSurplusRatio   = "loading_surplus_ratio_floor"
	NamePremiumToMaturityCeil = "premium_to_maturity_ceiling"
)

// Bounds are the hard constraint levels every active model point must
// clear.
type Bounds struct {
	IRRFloor                 float64
	NBVFloor                 float64
	LoadingSurplusRatioFloor float64
	PremiumToMaturityCeiling float64
}

// DefaultBounds mirror the standard pricing governance levels.
func DefaultBounds() Bounds {
	return Bounds{
		IRRFloor:                 0.07,
		NBVFloor:                 0.0,
		LoadingSurplusRatioFloor: -0.10,
		PremiumToMaturityCeiling: 1.05,
	}
}

// Lists carry the explicit watch and exempt classifications. Exempt
// entries require a recorded rationale.
type Lists struct {
	Watch  []string
	Exempt map[string]string
}

// Evaluator classifies model points and computes signed slack for
// every hard constraint.
type Evaluator struct {
	bounds Bounds
	watch  map[string]struct{}
	exempt map[string]string
	log    zerolog.Logger
}

// NewEvaluator builds an evaluator. Exempt entries without a rationale
// are a fatal input error; visibility without justification is not a
// valid governance state.
func NewEvaluator(bounds Bounds, lists Lists, log zerolog.Logger) (*Evaluator, error) {
	watch := make(map[string]struct{}, len(lists.Watch))
	for _, id := range lists.Watch {
		watch[id] = struct{}{}
	}
	exempt := make(map[string]string, len(lists.Exempt))
	for id, rationale := range lists.Exempt {
		if rationale == "" {
			return nil, domain.Invalidf("exempt model point %s has no recorded rationale", id)
		}
		exempt[id] = rationale
	}
	return &Evaluator{bounds: bounds, watch: watch, exempt: exempt, log: log}, nil
}

// Bounds returns the evaluator's hard constraint levels.
func (ev *Evaluator) Bounds() Bounds { return ev.bounds }

// WithExemptions returns a copy with additional exemptions merged in,
// used when a sweep-based exemption policy widens the exempt set.
func (ev *Evaluator) WithExemptions(extra map[string]string) (*Evaluator, error) {
	merged := make(map[string]string, len(ev.exempt)+len(extra))
	for id, rationale := range ev.exempt {
		merged[id] = rationale
	}
	for id, rationale := range extra {
		merged[id] = rationale
	}
	watch := make([]string, 0, len(ev.watch))
	for id := range ev.watch {
		watch = append(watch, id)
	}
	return NewEvaluator(ev.bounds, Lists{Watch: watch, Exempt: merged}, ev.log)
}

// Classify resolves the enforcement class for a model point ID.
// Precedence: exempt list, then watch list, then active.
func (ev *Evaluator) Classify(id string) domain.Classification {
	if _, ok := ev.exempt[id]; ok {
		return domain.ClassExempt
	}
	if _, ok := ev.watch[id]; ok {
		return domain.ClassWatch
	}
	return domain.ClassActive
}

// Evaluate scores every hard constraint for every model point result.
// Watch and exempt points are fully scored for reporting, but only
// active points feed the violation count. Each point's slacks depend
// only on its own result, so reclassifying one point never changes
// another's slack.
func (ev *Evaluator) Evaluate(results []*domain.ProfitTestResult) *domain.ConstraintReport {
	report := &domain.ConstraintReport{
		Classifications: make(map[string]domain.Classification, len(results)),
		Rationales:      make(map[string]string),
	}
	for _, res := range results {
		id := res.ModelPoint.Label()
		class := ev.Classify(id)
		report.Classifications[id] = class
		if class == domain.ClassExempt {
			report.Rationales[id] = ev.exempt[id]
		}

		statuses := ev.score(res)
		report.Statuses = append(report.Statuses, statuses...)

		if class != domain.ClassActive {
			continue
		}
		violated := false
		for _, st := range statuses {
			if !st.Passed {
				violated = true
				ev.log.Debug().
					Str("model_point", id).
					Str("constraint", st.Name).
					Float64("slack", st.Slack).
					Msg("hard constraint violated")
			}
		}
		if violated {
			report.ViolationCount++
		}
	}
	return report
}

// ActiveStatuses filters a report's statuses down to active model
// points, the set the optimizer enforces.
func ActiveStatuses(report *domain.ConstraintReport) []domain.ConstraintStatus {
	out := make([]domain.ConstraintStatus, 0, len(report.Statuses))
	for _, st := range report.Statuses {
		if report.Classifications[st.ModelPointID] == domain.ClassActive {
			out = append(out, st)
		}
	}
	return out
}

func (ev *Evaluator) score(res *domain.ProfitTestResult) []domain.ConstraintStatus {
	id := res.ModelPoint.Label()
	sumAssured := float64(res.ModelPoint.SumAssured)

	irr := res.IRR.Rate
	if !res.IRR.Converged {
		// A series with no root cannot clear any profitability
		// floor; treat its IRR as unboundedly negative.
		irr = math.Inf(-1)
	}

	gross := res.Premiums.GrossAnnualPremium.InexactFloat64()
	net := res.Premiums.NetAnnualPremium.InexactFloat64()
	// Loading margin as a rate per sum assured, so slack is
	// comparable across model points of different size.
	loadingMargin := (gross - net) / sumAssured

	statuses := []domain.ConstraintStatus{
		floorStatus(NameAlphaNonNegative, id, 0, res.Loadings.Alpha),
		floorStatus(NameBetaNonNegative, id, 0, res.Loadings.Beta),
		floorStatus(NameGammaNonNegative, id, 0, res.Loadings.Gamma),
		strictFloorStatus(NameLoadingPositive, id, 0, loadingMargin),
		floorStatus(NameIRRFloor, id, ev.bounds.IRRFloor, irr),
		floorStatus(NameNBVFloor, id, ev.bounds.NBVFloor, res.NewBusinessValue),
		floorStatus(NameLoadingSurplusRatio, id, ev.bounds.LoadingSurplusRatioFloor, res.LoadingSurplusRatio),
		ceilingStatus(NamePremiumToMaturityCeil, id, ev.bounds.PremiumToMaturityCeiling, res.PremiumToMaturity),
	}
	return statuses
}

// floorStatus scores achieved >= bound; slack = achieved - bound.
func floorStatus(name, id string, bound, achieved float64) domain.ConstraintStatus {
	slack := achieved - bound
	return domain.ConstraintStatus{
		Name: name, ModelPointID: id,
		Bound: bound, Achieved: achieved,
		Slack: slack, Passed: slack >= 0,
	}
}

// strictFloorStatus scores achieved > bound; a zero margin fails.
func strictFloorStatus(name, id string, bound, achieved float64) domain.ConstraintStatus {
	slack := achieved - bound
	return domain.ConstraintStatus{
		Name: name, ModelPointID: id,
		Bound: bound, Achieved: achieved,
		Slack: slack, Passed: slack > 0,
	}
}

// ceilingStatus scores achieved <= bound; slack = bound - achieved.
func ceilingStatus(name, id string, bound, achieved float64) domain.ConstraintStatus {
	slack := bound - achieved
	return domain.ConstraintStatus{
		Name: name, ModelPointID: id,
		Bound: bound, Achieved: achieved,
		Slack: slack, Passed: slack >= 0,
	}
}
