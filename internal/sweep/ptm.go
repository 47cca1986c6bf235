// Package sweep maps feasibility boundaries by rerunning the profit
// test under premium multipliers or shocked assumptions.
package sweep

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/otacake/pricing-automation/internal/calculation"
	"github.com/otacake/pricing-automation/internal/domain"
)

// PTMSettings define one premium-to-maturity sweep: an inclusive
// multiplier range and the IRR threshold a multiplier must clear.
type PTMSettings struct {
	Start        float64
	End          float64
	Step         float64
	IRRThreshold float64
}

// Gates are the additional qualification bounds SweepAll applies when
// deciding the minimum qualifying multiplier.
type Gates struct {
	NBVFloor                 float64
	LoadingSurplusRatioFloor float64
	PremiumToMaturityCeiling float64
}

// OpenGates qualify on IRR alone.
func OpenGates() Gates {
	return Gates{
		NBVFloor:                 math.Inf(-1),
		LoadingSurplusRatioFloor: math.Inf(-1),
		PremiumToMaturityCeiling: math.Inf(1),
	}
}

// PTMPoint is one sweep grid row.
type PTMPoint struct {
	R                   float64          `json:"r"`
	GrossAnnualPremium  decimal.Decimal  `json:"gross_annual_premium"`
	IRR                 domain.IRRResult `json:"irr"`
	NBV                 float64          `json:"nbv"`
	LoadingSurplus      float64          `json:"loading_surplus"`
	LoadingSurplusRatio float64          `json:"loading_surplus_ratio"`
	PremiumToMaturity   float64          `json:"premium_to_maturity"`
}

// PTMResult is the sweep outcome for one model point. Found reports
// whether any multiplier in range qualified; Truncated reports that a
// caller-imposed budget stopped the sweep early.
type PTMResult struct {
	ModelPointID  string     `json:"model_point_id"`
	Points        []PTMPoint `json:"points"`
	MinQualifying float64    `json:"min_qualifying_r"`
	Found         bool       `json:"found"`
	Truncated     bool       `json:"truncated,omitempty"`
}

// Sweeper reruns the profit test across premium multipliers.
type Sweeper struct {
	engine *calculation.ProfitTestEngine
	log    zerolog.Logger
}

// NewSweeper builds a sweeper over an engine.
func NewSweeper(engine *calculation.ProfitTestEngine, log zerolog.Logger) *Sweeper {
	return &Sweeper{engine: engine, log: log}
}

// SweepPTM scales the annual premium of one model point by each r in
// the inclusive range and records the resulting metrics. The premium
// for multiplier r is round_bank(r * sum_assured / paying_years). The
// reported minimum is the first r whose IRR meets the threshold.
func (s *Sweeper) SweepPTM(ctx context.Context, mp domain.ModelPoint, coeffs domain.LoadingCoefficients, settings PTMSettings) (*PTMResult, error) {
	return s.sweep(ctx, mp, coeffs, settings, OpenGates())
}

// SweepAll applies the sweep per model point, qualifying multipliers
// on IRR plus the supplied gates.
func (s *Sweeper) SweepAll(ctx context.Context, points []domain.ModelPoint, coeffs domain.LoadingCoefficients, settings PTMSettings, gates Gates) ([]*PTMResult, error) {
	results := make([]*PTMResult, 0, len(points))
	for _, mp := range points {
		result, err := s.sweep(ctx, mp, coeffs, settings, gates)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

func (s *Sweeper) sweep(ctx context.Context, mp domain.ModelPoint, coeffs domain.LoadingCoefficients, settings PTMSettings, gates Gates) (*PTMResult, error) {
	ratios, err := inclusiveRange(settings.Start, settings.End, settings.Step)
	if err != nil {
		return nil, err
	}

	result := &PTMResult{ModelPointID: mp.Label()}
	for _, r := range ratios {
		if ctx.Err() != nil {
			// Budget exhausted: stop issuing evaluations and
			// return what was found so far.
			result.Truncated = true
			s.log.Warn().Str("model_point", result.ModelPointID).Msg("sweep cancelled, returning partial grid")
			break
		}
		gross := decimal.NewFromFloat(r * float64(mp.SumAssured) / float64(mp.PremiumPayingYears)).RoundBank(0)
		res, err := s.engine.RunWithPremium(mp, coeffs, gross)
		if err != nil {
			return nil, fmt.Errorf("sweep r=%.4f for %s: %w", r, mp.Label(), err)
		}

		point := PTMPoint{
			R:                   r,
			GrossAnnualPremium:  gross,
			IRR:                 res.IRR,
			NBV:                 res.NewBusinessValue,
			LoadingSurplus:      res.LoadingSurplus,
			LoadingSurplusRatio: res.LoadingSurplusRatio,
			PremiumToMaturity:   res.PremiumToMaturity,
		}
		result.Points = append(result.Points, point)

		if !result.Found && qualifies(point, settings.IRRThreshold, gates) {
			result.MinQualifying = r
			result.Found = true
		}
	}
	return result, nil
}

func qualifies(p PTMPoint, irrThreshold float64, gates Gates) bool {
	return p.IRR.Converged &&
		p.IRR.Rate >= irrThreshold &&
		p.NBV >= gates.NBVFloor &&
		p.LoadingSurplusRatio >= gates.LoadingSurplusRatioFloor &&
		p.PremiumToMaturity <= gates.PremiumToMaturityCeiling
}

// inclusiveRange enumerates start..end in step increments. The end
// point is included within a small epsilon so grid boundaries are
// never dropped by accumulation error.
func inclusiveRange(start, end, step float64) ([]float64, error) {
	if step <= 0 {
		return nil, domain.Invalidf("sweep step must be positive, got %g", step)
	}
	if end < start {
		return nil, domain.Invalidf("sweep range is empty: start %g exceeds end %g", start, end)
	}
	values := make([]float64, 0, int((end-start)/step)+1)
	for i := 0; ; i++ {
		r := start + float64(i)*step
		if r > end+1e-12 {
			break
		}
		// Snap to 10 decimals so the grid values themselves stay
		// reproducible.
		values = append(values, math.Round(r*1e10)/1e10)
	}
	return values, nil
}
