package calculation

import (
	"github.com/shopspring/decimal"

	"github.com/otacake/pricing-automation/internal/domain"
)

const (
	// Loading functions are centered so the base coefficients apply
	// unchanged to a 30-year-old, 10-year-term male point.
	loadingAgePivot  = 30
	loadingTermPivot = 10

	gammaFloor   = 0.0
	gammaCeiling = 0.5
)

// Loadings evaluates the alpha/beta/gamma loading functions for one
// model point. Alpha and beta are affine in (issue_age-30),
// (term_years-10) and a female indicator; gamma is affine in the term
// offset and clamped to [0, 0.5].
func Loadings(mp domain.ModelPoint, c domain.LoadingCoefficients) domain.LoadingValues {
	ageOffset := float64(mp.IssueAge - loadingAgePivot)
	termOffset := float64(mp.TermYears - loadingTermPivot)
	sexIndicator := 0.0
	if mp.Sex == domain.SexFemale {
		sexIndicator = 1.0
	}

	alpha := c.A0 + c.AAge*ageOffset + c.ATerm*termOffset + c.ASex*sexIndicator
	beta := c.B0 + c.BAge*ageOffset + c.BTerm*termOffset + c.BSex*sexIndicator
	gamma := c.G0 + c.GTerm*termOffset
	if gamma < gammaFloor {
		gamma = gammaFloor
	}
	if gamma > gammaCeiling {
		gamma = gammaCeiling
	}
	return domain.LoadingValues{Alpha: alpha, Beta: beta, Gamma: gamma}
}

// Premium converts the present-value factors and loadings into premium
// rates and rounded annual premiums:
//
//	net_rate   = A / a
//	gross_rate = (net_rate + alpha/a + beta) / (1 - gamma)
//
// Annual premiums are rate times sum assured, rounded to the currency
// unit with banker's rounding. A gross premium that does not exceed
// the net premium is reported through LoadingPositive=false, not an
// error; the constraint evaluator owns that decision.
func Premium(mp domain.ModelPoint, benefitFactor, annuityFactor float64, lv domain.LoadingValues) (domain.PremiumQuote, error) {
	if annuityFactor <= 0 {
		return domain.PremiumQuote{}, domain.Invalidf("model point %s: premium annuity factor must be positive", mp.Label())
	}
	if lv.Gamma >= 1.0 {
		return domain.PremiumQuote{}, domain.Invalidf("model point %s: gamma %g leaves no premium margin", mp.Label(), lv.Gamma)
	}

	netRate := benefitFactor / annuityFactor
	grossRate := (netRate + lv.Alpha/annuityFactor + lv.Beta) / (1.0 - lv.Gamma)

	netAnnual := roundCurrency(netRate * float64(mp.SumAssured))
	grossAnnual := roundCurrency(grossRate * float64(mp.SumAssured))
	monthly := grossAnnual.Div(decimal.NewFromInt(12)).RoundBank(0)

	return domain.PremiumQuote{
		BenefitFactor:      benefitFactor,
		AnnuityFactor:      annuityFactor,
		NetRate:            netRate,
		GrossRate:          grossRate,
		NetAnnualPremium:   netAnnual,
		GrossAnnualPremium: grossAnnual,
		MonthlyPremium:     monthly,
		LoadingPositive:    grossAnnual.GreaterThan(netAnnual),
	}, nil
}

// roundCurrency rounds to the nearest currency unit with banker's
// rounding.
func roundCurrency(amount float64) decimal.Decimal {
	return decimal.NewFromFloat(amount).RoundBank(0)
}
