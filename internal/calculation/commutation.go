package calculation

import (
	"math"

	"github.com/otacake/pricing-automation/internal/domain"
	"github.com/otacake/pricing-automation/internal/tables"
)

// SurvivalProbabilities builds p[x:t] for t = 0..years with p[x:0] = 1
// and p[x:t+1] = p[x:t] * (1 - q[x+t]). A missing age is a fatal input
// error.
func SurvivalProbabilities(table *tables.MortalityTable, sex domain.Sex, issueAge, years int) ([]float64, error) {
	if years < 0 {
		return nil, domain.Invalidf("survival horizon must be non-negative, got %d", years)
	}
	probs := make([]float64, 1, years+1)
	probs[0] = 1.0
	for t := 0; t < years; t++ {
		q, err := table.Q(sex, issueAge+t)
		if err != nil {
			return nil, err
		}
		probs = append(probs, probs[t]*(1.0-q))
	}
	return probs, nil
}

// EndowmentFactors computes the present-value building blocks for an
// endowment at the given interest rate:
//
//	A = sum v^(t+0.5) * p[t] * q[x+t]  (mid-year death benefit)
//	  + v^n * p[n]                     (end-of-year maturity benefit)
//	a = sum v^t * p[t]                 (annuity due over paying years)
//
// A zero term degenerates to A=1, a=0, matching the terminal reserve.
func EndowmentFactors(table *tables.MortalityTable, sex domain.Sex, issueAge, termYears, payingYears int, rate float64) (benefit, annuity float64, err error) {
	if termYears < 0 || payingYears < 0 {
		return 0, 0, domain.Invalidf("term and paying years must be non-negative")
	}
	if termYears == 0 {
		return 1.0, 0.0, nil
	}

	horizon := termYears
	if payingYears > horizon {
		horizon = payingYears
	}
	probs, err := SurvivalProbabilities(table, sex, issueAge, horizon)
	if err != nil {
		return 0, 0, err
	}
	v := 1.0 / (1.0 + rate)

	deathPV := 0.0
	for t := 0; t < termYears; t++ {
		q, err := table.Q(sex, issueAge+t)
		if err != nil {
			return 0, 0, err
		}
		deathPV += math.Pow(v, float64(t)+0.5) * probs[t] * q
	}
	maturityPV := math.Pow(v, float64(termYears)) * probs[termYears]
	benefit = deathPV + maturityPV

	for t := 0; t < payingYears; t++ {
		annuity += math.Pow(v, float64(t)) * probs[t]
	}
	return benefit, annuity, nil
}

// ReserveFactors builds the net premium reserve series tV and the
// surrender value series tW for t = 0..term:
//
//	tV = A(x+t : n-t) - net_rate * a(x+t : n-t)
//	tW = max(tV - ((10 - min(t,10)) / 10) * alpha, 0)
func ReserveFactors(table *tables.MortalityTable, sex domain.Sex, issueAge, termYears, payingYears int, rate, alpha float64) (tV, tW []float64, netRate float64, err error) {
	benefit0, annuity0, err := EndowmentFactors(table, sex, issueAge, termYears, payingYears, rate)
	if err != nil {
		return nil, nil, 0, err
	}
	if annuity0 <= 0 {
		return nil, nil, 0, domain.Invalidf("premium annuity factor must be positive")
	}
	netRate = benefit0 / annuity0

	tV = make([]float64, 0, termYears+1)
	tW = make([]float64, 0, termYears+1)
	for t := 0; t <= termYears; t++ {
		remainingTerm := termYears - t
		remainingPaying := payingYears - t
		if remainingPaying < 0 {
			remainingPaying = 0
		}
		benefitT, annuityT, err := EndowmentFactors(table, sex, issueAge+t, remainingTerm, remainingPaying, rate)
		if err != nil {
			return nil, nil, 0, err
		}
		reserve := benefitT - netRate*annuityT
		tV = append(tV, reserve)

		surrenderAdj := float64(10-min(t, 10)) / 10.0
		tW = append(tW, math.Max(reserve-surrenderAdj*alpha, 0.0))
	}
	return tV, tW, netRate, nil
}
