package calculation

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/otacake/pricing-automation/internal/domain"
	"github.com/otacake/pricing-automation/internal/tables"
)

// Default assumption values for the standard profit-test basis.
const (
	DefaultValuationRate = 0.0025
	DefaultLapseRate     = 0.03
)

// Assumptions is the immutable assumption set a profit test runs
// under: pricing basis, valuation basis, experience decrements and the
// discount curve.
type Assumptions struct {
	PricingRate     float64
	ValuationRate   float64
	LapseRate       float64
	PricingTable    *tables.MortalityTable
	ExperienceTable *tables.MortalityTable
	Curve           *tables.YieldCurve
}

// Validate checks the assumption set preconditions.
func (a Assumptions) Validate() error {
	if a.PricingTable == nil {
		return domain.Invalidf("pricing mortality table is required")
	}
	if a.ExperienceTable == nil {
		return domain.Invalidf("experience mortality table is required")
	}
	if a.Curve == nil {
		return domain.Invalidf("discount curve is required")
	}
	if a.LapseRate < 0 || a.LapseRate > 1 {
		return domain.Invalidf("lapse rate out of range: %g", a.LapseRate)
	}
	return nil
}

// ProfitTestEngine projects yearly cashflows for model points and
// derives IRR, NBV, loading surplus and premium-to-maturity. Every
// evaluation is a pure function of (model point, coefficients,
// assumptions); the engine holds no mutable state between runs.
type ProfitTestEngine struct {
	assumptions Assumptions
	expenses    ExpenseModel
	log         zerolog.Logger

	// KeepCashflows retains the full per-year series on each result.
	KeepCashflows bool
	// Parallel fans per-model-point evaluations out across
	// goroutines in RunBatch. Results keep input order, so the
	// downstream reduction stays deterministic.
	Parallel bool
}

// NewProfitTestEngine builds an engine over one assumption set and one
// expense model.
func NewProfitTestEngine(assumptions Assumptions, expenses ExpenseModel, log zerolog.Logger) (*ProfitTestEngine, error) {
	if err := assumptions.Validate(); err != nil {
		return nil, err
	}
	if expenses == nil {
		return nil, domain.Invalidf("expense model is required")
	}
	return &ProfitTestEngine{assumptions: assumptions, expenses: expenses, log: log}, nil
}

// Assumptions returns the engine's assumption set.
func (e *ProfitTestEngine) Assumptions() Assumptions { return e.assumptions }

// ExpenseModel returns the engine's expense model.
func (e *ProfitTestEngine) ExpenseModel() ExpenseModel { return e.expenses }

// WithAssumptions returns a new engine sharing the expense model but
// running under a different assumption set. Shock sweeps use this to
// perturb one input at a time.
func (e *ProfitTestEngine) WithAssumptions(assumptions Assumptions) (*ProfitTestEngine, error) {
	engine, err := NewProfitTestEngine(assumptions, e.expenses, e.log)
	if err != nil {
		return nil, err
	}
	engine.KeepCashflows = e.KeepCashflows
	engine.Parallel = e.Parallel
	return engine, nil
}

// WithExpenseModel returns a new engine with the expense model
// replaced.
func (e *ProfitTestEngine) WithExpenseModel(expenses ExpenseModel) (*ProfitTestEngine, error) {
	engine, err := NewProfitTestEngine(e.assumptions, expenses, e.log)
	if err != nil {
		return nil, err
	}
	engine.KeepCashflows = e.KeepCashflows
	engine.Parallel = e.Parallel
	return engine, nil
}

// Run prices and projects one model point under the engine's
// assumptions.
func (e *ProfitTestEngine) Run(mp domain.ModelPoint, coeffs domain.LoadingCoefficients) (*domain.ProfitTestResult, error) {
	return e.run(mp, coeffs, nil)
}

// RunWithPremium projects one model point with the gross annual
// premium overridden, keeping the rated net premium. Sweeps use this
// to scale premium income without touching the loading functions.
func (e *ProfitTestEngine) RunWithPremium(mp domain.ModelPoint, coeffs domain.LoadingCoefficients, grossAnnual decimal.Decimal) (*domain.ProfitTestResult, error) {
	return e.run(mp, coeffs, &grossAnnual)
}

// RunBatch evaluates every model point. Per-point numerical failures
// are recorded on the individual results; only fatal input errors
// abort the batch. When Parallel is set the evaluations fan out and
// join back in input order.
func (e *ProfitTestEngine) RunBatch(ctx context.Context, points []domain.ModelPoint, coeffs domain.LoadingCoefficients) ([]*domain.ProfitTestResult, error) {
	results := make([]*domain.ProfitTestResult, len(points))
	if !e.Parallel {
		for i, mp := range points {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			result, err := e.Run(mp, coeffs)
			if err != nil {
				return nil, fmt.Errorf("profit test for %s: %w", mp.Label(), err)
			}
			results[i] = result
		}
		return results, nil
	}

	var wg sync.WaitGroup
	errs := make([]error, len(points))
	for i, mp := range points {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		go func(i int, mp domain.ModelPoint) {
			defer wg.Done()
			result, err := e.Run(mp, coeffs)
			if err != nil {
				errs[i] = fmt.Errorf("profit test for %s: %w", mp.Label(), err)
				return
			}
			results[i] = result
		}(i, mp)
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

func (e *ProfitTestEngine) run(mp domain.ModelPoint, coeffs domain.LoadingCoefficients, premiumOverride *decimal.Decimal) (*domain.ProfitTestResult, error) {
	if err := mp.Validate(); err != nil {
		return nil, err
	}
	a := e.assumptions

	loadings := Loadings(mp, coeffs)
	benefit, annuity, err := EndowmentFactors(a.PricingTable, mp.Sex, mp.IssueAge, mp.TermYears, mp.PremiumPayingYears, a.PricingRate)
	if err != nil {
		return nil, err
	}
	quote, err := Premium(mp, benefit, annuity, loadings)
	if err != nil {
		return nil, err
	}

	grossAnnual := quote.GrossAnnualPremium.InexactFloat64()
	if premiumOverride != nil {
		grossAnnual = premiumOverride.InexactFloat64()
		quote.GrossAnnualPremium = *premiumOverride
		quote.MonthlyPremium = premiumOverride.Div(decimal.NewFromInt(12)).RoundBank(0)
		quote.LoadingPositive = premiumOverride.GreaterThan(quote.NetAnnualPremium)
	}
	netAnnual := quote.NetAnnualPremium.InexactFloat64()

	_, surrValues, _, err := ReserveFactors(a.PricingTable, mp.Sex, mp.IssueAge, mp.TermYears, mp.PremiumPayingYears, a.PricingRate, loadings.Alpha)
	if err != nil {
		return nil, err
	}
	valReserves, _, _, err := ReserveFactors(a.PricingTable, mp.Sex, mp.IssueAge, mp.TermYears, mp.PremiumPayingYears, a.ValuationRate, loadings.Alpha)
	if err != nil {
		return nil, err
	}
	forwards, err := a.Curve.ForwardRates(mp.TermYears)
	if err != nil {
		return nil, err
	}

	sumAssured := float64(mp.SumAssured)
	opening := 1.0
	netCFs := make([]float64, 0, mp.TermYears)
	var cashflows []domain.CashflowYear
	if e.KeepCashflows {
		cashflows = make([]domain.CashflowYear, 0, mp.TermYears)
	}
	var nbv, pvLoading, pvExpense float64

	for t := 0; t < mp.TermYears; t++ {
		q, err := a.ExperienceTable.Q(mp.Sex, mp.IssueAge+t)
		if err != nil {
			return nil, err
		}
		// Each decrement is halved for exposure to the other.
		deathRate := q * (1.0 - a.LapseRate/2.0)
		lapseRate := a.LapseRate * (1.0 - q/2.0)
		closing := opening * (1.0 - deathRate - lapseRate)

		spotRate, err := a.Curve.Spot(t + 1)
		if err != nil {
			return nil, err
		}
		forward := forwards[t]
		premiumYear := t < mp.PremiumPayingYears

		var premiumIncome, netPremiumIncome float64
		if premiumYear {
			premiumIncome = grossAnnual * opening
			netPremiumIncome = netAnnual * opening
		}
		loadingIncome := premiumIncome - netPremiumIncome

		var deathBenefit, surrenderBenefit float64
		if premiumYear {
			deathBenefit = opening * deathRate * sumAssured
			surrenderBenefit = opening * lapseRate * (surrValues[t] + surrValues[t+1]) / 2.0 * sumAssured
		}
		var maturityBenefit float64
		if t == mp.TermYears-1 {
			// Terminal year: maturity benefit on the closing
			// in-force, which then drops to zero.
			maturityBenefit = closing * sumAssured
		}

		expenses := e.expenses.Expenses(t, opening, premiumIncome, mp, loadings)
		totalExpense := expenses.Total()

		var reserveChange, investmentIncome float64
		if premiumYear {
			reserveChange = sumAssured * (closing*valReserves[t+1] - opening*valReserves[t])
			investmentIncome = (opening*valReserves[t]*sumAssured+premiumIncome-totalExpense)*forward -
				(deathBenefit+surrenderBenefit)*(math.Sqrt(1.0+forward)-1.0)
		}

		netCF := premiumIncome + investmentIncome -
			(deathBenefit + surrenderBenefit + totalExpense + reserveChange)
		netCFs = append(netCFs, netCF)

		df := math.Pow(1.0/(1.0+spotRate), float64(t+1))
		nbv += netCF * df
		pvLoading += loadingIncome * df
		pvExpense += totalExpense * df

		if e.KeepCashflows {
			cashflows = append(cashflows, domain.CashflowYear{
				Year:               t,
				OpeningInforce:     opening,
				ClosingInforce:     closing,
				DeathRate:          deathRate,
				LapseRate:          lapseRate,
				PremiumIncome:      premiumIncome,
				NetPremiumIncome:   netPremiumIncome,
				LoadingIncome:      loadingIncome,
				InvestmentIncome:   investmentIncome,
				DeathBenefit:       deathBenefit,
				SurrenderBenefit:   surrenderBenefit,
				MaturityBenefit:    maturityBenefit,
				AcquisitionExpense: expenses.Acquisition,
				MaintenanceExpense: expenses.Maintenance,
				CollectionExpense:  expenses.Collection,
				TotalExpense:       totalExpense,
				ReserveChange:      reserveChange,
				NetCashflow:        netCF,
				SpotRate:           spotRate,
				ForwardRate:        forward,
				DiscountFactor:     df,
				PresentValue:       netCF * df,
				PVLoading:          loadingIncome * df,
				PVExpense:          totalExpense * df,
			})
		}
		opening = closing
	}

	irr := InternalRateOfReturn(netCFs)
	if !irr.Converged {
		e.log.Warn().
			Str("model_point", mp.Label()).
			Str("reason", irr.Reason).
			Msg("IRR root not found")
	}

	loadingSurplus := pvLoading - pvExpense
	premiumTotal := grossAnnual * float64(mp.PremiumPayingYears)
	return &domain.ProfitTestResult{
		ModelPoint:          mp,
		Coefficients:        coeffs,
		Loadings:            loadings,
		Premiums:            quote,
		Cashflows:           cashflows,
		IRR:                 irr,
		NewBusinessValue:    nbv,
		PVLoading:           pvLoading,
		PVExpense:           pvExpense,
		LoadingSurplus:      loadingSurplus,
		LoadingSurplusRatio: loadingSurplus / sumAssured,
		PremiumTotal:        premiumTotal,
		PremiumToMaturity:   premiumTotal / sumAssured,
	}, nil
}
