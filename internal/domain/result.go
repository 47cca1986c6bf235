package domain

import "github.com/shopspring/decimal"

// PremiumQuote holds rating-engine output for one model point.
// Premium amounts are rounded to the currency unit with banker's
// rounding; rates and factors stay unrounded.
type PremiumQuote struct {
	BenefitFactor      float64         `json:"benefit_factor"`
	AnnuityFactor      float64         `json:"annuity_factor"`
	NetRate            float64         `json:"net_rate"`
	GrossRate          float64         `json:"gross_rate"`
	NetAnnualPremium   decimal.Decimal `json:"net_annual_premium"`
	GrossAnnualPremium decimal.Decimal `json:"gross_annual_premium"`
	MonthlyPremium     decimal.Decimal `json:"monthly_premium"`
	// LoadingPositive signals the gross premium exceeds the net
	// premium. The constraint evaluator decides how to react; the
	// rating engine only reports it.
	LoadingPositive bool `json:"loading_positive"`
}

// CashflowYear is one projection-year row of a profit test. Amounts
// are per model point (not per unit sum assured).
type CashflowYear struct {
	Year               int     `json:"t"`
	OpeningInforce     float64 `json:"inforce_begin"`
	ClosingInforce     float64 `json:"inforce_end"`
	DeathRate          float64 `json:"death_rate"`
	LapseRate          float64 `json:"lapse_rate"`
	PremiumIncome      float64 `json:"premium_income"`
	NetPremiumIncome   float64 `json:"net_premium_income"`
	LoadingIncome      float64 `json:"loading_income"`
	InvestmentIncome   float64 `json:"investment_income"`
	DeathBenefit       float64 `json:"death_benefit"`
	SurrenderBenefit   float64 `json:"surrender_benefit"`
	MaturityBenefit    float64 `json:"maturity_benefit"`
	AcquisitionExpense float64 `json:"expenses_acq"`
	MaintenanceExpense float64 `json:"expenses_maint"`
	CollectionExpense  float64 `json:"expenses_coll"`
	TotalExpense       float64 `json:"expenses_total"`
	ReserveChange      float64 `json:"reserve_change"`
	NetCashflow        float64 `json:"net_cf"`
	SpotRate           float64 `json:"spot_rate"`
	ForwardRate        float64 `json:"forward_rate"`
	DiscountFactor     float64 `json:"spot_df"`
	PresentValue       float64 `json:"pv_net_cf"`
	PVLoading          float64 `json:"pv_loading"`
	PVExpense          float64 `json:"pv_expense"`
}

// IRRResult is the explicit outcome of the bounded bisection solver.
// A series that never brackets a root yields Converged=false rather
// than an error.
type IRRResult struct {
	Rate       float64 `json:"rate"`
	Converged  bool    `json:"converged"`
	Iterations int     `json:"iterations"`
	Reason     string  `json:"reason,omitempty"`
}

// ProfitTestResult carries the derived metrics for one
// (model point, coefficients, assumption set) evaluation. Cashflows is
// nil unless the caller asked to retain the full series.
type ProfitTestResult struct {
	ModelPoint          ModelPoint          `json:"model_point"`
	Coefficients        LoadingCoefficients `json:"coefficients"`
	Loadings            LoadingValues       `json:"loadings"`
	Premiums            PremiumQuote        `json:"premiums"`
	Cashflows           []CashflowYear      `json:"cashflows,omitempty"`
	IRR                 IRRResult           `json:"irr"`
	NewBusinessValue    float64             `json:"new_business_value"`
	PVLoading           float64             `json:"pv_loading"`
	PVExpense           float64             `json:"pv_expense"`
	LoadingSurplus      float64             `json:"loading_surplus"`
	LoadingSurplusRatio float64             `json:"loading_surplus_ratio"`
	PremiumTotal        float64             `json:"premium_total"`
	PremiumToMaturity   float64             `json:"premium_to_maturity"`
}

// Classification is the constraint-enforcement class of a model point.
type Classification string

const (
	// ClassActive points enter the optimizer objective and the
	// violation count.
	ClassActive Classification = "active"
	// ClassWatch points are evaluated and reported but excluded from
	// the objective and the violation count.
	ClassWatch Classification = "watch"
	// ClassExempt points are excluded from hard-constraint
	// enforcement; each carries a recorded rationale.
	ClassExempt Classification = "exempt"
)

// ConstraintStatus scores one hard constraint for one model point.
// Slack is signed: positive means satisfied by that margin, negative
// means violated by that margin.
type ConstraintStatus struct {
	Name         string  `json:"name"`
	ModelPointID string  `json:"model_point_id"`
	Bound        float64 `json:"bound"`
	Achieved     float64 `json:"achieved"`
	Slack        float64 `json:"slack"`
	Passed       bool    `json:"passed"`
}

// ConstraintReport aggregates per-point statuses after one evaluation.
type ConstraintReport struct {
	Statuses        []ConstraintStatus        `json:"statuses"`
	Classifications map[string]Classification `json:"classifications"`
	// Rationales records why each exempt model point is exempt.
	Rationales map[string]string `json:"rationales,omitempty"`
	// ViolationCount counts active model points with at least one
	// negative slack. Watch and exempt points never contribute.
	ViolationCount int `json:"violation_count"`
}

// OptimizationStep is one accepted move in the coefficient search.
type OptimizationStep struct {
	Stage       string          `json:"stage"`
	Coefficient CoefficientName `json:"coefficient"`
	Delta       float64         `json:"delta"`
	Value       float64         `json:"value"`
	Objective   float64         `json:"objective"`
	Violations  int             `json:"violations"`
}

// OptimizationResult is the outcome of a staged coefficient search.
// Non-convergence is not an error: Feasible is false and Unresolved
// lists the remaining violations.
type OptimizationResult struct {
	Coefficients LoadingCoefficients `json:"coefficients"`
	Objective    float64             `json:"objective"`
	Feasible     bool                `json:"feasible"`
	Iterations   int                 `json:"iterations"`
	Trace        []OptimizationStep  `json:"trace"`
	Unresolved   []ConstraintStatus  `json:"unresolved,omitempty"`
	// ExemptModelPoints maps exempted model point IDs to their
	// recorded rationale, including sweep-derived exemptions.
	ExemptModelPoints map[string]string   `json:"exempt_model_points,omitempty"`
	Results           []*ProfitTestResult `json:"results,omitempty"`
	Report            *ConstraintReport   `json:"report,omitempty"`
}
