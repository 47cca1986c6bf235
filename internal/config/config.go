// Package config loads and validates the pricing run configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/otacake/pricing-automation/internal/domain"
)

// Configuration is the full YAML run definition. It is loaded once
// and passed around as an immutable value; no component reads ambient
// state.
type Configuration struct {
	Run          RunConfig          `yaml:"run"`
	Product      ProductConfig      `yaml:"product"`
	ModelPoints  []ModelPointConfig `yaml:"model_points"`
	Pricing      PricingConfig      `yaml:"pricing"`
	Loading      *LoadingConfig     `yaml:"loading_parameters"`
	ProfitTest   ProfitTestConfig   `yaml:"profit_test"`
	Constraints  ConstraintsConfig  `yaml:"constraints"`
	Optimization OptimizationConfig `yaml:"optimization"`
	Sweep        SweepConfig        `yaml:"sweep"`
	Sensitivity  SensitivityConfig  `yaml:"sensitivity"`
	Outputs      OutputsConfig      `yaml:"outputs"`

	// baseDir anchors relative data paths to the config file.
	baseDir string
}

// RunConfig names the run for logs and artifact files.
type RunConfig struct {
	Name string `yaml:"name"`
}

// ProductConfig supplies defaults any model point may override.
type ProductConfig struct {
	TermYears          int   `yaml:"term_years"`
	PremiumPayingYears int   `yaml:"premium_paying_years"`
	SumAssured         int64 `yaml:"sum_assured"`
}

// ModelPointConfig is one model point entry; zero fields fall back to
// the product defaults.
type ModelPointConfig struct {
	ID                 string `yaml:"id"`
	Sex                string `yaml:"sex"`
	IssueAge           int    `yaml:"issue_age"`
	TermYears          int    `yaml:"term_years"`
	PremiumPayingYears int    `yaml:"premium_paying_years"`
	SumAssured         int64  `yaml:"sum_assured"`
}

// PricingConfig is the pricing basis.
type PricingConfig struct {
	Interest      InterestConfig `yaml:"interest"`
	MortalityPath string         `yaml:"mortality_path"`
}

// InterestConfig selects the pricing interest basis. Only the flat
// type is supported.
type InterestConfig struct {
	Type     string  `yaml:"type"`
	FlatRate float64 `yaml:"flat_rate"`
}

// LoadingConfig pins explicit loading-function coefficients.
type LoadingConfig struct {
	A0    *float64 `yaml:"a0"`
	AAge  *float64 `yaml:"a_age"`
	ATerm *float64 `yaml:"a_term"`
	ASex  *float64 `yaml:"a_sex"`
	B0    *float64 `yaml:"b0"`
	BAge  *float64 `yaml:"b_age"`
	BTerm *float64 `yaml:"b_term"`
	BSex  *float64 `yaml:"b_sex"`
	G0    *float64 `yaml:"g0"`
	GTerm *float64 `yaml:"g_term"`
}

// ProfitTestConfig is the experience basis and expense source.
type ProfitTestConfig struct {
	ValuationInterestRate *float64           `yaml:"valuation_interest_rate"`
	LapseRate             *float64           `yaml:"lapse_rate"`
	MortalityActualPath   string             `yaml:"mortality_actual_path"`
	DiscountCurvePath     string             `yaml:"discount_curve_path"`
	ExpenseModel          ExpenseModelConfig `yaml:"expense_model"`
}

// Expense model modes.
const (
	ExpenseModeCompany = "company"
	ExpenseModeLoading = "loading"
)

// ExpenseModelConfig selects the expense-assumption source once at
// construction time.
type ExpenseModelConfig struct {
	Mode            string              `yaml:"mode"`
	CompanyDataPath string              `yaml:"company_data_path"`
	Year            *int                `yaml:"year"`
	OverheadSplit   OverheadSplitConfig `yaml:"overhead_split"`
}

// OverheadSplitConfig apportions overhead between acquisition and
// maintenance unit costs.
type OverheadSplitConfig struct {
	Acquisition float64 `yaml:"acquisition"`
	Maintenance float64 `yaml:"maintenance"`
}

// ConstraintsConfig carries the hard bounds and the watch/exempt
// lists.
type ConstraintsConfig struct {
	IRRMin                 *float64       `yaml:"irr_min"`
	NBVMin                 *float64       `yaml:"nbv_min"`
	LoadingSurplusRatioMin *float64       `yaml:"loading_surplus_ratio_min"`
	PremiumToMaturityMax   *float64       `yaml:"premium_to_maturity_max"`
	WatchModelPointIDs     []string       `yaml:"watch_model_point_ids"`
	Exempt                 []ExemptConfig `yaml:"exempt"`
}

// ExemptConfig excludes one model point from hard-constraint
// enforcement; the rationale is mandatory.
type ExemptConfig struct {
	ID        string `yaml:"id"`
	Rationale string `yaml:"rationale"`
}

// OptimizationConfig defines the staged search.
type OptimizationConfig struct {
	Objective             string                 `yaml:"objective"`
	MaxIterationsPerStage int                    `yaml:"max_iterations_per_stage"`
	MaxPasses             int                    `yaml:"max_passes"`
	Stages                []StageConfig          `yaml:"stages"`
	Bounds                map[string]BoundConfig `yaml:"bounds"`
	Exemption             ExemptionConfig        `yaml:"exemption"`
}

// StageConfig names one search stage and its coefficient subset.
type StageConfig struct {
	Name         string   `yaml:"name"`
	Coefficients []string `yaml:"coefficients"`
}

// BoundConfig boxes one coefficient and lists its candidate steps,
// coarse to fine.
type BoundConfig struct {
	Min   float64   `yaml:"min"`
	Max   float64   `yaml:"max"`
	Steps []float64 `yaml:"steps"`
}

// ExemptionConfig is the sweep-based exemption policy applied before
// optimization.
type ExemptionConfig struct {
	Enabled bool        `yaml:"enabled"`
	Method  string      `yaml:"method"`
	Sweep   SweepConfig `yaml:"sweep"`
}

// SweepConfig is a premium-to-maturity sweep range.
type SweepConfig struct {
	Start        float64 `yaml:"start"`
	End          float64 `yaml:"end"`
	Step         float64 `yaml:"step"`
	IRRThreshold float64 `yaml:"irr_threshold"`
}

// SensitivityConfig lists assumption shocks; empty means the standard
// ±10% single-input set.
type SensitivityConfig struct {
	Shocks []ShockConfig `yaml:"shocks"`
}

// ShockConfig is one assumption perturbation.
type ShockConfig struct {
	Name           string  `yaml:"name"`
	InterestFactor float64 `yaml:"interest_factor"`
	LapseFactor    float64 `yaml:"lapse_factor"`
	ExpenseFactor  float64 `yaml:"expense_factor"`
}

// OutputsConfig routes artifact files.
type OutputsConfig struct {
	Dir string `yaml:"dir"`
}

// LoadFromFile reads and validates a configuration. Validation errors
// are fatal; warnings are returned for the caller to surface.
func LoadFromFile(path string) (*Configuration, []ValidationIssue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var cfg Configuration
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.baseDir = filepath.Dir(path)

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	issues := Validate(&cfg, raw)
	if HasErrors(issues) {
		return nil, issues, domain.Invalidf("config %s failed validation", path)
	}
	return &cfg, issues, nil
}

// ResolvePath anchors a relative data path to the config file's
// directory.
func (c *Configuration) ResolvePath(path string) string {
	if path == "" || filepath.IsAbs(path) || c.baseDir == "" {
		return path
	}
	return filepath.Join(c.baseDir, path)
}

// ResolvedModelPoints expands the entries against product defaults and
// validates each.
func (c *Configuration) ResolvedModelPoints() ([]domain.ModelPoint, error) {
	if len(c.ModelPoints) == 0 {
		return nil, domain.Invalidf("model points are missing")
	}
	points := make([]domain.ModelPoint, 0, len(c.ModelPoints))
	for _, entry := range c.ModelPoints {
		mp := domain.ModelPoint{
			ID:                 entry.ID,
			Sex:                domain.Sex(entry.Sex),
			IssueAge:           entry.IssueAge,
			TermYears:          entry.TermYears,
			PremiumPayingYears: entry.PremiumPayingYears,
			SumAssured:         entry.SumAssured,
		}
		if mp.TermYears == 0 {
			mp.TermYears = c.Product.TermYears
		}
		if mp.PremiumPayingYears == 0 {
			mp.PremiumPayingYears = c.Product.PremiumPayingYears
		}
		if mp.SumAssured == 0 {
			mp.SumAssured = c.Product.SumAssured
		}
		if err := mp.Validate(); err != nil {
			return nil, err
		}
		points = append(points, mp)
	}
	return points, nil
}

// Coefficients resolves the starting loading coefficients, falling
// back to the standard defaults where the config is silent.
func (c *Configuration) Coefficients() domain.LoadingCoefficients {
	coeffs := domain.DefaultLoadingCoefficients()
	if c.Loading == nil {
		return coeffs
	}
	apply := func(target *float64, value *float64) {
		if value != nil {
			*target = *value
		}
	}
	apply(&coeffs.A0, c.Loading.A0)
	apply(&coeffs.AAge, c.Loading.AAge)
	apply(&coeffs.ATerm, c.Loading.ATerm)
	apply(&coeffs.ASex, c.Loading.ASex)
	apply(&coeffs.B0, c.Loading.B0)
	apply(&coeffs.BAge, c.Loading.BAge)
	apply(&coeffs.BTerm, c.Loading.BTerm)
	apply(&coeffs.BSex, c.Loading.BSex)
	apply(&coeffs.G0, c.Loading.G0)
	apply(&coeffs.GTerm, c.Loading.GTerm)
	return coeffs
}

// ValuationRate returns the valuation interest with its default.
func (c *Configuration) ValuationRate(fallback float64) float64 {
	if c.ProfitTest.ValuationInterestRate != nil {
		return *c.ProfitTest.ValuationInterestRate
	}
	return fallback
}

// Lapse returns the annual lapse rate with its default.
func (c *Configuration) Lapse(fallback float64) float64 {
	if c.ProfitTest.LapseRate != nil {
		return *c.ProfitTest.LapseRate
	}
	return fallback
}
