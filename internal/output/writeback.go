package output

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/otacake/pricing-automation/internal/domain"
)

// OptimizedConfig is the YAML fragment written back after a successful
// optimization run. It can be pasted into a run configuration under
// loading_parameters to pin the searched coefficients.
type OptimizedConfig struct {
	LoadingParameters domain.LoadingCoefficients `yaml:"loading_parameters"`
	Summary           OptimizeSummary            `yaml:"optimize_summary"`
}

// OptimizeSummary records headline metrics alongside the coefficients
// so a reviewer can judge the writeback without rerunning.
type OptimizeSummary struct {
	Success           bool     `yaml:"success"`
	Objective         float64  `yaml:"objective"`
	Iterations        int      `yaml:"iterations"`
	MinIRR            *float64 `yaml:"min_irr,omitempty"`
	MinLoadingSurplus *float64 `yaml:"min_loading_surplus,omitempty"`
	MaxPTM            *float64 `yaml:"max_premium_to_maturity,omitempty"`
	ViolationCount    int      `yaml:"violation_count"`
	ExemptModelPoints []string `yaml:"exempt_model_points,omitempty"`
}

// WriteOptimizedConfig writes the optimization outcome as YAML.
func WriteOptimizedConfig(path string, result *domain.OptimizationResult) error {
	summary := OptimizeSummary{
		Success:    result.Feasible,
		Objective:  result.Objective,
		Iterations: result.Iterations,
	}
	if result.Report != nil {
		summary.ViolationCount = result.Report.ViolationCount
	}
	for id := range result.ExemptModelPoints {
		summary.ExemptModelPoints = append(summary.ExemptModelPoints, id)
	}
	sort.Strings(summary.ExemptModelPoints)

	if len(result.Results) > 0 {
		minIRR := math.Inf(1)
		minLS := math.Inf(1)
		maxPTM := math.Inf(-1)
		haveIRR := false
		for _, res := range result.Results {
			if res.IRR.Converged && res.IRR.Rate < minIRR {
				minIRR = res.IRR.Rate
				haveIRR = true
			}
			if res.LoadingSurplus < minLS {
				minLS = res.LoadingSurplus
			}
			if res.PremiumToMaturity > maxPTM {
				maxPTM = res.PremiumToMaturity
			}
		}
		if haveIRR {
			summary.MinIRR = &minIRR
		}
		summary.MinLoadingSurplus = &minLS
		summary.MaxPTM = &maxPTM
	}

	doc := OptimizedConfig{
		LoadingParameters: result.Coefficients,
		Summary:           summary,
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory for %s: %w", path, err)
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal optimized config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
