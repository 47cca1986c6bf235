package config

import (
	"fmt"
	"math"
	"sort"
)

// Issue severity levels.
const (
	LevelWarning = "warning"
	LevelError   = "error"
)

// ValidationIssue is one levelled finding against the configuration.
// Errors abort the run; warnings surface deprecated or ambiguous
// settings.
type ValidationIssue struct {
	Level   string
	Code    string
	Path    string
	Message string
}

func (i ValidationIssue) String() string {
	return fmt.Sprintf("config_validation:%s: [%s] %s - %s", i.Level, i.Code, i.Path, i.Message)
}

// HasErrors reports whether any issue is error-level.
func HasErrors(issues []ValidationIssue) bool {
	for _, issue := range issues {
		if issue.Level == LevelError {
			return true
		}
	}
	return false
}

var knownTopLevelKeys = map[string]struct{}{
	"run": {}, "product": {}, "model_points": {}, "pricing": {},
	"loading_parameters": {}, "profit_test": {}, "constraints": {},
	"optimization": {}, "sweep": {}, "sensitivity": {}, "outputs": {},
	"optimize_summary": {},
}

// Validate runs the fail-fast checks over a parsed configuration. The
// raw document is used for checks the typed form cannot express, such
// as unknown top-level keys.
func Validate(cfg *Configuration, raw map[string]any) []ValidationIssue {
	var issues []ValidationIssue
	add := func(level, code, path, message string) {
		issues = append(issues, ValidationIssue{Level: level, Code: code, Path: path, Message: message})
	}

	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if _, ok := knownTopLevelKeys[key]; !ok {
			add(LevelWarning, "unknown_top_level_key", key,
				"Unknown top-level key. Check for typos or stale settings.")
		}
	}

	validateModelPoints(cfg, add)
	validateInterest(cfg, add)
	validateExpenseModel(cfg, add)
	validateConstraints(cfg, add)
	validateOptimization(cfg, add)
	return issues
}

func validateModelPoints(cfg *Configuration, add func(level, code, path, message string)) {
	seen := make(map[string]struct{})
	for i, entry := range cfg.ModelPoints {
		path := fmt.Sprintf("model_points[%d]", i)
		if entry.ID == "" {
			continue
		}
		if _, dup := seen[entry.ID]; dup {
			add(LevelError, "duplicate_model_point_id", path+".id",
				fmt.Sprintf("Duplicate model point id: %s", entry.ID))
			continue
		}
		seen[entry.ID] = struct{}{}
	}
}

func validateInterest(cfg *Configuration, add func(level, code, path, message string)) {
	if cfg.Pricing.Interest.Type == "" {
		return
	}
	if cfg.Pricing.Interest.Type != "flat" {
		add(LevelError, "unsupported_interest_type", "pricing.interest.type",
			"Only 'flat' interest type is currently supported.")
	}
}

func validateExpenseModel(cfg *Configuration, add func(level, code, path, message string)) {
	em := cfg.ProfitTest.ExpenseModel
	if em.Mode != "" && em.Mode != ExpenseModeCompany && em.Mode != ExpenseModeLoading {
		add(LevelError, "unsupported_expense_mode", "profit_test.expense_model.mode",
			"expense_model.mode must be either 'company' or 'loading'.")
	}
	if em.Mode == ExpenseModeCompany && em.CompanyDataPath == "" {
		add(LevelError, "missing_company_data_path", "profit_test.expense_model.company_data_path",
			"company_data_path is required for the company expense model.")
	}

	split := em.OverheadSplit
	if split.Acquisition == 0 && split.Maintenance == 0 {
		return
	}
	if split.Acquisition < 0 || split.Maintenance < 0 {
		add(LevelError, "negative_overhead_split", "profit_test.expense_model.overhead_split",
			"Overhead split values must be non-negative.")
		return
	}
	total := split.Acquisition + split.Maintenance
	if math.Abs(total-1.0) > 1e-6 {
		add(LevelWarning, "overhead_split_not_unit", "profit_test.expense_model.overhead_split",
			fmt.Sprintf("acquisition + maintenance is %.6f (expected 1.0). "+
				"Unallocated or over-allocated overhead may distort expense assumptions.", total))
	}
}

func validateConstraints(cfg *Configuration, add func(level, code, path, message string)) {
	for i, exempt := range cfg.Constraints.Exempt {
		path := fmt.Sprintf("constraints.exempt[%d]", i)
		if exempt.ID == "" {
			add(LevelError, "exempt_missing_id", path+".id", "Exempt entries must name a model point id.")
		}
		if exempt.Rationale == "" {
			add(LevelError, "exempt_missing_rationale", path+".rationale",
				"Exempt entries must record a rationale.")
		}
	}
}

func validateOptimization(cfg *Configuration, add func(level, code, path, message string)) {
	for name, bound := range cfg.Optimization.Bounds {
		path := "optimization.bounds." + name
		if bound.Min > bound.Max {
			add(LevelError, "inverted_bound", path, "min exceeds max.")
		}
		for _, step := range bound.Steps {
			if step <= 0 {
				add(LevelError, "non_positive_step", path+".steps", "steps must be positive.")
				break
			}
		}
	}
	if cfg.Optimization.Exemption.Enabled {
		if m := cfg.Optimization.Exemption.Method; m != "" && m != "sweep_ptm" {
			add(LevelError, "unsupported_exemption_method", "optimization.exemption.method",
				"exemption.method must be 'sweep_ptm'.")
		}
		sweep := cfg.Optimization.Exemption.Sweep
		if sweep.Step <= 0 {
			add(LevelError, "non_positive_step", "optimization.exemption.sweep.step",
				"sweep step must be positive.")
		}
	}
}
