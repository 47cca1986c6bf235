package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/otacake/pricing-automation/internal/calculation"
	"github.com/otacake/pricing-automation/internal/config"
	"github.com/otacake/pricing-automation/internal/constraint"
	"github.com/otacake/pricing-automation/internal/domain"
	"github.com/otacake/pricing-automation/internal/optimize"
	"github.com/otacake/pricing-automation/internal/sweep"
	"github.com/otacake/pricing-automation/internal/tables"
)

// app wires one configuration into ready-to-run components. Every
// subcommand goes through buildApp so they agree on assumption
// resolution and defaulting.
type app struct {
	cfg       *config.Configuration
	log       zerolog.Logger
	points    []domain.ModelPoint
	coeffs    domain.LoadingCoefficients
	engine    *calculation.ProfitTestEngine
	evaluator *constraint.Evaluator
	bounds    constraint.Bounds
	outDir    string
}

func buildApp(path string, log zerolog.Logger) (*app, error) {
	cfg, issues, err := config.LoadFromFile(path)
	for _, issue := range issues {
		if issue.Level == config.LevelError {
			log.Error().Msg(issue.String())
		} else {
			log.Warn().Msg(issue.String())
		}
	}
	if err != nil {
		return nil, err
	}

	points, err := cfg.ResolvedModelPoints()
	if err != nil {
		return nil, err
	}

	pricingTable, err := tables.LoadMortalityCSV(cfg.ResolvePath(cfg.Pricing.MortalityPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load pricing mortality: %w", err)
	}
	experienceTable := pricingTable
	if p := cfg.ProfitTest.MortalityActualPath; p != "" {
		experienceTable, err = tables.LoadMortalityCSV(cfg.ResolvePath(p))
		if err != nil {
			return nil, fmt.Errorf("failed to load experience mortality: %w", err)
		}
	}

	maxTerm := 0
	for _, mp := range points {
		if mp.TermYears > maxTerm {
			maxTerm = mp.TermYears
		}
	}
	valuationRate := cfg.ValuationRate(calculation.DefaultValuationRate)

	var curve *tables.YieldCurve
	if p := cfg.ProfitTest.DiscountCurvePath; p != "" {
		curve, err = tables.LoadSpotCurveCSV(cfg.ResolvePath(p))
		if err != nil {
			return nil, fmt.Errorf("failed to load discount curve: %w", err)
		}
	} else {
		curve = tables.FlatCurve(valuationRate, maxTerm)
	}

	expenses, err := buildExpenseModel(cfg)
	if err != nil {
		return nil, err
	}

	assumptions := calculation.Assumptions{
		PricingRate:     cfg.Pricing.Interest.FlatRate,
		ValuationRate:   valuationRate,
		LapseRate:       cfg.Lapse(calculation.DefaultLapseRate),
		PricingTable:    pricingTable,
		ExperienceTable: experienceTable,
		Curve:           curve,
	}
	engine, err := calculation.NewProfitTestEngine(assumptions, expenses, log)
	if err != nil {
		return nil, err
	}

	bounds := buildBounds(cfg)
	evaluator, err := constraint.NewEvaluator(bounds, buildLists(cfg), log)
	if err != nil {
		return nil, err
	}

	outDir := cfg.Outputs.Dir
	if outDir == "" {
		outDir = "output"
	}

	return &app{
		cfg:       cfg,
		log:       log,
		points:    points,
		coeffs:    cfg.Coefficients(),
		engine:    engine,
		evaluator: evaluator,
		bounds:    bounds,
		outDir:    cfg.ResolvePath(outDir),
	}, nil
}

func buildExpenseModel(cfg *config.Configuration) (calculation.ExpenseModel, error) {
	em := cfg.ProfitTest.ExpenseModel
	if em.Mode != config.ExpenseModeCompany {
		return calculation.LoadingProxyExpenseModel{}, nil
	}
	splitAcq := em.OverheadSplit.Acquisition
	splitMaint := em.OverheadSplit.Maintenance
	if splitAcq == 0 && splitMaint == 0 {
		splitAcq, splitMaint = 0.5, 0.5
	}
	assumptions, err := calculation.LoadExpenseAssumptions(cfg.ResolvePath(em.CompanyDataPath), em.Year, splitAcq, splitMaint)
	if err != nil {
		return nil, fmt.Errorf("failed to load company expenses: %w", err)
	}
	return calculation.TabulatedExpenseModel{Assumptions: assumptions}, nil
}

func buildBounds(cfg *config.Configuration) constraint.Bounds {
	bounds := constraint.DefaultBounds()
	if v := cfg.Constraints.IRRMin; v != nil {
		bounds.IRRFloor = *v
	}
	if v := cfg.Constraints.NBVMin; v != nil {
		bounds.NBVFloor = *v
	}
	if v := cfg.Constraints.LoadingSurplusRatioMin; v != nil {
		bounds.LoadingSurplusRatioFloor = *v
	}
	if v := cfg.Constraints.PremiumToMaturityMax; v != nil {
		bounds.PremiumToMaturityCeiling = *v
	}
	return bounds
}

func buildLists(cfg *config.Configuration) constraint.Lists {
	lists := constraint.Lists{
		Watch:  cfg.Constraints.WatchModelPointIDs,
		Exempt: make(map[string]string, len(cfg.Constraints.Exempt)),
	}
	for _, entry := range cfg.Constraints.Exempt {
		lists.Exempt[entry.ID] = entry.Rationale
	}
	return lists
}

func buildOptimizeSettings(cfg *config.Configuration) optimize.Settings {
	settings := optimize.DefaultSettings()
	oc := cfg.Optimization
	if oc.Objective != "" {
		settings.Objective = optimize.Objective(oc.Objective)
	}
	if oc.MaxIterationsPerStage > 0 {
		settings.MaxIterationsPerStage = oc.MaxIterationsPerStage
	}
	if oc.MaxPasses > 0 {
		settings.MaxPasses = oc.MaxPasses
	}
	if len(oc.Stages) > 0 {
		stages := make([]optimize.Stage, 0, len(oc.Stages))
		for _, sc := range oc.Stages {
			names := make([]domain.CoefficientName, 0, len(sc.Coefficients))
			for _, name := range sc.Coefficients {
				names = append(names, domain.CoefficientName(name))
			}
			stages = append(stages, optimize.Stage{Name: sc.Name, Coefficients: names})
		}
		settings.Stages = stages
	}
	for name, bc := range oc.Bounds {
		bound := settings.Bounds[domain.CoefficientName(name)]
		bound.Min = bc.Min
		bound.Max = bc.Max
		if len(bc.Steps) > 0 {
			bound.Steps = bc.Steps
		}
		settings.Bounds[domain.CoefficientName(name)] = bound
	}
	return settings
}

func buildSweepSettings(cfg *config.Configuration, bounds constraint.Bounds) sweep.PTMSettings {
	settings := sweep.PTMSettings{
		Start:        1.00,
		End:          1.05,
		Step:         0.01,
		IRRThreshold: bounds.IRRFloor,
	}
	sc := cfg.Sweep
	if sc.Step > 0 {
		settings.Start = sc.Start
		settings.End = sc.End
		settings.Step = sc.Step
	}
	if sc.IRRThreshold != 0 {
		settings.IRRThreshold = sc.IRRThreshold
	}
	return settings
}

func sweepGates(bounds constraint.Bounds) sweep.Gates {
	return sweep.Gates{
		NBVFloor:                 bounds.NBVFloor,
		LoadingSurplusRatioFloor: bounds.LoadingSurplusRatioFloor,
		PremiumToMaturityCeiling: bounds.PremiumToMaturityCeiling,
	}
}

// sweepExemptions runs the pre-optimization exemption policy: a model
// point that cannot reach the IRR threshold anywhere in the allowed
// premium range is exempted rather than allowed to stall the search.
func (a *app) sweepExemptions(ctx context.Context) (map[string]string, error) {
	policy := a.cfg.Optimization.Exemption
	if !policy.Enabled {
		return nil, nil
	}

	settings := buildSweepSettings(a.cfg, a.bounds)
	if policy.Sweep.Step > 0 {
		settings.Start = policy.Sweep.Start
		settings.End = policy.Sweep.End
		settings.Step = policy.Sweep.Step
	}
	if policy.Sweep.IRRThreshold != 0 {
		settings.IRRThreshold = policy.Sweep.IRRThreshold
	}

	sweeper := sweep.NewSweeper(a.engine, a.log)
	exempt := make(map[string]string)
	for _, mp := range a.points {
		if a.evaluator.Classify(mp.Label()) == domain.ClassExempt {
			continue
		}
		result, err := sweeper.SweepPTM(ctx, mp, a.coeffs, settings)
		if err != nil {
			return nil, err
		}
		if result.Found || result.Truncated {
			continue
		}
		rationale := fmt.Sprintf("no premium multiplier in [%.2f, %.2f] attains irr %.4f",
			settings.Start, settings.End, settings.IRRThreshold)
		exempt[mp.Label()] = rationale
		a.log.Warn().Str("model_point", mp.Label()).Msg("exempting model point by premium sweep")
	}
	return exempt, nil
}
