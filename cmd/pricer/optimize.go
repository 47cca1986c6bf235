package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/otacake/pricing-automation/internal/optimize"
	"github.com/otacake/pricing-automation/internal/output"
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize [config-file]",
	Short: "Search loading coefficients until every active model point clears the hard constraints",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger(cmd)
		app, err := buildApp(args[0], log)
		if err != nil {
			return err
		}
		parallel, _ := cmd.Flags().GetBool("parallel")
		app.engine.Parallel = parallel

		evaluator := app.evaluator
		extra, err := app.sweepExemptions(cmd.Context())
		if err != nil {
			return err
		}
		if len(extra) > 0 {
			evaluator, err = evaluator.WithExemptions(extra)
			if err != nil {
				return err
			}
		}

		optimizer := optimize.New(app.engine, evaluator, buildOptimizeSettings(app.cfg), log)
		result, err := optimizer.Run(cmd.Context(), app.points, app.coeffs)
		if err != nil {
			return err
		}
		for id, rationale := range extra {
			if result.ExemptModelPoints == nil {
				result.ExemptModelPoints = make(map[string]string)
			}
			result.ExemptModelPoints[id] = rationale
		}

		if result.Feasible {
			log.Info().
				Float64("objective", result.Objective).
				Int("iterations", result.Iterations).
				Msg("optimization converged")
		} else {
			log.Warn().
				Int("iterations", result.Iterations).
				Int("unresolved", len(result.Unresolved)).
				Msg("optimization finished with violations; writing best coefficients found")
		}

		if err := output.WriteOptimizedConfig(filepath.Join(app.outDir, "optimized_config.yaml"), result); err != nil {
			return err
		}
		if err := output.WriteJSON(filepath.Join(app.outDir, "optimize_trace.json"), result); err != nil {
			return err
		}
		if len(result.Results) > 0 {
			if err := output.WriteSummaryTable(cmd.OutOrStdout(), result.Results, result.Report); err != nil {
				return err
			}
			if err := output.WriteSummaryCSV(filepath.Join(app.outDir, "summary.csv"), result.Results); err != nil {
				return err
			}
		}
		if result.Report != nil {
			if err := output.WriteConstraintCSV(filepath.Join(app.outDir, "constraints.csv"), result.Report); err != nil {
				return err
			}
		}
		log.Info().Str("dir", app.outDir).Msg("artifacts written")
		return nil
	},
}

func init() {
	optimizeCmd.Flags().Bool("parallel", false, "Evaluate model points concurrently")
}
