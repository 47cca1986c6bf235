package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/otacake/pricing-automation/internal/output"
)

var proftestCmd = &cobra.Command{
	Use:   "proftest [config-file]",
	Short: "Profit-test every model point and score the hard constraints",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger(cmd)
		app, err := buildApp(args[0], log)
		if err != nil {
			return err
		}

		keepCashflows, _ := cmd.Flags().GetBool("cashflows")
		parallel, _ := cmd.Flags().GetBool("parallel")
		app.engine.KeepCashflows = keepCashflows
		app.engine.Parallel = parallel

		results, err := app.engine.RunBatch(cmd.Context(), app.points, app.coeffs)
		if err != nil {
			return err
		}
		report := app.evaluator.Evaluate(results)

		for _, res := range results {
			log.Info().
				Str("model_point", res.ModelPoint.Label()).
				Str("gross_premium", res.Premiums.GrossAnnualPremium.StringFixed(0)).
				Float64("irr", res.IRR.Rate).
				Bool("irr_converged", res.IRR.Converged).
				Float64("nbv", res.NewBusinessValue).
				Float64("premium_to_maturity", res.PremiumToMaturity).
				Msg("profit test")
		}
		log.Info().Int("violations", report.ViolationCount).Msg("constraint evaluation")

		if err := output.WriteSummaryTable(cmd.OutOrStdout(), results, report); err != nil {
			return err
		}
		if err := output.WriteSummaryCSV(filepath.Join(app.outDir, "summary.csv"), results); err != nil {
			return err
		}
		if err := output.WriteConstraintCSV(filepath.Join(app.outDir, "constraints.csv"), report); err != nil {
			return err
		}
		if err := output.WriteJSON(filepath.Join(app.outDir, "results.json"), results); err != nil {
			return err
		}
		if keepCashflows {
			for _, res := range results {
				name := fmt.Sprintf("cashflow_%s.csv", res.ModelPoint.Label())
				if err := output.WriteCashflowCSV(filepath.Join(app.outDir, name), res); err != nil {
					return err
				}
			}
		}
		log.Info().Str("dir", app.outDir).Msg("artifacts written")
		return nil
	},
}

func init() {
	proftestCmd.Flags().Bool("cashflows", false, "Write the full per-year cashflow series per model point")
	proftestCmd.Flags().Bool("parallel", false, "Evaluate model points concurrently")
}
