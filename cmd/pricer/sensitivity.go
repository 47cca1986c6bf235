package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/otacake/pricing-automation/internal/output"
	"github.com/otacake/pricing-automation/internal/sweep"
)

var sensitivityCmd = &cobra.Command{
	Use:   "sensitivity [config-file]",
	Short: "Rerun the profit test under assumption shocks and report worst-case metrics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger(cmd)
		app, err := buildApp(args[0], log)
		if err != nil {
			return err
		}

		shocks := sweep.DefaultShocks()
		if len(app.cfg.Sensitivity.Shocks) > 0 {
			shocks = shocks[:0]
			for _, sc := range app.cfg.Sensitivity.Shocks {
				shocks = append(shocks, sweep.Shock{
					Name:           sc.Name,
					InterestFactor: sc.InterestFactor,
					LapseFactor:    sc.LapseFactor,
					ExpenseFactor:  sc.ExpenseFactor,
				})
			}
		}

		sweeper := sweep.NewSweeper(app.engine, log)
		results, err := sweeper.ShockSweep(cmd.Context(), app.points, app.coeffs, shocks, app.evaluator)
		if err != nil {
			return err
		}

		for _, result := range results {
			log.Info().
				Str("shock", result.Shock.Name).
				Float64("worst_irr", result.WorstIRR).
				Float64("worst_nbv", result.WorstNBV).
				Int("violations", result.ViolationCount).
				Msg("sensitivity")
		}

		if err := output.WriteShockCSV(filepath.Join(app.outDir, "sensitivity.csv"), results); err != nil {
			return err
		}
		if err := output.WriteJSON(filepath.Join(app.outDir, "sensitivity.json"), results); err != nil {
			return err
		}
		log.Info().Str("dir", app.outDir).Msg("artifacts written")
		return nil
	},
}
