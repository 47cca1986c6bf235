package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/otacake/pricing-automation/internal/output"
	"github.com/otacake/pricing-automation/internal/sweep"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep [config-file]",
	Short: "Sweep premium multipliers and report the minimum qualifying premium-to-maturity ratio",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger(cmd)
		app, err := buildApp(args[0], log)
		if err != nil {
			return err
		}

		gates := sweep.OpenGates()
		if gated, _ := cmd.Flags().GetBool("gated"); gated {
			gates = sweepGates(app.bounds)
		}
		settings := buildSweepSettings(app.cfg, app.bounds)

		sweeper := sweep.NewSweeper(app.engine, log)
		results, err := sweeper.SweepAll(cmd.Context(), app.points, app.coeffs, settings, gates)
		if err != nil {
			return err
		}

		for _, result := range results {
			event := log.Info().Str("model_point", result.ModelPointID).Bool("found", result.Found)
			if result.Found {
				event = event.Float64("min_qualifying_r", result.MinQualifying)
			}
			event.Msg("premium sweep")
		}

		if err := output.WriteSweepCSV(filepath.Join(app.outDir, "sweep.csv"), results); err != nil {
			return err
		}
		if err := output.WriteJSON(filepath.Join(app.outDir, "sweep.json"), results); err != nil {
			return err
		}
		log.Info().Str("dir", app.outDir).Msg("artifacts written")
		return nil
	},
}

func init() {
	sweepCmd.Flags().Bool("gated", false, "Qualify on every hard bound, not IRR alone")
}
