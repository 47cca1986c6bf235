package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [config-file]",
	Short: "Check a run configuration and its data files without running anything",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger(cmd)

		// Building the full app resolves every data file, so this
		// surfaces missing CSVs and malformed tables, not just schema
		// problems.
		app, err := buildApp(args[0], log)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "configuration ok: %d model points\n", len(app.points))
		return nil
	},
}
