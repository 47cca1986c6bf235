// Command pricer runs the endowment pricing pipeline: profit tests,
// constraint checks, coefficient optimization and sensitivity sweeps,
// all driven by one YAML configuration.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/otacake/pricing-automation/internal/domain"
	"github.com/otacake/pricing-automation/internal/logging"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:           "pricer",
	Short:         "Endowment pricing and profit-test CLI",
	Long:          "Rates a fixed-term endowment product, profit-tests model points, searches loading coefficients and stresses the result.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(os.Stdout, "pricer %s (commit %s, built %s)\n", version, commit, date)
			if bi, ok := debug.ReadBuildInfo(); ok && bi != nil {
				fmt.Fprintln(os.Stdout, bi.Main.Path)
			}
		},
	}
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("pretty", true, "Human-readable console logs instead of JSON")

	rootCmd.AddCommand(proftestCmd)
	rootCmd.AddCommand(optimizeCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(sensitivityCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(versionCmd())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "pricer: %v\n", err)
		if domain.IsInputValidation(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func newLogger(cmd *cobra.Command) zerolog.Logger {
	level, _ := cmd.Flags().GetString("log-level")
	pretty, _ := cmd.Flags().GetBool("pretty")
	return logging.New(logging.Config{Level: level, Pretty: pretty})
}
