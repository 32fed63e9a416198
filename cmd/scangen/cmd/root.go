package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool

	logger = slog.New(slog.DiscardHandler)
)

var rootCmd = &cobra.Command{
	Use:   "scangen",
	Short: "Scan chain layout and Verilog generator",
	Long: `Generate Verilog for a serial scan chain described in YAML: the chain
module, its ` + "`define" + ` constants and optional bypass modules.

Examples:
  scangen generate chip.yml                  # Write chip.v and chip_defines.v
  scangen generate -s -b -o rtl/ chip.yml    # Split bus, bypass modules, into rtl/
  scangen generate -t chip.scan              # Translate a legacy file to chip.yml
  scangen layout chip.yml                    # Show the bit map
  scangen encode chip.yml 'ctrl=0x5'         # Serial stream for a configuration

The schema in $SCANGEN_HOME/schemata/scan.cue, when present, replaces the
built-in one.`,
	Version: "0.1.0",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
