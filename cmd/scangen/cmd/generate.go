package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/scangen/pkg/generate"
)

var (
	splitRW   bool
	prefix    string
	bypass    bool
	translate bool
	outDir    string
)

var generateCmd = &cobra.Command{
	Use:   "generate <config>...",
	Short: "Generate Verilog for one or more scan chain documents",
	Long: `Validate each YAML document, lay out its chain and write the Verilog
artifacts. A document is written completely or not at all.

With --translate the inputs are legacy scan descriptions instead; each one
is converted to <name>.yml and nothing else is generated.

Examples:
  scangen generate chip.yml
  scangen generate --split-rw --bypass -o rtl/ chip.yml io.yml
  scangen generate --prefix cc chip.yml
  scangen generate --translate old/chip.scan`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().BoolVarP(&splitRW, "split-rw", "s", false,
		"use separate CfgRd/CfgWr buses instead of an inout Cfg")
	generateCmd.Flags().StringVarP(&prefix, "prefix", "p", "",
		"symbol prefix (overrides the document)")
	generateCmd.Flags().BoolVarP(&bypass, "bypass", "b", false,
		"also generate the bypass core and wrapper")
	generateCmd.Flags().BoolVarP(&translate, "translate", "t", false,
		"translate legacy files to YAML instead of generating")
	generateCmd.Flags().StringVarP(&outDir, "out-dir", "o", ".",
		"output directory")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	if translate {
		if splitRW || bypass || prefix != "" {
			return fmt.Errorf("--translate cannot be combined with --split-rw, --prefix or --bypass")
		}
		for _, path := range args {
			written, err := generate.Translate(path, outDir)
			if err != nil {
				return err
			}
			fmt.Printf("Translated %s -> %s\n", path, written)
		}
		return nil
	}

	opts := generate.DefaultOptions()
	opts.SplitBus = splitRW
	opts.Bypass = bypass
	opts.Prefix = prefix
	opts.OutDir = outDir
	opts.Logger = logger

	g, err := generate.New(opts)
	if err != nil {
		return err
	}
	if err := g.Run(cmd.Context(), args...); err != nil {
		return err
	}

	fmt.Printf("Generated %d document(s) into %s\n", len(args), opts.OutDir)
	return nil
}
