package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/scangen/pkg/generate"
	"github.com/OpenTraceLab/scangen/pkg/layout"
)

var layoutPrefix string

var layoutCmd = &cobra.Command{
	Use:   "layout <config>",
	Short: "Show the resolved bit map and serial wiring of a scan chain",
	Long: `Resolve a scan chain document and print every cell's position on the
configuration bus, the evaluated parameters and the internal serial links.

Examples:
  scangen layout chip.yml
  scangen layout -v --prefix cc chip.yml`,
	Args: cobra.ExactArgs(1),
	RunE: runLayout,
}

func init() {
	rootCmd.AddCommand(layoutCmd)

	layoutCmd.Flags().StringVarP(&layoutPrefix, "prefix", "p", "",
		"symbol prefix (overrides the document)")
}

func loadChain(path, prefix string) (*layout.Chain, error) {
	opts := generate.DefaultOptions()
	opts.Prefix = prefix
	opts.Logger = logger

	g, err := generate.New(opts)
	if err != nil {
		return nil, err
	}
	return g.Layout(path)
}

func runLayout(cmd *cobra.Command, args []string) error {
	chain, err := loadChain(args[0], layoutPrefix)
	if err != nil {
		return err
	}

	fmt.Printf("╔════════════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║ Scan Chain Layout                                              ║\n")
	fmt.Printf("╠════════════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║ Name:   %-54s ║\n", chain.Name)
	fmt.Printf("║ Prefix: %-54s ║\n", chain.Prefix)
	fmt.Printf("║ Length: %-54s ║\n", fmt.Sprintf("%d bits", chain.TotalLength))
	fmt.Printf("╚════════════════════════════════════════════════════════════════╝\n\n")

	fmt.Printf("Two-phase clocking: %s\n", yesNo(chain.TwoPhase))
	fmt.Printf("Config latch:       %s\n\n", yesNo(chain.ConfigLatch))

	if len(chain.Parameters) > 0 {
		fmt.Printf("Parameters:\n")
		for _, p := range chain.Parameters {
			fmt.Printf("  %-20s = %d\n", p.Name, p.Value)
		}
		fmt.Println()
	}

	fmt.Printf("Cells: %d total\n", len(chain.Cells))
	for _, c := range chain.Cells {
		fmt.Printf("  %-24s %s  [%d:%d]  %d x %d bits\n",
			c.FullName, c.Direction, c.MaxPos, c.MinPos, c.Mult, c.Width)
		if verbose && c.Multi() {
			for idx := 0; idx < c.Mult; idx++ {
				lo, hi, err := c.InstanceRange(idx)
				if err != nil {
					return err
				}
				fmt.Printf("    [%d] %d:%d\n", idx, hi, lo)
			}
		}
	}
	fmt.Println()

	wires := chain.Wires()
	fmt.Printf("Serial path: %s", layout.SerialIn)
	for _, c := range chain.Cells {
		fmt.Printf(" -> %s", c.FullName)
	}
	fmt.Printf(" -> %s\n", layout.SerialOut)
	if len(wires) > 0 {
		fmt.Printf("Wires:\n")
		for _, w := range wires {
			fmt.Printf("  %s\n", w.Name)
		}
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
