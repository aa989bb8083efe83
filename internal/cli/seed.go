package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ogulcanaydogan/stockwatch/internal/seed"
)

var seedCmd = &cobra.Command{
	Use:   "seed <file>",
	Short: "Load warehouses, items, reorder rules and bins from YAML",
	Args:  cobra.ExactArgs(1),
	RunE:  runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	f, err := seed.LoadFile(args[0])
	if err != nil {
		return err
	}

	a, err := initApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	sum, err := seed.Apply(cmd.Context(), a.Store, f)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Seeded:\n")
	fmt.Fprintf(out, "  Warehouses:    %d\n", sum.Warehouses)
	fmt.Fprintf(out, "  Items:         %d\n", sum.Items)
	fmt.Fprintf(out, "  Reorder rules: %d\n", sum.ReorderRules)
	fmt.Fprintf(out, "  Bins:          %d\n", sum.Bins)
	return nil
}
