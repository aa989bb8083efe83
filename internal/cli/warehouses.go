package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var warehousesCmd = &cobra.Command{
	Use:   "warehouses",
	Short: "Inspect the warehouse tree",
}

var warehousesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List warehouses with their bounds and recipients",
	RunE:  runWarehousesList,
}

func init() {
	rootCmd.AddCommand(warehousesCmd)
	warehousesCmd.AddCommand(warehousesListCmd)
}

func runWarehousesList(cmd *cobra.Command, _ []string) error {
	a, err := initApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	all, err := a.Store.ListWarehouses(cmd.Context())
	if err != nil {
		return fmt.Errorf("list warehouses: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(all) == 0 {
		fmt.Fprintln(out, "No warehouses found.")
		return nil
	}

	// Depth is the number of open ancestors, which the lft ordering makes a stack
	var stack []int64
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "  NAME\tTYPE\tBOUNDS\tEMAIL\tSTATUS\n")
	for _, wh := range all {
		for len(stack) > 0 && stack[len(stack)-1] < wh.Lft {
			stack = stack[:len(stack)-1]
		}
		kind := "leaf"
		if wh.IsGroup {
			kind = "group"
		}
		status := "active"
		if wh.Disabled {
			status = "disabled"
		}
		email := wh.EmailID
		if email == "" {
			email = "-"
		}
		fmt.Fprintf(w, "  %s%s\t%s\t%d-%d\t%s\t%s\n",
			strings.Repeat("  ", len(stack)), wh.Name, kind, wh.Lft, wh.Rgt, email, status)
		stack = append(stack, wh.Rgt)
	}
	w.Flush()
	return nil
}
