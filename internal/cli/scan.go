package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ogulcanaydogan/stockwatch/pkg/engine"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run the fallback scan and send alerts",
	Long: `Check every reorder rule on every active leaf warehouse and send one
alert per warehouse listing all of its low items. No cooldown applies.`,
	RunE: runScan,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show low items without sending alerts",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(statusCmd)
	scanCmd.Flags().Bool("debug", false, "Log every scanned warehouse")
}

func runScan(cmd *cobra.Command, _ []string) error {
	debug, _ := cmd.Flags().GetBool("debug")

	a, err := initApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.Scanner.ScanAndAlert(cmd.Context(), engine.ScanOptions{Debug: debug})
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}

	printScan(cmd.OutOrStdout(), res)
	fmt.Fprintf(cmd.OutOrStdout(), "\nAlerts sent: %d\n", res.Sent)
	return nil
}

func runStatus(cmd *cobra.Command, _ []string) error {
	a, err := initApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.Scanner.Collect(cmd.Context(), engine.ScanOptions{})
	if err != nil {
		return fmt.Errorf("collect: %w", err)
	}

	printScan(cmd.OutOrStdout(), res)
	return nil
}

func printScan(out io.Writer, res *engine.ScanResult) {
	fmt.Fprintf(out, "Warehouses scanned: %d\n", res.Warehouses)
	fmt.Fprintf(out, "Rules checked:      %d\n", res.Rules)
	fmt.Fprintf(out, "Low items:          %d\n", res.LowItems())

	if len(res.Reports) == 0 {
		return
	}

	fmt.Fprintf(out, "\n")
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "  WAREHOUSE\tRECIPIENT\tITEM\tNAME\tPROJECTED\tREORDER LEVEL\n")
	for _, rep := range res.Reports {
		recipient := rep.Recipient
		if recipient == "" {
			recipient = "-"
		}
		for _, it := range rep.Items {
			fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\t%s\n",
				rep.Warehouse, recipient, it.ItemCode, it.ItemName, it.ProjectedQty, it.ReorderLevel)
		}
	}
	w.Flush()
}
