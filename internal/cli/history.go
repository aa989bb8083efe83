package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ogulcanaydogan/stockwatch/pkg/model"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List sent notifications",
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().String("path", "", "Filter by trigger (event, scan)")
	historyCmd.Flags().StringP("recipient", "r", "", "Filter by recipient")
	historyCmd.Flags().Duration("since", 0, "Only show notifications newer than this (e.g. 24h)")
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum rows")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("path")
	recipient, _ := cmd.Flags().GetString("recipient")
	since, _ := cmd.Flags().GetDuration("since")
	limit, _ := cmd.Flags().GetInt("limit")

	a, err := initApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	filter := model.HistoryFilter{
		Path:      model.AlertPath(path),
		Recipient: recipient,
		Limit:     limit,
	}
	if since > 0 {
		filter.Since = time.Now().Add(-since)
	}

	records, err := a.Store.ListNotifications(cmd.Context(), filter)
	if err != nil {
		return fmt.Errorf("list notifications: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(records) == 0 {
		fmt.Fprintln(out, "No notifications found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "  SENT\tPATH\tSCOPE\tRECIPIENT\tITEMS\n")
	for _, r := range records {
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\n",
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			r.Path, r.Scope, r.Recipient, r.ItemCodes,
		)
	}
	w.Flush()
	return nil
}
