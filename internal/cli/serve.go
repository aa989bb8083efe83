package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the alert engine",
	Long: `Start the HTTP API that receives stock changes, the worker pool that
handles them, and the scheduled fallback scan.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("listen", "", "Listen address (overrides config)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := initApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		a.Config.Server.Listen = listen
	}
	return a.Serve(ctx)
}
