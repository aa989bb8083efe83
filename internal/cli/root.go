package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/ogulcanaydogan/stockwatch/internal/app"
	"github.com/ogulcanaydogan/stockwatch/internal/config"
)

// Version is set at build time via ldflags.
var Version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "stockwatch",
	Short: "stockwatch - low-stock alerts across a warehouse hierarchy",
	Long: `stockwatch watches projected stock against reorder levels and notifies the
warehouses and warehouse groups responsible for an item when it runs low.
Stock changes are handled as they arrive, and an hourly scan re-reports
everything that is still low.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.stockwatch/config.yaml)")
}

// loadConfig loads the configuration.
func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

// initApp loads configuration and wires the engine.
func initApp(ctx context.Context) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, app.NewLogger(cfg))
}
