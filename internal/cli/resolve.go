package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ogulcanaydogan/stockwatch/pkg/hierarchy"
	"github.com/ogulcanaydogan/stockwatch/pkg/model"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <warehouse>",
	Short: "Show which monitored warehouses a leaf warehouse alerts",
	Args:  cobra.ExactArgs(1),
	RunE:  runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)
	resolveCmd.Flags().StringSlice("scope", nil, "Monitored warehouses (default from config)")
}

func runResolve(cmd *cobra.Command, args []string) error {
	a, err := initApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	scope := a.Settings.Scope()
	if cmd.Flags().Changed("scope") {
		s, _ := cmd.Flags().GetStringSlice("scope")
		scope = model.MonitoredScope(s)
	}

	monitored, err := hierarchy.NewResolver(a.Store).Resolve(cmd.Context(), args[0], scope)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Scope:     %s\n", strings.Join(scope, ", "))
	fmt.Fprintf(out, "Monitored: %s\n", strings.Join(monitored, ", "))
	return nil
}
