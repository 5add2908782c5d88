package cmd

import (
	"context"
	"fmt"

	"github.com/msto63/taskdir/pkg/core/discovery"
	"github.com/msto63/taskdir/pkg/core/health"
	"github.com/msto63/taskdir/pkg/core/version"
	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the name service and every control task",
	Args:  cobra.NoArgs,
	RunE:  runHealth,
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command, args []string) error {
	return withAccess(cmd, func(ctx context.Context, a *discovery.Access) error {
		registry, err := health.ForTasks(ctx, a, "taskdir", version.Taskdir)
		if err != nil {
			// The name service check reports the failure
			registry = health.NewRegistry("taskdir", version.Taskdir)
			registry.Register(health.NameServiceCheck(a))
		}
		report := registry.Check(ctx)

		out := cmd.OutOrStdout()
		if err := render(out, report, func() error {
			fmt.Fprintf(out, "taskdir health: %s\n", report.Status)
			for _, c := range report.Checks {
				icon := "[+]"
				if c.Status != health.StatusHealthy {
					icon = "[-]"
				}
				fmt.Fprintf(out, "  %s %-24s %-9s %s\n", icon, c.Name, c.Status, c.Message)
			}
			return nil
		}); err != nil {
			return err
		}

		if report.Status == health.StatusUnhealthy {
			return fmt.Errorf("health check failed")
		}
		return nil
	})
}
