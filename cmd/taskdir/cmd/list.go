package cmd

import (
	"context"
	"fmt"

	"github.com/msto63/taskdir/pkg/core/discovery"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the bindings under the task context",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

// Entry is one binding of the task context
type Entry struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
}

func runList(cmd *cobra.Command, args []string) error {
	return withAccess(cmd, func(ctx context.Context, a *discovery.Access) error {
		bindings, err := a.ListTasks(ctx)
		if err != nil {
			return err
		}

		entries := make([]Entry, 0, len(bindings))
		for _, b := range bindings {
			entries = append(entries, Entry{Name: b.Name.String(), Type: string(b.Type)})
		}

		out := cmd.OutOrStdout()
		return render(out, entries, func() error {
			for _, e := range entries {
				if e.Type == "context" {
					fmt.Fprintf(out, "%s/\n", e.Name)
					continue
				}
				fmt.Fprintln(out, e.Name)
			}
			return nil
		})
	})
}
