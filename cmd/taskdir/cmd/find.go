package cmd

import (
	"context"
	"fmt"

	"github.com/msto63/taskdir/pkg/core/discovery"
	"github.com/spf13/cobra"
)

var findCmd = &cobra.Command{
	Use:   "find NAME",
	Short: "Resolve one control task and print its reference",
	Long: `Resolves NAME under the task context, checks that it is a control
task and that it answers. Exits non-zero when the task does not exist, has
the wrong type or cannot be reached.`,
	Args: cobra.ExactArgs(1),
	RunE: runFind,
}

func init() {
	rootCmd.AddCommand(findCmd)
}

// Found describes a resolved task
type Found struct {
	Name     string `json:"name" yaml:"name"`
	Endpoint string `json:"endpoint" yaml:"endpoint"`
	Key      string `json:"key" yaml:"key"`
	State    string `json:"state" yaml:"state"`
}

func runFind(cmd *cobra.Command, args []string) error {
	name := args[0]

	return withAccess(cmd, func(ctx context.Context, a *discovery.Access) error {
		task, err := a.FindTask(ctx, name)
		if err != nil {
			return err
		}
		state, err := task.GetTaskState(ctx)
		if err != nil {
			return fmt.Errorf("state of %s: %w", name, err)
		}

		found := Found{
			Name:     name,
			Endpoint: task.Ref().Endpoint,
			Key:      task.Ref().Key,
			State:    state,
		}

		out := cmd.OutOrStdout()
		return render(out, found, func() error {
			fmt.Fprintf(out, "%s at %s (%s): %s\n", found.Name, found.Endpoint, found.Key, found.State)
			return nil
		})
	})
}
