package cmd

import (
	"context"
	"fmt"

	"github.com/msto63/taskdir/pkg/core/discovery"
	"github.com/spf13/cobra"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Print the state of every control task",
	Long: `Lists the tasks bound under the task context, connects to each one
and prints "name: state". The command fails on the first task that cannot
be reached.`,
	Args: cobra.NoArgs,
	RunE: runState,
}

func init() {
	rootCmd.AddCommand(stateCmd)
}

// TaskState is one line of the state report
type TaskState struct {
	Name  string `json:"name" yaml:"name"`
	State string `json:"state" yaml:"state"`
}

func runState(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("unknown command %q", args[0])
	}

	return withAccess(cmd, func(ctx context.Context, a *discovery.Access) error {
		names, err := a.ListTaskNames(ctx)
		if err != nil {
			return err
		}

		states := make([]TaskState, 0, len(names))
		for _, name := range names {
			task, err := a.FindTask(ctx, name)
			if err != nil {
				return err
			}
			state, err := task.GetTaskState(ctx)
			if err != nil {
				return fmt.Errorf("state of %s: %w", name, err)
			}
			states = append(states, TaskState{Name: name, State: state})
		}

		out := cmd.OutOrStdout()
		return render(out, states, func() error {
			if len(states) == 0 {
				fmt.Fprintf(out, "No tasks registered under %s\n", a.TaskContext())
				return nil
			}
			for _, s := range states {
				fmt.Fprintf(out, "%s: %s\n", s.Name, s.State)
			}
			return nil
		})
	})
}
