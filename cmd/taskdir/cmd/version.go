package cmd

import (
	"fmt"

	"github.com/msto63/taskdir/pkg/core/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := version.Get()
		out := cmd.OutOrStdout()
		return render(out, info, func() error {
			fmt.Fprintf(out, "taskdir v%s\n", info.Version)
			fmt.Fprintf(out, "  Naming:       v%s\n", info.Naming)
			fmt.Fprintf(out, "  ControlTask:  v%s\n", info.ControlTask)
			fmt.Fprintf(out, "  Git Commit:   %s\n", info.GitCommit)
			fmt.Fprintf(out, "  Build Date:   %s\n", info.BuildDate)
			fmt.Fprintf(out, "  Go Version:   %s\n", info.GoVersion)
			fmt.Fprintf(out, "  OS/Arch:      %s\n", info.Platform)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
