package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/msto63/taskdir/pkg/core/config"
	"github.com/msto63/taskdir/pkg/core/discovery"
	"github.com/msto63/taskdir/pkg/core/logging"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	cfgFile string
	verbose bool
	output  string

	// runtimeArgs are the -ORB flags split off before cobra parses the rest
	runtimeArgs []string

	// accessOptions are passed to every facade the commands create
	accessOptions []discovery.Option

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "taskdir",
	Short: "taskdir - Control Task Discovery",
	Long: `taskdir locates control-task servers through the name service and
reports their state.

Runtime flags (passed through to the transport, may appear anywhere):
  -ORBInitRef NameService=host:port   name service location (corbaloc:: accepted)
  -ORBDefaultInitRef host:port        fallback for every initial reference
  -ORBCallTimeout 5s                  per-call timeout
  -ORBTraceLevel debug                transport log level

Without a command, taskdir prints the state of every task.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	RunE:              runState,
}

// Execute splits runtime flags from args and runs the root command
func Execute(args []string) error {
	var rest []string
	runtimeArgs, rest = discovery.SplitRuntimeArgs(args)
	if rest == nil {
		// cobra falls back to os.Args for nil
		rest = []string{}
	}
	rootCmd.SetArgs(rest)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		printError(err)
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./configs/taskdir.toml or $TASKDIR_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "text", "output format: text, json or yaml")
}

func setup(cmd *cobra.Command, args []string) error {
	switch output {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("unknown output format %q", output)
	}

	var err error
	if cfgFile != "" {
		cfg, err = config.Load(cfgFile)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level := cfg.General.LogLevel
	if verbose {
		level = "debug"
	}
	logging.Configure(logging.LoggerConfig{
		Level:  level,
		Format: cfg.General.LogFormat,
		Output: os.Stderr,
	})
	return nil
}

// withAccess runs fn against an initialized facade that is shut down
// afterwards, also on interrupt.
func withAccess(cmd *cobra.Command, fn func(context.Context, *discovery.Access) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return discovery.Run(ctx, cfg, runtimeArgs, fn, accessOptions...)
}

// render writes v as JSON or YAML, or calls text for the text format
func render(w io.Writer, v interface{}, text func() error) error {
	switch output {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(v)
	default:
		return text()
	}
}

func printError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}
