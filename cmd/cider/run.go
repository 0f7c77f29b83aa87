package main

import (
	"github.com/aretw0/cider/internal/cli"
	"github.com/aretw0/cider/pkg/watch"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [config]",
	Short: "Run every active pipeline and action once, or on every change with --watch",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := cli.RunOptions{}
		opts.ConfigPath, _ = cmd.Flags().GetString("config")
		if !cmd.Flags().Changed("config") && len(args) > 0 {
			opts.ConfigPath = args[0]
		}
		opts.Watch, _ = cmd.Flags().GetBool("watch")
		opts.Debounce, _ = cmd.Flags().GetDuration("debounce")
		opts.Ignore, _ = cmd.Flags().GetStringArray("ignore")
		opts.Parallel, _ = cmd.Flags().GetInt("parallel")
		opts.Debug, _ = cmd.Flags().GetBool("debug")
		opts.MetricsAddr, _ = cmd.Flags().GetString("metrics-addr")
		opts.ContainerRuntime, _ = cmd.Flags().GetString("container-runtime")

		return cli.Execute(opts)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	for _, c := range []*cobra.Command{runCmd, rootCmd} {
		c.Flags().BoolP("watch", "w", false, "Run again after every change of the source directory")
		c.Flags().Duration("debounce", watch.DefaultDebounce, "Quiet period that collapses a burst of changes into one pass")
		c.Flags().StringArray("ignore", nil, "Glob of paths the watcher ignores (repeatable)")
		c.Flags().Int("parallel", 1, "Number of top-level pipelines run at once")
		c.Flags().Bool("debug", false, "Enable debug logging")
		c.Flags().String("metrics-addr", "", "Serve /metrics and /healthz on this address (e.g. :9090)")
		c.Flags().String("container-runtime", "docker", "Container CLI used by the docker backend")
	}

	// 'run' is the default if no command is provided.
	rootCmd.Args = runCmd.Args
	rootCmd.RunE = runCmd.RunE
}
