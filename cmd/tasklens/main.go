// Package main is the entry point for the tasklens CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/Jayphen/tasklens/internal/config"
	"github.com/Jayphen/tasklens/internal/logging"
	"github.com/Jayphen/tasklens/internal/tasksource"
)

// Version is set at build time.
var Version = "dev"

var (
	configFile  string
	sourceFlags []string
	logLevel    string

	// cfg is loaded before every command runs.
	cfg *config.Config
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tasklens",
		Short: "One task list across notes, issue trackers and a local list",
		Long: `tasklens collects tasks from markdown notes, GitHub and Linear issues,
beads and a Redis backed local list, and lets you view and edit them
from the command line or a terminal UI.

Sources come from the config file (see 'tasklens config init') and from
--source flags such as:

  --source obsidian:path=~/notes
  --source github:owner=acme,repo=api,name=work`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Read configuration from this file only")
	rootCmd.PersistentFlags().StringArrayVarP(&sourceFlags, "source", "s", nil, "Add a task source as type:key=value,... (repeatable)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the log level (debug, info, warn, error)")

	// Add subcommands
	rootCmd.AddCommand(
		newListCmd(),
		newAddCmd(),
		newStateCmd("done", "Mark a task as completed", tasksource.Complete),
		newStateCmd("start", "Mark a task as in progress", tasksource.Start),
		newStateCmd("reopen", "Mark a task as not completed", tasksource.Reopen),
		newSetCmd(),
		newRmCmd(),
		newRemindCmd(),
		newTUICmd(),
		newConfigCmd(),
		newVersionCmd(),
	)

	return rootCmd
}

// setup loads the configuration and initializes logging. The TUI owns the
// terminal, so it only logs to the file.
func setup(cmd *cobra.Command) error {
	var err error
	if configFile != "" {
		cfg, err = config.LoadFile(configFile)
	} else {
		cfg, err = config.Get()
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	initLogging(cfg, cmd.Name() != "tui")
	return nil
}

// initLogging initializes the logger from config.
func initLogging(cfg *config.Config, console bool) {
	lc := cfg.LoggingConfig()
	lc.Console = lc.Console && console

	if err := logging.InitFromLogConfig(lc); err != nil {
		// Fall back to defaults on error
		_ = logging.Init(nil)
		logging.WithError(err).Warn("invalid log configuration, using defaults")
	}
}

// openSources builds the aggregated source from the config file and the
// --source flags.
func openSources() (*tasksource.MultiSource, error) {
	specs, err := cfg.SourceSpecs()
	if err != nil {
		return nil, err
	}
	for _, s := range sourceFlags {
		spec, err := tasksource.ParseSourceSpec(s)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	if len(specs) == 0 {
		return nil, errors.New("no task sources configured: run 'tasklens config init' or pass --source")
	}
	return tasksource.CreateMultiSourceFromSpecs(specs)
}

// withSources opens the sources for the duration of fn.
func withSources(fn func(ms *tasksource.MultiSource) error) error {
	ms, err := openSources()
	if err != nil {
		return err
	}
	defer func() {
		if err := ms.Close(); err != nil {
			logging.WithError(err).Warn("failed to close sources")
		}
	}()
	return fn(ms)
}
