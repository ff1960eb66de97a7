// Command ladder-ingest downloads ranked ladder entries from the League API
// into a DuckDB database.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Sternrassler/ladder-ingest/pkg/config"
	"github.com/Sternrassler/ladder-ingest/pkg/logging"
)

// Version is set at build time via -ldflags.
var Version = "0.1.0-dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. Flags are bound per tree so tests can
// build fresh trees.
func newRootCmd() *cobra.Command {
	var (
		cfgFile string
		verbose bool
	)

	rootCmd := &cobra.Command{
		Use:           "ladder-ingest",
		Short:         "Ingest ranked ladder entries from the League API",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")

	loadConfig := func() (config.Config, error) {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return config.Config{}, err
		}
		if verbose {
			cfg.Log.Level = string(logging.LevelDebug)
		}
		if _, err := logging.ParseLevel(cfg.Log.Level); err != nil {
			return config.Config{}, err
		}
		logging.Setup(logging.Config{
			Level:  logging.LogLevel(cfg.Log.Level),
			Pretty: cfg.Log.Pretty || term.IsTerminal(int(os.Stderr.Fd())),
			Output: os.Stderr,
		})
		return cfg, nil
	}

	rootCmd.AddCommand(newRunCmd(loadConfig))
	rootCmd.AddCommand(newPlanCmd(loadConfig))
	rootCmd.AddCommand(newDistributionCmd())
	return rootCmd
}
