// Package main provides the bqh command-line tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	cfgFile string
	verbose bool
	logger  = zap.NewNop()
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitError
	}
	return ExitSuccess
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "bqh",
		Short: "Variant analysis for the black queen hypothesis evolution experiment",
		Long: `bqh loads per-sample sequencing outputs (variant calls, assemblies,
annotation tables), aggregates them per strain and writes plots and CSV tables.`,
		Version:       fmt.Sprintf("%s (%s) built %s", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(); err != nil {
				return err
			}

			config := zap.NewProductionConfig()
			if verbose {
				config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			var err error
			logger, err = config.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			logger.Debug("configuration", zap.String("file", viper.ConfigFileUsed()))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default ~/.bqh.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	flags.String("samples", "", "sample sheet (YAML)")
	flags.String("plots", defaultPlotsDir, "plot output directory")
	flags.String("tables", defaultTablesDir, "table output directory")
	flags.Int("workers", 0, "concurrent sample loads (0 = number of CPUs)")
	_ = viper.BindPFlag("samples", flags.Lookup("samples"))
	_ = viper.BindPFlag("output.plots", flags.Lookup("plots"))
	_ = viper.BindPFlag("output.tables", flags.Lookup("tables"))
	_ = viper.BindPFlag("workers", flags.Lookup("workers"))

	root.AddCommand(
		newTrajectoriesCmd(),
		newEffectsCmd(),
		newSNPCountsCmd(),
		newUniqueProductsCmd(),
		newGCContentCmd(),
		newDeletionsCmd(),
		newAssemblyCmd(),
		newInsertionsCmd(),
		newQueryCmd(),
		newConfigCmd(),
	)
	return root
}
