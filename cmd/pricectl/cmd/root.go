// Package cmd provides the CLI commands for pricectl.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Simplici0/pricer/internal/config"
	"github.com/Simplici0/pricer/internal/logging"
)

// version is set at build time with -ldflags "-X .../cmd.version=...".
var version = "dev"

// app is the state shared by every subcommand of one invocation.
type app struct {
	cfgFile string
	verbose bool

	cfg    config.Config
	logger *zap.Logger
}

// Execute runs the CLI
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	a := &app{logger: zap.NewNop()}

	rootCmd := &cobra.Command{
		Use:   "pricectl",
		Short: "Validate, evaluate and run pricing formulas",
		Long: `pricectl works with the formula pricing engine from the command line.

Examples:
  pricectl validate "subtotal * taxRate / 100"
  pricectl eval "participants * basePrice" --var participants=2 --var basePrice=100
  pricectl quote --file request.yaml
  pricectl migrate --db ./dev.db`,
		SilenceUsage:      true,
		PersistentPreRunE: a.init,
	}

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "YAML config file (default: environment only)")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.AddCommand(
		newValidateCmd(a),
		newEvalCmd(a),
		newQuoteCmd(a),
		newMigrateCmd(a),
		newSeedCmd(a),
		newVersionCmd(),
	)
	return rootCmd
}

func (a *app) init(cmd *cobra.Command, args []string) error {
	if a.cfgFile != "" {
		cfg, err := config.FromFile(a.cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		a.cfg = cfg
	} else {
		a.cfg = config.Load()
	}

	logCfg := a.cfg.Logging
	if a.verbose {
		logCfg.Level = "debug"
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	a.logger = logger
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pricectl version %s\n", version)
		},
	}
}
