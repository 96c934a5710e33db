// Command mathpad edits, validates, evaluates and integrates expressions,
// forwards numerical-method requests to the solver services and serves
// the expression tools over HTTP.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	mathpad "github.com/njchilds90/gomathpad"
	"github.com/njchilds90/gomathpad/internal/config"
	"github.com/njchilds90/gomathpad/internal/logging"
)

var (
	// Global flags
	configPath  string
	verbose     bool
	fromDisplay bool

	cfg    *config.Config
	logger *zap.Logger
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "mathpad",
		Short:   "Expression editor and numerical-methods client",
		Version: mathpad.Version,
		Long: `mathpad builds math expressions from a fixed button catalog, checks them,
evaluates and integrates them locally, and submits them to the
numerical-method services (root finding, linear systems, ODEs, quadrature).

Run "mathpad edit" for the interactive editor.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if err := loaded.Validate(); err != nil {
				return fmt.Errorf("invalid config %s: %w", configPath, err)
			}
			cfg = loaded
			mathpad.MaxSubintervals = cfg.Integration.MaxSubintervals

			// The editor owns the terminal; logs would corrupt it.
			if cmd.Name() == "edit" {
				logger = zap.NewNop()
				return nil
			}
			logger, err = logging.New(cfg.Logging, verbose)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "mathpad.yaml", "path to the YAML config file")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().BoolVar(&fromDisplay, "from-display", false, "read expressions in display notation (×, ², π)")

	root.AddCommand(
		newEvalCmd(),
		newValidateCmd(),
		newDisplayCmd(),
		newCanonicalCmd(),
		newLatexCmd(),
		newCatalogCmd(),
		newIntegrateCmd(),
		newSampleCmd(),
		newSolveCmd(),
		newMethodsCmd(),
		newHealthCmd(),
		newServeCmd(),
		newEditCmd(),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
