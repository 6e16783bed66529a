package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bvester-assessment/internal/assessment"
	"bvester-assessment/internal/common/config"
	"bvester-assessment/internal/common/logger"
)

var rootCmd = &cobra.Command{
	Use:   "assessment-cli",
	Short: "Score business health assessments from the command line",
	Long:  "Evaluates answer sets, walks the conditional question flow, checks question catalogs and replays results stuck in the local outbox.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, _ := cmd.Flags().GetString("log-level")
		zap.ReplaceGlobals(logger.New(level, "console"))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().String("catalog", "", "question catalog YAML (defaults to the embedded catalog)")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level: debug, info, warn, error")
}

// loadCatalog returns the catalog named by --catalog or the embedded one.
func loadCatalog(cmd *cobra.Command) (*assessment.Catalog, error) {
	path, _ := cmd.Flags().GetString("catalog")
	if path == "" {
		c, err := assessment.DefaultCatalog()
		return c, eris.Wrap(err, "load embedded catalog")
	}
	c, err := assessment.LoadCatalog(path)
	if err != nil {
		return nil, eris.Wrapf(err, "load catalog %s", path)
	}
	return c, nil
}

// loadConfig reads the service configuration for commands that touch the
// result stores.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, eris.Wrap(err, "load config")
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, eris.ToString(err, false))
		os.Exit(1)
	}
}
