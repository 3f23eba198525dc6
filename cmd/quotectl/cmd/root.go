// Package cmd provides the CLI commands for quotectl.
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"coachquote/internal/config"
	"coachquote/internal/infra"
	"coachquote/internal/logging"
	"coachquote/internal/modules/ratetable"
)

var (
	verbose bool
	cfg     config.Config
	logger  = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "quotectl",
	Short: "Price coach trips and manage rate tables",
	Long: `quotectl prices coach-hire trips against the current rate tables and
maintains those tables.

Examples:
  quotectl estimate --rates rates.yaml --distance 120 --drive 180 --onsite 360 --break 90 --round-trip --passengers 45 --country FR
  quotectl ratetable validate --xlsx grids-2026.xlsx
  quotectl ratetable import --xlsx grids-2026.xlsx`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		logCfg := logging.DefaultConfig()
		logCfg.Level = cfg.Log.Level
		logCfg.Format = "console"
		if verbose {
			logCfg.Level = "debug"
		}
		logger, err = logging.New(logCfg)
		return err
	},
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.AddCommand(estimateCmd)
	rootCmd.AddCommand(ratetableCmd)
}

// loadSnapshot reads rate tables from a YAML or xlsx file when given, otherwise from Postgres.
func loadSnapshot(ctx context.Context, yamlPath, xlsxPath string) (*ratetable.Snapshot, error) {
	switch {
	case yamlPath != "" && xlsxPath != "":
		return nil, fmt.Errorf("use either --rates or --xlsx, not both")
	case yamlPath != "":
		return ratetable.LoadFile(yamlPath)
	case xlsxPath != "":
		return ratetable.ImportWorkbook(xlsxPath)
	case cfg.RateTables.File != "":
		return ratetable.LoadFile(cfg.RateTables.File)
	}
	db, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return ratetable.NewPGStore(db).Snapshot(ctx)
}
