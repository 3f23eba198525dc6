package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"coachquote/internal/infra"
	"coachquote/internal/modules/ratetable"
)

var ratetableCmd = &cobra.Command{
	Use:   "ratetable",
	Short: "Rate-table maintenance (operator only)",
}

var ratetableValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check rate tables for gaps, overlaps and conflicting rules",
	RunE:  runValidate,
}

var ratetableImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Replace the rate tables in Postgres with a workbook or YAML file",
	Long: `Replace the active rate tables in one transaction, then drop the cached
snapshot so API servers pick the new tables up on their next request.`,
	RunE: runImport,
}

var ratetableExportCmd = &cobra.Command{
	Use:   "export <out.xlsx>",
	Short: "Write the current rate tables as an xlsx workbook",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

var ratetableInvalidateCmd = &cobra.Command{
	Use:   "invalidate",
	Short: "Drop the cached rate-table snapshot",
	RunE:  runInvalidate,
}

var (
	rtRates  string
	rtXLSX   string
	rtDryRun bool
)

func init() {
	ratetableCmd.AddCommand(ratetableValidateCmd, ratetableImportCmd, ratetableExportCmd, ratetableInvalidateCmd)

	for _, c := range []*cobra.Command{ratetableValidateCmd, ratetableImportCmd, ratetableExportCmd} {
		c.Flags().StringVar(&rtRates, "rates", "", "YAML rate-table file")
		c.Flags().StringVar(&rtXLSX, "xlsx", "", "xlsx rate-table workbook")
	}
	ratetableImportCmd.Flags().BoolVar(&rtDryRun, "dry-run", false, "validate only, no database writes")
}

func runValidate(cmd *cobra.Command, args []string) error {
	snap, err := loadSnapshot(cmd.Context(), rtRates, rtXLSX)
	if err != nil {
		return err
	}
	problems := snap.Validate()
	for _, p := range problems {
		fmt.Fprintf(cmd.ErrOrStderr(), "  - %v\n", p)
	}
	if len(problems) > 0 {
		return fmt.Errorf("rate tables %q: %d problem(s)", snap.Version, len(problems))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "rate tables %q are valid (%d grids, %d vehicle classes, %d countries)\n",
		snap.Version, len(snap.Grids), len(snap.Vehicles.Classes), len(snap.Countries))
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	if rtRates == "" && rtXLSX == "" {
		return fmt.Errorf("--rates or --xlsx is required")
	}
	ctx := cmd.Context()
	snap, err := loadSnapshot(ctx, rtRates, rtXLSX)
	if err != nil {
		return err
	}
	if err := snap.Check(); err != nil {
		return err
	}
	if rtDryRun {
		fmt.Fprintf(cmd.OutOrStdout(), "dry run: rate tables %q are valid, nothing written\n", snap.Version)
		return nil
	}

	db, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := ratetable.NewPGStore(db).Replace(ctx, snap); err != nil {
		return fmt.Errorf("import: %w", err)
	}
	logger.Info("rate tables imported", zap.String("version", snap.Version))

	if err := invalidateCache(ctx); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: imported, but the cache was not invalidated: %v\n", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "rate tables %q imported\n", snap.Version)
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	snap, err := loadSnapshot(cmd.Context(), rtRates, rtXLSX)
	if err != nil {
		return err
	}
	out, err := os.Create(args[0])
	if err != nil {
		return err
	}
	if err := ratetable.WriteWorkbook(out, snap); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func runInvalidate(cmd *cobra.Command, args []string) error {
	if err := invalidateCache(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "rate-table cache invalidated")
	return nil
}

func invalidateCache(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rdb, err := infra.NewRedis(ctx, cfg.Redis.Addr)
	if err != nil {
		return err
	}
	defer rdb.Close()
	return ratetable.NewCachedSource(rdb, nil, 0, nil, logger).Invalidate(ctx)
}
