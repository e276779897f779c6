package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jupierce/pr-coverage/pkg/export"
)

var (
	// Export command flags
	dbPath    string
	bqProject string
	bqDataset string

	// Export command
	exportCmd = &cobra.Command{
		Use:   "export",
		Short: "Store a coverage report run for later querying",
		Long: `Build the same report as the report command and store it instead of
commenting. Each export records exactly one run: the summaries, every changed
file with coverage, and every directory of the changed-file tree.`,
	}

	exportSQLiteCmd = &cobra.Command{
		Use:     "sqlite",
		Short:   "Write the run to a SQLite database",
		Example: `  pr-coverage export sqlite --lcov-file coverage/lcov.info --base-ref main --db coverage.db`,
		RunE:    runExportSQLite,
	}

	exportBigQueryCmd = &cobra.Command{
		Use:     "bigquery",
		Short:   "Stream the run into BigQuery",
		Example: `  pr-coverage export bigquery --lcov-file coverage/lcov.info --project my-project --dataset pr_coverage`,
		RunE:    runExportBigQuery,
	}
)

func init() {
	inputs.addFlags(exportCmd.PersistentFlags())

	exportSQLiteCmd.Flags().StringVar(&dbPath, "db", "pr-coverage.db", "SQLite database path (created if missing)")

	exportBigQueryCmd.Flags().StringVar(&bqProject, "project", "", "Google Cloud project (required)")
	exportBigQueryCmd.Flags().StringVar(&bqDataset, "dataset", "pr_coverage", "BigQuery dataset")
	exportBigQueryCmd.Flags().StringVar(&credentialsFile, "credentials-file", "", "Google Cloud credentials file (defaults to application default credentials)")
	if err := exportBigQueryCmd.MarkFlagRequired("project"); err != nil {
		panic(err)
	}

	exportCmd.AddCommand(exportSQLiteCmd)
	exportCmd.AddCommand(exportBigQueryCmd)
	rootCmd.AddCommand(exportCmd)
}

func runExportSQLite(cmd *cobra.Command, args []string) error {
	logger, err := createLogger()
	if err != nil {
		return err
	}
	defer logger.Close()

	r, in, err := buildReport(cmd, logger)
	if err != nil {
		return err
	}
	run := export.NewRun(r, in.repository(), in.pr.Number, in.revision)

	logger.Progress("Writing run %s to %s...", run.ID, dbPath)
	db, err := export.OpenSQLite(cmd.Context(), dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := export.WriteSQLite(cmd.Context(), db, run); err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	logger.Success("Exported run %s (%d files) to %s", run.ID, len(r.FileDetails), dbPath)
	return nil
}

func runExportBigQuery(cmd *cobra.Command, args []string) error {
	logger, err := createLogger()
	if err != nil {
		return err
	}
	defer logger.Close()

	r, in, err := buildReport(cmd, logger)
	if err != nil {
		return err
	}
	run := export.NewRun(r, in.repository(), in.pr.Number, in.revision)

	logger.Progress("Connecting to BigQuery %s.%s...", bqProject, bqDataset)
	exporter, err := export.NewBigQueryExporter(cmd.Context(), bqProject, bqDataset, credentialsFile, logger)
	if err != nil {
		return err
	}
	defer exporter.Close()

	n, err := exporter.Export(cmd.Context(), run)
	if err != nil {
		return fmt.Errorf("export run: %w", err)
	}

	logger.Success("Exported run %s to %s.%s (%d node rows)", run.ID, bqProject, bqDataset, n)
	return nil
}
