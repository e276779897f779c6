package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jupierce/pr-coverage/pkg/artifact"
	"github.com/jupierce/pr-coverage/pkg/log"
	"github.com/jupierce/pr-coverage/pkg/render"
	"github.com/jupierce/pr-coverage/pkg/report"
)

var (
	// Report command flags
	allFilesMinimum     float64
	changedFilesMinimum float64
	updateComment       bool
	noComment           bool
	outputPath          string
	htmlPath            string
	stdoutFormat        string
	artifactName        string
	artifactBucket      string
	credentialsFile     string

	// Report command
	reportCmd = &cobra.Command{
		Use:   "report",
		Short: "Generate the coverage report and post it to the pull request",
		Long: `Generate the coverage report for the files changed in a pull request.

Changed files are read from the GitHub API (using --repo and --pr, or the
workflow event when running in GitHub Actions) or, with --base-ref, from the
local git repository. Every flag may also be set through an INPUT_<NAME>
environment variable, for example INPUT_LCOV-FILE.

The comment is posted and the artifact uploaded before thresholds are
checked, so a failing run still publishes its report.`,
		Example: `  # In a pull request workflow
  pr-coverage report --lcov-file coverage/lcov.info --changed-files-minimum-coverage 80

  # Locally, against main, printing a terminal table
  pr-coverage report --lcov-file coverage/lcov.info --base-ref main --format terminal

  # Go cover profile, writing markdown and HTML without commenting
  pr-coverage report --lcov-file cover.out --coverage-format go --base-ref origin/main \
    --no-comment --output report.md --html report.html`,
		RunE: runReport,
	}
)

func init() {
	inputs.addFlags(reportCmd.Flags())

	reportCmd.Flags().Float64Var(&allFilesMinimum, "all-files-minimum-coverage", 0, "Minimum line coverage for all files, in percent (0 disables)")
	reportCmd.Flags().Float64Var(&changedFilesMinimum, "changed-files-minimum-coverage", 0, "Minimum line coverage for changed files, in percent (0 disables)")
	reportCmd.Flags().BoolVar(&updateComment, "update-comment", false, "Update the existing coverage comment instead of adding a new one")
	reportCmd.Flags().BoolVar(&noComment, "no-comment", false, "Do not post a pull request comment")
	reportCmd.Flags().StringVar(&outputPath, "output", "", "Write the markdown report to this file")
	reportCmd.Flags().StringVar(&htmlPath, "html", "", "Write an HTML rendering of the report to this file")
	reportCmd.Flags().StringVar(&stdoutFormat, "format", "markdown", "Report format printed to stdout (markdown, terminal, none)")
	reportCmd.Flags().StringVar(&artifactName, "artifact-name", "", "Upload the coverage file under this artifact name")
	reportCmd.Flags().StringVar(&artifactBucket, "artifact-bucket", "", "Artifact destination as gs://bucket[/prefix]")
	reportCmd.Flags().StringVar(&credentialsFile, "credentials-file", "", "Google Cloud credentials file (defaults to application default credentials)")

	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	switch stdoutFormat {
	case "markdown", "terminal", "none":
	default:
		return fmt.Errorf("invalid --format %q (valid: markdown, terminal, none)", stdoutFormat)
	}

	logger, err := createLogger()
	if err != nil {
		return err
	}
	defer logger.Close()

	logger.Progress("Starting PR test coverage report...")

	r, in, err := buildReport(cmd, logger)
	if err != nil {
		return err
	}

	markdown := render.Markdown(r)

	if outputPath != "" {
		if err := os.WriteFile(outputPath, []byte(markdown), 0644); err != nil {
			return fmt.Errorf("write markdown report: %w", err)
		}
		logger.Info("Wrote markdown report to %s", outputPath)
	}

	if htmlPath != "" {
		page, err := render.HTML(markdown, "Coverage report")
		if err != nil {
			return fmt.Errorf("render HTML report: %w", err)
		}
		if err := os.WriteFile(htmlPath, page, 0644); err != nil {
			return fmt.Errorf("write HTML report: %w", err)
		}
		logger.Info("Wrote HTML report to %s", htmlPath)
	}

	switch stdoutFormat {
	case "markdown":
		fmt.Fprintln(cmd.OutOrStdout(), markdown)
	case "terminal":
		if err := render.Terminal(cmd.OutOrStdout(), r.Tree); err != nil {
			return fmt.Errorf("print report: %w", err)
		}
	}

	switch {
	case noComment:
		logger.Debug("Skipping pull request comment (--no-comment)")
	case in.client == nil:
		logger.Info("Changed files came from the local repository; not posting a comment")
	default:
		logger.Progress("Posting coverage report to PR %s...", in.pr)
		if err := in.client.PostComment(cmd.Context(), in.pr, markdown, updateComment); err != nil {
			return err
		}
	}

	if artifactName != "" {
		logger.Progress("Uploading coverage artifact: %s", artifactName)
		uploadArtifact(cmd.Context(), in.coveragePath, logger)
	}

	thresholds := report.Thresholds{AllFiles: allFilesMinimum, ChangedFiles: changedFilesMinimum}
	if err := thresholds.Check(r); err != nil {
		return err
	}

	logger.Success("PR test coverage report completed successfully!")
	return nil
}

// uploadArtifact never fails the run; problems are reported as warnings
func uploadArtifact(ctx context.Context, coveragePath string, logger *log.Logger) {
	if artifactBucket == "" {
		logger.Warning("Failed to upload artifact: --artifact-bucket is required with --artifact-name")
		return
	}

	uploader, err := artifact.NewGCSUploader(ctx, artifactBucket, credentialsFile, logger)
	if err != nil {
		logger.Warning("Failed to upload artifact: %v", err)
		return
	}
	defer uploader.Close()

	if _, err := uploader.Upload(ctx, artifactName, coveragePath); err != nil {
		logger.Warning("Failed to upload artifact: %v", err)
	}
}
