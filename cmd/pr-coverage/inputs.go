package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/jupierce/pr-coverage/pkg/coverage"
	"github.com/jupierce/pr-coverage/pkg/gitdiff"
	"github.com/jupierce/pr-coverage/pkg/github"
	"github.com/jupierce/pr-coverage/pkg/log"
	"github.com/jupierce/pr-coverage/pkg/report"
)

// inputFlags are shared by every command that builds a report
type inputFlags struct {
	lcovFile         string
	coverageFormat   string
	modulePrefix     string
	workingDirectory string
	githubToken      string
	repo             string
	prNumber         int
	baseRef          string
	headRef          string
	exclude          []string
	timeout          int
}

var inputs inputFlags

func (f *inputFlags) addFlags(fs *pflag.FlagSet) {
	fs.StringVar(&f.lcovFile, "lcov-file", "", "Path to the coverage file (required)")
	fs.StringVar(&f.coverageFormat, "coverage-format", "lcov", "Coverage file format (lcov, go)")
	fs.StringVar(&f.modulePrefix, "module-prefix", "", "Import path prefix stripped from Go profile file names (defaults to the module in go.mod)")
	fs.StringVar(&f.workingDirectory, "working-directory", "", "Directory to change into before reading inputs")
	fs.StringVar(&f.githubToken, "github-token", "", "GitHub token (defaults to $GITHUB_TOKEN)")
	fs.StringVar(&f.repo, "repo", "", "Repository as owner/name (defaults to $GITHUB_REPOSITORY)")
	fs.IntVar(&f.prNumber, "pr", 0, "Pull request number (defaults to the event in $GITHUB_EVENT_PATH)")
	fs.StringVar(&f.baseRef, "base-ref", "", "Read changed files from the local git repository, diffing against this ref")
	fs.StringVar(&f.headRef, "head-ref", "HEAD", "Head ref for --base-ref")
	fs.StringSliceVar(&f.exclude, "exclude", nil, "Glob of changed files to leave out of the report (repeatable)")
	fs.IntVar(&f.timeout, "timeout", 300, "Timeout in seconds for loading inputs")
}

// applyEnvFallbacks fills every flag the user did not set from the matching
// INPUT_<NAME> variable, the way workflow inputs reach an action. It must run
// before any flag value is validated or used.
func applyEnvFallbacks(cmd *cobra.Command) error {
	fs := cmd.Flags()
	var firstErr error
	fs.VisitAll(func(f *pflag.Flag) {
		if f.Changed || firstErr != nil {
			return
		}
		v, ok := os.LookupEnv(inputEnvName(f.Name))
		if !ok || v == "" {
			return
		}
		if err := fs.Set(f.Name, v); err != nil {
			firstErr = fmt.Errorf("invalid value %q for %s: %w", v, inputEnvName(f.Name), err)
		}
	})
	return firstErr
}

func inputEnvName(flag string) string {
	return "INPUT_" + strings.ToUpper(strings.ReplaceAll(flag, " ", "_"))
}

// loadedInputs is everything a report is built from
type loadedInputs struct {
	dataset      *coverage.Dataset
	changed      []coverage.ChangedFile
	coveragePath string
	pr           github.PullRequest
	revision     string

	// client is nil when changed files come from the local repository
	client *github.Client
}

func (l *loadedInputs) repository() string {
	if l.pr.Owner == "" {
		return ""
	}
	return l.pr.Owner + "/" + l.pr.Repo
}

func (f *inputFlags) validate() error {
	if f.lcovFile == "" {
		return fmt.Errorf("--lcov-file is required")
	}
	switch f.coverageFormat {
	case "lcov", "go":
	default:
		return fmt.Errorf("invalid --coverage-format %q (valid: lcov, go)", f.coverageFormat)
	}
	if f.timeout <= 0 {
		return fmt.Errorf("--timeout must be positive")
	}
	return report.ValidateGlobs(f.exclude)
}

// load reads the coverage file and the changed files concurrently
func (f *inputFlags) load(ctx context.Context, logger *log.Logger) (*loadedInputs, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}

	if f.workingDirectory != "" {
		if err := os.Chdir(f.workingDirectory); err != nil {
			return nil, fmt.Errorf("change working directory: %w", err)
		}
		logger.Info("Changed working directory to: %s", f.workingDirectory)
	}

	coveragePath, err := filepath.Abs(f.lcovFile)
	if err != nil {
		return nil, fmt.Errorf("resolve coverage path: %w", err)
	}
	if _, err := os.Stat(coveragePath); err != nil {
		return nil, fmt.Errorf("LCOV file not found: %s", coveragePath)
	}

	in := &loadedInputs{coveragePath: coveragePath}
	if err := f.resolveSource(ctx, in, logger); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(f.timeout)*time.Second)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Progress("Parsing coverage file: %s", coveragePath)
		ds, err := f.readCoverage(coveragePath)
		if err != nil {
			return err
		}
		logger.Debug("Parsed %d coverage records", ds.Len())
		in.dataset = ds
		return nil
	})

	g.Go(func() error {
		var changed []coverage.ChangedFile
		var err error
		if in.client != nil {
			logger.Progress("Getting changed files from PR %s...", in.pr)
			changed, err = in.client.ChangedFiles(gctx, in.pr)
		} else {
			logger.Progress("Diffing %s...%s in the local repository", f.baseRef, f.headRef)
			changed, err = gitdiff.ChangedFiles(gctx, ".", f.baseRef, f.headRef)
		}
		if err != nil {
			return err
		}
		logger.Info("Found %d changed files", len(changed))
		in.changed = changed
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return in, nil
}

func (f *inputFlags) readCoverage(path string) (*coverage.Dataset, error) {
	if f.coverageFormat == "go" {
		prefix := f.modulePrefix
		if prefix == "" {
			prefix = coverage.ModulePath(".")
		}
		return coverage.ReadGoProfile(path, prefix)
	}
	return coverage.ReadLCOVFile(path)
}

// resolveSource decides where changed files come from. A base ref selects the
// local repository; otherwise the pull request is taken from flags, falling
// back to the workflow environment.
func (f *inputFlags) resolveSource(ctx context.Context, in *loadedInputs, logger *log.Logger) error {
	repo := firstNonEmpty(f.repo, os.Getenv("GITHUB_REPOSITORY"))
	if repo != "" {
		owner, name, err := github.ParseRepository(repo)
		if err != nil {
			return err
		}
		in.pr.Owner, in.pr.Repo = owner, name
	}
	in.pr.Number = f.prNumber

	if f.baseRef != "" {
		in.revision = f.headRef
		return nil
	}
	in.revision = os.Getenv("GITHUB_SHA")

	if in.pr.Number == 0 {
		eventPath := os.Getenv("GITHUB_EVENT_PATH")
		if eventPath == "" {
			return fmt.Errorf("no pull request: pass --pr or --base-ref, or run on a pull request event")
		}
		ev, err := github.LoadEvent(eventPath)
		if err != nil {
			return err
		}
		in.pr.Number = ev.Number
		if in.pr.Owner == "" {
			in.pr.Owner, in.pr.Repo = ev.Owner, ev.Repo
		}
	}
	if in.pr.Owner == "" {
		return fmt.Errorf("no repository: pass --repo or set GITHUB_REPOSITORY")
	}

	token := firstNonEmpty(f.githubToken, os.Getenv("GITHUB_TOKEN"))
	opts := []github.Option{github.WithLogger(logger)}
	if api := os.Getenv("GITHUB_API_URL"); api != "" && api != "https://api.github.com" {
		opts = append(opts, github.WithBaseURL(api))
	}
	client, err := github.NewClient(ctx, token, opts...)
	if err != nil {
		return fmt.Errorf("create GitHub client: %w", err)
	}
	in.client = client
	return nil
}

// buildReport loads inputs and runs the report pipeline
func buildReport(cmd *cobra.Command, logger *log.Logger) (*report.Report, *loadedInputs, error) {
	in, err := inputs.load(cmd.Context(), logger)
	if err != nil {
		return nil, nil, err
	}

	logger.Progress("Generating coverage report...")
	r, err := report.Generate(in.dataset, in.changed,
		report.WithLogger(logger),
		report.WithExclude(inputs.exclude...),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("generate report: %w", err)
	}
	return r, in, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
