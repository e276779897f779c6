// Package report joins a coverage dataset with a revision's changed files
// and produces the summaries, per-file details and directory tree that the
// renderers and exporters consume.
package report

import (
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/jupierce/pr-coverage/pkg/coverage"
	"github.com/jupierce/pr-coverage/pkg/log"
	"github.com/jupierce/pr-coverage/pkg/match"
	"github.com/jupierce/pr-coverage/pkg/tree"
)

// ErrInvalidInput is returned when the caller supplies data the pipeline
// cannot work with, such as a nil dataset.
var ErrInvalidInput = errors.New("invalid report input")

// Report is the result of one pipeline run
type Report struct {
	AllFiles     coverage.Summary      `json:"all_files"`
	ChangedFiles coverage.Summary      `json:"changed_files"`
	FileDetails  []coverage.FileDetail `json:"file_details"`

	// ChangedTotal counts every changed file considered, matched or not
	ChangedTotal   int      `json:"changed_total"`
	ChangedMatched int      `json:"changed_matched"`
	Unmatched      []string `json:"unmatched,omitempty"`

	Tree *tree.Node `json:"-"`
}

type options struct {
	logger  *log.Logger
	exclude []string
}

// Option configures Generate
type Option func(*options)

// WithLogger sets the logger used for match diagnostics
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithExclude drops changed files matching any of the doublestar globs
// before they are matched.
func WithExclude(globs ...string) Option {
	return func(o *options) {
		o.exclude = append(o.exclude, globs...)
	}
}

// ValidateGlobs reports the first malformed exclude pattern
func ValidateGlobs(globs []string) error {
	for _, g := range globs {
		if !doublestar.ValidatePattern(g) {
			return fmt.Errorf("%w: bad exclude pattern %q", ErrInvalidInput, g)
		}
	}
	return nil
}

// Generate runs the pipeline: summarize everything, match changed files to
// dataset keys, summarize the matches, and build the directory tree.
func Generate(ds *coverage.Dataset, changed []coverage.ChangedFile, opts ...Option) (*Report, error) {
	if ds == nil {
		return nil, fmt.Errorf("%w: nil coverage dataset", ErrInvalidInput)
	}

	o := options{logger: log.Discard()}
	for _, opt := range opts {
		opt(&o)
	}
	if err := ValidateGlobs(o.exclude); err != nil {
		return nil, err
	}
	logger := o.logger

	r := &Report{AllFiles: coverage.Summarize(ds.Files())}

	keys := ds.Keys()
	logger.Info("Total files in coverage data: %d", len(keys))
	logger.Info("Changed files: %d", len(changed))
	logger.Info("Sample coverage files: %s", strings.Join(sample(keys), ", "))
	changedNames := make([]string, 0, len(changed))
	for _, cf := range changed {
		changedNames = append(changedNames, cf.Filename)
	}
	logger.Info("Sample changed files: %s", strings.Join(sample(changedNames), ", "))

	matcher := match.New(keys)
	var matched []coverage.FileCoverage

	for _, cf := range changed {
		if excluded(cf.Filename, o.exclude) {
			logger.Debug("Excluded changed file: %s", cf.Filename)
			continue
		}
		r.ChangedTotal++

		key, step := matcher.Match(cf.Filename)
		if step == match.None {
			logger.Debug("No coverage found for changed file: %s", cf.Filename)
			r.Unmatched = append(r.Unmatched, cf.Filename)
			continue
		}
		logger.Trace("Matched %s -> %s (%s)", cf.Filename, key, step)

		fc, _ := ds.Get(key)
		matched = append(matched, fc)
		r.FileDetails = append(r.FileDetails, coverage.DetailOf(cf.Filename, fc))
	}

	r.ChangedMatched = len(matched)
	logger.Info("Found coverage for %d out of %d changed files", r.ChangedMatched, r.ChangedTotal)

	r.ChangedFiles = coverage.Summarize(matched)

	sortDetails(r.FileDetails)
	r.Tree = tree.Build(r.FileDetails)

	return r, nil
}

// sortDetails orders details by directory, then by full path
func sortDetails(details []coverage.FileDetail) {
	sort.SliceStable(details, func(i, j int) bool {
		di, dj := path.Dir(details[i].File), path.Dir(details[j].File)
		if di != dj {
			return di < dj
		}
		return details[i].File < details[j].File
	})
}

func excluded(name string, globs []string) bool {
	for _, g := range globs {
		if ok, _ := doublestar.Match(g, match.Normalize(name)); ok {
			return true
		}
	}
	return false
}

func sample(items []string) []string {
	if len(items) > 5 {
		return items[:5]
	}
	return items
}
