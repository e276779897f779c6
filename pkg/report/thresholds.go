package report

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// Thresholds are minimum line-coverage percentages. Zero disables a check.
type Thresholds struct {
	AllFiles     float64
	ChangedFiles float64
}

// Check returns an error describing every threshold r falls below, or nil
func (t Thresholds) Check(r *Report) error {
	var result *multierror.Error

	if t.AllFiles > 0 && r.AllFiles.LinesCoverage < t.AllFiles {
		result = multierror.Append(result, fmt.Errorf(
			"All files coverage (%.1f%%) is below minimum threshold (%g%%)",
			r.AllFiles.LinesCoverage, t.AllFiles))
	}

	if t.ChangedFiles > 0 && r.ChangedFiles.LinesCoverage < t.ChangedFiles {
		result = multierror.Append(result, fmt.Errorf(
			"Changed files coverage (%.1f%%) is below minimum threshold (%g%%)",
			r.ChangedFiles.LinesCoverage, t.ChangedFiles))
	}

	return result.ErrorOrNil()
}
