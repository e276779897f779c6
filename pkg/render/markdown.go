package render

import (
	"fmt"
	"strings"

	"github.com/jupierce/pr-coverage/pkg/coverage"
	"github.com/jupierce/pr-coverage/pkg/report"
)

// Status returns the emoji band for a line-coverage percentage
func Status(percentage float64) string {
	switch {
	case percentage >= 80:
		return "✅"
	case percentage >= 60:
		return "⚠️"
	default:
		return "❌"
	}
}

// Markdown renders the pull-request comment body for r
func Markdown(r *report.Report) string {
	var b strings.Builder

	allStatus := Status(r.AllFiles.LinesCoverage)
	changedStatus := Status(r.ChangedFiles.LinesCoverage)

	fmt.Fprintf(&b, "## LCOV Report %s\n\n", allStatus)

	b.WriteString("### All Files\n")
	writeSummary(&b, r.AllFiles, allStatus)

	b.WriteString("### Changed Files\n")
	writeSummary(&b, r.ChangedFiles, changedStatus)

	if len(r.FileDetails) > 0 {
		b.WriteString("Files changed:\n\n")
		b.WriteString(Table(r.Tree))
		b.WriteString("\n")
	}

	return b.String()
}

func writeSummary(b *strings.Builder, s coverage.Summary, status string) {
	fmt.Fprintf(b, "- Lines: %d/%d (%.1f%%) %s\n", s.LinesHit, s.LinesTotal, s.LinesCoverage, status)
	fmt.Fprintf(b, "- Functions: %d/%d (%.1f%%)\n", s.FunctionsHit, s.FunctionsTotal, s.FunctionsCoverage)
	fmt.Fprintf(b, "- Branches: %d/%d (%.1f%%)\n\n", s.BranchesHit, s.BranchesTotal, s.BranchesCoverage)
}
