package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jupierce/pr-coverage/pkg/coverage"
	"github.com/jupierce/pr-coverage/pkg/tree"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	dirStyle    = lipgloss.NewStyle().Bold(true)
	goodStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	badStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("197"))
)

type terminalRow struct {
	name  string
	dir   bool
	stats coverage.Stats
}

// Terminal writes the tree as an aligned, colored table. Unlike the markdown
// table, columns are padded to the widest name because terminals keep
// whitespace.
func Terminal(w io.Writer, root *tree.Node) error {
	if root == nil {
		_, err := fmt.Fprintln(w, "No changed files with coverage data.")
		return err
	}

	var rows []terminalRow
	nameWidth := len("File")
	tree.Walk(root, func(n *tree.Node, depth int) {
		icon := fileIcon
		if n.IsDirectory {
			icon = dirIcon
		}
		name := strings.Repeat("  ", depth) + icon + " " + n.Name
		if wdt := lipgloss.Width(name); wdt > nameWidth {
			nameWidth = wdt
		}
		rows = append(rows, terminalRow{name: name, dir: n.IsDirectory, stats: n.Coverage})
	})

	header := fmt.Sprintf("%s  %12s %8s  %12s %8s  %12s %8s",
		pad("File", nameWidth), "Lines", "Line %", "Functions", "Func %", "Branches", "Branch %")
	if _, err := fmt.Fprintln(w, headerStyle.Render(header)); err != nil {
		return err
	}

	for _, r := range rows {
		name := pad(r.name, nameWidth)
		if r.dir {
			name = dirStyle.Render(name)
		}
		line := fmt.Sprintf("%s  %12s %s  %12s %s  %12s %s",
			name,
			fraction(r.stats.Lines), bandPercent(r.stats.Lines.Percentage),
			fraction(r.stats.Functions), bandPercent(r.stats.Functions.Percentage),
			fraction(r.stats.Branches), bandPercent(r.stats.Branches.Percentage))
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func pad(s string, width int) string {
	if gap := width - lipgloss.Width(s); gap > 0 {
		return s + strings.Repeat(" ", gap)
	}
	return s
}

func bandPercent(p float64) string {
	text := fmt.Sprintf("%8s", percent(p))
	switch {
	case p >= 80:
		return goodStyle.Render(text)
	case p >= 60:
		return warnStyle.Render(text)
	default:
		return badStyle.Render(text)
	}
}
