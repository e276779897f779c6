// Package render formats coverage reports as markdown tables, HTML previews
// and terminal output.
package render

import (
	"fmt"
	"strings"

	"github.com/jupierce/pr-coverage/pkg/coverage"
	"github.com/jupierce/pr-coverage/pkg/tree"
)

const (
	tableHeader    = "| **File** | **Lines** | **Line %** | **Functions** | **Function %** | **Branches** | **Branch %** |"
	tableSeparator = "|------|-------|--------|-----------|------------|----------|----------|"

	dirIcon  = "📁"
	fileIcon = "📄"
)

// Table renders the tree as a nested markdown table, one row per node in
// pre-order. It returns "" for a nil tree.
func Table(root *tree.Node) string {
	if root == nil {
		return ""
	}

	rows := []string{tableHeader, tableSeparator}
	tree.Walk(root, func(n *tree.Node, depth int) {
		rows = append(rows, tableRow(n, depth))
	})
	return strings.Join(rows, "\n")
}

func tableRow(n *tree.Node, depth int) string {
	icon := fileIcon
	if n.IsDirectory {
		icon = dirIcon
	}
	name := fmt.Sprintf("%s%s %s", indentation(depth), icon, n.Name)

	fields := []string{
		name,
		fraction(n.Coverage.Lines),
		percent(n.Coverage.Lines.Percentage),
		fraction(n.Coverage.Functions),
		percent(n.Coverage.Functions.Percentage),
		fraction(n.Coverage.Branches),
		percent(n.Coverage.Branches.Percentage),
	}
	if n.IsDirectory {
		for i, f := range fields {
			fields[i] = "**" + f + "**"
		}
	}

	return "| " + strings.Join(fields, " | ") + " |"
}

// indentation depends on depth only. Markdown renderers collapse plain
// spaces, so the steps are built from HTML entities.
func indentation(depth int) string {
	if depth <= 0 {
		return ""
	}

	var b strings.Builder
	for i := 0; i < depth; i++ {
		b.WriteString("&emsp;")
	}
	switch depth {
	case 1:
		b.WriteString(" ")
	case 2:
		b.WriteString("&nbsp; ")
	default:
		b.WriteString("&nbsp;&nbsp; ")
	}
	return b.String()
}

func fraction(s coverage.Stat) string {
	return fmt.Sprintf("%d/%d", s.Hit, s.Total)
}

func percent(p float64) string {
	return fmt.Sprintf("%.1f%%", p)
}
