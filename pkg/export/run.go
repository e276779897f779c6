// Package export writes a single report run to SQLite or BigQuery for
// downstream querying. Each export describes exactly one run.
package export

import (
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/jupierce/pr-coverage/pkg/coverage"
	"github.com/jupierce/pr-coverage/pkg/report"
	"github.com/jupierce/pr-coverage/pkg/tree"
)

// Run is one report together with where it came from
type Run struct {
	ID          string
	CreatedAt   time.Time
	Repository  string
	PullRequest int
	Revision    string
	Report      *report.Report
}

// NewRun stamps r with a fresh ID and the current time
func NewRun(r *report.Report, repository string, pullRequest int, revision string) Run {
	return Run{
		ID:          uuid.NewString(),
		CreatedAt:   time.Now().UTC(),
		Repository:  repository,
		PullRequest: pullRequest,
		Revision:    revision,
		Report:      r,
	}
}

// NodeRow is a flattened tree node. Path is the slash-joined path from the
// tree root; the virtual root has an empty path.
type NodeRow struct {
	Path        string
	Name        string
	Depth       int
	IsDirectory bool
	Stats       coverage.Stats
}

// FlattenTree lists every node of root in pre-order
func FlattenTree(root *tree.Node) []NodeRow {
	if root == nil {
		return nil
	}
	var rows []NodeRow
	var visit func(n *tree.Node, parent string, depth int)
	visit = func(n *tree.Node, parent string, depth int) {
		p := path.Join(parent, n.Name)
		if p == "." {
			p = ""
		}
		rows = append(rows, NodeRow{
			Path:        p,
			Name:        n.Name,
			Depth:       depth,
			IsDirectory: n.IsDirectory,
			Stats:       n.Coverage,
		})
		if !n.IsDirectory {
			return
		}
		for _, c := range n.Children {
			visit(c, p, depth+1)
		}
	}
	visit(root, "", 0)
	return rows
}
