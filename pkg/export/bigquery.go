package export

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/option"

	"github.com/jupierce/pr-coverage/pkg/log"
)

const (
	runsTable  = "coverage_runs"
	nodesTable = "coverage_nodes"
	batchSize  = 500
)

// RunRow is one row of the coverage_runs table
type RunRow struct {
	RunID                string    `bigquery:"run_id"`
	CreatedAt            time.Time `bigquery:"created_at"`
	Repository           string    `bigquery:"repository"`
	PullRequest          int       `bigquery:"pull_request"`
	Revision             string    `bigquery:"revision"`
	AllLinesTotal        int       `bigquery:"all_lines_total"`
	AllLinesHit          int       `bigquery:"all_lines_hit"`
	AllLinesCoverage     float64   `bigquery:"all_lines_coverage"`
	ChangedLinesTotal    int       `bigquery:"changed_lines_total"`
	ChangedLinesHit      int       `bigquery:"changed_lines_hit"`
	ChangedLinesCoverage float64   `bigquery:"changed_lines_coverage"`
	ChangedTotal         int       `bigquery:"changed_total"`
	ChangedMatched       int       `bigquery:"changed_matched"`
}

// NodeStatRow is one tree node of a run in the coverage_nodes table
type NodeStatRow struct {
	RunID          string    `bigquery:"run_id"`
	CreatedAt      time.Time `bigquery:"created_at"`
	Path           string    `bigquery:"path"`
	Depth          int       `bigquery:"depth"`
	IsDirectory    bool      `bigquery:"is_directory"`
	LinesHit       int       `bigquery:"lines_hit"`
	LinesTotal     int       `bigquery:"lines_total"`
	FunctionsHit   int       `bigquery:"functions_hit"`
	FunctionsTotal int       `bigquery:"functions_total"`
	BranchesHit    int       `bigquery:"branches_hit"`
	BranchesTotal  int       `bigquery:"branches_total"`
}

// Inserter is the streaming-insert surface of a BigQuery table
type Inserter interface {
	Put(ctx context.Context, src interface{}) error
}

// BigQueryExporter streams runs into a dataset
type BigQueryExporter struct {
	client  *bigquery.Client
	dataset string
	runs    Inserter
	nodes   Inserter
	logger  *log.Logger
}

// NewBigQueryExporter connects to project and makes sure the dataset and
// tables exist.
func NewBigQueryExporter(ctx context.Context, project, dataset, credentialsFile string, logger *log.Logger) (*BigQueryExporter, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := bigquery.NewClient(ctx, project, opts...)
	if err != nil {
		return nil, fmt.Errorf("create BigQuery client: %w", err)
	}

	e := &BigQueryExporter{client: client, dataset: dataset, logger: logger}
	if err := e.ensureDatasetAndTables(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup BigQuery: %w", err)
	}

	ds := client.Dataset(dataset)
	e.runs = ds.Table(runsTable).Inserter()
	e.nodes = ds.Table(nodesTable).Inserter()
	return e, nil
}

// NewBigQueryExporterWithInserters builds an exporter over existing inserters
func NewBigQueryExporterWithInserters(runs, nodes Inserter, logger *log.Logger) *BigQueryExporter {
	if logger == nil {
		logger = log.Discard()
	}
	return &BigQueryExporter{runs: runs, nodes: nodes, logger: logger}
}

// Close releases the BigQuery client
func (e *BigQueryExporter) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

// ensureDatasetAndTables creates the dataset and tables if they don't exist
func (e *BigQueryExporter) ensureDatasetAndTables(ctx context.Context) error {
	dataset := e.client.Dataset(e.dataset)

	if err := dataset.Create(ctx, &bigquery.DatasetMetadata{}); err != nil && !alreadyExists(err) {
		return fmt.Errorf("create dataset: %w", err)
	}

	runsSchema, err := bigquery.InferSchema(RunRow{})
	if err != nil {
		return fmt.Errorf("infer %s schema: %w", runsTable, err)
	}
	nodesSchema, err := bigquery.InferSchema(NodeStatRow{})
	if err != nil {
		return fmt.Errorf("infer %s schema: %w", nodesTable, err)
	}

	tables := []struct {
		name   string
		schema bigquery.Schema
	}{
		{runsTable, runsSchema},
		{nodesTable, nodesSchema},
	}
	for _, t := range tables {
		err := dataset.Table(t.name).Create(ctx, &bigquery.TableMetadata{
			Schema: t.schema,
			TimePartitioning: &bigquery.TimePartitioning{
				Field: "created_at",
				Type:  bigquery.DayPartitioningType,
			},
			Clustering: &bigquery.Clustering{
				Fields: []string{"run_id"},
			},
		})
		if err != nil && !alreadyExists(err) {
			return fmt.Errorf("create table %s: %w", t.name, err)
		}
	}
	return nil
}

func alreadyExists(err error) bool {
	return strings.Contains(err.Error(), "Already Exists") || strings.Contains(err.Error(), "alreadyExists")
}

// Export inserts the run row and one row per tree node, in batches
func (e *BigQueryExporter) Export(ctx context.Context, run Run) (int, error) {
	r := run.Report
	if r == nil {
		return 0, fmt.Errorf("run %s has no report", run.ID)
	}

	runRow := &RunRow{
		RunID:                run.ID,
		CreatedAt:            run.CreatedAt,
		Repository:           run.Repository,
		PullRequest:          run.PullRequest,
		Revision:             run.Revision,
		AllLinesTotal:        r.AllFiles.LinesTotal,
		AllLinesHit:          r.AllFiles.LinesHit,
		AllLinesCoverage:     r.AllFiles.LinesCoverage,
		ChangedLinesTotal:    r.ChangedFiles.LinesTotal,
		ChangedLinesHit:      r.ChangedFiles.LinesHit,
		ChangedLinesCoverage: r.ChangedFiles.LinesCoverage,
		ChangedTotal:         r.ChangedTotal,
		ChangedMatched:       r.ChangedMatched,
	}
	if err := e.runs.Put(ctx, runRow); err != nil {
		return 0, fmt.Errorf("insert run row: %w", err)
	}

	var rows []*NodeStatRow
	for _, n := range FlattenTree(r.Tree) {
		rows = append(rows, &NodeStatRow{
			RunID:          run.ID,
			CreatedAt:      run.CreatedAt,
			Path:           n.Path,
			Depth:          n.Depth,
			IsDirectory:    n.IsDirectory,
			LinesHit:       n.Stats.Lines.Hit,
			LinesTotal:     n.Stats.Lines.Total,
			FunctionsHit:   n.Stats.Functions.Hit,
			FunctionsTotal: n.Stats.Functions.Total,
			BranchesHit:    n.Stats.Branches.Hit,
			BranchesTotal:  n.Stats.Branches.Total,
		})
	}

	for start := 0; start < len(rows); start += batchSize {
		end := start + batchSize
		if end > len(rows) {
			end = len(rows)
		}
		if err := e.nodes.Put(ctx, rows[start:end]); err != nil {
			return start, fmt.Errorf("batch insert failed at offset %d: %w", start, err)
		}
		e.logger.Debug("Inserted node rows %d-%d", start, end)
	}

	return len(rows), nil
}
