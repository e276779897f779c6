package coverage

// Summary is the rollup of a set of coverage records. Percentages keep full
// precision; display rounding happens at render time.
type Summary struct {
	LinesTotal        int     `json:"lines_total"`
	LinesHit          int     `json:"lines_hit"`
	LinesCoverage     float64 `json:"lines_coverage"`
	FunctionsTotal    int     `json:"functions_total"`
	FunctionsHit      int     `json:"functions_hit"`
	FunctionsCoverage float64 `json:"functions_coverage"`
	BranchesTotal     int     `json:"branches_total"`
	BranchesHit       int     `json:"branches_hit"`
	BranchesCoverage  float64 `json:"branches_coverage"`
}

// Summarize sums found/hit counts across files. An empty slice yields a zero
// Summary.
func Summarize(files []FileCoverage) Summary {
	var lines, functions, branches Counts
	for _, f := range files {
		lines = lines.Add(f.Lines)
		functions = functions.Add(f.Functions)
		branches = branches.Add(f.Branches)
	}

	return Summary{
		LinesTotal:        lines.Found,
		LinesHit:          lines.Hit,
		LinesCoverage:     lines.Percent(),
		FunctionsTotal:    functions.Found,
		FunctionsHit:      functions.Hit,
		FunctionsCoverage: functions.Percent(),
		BranchesTotal:     branches.Found,
		BranchesHit:       branches.Hit,
		BranchesCoverage:  branches.Percent(),
	}
}

// Rollup sums child stats for a directory node. Percentages are recomputed
// from the summed counts and rounded to one decimal place, never averaged.
func Rollup(children []Stats) Stats {
	var out Stats
	for _, c := range children {
		out.Lines.Hit += c.Lines.Hit
		out.Lines.Total += c.Lines.Total
		out.Functions.Hit += c.Functions.Hit
		out.Functions.Total += c.Functions.Total
		out.Branches.Hit += c.Branches.Hit
		out.Branches.Total += c.Branches.Total
	}
	out.Lines.Percentage = roundedPercent(out.Lines.Hit, out.Lines.Total)
	out.Functions.Percentage = roundedPercent(out.Functions.Hit, out.Functions.Total)
	out.Branches.Percentage = roundedPercent(out.Branches.Hit, out.Branches.Total)
	return out
}
