package coverage

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSummarize(t *testing.T) {
	tests := []struct {
		name  string
		files []FileCoverage
		want  Summary
	}{
		{
			name: "empty",
			want: Summary{},
		},
		{
			name: "zero totals",
			files: []FileCoverage{
				{File: "a.ts"},
				{File: "b.ts"},
			},
			want: Summary{},
		},
		{
			name: "sums every category",
			files: []FileCoverage{
				{File: "a.ts", Lines: Counts{Found: 10, Hit: 5}, Functions: Counts{Found: 4, Hit: 4}, Branches: Counts{Found: 2, Hit: 1}},
				{File: "b.ts", Lines: Counts{Found: 30, Hit: 25}, Functions: Counts{Found: 4, Hit: 2}},
			},
			want: Summary{
				LinesTotal:        40,
				LinesHit:          30,
				LinesCoverage:     75,
				FunctionsTotal:    8,
				FunctionsHit:      6,
				FunctionsCoverage: 75,
				BranchesTotal:     2,
				BranchesHit:       1,
				BranchesCoverage:  50,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Summarize(tt.files)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Summarize() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSummarizeKeepsFullPrecision(t *testing.T) {
	got := Summarize([]FileCoverage{{Lines: Counts{Found: 3, Hit: 1}}})
	hit, found := 1.0, 3.0
	if want := hit / found * 100; got.LinesCoverage != want {
		t.Errorf("LinesCoverage = %v, want %v", got.LinesCoverage, want)
	}
}

func TestRollup(t *testing.T) {
	children := []Stats{
		{
			Lines:     Stat{Hit: 6, Total: 10, Percentage: 60},
			Functions: Stat{Hit: 4, Total: 5, Percentage: 80},
			Branches:  Stat{Hit: 8, Total: 10, Percentage: 80},
		},
		{
			Lines:     Stat{Hit: 13, Total: 26, Percentage: 50},
			Functions: Stat{Hit: 8, Total: 11, Percentage: 72.7},
			Branches:  Stat{Hit: 14, Total: 17, Percentage: 82.4},
		},
	}

	want := Stats{
		Lines:     Stat{Hit: 19, Total: 36, Percentage: 52.8},
		Functions: Stat{Hit: 12, Total: 16, Percentage: 75},
		Branches:  Stat{Hit: 22, Total: 27, Percentage: 81.5},
	}
	if diff := cmp.Diff(want, Rollup(children)); diff != "" {
		t.Errorf("Rollup() mismatch (-want +got):\n%s", diff)
	}
}

func TestRollupZeroTotals(t *testing.T) {
	got := Rollup([]Stats{{}, {}})
	if diff := cmp.Diff(Stats{}, got); diff != "" {
		t.Errorf("Rollup() mismatch (-want +got):\n%s", diff)
	}
}

func TestCountsPercent(t *testing.T) {
	tests := []struct {
		c    Counts
		want float64
	}{
		{Counts{}, 0},
		{Counts{Found: 4, Hit: 1}, 25},
		{Counts{Found: 2, Hit: 2}, 100},
	}
	for _, tt := range tests {
		if got := tt.c.Percent(); got != tt.want {
			t.Errorf("%+v.Percent() = %v, want %v", tt.c, got, tt.want)
		}
	}
}

func TestDatasetKeepsInsertionOrder(t *testing.T) {
	ds := NewDataset()
	ds.Put(FileCoverage{File: "b.ts", Lines: Counts{Found: 1}})
	ds.Put(FileCoverage{File: "a.ts"})
	ds.Put(FileCoverage{File: "b.ts", Lines: Counts{Found: 2, Hit: 2}})

	if diff := cmp.Diff([]string{"b.ts", "a.ts"}, ds.Keys()); diff != "" {
		t.Errorf("Keys() mismatch (-want +got):\n%s", diff)
	}
	if ds.Len() != 2 {
		t.Errorf("Len() = %d, want 2", ds.Len())
	}
	fc, ok := ds.Get("b.ts")
	if !ok || fc.Lines.Found != 2 {
		t.Errorf("Get(b.ts) = %+v, %v; want replaced record", fc, ok)
	}
}
