package render

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jupierce/pr-coverage/pkg/coverage"
	"github.com/jupierce/pr-coverage/pkg/tree"
)

func detail(file string, lines, functions, branches [2]int) coverage.FileDetail {
	return coverage.DetailOf(file, coverage.FileCoverage{
		File:      file,
		Lines:     coverage.Counts{Hit: lines[0], Found: lines[1]},
		Functions: coverage.Counts{Hit: functions[0], Found: functions[1]},
		Branches:  coverage.Counts{Hit: branches[0], Found: branches[1]},
	})
}

func componentTree() *tree.Node {
	return tree.Build([]coverage.FileDetail{
		detail("src/components/Modal/Modal.tsx", [2]int{12, 24}, [2]int{7, 10}, [2]int{12, 15}),
		detail("src/components/Button/Button.tsx", [2]int{6, 10}, [2]int{4, 5}, [2]int{8, 10}),
		detail("src/components/Modal/Modal.types.ts", [2]int{1, 2}, [2]int{1, 1}, [2]int{2, 2}),
		detail("src/useValidation.ts", [2]int{3, 4}, [2]int{3, 3}, [2]int{2, 4}),
	})
}

func TestTable(t *testing.T) {
	got := strings.Split(Table(componentTree()), "\n")

	want := []string{
		"| **File** | **Lines** | **Line %** | **Functions** | **Function %** | **Branches** | **Branch %** |",
		"|------|-------|--------|-----------|------------|----------|----------|",
		"| **📁 src** | **22/40** | **55.0%** | **15/19** | **78.9%** | **24/31** | **77.4%** |",
		"| **&emsp; 📁 components** | **19/36** | **52.8%** | **12/16** | **75.0%** | **22/27** | **81.5%** |",
		"| **&emsp;&emsp;&nbsp; 📁 Button** | **6/10** | **60.0%** | **4/5** | **80.0%** | **8/10** | **80.0%** |",
		"| &emsp;&emsp;&emsp;&nbsp;&nbsp; 📄 Button.tsx | 6/10 | 60.0% | 4/5 | 80.0% | 8/10 | 80.0% |",
		"| **&emsp;&emsp;&nbsp; 📁 Modal** | **13/26** | **50.0%** | **8/11** | **72.7%** | **14/17** | **82.4%** |",
		"| &emsp;&emsp;&emsp;&nbsp;&nbsp; 📄 Modal.tsx | 12/24 | 50.0% | 7/10 | 70.0% | 12/15 | 80.0% |",
		"| &emsp;&emsp;&emsp;&nbsp;&nbsp; 📄 Modal.types.ts | 1/2 | 50.0% | 1/1 | 100.0% | 2/2 | 100.0% |",
		"| &emsp; 📄 useValidation.ts | 3/4 | 75.0% | 3/3 | 100.0% | 2/4 | 50.0% |",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Table() mismatch (-want +got):\n%s", diff)
	}
}

func TestTableNil(t *testing.T) {
	if got := Table(nil); got != "" {
		t.Errorf("Table(nil) = %q, want empty", got)
	}
}

func TestTableSingleFile(t *testing.T) {
	d := detail("utils.ts", [2]int{5, 10}, [2]int{2, 4}, [2]int{3, 6})
	root := &tree.Node{Name: "utils.ts", Coverage: d.Stats, Detail: &d}

	want := "| 📄 utils.ts | 5/10 | 50.0% | 2/4 | 50.0% | 3/6 | 50.0% |"
	if got := Table(root); !strings.Contains(got, want) {
		t.Errorf("Table() = %q, want row %q", got, want)
	}
}

func TestTableDeeperRowsIndentMore(t *testing.T) {
	fileA := &tree.Node{Name: "a.ts"}
	fileB := &tree.Node{Name: "b.ts"}
	dir := &tree.Node{Name: "dir", IsDirectory: true, Children: []*tree.Node{fileB}}
	root := &tree.Node{Name: "root", IsDirectory: true, Children: []*tree.Node{fileA, dir}}

	rows := strings.Split(Table(root), "\n")[2:]
	if len(rows) != 4 {
		t.Fatalf("got %d rows, want 4:\n%s", len(rows), strings.Join(rows, "\n"))
	}
	for i, name := range []string{"root", "a.ts", "dir", "b.ts"} {
		if !strings.Contains(rows[i], name) {
			t.Errorf("row %d = %q, want %s", i, rows[i], name)
		}
	}
	if strings.Count(rows[3], "&emsp;") <= strings.Count(rows[1], "&emsp;") {
		t.Errorf("b.ts row %q is not indented deeper than a.ts row %q", rows[3], rows[1])
	}
}

func TestIndentation(t *testing.T) {
	tests := []struct {
		depth int
		want  string
	}{
		{0, ""},
		{1, "&emsp; "},
		{2, "&emsp;&emsp;&nbsp; "},
		{3, "&emsp;&emsp;&emsp;&nbsp;&nbsp; "},
		{5, "&emsp;&emsp;&emsp;&emsp;&emsp;&nbsp;&nbsp; "},
	}
	for _, tt := range tests {
		if got := indentation(tt.depth); got != tt.want {
			t.Errorf("indentation(%d) = %q, want %q", tt.depth, got, tt.want)
		}
	}
}
