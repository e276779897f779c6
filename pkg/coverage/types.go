package coverage

import "math"

// Counts holds found/hit totals for one coverage category
type Counts struct {
	Found int `json:"found"`
	Hit   int `json:"hit"`
}

// Percent returns hit/found as a percentage, or 0 when nothing was found
func (c Counts) Percent() float64 {
	if c.Found <= 0 {
		return 0
	}
	return float64(c.Hit) / float64(c.Found) * 100
}

// Add returns the element-wise sum of c and o
func (c Counts) Add(o Counts) Counts {
	return Counts{Found: c.Found + o.Found, Hit: c.Hit + o.Hit}
}

// FileCoverage is the normalized per-file coverage record: lines, functions
// and branches, each as a found/hit pair.
type FileCoverage struct {
	File      string `json:"file"`
	Lines     Counts `json:"lines"`
	Functions Counts `json:"functions"`
	Branches  Counts `json:"branches"`
}

// FileStatus is the change kind reported for a file in a revision
type FileStatus string

const (
	StatusAdded     FileStatus = "added"
	StatusRemoved   FileStatus = "removed"
	StatusModified  FileStatus = "modified"
	StatusRenamed   FileStatus = "renamed"
	StatusCopied    FileStatus = "copied"
	StatusChanged   FileStatus = "changed"
	StatusUnchanged FileStatus = "unchanged"
)

// ChangedFile describes one file touched by the revision under review
type ChangedFile struct {
	Filename string     `json:"filename"`
	Status   FileStatus `json:"status"`
}

// Stat is a hit/total pair that carries its percentage
type Stat struct {
	Hit        int     `json:"hit"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

// Stats groups the three per-category stats of a file or directory
type Stats struct {
	Lines     Stat `json:"lines"`
	Functions Stat `json:"functions"`
	Branches  Stat `json:"branches"`
}

// FileDetail is a matched changed file with its coverage stats
type FileDetail struct {
	File string `json:"file"`
	Stats
}

// StatOf converts counts to a Stat with a full-precision percentage
func StatOf(c Counts) Stat {
	return Stat{Hit: c.Hit, Total: c.Found, Percentage: c.Percent()}
}

// DetailOf builds the detail row for a coverage record, reported under name
func DetailOf(name string, fc FileCoverage) FileDetail {
	return FileDetail{
		File: name,
		Stats: Stats{
			Lines:     StatOf(fc.Lines),
			Functions: StatOf(fc.Functions),
			Branches:  StatOf(fc.Branches),
		},
	}
}

// roundedPercent is the directory-rollup percentage: one decimal place
func roundedPercent(hit, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(hit)/float64(total)*1000) / 10
}
