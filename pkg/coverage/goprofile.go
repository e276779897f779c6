package coverage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/mod/modfile"
	"golang.org/x/tools/cover"
)

// ReadGoProfile parses a `go test -coverprofile` file into a Dataset.
//
// Go profiles carry statement blocks, not lines, so line counts are derived:
// a source line is found if any block spans it and hit if the highest count
// among those blocks is non-zero. Functions and branches are not recorded by
// the Go toolchain and stay zero.
//
// modulePrefix, when non-empty, is stripped from the import-path style file
// names so keys become repository-relative.
func ReadGoProfile(path, modulePrefix string) (*Dataset, error) {
	profiles, err := cover.ParseProfiles(path)
	if err != nil {
		return nil, fmt.Errorf("parse profiles: %w", err)
	}

	modulePrefix = strings.TrimSuffix(modulePrefix, "/")
	ds := NewDataset()
	for _, profile := range profiles {
		name := profile.FileName
		// only whole path elements are stripped
		if rest, ok := strings.CutPrefix(name, modulePrefix+"/"); ok && modulePrefix != "" {
			name = rest
		}

		ds.Put(FileCoverage{
			File:  name,
			Lines: profileLineCounts(profile),
		})
	}

	return ds, nil
}

func profileLineCounts(profile *cover.Profile) Counts {
	// line -> highest execution count across the blocks covering it
	lineCounts := make(map[int]int)
	for _, block := range profile.Blocks {
		for line := block.StartLine; line <= block.EndLine; line++ {
			if prev, ok := lineCounts[line]; !ok || block.Count > prev {
				lineCounts[line] = block.Count
			}
		}
	}

	var c Counts
	for _, count := range lineCounts {
		c.Found++
		if count > 0 {
			c.Hit++
		}
	}
	return c
}

// ModulePath reads the module path from the go.mod in dir, or "" when there
// is none.
func ModulePath(dir string) string {
	data, err := os.ReadFile(filepath.Join(dir, "go.mod"))
	if err != nil {
		return ""
	}
	return modfile.ModulePath(data)
}
