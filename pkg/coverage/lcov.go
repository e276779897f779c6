package coverage

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// lcovRecord accumulates one SF..end_of_record block. Explicit summary
// counters (LF/LH etc.) win over counts derived from detail lines.
type lcovRecord struct {
	file string

	lines, functions, branches          Counts
	hasLines, hasFunctions, hasBranches bool

	lineHits    map[int]int
	funcNames   []string
	funcHits    map[string]int
	branchTotal int
	branchTaken int
}

func newLCOVRecord(file string) *lcovRecord {
	return &lcovRecord{
		file:     file,
		lineHits: make(map[int]int),
		funcHits: make(map[string]int),
	}
}

func (r *lcovRecord) coverage() FileCoverage {
	fc := FileCoverage{File: r.file}

	if r.hasLines {
		fc.Lines = r.lines
	} else {
		fc.Lines.Found = len(r.lineHits)
		for _, hits := range r.lineHits {
			if hits > 0 {
				fc.Lines.Hit++
			}
		}
	}

	if r.hasFunctions {
		fc.Functions = r.functions
	} else {
		seen := make(map[string]bool, len(r.funcNames))
		for _, name := range r.funcNames {
			if seen[name] {
				continue
			}
			seen[name] = true
			fc.Functions.Found++
			if r.funcHits[name] > 0 {
				fc.Functions.Hit++
			}
		}
	}

	if r.hasBranches {
		fc.Branches = r.branches
	} else {
		fc.Branches = Counts{Found: r.branchTotal, Hit: r.branchTaken}
	}

	return fc
}

// ParseLCOV reads an LCOV tracefile. Records are keyed by their SF path in the
// order they appear; a repeated SF replaces the earlier counts.
func ParseLCOV(r io.Reader) (*Dataset, error) {
	ds := NewDataset()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var cur *lcovRecord
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if line == "end_of_record" {
			if cur != nil {
				ds.Put(cur.coverage())
				cur = nil
			}
			continue
		}

		tag, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}

		if tag == "SF" {
			if cur != nil {
				ds.Put(cur.coverage())
			}
			cur = newLCOVRecord(value)
			continue
		}
		if cur == nil {
			// TN: and anything else outside a record
			continue
		}

		if err := cur.apply(tag, value); err != nil {
			return nil, fmt.Errorf("parse lcov line %d (%s): %w", lineNo, cur.file, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read lcov: %w", err)
	}
	if cur != nil {
		ds.Put(cur.coverage())
	}

	return ds, nil
}

func (r *lcovRecord) apply(tag, value string) error {
	switch tag {
	case "LF":
		n, err := parseCount(value)
		if err != nil {
			return err
		}
		r.lines.Found, r.hasLines = n, true
	case "LH":
		n, err := parseCount(value)
		if err != nil {
			return err
		}
		r.lines.Hit, r.hasLines = n, true
	case "FNF":
		n, err := parseCount(value)
		if err != nil {
			return err
		}
		r.functions.Found, r.hasFunctions = n, true
	case "FNH":
		n, err := parseCount(value)
		if err != nil {
			return err
		}
		r.functions.Hit, r.hasFunctions = n, true
	case "BRF":
		n, err := parseCount(value)
		if err != nil {
			return err
		}
		r.branches.Found, r.hasBranches = n, true
	case "BRH":
		n, err := parseCount(value)
		if err != nil {
			return err
		}
		r.branches.Hit, r.hasBranches = n, true
	case "DA":
		// DA:<line>,<hits>[,<checksum>]
		parts := strings.Split(value, ",")
		if len(parts) < 2 {
			return fmt.Errorf("malformed DA %q", value)
		}
		ln, err := parseCount(parts[0])
		if err != nil {
			return err
		}
		hits, err := parseCount(parts[1])
		if err != nil {
			return err
		}
		if prev, ok := r.lineHits[ln]; !ok || hits > prev {
			r.lineHits[ln] = hits
		}
	case "FN":
		// FN:<line>[,<end line>],<name>
		idx := strings.LastIndex(value, ",")
		if idx < 0 {
			return fmt.Errorf("malformed FN %q", value)
		}
		r.funcNames = append(r.funcNames, value[idx+1:])
	case "FNDA":
		// FNDA:<hits>,<name>
		hitsStr, name, ok := strings.Cut(value, ",")
		if !ok {
			return fmt.Errorf("malformed FNDA %q", value)
		}
		hits, err := parseCount(hitsStr)
		if err != nil {
			return err
		}
		r.funcHits[name] += hits
	case "BRDA":
		// BRDA:<line>,<block>,<branch>,<taken|->
		parts := strings.Split(value, ",")
		if len(parts) < 4 {
			return fmt.Errorf("malformed BRDA %q", value)
		}
		r.branchTotal++
		if taken := parts[3]; taken != "-" {
			n, err := parseCount(taken)
			if err != nil {
				return err
			}
			if n > 0 {
				r.branchTaken++
			}
		}
	}
	return nil
}

func parseCount(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid count %q", s)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative count %q", s)
	}
	return n, nil
}

// ReadLCOVFile parses the LCOV file at path
func ReadLCOVFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open lcov file: %w", err)
	}
	defer f.Close()

	ds, err := ParseLCOV(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse LCOV file %s: %w", path, err)
	}
	return ds, nil
}
