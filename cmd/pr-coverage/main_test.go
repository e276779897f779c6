package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// execute runs rootCmd with args after restoring every flag to its default,
// since the command tree is shared by all tests.
func execute(t *testing.T, args ...string) error {
	t.Helper()
	var reset func(c *cobra.Command)
	reset = func(c *cobra.Command) {
		restore := func(f *pflag.Flag) {
			if sv, ok := f.Value.(pflag.SliceValue); ok {
				if err := sv.Replace(nil); err != nil {
					t.Fatal(err)
				}
			} else if err := f.Value.Set(f.DefValue); err != nil {
				t.Fatal(err)
			}
			f.Changed = false
		}
		c.Flags().VisitAll(restore)
		c.PersistentFlags().VisitAll(restore)
		for _, sub := range c.Commands() {
			reset(sub)
		}
	}
	reset(rootCmd)

	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func TestInputEnvName(t *testing.T) {
	tests := map[string]string{
		"lcov-file":                      "INPUT_LCOV-FILE",
		"changed-files-minimum-coverage": "INPUT_CHANGED-FILES-MINIMUM-COVERAGE",
		"pr":                             "INPUT_PR",
	}
	for flag, want := range tests {
		if got := inputEnvName(flag); got != want {
			t.Errorf("inputEnvName(%q) = %q, want %q", flag, got, want)
		}
	}
}

func TestApplyEnvFallbacks(t *testing.T) {
	var f inputFlags
	cmd := &cobra.Command{Use: "test", RunE: func(*cobra.Command, []string) error { return nil }}
	f.addFlags(cmd.Flags())

	t.Setenv("INPUT_LCOV-FILE", "from-env.info")
	t.Setenv("INPUT_REPO", "octo/env")
	t.Setenv("INPUT_EXCLUDE", "**/gen/**,docs/*")
	t.Setenv("INPUT_PR", "")

	if err := cmd.Flags().Parse([]string{"--repo", "octo/flag"}); err != nil {
		t.Fatal(err)
	}
	if err := applyEnvFallbacks(cmd); err != nil {
		t.Fatalf("applyEnvFallbacks() error = %v", err)
	}

	if f.lcovFile != "from-env.info" {
		t.Errorf("lcovFile = %q, want value from environment", f.lcovFile)
	}
	if f.repo != "octo/flag" {
		t.Errorf("repo = %q, flags must win over the environment", f.repo)
	}
	if diff := cmp.Diff([]string{"**/gen/**", "docs/*"}, f.exclude); diff != "" {
		t.Errorf("exclude mismatch (-want +got):\n%s", diff)
	}
	if f.prNumber != 0 {
		t.Errorf("prNumber = %d, empty variables must be ignored", f.prNumber)
	}
}

func TestApplyEnvFallbacksInvalidValue(t *testing.T) {
	var f inputFlags
	cmd := &cobra.Command{Use: "test"}
	f.addFlags(cmd.Flags())

	t.Setenv("INPUT_PR", "seven")
	if err := applyEnvFallbacks(cmd); err == nil || !strings.Contains(err.Error(), "INPUT_PR") {
		t.Errorf("applyEnvFallbacks() error = %v, want one naming INPUT_PR", err)
	}
}

func TestInputFlagsValidate(t *testing.T) {
	tests := []struct {
		name    string
		flags   inputFlags
		wantErr string
	}{
		{"ok", inputFlags{lcovFile: "lcov.info", coverageFormat: "lcov", timeout: 1}, ""},
		{"missing file", inputFlags{coverageFormat: "lcov", timeout: 1}, "--lcov-file is required"},
		{"bad format", inputFlags{lcovFile: "x", coverageFormat: "xml", timeout: 1}, "invalid --coverage-format"},
		{"bad glob", inputFlags{lcovFile: "x", coverageFormat: "go", timeout: 1, exclude: []string{"["}}, "bad exclude pattern"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.flags.validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("validate() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestEnvFallbacksAreValidated(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		args    []string
		wantErr string
	}{
		{
			name:    "report format",
			env:     map[string]string{"INPUT_FORMAT": "bogus"},
			args:    []string{"report", "--lcov-file", "lcov.info", "--base-ref", "base"},
			wantErr: `invalid --format "bogus"`,
		},
		{
			name:    "root verbosity",
			env:     map[string]string{"INPUT_VERBOSITY": "nonsense"},
			args:    []string{"report", "--lcov-file", "lcov.info", "--base-ref", "base"},
			wantErr: "invalid log level: nonsense",
		},
		{
			name:    "flag wins over environment",
			env:     map[string]string{"INPUT_FORMAT": "terminal", "INPUT_VERBOSITY": "nonsense"},
			args:    []string{"report", "--verbosity", "info", "--format", "bogus"},
			wantErr: `invalid --format "bogus"`,
		},
		{
			name:    "required flag still enforced",
			args:    []string{"export", "bigquery", "--lcov-file", "lcov.info"},
			wantErr: `required flag(s) "project" not set`,
		},
		{
			name:    "required flag from environment",
			env:     map[string]string{"INPUT_PROJECT": "my-project"},
			args:    []string{"export", "bigquery"},
			wantErr: "--lcov-file is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			err := execute(t, tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Execute() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

// TestReportLocalRepository runs the report command end to end against a
// throwaway git repository.
func TestReportLocalRepository(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatal(err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatal(err)
	}
	commit := func(files map[string]string) plumbing.Hash {
		for name, content := range files {
			path := filepath.Join(dir, name)
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				t.Fatal(err)
			}
			if err := os.WriteFile(path, []byte(content), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := wt.Add(name); err != nil {
				t.Fatal(err)
			}
		}
		h, err := wt.Commit("commit", &git.CommitOptions{
			Author: &object.Signature{Name: "Test", Email: "test@example.com", When: time.Now()},
		})
		if err != nil {
			t.Fatal(err)
		}
		return h
	}

	base := commit(map[string]string{"src/a.ts": "a", "src/old.ts": "old"})
	if err := repo.Storer.SetReference(plumbing.NewHashReference(plumbing.NewBranchReferenceName("base"), base)); err != nil {
		t.Fatal(err)
	}
	commit(map[string]string{"src/a.ts": "a2", "src/b.ts": "b"})

	lcov := "SF:src/a.ts\nLF:10\nLH:8\nend_of_record\nSF:src/b.ts\nLF:10\nLH:2\nend_of_record\nSF:src/old.ts\nLF:80\nLH:80\nend_of_record\n"
	if err := os.WriteFile(filepath.Join(dir, "lcov.info"), []byte(lcov), 0644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "report.md")

	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("GITHUB_ACTIONS", "")
	err = execute(t,
		"report",
		"--lcov-file", "lcov.info",
		"--base-ref", "base",
		"--format", "none",
		"--output", out,
		"--all-files-minimum-coverage", "80",
		"--changed-files-minimum-coverage", "60",
	)
	if err == nil || !strings.Contains(err.Error(), "Changed files coverage (50.0%) is below minimum threshold (60%)") {
		t.Fatalf("Execute() error = %v, want changed-files threshold failure", err)
	}
	if strings.Contains(err.Error(), "All files coverage") {
		t.Errorf("all files coverage is 90%%, got %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("report was not written before the threshold check: %v", err)
	}
	for _, want := range []string{
		"- Lines: 90/100 (90.0%) ✅",
		"- Lines: 10/20 (50.0%) ❌",
		"| **📁 src** | **10/20** | **50.0%** |",
		"📄 b.ts",
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("report missing %q:\n%s", want, data)
		}
	}
}
