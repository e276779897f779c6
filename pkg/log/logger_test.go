package log

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestLogger(t *testing.T, level Level, actions bool) (*Logger, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	l, err := New(level, "", WithWriters(&stdout, &stderr), WithActions(actions))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return l, &stdout, &stderr
}

func TestLevels(t *testing.T) {
	l, stdout, stderr := newTestLogger(t, InfoLevel, false)

	l.Info("info %d", 1)
	l.Debug("hidden debug")
	l.Trace("hidden trace")
	l.Error("broke: %s", "disk")
	l.Progress("working")
	l.Success("done")
	l.Warning("careful")

	want := "info 1\n⏳ working\n✅ done\n⚠️  careful\n"
	if got := stdout.String(); got != want {
		t.Errorf("stdout = %q, want %q", got, want)
	}
	if got := stderr.String(); got != "❌ broke: disk\n" {
		t.Errorf("stderr = %q", got)
	}
}

func TestErrorLevelStillShowsAlwaysMessages(t *testing.T) {
	l, stdout, _ := newTestLogger(t, ErrorLevel, false)
	l.Info("hidden")
	l.Progress("shown")
	if got := stdout.String(); got != "⏳ shown\n" {
		t.Errorf("stdout = %q", got)
	}
}

func TestActionsMode(t *testing.T) {
	l, stdout, stderr := newTestLogger(t, DebugLevel, true)

	l.Error("%s", "100% broken\nsecond line")
	l.Warning("threshold missed")
	l.Debug("matched %s", "a.ts")
	l.Info("plain")

	want := strings.Join([]string{
		"::error::100%25 broken%0Asecond line",
		"::warning::threshold missed",
		"::debug::matched a.ts",
		"plain",
		"",
	}, "\n")
	if got := stdout.String(); got != want {
		t.Errorf("stdout = %q, want %q", got, want)
	}
	if stderr.Len() != 0 {
		t.Errorf("stderr = %q, want empty", stderr.String())
	}
}

func TestLogFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	var stdout bytes.Buffer
	l, err := New(DebugLevel, dir, WithWriters(&stdout, &stdout), WithActions(false))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	l.Debug("to file")
	l.Success("finished")
	if err := l.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	matches, err := filepath.Glob(filepath.Join(dir, "pr-coverage-*.log"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("log files = %v, %v; want one", matches, err)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"[DEBUG] to file", "[SUCCESS] finished"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("log file missing %q:\n%s", want, data)
		}
	}
}

func TestDiscard(t *testing.T) {
	l := Discard()
	l.Error("nothing")
	l.Success("nothing")
	if l.Enabled(InfoLevel) {
		t.Error("Discard() logger should not enable info")
	}
}

func TestParseLevel(t *testing.T) {
	for s, want := range map[string]Level{"error": ErrorLevel, "info": InfoLevel, "debug": DebugLevel, "trace": TraceLevel} {
		got, err := ParseLevel(s)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", s, got, err, want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Error("ParseLevel(loud) error = nil")
	}
}
