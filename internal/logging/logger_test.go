package logging

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoggerPrefixesLevelsAndHidesDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, false)
	logger.Info("prepare %s", "ami-sdm")
	logger.Debug("hidden")
	logger.Error("boom")

	out := buf.String()
	if !strings.Contains(out, "INFO  prepare ami-sdm\n") {
		t.Fatalf("missing info line in %q", out)
	}
	if !strings.Contains(out, "ERROR boom\n") {
		t.Fatalf("missing error line in %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line leaked without verbose: %q", out)
	}
}

func TestLoggerVerboseShowsDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, true)
	logger.Debug("skip %s", "cutset")
	if !strings.Contains(buf.String(), "DEBUG skip cutset") {
		t.Fatalf("expected debug line, got %q", buf.String())
	}
}

func TestLoggerFileCarriesRunIDAndDebug(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "mtprep.log")
	logger := New(nil, false)
	logger.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	if err := logger.AttachFile(path, Rotation{MaxSizeMB: 1}); err != nil {
		t.Fatalf("attach: %v", err)
	}
	logger.Debug("first")
	logger.Warn("second")
	if err := logger.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	lines, err := Tail(path, 10)
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %v", len(lines), lines)
	}
	want := "[2024-01-02T03:04:05Z] " + logger.RunID() + " DEBUG first"
	if lines[0] != want {
		t.Fatalf("expected %q, got %q", want, lines[0])
	}
}

func TestTailKeepsMostRecent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	logger := New(nil, false)
	if err := logger.AttachFile(path, Rotation{}); err != nil {
		t.Fatal(err)
	}
	for _, msg := range []string{"a", "b", "c", "d"} {
		logger.Info(msg)
	}
	_ = logger.Close()

	lines, err := Tail(path, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 2 || !strings.HasSuffix(lines[0], " c") || !strings.HasSuffix(lines[1], " d") {
		t.Fatalf("unexpected tail %v", lines)
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	var logger *Logger
	logger.Info("ignored")
	if err := logger.Close(); err != nil {
		t.Fatal(err)
	}
}
