package logging

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(WARN, false)
	log.SetOutput(&buf)

	log.Debug("debug message")
	log.Info("info message")
	log.Warn("warn message")
	log.Error("error message")

	out := buf.String()
	if strings.Contains(out, "debug message") || strings.Contains(out, "info message") {
		t.Errorf("messages below WARN should be filtered:\n%s", out)
	}
	if !strings.Contains(out, "warn message") || !strings.Contains(out, "error message") {
		t.Errorf("WARN and ERROR should pass:\n%s", out)
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(INFO, true)
	log.SetOutput(&buf)

	log.Info("hello", map[string]interface{}{"attempt": 2})

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if entry.Level != "INFO" || entry.Message != "hello" {
		t.Errorf("entry = %+v", entry)
	}
	if entry.Fields["attempt"] != float64(2) {
		t.Errorf("fields = %v", entry.Fields)
	}
}

func TestWithField(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(INFO, true)
	log.SetOutput(&buf)

	log.WithField("node", 0).Info("launched")

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatal(err)
	}
	if entry.Fields["node"] != float64(0) {
		t.Errorf("fields = %v", entry.Fields)
	}

	// Parent logger must not inherit the child's field.
	buf.Reset()
	log.Info("plain")
	if strings.Contains(buf.String(), "node") {
		t.Error("WithField must not mutate the parent logger")
	}
}

func TestFatalCallsExit(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(INFO, false)
	log.SetOutput(&buf)

	code := -1
	log.exit = func(c int) { code = c }

	log.Fatal("fatal message")

	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if !strings.Contains(buf.String(), "fatal message") {
		t.Error("fatal message should be written before exit")
	}
}

func TestFileLogger(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")

	log, err := NewFileLogger(dir, "harness", INFO, false)
	if err != nil {
		t.Fatalf("NewFileLogger returned error: %v", err)
	}
	defer log.Close()

	log.Info("written to file")

	if log.Path() != filepath.Join(dir, "harness.log") {
		t.Errorf("Path = %q", log.Path())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", DEBUG},
		{"INFO", INFO},
		{"warning", WARN},
		{"error", ERROR},
		{"FATAL", FATAL},
		{"garbage", INFO},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
