package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLevel_Constants(t *testing.T) {
	if LevelDebug != 0 {
		t.Errorf("LevelDebug = %d, want 0", LevelDebug)
	}
	if LevelInfo != 1 {
		t.Errorf("LevelInfo = %d, want 1", LevelInfo)
	}
	if LevelWarn != 2 {
		t.Errorf("LevelWarn = %d, want 2", LevelWarn)
	}
	if LevelError != 3 {
		t.Errorf("LevelError = %d, want 3", LevelError)
	}
}

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{LevelDebug, "debug"},
		{LevelInfo, "info"},
		{LevelWarn, "warn"},
		{LevelError, "error"},
		{Level(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.level.String(); got != tt.expected {
				t.Errorf("Level.String() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"TRACE", LevelDebug},
		{"info", LevelInfo},
		{"", LevelInfo},
		{"warning", LevelWarn},
		{" warn ", LevelWarn},
		{"fatal", LevelError},
		{"bogus", LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNew(t *testing.T) {
	logger := New("test-service")

	if logger == nil {
		t.Fatal("New() returned nil")
	}
	if logger.Name() != "test-service" {
		t.Errorf("name = %v, want test-service", logger.Name())
	}
}

func TestLogger_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithConfig(LoggerConfig{
		ServiceName: "access",
		Level:       "debug",
		Format:      "json",
		Output:      &buf,
	})

	logger.Info("found NameService", "endpoint", "localhost:2809", "error", errors.New("boom"))

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if entry["message"] != "found NameService" {
		t.Errorf("message = %v", entry["message"])
	}
	if entry["component"] != "access" {
		t.Errorf("component = %v, want access", entry["component"])
	}
	if entry["endpoint"] != "localhost:2809" {
		t.Errorf("endpoint = %v", entry["endpoint"])
	}
	if entry["error"] != "boom" {
		t.Errorf("error = %v, want boom", entry["error"])
	}
}

func TestLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithConfig(LoggerConfig{
		ServiceName: "test",
		Level:       "warn",
		Output:      &buf,
	})

	logger.Debug("hidden")
	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("expected no output below warn, got %q", buf.String())
	}

	logger.Warn("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("expected warn output, got %q", buf.String())
	}
}

func TestLogger_WithLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithConfig(LoggerConfig{ServiceName: "test", Level: "error", Output: &buf})
	result := logger.WithLevel(LevelDebug)

	if result.Name() != "test" {
		t.Errorf("name should be preserved: got %v", result.Name())
	}

	result.Debug("now visible")
	if !strings.Contains(buf.String(), "now visible") {
		t.Errorf("WithLevel(debug) should emit debug lines, got %q", buf.String())
	}
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithConfig(LoggerConfig{ServiceName: "test", Output: &buf}).With("task", "alpha")

	logger.Info("resolved")
	if !strings.Contains(buf.String(), `"task":"alpha"`) {
		t.Errorf("child logger should carry fields, got %q", buf.String())
	}
}

func TestLogger_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithConfig(LoggerConfig{ServiceName: "test", Format: "text", Output: &buf})

	logger.Info("plain line", "key", "value")
	out := buf.String()
	if strings.HasPrefix(out, "{") {
		t.Errorf("text format should not be JSON: %q", out)
	}
	if !strings.Contains(out, "plain line") || !strings.Contains(out, "key=value") {
		t.Errorf("unexpected text output %q", out)
	}
}

func TestToFields(t *testing.T) {
	if toFields() != nil {
		t.Error("toFields() with no args should be nil")
	}

	fields := toFields("a", 1, 2, "skipped", "dangling")
	if len(fields) != 1 {
		t.Errorf("len(fields) = %d, want 1", len(fields))
	}
	if fields["a"] != 1 {
		t.Errorf("fields[a] = %v, want 1", fields["a"])
	}
}

func TestConfigure(t *testing.T) {
	var buf bytes.Buffer
	Configure(LoggerConfig{Level: "debug", Format: "json", Output: &buf})
	defer Configure(DefaultLoggerConfig(""))

	New("configured").Debug("hello")
	if !strings.Contains(buf.String(), `"component":"configured"`) {
		t.Errorf("New should use configured defaults, got %q", buf.String())
	}
}

func TestIsTerminal(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "log.txt"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	defer f.Close()

	tests := []struct {
		name string
		w    interface{ Write([]byte) (int, error) }
	}{
		{"buffer", &bytes.Buffer{}},
		{"regular file", f},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if isTerminal(tt.w) {
				t.Errorf("isTerminal(%s) = true, want false", tt.name)
			}
		})
	}
}
