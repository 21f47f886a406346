package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func captureLogger(level, format string) (*Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	l := NewLogger(level, format, "stdout")
	l.output = buf
	return l, buf
}

func TestLogger_LevelFilter(t *testing.T) {
	l, buf := captureLogger("warn", "text")

	l.Debug("d", nil)
	l.Info("i", nil)
	if buf.Len() != 0 {
		t.Errorf("debug/info leaked past warn level: %q", buf.String())
	}

	l.Warn("w", nil)
	l.Error("e", errors.New("boom"), nil)
	lines := strings.Count(buf.String(), "\n")
	if lines != 2 {
		t.Errorf("got %d lines, want 2", lines)
	}
}

func TestLogger_JSONFormat(t *testing.T) {
	l, buf := captureLogger("info", "json")

	l.Info("hello", map[string]interface{}{"path": "/api/auth"})

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry.Level != "info" || entry.Message != "hello" {
		t.Errorf("entry = %+v", entry)
	}
	if entry.Fields["path"] != "/api/auth" {
		t.Errorf("fields = %v", entry.Fields)
	}
}

func TestLogger_ErrorAttachesErr(t *testing.T) {
	l, buf := captureLogger("info", "json")

	l.Error("failed", errors.New("boom"), nil)

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry.Fields["error"] != "boom" {
		t.Errorf("error field = %v, want boom", entry.Fields["error"])
	}
}

func TestLogger_RedactsSensitiveFields(t *testing.T) {
	l, buf := captureLogger("info", "json")

	l.Info("login", map[string]interface{}{
		"password":      "hunter2",
		"annual_income": 32000,
		"token":         "abc",
		"path":          "/api/auth",
		"nested":        map[string]interface{}{"api_key": "xyz"},
		"opaque":        "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
	})

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}

	for _, key := range []string{"password", "annual_income", "token", "opaque"} {
		if entry.Fields[key] != "[REDACTED]" {
			t.Errorf("%s = %v, want [REDACTED]", key, entry.Fields[key])
		}
	}
	nested, _ := entry.Fields["nested"].(map[string]interface{})
	if nested["api_key"] != "[REDACTED]" {
		t.Errorf("nested api_key = %v, want [REDACTED]", nested["api_key"])
	}
	if entry.Fields["path"] != "/api/auth" {
		t.Errorf("benign field mangled: %v", entry.Fields["path"])
	}
}
