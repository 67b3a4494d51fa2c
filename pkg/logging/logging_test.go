package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLogger_JSONAttributes(t *testing.T) {
	var buf bytes.Buffer
	log := New("debug", true, &buf).WithComponent("nanolinks-resolver").WithRequestID("abc")

	log.Debug("extracted id", "id", "AbC123")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid JSON log line %q: %v", buf.String(), err)
	}
	if entry["component"] != "nanolinks-resolver" {
		t.Errorf("component = %v", entry["component"])
	}
	if entry["request_id"] != "abc" {
		t.Errorf("request_id = %v", entry["request_id"])
	}
	if entry["id"] != "AbC123" {
		t.Errorf("id = %v", entry["id"])
	}
}

func TestLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := New("info", false, &buf)

	log.Debug("hidden")
	log.Info("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug line should be filtered at info level")
	}
	if !strings.Contains(out, "shown") {
		t.Error("info line missing")
	}
}

func TestContextRoundTrip(t *testing.T) {
	log := Discard()
	ctx := log.WithContext(context.Background())
	if FromContext(ctx, nil) != log {
		t.Error("FromContext should return the attached logger")
	}

	fallback := Discard()
	if FromContext(context.Background(), fallback) != fallback {
		t.Error("FromContext should return the fallback when none is attached")
	}
	if FromContext(context.Background(), nil) == nil {
		t.Error("FromContext should fall back to a default logger")
	}
}

func TestPreview(t *testing.T) {
	if got := Preview("abcdef", 3); got != "abc..." {
		t.Errorf("Preview() = %q", got)
	}
	if got := Preview("abc", 10); got != "abc" {
		t.Errorf("Preview() = %q", got)
	}
}

func TestLogger_ContextCarriesRequestID(t *testing.T) {
	var buf bytes.Buffer
	attempt := New("debug", true, &buf).WithRequestID("attempt-1")
	ctx := attempt.WithContext(context.Background())

	FromContext(ctx, Discard()).WithComponent("lksfy-resolver").WithURL("https://lksfy.com/ID").Info("hop")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid JSON log line %q: %v", buf.String(), err)
	}
	for k, want := range map[string]string{
		"request_id": "attempt-1",
		"component":  "lksfy-resolver",
		"url":        "https://lksfy.com/ID",
	} {
		if entry[k] != want {
			t.Errorf("%s = %v, want %s", k, entry[k], want)
		}
	}
}
