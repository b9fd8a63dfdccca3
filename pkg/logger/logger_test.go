package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"jamalekbot/pkg/config"
)

func TestLoggerJSONEntryShape(t *testing.T) {
	clearLoggingEnv(t)

	var out bytes.Buffer
	log, err := newWithWriter(config.LoggingConfig{Format: "json", Level: "info"}, &out)
	if err != nil {
		t.Fatalf("newWithWriter error: %v", err)
	}

	log.With("component", "dispatch").Info("Handled message",
		"sender", "33612345678@s.whatsapp.net",
		"intent", "search",
		"units", 3,
		"error", errors.New("boom"),
	)

	var entry Entry
	if err := json.Unmarshal(bytes.TrimSpace(out.Bytes()), &entry); err != nil {
		t.Fatalf("unmarshal log entry: %v", err)
	}

	if entry.Level != "info" {
		t.Fatalf("level = %q, want %q", entry.Level, "info")
	}
	if entry.Message != "Handled message" {
		t.Fatalf("message = %q", entry.Message)
	}
	if entry.Component != "dispatch" {
		t.Fatalf("component = %q, want %q", entry.Component, "dispatch")
	}
	if entry.Sender != "33612345678@s.whatsapp.net" {
		t.Fatalf("sender = %q", entry.Sender)
	}
	if entry.Timestamp == "" {
		t.Fatal("expected timestamp")
	}
	if got := entry.Fields["intent"]; got != "search" {
		t.Fatalf("fields.intent = %v", got)
	}
	if got := entry.Fields["units"]; got != float64(3) {
		t.Fatalf("fields.units = %v", got)
	}
	if got := entry.Fields["error"]; got != "boom" {
		t.Fatalf("fields.error = %v, want boom", got)
	}
}

func TestLoggerGroupsPrefixKeys(t *testing.T) {
	clearLoggingEnv(t)

	var out bytes.Buffer
	log, err := newWithWriter(config.LoggingConfig{Format: "json"}, &out)
	if err != nil {
		t.Fatalf("newWithWriter error: %v", err)
	}

	log.WithGroup("bridge").Info("Frame", "type", "send")

	var entry Entry
	if err := json.Unmarshal(bytes.TrimSpace(out.Bytes()), &entry); err != nil {
		t.Fatalf("unmarshal log entry: %v", err)
	}
	if got := entry.Fields["bridge.type"]; got != "send" {
		t.Fatalf("fields[bridge.type] = %v", got)
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	clearLoggingEnv(t)

	var out bytes.Buffer
	log, err := newWithWriter(config.LoggingConfig{Format: "json", Level: "error"}, &out)
	if err != nil {
		t.Fatalf("newWithWriter error: %v", err)
	}

	log.Info("Ignored")
	if got := strings.TrimSpace(out.String()); got != "" {
		t.Fatalf("expected no output for info, got %q", got)
	}

	log.Error("Kept")
	if got := strings.TrimSpace(out.String()); got == "" {
		t.Fatal("expected output for error")
	}
}

func TestLoggerEnvironmentOverrides(t *testing.T) {
	clearLoggingEnv(t)
	t.Setenv(envLevel, "debug")
	t.Setenv(envFormat, "text")

	var out bytes.Buffer
	log, err := newWithWriter(config.LoggingConfig{Format: "json", Level: "error"}, &out)
	if err != nil {
		t.Fatalf("newWithWriter error: %v", err)
	}

	log.Debug("Debug enabled", "component", "test")
	line := strings.TrimSpace(out.String())
	if line == "" {
		t.Fatal("expected debug output with env override")
	}
	if strings.HasPrefix(line, "{") {
		t.Fatalf("expected text format override, got %q", line)
	}
}

func TestLoggerDefaultsToTextFormat(t *testing.T) {
	clearLoggingEnv(t)

	var out bytes.Buffer
	log, err := newWithWriter(config.LoggingConfig{}, &out)
	if err != nil {
		t.Fatalf("newWithWriter error: %v", err)
	}

	log.Info("Default format")
	line := strings.TrimSpace(out.String())
	if line == "" {
		t.Fatal("expected log output")
	}
	if strings.HasPrefix(line, "{") {
		t.Fatalf("expected text format by default, got %q", line)
	}
}

func TestLoggerRejectsUnknownSettings(t *testing.T) {
	clearLoggingEnv(t)

	if _, err := newWithWriter(config.LoggingConfig{Format: "xml"}, &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for unknown format")
	}
	if _, err := newWithWriter(config.LoggingConfig{Level: "loud"}, &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func clearLoggingEnv(t *testing.T) {
	t.Helper()
	t.Setenv(envLevel, "")
	t.Setenv(envFormat, "")
	t.Setenv(envAddSource, "")
}
