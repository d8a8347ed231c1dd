package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   DebugLevel,
		"info":    InfoLevel,
		"warn":    WarnLevel,
		"warning": WarnLevel,
		"error":   ErrorLevel,
		"bogus":   InfoLevel,
		"":        InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLogRespectsLevel(t *testing.T) {
	if err := Initialize(Config{Level: WarnLevel}); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	SetOutput(&buf)

	Info("should be suppressed")
	Warn("should appear")

	out := buf.String()
	if strings.Contains(out, "suppressed") {
		t.Error("info message logged despite warn level")
	}
	if !strings.Contains(out, "should appear") {
		t.Error("warn message missing")
	}
}

func TestJSONOutput(t *testing.T) {
	if err := Initialize(Config{Level: InfoLevel, JSON: true, Component: "acquire"}); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	SetOutput(&buf)

	Info("fetched tarball", String("pkg", "Example"), Int("bytes", 42))

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if entry.Message != "fetched tarball" {
		t.Errorf("unexpected message %q", entry.Message)
	}
	if entry.Component != "acquire" {
		t.Errorf("unexpected component %q", entry.Component)
	}
	if entry.Fields["pkg"] != "Example" {
		t.Errorf("missing pkg field: %v", entry.Fields)
	}
}
