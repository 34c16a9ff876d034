//go:build !integration

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"lingua-telegram/internal/config"
)

func TestWith_ContextFields(t *testing.T) {
	var buf bytes.Buffer
	base := NewWithWriter(&buf, config.LogConfig{Level: "debug", Format: "json"}, false)

	ctx := WithTgID(WithUserID(WithTraceID(context.Background(), "tr-1"), "u-1"), 777)
	With(ctx, Component(base, "dispatcher")).Info().Msg("hello")

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected one json line, got %q: %v", buf.String(), err)
	}
	if line["trace_id"] != "tr-1" || line["user_id"] != "u-1" || line["component"] != "dispatcher" {
		t.Errorf("missing context fields: %v", line)
	}
	if line["tg_id"] != float64(777) {
		t.Errorf("expected tg_id 777, got %v", line["tg_id"])
	}
}

func TestNewWithWriter_Level(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, config.LogConfig{Level: "warn", Format: "json"}, false)
	l.Info().Msg("dropped")
	if buf.Len() != 0 {
		t.Errorf("info must be filtered at warn level, got %q", buf.String())
	}
}

func TestRedact(t *testing.T) {
	if got := Redact("abcdefghijklmnop", false); got != "abcd...op" {
		t.Errorf("unexpected redaction %q", got)
	}
	if got := Redact("short", false); got != "***" {
		t.Errorf("short values must be fully hidden, got %q", got)
	}
	if got := Redact("visible", true); got != "visible" {
		t.Errorf("dev mode must not redact, got %q", got)
	}
}
