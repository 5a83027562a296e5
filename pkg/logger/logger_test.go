package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestInitAttachesService(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	var buf bytes.Buffer
	log := Init(Options{Level: "debug", Output: &buf, Service: "admin-api"})
	log.Info().Msg("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode entry: %v (%s)", err, buf.String())
	}
	if entry["service"] != "admin-api" {
		t.Errorf("service = %v", entry["service"])
	}
	if entry["message"] != "hello" {
		t.Errorf("message = %v", entry["message"])
	}
}

func TestInitOnlyOnce(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	var first, second bytes.Buffer
	Init(Options{Output: &first})
	Init(Options{Output: &second})
	got := Get()
	got.Info().Msg("x")

	if first.Len() == 0 || second.Len() != 0 {
		t.Errorf("expected only the first writer to receive output")
	}
}

func TestGetBeforeInitPanics(t *testing.T) {
	Reset()
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	Get()
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"trace":   zerolog.TraceLevel,
		"DEBUG":   zerolog.DebugLevel,
		" warn ":  zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"bogus":   zerolog.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestRequestScopedLogger(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	ctx := context.Background()
	fallback := FromContext(ctx, base)
	fallback.Info().Msg("fallback")
	if buf.Len() == 0 {
		t.Fatalf("expected the fallback logger to be used")
	}
	buf.Reset()

	ctx = With(ctx, base, "request_id", "r-1")
	ctx = With(ctx, base, "user_id", "u-1")
	scoped := FromContext(ctx, zerolog.Nop())
	scoped.Info().Msg("scoped")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode entry: %v (%s)", err, buf.String())
	}
	if entry["request_id"] != "r-1" || entry["user_id"] != "u-1" {
		t.Errorf("missing scoped fields: %v", entry)
	}
}
