package logger

import (
	"context"
	"log/slog"
	"testing"
	"time"
)

func TestInitFormats(t *testing.T) {
	for _, format := range []string{"text", "json", "TEXT", ""} {
		if err := Init(format); err != nil {
			t.Fatalf("Init(%q) failed: %v", format, err)
		}
		if Get() == nil {
			t.Fatalf("Get() returned nil after Init(%q)", format)
		}
	}
	if err := Sync(); err != nil {
		t.Errorf("Sync failed: %v", err)
	}
}

func TestLoggingDoesNotPanic(t *testing.T) {
	if err := Init("text"); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	ctx := context.Background()
	l := Get()
	l.Debug(ctx, "debug entry", String("k", "v"))
	l.Info(ctx, "info entry", Int("n", 3), Float64("f", 1.5))
	l.Warn(ctx, "warn entry", Bool("flag", true), Duration("took", time.Millisecond))
	l.Error(ctx, "error entry", Any("v", struct{ A int }{A: 1}))
}

func TestNamedAndWith(t *testing.T) {
	if err := Init("text"); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	named := Named("scanner")
	if named == nil {
		t.Fatal("Named returned nil")
	}
	child := named.With(String("trial", "Dreadsail Reef"))
	if child == nil {
		t.Fatal("With returned nil")
	}
	child.Info(context.Background(), "entry through child logger")
}

func TestSetLevelString(t *testing.T) {
	if err := Init("text"); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range cases {
		if err := SetLevelString(in); err != nil {
			t.Fatalf("SetLevelString(%q) failed: %v", in, err)
		}
		if got := levelVar.Level(); got != want {
			t.Errorf("SetLevelString(%q) set %v, want %v", in, got, want)
		}
	}

	if err := SetLevelString("loud"); err == nil {
		t.Error("SetLevelString accepted an unknown level")
	}
}
