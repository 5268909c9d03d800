package logging

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != slog.LevelInfo {
		t.Errorf("Level = %v, want INFO", cfg.Level)
	}
	if cfg.MaxSizeMB != 50 || cfg.MaxBackups != 10 || cfg.MaxAgeDays != 14 {
		t.Errorf("rotation = %d/%d/%d, want 50/10/14", cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
	}
	if !cfg.Compress {
		t.Error("Compress = false, want true")
	}
}

func TestDefaultLogDir(t *testing.T) {
	dir := DefaultLogDir()
	if filepath.Base(dir) != "logs" || filepath.Base(filepath.Dir(dir)) != "tunebridge" {
		t.Errorf("DefaultLogDir() = %v, want .../tunebridge/logs", dir)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{" warn ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"Error", slog.LevelError},
		{"verbose", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestContextLogger(t *testing.T) {
	if From(nil) == nil {
		t.Fatal("From(nil) returned nil")
	}

	logger := slog.New(slog.NewTextHandler(nil, nil))
	ctx := With(context.Background(), logger)
	if From(ctx) != logger {
		t.Error("From() did not return the stored logger")
	}

	enriched := WithAttrs(ctx, "channel", "player:play")
	if From(enriched) == logger {
		t.Error("WithAttrs() did not derive a new logger")
	}
}
