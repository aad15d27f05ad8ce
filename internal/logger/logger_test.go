package logger

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{" INFO ", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseLevel(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestConfigureWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")
	if err := Configure(Options{Level: "debug", File: path}); err != nil {
		t.Fatalf("configure: %v", err)
	}
	t.Cleanup(func() { _ = Configure(Options{Level: "info"}) })

	Debug("hello from test", "k", "v")
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(b), "hello from test") {
		t.Fatalf("log file missing message: %q", b)
	}
	if !Enabled(slog.LevelDebug) {
		t.Fatalf("debug should be enabled")
	}
}

func TestConfigureInvalidLevelKeepsLogger(t *testing.T) {
	if err := Configure(Options{Level: "nope"}); err == nil {
		t.Fatalf("expected error for invalid level")
	}
	if Logger == nil {
		t.Fatalf("logger must stay usable")
	}
	_ = Configure(Options{Level: "info"})
}

func TestFromContextFallsBack(t *testing.T) {
	if FromContext(context.Background()) != Logger {
		t.Fatalf("expected package logger")
	}
	l := Logger.With("request_id", "abc")
	if FromContext(WithContext(context.Background(), l)) != l {
		t.Fatalf("expected stored logger")
	}
}
