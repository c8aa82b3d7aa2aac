package logs

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/akyaiy/rdata-node/internal/engine/config"
)

func ptr[T any](v T) *T { return &v }

func TestFunc_ParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v; want %v", tt.in, got, tt.want)
		}
	}
}

func TestFunc_Writer(t *testing.T) {
	if w, _ := Writer(OutStdout); w != os.Stdout {
		t.Error("OutStdout should select stdout")
	}
	if w, _ := Writer(OutStderr); w != os.Stderr {
		t.Error("OutStderr should select stderr")
	}
}

func TestFunc_SetupLoggerToFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	log, err := SetupLogger(&config.Log{
		JSON:    ptr(true),
		Level:   ptr("debug"),
		OutPath: ptr(dir),
	})
	if err != nil {
		t.Fatalf("SetupLogger: %v", err)
	}
	log.Debug("hello", slog.String("k", "v"))

	data, err := os.ReadFile(filepath.Join(dir, LogFileName))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if len(data) == 0 || data[0] != '{' {
		t.Errorf("expected a JSON record, got %q", data)
	}
	if GlobalLevel != slog.LevelDebug {
		t.Errorf("GlobalLevel = %v", GlobalLevel)
	}
}

func TestFunc_MockHandler(t *testing.T) {
	h := NewMockHandler()
	log := slog.New(h).With(slog.String("connection.id", "c1"))
	log.Info("first")
	log.Warn("second", slog.Int("n", 2))

	if got := len(h.Records()); got != 2 {
		t.Fatalf("records = %d; want 2", got)
	}
	recs := h.Find("second")
	if len(recs) != 1 {
		t.Fatalf("Find = %d records", len(recs))
	}
	if v, ok := Attr(recs[0], "connection.id"); !ok || v.String() != "c1" {
		t.Errorf("connection.id = %v, %v", v, ok)
	}
	if v, ok := Attr(recs[0], "n"); !ok || v.Int64() != 2 {
		t.Errorf("n = %v, %v", v, ok)
	}
}
