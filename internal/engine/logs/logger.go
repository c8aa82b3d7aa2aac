// Package logs configures the node's slog logger. Output can go to stdout,
// stderr or a rotated file handled by lumberjack.
package logs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/akyaiy/rdata-node/internal/engine/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

var GlobalLevel slog.Level

type levelsStruct struct {
	Available []string
	Fallback  string
}

var Levels = levelsStruct{
	Available: []string{
		"debug", "info", "warn", "error",
	},
	Fallback: "info",
}

const (
	OutStdout = "%1%"
	OutStderr = "%2%"

	LogFileName = "event.log"
)

// SlogWriter lets a *log.Logger, such as http.Server.ErrorLog, write into slog.
type SlogWriter struct {
	Logger *slog.Logger
	Level  slog.Level
}

func (w *SlogWriter) Write(p []byte) (n int, err error) {
	msg := string(bytes.TrimSpace(p))
	w.Logger.Log(context.TODO(), w.Level, msg)
	return len(p), nil
}

func parseLevel(level string) slog.Level {
	if !slices.Contains(Levels.Available, level) {
		level = Levels.Fallback
	}
	var l slog.Level
	// every available name is a valid slog level
	_ = l.UnmarshalText([]byte(level))
	return l
}

// Writer resolves the log output setting.
func Writer(out string) (io.Writer, error) {
	switch out {
	case OutStdout, "stdout", "":
		return os.Stdout, nil
	case OutStderr, "stderr":
		return os.Stderr, nil
	}
	if err := os.MkdirAll(out, 0o755); err != nil {
		return nil, fmt.Errorf("log directory %s: %w", out, err)
	}
	return &lumberjack.Logger{
		Filename:   filepath.Join(out, LogFileName),
		MaxSize:    10,
		MaxBackups: 5,
		MaxAge:     28,
		Compress:   true,
	}, nil
}

// SetupLogger builds a logger from the log section of the config.
func SetupLogger(o *config.Log) (*slog.Logger, error) {
	var level, out string
	if o.Level != nil {
		level = *o.Level
	}
	if o.OutPath != nil {
		out = *o.OutPath
	}

	GlobalLevel = parseLevel(level)
	handlerOpts := &slog.HandlerOptions{Level: GlobalLevel}

	writer, err := Writer(out)
	if err != nil {
		return nil, err
	}

	if o.JSON != nil && *o.JSON {
		return slog.New(slog.NewJSONHandler(writer, handlerOpts)), nil
	}
	return slog.New(slog.NewTextHandler(writer, handlerOpts)), nil
}
