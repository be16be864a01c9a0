// Package logging builds the zap logger shared by the CLI and the TUI.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Options struct {
	// Level is debug|info|warn|error (default warn).
	Level string
	// Path sends logs to a file instead of stderr. The TUI always sets it so log
	// lines never land on the alt screen.
	Path string
	// JSON selects the JSON encoder; the console encoder is used otherwise.
	JSON bool
}

// ParseLevel maps a level name to a zap level.
func ParseLevel(s string) (zapcore.Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return zapcore.WarnLevel, nil
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return zapcore.WarnLevel, fmt.Errorf("invalid log level %q", s)
	}
	return lvl, nil
}

// New returns a logger and a sync func to call before exit.
func New(opts Options) (*zap.Logger, func(), error) {
	lvl, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var enc zapcore.Encoder
	if opts.JSON {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	var ws zapcore.WriteSyncer = zapcore.Lock(os.Stderr)
	closeFn := func() {}
	if p := strings.TrimSpace(opts.Path); p != "" {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return nil, nil, err
		}
		f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, nil, err
		}
		ws = zapcore.Lock(zapcore.AddSync(f))
		closeFn = func() { _ = f.Close() }
	}

	logger := zap.New(zapcore.NewCore(enc, ws, zap.NewAtomicLevelAt(lvl)))
	return logger, func() {
		_ = logger.Sync()
		closeFn()
	}, nil
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
