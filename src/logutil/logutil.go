package logutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	DefaultLogFile = "crosshair_overlay.log"
	maxSizeBytes   = 10 * 1024 * 1024 // 10 MB
	maxArchives    = 3
)

type Options struct {
	EnableFileLogging bool
	// FilePath defaults to DefaultLogFile in the working directory.
	FilePath string
	// Level is one of debug, info, warn, error. Unknown values mean info.
	Level string
	// Verbose switches to the human-readable development encoder and forces
	// debug level.
	Verbose bool
	// Console receives logs when file logging is off. Defaults to stderr.
	Console io.Writer
}

// Setup builds the process logger, installs it as zap's global logger and
// routes the standard library logger through it. File logging uses basic
// size-based rotation (10MB, max 3 archives).
func Setup(opts Options) (*zap.Logger, error) {
	level := ParseLevel(opts.Level)
	if opts.Verbose {
		level = zapcore.DebugLevel
	}

	var sink zapcore.WriteSyncer
	if opts.EnableFileLogging {
		path := opts.FilePath
		if path == "" {
			path = DefaultLogFile
		}
		w, err := openRotating(path, maxSizeBytes)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		sink = zapcore.AddSync(w)
	} else {
		console := opts.Console
		if console == nil {
			console = os.Stderr
		}
		sink = zapcore.Lock(zapcore.AddSync(console))
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var enc zapcore.Encoder = zapcore.NewJSONEncoder(encCfg)
	if opts.Verbose {
		enc = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	}

	logger := zap.New(zapcore.NewCore(enc, sink, level), zap.AddCaller())
	zap.ReplaceGlobals(logger)
	if _, err := zap.RedirectStdLogAt(logger.Named("stdlib"), zapcore.InfoLevel); err != nil {
		logger.Warn("failed to redirect standard logger", zap.Error(err))
	}
	return logger, nil
}

// ParseLevel maps a LOG_LEVEL value to a zap level.
func ParseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

type rotatingWriter struct {
	mu      sync.Mutex
	path    string
	maxSize int64
	f       *os.File
}

func openRotating(path string, maxSize int64) (*rotatingWriter, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	rotateIfNeeded(path, maxSize)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
	if err != nil {
		return nil, err
	}
	return &rotatingWriter{path: path, maxSize: maxSize, f: f}, nil
}

func (w *rotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	// naive rotation check per write
	if st, err := w.f.Stat(); err == nil && st.Size()+int64(len(p)) > w.maxSize {
		_ = w.f.Close()
		rotate(w.path)
		nf, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err != nil {
			return 0, err
		}
		w.f = nf
	}
	return w.f.Write(p)
}

func (w *rotatingWriter) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.f.Sync()
}

func (w *rotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.f.Close()
}

func rotateIfNeeded(path string, maxSize int64) {
	if st, err := os.Stat(path); err == nil && st.Size() > maxSize {
		rotate(path)
	}
}

// rotate shifts .1, .2, .3 (oldest discarded) and moves the base to .1.
func rotate(path string) {
	_ = os.Remove(archiveName(path, maxArchives))
	for i := maxArchives - 1; i >= 1; i-- {
		_ = os.Rename(archiveName(path, i), archiveName(path, i+1))
	}
	_ = os.Rename(path, archiveName(path, 1))
}

func archiveName(path string, n int) string { return fmt.Sprintf("%s.%d", path, n) }
