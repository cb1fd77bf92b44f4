// Package logger provides a small verbose logging facility shared by the
// CLI and the HTTP server.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Level controls how much progress output is emitted.
type Level int32

const (
	// LevelOff disables all logging.
	LevelOff Level = iota
	// LevelInfo shows basic progress information.
	LevelInfo
	// LevelDebug shows detailed per-endpoint information.
	LevelDebug
)

var (
	currentLevel atomic.Int32
	startNanos   atomic.Int64

	outMu sync.Mutex
	out   io.Writer = os.Stderr
)

func init() {
	startNanos.Store(time.Now().UnixNano())
}

// SetLevel sets the global logging level and resets the elapsed clock.
func SetLevel(level Level) {
	currentLevel.Store(int32(level))
	startNanos.Store(time.Now().UnixNano())
}

// GetLevel returns the current logging level.
func GetLevel() Level {
	return Level(currentLevel.Load())
}

// IsVerbose reports whether info-level logging is enabled.
func IsVerbose() bool {
	return GetLevel() >= LevelInfo
}

// IsDebug reports whether debug-level logging is enabled.
func IsDebug() bool {
	return GetLevel() >= LevelDebug
}

// SetOutput redirects log output. Intended for tests.
func SetOutput(w io.Writer) {
	outMu.Lock()
	defer outMu.Unlock()
	if w == nil {
		w = os.Stderr
	}
	out = w
}

func emit(tag, format string, args ...any) {
	elapsed := time.Since(time.Unix(0, startNanos.Load())).Round(time.Millisecond)
	outMu.Lock()
	defer outMu.Unlock()
	fmt.Fprintf(out, "[%s] %s"+format+"\n", append([]any{elapsed, tag}, args...)...)
}

// Info logs a progress message. Shown with --verbose.
func Info(format string, args ...any) {
	if IsVerbose() {
		emit("", format, args...)
	}
}

// Debug logs a detail message. Shown with --debug.
func Debug(format string, args ...any) {
	if IsDebug() {
		emit("[DEBUG] ", format, args...)
	}
}

// Error logs a failure that does not abort the run.
func Error(format string, args ...any) {
	if IsVerbose() {
		emit("[ERROR] ", format, args...)
	}
}
