// Package debug provides a process-wide, opt-in trace logger for the wiki
// index core. It mirrors the always-on operational lines written with the
// standard library's log package with a quieter, channel-tagged stream that
// is only emitted when explicitly enabled.
package debug

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EnableDebug can be set at build time:
// go build -ldflags "-X github.com/nooblyjs/wiki-index-core/internal/debug.EnableDebug=true"
var EnableDebug = "false"

// QuietMode suppresses all debug output, used whenever the process's stdout
// is itself the wire format for a caller (e.g. the core embedded behind a
// stdio-based tool) and must not be polluted with trace lines.
var QuietMode = false

var (
	mu     sync.Mutex
	output io.Writer = os.Stderr
	file   *os.File
)

// SetQuietMode toggles stdio suppression.
func SetQuietMode(enabled bool) {
	QuietMode = enabled
}

// SetOutput sets a custom writer for debug output. Pass nil to disable.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// InitLogFile opens a timestamped debug log file under the OS temp dir and
// routes all debug output there. Call CloseLogFile when done.
func InitLogFile() (string, error) {
	mu.Lock()
	defer mu.Unlock()

	dir := filepath.Join(os.TempDir(), "wiki-index-debug-logs")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create debug log directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("debug-%s.log", time.Now().Format("2006-01-02T150405")))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return "", fmt.Errorf("create debug log file: %w", err)
	}

	file = f
	output = f
	return path, nil
}

// CloseLogFile closes the debug log file if one is open.
func CloseLogFile() error {
	mu.Lock()
	defer mu.Unlock()

	if file == nil {
		return nil
	}
	err := file.Close()
	file = nil
	output = nil
	return err
}

// Enabled reports whether debug output should be produced right now.
func Enabled() bool {
	if QuietMode {
		return false
	}
	if EnableDebug == "true" {
		return true
	}
	v := os.Getenv("WIKI_INDEX_DEBUG")
	return v == "1" || v == "true"
}

func writer() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	return output
}

// Log writes a channel-tagged debug line.
func Log(channel, format string, args ...interface{}) {
	if !Enabled() {
		return
	}
	w := writer()
	if w == nil {
		return
	}
	fmt.Fprintf(w, "[DEBUG:%s] "+format+"\n", append([]interface{}{channel}, args...)...)
}

// LogWalk traces C2 filesystem traversal.
func LogWalk(format string, args ...interface{}) { Log("WALK", format, args...) }

// LogExtract traces C3 content extraction.
func LogExtract(format string, args ...interface{}) { Log("EXTRACT", format, args...) }

// LogIndexing traces C4/C5 index mutation and rebuilds.
func LogIndexing(format string, args ...interface{}) { Log("INDEX", format, args...) }

// LogSearch traces C6 query evaluation.
func LogSearch(format string, args ...interface{}) { Log("SEARCH", format, args...) }

// LogActivity traces C7 reads/writes.
func LogActivity(format string, args ...interface{}) { Log("ACTIVITY", format, args...) }

// LogAI traces C8 folder-context generation.
func LogAI(format string, args ...interface{}) { Log("AI", format, args...) }

// LogHTTP traces inbound requests at the HTTP boundary.
func LogHTTP(format string, args ...interface{}) { Log("HTTP", format, args...) }
