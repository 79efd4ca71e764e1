package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Writer appends self-contained JSON lines to per-session (and optionally
// per-round) files under a base directory. The write unit is one line; existing
// content is never rewritten.
type Writer struct {
	baseDir string
	logger  *zap.Logger
}

func NewWriter(baseDir string, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{baseDir: baseDir, logger: logger}
}

// SessionPath returns the session-scoped log file path for a session id.
func (w *Writer) SessionPath(sessionID string) string {
	return filepath.Join(w.baseDir, "sessions", sanitizeName(sessionID)+".jsonl")
}

// RoundPath returns the round-scoped log file path for a round id.
func (w *Writer) RoundPath(roundID string) string {
	return filepath.Join(w.baseDir, "rounds", sanitizeName(roundID)+".jsonl")
}

// AppendLine serializes record to one JSON line and appends it to the file at
// path, creating parent directories on demand. A failure leaves previously
// written lines untouched.
func (w *Writer) AppendLine(path string, record interface{}) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record for %s: %w", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create log directory for %s: %w", path, err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file %s: %w", path, err)
	}
	defer f.Close()

	// One Write call per line so a crash between calls never splits a record.
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append to log file %s: %w", path, err)
	}

	return nil
}

// sanitizeName keeps ids usable as file names. Hosts assign session ids; a
// hostile or sloppy id must not escape the log directory.
func sanitizeName(name string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", "..", "_", "\x00", "_")
	cleaned := replacer.Replace(name)
	if cleaned == "" {
		cleaned = "unnamed"
	}
	return cleaned
}
