package dailylog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const dateLayout = "2006-01-02"

// Writer appends lines to a per-day log file named {base}-{YYYY-MM-DD}.log.
// The day boundary is checked lazily before every write: the first write
// after local midnight closes the old handle and opens the new day's file.
// All writes to one Writer are serialized, so a line is never split across
// files or interleaved with another.
type Writer struct {
	mu   sync.Mutex
	dir  string
	base string
	day  string
	file *os.File
	now  func() time.Time
}

// NewWriter opens today's file for the given channel, creating the log
// directory if needed.
func NewWriter(dir, base string) (*Writer, error) {
	w := &Writer{dir: dir, base: base, now: time.Now}
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.rotateLocked(); err != nil {
		return nil, err
	}
	return w, nil
}

// rotateLocked makes the open handle match the current local date. Callers
// must hold w.mu. A redundant rotation (two writers racing a tick boundary)
// is a harmless close/reopen in append mode.
func (w *Writer) rotateLocked() error {
	day := w.now().Format(dateLayout)
	if day == w.day && w.file != nil {
		return nil
	}

	if w.file != nil {
		w.file.Close()
		w.file = nil
	}

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create log directory %s: %w", w.dir, err)
	}

	name := w.filename(day)
	f, err := os.OpenFile(name, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", name, err)
	}

	w.file = f
	w.day = day
	return nil
}

func (w *Writer) filename(day string) string {
	return filepath.Join(w.dir, fmt.Sprintf("%s-%s.log", w.base, day))
}

// Filename returns the path of the file the next write would land in.
func (w *Writer) Filename() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.filename(w.now().Format(dateLayout))
}

// WriteLine appends line plus a trailing newline to the current day's file.
func (w *Writer) WriteLine(line string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.rotateLocked(); err != nil {
		return err
	}
	if _, err := w.file.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("failed to append to %s: %w", w.filename(w.day), err)
	}
	return nil
}

// Write implements io.Writer for callers that frame their own lines, such
// as the system channel's slog handler.
func (w *Writer) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.rotateLocked(); err != nil {
		return 0, err
	}
	return w.file.Write(p)
}

// Close releases the current file handle. The Writer must not be used after
// Close.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	w.day = ""
	return err
}
