package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DailyRotatingWriter is an io.Writer that switches to a new file whenever the
// local date changes. The file name is filenameFormat with the date
// (YYYY-MM-DD) substituted for its single %s verb.
type DailyRotatingWriter struct {
	file           *os.File
	currentDate    string
	logDir         string
	filenameFormat string
	now            func() time.Time
	mu             sync.Mutex
}

// NewDailyRotatingWriter creates the log directory if needed and opens the
// file for today.
func NewDailyRotatingWriter(logDir string, filenameFormat string) (*DailyRotatingWriter, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	w := &DailyRotatingWriter{
		logDir:         logDir,
		filenameFormat: filenameFormat,
		now:            time.Now,
	}

	if err := w.rotateIfNeeded(); err != nil {
		return nil, err
	}
	return w, nil
}

// CurrentPath returns the path of the file currently being written.
func (w *DailyRotatingWriter) CurrentPath() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pathFor(w.currentDate)
}

func (w *DailyRotatingWriter) pathFor(date string) string {
	return filepath.Join(w.logDir, fmt.Sprintf(w.filenameFormat, date))
}

// rotateIfNeeded must be called with mu held (or before the writer is shared).
func (w *DailyRotatingWriter) rotateIfNeeded() error {
	today := w.now().Format("2006-01-02")
	if today == w.currentDate && w.file != nil {
		return nil
	}

	if w.file != nil {
		w.file.Close()
		w.file = nil
	}

	file, err := os.OpenFile(w.pathFor(today), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}

	w.file = file
	w.currentDate = today
	return nil
}

// Write implements io.Writer.
func (w *DailyRotatingWriter) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.rotateIfNeeded(); err != nil {
		return 0, err
	}
	return w.file.Write(p)
}

// Close closes the underlying file. Writing after Close reopens it.
func (w *DailyRotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}
