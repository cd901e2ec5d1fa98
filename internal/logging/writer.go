package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// RotatingWriter is the io.Writer behind the ds log file. When the next
// record would push ds.log past maxSize, the file moves to ds.log.1, older
// generations shift up by one (ds.log.1 -> ds.log.2 ...) and the oldest
// beyond maxFiles is deleted.
//
// slog hands the writer one complete record per Write, so rotation never
// splits a record. A record larger than maxSize still goes into a fresh
// file rather than rotating an empty one.
type RotatingWriter struct {
	path     string
	maxSize  int64
	maxFiles int

	mu          sync.Mutex
	file        *os.File
	size        int64
	syncOnWrite bool
	warned      bool
}

// NewRotatingWriter opens path for appending, creating its directory.
// Records are synced as they are written so `ds logs -f` sees them at once.
func NewRotatingWriter(path string, maxSizeMB, maxFiles int) (*RotatingWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	w := &RotatingWriter{
		path:        path,
		maxSize:     int64(maxSizeMB) << 20,
		maxFiles:    maxFiles,
		syncOnWrite: true,
	}
	if err := w.open(); err != nil {
		return nil, err
	}
	return w, nil
}

// SetSyncOnWrite turns the fsync after every record on or off.
func (w *RotatingWriter) SetSyncOnWrite(enabled bool) {
	w.mu.Lock()
	w.syncOnWrite = enabled
	w.mu.Unlock()
}

// Write appends one record, rotating first when it would not fit.
func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.size > 0 && w.size+int64(len(p)) > w.maxSize {
		if err := w.rotate(); err != nil {
			w.warnOnce(err)
		}
	}
	if w.file == nil {
		if err := w.open(); err != nil {
			return 0, err
		}
	}

	n, err := w.file.Write(p)
	w.size += int64(n)
	if err == nil && w.syncOnWrite {
		_ = w.file.Sync()
	}
	return n, err
}

// Sync flushes the active file to disk.
func (w *RotatingWriter) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	return w.file.Sync()
}

// Close closes the active file. Later writes reopen it.
func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

func (w *RotatingWriter) open() error {
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to stat log file: %w", err)
	}
	w.file = f
	w.size = info.Size()
	return nil
}

// rotate closes the active file and shifts the generations. The caller
// reopens the active file.
func (w *RotatingWriter) rotate() error {
	if w.file != nil {
		if err := w.file.Close(); err != nil {
			return fmt.Errorf("failed to close log file: %w", err)
		}
		w.file = nil
	}
	w.size = 0

	w.pruneGenerations()

	if w.maxFiles <= 0 {
		// No generations kept: start over in place.
		if err := os.Remove(w.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to truncate log file: %w", err)
		}
		return nil
	}

	for i := w.maxFiles - 1; i >= 1; i-- {
		from := generation(w.path, i)
		if _, err := os.Stat(from); err == nil {
			_ = os.Rename(from, generation(w.path, i+1))
		}
	}
	if err := os.Rename(w.path, generation(w.path, 1)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to rotate log file: %w", err)
	}
	return nil
}

// pruneGenerations deletes ds.log.<maxFiles> and any older generation left
// behind by a larger logging.max_files.
func (w *RotatingWriter) pruneGenerations() {
	for i := max(w.maxFiles, 1); ; i++ {
		p := generation(w.path, i)
		if _, err := os.Stat(p); err != nil {
			if i > w.maxFiles {
				return
			}
			continue
		}
		_ = os.Remove(p)
	}
}

// warnOnce reports a rotation failure on stderr the first time it happens.
// The record is still written to the current file.
func (w *RotatingWriter) warnOnce(err error) {
	if w.warned {
		return
	}
	w.warned = true
	_, _ = fmt.Fprintf(os.Stderr, "ds: log rotation failed: %v\n", err)
}

func generation(path string, n int) string {
	return fmt.Sprintf("%s.%d", path, n)
}
