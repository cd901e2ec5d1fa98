package telemetry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	dserrors "github.com/Aman-CERP/ds/internal/errors"
)

// DefaultLockTimeout is how long a flush waits for another ds process.
const DefaultLockTimeout = 2 * time.Second

// FileLock serializes history flushes across ds processes using gofrs/flock.
// Works on all platforms (Unix, Linux, macOS, Windows). One FileLock also
// admits a single holder within the process.
type FileLock struct {
	path    string
	flock   *flock.Flock
	timeout time.Duration

	// held has one slot; TryLock on an flock that is already held by the
	// same handle succeeds again, so in-process holders queue here first.
	held chan struct{}

	mu     sync.Mutex
	locked bool
}

// NewFileLock creates a lock next to the history database
// (<dbPath>.lock).
func NewFileLock(dbPath string, timeout time.Duration) *FileLock {
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}
	lockPath := dbPath + ".lock"
	return &FileLock{
		path:    lockPath,
		flock:   flock.New(lockPath),
		timeout: timeout,
		held:    make(chan struct{}, 1),
	}
}

// Lock acquires the lock, waiting up to the configured timeout.
// A timeout yields a retryable ErrCodeHistoryLocked error.
func (l *FileLock) Lock() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	select {
	case l.held <- struct{}{}:
	case <-ctx.Done():
		return l.lockedError()
	}

	acquired, err := l.flock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil && ctx.Err() == nil {
		<-l.held
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !acquired {
		<-l.held
		return l.lockedError()
	}

	l.mu.Lock()
	l.locked = true
	l.mu.Unlock()
	return nil
}

func (l *FileLock) lockedError() error {
	return dserrors.New(dserrors.ErrCodeHistoryLocked, "history store is locked by another ds process", nil).
		WithDetail("lock", l.path)
}

// Unlock releases the lock. Safe to call on an unlocked FileLock.
func (l *FileLock) Unlock() error {
	l.mu.Lock()
	if !l.locked {
		l.mu.Unlock()
		return nil
	}
	l.locked = false
	l.mu.Unlock()

	err := l.flock.Unlock()
	<-l.held
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// Path returns the path to the lock file.
func (l *FileLock) Path() string {
	return l.path
}
