// Package resilience paces calls to Power BI. The token bucket pacer keeps
// its state on disk behind a file lock so concurrent invocations share one
// budget.
package resilience

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/gofrs/flock"
)

const (
	// StateFileName is the default state file name.
	StateFileName = "pacing.json"

	// DefaultDirName is the subdirectory within the state dir.
	DefaultDirName = "pacing"
)

// Store handles reading and writing resilience state with file locking.
// It provides atomic operations safe for concurrent access across processes.
type Store struct {
	dir string
}

// NewStore creates a store under stateDir/pacing. An empty stateDir falls
// back to the user cache directory.
func NewStore(stateDir string) *Store {
	if stateDir == "" {
		stateDir = fallbackStateDir()
	}
	return &Store{dir: filepath.Join(stateDir, DefaultDirName)}
}

func fallbackStateDir() string {
	if cacheDir, err := os.UserCacheDir(); err == nil && cacheDir != "" {
		return filepath.Join(cacheDir, "reportbuilder")
	}
	return filepath.Join(os.TempDir(), "reportbuilder")
}

// Dir returns the state directory path.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the full path to the state file.
func (s *Store) Path() string {
	return filepath.Join(s.dir, StateFileName)
}

// lockPath returns the path to the lock file.
func (s *Store) lockPath() string {
	return filepath.Join(s.dir, ".lock")
}

// LockTimeout is the maximum time to wait for acquiring the file lock.
// If exceeded, operations proceed without locking (fail-open) to avoid CLI hangs.
const LockTimeout = 100 * time.Millisecond

// fileLock represents an acquired file lock.
type fileLock struct {
	flock *flock.Flock
}

// acquireLock obtains an exclusive lock on the state directory.
// The caller must call release() when done.
//
// Returns (nil, nil) if the lock is not acquired within LockTimeout; the
// caller then proceeds unlocked. A bucket that over-counts by a token now
// and then is tolerable, a hung build is not.
func (s *Store) acquireLock() (*fileLock, error) {
	// Ensure directory exists
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return nil, err
	}

	fl := flock.New(s.lockPath())

	// Try to acquire lock with timeout
	ctx, cancel := context.WithTimeout(context.Background(), LockTimeout)
	defer cancel()

	// TryLockContext retries every 10ms until context expires
	locked, err := fl.TryLockContext(ctx, 10*time.Millisecond)
	if err != nil {
		// Only fail-open on context deadline (timeout), not real errors
		if ctx.Err() == context.DeadlineExceeded {
			return nil, nil
		}
		// Real lock error (permissions, filesystem issues) - return error
		return nil, err
	}
	if !locked {
		// Timeout without error - proceed without lock
		return nil, nil
	}

	return &fileLock{flock: fl}, nil
}

// release releases the file lock.
func (fl *fileLock) release() error {
	if fl == nil || fl.flock == nil {
		return nil
	}
	return fl.flock.Unlock()
}

// Load reads the state from disk with proper locking.
// Returns an empty state if the file doesn't exist.
// If the lock cannot be acquired, proceeds without locking (fail-open).
func (s *Store) Load() (*State, error) {
	lock, err := s.acquireLock()
	if err != nil {
		return nil, err
	}
	if lock != nil {
		defer func() { _ = lock.release() }()
	}

	return s.loadUnsafe()
}

// loadUnsafe reads the state without locking (caller must hold lock).
func (s *Store) loadUnsafe() (*State, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return NewState(), nil
		}
		return nil, err
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil || state.Version != StateVersion {
		// Corrupt or from an older schema: start over with a full bucket.
		return NewState(), nil
	}

	return &state, nil
}

// saveUnsafe writes the state without locking (caller must hold lock).
func (s *Store) saveUnsafe(state *State) error {
	// Ensure directory exists
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return err
	}

	state.Version = StateVersion

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	// Write atomically via temp file with unique name (PID + timestamp)
	// to avoid conflicts when lock cannot be acquired (fail-open scenario)
	tmpPath := fmt.Sprintf("%s.%d.%d.tmp", s.Path(), os.Getpid(), time.Now().UnixNano())
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}

	// os.Rename fails on Windows when the destination exists.
	if runtime.GOOS == "windows" {
		_ = os.Remove(s.Path()) // Ignore error if file doesn't exist
	}

	if err := os.Rename(tmpPath, s.Path()); err != nil {
		// Clean up temp file on error
		_ = os.Remove(tmpPath)
		return err
	}

	return nil
}

// Update atomically loads, modifies, and saves the state.
// The updateFn receives the current state and should modify it in place.
// This is the preferred way to update state as it holds the lock
// throughout the entire read-modify-write cycle.
// If the lock cannot be acquired, proceeds without locking (fail-open).
func (s *Store) Update(updateFn func(*State) error) error {
	lock, err := s.acquireLock()
	if err != nil {
		return err
	}
	if lock != nil {
		defer func() { _ = lock.release() }()
	}

	state, err := s.loadUnsafe()
	if err != nil {
		return err
	}

	if err := updateFn(state); err != nil {
		return err
	}

	return s.saveUnsafe(state)
}

// Clear removes the state file.
// If the lock cannot be acquired, proceeds without locking (fail-open).
func (s *Store) Clear() error {
	lock, err := s.acquireLock()
	if err != nil {
		return err
	}
	if lock != nil {
		defer func() { _ = lock.release() }()
	}

	err = os.Remove(s.Path())
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Exists returns true if a state file exists.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.Path())
	return err == nil
}
