package launcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

const (
	pidLockTimeout       = 5 * time.Second
	pidLockRetryInterval = 50 * time.Millisecond
)

// PIDStore persists the pid of every started server as <dir>/<Section>.pid.
// Each marker is guarded by a <Section>.pid.lock file so that concurrent launchers don't interleave.
type PIDStore struct {
	dir string
}

// NewPIDStore creates a PIDStore in dir
func NewPIDStore(dir string) *PIDStore {
	return &PIDStore{dir: dir}
}

func (p *PIDStore) path(section string) string {
	return filepath.Join(p.dir, section+".pid")
}

// withLock runs fn while holding the lock of section's marker
func (p *PIDStore) withLock(ctx context.Context, section string, fn func(path string) error) error {
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", p.dir, err)
	}

	path := p.path(section)
	fileLock := flock.New(path + ".lock")
	defer func() { _ = fileLock.Unlock() }()

	lockCtx, cancel := context.WithTimeout(ctx, pidLockTimeout)
	defer cancel()

	locked, err := fileLock.TryLockContext(lockCtx, pidLockRetryInterval)
	if err != nil {
		return fmt.Errorf("failed to lock pid marker for %s: %w", section, err)
	}
	if !locked {
		return fmt.Errorf("could not lock pid marker for %s: timeout after %v", section, pidLockTimeout)
	}
	return fn(path)
}

// Write records pid for section
func (p *PIDStore) Write(ctx context.Context, section string, pid int) error {
	return p.withLock(ctx, section, func(path string) error {
		if err := os.WriteFile(path, []byte(strconv.Itoa(pid)+"\n"), 0o644); err != nil {
			return fmt.Errorf("failed to write pid marker: %w", err)
		}
		return nil
	})
}

// Read returns the recorded pid of section, or 0 when there is none
func (p *PIDStore) Read(ctx context.Context, section string) (int, error) {
	var pid int
	err := p.withLock(ctx, section, func(path string) error {
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read pid marker: %w", err)
		}
		pid, err = strconv.Atoi(strings.TrimSpace(string(data)))
		if err != nil {
			return fmt.Errorf("corrupt pid marker %s: %w", path, err)
		}
		return nil
	})
	return pid, err
}

// Remove deletes the marker of section
func (p *PIDStore) Remove(ctx context.Context, section string) error {
	return p.withLock(ctx, section, func(path string) error {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to remove pid marker: %w", err)
		}
		return nil
	})
}
