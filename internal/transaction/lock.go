package transaction

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	// StaleLockThreshold is how old a lock file must be before another
	// process may break it. Engine downloads over slow links are long.
	StaleLockThreshold = 2 * time.Hour

	lockFileName = "esvm.lock"
)

var ErrLockExists = errors.New("esvm lock exists: another esvm process may be running")

// LockedError reports who holds the home lock. It matches ErrLockExists.
type LockedError struct {
	Path string
	PID  int // 0 when the lock file is unreadable
	Age  time.Duration
}

func (e *LockedError) Error() string {
	holder := "another esvm process"
	if e.PID > 0 {
		holder = fmt.Sprintf("esvm (pid %d)", e.PID)
	}
	return fmt.Sprintf("%s is already running; lock %s held for %s. Remove it if no esvm is running",
		holder, e.Path, e.Age.Round(time.Second))
}

func (e *LockedError) Is(target error) bool { return target == ErrLockExists }

// Lock is an exclusive hold on an esvm home.
type Lock struct {
	path string
	file *os.File
}

// AcquireLock creates dir/esvm.lock exclusively. A lock older than
// StaleLockThreshold is broken once; any other existing lock yields a
// *LockedError.
func AcquireLock(ctx context.Context, dir string) (*Lock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	path := filepath.Join(dir, lockFileName)

	f, err := createExclusive(path)
	if errors.Is(err, os.ErrExist) {
		held := inspectLock(path)
		if held.Age <= StaleLockThreshold {
			return nil, held
		}
		os.Remove(path)
		if f, err = createExclusive(path); errors.Is(err, os.ErrExist) {
			return nil, inspectLock(path)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("create lock file: %w", err)
	}

	if err := writeHolder(f); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("write lock file: %w", err)
	}
	return &Lock{path: path, file: f}, nil
}

func createExclusive(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0600)
}

func writeHolder(f *os.File) error {
	_, err := fmt.Fprintf(f, "pid=%d\ntimestamp=%s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return err
	}
	return f.Sync()
}

// inspectLock describes an existing lock file. Unreadable fields are left
// zero; a lock that vanished reports zero age.
func inspectLock(path string) *LockedError {
	held := &LockedError{Path: path}
	info, err := os.Stat(path)
	if err != nil {
		return held
	}
	held.Age = time.Since(info.ModTime())

	f, err := os.Open(path)
	if err != nil {
		return held
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if v, ok := strings.CutPrefix(sc.Text(), "pid="); ok {
			held.PID, _ = strconv.Atoi(v)
		}
	}
	return held
}

// Release removes the lock file. Calling it again is a no-op.
func (l *Lock) Release() error {
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}
	if l.path == "" {
		return nil
	}
	path := l.path
	l.path = ""
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove lock file: %w", err)
	}
	return nil
}
