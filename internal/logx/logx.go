// Package logx writes esvm's diagnostic log. The console only shows
// per-engine status lines; stage transitions, retries and errors go to a
// daily file under the logs directory.
package logx

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ZebulonRouseFrantzich/esvm/internal/fsutil"
)

// EnvDebug enables debug level logging when set to any non-empty value.
const EnvDebug = "ESVM_DEBUG"

// MaxFiles is the number of daily log files kept.
const MaxFiles = 14

// filePattern matches the files written by Open.
const filePattern = "esvm-*.log"

// Open returns a logger appending to <dir>/esvm-<date>.log and the file
// behind it. Older files beyond MaxFiles are removed. The returned
// *slog.Logger satisfies installer.Logger.
func Open(dir string, now time.Time) (*slog.Logger, io.Closer, error) {
	if err := fsutil.EnsureDir(dir); err != nil {
		return nil, nil, err
	}

	path := filepath.Join(dir, "esvm-"+now.Format("20060102")+".log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	if err := prune(dir); err != nil {
		f.Close()
		return nil, nil, err
	}

	return New(f, Level()), f, nil
}

// New returns a text logger writing to w.
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return New(io.Discard, slog.LevelError+1)
}

// Level returns the level selected by ESVM_DEBUG.
func Level() slog.Level {
	if os.Getenv(EnvDebug) != "" {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// prune keeps the MaxFiles most recent log files. Names sort by date.
func prune(dir string) error {
	files, err := fsutil.Glob(dir, filePattern)
	if err != nil {
		return err
	}
	if len(files) <= MaxFiles {
		return nil
	}
	for _, name := range files[:len(files)-MaxFiles] {
		if err := fsutil.Remove(filepath.Join(dir, name)); err != nil {
			return err
		}
	}
	return nil
}
