package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"

	"github.com/ZebulonRouseFrantzich/esvm/internal/fsutil"
)

// Paths are the locations esvm reads and writes.
type Paths struct {
	Home       string
	BinDir     string // shared entry points, added to PATH
	EnginesDir string // one directory per slot
	StateFile  string
	ConfigFile string
	LogsDir    string
	TxnDir     string // per-slot install journals
	TempDir    string // downloads and extraction scratch space
}

// ResolvePaths derives Paths from home. An empty home falls back to
// $ESVM_HOME and then ~/.esvm. A leading ~ is expanded.
func ResolvePaths(home string) (Paths, error) {
	if home == "" {
		home = os.Getenv(EnvHome)
	}
	if home == "" {
		dir, err := homedir.Dir()
		if err != nil {
			return Paths{}, fmt.Errorf("locate home directory: %w", err)
		}
		home = filepath.Join(dir, ".esvm")
	}

	expanded, err := homedir.Expand(home)
	if err != nil {
		return Paths{}, fmt.Errorf("expand %s: %w", home, err)
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return Paths{}, fmt.Errorf("resolve %s: %w", home, err)
	}

	return Paths{
		Home:       abs,
		BinDir:     filepath.Join(abs, "bin"),
		EnginesDir: filepath.Join(abs, "engines"),
		StateFile:  filepath.Join(abs, "status.json"),
		ConfigFile: filepath.Join(abs, "config.lua"),
		LogsDir:    filepath.Join(abs, "logs"),
		TxnDir:     filepath.Join(abs, ".txn"),
		TempDir:    filepath.Join(os.TempDir(), "esvm"),
	}, nil
}

// Ensure creates every directory in p.
func (p Paths) Ensure() error {
	for _, dir := range []string{p.Home, p.BinDir, p.EnginesDir, p.LogsDir, p.TxnDir, p.TempDir} {
		if err := fsutil.EnsureDir(dir); err != nil {
			return err
		}
	}
	return nil
}
