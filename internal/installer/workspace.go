package installer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ZebulonRouseFrantzich/esvm/internal/fsutil"
	"github.com/ZebulonRouseFrantzich/esvm/internal/platform"
)

// Workspace is the transient state of one install attempt. Engines read its
// paths and register their entry points through it; the orchestrator
// commits the registered entries once the engine's test passes.
type Workspace struct {
	Engine   string // display name, used in messages
	Slot     string
	Version  string
	Pinned   bool
	Platform string

	DownloadPath string
	ExtractPath  string
	InstallPath  string
	BinDir       string

	status  Status
	entries []string
	// track is called with every entry name before it is created on disk.
	track func(entry string) error
}

// IsWindows reports whether the workspace installs for a Windows platform.
func (w *Workspace) IsWindows() bool {
	return platform.IsWindowsToken(w.Platform)
}

// EntryName returns the bin entry name for alias in this slot. Pinned slots
// get an "@<version>" suffix.
func (w *Workspace) EntryName(alias string) string {
	if w.Pinned {
		return alias + "@" + w.Version
	}
	return alias
}

// Entry returns the path in BinDir of the entry registered as alias.
func (w *Workspace) Entry(alias string) string {
	name := w.EntryName(alias)
	if slices.Contains(w.entries, name+".cmd") {
		name += ".cmd"
	}
	return filepath.Join(w.BinDir, name)
}

// BinEntries returns the entries registered so far, in registration order.
func (w *Workspace) BinEntries() []string {
	return slices.Clone(w.entries)
}

// RegisterAsset copies name, relative to ExtractPath, to the same relative
// path under InstallPath and returns the destination.
func (w *Workspace) RegisterAsset(name string) (string, error) {
	w.info("Registering asset " + filepath.ToSlash(name))
	src := filepath.Join(w.ExtractPath, filepath.FromSlash(name))
	dst := filepath.Join(w.InstallPath, filepath.FromSlash(name))
	if err := fsutil.CopyFile(src, dst); err != nil {
		return "", fmt.Errorf("register asset %s: %w", name, err)
	}
	return dst, nil
}

// RegisterAssets registers every file under ExtractPath matching pattern.
// A pattern matching nothing is not an error.
func (w *Workspace) RegisterAssets(pattern string) error {
	matches, err := fsutil.Glob(w.ExtractPath, pattern)
	if err != nil {
		return fmt.Errorf("register assets: %w", err)
	}
	for _, m := range matches {
		if _, err := w.RegisterAsset(m); err != nil {
			return err
		}
	}
	return nil
}

// RegisterBinary registers the asset name and links it into BinDir as
// alias. An empty alias uses the base name of name.
func (w *Workspace) RegisterBinary(name, alias string) (string, error) {
	if alias == "" {
		alias = name
	}
	full, err := w.RegisterAsset(name)
	if err != nil {
		return "", err
	}
	return w.RegisterSymlink(full, filepath.Base(alias))
}

// RegisterSymlink links target into BinDir as alias.
func (w *Workspace) RegisterSymlink(target, alias string) (string, error) {
	name := w.EntryName(alias)
	w.info("Registering binary " + name)
	if err := w.claim(name); err != nil {
		return "", err
	}
	dest := filepath.Join(w.BinDir, name)
	if err := fsutil.Symlink(target, dest); err != nil {
		return "", fmt.Errorf("register binary %s: %w", name, err)
	}
	w.add(name)
	return dest, nil
}

// RegisterScript writes a launcher named alias into BinDir that runs body
// with the caller's arguments appended. On Windows the launcher is a .cmd
// file and the extension is part of the entry name.
func (w *Workspace) RegisterScript(alias, body string) (string, error) {
	name := w.EntryName(alias)
	var source string
	if w.IsWindows() {
		name += ".cmd"
		source = "@echo off\r\n" + body + " %*\r\n"
	} else {
		source = "#!/usr/bin/env bash\n" + body + " \"$@\"\n"
	}
	w.info("Registering script " + name)

	if err := w.claim(name); err != nil {
		return "", err
	}
	dest := filepath.Join(w.BinDir, name)
	if err := fsutil.Remove(dest); err != nil {
		return "", err
	}
	if err := os.WriteFile(dest, []byte(source), 0755); err != nil {
		return "", fmt.Errorf("register script %s: %w", name, err)
	}
	w.add(name)
	return dest, nil
}

// Unzip extracts the download into ExtractPath.
func (w *Workspace) Unzip() error {
	return fsutil.Unzip(w.DownloadPath, w.ExtractPath)
}

// Untar extracts the (possibly compressed) tar download into ExtractPath.
func (w *Workspace) Untar() error {
	return fsutil.Untar(w.DownloadPath, w.ExtractPath)
}

// ExtractArchive extracts the download into ExtractPath, detecting zip or
// tar from the file contents. Used when the URL carries no extension.
func (w *Workspace) ExtractArchive() error {
	return fsutil.Extract(w.DownloadPath, w.ExtractPath)
}

// CopyDownload places the raw download into ExtractPath as name. It is the
// extract step of engines that ship a bare executable.
func (w *Workspace) CopyDownload(name string) error {
	if err := fsutil.RemoveAll(w.ExtractPath); err != nil {
		return err
	}
	if err := os.Chmod(w.DownloadPath, 0755); err != nil {
		return fmt.Errorf("set executable: %w", err)
	}
	return fsutil.CopyFile(w.DownloadPath, filepath.Join(w.ExtractPath, name))
}

// WriteTemp writes a scratch file into ExtractPath, which is removed at
// cleanup, and returns its path.
func (w *Workspace) WriteTemp(name, contents string) (string, error) {
	path := filepath.Join(w.ExtractPath, name)
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return path, nil
}

// ExpectOutput runs the entry point at entry with args and stdin and
// compares its stdout, with trailing newlines trimmed, to want.
func (w *Workspace) ExpectOutput(ctx context.Context, entry string, args []string, stdin, want string) error {
	cmd := exec.CommandContext(ctx, entry, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}

	err := cmd.Run()
	got := strings.TrimRight(strings.ReplaceAll(stdout.String(), "\r\n", "\n"), "\n")
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return &SmokeTestError{Engine: w.Engine, Entry: filepath.Base(entry), Want: want, Got: got, Err: err}
	}
	if got != want {
		return &SmokeTestError{Engine: w.Engine, Entry: filepath.Base(entry), Want: want, Got: got}
	}
	return nil
}

func (w *Workspace) claim(name string) error {
	if slices.Contains(w.entries, name) {
		return nil
	}
	if w.track == nil {
		return nil
	}
	if err := w.track(name); err != nil {
		return fmt.Errorf("journal entry %s: %w", name, err)
	}
	return nil
}

func (w *Workspace) add(name string) {
	if !slices.Contains(w.entries, name) {
		w.entries = append(w.entries, name)
	}
}

func (w *Workspace) info(msg string) {
	if w.status != nil {
		w.status.Info(msg)
	}
}

// errUnexpectedLayout is wrapped by engines whose archive is missing a file
// they expect.
var errUnexpectedLayout = errors.New("unexpected archive layout")

// RequireFile fails with an extraction error when rel does not exist under
// ExtractPath.
func (w *Workspace) RequireFile(rel string) error {
	if !fsutil.Exists(filepath.Join(w.ExtractPath, filepath.FromSlash(rel))) {
		return &ExtractionError{Engine: w.Engine, Path: w.DownloadPath, Err: fmt.Errorf("%w: missing %s", errUnexpectedLayout, rel)}
	}
	return nil
}
