package shell

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// RCFilePath returns the rc file of shell under home.
func RCFilePath(shell ShellType, home string) (string, error) {
	switch shell {
	case ShellBash:
		return filepath.Join(home, ".bashrc"), nil
	case ShellZsh:
		return filepath.Join(home, ".zshrc"), nil
	case ShellFish:
		return filepath.Join(home, ".config", "fish", "config.fish"), nil
	default:
		return "", &UnsupportedShellError{Shell: shell.String()}
	}
}

// checkRCPath rejects paths that are not clean or that name a symlink or
// a non-regular file. A missing file is fine.
func checkRCPath(rcPath string) error {
	if strings.Contains(filepath.ToSlash(rcPath), "/../") || filepath.Clean(rcPath) != rcPath {
		return &RCFileError{Path: rcPath, Message: "path traversal or unclean path not allowed"}
	}
	info, err := os.Lstat(rcPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return &RCFileError{Path: rcPath, Message: "failed to stat file", Cause: err}
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return &RCFileError{Path: rcPath, Message: "refusing to modify a symlink"}
	}
	if !info.Mode().IsRegular() {
		return &RCFileError{Path: rcPath, Message: "not a regular file"}
	}
	return nil
}

// HasActivationLine reports whether the rc file already activates esvm.
// Commented lines do not count.
func HasActivationLine(rcPath string) (bool, error) {
	file, err := os.Open(rcPath)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, &RCFileError{Path: rcPath, Message: "failed to open file", Cause: err}
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "#") {
			continue
		}
		if strings.Contains(line, ActivationMarker) {
			return true, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return false, &RCFileError{Path: rcPath, Message: "failed to read file", Cause: err}
	}
	return false, nil
}

// BackupRCFile copies the rc file next to itself.
func BackupRCFile(rcPath string) (string, error) {
	content, err := os.ReadFile(rcPath)
	if err != nil {
		return "", &RCFileError{Path: rcPath, Message: "failed to read file for backup", Cause: err}
	}
	backupPath := rcPath + BackupSuffix
	if err := os.WriteFile(backupPath, content, 0644); err != nil {
		return "", &RCFileError{Path: backupPath, Message: "failed to write backup file", Cause: err}
	}
	return backupPath, nil
}

// validActivationCommand reports whether cmd is one of the lines
// GenerateActivationCommand produces.
func validActivationCommand(cmd string) bool {
	for _, s := range SupportedShells() {
		if want, _ := GenerateActivationCommand(s); cmd == want {
			return true
		}
	}
	return false
}

// AddActivationLine appends the activation section to the rc file,
// creating the file and its directory when needed. The file is replaced
// atomically.
func AddActivationLine(rcPath string, activationCommand string) error {
	if !validActivationCommand(activationCommand) {
		return &RCFileError{Path: rcPath, Message: fmt.Sprintf("invalid activation command format: %q", activationCommand)}
	}
	if err := checkRCPath(rcPath); err != nil {
		return err
	}

	existing, err := os.ReadFile(rcPath)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &RCFileError{Path: rcPath, Message: "failed to read existing file", Cause: err}
	}
	mode := os.FileMode(0644)
	if info, err := os.Stat(rcPath); err == nil {
		mode = info.Mode().Perm()
	}

	dir := filepath.Dir(rcPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &RCFileError{Path: rcPath, Message: "failed to create parent directory", Cause: err}
	}

	var b strings.Builder
	b.Write(existing)
	if len(existing) > 0 && !strings.HasSuffix(string(existing), "\n") {
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\n%s\n%s\n", rcSectionHeader, activationCommand)

	tmpFile, err := os.CreateTemp(dir, ".esvm-tmp-*")
	if err != nil {
		return &RCFileError{Path: rcPath, Message: "failed to create temporary file", Cause: err}
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	if _, err := tmpFile.WriteString(b.String()); err != nil {
		tmpFile.Close()
		return &RCFileError{Path: rcPath, Message: "failed to write activation line", Cause: err}
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return &RCFileError{Path: rcPath, Message: "failed to sync file", Cause: err}
	}
	if err := tmpFile.Close(); err != nil {
		return &RCFileError{Path: rcPath, Message: "failed to close temporary file", Cause: err}
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		return &RCFileError{Path: rcPath, Message: "failed to set permissions", Cause: err}
	}
	if err := os.Rename(tmpPath, rcPath); err != nil {
		return &RCFileError{Path: rcPath, Message: "failed to rename temp file", Cause: err}
	}
	return nil
}

func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}
