package shell

import "fmt"

// ShellType names a shell esvm can activate in.
type ShellType string

const (
	ShellBash    ShellType = "bash"
	ShellZsh     ShellType = "zsh"
	ShellFish    ShellType = "fish"
	ShellUnknown ShellType = "unknown"
)

func (s ShellType) String() string { return string(s) }

// IsValid reports whether s has an rc file and activation snippet.
func (s ShellType) IsValid() bool {
	return s == ShellBash || s == ShellZsh || s == ShellFish
}

// Parse accepts a bare shell name or a path such as /usr/bin/zsh.
func Parse(name string) (ShellType, error) {
	if s := parseShellFromPath(name); s.IsValid() {
		return s, nil
	}
	return ShellUnknown, &UnsupportedShellError{Shell: name}
}

type Config struct {
	// Home is the user's home directory, where rc files live.
	Home string
}

type SetupOptions struct {
	Force  bool // append even if an activation line exists
	Backup bool // copy the rc file aside first
	DryRun bool
}

// SetupResult describes what SetupIntegration did, or would do on a dry run.
type SetupResult struct {
	Shell             ShellType
	RCFile            string
	ActivationCommand string
	BackupPath        string
	Added             bool
	AlreadyPresent    bool
}

type DetectionResult struct {
	Shell     ShellType
	ShellPath string
	// Method and Confidence are shown to the user when detection is
	// ambiguous. Confidence is one of high, medium or none.
	Method     string
	Confidence string
}

type UnsupportedShellError struct {
	Shell string
}

func (e *UnsupportedShellError) Error() string {
	return fmt.Sprintf("unsupported shell: %s (supported: bash, zsh, fish)", e.Shell)
}

// RCFileError wraps a failure to read or rewrite a shell rc file.
type RCFileError struct {
	Path    string
	Message string
	Cause   error
}

func (e *RCFileError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Path, e.Message)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *RCFileError) Unwrap() error { return e.Cause }
