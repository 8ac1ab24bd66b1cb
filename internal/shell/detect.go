package shell

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v4/process"
)

// DetectShell detects the user's shell from $SHELL, then from the parent
// process.
func DetectShell(ctx context.Context) *DetectionResult {
	return detectShell(ctx, os.Getenv("SHELL"), parentProcessName)
}

func detectShell(ctx context.Context, shellEnv string, parent func(context.Context) (string, error)) *DetectionResult {
	if shellEnv != "" {
		if s := parseShellFromPath(shellEnv); s.IsValid() {
			return &DetectionResult{
				Shell:      s,
				Method:     "$SHELL environment variable",
				ShellPath:  shellEnv,
				Confidence: "high",
			}
		}
	}

	if parent != nil {
		if name, err := parent(ctx); err == nil {
			if s := parseShellFromPath(name); s.IsValid() {
				return &DetectionResult{
					Shell:      s,
					Method:     "parent process",
					ShellPath:  name,
					Confidence: "medium",
				}
			}
		}
	}

	return &DetectionResult{
		Shell:      ShellUnknown,
		Method:     "detection failed",
		Confidence: "none",
	}
}

// parentProcessName returns the executable name of the parent process.
func parentProcessName(ctx context.Context) (string, error) {
	p, err := process.NewProcessWithContext(ctx, int32(os.Getppid()))
	if err != nil {
		return "", err
	}
	return p.NameWithContext(ctx)
}

// parseShellFromPath extracts the shell type from a shell binary path
// such as /usr/bin/zsh. Login shells ("-bash") are recognised.
func parseShellFromPath(shellPath string) ShellType {
	baseName := strings.ToLower(filepath.Base(shellPath))
	baseName = strings.TrimPrefix(baseName, "-")
	baseName = strings.TrimSuffix(baseName, ".exe")

	switch baseName {
	case "bash":
		return ShellBash
	case "zsh":
		return ShellZsh
	case "fish":
		return ShellFish
	default:
		return ShellUnknown
	}
}

// SupportedShells returns the shells esvm can activate.
func SupportedShells() []ShellType {
	return []ShellType{ShellBash, ShellZsh, ShellFish}
}
