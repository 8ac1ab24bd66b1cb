package shell

import (
	"context"
	"fmt"
)

// Manager installs the activation line into rc files.
type Manager struct {
	home string
}

// NewManager creates a new shell manager
func NewManager(config Config) (*Manager, error) {
	if config.Home == "" {
		return nil, fmt.Errorf("home directory is required")
	}
	return &Manager{home: config.Home}, nil
}

// SetupIntegration adds the activation line for shell to its rc file.
func (m *Manager) SetupIntegration(shell ShellType, opts SetupOptions) (*SetupResult, error) {
	rcPath, err := RCFilePath(shell, m.home)
	if err != nil {
		return nil, err
	}
	activationCmd, err := GenerateActivationCommand(shell)
	if err != nil {
		return nil, err
	}
	if err := checkRCPath(rcPath); err != nil {
		return nil, err
	}

	hasActivation, err := HasActivationLine(rcPath)
	if err != nil {
		return nil, fmt.Errorf("check activation line: %w", err)
	}
	result := &SetupResult{
		Shell:             shell,
		RCFile:            rcPath,
		AlreadyPresent:    hasActivation,
		ActivationCommand: activationCmd,
	}
	if hasActivation && !opts.Force {
		return result, nil
	}
	if opts.DryRun {
		return result, nil
	}

	if opts.Backup {
		if present, _ := fileExists(rcPath); present {
			result.BackupPath, err = BackupRCFile(rcPath)
			if err != nil {
				return nil, fmt.Errorf("backup rc file: %w", err)
			}
		}
	}
	if err := AddActivationLine(rcPath, activationCmd); err != nil {
		return nil, fmt.Errorf("add activation line: %w", err)
	}
	result.Added = true
	return result, nil
}

// DetectAndSetup detects the user's shell and sets up integration
func (m *Manager) DetectAndSetup(ctx context.Context, opts SetupOptions) (*SetupResult, error) {
	detection := DetectShell(ctx)
	if !detection.Shell.IsValid() {
		return nil, &UnsupportedShellError{Shell: detection.ShellPath}
	}
	return m.SetupIntegration(detection.Shell, opts)
}
