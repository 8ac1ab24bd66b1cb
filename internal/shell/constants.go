package shell

// Environment variables set by the activation snippet.
const (
	// EnvESVMActive is set once the bin directory has been added to PATH.
	EnvESVMActive = "ESVM_ACTIVE"
)

// Activation and backup markers
const (
	// ActivationMarker is the string that must appear in activation commands
	ActivationMarker = "esvm activate"

	// BackupSuffix is appended to the rc file name for backups
	BackupSuffix = ".esvm-backup"

	rcSectionHeader = "# esvm - JavaScript engine version manager"
)
