// Package drift compares three sources of truth: the engines selected in
// the state file, the slots and bin entries the state file records, and
// what is actually in the bin directory and on PATH.
package drift

// DriftType represents the type of drift detected
type DriftType int

const (
	DriftOK DriftType = iota
	// DriftMissing: a selected engine has no latest install.
	DriftMissing
	// DriftBrokenEntry: a recorded bin entry is absent or dangling.
	DriftBrokenEntry
	// DriftOrphan: a bin directory file no record owns.
	DriftOrphan
	// DriftShadowed: another executable of the same name wins on PATH.
	DriftShadowed
)

// String returns human-readable drift type name
func (d DriftType) String() string {
	switch d {
	case DriftOK:
		return "OK"
	case DriftMissing:
		return "MISSING"
	case DriftBrokenEntry:
		return "BROKEN_ENTRY"
	case DriftOrphan:
		return "ORPHAN"
	case DriftShadowed:
		return "SHADOWED"
	default:
		return "UNKNOWN"
	}
}

// DriftResult represents a single drift detection result
type DriftResult struct {
	// Slot is the installation slot; empty for orphans.
	Slot string
	// Entry is the bin entry the result is about, if any.
	Entry     string
	DriftType DriftType
	Version   string
	// ActivePath is what PATH resolves Entry to, for DriftShadowed.
	ActivePath string
}
