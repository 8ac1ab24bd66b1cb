package drift

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ZebulonRouseFrantzich/esvm/internal/state"
)

// LookPathFunc resolves an executable name on PATH, like exec.LookPath.
type LookPathFunc func(name string) (string, error)

// DetectDrift compares st with the contents of binDir. When lookPath is
// non-nil every healthy entry is also resolved on PATH to find shadowed
// entries; pass nil when binDir is not on PATH.
//
// Results come in a stable order: missing engines in selection order,
// then slots sorted by key, then orphans sorted by name.
func DetectDrift(st *state.State, binDir string, lookPath LookPathFunc) ([]DriftResult, error) {
	onDisk, err := listBinDir(binDir)
	if err != nil {
		return nil, err
	}

	var results []DriftResult
	for _, id := range st.Selected() {
		if _, ok := st.Record(id); !ok {
			results = append(results, DriftResult{Slot: id, DriftType: DriftMissing})
		}
	}

	for _, slot := range st.Slots() {
		rec, _ := st.Record(slot)
		healthy := true
		for _, entry := range rec.BinEntries {
			delete(onDisk, entry)
			r := classifyEntry(binDir, entry, lookPath)
			if r.DriftType == DriftOK {
				continue
			}
			healthy = false
			r.Slot, r.Version = slot, rec.Version
			results = append(results, r)
		}
		if healthy {
			results = append(results, DriftResult{Slot: slot, DriftType: DriftOK, Version: rec.Version})
		}
	}

	orphans := make([]string, 0, len(onDisk))
	for name := range onDisk {
		orphans = append(orphans, name)
	}
	sort.Strings(orphans)
	for _, name := range orphans {
		results = append(results, DriftResult{Entry: name, DriftType: DriftOrphan})
	}
	return results, nil
}

// classifyEntry checks one recorded entry.
func classifyEntry(binDir, entry string, lookPath LookPathFunc) DriftResult {
	path := filepath.Join(binDir, entry)
	// Stat follows symlinks, so dangling links count as broken.
	if _, err := os.Stat(path); err != nil {
		return DriftResult{Entry: entry, DriftType: DriftBrokenEntry}
	}
	if lookPath == nil {
		return DriftResult{Entry: entry, DriftType: DriftOK}
	}
	active, err := lookPath(entry)
	if err != nil {
		return DriftResult{Entry: entry, DriftType: DriftOK}
	}
	if !IsESVMManaged(active, binDir) {
		return DriftResult{Entry: entry, DriftType: DriftShadowed, ActivePath: active}
	}
	return DriftResult{Entry: entry, DriftType: DriftOK}
}

// listBinDir returns the names in binDir, skipping dot files. A missing
// directory is empty.
func listBinDir(binDir string) (map[string]bool, error) {
	entries, err := os.ReadDir(binDir)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]bool{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read bin directory: %w", err)
	}
	names := make(map[string]bool, len(entries))
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names[e.Name()] = true
	}
	return names, nil
}

// IsESVMManaged reports whether path lives directly in binDir.
func IsESVMManaged(path, binDir string) bool {
	return filepath.Clean(filepath.Dir(path)) == filepath.Clean(binDir)
}

// OnPath reports whether binDir is one of the directories in pathEnv
// (normally $PATH).
func OnPath(binDir, pathEnv string) bool {
	for _, dir := range filepath.SplitList(pathEnv) {
		if dir != "" && filepath.Clean(dir) == filepath.Clean(binDir) {
			return true
		}
	}
	return false
}
