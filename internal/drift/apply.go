package drift

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/ZebulonRouseFrantzich/esvm/internal/fsutil"
	"github.com/ZebulonRouseFrantzich/esvm/internal/state"
)

// Repair fixes the drift that needs no download. Orphans are deleted. A
// slot with a broken entry loses its remaining entries, its install
// directory and its record, so the next update installs it again; a latest
// slot stays selected. Missing and shadowed results are left alone.
//
// Repair returns the number of results it fixed.
func Repair(st *state.State, binDir, enginesDir string, results []DriftResult) (int, error) {
	var (
		fixed int
		errs  []error
		done  = map[string]bool{}
	)
	for _, r := range results {
		switch r.DriftType {
		case DriftOrphan:
			if err := validateEntryName(r.Entry); err != nil {
				errs = append(errs, err)
				continue
			}
			if err := fsutil.Remove(filepath.Join(binDir, r.Entry)); err != nil {
				errs = append(errs, err)
				continue
			}
			fixed++

		case DriftBrokenEntry:
			if done[r.Slot] {
				fixed++
				continue
			}
			done[r.Slot] = true
			if err := forgetSlot(st, binDir, enginesDir, r.Slot); err != nil {
				errs = append(errs, err)
				continue
			}
			fixed++
		}
	}
	return fixed, errors.Join(errs...)
}

func forgetSlot(st *state.State, binDir, enginesDir, slot string) error {
	if err := validateEntryName(slot); err != nil {
		return err
	}
	rec, ok := st.Record(slot)
	if !ok {
		return nil
	}
	for _, entry := range rec.BinEntries {
		if err := validateEntryName(entry); err != nil {
			return err
		}
		if err := fsutil.Remove(filepath.Join(binDir, entry)); err != nil {
			return fmt.Errorf("remove %s: %w", entry, err)
		}
	}
	if err := fsutil.RemoveAll(filepath.Join(enginesDir, slot)); err != nil {
		return fmt.Errorf("remove install of %s: %w", slot, err)
	}
	st.Delete(slot)
	return nil
}

// validateEntryName rejects names that would escape the directory they
// are joined to.
func validateEntryName(name string) error {
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name {
		return fmt.Errorf("invalid entry name: %q", name)
	}
	return nil
}
