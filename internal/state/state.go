// Package state holds the persisted installation state: which engines are
// selected for bulk updates and which slots are installed with which bin
// entries.
package state

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"slices"
	"sort"
	"sync"

	"github.com/ZebulonRouseFrantzich/esvm/internal/fsutil"
)

// Record is the installed version of one slot and the bin entries it owns.
type Record struct {
	Version    string   `json:"version"`
	BinEntries []string `json:"binEntries"`
}

// State is the in-memory installation state. All methods are safe to call
// from the signal handler while an operation is running.
type State struct {
	mu              sync.Mutex
	selectedEngines []string
	installed       map[string]Record
}

type document struct {
	SelectedEngines []string          `json:"selectedEngines"`
	Installed       map[string]Record `json:"installed"`
}

// New returns an empty state with the given selection.
func New(selected []string) *State {
	s := &State{installed: map[string]Record{}}
	for _, id := range selected {
		s.Select(id)
	}
	return s
}

// Load reads the state file at path.
func Load(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse state file: %w", err)
	}

	s := New(doc.SelectedEngines)
	for slot, rec := range doc.Installed {
		if rec.Version == "" {
			continue
		}
		s.installed[slot] = rec
	}
	return s, nil
}

// Seeder supplies the initial selection for a fresh state.
type Seeder func() ([]string, error)

// LoadOrInit loads the state at path. On any read or parse failure it
// builds a fresh state seeded by seed (which may be nil). The returned bool
// reports whether the state is fresh.
func LoadOrInit(path string, seed Seeder) (*State, bool, error) {
	if s, err := Load(path); err == nil {
		return s, false, nil
	}

	var selected []string
	if seed != nil {
		var err error
		selected, err = seed()
		if err != nil {
			return nil, true, fmt.Errorf("select engines: %w", err)
		}
	}
	return New(selected), true, nil
}

// Save writes the state to path atomically, creating parent directories.
func (s *State) Save(path string) error {
	data, err := s.MarshalJSON()
	if err != nil {
		return err
	}
	if err := fsutil.WriteFileAtomic(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	return nil
}

// MarshalJSON encodes the state using the on-disk schema.
func (s *State) MarshalJSON() ([]byte, error) {
	s.mu.Lock()
	doc := document{
		SelectedEngines: slices.Clone(s.selectedEngines),
		Installed:       maps.Clone(s.installed),
	}
	s.mu.Unlock()

	if doc.SelectedEngines == nil {
		doc.SelectedEngines = []string{}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal state: %w", err)
	}
	return data, nil
}

// Selected returns the selected engine ids in selection order.
func (s *State) Selected() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.selectedEngines)
}

// IsSelected reports whether id is selected.
func (s *State) IsSelected(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Contains(s.selectedEngines, id)
}

// Select appends id to the selection if it is not already there.
func (s *State) Select(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !slices.Contains(s.selectedEngines, id) {
		s.selectedEngines = append(s.selectedEngines, id)
	}
}

// Deselect removes id from the selection.
func (s *State) Deselect(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedEngines = slices.DeleteFunc(s.selectedEngines, func(v string) bool { return v == id })
}

// Record returns the installed record of slot.
func (s *State) Record(slot string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.installed[slot]
	if !ok {
		return Record{}, false
	}
	rec.BinEntries = slices.Clone(rec.BinEntries)
	return rec, true
}

// Put stores rec under slot, replacing any previous record.
func (s *State) Put(slot string, rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.BinEntries = slices.Clone(rec.BinEntries)
	if rec.BinEntries == nil {
		rec.BinEntries = []string{}
	}
	s.installed[slot] = rec
}

// Delete removes the record of slot.
func (s *State) Delete(slot string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.installed, slot)
}

// Slots returns every installed slot key, sorted.
func (s *State) Slots() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.installed))
	for k := range s.installed {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
