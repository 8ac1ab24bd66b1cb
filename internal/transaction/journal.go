// Package transaction keeps a per-slot journal of the bin entries an
// install attempt has created, so an attempt that was interrupted or failed
// can be cleaned up by the next one, and a process lock so only one esvm
// run mutates a home directory at a time.
package transaction

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// State represents the current state of a slot transaction.
type State string

const (
	StateInProgress State = "in_progress"
	StateFailed     State = "failed"
)

// SlotTxn records one install attempt for an installation slot.
type SlotTxn struct {
	Version       int       `json:"version"` // Schema version for future evolution
	ID            string    `json:"id"`
	Slot          string    `json:"slot"`
	EngineVersion string    `json:"engine_version"`
	State         State     `json:"state"`
	Entries       []string  `json:"entries"`
	Timestamp     time.Time `json:"timestamp"`
	LastError     string    `json:"last_error,omitempty"`
}

// Journal stores slot transactions as JSON files in a directory, one file
// per slot.
type Journal struct {
	dir string
}

// NewJournal returns a journal rooted at dir. The directory is created on
// first write.
func NewJournal(dir string) *Journal {
	return &Journal{dir: dir}
}

// Begin starts a new attempt for slot. Entries from an earlier attempt that
// were never cleaned up are carried over so they stay visible to Pending.
func (j *Journal) Begin(slot, engineVersion string) (*SlotTxn, error) {
	prev, err := j.Pending(slot)
	if err != nil {
		return nil, err
	}

	txn := &SlotTxn{
		Version:       1,
		ID:            uuid.New().String(),
		Slot:          slot,
		EngineVersion: engineVersion,
		State:         StateInProgress,
		Entries:       []string{},
		Timestamp:     time.Now().UTC(),
	}
	if prev != nil {
		txn.Entries = append(txn.Entries, prev.Entries...)
	}

	if err := j.save(txn); err != nil {
		return nil, err
	}
	return txn, nil
}

// Record adds entry to the slot's open transaction and persists it before
// the caller creates the entry on disk.
func (j *Journal) Record(txn *SlotTxn, entry string) error {
	if slices.Contains(txn.Entries, entry) {
		return nil
	}
	txn.Entries = append(txn.Entries, entry)
	return j.save(txn)
}

// Fail marks the transaction failed and keeps it for the next attempt.
func (j *Journal) Fail(txn *SlotTxn, cause error) error {
	txn.State = StateFailed
	if cause != nil {
		txn.LastError = cause.Error()
	}
	return j.save(txn)
}

// Complete removes the slot's transaction file.
func (j *Journal) Complete(slot string) error {
	if err := os.Remove(j.path(slot)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove transaction file: %w", err)
	}
	return nil
}

// Pending returns the unfinished transaction for slot, or nil when the
// last attempt completed.
func (j *Journal) Pending(slot string) (*SlotTxn, error) {
	data, err := os.ReadFile(j.path(slot))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read transaction file: %w", err)
	}

	var txn SlotTxn
	if err := json.Unmarshal(data, &txn); err != nil {
		return nil, fmt.Errorf("unmarshal transaction: %w", err)
	}
	return &txn, nil
}

// save writes the transaction to disk atomically.
func (j *Journal) save(txn *SlotTxn) error {
	if err := os.MkdirAll(j.dir, 0700); err != nil {
		return fmt.Errorf("create transaction directory: %w", err)
	}

	finalPath := j.path(txn.Slot)
	tmpPath := finalPath + ".tmp"

	data, err := json.MarshalIndent(txn, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal transaction: %w", err)
	}

	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("write temporary transaction file: %w", err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename transaction file: %w", err)
	}

	// Sync directory for durability
	df, err := os.Open(j.dir)
	if err == nil {
		if syncErr := df.Sync(); syncErr != nil {
			df.Close()
			return fmt.Errorf("sync directory: %w", syncErr)
		}
		df.Close()
	}

	return nil
}

// path maps a slot key to a file name. Pinned slots contain '@' and may
// contain characters that are awkward in file names.
func (j *Journal) path(slot string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, slot)
	return filepath.Join(j.dir, name+".json")
}
