package transaction

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestJournalBegin(t *testing.T) {
	t.Run("creates transaction file", func(t *testing.T) {
		dir := t.TempDir()
		j := NewJournal(dir)

		txn, err := j.Begin("quickjs", "2024-01-13")
		if err != nil {
			t.Fatalf("Begin failed: %v", err)
		}

		if txn.Version != 1 {
			t.Errorf("expected version 1, got %d", txn.Version)
		}
		if txn.ID == "" {
			t.Error("expected non-empty ID")
		}
		if txn.State != StateInProgress {
			t.Errorf("expected state in_progress, got %s", txn.State)
		}

		data, err := os.ReadFile(filepath.Join(dir, "quickjs.json"))
		if err != nil {
			t.Fatalf("transaction file not written: %v", err)
		}
		var onDisk SlotTxn
		if err := json.Unmarshal(data, &onDisk); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if onDisk.EngineVersion != "2024-01-13" {
			t.Errorf("expected engine version 2024-01-13, got %s", onDisk.EngineVersion)
		}
		if _, err := os.Stat(filepath.Join(dir, "quickjs.json.tmp")); !os.IsNotExist(err) {
			t.Error("temporary file should not remain")
		}
	})

	t.Run("carries over entries of an unfinished attempt", func(t *testing.T) {
		j := NewJournal(t.TempDir())

		first, err := j.Begin("v8", "12.0.1")
		if err != nil {
			t.Fatalf("Begin failed: %v", err)
		}
		if err := j.Record(first, "v8"); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
		if err := j.Fail(first, errors.New("boom")); err != nil {
			t.Fatalf("Fail failed: %v", err)
		}

		second, err := j.Begin("v8", "12.0.2")
		if err != nil {
			t.Fatalf("second Begin failed: %v", err)
		}
		if second.ID == first.ID {
			t.Error("expected a fresh ID for the new attempt")
		}
		if len(second.Entries) != 1 || second.Entries[0] != "v8" {
			t.Errorf("expected carried entries [v8], got %v", second.Entries)
		}
	})
}

func TestJournalRecord(t *testing.T) {
	j := NewJournal(t.TempDir())
	txn, err := j.Begin("xs@4.0.0", "4.0.0")
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	for _, entry := range []string{"xs@4.0.0", "xs@4.0.0", "xst@4.0.0"} {
		if err := j.Record(txn, entry); err != nil {
			t.Fatalf("Record(%s) failed: %v", entry, err)
		}
	}

	pending, err := j.Pending("xs@4.0.0")
	if err != nil {
		t.Fatalf("Pending failed: %v", err)
	}
	if pending == nil {
		t.Fatal("expected pending transaction")
	}
	want := []string{"xs@4.0.0", "xst@4.0.0"}
	if len(pending.Entries) != len(want) {
		t.Fatalf("expected entries %v, got %v", want, pending.Entries)
	}
	for i := range want {
		if pending.Entries[i] != want[i] {
			t.Errorf("entry %d: expected %s, got %s", i, want[i], pending.Entries[i])
		}
	}
}

func TestJournalFailAndComplete(t *testing.T) {
	dir := t.TempDir()
	j := NewJournal(dir)

	txn, err := j.Begin("hermes", "0.13.0")
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := j.Fail(txn, errors.New("smoke test failed")); err != nil {
		t.Fatalf("Fail failed: %v", err)
	}

	pending, err := j.Pending("hermes")
	if err != nil {
		t.Fatalf("Pending failed: %v", err)
	}
	if pending.State != StateFailed {
		t.Errorf("expected state failed, got %s", pending.State)
	}
	if pending.LastError != "smoke test failed" {
		t.Errorf("expected last error recorded, got %q", pending.LastError)
	}

	if err := j.Complete("hermes"); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	pending, err = j.Pending("hermes")
	if err != nil {
		t.Fatalf("Pending after Complete failed: %v", err)
	}
	if pending != nil {
		t.Errorf("expected no pending transaction, got %+v", pending)
	}

	// Completing twice is harmless.
	if err := j.Complete("hermes"); err != nil {
		t.Errorf("second Complete should not error: %v", err)
	}
}

func TestJournalPendingCorrupt(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "boa.json"), []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}

	_, err := NewJournal(dir).Pending("boa")
	if err == nil {
		t.Error("expected error for corrupt transaction file")
	}
}
