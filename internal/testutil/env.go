// Package testutil provides utilities for testing esvm in isolation.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// SetupTestEnv points ESVM_HOME and HOME at a fresh temporary directory so
// tests never touch the user's installed engines or rc files. It returns
// the esvm home.
func SetupTestEnv(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()
	home := filepath.Join(tmpDir, "esvm")

	t.Setenv("ESVM_HOME", home)
	t.Setenv("HOME", filepath.Join(tmpDir, "user"))
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("ESVM_DEBUG", "")

	for _, dir := range []string{home, filepath.Join(tmpDir, "user")} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			t.Fatalf("failed to create test directory %s: %v", dir, err)
		}
	}
	return home
}
