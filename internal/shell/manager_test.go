package shell

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewManager(t *testing.T) {
	if _, err := NewManager(Config{}); err == nil {
		t.Error("expected error for empty home")
	}
	if _, err := NewManager(Config{Home: t.TempDir()}); err != nil {
		t.Errorf("NewManager() error = %v", err)
	}
}

func TestSetupIntegration(t *testing.T) {
	t.Run("adds line once", func(t *testing.T) {
		home := t.TempDir()
		m, _ := NewManager(Config{Home: home})

		res, err := m.SetupIntegration(ShellZsh, SetupOptions{})
		if err != nil {
			t.Fatal(err)
		}
		if !res.Added || res.AlreadyPresent {
			t.Errorf("first setup = %+v, want Added", res)
		}
		if res.RCFile != filepath.Join(home, ".zshrc") {
			t.Errorf("RCFile = %s", res.RCFile)
		}

		res, err = m.SetupIntegration(ShellZsh, SetupOptions{})
		if err != nil {
			t.Fatal(err)
		}
		if res.Added || !res.AlreadyPresent {
			t.Errorf("second setup = %+v, want AlreadyPresent", res)
		}
		content, _ := os.ReadFile(res.RCFile)
		if n := strings.Count(string(content), ActivationMarker); n != 1 {
			t.Errorf("activation line appears %d times, want 1", n)
		}
	})

	t.Run("dry run changes nothing", func(t *testing.T) {
		home := t.TempDir()
		m, _ := NewManager(Config{Home: home})
		res, err := m.SetupIntegration(ShellBash, SetupOptions{DryRun: true})
		if err != nil {
			t.Fatal(err)
		}
		if res.Added {
			t.Error("dry run should not add")
		}
		if _, err := os.Stat(filepath.Join(home, ".bashrc")); !os.IsNotExist(err) {
			t.Error("dry run created rc file")
		}
	})

	t.Run("backup", func(t *testing.T) {
		home := t.TempDir()
		rc := filepath.Join(home, ".bashrc")
		if err := os.WriteFile(rc, []byte("export A=1\n"), 0644); err != nil {
			t.Fatal(err)
		}
		m, _ := NewManager(Config{Home: home})
		res, err := m.SetupIntegration(ShellBash, SetupOptions{Backup: true})
		if err != nil {
			t.Fatal(err)
		}
		if res.BackupPath != rc+BackupSuffix {
			t.Errorf("BackupPath = %s", res.BackupPath)
		}
		backup, _ := os.ReadFile(res.BackupPath)
		if string(backup) != "export A=1\n" {
			t.Errorf("backup content = %q", backup)
		}
	})

	t.Run("unsupported shell", func(t *testing.T) {
		m, _ := NewManager(Config{Home: t.TempDir()})
		if _, err := m.SetupIntegration(ShellUnknown, SetupOptions{}); err == nil {
			t.Error("expected error")
		}
	})
}
