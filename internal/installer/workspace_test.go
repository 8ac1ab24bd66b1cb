package installer

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWorkspace(t *testing.T, token string, pinned bool) *Workspace {
	t.Helper()
	root := t.TempDir()
	ws := &Workspace{
		Engine:       "Test",
		Slot:         "test",
		Version:      "1.2.3",
		Pinned:       pinned,
		Platform:     token,
		DownloadPath: filepath.Join(root, "download.zip"),
		ExtractPath:  filepath.Join(root, "download.zip-extracted"),
		InstallPath:  filepath.Join(root, "engines", "test"),
		BinDir:       filepath.Join(root, "bin"),
	}
	require.NoError(t, os.MkdirAll(ws.ExtractPath, 0755))
	require.NoError(t, os.MkdirAll(ws.BinDir, 0755))
	return ws
}

func writeExtracted(t *testing.T, ws *Workspace, rel, body string) {
	t.Helper()
	path := filepath.Join(ws.ExtractPath, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0755))
}

func TestWorkspace_EntryName(t *testing.T) {
	latest := &Workspace{Version: "1.2.3"}
	pinned := &Workspace{Version: "1.2.3", Pinned: true}

	assert.Equal(t, "v8", latest.EntryName("v8"))
	assert.Equal(t, "v8@1.2.3", pinned.EntryName("v8"))
}

func TestWorkspace_RegisterAsset(t *testing.T) {
	ws := newTestWorkspace(t, "linux-x64", false)
	writeExtracted(t, ws, "lib/libfoo.so", "so")

	dst, err := ws.RegisterAsset("lib/libfoo.so")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(ws.InstallPath, "lib", "libfoo.so"), dst)
	assert.FileExists(t, dst)
	assert.Empty(t, ws.BinEntries(), "assets are not entry points")

	_, err = ws.RegisterAsset("missing")
	assert.Error(t, err)
}

func TestWorkspace_RegisterAssets(t *testing.T) {
	ws := newTestWorkspace(t, "linux-x64", false)
	writeExtracted(t, ws, "a.so", "")
	writeExtracted(t, ws, "nested/b.so", "")
	writeExtracted(t, ws, "c.txt", "")

	require.NoError(t, ws.RegisterAssets("**/*.so"))
	assert.FileExists(t, filepath.Join(ws.InstallPath, "a.so"))
	assert.FileExists(t, filepath.Join(ws.InstallPath, "nested", "b.so"))
	assert.NoFileExists(t, filepath.Join(ws.InstallPath, "c.txt"))

	require.NoError(t, ws.RegisterAssets("*.dll"), "no match is fine")
}

func TestWorkspace_RegisterScript(t *testing.T) {
	tests := []struct {
		name      string
		token     string
		pinned    bool
		wantEntry string
		wantBody  string
	}{
		{
			name:      "posix_latest",
			token:     "linux-x64",
			wantEntry: "sm",
			wantBody:  "#!/usr/bin/env bash\nLD_LIBRARY_PATH=\"/opt\" \"/opt/js\" \"$@\"\n",
		},
		{
			name:      "posix_pinned",
			token:     "darwin-arm64",
			pinned:    true,
			wantEntry: "sm@1.2.3",
			wantBody:  "#!/usr/bin/env bash\nLD_LIBRARY_PATH=\"/opt\" \"/opt/js\" \"$@\"\n",
		},
		{
			name:      "windows",
			token:     "win32-x64",
			wantEntry: "sm.cmd",
			wantBody:  "@echo off\r\nLD_LIBRARY_PATH=\"/opt\" \"/opt/js\" %*\r\n",
		},
		{
			name:      "windows_pinned",
			token:     "win32-ia32",
			pinned:    true,
			wantEntry: "sm@1.2.3.cmd",
			wantBody:  "@echo off\r\nLD_LIBRARY_PATH=\"/opt\" \"/opt/js\" %*\r\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ws := newTestWorkspace(t, tt.token, tt.pinned)
			var journaled []string
			ws.track = func(entry string) error {
				journaled = append(journaled, entry)
				return nil
			}

			path, err := ws.RegisterScript("sm", `LD_LIBRARY_PATH="/opt" "/opt/js"`)
			require.NoError(t, err)

			assert.Equal(t, filepath.Join(ws.BinDir, tt.wantEntry), path)
			assert.Equal(t, path, ws.Entry("sm"))
			assert.Equal(t, []string{tt.wantEntry}, ws.BinEntries())
			assert.Equal(t, []string{tt.wantEntry}, journaled)

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, tt.wantBody, string(data))

			if runtime.GOOS != "windows" {
				info, err := os.Stat(path)
				require.NoError(t, err)
				assert.Equal(t, os.FileMode(0755), info.Mode().Perm())
			}
		})
	}
}

func TestWorkspace_RegisterBinary(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need elevated privileges on windows")
	}
	ws := newTestWorkspace(t, "linux-x64", true)
	writeExtracted(t, ws, "bin/qjs", "#!/bin/sh\n")

	path, err := ws.RegisterBinary("bin/qjs", "quickjs")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(ws.BinDir, "quickjs@1.2.3"), path)

	target, err := os.Readlink(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(ws.InstallPath, "bin", "qjs"), target)

	// Registering the same entry again keeps a single record.
	_, err = ws.RegisterBinary("bin/qjs", "quickjs")
	require.NoError(t, err)
	assert.Equal(t, []string{"quickjs@1.2.3"}, ws.BinEntries())

	// Alias defaults to the base name.
	_, err = ws.RegisterBinary("bin/qjs", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"quickjs@1.2.3", "qjs@1.2.3"}, ws.BinEntries())
}

func TestWorkspace_TrackFailureStopsRegistration(t *testing.T) {
	ws := newTestWorkspace(t, "linux-x64", false)
	ws.track = func(string) error { return os.ErrPermission }

	_, err := ws.RegisterScript("xs", "true")
	require.ErrorIs(t, err, os.ErrPermission)
	assert.Empty(t, ws.BinEntries())
	assert.NoFileExists(t, filepath.Join(ws.BinDir, "xs"))
}

func TestWorkspace_RequireFile(t *testing.T) {
	ws := newTestWorkspace(t, "linux-x64", false)
	writeExtracted(t, ws, "bin/d8", "")

	assert.NoError(t, ws.RequireFile("bin/d8"))

	err := ws.RequireFile("bin/missing")
	var ee *ExtractionError
	require.ErrorAs(t, err, &ee)
	assert.ErrorIs(t, err, errUnexpectedLayout)
}
