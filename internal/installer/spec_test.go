package installer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSpec(t *testing.T) {
	tests := []struct {
		in          string
		wantName    string
		wantVersion string
	}{
		{in: "quickjs", wantName: "quickjs", wantVersion: Latest},
		{in: "quickjs@2024-01-13", wantName: "quickjs", wantVersion: "2024-01-13"},
		{in: "v8@", wantName: "v8", wantVersion: Latest},
		{in: "v8@latest", wantName: "v8", wantVersion: Latest},
		{in: " xs@4.1.0 ", wantName: "xs", wantVersion: "4.1.0"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			name, version := ParseSpec(tt.in)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantVersion, version)
		})
	}
}

func TestSlotKey(t *testing.T) {
	assert.Equal(t, "quickjs", SlotKey("quickjs", Latest))
	assert.Equal(t, "quickjs", SlotKey("quickjs", ""))
	assert.Equal(t, "quickjs@2024-01-13", SlotKey("quickjs", "2024-01-13"))
}

func TestDescriptor(t *testing.T) {
	all := Descriptor{ID: "engine262"}
	assert.True(t, all.Supports("win32-ia32"))
	assert.True(t, all.InstallByDefault("win32-ia32"))

	graal := Descriptor{
		ID:             "graaljs",
		Platforms:      []string{"linux-x64"},
		DefaultInstall: func(string) bool { return false },
	}
	assert.True(t, graal.Supports("linux-x64"))
	assert.False(t, graal.Supports("darwin-x64"))
	assert.False(t, graal.InstallByDefault("linux-x64"))
}

func TestStageString(t *testing.T) {
	order := []Stage{
		StageResolvingVersion, StageCheckingUpToDate, StageDownloading, StageExtracting,
		StageInstalling, StageTesting, StageCommitting, StageCleaningUp, StageDone,
	}
	want := []string{
		"ResolvingVersion", "CheckingUpToDate", "Downloading", "Extracting",
		"Installing", "Testing", "Committing", "CleaningUp", "Done",
	}
	for i, s := range order {
		assert.Equal(t, want[i], s.String())
	}
	assert.Equal(t, "Failed", StageFailed.String())
	assert.Equal(t, "Stage(42)", Stage(42).String())
}
