package engines

import (
	"context"
	"fmt"

	"github.com/ZebulonRouseFrantzich/esvm/internal/installer"
)

var boaFiles = map[string]string{
	"darwin-x64": "boa-macos-amd64",
	"linux-x64":  "boa-linux-amd64",
	"win32-x64":  "boa-windows-amd64",
}

type boa struct {
	env installer.Env
}

// NewBoa returns the Boa installer.
func NewBoa(env installer.Env) installer.Engine {
	return &boa{env: env}
}

func (e *boa) Descriptor() installer.Descriptor {
	return installer.Descriptor{
		ID:        "boa",
		Name:      "Boa",
		Platforms: []string{"linux-x64", "win32-x64", "darwin-x64"},
	}
}

func (e *boa) ResolveVersion(ctx context.Context, requested string) (string, error) {
	if requested != installer.Latest {
		return requested, nil
	}
	return installer.LatestGitHubTag(ctx, e.env.Fetch, "boa-dev/boa")
}

func (e *boa) DownloadURL(ctx context.Context, version string) (string, error) {
	name, err := lookup(boaFiles, "Boa", e.env.Platform)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("https://github.com/boa-dev/boa/releases/download/%s/%s", version, name), nil
}

// Extract copies the bare executable; boa releases are not archived.
func (e *boa) Extract(ctx context.Context, ws *installer.Workspace) error {
	return ws.CopyDownload(exe(e.env.Platform, "boa"))
}

func (e *boa) Install(ctx context.Context, ws *installer.Workspace) error {
	_, err := ws.RegisterBinary(exe(e.env.Platform, "boa"), "boa")
	return err
}

// Test feeds the program on stdin. The REPL echoes the completion value.
func (e *boa) Test(ctx context.Context, ws *installer.Workspace) error {
	return ws.ExpectOutput(ctx, ws.Entry("boa"), nil, `console.log("42");`, "42\nundefined")
}
