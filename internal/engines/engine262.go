package engines

import (
	"context"
	"net/url"
	"path/filepath"

	"github.com/ZebulonRouseFrantzich/esvm/internal/installer"
	"github.com/ZebulonRouseFrantzich/esvm/internal/platform"
)

var engine262API = "https://api.engine262.js.org/download"

type engine262 struct {
	env installer.Env
}

// NewEngine262 returns the engine262 installer. engine262 is itself written
// in JavaScript and runs on Node.js.
func NewEngine262(env installer.Env) installer.Engine {
	return &engine262{env: env}
}

func (e *engine262) Descriptor() installer.Descriptor {
	return installer.Descriptor{
		ID:        "engine262",
		Name:      "engine262",
		Platforms: platform.Tokens(),
		Requirements: []installer.Requirement{
			{Name: "Node.js", URL: "https://nodejs.org/"},
		},
	}
}

func (e *engine262) ResolveVersion(ctx context.Context, requested string) (string, error) {
	if requested != installer.Latest {
		return requested, nil
	}
	var body struct {
		Latest string `json:"latest"`
	}
	if err := e.env.Fetch.JSON(ctx, engine262API, &body); err != nil {
		return "", err
	}
	if body.Latest == "" {
		return "", resolveErr("engine262", requested, "no latest version in %s", engine262API)
	}
	return body.Latest, nil
}

func (e *engine262) DownloadURL(ctx context.Context, version string) (string, error) {
	var body struct {
		Tarball string `json:"tarball"`
	}
	if err := e.env.Fetch.JSON(ctx, engine262API+"?version="+url.QueryEscape(version), &body); err != nil {
		return "", err
	}
	if body.Tarball == "" {
		return "", resolveErr("engine262", version, "no tarball for version %s", version)
	}
	return body.Tarball, nil
}

func (e *engine262) Extract(ctx context.Context, ws *installer.Workspace) error {
	return ws.Untar()
}

func (e *engine262) Install(ctx context.Context, ws *installer.Workspace) error {
	if err := ws.RequireFile("package/bin/engine262.js"); err != nil {
		return err
	}
	if err := ws.RegisterAssets("package/**"); err != nil {
		return err
	}
	bin := filepath.Join(ws.InstallPath, "package", "bin", "engine262.js")
	if isWindows(e.env.Platform) {
		_, err := ws.RegisterScript("engine262", "node "+quote(bin))
		return err
	}
	_, err := ws.RegisterSymlink(bin, "engine262")
	return err
}

func (e *engine262) Test(ctx context.Context, ws *installer.Workspace) error {
	return ws.ExpectOutput(ctx, ws.Entry("engine262"), nil, smoke, "42")
}
