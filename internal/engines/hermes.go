package engines

import (
	"context"
	"fmt"

	"github.com/ZebulonRouseFrantzich/esvm/internal/installer"
)

var hermesFiles = map[string]string{
	"linux-x64":    "linux",
	"darwin-x64":   "darwin",
	"darwin-arm64": "darwin",
	"win32-x64":    "windows",
}

type hermes struct {
	env installer.Env
}

// NewHermes returns the Hermes installer.
func NewHermes(env installer.Env) installer.Engine {
	return &hermes{env: env}
}

func (e *hermes) Descriptor() installer.Descriptor {
	return installer.Descriptor{
		ID:        "hermes",
		Name:      "Hermes",
		Platforms: []string{"linux-x64", "darwin-x64", "darwin-arm64", "win32-x64"},
	}
}

func (e *hermes) ResolveVersion(ctx context.Context, requested string) (string, error) {
	if requested != installer.Latest {
		return trimV(requested), nil
	}
	var body struct {
		DistTags struct {
			Latest string `json:"latest"`
		} `json:"dist-tags"`
	}
	if err := e.env.Fetch.JSON(ctx, "https://registry.npmjs.org/hermes-engine", &body); err != nil {
		return "", err
	}
	if body.DistTags.Latest == "" {
		return "", resolveErr("Hermes", requested, "npm registry has no latest dist-tag")
	}
	return body.DistTags.Latest, nil
}

func (e *hermes) DownloadURL(ctx context.Context, version string) (string, error) {
	name, err := lookup(hermesFiles, "Hermes", e.env.Platform)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("https://github.com/facebook/hermes/releases/download/v%s/hermes-cli-%s-v%s.tar.gz", version, name, version), nil
}

func (e *hermes) Extract(ctx context.Context, ws *installer.Workspace) error {
	return ws.Untar()
}

func (e *hermes) Install(ctx context.Context, ws *installer.Workspace) error {
	if isWindows(e.env.Platform) {
		if err := ws.RegisterAssets("*.dll"); err != nil {
			return err
		}
		h, err := ws.RegisterAsset("hermes.exe")
		if err != nil {
			return err
		}
		_, err = ws.RegisterScript("hermes", quote(h))
		return err
	}
	_, err := ws.RegisterBinary("hermes", "")
	return err
}

// Test runs a file because hermes does not evaluate source given on the
// command line.
func (e *hermes) Test(ctx context.Context, ws *installer.Workspace) error {
	file, err := ws.WriteTemp("esvm_hermes_test.js", smoke)
	if err != nil {
		return err
	}
	return ws.ExpectOutput(ctx, ws.Entry("hermes"), []string{file}, "", "42")
}
