package engines

import (
	"context"
	"fmt"

	"github.com/ZebulonRouseFrantzich/esvm/internal/installer"
)

var xsFiles = map[string]string{
	"darwin-x64": "mac",
	"linux-ia32": "lin32",
	"linux-x64":  "lin64",
	"win32-ia32": "win",
	"win32-x64":  "win",
}

type xs struct {
	env installer.Env
}

// NewXS returns the Moddable XS installer.
func NewXS(env installer.Env) installer.Engine {
	return &xs{env: env}
}

func (e *xs) Descriptor() installer.Descriptor {
	return installer.Descriptor{
		ID:        "xs",
		Name:      "XS",
		Platforms: []string{"linux-ia32", "linux-x64", "win32-ia32", "win32-x64", "darwin-x64"},
	}
}

func (e *xs) ResolveVersion(ctx context.Context, requested string) (string, error) {
	if requested != installer.Latest {
		return trimV(requested), nil
	}
	releases, err := installer.GitHubReleases(ctx, e.env.Fetch, "Moddable-OpenSource/moddable-xst")
	if err != nil {
		return "", err
	}
	rel, err := installer.FirstStableRelease(releases)
	if err != nil {
		return "", err
	}
	return trimV(rel.TagName), nil
}

func (e *xs) DownloadURL(ctx context.Context, version string) (string, error) {
	name, err := lookup(xsFiles, "XS", e.env.Platform)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("https://github.com/Moddable-OpenSource/moddable-xst/releases/download/v%s/xst-%s.zip", version, name), nil
}

func (e *xs) Extract(ctx context.Context, ws *installer.Workspace) error {
	return ws.Unzip()
}

func (e *xs) Install(ctx context.Context, ws *installer.Workspace) error {
	if isWindows(e.env.Platform) {
		xst, err := ws.RegisterAsset("xst.exe")
		if err != nil {
			return err
		}
		_, err = ws.RegisterScript("xs", quote(xst))
		return err
	}
	_, err := ws.RegisterBinary("xst", "xs")
	return err
}

func (e *xs) Test(ctx context.Context, ws *installer.Workspace) error {
	return ws.ExpectOutput(ctx, ws.Entry("xs"), []string{"-e", smoke}, "", "42")
}
