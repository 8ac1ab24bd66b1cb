package engines

import (
	"context"
	"fmt"

	"github.com/ZebulonRouseFrantzich/esvm/internal/installer"
)

var quickjsFiles = map[string]string{
	"linux-x64":  "linux-x86_64",
	"linux-ia32": "linux-i686",
	"win32-x64":  "win-x86_64",
	"win32-ia32": "win-i686",
}

// quickjsBuildPlatforms are served from the napi-bindings/quickjs-build
// releases instead of bellard.org.
var quickjsBuildPlatforms = map[string]string{
	"darwin-x64":   "qjs-macOS.zip",
	"darwin-arm64": "qjs-macOS-arm64.zip",
	"linux-arm64":  "qjs-linux-arm64.zip",
}

type quickJS struct {
	env installer.Env
}

// NewQuickJS returns the QuickJS installer.
func NewQuickJS(env installer.Env) installer.Engine {
	return &quickJS{env: env}
}

func (e *quickJS) Descriptor() installer.Descriptor {
	return installer.Descriptor{
		ID:   "quickjs",
		Name: "QuickJS",
		Platforms: []string{
			"linux-ia32", "linux-x64", "linux-arm64",
			"win32-ia32", "win32-x64",
			"darwin-x64", "darwin-arm64",
		},
	}
}

func (e *quickJS) fromBuildRepo() bool {
	_, ok := quickjsBuildPlatforms[e.env.Platform]
	return ok
}

func (e *quickJS) ResolveVersion(ctx context.Context, requested string) (string, error) {
	if requested != installer.Latest {
		return requested, nil
	}
	if e.fromBuildRepo() {
		releases, err := installer.GitHubReleases(ctx, e.env.Fetch, "napi-bindings/quickjs-build")
		if err != nil {
			return "", err
		}
		if len(releases) == 0 {
			return "", resolveErr("QuickJS", requested, "no releases")
		}
		return releases[0].TagName, nil
	}

	var body struct {
		Version string `json:"version"`
	}
	if err := e.env.Fetch.JSON(ctx, "https://bellard.org/quickjs/binary_releases/LATEST.json", &body); err != nil {
		return "", err
	}
	if body.Version == "" {
		return "", resolveErr("QuickJS", requested, "LATEST.json has no version")
	}
	return body.Version, nil
}

func (e *quickJS) DownloadURL(ctx context.Context, version string) (string, error) {
	if file, ok := quickjsBuildPlatforms[e.env.Platform]; ok {
		return fmt.Sprintf("https://github.com/napi-bindings/quickjs-build/releases/download/%s/%s", version, file), nil
	}
	name, err := lookup(quickjsFiles, "QuickJS", e.env.Platform)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("https://bellard.org/quickjs/binary_releases/quickjs-%s-%s.zip", name, version), nil
}

func (e *quickJS) Extract(ctx context.Context, ws *installer.Workspace) error {
	return ws.Unzip()
}

func (e *quickJS) Install(ctx context.Context, ws *installer.Workspace) error {
	switch {
	case isWindows(e.env.Platform):
		if _, err := ws.RegisterAsset("libwinpthread-1.dll"); err != nil {
			return err
		}
		qjs, err := ws.RegisterAsset("qjs.exe")
		if err != nil {
			return err
		}
		_, err = ws.RegisterScript("quickjs", quote(qjs))
		return err
	case e.fromBuildRepo():
		if _, err := ws.RegisterBinary("quickjs", ""); err != nil {
			return err
		}
	default:
		if _, err := ws.RegisterBinary("qjs", "quickjs"); err != nil {
			return err
		}
	}
	_, err := ws.RegisterBinary("run-test262", "quickjs-run-test262")
	return err
}

func (e *quickJS) Test(ctx context.Context, ws *installer.Workspace) error {
	return ws.ExpectOutput(ctx, ws.Entry("quickjs"), []string{"-e", smoke}, "", "42")
}
