package engines

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/ZebulonRouseFrantzich/esvm/internal/installer"
)

var graaljsFiles = map[string]string{
	"darwin-x64": "darwin-amd64",
	"linux-x64":  "linux-amd64",
	"win32-x64":  "windows-amd64",
}

type graalJS struct {
	env installer.Env
}

// NewGraalJS returns the GraalJS installer. GraalVM archives are several
// hundred megabytes, so it is never selected by default.
func NewGraalJS(env installer.Env) installer.Engine {
	return &graalJS{env: env}
}

func (e *graalJS) Descriptor() installer.Descriptor {
	return installer.Descriptor{
		ID:             "graaljs",
		Name:           "GraalJS",
		Platforms:      []string{"linux-x64", "darwin-x64", "win32-x64"},
		DefaultInstall: func(string) bool { return false },
	}
}

func (e *graalJS) ResolveVersion(ctx context.Context, requested string) (string, error) {
	if requested != installer.Latest {
		return strings.TrimPrefix(requested, "vm-"), nil
	}
	releases, err := installer.GitHubReleases(ctx, e.env.Fetch, "graalvm/graalvm-ce-builds")
	if err != nil {
		return "", err
	}
	if len(releases) == 0 {
		return "", resolveErr("GraalJS", requested, "no releases")
	}
	return strings.TrimPrefix(releases[0].TagName, "vm-"), nil
}

func (e *graalJS) DownloadURL(ctx context.Context, version string) (string, error) {
	name, err := lookup(graaljsFiles, "GraalJS", e.env.Platform)
	if err != nil {
		return "", err
	}
	ext := "tar.gz"
	if isWindows(e.env.Platform) {
		ext = "zip"
	}
	return fmt.Sprintf("https://github.com/graalvm/graalvm-ce-builds/releases/download/vm-%s/graalvm-ce-java11-%s-%s.%s", version, name, version, ext), nil
}

func (e *graalJS) Extract(ctx context.Context, ws *installer.Workspace) error {
	if isWindows(e.env.Platform) {
		return ws.Unzip()
	}
	return ws.Untar()
}

// Install keeps the whole distribution; the js launcher resolves its
// runtime relative to itself.
func (e *graalJS) Install(ctx context.Context, ws *installer.Workspace) error {
	root := "graalvm-ce-java11-" + ws.Version
	launcher := path.Join(root, "languages/js/bin", exe(e.env.Platform, "js"))
	if err := ws.RequireFile(launcher); err != nil {
		return err
	}
	if err := ws.RegisterAssets(root + "/**"); err != nil {
		return err
	}
	bin := filepath.Join(ws.InstallPath, filepath.FromSlash(launcher))
	if isWindows(e.env.Platform) {
		_, err := ws.RegisterScript("graaljs", quote(bin))
		return err
	}
	_, err := ws.RegisterSymlink(bin, "graaljs")
	return err
}

func (e *graalJS) Test(ctx context.Context, ws *installer.Workspace) error {
	return ws.ExpectOutput(ctx, ws.Entry("graaljs"), []string{"-e", smoke}, "", "42")
}
