package engines

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/blang/semver"

	"github.com/ZebulonRouseFrantzich/esvm/internal/installer"
)

var v8Files = map[string]string{
	"linux-ia32": "linux32",
	"linux-x64":  "linux64",
	"win32-ia32": "win32",
	"win32-x64":  "win64",
	"darwin-x64": "mac64",
}

var v8BuildNumber = regexp.MustCompile(`#define V8_BUILD_NUMBER (\d+)`)

type v8 struct {
	env installer.Env
}

// NewV8 returns the V8 (d8) installer.
func NewV8(env installer.Env) installer.Engine {
	return &v8{env: env}
}

func (e *v8) Descriptor() installer.Descriptor {
	return installer.Descriptor{
		ID:        "v8",
		Name:      "V8",
		Platforms: []string{"linux-ia32", "linux-x64", "win32-ia32", "win32-x64", "darwin-x64"},
	}
}

func (e *v8) ResolveVersion(ctx context.Context, requested string) (string, error) {
	if requested == installer.Latest {
		name, err := lookup(v8Files, "V8", e.env.Platform)
		if err != nil {
			return "", err
		}
		var body struct {
			Version string `json:"version"`
		}
		url := fmt.Sprintf("https://storage.googleapis.com/chromium-v8/official/canary/v8-%s-rel-latest.json", name)
		if err := e.env.Fetch.JSON(ctx, url, &body); err != nil {
			return "", err
		}
		if body.Version == "" {
			return "", resolveErr("V8", requested, "no version in %s", url)
		}
		return body.Version, nil
	}

	parts := strings.Split(requested, ".")
	if len(parts) >= 3 {
		return requested, nil
	}
	if len(parts) != 2 {
		return "", resolveErr("V8", requested, "expected major.minor or major.minor.build")
	}

	// major.minor: take the build number of the branch's last known good revision.
	header, err := e.env.Fetch.Text(ctx, fmt.Sprintf("https://raw.githubusercontent.com/v8/v8/%s.%s-lkgr/include/v8-version.h", parts[0], parts[1]))
	if err != nil {
		return "", err
	}
	m := v8BuildNumber.FindStringSubmatch(header)
	if m == nil {
		return "", resolveErr("V8", requested, "V8_BUILD_NUMBER not found")
	}
	return fmt.Sprintf("%s.%s.%s", parts[0], parts[1], m[1]), nil
}

func (e *v8) DownloadURL(ctx context.Context, version string) (string, error) {
	name, err := lookup(v8Files, "V8", e.env.Platform)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("https://storage.googleapis.com/chromium-v8/official/canary/v8-%s-rel-%s.zip", name, version), nil
}

func (e *v8) Extract(ctx context.Context, ws *installer.Workspace) error {
	return ws.Unzip()
}

// needsNatives reports whether version predates V8 7, whose d8 still loads
// natives_blob.bin from the working directory.
func needsNatives(version string) bool {
	v, err := semver.ParseTolerant(version)
	if err != nil {
		return false
	}
	return v.Major < 7
}

func (e *v8) Install(ctx context.Context, ws *installer.Workspace) error {
	if _, err := ws.RegisterAsset("icudtl.dat"); err != nil {
		return err
	}
	snapshot, err := ws.RegisterAsset("snapshot_blob.bin")
	if err != nil {
		return err
	}
	d8, err := ws.RegisterAsset(exe(e.env.Platform, "d8"))
	if err != nil {
		return err
	}

	if needsNatives(ws.Version) {
		if _, err := ws.RegisterAsset("natives_blob.bin"); err != nil {
			return err
		}
		body := fmt.Sprintf("cd %s\n%s", quote(ws.InstallPath), "./"+filepath.Base(d8))
		if isWindows(e.env.Platform) {
			body = fmt.Sprintf("cd /d %s\r\n%s", quote(ws.InstallPath), filepath.Base(d8))
		}
		_, err = ws.RegisterScript("v8", body)
		return err
	}
	_, err = ws.RegisterScript("v8", fmt.Sprintf("%s --snapshot_blob=%s", quote(d8), quote(snapshot)))
	return err
}

func (e *v8) Test(ctx context.Context, ws *installer.Workspace) error {
	return ws.ExpectOutput(ctx, ws.Entry("v8"), []string{"-e", smoke}, "", "42")
}
