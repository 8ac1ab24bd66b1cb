package engines

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/ZebulonRouseFrantzich/esvm/internal/installer"
)

var spidermonkeyFiles = map[string]string{
	"darwin-x64":   "mac",
	"darwin-arm64": "mac",
	"linux-ia32":   "linux-i686",
	"linux-x64":    "linux-x86_64",
	"win32-ia32":   "win32",
	"win32-x64":    "win64",
}

// nightlyVersion matches versions pinned to a nightly build, such as
// "125.0a1#20240301093000".
var nightlyVersion = regexp.MustCompile(`#(\d{4})(\d{2})(\d{2})(\d{2})(\d{2})(\d{2})$`)

type spiderMonkey struct {
	env installer.Env
}

// NewSpiderMonkey returns the SpiderMonkey (jsshell) installer.
func NewSpiderMonkey(env installer.Env) installer.Engine {
	return &spiderMonkey{env: env}
}

func (e *spiderMonkey) Descriptor() installer.Descriptor {
	return installer.Descriptor{
		ID:   "jsshell",
		Name: "SpiderMonkey",
		Platforms: []string{
			"linux-ia32", "linux-x64",
			"win32-ia32", "win32-x64",
			"darwin-x64", "darwin-arm64",
		},
	}
}

func (e *spiderMonkey) ResolveVersion(ctx context.Context, requested string) (string, error) {
	if requested != installer.Latest {
		return requested, nil
	}

	// version → release date
	var history map[string]string
	url := "https://product-details.mozilla.org/1.0/firefox_history_development_releases.json"
	if err := e.env.Fetch.JSON(ctx, url, &history); err != nil {
		return "", err
	}

	type release struct {
		version string
		date    time.Time
	}
	releases := make([]release, 0, len(history))
	for version, date := range history {
		t, err := time.Parse("2006-01-02", date)
		if err != nil {
			continue
		}
		releases = append(releases, release{version: version, date: t})
	}
	if len(releases) == 0 {
		return "", resolveErr("SpiderMonkey", requested, "no dated releases in %s", url)
	}
	sort.Slice(releases, func(i, j int) bool {
		if !releases[i].date.Equal(releases[j].date) {
			return releases[i].date.After(releases[j].date)
		}
		return releases[i].version > releases[j].version
	})
	return releases[0].version, nil
}

func (e *spiderMonkey) DownloadURL(ctx context.Context, version string) (string, error) {
	name, err := lookup(spidermonkeyFiles, "SpiderMonkey", e.env.Platform)
	if err != nil {
		return "", err
	}
	if m := nightlyVersion.FindStringSubmatch(version); m != nil {
		stamp := fmt.Sprintf("%s-%s-%s-%s-%s-%s", m[1], m[2], m[3], m[4], m[5], m[6])
		return fmt.Sprintf("https://archive.mozilla.org/pub/firefox/nightly/%s/%s/%s-mozilla-central/jsshell-%s.zip", m[1], m[2], stamp, name), nil
	}
	return fmt.Sprintf("https://archive.mozilla.org/pub/firefox/releases/%s/jsshell/jsshell-%s.zip", version, name), nil
}

func (e *spiderMonkey) Extract(ctx context.Context, ws *installer.Workspace) error {
	return ws.Unzip()
}

func (e *spiderMonkey) Install(ctx context.Context, ws *installer.Workspace) error {
	switch e.env.Platform {
	case "darwin-x64", "darwin-arm64":
		if err := ws.RegisterAssets("*.dylib"); err != nil {
			return err
		}
		if _, err := ws.RegisterBinary("js", "spidermonkey"); err != nil {
			return err
		}
		_, err := ws.RegisterSymlink(filepath.Join(ws.InstallPath, "js"), "sm")
		return err

	case "linux-ia32", "linux-x64":
		if err := ws.RegisterAssets("*.so"); err != nil {
			return err
		}
		sm, err := ws.RegisterAsset("js")
		if err != nil {
			return err
		}
		return e.scripts(ws, fmt.Sprintf("LD_LIBRARY_PATH=%s %s", quote(ws.InstallPath), quote(sm)))

	case "win32-ia32", "win32-x64":
		if err := ws.RegisterAssets("*.dll"); err != nil {
			return err
		}
		sm, err := ws.RegisterAsset("js.exe")
		if err != nil {
			return err
		}
		return e.scripts(ws, quote(sm))
	}
	return &installer.UnsupportedPlatformError{Engine: "SpiderMonkey", Platform: e.env.Platform}
}

func (e *spiderMonkey) scripts(ws *installer.Workspace, body string) error {
	if _, err := ws.RegisterScript("spidermonkey", body); err != nil {
		return err
	}
	_, err := ws.RegisterScript("sm", body)
	return err
}

func (e *spiderMonkey) Test(ctx context.Context, ws *installer.Workspace) error {
	return ws.ExpectOutput(ctx, ws.Entry("spidermonkey"), []string{"-e", smoke}, "", "42")
}
