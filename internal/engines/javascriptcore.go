package engines

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"

	"github.com/ZebulonRouseFrantzich/esvm/internal/installer"
)

// jscBuilders are the build.webkit.org builder pages whose most recent
// successful build is "latest" on each platform.
var jscBuilders = map[string]string{
	"win32-ia32": "https://build.webkit.org/builders/Apple%20Win%2010%20Release%20(Build)?numbuilds=25",
	"win32-x64":  "https://build.webkit.org/builders/WinCairo%2064-bit%20WKL%20Release%20%28Build%29?numbuilds=25",
	"darwin-x64": "https://build.webkit.org/builders/Apple-Catalina-Release-Build?numbuilds=25",
}

var jscArchives = map[string]string{
	"darwin-x64": "https://s3-us-west-2.amazonaws.com/minified-archives.webkit.org/mac-catalina-x86_64-release/%s.zip",
	"linux-ia32": "https://webkitgtk.org/jsc-built-products/x86_32/release/%s.zip",
	"linux-x64":  "https://webkitgtk.org/jsc-built-products/x86_64/release/%s.zip",
	"win32-ia32": "https://s3-us-west-2.amazonaws.com/archives.webkit.org/win-i386-release/%s.zip",
	"win32-x64":  "https://s3-us-west-2.amazonaws.com/archives.webkit.org/wincairo-x86_64-release/%s.zip",
}

var (
	// The .sha256sum files are uploaded after the zip, so the newest one
	// always has a complete archive next to it.
	jscLinuxBuild   = regexp.MustCompile(`<a href="(\d+)\.sha256sum">`)
	jscBuilderBuild = regexp.MustCompile(`<td><span[^>]+><a href="[^"]+">(\d+)</a></span></td>\s*<td class="success">success</td>`)
)

type javaScriptCore struct {
	env installer.Env
}

// NewJavaScriptCore returns the JavaScriptCore installer.
func NewJavaScriptCore(env installer.Env) installer.Engine {
	return &javaScriptCore{env: env}
}

func (e *javaScriptCore) Descriptor() installer.Descriptor {
	d := installer.Descriptor{
		ID:        "jsc",
		Name:      "JavaScriptCore",
		Platforms: []string{"linux-ia32", "linux-x64", "win32-ia32", "win32-x64", "darwin-x64"},
	}
	if isWindows(e.env.Platform) {
		d.Requirements = []installer.Requirement{{
			Name: "WinCairoRequirements",
			URL:  "https://github.com/WebKitForWindows/WinCairoRequirements",
		}}
	}
	return d
}

func (e *javaScriptCore) ResolveVersion(ctx context.Context, requested string) (string, error) {
	if requested != installer.Latest {
		return requested, nil
	}

	var (
		url string
		re  *regexp.Regexp
	)
	switch e.env.Platform {
	case "linux-ia32":
		url, re = "https://webkitgtk.org/jsc-built-products/x86_32/release/?C=M;O=D", jscLinuxBuild
	case "linux-x64":
		url, re = "https://webkitgtk.org/jsc-built-products/x86_64/release/?C=M;O=D", jscLinuxBuild
	default:
		var err error
		url, err = lookup(jscBuilders, "JavaScriptCore", e.env.Platform)
		if err != nil {
			return "", err
		}
		re = jscBuilderBuild
	}

	body, err := e.env.Fetch.Text(ctx, url)
	if err != nil {
		return "", err
	}
	m := re.FindStringSubmatch(body)
	if m == nil {
		return "", resolveErr("JavaScriptCore", requested, "no build found at %s", url)
	}
	return m[1], nil
}

func (e *javaScriptCore) DownloadURL(ctx context.Context, version string) (string, error) {
	format, err := lookup(jscArchives, "JavaScriptCore", e.env.Platform)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(format, version), nil
}

func (e *javaScriptCore) Extract(ctx context.Context, ws *installer.Workspace) error {
	return ws.Unzip()
}

func (e *javaScriptCore) Install(ctx context.Context, ws *installer.Workspace) error {
	var body string
	switch e.env.Platform {
	case "darwin-x64":
		if err := ws.RegisterAssets("Release/JavaScriptCore.framework/**"); err != nil {
			return err
		}
		jsc, err := ws.RegisterAsset("Release/jsc")
		if err != nil {
			return err
		}
		release := quote(filepath.Join(ws.InstallPath, "Release"))
		body = fmt.Sprintf("DYLD_FRAMEWORK_PATH=%s DYLD_LIBRARY_PATH=%s %s", release, release, quote(jsc))

	case "linux-ia32", "linux-x64":
		if err := ws.RegisterAssets("lib/*"); err != nil {
			return err
		}
		jsc, err := ws.RegisterAsset("bin/jsc")
		if err != nil {
			return err
		}
		loader := "ld-linux.so.2"
		if e.env.Platform == "linux-x64" {
			loader = "ld-linux-x86-64.so.2"
		}
		lib := filepath.Join(ws.InstallPath, "lib")
		body = fmt.Sprintf("LD_LIBRARY_PATH=%s exec %s %s", quote(lib), quote(filepath.Join(lib, loader)), quote(jsc))

	case "win32-ia32", "win32-x64":
		for _, pattern := range []string{"bin64/JavaScriptCore.resources/*", "bin64/*.dll", "bin64/*.pdb"} {
			if err := ws.RegisterAssets(pattern); err != nil {
				return err
			}
		}
		jsc, err := ws.RegisterAsset("bin64/jsc.exe")
		if err != nil {
			return err
		}
		body = quote(jsc)

	default:
		return &installer.UnsupportedPlatformError{Engine: "JavaScriptCore", Platform: e.env.Platform}
	}

	if _, err := ws.RegisterScript("javascriptcore", body); err != nil {
		return err
	}
	_, err := ws.RegisterScript("jsc", body)
	return err
}

func (e *javaScriptCore) Test(ctx context.Context, ws *installer.Workspace) error {
	return ws.ExpectOutput(ctx, ws.Entry("javascriptcore"), []string{"-e", smoke}, "", "42")
}
