package engines

import (
	"context"
	"fmt"
	"strings"

	"github.com/ZebulonRouseFrantzich/esvm/internal/installer"
)

var chakraFiles = map[string]string{
	"darwin-x64": "osx_x64",
	"linux-x64":  "linux_x64",
	"win32-ia32": "windows_all",
	"win32-x64":  "windows_all",
}

type chakra struct {
	env installer.Env
}

// NewChakra returns the ChakraCore installer.
func NewChakra(env installer.Env) installer.Engine {
	return &chakra{env: env}
}

func (e *chakra) Descriptor() installer.Descriptor {
	return installer.Descriptor{
		ID:        "ch",
		Name:      "Chakra",
		Platforms: []string{"linux-x64", "darwin-x64", "win32-ia32", "win32-x64"},
	}
}

func (e *chakra) ResolveVersion(ctx context.Context, requested string) (string, error) {
	if requested != installer.Latest {
		return trimV(requested), nil
	}
	body, err := e.env.Fetch.Text(ctx, "https://aka.ms/chakracore/version")
	if err != nil {
		return "", err
	}
	version := strings.TrimSpace(body)
	if version == "" {
		return "", resolveErr("Chakra", requested, "empty version document")
	}
	return version, nil
}

func (e *chakra) DownloadURL(ctx context.Context, version string) (string, error) {
	name, err := lookup(chakraFiles, "Chakra", e.env.Platform)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("https://aka.ms/chakracore/cc_%s_%s", name, version), nil
}

// Extract sniffs the archive type: the short link redirects to either a zip
// or a tarball depending on the platform.
func (e *chakra) Extract(ctx context.Context, ws *installer.Workspace) error {
	return ws.ExtractArchive()
}

func (e *chakra) Install(ctx context.Context, ws *installer.Workspace) error {
	if isWindows(e.env.Platform) {
		root := "x64_release"
		if e.env.Platform == "win32-ia32" {
			root = "x86_release"
		}
		for _, pattern := range []string{root + "/*.pdb", root + "/*.dll"} {
			if err := ws.RegisterAssets(pattern); err != nil {
				return err
			}
		}
		ch, err := ws.RegisterAsset(root + "/ch.exe")
		if err != nil {
			return err
		}
		if _, err := ws.RegisterScript("ch", quote(ch)); err != nil {
			return err
		}
		_, err = ws.RegisterScript("chakra", quote(ch))
		return err
	}

	if err := ws.RequireFile("ChakraCoreFiles/bin/ch"); err != nil {
		return err
	}
	if err := ws.RegisterAssets("ChakraCoreFiles/lib/*"); err != nil {
		return err
	}
	if _, err := ws.RegisterBinary("ChakraCoreFiles/bin/ch", "chakra"); err != nil {
		return err
	}
	_, err := ws.RegisterAsset("ChakraCoreFiles/LICENSE")
	return err
}

func (e *chakra) Test(ctx context.Context, ws *installer.Workspace) error {
	file, err := ws.WriteTemp("esvm_chakra_test.js", smoke)
	if err != nil {
		return err
	}
	return ws.ExpectOutput(ctx, ws.Entry("chakra"), []string{file}, "", "42")
}
