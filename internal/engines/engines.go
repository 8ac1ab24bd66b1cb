// Package engines contains one installer per supported JavaScript engine.
// Each engine only knows where its builds live and how its archive is laid
// out; the installer package does the rest.
package engines

import (
	"fmt"
	"strings"

	"github.com/ZebulonRouseFrantzich/esvm/internal/installer"
	"github.com/ZebulonRouseFrantzich/esvm/internal/platform"
)

// Constructor builds an engine for an environment.
type Constructor func(env installer.Env) installer.Engine

// registry lists every engine in catalog order. New engines are added here.
var registry = []Constructor{
	NewQuickJS,
	NewV8,
	NewSpiderMonkey,
	NewJavaScriptCore,
	NewXS,
	NewHermes,
	NewBoa,
	NewChakra,
	NewEngine262,
	NewGraalJS,
	NewLibJS,
}

// All returns every engine configured for env.
func All(env installer.Env) []installer.Engine {
	out := make([]installer.Engine, 0, len(registry))
	for _, c := range registry {
		out = append(out, c(env))
	}
	return out
}

// Catalog builds the catalog of every engine for env.
func Catalog(env installer.Env) (*installer.Catalog, error) {
	return installer.NewCatalog(All(env)...)
}

// smoke is the program most engines are tested with.
const smoke = `print("42");`

// lookup maps the platform token through table or reports that the engine
// has no build for it.
func lookup(table map[string]string, name, token string) (string, error) {
	v, ok := table[token]
	if !ok {
		return "", &installer.UnsupportedPlatformError{Engine: name, Platform: token}
	}
	return v, nil
}

func isWindows(token string) bool {
	return platform.IsWindowsToken(token)
}

func exe(token, name string) string {
	if isWindows(token) {
		return name + ".exe"
	}
	return name
}

// quote wraps a path for use in a launcher script body.
func quote(path string) string {
	return `"` + path + `"`
}

func resolveErr(name, requested string, format string, args ...any) error {
	return &installer.VersionResolutionError{Engine: name, Requested: requested, Err: fmt.Errorf(format, args...)}
}

func trimV(tag string) string {
	return strings.TrimPrefix(tag, "v")
}
