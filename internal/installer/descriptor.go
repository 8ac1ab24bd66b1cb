package installer

import (
	"context"
	"slices"
)

// Requirement is something the user may have to install separately for an
// engine to run. It is advisory and never checked.
type Requirement struct {
	Name string
	URL  string
}

// Descriptor is the static capability record of an engine.
type Descriptor struct {
	ID   string
	Name string
	// Platforms lists the supported platform tokens. Empty means every
	// platform.
	Platforms    []string
	Requirements []Requirement
	// DefaultInstall overrides the default selection predicate.
	DefaultInstall func(token string) bool
}

// Supports reports whether the engine ships builds for token.
func (d Descriptor) Supports(token string) bool {
	if len(d.Platforms) == 0 {
		return true
	}
	return slices.Contains(d.Platforms, token)
}

// InstallByDefault reports whether the engine is preselected on token.
func (d Descriptor) InstallByDefault(token string) bool {
	if d.DefaultInstall != nil {
		return d.DefaultInstall(token)
	}
	return d.Supports(token)
}

// Engine is the contract every installable engine implements.
//
// ResolveVersion turns "latest" or a user supplied version into a concrete
// version. DownloadURL derives the artifact location for that version on
// the current platform. Extract expands the downloaded artifact into the
// workspace's ExtractPath, Install copies files into InstallPath and
// registers entry points, and Test runs a smoke test against the
// registered entry points.
type Engine interface {
	Descriptor() Descriptor
	ResolveVersion(ctx context.Context, requested string) (string, error)
	DownloadURL(ctx context.Context, version string) (string, error)
	Extract(ctx context.Context, ws *Workspace) error
	Install(ctx context.Context, ws *Workspace) error
	Test(ctx context.Context, ws *Workspace) error
}

// Env is what engine constructors receive: the platform token they are
// installing for and a way to query upstream metadata.
type Env struct {
	Platform string
	Fetch    Fetcher
}
