package installer

import (
	"errors"
	"fmt"
)

// ErrUnknownEngine is returned when an engine id or name is not in the
// catalog.
var ErrUnknownEngine = errors.New("engine not recognized")

// UnsupportedPlatformError means no artifact exists for the platform.
type UnsupportedPlatformError struct {
	Engine   string
	Platform string
	Version  string
}

func (e *UnsupportedPlatformError) Error() string {
	if e.Version != "" {
		return fmt.Sprintf("%s %s is not available for %s", e.Engine, e.Version, e.Platform)
	}
	return fmt.Sprintf("%s is not available for %s", e.Engine, e.Platform)
}

// VersionResolutionError means the upstream version source was unreachable
// or returned something unusable.
type VersionResolutionError struct {
	Engine    string
	Requested string
	Err       error
}

func (e *VersionResolutionError) Error() string {
	return fmt.Sprintf("resolve %s version %q: %v", e.Engine, e.Requested, e.Err)
}

func (e *VersionResolutionError) Unwrap() error { return e.Err }

// DownloadError is a non-success HTTP status or a broken download stream.
type DownloadError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *DownloadError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("download %s: unexpected status code: %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("download %s: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// ExtractionError means the artifact was corrupt or had an unexpected
// layout.
type ExtractionError struct {
	Engine string
	Path   string
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s from %s: %v", e.Engine, e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// SmokeTestError means an installed entry point did not produce the
// expected output.
type SmokeTestError struct {
	Engine string
	Entry  string
	Want   string
	Got    string
	Err    error
}

func (e *SmokeTestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("test %s: %v", e.Engine, e.Err)
	}
	return fmt.Sprintf("test %s: %s printed %q, expected %q", e.Engine, e.Entry, e.Got, e.Want)
}

func (e *SmokeTestError) Unwrap() error { return e.Err }

// NotInstalledError is returned by Uninstall and Update for a slot without
// an installed record.
type NotInstalledError struct {
	Slot string
}

func (e *NotInstalledError) Error() string {
	return fmt.Sprintf("%s is not installed", e.Slot)
}
