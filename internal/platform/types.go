// Package platform detects the host operating system and architecture and
// turns them into the canonical platform token engines are matched against.
//
// A token has the form "<os>-<arch>" where os is one of linux, darwin or
// win32 and arch is one of x64, ia32 or arm64 (for example "linux-x64" or
// "darwin-arm64"). Linux distribution details are detected with gopsutil
// and exposed to Lua configuration through InjectPlatformTable.
package platform

import "context"

// Canonical OS names used in platform tokens.
const (
	OSLinux   = "linux"
	OSDarwin  = "darwin"
	OSWindows = "win32"
)

// Canonical architecture names used in platform tokens.
const (
	ArchX64   = "x64"
	ArchIA32  = "ia32"
	ArchARM64 = "arm64"
)

// Linux distribution family constants.
const (
	FamilyDebian  = "debian"  // Debian, Ubuntu, Linux Mint
	FamilyRHEL    = "rhel"    // RHEL, CentOS, Rocky Linux, AlmaLinux
	FamilyFedora  = "fedora"  // Fedora
	FamilySUSE    = "suse"    // openSUSE, SLES
	FamilyArch    = "arch"    // Arch Linux, Manjaro
	FamilyAlpine  = "alpine"  // Alpine Linux
	FamilyGentoo  = "gentoo"  // Gentoo
	FamilyUnknown = "unknown" // Unrecognized distributions
)

// Info contains platform detection information.
type Info struct {
	OS       string // canonical OS: "linux", "darwin", "win32"
	Arch     string // canonical arch: "x64", "ia32", "arm64"
	ArchRaw  string // original GOARCH (e.g. "amd64", "386")
	Platform string // distro ID (Linux only, e.g. "ubuntu")
	Family   string // canonical family (e.g. "debian")
	Version  string // distro version (Linux only, e.g. "22.04")
}

// Token returns the canonical "<os>-<arch>" platform token.
func (i *Info) Token() string {
	return i.OS + "-" + i.Arch
}

// IsLinux returns true if the platform is Linux.
func (i *Info) IsLinux() bool {
	return i.OS == OSLinux
}

// IsMacOS returns true if the platform is macOS.
func (i *Info) IsMacOS() bool {
	return i.OS == OSDarwin
}

// IsWindows returns true if the platform is Windows.
func (i *Info) IsWindows() bool {
	return i.OS == OSWindows
}

// IsWindowsToken reports whether a platform token names a Windows platform.
func IsWindowsToken(token string) bool {
	return len(token) >= len(OSWindows) && token[:len(OSWindows)] == OSWindows
}

// Tokens returns every supported platform token.
func Tokens() []string {
	var out []string
	for _, os := range []string{OSLinux, OSDarwin, OSWindows} {
		for _, arch := range []string{ArchX64, ArchIA32, ArchARM64} {
			if os == OSDarwin && arch == ArchIA32 {
				continue
			}
			out = append(out, os+"-"+arch)
		}
	}
	return out
}

// Detector is the interface for platform detection.
type Detector interface {
	Detect(ctx context.Context) (*Info, error)
}

// StaticDetector returns a fixed Info. It is used when the platform is
// forced from configuration and in tests.
type StaticDetector struct {
	Info *Info
}

// Detect returns the configured Info.
func (s StaticDetector) Detect(ctx context.Context) (*Info, error) {
	return s.Info, nil
}
