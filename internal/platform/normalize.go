package platform

import (
	"fmt"
	"strings"
)

// familyMap maps distribution names to their canonical family names.
var familyMap = map[string]string{
	"debian":   FamilyDebian,
	"ubuntu":   FamilyDebian,
	"rhel":     FamilyRHEL,
	"centos":   FamilyRHEL,
	"rocky":    FamilyRHEL,
	"fedora":   FamilyFedora,
	"suse":     FamilySUSE,
	"opensuse": FamilySUSE,
	"arch":     FamilyArch,
	"manjaro":  FamilyArch,
	"alpine":   FamilyAlpine,
	"gentoo":   FamilyGentoo,
}

// normalizeOS converts GOOS values to canonical token OS names.
func normalizeOS(goos string) (string, error) {
	switch goos {
	case "linux":
		return OSLinux, nil
	case "darwin":
		return OSDarwin, nil
	case "windows", "win32":
		return OSWindows, nil
	default:
		return "", fmt.Errorf("unsupported operating system: %s", goos)
	}
}

// normalizeArch converts GOARCH values (and their uname spellings) to
// canonical token architecture names.
func normalizeArch(arch string) (string, error) {
	switch arch {
	case "amd64", "x86_64", "x64":
		return ArchX64, nil
	case "386", "i386", "i686", "ia32":
		return ArchIA32, nil
	case "arm64", "aarch64":
		return ArchARM64, nil
	default:
		return "", fmt.Errorf("unsupported architecture: %s", arch)
	}
}

// ParseToken validates a "<os>-<arch>" token, accepting GOOS/GOARCH
// spellings, and returns the canonical Info for it.
func ParseToken(token string) (*Info, error) {
	osPart, archPart, ok := strings.Cut(strings.ToLower(strings.TrimSpace(token)), "-")
	if !ok {
		return nil, fmt.Errorf("invalid platform token %q: expected <os>-<arch>", token)
	}
	osName, err := normalizeOS(osPart)
	if err != nil {
		return nil, err
	}
	arch, err := normalizeArch(archPart)
	if err != nil {
		return nil, err
	}
	return &Info{OS: osName, Arch: arch, ArchRaw: archPart}, nil
}

// normalizePlatform converts platform IDs to lowercase for consistency.
func normalizePlatform(platform string) string {
	return strings.ToLower(strings.TrimSpace(platform))
}

// mapFamily maps distribution family strings to canonical family names.
func mapFamily(family string) string {
	normalized := strings.ToLower(strings.TrimSpace(family))
	if canonical, ok := familyMap[normalized]; ok {
		return canonical
	}
	return FamilyUnknown
}
