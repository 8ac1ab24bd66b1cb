package installer

import "strings"

// Latest is the version placeholder for the mutable, unpinned slot.
const Latest = "latest"

// ParseSpec splits "id@version" into its parts. A missing or empty version
// means Latest.
func ParseSpec(s string) (name, version string) {
	name, version, _ = strings.Cut(strings.TrimSpace(s), "@")
	if version == "" {
		version = Latest
	}
	return name, version
}

// IsPinned reports whether version names a concrete version.
func IsPinned(version string) bool {
	return version != "" && version != Latest
}

// SlotKey returns the installation slot key: the bare id for the latest
// slot, "id@version" for a pinned one.
func SlotKey(id, version string) string {
	if !IsPinned(version) {
		return id
	}
	return id + "@" + version
}
