// Package config loads esvm's optional Lua configuration and resolves the
// directories esvm works in.
//
// The configuration lives at <home>/config.lua and assigns a global esvm
// table:
//
//	esvm = {
//	  engines = { "quickjs", "v8", platform.is_linux and "libjs" or nil },
//	  download = { retries = 3, timeout = 300 },
//	  github_token = "…",
//	}
//
// engines is the selection used when no state file exists yet. download
// tunes the archive downloader (timeout is in seconds). github_token raises
// the GitHub API rate limit; the GITHUB_TOKEN environment variable takes
// precedence over it.
//
// The file runs in a restricted gopher-lua VM: only the base, string, table
// and math libraries are loaded, code loading functions are removed, and
// execution is bounded by ParseTimeout. The read-only platform table from
// the platform package is injected before the file runs, so selections can
// depend on the host:
//
//	esvm = {
//	  engines = { "v8", platform.when(platform.is_macos, "jsshell") },
//	}
//
// # Paths
//
// ResolvePaths picks the esvm home from an explicit flag value, then
// ESVM_HOME, then ~/.esvm, and derives every other location from it.
package config
