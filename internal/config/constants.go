package config

import "time"

// Lua schema field names and globals
const (
	luaGlobalESVM      = "esvm"
	luaFieldEngines    = "engines"
	luaFieldDownload   = "download"
	luaFieldRetries    = "retries"
	luaFieldTimeout    = "timeout"
	luaFieldGitHubToken= "github_token"
)

// Limits applied to configuration files.
const (
	// MaxConfigSize is the largest config.lua accepted.
	MaxConfigSize = 1 << 20
	// MaxEngineCount bounds the engines list.
	MaxEngineCount = 64
	// MaxRetries bounds download.retries.
	MaxRetries = 10
	// ParseTimeout bounds the execution of a config file.
	ParseTimeout = 5 * time.Second

	luaCallStackSize = 256
	luaRegistrySize  = 8 * 1024
)

// Environment variables consulted by esvm.
const (
	EnvHome        = "ESVM_HOME"
	EnvGitHubToken = "GITHUB_TOKEN"
)
