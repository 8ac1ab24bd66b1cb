// Package installer implements the engine installer framework.
//
// Every engine satisfies the Engine interface. The Orchestrator drives an
// engine through the install state machine
//
//	ResolvingVersion → CheckingUpToDate → Downloading → Extracting →
//	Installing → Testing → Committing → CleaningUp → Done
//
// and the symmetric uninstall. Engines never touch the installation state
// directly: they register entry points on a Workspace, and the orchestrator
// commits the Workspace's entries only after the engine's smoke test passes.
//
// Entry points of a "latest" slot keep their natural names. Entry points of
// a pinned slot carry an "@<version>" suffix, so any number of pinned
// versions can coexist with the latest install of the same engine.
package installer
