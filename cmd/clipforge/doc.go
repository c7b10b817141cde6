// Package main hosts the ClipForge CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into HTTP
// calls against the daemon's control API, queue maintenance operations,
// one-shot foreground processing, log tailing, and configuration
// scaffolding. Configuration resolution and daemon discovery live in one
// place so subcommands only deal with user experience.
//
// New behavior belongs in the internal packages first; commands here stay
// thin wrappers that parse flags, pick the daemon or direct-store path, and
// render results.
package main
