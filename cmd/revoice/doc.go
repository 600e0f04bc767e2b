// Package main hosts the revoice CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into HTTP
// calls against the daemon's operator API, plus configuration scaffolding and
// a foreground daemon runner. It centralizes configuration resolution and API
// address discovery so subcommands can focus on presentation.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
