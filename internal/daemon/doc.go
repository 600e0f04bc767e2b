// Package daemon runs the revoice service process: a single-instance lock
// and the HTTP operator API that drives the dubbing pipeline.
package daemon
