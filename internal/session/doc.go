// Package session holds the root aggregate for one dubbing workflow run and
// the in-memory store that owns it. State lives only for the lifetime of the
// session; a new upload replaces everything.
package session
