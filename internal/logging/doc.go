// Package logging centralizes slog construction and the structured field
// conventions shared by the daemon, workflow manager, and gateway. Console
// output is for operators; JSON output is for log shipping.
package logging
