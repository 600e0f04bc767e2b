package main

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiDim    = "\x1b[2m"
)

// colorizeStageStatus wraps a stage status string in its ANSI color: done
// green, ready yellow, in-progress red, locked dimmed.
func colorizeStageStatus(status string, colorize bool) string {
	if !colorize {
		return status
	}
	switch status {
	case "done":
		return ansiGreen + status + ansiReset
	case "ready":
		return ansiYellow + status + ansiReset
	case "in-progress":
		return ansiRed + status + ansiReset
	case "locked":
		return ansiDim + status + ansiReset
	}
	return status
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
