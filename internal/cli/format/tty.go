// Package format decides how CLI output is rendered.
package format

import (
	"os"

	"golang.org/x/term"
)

// IsTTY reports whether stdout should use terminal formatting: an
// interactive terminal with NO_COLOR unset and a TERM that supports
// formatting. Piped output and dumb terminals get plain text.
func IsTTY() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if t := os.Getenv("TERM"); t == "" || t == "dumb" {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// Colorize wraps s in the given ANSI escape code when IsTTY allows
// it, and returns s unchanged otherwise.
func Colorize(code, s string) string {
	if !IsTTY() {
		return s
	}
	return code + s + "\x1b[0m"
}
