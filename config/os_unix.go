//go:build !windows

package config

import (
	"os"
	"strings"

	"golang.org/x/term"
)

// CleanFileName removes characters not allowed in file name, leading dots
// are removed so names do not become hidden.
func CleanFileName(in string) string {
	out := strings.TrimLeft(dropRunes(in, func(sym rune) bool { return sym == 0 }), ".")
	if len(out) == 0 {
		return badFileName
	}
	return out
}

// EnableColorOutput checks if colorized output is possible.
func EnableColorOutput(stream *os.File) bool {
	return term.IsTerminal(int(stream.Fd()))
}
