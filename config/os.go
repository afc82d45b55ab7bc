package config

import (
	"os"
	"strings"
)

const badFileName = "_bad_file_name_"

// dropRunes removes runes reported by bad from the name, never returns empty
// string.
func dropRunes(in string, bad func(rune) bool) string {
	out := strings.Map(func(sym rune) rune {
		if bad(sym) || strings.ContainsRune(string(os.PathSeparator)+string(os.PathListSeparator), sym) {
			return -1
		}
		return sym
	}, in)
	if len(out) == 0 {
		return badFileName
	}
	return out
}
