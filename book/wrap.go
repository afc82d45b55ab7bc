package book

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Wrap splits text into paragraphs and word-wraps each of them to width
// characters. Every paragraph contributes at least one line, so blank lines
// of the source survive.
func Wrap(text string, width int) []Line {
	if width < 1 {
		// this should never happen
		panic("wrap width must be positive")
	}

	// count composed characters, not code points
	text = norm.NFC.String(text)

	var lines []Line
	for _, p := range Paragraphs(text) {
		lines = append(lines, WrapParagraph(p, width)...)
	}
	return lines
}

// Paragraphs splits text on line boundaries. Trailing line break does not
// produce an empty paragraph, empty text has no paragraphs.
func Paragraphs(text string) []string {
	var (
		paragraphs []string
		start      int
	)
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if !isLineBoundary(r) {
			i += size
			continue
		}
		paragraphs = append(paragraphs, text[start:i])
		i += size
		if r == '\r' && i < len(text) && text[i] == '\n' {
			i++
		}
		start = i
	}
	if start < len(text) {
		paragraphs = append(paragraphs, text[start:])
	}
	return paragraphs
}

func isLineBoundary(r rune) bool {
	switch r {
	case '\n', '\r', '\v', '\f', '\x1c', '\x1d', '\x1e', '\u0085', '\u2028', '\u2029':
		return true
	}
	return false
}

// WrapParagraph greedily places words on lines no longer than width. Only
// ASCII whitespace separates words, so non-breaking spaces stay inside them.
// Tabs are expanded, whitespace runs between words on the same line are kept
// and whitespace at line breaks is dropped. A word longer than width is never
// split and occupies a line of its own.
func WrapParagraph(paragraph string, width int) []Line {
	chunks := splitChunks(paragraph)

	var lines []Line
	for len(chunks) > 0 {
		if isBlank(chunks[0]) && len(lines) > 0 {
			chunks = chunks[1:]
			if len(chunks) == 0 {
				break
			}
		}

		var (
			cur    []string
			curLen int
		)
		for len(chunks) > 0 {
			n := utf8.RuneCountInString(chunks[0])
			if curLen+n > width {
				break
			}
			cur = append(cur, chunks[0])
			curLen += n
			chunks = chunks[1:]
		}
		if len(cur) == 0 && len(chunks) > 0 {
			// does not fit on an empty line either
			cur = append(cur, chunks[0])
			chunks = chunks[1:]
		}
		if len(cur) > 0 && isBlank(cur[len(cur)-1]) {
			cur = cur[:len(cur)-1]
		}
		if len(cur) > 0 {
			lines = append(lines, Line(strings.Join(cur, "")))
		}
	}
	if len(lines) == 0 {
		return []Line{""}
	}
	return lines
}

const tabSize = 8

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

func isBlank(chunk string) bool {
	return len(chunk) > 0 && chunk[0] == ' '
}

// splitChunks expands tabs, turns every whitespace character into a space
// and splits paragraph into alternating runs of words and spaces.
func splitChunks(paragraph string) []string {
	var (
		chunks []string
		cur    strings.Builder
		col    int
		blank  bool
	)
	flush := func() {
		if cur.Len() > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
	}
	for _, r := range paragraph {
		space := isSpace(r)
		if space != blank {
			flush()
			blank = space
		}
		switch {
		case r == '\t':
			n := tabSize - col%tabSize
			cur.WriteString(strings.Repeat(" ", n))
			col += n
		case space:
			cur.WriteByte(' ')
			col++
		default:
			cur.WriteRune(r)
			col++
		}
	}
	flush()
	return chunks
}
