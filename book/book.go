// Package book defines paginated book structure and produces it from plain
// text: word wrapping, splitting lines into pages and pages into volumes.
package book

import (
	"strings"
	"unicode/utf8"

	"bcbook/utils/debug"
)

// Line is a single wrapped line of text.
type Line string

// Len returns length of the line in characters.
func (l Line) Len() int {
	return utf8.RuneCountInString(string(l))
}

// Page is an ordered group of lines.
type Page []Line

// Text returns page lines joined by line breaks.
func (p Page) Text() string {
	var b strings.Builder
	for i, l := range p {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(string(l))
	}
	return b.String()
}

// Len returns length of the page text in characters.
func (p Page) Len() int {
	n := 0
	for i, l := range p {
		if i > 0 {
			n++
		}
		n += l.Len()
	}
	return n
}

// Meta is information supplied by the user for the whole volume set.
type Meta struct {
	Author string
	Title  string
	// Signed only matters for big books, signed books are not editable in game.
	Signed bool
}

// Book is a unit persisted as one artifact (or artifact pair).
type Book struct {
	Index  int
	Author string
	Title  string
	Signed bool
	Pages  []Page
}

func (b *Book) PageCount() int {
	return len(b.Pages)
}

func (b *Book) LineCount() int {
	n := 0
	for _, p := range b.Pages {
		n += len(p)
	}
	return n
}

// Lines returns all book lines in order.
func (b *Book) Lines() []Line {
	lines := make([]Line, 0, b.LineCount())
	for _, p := range b.Pages {
		lines = append(lines, p...)
	}
	return lines
}

// VolumeSet is one or more books produced from a single text.
type VolumeSet struct {
	Format Format
	Books  []Book
}

// Lines returns all lines of all books in order.
func (vs *VolumeSet) Lines() []Line {
	var lines []Line
	for i := range vs.Books {
		lines = append(lines, vs.Books[i].Lines()...)
	}
	return lines
}

// PageCount returns total number of pages in all books.
func (vs *VolumeSet) PageCount() int {
	n := 0
	for i := range vs.Books {
		n += vs.Books[i].PageCount()
	}
	return n
}

// String returns a readable tree of the volume set. It exists solely for
// debugging.
func (vs *VolumeSet) String() string {
	if vs == nil {
		return "<nil VolumeSet>"
	}
	tw := debug.NewTreeWriter()
	tw.Line(0, "VolumeSet format[%s] books[%d] pages[%d]", vs.Format.Name, len(vs.Books), vs.PageCount())
	for _, b := range vs.Books {
		tw.Line(1, "Book[%d] author[%q] title[%q] signed[%t] pages[%d]", b.Index, b.Author, b.Title, b.Signed, b.PageCount())
		for i, p := range b.Pages {
			tw.Line(2, "Page[%d] lines[%d] length[%d]", i, len(p), p.Len())
			for j, l := range p {
				tw.TextBlock(3, debug.Index(j), string(l))
			}
		}
	}
	return tw.String()
}
