package book

import (
	"slices"
	"strconv"
)

// Paginate groups lines into pages and pages into books according to the
// format capacities. When the format does not allow multiple volumes and the
// text does not fit into a single book ErrCapacityExceeded is returned.
//
// Empty input produces a single book with one empty page.
func Paginate(lines []Line, f Format, meta Meta) (*VolumeSet, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	pages := splitPages(lines, f.LinesPerPage)
	if len(pages) > f.PagesPerBook && !f.MultiVolume {
		return nil, &Error{Kind: ErrCapacityExceeded, Book: NoBook, Pages: len(pages), Capacity: f.PagesPerBook}
	}

	count := ceilDiv(len(pages), f.PagesPerBook)
	vs := &VolumeSet{Format: f, Books: make([]Book, 0, count)}
	for i := range count {
		lo := i * f.PagesPerBook
		hi := min(lo+f.PagesPerBook, len(pages))

		title := meta.Title
		if count > 1 {
			title += strconv.Itoa(i)
		}
		vs.Books = append(vs.Books, Book{
			Index:  i,
			Author: meta.Author,
			Title:  title,
			Signed: meta.Signed,
			Pages:  pages[lo:hi],
		})
	}
	return vs, nil
}

func splitPages(lines []Line, size int) []Page {
	if len(lines) == 0 {
		return []Page{{}}
	}
	pages := make([]Page, 0, ceilDiv(len(lines), size))
	for lo := 0; lo < len(lines); lo += size {
		pages = append(pages, Page(slices.Clone(lines[lo:min(lo+size, len(lines))])))
	}
	return pages
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
