package book

import (
	"fmt"

	"go.uber.org/multierr"
)

// Format describes capacities of one of the supported book formats. Wrapper
// and paginator are driven by it, so both formats share one implementation.
type Format struct {
	Name string
	// LineWidth is the wrap width in characters.
	LineWidth    int
	LinesPerPage int
	PagesPerBook int
	// MaxPageLength limits number of characters on a page (including line
	// breaks), 0 means the format does not care.
	MaxPageLength int
	// MultiVolume allows splitting content which does not fit into a single
	// book into several books.
	MultiVolume bool
}

// Vanilla returns capacities of the vanilla (book and quill) format. Values
// must not change: the game refuses books which do not fit.
func Vanilla() Format {
	return Format{
		Name:          "vanilla",
		LineWidth:     19 - 1, // average line width minus one
		LinesPerPage:  13,
		PagesPerBook:  50,
		MaxPageLength: 256,
		MultiVolume:   false,
	}
}

// BigBook returns capacities of the BiblioCraft big book (tag-tree) format.
func BigBook() Format {
	return Format{
		Name:         "bigbook",
		LineWidth:    70 - 1, // max line width minus one
		LinesPerPage: 44,
		PagesPerBook: 256,
		MultiVolume:  true,
	}
}

// Validate checks that format could be used for pagination.
func (f Format) Validate() error {
	var err error
	if f.LineWidth < 1 {
		err = multierr.Append(err, fmt.Errorf("line width must be positive, got %d", f.LineWidth))
	}
	if f.LinesPerPage < 1 {
		err = multierr.Append(err, fmt.Errorf("lines per page must be positive, got %d", f.LinesPerPage))
	}
	if f.PagesPerBook < 1 {
		err = multierr.Append(err, fmt.Errorf("pages per book must be positive, got %d", f.PagesPerBook))
	}
	if f.MaxPageLength < 0 {
		err = multierr.Append(err, fmt.Errorf("max page length cannot be negative, got %d", f.MaxPageLength))
	}
	if err != nil {
		return fmt.Errorf("format %q: %w", f.Name, err)
	}
	return nil
}

// LinesPerBook returns how many lines fit into a single book.
func (f Format) LinesPerBook() int {
	return f.LinesPerPage * f.PagesPerBook
}
