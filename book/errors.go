package book

import (
	"errors"
	"fmt"
	"strings"
)

// Kinds of failures pipeline could report. Use errors.Is to check for them.
var (
	ErrCapacityExceeded    = errors.New("capacity exceeded")
	ErrTemplateUnavailable = errors.New("template unavailable")
	ErrExternalTool        = errors.New("external tool failure")
	ErrIO                  = errors.New("i/o failure")
)

// NoBook is used as Error.Book value when failure is not related to a
// particular book of the volume set.
const NoBook = -1

// Error carries enough context to diagnose failure without looking at
// partially written artifacts.
type Error struct {
	Kind     error  // one of Err* values above
	Book     int    // book index in the volume set or NoBook
	TagPath  string // failing tag write, if any
	Pages    int    // requested number of pages, if relevant
	Capacity int    // available capacity, if relevant
	Err      error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Book != NoBook {
		fmt.Fprintf(&b, "book %d: ", e.Book)
	}
	b.WriteString(e.Kind.Error())
	switch {
	case e.TagPath != "":
		fmt.Fprintf(&b, " (tag %q)", e.TagPath)
	case e.Pages > 0 && e.Capacity > 0:
		fmt.Fprintf(&b, " (%d pages requested, capacity %d)", e.Pages, e.Capacity)
	case e.Pages > 0:
		fmt.Fprintf(&b, " (%d pages requested)", e.Pages)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap makes both the kind and the cause visible to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// IOError wraps err as ErrIO failure for book index.
func IOError(index int, err error) error {
	return &Error{Kind: ErrIO, Book: index, Err: err}
}
