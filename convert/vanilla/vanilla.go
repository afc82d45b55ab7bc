// Package vanilla serializes books into flat text understood by BiblioCraft
// as vanilla (book and quill) books.
package vanilla

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"bcbook/book"
)

const (
	publicMarker = "public"
	pageMarker   = "#pgx"
)

// Encode returns book text: title, author and public marker lines followed by
// every page introduced by zero based page marker.
func Encode(b *book.Book) string {
	var sb strings.Builder
	sb.WriteString(b.Title)
	sb.WriteByte('\n')
	sb.WriteString(b.Author)
	sb.WriteByte('\n')
	sb.WriteString(publicMarker)
	for i, p := range b.Pages {
		sb.WriteByte('\n')
		sb.WriteString(pageMarker)
		sb.WriteString(strconv.Itoa(i))
		for _, l := range p {
			sb.WriteByte('\n')
			sb.WriteString(string(l))
		}
	}
	return sb.String()
}

// Write encodes book and stores it in the file.
func Write(b *book.Book, path string) error {
	if err := os.WriteFile(path, []byte(Encode(b)), 0644); err != nil {
		return book.IOError(b.Index, fmt.Errorf("unable to write book: %w", err))
	}
	return nil
}

// Oversized returns indexes of pages with more characters than format
// allows. Wrapping keeps pages within limits unless a single word is longer
// than a line.
func Oversized(b *book.Book, f book.Format) []int {
	if f.MaxPageLength == 0 {
		return nil
	}
	var res []int
	for i, p := range b.Pages {
		if p.Len() > f.MaxPageLength {
			res = append(res, i)
		}
	}
	return res
}
