// Package archive gives access to source texts kept in zip archives.
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"golang.org/x/text/encoding"
)

// MaxFileSize limits size of a text extracted from archive.
const MaxFileSize = 64 << 20

var ErrNotFound = errors.New("file not found in archive")

// WalkFunc is called for every file in archive visited by Walk, name is the
// file name in archive converted to UTF-8. If an error is returned,
// processing stops.
type WalkFunc func(name string, file *zip.File) error

// Walk visits all files in the archive with names starting with prefix.
// Archives with absolute names or names containing path traversal are
// rejected. Zip does not define file name encoding, cp is used to decode
// names not marked as UTF-8 when specified.
func Walk(archive, prefix string, cp encoding.Encoding, walkFn WalkFunc) error {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, f := range r.File {
		name := f.Name
		if cp != nil && f.NonUTF8 {
			if n, err := cp.NewDecoder().String(name); err == nil {
				name = n
			}
		}
		if !isSafePath(name) {
			return fmt.Errorf("zip entry %q: unsafe path (absolute or contains path traversal)", name)
		}
		if f.FileInfo().IsDir() || !strings.HasPrefix(name, prefix) {
			continue
		}
		if err := walkFn(name, f); err != nil {
			return err
		}
	}
	return nil
}

// ReadFile returns content of the file stored in archive under name (slash
// separated).
func ReadFile(archive, name string, cp encoding.Encoding) ([]byte, error) {
	var (
		data  []byte
		found = errors.New("found")
	)
	err := Walk(archive, name, cp, func(n string, f *zip.File) error {
		if n != name {
			return nil
		}
		if f.UncompressedSize64 > MaxFileSize {
			return fmt.Errorf("%s is too large (%d bytes)", name, f.UncompressedSize64)
		}
		rc, err := f.Open()
		if err != nil {
			return err
		}
		defer rc.Close()
		if data, err = io.ReadAll(io.LimitReader(rc, MaxFileSize+1)); err != nil {
			return err
		}
		if len(data) > MaxFileSize {
			return fmt.Errorf("%s is too large", name)
		}
		return found
	})
	switch {
	case errors.Is(err, found):
		return data, nil
	case err != nil:
		return nil, err
	default:
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
}

// isSafePath returns false for absolute paths and paths containing ".."
// components.
func isSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, `\`) {
		return false
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
