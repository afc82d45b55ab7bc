// Package catalog discovers pre-built big book data templates and selects the
// smallest one able to hold requested number of pages.
package catalog

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"sort"
	"strconv"

	"github.com/h2non/filetype"
	"github.com/maruel/natural"
	"go.uber.org/zap"

	"bcbook/book"
	"bcbook/utils/debug"
)

// DefaultPattern matches data template file names, capacity in pages is
// captured by "size" group.
const DefaultPattern = `^dat template (?P<size>\d+)\.dat$`

const sizeGroup = "size"

// Entry is a single template file and number of pages it could hold.
type Entry struct {
	Capacity int
	Path     string
}

// Catalog is a set of templates sorted by capacity, capacities are unique.
type Catalog struct {
	dir     string
	entries []Entry
	ignored []string
}

// Load reads template directory once and builds catalog from file names
// matching pattern.
func Load(dir string, pattern *regexp.Regexp, log *zap.Logger) (*Catalog, error) {
	idx := pattern.SubexpIndex(sizeGroup)
	if idx < 0 {
		return nil, fmt.Errorf("template name pattern %q has no %q group", pattern, sizeGroup)
	}

	des, err := os.ReadDir(dir)
	if err != nil {
		return nil, book.IOError(book.NoBook, fmt.Errorf("unable to read template directory: %w", err))
	}

	c := &Catalog{dir: dir}
	seen := make(map[int]string)
	for _, de := range des {
		if de.IsDir() {
			continue
		}
		m := pattern.FindStringSubmatch(de.Name())
		if m == nil {
			c.ignored = append(c.ignored, de.Name())
			continue
		}
		capacity, err := strconv.Atoi(m[idx])
		if err != nil || capacity < 1 {
			log.Warn("Ignoring template with unusable capacity", zap.String("file", de.Name()))
			c.ignored = append(c.ignored, de.Name())
			continue
		}
		if other, exists := seen[capacity]; exists {
			return nil, fmt.Errorf("templates %q and %q have the same capacity %d", other, de.Name(), capacity)
		}
		seen[capacity] = de.Name()
		c.entries = append(c.entries, Entry{Capacity: capacity, Path: filepath.Join(dir, de.Name())})
	}
	if len(c.entries) == 0 {
		return nil, &book.Error{Kind: book.ErrTemplateUnavailable, Book: book.NoBook,
			Err: fmt.Errorf("no templates found in %q", dir)}
	}

	slices.SortFunc(c.entries, func(a, b Entry) int { return cmp.Compare(a.Capacity, b.Capacity) })
	sort.Sort(natural.StringSlice(c.ignored))

	for _, e := range c.entries {
		if ok, err := Sniff(e); err != nil {
			return nil, book.IOError(book.NoBook, err)
		} else if !ok {
			log.Warn("Template does not look like compressed NBT data", zap.String("file", e.Path))
		}
	}
	log.Debug("Templates loaded", zap.String("dir", dir), zap.Ints("capacities", c.Capacities()), zap.Int("ignored", len(c.ignored)))
	return c, nil
}

// Select returns template with the smallest capacity which is not less than
// requested number of pages.
func (c *Catalog) Select(pages int) (Entry, error) {
	i, _ := slices.BinarySearchFunc(c.entries, pages, func(e Entry, target int) int {
		return cmp.Compare(e.Capacity, target)
	})
	if i == len(c.entries) {
		return Entry{}, &book.Error{Kind: book.ErrTemplateUnavailable, Book: book.NoBook, Pages: pages, Capacity: c.Largest()}
	}
	return c.entries[i], nil
}

// Dir returns template directory catalog was loaded from.
func (c *Catalog) Dir() string {
	return c.dir
}

func (c *Catalog) Capacities() []int {
	caps := make([]int, 0, len(c.entries))
	for _, e := range c.entries {
		caps = append(caps, e.Capacity)
	}
	return caps
}

// Largest returns capacity of the biggest available template.
func (c *Catalog) Largest() int {
	if len(c.entries) == 0 {
		return 0
	}
	return c.entries[len(c.entries)-1].Capacity
}

// String returns a readable dump of the catalog for debugging.
func (c *Catalog) String() string {
	if c == nil {
		return "<nil Catalog>"
	}
	tw := debug.NewTreeWriter()
	tw.Line(0, "Catalog dir[%q] templates[%d]", c.dir, len(c.entries))
	for _, e := range c.entries {
		tw.Line(1, "Template capacity[%d] file[%q]", e.Capacity, filepath.Base(e.Path))
	}
	if len(c.ignored) > 0 {
		tw.Line(0, "Ignored files: %d", len(c.ignored))
		for _, name := range c.ignored {
			tw.Line(1, "%q", name)
		}
	}
	return tw.String()
}

// Sniff reports whether template header looks like gzip compressed data, NBT
// files are normally stored this way.
func Sniff(e Entry) (bool, error) {
	f, err := os.Open(e.Path)
	if err != nil {
		return false, fmt.Errorf("unable to open template: %w", err)
	}
	defer f.Close()

	// filetype needs at most 262 bytes to decide
	head := make([]byte, 262)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("unable to read template: %w", err)
	}
	return filetype.Is(head[:n], "gz"), nil
}

// ReadInfoTemplate reads text of the info file template.
func ReadInfoTemplate(dir, name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return "", book.IOError(book.NoBook, fmt.Errorf("unable to read info template: %w", err))
	}
	return string(data), nil
}
