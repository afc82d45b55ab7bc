// Package bigbook produces BiblioCraft big book artifacts: info file and
// binary data file made from a pre-built template by a sequence of tag
// writes.
package bigbook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"bcbook/book"
	"bcbook/catalog"
	"bcbook/tagger"
)

// Tag paths inside data file.
const (
	tagAuthor     = "author"
	tagName       = "display/Name"
	tagSigned     = "signed"
	tagPagesTotal = "pagesTotal"
)

// Encoder writes big books. It is not safe to encode into the same artifacts
// concurrently.
type Encoder struct {
	cat           *catalog.Catalog
	tagger        tagger.Tagger
	info          string
	maxDataSize   int64
	removePartial bool
	log           *zap.Logger
}

// Option configures Encoder.
type Option func(*Encoder)

// WithMaxDataSize sets data file size after which warning is issued, 0 disables
// the check.
func WithMaxDataSize(size int64) Option {
	return func(e *Encoder) {
		e.maxDataSize = size
	}
}

// WithRemovePartial requests removal of artifacts of a book which failed to
// encode.
func WithRemovePartial(remove bool) Option {
	return func(e *Encoder) {
		e.removePartial = remove
	}
}

// New creates encoder using catalog to select data templates, tagger to
// apply writes and info as the text of info file template.
func New(cat *catalog.Catalog, tg tagger.Tagger, info string, log *zap.Logger, opts ...Option) *Encoder {
	e := &Encoder{
		cat:    cat,
		tagger: tg,
		info:   info,
		log:    log,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Encode produces info and data artifacts for the book. Any failure aborts
// remaining writes, already written artifacts are left as is unless removal
// of partial results was requested.
func (e *Encoder) Encode(ctx context.Context, b *book.Book, infoPath, dataPath string) (err error) {
	log := e.log.With(zap.Int("book", b.Index))

	tmpl, err := e.cat.Select(b.PageCount())
	if err != nil {
		var be *book.Error
		if errors.As(err, &be) {
			be.Book = b.Index
		}
		return err
	}

	if e.removePartial {
		defer func() {
			if err != nil {
				log.Warn("Removing partially written book", zap.String("info", infoPath), zap.String("data", dataPath))
				err = multierr.Append(err, removeArtifacts(infoPath, dataPath))
			}
		}()
	}

	log.Info("Copying data template", zap.String("template", tmpl.Path), zap.Int("capacity", tmpl.Capacity), zap.String("to", dataPath))
	if err := copyTemplate(tmpl.Path, dataPath); err != nil {
		return book.IOError(b.Index, fmt.Errorf("unable to copy data template: %w", err))
	}

	log.Info("Creating info file", zap.String("file", infoPath))
	if err := os.WriteFile(infoPath, []byte(RenderInfo(e.info, b)), 0644); err != nil {
		return book.IOError(b.Index, fmt.Errorf("unable to write info file: %w", err))
	}

	writes := Writes(b)
	log.Info("Writing data file", zap.String("file", dataPath), zap.Int("writes", len(writes)))
	for _, w := range writes {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("book %d: %w", b.Index, err)
		}
		out, err := e.tagger.SetTag(ctx, dataPath, w)
		if err != nil {
			return &book.Error{Kind: book.ErrExternalTool, Book: b.Index, TagPath: w.Path, Err: err}
		}
		log.Debug("Tag set", zap.String("path", w.Path), zap.String("output", out))
	}

	e.checkSize(dataPath, log)
	return nil
}

func (e *Encoder) checkSize(path string, log *zap.Logger) {
	if e.maxDataSize <= 0 {
		return
	}
	fi, err := os.Stat(path)
	if err != nil {
		log.Warn("Unable to check data file size", zap.String("file", path), zap.Error(err))
		return
	}
	if fi.Size() > e.maxDataSize {
		log.Warn("Data file is larger than the game accepts", zap.String("file", path),
			zap.Int64("size", fi.Size()), zap.Int64("limit", e.maxDataSize))
	}
}

// Writes returns ordered tag writes for the book. Signed flag is only written
// for unsigned books and empty lines are skipped: templates already have
// these defaults and data file size is limited.
func Writes(b *book.Book) []tagger.Write {
	ws := make([]tagger.Write, 0, 4+b.LineCount())
	ws = append(ws,
		tagger.Write{Path: tagAuthor, Value: b.Author},
		tagger.Write{Path: tagName, Value: b.Title},
	)
	if !b.Signed {
		ws = append(ws, tagger.Write{Path: tagSigned, Value: "0"})
	}
	ws = append(ws, tagger.Write{Path: tagPagesTotal, Value: strconv.Itoa(b.PageCount())})
	for i, p := range b.Pages {
		for j, l := range p {
			if l == "" {
				continue
			}
			ws = append(ws, tagger.Write{Path: LinePath(i, j), Value: string(l)})
		}
	}
	return ws
}

// LinePath returns tag path of a line on a page.
func LinePath(page, line int) string {
	return "pages/page" + strconv.Itoa(page) + "/" + strconv.Itoa(line)
}

// RenderInfo substitutes {author}, {title} and {numpages} in info template,
// doubled braces produce literal ones.
func RenderInfo(tmpl string, b *book.Book) string {
	return strings.NewReplacer(
		"{{", "{",
		"}}", "}",
		"{author}", b.Author,
		"{title}", b.Title,
		"{numpages}", strconv.Itoa(b.PageCount()),
	).Replace(tmpl)
}

func copyTemplate(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		return multierr.Append(err, out.Close())
	}
	return out.Close()
}

func removeArtifacts(paths ...string) (err error) {
	for _, p := range paths {
		if er := os.Remove(p); er != nil && !errors.Is(er, os.ErrNotExist) {
			err = multierr.Append(err, er)
		}
	}
	return err
}
