package convert

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/term"
	"golang.org/x/text/encoding/ianaindex"

	"bcbook/book"
	"bcbook/catalog"
	"bcbook/common"
	"bcbook/config"
	"bcbook/convert/bigbook"
	"bcbook/convert/vanilla"
	"bcbook/state"
)

// Request is a single formatting job.
type Request struct {
	Source string
	Dest   string
	Format common.OutputFmt
	Author string
	Title  string
}

func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("convert")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input source has been specified")
	}
	if src, err = filepath.Abs(src); err != nil {
		return err
	}

	dst := cmd.Args().Get(1)
	if len(dst) == 0 {
		if dst, err = os.Getwd(); err != nil {
			return fmt.Errorf("unable to get working directory: %w", err)
		}
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Mailformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	format, err := common.ParseOutputFmt(cmd.String("to"))
	if err != nil {
		return fmt.Errorf("unknown output format requested: %w", err)
	}

	env.Overwrite, env.AssumeYes = cmd.Bool("overwrite"), cmd.Bool("yes")
	env.TextOnly, env.Unsigned = cmd.Bool("text-only"), cmd.Bool("unsigned")
	if env.Unsigned && format != common.OutputFmtBigbook {
		log.Warn("Unsigned books are only supported by big book format, ignoring")
	}

	if cp := cmd.String("encoding"); len(cp) > 0 {
		env.CodePage, err = ianaindex.IANA.Encoding(cp)
		if err != nil || env.CodePage == nil {
			log.Warn("Unknown character set specification. Ignoring...", zap.String("charset", cp), zap.Error(err))
			env.CodePage = nil
		} else {
			n, _ := ianaindex.IANA.Name(env.CodePage)
			log.Debug("Source text without BOM will be converted", zap.String("charset", n))
		}
	}

	if err := ensureOutputDir(dst, env, os.Stdin, os.Stdout, log); err != nil {
		return err
	}

	req := Request{
		Source: src,
		Dest:   dst,
		Format: format,
		Author: cmd.String("author"),
		Title:  cmd.String("title"),
	}

	log.Info("Processing starting", zap.String("source", src), zap.String("destination", dst), zap.Stringer("format", format))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	return process(ctx, req, log)
}

// ensureOutputDir checks that destination directory exists and offers to
// create it when it does not. Without terminal creation has to be requested
// explicitly.
func ensureOutputDir(dst string, env *state.LocalEnv, in *os.File, out io.Writer, log *zap.Logger) error {
	fi, err := os.Stat(dst)
	if err == nil {
		if !fi.IsDir() {
			return fmt.Errorf("output destination is not a directory: %s", dst)
		}
		return nil
	}
	if !os.IsNotExist(err) {
		return err
	}

	create := env.AssumeYes
	if !create && term.IsTerminal(int(in.Fd())) {
		create = confirm(in, out, fmt.Sprintf("Output directory %q does not exist, should I create it?", dst))
	}
	if !create {
		return fmt.Errorf("output directory does not exist: %s", dst)
	}
	if err := os.MkdirAll(dst, 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}
	log.Info("Output directory created", zap.String("dir", dst))
	return nil
}

// confirm asks y/n question, anything but clear yes is no.
func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s\n(y/n)> ", question)
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && len(answer) == 0 {
		return false
	}
	return slices.Contains([]string{"y", "yes", "yep", "ye"}, strings.ToLower(strings.TrimSpace(answer)))
}

// formatOf maps requested output to book format capacities.
func formatOf(format common.OutputFmt) book.Format {
	if format == common.OutputFmtBigbook {
		return book.BigBook()
	}
	return book.Vanilla()
}

// process handles the core conversion logic independently of CLI framework:
// reads and wraps source text, paginates it and writes artifacts of requested
// format. Books are written in order, first failure stops processing.
func process(ctx context.Context, req Request, log *zap.Logger) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	env := state.EnvFromContext(ctx)

	text, enc, err := readSource(req.Source, env.CodePage)
	if err != nil {
		return err
	}
	env.Rpt.Store("source", req.Source)
	log.Debug("Source loaded", zap.String("source", req.Source), zap.Stringer("bom", enc), zap.Int("size", len(text)))

	f := formatOf(req.Format)
	lines := book.Wrap(text, f.LineWidth)
	log.Debug("Text wrapped", zap.Int("width", f.LineWidth), zap.Int("lines", len(lines)))

	if env.TextOnly {
		return writeTextOnly(lines, req, env, log)
	}

	vs, err := book.Paginate(lines, f, book.Meta{Author: req.Author, Title: req.Title, Signed: !env.Unsigned})
	if err != nil {
		return err
	}
	log.Info("Text paginated", zap.Int("pages", vs.PageCount()), zap.Int("books", len(vs.Books)))
	log.Debug("Volume set", zap.Stringer("layout", vs))

	switch req.Format {
	case common.OutputFmtVanilla:
		return writeVanilla(ctx, vs, req, env, log)
	case common.OutputFmtBigbook:
		return writeBigBooks(ctx, vs, req, env, log)
	default:
		// this should never happen
		return fmt.Errorf("unsupported format requested: %s", req.Format)
	}
}

// writeTextOnly stores wrapped lines as plain text, convenient for preview or
// manual copy-paste in game.
func writeTextOnly(lines []book.Line, req Request, env *state.LocalEnv, log *zap.Logger) error {
	values := Values{Author: req.Author, Title: req.Title, Format: req.Format.String(), Volumes: 1}
	path := buildOutputPath(req.Dest, config.TextNameTemplateFieldName, env.Cfg.Document.TextNameTemplate, values, env)
	if err := prepareOutput(path, env, log); err != nil {
		return book.IOError(book.NoBook, err)
	}

	text := make([]string, len(lines))
	for i, l := range lines {
		text[i] = string(l)
	}
	if err := os.WriteFile(path, []byte(strings.Join(text, "\n")), 0644); err != nil {
		return book.IOError(book.NoBook, fmt.Errorf("unable to write text: %w", err))
	}
	env.Rpt.Store(filepath.Base(path), path)
	log.Info("Formatted text written (copy-paste into the game)", zap.String("file", path))
	return nil
}

func volumeValues(vs *book.VolumeSet, b *book.Book, req Request) Values {
	return Values{
		Author:  b.Author,
		Title:   b.Title,
		Format:  req.Format.String(),
		Volume:  b.Index,
		Volumes: len(vs.Books),
	}
}

func writeVanilla(ctx context.Context, vs *book.VolumeSet, req Request, env *state.LocalEnv, log *zap.Logger) error {
	for i := range vs.Books {
		if err := ctx.Err(); err != nil {
			return err
		}
		b := &vs.Books[i]

		if pages := vanilla.Oversized(b, vs.Format); len(pages) > 0 {
			log.Warn("Some pages are longer than the game allows", zap.Int("book", b.Index),
				zap.Ints("pages", pages), zap.Int("limit", vs.Format.MaxPageLength))
		}

		path := buildOutputPath(req.Dest, config.VanillaNameTemplateFieldName, env.Cfg.Document.VanillaNameTemplate, volumeValues(vs, b, req), env)
		if err := prepareOutput(path, env, log); err != nil {
			return book.IOError(b.Index, err)
		}
		if err := vanilla.Write(b, path); err != nil {
			return err
		}
		env.Rpt.Store(filepath.Base(path), path)
		log.Info("Vanilla book written", zap.Int("book", b.Index), zap.String("file", path), zap.Int("pages", b.PageCount()))
	}
	return nil
}

func writeBigBooks(ctx context.Context, vs *book.VolumeSet, req Request, env *state.LocalEnv, log *zap.Logger) error {
	tc := env.Cfg.Templates

	pattern, err := regexp.Compile(tc.NamePattern)
	if err != nil {
		return fmt.Errorf("bad data template name pattern: %w", err)
	}
	cat, err := catalog.Load(tc.Directory, pattern, log.Named("catalog"))
	if err != nil {
		return err
	}
	log.Debug("Data templates", zap.Stringer("catalog", cat))

	info, err := catalog.ReadInfoTemplate(cat.Dir(), tc.InfoFile)
	if err != nil {
		return err
	}

	tg, err := env.TagWriter()
	if err != nil {
		return err
	}

	enc := bigbook.New(cat, tg, info, log.Named("bigbook"),
		bigbook.WithMaxDataSize(env.Cfg.Tagger.MaxDataSize),
		bigbook.WithRemovePartial(env.Cfg.Document.RemovePartial),
	)

	for i := range vs.Books {
		if err := ctx.Err(); err != nil {
			return err
		}
		b := &vs.Books[i]
		values := volumeValues(vs, b, req)

		infoPath := buildOutputPath(req.Dest, config.InfoNameTemplateFieldName, env.Cfg.Document.InfoNameTemplate, values, env)
		dataPath := buildOutputPath(req.Dest, config.DataNameTemplateFieldName, env.Cfg.Document.DataNameTemplate, values, env)
		if infoPath == dataPath {
			return book.IOError(b.Index, fmt.Errorf("info and data files have the same name: %s", infoPath))
		}
		for _, p := range []string{infoPath, dataPath} {
			if err := prepareOutput(p, env, log); err != nil {
				return book.IOError(b.Index, err)
			}
		}

		err := enc.Encode(ctx, b, infoPath, dataPath)
		// partial results are useful for debugging
		env.Rpt.Store(filepath.Base(infoPath), infoPath)
		env.Rpt.Store(filepath.Base(dataPath), dataPath)
		if err != nil {
			return err
		}
		log.Info("Big book written", zap.Int("book", b.Index), zap.String("info", infoPath),
			zap.String("data", dataPath), zap.Int("pages", b.PageCount()))
	}
	return nil
}
