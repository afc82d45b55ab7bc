package bigbook

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"bcbook/book"
	"bcbook/catalog"
	"bcbook/tagger"
)

const infoTemplate = "title={title}\nauthor={author}\npages={numpages}\nliteral={{x}}\n"

func setupCatalog(t *testing.T, capacities ...string) *catalog.Catalog {
	t.Helper()
	dir := t.TempDir()
	for _, c := range capacities {
		var buf bytes.Buffer
		w := gzip.NewWriter(&buf)
		w.Write([]byte("template " + c))
		w.Close()
		if err := os.WriteFile(filepath.Join(dir, "dat template "+c+".dat"), buf.Bytes(), 0644); err != nil {
			t.Fatalf("Failed to write template: %v", err)
		}
	}
	cat, err := catalog.Load(dir, regexp.MustCompile(catalog.DefaultPattern), zap.NewNop())
	if err != nil {
		t.Fatalf("catalog.Load() error = %v", err)
	}
	return cat
}

func testBook(signed bool) *book.Book {
	return &book.Book{
		Index:  0,
		Author: "Me",
		Title:  "Tale",
		Signed: signed,
		Pages: []book.Page{
			{"first line", "", "third line"},
			{"", "second page"},
		},
	}
}

func TestWrites_Unsigned(t *testing.T) {
	got := Writes(testBook(false))
	want := []tagger.Write{
		{Path: "author", Value: "Me"},
		{Path: "display/Name", Value: "Tale"},
		{Path: "signed", Value: "0"},
		{Path: "pagesTotal", Value: "2"},
		{Path: "pages/page0/0", Value: "first line"},
		{Path: "pages/page0/2", Value: "third line"},
		{Path: "pages/page1/1", Value: "second page"},
	}
	if !slices.Equal(got, want) {
		t.Errorf("Writes() = %v, want %v", got, want)
	}
}

func TestWrites_SignedHasNoSignedTag(t *testing.T) {
	for _, w := range Writes(testBook(true)) {
		if w.Path == "signed" {
			t.Fatalf("signed book must not write signed tag, got %v", w)
		}
	}
}

func TestWrites_EmptyBook(t *testing.T) {
	b := &book.Book{Author: "a", Title: "t", Signed: true, Pages: []book.Page{{}}}
	want := []tagger.Write{
		{Path: "author", Value: "a"},
		{Path: "display/Name", Value: "t"},
		{Path: "pagesTotal", Value: "1"},
	}
	if got := Writes(b); !slices.Equal(got, want) {
		t.Errorf("Writes() = %v, want %v", got, want)
	}
}

func TestRenderInfo(t *testing.T) {
	got := RenderInfo(infoTemplate, testBook(true))
	want := "title=Tale\nauthor=Me\npages=2\nliteral={x}\n"
	if got != want {
		t.Errorf("RenderInfo() = %q, want %q", got, want)
	}
}

func TestEncode(t *testing.T) {
	cat := setupCatalog(t, "2", "10")
	rec := &tagger.Recorder{}
	enc := New(cat, rec, infoTemplate, zaptest.NewLogger(t))

	out := t.TempDir()
	infoPath, dataPath := filepath.Join(out, "Me, Tale"), filepath.Join(out, "Me, Tale.dat")
	b := testBook(false)
	if err := enc.Encode(context.Background(), b, infoPath, dataPath); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	// page count equal to capacity selects that template
	tmpl, _ := os.ReadFile(filepath.Join(cat.Dir(), "dat template 2.dat"))
	data, err := os.ReadFile(dataPath)
	if err != nil {
		t.Fatalf("read data file: %v", err)
	}
	if !bytes.Equal(data, tmpl) {
		t.Error("data file is not a byte copy of the 2 page template")
	}

	info, err := os.ReadFile(infoPath)
	if err != nil {
		t.Fatalf("read info file: %v", err)
	}
	if string(info) != RenderInfo(infoTemplate, b) {
		t.Errorf("info file = %q", info)
	}

	if !slices.Equal(rec.Writes(), Writes(b)) {
		t.Errorf("recorded writes = %v, want %v", rec.Writes(), Writes(b))
	}
	for _, c := range rec.Calls {
		if c.Artifact != dataPath {
			t.Fatalf("write addressed to %q, want %q", c.Artifact, dataPath)
		}
	}
}

func TestEncode_TemplateUnavailable(t *testing.T) {
	cat := setupCatalog(t, "1")
	rec := &tagger.Recorder{}
	enc := New(cat, rec, infoTemplate, zap.NewNop())

	b := testBook(true)
	b.Index = 3
	out := t.TempDir()
	err := enc.Encode(context.Background(), b, filepath.Join(out, "i"), filepath.Join(out, "d"))
	if !errors.Is(err, book.ErrTemplateUnavailable) {
		t.Fatalf("Expected ErrTemplateUnavailable, got %v", err)
	}
	var be *book.Error
	if !errors.As(err, &be) || be.Book != 3 || be.Pages != 2 {
		t.Errorf("Expected book 3 and 2 pages in error, got %+v", be)
	}
	if len(rec.Calls) != 0 {
		t.Errorf("Expected no writes, got %d", len(rec.Calls))
	}
	entries, _ := os.ReadDir(out)
	if len(entries) != 0 {
		t.Errorf("Expected no artifacts, got %d", len(entries))
	}
}

func TestEncode_ToolFailureStopsWrites(t *testing.T) {
	cat := setupCatalog(t, "10")
	rec := &tagger.Recorder{FailAt: 5, Err: errors.New("tool crashed")}
	enc := New(cat, rec, infoTemplate, zap.NewNop())

	out := t.TempDir()
	infoPath, dataPath := filepath.Join(out, "info"), filepath.Join(out, "data.dat")
	err := enc.Encode(context.Background(), testBook(false), infoPath, dataPath)
	if !errors.Is(err, book.ErrExternalTool) {
		t.Fatalf("Expected ErrExternalTool, got %v", err)
	}
	var be *book.Error
	if !errors.As(err, &be) || be.TagPath != "pages/page0/0" {
		t.Errorf("Expected failing tag path in error, got %+v", be)
	}
	if !strings.Contains(err.Error(), "tool crashed") {
		t.Errorf("Expected cause in message, got %v", err)
	}
	if len(rec.Calls) != 5 {
		t.Errorf("Expected writes to stop at failure, got %d calls", len(rec.Calls))
	}
	// partial artifacts are left as is by default
	if _, err := os.Stat(dataPath); err != nil {
		t.Errorf("Expected partial data file to stay: %v", err)
	}
	if _, err := os.Stat(infoPath); err != nil {
		t.Errorf("Expected info file to stay: %v", err)
	}
}

func TestEncode_RemovePartial(t *testing.T) {
	cat := setupCatalog(t, "10")
	rec := &tagger.Recorder{FailAt: 1}
	enc := New(cat, rec, infoTemplate, zap.NewNop(), WithRemovePartial(true))

	out := t.TempDir()
	infoPath, dataPath := filepath.Join(out, "info"), filepath.Join(out, "data.dat")
	if err := enc.Encode(context.Background(), testBook(true), infoPath, dataPath); err == nil {
		t.Fatal("Expected error")
	}
	for _, p := range []string{infoPath, dataPath} {
		if _, err := os.Stat(p); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("Expected %s to be removed, got %v", filepath.Base(p), err)
		}
	}
}

func TestEncode_Cancelled(t *testing.T) {
	cat := setupCatalog(t, "10")
	rec := &tagger.Recorder{}
	enc := New(cat, rec, infoTemplate, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := t.TempDir()
	err := enc.Encode(ctx, testBook(true), filepath.Join(out, "i"), filepath.Join(out, "d"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if len(rec.Calls) != 0 {
		t.Errorf("Expected no writes after cancellation, got %d", len(rec.Calls))
	}
}

func TestEncode_MissingOutputDir(t *testing.T) {
	cat := setupCatalog(t, "10")
	enc := New(cat, &tagger.Recorder{}, infoTemplate, zap.NewNop())

	out := filepath.Join(t.TempDir(), "absent")
	err := enc.Encode(context.Background(), testBook(true), filepath.Join(out, "i"), filepath.Join(out, "d"))
	if !errors.Is(err, book.ErrIO) {
		t.Errorf("Expected ErrIO, got %v", err)
	}
}

func TestEncode_SizeCheckDoesNotFail(t *testing.T) {
	cat := setupCatalog(t, "10")
	enc := New(cat, &tagger.Recorder{}, infoTemplate, zaptest.NewLogger(t), WithMaxDataSize(1))

	out := t.TempDir()
	if err := enc.Encode(context.Background(), testBook(true), filepath.Join(out, "i"), filepath.Join(out, "d")); err != nil {
		t.Errorf("oversized data file must only be reported, got %v", err)
	}
}
