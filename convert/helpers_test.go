package convert

import (
	"bytes"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"bcbook/common"
	"bcbook/config"
	"bcbook/state"
	"bcbook/tagger"
)

const testInfoTemplate = "{author} wrote {title} in {numpages} pages"

// setupTestEnv creates a test environment with proper context and logger
func setupTestEnv(t *testing.T) (context.Context, *state.LocalEnv) {
	logger := zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1)))
	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	ctx := state.ContextWithEnv(context.Background())
	env := state.EnvFromContext(ctx)
	env.Log = logger
	env.Cfg = cfg
	env.Tagger = &tagger.Recorder{}
	return ctx, env
}

func testLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1)))
}

// setupTemplates creates data templates of requested capacities and info
// template, points configuration to them.
func setupTemplates(t *testing.T, env *state.LocalEnv, capacities ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, c := range capacities {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write([]byte("template " + c)); err != nil {
			t.Fatalf("gzip: %v", err)
		}
		if err := zw.Close(); err != nil {
			t.Fatalf("gzip: %v", err)
		}
		if err := os.WriteFile(filepath.Join(dir, "dat template "+c+".dat"), buf.Bytes(), 0644); err != nil {
			t.Fatalf("write template: %v", err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "info template"), []byte(testInfoTemplate), 0644); err != nil {
		t.Fatalf("write info template: %v", err)
	}
	env.Cfg.Templates.Directory = dir
	return dir
}

// writeSource stores source text in a temporary file.
func writeSource(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "source.txt")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	return path
}

// repeatLines produces text wrapping into exactly n lines of any format.
func repeatLines(n int) string {
	return strings.Repeat("w\n", n)
}

func testRequest(t *testing.T, src string, format common.OutputFmt) Request {
	return Request{
		Source: src,
		Dest:   t.TempDir(),
		Format: format,
		Author: "Me",
		Title:  "Tale",
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}
