package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rupor-github/gencfg"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfiguration_NoFile(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() with empty path error = %v", err)
	}
	if cfg == nil {
		t.Fatal("LoadConfiguration() returned nil config")
	}

	if cfg.Version != 1 {
		t.Errorf("Default config version = %d, want 1", cfg.Version)
	}
	if cfg.Document.VanillaNameTemplate != "{{ .Author }}, {{ .Title }}" {
		t.Errorf("VanillaNameTemplate = %q, template must not be expanded", cfg.Document.VanillaNameTemplate)
	}
	if cfg.Document.RemovePartial {
		t.Error("RemovePartial should be off by default")
	}
	if cfg.Templates.InfoFile != "info template" {
		t.Errorf("InfoFile = %q, want %q", cfg.Templates.InfoFile, "info template")
	}
	if cfg.Tagger.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", cfg.Tagger.Timeout)
	}
	if cfg.Tagger.MaxDataSize != 32768 {
		t.Errorf("MaxDataSize = %d, want 32768", cfg.Tagger.MaxDataSize)
	}
	if cfg.Logging.FileLogger.Level != "none" {
		t.Errorf("File log level = %q, want none", cfg.Logging.FileLogger.Level)
	}
}

func TestLoadConfiguration_WithFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := writeConfig(t, `version: 1
document:
  data_name_template: "{{ .Title | lower }}.dat"
  file_name_transliterate: true
  remove_partial: true
templates:
  directory: "`+filepath.ToSlash(tmpDir)+`"
tagger:
  binary: /usr/local/bin/nbtutil
  timeout: 250ms
  max_data_size: 0
logging:
  console:
    level: debug
  file:
    level: debug
    destination: "`+filepath.ToSlash(filepath.Join(tmpDir, "test.log"))+`"
    mode: append
`)

	cfg, err := LoadConfiguration(path)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	if cfg.Document.DataNameTemplate != "{{ .Title | lower }}.dat" {
		t.Errorf("DataNameTemplate = %q", cfg.Document.DataNameTemplate)
	}
	// values absent from the file come from defaults
	if cfg.Document.InfoNameTemplate != "{{ .Author }}, {{ .Title }}" {
		t.Errorf("InfoNameTemplate = %q, want default", cfg.Document.InfoNameTemplate)
	}
	if !cfg.Document.FileNameTransliterate || !cfg.Document.RemovePartial {
		t.Error("Expected document switches to be on")
	}
	if cfg.Templates.Directory != filepath.Clean(tmpDir) {
		t.Errorf("Directory = %q, want %q", cfg.Templates.Directory, tmpDir)
	}
	if cfg.Templates.NamePattern == "" {
		t.Error("NamePattern should keep its default")
	}
	if cfg.Tagger.Binary != "/usr/local/bin/nbtutil" {
		t.Errorf("Binary = %q", cfg.Tagger.Binary)
	}
	if cfg.Tagger.Timeout != 250*time.Millisecond {
		t.Errorf("Timeout = %v, want 250ms", cfg.Tagger.Timeout)
	}
	if cfg.Tagger.MaxDataSize != 0 {
		t.Errorf("MaxDataSize = %d, want 0", cfg.Tagger.MaxDataSize)
	}
	if cfg.Logging.FileLogger.Mode != "append" {
		t.Errorf("File log mode = %q, want append", cfg.Logging.FileLogger.Mode)
	}
}

func TestLoadConfiguration_NonExistentFile(t *testing.T) {
	if _, err := LoadConfiguration("/nonexistent/config.yaml"); err == nil {
		t.Error("Expected error for nonexistent file")
	}
}

func TestLoadConfiguration_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errText string
	}{
		{
			name: "bad yaml",
			content: `version: 1
document:
  remove_partial: true
  invalid indent
`,
			errText: "failed to decode",
		},
		{
			name: "unknown field",
			content: `version: 1
unknown_field: value
`,
			errText: "unknown_field",
		},
		{
			name:    "wrong version",
			content: "version: 2\n",
			errText: "Version",
		},
		{
			name: "broken name template",
			content: `document:
  vanilla_name_template: "{{ .Author "
`,
			errText: string(VanillaNameTemplateFieldName),
		},
		{
			name: "unknown template function",
			content: `document:
  text_name_template: "{{ .Title | nosuchfunc }}"
`,
			errText: string(TextNameTemplateFieldName),
		},
		{
			name: "pattern does not compile",
			content: `templates:
  name_pattern: '^dat (?P<size>\d+$'
`,
			errText: "name_pattern",
		},
		{
			name: "pattern without size",
			content: `templates:
  name_pattern: '^dat (\d+)\.dat$'
`,
			errText: "name_pattern",
		},
		{
			name: "zero timeout",
			content: `tagger:
  timeout: 0s
`,
			errText: "Timeout",
		},
		{
			name: "bad log level",
			content: `logging:
  console:
    level: verbose
`,
			errText: "Level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfiguration(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("Expected error")
			}
			if !strings.Contains(err.Error(), tt.errText) {
				t.Errorf("error %q does not mention %q", err, tt.errText)
			}
		})
	}
}

func TestLoadConfiguration_WithOptions(t *testing.T) {
	called := false
	option := func(opts *gencfg.ProcessingOptions) {
		called = true
	}

	cfg, err := LoadConfiguration("", option)
	if err != nil {
		t.Fatalf("LoadConfiguration() with options error = %v", err)
	}
	if cfg == nil {
		t.Fatal("LoadConfiguration() returned nil config")
	}
	if !called {
		t.Error("option was not applied")
	}
}

func TestPrepare(t *testing.T) {
	data, err := Prepare()
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if len(data) == 0 {
		t.Fatal("Prepare() returned empty data")
	}
	if !strings.Contains(string(data), "{{ .Author }}, {{ .Title }}") {
		t.Error("Prepared config should keep name templates unexpanded")
	}

	if _, err := unmarshalConfig(data, &Config{}, true); err != nil {
		t.Errorf("Prepared config is not valid: %v", err)
	}
}

func TestDump(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	cfg.Tagger.Timeout = 3 * time.Second
	cfg.Document.RemovePartial = true

	data, err := Dump(cfg)
	if err != nil {
		t.Fatalf("Dump() error = %v", err)
	}

	cfg2, err := LoadConfiguration(writeConfig(t, string(data)))
	if err != nil {
		t.Fatalf("Dumped config cannot be loaded: %v", err)
	}
	if cfg2.Tagger.Timeout != cfg.Tagger.Timeout {
		t.Errorf("Timeout after dump/load = %v, want %v", cfg2.Tagger.Timeout, cfg.Tagger.Timeout)
	}
	if !cfg2.Document.RemovePartial {
		t.Error("RemovePartial lost after dump/load")
	}
	if cfg2.Templates.NamePattern != cfg.Templates.NamePattern {
		t.Errorf("NamePattern after dump/load = %q, want %q", cfg2.Templates.NamePattern, cfg.Templates.NamePattern)
	}
}

func TestUnmarshalConfig(t *testing.T) {
	t.Run("valid config without processing", func(t *testing.T) {
		result, err := unmarshalConfig([]byte(`version: 1`), &Config{}, false)
		if err != nil {
			t.Fatalf("unmarshalConfig() error = %v", err)
		}
		if result.Version != 1 {
			t.Errorf("Version = %d, want 1", result.Version)
		}
	})

	t.Run("incomplete config with processing", func(t *testing.T) {
		if _, err := unmarshalConfig([]byte(`version: 1`), &Config{}, true); err == nil {
			t.Error("Expected validation error for missing required values")
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		if _, err := unmarshalConfig([]byte(`invalid: [yaml`), &Config{}, false); err == nil {
			t.Error("Expected error for invalid YAML")
		}
	})
}

func TestCleanFileName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Me, Tale0", "Me, Tale0"},
		{"separator", "a" + string(os.PathSeparator) + "b", "ab"},
		{"empty", "", badFileName},
		{"only separators", string(os.PathSeparator), badFileName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanFileName(tt.in); got != tt.want {
				t.Errorf("CleanFileName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
