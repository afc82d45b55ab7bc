package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"text/template"
	"time"

	sprig "github.com/go-task/slim-sprig/v3"
	validator "github.com/go-playground/validator/v10"
	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	TemplateFieldName string

	DocumentConfig struct {
		VanillaNameTemplate   string `yaml:"vanilla_name_template" validate:"required"`
		InfoNameTemplate      string `yaml:"info_name_template" validate:"required"`
		DataNameTemplate      string `yaml:"data_name_template" validate:"required"`
		TextNameTemplate      string `yaml:"text_name_template" validate:"required"`
		FileNameTransliterate bool   `yaml:"file_name_transliterate"`
		RemovePartial         bool   `yaml:"remove_partial"`
	}

	TemplatesConfig struct {
		Directory   string `yaml:"directory" sanitize:"path_clean" validate:"required"`
		InfoFile    string `yaml:"info_file" validate:"required"`
		NamePattern string `yaml:"name_pattern" validate:"required"`
	}

	TaggerConfig struct {
		Binary      string        `yaml:"binary" validate:"required"`
		Timeout     time.Duration `yaml:"timeout" validate:"gt=0"`
		MaxDataSize int64         `yaml:"max_data_size" validate:"gte=0"`
	}

	Config struct {
		Version   int             `yaml:"version" validate:"eq=1"`
		Document  DocumentConfig  `yaml:"document"`
		Templates TemplatesConfig `yaml:"templates"`
		Tagger    TaggerConfig    `yaml:"tagger"`
		Logging   LoggingConfig   `yaml:"logging"`
		Reporting ReporterConfig  `yaml:"reporting"`
	}
)

const (
	// NOTE: must match yaml field names above
	VanillaNameTemplateFieldName TemplateFieldName = "vanilla_name_template"
	InfoNameTemplateFieldName    TemplateFieldName = "info_name_template"
	DataNameTemplateFieldName    TemplateFieldName = "data_name_template"
	TextNameTemplateFieldName    TemplateFieldName = "text_name_template"
)

var requiredOptions = append([]func(*gencfg.ProcessingOptions){},
	gencfg.WithDoNotExpandField(string(VanillaNameTemplateFieldName)),
	gencfg.WithDoNotExpandField(string(InfoNameTemplateFieldName)),
	gencfg.WithDoNotExpandField(string(DataNameTemplateFieldName)),
	gencfg.WithDoNotExpandField(string(TextNameTemplateFieldName)),
)

// checkConfig validates values validator tags cannot express: name templates
// must parse and template name pattern must compile and capture size.
func checkConfig(sl validator.StructLevel) {
	cfg, ok := sl.Current().Interface().(Config)
	if !ok {
		return
	}
	for name, text := range map[TemplateFieldName]string{
		VanillaNameTemplateFieldName: cfg.Document.VanillaNameTemplate,
		InfoNameTemplateFieldName:    cfg.Document.InfoNameTemplate,
		DataNameTemplateFieldName:    cfg.Document.DataNameTemplate,
		TextNameTemplateFieldName:    cfg.Document.TextNameTemplate,
	} {
		if _, err := template.New(string(name)).Funcs(sprig.FuncMap()).Parse(text); err != nil {
			sl.ReportError(text, string(name), string(name), "template", "")
		}
	}
	re, err := regexp.Compile(cfg.Templates.NamePattern)
	if err != nil || re.SubexpIndex("size") < 0 {
		sl.ReportError(cfg.Templates.NamePattern, "name_pattern", "NamePattern", "pattern", "size")
	}
}

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		// sanitize and validate what has been loaded
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, err
		}
		if err := gencfg.Validate(cfg, gencfg.WithAdditionalChecks(checkConfig)); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration template to
// provide sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, append(requiredOptions, options...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	// overwrite cfg values with values from the file
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl, requiredOptions...)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}
