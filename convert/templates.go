package convert

import (
	"bytes"
	"fmt"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"

	"bcbook/common"
	"bcbook/config"
)

// Values is a struct that holds variables we make available for template expansion
type Values struct {
	Context string
	Author  string
	// Title has volume number appended when text spans several books.
	Title  string
	Format string
	// Volume is zero based index of the book in the set of Volumes.
	Volume  int
	Volumes int
}

func expandTemplate(name config.TemplateFieldName, field string, values Values) (string, error) {
	tmpl, err := template.New(string(name)).Funcs(sprig.FuncMap()).Parse(field)
	if err != nil {
		return "", fmt.Errorf("unable to parse template field %s: %w", name, err)
	}

	values.Context = string(name)

	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, values); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// defaultName produces artifact name the way it has always been done, used
// when configured template cannot be expanded.
func defaultName(name config.TemplateFieldName, values Values) string {
	base := fmt.Sprintf("%s, %s", values.Author, values.Title)
	switch name {
	case config.VanillaNameTemplateFieldName:
		return base + common.OutputFmtVanilla.Ext()
	case config.DataNameTemplateFieldName:
		return base + common.OutputFmtBigbook.Ext()
	case config.TextNameTemplateFieldName:
		return values.Format + " " + base + ".txt"
	default:
		return base
	}
}
