package nsi

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"
)

//go:embed templates/*.xml.tmpl
var templateFS embed.FS

var parsed = template.Must(template.ParseFS(templateFS, "templates/*.xml.tmpl"))

// render executes the named template (without its .xml.tmpl suffix)
// against data and returns the serialized SOAP body.
func render(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := parsed.ExecuteTemplate(&buf, name+".xml.tmpl", data); err != nil {
		return nil, fmt.Errorf("nsi: render template %q: %w", name, err)
	}
	return buf.Bytes(), nil
}
