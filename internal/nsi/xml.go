package nsi

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
)

// coercedFields are unmarshalled to a richer Go type instead of string.
var coercedFields = map[string]bool{
	"connectionId":  true,
	"correlationId": true,
	"timeStamp":     true,
	"startTime":     true,
	"endTime":       true,
}

// Unwrap strips the single outer key Flatten always produces for a
// document's root element, returning that element's children directly.
// Callers that only care about a document's content, not the literal tag
// name its schema gives the root (which varies by document type and
// namespace), call this once after Flatten.
func Unwrap(flat map[string]any) map[string]any {
	for _, v := range flat {
		if m, ok := v.(map[string]any); ok {
			return m
		}
	}
	return flat
}

// Flatten parses SOAP/XML body into a namespace-stripped dictionary: each
// element's local name becomes a key, attributes are merged into the same
// map, repeated siblings become a []any, and known fields are coerced to
// uuid.UUID / time.Time. All other text remains string.
func Flatten(body []byte) (map[string]any, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.Strict = false

	root, err := parseElement(dec, nil)
	if err != nil {
		return nil, fmt.Errorf("nsi: parse xml: %w", err)
	}
	if s, isText := root.(string); root == nil || (isText && s == "") {
		return nil, fmt.Errorf("nsi: empty xml document")
	}
	if m, ok := root.(map[string]any); ok {
		return m, nil
	}
	return map[string]any{"_text": root}, nil
}

// parseElement consumes tokens until the matching end element for start
// (or EOF at the document root) and returns the decoded value: a
// map[string]any for elements with children/attributes, or a coerced
// scalar for leaf text elements.
func parseElement(dec *xml.Decoder, start *xml.StartElement) (any, error) {
	children := map[string]any{}
	var text strings.Builder

	if start != nil {
		for _, a := range start.Attr {
			addChild(children, localName(a.Name), a.Value)
		}
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			name := localName(t.Name)
			startCopy := t
			val, err := parseElement(dec, &startCopy)
			if err != nil {
				return nil, err
			}
			addChild(children, name, coerce(name, val))
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			if len(children) == 0 {
				return coerce(elementNameHint(start), strings.TrimSpace(text.String())), nil
			}
			if s := strings.TrimSpace(text.String()); s != "" {
				children["_text"] = s
			}
			return children, nil
		}
	}

	if len(children) == 0 {
		return strings.TrimSpace(text.String()), nil
	}
	return children, nil
}

func elementNameHint(start *xml.StartElement) string {
	if start == nil {
		return ""
	}
	return localName(start.Name)
}

// addChild inserts val under name, promoting to a slice when name repeats
// among siblings.
func addChild(m map[string]any, name string, val any) {
	existing, ok := m[name]
	if !ok {
		m[name] = val
		return
	}
	if list, ok := existing.([]any); ok {
		m[name] = append(list, val)
		return
	}
	m[name] = []any{existing, val}
}

func coerce(name string, val any) any {
	s, ok := val.(string)
	if !ok || !coercedFields[name] {
		return val
	}

	if name == "connectionId" || name == "correlationId" {
		trimmed := strings.TrimPrefix(s, "urn:uuid:")
		if id, err := uuid.Parse(trimmed); err == nil {
			return id
		}
		return s
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return s
}

func localName(n xml.Name) string {
	if i := strings.IndexByte(n.Local, ':'); i >= 0 {
		return n.Local[i+1:]
	}
	return n.Local
}
