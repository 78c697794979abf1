package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/iancoleman/orderedmap"
	"github.com/tidwall/gjson"
)

const (
	// DefaultJSONIndent is the indent used by the JSON formatter
	DefaultJSONIndent = 4

	// XMLJSONIndent is the indent used when converting XML to JSON
	XMLJSONIndent = 2
)

// FormatJSON re-indents valid JSON. Key order and number literals are kept exactly as
// written because the text is re-laid out rather than decoded and re-encoded.
func FormatJSON(input string, indent int) (string, error) {
	src := []byte(strings.TrimSpace(input))
	if len(src) == 0 {
		return "", ErrEmptyInput
	}
	if err := checkJSON(src); err != nil {
		return "", err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, src, "", indentString(indent)); err != nil {
		return "", &SyntaxError{Format: JSON, Err: err}
	}
	return out.String(), nil
}

// CompactJSON returns valid JSON on a single line
func CompactJSON(input string) (string, error) {
	src := []byte(strings.TrimSpace(input))
	if len(src) == 0 {
		return "", ErrEmptyInput
	}
	if err := checkJSON(src); err != nil {
		return "", err
	}
	var out bytes.Buffer
	if err := json.Compact(&out, src); err != nil {
		return "", &SyntaxError{Format: JSON, Err: err}
	}
	return out.String(), nil
}

// QueryJSON evaluates a gjson path against valid JSON and returns the matched value,
// pretty-printed when it is an object or array
func QueryJSON(input, path string, indent int) (string, error) {
	src := strings.TrimSpace(input)
	if src == "" {
		return "", ErrEmptyInput
	}
	if err := checkJSON([]byte(src)); err != nil {
		return "", err
	}
	result := gjson.Get(src, path)
	if !result.Exists() {
		return "", fmt.Errorf("path %q not found", path)
	}
	if result.IsObject() || result.IsArray() {
		return FormatJSON(result.Raw, indent)
	}
	return result.Raw, nil
}

// checkJSON reports a SyntaxError carrying the decoder's offset for invalid input
func checkJSON(src []byte) error {
	if gjson.ValidBytes(src) {
		return nil
	}
	var v any
	if err := json.Unmarshal(src, &v); err != nil {
		return &SyntaxError{Format: JSON, Err: err}
	}
	// gjson is stricter than encoding/json about a few edge cases; trust the latter
	return nil
}

// marshalIndent encodes v without HTML escaping and indents the result
func marshalIndent(v any, indent int) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, bytes.TrimSpace(buf.Bytes()), "", indentString(indent)); err != nil {
		return "", err
	}
	return out.String(), nil
}

// decodeOrdered decodes any JSON value keeping object key order. Objects come back as
// *orderedmap.OrderedMap at the top level and orderedmap.OrderedMap when nested.
func decodeOrdered(input string) (any, error) {
	src := strings.TrimSpace(input)
	if src == "" {
		return nil, ErrEmptyInput
	}
	if err := checkJSON([]byte(src)); err != nil {
		return nil, err
	}
	// OrderedMap only unmarshals objects, so wrap the value in one
	wrapper := orderedmap.New()
	wrapper.SetEscapeHTML(false)
	if err := json.Unmarshal([]byte(`{"v":`+src+`}`), wrapper); err != nil {
		return nil, &SyntaxError{Format: JSON, Err: err}
	}
	v, _ := wrapper.Get("v")
	if m, ok := v.(orderedmap.OrderedMap); ok {
		return &m, nil
	}
	return v, nil
}

func indentString(indent int) string {
	if indent <= 0 {
		indent = DefaultJSONIndent
	}
	if indent > 8 {
		indent = 8
	}
	return strings.Repeat(" ", indent)
}
