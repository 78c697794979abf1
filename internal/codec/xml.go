package codec

import (
	"encoding/json"
	"strings"

	"github.com/clbanning/mxj/v2"
)

const (
	// DefaultXMLRoot wraps JSON documents that have no single top-level key
	DefaultXMLRoot = "root"

	// xmlListElement names the elements produced for a top-level JSON array
	xmlListElement = "item"
)

// IsXML reports whether input looks like and parses as an XML document
func IsXML(input string) bool {
	s := strings.TrimSpace(input)
	if !strings.HasPrefix(s, "<") || !strings.HasSuffix(s, ">") {
		return false
	}
	_, err := mxj.NewMapXml([]byte(s))
	return err == nil
}

// XMLToJSON converts an XML document to indented JSON. Attributes appear with a "-"
// prefix and element text under "#text" when an element also has attributes.
func XMLToJSON(input string, indent int) (string, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", ErrEmptyInput
	}
	if !strings.HasPrefix(s, "<") {
		return "", &SyntaxError{Format: XML, Err: errNotMarkup}
	}
	m, err := mxj.NewMapXml([]byte(s))
	if err != nil {
		return "", &SyntaxError{Format: XML, Err: err}
	}
	if indent <= 0 {
		indent = XMLJSONIndent
	}
	return marshalIndent(map[string]any(m), indent)
}

// JSONToXML converts JSON to indented XML. A JSON object with a single non-list key
// uses that key as the root element unless rootTag is given; everything else is wrapped
// in rootTag (default "root").
func JSONToXML(input, rootTag string, indent int) (string, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", ErrEmptyInput
	}
	if err := checkJSON([]byte(s)); err != nil {
		return "", err
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return "", &SyntaxError{Format: JSON, Err: err}
	}
	if indent <= 0 {
		indent = XMLJSONIndent
	}
	ind := indentString(indent)

	var out []byte
	var err error
	switch t := v.(type) {
	case map[string]any:
		m := mxj.Map(t)
		switch {
		case rootTag != "":
			out, err = m.XmlIndent("", ind, rootTag)
		case len(t) == 1 && !singleValueIsList(t):
			out, err = m.XmlIndent("", ind)
		default:
			out, err = m.XmlIndent("", ind, DefaultXMLRoot)
		}
	default:
		if rootTag == "" {
			rootTag = DefaultXMLRoot
		}
		out, err = mxj.AnyXmlIndent(t, "", ind, rootTag, xmlListElement)
	}
	if err != nil {
		return "", &SyntaxError{Format: XML, Err: err}
	}
	return string(out), nil
}

func singleValueIsList(m map[string]any) bool {
	for _, v := range m {
		_, ok := v.([]any)
		return ok
	}
	return false
}
