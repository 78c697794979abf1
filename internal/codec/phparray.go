package codec

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/iancoleman/orderedmap"
)

// DefaultPHPArrayVar is the variable name used by JSONToPHPArray
const DefaultPHPArrayVar = "arrayVar"

var phpVarName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// JSONToPHPArray renders JSON as a PHP short-array literal assigned to $varName:
//
//	<?php
//	$arrayVar = [
//	    "key" => "value",
//	];
func JSONToPHPArray(input, varName string) (string, error) {
	if varName == "" {
		varName = DefaultPHPArrayVar
	}
	varName = strings.TrimPrefix(varName, "$")
	if !phpVarName.MatchString(varName) {
		return "", fmt.Errorf("invalid PHP variable name %q", varName)
	}
	v, err := decodeOrdered(input)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("<?php\n$")
	b.WriteString(varName)
	b.WriteString(" = ")
	if err := writePHPLiteral(&b, v, 0); err != nil {
		return "", err
	}
	b.WriteString(";")
	return b.String(), nil
}

func writePHPLiteral(b *strings.Builder, v any, depth int) error {
	switch t := v.(type) {
	case nil:
		b.WriteString("null")
	case bool:
		b.WriteString(strconv.FormatBool(t))
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1<<53 {
			b.WriteString(strconv.FormatInt(int64(t), 10))
		} else {
			b.WriteString(strconv.FormatFloat(t, 'g', -1, 64))
		}
	case string:
		b.WriteString(phpQuote(t))
	case []any:
		if len(t) == 0 {
			b.WriteString("[]")
			return nil
		}
		b.WriteString("[\n")
		for _, item := range t {
			b.WriteString(phpIndent(depth + 1))
			if err := writePHPLiteral(b, item, depth+1); err != nil {
				return err
			}
			b.WriteString(",\n")
		}
		b.WriteString(phpIndent(depth))
		b.WriteString("]")
	case *orderedmap.OrderedMap:
		return writePHPLiteralMap(b, *t, depth)
	case orderedmap.OrderedMap:
		return writePHPLiteralMap(b, t, depth)
	default:
		return fmt.Errorf("cannot render %T as PHP", v)
	}
	return nil
}

func writePHPLiteralMap(b *strings.Builder, m orderedmap.OrderedMap, depth int) error {
	keys := m.Keys()
	if len(keys) == 0 {
		b.WriteString("[]")
		return nil
	}
	b.WriteString("[\n")
	for _, k := range keys {
		v, _ := m.Get(k)
		b.WriteString(phpIndent(depth + 1))
		b.WriteString(phpQuote(k))
		b.WriteString(" => ")
		if err := writePHPLiteral(b, v, depth+1); err != nil {
			return err
		}
		b.WriteString(",\n")
	}
	b.WriteString(phpIndent(depth))
	b.WriteString("]")
	return nil
}

func phpIndent(depth int) string {
	return strings.Repeat("    ", depth)
}

// phpQuote produces a double-quoted PHP string literal
func phpQuote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '$':
			b.WriteString(`\$`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\v':
			b.WriteString(`\v`)
		case '\f':
			b.WriteString(`\f`)
		case 0x1b:
			b.WriteString(`\e`)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&b, `\x%02x`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}
