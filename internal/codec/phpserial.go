package codec

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/iancoleman/orderedmap"
)

// phpSigils are the prefixes that mark PHP serialize() output
var phpSigils = []string{"a:", "O:", "s:", "i:", "b:", "d:"}

// HasPHPSigil reports whether input starts like PHP serialize() output
func HasPHPSigil(input string) bool {
	s := strings.TrimSpace(input)
	if s == "N;" {
		return true
	}
	for _, sigil := range phpSigils {
		if strings.HasPrefix(s, sigil) {
			return true
		}
	}
	return false
}

// UnserializePHP parses PHP serialize() output into a tree of nil, bool, int64, float64,
// string, []any and *orderedmap.OrderedMap values. Arrays whose keys are exactly 0..n-1
// in order become slices; every other array keeps its key order as an ordered map.
// All failures are *PHPError values.
func UnserializePHP(input string) (any, error) {
	src := strings.TrimSpace(input)
	if src == "" {
		return nil, &PHPError{Offset: 0, Reason: "empty input"}
	}
	p := &phpParser{src: src}
	v, err := p.value()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.src) {
		return nil, p.fail("unexpected trailing data")
	}
	return v, nil
}

// PHPToJSON unserializes PHP data and pretty-prints it as JSON
func PHPToJSON(input string, indent int) (string, error) {
	v, err := UnserializePHP(input)
	if err != nil {
		return "", err
	}
	out, err := marshalIndent(v, indent)
	if err != nil {
		return "", fmt.Errorf("failed to encode JSON: %w", err)
	}
	return out, nil
}

// maxPHPDepth bounds array and object nesting
const maxPHPDepth = 512

// minPHPElement is a lower bound on the encoded size of one element; a key alone
// (`i:0;`) takes four bytes
const minPHPElement = 4

type phpParser struct {
	src   string
	pos   int
	depth int
}

// count reads an array or object element count followed by "{", rejecting counts
// the remaining input cannot hold
func (p *phpParser) count() (int, error) {
	n, err := p.length()
	if err != nil {
		return 0, err
	}
	if err := p.expect("{"); err != nil {
		return 0, err
	}
	if n > (len(p.src)-p.pos)/minPHPElement {
		return 0, p.fail(fmt.Sprintf("element count %d runs past end of data", n))
	}
	return n, nil
}

func (p *phpParser) enter() error {
	if p.depth >= maxPHPDepth {
		return p.fail("nesting too deep")
	}
	p.depth++
	return nil
}

func (p *phpParser) fail(reason string) *PHPError {
	return &PHPError{Offset: p.pos, Reason: reason}
}

func (p *phpParser) expect(s string) error {
	if !strings.HasPrefix(p.src[p.pos:], s) {
		if p.pos >= len(p.src) {
			return p.fail(fmt.Sprintf("unexpected end of data, expected %q", s))
		}
		return p.fail(fmt.Sprintf("expected %q", s))
	}
	p.pos += len(s)
	return nil
}

// until returns the text up to (not including) the delimiter and moves past it
func (p *phpParser) until(delim byte) (string, error) {
	i := strings.IndexByte(p.src[p.pos:], delim)
	if i < 0 {
		return "", p.fail(fmt.Sprintf("missing %q", delim))
	}
	s := p.src[p.pos : p.pos+i]
	p.pos += i + 1
	return s, nil
}

func (p *phpParser) length() (int, error) {
	start := p.pos
	raw, err := p.until(':')
	if err != nil {
		return 0, err
	}
	n, convErr := strconv.Atoi(raw)
	if convErr != nil || n < 0 {
		p.pos = start
		return 0, p.fail(fmt.Sprintf("invalid length %q", raw))
	}
	return n, nil
}

func (p *phpParser) value() (any, error) {
	if p.pos >= len(p.src) {
		return nil, p.fail("unexpected end of data")
	}
	switch p.src[p.pos] {
	case 'N':
		if err := p.expect("N;"); err != nil {
			return nil, err
		}
		return nil, nil
	case 'b':
		return p.boolean()
	case 'i':
		return p.integer()
	case 'd':
		return p.double()
	case 's':
		return p.str()
	case 'a':
		return p.array()
	case 'O':
		return p.object()
	case 'r', 'R':
		return nil, p.fail("references are not supported")
	case 'C':
		return nil, p.fail("custom serialized objects are not supported")
	default:
		return nil, p.fail(fmt.Sprintf("unexpected type %q", p.src[p.pos]))
	}
}

func (p *phpParser) boolean() (any, error) {
	if err := p.expect("b:"); err != nil {
		return nil, err
	}
	start := p.pos
	raw, err := p.until(';')
	if err != nil {
		return nil, err
	}
	switch raw {
	case "0":
		return false, nil
	case "1":
		return true, nil
	}
	p.pos = start
	return nil, p.fail(fmt.Sprintf("invalid boolean %q", raw))
}

func (p *phpParser) integer() (any, error) {
	if err := p.expect("i:"); err != nil {
		return nil, err
	}
	start := p.pos
	raw, err := p.until(';')
	if err != nil {
		return nil, err
	}
	n, convErr := strconv.ParseInt(raw, 10, 64)
	if convErr != nil {
		p.pos = start
		return nil, p.fail(fmt.Sprintf("invalid integer %q", raw))
	}
	return n, nil
}

func (p *phpParser) double() (any, error) {
	if err := p.expect("d:"); err != nil {
		return nil, err
	}
	start := p.pos
	raw, err := p.until(';')
	if err != nil {
		return nil, err
	}
	switch raw {
	case "INF", "-INF", "NAN":
		// JSON has no representation for these
		return raw, nil
	}
	f, convErr := strconv.ParseFloat(raw, 64)
	if convErr != nil {
		p.pos = start
		return nil, p.fail(fmt.Sprintf("invalid float %q", raw))
	}
	return f, nil
}

func (p *phpParser) str() (any, error) {
	if err := p.expect("s:"); err != nil {
		return nil, err
	}
	return p.quoted(';')
}

// quoted reads `N:"<N bytes>"` followed by the terminator byte
func (p *phpParser) quoted(terminator byte) (string, error) {
	n, err := p.length()
	if err != nil {
		return "", err
	}
	if err := p.expect(`"`); err != nil {
		return "", err
	}
	if n > len(p.src)-p.pos {
		return "", p.fail(fmt.Sprintf("string length %d runs past end of data", n))
	}
	s := p.src[p.pos : p.pos+n]
	p.pos += n
	if err := p.expect(`"` + string(terminator)); err != nil {
		return "", p.fail(fmt.Sprintf("string length %d does not match content", n))
	}
	return s, nil
}

func (p *phpParser) key() (string, bool, error) {
	if p.pos >= len(p.src) {
		return "", false, p.fail("unexpected end of data, expected array key")
	}
	switch p.src[p.pos] {
	case 'i':
		v, err := p.integer()
		if err != nil {
			return "", false, err
		}
		return strconv.FormatInt(v.(int64), 10), true, nil
	case 's':
		v, err := p.str()
		if err != nil {
			return "", false, err
		}
		return v.(string), false, nil
	default:
		return "", false, p.fail("array keys must be integers or strings")
	}
}

func (p *phpParser) array() (any, error) {
	if err := p.expect("a:"); err != nil {
		return nil, err
	}
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer func() { p.depth-- }()
	n, err := p.count()
	if err != nil {
		return nil, err
	}

	m := newOrderedMap()
	list := make([]any, 0, n)
	sequential := true
	for i := 0; i < n; i++ {
		k, isInt, err := p.key()
		if err != nil {
			return nil, err
		}
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		if sequential && (!isInt || k != strconv.Itoa(i)) {
			sequential = false
		}
		if sequential {
			list = append(list, v)
		}
		m.Set(k, v)
	}
	if err := p.expect("}"); err != nil {
		return nil, err
	}
	if sequential {
		return list, nil
	}
	return m, nil
}

func (p *phpParser) object() (any, error) {
	if err := p.expect("O:"); err != nil {
		return nil, err
	}
	className, err := p.quoted(':')
	if err != nil {
		return nil, err
	}
	if className == "" {
		return nil, p.fail("empty class name")
	}
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer func() { p.depth-- }()
	n, err := p.count()
	if err != nil {
		return nil, err
	}
	m := newOrderedMap()
	for i := 0; i < n; i++ {
		k, _, err := p.key()
		if err != nil {
			return nil, err
		}
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		m.Set(propertyName(k), v)
	}
	if err := p.expect("}"); err != nil {
		return nil, err
	}
	return m, nil
}

// propertyName strips the "\0*\0" (protected) and "\0Class\0" (private) prefixes
func propertyName(k string) string {
	if !strings.HasPrefix(k, "\x00") {
		return k
	}
	if i := strings.IndexByte(k[1:], 0); i >= 0 {
		return k[i+2:]
	}
	return k
}

func newOrderedMap() *orderedmap.OrderedMap {
	m := orderedmap.New()
	m.SetEscapeHTML(false)
	return m
}

// SerializePHP renders a decoded JSON tree the way PHP's serialize() would
func SerializePHP(v any) (string, error) {
	var b strings.Builder
	if err := writePHP(&b, v); err != nil {
		return "", err
	}
	return b.String(), nil
}

// JSONToPHP converts JSON text into PHP serialize() output, keeping object key order
func JSONToPHP(input string) (string, error) {
	v, err := decodeOrdered(input)
	if err != nil {
		return "", err
	}
	return SerializePHP(v)
}

func writePHP(b *strings.Builder, v any) error {
	switch t := v.(type) {
	case nil:
		b.WriteString("N;")
	case bool:
		if t {
			b.WriteString("b:1;")
		} else {
			b.WriteString("b:0;")
		}
	case int:
		fmt.Fprintf(b, "i:%d;", t)
	case int64:
		fmt.Fprintf(b, "i:%d;", t)
	case float64:
		writePHPNumber(b, t)
	case json.Number:
		if n, err := t.Int64(); err == nil {
			fmt.Fprintf(b, "i:%d;", n)
			return nil
		}
		f, err := t.Float64()
		if err != nil {
			return fmt.Errorf("invalid number %q: %w", t, err)
		}
		writePHPNumber(b, f)
	case string:
		fmt.Fprintf(b, "s:%d:\"%s\";", len(t), t)
	case []any:
		fmt.Fprintf(b, "a:%d:{", len(t))
		for i, item := range t {
			fmt.Fprintf(b, "i:%d;", i)
			if err := writePHP(b, item); err != nil {
				return err
			}
		}
		b.WriteString("}")
	case *orderedmap.OrderedMap:
		return writePHPMap(b, t.Keys(), func(k string) any { v, _ := t.Get(k); return v })
	case orderedmap.OrderedMap:
		return writePHPMap(b, t.Keys(), func(k string) any { v, _ := t.Get(k); return v })
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return writePHPMap(b, keys, func(k string) any { return t[k] })
	default:
		return fmt.Errorf("cannot serialize %T", v)
	}
	return nil
}

func writePHPMap(b *strings.Builder, keys []string, get func(string) any) error {
	fmt.Fprintf(b, "a:%d:{", len(keys))
	for _, k := range keys {
		if isPHPIntKey(k) {
			fmt.Fprintf(b, "i:%s;", k)
		} else {
			fmt.Fprintf(b, "s:%d:\"%s\";", len(k), k)
		}
		if err := writePHP(b, get(k)); err != nil {
			return err
		}
	}
	b.WriteString("}")
	return nil
}

func writePHPNumber(b *strings.Builder, f float64) {
	switch {
	case math.IsInf(f, 1):
		b.WriteString("d:INF;")
	case math.IsInf(f, -1):
		b.WriteString("d:-INF;")
	case math.IsNaN(f):
		b.WriteString("d:NAN;")
	case f == math.Trunc(f) && math.Abs(f) < 1<<53:
		fmt.Fprintf(b, "i:%d;", int64(f))
	default:
		fmt.Fprintf(b, "d:%s;", formatPHPFloat(f))
	}
}

func formatPHPFloat(f float64) string {
	abs := math.Abs(f)
	if abs != 0 && (abs < 1e-4 || abs >= 1e15) {
		return strconv.FormatFloat(f, 'E', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// isPHPIntKey mirrors PHP's rule for string keys that are stored as integers
func isPHPIntKey(k string) bool {
	if k == "" || k == "-0" {
		return false
	}
	digits := strings.TrimPrefix(k, "-")
	if digits == "" || (len(digits) > 1 && digits[0] == '0') {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}
	_, err := strconv.ParseInt(k, 10, 64)
	return err == nil
}
