// Package catalog lists the public tool pages and builds the sitemap
package catalog

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sahilm/fuzzy"
)

// DefaultBaseURL is the public site root
const DefaultBaseURL = "https://www.devtoolshub.org"

// Entry is one tool page
type Entry struct {
	Slug        string   `json:"slug"`
	Tool        string   `json:"tool"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords,omitempty"`
}

// entries are in sitemap priority order
var entries = []Entry{
	{
		Slug:        "json-format",
		Tool:        "json_format",
		Title:       "JSON Formatter",
		Description: "Format, validate and beautify JSON. PHP-serialized input is converted automatically.",
		Keywords:    []string{"json", "beautify", "pretty print", "validate"},
	},
	{
		Slug:        "json-format-vertical",
		Tool:        "json_format",
		Title:       "JSON Formatter (vertical layout)",
		Description: "The JSON formatter with input and output stacked vertically.",
		Keywords:    []string{"json", "formatter", "vertical"},
	},
	{
		Slug:        "xml-to-json",
		Tool:        "xml_convert",
		Title:       "XML to JSON Converter",
		Description: "Convert XML documents to JSON and back.",
		Keywords:    []string{"xml", "json", "convert"},
	},
	{
		Slug:        "xml-to-json-vertical",
		Tool:        "xml_convert",
		Title:       "XML to JSON Converter (vertical layout)",
		Description: "The XML converter with input and output stacked vertically.",
		Keywords:    []string{"xml", "json", "vertical"},
	},
	{
		Slug:        "jwt-decode",
		Tool:        "jwt",
		Title:       "JWT Decoder",
		Description: "Decode JSON Web Tokens, inspect claims and verify HS256 signatures.",
		Keywords:    []string{"jwt", "token", "decode", "claims"},
	},
	{
		Slug:        "qr-code-generator",
		Tool:        "qr_code",
		Title:       "QR Code Generator",
		Description: "Generate styled QR codes as PNG, JPEG or SVG.",
		Keywords:    []string{"qr", "barcode", "generator"},
	},
	{
		Slug:        "base64",
		Tool:        "base64",
		Title:       "Base64 Encoder and Decoder",
		Description: "Encode text to Base64 or decode it, including URL-safe and unpadded input.",
		Keywords:    []string{"base64", "encode", "decode"},
	},
	{
		Slug:        "morse-code",
		Tool:        "morse_code",
		Title:       "Morse Code Translator",
		Description: "Translate text to Morse code and back, with audio playback.",
		Keywords:    []string{"morse", "telegraph", "audio"},
	},
	{
		Slug:        "php-serialize",
		Tool:        "php_serialize",
		Title:       "PHP Serialize and Unserialize",
		Description: "Convert between PHP serialized data, JSON and PHP array literals.",
		Keywords:    []string{"php", "serialize", "unserialize", "array"},
	},
}

// Entries returns a copy of every entry in priority order
func Entries() []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}

// Lookup finds an entry by slug
func Lookup(slug string) (Entry, bool) {
	slug = strings.ToLower(strings.Trim(strings.TrimSpace(slug), "/"))
	for _, e := range entries {
		if e.Slug == slug {
			return e, true
		}
	}
	return Entry{}, false
}

// Suggest returns up to n slugs that fuzzily match query, best first
func Suggest(query string, n int) []string {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" || n <= 0 {
		return nil
	}
	slugs := make([]string, len(entries))
	for i, e := range entries {
		slugs[i] = e.Slug
	}

	matches := fuzzy.Find(query, slugs)
	out := make([]string, 0, n)
	for _, m := range matches {
		if len(out) == n {
			break
		}
		out = append(out, m.Str)
	}
	return out
}

// Priority returns the sitemap priority of the entry at index i
func Priority(i int) float64 {
	p := 1.0 - 0.1*float64(i)
	// rounding keeps 1.0-0.1*3 at 0.7 rather than 0.7000000000000001
	p = math.Round(p*10) / 10
	return math.Max(p, 0.1)
}

type urlSet struct {
	XMLName xml.Name  `xml:"urlset"`
	XMLNS   string    `xml:"xmlns,attr"`
	URLs    []siteURL `xml:"url"`
}

type siteURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod"`
	ChangeFreq string `xml:"changefreq"`
	Priority   string `xml:"priority"`
}

// Sitemap renders the sitemap.xml document for baseURL
func Sitemap(baseURL string, lastMod time.Time) ([]byte, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	set := urlSet{XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9"}
	for i, e := range entries {
		set.URLs = append(set.URLs, siteURL{
			Loc:        baseURL + "/" + e.Slug,
			LastMod:    lastMod.UTC().Format("2006-01-02"),
			ChangeFreq: "weekly",
			Priority:   fmt.Sprintf("%.1f", Priority(i)),
		})
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(set); err != nil {
		return nil, fmt.Errorf("failed to encode sitemap: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
