package codec

import (
	"strings"

	"github.com/tidwall/gjson"
)

// detectors run in priority order; the first match wins
var detectors = []struct {
	format Format
	match  func(string) bool
}{
	{JSON, gjson.Valid},
	{PHP, HasPHPSigil},
	{XML, IsXML},
	{Morse, IsMorse},
	{JWT, IsJWT},
	{Base64, IsBase64},
}

// Detect classifies input by lexical shape. A bare number is valid JSON and so is
// reported as JSON even when it could have been meant as something else.
func Detect(input string) Format {
	s := strings.TrimSpace(input)
	if s == "" {
		return Unrecognized
	}
	for _, d := range detectors {
		if d.match(s) {
			return d.format
		}
	}
	return Unrecognized
}
