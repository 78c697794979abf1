// Package codec holds the text codecs behind every tool and the format detector that
// decides which of them should handle a given input.
package codec

import (
	"fmt"
	"strings"
)

// Format is the lexical classification of an input string
type Format int

const (
	// Unrecognized means no detector test passed
	Unrecognized Format = iota
	JSON
	PHP
	XML
	Base64
	Morse
	JWT
)

var formatNames = map[Format]string{
	Unrecognized: "unrecognized",
	JSON:         "json",
	PHP:          "php",
	XML:          "xml",
	Base64:       "base64",
	Morse:        "morse",
	JWT:          "jwt",
}

// String returns the lower-case name used in tool arguments and API payloads
func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("format(%d)", int(f))
}

// MarshalText lets a Format appear as its name in JSON output
func (f Format) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// ParseFormat converts a format name into a Format. An empty name yields Unrecognized
// with no error so callers can treat it as "detect".
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto":
		return Unrecognized, nil
	case "json":
		return JSON, nil
	case "php", "php-serialized", "phpserialize", "php_serialized":
		return PHP, nil
	case "xml":
		return XML, nil
	case "base64", "b64":
		return Base64, nil
	case "morse", "morse-code", "morse_code":
		return Morse, nil
	case "jwt":
		return JWT, nil
	default:
		return Unrecognized, fmt.Errorf("unknown format %q", name)
	}
}

// Mode is the direction hint of a conversion request
type Mode int

const (
	// ModeAuto lets the detector pick the direction
	ModeAuto Mode = iota
	ModeEncode
	ModeDecode
)

// String returns the mode name
func (m Mode) String() string {
	switch m {
	case ModeEncode:
		return "encode"
	case ModeDecode:
		return "decode"
	default:
		return "auto"
	}
}

// MarshalText lets a Mode appear as its name in JSON output
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// ParseMode converts a mode name into a Mode
func ParseMode(name string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto":
		return ModeAuto, nil
	case "encode", "enc":
		return ModeEncode, nil
	case "decode", "dec":
		return ModeDecode, nil
	default:
		return ModeAuto, fmt.Errorf("unknown mode %q (expected auto, encode or decode)", name)
	}
}
