package codec

import (
	"errors"
	"fmt"
)

var (
	// ErrUnrecognized is returned when no detector test matches the input
	ErrUnrecognized = errors.New("input format not recognised")

	// ErrEmptyInput is returned for blank input
	ErrEmptyInput = errors.New("input is empty")

	// ErrInvalidJSON wraps JSON syntax failures
	ErrInvalidJSON = errors.New("invalid JSON")

	// ErrInvalidXML wraps XML parse failures
	ErrInvalidXML = errors.New("invalid XML")

	// ErrInvalidBase64 is returned when no Base64 alphabet decodes the input.
	// Its text matches the message shown by the Base64 tool.
	ErrInvalidBase64 = errors.New("Invalid Base64 input!")

	// ErrInvalidJWT wraps token shape and segment decoding failures
	ErrInvalidJWT = errors.New("invalid JWT")

	// ErrUnsupported is returned for format/direction pairs the dispatcher has no codec for
	ErrUnsupported = errors.New("conversion not supported")

	errNotMarkup = errors.New("document must start with '<'")
)

// phpErrorPrefix is the message every PHP unserialize failure starts with
const phpErrorPrefix = "Invalid PHP serialized data!"

// PHPError describes a PHP-serialized parse failure at a byte offset
type PHPError struct {
	Offset int
	Reason string
}

func (e *PHPError) Error() string {
	return fmt.Sprintf("%s %s at offset %d", phpErrorPrefix, e.Reason, e.Offset)
}

// SyntaxError describes a failure of one of the JSON based codecs, keeping the
// underlying decoder error for errors.As
type SyntaxError struct {
	Format Format
	Err    error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Format, e.Err)
}

func (e *SyntaxError) Unwrap() []error {
	var kind error
	switch e.Format {
	case JSON:
		kind = ErrInvalidJSON
	case XML:
		kind = ErrInvalidXML
	case JWT:
		kind = ErrInvalidJWT
	}
	if kind == nil {
		return []error{e.Err}
	}
	return []error{kind, e.Err}
}

// ErrorText renders err the way the tools display failures inline
func ErrorText(err error) string {
	if err == nil {
		return ""
	}
	return "Error: " + err.Error()
}
