package codec

import (
	"encoding/json"
	"fmt"
)

// Request is a single conversion call. The zero Target means "detect from Input".
type Request struct {
	Input  string
	Mode   Mode
	Target Format
	// Indent applies to JSON output; zero selects the codec's default
	Indent int
}

// Result is the outcome of Convert. Format names the codec that handled the input and
// Direction the way it was applied. When Err is set, Output holds whatever is best
// shown instead of a result (the raw input for unrecognised text, otherwise empty).
type Result struct {
	Output    string
	Format    Format
	Direction Mode
	Err       error
}

// Text is the string a caller displays: the output, or "Error: ..." on failure
func (r Result) Text() string {
	if r.Err != nil {
		return ErrorText(r.Err)
	}
	return r.Output
}

// OK reports whether the conversion produced output
func (r Result) OK() bool {
	return r.Err == nil
}

// Convert runs the detector (unless Target is set) and dispatches to the matching
// codec. It never panics and never returns a bare error; failures land in Result.Err.
func Convert(req Request) (res Result) {
	defer func() {
		if p := recover(); p != nil {
			res = Result{Format: res.Format, Direction: res.Direction, Err: fmt.Errorf("conversion failed: %v", p)}
		}
	}()

	format := req.Target
	if format == Unrecognized {
		if req.Mode == ModeEncode {
			// Encoding starts from plain text or JSON, so detect only to spot JSON
			if Detect(req.Input) == JSON {
				format = PHP
			} else {
				format = Base64
			}
		} else {
			format = Detect(req.Input)
		}
	}

	res.Format = format
	res.Direction = req.Mode
	if res.Direction == ModeAuto {
		res.Direction = ModeDecode
	}

	switch format {
	case Unrecognized:
		res.Output = req.Input
		res.Err = ErrUnrecognized
	case JSON:
		res.Output, res.Err = FormatJSON(req.Input, req.Indent)
	case PHP:
		if res.Direction == ModeEncode {
			res.Output, res.Err = JSONToPHP(req.Input)
		} else {
			res.Output, res.Err = PHPToJSON(req.Input, req.Indent)
		}
	case XML:
		if res.Direction == ModeEncode {
			res.Output, res.Err = JSONToXML(req.Input, "", req.Indent)
		} else {
			res.Output, res.Err = XMLToJSON(req.Input, req.Indent)
		}
	case Base64:
		if res.Direction == ModeEncode {
			res.Output = EncodeBase64(req.Input, false)
		} else {
			res.Output, res.Err = DecodeBase64(req.Input)
		}
	case Morse:
		res.Output, res.Direction = ConvertMorse(req.Input, req.Mode)
	case JWT:
		if res.Direction == ModeEncode {
			res.Err = fmt.Errorf("%w: JWT encoding needs a secret, use SignHS256", ErrUnsupported)
			return res
		}
		res.Output, res.Err = jwtDocument(req.Input, req.Indent)
	default:
		res.Err = fmt.Errorf("%w: %s", ErrUnsupported, format)
	}
	return res
}

// jwtDocument renders a decoded token as one JSON document
func jwtDocument(token string, indent int) (string, error) {
	parts, err := DecodeJWT(token)
	if err != nil {
		return "", err
	}
	if indent <= 0 {
		indent = 2
	}
	doc := struct {
		Header    json.RawMessage `json:"header"`
		Payload   json.RawMessage `json:"payload"`
		Signature string          `json:"signature"`
	}{
		Header:    json.RawMessage(parts.Header),
		Payload:   json.RawMessage(parts.Payload),
		Signature: parts.Signature,
	}
	return marshalIndent(doc, indent)
}
