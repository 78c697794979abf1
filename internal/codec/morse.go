package codec

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// morseTable is International Morse for A-Z and 0-9
var morseTable = map[rune]string{
	'A': ".-", 'B': "-...", 'C': "-.-.", 'D': "-..", 'E': ".", 'F': "..-.",
	'G': "--.", 'H': "....", 'I': "..", 'J': ".---", 'K': "-.-", 'L': ".-..",
	'M': "--", 'N': "-.", 'O': "---", 'P': ".--.", 'Q': "--.-", 'R': ".-.",
	'S': "...", 'T': "-", 'U': "..-", 'V': "...-", 'W': ".--", 'X': "-..-",
	'Y': "-.--", 'Z': "--..",
	'0': "-----", '1': ".----", '2': "..---", '3': "...--", '4': "....-",
	'5': ".....", '6': "-....", '7': "--...", '8': "---..", '9': "----.",
}

var morseReverse = func() map[string]rune {
	m := make(map[string]rune, len(morseTable))
	for r, code := range morseTable {
		m[code] = r
	}
	return m
}()

// morseWordBreak matches a slash word separator or a run of two or more spaces
var morseWordBreak = regexp.MustCompile(`\s*/\s*|\s{2,}`)

// IsMorse reports whether input consists only of dots, dashes, slashes and whitespace
// with at least one dot or dash
func IsMorse(input string) bool {
	hasSymbol := false
	for _, r := range input {
		switch {
		case r == '.' || r == '-':
			hasSymbol = true
		case r == '/' || unicode.IsSpace(r):
		default:
			return false
		}
	}
	return hasSymbol
}

// EncodeMorse converts text to Morse. Letters are upper-cased and accents folded;
// symbols are separated by one space and words by " / ". A run of characters with no
// Morse equivalent is passed through unchanged as a single group, so text produced by
// DecodeMorse from unknown groups encodes back to the same groups.
func EncodeMorse(text string) string {
	words := strings.Fields(strings.ToUpper(foldAccents(text)))
	encoded := make([]string, 0, len(words))
	for _, word := range words {
		symbols := make([]string, 0, len(word))
		var unknown strings.Builder
		for _, r := range word {
			code, ok := morseTable[r]
			if !ok {
				unknown.WriteRune(r)
				continue
			}
			if unknown.Len() > 0 {
				symbols = append(symbols, unknown.String())
				unknown.Reset()
			}
			symbols = append(symbols, code)
		}
		if unknown.Len() > 0 {
			symbols = append(symbols, unknown.String())
		}
		encoded = append(encoded, strings.Join(symbols, " "))
	}
	return strings.Join(encoded, " / ")
}

// DecodeMorse converts Morse to upper-case text. Words are separated by "/" or by two
// or more spaces; symbol groups missing from the table are copied through unchanged.
func DecodeMorse(code string) string {
	var words []string
	for _, word := range morseWordBreak.Split(strings.TrimSpace(code), -1) {
		var b strings.Builder
		for _, symbol := range strings.Fields(word) {
			if r, ok := morseReverse[symbol]; ok {
				b.WriteRune(r)
			} else {
				b.WriteString(symbol)
			}
		}
		if b.Len() > 0 {
			words = append(words, b.String())
		}
	}
	return strings.Join(words, " ")
}

// ConvertMorse picks the direction from mode, decoding in auto mode only when the
// input is made of Morse characters. The direction actually applied is returned.
func ConvertMorse(input string, mode Mode) (string, Mode) {
	if mode == ModeAuto {
		if IsMorse(input) {
			mode = ModeDecode
		} else {
			mode = ModeEncode
		}
	}
	if mode == ModeDecode {
		return DecodeMorse(input), ModeDecode
	}
	return EncodeMorse(input), ModeEncode
}

func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Signal is one keyed (On) or silent interval measured in Morse units
type Signal struct {
	On    bool
	Units int
}

const (
	// DefaultMorseWPM is the keying speed used when none is given
	DefaultMorseWPM = 20

	// DefaultMorseFrequency is the tone pitch in Hz
	DefaultMorseFrequency = 600.0
)

// UnitDuration is the length of one dot at wpm words per minute (PARIS timing)
func UnitDuration(wpm int) time.Duration {
	if wpm <= 0 {
		wpm = DefaultMorseWPM
	}
	return 1200 * time.Millisecond / time.Duration(wpm)
}

// Schedule turns Morse code into keyed intervals: dot 1 unit, dash 3, gap between
// elements 1, between letters 3, between words 7. Characters other than dots and
// dashes inside a symbol group are ignored.
func Schedule(code string) []Signal {
	var out []Signal
	gap := func(units int) {
		if len(out) == 0 {
			return
		}
		last := &out[len(out)-1]
		if !last.On {
			if units > last.Units {
				last.Units = units
			}
			return
		}
		out = append(out, Signal{On: false, Units: units})
	}

	for wi, word := range morseWordBreak.Split(strings.TrimSpace(code), -1) {
		if wi > 0 {
			gap(7)
		}
		for si, symbol := range strings.Fields(word) {
			if si > 0 {
				gap(3)
			}
			for _, r := range symbol {
				switch r {
				case '.':
					gap(1)
					out = append(out, Signal{On: true, Units: 1})
				case '-':
					gap(1)
					out = append(out, Signal{On: true, Units: 3})
				}
			}
		}
	}
	// a trailing gap carries no information
	if n := len(out); n > 0 && !out[n-1].On {
		out = out[:n-1]
	}
	return out
}

// ScheduleDuration is the total playing time of a schedule at wpm
func ScheduleDuration(signals []Signal, wpm int) time.Duration {
	units := 0
	for _, s := range signals {
		units += s.Units
	}
	return time.Duration(units) * UnitDuration(wpm)
}
