package morsecode

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/devtoolshub/devtools-hub/internal/cache"
	"github.com/devtoolshub/devtools-hub/internal/codec"
	"github.com/devtoolshub/devtools-hub/internal/registry"
	"github.com/devtoolshub/devtools-hub/internal/tools"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"
)

const (
	minWPM       = 5
	maxWPM       = 60
	minFrequency = 200
	maxFrequency = 2000
)

// MorseCodeTool translates between text and Morse code and can render the code as audio
type MorseCodeTool struct{}

func init() {
	registry.Register(&MorseCodeTool{})
}

// Definition returns the tool's definition for MCP registration
func (t *MorseCodeTool) Definition() mcp.Tool {
	return mcp.NewTool(
		"morse_code",
		mcp.WithDescription("Translate text to International Morse code or Morse code to text. Optionally returns the code as a WAV tone."),
		mcp.WithString("input",
			mcp.Required(),
			mcp.Description("Text, or Morse code using '.', '-', spaces between letters and ' / ' between words"),
		),
		mcp.WithString("mode",
			mcp.Description("auto decodes input made only of dots, dashes, slashes and spaces and encodes anything else"),
			mcp.Enum("auto", "encode", "decode"),
			mcp.DefaultString("auto"),
		),
		mcp.WithBoolean("audio",
			mcp.Description("Also return the Morse code as audio/wav content"),
			mcp.DefaultBool(false),
		),
		mcp.WithNumber("wpm",
			mcp.Description("Keying speed in words per minute for audio"),
			mcp.DefaultNumber(codec.DefaultMorseWPM),
			mcp.Min(minWPM),
			mcp.Max(maxWPM),
		),
		mcp.WithNumber("frequency",
			mcp.Description("Tone pitch in Hz for audio"),
			mcp.DefaultNumber(codec.DefaultMorseFrequency),
			mcp.Min(minFrequency),
			mcp.Max(maxFrequency),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)
}

// Execute translates the input
func (t *MorseCodeTool) Execute(ctx context.Context, logger *logrus.Logger, _ *cache.Cache, args map[string]any) (*mcp.CallToolResult, error) {
	input, err := tools.RequiredString(args, "input")
	if err != nil {
		return nil, err
	}
	mode, err := codec.ParseMode(tools.OptionalString(args, "mode", "auto"))
	if err != nil {
		return nil, err
	}
	wpm, err := tools.OptionalInt(args, "wpm", codec.DefaultMorseWPM)
	if err != nil {
		return nil, err
	}
	if wpm < minWPM || wpm > maxWPM {
		return nil, fmt.Errorf("wpm must be between %d and %d", minWPM, maxWPM)
	}
	frequency, err := tools.OptionalInt(args, "frequency", int(codec.DefaultMorseFrequency))
	if err != nil {
		return nil, err
	}
	if frequency < minFrequency || frequency > maxFrequency {
		return nil, fmt.Errorf("frequency must be between %d and %d Hz", minFrequency, maxFrequency)
	}

	out, direction := codec.ConvertMorse(input, mode)
	logger.WithField("direction", direction).Debug("Translated Morse code")

	if !tools.OptionalBool(args, "audio", false) {
		return mcp.NewToolResultText(out), nil
	}

	code := out
	if direction == codec.ModeDecode {
		code = input
	}
	wav, err := codec.RenderWAV(code, wpm, float64(frequency))
	if err != nil {
		return tools.ConversionError(fmt.Errorf("failed to render audio: %w", err)), nil
	}

	signals := codec.Schedule(code)
	summary := fmt.Sprintf("%d elements, %s at %d wpm, %d Hz",
		countKeyed(signals), codec.ScheduleDuration(signals, wpm), wpm, frequency)

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(out),
			mcp.NewAudioContent(base64.StdEncoding.EncodeToString(wav), "audio/wav"),
			mcp.NewTextContent(summary),
		},
	}, nil
}

func countKeyed(signals []codec.Signal) int {
	n := 0
	for _, s := range signals {
		if s.On {
			n++
		}
	}
	return n
}

// HistoryInput returns the input saved to conversion history
func (t *MorseCodeTool) HistoryInput(args map[string]any) string {
	return strings.TrimSpace(tools.OptionalString(args, "input", ""))
}

// ProvideExtendedInfo provides detailed usage information for the morse_code tool
func (t *MorseCodeTool) ProvideExtendedInfo() *tools.ExtendedHelp {
	return &tools.ExtendedHelp{
		Examples: []tools.ToolExample{
			{
				Description:    "Encode text",
				Arguments:      map[string]any{"input": "SOS"},
				ExpectedResult: "... --- ...",
			},
			{
				Description:    "Decode a two word message",
				Arguments:      map[string]any{"input": ".... .. / - .... . .-. ."},
				ExpectedResult: "HI THERE",
			},
			{
				Description: "Encode and return a WAV tone at 15 wpm",
				Arguments:   map[string]any{"input": "CQ", "audio": true, "wpm": 15},
			},
		},
		CommonPatterns: []string{
			"Round trip: decoding then encoding gives back the same code for valid input",
		},
		Troubleshooting: []tools.TroubleshootingTip{
			{
				Problem:  "Decoded text still contains dots and dashes",
				Solution: "A letter group did not match any Morse symbol and was copied through; check for missing spaces between letters",
			},
			{
				Problem:  "Text with digits or dots is encoded instead of decoded",
				Solution: "auto only decodes input made of '.', '-', '/' and whitespace; set mode to decode to force it",
			},
		},
		ParameterDetails: map[string]string{
			"wpm":       "PARIS timing: one dot lasts 1200/wpm milliseconds.",
			"frequency": "Sine tone frequency; 500 to 800 Hz is comfortable to listen to.",
		},
		WhenToUse: "Translating Morse messages, or producing practice audio.",
	}
}
