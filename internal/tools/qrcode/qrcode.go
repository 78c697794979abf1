package qrcode

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/devtoolshub/devtools-hub/internal/cache"
	"github.com/devtoolshub/devtools-hub/internal/qr"
	"github.com/devtoolshub/devtools-hub/internal/registry"
	"github.com/devtoolshub/devtools-hub/internal/tools"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"
)

// QRCodeTool renders QR codes
type QRCodeTool struct{}

func init() {
	registry.Register(&QRCodeTool{})
}

// Definition returns the tool's definition for MCP registration
func (t *QRCodeTool) Definition() mcp.Tool {
	return mcp.NewTool(
		"qr_code",
		mcp.WithDescription("Generate a QR code as a PNG or JPEG image, SVG markup, a PNG data URL or terminal text."),
		mcp.WithString("text",
			mcp.Description("Text or URL to encode, at most 2048 bytes"),
			mcp.DefaultString(qr.DefaultText),
		),
		mcp.WithString("ecc",
			mcp.Description("Error correction level: L 7%, M 15%, Q 25%, H 30%"),
			mcp.Enum("L", "M", "Q", "H"),
			mcp.DefaultString("H"),
		),
		mcp.WithNumber("size",
			mcp.Description("Image width and height in pixels"),
			mcp.DefaultNumber(qr.DefaultSize),
			mcp.Min(qr.MinSize),
			mcp.Max(qr.MaxSize),
		),
		mcp.WithString("style",
			mcp.Description("Colour preset"),
			mcp.Enum("mono", "neo", "glass", "candy"),
			mcp.DefaultString(qr.DefaultStyle),
		),
		mcp.WithString("foreground",
			mcp.Description("Module colour as #RRGGBB, overrides the style"),
		),
		mcp.WithString("background",
			mcp.Description("Background colour as #RRGGBB, overrides the style"),
		),
		mcp.WithNumber("margin",
			mcp.Description("Quiet zone width in modules"),
			mcp.DefaultNumber(qr.DefaultMargin),
			mcp.Min(0),
			mcp.Max(qr.MaxMargin),
		),
		mcp.WithString("format",
			mcp.Description("Output format"),
			mcp.Enum(string(qr.FormatPNG), string(qr.FormatJPEG), string(qr.FormatSVG), string(qr.FormatTerminal), string(qr.FormatDataURL)),
			mcp.DefaultString(string(qr.FormatPNG)),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)
}

// Execute renders the code
func (t *QRCodeTool) Execute(ctx context.Context, logger *logrus.Logger, c *cache.Cache, args map[string]any) (*mcp.CallToolResult, error) {
	size, err := tools.OptionalInt(args, "size", qr.DefaultSize)
	if err != nil {
		return nil, err
	}
	opts := qr.Options{
		Text:       tools.OptionalString(args, "text", ""),
		Level:      tools.OptionalString(args, "ecc", ""),
		Size:       size,
		Style:      tools.OptionalString(args, "style", ""),
		Foreground: tools.OptionalString(args, "foreground", ""),
		Background: tools.OptionalString(args, "background", ""),
		Format:     qr.Format(tools.OptionalString(args, "format", "")),
	}
	if _, ok := args["margin"]; ok {
		margin, err := tools.OptionalInt(args, "margin", qr.DefaultMargin)
		if err != nil {
			return nil, err
		}
		opts.Margin = &margin
	}

	img, err := qr.NewRenderer(c, logger).Render(ctx, opts)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return tools.ConversionError(err), nil
	}

	if img.IsText() {
		return mcp.NewToolResultText(string(img.Data)), nil
	}
	summary := fmt.Sprintf("QR code, %d modules including margin, %s", img.Modules, img.MIMEType)
	return mcp.NewToolResultImage(summary, base64.StdEncoding.EncodeToString(img.Data), img.MIMEType), nil
}

// ProvideExtendedInfo provides detailed usage information for the qr_code tool
func (t *QRCodeTool) ProvideExtendedInfo() *tools.ExtendedHelp {
	return &tools.ExtendedHelp{
		Examples: []tools.ToolExample{
			{
				Description: "PNG for a URL",
				Arguments:   map[string]any{"text": "https://example.com"},
			},
			{
				Description: "SVG with the candy style",
				Arguments:   map[string]any{"text": "hello", "style": "candy", "format": "svg"},
			},
			{
				Description: "Print in a terminal",
				Arguments:   map[string]any{"text": "WIFI:T:WPA;S:home;P:secret;;", "format": "terminal", "ecc": "M"},
			},
		},
		CommonPatterns: []string{
			"Use ecc H when a logo will be placed over the code",
			"Use svg for print, png for screens",
		},
		Troubleshooting: []tools.TroubleshootingTip{
			{
				Problem:  "Error: text is too long to encode",
				Solution: "Shorten the text or use a lower ecc level; QR capacity drops sharply at H",
			},
			{
				Problem:  "The code does not scan",
				Solution: "Keep strong contrast between foreground and background and a margin of at least 2 modules",
			},
		},
		ParameterDetails: map[string]string{
			"size":   "Clamped to 64..2048. Small sizes grow to at least one pixel per module.",
			"format": "terminal draws light modules so it scans on a dark background.",
		},
		WhenToUse: "Sharing URLs, Wi-Fi credentials or short text with a phone.",
	}
}
