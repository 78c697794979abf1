package xmlconvert

import (
	"context"
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
	directionAuto      = "auto"
	directionXMLToJSON = "xml_to_json"
	directionJSONToXML = "json_to_xml"
	defaultIndent      = 2
)

// XMLConvertTool converts XML to JSON and back
type XMLConvertTool struct{}

func init() {
	registry.Register(&XMLConvertTool{})
}

// Definition returns the tool's definition for MCP registration
func (t *XMLConvertTool) Definition() mcp.Tool {
	return mcp.NewTool(
		"xml_convert",
		mcp.WithDescription("Convert XML to JSON or JSON to XML. Attributes become '-name' keys and mixed text becomes '#text'."),
		mcp.WithString("input",
			mcp.Required(),
			mcp.Description("XML or JSON document"),
		),
		mcp.WithString("direction",
			mcp.Description("Conversion direction; auto converts input starting with < to JSON and anything else to XML"),
			mcp.Enum(directionAuto, directionXMLToJSON, directionJSONToXML),
			mcp.DefaultString(directionAuto),
		),
		mcp.WithString("root_tag",
			mcp.Description("Root element for JSON to XML when the document does not have a single top-level key"),
			mcp.DefaultString("root"),
		),
		mcp.WithNumber("indent",
			mcp.Description("Spaces per indent level"),
			mcp.DefaultNumber(defaultIndent),
			mcp.Min(1),
			mcp.Max(8),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)
}

// Execute runs the conversion
func (t *XMLConvertTool) Execute(ctx context.Context, logger *logrus.Logger, _ *cache.Cache, args map[string]any) (*mcp.CallToolResult, error) {
	input, err := tools.RequiredString(args, "input")
	if err != nil {
		return nil, err
	}
	indent, err := tools.OptionalInt(args, "indent", defaultIndent)
	if err != nil {
		return nil, err
	}

	direction := strings.ToLower(tools.OptionalString(args, "direction", directionAuto))
	if direction == directionAuto {
		direction = directionJSONToXML
		if strings.HasPrefix(strings.TrimSpace(input), "<") {
			direction = directionXMLToJSON
		}
	}
	logger.WithField("direction", direction).Debug("Converting XML")

	var out string
	switch direction {
	case directionXMLToJSON:
		out, err = codec.XMLToJSON(input, indent)
	case directionJSONToXML:
		out, err = codec.JSONToXML(input, tools.OptionalString(args, "root_tag", ""), indent)
	default:
		return nil, fmt.Errorf("invalid direction %q: expected auto, xml_to_json or json_to_xml", direction)
	}
	if err != nil {
		return tools.ConversionError(err), nil
	}
	return mcp.NewToolResultText(out), nil
}

// HistoryInput returns the input saved to conversion history
func (t *XMLConvertTool) HistoryInput(args map[string]any) string {
	return tools.OptionalString(args, "input", "")
}

// ProvideExtendedInfo provides detailed usage information for the xml_convert tool
func (t *XMLConvertTool) ProvideExtendedInfo() *tools.ExtendedHelp {
	return &tools.ExtendedHelp{
		Examples: []tools.ToolExample{
			{
				Description:    "XML to JSON",
				Arguments:      map[string]any{"input": `<note><to>Tove</to><from>Jani</from></note>`},
				ExpectedResult: "{\n  \"note\": {\n    \"from\": \"Jani\",\n    \"to\": \"Tove\"\n  }\n}",
			},
			{
				Description: "JSON to XML with a custom root",
				Arguments:   map[string]any{"input": `{"a":1,"b":2}`, "direction": "json_to_xml", "root_tag": "config"},
			},
		},
		Troubleshooting: []tools.TroubleshootingTip{
			{
				Problem:  "Keys in the JSON output are not in document order",
				Solution: "XML to JSON output sorts keys; element order within a parent is not preserved",
			},
			{
				Problem:  "JSON arrays become repeated elements",
				Solution: "A key holding an array is written as one element per item; a top-level array uses <item> elements",
			},
		},
		ParameterDetails: map[string]string{
			"root_tag": "Used only for JSON to XML when the JSON is not an object with exactly one key.",
		},
		WhenToUse:    "Reading XML feeds or SOAP payloads as JSON, or producing XML fixtures from JSON.",
		WhenNotToUse: "For XML schema validation or XPath queries; this tool only converts.",
	}
}
