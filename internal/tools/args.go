package tools

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/devtoolshub/devtools-hub/internal/codec"
	"github.com/mark3labs/mcp-go/mcp"
)

// RequiredString returns args[name], failing when it is missing, not a string or blank
func RequiredString(args map[string]any, name string) (string, error) {
	raw, ok := args[name]
	if !ok || raw == nil {
		return "", fmt.Errorf("missing required parameter: %s", name)
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("parameter %s must be a string", name)
	}
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("parameter %s cannot be empty", name)
	}
	return s, nil
}

// OptionalString returns args[name] or def when it is absent or not a string
func OptionalString(args map[string]any, name, def string) string {
	if s, ok := args[name].(string); ok && s != "" {
		return s
	}
	return def
}

// OptionalInt reads a whole number, accepting JSON numbers and numeric strings
func OptionalInt(args map[string]any, name string, def int) (int, error) {
	raw, ok := args[name]
	if !ok || raw == nil {
		return def, nil
	}
	switch v := raw.(type) {
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("parameter %s must be a whole number", name)
		}
		return int(v), nil
	case int:
		return v, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return def, nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("parameter %s must be a number", name)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("parameter %s must be a number", name)
	}
}

// OptionalBool reads a boolean, accepting "true" and "false" strings
func OptionalBool(args map[string]any, name string, def bool) bool {
	switch v := args[name].(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

// ConversionError reports malformed input as an error result rather than a
// protocol error, with the "Error: ..." text the formatter pages display
func ConversionError(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(codec.ErrorText(err))
}

// NewToolResultJSON renders data as indented JSON text
func NewToolResultJSON(data any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}
