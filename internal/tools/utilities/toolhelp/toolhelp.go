package toolhelp

import (
	"context"
	"fmt"
	"strings"

	"github.com/devtoolshub/devtools-hub/internal/cache"
	"github.com/devtoolshub/devtools-hub/internal/catalog"
	"github.com/devtoolshub/devtools-hub/internal/registry"
	"github.com/devtoolshub/devtools-hub/internal/tools"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sahilm/fuzzy"
	"github.com/sirupsen/logrus"
)

const maxSuggestions = 3

// ToolHelpTool returns the extended help of other tools
type ToolHelpTool struct{}

// init registers the tool with the registry
func init() {
	registry.Register(&ToolHelpTool{})
}

// Definition returns the tool's definition for MCP registration
func (t *ToolHelpTool) Definition() mcp.Tool {
	toolsWithExtendedHelp := registry.GetToolNamesWithExtendedHelp()

	description := "Get examples, parameter details and troubleshooting tips for a tool, useful after an unexpected error."
	if len(toolsWithExtendedHelp) == 0 {
		description = "No tools currently provide extended help information."
		toolsWithExtendedHelp = []string{}
	}

	return mcp.NewTool(
		"get_tool_help",
		mcp.WithDescription(description),
		mcp.WithString("tool_name",
			mcp.Required(),
			mcp.Description("Name of the tool to get help for"),
			mcp.Enum(toolsWithExtendedHelp...),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)
}

// Execute executes the get_tool_help tool
func (t *ToolHelpTool) Execute(ctx context.Context, logger *logrus.Logger, _ *cache.Cache, args map[string]any) (*mcp.CallToolResult, error) {
	toolName, err := tools.RequiredString(args, "tool_name")
	if err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}
	toolName = strings.TrimSpace(toolName)

	tool, exists := registry.GetTool(toolName)
	var provider tools.ExtendedHelpProvider
	if exists {
		provider, exists = tool.(tools.ExtendedHelpProvider)
	}
	if !exists {
		available := registry.GetToolNamesWithExtendedHelp()
		msg := fmt.Sprintf("tool '%s' not found, disabled, or does not provide extended help. Tools with extended help: %s",
			toolName, strings.Join(available, ", "))
		if suggestions := suggest(toolName, available); len(suggestions) > 0 {
			msg += fmt.Sprintf(". Did you mean: %s?", strings.Join(suggestions, ", "))
		}
		logger.WithField("tool", toolName).Debug("Help requested for unknown tool")
		return mcp.NewToolResultError(msg), nil
	}

	definition := tool.Definition()
	response := &ToolHelpResponse{
		ToolName:     toolName,
		Description:  definition.Description,
		WebPages:     webPages(toolName),
		ExtendedInfo: provider.ProvideExtendedInfo(),
	}
	if definition.InputSchema.Type != "" {
		response.InputSchema = definition.InputSchema
	}
	return tools.NewToolResultJSON(response)
}

// suggest returns the closest tool names. Underscores are dropped from the query so
// "jsonformat" still finds json_format.
func suggest(query string, names []string) []string {
	query = strings.ToLower(strings.ReplaceAll(query, "_", ""))
	if query == "" {
		return nil
	}
	var out []string
	for _, m := range fuzzy.Find(query, names) {
		if len(out) == maxSuggestions {
			break
		}
		out = append(out, m.Str)
	}
	return out
}

// webPages lists the catalogue slugs served by toolName
func webPages(toolName string) []string {
	var slugs []string
	for _, e := range catalog.Entries() {
		if e.Tool == toolName {
			slugs = append(slugs, "/"+e.Slug)
		}
	}
	return slugs
}
