package toolhelp

import "github.com/devtoolshub/devtools-hub/internal/tools"

// ToolHelpResponse is the get_tool_help output
type ToolHelpResponse struct {
	ToolName     string              `json:"tool_name"`
	Description  string              `json:"description"`
	InputSchema  any                 `json:"input_schema,omitempty"`
	WebPages     []string            `json:"web_pages,omitempty"`
	ExtendedInfo *tools.ExtendedHelp `json:"extended_info,omitempty"`
}
