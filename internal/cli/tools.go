package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/devtoolshub/devtools-hub/internal/registry"
	"github.com/devtoolshub/devtools-hub/internal/tools"
	"github.com/mark3labs/mcp-go/mcp"
)

type toolSummary struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ListTools prints every served tool with the first line of its description
func (r *Runner) ListTools() error {
	summaries := []toolSummary{}
	for name, tool := range registry.GetEnabledTools() {
		summaries = append(summaries, toolSummary{Name: name, Description: firstLine(tool.Definition().Description)})
	}
	slices.SortFunc(summaries, func(a, b toolSummary) int { return strings.Compare(a.Name, b.Name) })

	if r.output == OutputJSON {
		return r.writeJSON(summaries)
	}
	tw := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	for _, s := range summaries {
		_, _ = fmt.Fprintf(tw, "%s\t%s\n", s.Name, s.Description)
	}
	return tw.Flush()
}

// HelpTool prints the parameters of a tool as the flags `tools run` accepts
func (r *Runner) HelpTool(name string) error {
	tool, err := resolveTool(name)
	if err != nil {
		return err
	}
	def := tool.Definition()
	if r.output == OutputJSON {
		return r.writeJSON(def)
	}

	_, _ = fmt.Fprintf(r.out, "Tool: %s\n\n", def.Name)
	if def.Description != "" {
		_, _ = fmt.Fprintf(r.out, "%s\n\n", def.Description)
	}
	params := toolParams(def)
	if len(params) == 0 {
		_, _ = fmt.Fprintln(r.out, "No parameters.")
		return nil
	}

	_, _ = fmt.Fprintln(r.out, "Parameters:")
	tw := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	for _, p := range params {
		line := firstLine(p.description)
		if p.required {
			line += " (required)"
		}
		if len(p.enum) > 0 {
			line += " [" + strings.Join(p.enum, ", ") + "]"
		}
		_, _ = fmt.Fprintf(tw, "  --%s\t%s\t%s\n", p.flag, p.kind, line)
	}
	return tw.Flush()
}

// RunTool runs a tool in-process with arguments given as --key=value or --key value
// flags, bare --flag for booleans, or one JSON object. Flags win over the JSON object.
func (r *Runner) RunTool(ctx context.Context, name string, args []string) error {
	tool, err := resolveTool(name)
	if err != nil {
		return err
	}
	params, err := parseArgs(args, toolParams(tool.Definition()))
	if err != nil {
		return fmt.Errorf("argument error: %w", err)
	}
	result, err := tool.Execute(ctx, r.logger, r.cache, params)
	if err != nil {
		return err
	}
	return r.renderResult(result)
}

// resolveTool finds a served tool by its registered name or the kebab-case spelling
func resolveTool(name string) (tools.Tool, error) {
	for _, candidate := range []string{name, strings.ReplaceAll(name, "-", "_")} {
		if tool, ok := registry.GetTool(candidate); ok {
			return tool, nil
		}
	}
	return nil, fmt.Errorf("unknown tool %q: run 'devtools-hub tools list' to see what is available", name)
}

// toolParam is one input schema property seen as a command-line flag
type toolParam struct {
	name        string
	flag        string
	kind        string
	description string
	required    bool
	enum        []string
}

// toolParams reads the input schema of def, sorted by name
func toolParams(def mcp.Tool) []toolParam {
	var params []toolParam
	for name, raw := range def.InputSchema.Properties {
		prop, _ := raw.(map[string]any)
		p := toolParam{
			name:     name,
			flag:     toFlagName(name),
			required: slices.Contains(def.InputSchema.Required, name),
		}
		p.kind, _ = prop["type"].(string)
		p.description, _ = prop["description"].(string)
		switch values := prop["enum"].(type) {
		case []string:
			p.enum = values
		case []any:
			for _, v := range values {
				p.enum = append(p.enum, fmt.Sprint(v))
			}
		}
		params = append(params, p)
	}
	slices.SortFunc(params, func(a, b toolParam) int { return strings.Compare(a.name, b.name) })
	return params
}

// lookupParam maps a flag to its parameter. Flags the schema does not know are passed
// through in snake_case.
func lookupParam(params []toolParam, flag string) toolParam {
	for _, p := range params {
		if p.flag == flag || p.name == flag {
			return p
		}
	}
	return toolParam{name: strings.ReplaceAll(flag, "-", "_")}
}

func parseArgs(args []string, params []toolParam) (map[string]any, error) {
	values := map[string]any{}
	var object map[string]any

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if strings.HasPrefix(arg, "{") {
			if err := json.Unmarshal([]byte(arg), &object); err != nil {
				return nil, fmt.Errorf("invalid JSON argument: %w", err)
			}
			continue
		}
		flag, ok := strings.CutPrefix(arg, "--")
		if !ok {
			return nil, fmt.Errorf("unexpected argument %q: pass --key=value flags or a JSON object", arg)
		}

		flag, raw, hasValue := strings.Cut(flag, "=")
		p := lookupParam(params, flag)
		switch {
		case hasValue:
		case p.kind == "boolean":
			raw = "true"
		case i+1 < len(args):
			i++
			raw = args[i]
		default:
			return nil, fmt.Errorf("flag --%s requires a value", flag)
		}
		values[p.name] = coerceValue(raw, p.kind)
	}

	for k, v := range object {
		if _, set := values[k]; !set {
			values[k] = v
		}
	}
	return values, nil
}

// coerceValue turns a flag value into what a decoded JSON request would carry for the
// schema type; numbers are float64. Values that do not parse stay strings.
func coerceValue(raw, kind string) any {
	var parsed any
	var err error
	switch kind {
	case "number", "integer":
		parsed, err = strconv.ParseFloat(raw, 64)
	case "boolean":
		parsed, err = strconv.ParseBool(raw)
	case "array":
		var list []any
		if err = json.Unmarshal([]byte(raw), &list); err != nil {
			return strings.Split(raw, ",")
		}
		parsed = list
	case "object":
		var obj map[string]any
		err = json.Unmarshal([]byte(raw), &obj)
		parsed = obj
	default:
		return raw
	}
	if err != nil {
		return raw
	}
	return parsed
}

// renderResult prints a tool result. An error result prints nothing: its text comes
// back as a *ConversionError for the caller to report.
func (r *Runner) renderResult(result *mcp.CallToolResult) error {
	switch {
	case result == nil:
		return nil
	case result.IsError:
		for _, content := range result.Content {
			if text, ok := content.(mcp.TextContent); ok {
				return &ConversionError{Text: text.Text}
			}
		}
		return errors.New("tool failed without a message")
	case r.output == OutputJSON:
		return r.writeJSON(result)
	}

	for _, content := range result.Content {
		switch c := content.(type) {
		case mcp.TextContent:
			_, _ = fmt.Fprintln(r.out, c.Text)
		case mcp.ImageContent:
			_, _ = fmt.Fprintf(r.out, "[%s image, %d base64 bytes]\n", c.MIMEType, len(c.Data))
		case mcp.AudioContent:
			_, _ = fmt.Fprintf(r.out, "[%s audio, %d base64 bytes]\n", c.MIMEType, len(c.Data))
		default:
			if err := r.writeJSON(c); err != nil {
				return err
			}
		}
	}
	return nil
}

// toFlagName turns snake_case and camelCase names into kebab-case
func toFlagName(name string) string {
	var b strings.Builder
	for i, c := range name {
		switch {
		case c == '_':
			b.WriteByte('-')
		case c >= 'A' && c <= 'Z':
			if i > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(c + 'a' - 'A')
		default:
			b.WriteRune(c)
		}
	}
	return b.String()
}
