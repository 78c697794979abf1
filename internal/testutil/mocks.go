package testutil

import (
	"context"
	"sync"

	"github.com/devtoolshub/devtools-hub/internal/cache"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"
)

// MockTool is a recorded tool with one required "input" argument. It answers every
// call with its result, or with its error when one is set.
type MockTool struct {
	name   string
	result *mcp.CallToolResult
	err    error

	mu   sync.Mutex
	seen []map[string]any
}

func NewMockTool(name string) *MockTool {
	return &MockTool{name: name, result: mcp.NewToolResultText("mock result")}
}

func (m *MockTool) WithError(err error) *MockTool {
	m.err = err
	return m
}

func (m *MockTool) WithResult(result *mcp.CallToolResult) *MockTool {
	m.result = result
	return m
}

func (m *MockTool) Definition() mcp.Tool {
	return mcp.NewTool(m.name,
		mcp.WithDescription("Test double"),
		mcp.WithString("input", mcp.Required(), mcp.Description("Anything")),
	)
}

func (m *MockTool) Execute(_ context.Context, _ *logrus.Logger, _ *cache.Cache, args map[string]any) (*mcp.CallToolResult, error) {
	m.mu.Lock()
	m.seen = append(m.seen, args)
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *MockTool) HistoryInput(args map[string]any) string {
	input, _ := args["input"].(string)
	return input
}

// Calls returns a copy of the arguments of every Execute so far
func (m *MockTool) Calls() []map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]map[string]any(nil), m.seen...)
}
