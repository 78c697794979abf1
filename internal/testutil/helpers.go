package testutil

import (
	"context"
	"encoding/base64"
	"io"
	"testing"
	"time"

	"github.com/devtoolshub/devtools-hub/internal/cache"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"
)

// CreateTestLogger creates a logger that discards everything below error
func CreateTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

// CreateTestCache creates a cache suitable for testing
func CreateTestCache() *cache.Cache {
	return cache.NewCache(time.Minute)
}

// CreateTestContext creates a context suitable for testing
func CreateTestContext() context.Context {
	return context.Background()
}

// ResultText returns the first text content of a tool result
func ResultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil {
		t.Fatal("Expected tool result, got nil")
	}
	for _, c := range result.Content {
		if text, ok := c.(mcp.TextContent); ok {
			return text.Text
		}
	}
	t.Fatalf("Expected text content in tool result, got %d items", len(result.Content))
	return ""
}

// ResultBinary returns the decoded bytes and MIME type of the first image or audio
// content of a tool result
func ResultBinary(t *testing.T, result *mcp.CallToolResult) ([]byte, string) {
	t.Helper()
	if result == nil {
		t.Fatal("Expected tool result, got nil")
	}
	for _, c := range result.Content {
		var data, mimeType string
		switch v := c.(type) {
		case mcp.ImageContent:
			data, mimeType = v.Data, v.MIMEType
		case mcp.AudioContent:
			data, mimeType = v.Data, v.MIMEType
		default:
			continue
		}
		raw, err := base64.StdEncoding.DecodeString(data)
		if err != nil {
			t.Fatalf("Binary content is not base64: %v", err)
		}
		return raw, mimeType
	}
	t.Fatal("Expected image or audio content in tool result")
	return nil, ""
}
