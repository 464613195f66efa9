package tools

import (
	"context"
	"time"

	"github.com/effective-security/xlog"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Register adds the tool to the server.
func Register(srv *server.MCPServer, t ITool) {
	tool := mcpgo.NewToolWithRawSchema(t.Name(), t.Description(), t.Parameters().RawParameters())
	srv.AddTool(tool, Handler(t))
}

// Handler returns the server handler of the tool.
// A failed call is reported as an error result with the error payload.
func Handler(t ITool) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
		started := time.Now()
		text, err := t.Call(ctx, req.GetArguments())
		if err != nil {
			logger.ContextKV(ctx, xlog.ERROR,
				"tool", t.Name(),
				"err", err.Error())
			return mcpgo.NewToolResultError(ErrorJSON(err.Error())), nil
		}

		logger.ContextKV(ctx, xlog.DEBUG,
			"tool", t.Name(),
			"size", len(text),
			"elapsed", time.Since(started).String())
		return mcpgo.NewToolResultText(text), nil
	}
}
