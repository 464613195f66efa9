package conversation

import (
	"context"

	"github.com/effective-security/funagent/mcp"
	"github.com/effective-security/funagent/pkg/llms"
)

// Callback receives the events of a conversation turn.
// The callbacks package provides the printer, logger and fanout handlers.
type Callback interface {
	OnTurnStart(ctx context.Context, input string)
	OnTurnEnd(ctx context.Context, input, reply string)
	OnTurnError(ctx context.Context, input string, err error)
	// OnToolStart is called with the detected call,
	// for a pipeline the call is named after the pipeline
	OnToolStart(ctx context.Context, call mcp.ToolCall)
	OnToolEnd(ctx context.Context, call mcp.ToolCall, output string)
	OnLLMCallStart(ctx context.Context, llm llms.Model, messages []llms.Message)
	OnLLMCallEnd(ctx context.Context, llm llms.Model, resp *llms.ContentResponse)
}

type noopCallback struct{}

func (noopCallback) OnTurnStart(context.Context, string) {}
func (noopCallback) OnTurnEnd(context.Context, string, string) {}
func (noopCallback) OnTurnError(context.Context, string, error) {}
func (noopCallback) OnToolStart(context.Context, mcp.ToolCall) {}
func (noopCallback) OnToolEnd(context.Context, mcp.ToolCall, string) {}
func (noopCallback) OnLLMCallStart(context.Context, llms.Model, []llms.Message) {}
func (noopCallback) OnLLMCallEnd(context.Context, llms.Model, *llms.ContentResponse) {}
