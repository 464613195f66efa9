package callbacks

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/effective-security/funagent/conversation"
	"github.com/effective-security/funagent/mcp"
	"github.com/effective-security/funagent/pkg/llms"
	"github.com/effective-security/funagent/pkg/llmutils"
	"github.com/effective-security/xlog"
)

// ensure that the callbacks implement the correct interfaces
var (
	_ conversation.Callback = (*Noop)(nil)
	_ conversation.Callback = (*Printer)(nil)
	_ conversation.Callback = (*PackageLogger)(nil)
	_ conversation.Callback = (*Fanout)(nil)
	_ conversation.Callback = (*Scratchpad)(nil)
)

// Mode defines the mode for callback printing
type Mode int

const (
	// ModeDefault is the default mode for callback printing
	ModeDefault Mode = iota
	// ModeVerbose is the verbose mode for callback printing
	ModeVerbose
)

// Fanout is a callback handler that forwards the events to multiple callbacks.
type Fanout struct {
	callbacks []conversation.Callback
}

func NewFanout(callbacks ...conversation.Callback) *Fanout {
	return &Fanout{callbacks: callbacks}
}

func (l *Fanout) Add(callback conversation.Callback) {
	l.callbacks = append(l.callbacks, callback)
}

func (l *Fanout) OnTurnStart(ctx context.Context, input string) {
	for _, callback := range l.callbacks {
		callback.OnTurnStart(ctx, input)
	}
}

func (l *Fanout) OnTurnEnd(ctx context.Context, input, reply string) {
	for _, callback := range l.callbacks {
		callback.OnTurnEnd(ctx, input, reply)
	}
}

func (l *Fanout) OnTurnError(ctx context.Context, input string, err error) {
	for _, callback := range l.callbacks {
		callback.OnTurnError(ctx, input, err)
	}
}

func (l *Fanout) OnToolStart(ctx context.Context, call mcp.ToolCall) {
	for _, callback := range l.callbacks {
		callback.OnToolStart(ctx, call)
	}
}

func (l *Fanout) OnToolEnd(ctx context.Context, call mcp.ToolCall, output string) {
	for _, callback := range l.callbacks {
		callback.OnToolEnd(ctx, call, output)
	}
}

func (l *Fanout) OnLLMCallStart(ctx context.Context, llm llms.Model, messages []llms.Message) {
	for _, callback := range l.callbacks {
		callback.OnLLMCallStart(ctx, llm, messages)
	}
}

func (l *Fanout) OnLLMCallEnd(ctx context.Context, llm llms.Model, resp *llms.ContentResponse) {
	for _, callback := range l.callbacks {
		callback.OnLLMCallEnd(ctx, llm, resp)
	}
}

// Noop does nothing.
type Noop struct{}

func NewNoop() *Noop {
	return &Noop{}
}

func (l *Noop) OnTurnStart(ctx context.Context, input string) {}
func (l *Noop) OnTurnEnd(ctx context.Context, input, reply string) {}
func (l *Noop) OnTurnError(ctx context.Context, input string, err error) {}
func (l *Noop) OnToolStart(ctx context.Context, call mcp.ToolCall) {}
func (l *Noop) OnToolEnd(ctx context.Context, call mcp.ToolCall, output string) {}
func (l *Noop) OnLLMCallStart(ctx context.Context, llm llms.Model, messages []llms.Message) {
}
func (l *Noop) OnLLMCallEnd(ctx context.Context, llm llms.Model, resp *llms.ContentResponse) {
}

// Printer is a callback handler that prints to the Writer.
type Printer struct {
	Out  io.Writer
	Mode Mode

	lock sync.Mutex
}

func NewPrinter(out io.Writer, mode Mode) *Printer {
	return &Printer{Out: out, Mode: mode}
}

func (l *Printer) OnTurnStart(ctx context.Context, input string) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Turn Start\n")
	fmt.Fprintf(l.Out, "Input: %s\n", input)
}

func (l *Printer) OnTurnEnd(ctx context.Context, input, reply string) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Turn End\n")
	if l.Mode == ModeVerbose {
		fmt.Fprint(l.Out, llmutils.EnsureEndsWithNewline(reply))
	}
}

func (l *Printer) OnTurnError(ctx context.Context, input string, err error) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Turn Error: %s\n", err.Error())
}

func (l *Printer) OnToolStart(ctx context.Context, call mcp.ToolCall) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Tool Start: %s\n", call.Name)
	fmt.Fprintf(l.Out, "Input: %s\n", llmutils.ToJSON(call.Arguments))
}

func (l *Printer) OnToolEnd(ctx context.Context, call mcp.ToolCall, output string) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Tool End: %s\n", call.Name)
	if l.Mode == ModeVerbose {
		fmt.Fprintf(l.Out, "Output: %s", llmutils.EnsureEndsWithNewline(output))
	}
}

func (l *Printer) OnLLMCallStart(ctx context.Context, llm llms.Model, messages []llms.Message) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "LLM Call: %s model, %d messages\n", llm.GetName(), len(messages))
	if l.Mode == ModeVerbose {
		llmutils.PrintMessages(l.Out, messages)
	}
}

func (l *Printer) OnLLMCallEnd(ctx context.Context, llm llms.Model, resp *llms.ContentResponse) {
	l.lock.Lock()
	defer l.lock.Unlock()
	in, out := resp.TokenUsage()
	fmt.Fprintf(l.Out, "LLM Call End: %s model, %d input tokens, %d output tokens\n", llm.GetName(), in, out)
}

// PackageLogger is a callback handler that prints to the logger.
type PackageLogger struct {
	logger *xlog.PackageLogger
}

func NewPackageLogger(logger *xlog.PackageLogger) *PackageLogger {
	return &PackageLogger{logger: logger}
}

func (l *PackageLogger) OnTurnStart(ctx context.Context, input string) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "turn_start",
		"input", input,
	)
}

func (l *PackageLogger) OnTurnEnd(ctx context.Context, input, reply string) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "turn_end",
		"reply", reply,
	)
}

func (l *PackageLogger) OnTurnError(ctx context.Context, input string, err error) {
	l.logger.ContextKV(ctx, xlog.ERROR,
		"event", "turn_error",
		"input", input,
		"err", err.Error(),
	)
}

func (l *PackageLogger) OnToolStart(ctx context.Context, call mcp.ToolCall) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "tool_start",
		"tool", call.Name,
		"input", call.Arguments,
	)
}

func (l *PackageLogger) OnToolEnd(ctx context.Context, call mcp.ToolCall, output string) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "tool_end",
		"tool", call.Name,
		"output", output,
	)
}

func (l *PackageLogger) OnLLMCallStart(ctx context.Context, llm llms.Model, messages []llms.Message) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "llm_call_start",
		"model", llm.GetName(),
		"messages", len(messages),
	)
}

func (l *PackageLogger) OnLLMCallEnd(ctx context.Context, llm llms.Model, resp *llms.ContentResponse) {
	in, out := resp.TokenUsage()
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "llm_call_end",
		"model", llm.GetName(),
		"input_tokens", in,
		"output_tokens", out,
	)
}
