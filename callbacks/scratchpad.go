package callbacks

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/effective-security/funagent/chatmodel"
	"github.com/effective-security/funagent/mcp"
	"github.com/effective-security/funagent/pkg/llms"
	"github.com/effective-security/funagent/pkg/llmutils"
)

var TimeNowFn = time.Now

// TurnStats are collected for one conversation turn.
type TurnStats struct {
	ChatID string
	RunID  string

	Duration        time.Duration
	Failed          bool
	ToolCalls       uint32
	LLMCalls        uint32
	TotalMessages   uint32
	LLMBytesOut     uint64
	LLMBytesIn      uint64
	LLMInputTokens  uint64
	LLMOutputTokens uint64
}

// Scratchpad records a transcript and stats for each turn.
// When Out is set, the transcript is written to it at the end of the turn.
type Scratchpad struct {
	Out io.Writer

	runs map[string]*run
	last *TurnStats
	mode Mode
	lock sync.Mutex
}

func NewScratchpad(out io.Writer, mode Mode) *Scratchpad {
	return &Scratchpad{
		Out:  out,
		runs: make(map[string]*run),
		mode: mode,
	}
}

// Last returns the stats of the last completed turn, or nil.
func (l *Scratchpad) Last() *TurnStats {
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.last == nil {
		return nil
	}
	stats := *l.last
	return &stats
}

func (l *Scratchpad) OnTurnStart(ctx context.Context, input string) {
	chatCtx := chatmodel.GetChatContext(ctx)
	if chatCtx == nil {
		return
	}

	r := &run{
		stats: TurnStats{
			ChatID: chatCtx.GetChatID(),
			RunID:  chatCtx.RunID(),
		},
		chatCtx: chatCtx,
		started: TimeNowFn(),
	}

	l.lock.Lock()
	l.runs[chatCtx.GetChatID()] = r
	l.lock.Unlock()

	r.print("*** Turn Started ***")
	r.print("Input:", input)
}

func (l *Scratchpad) OnTurnEnd(ctx context.Context, input, reply string) {
	r := l.getRun(ctx)
	if r == nil {
		return
	}
	if l.mode == ModeVerbose {
		r.print("Reply:", reply)
	}
	l.endRun(r)
}

func (l *Scratchpad) OnTurnError(ctx context.Context, input string, err error) {
	r := l.getRun(ctx)
	if r == nil {
		return
	}
	r.print("*** Error ***", err.Error())
	r.lock.Lock()
	r.stats.Failed = true
	r.lock.Unlock()
	l.endRun(r)
}

func (l *Scratchpad) OnToolStart(ctx context.Context, call mcp.ToolCall) {
	r := l.getRun(ctx)
	if r == nil {
		return
	}
	r.lock.Lock()
	r.stats.ToolCalls++
	r.lock.Unlock()
	r.print(call.Name, "*** Tool Start ***")
	r.print(call.Name, "Input:", llmutils.ToJSON(call.Arguments))
}

func (l *Scratchpad) OnToolEnd(ctx context.Context, call mcp.ToolCall, output string) {
	r := l.getRun(ctx)
	if r == nil {
		return
	}
	if l.mode == ModeVerbose {
		r.print(call.Name, "Output:", output)
	}
	r.print(call.Name, "*** Tool End ***")
}

func (l *Scratchpad) OnLLMCallStart(ctx context.Context, llm llms.Model, messages []llms.Message) {
	r := l.getRun(ctx)
	if r == nil {
		return
	}

	count := uint32(len(messages))
	r.lock.Lock()
	r.stats.LLMCalls++
	r.stats.TotalMessages += count
	r.stats.LLMBytesOut += llmutils.CountMessagesContentSize(messages)
	r.lock.Unlock()

	r.print("*** LLM Call ***", fmt.Sprintf("%s model, %d messages", llm.GetName(), count))
	if l.mode == ModeVerbose {
		var buf bytes.Buffer
		llmutils.PrintMessages(&buf, messages)
		r.print(buf.String())
	}
}

func (l *Scratchpad) OnLLMCallEnd(ctx context.Context, llm llms.Model, resp *llms.ContentResponse) {
	r := l.getRun(ctx)
	if r == nil {
		return
	}

	in, out := resp.TokenUsage()
	var size uint64
	for _, choice := range resp.Choices {
		if choice != nil {
			size += uint64(len(choice.Content))
		}
	}

	r.lock.Lock()
	r.stats.LLMInputTokens += uint64(in)
	r.stats.LLMOutputTokens += uint64(out)
	r.stats.LLMBytesIn += size
	r.lock.Unlock()

	r.print("*** LLM Call End ***", fmt.Sprintf("%s model, %d input tokens, %d output tokens", llm.GetName(), in, out))
}

func (l *Scratchpad) getRun(ctx context.Context) *run {
	chatCtx := chatmodel.GetChatContext(ctx)
	if chatCtx == nil {
		return nil
	}

	l.lock.Lock()
	defer l.lock.Unlock()
	return l.runs[chatCtx.GetChatID()]
}

func (l *Scratchpad) endRun(r *run) {
	r.lock.Lock()
	r.stats.Duration = TimeNowFn().Sub(r.started)
	stats := r.stats
	r.lock.Unlock()

	r.print(fmt.Sprintf("Tool calls: %d, LLM calls: %d, Messages: %d, Bytes Out: %d, Bytes In: %d, Input Tokens: %d, Output Tokens: %d",
		stats.ToolCalls,
		stats.LLMCalls,
		stats.TotalMessages,
		stats.LLMBytesOut,
		stats.LLMBytesIn,
		stats.LLMInputTokens,
		stats.LLMOutputTokens,
	))
	r.print(fmt.Sprintf("*** Turn Ended. Duration: %s ***", stats.Duration))

	l.lock.Lock()
	delete(l.runs, stats.ChatID)
	l.last = &stats
	l.lock.Unlock()

	if l.Out != nil {
		r.lock.Lock()
		_, _ = l.Out.Write(r.w.Bytes())
		r.lock.Unlock()
	}
}

type run struct {
	chatCtx chatmodel.ChatContext
	w       bytes.Buffer
	started time.Time
	lock    sync.Mutex
	stats   TurnStats
}

// print writes the entries to the run's output.
// The entries are written in the following format:
// [timestamp chatID.runID] entry entry\n
func (r *run) print(entries ...string) {
	r.lock.Lock()
	defer r.lock.Unlock()

	ts := TimeNowFn().Format("2006-01-02 15:04:05")

	_, _ = r.w.WriteString(ts)
	_, _ = r.w.WriteString(" ")
	_, _ = r.w.WriteString(r.chatCtx.GetChatID())
	_, _ = r.w.WriteString(".")
	_, _ = r.w.WriteString(r.chatCtx.RunID())
	_, _ = r.w.WriteString(" ")

	for i, entry := range entries {
		if i > 0 {
			_, _ = r.w.WriteString(" ")
		}
		_, _ = r.w.WriteString(entry)
	}
	_, _ = r.w.WriteString("\n")
}
