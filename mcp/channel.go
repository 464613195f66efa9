package mcp

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/funagent/pkg/llmutils"
	"github.com/effective-security/funagent/pkg/metricskey"
	"github.com/effective-security/xlog"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/funagent", "mcp")

const (
	// DefaultTimeout is the bound on a single invocation.
	DefaultTimeout = 20 * time.Second

	// ClientName is reported to the tool host in the handshake
	ClientName = "funagent"
	// ClientVersion is reported to the tool host in the handshake
	ClientVersion = "1.0.0"
)

var (
	// ErrNotInitialized is returned when Invoke is called before Initialize.
	ErrNotInitialized = errors.New("channel is not initialized")
	// ErrUnknownTool is returned when the tool is not in the registry snapshot.
	ErrUnknownTool = errors.New("unknown tool")
)

// Session is the client side of the connection to the tool host.
// *client.Client from mcp-go implements it.
type Session interface {
	Initialize(ctx context.Context, request mcpgo.InitializeRequest) (*mcpgo.InitializeResult, error)
	ListTools(ctx context.Context, request mcpgo.ListToolsRequest) (*mcpgo.ListToolsResult, error)
	CallTool(ctx context.Context, request mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error)
	Close() error
}

// Config specifies the invocation policy.
type Config struct {
	// Timeout is the bound on a single invocation, DefaultTimeout if not set
	Timeout time.Duration
	// Retries is the number of retries on transport faults.
	// Timeouts and remote errors are never retried.
	Retries int
}

// Channel invokes tools on the host over a Session.
// Only one invocation is outstanding at a time.
type Channel struct {
	session Session
	cfg     Config

	lock        sync.Mutex
	initialized bool
	server      string
	tools       []ToolDescriptor
	byName      map[string]ToolDescriptor
	// abandoned is closed when a timed out session call returns
	abandoned chan struct{}
}

// NewChannel returns a channel over the session.
func NewChannel(session Session, cfg Config) *Channel {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	cfg.Retries = max(cfg.Retries, 0)
	return &Channel{
		session: session,
		cfg:     cfg,
		byName:  make(map[string]ToolDescriptor),
	}
}

// Initialize performs the handshake and takes the snapshot of the tool registry.
func (c *Channel) Initialize(ctx context.Context) ([]ToolDescriptor, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	req := mcpgo.InitializeRequest{}
	req.Params.ProtocolVersion = mcpgo.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = mcpgo.Implementation{
		Name:    ClientName,
		Version: ClientVersion,
	}

	initRes, err := c.session.Initialize(ctx, req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize session")
	}

	list, err := c.session.ListTools(ctx, mcpgo.ListToolsRequest{})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list tools")
	}

	c.tools = make([]ToolDescriptor, 0, len(list.Tools))
	c.byName = make(map[string]ToolDescriptor, len(list.Tools))
	for _, t := range list.Tools {
		d := ToolDescriptor{
			Name:        t.Name,
			Description: t.Description,
		}
		c.tools = append(c.tools, d)
		c.byName[d.Name] = d
	}
	c.server = initRes.ServerInfo.Name
	c.initialized = true

	logger.KV(xlog.INFO,
		"status", "initialized",
		"server", c.server,
		"protocol", initRes.ProtocolVersion,
		"tools", len(c.tools))

	return slices.Clone(c.tools), nil
}

// Tools returns the registry snapshot taken at Initialize.
func (c *Channel) Tools() []ToolDescriptor {
	c.lock.Lock()
	defer c.lock.Unlock()
	return slices.Clone(c.tools)
}

// HasTool returns true if the tool is in the registry snapshot.
func (c *Channel) HasTool(name string) bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	_, ok := c.byName[name]
	return ok
}

// Invoke calls the tool and returns its result.
// Timeouts and faults are returned as failed results, not errors.
// An error is returned only for ErrNotInitialized and ErrUnknownTool.
func (c *Channel) Invoke(ctx context.Context, call ToolCall) (*ToolResult, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if !c.initialized {
		return nil, errors.WithStack(ErrNotInitialized)
	}
	if _, ok := c.byName[call.Name]; !ok {
		metricskey.StatsToolCallsNotFound.IncrCounter(1, call.Name)
		logger.ContextKV(ctx, xlog.WARNING,
			"status", "tool_not_found",
			"tool", call.Name,
			"server", c.server)
		return nil, errors.WithMessagef(ErrUnknownTool, "tool %q", call.Name)
	}

	started := time.Now()
	defer metricskey.PerfToolCall.MeasureSince(started, call.Name)

	res := c.call(ctx, call)
	for attempt := 1; res.Failure == FailureFault && attempt <= c.cfg.Retries && ctx.Err() == nil; attempt++ {
		logger.ContextKV(ctx, xlog.NOTICE,
			"status", "retry",
			"tool", call.Name,
			"attempt", attempt,
			"reason", res.Message)
		res = c.call(ctx, call)
	}

	switch res.Failure {
	case FailureNone:
		metricskey.StatsToolCallsSucceeded.IncrCounter(1, call.Name)
	case FailureTimeout:
		metricskey.StatsToolCallsTimedOut.IncrCounter(1, call.Name)
	default:
		metricskey.StatsToolCallsFailed.IncrCounter(1, call.Name)
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "invoked",
		"tool", call.Name,
		"failure", res.Failure,
		"elapsed", time.Since(started).String())

	return res, nil
}

type callReply struct {
	res *mcpgo.CallToolResult
	err error
}

// call runs one attempt bounded by the timeout.
// The session call runs in its own goroutine,
// so a session that ignores cancellation cannot block the caller.
// A timed out call stays outstanding until the session returns,
// and no new call is sent to the session before that.
func (c *Channel) call(ctx context.Context, call ToolCall) *ToolResult {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req := mcpgo.CallToolRequest{}
	req.Params.Name = call.Name
	req.Params.Arguments = call.Arguments

	if c.abandoned != nil {
		select {
		case <-c.abandoned:
			c.abandoned = nil
		case <-ctx.Done():
			logger.ContextKV(ctx, xlog.WARNING,
				"status", "outstanding",
				"tool", call.Name)
			return failure(call.Name, FailureTimeout, "previous call is still outstanding")
		}
	}

	done := make(chan callReply, 1)
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		res, err := c.session.CallTool(ctx, req)
		done <- callReply{res: res, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			if errors.Is(r.err, context.DeadlineExceeded) {
				return failure(call.Name, FailureTimeout, r.err.Error())
			}
			logger.ContextKV(ctx, xlog.ERROR,
				"tool", call.Name,
				"err", r.err.Error())
			return failure(call.Name, FailureFault, r.err.Error())
		}
		if r.res == nil {
			return failure(call.Name, FailureFault, "empty result")
		}
		text := RenderContent(r.res)
		if r.res.IsError {
			return failure(call.Name, FailureRemote, text)
		}
		return success(call.Name, text)
	case <-ctx.Done():
		c.abandoned = finished
		err := ctx.Err()
		if errors.Is(err, context.DeadlineExceeded) {
			logger.ContextKV(ctx, xlog.WARNING,
				"status", "timeout",
				"tool", call.Name,
				"timeout", c.cfg.Timeout.String())
			return failure(call.Name, FailureTimeout, err.Error())
		}
		return failure(call.Name, FailureFault, err.Error())
	}
}

// RenderContent concatenates the content fragments in order.
// A fragment without text is rendered as JSON,
// and a result without fragments is rendered as JSON of the whole result.
func RenderContent(res *mcpgo.CallToolResult) string {
	if len(res.Content) == 0 {
		return llmutils.ToJSON(res)
	}

	parts := make([]string, 0, len(res.Content))
	for _, content := range res.Content {
		switch v := content.(type) {
		case mcpgo.TextContent:
			parts = append(parts, v.Text)
		case *mcpgo.TextContent:
			parts = append(parts, v.Text)
		default:
			parts = append(parts, llmutils.ToJSON(content))
		}
	}
	return strings.Join(parts, "\n")
}

// Close closes the session.
func (c *Channel) Close() error {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.initialized = false
	return c.session.Close()
}
