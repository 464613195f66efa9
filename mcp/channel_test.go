package mcp_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/funagent/mcp"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer() *server.MCPServer {
	srv := server.NewMCPServer("TestTools", "1.0.0", server.WithToolCapabilities(false))

	srv.AddTool(mcpgo.NewTool("echo",
		mcpgo.WithDescription("Echo the text"),
		mcpgo.WithString("text", mcpgo.Required()),
	), func(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
		text, _ := req.GetArguments()["text"].(string)
		return mcpgo.NewToolResultText(text), nil
	})

	srv.AddTool(mcpgo.NewTool("fragments",
		mcpgo.WithDescription("Return several fragments"),
	), func(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
		return &mcpgo.CallToolResult{
			Content: []mcpgo.Content{
				mcpgo.NewTextContent("first"),
				mcpgo.NewImageContent("aGk=", "image/png"),
				mcpgo.NewTextContent("last"),
			},
		}, nil
	})

	srv.AddTool(mcpgo.NewTool("remote-error",
		mcpgo.WithDescription("Report an error result"),
	), func(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
		return mcpgo.NewToolResultError("upstream is down"), nil
	})

	srv.AddTool(mcpgo.NewTool("broken",
		mcpgo.WithDescription("Fail in the handler"),
	), func(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
		return nil, errors.New("handler exploded")
	})

	return srv
}

func TestChannel_InProcess(t *testing.T) {
	ctx := context.Background()

	ch, err := mcp.NewInProcess(ctx, newTestServer(), mcp.Config{})
	require.NoError(t, err)
	defer ch.Close()

	_, err = ch.Invoke(ctx, mcp.NewToolCall("echo", nil))
	assert.ErrorIs(t, err, mcp.ErrNotInitialized)

	tools, err := ch.Initialize(ctx)
	require.NoError(t, err)
	require.Len(t, tools, 4)
	assert.True(t, ch.HasTool("echo"))
	assert.False(t, ch.HasTool("weather"))
	assert.Equal(t, tools, ch.Tools())

	t.Run("text", func(t *testing.T) {
		res, err := ch.Invoke(ctx, mcp.NewToolCall("echo", map[string]any{"text": "hello"}))
		require.NoError(t, err)
		assert.False(t, res.Failed())
		assert.Equal(t, "hello", res.String())
		assert.Equal(t, "echo", res.Tool)
	})

	t.Run("fragments", func(t *testing.T) {
		res, err := ch.Invoke(ctx, mcp.NewToolCall("fragments", nil))
		require.NoError(t, err)
		require.False(t, res.Failed())
		assert.Contains(t, res.Text, "first\n")
		assert.Contains(t, res.Text, `"mimeType":"image/png"`)
		assert.Contains(t, res.Text, "\nlast")
	})

	t.Run("remote error", func(t *testing.T) {
		res, err := ch.Invoke(ctx, mcp.NewToolCall("remote-error", nil))
		require.NoError(t, err)
		assert.Equal(t, mcp.FailureRemote, res.Failure)
		assert.Equal(t, "[Error: upstream is down]", res.String())
	})

	t.Run("fault", func(t *testing.T) {
		res, err := ch.Invoke(ctx, mcp.NewToolCall("broken", nil))
		require.NoError(t, err)
		assert.Equal(t, mcp.FailureFault, res.Failure)
		assert.Contains(t, res.String(), "handler exploded")
		assert.Contains(t, res.String(), "[Error: ")
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := ch.Invoke(ctx, mcp.NewToolCall("weather", nil))
		assert.ErrorIs(t, err, mcp.ErrUnknownTool)
		assert.Contains(t, err.Error(), `"weather"`)
	})
}

// fakeSession lists the given tools and delegates CallTool.
type fakeSession struct {
	tools []string
	call  func(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error)
	calls atomic.Int32
}

func (s *fakeSession) Initialize(ctx context.Context, request mcpgo.InitializeRequest) (*mcpgo.InitializeResult, error) {
	res := &mcpgo.InitializeResult{}
	res.ServerInfo.Name = "fake"
	res.ProtocolVersion = request.Params.ProtocolVersion
	return res, nil
}

func (s *fakeSession) ListTools(ctx context.Context, request mcpgo.ListToolsRequest) (*mcpgo.ListToolsResult, error) {
	res := &mcpgo.ListToolsResult{}
	for _, name := range s.tools {
		res.Tools = append(res.Tools, mcpgo.NewTool(name))
	}
	return res, nil
}

func (s *fakeSession) CallTool(ctx context.Context, request mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	s.calls.Add(1)
	return s.call(ctx, request)
}

func (s *fakeSession) Close() error {
	return nil
}

func TestChannel_Timeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	sess := &fakeSession{
		tools: []string{"slow"},
		// ignores the context
		call: func(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
			<-release
			return mcpgo.NewToolResultText("too late"), nil
		},
	}

	timeout := 50 * time.Millisecond
	ch := mcp.NewChannel(sess, mcp.Config{Timeout: timeout, Retries: 3})
	_, err := ch.Initialize(context.Background())
	require.NoError(t, err)

	started := time.Now()
	res, err := ch.Invoke(context.Background(), mcp.NewToolCall("slow", nil))
	elapsed := time.Since(started)
	require.NoError(t, err)

	assert.Equal(t, mcp.FailureTimeout, res.Failure)
	assert.Equal(t, "[Error: 'slow' timed out]", res.String())
	assert.GreaterOrEqual(t, elapsed, timeout)
	assert.Less(t, elapsed, timeout+time.Second)
	// timeouts are not retried
	assert.Equal(t, int32(1), sess.calls.Load())
}

func TestChannel_OneOutstandingCall(t *testing.T) {
	release := make(chan struct{})
	var active, peak atomic.Int32

	sess := &fakeSession{
		tools: []string{"stuck"},
		// ignores the context until released
		call: func(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
			n := active.Add(1)
			defer active.Add(-1)
			if n > peak.Load() {
				peak.Store(n)
			}
			<-release
			return mcpgo.NewToolResultText("done"), nil
		},
	}

	ch := mcp.NewChannel(sess, mcp.Config{Timeout: 100 * time.Millisecond})
	_, err := ch.Initialize(context.Background())
	require.NoError(t, err)

	res, err := ch.Invoke(context.Background(), mcp.NewToolCall("stuck", nil))
	require.NoError(t, err)
	assert.Equal(t, mcp.FailureTimeout, res.Failure)

	// the first call is still running, nothing new reaches the session
	res, err = ch.Invoke(context.Background(), mcp.NewToolCall("stuck", nil))
	require.NoError(t, err)
	assert.Equal(t, mcp.FailureTimeout, res.Failure)
	assert.Equal(t, "[Error: 'stuck' timed out]", res.String())
	assert.Equal(t, int32(1), sess.calls.Load())

	close(release)

	res, err = ch.Invoke(context.Background(), mcp.NewToolCall("stuck", nil))
	require.NoError(t, err)
	assert.False(t, res.Failed())
	assert.Equal(t, "done", res.Text)
	assert.Equal(t, int32(2), sess.calls.Load())
	assert.Equal(t, int32(1), peak.Load())
}

func TestChannel_TimeoutFromSession(t *testing.T) {
	sess := &fakeSession{
		tools: []string{"slow"},
		call: func(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
			<-ctx.Done()
			return nil, errors.Wrap(ctx.Err(), "transport")
		},
	}

	ch := mcp.NewChannel(sess, mcp.Config{Timeout: 20 * time.Millisecond})
	_, err := ch.Initialize(context.Background())
	require.NoError(t, err)

	res, err := ch.Invoke(context.Background(), mcp.NewToolCall("slow", nil))
	require.NoError(t, err)
	assert.Equal(t, mcp.FailureTimeout, res.Failure)
}

func TestChannel_Retries(t *testing.T) {
	sess := &fakeSession{tools: []string{"flaky"}}
	sess.call = func(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
		if sess.calls.Load() < 3 {
			return nil, errors.New("connection reset")
		}
		return mcpgo.NewToolResultText("ok"), nil
	}

	t.Run("zero retries by default", func(t *testing.T) {
		sess.calls.Store(0)
		ch := mcp.NewChannel(sess, mcp.Config{})
		_, err := ch.Initialize(context.Background())
		require.NoError(t, err)

		res, err := ch.Invoke(context.Background(), mcp.NewToolCall("flaky", nil))
		require.NoError(t, err)
		assert.Equal(t, mcp.FailureFault, res.Failure)
		assert.Equal(t, "[Error: connection reset]", res.String())
		assert.Equal(t, int32(1), sess.calls.Load())
	})

	t.Run("retry faults", func(t *testing.T) {
		sess.calls.Store(0)
		ch := mcp.NewChannel(sess, mcp.Config{Retries: 2})
		_, err := ch.Initialize(context.Background())
		require.NoError(t, err)

		res, err := ch.Invoke(context.Background(), mcp.NewToolCall("flaky", nil))
		require.NoError(t, err)
		assert.False(t, res.Failed())
		assert.Equal(t, "ok", res.Text)
		assert.Equal(t, int32(3), sess.calls.Load())
	})
}

func TestChannel_EmptyContent(t *testing.T) {
	sess := &fakeSession{
		tools: []string{"empty"},
		call: func(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
			return &mcpgo.CallToolResult{}, nil
		},
	}
	ch := mcp.NewChannel(sess, mcp.Config{})
	_, err := ch.Initialize(context.Background())
	require.NoError(t, err)

	res, err := ch.Invoke(context.Background(), mcp.NewToolCall("empty", nil))
	require.NoError(t, err)
	assert.False(t, res.Failed())
	assert.Contains(t, res.Text, `"content"`)
}

func TestToolResult_String(t *testing.T) {
	tcases := []struct {
		res *mcp.ToolResult
		exp string
	}{
		{&mcp.ToolResult{Tool: "joke", Text: `{"joke":"hi"}`}, `{"joke":"hi"}`},
		{&mcp.ToolResult{Tool: "joke", Failure: mcp.FailureTimeout}, `[Error: 'joke' timed out]`},
		{&mcp.ToolResult{Tool: "joke", Failure: mcp.FailureFault, Message: "EOF"}, `[Error: EOF]`},
		{&mcp.ToolResult{Tool: "joke", Failure: mcp.FailureRemote, Message: "bad"}, `[Error: bad]`},
	}
	for _, tc := range tcases {
		assert.Equal(t, tc.exp, tc.res.String())
	}

	assert.Equal(t, "timeout", mcp.FailureTimeout.String())
	assert.Equal(t, "Failure(9)", mcp.Failure(9).String())
}

func TestNewToolCall(t *testing.T) {
	args := map[string]any{"city": "Paris"}
	call := mcp.NewToolCall("city-to-coordinates", args)
	args["city"] = "Rome"
	assert.Equal(t, "Paris", call.Arguments["city"])

	call = mcp.NewToolCall("random-joke", nil)
	assert.NotNil(t, call.Arguments)
	assert.Empty(t, call.Arguments)
}

func TestLaunch(t *testing.T) {
	_, err := mcp.Launch(mcp.HostConfig{}, mcp.Config{})
	assert.EqualError(t, err, "tool host command is required")
}
