package anthropic_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/effective-security/funagent/pkg/llms"
	"github.com/effective-security/funagent/pkg/llms/anthropic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	_, err := anthropic.New(anthropic.WithModel("claude-3-5-haiku-latest"))
	assert.ErrorIs(t, err, anthropic.ErrMissingToken)

	_, err = anthropic.New(anthropic.WithToken("fake-token"))
	assert.EqualError(t, err, "anthropic: model is required")

	llm, err := anthropic.New(
		anthropic.WithToken("fake-token"),
		anthropic.WithModel("claude-3-5-haiku-latest"),
		anthropic.WithBaseURL("https://custom.anthropic.com"),
		anthropic.WithHTTPClient(&http.Client{}),
		anthropic.WithMaxRetries(0),
	)
	require.NoError(t, err)
	assert.Equal(t, "claude-3-5-haiku-latest", llm.GetName())
	assert.Equal(t, llms.ProviderAnthropic, llm.GetProviderType())
}

func TestProcessMessages(t *testing.T) {
	t.Parallel()

	system, chat, err := anthropic.ProcessMessages([]llms.Message{
		llms.SystemMessage("persona"),
		llms.UserMessage("hi"),
		llms.AssistantMessage("hello"),
	})
	require.NoError(t, err)
	assert.Equal(t, "persona", system)
	assert.Len(t, chat, 2)

	_, _, err = anthropic.ProcessMessages([]llms.Message{{Role: "tool", Content: "x"}})
	assert.ErrorIs(t, err, llms.ErrUnexpectedRole)
}

func TestGenerateContent(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "fake-token", r.Header.Get("X-Api-Key"))
		_ = json.NewDecoder(r.Body).Decode(&got)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-3-5-haiku-latest",
			"content": [{"type": "text", "text": "Why did the dog sit in the shade? It did not want to be a hot dog."}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 21, "output_tokens": 17}
		}`))
	}))
	defer srv.Close()

	llm, err := anthropic.New(
		anthropic.WithToken("fake-token"),
		anthropic.WithModel("claude-3-5-haiku-latest"),
		anthropic.WithBaseURL(srv.URL),
		anthropic.WithMaxRetries(0),
	)
	require.NoError(t, err)

	resp, err := llm.GenerateContent(t.Context(), []llms.Message{
		llms.SystemMessage("persona"),
		llms.UserMessage("tell me a joke"),
	}, llms.WithTemperature(0.7))
	require.NoError(t, err)

	text, err := resp.Text()
	require.NoError(t, err)
	assert.Contains(t, text, "hot dog")
	assert.Equal(t, "end_turn", resp.Choices[0].StopReason)

	in, out := resp.TokenUsage()
	assert.Equal(t, int64(21), in)
	assert.Equal(t, int64(17), out)

	assert.Equal(t, "claude-3-5-haiku-latest", got["model"])
	assert.Equal(t, 0.7, got["temperature"])
	assert.NotNil(t, got["system"])
	msgs, ok := got["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, msgs, 1)
}
