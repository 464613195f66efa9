package ollama_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/effective-security/funagent/pkg/llms"
	"github.com/effective-security/funagent/pkg/llms/ollama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Setenv("OLLAMA_HOST", "")

	llm, err := ollama.New()
	require.NoError(t, err)
	assert.Equal(t, ollama.DefaultModel, llm.GetName())
	assert.Equal(t, llms.ProviderOllama, llm.GetProviderType())

	llm, err = ollama.New(ollama.WithHost("127.0.0.1:11434"), ollama.WithModel("llama3.2"))
	require.NoError(t, err)
	assert.Equal(t, "llama3.2", llm.GetName())

	_, err = ollama.New(ollama.WithHost("http://bad host:1"))
	assert.Error(t, err)
}

func TestGenerateContent(t *testing.T) {
	var got struct {
		Model    string         `json:"model"`
		Stream   *bool          `json:"stream"`
		Options  map[string]any `json:"options"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&got)

		w.Header().Set("Content-Type", "application/x-ndjson")
		_, _ = w.Write([]byte(`{"model":"mistral:7b","message":{"role":"assistant","content":"Here is a joke!"},"done":true,"done_reason":"stop","prompt_eval_count":30,"eval_count":5}` + "\n"))
	}))
	defer srv.Close()

	llm, err := ollama.New(ollama.WithHost(srv.URL), ollama.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	resp, err := llm.GenerateContent(t.Context(), []llms.Message{
		llms.SystemMessage("persona"),
		llms.UserMessage("tell me a joke"),
	}, llms.WithTemperature(0.7))
	require.NoError(t, err)

	text, err := resp.Text()
	require.NoError(t, err)
	assert.Equal(t, "Here is a joke!", text)
	assert.Equal(t, "stop", resp.Choices[0].StopReason)

	in, out := resp.TokenUsage()
	assert.Equal(t, int64(30), in)
	assert.Equal(t, int64(5), out)

	assert.Equal(t, "mistral:7b", got.Model)
	require.NotNil(t, got.Stream)
	assert.False(t, *got.Stream)
	assert.Equal(t, 0.7, got.Options["temperature"])
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)

	_, err = llm.GenerateContent(t.Context(), []llms.Message{{Role: "tool", Content: "x"}})
	assert.ErrorIs(t, err, llms.ErrUnexpectedRole)
}

func TestGenerateContentServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model 'mistral:7b' not found"}`))
	}))
	defer srv.Close()

	llm, err := ollama.New(ollama.WithHost(srv.URL))
	require.NoError(t, err)

	_, err = llm.GenerateContent(t.Context(), []llms.Message{llms.UserMessage("hi")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
