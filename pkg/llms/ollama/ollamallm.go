// Package ollama implements llms.Model over a local Ollama server.
package ollama

import (
	"context"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/funagent/pkg/llms"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
	ollama "github.com/ollama/ollama/api"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/funagent/pkg/llms", "ollama")

const (
	// HostEnvVarName is the environment variable with the server address.
	HostEnvVarName = "OLLAMA_HOST"
	// DefaultHost is used when neither an option nor OLLAMA_HOST is set.
	DefaultHost = "http://localhost:11434"
	// DefaultModel is the model name used when none is configured.
	DefaultModel = "mistral:7b"
)

var ErrEmptyResponse = errors.New("ollama: no response")

type LLM struct {
	client *ollama.Client
	opts   *Options
}

var _ llms.Model = (*LLM)(nil)

// New returns a new LLM for the Ollama chat endpoint.
func New(opts ...Option) (*LLM, error) {
	o := &Options{
		Host:  os.Getenv(HostEnvVarName),
		Model: DefaultModel,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.Host = values.StringsCoalesce(o.Host, DefaultHost)
	if !strings.Contains(o.Host, "://") {
		o.Host = "http://" + o.Host
	}

	u, err := url.Parse(o.Host)
	if err != nil {
		return nil, errors.Wrapf(err, "ollama: invalid host %q", o.Host)
	}

	hc := o.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 2 * time.Minute}
	}

	return &LLM{
		client: ollama.NewClient(u, hc),
		opts:   o,
	}, nil
}

// GetName implements the Model interface.
func (o *LLM) GetName() string {
	return o.opts.Model
}

// GetProviderType implements the Model interface.
func (o *LLM) GetProviderType() llms.ProviderType {
	return llms.ProviderOllama
}

// GenerateContent implements the Model interface.
// The request is not streamed: the reply is collected and returned as one choice.
func (o *LLM) GenerateContent(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.NewCallOptions(llms.CallOptions{Model: o.opts.Model}, options...)

	msgs := make([]ollama.Message, 0, len(messages))
	for _, m := range messages {
		if err := m.Validate(); err != nil {
			return nil, errors.WithMessage(err, "ollama")
		}
		msgs = append(msgs, ollama.Message{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}

	stream := false
	req := &ollama.ChatRequest{
		Model:    opts.Model,
		Messages: msgs,
		Stream:   &stream,
		Options:  requestOptions(&opts),
	}

	var (
		text strings.Builder
		last ollama.ChatResponse
	)
	err := o.client.Chat(ctx, req, func(resp ollama.ChatResponse) error {
		text.WriteString(resp.Message.Content)
		last = resp
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "ollama: chat failed")
	}
	if text.Len() == 0 && !last.Done {
		return nil, ErrEmptyResponse
	}

	logger.KV(xlog.DEBUG,
		"status", "chat_done",
		"model", last.Model,
		"reason", last.DoneReason,
		"prompt_tokens", last.PromptEvalCount,
		"eval_tokens", last.EvalCount)

	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{
			{
				Content:    text.String(),
				StopReason: last.DoneReason,
				GenerationInfo: map[string]any{
					"InputTokens":  last.PromptEvalCount,
					"OutputTokens": last.EvalCount,
					"Model":        last.Model,
				},
			},
		},
	}, nil
}

func requestOptions(opts *llms.CallOptions) map[string]any {
	res := map[string]any{}
	if opts.Temperature > 0 {
		res["temperature"] = opts.Temperature
	}
	if opts.TopP > 0 {
		res["top_p"] = opts.TopP
	}
	if opts.MaxTokens > 0 {
		res["num_predict"] = opts.MaxTokens
	}
	if opts.Seed != 0 {
		res["seed"] = opts.Seed
	}
	if len(opts.StopWords) > 0 {
		res["stop"] = opts.StopWords
	}
	return res
}
