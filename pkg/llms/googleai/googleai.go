// Package googleai implements llms.Model for Google AI Gemini models.
// See https://ai.google.dev/ for more details.
package googleai

import (
	"context"
	"net/http"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/funagent/pkg/llms"
	"github.com/effective-security/x/values"
	"google.golang.org/genai"
)

const (
	// TokenEnvVarName is the environment variable with the API key.
	TokenEnvVarName = "GOOGLEAI_TOKEN" //nolint:gosec
	// DefaultModel is used when no model is configured.
	DefaultModel = "gemini-2.0-flash"
)

var (
	ErrMissingToken        = errors.New("googleai: missing API key, set it in the GOOGLEAI_TOKEN environment variable")
	ErrNoContentInResponse = errors.New("googleai: no content in generation response")
)

// Options for the GoogleAI client.
type Options struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

type Option func(*Options)

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(o *Options) {
		o.APIKey = key
	}
}

// WithModel sets the default model.
func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// WithBaseURL overrides the API endpoint.
func WithBaseURL(baseURL string) Option {
	return func(o *Options) {
		o.BaseURL = baseURL
	}
}

// WithHTTPClient allows setting a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(o *Options) {
		o.HTTPClient = client
	}
}

// GoogleAI is a type that represents a Google AI API client.
type GoogleAI struct {
	client *genai.Client
	opts   Options
}

var _ llms.Model = (*GoogleAI)(nil)

// New creates a new GoogleAI client.
func New(ctx context.Context, opts ...Option) (*GoogleAI, error) {
	o := Options{
		APIKey: os.Getenv(TokenEnvVarName),
		Model:  DefaultModel,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.APIKey == "" {
		return nil, ErrMissingToken
	}

	cfg := &genai.ClientConfig{
		APIKey:     o.APIKey,
		HTTPClient: o.HTTPClient,
		Backend:    genai.BackendGeminiAPI,
	}
	if o.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: o.BaseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "googleai: failed to create client")
	}
	return &GoogleAI{
		client: client,
		opts:   o,
	}, nil
}

// GetName implements the Model interface.
func (g *GoogleAI) GetName() string {
	return g.opts.Model
}

// GetProviderType implements the Model interface.
func (g *GoogleAI) GetProviderType() llms.ProviderType {
	return llms.ProviderGoogleAI
}

// GenerateContent implements the [llms.Model] interface.
func (g *GoogleAI) GenerateContent(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.NewCallOptions(llms.CallOptions{Model: g.opts.Model}, options...)

	system, contents, err := ToContents(messages)
	if err != nil {
		return nil, err
	}

	callCfg := &genai.GenerateContentConfig{
		StopSequences: opts.StopWords,
	}
	if system != "" {
		callCfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if opts.Temperature > 0 {
		callCfg.Temperature = genai.Ptr(float32(opts.Temperature))
	}
	if opts.TopP > 0 {
		callCfg.TopP = genai.Ptr(float32(opts.TopP))
	}
	if opts.MaxTokens > 0 {
		callCfg.MaxOutputTokens = int32(opts.MaxTokens)
	}

	resp, err := g.client.Models.GenerateContent(ctx, values.StringsCoalesce(opts.Model, DefaultModel), contents, callCfg)
	if err != nil {
		return nil, errors.Wrap(err, "googleai: failed to generate content")
	}
	if len(resp.Candidates) == 0 {
		return nil, ErrNoContentInResponse
	}

	var in, out int32
	if resp.UsageMetadata != nil {
		in = resp.UsageMetadata.PromptTokenCount
		out = resp.UsageMetadata.CandidatesTokenCount
	}

	choices := make([]*llms.ContentChoice, 0, len(resp.Candidates))
	for i, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		var text strings.Builder
		for _, p := range c.Content.Parts {
			if p != nil && !p.Thought {
				text.WriteString(p.Text)
			}
		}
		choices = append(choices, &llms.ContentChoice{
			Content:    text.String(),
			StopReason: string(c.FinishReason),
			GenerationInfo: map[string]any{
				"InputTokens":  in,
				"OutputTokens": out,
				"Index":        i,
			},
		})
	}
	if len(choices) == 0 {
		return nil, ErrNoContentInResponse
	}
	return &llms.ContentResponse{Choices: choices}, nil
}

// ToContents returns the system instruction and the conversation contents.
func ToContents(messages []llms.Message) (string, []*genai.Content, error) {
	system, rest := llms.SplitSystem(messages)
	contents := make([]*genai.Content, 0, len(rest))
	for _, m := range rest {
		switch m.Role {
		case llms.RoleUser:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		case llms.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			return "", nil, errors.WithMessagef(llms.ErrUnexpectedRole, "googleai: role %q", m.Role)
		}
	}
	return system, contents, nil
}
