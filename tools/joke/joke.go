package joke

import (
	"context"

	"github.com/effective-security/funagent/pkg/schema"
	"github.com/effective-security/funagent/tools"
)

// Request is the tool input, the tool takes no arguments.
type Request struct{}

// Result is the joke, or the error.
type Result struct {
	Joke  string `json:"joke,omitempty" yaml:"joke,omitempty"`
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Tool returns a safe single-line joke from JokeAPI.
type Tool struct {
	defaults tools.Defaults
	client   *tools.Client
}

var _ tools.Tool[Request, Result] = (*Tool)(nil)

// New returns the tool.
func New(defaults tools.Defaults, client *tools.Client) *Tool {
	return &Tool{
		defaults: defaults,
		client:   client,
	}
}

func (t *Tool) Name() string {
	return tools.RandomJoke
}

func (t *Tool) Description() string {
	return "Return a safe, single-line joke."
}

func (t *Tool) Parameters() *schema.Schema {
	return tools.MustSchema[Request]()
}

func (t *Tool) Call(ctx context.Context, args map[string]any) (string, error) {
	return tools.Call[Request, Result](ctx, t, args)
}

func (t *Tool) Run(ctx context.Context, _ *Request) (*Result, error) {
	res, err := t.client.GetJSON(ctx, t.defaults.JokeURL, nil, t.defaults.RequestTimeout)
	if err != nil {
		return &Result{Error: err.Error()}, nil
	}
	joke := res.Get("joke").String()
	if joke == "" {
		joke = t.defaults.NoJoke
	}
	return &Result{Joke: joke}, nil
}
