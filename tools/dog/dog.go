package dog

import (
	"context"
	"strings"

	"github.com/effective-security/funagent/pkg/schema"
	"github.com/effective-security/funagent/tools"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/funagent/tools", "dog")

// Request is the tool input, the tool takes no arguments.
type Request struct{}

// Tool returns a random dog image URL from Dog CEO.
type Tool struct {
	defaults tools.Defaults
	client   *tools.Client
}

var _ tools.Tool[Request, string] = (*Tool)(nil)

// New returns the tool.
func New(defaults tools.Defaults, client *tools.Client) *Tool {
	return &Tool{
		defaults: defaults,
		client:   client,
	}
}

func (t *Tool) Name() string {
	return tools.RandomDogImage
}

func (t *Tool) Description() string {
	return "Return a raw random dog image URL."
}

func (t *Tool) Parameters() *schema.Schema {
	return tools.MustSchema[Request]()
}

func (t *Tool) Call(ctx context.Context, args map[string]any) (string, error) {
	return tools.Call[Request, string](ctx, t, args)
}

// Run returns only the URL, or the placeholder on any failure.
func (t *Tool) Run(ctx context.Context, _ *Request) (*string, error) {
	placeholder := t.defaults.DogPlaceholderURL

	res, err := t.client.GetJSON(ctx, t.defaults.DogURL, nil, t.defaults.RequestTimeout)
	if err != nil {
		logger.ContextKV(ctx, xlog.WARNING, "reason", "fetch", "err", err.Error())
		return &placeholder, nil
	}

	u := res.Get("message").String()
	if !strings.HasPrefix(u, "http") {
		return &placeholder, nil
	}
	return &u, nil
}
