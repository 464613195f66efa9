package books

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/effective-security/funagent/pkg/schema"
	"github.com/effective-security/funagent/tools"
)

// Request is the tool input.
type Request struct {
	Topic string `json:"topic,omitempty" yaml:"topic,omitempty" jsonschema:"description=Subject or genre of the books,default=mystery"`
	Limit int    `json:"limit,omitempty" yaml:"limit,omitempty" jsonschema:"description=Maximum number of titles,default=3"`
}

// Tool recommends books with the Open Library search.
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
	return tools.BookRecommendations
}

func (t *Tool) Description() string {
	return "Return book recommendations for a given topic."
}

func (t *Tool) Parameters() *schema.Schema {
	return tools.MustSchema[Request]()
}

func (t *Tool) Call(ctx context.Context, args map[string]any) (string, error) {
	return tools.Call[Request, string](ctx, t, args)
}

func (t *Tool) Run(ctx context.Context, req *Request) (*string, error) {
	topic := req.Topic
	if topic == "" {
		topic = t.defaults.BookTopic
	}
	limit := req.Limit
	if limit <= 0 {
		limit = t.defaults.BookLimit
	}

	query := url.Values{
		"q":     {topic},
		"limit": {strconv.Itoa(limit)},
	}
	res, err := t.client.GetJSON(ctx, t.defaults.BooksURL, query, t.defaults.RequestTimeout)
	if err != nil {
		text := fmt.Sprintf("Error fetching books: %s", err.Error())
		return &text, nil
	}

	docs := res.Get("docs").Array()
	if len(docs) > limit {
		docs = docs[:limit]
	}
	if len(docs) == 0 {
		text := fmt.Sprintf("Sorry, no books found for '%s'.", topic)
		return &text, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Here are some %s books:", topic)
	for i, doc := range docs {
		title := doc.Get("title").String()
		if title == "" {
			title = "Unknown Title"
		}
		fmt.Fprintf(&sb, "\n%d. %s", i+1, title)
	}
	text := sb.String()
	return &text, nil
}
