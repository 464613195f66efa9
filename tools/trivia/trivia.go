package trivia

import (
	"context"
	"fmt"
	"html"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/effective-security/funagent/pkg/schema"
	"github.com/effective-security/funagent/tools"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/funagent/tools", "trivia")

// Request is the tool input, the tool takes no arguments.
type Request struct{}

// Question is a multiple-choice question.
type Question struct {
	Question  string
	Correct   string
	Incorrect []string
}

// Tool returns a multiple-choice question from the Open Trivia Database.
type Tool struct {
	defaults tools.Defaults
	client   *tools.Client

	lock sync.Mutex
	rnd  *rand.Rand
}

var _ tools.Tool[Request, string] = (*Tool)(nil)

// New returns the tool.
func New(defaults tools.Defaults, client *tools.Client) *Tool {
	return &Tool{
		defaults: defaults,
		client:   client,
		rnd:      rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

// WithRand sets the source of the option order.
func (t *Tool) WithRand(rnd *rand.Rand) *Tool {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.rnd = rnd
	return t
}

func (t *Tool) Name() string {
	return tools.Trivia
}

func (t *Tool) Description() string {
	return "Return one formatted multiple-choice trivia question with answer."
}

func (t *Tool) Parameters() *schema.Schema {
	return tools.MustSchema[Request]()
}

func (t *Tool) Call(ctx context.Context, args map[string]any) (string, error) {
	return tools.Call[Request, string](ctx, t, args)
}

func (t *Tool) Run(ctx context.Context, _ *Request) (*string, error) {
	text := t.defaults.NoTrivia

	res, err := t.client.GetJSON(ctx, t.defaults.TriviaURL, nil, t.defaults.RequestTimeout)
	if err != nil {
		logger.ContextKV(ctx, xlog.WARNING, "reason", "fetch", "err", err.Error())
		return &text, nil
	}

	item := res.Get("results.0")
	if !item.Exists() {
		return &text, nil
	}

	q := Question{
		Question: html.UnescapeString(item.Get("question").String()),
		Correct:  html.UnescapeString(item.Get("correct_answer").String()),
	}
	for _, v := range item.Get("incorrect_answers").Array() {
		q.Incorrect = append(q.Incorrect, html.UnescapeString(v.String()))
	}

	text = t.Format(q)
	return &text, nil
}

// Format shuffles the options, labels them from A,
// and reveals the correct one.
func (t *Tool) Format(q Question) string {
	options := append(append([]string{}, q.Incorrect...), q.Correct)

	t.lock.Lock()
	t.rnd.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})
	t.lock.Unlock()

	var sb strings.Builder
	fmt.Fprintf(&sb, "Question: %s\n", q.Question)
	correct := ""
	for i, opt := range options {
		label := string(rune('A' + i))
		fmt.Fprintf(&sb, "\n  %s) %s", label, opt)
		if correct == "" && opt == q.Correct {
			correct = label
		}
	}
	fmt.Fprintf(&sb, "\n\nAnswer: %s) %s", correct, q.Correct)
	return sb.String()
}
