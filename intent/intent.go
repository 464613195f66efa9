package intent

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/effective-security/funagent/mcp"
	"github.com/effective-security/funagent/pipeline"
	"github.com/effective-security/funagent/tools"
)

// Kind is the category of a user request.
type Kind int

const (
	// KindWeather is served by the weather pipeline
	KindWeather Kind = iota + 1
	// KindTrivia is served by the trivia tool
	KindTrivia
	// KindJoke is served by the random-joke tool
	KindJoke
	// KindDogImage is served by the random-dog-image tool
	KindDogImage
	// KindBooks is served by the book-recommendations tool
	KindBooks
)

// Priority is the order in which the kinds are tested,
// the first matching kind wins.
var Priority = []Kind{
	KindWeather,
	KindTrivia,
	KindJoke,
	KindDogImage,
	KindBooks,
}

// WeatherPipeline is the call target of the weather intent.
const WeatherPipeline = pipeline.WeatherName

func (k Kind) String() string {
	switch k {
	case KindWeather:
		return "weather"
	case KindTrivia:
		return "trivia"
	case KindJoke:
		return "joke"
	case KindDogImage:
		return "dog"
	case KindBooks:
		return "books"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Target returns the tool or pipeline name serving the kind.
func (k Kind) Target() string {
	switch k {
	case KindWeather:
		return WeatherPipeline
	case KindTrivia:
		return tools.Trivia
	case KindJoke:
		return tools.RandomJoke
	case KindDogImage:
		return tools.RandomDogImage
	case KindBooks:
		return tools.BookRecommendations
	}
	panic(fmt.Sprintf("unknown intent kind: %d", int(k)))
}

// IsPipeline returns true if the kind is served by a pipeline.
func (k Kind) IsPipeline() bool {
	return k == KindWeather
}

// Intent is the detected request.
type Intent struct {
	Kind Kind
	Call mcp.ToolCall
}

// Defaults are the fallback arguments when the extraction finds nothing.
type Defaults struct {
	// WeatherCity is used when no location follows in/at/for
	WeatherCity string `json:"weather_city" yaml:"weather_city"`
	// BookTopic is used when no topic follows about/on/topic/genre/like
	BookTopic string `json:"book_topic" yaml:"book_topic"`
	// BookLimit is the number of recommended books
	BookLimit int `json:"book_limit" yaml:"book_limit"`
}

// DefaultValues returns the default fallbacks.
func DefaultValues() Defaults {
	return Defaults{
		WeatherCity: "",
		BookTopic:   "fiction",
		BookLimit:   3,
	}
}

var (
	locationRe = regexp.MustCompile(`(?i)\b(?:in|at|for)\s+([\p{L}\p{N} '\-]+?)(?:[?.!,;]|$)`)
	topicRe    = regexp.MustCompile(`(?i)\b(?:about|on|topic|genre|like)\s+([a-zA-Z ]+?)(?:[?.!,;]|$)`)
)

type matcher struct {
	keywords []string
	args     func(text string) map[string]any
}

// Detector matches the text against the kinds in Priority order.
// It is stateless and safe for concurrent use.
type Detector struct {
	defaults Defaults
	matchers map[Kind]matcher
}

// NewDetector returns the detector with the fallbacks.
func NewDetector(defaults Defaults) *Detector {
	if defaults.BookLimit <= 0 {
		defaults.BookLimit = DefaultValues().BookLimit
	}
	d := &Detector{defaults: defaults}
	d.matchers = map[Kind]matcher{
		KindWeather: {
			keywords: []string{"weather", "temperature", "forecast"},
			args: func(text string) map[string]any {
				return map[string]any{"city": capture(locationRe, text, d.defaults.WeatherCity)}
			},
		},
		KindTrivia: {
			keywords: []string{"trivia", "quiz", "question", "test me", "challenge"},
		},
		KindJoke: {
			keywords: []string{"joke", "funny", "laugh", "humor", "humour"},
		},
		KindDogImage: {
			keywords: []string{"dog", "puppy", "doggo", "pup", "woof"},
		},
		KindBooks: {
			keywords: []string{"book", "read", "novel", "recommend", "fiction", "story"},
			args: func(text string) map[string]any {
				return map[string]any{
					"topic": capture(topicRe, text, d.defaults.BookTopic),
					"limit": d.defaults.BookLimit,
				}
			},
		},
	}
	return d
}

// Detect returns the intent of the text, or false if no kind matches.
func (d *Detector) Detect(text string) (*Intent, bool) {
	lower := strings.ToLower(text)
	for _, kind := range Priority {
		m := d.matchers[kind]
		if !containsAny(lower, m.keywords) {
			continue
		}
		var args map[string]any
		if m.args != nil {
			args = m.args(text)
		}
		return &Intent{
			Kind: kind,
			Call: mcp.NewToolCall(kind.Target(), args),
		}, true
	}
	return nil, false
}

var defaultDetector = NewDetector(DefaultValues())

// Detect returns the intent of the text with the default fallbacks.
func Detect(text string) (*Intent, bool) {
	return defaultDetector.Detect(text)
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

func capture(re *regexp.Regexp, text, fallback string) string {
	m := re.FindStringSubmatch(text)
	if len(m) < 2 {
		return fallback
	}
	if v := strings.TrimSpace(m[1]); v != "" {
		return v
	}
	return fallback
}
