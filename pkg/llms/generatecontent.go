package llms

import (
	"strings"

	"github.com/cockroachdb/errors"
)

var (
	// ErrUnexpectedRole is returned when a message role is of an unexpected type.
	ErrUnexpectedRole = errors.New("unexpected role")
	// ErrEmptyResponse is returned when the provider returned no choices.
	ErrEmptyResponse = errors.New("no response")
)

// Role is the type of chat message.
type Role string

const (
	// RoleSystem is the persona instruction set at history creation.
	RoleSystem Role = "system"
	// RoleUser is a message sent by the user, or a grounding prompt.
	RoleUser Role = "user"
	// RoleAssistant is a message generated by the model.
	RoleAssistant Role = "assistant"
)

// Message is one entry of the chat history.
type Message struct {
	Role    Role   `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// SystemMessage returns a system-role message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage returns a user-role message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage returns an assistant-role message.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// Validate returns ErrUnexpectedRole for unknown roles.
func (m Message) Validate() error {
	switch m.Role {
	case RoleSystem, RoleUser, RoleAssistant:
		return nil
	}
	return errors.WithMessagef(ErrUnexpectedRole, "role %q", m.Role)
}

// SplitSystem returns the system prompt (joined if there are several system
// messages) and the remaining conversation messages in order.
// Providers that take the system prompt out of band use it.
func SplitSystem(messages []Message) (string, []Message) {
	var system []string
	rest := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
			continue
		}
		rest = append(rest, m)
	}
	return strings.Join(system, "\n"), rest
}

// ContentResponse is the response returned by a GenerateContent call.
// It can potentially return multiple content choices.
type ContentResponse struct {
	Choices []*ContentChoice
}

// ContentChoice is one of the response choices returned by GenerateContent
// calls.
type ContentChoice struct {
	// Content is the textual content of a response
	Content string `json:"content"`
	// StopReason is the reason the model stopped generating output.
	StopReason string `json:"stop_reason"`
	// GenerationInfo is arbitrary information the model adds to the response.
	GenerationInfo map[string]any `json:"generation_info"`
}

// Text returns the content of the first choice, trimmed.
func (r *ContentResponse) Text() (string, error) {
	if r == nil || len(r.Choices) == 0 || r.Choices[0] == nil {
		return "", ErrEmptyResponse
	}
	return strings.TrimSpace(r.Choices[0].Content), nil
}

// TokenUsage returns the input and output token counts reported by the
// provider under the InputTokens and OutputTokens generation info keys.
func (r *ContentResponse) TokenUsage() (in, out int64) {
	if r == nil {
		return 0, 0
	}
	for _, c := range r.Choices {
		if c == nil {
			continue
		}
		in += toInt64(c.GenerationInfo["InputTokens"])
		out += toInt64(c.GenerationInfo["OutputTokens"])
	}
	return in, out
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case float64:
		return int64(n)
	}
	return 0
}
