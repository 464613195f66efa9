package mcp

import (
	"fmt"
	"maps"
)

// ToolCall is a request to invoke a named tool.
type ToolCall struct {
	Name      string         `json:"name" yaml:"name"`
	Arguments map[string]any `json:"arguments" yaml:"arguments"`
}

// NewToolCall returns a call with a copy of the arguments,
// nil arguments are replaced with an empty map.
func NewToolCall(name string, args map[string]any) ToolCall {
	cp := make(map[string]any, len(args))
	maps.Copy(cp, args)
	return ToolCall{
		Name:      name,
		Arguments: cp,
	}
}

// ToolDescriptor describes a tool listed by the host.
type ToolDescriptor struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Failure is the kind of a failed invocation.
type Failure int

const (
	// FailureNone means the invocation succeeded
	FailureNone Failure = iota
	// FailureTimeout means the invocation did not complete in time
	FailureTimeout
	// FailureFault means a transport or protocol fault
	FailureFault
	// FailureRemote means the tool reported an error result
	FailureRemote
)

func (f Failure) String() string {
	switch f {
	case FailureNone:
		return "none"
	case FailureTimeout:
		return "timeout"
	case FailureFault:
		return "fault"
	case FailureRemote:
		return "remote"
	}
	return fmt.Sprintf("Failure(%d)", int(f))
}

// ToolResult is the outcome of one invocation.
// It is consumed to build a prompt and never stored in history.
type ToolResult struct {
	// Tool is the name of the invoked tool
	Tool string
	// Text is the concatenated content of a successful result
	Text string
	// Failure is FailureNone on success
	Failure Failure
	// Message is the human-readable failure message
	Message string
}

// Failed returns true if the invocation failed.
func (r *ToolResult) Failed() bool {
	return r.Failure != FailureNone
}

// String returns the result text, or the bracketed error text on failure.
func (r *ToolResult) String() string {
	switch r.Failure {
	case FailureNone:
		return r.Text
	case FailureTimeout:
		return fmt.Sprintf("[Error: '%s' timed out]", r.Tool)
	default:
		return fmt.Sprintf("[Error: %s]", r.Message)
	}
}

func success(tool, text string) *ToolResult {
	return &ToolResult{Tool: tool, Text: text}
}

func failure(tool string, kind Failure, msg string) *ToolResult {
	return &ToolResult{Tool: tool, Failure: kind, Message: msg}
}
