package tools

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/funagent/pkg/schema"
)

// ErrFailedUnmarshalInput is returned when the arguments do not match the input schema.
var ErrFailedUnmarshalInput = errors.New("failed to unmarshal input: check the schema and try again")

// ITool is a tool served by the tool host.
type ITool interface {
	// Name returns the name of the tool.
	Name() string
	// Description returns the description advertised to the clients.
	Description() string
	// Parameters returns the input schema.
	Parameters() *schema.Schema
	// Call executes the tool with the arguments and returns the result text.
	// If the tool fails to parse the arguments, it returns ErrFailedUnmarshalInput.
	Call(ctx context.Context, args map[string]any) (string, error)
}

// Tool is a tool with typed input and output.
type Tool[I any, O any] interface {
	ITool
	Run(context.Context, *I) (*O, error)
}

// Call decodes the arguments, runs the tool and encodes its output.
// String outputs are returned as is, others as JSON.
func Call[I any, O any](ctx context.Context, t Tool[I, O], args map[string]any) (string, error) {
	req := new(I)
	if len(args) > 0 {
		js, err := json.Marshal(args)
		if err != nil {
			return "", errors.WithStack(ErrFailedUnmarshalInput)
		}
		if err = json.Unmarshal(js, req); err != nil {
			return "", errors.WithStack(ErrFailedUnmarshalInput)
		}
	}

	out, err := t.Run(ctx, req)
	if err != nil {
		return "", err
	}
	if s, ok := any(out).(*string); ok {
		return *s, nil
	}

	js, err := json.Marshal(out)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal output")
	}
	return string(js), nil
}

// MustSchema returns the input schema of I and panics on error.
func MustSchema[I any]() *schema.Schema {
	s, err := schema.For[I]()
	if err != nil {
		panic(err)
	}
	return s
}
