package pipeline

import (
	"context"
	"maps"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/funagent/mcp"
	"github.com/effective-security/funagent/pkg/metricskey"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/funagent", "pipeline")

// ErrRejected is returned by Input or Validate to stop the pipeline.
var ErrRejected = errors.New("stage rejected")

// Invoker invokes a tool, *mcp.Channel implements it.
type Invoker interface {
	Invoke(ctx context.Context, call mcp.ToolCall) (*mcp.ToolResult, error)
}

// State is accumulated by the stages of one run.
type State map[string]any

// String returns the string value of the key, or empty.
func (s State) String(key string) string {
	v, _ := s[key].(string)
	return v
}

// Stage is one tool invocation of the pipeline.
type Stage struct {
	// Name identifies the stage in logs and metrics
	Name string
	// Tool is the name of the invoked tool
	Tool string
	// Input returns the tool arguments from the state
	Input func(state State) (map[string]any, error)
	// Validate checks the result and enriches the state.
	// If nil, any successful result is accepted.
	Validate func(res *mcp.ToolResult, state State) error
}

// Rejection describes the stage that stopped the pipeline.
type Rejection struct {
	Stage Stage
	// Result is nil if the stage was rejected before the invocation
	Result *mcp.ToolResult
	Err    error
}

// Pipeline is an ordered list of stages,
// where each stage is invoked only if the previous one was accepted.
type Pipeline struct {
	Name   string
	Stages []Stage
	// Render returns the text when all stages are accepted
	Render func(state State, last *mcp.ToolResult) string
	// OnReject returns the text when a stage is rejected
	OnReject func(rej Rejection, state State) string
}

// Executor runs pipelines over the invoker.
type Executor struct {
	invoker Invoker
}

// NewExecutor returns the executor.
func NewExecutor(invoker Invoker) *Executor {
	return &Executor{invoker: invoker}
}

// Run invokes the stages in order and returns the final text.
// An error is returned only if the invoker fails with a usage error.
func (e *Executor) Run(ctx context.Context, p *Pipeline, seed State) (string, error) {
	if len(p.Stages) == 0 {
		return "", errors.Newf("pipeline %q has no stages", p.Name)
	}

	started := time.Now()
	state := make(State, len(seed))
	maps.Copy(state, seed)

	var last *mcp.ToolResult
	for _, stage := range p.Stages {
		args := map[string]any{}
		if stage.Input != nil {
			var err error
			if args, err = stage.Input(state); err != nil {
				return e.reject(ctx, p, Rejection{Stage: stage, Err: err}, state), nil
			}
		}

		res, err := e.invoker.Invoke(ctx, mcp.NewToolCall(stage.Tool, args))
		if err != nil {
			return "", errors.WithMessagef(err, "pipeline %q stage %q", p.Name, stage.Name)
		}

		if stage.Validate != nil {
			err = stage.Validate(res, state)
		} else if res.Failed() {
			err = errors.WithMessage(ErrRejected, res.String())
		}
		if err != nil {
			return e.reject(ctx, p, Rejection{Stage: stage, Result: res, Err: err}, state), nil
		}

		logger.ContextKV(ctx, xlog.DEBUG,
			"pipeline", p.Name,
			"stage", stage.Name,
			"status", "accepted")
		last = res
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"pipeline", p.Name,
		"status", "completed",
		"elapsed", time.Since(started).String())

	if p.Render == nil {
		return last.String(), nil
	}
	return p.Render(state, last), nil
}

func (e *Executor) reject(ctx context.Context, p *Pipeline, rej Rejection, state State) string {
	metricskey.StatsPipelineStageRejected.IncrCounter(1, p.Name, rej.Stage.Name)
	logger.ContextKV(ctx, xlog.NOTICE,
		"pipeline", p.Name,
		"stage", rej.Stage.Name,
		"status", "rejected",
		"reason", rej.Err.Error())

	if p.OnReject != nil {
		return p.OnReject(rej, state)
	}
	if rej.Result != nil {
		return rej.Result.String()
	}
	return rej.Err.Error()
}
