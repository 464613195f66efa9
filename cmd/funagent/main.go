// Command funagent is the console chat agent for the weekend.
//
// Usage:
//
//	funagent [tool-host-command]
//
// The tool host command is "funtools" by default.
// The optional config file is set by FUNAGENT_CONFIG,
// and the .env file in the working directory is loaded first.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/funagent/callbacks"
	"github.com/effective-security/funagent/chatmodel"
	"github.com/effective-security/funagent/config"
	"github.com/effective-security/funagent/console"
	"github.com/effective-security/funagent/conversation"
	"github.com/effective-security/funagent/intent"
	"github.com/effective-security/funagent/mcp"
	"github.com/effective-security/funagent/pkg/llmfactory"
	"github.com/effective-security/funagent/pkg/llms"
	"github.com/effective-security/funagent/pkg/llmutils"
	"github.com/effective-security/funagent/pkg/prompts"
	"github.com/effective-security/funagent/store"
	"github.com/effective-security/xlog"
	"github.com/joho/godotenv"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/funagent", "funagent")

func main() {
	xlog.SetFormatter(xlog.NewStringFormatter(os.Stderr))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "funagent: %s\n", err.Error())
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("FUNAGENT_CONFIG"))
	if err != nil {
		return err
	}
	xlog.SetGlobalLogLevel(cfg.Level())

	if len(args) > 0 && args[0] != "" {
		cfg.ToolHost.Command = args[0]
		cfg.ToolHost.Args = args[1:]
	}
	logger.KV(xlog.DEBUG,
		"tool_host", llmutils.ToYAML(cfg.ToolHost),
		"invocation", llmutils.ToYAML(cfg.Invocation),
		"store", cfg.Store.Kind,
		"max_turns", cfg.History.MaxTurns)

	llm, err := newModel(cfg)
	if err != nil {
		return err
	}

	chCfg, err := cfg.ChannelConfig()
	if err != nil {
		return err
	}
	ch, err := mcp.Launch(cfg.ToolHost, chCfg)
	if err != nil {
		return err
	}
	defer func() { _ = ch.Close() }()

	list, err := ch.Initialize(ctx)
	if err != nil {
		return errors.WithMessage(err, "failed to connect to the tool host")
	}
	names := make([]string, 0, len(list))
	for _, t := range list {
		names = append(names, t.Name)
	}
	fmt.Fprintf(stdout, "Connected tools: %v\n", names)

	mgr, err := newManager(ctx, cfg, llm, ch, stderr)
	if err != nil {
		return err
	}

	return console.New(mgr, stdin, stdout).Run(ctx)
}

func newModel(cfg *config.Config) (llms.Model, error) {
	f := llmfactory.New(&cfg.LLM)
	if cfg.Model != "" {
		return f.ModelByName(cfg.Model)
	}
	return f.DefaultModel()
}

func newManager(ctx context.Context, cfg *config.Config, llm llms.Model, ch *mcp.Channel, stderr io.Writer) (*conversation.Manager, error) {
	mgr := conversation.New(llm, ch).
		WithTemperature(*cfg.Temperature).
		WithDetector(intent.NewDetector(cfg.Intent))

	policy := chatmodel.KeepLastTurns(cfg.History.MaxTurns)
	if cfg.Prompts.Persona != "" {
		mgr = mgr.WithPersona(cfg.Prompts.Persona, policy)
	} else {
		mgr = mgr.WithPolicy(policy)
	}

	if cfg.Prompts.Grounding != "" {
		p := prompts.NewPromptTemplate(cfg.Prompts.Grounding, []string{"user", "tool"})
		if err := p.Validate(); err != nil {
			return nil, errors.WithMessage(err, "invalid grounding prompt")
		}
		mgr = mgr.WithGrounding(p)
	}

	if cfg.Store.Kind != "" {
		st, err := store.New(ctx, cfg.Store)
		if err != nil {
			return nil, err
		}
		mgr = mgr.WithStore(st)
	}

	cb := callbacks.NewFanout(callbacks.NewPackageLogger(logger))
	if cfg.Verbose {
		cb.Add(callbacks.NewScratchpad(stderr, callbacks.ModeVerbose))
	}
	return mgr.WithCallback(cb), nil
}
