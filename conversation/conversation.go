package conversation

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/funagent/chatmodel"
	"github.com/effective-security/funagent/intent"
	"github.com/effective-security/funagent/pipeline"
	"github.com/effective-security/funagent/pkg/llms"
	"github.com/effective-security/funagent/pkg/llmutils"
	"github.com/effective-security/funagent/pkg/metricskey"
	"github.com/effective-security/funagent/pkg/prompts"
	"github.com/effective-security/funagent/store"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/funagent", "conversation")

// DefaultTemperature is the sampling temperature of the replies.
const DefaultTemperature = 0.7

// intentNone tags the metrics of turns without a detected intent.
const intentNone = "none"

// Manager drives one conversation: it detects the intent of the user text,
// invokes the tool or pipeline, grounds the prompt with the tool text,
// and asks the model for the reply over the retained history.
//
// Turns must not run concurrently.
type Manager struct {
	llm         llms.Model
	executor    *pipeline.Executor
	invoker     pipeline.Invoker
	detector    *intent.Detector
	pipelines   map[string]*pipeline.Pipeline
	grounding   prompts.PromptTemplate
	history     *chatmodel.History
	store       store.MessageStore
	callback    Callback
	chatCtx     chatmodel.ChatContext
	temperature float64
}

// New returns the manager with the persona history,
// the default detector and the weather pipeline.
func New(llm llms.Model, invoker pipeline.Invoker) *Manager {
	weather := pipeline.Weather()
	return &Manager{
		llm:         llm,
		invoker:     invoker,
		executor:    pipeline.NewExecutor(invoker),
		detector:    intent.NewDetector(intent.DefaultValues()),
		pipelines:   map[string]*pipeline.Pipeline{weather.Name: weather},
		grounding:   prompts.Grounding(),
		history:     chatmodel.NewHistory(prompts.Persona, chatmodel.KeepAll()),
		callback:    noopCallback{},
		chatCtx:     chatmodel.NewChatContext(""),
		temperature: DefaultTemperature,
	}
}

// WithTemperature sets the sampling temperature.
func (m *Manager) WithTemperature(temperature float64) *Manager {
	m.temperature = temperature
	return m
}

// WithDetector replaces the intent detector.
func (m *Manager) WithDetector(detector *intent.Detector) *Manager {
	m.detector = detector
	return m
}

// WithPolicy sets the eviction policy.
// It restarts the history and must be called before the first turn.
func (m *Manager) WithPolicy(policy chatmodel.EvictionPolicy) *Manager {
	m.history = chatmodel.NewHistory(m.history.System().Content, policy)
	return m
}

// WithPersona sets the system message.
// It restarts the history and must be called before the first turn.
func (m *Manager) WithPersona(persona string, policy chatmodel.EvictionPolicy) *Manager {
	m.history = chatmodel.NewHistory(persona, policy)
	return m
}

// WithGrounding replaces the grounding prompt,
// the template receives the "user" and "tool" variables.
func (m *Manager) WithGrounding(p prompts.PromptTemplate) *Manager {
	m.grounding = p
	return m
}

// WithPipeline registers a pipeline by its name.
func (m *Manager) WithPipeline(p *pipeline.Pipeline) *Manager {
	m.pipelines[p.Name] = p
	return m
}

// WithStore records the appended messages in the store.
func (m *Manager) WithStore(s store.MessageStore) *Manager {
	m.store = s
	return m
}

// WithCallback sets the callback.
func (m *Manager) WithCallback(cb Callback) *Manager {
	if cb == nil {
		cb = noopCallback{}
	}
	m.callback = cb
	return m
}

// WithChatContext sets the chat identity used by the store and logs.
func (m *Manager) WithChatContext(chatCtx chatmodel.ChatContext) *Manager {
	m.chatCtx = chatCtx
	return m
}

// History returns the conversation history.
func (m *Manager) History() *chatmodel.History {
	return m.history
}

// ChatID returns the ID of the conversation.
func (m *Manager) ChatID() string {
	return m.chatCtx.GetChatID()
}

// Turn processes one user text and returns the model reply.
// If the model call fails, the user message stays in the history.
func (m *Manager) Turn(ctx context.Context, text string) (string, error) {
	started := time.Now()
	runID := m.chatCtx.NewRun()
	ctx = chatmodel.WithChatContext(ctx, m.chatCtx)

	m.callback.OnTurnStart(ctx, text)

	reply, kind, err := m.turn(ctx, text)

	metricskey.StatsConversationTurns.IncrCounter(1, kind)
	metricskey.PerfConversationTurn.MeasureSince(started, kind)

	if err != nil {
		logger.ContextKV(ctx, xlog.ERROR,
			"chat_id", m.chatCtx.GetChatID(),
			"run_id", runID,
			"intent", kind,
			"err", err.Error())
		m.callback.OnTurnError(ctx, text, err)
		return "", err
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"chat_id", m.chatCtx.GetChatID(),
		"run_id", runID,
		"intent", kind,
		"messages", m.history.Len(),
		"elapsed", time.Since(started).String())
	m.callback.OnTurnEnd(ctx, text, reply)
	return reply, nil
}

func (m *Manager) turn(ctx context.Context, text string) (string, string, error) {
	toolText, kind, err := m.ground(ctx, text)
	if err != nil {
		return "", kind, err
	}

	prompt := text
	if toolText != "" {
		prompt, err = m.grounding.Format(map[string]any{
			"user": text,
			"tool": toolText,
		})
		if err != nil {
			return "", kind, errors.WithMessage(err, "failed to render grounding prompt")
		}
	}

	if m.store != nil && m.history.Len() == 1 && m.history.Evicted() == 0 {
		if err = m.store.UpdateChat(ctx, text, map[string]any{"model": m.llm.GetName()}); err != nil {
			logger.ContextKV(ctx, xlog.WARNING,
				"status", "failed_to_update_chat",
				"err", err.Error())
		}
	}

	if err = m.append(ctx, llms.UserMessage(prompt)); err != nil {
		return "", kind, err
	}

	messages := m.history.Messages()
	model := m.llm.GetName()
	metricskey.StatsLLMMessagesSent.IncrCounter(float64(len(messages)), model)

	logger.ContextKV(ctx, xlog.DEBUG,
		"model", model,
		"messages", len(messages),
		"bytes", llmutils.CountMessagesContentSize(messages))

	m.callback.OnLLMCallStart(ctx, m.llm, messages)
	resp, err := m.llm.GenerateContent(ctx, messages, llms.WithTemperature(m.temperature))
	if err != nil {
		metricskey.StatsLLMCallsFailed.IncrCounter(1, model)
		return "", kind, errors.WithMessage(err, "failed to generate reply")
	}
	m.callback.OnLLMCallEnd(ctx, m.llm, resp)

	in, out := resp.TokenUsage()
	metricskey.StatsLLMInputTokens.IncrCounter(float64(in), model)
	metricskey.StatsLLMOutputTokens.IncrCounter(float64(out), model)

	reply, err := resp.Text()
	if err != nil {
		metricskey.StatsLLMCallsFailed.IncrCounter(1, model)
		return "", kind, errors.WithMessage(err, "failed to generate reply")
	}

	if err = m.append(ctx, llms.AssistantMessage(reply)); err != nil {
		return "", kind, err
	}
	return reply, kind, nil
}

// ground returns the tool text of the detected intent,
// or empty if the text has no intent.
func (m *Manager) ground(ctx context.Context, text string) (string, string, error) {
	in, ok := m.detector.Detect(text)
	if !ok {
		return "", intentNone, nil
	}

	kind := in.Kind.String()
	m.callback.OnToolStart(ctx, in.Call)

	var output string
	if in.Kind.IsPipeline() {
		p, ok := m.pipelines[in.Call.Name]
		if !ok {
			return "", kind, errors.Newf("pipeline %q is not registered", in.Call.Name)
		}
		res, err := m.executor.Run(ctx, p, pipeline.State(in.Call.Arguments))
		if err != nil {
			return "", kind, err
		}
		output = res
	} else {
		res, err := m.invoker.Invoke(ctx, in.Call)
		if err != nil {
			return "", kind, err
		}
		output = res.String()
	}

	m.callback.OnToolEnd(ctx, in.Call, output)
	return output, kind, nil
}

// append adds the message to the history and the store,
// failures of the store are logged only.
func (m *Manager) append(ctx context.Context, msg llms.Message) error {
	if err := m.history.Append(msg); err != nil {
		return err
	}
	if m.store != nil {
		if err := m.store.Add(ctx, msg); err != nil {
			logger.ContextKV(ctx, xlog.WARNING,
				"status", "failed_to_store_message",
				"role", msg.Role,
				"err", err.Error())
		}
	}
	return nil
}
