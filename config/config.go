// Package config provides the configuration of the orchestrator.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/funagent/intent"
	"github.com/effective-security/funagent/mcp"
	"github.com/effective-security/funagent/pkg/llmfactory"
	"github.com/effective-security/funagent/pkg/llms"
	"github.com/effective-security/funagent/store"
	"github.com/effective-security/x/configloader"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
	"github.com/go-playground/validator/v10"
)

// Defaults of the local setup.
const (
	DefaultLogLevel    = "WARNING"
	DefaultToolHost    = "funtools"
	DefaultOllamaHost  = "http://localhost:11434"
	DefaultModel       = "mistral:7b"
	DefaultTemperature = 0.7
	DefaultTimeout     = "20s"
)

// Config is the configuration of the orchestrator.
type Config struct {
	// LogLevel is one of xlog levels: TRACE, DEBUG, INFO, NOTICE, WARNING, ERROR, CRITICAL
	LogLevel string `json:"log_level,omitempty" yaml:"log_level,omitempty" validate:"omitempty,oneof=TRACE DEBUG INFO NOTICE WARNING ERROR CRITICAL"`
	// Verbose prints the transcript of each turn to stderr
	Verbose bool `json:"verbose,omitempty" yaml:"verbose,omitempty"`
	// Model is the preferred model name, the provider default if not set
	Model string `json:"model,omitempty" yaml:"model,omitempty"`
	// Temperature of the replies, DefaultTemperature if not set
	Temperature *float64 `json:"temperature,omitempty" yaml:"temperature,omitempty" validate:"omitempty,gte=0,lte=2"`

	LLM        llmfactory.Config `json:"llm" yaml:"llm"`
	ToolHost   mcp.HostConfig    `json:"tool_host" yaml:"tool_host"`
	Invocation Invocation        `json:"invocation" yaml:"invocation"`
	History    History           `json:"history" yaml:"history"`
	Store      store.Config      `json:"store" yaml:"store"`
	Intent     intent.Defaults   `json:"intent" yaml:"intent"`
	Prompts    Prompts           `json:"prompts" yaml:"prompts"`
}

// Invocation specifies the tool invocation policy.
type Invocation struct {
	// Timeout is a duration, such as 20s
	Timeout string `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	// Retries on transport faults
	Retries int `json:"retries,omitempty" yaml:"retries,omitempty" validate:"gte=0,lte=5"`
}

// History specifies the retained conversation.
type History struct {
	// MaxTurns is the number of retained turns, 0 keeps all
	MaxTurns int `json:"max_turns,omitempty" yaml:"max_turns,omitempty" validate:"gte=0"`
}

// Prompts overrides the built-in prompts.
type Prompts struct {
	// Persona is the system message
	Persona string `json:"persona,omitempty" yaml:"persona,omitempty"`
	// Grounding is a jinja2 template with "user" and "tool" variables
	Grounding string `json:"grounding,omitempty" yaml:"grounding,omitempty"`
}

// Load returns the config from the file, with the defaults applied.
// If file is empty, the defaults are returned.
func Load(file string) (*Config, error) {
	cfg := new(Config)
	if file != "" {
		if err := configloader.UnmarshalAndExpand(file, cfg); err != nil {
			return nil, errors.WithMessagef(err, "failed to load config %q", file)
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate returns an error if the config is invalid.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.WithMessage(err, "invalid config")
	}
	if _, err := c.Invocation.Duration(); err != nil {
		return err
	}
	return nil
}

func (c *Config) applyDefaults() {
	c.LogLevel = strings.ToUpper(values.StringsCoalesce(c.LogLevel, DefaultLogLevel))
	c.ToolHost.Command = values.StringsCoalesce(c.ToolHost.Command, DefaultToolHost)
	c.Invocation.Timeout = values.StringsCoalesce(c.Invocation.Timeout, DefaultTimeout)

	if c.Temperature == nil {
		t := DefaultTemperature
		c.Temperature = &t
	}

	if len(c.LLM.Providers) == 0 {
		c.LLM.Providers = []*llmfactory.ProviderConfig{
			{
				Name:         "ollama",
				DefaultModel: DefaultModel,
				API: llmfactory.APIConfig{
					APIType: string(llms.ProviderOllama),
					BaseURL: values.StringsCoalesce(os.Getenv("OLLAMA_HOST"), DefaultOllamaHost),
				},
			},
		}
	}

	def := intent.DefaultValues()
	c.Intent.BookTopic = values.StringsCoalesce(c.Intent.BookTopic, def.BookTopic)
	c.Intent.BookLimit = values.NumbersCoalesce(c.Intent.BookLimit, def.BookLimit)
	c.Intent.WeatherCity = strings.TrimSpace(c.Intent.WeatherCity)
}

// Duration returns the parsed timeout.
func (i Invocation) Duration() (time.Duration, error) {
	if i.Timeout == "" {
		return mcp.DefaultTimeout, nil
	}
	d, err := time.ParseDuration(i.Timeout)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid invocation timeout %q", i.Timeout)
	}
	if d <= 0 {
		return 0, errors.Newf("invalid invocation timeout %q", i.Timeout)
	}
	return d, nil
}

// ChannelConfig returns the invocation policy of the channel.
func (c *Config) ChannelConfig() (mcp.Config, error) {
	d, err := c.Invocation.Duration()
	if err != nil {
		return mcp.Config{}, err
	}
	return mcp.Config{
		Timeout: d,
		Retries: c.Invocation.Retries,
	}, nil
}

// Level returns the log level.
func (c *Config) Level() xlog.LogLevel {
	switch strings.ToUpper(c.LogLevel) {
	case "TRACE":
		return xlog.TRACE
	case "DEBUG":
		return xlog.DEBUG
	case "INFO":
		return xlog.INFO
	case "NOTICE":
		return xlog.NOTICE
	case "ERROR":
		return xlog.ERROR
	case "CRITICAL":
		return xlog.CRITICAL
	}
	return xlog.WARNING
}
