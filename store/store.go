package store

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/funagent/pkg/llms"
	"github.com/effective-security/xlog"
	"github.com/redis/go-redis/v9"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/funagent", "store")

// DefaultTitle is the title of a chat before it is updated.
const DefaultTitle = "New Chat"

// MessageStore persists the conversation messages of a chat.
// The chat is identified by the chatmodel.ChatContext in the context.
type MessageStore interface {
	// Messages returns the stored messages in order
	Messages(ctx context.Context) []llms.Message
	// Add appends messages to the chat
	Add(ctx context.Context, msgs ...llms.Message) error
	// Reset removes the chat and its messages
	Reset(ctx context.Context) error
	// UpdateChat creates or updates the chat info with the title and metadata
	UpdateChat(ctx context.Context, title string, metadata map[string]any) error
	// ListChats returns the IDs of the stored chats
	ListChats(ctx context.Context) ([]string, error)
	// GetChatInfo returns the chat info with messages,
	// if id is empty, the chat from context is used
	GetChatInfo(ctx context.Context, id string) (*ChatInfo, error)
}

// ChatInfo describes a stored chat.
type ChatInfo struct {
	ChatID    string         `json:"chat_id" yaml:"chat_id"`
	Title     string         `json:"title" yaml:"title"`
	CreatedAt time.Time      `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time      `json:"updated_at" yaml:"updated_at"`
	Metadata  map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	Messages  []llms.Message `json:"messages,omitempty" yaml:"messages,omitempty"`
}

// Config specifies the message store.
type Config struct {
	// Kind is memory or redis, memory is the default
	Kind string `json:"kind,omitempty" yaml:"kind,omitempty" validate:"omitempty,oneof=memory redis"`
	// RedisURL is the redis connection string, required for redis
	RedisURL string `json:"redis_url,omitempty" yaml:"redis_url,omitempty" validate:"required_if=Kind redis"`
	// Prefix is the namespace of redis keys
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	// MaxMessages is the number of messages kept per chat in redis, 0 for no limit
	MaxMessages int `json:"max_messages,omitempty" yaml:"max_messages,omitempty"`
}

// New returns the message store for the config.
func New(ctx context.Context, cfg Config) (MessageStore, error) {
	switch strings.ToLower(cfg.Kind) {
	case "", "memory":
		return NewMemoryStore(), nil
	case "redis":
		options, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, errors.Wrap(err, "invalid redis URL")
		}
		client := redis.NewClient(options)
		if err = client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, errors.Wrap(err, "failed to connect to Redis")
		}
		logger.KV(xlog.INFO, "status", "redis_connected", "addr", options.Addr)
		return NewRedisStore(client, cfg.Prefix).WithMaxMessages(cfg.MaxMessages), nil
	}
	return nil, errors.Errorf("unsupported store kind: %s", cfg.Kind)
}
