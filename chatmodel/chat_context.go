package chatmodel

import (
	"context"
	"strconv"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xdb/pkg/flake"
	"github.com/google/uuid"
)

// ErrInvalidChatContext is returned when the context carries no chat.
var ErrInvalidChatContext = errors.New("invalid chat context")

// ChatContext is the context of one console session.
// The chat ID identifies the history in the message store,
// the run ID correlates the log entries of a single turn.
type ChatContext interface {
	GetChatID() string
	// RunID returns the ID of the current turn
	RunID() string
	// NewRun starts a new turn and returns its ID
	NewRun() string
	// GetMetadata retrieves metadata by key
	GetMetadata(key string) (value any, ok bool)
	// SetMetadata sets metadata by key
	SetMetadata(key string, value any)
}

type chatContext struct {
	chatID   string
	runID    string
	lock     sync.RWMutex
	metadata sync.Map
}

func (c *chatContext) GetChatID() string {
	return c.chatID
}

func (c *chatContext) RunID() string {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.runID
}

func (c *chatContext) NewRun() string {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.runID = NewRunID()
	return c.runID
}

func (c *chatContext) GetMetadata(key string) (value any, ok bool) {
	return c.metadata.Load(key)
}

func (c *chatContext) SetMetadata(key string, value any) {
	c.metadata.Store(key, value)
}

// NewChatContext returns a chat context,
// if chatID is empty, a new ID is generated.
func NewChatContext(chatID string) ChatContext {
	return &chatContext{
		chatID: values.StringsCoalesce(chatID, NewChatID()),
		runID:  NewRunID(),
	}
}

type contextKey int

const (
	keyContext contextKey = iota
)

// WithChatContext returns a new context with ChatContext value
func WithChatContext(ctx context.Context, chatCtx ChatContext) context.Context {
	return context.WithValue(ctx, keyContext, chatCtx)
}

// GetChatContext retrieves the ChatContext from the context
func GetChatContext(ctx context.Context) ChatContext {
	if v, ok := ctx.Value(keyContext).(ChatContext); ok {
		return v
	}
	return nil
}

// GetChatID retrieves the chat ID from the provided context.
// If the context does not contain a ChatContext, it returns ErrInvalidChatContext.
func GetChatID(ctx context.Context) (string, error) {
	if v, ok := ctx.Value(keyContext).(ChatContext); ok && v.GetChatID() != "" {
		return v.GetChatID(), nil
	}
	return "", ErrInvalidChatContext
}

// NewChatID generates a new chat ID using the flake ID generator.
func NewChatID() string {
	return strconv.FormatUint(flake.DefaultIDGenerator.NextID(), 10)
}

// NewRunID generates a new turn correlation ID.
func NewRunID() string {
	return uuid.NewString()
}
