package store

import (
	"context"
	"encoding/json"
	"maps"
	"path"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/funagent/chatmodel"
	"github.com/effective-security/funagent/pkg/llms"
	"github.com/effective-security/xlog"
	"github.com/redis/go-redis/v9"
)

// RedisStore implements the MessageStore interface using Redis as the backend.
// The keys namespace is organized as follows:
// - `/<prefix>/chatstore/messages/<chatID>` list of chat messages
// - `/<prefix>/chatstore/info/<chatID>` chat info
// - `/<prefix>/chatstore/chats` set of chat IDs
type RedisStore struct {
	client      redis.UniversalClient
	prefix      string
	maxMessages int
}

var _ MessageStore = (*RedisStore)(nil)

// NewRedisStore returns a store over the redis client.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: prefix,
	}
}

// WithMaxMessages limits the number of messages kept per chat,
// 0 keeps all.
func (m *RedisStore) WithMaxMessages(limit int) *RedisStore {
	m.maxMessages = max(limit, 0)
	return m
}

func (m *RedisStore) messagesKey(chatID string) string {
	return path.Join("/", m.prefix, "chatstore", "messages", chatID)
}

func (m *RedisStore) chatInfoKey(chatID string) string {
	return path.Join("/", m.prefix, "chatstore", "info", chatID)
}

func (m *RedisStore) chatListKey() string {
	return path.Join("/", m.prefix, "chatstore", "chats")
}

func (m *RedisStore) Messages(ctx context.Context) []llms.Message {
	chatID, err := chatmodel.GetChatID(ctx)
	if err != nil {
		logger.ContextKV(ctx, xlog.ERROR, "reason", "GetChatID", "err", err.Error())
		return nil
	}
	return m.messages(ctx, chatID)
}

func (m *RedisStore) messages(ctx context.Context, chatID string) []llms.Message {
	data, err := m.client.LRange(ctx, m.messagesKey(chatID), 0, -1).Result()
	if err != nil {
		logger.ContextKV(ctx, xlog.ERROR, "reason", "LRange", "err", err.Error())
		return nil
	}

	messages := make([]llms.Message, 0, len(data))
	for _, item := range data {
		var msg llms.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			logger.ContextKV(ctx, xlog.ERROR, "reason", "unmarshal message", "err", err.Error())
			continue
		}
		messages = append(messages, msg)
	}
	return messages
}

func (m *RedisStore) Add(ctx context.Context, msgs ...llms.Message) error {
	chatID, err := chatmodel.GetChatID(ctx)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}

	items := make([]any, 0, len(msgs))
	for _, msg := range msgs {
		data, err := json.Marshal(msg)
		if err != nil {
			return errors.Wrap(err, "failed to marshal message")
		}
		items = append(items, data)
	}

	key := m.messagesKey(chatID)
	pipe := m.client.Pipeline()
	pipe.RPush(ctx, key, items...)
	if m.maxMessages > 0 {
		pipe.LTrim(ctx, key, int64(-m.maxMessages), -1)
	}
	if _, err = pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "failed to store message in Redis")
	}

	// Update the time
	return m.UpdateChat(ctx, "", nil)
}

func (m *RedisStore) Reset(ctx context.Context) error {
	chatID, err := chatmodel.GetChatID(ctx)
	if err != nil {
		return err
	}

	pipe := m.client.Pipeline()
	pipe.Del(ctx, m.messagesKey(chatID))
	pipe.Del(ctx, m.chatInfoKey(chatID))
	pipe.SRem(ctx, m.chatListKey(), chatID)
	if _, err = pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "failed to reset chat in Redis")
	}
	return nil
}

// UpdateChat creates or updates a chat with the title, and metadata for the chat ID from context.
func (m *RedisStore) UpdateChat(ctx context.Context, title string, metadata map[string]any) error {
	chatID, err := chatmodel.GetChatID(ctx)
	if err != nil {
		return err
	}

	chat, isNew, err := m.getChatInfo(ctx, chatID)
	if err != nil {
		return err
	}

	if title != "" {
		chat.Title = title
	}
	if metadata != nil {
		if chat.Metadata == nil {
			chat.Metadata = make(map[string]any)
		}
		maps.Copy(chat.Metadata, metadata)
	}
	chat.UpdatedAt = time.Now()

	return m.updateChat(ctx, chat, isNew)
}

func (m *RedisStore) updateChat(ctx context.Context, chat *ChatInfo, isNew bool) error {
	chatData, err := json.Marshal(chat)
	if err != nil {
		return errors.Wrap(err, "failed to marshal chat info")
	}

	pipe := m.client.Pipeline()
	pipe.Set(ctx, m.chatInfoKey(chat.ChatID), chatData, 0)
	if isNew {
		pipe.SAdd(ctx, m.chatListKey(), chat.ChatID)
	}
	if _, err = pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "failed to store chat info in Redis")
	}
	return nil
}

func (m *RedisStore) ListChats(ctx context.Context) ([]string, error) {
	if _, err := chatmodel.GetChatID(ctx); err != nil {
		return nil, err
	}

	chatIDs, err := m.client.SMembers(ctx, m.chatListKey()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to list chats from Redis")
	}
	return chatIDs, nil
}

func (m *RedisStore) GetChatInfo(ctx context.Context, id string) (*ChatInfo, error) {
	chatID, err := chatmodel.GetChatID(ctx)
	if err != nil {
		return nil, err
	}
	if id == "" {
		id = chatID
	}

	info, _, err := m.getChatInfo(ctx, id)
	if err != nil {
		return nil, err
	}
	info.Messages = m.messages(ctx, id)
	return info, nil
}

// getChatInfo returns the stored chat info without messages,
// or a new one if the chat is not stored yet.
func (m *RedisStore) getChatInfo(ctx context.Context, chatID string) (*ChatInfo, bool, error) {
	data, err := m.client.Get(ctx, m.chatInfoKey(chatID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			return nil, false, errors.Wrap(err, "failed to get chat info from Redis")
		}
		now := time.Now()
		return &ChatInfo{
			ChatID:    chatID,
			Title:     DefaultTitle,
			CreatedAt: now,
			UpdatedAt: now,
			Metadata:  make(map[string]any),
		}, true, nil
	}

	chat := &ChatInfo{}
	if err = json.Unmarshal([]byte(data), chat); err != nil {
		return nil, false, errors.Wrap(err, "failed to unmarshal chat info")
	}
	return chat, false, nil
}
