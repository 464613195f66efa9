package store

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/effective-security/funagent/chatmodel"
	"github.com/effective-security/funagent/pkg/llms"
)

type inMemory struct {
	mu       sync.RWMutex
	messages map[string][]llms.Message
	chats    map[string]*ChatInfo
}

// NewMemoryStore returns a process-local store.
func NewMemoryStore() MessageStore {
	return &inMemory{}
}

func (m *inMemory) Messages(ctx context.Context) []llms.Message {
	chatID, err := chatmodel.GetChatID(ctx)
	if err != nil {
		return nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.messages[chatID])
}

func (m *inMemory) Add(ctx context.Context, msgs ...llms.Message) error {
	chatID, err := chatmodel.GetChatID(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.messages == nil {
		// create on first use
		m.messages = make(map[string][]llms.Message)
	}
	m.messages[chatID] = append(m.messages[chatID], msgs...)
	m.chatInfo(chatID).UpdatedAt = time.Now()
	return nil
}

func (m *inMemory) Reset(ctx context.Context) error {
	chatID, err := chatmodel.GetChatID(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.messages, chatID)
	delete(m.chats, chatID)
	return nil
}

func (m *inMemory) UpdateChat(ctx context.Context, title string, metadata map[string]any) error {
	chatID, err := chatmodel.GetChatID(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	chat := m.chatInfo(chatID)
	if title != "" {
		chat.Title = title
	}
	if metadata != nil {
		maps.Copy(chat.Metadata, metadata)
	}
	chat.UpdatedAt = time.Now()
	return nil
}

func (m *inMemory) ListChats(ctx context.Context) ([]string, error) {
	if _, err := chatmodel.GetChatID(ctx); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.chats)), nil
}

func (m *inMemory) GetChatInfo(ctx context.Context, id string) (*ChatInfo, error) {
	chatID, err := chatmodel.GetChatID(ctx)
	if err != nil {
		return nil, err
	}
	if id == "" {
		id = chatID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	info := *m.chatInfo(id)
	info.Metadata = maps.Clone(info.Metadata)
	info.Messages = slices.Clone(m.messages[id])
	return &info, nil
}

// chatInfo returns the chat, creating it on first use.
// Must be called under the write lock.
func (m *inMemory) chatInfo(chatID string) *ChatInfo {
	if m.chats == nil {
		m.chats = make(map[string]*ChatInfo)
	}
	chat, ok := m.chats[chatID]
	if !ok {
		now := time.Now()
		chat = &ChatInfo{
			ChatID:    chatID,
			Title:     DefaultTitle,
			CreatedAt: now,
			UpdatedAt: now,
			Metadata:  make(map[string]any),
		}
		m.chats[chatID] = chat
	}
	return chat
}
