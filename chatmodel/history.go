package chatmodel

import (
	"slices"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/funagent/pkg/llms"
)

// ErrSystemMessage is returned when a system message is appended after creation.
var ErrSystemMessage = errors.New("system message can only be set at history creation")

// EvictionPolicy decides which conversation messages are retained.
// The system message is never passed to the policy.
type EvictionPolicy interface {
	// Evict returns the messages to retain, in order.
	Evict(messages []llms.Message) []llms.Message
}

// History is the ordered message sequence of one conversation.
// It starts with the system message and grows by appending only.
type History struct {
	lock     sync.RWMutex
	system   llms.Message
	messages []llms.Message
	policy   EvictionPolicy
	evicted  int
}

// NewHistory returns a history with the persona system message.
// A nil policy keeps all messages.
func NewHistory(system string, policy EvictionPolicy) *History {
	if policy == nil {
		policy = KeepAll()
	}
	return &History{
		system: llms.SystemMessage(system),
		policy: policy,
	}
}

// System returns the system message.
func (h *History) System() llms.Message {
	return h.system
}

// Append adds messages at the end of the history and applies the eviction policy.
func (h *History) Append(msgs ...llms.Message) error {
	for _, m := range msgs {
		if err := m.Validate(); err != nil {
			return err
		}
		if m.Role == llms.RoleSystem {
			return errors.WithStack(ErrSystemMessage)
		}
	}

	h.lock.Lock()
	defer h.lock.Unlock()

	h.messages = append(h.messages, msgs...)
	retained := h.policy.Evict(h.messages)
	h.evicted += len(h.messages) - len(retained)
	h.messages = retained
	return nil
}

// Messages returns a copy of the retained sequence, system message first.
func (h *History) Messages() []llms.Message {
	h.lock.RLock()
	defer h.lock.RUnlock()

	res := make([]llms.Message, 0, len(h.messages)+1)
	res = append(res, h.system)
	return append(res, h.messages...)
}

// Len returns the number of retained messages, including the system message.
func (h *History) Len() int {
	h.lock.RLock()
	defer h.lock.RUnlock()
	return len(h.messages) + 1
}

// Evicted returns the number of messages dropped by the eviction policy.
func (h *History) Evicted() int {
	h.lock.RLock()
	defer h.lock.RUnlock()
	return h.evicted
}

type keepAll struct{}

// KeepAll returns a policy that never evicts.
func KeepAll() EvictionPolicy {
	return keepAll{}
}

func (keepAll) Evict(messages []llms.Message) []llms.Message {
	return messages
}

type keepLastTurns struct {
	turns int
}

// KeepLastTurns returns a policy that retains the last n turns,
// where a turn starts with a user message.
// If n is not positive, all messages are kept.
func KeepLastTurns(n int) EvictionPolicy {
	if n <= 0 {
		return KeepAll()
	}
	return keepLastTurns{turns: n}
}

func (p keepLastTurns) Evict(messages []llms.Message) []llms.Message {
	count := 0
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != llms.RoleUser {
			continue
		}
		count++
		if count == p.turns {
			if i == 0 {
				return messages
			}
			// copy to release the evicted backing array
			return slices.Clone(messages[i:])
		}
	}
	return messages
}
