package store

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/tutorstack/tutor/chatmodel"
	"github.com/tutorstack/tutor/pkg/llms"
)

type inMemory struct {
	mu      sync.RWMutex
	storage map[string][]llms.Message
}

// NewMemoryStore creates a process-local MessageStore.
func NewMemoryStore() MessageStore {
	return &inMemory{}
}

func (m *inMemory) Messages(ctx context.Context) []llms.Message {
	sessionID := chatmodel.GetSessionID(ctx)
	if sessionID == "" {
		return nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.storage == nil {
		return nil
	}
	return m.storage[sessionID]
}

func (m *inMemory) Add(ctx context.Context, msgs ...llms.Message) error {
	sessionID := chatmodel.GetSessionID(ctx)
	if sessionID == "" {
		return errors.WithStack(chatmodel.ErrInvalidChatContext)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.storage == nil {
		// create on first use
		m.storage = make(map[string][]llms.Message)
	}
	history := append(m.storage[sessionID], msgs...)
	if len(history) > MaxMessagesPerSession {
		history = history[len(history)-MaxMessagesPerSession:]
	}
	m.storage[sessionID] = history
	return nil
}

func (m *inMemory) Reset(ctx context.Context) error {
	sessionID := chatmodel.GetSessionID(ctx)
	if sessionID == "" {
		return errors.WithStack(chatmodel.ErrInvalidChatContext)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.storage != nil {
		delete(m.storage, sessionID)
	}
	return nil
}
