package store

import (
	"context"
	"encoding/json"
	"path"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/redis/go-redis/v9"

	"github.com/tutorstack/tutor/chatmodel"
	"github.com/tutorstack/tutor/pkg/llms"
)

// The redis store implements the MessageStore interface using Redis as the
// backend, so history survives process restarts and is shared between
// replicas. Keys are structured as:
// - `/<prefix>/chatstore/messages/<sessionID>` for the message list

type redisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a Redis backed MessageStore.
func NewRedisStore(client *redis.Client, prefix string) MessageStore {
	return &redisStore{
		client: client,
		prefix: prefix,
	}
}

func (m *redisStore) getMessagesKey(sessionID string) string {
	return path.Join(m.prefix, "chatstore", "messages", sessionID)
}

func (m *redisStore) Messages(ctx context.Context) []llms.Message {
	sessionID := chatmodel.GetSessionID(ctx)
	if sessionID == "" {
		return nil
	}

	key := m.getMessagesKey(sessionID)
	data, err := m.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		logger.ContextKV(ctx, xlog.ERROR, "reason", "redis_lrange", "err", err.Error())
		return nil
	}

	var messages []llms.Message
	for _, item := range data {
		var msg llms.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			logger.ContextKV(ctx, xlog.ERROR, "reason", "unmarshal_message", "err", err.Error())
			continue
		}
		messages = append(messages, msg)
	}
	return messages
}

func (m *redisStore) Add(ctx context.Context, msgs ...llms.Message) error {
	sessionID := chatmodel.GetSessionID(ctx)
	if sessionID == "" {
		return errors.WithStack(chatmodel.ErrInvalidChatContext)
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

	key := m.getMessagesKey(sessionID)
	pipe := m.client.Pipeline()
	pipe.RPush(ctx, key, items...)
	// keep only the most recent messages
	pipe.LTrim(ctx, key, -int64(MaxMessagesPerSession), -1)
	_, err := pipe.Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to store messages in Redis")
	}
	return nil
}

func (m *redisStore) Reset(ctx context.Context) error {
	sessionID := chatmodel.GetSessionID(ctx)
	if sessionID == "" {
		return errors.WithStack(chatmodel.ErrInvalidChatContext)
	}

	err := m.client.Del(ctx, m.getMessagesKey(sessionID)).Err()
	if err != nil {
		return errors.Wrap(err, "failed to reset session in Redis")
	}
	return nil
}
