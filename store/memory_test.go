package store_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorstack/tutor/chatmodel"
	"github.com/tutorstack/tutor/pkg/llms"
	"github.com/tutorstack/tutor/store"
)

func Test_MemoryStore(t *testing.T) {
	s := store.NewMemoryStore()

	ctx := chatmodel.WithChatContext(context.Background(), chatmodel.NewChatContext("session-1", nil))
	ctx2 := chatmodel.WithChatContext(context.Background(), chatmodel.NewChatContext("session-2", nil))

	assert.Empty(t, s.Messages(ctx))

	err := s.Add(ctx,
		llms.MessageFromTextParts(llms.RoleHuman, "what is 2+2?"),
		llms.MessageFromTextParts(llms.RoleAI, "4"),
	)
	require.NoError(t, err)

	msgs := s.Messages(ctx)
	require.Len(t, msgs, 2)
	assert.Equal(t, llms.RoleHuman, msgs[0].Role)
	assert.Equal(t, "4", strings.TrimRight(msgs[1].GetContent(), "\n"))

	// sessions are isolated
	assert.Empty(t, s.Messages(ctx2))

	require.NoError(t, s.Reset(ctx))
	assert.Empty(t, s.Messages(ctx))
}

func Test_MemoryStore_Trim(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := chatmodel.WithChatContext(context.Background(), chatmodel.NewChatContext("session-trim", nil))

	for i := 0; i < store.MaxMessagesPerSession+10; i++ {
		err := s.Add(ctx, llms.MessageFromTextParts(llms.RoleHuman, fmt.Sprintf("message %d", i)))
		require.NoError(t, err)
	}

	msgs := s.Messages(ctx)
	require.Len(t, msgs, store.MaxMessagesPerSession)
	// oldest messages are dropped
	assert.Equal(t, "message 10", strings.TrimRight(msgs[0].GetContent(), "\n"))
}

func Test_MemoryStore_NoSession(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	assert.Empty(t, s.Messages(ctx))
	err := s.Add(ctx, llms.MessageFromTextParts(llms.RoleHuman, "hello"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, chatmodel.ErrInvalidChatContext))
}
