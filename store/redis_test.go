package store_test

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorstack/tutor/chatmodel"
	"github.com/tutorstack/tutor/pkg/llms"
	"github.com/tutorstack/tutor/store"
)

func Test_RedisStore(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR is not set")
	}

	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	require.NoError(t, client.Ping(ctx).Err(), "failed to connect to Redis")

	prefix := fmt.Sprintf("test-%d", time.Now().Unix())
	s := store.NewRedisStore(client, prefix)

	sctx := chatmodel.WithChatContext(ctx, chatmodel.NewChatContext("session-1", nil))

	assert.Empty(t, s.Messages(sctx))

	err := s.Add(sctx,
		llms.MessageFromTextParts(llms.RoleHuman, "what is H2O?"),
		llms.MessageFromTextParts(llms.RoleAI, "water"),
	)
	require.NoError(t, err)

	msgs := s.Messages(sctx)
	require.Len(t, msgs, 2)
	assert.Equal(t, llms.RoleHuman, msgs[0].Role)
	assert.Equal(t, "water", strings.TrimRight(msgs[1].GetContent(), "\n"))

	// tool call round trips through JSON
	err = s.Add(sctx, llms.MessageFromToolCalls(llms.RoleAI, llms.ToolCall{
		ID:   "call_1",
		Type: "function",
		FunctionCall: &llms.FunctionCall{
			Name:      "Calculator",
			Arguments: `{"Expression":"2+2"}`,
		},
	}))
	require.NoError(t, err)

	msgs = s.Messages(sctx)
	require.Len(t, msgs, 3)
	require.Len(t, msgs[2].Parts, 1)
	tc, ok := msgs[2].Parts[0].(llms.ToolCall)
	require.True(t, ok)
	assert.Equal(t, "Calculator", tc.FunctionCall.Name)

	require.NoError(t, s.Reset(sctx))
	assert.Empty(t, s.Messages(sctx))
}
