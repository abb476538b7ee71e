package llmutils_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tutorstack/tutor/pkg/llms"
	"github.com/tutorstack/tutor/pkg/llmutils"
)

func Test_CleanJSON(t *testing.T) {
	tcases := []struct {
		in  string
		exp string
	}{
		{`{"a": 1}`, `{"a": 1}`},
		{`Sure, here you go: {"a": 1}`, `{"a": 1}`},
		{`{"a": 1} Hope this helps!`, `{"a": 1}`},
		{"```json\n[1, 2, 3]\n```", `[1, 2, 3]`},
		{`no json here`, `no json here`},
	}
	for _, tc := range tcases {
		assert.Equal(t, tc.exp, string(llmutils.CleanJSON([]byte(tc.in))), "input: %s", tc.in)
	}
}

func Test_TrimBackticks(t *testing.T) {
	assert.Equal(t, `{"a": 1}`, llmutils.TrimBackticks("```json\n{\"a\": 1}\n```"))
	assert.Equal(t, `{"a": 1}`, llmutils.TrimBackticks("```\n{\"a\": 1}\n```"))
	assert.Equal(t, `{"a": 1}`, llmutils.TrimBackticks(`{"a": 1}`))
}

func Test_MergeInputs(t *testing.T) {
	config := map[string]any{"a": 1, "b": 2}
	user := map[string]any{"b": 3, "c": 4}

	merged := llmutils.MergeInputs(config, user)
	assert.Equal(t, map[string]any{"a": 1, "b": 3, "c": 4}, merged)

	assert.Equal(t, user, llmutils.MergeInputs(nil, user))
}

func Test_CountMessagesContentSize(t *testing.T) {
	msgs := []llms.Message{
		llms.MessageFromTextParts(llms.RoleSystem, "12345"),
		llms.MessageFromToolCalls(llms.RoleAI, llms.ToolCall{
			ID:   "call_1",
			Type: "function",
			FunctionCall: &llms.FunctionCall{
				Name:      "Calc",
				Arguments: `{"x":1}`,
			},
		}),
		llms.MessageFromToolResponse(llms.RoleTool, llms.ToolCallResponse{
			ToolCallID: "call_1",
			Name:       "Calc",
			Content:    "42",
		}),
	}
	// 5 text + 4 name + 7 args + 2 tool content
	assert.Equal(t, uint64(18), llmutils.CountMessagesContentSize(msgs))
}

func Test_CountTokens(t *testing.T) {
	resp := &llms.ContentResponse{
		Choices: []*llms.ContentChoice{
			{
				GenerationInfo: map[string]any{
					"InputTokens":  int32(10),
					"OutputTokens": int32(20),
					"TotalTokens":  int32(30),
				},
			},
		},
	}
	in, out, total := llmutils.CountTokens(resp)
	assert.Equal(t, int64(10), in)
	assert.Equal(t, int64(20), out)
	assert.Equal(t, int64(30), total)
}

func Test_PrintMessages(t *testing.T) {
	var sb strings.Builder
	llmutils.PrintMessages(&sb, []llms.Message{
		llms.MessageFromTextParts(llms.RoleHuman, "hello"),
		llms.MessageFromTextParts(llms.RoleAI, "hi"),
	})
	assert.Equal(t, "human: hello\nai: hi\n", sb.String())
}
