package agents_test

import (
	"context"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorstack/tutor/agents"
	"github.com/tutorstack/tutor/chatmodel"
	"github.com/tutorstack/tutor/encoding"
	"github.com/tutorstack/tutor/pkg/llms"
	"github.com/tutorstack/tutor/pkg/prompts"
	"github.com/tutorstack/tutor/store"
	"github.com/tutorstack/tutor/tools/calculator"
)

type fakeModel struct {
	name      string
	responses []*llms.ContentResponse
	errs      []error
	calls     int
	history   [][]llms.Message
}

func (m *fakeModel) GetName() string {
	if m.name != "" {
		return m.name
	}
	return "fake-model"
}

func (m *fakeModel) GetProviderType() llms.ProviderType {
	return llms.ProviderGoogleAI
}

func (m *fakeModel) GenerateContent(_ context.Context, messages []llms.Message, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	idx := m.calls
	m.calls++
	m.history = append(m.history, messages)
	if idx < len(m.errs) && m.errs[idx] != nil {
		return nil, m.errs[idx]
	}
	if idx < len(m.responses) {
		return m.responses[idx], nil
	}
	return &llms.ContentResponse{}, nil
}

func textResponse(content string) *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{
			{Content: content},
		},
	}
}

func toolCallResponse(id, name, args string) *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{
			{
				ToolCalls: []llms.ToolCall{
					{
						ID:   id,
						Type: "function",
						FunctionCall: &llms.FunctionCall{
							Name:      name,
							Arguments: args,
						},
					},
				},
			},
		},
	}
}

func Test_Agent_ToolCallLoop(t *testing.T) {
	model := &fakeModel{
		responses: []*llms.ContentResponse{
			toolCallResponse("call_1", calculator.ToolName, `{"expression": "23 * 17"}`),
			textResponse(`{"answer": "23 * 17 = 391", "confidence": 0.95}`),
		},
	}

	prompt := prompts.NewPromptTemplate("You are a math tutor.", nil)
	ag := agents.NewAgent[agents.SubjectAnswer](model, prompt).
		WithName("MathAgent").
		WithTools(calculator.New())

	var out agents.SubjectAnswer
	resp, err := ag.Run(context.Background(), &agents.CallInput{Input: "What is 23 * 17?"}, &out)
	require.NoError(t, err)
	require.NotNil(t, resp)

	assert.Equal(t, "23 * 17 = 391", out.Answer)
	assert.InDelta(t, 0.95, out.Confidence, 0.001)
	assert.Equal(t, 2, model.calls)

	// the tool result must be fed back to the model on the second call
	last := model.history[1]
	var toolResult string
	for _, msg := range last {
		for _, part := range msg.Parts {
			if tr, ok := part.(llms.ToolCallResponse); ok {
				toolResult = tr.Content
				assert.Equal(t, calculator.ToolName, tr.Name)
				assert.Equal(t, "call_1", tr.ToolCallID)
			}
		}
	}
	assert.Contains(t, toolResult, "391")

	assert.Equal(t, []string{calculator.ToolName}, agents.ToolsUsed(ag.LastRunMessages()))
}

func Test_Agent_ToolNotFound(t *testing.T) {
	model := &fakeModel{
		responses: []*llms.ContentResponse{
			toolCallResponse("call_1", "Telescope", `{"target": "mars"}`),
			textResponse(`{"answer": "done", "confidence": 0.5}`),
		},
	}

	prompt := prompts.NewPromptTemplate("You are a math tutor.", nil)
	ag := agents.NewAgent[agents.SubjectAnswer](model, prompt).
		WithName("MathAgent").
		WithTools(calculator.New())

	var out agents.SubjectAnswer
	_, err := ag.Run(context.Background(), &agents.CallInput{Input: "look at mars"}, &out)
	require.NoError(t, err)

	// the model gets an advisory message listing the available tools
	var advisory string
	for _, msg := range model.history[1] {
		for _, part := range msg.Parts {
			if tr, ok := part.(llms.ToolCallResponse); ok {
				advisory = tr.Content
			}
		}
	}
	assert.Contains(t, advisory, "Tool `Telescope` not found")
	assert.Contains(t, advisory, calculator.ToolName)
}

func Test_Agent_MalformedToolInput(t *testing.T) {
	model := &fakeModel{
		responses: []*llms.ContentResponse{
			toolCallResponse("call_1", calculator.ToolName, `not json at all {{`),
			textResponse(`{"answer": "recovered", "confidence": 0.5}`),
		},
	}

	prompt := prompts.NewPromptTemplate("You are a math tutor.", nil)
	ag := agents.NewAgent[agents.SubjectAnswer](model, prompt).
		WithName("MathAgent").
		WithTools(calculator.New())

	var out agents.SubjectAnswer
	_, err := ag.Run(context.Background(), &agents.CallInput{Input: "calculate"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "recovered", out.Answer)

	var correction string
	for _, msg := range model.history[1] {
		for _, part := range msg.Parts {
			if tr, ok := part.(llms.ToolCallResponse); ok {
				correction = tr.Content
			}
		}
	}
	assert.Contains(t, correction, "check the JSON schema")
}

func Test_Agent_EmptyResponseRetries(t *testing.T) {
	model := &fakeModel{
		responses: []*llms.ContentResponse{
			{},
			textResponse(`{"answer": "second try", "confidence": 0.9}`),
		},
	}

	prompt := prompts.NewPromptTemplate("You are a math tutor.", nil)
	ag := agents.NewAgent[agents.SubjectAnswer](model, prompt).WithName("MathAgent")

	var out agents.SubjectAnswer
	_, err := ag.Run(context.Background(), &agents.CallInput{Input: "hello"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "second try", out.Answer)
	assert.Equal(t, 2, model.calls)
}

func Test_Agent_LLMError(t *testing.T) {
	model := &fakeModel{
		errs: []error{errors.New("boom")},
	}

	prompt := prompts.NewPromptTemplate("You are a math tutor.", nil)
	ag := agents.NewAgent[agents.SubjectAnswer](model, prompt).WithName("MathAgent")

	var out agents.SubjectAnswer
	_, err := ag.Run(context.Background(), &agents.CallInput{Input: "hello"}, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to generate content")
}

func Test_Agent_ParseError(t *testing.T) {
	model := &fakeModel{
		responses: []*llms.ContentResponse{
			textResponse(`this is not the JSON you are looking for`),
		},
	}

	prompt := prompts.NewPromptTemplate("You are a math tutor.", nil)
	ag := agents.NewAgent[agents.SubjectAnswer](model, prompt).WithName("MathAgent")

	var out agents.SubjectAnswer
	_, err := ag.Run(context.Background(), &agents.CallInput{Input: "hello"}, &out)
	require.Error(t, err)
}

func Test_Agent_StoreHistory(t *testing.T) {
	model := &fakeModel{
		responses: []*llms.ContentResponse{
			textResponse(`{"answer": "first answer", "confidence": 0.9}`),
			textResponse(`{"answer": "second answer", "confidence": 0.9}`),
		},
	}

	memStore := store.NewMemoryStore()
	prompt := prompts.NewPromptTemplate("You are a math tutor.", nil)
	ag := agents.NewAgent[agents.SubjectAnswer](model, prompt, agents.WithStore(memStore)).
		WithName("MathAgent")

	// without a session the store cannot be keyed
	var out agents.SubjectAnswer
	_, err := ag.Run(context.Background(), &agents.CallInput{Input: "first question"}, &out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, chatmodel.ErrInvalidChatContext))

	ctx := chatmodel.WithChatContext(context.Background(), chatmodel.NewChatContext("session-1", nil))
	_, err = ag.Run(ctx, &agents.CallInput{Input: "first question"}, &out)
	require.NoError(t, err)

	_, err = ag.Run(ctx, &agents.CallInput{Input: "second question"}, &out)
	require.NoError(t, err)

	// the second call must carry the first exchange as history,
	// rendered content always carries a trailing newline
	second := model.history[1]
	var texts []string
	for _, msg := range second {
		texts = append(texts, strings.TrimRight(msg.GetContent(), "\n"))
	}
	assert.Contains(t, texts, "first question")
	assert.Contains(t, texts, "first answer")

	saved := memStore.Messages(ctx)
	assert.Len(t, saved, 4)
}

func Test_Agent_SystemPromptSchema(t *testing.T) {
	model := &fakeModel{}
	prompt := prompts.NewPromptTemplate("You are a {{ subject }} tutor.", []string{"subject"})

	// json mode does not set a response format, so the schema goes into the prompt
	ag := agents.NewAgent[agents.SubjectAnswer](model, prompt,
		agents.WithMode(encoding.ModeJSON),
		agents.WithPromptInput(map[string]any{"subject": "physics"}),
	).WithName("PhysicsAgent")

	sysprompt, err := ag.GetSystemPrompt(context.Background(), nil)
	require.NoError(t, err)
	assert.Contains(t, sysprompt, "You are a physics tutor.")
	assert.Contains(t, sysprompt, "# OUTPUT SCHEMA")
}

func Test_Agent_SchemaPromptWithTools(t *testing.T) {
	model := &fakeModel{
		responses: []*llms.ContentResponse{
			toolCallResponse("call_1", calculator.ToolName, `{"expression": "6 * 7"}`),
			textResponse(`{"answer": "The answer to 6 * 7 is 42.", "confidence": 0.95}`),
		},
	}

	ag := agents.NewMathAgent(model)

	var out agents.SubjectAnswer
	_, err := ag.Run(context.Background(), &agents.CallInput{Input: "What is 6 * 7?"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "The answer to 6 * 7 is 42.", out.Answer)

	// the schema mode binds a response format, but the provider drops it
	// when function tools are bound, so every request must carry the
	// output schema in the system prompt
	require.Equal(t, 2, model.calls)
	for _, history := range model.history {
		sys := history[0]
		require.Equal(t, llms.RoleSystem, sys.Role)
		assert.Contains(t, sys.GetContent(), "# OUTPUT SCHEMA")
		assert.Contains(t, sys.GetContent(), "confidence")
	}
}
