package agents_test

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorstack/tutor/agents"
	"github.com/tutorstack/tutor/chatmodel"
	"github.com/tutorstack/tutor/pkg/llms"
)

type fakeClassifier struct {
	subject agents.Subject
	method  string
	calls   int
}

func (c *fakeClassifier) Classify(_ context.Context, _ string) (*agents.Classification, string) {
	c.calls++
	return &agents.Classification{Subject: c.subject, Confidence: 0.9}, c.method
}

type fakeSubjectAgent struct {
	name   string
	answer agents.SubjectAnswer
	err    error
	calls  int
}

func (a *fakeSubjectAgent) Name() string {
	return a.name
}

func (a *fakeSubjectAgent) Run(_ context.Context, _ *agents.CallInput, output *agents.SubjectAnswer) (*llms.ContentResponse, error) {
	a.calls++
	if a.err != nil {
		return nil, a.err
	}
	*output = a.answer
	return &llms.ContentResponse{}, nil
}

func (a *fakeSubjectAgent) LastRunMessages() []llms.Message {
	return []llms.Message{
		llms.MessageFromToolResponse(llms.RoleTool, llms.ToolCallResponse{
			ToolCallID: "call_1",
			Name:       "Calculator",
			Content:    "42",
		}),
	}
}

func newTestTutor(cls agents.QueryClassifier, math, physics, chemistry agents.SubjectRunner, opts ...agents.TutorOption) *agents.Tutor {
	return agents.NewTutor(cls, math, physics, chemistry, opts...)
}

func Test_Tutor_Routes(t *testing.T) {
	math := &fakeSubjectAgent{name: "MathAgent", answer: agents.SubjectAnswer{Answer: "6 * 7 = 42", Confidence: 0.95}}
	physics := &fakeSubjectAgent{name: "PhysicsAgent"}
	chemistry := &fakeSubjectAgent{name: "ChemistryAgent"}
	cls := &fakeClassifier{subject: agents.SubjectMath, method: "llm"}

	tut := newTestTutor(cls, math, physics, chemistry)

	ctx := chatmodel.WithChatContext(context.Background(), chatmodel.NewChatContext("session-1", nil))
	resp, err := tut.Process(ctx, "What is 6 * 7?")
	require.NoError(t, err)

	assert.Equal(t, "6 * 7 = 42", resp.Answer)
	assert.Equal(t, agents.SubjectMath, resp.Subject)
	assert.Equal(t, []string{"Calculator"}, resp.ToolsUsed)
	assert.InDelta(t, 0.95, resp.Confidence, 0.001)
	assert.Equal(t, "session-1", resp.SessionID)
	assert.False(t, resp.Timestamp.IsZero())

	assert.Equal(t, 1, math.calls)
	assert.Equal(t, 0, physics.calls)
	assert.Equal(t, 0, chemistry.calls)
}

func Test_Tutor_Refusal(t *testing.T) {
	math := &fakeSubjectAgent{name: "MathAgent"}
	physics := &fakeSubjectAgent{name: "PhysicsAgent"}
	chemistry := &fakeSubjectAgent{name: "ChemistryAgent"}
	cls := &fakeClassifier{subject: agents.SubjectUnknown, method: "greeting"}

	tut := newTestTutor(cls, math, physics, chemistry)

	resp, err := tut.Process(context.Background(), "hello")
	require.NoError(t, err)

	assert.Equal(t, agents.SubjectUnknown, resp.Subject)
	assert.Contains(t, resp.Answer, "math, physics, or chemistry")
	assert.Empty(t, resp.ToolsUsed)
	assert.Equal(t, 0, math.calls)
}

func Test_Tutor_AgentError(t *testing.T) {
	math := &fakeSubjectAgent{name: "MathAgent", err: errors.New("llm down")}
	cls := &fakeClassifier{subject: agents.SubjectMath, method: "llm"}

	tut := newTestTutor(cls, math, &fakeSubjectAgent{}, &fakeSubjectAgent{})

	_, err := tut.Process(context.Background(), "What is 6 * 7?")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MathAgent")
}

func Test_Tutor_Cache(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	math := &fakeSubjectAgent{name: "MathAgent", answer: agents.SubjectAnswer{Answer: "42", Confidence: 0.9}}
	cls := &fakeClassifier{subject: agents.SubjectMath, method: "llm"}

	tut := newTestTutor(cls, math, &fakeSubjectAgent{}, &fakeSubjectAgent{},
		agents.WithNowFunc(clock))

	ctx := context.Background()
	_, err := tut.Process(ctx, "What is 6 * 7?")
	require.NoError(t, err)
	assert.Equal(t, 1, math.calls)

	// repeated query inside the TTL is served from cache
	_, err = tut.Process(ctx, "What is 6 * 7?")
	require.NoError(t, err)
	assert.Equal(t, 1, math.calls)
	assert.Equal(t, 1, cls.calls)

	// a different query is not
	_, err = tut.Process(ctx, "What is 7 * 8?")
	require.NoError(t, err)
	assert.Equal(t, 2, math.calls)

	// the entry expires after the TTL
	now = now.Add(agents.DefaultCacheTTL + time.Second)
	_, err = tut.Process(ctx, "What is 6 * 7?")
	require.NoError(t, err)
	assert.Equal(t, 3, math.calls)
}
