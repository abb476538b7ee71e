package guard_test

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorstack/tutor/pkg/llms"
	"github.com/tutorstack/tutor/pkg/llms/guard"
)

type fakeModel struct {
	calls     int
	responses []*llms.ContentResponse
	errs      []error
}

func (m *fakeModel) GetName() string                    { return "fake-model" }
func (m *fakeModel) GetProviderType() llms.ProviderType { return llms.ProviderGoogleAI }

func (m *fakeModel) GenerateContent(_ context.Context, _ []llms.Message, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	idx := m.calls
	m.calls++
	if idx < len(m.errs) && m.errs[idx] != nil {
		return nil, m.errs[idx]
	}
	if idx < len(m.responses) {
		return m.responses[idx], nil
	}
	return textResponse("ok"), nil
}

func textResponse(text string) *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: text}},
	}
}

func Test_Guard_PassThrough(t *testing.T) {
	m := &fakeModel{}
	g := guard.New(m)

	resp, err := g.GenerateContent(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, resp.Choices, 1)
	assert.Equal(t, "ok", resp.Choices[0].Content)
	assert.Equal(t, "fake-model", g.GetName())
	assert.Equal(t, llms.ProviderGoogleAI, g.GetProviderType())
}

func Test_Guard_RetriesEmptyResponse(t *testing.T) {
	m := &fakeModel{
		responses: []*llms.ContentResponse{
			{},
			{},
			textResponse("third time lucky"),
		},
	}
	g := guard.New(m, guard.WithMaxRetries(2))

	resp, err := g.GenerateContent(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "third time lucky", resp.Choices[0].Content)
	assert.Equal(t, 3, m.calls)
}

func Test_Guard_RetriesExhausted(t *testing.T) {
	m := &fakeModel{
		responses: []*llms.ContentResponse{{}, {}, {}},
	}
	g := guard.New(m, guard.WithMaxRetries(2))

	_, err := g.GenerateContent(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed after 2 retries")
	assert.Equal(t, 3, m.calls)
}

func Test_Guard_RateLimit(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }

	m := &fakeModel{}
	g := guard.New(m, guard.WithRatePerMinute(3), guard.WithClock(clock))

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := g.GenerateContent(ctx, nil)
		require.NoError(t, err)
	}

	_, err := g.GenerateContent(ctx, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, guard.ErrRateLimited))

	// the window slides, budget is restored after a minute
	now = now.Add(61 * time.Second)
	_, err = g.GenerateContent(ctx, nil)
	require.NoError(t, err)
}

func Test_Guard_CircuitBreaker(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }

	failing := errors.New("upstream unavailable")
	m := &fakeModel{
		errs: []error{failing, failing, failing, nil},
	}
	g := guard.New(m,
		guard.WithFailureThreshold(3),
		guard.WithResetTimeout(time.Minute),
		guard.WithRatePerMinute(100),
		guard.WithClock(clock),
	)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := g.GenerateContent(ctx, nil)
		require.Error(t, err)
	}

	// breaker is open, delegate must not be called
	_, err := g.GenerateContent(ctx, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, guard.ErrCircuitOpen))
	assert.Equal(t, 3, m.calls)

	// after the reset timeout a probe goes through and closes the breaker
	now = now.Add(61 * time.Second)
	_, err = g.GenerateContent(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, m.calls)
}
