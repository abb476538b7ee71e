package agents

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"

	"github.com/tutorstack/tutor/chatmodel"
	"github.com/tutorstack/tutor/pkg/llms"
	"github.com/tutorstack/tutor/pkg/metricskey"
)

// DefaultCacheTTL is how long a query response stays cached.
const DefaultCacheTTL = 5 * time.Minute

// RefusalAnswer is returned for questions outside the supported subjects.
const RefusalAnswer = `I'm sorry, but I can only help with questions related to math, physics, or chemistry.

Your question doesn't seem to fit into these categories. Could you please rephrase your question to focus on one of these subjects?

If you believe this is a mistake, please try rephrasing your question to make the subject clearer.`

// Response is the answer returned to the caller.
type Response struct {
	Answer     string    `json:"answer"`
	Subject    Subject   `json:"agent_type"`
	ToolsUsed  []string  `json:"tools_used,omitempty"`
	Confidence float64   `json:"confidence"`
	SessionID  string    `json:"session_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// QueryClassifier determines the subject of a question.
type QueryClassifier interface {
	Classify(ctx context.Context, query string) (*Classification, string)
}

// SubjectRunner is a subject agent the Tutor can route to.
type SubjectRunner interface {
	Name() string
	Run(ctx context.Context, input *CallInput, output *SubjectAnswer) (*llms.ContentResponse, error)
	LastRunMessages() []llms.Message
}

// TutorOption configures the Tutor.
type TutorOption func(*Tutor)

// WithCacheTTL overrides how long responses stay cached.
func WithCacheTTL(ttl time.Duration) TutorOption {
	return func(t *Tutor) {
		t.cacheTTL = ttl
	}
}

// WithNowFunc overrides the clock, for tests.
func WithNowFunc(now func() time.Time) TutorOption {
	return func(t *Tutor) {
		t.now = now
	}
}

type cacheEntry struct {
	resp    *Response
	expires time.Time
}

// Tutor routes a question to the subject agent chosen by the classifier,
// with a short lived response cache for repeated questions.
type Tutor struct {
	classifier QueryClassifier
	subjects   map[Subject]SubjectRunner

	cacheTTL time.Duration
	now      func() time.Time

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// NewTutor creates a Tutor routing between the given subject agents.
func NewTutor(classifier QueryClassifier, math, physics, chemistry SubjectRunner, options ...TutorOption) *Tutor {
	t := &Tutor{
		classifier: classifier,
		subjects: map[Subject]SubjectRunner{
			SubjectMath:      math,
			SubjectPhysics:   physics,
			SubjectChemistry: chemistry,
		},
		cacheTTL: DefaultCacheTTL,
		now:      time.Now,
		cache:    make(map[string]cacheEntry),
	}
	for _, opt := range options {
		opt(t)
	}
	return t
}

// Process answers a user query. Questions outside math, physics and chemistry
// get a refusal answer, not an error.
func (t *Tutor) Process(ctx context.Context, query string) (*Response, error) {
	if cached := t.getCached(query); cached != nil {
		metricskey.StatsQueriesCached.IncrCounter(1, string(cached.Subject))
		logger.ContextKV(ctx, xlog.DEBUG,
			"status", "cached_response",
			"subject", cached.Subject,
		)
		return cached, nil
	}

	started := time.Now()
	classification, method := t.classifier.Classify(ctx, query)
	subject := classification.Subject
	defer func() {
		metricskey.PerfTutorQuery.MeasureSince(started, string(subject))
	}()
	metricskey.StatsQueriesTotal.IncrCounter(1, string(subject))

	logger.ContextKV(ctx, xlog.INFO,
		"status", "classified",
		"subject", subject,
		"method", method,
		"confidence", classification.Confidence,
	)

	if subject == SubjectUnknown {
		return t.finish(ctx, query, &Response{
			Answer:  RefusalAnswer,
			Subject: SubjectUnknown,
		}), nil
	}

	agent := t.subjects[subject]
	if agent == nil {
		return nil, errors.Newf("no agent for subject %q", subject)
	}

	var out SubjectAnswer
	_, err := agent.Run(ctx, &CallInput{Input: query}, &out)
	if err != nil {
		return nil, errors.WithMessagef(err, "agent %s failed", agent.Name())
	}

	return t.finish(ctx, query, &Response{
		Answer:     out.Answer,
		Subject:    subject,
		ToolsUsed:  ToolsUsed(agent.LastRunMessages()),
		Confidence: out.Confidence,
	}), nil
}

func (t *Tutor) finish(ctx context.Context, query string, resp *Response) *Response {
	resp.SessionID = chatmodel.GetSessionID(ctx)
	resp.Timestamp = t.now().UTC()
	t.putCached(query, resp)
	return resp
}

func (t *Tutor) getCached(query string) *Response {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.cache[query]
	if !ok {
		return nil
	}
	if t.now().After(entry.expires) {
		delete(t.cache, query)
		return nil
	}
	return entry.resp
}

func (t *Tutor) putCached(query string, resp *Response) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cache[query] = cacheEntry{
		resp:    resp,
		expires: t.now().Add(t.cacheTTL),
	}
}

// ToolsUsed collects the distinct tool names that responded during a run,
// in call order.
func ToolsUsed(msgs []llms.Message) []string {
	var names []string
	seen := map[string]bool{}
	for _, msg := range msgs {
		for _, part := range msg.Parts {
			if tr, ok := part.(llms.ToolCallResponse); ok && !seen[tr.Name] {
				seen[tr.Name] = true
				names = append(names, tr.Name)
			}
		}
	}
	return names
}
