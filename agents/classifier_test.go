package agents_test

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"

	"github.com/tutorstack/tutor/agents"
	"github.com/tutorstack/tutor/pkg/llms"
)

func Test_Classifier_Greeting(t *testing.T) {
	model := &fakeModel{}
	cls := agents.NewClassifier(model)

	for _, query := range []string{"hi", "Hello", "HEY", "greetings", "ok", ""} {
		res, method := cls.Classify(context.Background(), query)
		assert.Equal(t, agents.SubjectUnknown, res.Subject, "query: %q", query)
		assert.Equal(t, "greeting", method, "query: %q", query)
	}
	// the LLM must not be consulted for greetings
	assert.Equal(t, 0, model.calls)
}

func Test_Classifier_LLM(t *testing.T) {
	model := &fakeModel{
		responses: []*llms.ContentResponse{
			textResponse(`{"subject": "physics", "confidence": 0.92}`),
		},
	}
	cls := agents.NewClassifier(model)

	res, method := cls.Classify(context.Background(), "How fast does a ball fall after 3 seconds?")
	assert.Equal(t, agents.SubjectPhysics, res.Subject)
	assert.Equal(t, "llm", method)
	assert.InDelta(t, 0.92, res.Confidence, 0.001)
}

func Test_Classifier_KeywordFallback(t *testing.T) {
	model := &fakeModel{
		errs: []error{errors.New("model unavailable")},
	}
	cls := agents.NewClassifier(model)

	res, method := cls.Classify(context.Background(), "Solve this algebra equation for x")
	assert.Equal(t, agents.SubjectMath, res.Subject)
	assert.Equal(t, "keyword", method)
	assert.Greater(t, res.Confidence, 0.0)
}

func Test_Classifier_KeywordFallbackUnknown(t *testing.T) {
	model := &fakeModel{
		errs: []error{errors.New("model unavailable")},
	}
	cls := agents.NewClassifier(model)

	res, method := cls.Classify(context.Background(), "What is the best pizza topping?")
	assert.Equal(t, agents.SubjectUnknown, res.Subject)
	assert.Equal(t, "keyword", method)
}

func Test_Classifier_InvalidLLMSubject(t *testing.T) {
	model := &fakeModel{
		responses: []*llms.ContentResponse{
			textResponse(`{"subject": "astrology", "confidence": 0.9}`),
		},
	}
	cls := agents.NewClassifier(model)

	res, method := cls.Classify(context.Background(), "Tell me about chemical reactions of an atom")
	assert.Equal(t, "keyword", method)
	assert.Equal(t, agents.SubjectChemistry, res.Subject)
}
