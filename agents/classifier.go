package agents

import (
	"context"
	"strings"

	"github.com/effective-security/xlog"

	"github.com/tutorstack/tutor/pkg/llms"
	"github.com/tutorstack/tutor/pkg/llmutils"
	"github.com/tutorstack/tutor/pkg/metricskey"
	"github.com/tutorstack/tutor/pkg/prompts"
)

// Subject is a tutoring subject.
type Subject string

const (
	SubjectMath      Subject = "math"
	SubjectPhysics   Subject = "physics"
	SubjectChemistry Subject = "chemistry"
	SubjectUnknown   Subject = "unknown"
)

// Classification is the typed output of the classifier.
type Classification struct {
	Subject    Subject `json:"subject" jsonschema:"title=Subject,description=The subject of the question: math physics chemistry or unknown.,enum=math,enum=physics,enum=chemistry,enum=unknown"`
	Confidence float64 `json:"confidence" jsonschema:"title=Confidence,description=Confidence in the classification between 0 and 1."`
}

// GetContent gets the content of the message for the chat history.
func (c Classification) GetContent() string {
	return llmutils.ToJSON(c)
}

const classifierPromptTemplate = `You are a subject classifier for an AI tutoring system.
Your task is to analyze the user's question and determine which subject it belongs to: math, physics, or chemistry.

Consider the following guidelines:
- Math questions involve calculations, equations, algebra, geometry, calculus, etc.
- Physics questions involve forces, energy, motion, waves, electricity, etc.
- Chemistry questions involve elements, reactions, compounds, molecules, etc.

If the question does not clearly fit any of these subjects, classify it as "unknown".`

// greetings are classified as unknown without calling the LLM.
var greetings = map[string]bool{
	"hi":        true,
	"hello":     true,
	"hey":       true,
	"greetings": true,
}

var subjectKeywords = map[Subject][]string{
	SubjectMath:      {"math", "mathematics", "algebra", "calculus", "geometry", "trigonometry", "equation", "function"},
	SubjectPhysics:   {"physics", "force", "motion", "energy", "velocity", "acceleration", "mass", "gravity"},
	SubjectChemistry: {"chemistry", "chemical", "molecule", "atom", "reaction", "element", "compound", "solution"},
}

// Classifier determines the subject of a question. It asks the LLM first and
// falls back to keyword matching when the LLM call or parsing fails.
type Classifier struct {
	agent *Agent[Classification]
}

// NewClassifier creates a Classifier backed by the given model.
func NewClassifier(llmModel llms.Model, options ...Option) *Classifier {
	prompt := prompts.NewPromptTemplate(classifierPromptTemplate, nil)

	options = append(options, WithSkipMessageHistory(true))
	agent := NewAgent[Classification](llmModel, prompt, options...).
		WithName("Classifier").
		WithDescription("Classifies a question into math, physics, chemistry or unknown.")

	return &Classifier{agent: agent}
}

// Classify returns the subject of the query and the method used to determine
// it: "greeting", "llm" or "keyword".
func (c *Classifier) Classify(ctx context.Context, query string) (*Classification, string) {
	normalized := strings.ToLower(strings.TrimSpace(query))
	if len(normalized) < 3 || greetings[normalized] {
		res := &Classification{Subject: SubjectUnknown, Confidence: 1}
		metricskey.StatsClassifications.IncrCounter(1, string(res.Subject), "greeting")
		return res, "greeting"
	}

	var out Classification
	_, err := c.agent.Run(ctx, &CallInput{Input: query}, &out)
	if err == nil && validSubject(out.Subject) {
		metricskey.StatsClassifications.IncrCounter(1, string(out.Subject), "llm")
		return &out, "llm"
	}
	if err != nil {
		logger.ContextKV(ctx, xlog.WARNING,
			"status", "classifier_llm_failed",
			"err", err.Error(),
		)
	}

	res := c.classifyByKeywords(normalized)
	metricskey.StatsClassifications.IncrCounter(1, string(res.Subject), "keyword")
	return res, "keyword"
}

func (c *Classifier) classifyByKeywords(query string) *Classification {
	scores := map[Subject]int{}
	total := 0
	for subject, keywords := range subjectKeywords {
		for _, keyword := range keywords {
			if strings.Contains(query, keyword) {
				scores[subject]++
				total++
			}
		}
	}

	best := SubjectUnknown
	bestScore := 0
	// deterministic order so ties do not flip between runs
	for _, subject := range []Subject{SubjectMath, SubjectPhysics, SubjectChemistry} {
		if scores[subject] > bestScore {
			best = subject
			bestScore = scores[subject]
		}
	}
	if bestScore == 0 {
		return &Classification{Subject: SubjectUnknown, Confidence: 1}
	}
	return &Classification{
		Subject:    best,
		Confidence: float64(bestScore) / float64(total),
	}
}

func validSubject(s Subject) bool {
	switch s {
	case SubjectMath, SubjectPhysics, SubjectChemistry, SubjectUnknown:
		return true
	}
	return false
}
