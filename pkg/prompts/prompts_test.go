package prompts_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorstack/tutor/pkg/llms"
	"github.com/tutorstack/tutor/pkg/prompts"
)

func Test_PromptTemplate_Static(t *testing.T) {
	p := prompts.NewPromptTemplate("You are a helpful tutor.", nil)

	val, err := p.FormatPrompt(nil)
	require.NoError(t, err)
	assert.Equal(t, "You are a helpful tutor.", val.String())

	msgs := val.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, llms.RoleSystem, msgs[0].Role)
}

func Test_PromptTemplate_Variables(t *testing.T) {
	p := prompts.NewPromptTemplate("Answer the {{ subject }} question: {{ question }}", []string{"subject", "question"})
	assert.Equal(t, []string{"subject", "question"}, p.GetInputVariables())

	val, err := p.FormatPrompt(map[string]any{
		"subject":  "math",
		"question": "what is 2+2?",
	})
	require.NoError(t, err)
	assert.Equal(t, "Answer the math question: what is 2+2?", val.String())
}

func Test_PromptTemplate_MissingVariable(t *testing.T) {
	p := prompts.NewPromptTemplate("{{ subject }}", []string{"subject"})

	_, err := p.FormatPrompt(map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing prompt input variable: subject")
}

func Test_ChatPromptValue(t *testing.T) {
	v := prompts.ChatPromptValue{
		llms.MessageFromTextParts(llms.RoleSystem, "be brief"),
		llms.MessageFromTextParts(llms.RoleHuman, "hello"),
	}
	assert.Len(t, v.Messages(), 2)
	assert.NotEmpty(t, v.String())
}
