// Package prompts renders system prompts from Jinja-style templates.
package prompts

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/nikolalohinski/gonja"
	"github.com/nikolalohinski/gonja/exec"

	"github.com/tutorstack/tutor/pkg/llms"
	"github.com/tutorstack/tutor/pkg/llmutils"
)

// FormatPrompter formats a prompt from template inputs.
type FormatPrompter interface {
	FormatPrompt(inputs map[string]any) (llms.PromptValue, error)
	GetInputVariables() []string
}

var _ llms.PromptValue = ChatPromptValue{}

// ChatPromptValue is a prompt value that is a list of chat messages.
type ChatPromptValue []llms.Message

// String returns the chat message slice as a buffer string.
func (v ChatPromptValue) String() string {
	var buf strings.Builder
	llmutils.PrintMessages(&buf, v)
	return buf.String()
}

// Messages returns the message slice.
func (v ChatPromptValue) Messages() []llms.Message {
	return v
}

// StringPromptValue is a prompt value that is a plain string.
type StringPromptValue string

func (v StringPromptValue) String() string {
	return string(v)
}

// Messages returns the prompt as a single system message.
func (v StringPromptValue) Messages() []llms.Message {
	return []llms.Message{
		llms.MessageFromTextParts(llms.RoleSystem, string(v)),
	}
}

// PromptTemplate renders a system prompt from a Jinja template.
type PromptTemplate struct {
	template       string
	inputVariables []string
	tpl            *exec.Template
}

var _ FormatPrompter = (*PromptTemplate)(nil)

// NewPromptTemplate creates a prompt template. The template is compiled
// lazily on first format so static prompts carry no parsing cost.
func NewPromptTemplate(template string, inputVariables []string) *PromptTemplate {
	return &PromptTemplate{
		template:       template,
		inputVariables: inputVariables,
	}
}

// FormatPrompt renders the template with the given inputs.
func (p *PromptTemplate) FormatPrompt(inputs map[string]any) (llms.PromptValue, error) {
	if len(p.inputVariables) == 0 {
		return StringPromptValue(p.template), nil
	}

	if p.tpl == nil {
		tpl, err := gonja.FromString(p.template)
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse prompt template")
		}
		p.tpl = tpl
	}

	for _, name := range p.inputVariables {
		if _, ok := inputs[name]; !ok {
			return nil, errors.Newf("missing prompt input variable: %s", name)
		}
	}

	out, err := p.tpl.Execute(gonja.Context(inputs))
	if err != nil {
		return nil, errors.Wrap(err, "failed to render prompt template")
	}
	return StringPromptValue(out), nil
}

// GetInputVariables returns the variables the template expects.
func (p *PromptTemplate) GetInputVariables() []string {
	return p.inputVariables
}
