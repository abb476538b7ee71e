// Package agents implements the tutoring agents: a generic LLM agent with a
// tool-call loop, subject agents for math, physics and chemistry, a query
// classifier and the tutor that routes between them.
package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/effective-security/xlog"

	"github.com/tutorstack/tutor/pkg/llms"
	"github.com/tutorstack/tutor/tools"
)

var logger = xlog.NewPackageLogger("github.com/tutorstack/tutor", "agents")

// IAgent is the common surface of all agents.
type IAgent interface {
	// Name returns the name of the Agent.
	Name() string
	// Description returns the description of the Agent, to be used in the
	// prompt of other Agents or LLMs. Should not exceed LLM model limit.
	Description() string
	// FormatPrompt renders the system prompt from the given inputs.
	FormatPrompt(values map[string]any) (llms.PromptValue, error)
	GetPromptInputVariables() []string

	Call(ctx context.Context, input *CallInput) (*llms.ContentResponse, error)
}

// Callback receives notifications about agent and tool activity.
type Callback interface {
	tools.Callback
	OnAgentStart(ctx context.Context, agent IAgent, input string)
	OnAgentEnd(ctx context.Context, agent IAgent, input string, resp *llms.ContentResponse)
	OnAgentError(ctx context.Context, agent IAgent, input string, err error)
	OnToolNotFound(ctx context.Context, agent IAgent, toolName string)
	OnAgentLLMParseError(ctx context.Context, agent IAgent, input, result string, err error)
}

// GetDescriptions renders a bullet list of agents for use in a prompt.
func GetDescriptions(list ...IAgent) string {
	var ts strings.Builder
	for _, item := range list {
		ts.WriteString(fmt.Sprintf("- `%s`: %s\n", item.Name(), item.Description()))
	}
	return ts.String()
}
