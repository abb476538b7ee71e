package agents

import (
	"context"

	"github.com/effective-security/xlog"

	"github.com/tutorstack/tutor/pkg/llms"
	"github.com/tutorstack/tutor/tools"
)

// NoopCallback does nothing.
type NoopCallback struct{}

func NewNoopCallback() *NoopCallback {
	return &NoopCallback{}
}

var _ Callback = (*NoopCallback)(nil)

func (l *NoopCallback) OnAgentStart(ctx context.Context, agent IAgent, input string) {}
func (l *NoopCallback) OnAgentEnd(ctx context.Context, agent IAgent, input string, resp *llms.ContentResponse) {
}
func (l *NoopCallback) OnAgentError(ctx context.Context, agent IAgent, input string, err error) {}
func (l *NoopCallback) OnToolNotFound(ctx context.Context, agent IAgent, toolName string)       {}
func (l *NoopCallback) OnAgentLLMParseError(ctx context.Context, agent IAgent, input, result string, err error) {
}
func (l *NoopCallback) OnToolStart(ctx context.Context, tool tools.ITool, input string) {}
func (l *NoopCallback) OnToolEnd(ctx context.Context, tool tools.ITool, input string, output string) {
}
func (l *NoopCallback) OnToolError(ctx context.Context, tool tools.ITool, input string, err error) {}

// PackageLoggerCallback reports agent and tool activity to the logger.
type PackageLoggerCallback struct {
	logger *xlog.PackageLogger
}

func NewPackageLoggerCallback(logger *xlog.PackageLogger) *PackageLoggerCallback {
	return &PackageLoggerCallback{logger: logger}
}

var _ Callback = (*PackageLoggerCallback)(nil)

func (l *PackageLoggerCallback) OnAgentStart(ctx context.Context, agent IAgent, input string) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "agent_start",
		"agent", agent.Name(),
		"input", input,
	)
}

func (l *PackageLoggerCallback) OnAgentEnd(ctx context.Context, agent IAgent, input string, resp *llms.ContentResponse) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "agent_end",
		"agent", agent.Name())
	for _, choice := range resp.Choices {
		if choice.Content != "" {
			l.logger.ContextKV(ctx, xlog.DEBUG, "result", choice.Content)
		}
	}
}

func (l *PackageLoggerCallback) OnAgentError(ctx context.Context, agent IAgent, input string, err error) {
	l.logger.ContextKV(ctx, xlog.ERROR,
		"event", "agent_error",
		"agent", agent.Name(),
		"err", err.Error(),
	)
}

func (l *PackageLoggerCallback) OnToolNotFound(ctx context.Context, agent IAgent, toolName string) {
	l.logger.ContextKV(ctx, xlog.WARNING,
		"event", "tool_not_found",
		"agent", agent.Name(),
		"tool", toolName,
	)
}

func (l *PackageLoggerCallback) OnAgentLLMParseError(ctx context.Context, agent IAgent, input, result string, err error) {
	l.logger.ContextKV(ctx, xlog.ERROR,
		"event", "agent_llm_parse_error",
		"agent", agent.Name(),
		"err", err.Error(),
	)
}

func (l *PackageLoggerCallback) OnToolStart(ctx context.Context, tool tools.ITool, input string) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "tool_start",
		"tool", tool.Name(),
		"input", input,
	)
}

func (l *PackageLoggerCallback) OnToolEnd(ctx context.Context, tool tools.ITool, input string, output string) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "tool_end",
		"tool", tool.Name(),
		"output", output,
	)
}

func (l *PackageLoggerCallback) OnToolError(ctx context.Context, tool tools.ITool, input string, err error) {
	l.logger.ContextKV(ctx, xlog.ERROR,
		"event", "tool_error",
		"tool", tool.Name(),
		"err", err.Error(),
	)
}
