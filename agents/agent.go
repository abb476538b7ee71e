package agents

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/slices"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
	"github.com/invopop/jsonschema"

	"github.com/tutorstack/tutor/chatmodel"
	"github.com/tutorstack/tutor/encoding"
	"github.com/tutorstack/tutor/pkg/llms"
	"github.com/tutorstack/tutor/pkg/llmutils"
	"github.com/tutorstack/tutor/pkg/metricskey"
	"github.com/tutorstack/tutor/pkg/prompts"
	"github.com/tutorstack/tutor/pkg/schema"
	"github.com/tutorstack/tutor/tools"
)

// CallInput is the input for an Agent call.
type CallInput struct {
	// Input is the user question or instruction.
	Input string
	// PromptInputs are merged into the system prompt template variables.
	PromptInputs map[string]any
	// Messages are extra messages appended after the user message.
	Messages []llms.Message
	// Options are per call configuration overrides.
	Options []Option
}

// Agent runs a system prompt and a tool-call loop against an LLM,
// and parses the model output into a typed result.
type Agent[O chatmodel.ContentProvider] struct {
	LLM          llms.Model
	OutputParser chatmodel.OutputParser[O]

	toolsByName map[string]tools.ITool
	toolsNames  []string
	tools       []tools.ITool
	llmToolDefs []llms.Tool

	cfg         *Config
	name        string
	description string
	sysprompt   prompts.FormatPrompter
	runMessages []llms.Message
}

var _ IAgent = (*Agent[chatmodel.String])(nil)

// NewAgent creates an Agent producing output of type O.
func NewAgent[O chatmodel.ContentProvider](
	llmModel llms.Model,
	sysprompt prompts.FormatPrompter,
	options ...Option) *Agent[O] {
	ret := &Agent[O]{
		cfg:         NewConfig(options...),
		LLM:         llmModel,
		sysprompt:   sysprompt,
		name:        "Generic Agent",
		description: "An AI agent that can perform various tasks.",
	}

	var output O
	ret.OutputParser, _ = encoding.NewTypedOutputParser(output, ret.cfg.Mode)

	prov := llmModel.GetProviderType()
	if ret.cfg.Mode == encoding.ModeJSONSchema && prov.Supports(llms.CapabilityJSONSchema) {
		rf, err := schema.NewResponseFormat(reflect.TypeOf(output))
		if err != nil {
			logger.KV(xlog.ERROR,
				"status", "failed_to_create_response_format",
				"err", err.Error(),
			)
		}
		ret.cfg.ResponseFormat = rf
	}

	return ret
}

// WithOutputParser replaces the output parser.
func (a *Agent[O]) WithOutputParser(outputParser chatmodel.OutputParser[O]) *Agent[O] {
	a.OutputParser = outputParser
	return a
}

func (a *Agent[O]) GetCallConfig(opts ...Option) *Config {
	return a.cfg.Apply(opts...)
}

// WithName sets the name of the Agent, when used in a prompt of other Agents or LLMs.
func (a *Agent[O]) WithName(name string) *Agent[O] {
	a.name = name
	return a
}

// WithDescription sets the description of the Agent, to be used in the prompt of other Agents or LLMs.
func (a *Agent[O]) WithDescription(description string) *Agent[O] {
	a.description = description
	return a
}

// Name returns the name of the Agent.
func (a *Agent[O]) Name() string {
	return a.name
}

// Description returns the description of the Agent, to be used in the prompt of other Agents or LLMs.
// Should not exceed LLM model limit.
func (a *Agent[O]) Description() string {
	return a.description
}

func (a *Agent[O]) GetTools() []tools.ITool {
	return a.tools
}

// WithTools adds new tools to the Agent,
// existing tools are not replaced.
func (a *Agent[O]) WithTools(list ...tools.ITool) *Agent[O] {
	if a.toolsByName == nil {
		a.toolsByName = make(map[string]tools.ITool)
	}
	for _, tool := range list {
		name := tool.Name()
		// use lowercase for the key
		nameLowerCase := strings.ToLower(name)
		if a.toolsByName[nameLowerCase] == nil {
			a.toolsByName[nameLowerCase] = tool
			a.toolsNames = append(a.toolsNames, name)
			a.tools = append(a.tools, tool)
			params, _ := tool.Parameters().(*jsonschema.Schema)
			t := llms.Tool{
				Type: "function",
				Function: &llms.FunctionDefinition{
					Name:        name,
					Description: tool.Description(),
					Parameters:  params,
				},
			}
			a.llmToolDefs = append(a.llmToolDefs, t)
		}
	}

	return a
}

// LastRunMessages returns the messages produced by the most recent run.
func (a *Agent[O]) LastRunMessages() []llms.Message {
	return a.runMessages
}

func (a *Agent[O]) FormatPrompt(promptInputs map[string]any) (llms.PromptValue, error) {
	return a.sysprompt.FormatPrompt(llmutils.MergeInputs(a.cfg.PromptInput, promptInputs))
}

func (a *Agent[O]) GetPromptInputVariables() []string {
	return a.sysprompt.GetInputVariables()
}

// GetSystemPrompt generates the system prompt for the Agent.
func (a *Agent[O]) GetSystemPrompt(ctx context.Context, promptInputs map[string]any) (string, error) {
	promptValue, err := a.FormatPrompt(promptInputs)
	if err != nil {
		return "", err
	}

	systemPrompt := strings.TrimRight(promptValue.String(), "\n")

	// when function tools are bound the provider cannot enforce the
	// response schema on the final turn, so the output schema has to
	// go into the system prompt
	if a.cfg.ResponseFormat == nil || len(a.llmToolDefs) > 0 {
		outputSchema := strings.TrimRight(a.OutputParser.GetFormatInstructions(), "\n")
		if outputSchema != "" {
			systemPrompt = fmt.Sprintf("%s\n\n# OUTPUT SCHEMA\n%s", systemPrompt, outputSchema)
		}
	}
	return systemPrompt, nil
}

func (a *Agent[O]) Call(ctx context.Context, input *CallInput) (*llms.ContentResponse, error) {
	var output O
	return a.Run(ctx, input, &output)
}

// Run executes the Agent and, when optionalOutputType is not nil, parses the
// final model output into it.
func (a *Agent[O]) Run(ctx context.Context, input *CallInput, optionalOutputType *O) (*llms.ContentResponse, error) {
	started := time.Now()
	defer metricskey.PerfAgentCall.MeasureSince(started, a.Name())

	// reset the run messages
	a.runMessages = nil
	// create a per call config
	cfg := a.GetCallConfig(input.Options...)

	callback := cfg.CallbackHandler
	if callback != nil {
		callback.OnAgentStart(ctx, a, input.Input)
	}

	resp, err := a.run(ctx, cfg, input, optionalOutputType)
	if err != nil {
		metricskey.StatsAgentCallsFailed.IncrCounter(1, a.Name())
		if callback != nil {
			callback.OnAgentError(ctx, a, input.Input, err)
		}
		return nil, err
	}
	metricskey.StatsAgentCallsSucceeded.IncrCounter(1, a.Name())
	if callback != nil {
		callback.OnAgentEnd(ctx, a, input.Input, resp)
	}
	return resp, nil
}

func (a *Agent[O]) run(ctx context.Context, cfg *Config, input *CallInput, optionalOutputType *O) (*llms.ContentResponse, error) {
	sessionID := chatmodel.GetSessionID(ctx)
	if sessionID == "" && cfg.Store != nil {
		return nil, errors.WithStack(chatmodel.ErrInvalidChatContext)
	}

	systemPrompt, err := a.GetSystemPrompt(ctx, input.PromptInputs)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to format system prompt")
	}

	messageHistory := []llms.Message{
		llms.MessageFromTextParts(llms.RoleSystem, systemPrompt),
	}
	for _, example := range cfg.Examples {
		messageHistory = append(messageHistory, llms.MessageFromTextParts(llms.RoleHuman, example.Prompt))
		messageHistory = append(messageHistory, llms.MessageFromTextParts(llms.RoleAI, example.Completion))
	}
	if cfg.Store != nil {
		prevMessages := cfg.Store.Messages(ctx)
		logger.ContextKV(ctx, xlog.DEBUG,
			"agent", a.name,
			"session_id", sessionID,
			"message_history", len(prevMessages))
		messageHistory = append(messageHistory, prevMessages...)
	}

	if input.Input != "" {
		userMessage := llms.MessageFromTextParts(llms.RoleHuman, input.Input)
		a.runMessages = append(a.runMessages, userMessage)
		messageHistory = append(messageHistory, userMessage)
	}
	if len(input.Messages) > 0 {
		messageHistory = append(messageHistory, input.Messages...)
	}

	var extraOptions []Option
	if len(a.llmToolDefs) > 0 {
		prov := a.LLM.GetProviderType()
		if !prov.Supports(llms.CapabilityFunctionCalling) {
			return nil, errors.Newf("agent %s: the LLM does not support function calling", a.name)
		}
		extraOptions = append(extraOptions, WithTools(a.llmToolDefs))
	}
	callOpts := cfg.GetCallOptions(extraOptions...)

	agentName := a.Name()
	modelName := a.LLM.GetName()

	var totalToolExecuted int
	var resp *llms.ContentResponse
	retryCount := 0
	consecutiveNotFoundCount := 0

	messagesLimit := values.NumbersCoalesce(cfg.MaxMessages, DefaultMaxMessages)
	bytesLimit := uint64(values.NumbersCoalesce(cfg.MaxContentSize, DefaultMaxContentSize))
	toolsLimit := values.NumbersCoalesce(cfg.MaxToolCalls, DefaultMaxToolCalls)
	for {
		if len(messageHistory) >= messagesLimit {
			return nil, errors.Newf("agent %s: the messages count exceeded limit", agentName)
		}
		bytesSent := llmutils.CountMessagesContentSize(messageHistory)
		if bytesSent > bytesLimit {
			return nil, errors.Newf("agent %s: the content size exceeded limit", agentName)
		}

		metricskey.StatsLLMMessagesSent.IncrCounter(float64(len(messageHistory)), agentName, modelName)
		metricskey.StatsLLMBytesSent.IncrCounter(float64(bytesSent), agentName, modelName)

		resp, err = a.LLM.GenerateContent(ctx, messageHistory, callOpts...)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to generate content from LLM")
		}

		bytesReceived := llmutils.CountResponseContentSize(resp)
		metricskey.StatsLLMBytesReceived.IncrCounter(float64(bytesReceived), agentName, modelName)

		tokensIn, tokensOut, tokensTotal := llmutils.CountTokens(resp)
		metricskey.StatsLLMInputTokens.IncrCounter(float64(tokensIn), agentName, modelName)
		metricskey.StatsLLMOutputTokens.IncrCounter(float64(tokensOut), agentName, modelName)
		metricskey.StatsLLMTotalTokens.IncrCounter(float64(tokensTotal), agentName, modelName)

		if len(resp.Choices) == 0 {
			retryCount++
			if retryCount >= DefaultMaxRetries {
				logger.ContextKV(ctx, xlog.ERROR,
					"agent", agentName,
					"status", "max_retries_exceeded",
					"input", slices.StringUpto(input.Input, 64),
					"retry_count", retryCount,
				)
				return nil, errors.Newf("agent %s: LLM returned empty response after %d retries", agentName, retryCount)
			}
			logger.ContextKV(ctx, xlog.WARNING,
				"agent", agentName,
				"status", "retrying_empty_response",
				"retry_count", retryCount,
			)
			continue
		}

		var toolExecuted int
		var notFoundCount int
		toolExecuted, notFoundCount, messageHistory, err = a.executeToolCalls(ctx, cfg, messageHistory, resp)
		if err != nil {
			return nil, err
		}

		if toolExecuted == 0 {
			break
		}
		consecutiveNotFoundCount += notFoundCount
		totalToolExecuted += toolExecuted
		if consecutiveNotFoundCount > DefaultMaxNotFoundRuns {
			return nil, errors.Newf("agent %s: the number of not found tools is exceeded", agentName)
		}
		if notFoundCount == 0 {
			consecutiveNotFoundCount = 0
		}
		if totalToolExecuted >= toolsLimit {
			return nil, errors.Newf("agent %s: the tool calls limit is exceeded", agentName)
		}
	}

	choices := resp.Choices
	result := choices[0].Content
	if len(choices) > 1 {
		var combinedContent strings.Builder
		for i, choice := range choices {
			if i > 0 {
				combinedContent.WriteString("\n\n")
			}
			combinedContent.WriteString(choice.Content)
		}
		result = combinedContent.String()
	}

	if optionalOutputType != nil {
		finalOutput, err := a.OutputParser.Parse(result)
		if err != nil {
			metricskey.StatsAgentLLMParseErrors.IncrCounter(1, agentName)
			logger.ContextKV(ctx, xlog.DEBUG,
				"agent", agentName,
				"status", "failed_to_parse_llm_response",
				"err", err.Error(),
				"output_parser", a.OutputParser.Type(),
				"result", result,
			)

			if cfg.CallbackHandler != nil {
				cfg.CallbackHandler.OnAgentLLMParseError(ctx, a, input.Input, result, err)
			}

			return nil, err
		}
		*optionalOutputType = *finalOutput

		if prov, ok := (any)(finalOutput).(chatmodel.ContentProvider); ok {
			result = prov.GetContent()
		}
	}

	a.runMessages = append(a.runMessages, llms.MessageFromTextParts(llms.RoleAI, result))

	if cfg.Store != nil && !cfg.SkipMessageHistory && len(a.runMessages) > 0 {
		_ = cfg.Store.Add(ctx, a.runMessages...)

		logger.ContextKV(ctx, xlog.DEBUG,
			"agent", agentName,
			"session_id", sessionID,
			"status", "added_message_history",
			"message_history", len(a.runMessages),
			"human", slices.StringUpto(input.Input, 64),
			"ai", slices.StringUpto(result, 64),
		)
	}

	return resp, nil
}

// executeToolCalls executes the tool calls in the response and returns the
// updated message history.
func (a *Agent[O]) executeToolCalls(ctx context.Context, cfg *Config, messageHistory []llms.Message, resp *llms.ContentResponse) (int, int, []llms.Message, error) {
	executedCount := 0
	notFoundCount := 0

	type toolCallResult struct {
		toolCall llms.ToolCall
		response string
		err      error
		notFound bool
		index    int
	}

	var toolCalls []llms.ToolCall

	// Collect all tool calls first and add them to message history
	for _, choice := range resp.Choices {
		var choiceToolCalls []llms.ToolCall

		for i, toolCall := range choice.ToolCalls {
			executedCount++

			if toolCall.ID == "" {
				toolCall.ID = fmt.Sprintf("%s_%d", toolCall.FunctionCall.Name, i)
			}
			toolCall.Type = values.StringsCoalesce(toolCall.Type, "function")

			choiceToolCalls = append(choiceToolCalls, toolCall)

			logger.ContextKV(ctx, xlog.DEBUG,
				"agent", a.name,
				"status", "tool_call_found",
				"tool_call_id", toolCall.ID,
				"tool_call_name", toolCall.FunctionCall.Name,
			)
		}

		if len(choiceToolCalls) == 0 {
			continue
		}

		toolCalls = append(toolCalls, choiceToolCalls...)
		agentResponse := llms.MessageFromToolCalls(llms.RoleAI, choiceToolCalls...)
		messageHistory = append(messageHistory, agentResponse)
		if !cfg.SkipMessageHistory && !cfg.SkipToolHistory {
			a.runMessages = append(a.runMessages, agentResponse)
		}
	}

	if executedCount == 0 {
		return executedCount, notFoundCount, messageHistory, nil
	}

	// buffered to prevent deadlock
	resultChan := make(chan toolCallResult, len(toolCalls))

	var wg sync.WaitGroup
	wg.Add(len(toolCalls))

	for i, toolCall := range toolCalls {
		go func(index int, tc llms.ToolCall) {
			defer wg.Done()
			toolName := tc.FunctionCall.Name
			toolArgs := tc.FunctionCall.Arguments

			// use lowercase for the key
			tool := a.toolsByName[strings.ToLower(toolName)]
			if tool == nil {
				metricskey.StatsToolCallsNotFound.IncrCounter(1, toolName)
				if cfg.CallbackHandler != nil {
					cfg.CallbackHandler.OnToolNotFound(ctx, a, toolName)
				}

				availableTools := strings.Join(a.toolsNames, ", ")
				logger.ContextKV(ctx, xlog.WARNING,
					"agent", a.name,
					"status", "tool_not_found",
					"tool_name", toolName,
					"available_tools", availableTools,
				)

				resultChan <- toolCallResult{
					toolCall: tc,
					response: fmt.Sprintf("Tool `%s` not found. Please check the tool name and try again with exact match. Available tools: %s", toolName, availableTools),
					notFound: true,
					index:    index,
				}
				return
			}

			if cfg.CallbackHandler != nil {
				cfg.CallbackHandler.OnToolStart(ctx, tool, toolArgs)
			}

			started := time.Now()
			res, err := tool.Call(ctx, toolArgs)
			metricskey.PerfToolCall.MeasureSince(started, toolName)

			if err != nil {
				metricskey.StatsToolCallsFailed.IncrCounter(1, toolName)

				if cfg.CallbackHandler != nil {
					cfg.CallbackHandler.OnToolError(ctx, tool, toolArgs, err)
				}

				if errors.Is(err, chatmodel.ErrFailedUnmarshalInput) {
					res = "Failed to unmarshal input, check the JSON schema and try again."
				} else {
					resultChan <- toolCallResult{
						toolCall: tc,
						err:      errors.WithMessagef(err, "failed to call tool %s", toolName),
						index:    index,
					}
					return
				}
			}
			metricskey.StatsToolCallsSucceeded.IncrCounter(1, toolName)

			if cfg.CallbackHandler != nil {
				cfg.CallbackHandler.OnToolEnd(ctx, tool, toolArgs, res)
			}

			resultChan <- toolCallResult{
				toolCall: tc,
				response: res,
				index:    index,
			}
		}(i, toolCall)
	}

	wg.Wait()
	close(resultChan)

	// Collect results in order using the index
	results := make([]toolCallResult, len(toolCalls))
	for result := range resultChan {
		if result.index >= 0 && result.index < len(results) {
			results[result.index] = result
		}
	}

	// Process results in the same order as the original tool calls
	for i, result := range results {
		if result.toolCall.ID == "" {
			toolCall := toolCalls[i]
			result = toolCallResult{
				toolCall: toolCall,
				response: "Tool call failed: No response received",
				err:      errors.New("no response received from tool"),
				index:    i,
			}
			logger.ContextKV(ctx, xlog.WARNING,
				"agent", a.name,
				"status", "tool_call_missing_response",
				"tool_call_id", toolCall.ID,
				"tool_name", toolCall.FunctionCall.Name,
			)
		}
		if result.notFound {
			notFoundCount++
		}

		var content string
		if result.err != nil {
			// Format error as a message for the LLM
			content = fmt.Sprintf("Tool call failed: %s", result.err.Error())
			logger.ContextKV(ctx, xlog.WARNING,
				"agent", a.name,
				"status", "tool_call_failed",
				"tool", result.toolCall.FunctionCall.Name,
				"err", result.err.Error(),
			)
		} else {
			content = result.response
		}

		toolCallResponse := llms.MessageFromToolResponse(llms.RoleTool, llms.ToolCallResponse{
			ToolCallID: result.toolCall.ID,
			Name:       result.toolCall.FunctionCall.Name,
			Content:    content,
		})

		messageHistory = append(messageHistory, toolCallResponse)

		if !cfg.SkipMessageHistory && !cfg.SkipToolHistory {
			a.runMessages = append(a.runMessages, toolCallResponse)
		}
	}

	return executedCount, notFoundCount, messageHistory, nil
}
