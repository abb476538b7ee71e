// Package llmutils provides helpers for working with LLM inputs and
// outputs: lenient JSON extraction from chatty model replies, content
// accounting for budgets and metrics, and small formatting utilities.
package llmutils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/effective-security/x/values"
	"gopkg.in/yaml.v3"

	"github.com/tutorstack/tutor/pkg/llms"
)

// CleanJSON returns JSON by trimming prefixes and postfixes.
// This is more useful than TrimBackticks, as a model can reply like
// `Here you go: {json}`.
func CleanJSON(bs []byte) []byte {
	return trimPostfixAfterJSON(trimPrefixBeforeJSON(bs))
}

// Removes any prefixes before the JSON (like "Sure, here you go:")
func trimPrefixBeforeJSON(bs []byte) []byte {
	startObject := bytes.IndexByte(bs, '{')
	startArray := bytes.IndexByte(bs, '[')

	var start int
	switch {
	case startObject == -1 && startArray == -1:
		return bs
	case startObject == -1:
		start = startArray
	case startArray == -1:
		start = startObject
	default:
		start = min(startObject, startArray)
	}

	return bs[start:]
}

// Removes any postfixes after the JSON
func trimPostfixAfterJSON(bs []byte) []byte {
	endObject := bytes.LastIndexByte(bs, '}')
	endArray := bytes.LastIndexByte(bs, ']')

	var end int
	switch {
	case endObject == -1 && endArray == -1:
		return bs
	case endObject == -1:
		end = endArray
	case endArray == -1:
		end = endObject
	default:
		end = max(endObject, endArray)
	}

	return bs[:end+1]
}

var backtick = []byte("```")

// TrimBackticks removes ```json or ``` fences around a block.
func TrimBackticks(text string) string {
	return string(BytesTrimBackticks([]byte(text)))
}

// BytesTrimBackticks removes ```json or ``` fences around a block.
func BytesTrimBackticks(bs []byte) []byte {
	size := len(bs)
	startIndex := bytes.Index(bs, backtick)
	if startIndex == -1 {
		return bs
	}
	startIndex += len(backtick)

	for i := startIndex; i < size && bs[i] != '{' && bs[i] != '['; i++ {
		if bs[i] == '\n' {
			startIndex = i + 1
			break
		}
	}

	contentAfterStart := bs[startIndex:]

	endIndex := bytes.LastIndex(contentAfterStart, backtick)
	if endIndex == -1 {
		return contentAfterStart
	}

	return bytes.TrimSpace(contentAfterStart[:endIndex])
}

// ToJSON marshals without indentation, ignoring errors.
func ToJSON(val any) string {
	bs, _ := json.Marshal(val)
	return string(bs)
}

// ToJSONIndent marshals with indentation, ignoring errors.
func ToJSONIndent(val any) string {
	bs, _ := json.MarshalIndent(val, "", "  ")
	return string(bs)
}

// ToYAML marshals to YAML, ignoring errors.
func ToYAML(val any) string {
	bs, _ := yaml.Marshal(val)
	return string(bs)
}

// BackticksJSON wraps a JSON string in a fenced block.
func BackticksJSON(js string) string {
	return "```json\n" + js + "\n```"
}

// MergeInputs merges configured prompt inputs with per-call inputs.
// User inputs override config inputs on key conflict.
func MergeInputs(configInputs, userInputs map[string]any) map[string]any {
	if len(configInputs) == 0 {
		return userInputs
	}
	merged := make(map[string]any, len(configInputs)+len(userInputs))
	for k, v := range configInputs {
		merged[k] = v
	}
	for k, v := range userInputs {
		merged[k] = v
	}
	return merged
}

// PrintMessages renders messages for prompt values and debugging.
func PrintMessages(w io.Writer, msgs []llms.Message) {
	for _, msg := range msgs {
		fmt.Fprintf(w, "%s: %s\n", msg.Role, msg.GetContent())
	}
}

// CountMessagesContentSize returns the total content size in bytes.
func CountMessagesContentSize(msgs []llms.Message) uint64 {
	var total uint64
	for _, msg := range msgs {
		for _, part := range msg.Parts {
			switch typ := part.(type) {
			case llms.TextContent:
				total += uint64(len(typ.Text))
			case llms.ToolCall:
				if typ.FunctionCall != nil {
					total += uint64(len(typ.FunctionCall.Name) + len(typ.FunctionCall.Arguments))
				}
			case llms.ToolCallResponse:
				total += uint64(len(typ.Content))
			}
		}
	}
	return total
}

// CountResponseContentSize returns the response content size in bytes.
func CountResponseContentSize(resp *llms.ContentResponse) uint64 {
	if resp == nil {
		return 0
	}
	var total uint64
	for _, choice := range resp.Choices {
		total += uint64(len(choice.Content))
		for _, tc := range choice.ToolCalls {
			if tc.FunctionCall != nil {
				total += uint64(len(tc.FunctionCall.Name) + len(tc.FunctionCall.Arguments))
			}
		}
	}
	return total
}

// CountTokens extracts token usage from response metadata, when the
// provider reported it.
func CountTokens(resp *llms.ContentResponse) (in, out, total int64) {
	if resp == nil {
		return
	}
	for _, choice := range resp.Choices {
		info := values.MapAny(choice.GenerationInfo)
		in += info.Int64("InputTokens")
		out += info.Int64("OutputTokens")
		total += info.Int64("TotalTokens")
	}
	return
}

// EnsureEndsWithNewline appends a trailing newline if missing.
func EnsureEndsWithNewline(s string) string {
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	return s
}
