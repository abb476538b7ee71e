package chatmodel

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

var (
	// ErrInvalidChatContext is returned when a session-scoped operation
	// runs without a ChatContext in the context.
	ErrInvalidChatContext = errors.New("invalid chat context")
	// ErrFailedUnmarshalInput is returned by tools when their input does
	// not match the declared schema.
	ErrFailedUnmarshalInput = errors.New("failed to unmarshal input: check the schema and try again")
)

// ContentProvider is implemented by typed outputs that can render
// themselves as chat content.
type ContentProvider interface {
	// GetContent gets the content of the message for the chat history
	GetContent() string
}

// OutputParser is an interface for parsing the output of an LLM call.
type OutputParser[T any] interface {
	// Parse parses the output of an LLM call.
	Parse(text string) (*T, error)
	// GetFormatInstructions returns a string describing the format of the output.
	GetFormatInstructions() string
	// Type returns the string type key uniquely identifying this class of parser
	Type() string
}

// FewShotExample is a prompt and completion pair included in the message
// history to steer the model.
type FewShotExample struct {
	Prompt     string
	Completion string
}

type FewShotExamples []FewShotExample

type Stringer interface {
	String() string
}

func Stringify(s any) string {
	if v, ok := s.(Stringer); ok {
		return v.String()
	}
	if v, ok := s.(ContentProvider); ok {
		return v.GetContent()
	}
	bs, _ := json.Marshal(s)
	return string(bs)
}
