package llms

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// JSON models following OpenAI schema

// MessageJSON represents the JSON structure for a single text Message
type MessageJSON struct {
	Role Role   `json:"role"`
	Text string `json:"text,omitempty"`
}

// ContentPartJSON represents the JSON structure for content parts
type ContentPartJSON struct {
	Type         string            `json:"type"`
	Text         string            `json:"text,omitempty"`
	ToolCall     *ToolCallJSON     `json:"tool_call,omitempty"`
	ToolResponse *ToolResponseJSON `json:"tool_response,omitempty"`
}

// ToolCallJSON represents the JSON structure for tool call content
type ToolCallJSON struct {
	ID           string        `json:"id"`
	Type         string        `json:"type"`
	FunctionCall *FunctionCall `json:"function"`
}

// ToolResponseJSON represents the JSON structure for tool response content
type ToolResponseJSON struct {
	ToolCallID string `json:"tool_call_id"`
	Name       string `json:"name"`
	Content    string `json:"content"`
}

// TextContentJSON represents the JSON structure for text content
type TextContentJSON struct {
	Text string `json:"text"`
	Type string `json:"type"`
}

// MessageWithPartsJSON represents the JSON structure for a Message with parts
type MessageWithPartsJSON struct {
	Role  Role          `json:"role"`
	Parts []ContentPart `json:"parts"`
}

// MarshalJSON implements json.Marshaler for Message
func (m Message) MarshalJSON() ([]byte, error) {
	// Special case: single text part can be simplified
	if len(m.Parts) == 1 {
		if tp, hasSingleTextPart := m.Parts[0].(TextContent); hasSingleTextPart {
			return json.Marshal(MessageJSON{
				Role: m.Role,
				Text: tp.Text,
			})
		}
	}

	return json.Marshal(MessageWithPartsJSON{
		Role:  m.Role,
		Parts: m.Parts,
	})
}

// UnmarshalJSON implements json.Unmarshaler for Message
func (m *Message) UnmarshalJSON(data []byte) error {
	var msgJSON MessageJSON
	if err := json.Unmarshal(data, &msgJSON); err != nil {
		return err
	}

	m.Role = msgJSON.Role

	if msgJSON.Text != "" {
		m.Parts = []ContentPart{TextContent{Text: msgJSON.Text}}
		return nil
	}

	// parts are polymorphic, unmarshal them one by one
	var rawMsg struct {
		Parts []json.RawMessage `json:"parts"`
	}
	if err := json.Unmarshal(data, &rawMsg); err != nil {
		return err
	}

	for _, partData := range rawMsg.Parts {
		var partJSON ContentPartJSON
		if err := json.Unmarshal(partData, &partJSON); err != nil {
			return err
		}

		part, err := unmarshalContentPart(partJSON)
		if err != nil {
			return err
		}
		m.Parts = append(m.Parts, part)
	}

	return nil
}

// unmarshalContentPart converts ContentPartJSON to ContentPart
func unmarshalContentPart(partJSON ContentPartJSON) (ContentPart, error) {
	switch partJSON.Type {
	case "text", "":
		return TextContent{Text: partJSON.Text}, nil
	case "tool_call":
		if partJSON.ToolCall == nil {
			return nil, errors.New("tool_call field is required for tool_call type")
		}
		return ToolCall{
			ID:           partJSON.ToolCall.ID,
			Type:         partJSON.ToolCall.Type,
			FunctionCall: partJSON.ToolCall.FunctionCall,
		}, nil
	case "tool_response":
		if partJSON.ToolResponse == nil {
			return nil, errors.New("tool_response field is required for tool_response type")
		}
		return ToolCallResponse{
			ToolCallID: partJSON.ToolResponse.ToolCallID,
			Name:       partJSON.ToolResponse.Name,
			Content:    partJSON.ToolResponse.Content,
		}, nil
	default:
		return nil, errors.Newf("unknown content type: '%s'", partJSON.Type)
	}
}

// MarshalJSON implements json.Marshaler for TextContent
func (tc TextContent) MarshalJSON() ([]byte, error) {
	return json.Marshal(TextContentJSON{
		Text: tc.Text,
		Type: "text",
	})
}

// UnmarshalJSON implements json.Unmarshaler for TextContent
func (tc *TextContent) UnmarshalJSON(data []byte) error {
	var textJSON TextContentJSON
	if err := json.Unmarshal(data, &textJSON); err != nil {
		return err
	}
	if textJSON.Type != "text" {
		return errors.Newf("invalid type for TextContent: %v", textJSON.Type)
	}
	tc.Text = textJSON.Text
	return nil
}

// MarshalJSON implements json.Marshaler for ToolCall
func (tc ToolCall) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type     string       `json:"type"`
		ToolCall ToolCallJSON `json:"tool_call"`
	}{
		Type: "tool_call",
		ToolCall: ToolCallJSON{
			ID:           tc.ID,
			Type:         tc.Type,
			FunctionCall: tc.FunctionCall,
		},
	})
}

// UnmarshalJSON implements json.Unmarshaler for ToolCall
func (tc *ToolCall) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type     string       `json:"type"`
		ToolCall ToolCallJSON `json:"tool_call"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Type != "tool_call" {
		return errors.Newf("invalid type for ToolCall: %v", raw.Type)
	}
	if raw.ToolCall.ID == "" {
		return errors.New("missing id field in ToolCall")
	}

	tc.ID = raw.ToolCall.ID
	tc.Type = raw.ToolCall.Type
	tc.FunctionCall = raw.ToolCall.FunctionCall
	if tc.FunctionCall == nil {
		tc.FunctionCall = &FunctionCall{}
	}
	return nil
}

// MarshalJSON implements json.Marshaler for ToolCallResponse
func (tc ToolCallResponse) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type         string           `json:"type"`
		ToolResponse ToolResponseJSON `json:"tool_response"`
	}{
		Type: "tool_response",
		ToolResponse: ToolResponseJSON{
			ToolCallID: tc.ToolCallID,
			Name:       tc.Name,
			Content:    tc.Content,
		},
	})
}

// UnmarshalJSON implements json.Unmarshaler for ToolCallResponse
func (tc *ToolCallResponse) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type         string           `json:"type"`
		ToolResponse ToolResponseJSON `json:"tool_response"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Type != "tool_response" {
		return errors.Newf("invalid type for ToolCallResponse: %v", raw.Type)
	}
	if raw.ToolResponse.Name == "" {
		return errors.New("missing name field in ToolCallResponse")
	}
	tc.ToolCallID = raw.ToolResponse.ToolCallID
	tc.Name = raw.ToolResponse.Name
	tc.Content = raw.ToolResponse.Content
	return nil
}
