package schema

import (
	"reflect"

	"github.com/invopop/jsonschema"
)

// NewResponseFormat builds a json_schema response format for the given type.
func NewResponseFormat(t reflect.Type) (*ResponseFormat, error) {
	sc, err := New(t)
	if err != nil {
		return nil, err
	}
	return &ResponseFormat{
		Type: "json_object",
		JSONSchema: &ResponseFormatJSONSchema{
			Name:   t.Name(),
			Schema: toSchemaProperty(sc.Parameters),
		},
	}, nil
}

type ResponseFormatJSONSchemaProperty struct {
	Type        string                                       `json:"type"`
	Title       string                                       `json:"title,omitempty"`
	Description string                                       `json:"description,omitempty"`
	Enum        []any                                        `json:"enum,omitempty"`
	Items       *ResponseFormatJSONSchemaProperty            `json:"items,omitempty"`
	Properties  map[string]*ResponseFormatJSONSchemaProperty `json:"properties,omitempty"`
	Required    []string                                     `json:"required,omitempty"`
}

type ResponseFormatJSONSchema struct {
	Name   string                            `json:"name"`
	Schema *ResponseFormatJSONSchemaProperty `json:"schema"`
}

// ResponseFormat is the format of the response.
type ResponseFormat struct {
	Type       string                    `json:"type"`
	JSONSchema *ResponseFormatJSONSchema `json:"json_schema,omitempty"`
}

func toSchemaProperty(in *jsonschema.Schema) *ResponseFormatJSONSchemaProperty {
	if in == nil {
		return nil
	}

	result := &ResponseFormatJSONSchemaProperty{
		Type:        in.Type,
		Title:       in.Title,
		Description: in.Description,
		Enum:        in.Enum,
		Required:    in.Required,
	}

	if in.Properties != nil {
		result.Properties = make(map[string]*ResponseFormatJSONSchemaProperty)
		for pair := in.Properties.Oldest(); pair != nil; pair = pair.Next() {
			result.Properties[pair.Key] = toSchemaProperty(pair.Value)
		}
	}

	if in.Items != nil {
		result.Items = toSchemaProperty(in.Items)
	}

	return result
}
