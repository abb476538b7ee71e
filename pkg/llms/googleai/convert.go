package googleai

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/invopop/jsonschema"
	"google.golang.org/genai"

	"github.com/tutorstack/tutor/pkg/llms"
	"github.com/tutorstack/tutor/pkg/schema"
)

// convertTools converts from a list of llms tools to a list of genai tools.
func convertTools(tools []llms.Tool) ([]*genai.Tool, error) {
	genaiTools := make([]*genai.Tool, 0, len(tools))
	for i, tool := range tools {
		if tool.Type != "function" {
			return nil, errors.Newf("tool [%d]: unsupported type %q, want 'function'", i, tool.Type)
		}

		genaiFuncDecl := &genai.FunctionDeclaration{
			Name:        tool.Function.Name,
			Description: tool.Function.Description,
		}

		if tool.Function.Parameters != nil {
			s, err := convertJSONSchema(tool.Function.Parameters)
			if err != nil {
				return nil, errors.Wrapf(err, "tool [%d]", i)
			}
			genaiFuncDecl.Parameters = s
		}

		genaiTools = append(genaiTools, &genai.Tool{
			FunctionDeclarations: []*genai.FunctionDeclaration{genaiFuncDecl},
		})
	}

	return genaiTools, nil
}

// convertResponseFormatSchema converts a json_schema response format to a genai.Schema.
func convertResponseFormatSchema(jschema *schema.ResponseFormatJSONSchema) (*genai.Schema, error) {
	if jschema == nil || jschema.Schema == nil {
		return nil, nil
	}

	var convert func(p *schema.ResponseFormatJSONSchemaProperty) *genai.Schema
	convert = func(p *schema.ResponseFormatJSONSchemaProperty) *genai.Schema {
		if p == nil {
			return nil
		}

		out := &genai.Schema{
			Type:        convertSchemaType(p.Type),
			Description: p.Description,
			Required:    p.Required,
			Enum:        enumStrings(p.Enum),
		}

		if len(p.Properties) > 0 {
			out.Properties = make(map[string]*genai.Schema, len(p.Properties))
			for k, v := range p.Properties {
				out.Properties[k] = convert(v)
			}
		}

		if p.Items != nil {
			out.Items = convert(p.Items)
		}

		return out
	}

	return convert(jschema.Schema), nil
}

// convertJSONSchema converts a jsonschema.Schema to a genai.Schema.
func convertJSONSchema(jschema *jsonschema.Schema) (*genai.Schema, error) {
	if jschema == nil {
		return nil, nil
	}

	s := &genai.Schema{
		Type:        convertSchemaType(jschema.Type),
		Description: jschema.Description,
		Required:    jschema.Required,
		Enum:        enumStrings(jschema.Enum),
	}

	if jschema.Properties != nil {
		s.Properties = make(map[string]*genai.Schema)
		for pair := jschema.Properties.Oldest(); pair != nil; pair = pair.Next() {
			propSchema, err := convertJSONSchema(pair.Value)
			if err != nil {
				return nil, errors.Wrapf(err, "property [%s]", pair.Key)
			}
			s.Properties[pair.Key] = propSchema
		}
	}

	if jschema.Items != nil {
		itemsSchema, err := convertJSONSchema(jschema.Items)
		if err != nil {
			return nil, errors.Wrap(err, "items")
		}
		s.Items = itemsSchema
	}

	return s, nil
}

// enumStrings renders JSON schema enum values as strings for genai.
func enumStrings(enum []any) []string {
	if len(enum) == 0 {
		return nil
	}
	out := make([]string, 0, len(enum))
	for _, v := range enum {
		out = append(out, fmt.Sprint(v))
	}
	return out
}

// convertSchemaType converts a JSON schema type name to a genai enum.
func convertSchemaType(ty string) genai.Type {
	switch ty {
	case "object":
		return genai.TypeObject
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	default:
		return genai.TypeUnspecified
	}
}

func float32Ptr(f float32) *float32 {
	if f == 0 {
		return nil
	}
	return &f
}

func int32Ptr(i int32) *int32 {
	if i == 0 {
		return nil
	}
	return &i
}
