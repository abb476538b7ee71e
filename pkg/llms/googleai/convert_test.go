package googleai

import (
	"reflect"
	"testing"

	"github.com/invopop/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/tutorstack/tutor/pkg/schema"
)

type classification struct {
	Subject    string  `json:"subject" jsonschema:"enum=math,enum=physics,enum=chemistry,enum=unknown"`
	Confidence float64 `json:"confidence"`
}

func Test_ConvertResponseFormatSchema(t *testing.T) {
	rf, err := schema.NewResponseFormat(reflect.TypeOf(classification{}))
	require.NoError(t, err)
	require.NotNil(t, rf.JSONSchema)

	out, err := convertResponseFormatSchema(rf.JSONSchema)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, genai.TypeObject, out.Type)

	subject := out.Properties["subject"]
	require.NotNil(t, subject)
	assert.Equal(t, genai.TypeString, subject.Type)
	assert.Equal(t, []string{"math", "physics", "chemistry", "unknown"}, subject.Enum)

	confidence := out.Properties["confidence"]
	require.NotNil(t, confidence)
	assert.Equal(t, genai.TypeNumber, confidence.Type)
	assert.Empty(t, confidence.Enum)
}

func Test_ConvertJSONSchemaEnum(t *testing.T) {
	in := &jsonschema.Schema{
		Type: "string",
		Enum: []any{"celsius", "fahrenheit"},
	}

	out, err := convertJSONSchema(in)
	require.NoError(t, err)
	assert.Equal(t, []string{"celsius", "fahrenheit"}, out.Enum)
}
