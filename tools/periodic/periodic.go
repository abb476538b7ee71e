// Package periodic provides periodic table and molar mass tools for the
// chemistry agent.
package periodic

import (
	"context"
	"encoding/json"
	"reflect"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/tutorstack/tutor/chatmodel"
	"github.com/tutorstack/tutor/pkg/llmutils"
	"github.com/tutorstack/tutor/pkg/schema"
	"github.com/tutorstack/tutor/tools"
)

const ToolName = "PeriodicTable"

// ElementRequest represents the tool input.
type ElementRequest struct {
	Element string `json:"Element" yaml:"Element" jsonschema:"title=Element,description=The element symbol or name or atomic number such as Fe or iron or 26."`
}

// ElementResult represents the matched element.
type ElementResult struct {
	Number     int     `json:"Number" yaml:"Number"`
	Symbol     string  `json:"Symbol" yaml:"Symbol"`
	Name       string  `json:"Name" yaml:"Name"`
	AtomicMass float64 `json:"AtomicMass" yaml:"AtomicMass"`
}

func (r *ElementResult) GetContent() string {
	return llmutils.ToJSON(r)
}

var _ chatmodel.ContentProvider = (*ElementResult)(nil)

// Tool looks up elements of the periodic table.
type Tool struct {
	name        string
	description string
	funcParams  any
}

var _ tools.Tool[ElementRequest, ElementResult] = (*Tool)(nil)

func New() *Tool {
	sc := schema.MustNew(reflect.TypeOf(ElementRequest{}))
	return &Tool{
		name:        ToolName,
		description: "Looks up a chemical element by symbol, name or atomic number and returns its atomic number, symbol, name and atomic mass.",
		funcParams:  sc.Parameters,
	}
}

func (t *Tool) Name() string {
	return t.name
}

func (t *Tool) Description() string {
	return t.description
}

func (t *Tool) Parameters() any {
	return t.funcParams
}

func (t *Tool) Run(_ context.Context, req *ElementRequest) (*ElementResult, error) {
	el, err := LookupElement(req.Element)
	if err != nil {
		return nil, err
	}
	return &ElementResult{
		Number:     el.Number,
		Symbol:     el.Symbol,
		Name:       el.Name,
		AtomicMass: el.AtomicMass,
	}, nil
}

func (t *Tool) Call(ctx context.Context, input string) (string, error) {
	var req ElementRequest
	if err := json.Unmarshal(llmutils.CleanJSON([]byte(input)), &req); err != nil {
		return "", errors.WithMessage(chatmodel.ErrFailedUnmarshalInput, err.Error())
	}
	out, err := t.Run(ctx, &req)
	if err != nil {
		return "", err
	}
	return out.GetContent(), nil
}

// LookupElement finds an element by symbol, name or atomic number.
func LookupElement(query string) (*Element, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, errors.New("invalid request: empty element")
	}

	if n, err := strconv.Atoi(q); err == nil {
		if el, ok := byNumber[n]; ok {
			return el, nil
		}
		return nil, errors.Newf("no element with atomic number %d", n)
	}

	// symbols are case sensitive in formulas but tolerate any case here
	if len(q) <= 2 {
		sym := strings.ToUpper(q[:1]) + strings.ToLower(q[1:])
		if el, ok := bySymbol[sym]; ok {
			return el, nil
		}
	}

	if el, ok := byName[strings.ToLower(q)]; ok {
		return el, nil
	}

	return nil, errors.Newf("unknown element %q", query)
}
