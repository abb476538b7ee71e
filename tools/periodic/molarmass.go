package periodic

import (
	"context"
	"encoding/json"
	"reflect"
	"strconv"

	"github.com/cockroachdb/errors"

	"github.com/tutorstack/tutor/chatmodel"
	"github.com/tutorstack/tutor/pkg/llmutils"
	"github.com/tutorstack/tutor/pkg/schema"
	"github.com/tutorstack/tutor/tools"
)

const MolarMassToolName = "MolarMass"

// MolarMassRequest represents the tool input.
type MolarMassRequest struct {
	Formula string `json:"Formula" yaml:"Formula" jsonschema:"title=Formula,description=The chemical formula such as H2O or Ca(OH)2 or C6H12O6."`
}

// MolarMassResult represents the computed molar mass.
type MolarMassResult struct {
	Formula   string  `json:"Formula" yaml:"Formula"`
	MolarMass float64 `json:"MolarMass" yaml:"MolarMass"`
	Unit      string  `json:"Unit" yaml:"Unit"`
}

func (r *MolarMassResult) GetContent() string {
	return llmutils.ToJSON(r)
}

var _ chatmodel.ContentProvider = (*MolarMassResult)(nil)

// MolarMassTool computes the molar mass of a chemical formula.
type MolarMassTool struct {
	name        string
	description string
	funcParams  any
}

var _ tools.Tool[MolarMassRequest, MolarMassResult] = (*MolarMassTool)(nil)

func NewMolarMass() *MolarMassTool {
	sc := schema.MustNew(reflect.TypeOf(MolarMassRequest{}))
	return &MolarMassTool{
		name:        MolarMassToolName,
		description: "Computes the molar mass in g/mol of a chemical formula. Supports parenthesised groups such as Ca(OH)2.",
		funcParams:  sc.Parameters,
	}
}

func (t *MolarMassTool) Name() string {
	return t.name
}

func (t *MolarMassTool) Description() string {
	return t.description
}

func (t *MolarMassTool) Parameters() any {
	return t.funcParams
}

func (t *MolarMassTool) Run(_ context.Context, req *MolarMassRequest) (*MolarMassResult, error) {
	mass, err := MolarMass(req.Formula)
	if err != nil {
		return nil, err
	}
	return &MolarMassResult{
		Formula:   req.Formula,
		MolarMass: mass,
		Unit:      "g/mol",
	}, nil
}

func (t *MolarMassTool) Call(ctx context.Context, input string) (string, error) {
	var req MolarMassRequest
	if err := json.Unmarshal(llmutils.CleanJSON([]byte(input)), &req); err != nil {
		return "", errors.WithMessage(chatmodel.ErrFailedUnmarshalInput, err.Error())
	}
	out, err := t.Run(ctx, &req)
	if err != nil {
		return "", err
	}
	return out.GetContent(), nil
}

// MolarMass computes the molar mass of a formula in g/mol.
func MolarMass(formula string) (float64, error) {
	if formula == "" {
		return 0, errors.New("invalid request: empty formula")
	}
	p := &formulaParser{input: formula}
	mass, err := p.parseGroup(false)
	if err != nil {
		return 0, err
	}
	if p.pos < len(p.input) {
		return 0, errors.Newf("unexpected character %q in formula at position %d", p.input[p.pos], p.pos)
	}
	return mass, nil
}

type formulaParser struct {
	input string
	pos   int
}

// parseGroup consumes element and group terms until the end of input or,
// when nested, a closing parenthesis.
func (p *formulaParser) parseGroup(nested bool) (float64, error) {
	var total float64
	parsedAny := false

	for p.pos < len(p.input) {
		c := p.input[p.pos]

		if c == ')' {
			if !nested {
				return 0, errors.Newf("unbalanced parenthesis at position %d", p.pos)
			}
			break
		}

		var mass float64
		var err error
		switch {
		case c == '(':
			p.pos++
			mass, err = p.parseGroup(true)
			if err != nil {
				return 0, err
			}
			if p.pos >= len(p.input) || p.input[p.pos] != ')' {
				return 0, errors.New("unbalanced parenthesis in formula")
			}
			p.pos++
		case c >= 'A' && c <= 'Z':
			mass, err = p.parseElement()
			if err != nil {
				return 0, err
			}
		default:
			return 0, errors.Newf("unexpected character %q in formula at position %d", c, p.pos)
		}

		count := p.parseCount()
		total += mass * float64(count)
		parsedAny = true
	}

	if !parsedAny {
		return 0, errors.New("empty group in formula")
	}
	return total, nil
}

func (p *formulaParser) parseElement() (float64, error) {
	start := p.pos
	p.pos++
	for p.pos < len(p.input) && p.input[p.pos] >= 'a' && p.input[p.pos] <= 'z' {
		p.pos++
	}
	sym := p.input[start:p.pos]
	el, ok := bySymbol[sym]
	if !ok {
		return 0, errors.Newf("unknown element %q in formula", sym)
	}
	return el.AtomicMass, nil
}

func (p *formulaParser) parseCount() int {
	start := p.pos
	for p.pos < len(p.input) && p.input[p.pos] >= '0' && p.input[p.pos] <= '9' {
		p.pos++
	}
	if start == p.pos {
		return 1
	}
	n, _ := strconv.Atoi(p.input[start:p.pos])
	return n
}
