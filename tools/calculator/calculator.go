// Package calculator provides a deterministic arithmetic tool for the math
// and physics agents.
package calculator

import (
	"context"
	"encoding/json"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/tutorstack/tutor/chatmodel"
	"github.com/tutorstack/tutor/pkg/llmutils"
	"github.com/tutorstack/tutor/pkg/schema"
	"github.com/tutorstack/tutor/tools"
)

const ToolName = "Calculator"

// CalcRequest represents the tool input.
type CalcRequest struct {
	Expression string `json:"Expression" yaml:"Expression" jsonschema:"title=Expression,description=The arithmetic expression to evaluate. Supports + - * / ^ with parentheses and the functions sqrt sin cos tan log ln abs. Trigonometric functions take degrees."`
}

// CalcResult represents the evaluated expression.
type CalcResult struct {
	Expression string  `json:"Expression" yaml:"Expression"`
	Result     float64 `json:"Result" yaml:"Result"`
}

func (r *CalcResult) GetContent() string {
	return llmutils.ToJSON(r)
}

var _ chatmodel.ContentProvider = (*CalcResult)(nil)

// Tool evaluates arithmetic expressions.
type Tool struct {
	name        string
	description string
	funcParams  any
}

var _ tools.Tool[CalcRequest, CalcResult] = (*Tool)(nil)

func New() *Tool {
	sc := schema.MustNew(reflect.TypeOf(CalcRequest{}))
	return &Tool{
		name:        ToolName,
		description: "Evaluates arithmetic expressions with + - * / ^, parentheses, and the functions sqrt, sin, cos, tan, log, ln, abs. Trigonometric functions take degrees.",
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

func (t *Tool) Run(_ context.Context, req *CalcRequest) (*CalcResult, error) {
	if strings.TrimSpace(req.Expression) == "" {
		return nil, errors.New("invalid request: empty expression")
	}
	val, err := Evaluate(req.Expression)
	if err != nil {
		return nil, err
	}
	return &CalcResult{
		Expression: req.Expression,
		Result:     val,
	}, nil
}

func (t *Tool) Call(ctx context.Context, input string) (string, error) {
	var req CalcRequest
	if err := json.Unmarshal(llmutils.CleanJSON([]byte(input)), &req); err != nil {
		return "", errors.WithMessage(chatmodel.ErrFailedUnmarshalInput, err.Error())
	}
	out, err := t.Run(ctx, &req)
	if err != nil {
		return "", err
	}
	return out.GetContent(), nil
}

// Evaluate parses and evaluates an arithmetic expression.
func Evaluate(expression string) (float64, error) {
	p := &parser{input: normalize(expression)}
	val, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	p.skipSpaces()
	if p.pos < len(p.input) {
		return 0, errors.Newf("unexpected character %q at position %d", p.input[p.pos], p.pos)
	}
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return 0, errors.New("expression did not evaluate to a finite number")
	}
	return val, nil
}

func normalize(expr string) string {
	expr = strings.ToLower(strings.TrimSpace(expr))
	expr = strings.ReplaceAll(expr, "π", "pi")
	expr = strings.ReplaceAll(expr, "×", "*")
	expr = strings.ReplaceAll(expr, "÷", "/")
	return expr
}

type parser struct {
	input string
	pos   int
}

// parseExpr handles addition and subtraction.
func (p *parser) parseExpr() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpaces()
		if p.pos >= len(p.input) {
			return left, nil
		}
		switch p.input[p.pos] {
		case '+':
			p.pos++
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left += right
		case '-':
			p.pos++
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left -= right
		default:
			return left, nil
		}
	}
}

// parseTerm handles multiplication and division.
func (p *parser) parseTerm() (float64, error) {
	left, err := p.parsePower()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpaces()
		if p.pos >= len(p.input) {
			return left, nil
		}
		switch p.input[p.pos] {
		case '*':
			p.pos++
			right, err := p.parsePower()
			if err != nil {
				return 0, err
			}
			left *= right
		case '/':
			p.pos++
			right, err := p.parsePower()
			if err != nil {
				return 0, err
			}
			if right == 0 {
				return 0, errors.New("division by zero")
			}
			left /= right
		default:
			return left, nil
		}
	}
}

// parsePower handles exponentiation, right associative.
func (p *parser) parsePower() (float64, error) {
	base, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	p.skipSpaces()
	if p.pos < len(p.input) && p.input[p.pos] == '^' {
		p.pos++
		exp, err := p.parsePower()
		if err != nil {
			return 0, err
		}
		return math.Pow(base, exp), nil
	}
	return base, nil
}

func (p *parser) parseUnary() (float64, error) {
	p.skipSpaces()
	if p.pos < len(p.input) && p.input[p.pos] == '-' {
		p.pos++
		val, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		return -val, nil
	}
	if p.pos < len(p.input) && p.input[p.pos] == '+' {
		p.pos++
		return p.parseUnary()
	}
	return p.parseAtom()
}

func (p *parser) parseAtom() (float64, error) {
	p.skipSpaces()
	if p.pos >= len(p.input) {
		return 0, errors.New("unexpected end of expression")
	}

	c := p.input[p.pos]
	if c == '(' {
		p.pos++
		val, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		if err := p.expect(')'); err != nil {
			return 0, err
		}
		return val, nil
	}

	if c >= '0' && c <= '9' || c == '.' {
		return p.parseNumber()
	}

	if isAlpha(c) {
		return p.parseNameOrFunc()
	}

	return 0, errors.Newf("unexpected character %q at position %d", c, p.pos)
}

func (p *parser) parseNumber() (float64, error) {
	start := p.pos
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if c >= '0' && c <= '9' || c == '.' {
			p.pos++
			continue
		}
		// scientific notation
		if (c == 'e' || c == 'E') && p.pos+1 < len(p.input) {
			next := p.input[p.pos+1]
			if next >= '0' && next <= '9' || next == '+' || next == '-' {
				p.pos += 2
				for p.pos < len(p.input) && p.input[p.pos] >= '0' && p.input[p.pos] <= '9' {
					p.pos++
				}
			}
		}
		break
	}
	val, err := strconv.ParseFloat(p.input[start:p.pos], 64)
	if err != nil {
		return 0, errors.Newf("invalid number %q", p.input[start:p.pos])
	}
	return val, nil
}

func (p *parser) parseNameOrFunc() (float64, error) {
	start := p.pos
	for p.pos < len(p.input) && (isAlpha(p.input[p.pos]) || p.input[p.pos] == '_') {
		p.pos++
	}
	name := p.input[start:p.pos]

	switch name {
	case "pi":
		return math.Pi, nil
	case "e":
		return math.E, nil
	}

	fn, ok := functions[name]
	if !ok {
		return 0, errors.Newf("unknown identifier %q", name)
	}

	if err := p.expect('('); err != nil {
		return 0, err
	}
	arg, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	if err := p.expect(')'); err != nil {
		return 0, err
	}
	return fn(arg)
}

var functions = map[string]func(float64) (float64, error){
	"sqrt": func(x float64) (float64, error) {
		if x < 0 {
			return 0, errors.New("square root of a negative number")
		}
		return math.Sqrt(x), nil
	},
	// trig functions take degrees
	"sin": func(x float64) (float64, error) { return math.Sin(x * math.Pi / 180), nil },
	"cos": func(x float64) (float64, error) { return math.Cos(x * math.Pi / 180), nil },
	"tan": func(x float64) (float64, error) { return math.Tan(x * math.Pi / 180), nil },
	"log": func(x float64) (float64, error) {
		if x <= 0 {
			return 0, errors.New("logarithm of a non-positive number")
		}
		return math.Log10(x), nil
	},
	"ln": func(x float64) (float64, error) {
		if x <= 0 {
			return 0, errors.New("logarithm of a non-positive number")
		}
		return math.Log(x), nil
	},
	"abs": func(x float64) (float64, error) { return math.Abs(x), nil },
}

func (p *parser) expect(c byte) error {
	p.skipSpaces()
	if p.pos >= len(p.input) || p.input[p.pos] != c {
		return errors.Newf("expected %q at position %d", c, p.pos)
	}
	p.pos++
	return nil
}

func (p *parser) skipSpaces() {
	for p.pos < len(p.input) && p.input[p.pos] == ' ' {
		p.pos++
	}
}

func isAlpha(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
