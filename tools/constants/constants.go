// Package constants provides a physical constant lookup tool for the
// physics and chemistry agents.
package constants

import (
	"context"
	"encoding/json"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/tutorstack/tutor/chatmodel"
	"github.com/tutorstack/tutor/pkg/llmutils"
	"github.com/tutorstack/tutor/pkg/schema"
	"github.com/tutorstack/tutor/tools"
)

const ToolName = "ConstantLookup"

// Constant is a known physical constant.
type Constant struct {
	Symbol      string  `json:"Symbol" yaml:"Symbol"`
	Value       float64 `json:"Value" yaml:"Value"`
	Unit        string  `json:"Unit" yaml:"Unit"`
	Description string  `json:"Description" yaml:"Description"`
}

// Physics is the set of constants used by the physics agent.
var Physics = []Constant{
	{Symbol: "c", Value: 299792458, Unit: "m/s", Description: "Speed of light in vacuum"},
	{Symbol: "g", Value: 9.81, Unit: "m/s^2", Description: "Acceleration due to gravity on Earth"},
	{Symbol: "h", Value: 6.62607015e-34, Unit: "J*s", Description: "Planck's constant"},
	{Symbol: "k", Value: 1.380649e-23, Unit: "J/K", Description: "Boltzmann's constant"},
	{Symbol: "e", Value: 1.602176634e-19, Unit: "C", Description: "Elementary charge"},
	{Symbol: "m_e", Value: 9.1093837015e-31, Unit: "kg", Description: "Electron mass"},
	{Symbol: "m_p", Value: 1.67262192369e-27, Unit: "kg", Description: "Proton mass"},
	{Symbol: "N_A", Value: 6.02214076e23, Unit: "mol^-1", Description: "Avogadro's number"},
	{Symbol: "R", Value: 8.314462618, Unit: "J/(mol*K)", Description: "Gas constant"},
	{Symbol: "epsilon_0", Value: 8.8541878128e-12, Unit: "F/m", Description: "Vacuum permittivity"},
	{Symbol: "mu_0", Value: 1.25663706212e-6, Unit: "H/m", Description: "Vacuum permeability"},
}

// Chemistry is the set of constants used by the chemistry agent.
var Chemistry = []Constant{
	{Symbol: "R", Value: 8.314462618, Unit: "J/(mol*K)", Description: "Gas constant"},
	{Symbol: "N_A", Value: 6.02214076e23, Unit: "mol^-1", Description: "Avogadro's number"},
	{Symbol: "F", Value: 96485.33212, Unit: "C/mol", Description: "Faraday constant"},
	{Symbol: "STP_pressure", Value: 101325, Unit: "Pa", Description: "Standard pressure"},
	{Symbol: "STP_temperature", Value: 273.15, Unit: "K", Description: "Standard temperature"},
}

// LookupRequest represents the tool input.
type LookupRequest struct {
	Query string `json:"Query" yaml:"Query" jsonschema:"title=Query,description=The name or symbol of the physical constant such as c or Planck's constant."`
}

// LookupResult represents the best matching constant.
type LookupResult struct {
	Symbol      string  `json:"Symbol" yaml:"Symbol"`
	Value       float64 `json:"Value" yaml:"Value"`
	Unit        string  `json:"Unit" yaml:"Unit"`
	Description string  `json:"Description" yaml:"Description"`
}

func (r *LookupResult) GetContent() string {
	return llmutils.ToJSON(r)
}

var _ chatmodel.ContentProvider = (*LookupResult)(nil)

// Tool looks up physical constants by symbol or description.
type Tool struct {
	name        string
	description string
	funcParams  any
	table       []Constant
}

var _ tools.Tool[LookupRequest, LookupResult] = (*Tool)(nil)

// New creates a lookup tool over the given constant table.
func New(table []Constant) *Tool {
	sc := schema.MustNew(reflect.TypeOf(LookupRequest{}))
	return &Tool{
		name:        ToolName,
		description: "Looks up the value, SI unit and description of a physical constant by its symbol or name.",
		funcParams:  sc.Parameters,
		table:       table,
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

func (t *Tool) Run(_ context.Context, req *LookupRequest) (*LookupResult, error) {
	c, err := Lookup(t.table, req.Query)
	if err != nil {
		return nil, err
	}
	return &LookupResult{
		Symbol:      c.Symbol,
		Value:       c.Value,
		Unit:        c.Unit,
		Description: c.Description,
	}, nil
}

func (t *Tool) Call(ctx context.Context, input string) (string, error) {
	var req LookupRequest
	if err := json.Unmarshal(llmutils.CleanJSON([]byte(input)), &req); err != nil {
		return "", errors.WithMessage(chatmodel.ErrFailedUnmarshalInput, err.Error())
	}
	out, err := t.Run(ctx, &req)
	if err != nil {
		return "", err
	}
	return out.GetContent(), nil
}

var wordRe = regexp.MustCompile(`\w+`)

// Lookup finds the constant best matching the query: exact symbol first,
// then exact description, then the highest scored partial match.
func Lookup(table []Constant, query string) (*Constant, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, errors.New("invalid request: empty query")
	}

	for i := range table {
		if strings.ToLower(table[i].Symbol) == q {
			return &table[i], nil
		}
	}
	for i := range table {
		if strings.ToLower(table[i].Description) == q {
			return &table[i], nil
		}
	}

	type scored struct {
		c     *Constant
		score float64
	}
	var matches []scored
	for i := range table {
		c := &table[i]
		symbol := strings.ToLower(c.Symbol)
		desc := strings.ToLower(c.Description)
		if strings.Contains(desc, q) || strings.Contains(q, desc) || strings.Contains(q, symbol) {
			matches = append(matches, scored{c: c, score: matchScore(q, symbol, desc)})
		}
	}
	if len(matches) == 0 {
		return nil, errors.Newf("no matching physical constants found for %q", query)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})
	return matches[0].c, nil
}

func matchScore(query, symbol, desc string) float64 {
	var score float64
	if query == symbol {
		score += 100
	}
	if query == desc {
		score += 100
	}
	if strings.Contains(query, symbol) || strings.Contains(symbol, query) {
		score += 50
	}
	if strings.Contains(query, desc) || strings.Contains(desc, query) {
		score += 25
	}

	queryWords := wordRe.FindAllString(query, -1)
	descWords := make(map[string]bool)
	for _, w := range wordRe.FindAllString(desc, -1) {
		descWords[w] = true
	}
	seen := make(map[string]bool)
	for _, w := range queryWords {
		if descWords[w] && !seen[w] {
			seen[w] = true
			score += 10
		}
	}
	return score
}
