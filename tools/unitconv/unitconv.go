// Package unitconv provides a deterministic unit conversion tool for the
// physics agent.
package unitconv

import (
	"context"
	"encoding/json"
	"reflect"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/tutorstack/tutor/chatmodel"
	"github.com/tutorstack/tutor/pkg/llmutils"
	"github.com/tutorstack/tutor/pkg/schema"
	"github.com/tutorstack/tutor/tools"
)

const ToolName = "UnitConverter"

// ConvertRequest represents the tool input.
type ConvertRequest struct {
	Value    float64 `json:"Value" yaml:"Value" jsonschema:"title=Value,description=The numeric value to convert."`
	FromUnit string  `json:"FromUnit" yaml:"FromUnit" jsonschema:"title=FromUnit,description=The unit of the input value such as km or lb or celsius."`
	ToUnit   string  `json:"ToUnit" yaml:"ToUnit" jsonschema:"title=ToUnit,description=The unit to convert the value to."`
}

// ConvertResult represents the converted value.
type ConvertResult struct {
	Value    float64 `json:"Value" yaml:"Value"`
	FromUnit string  `json:"FromUnit" yaml:"FromUnit"`
	ToUnit   string  `json:"ToUnit" yaml:"ToUnit"`
	Result   float64 `json:"Result" yaml:"Result"`
	Category string  `json:"Category" yaml:"Category"`
}

func (r *ConvertResult) GetContent() string {
	return llmutils.ToJSON(r)
}

var _ chatmodel.ContentProvider = (*ConvertResult)(nil)

// unit describes a linear unit relative to the category base, or an affine
// one when offset is non-zero (temperatures).
type unit struct {
	category string
	factor   float64
	offset   float64
}

var units = map[string]unit{
	// length, base meter
	"m":     {category: "length", factor: 1},
	"meter": {category: "length", factor: 1},
	"km":    {category: "length", factor: 1000},
	"cm":    {category: "length", factor: 0.01},
	"mm":    {category: "length", factor: 0.001},
	"mi":    {category: "length", factor: 1609.344},
	"mile":  {category: "length", factor: 1609.344},
	"yd":    {category: "length", factor: 0.9144},
	"ft":    {category: "length", factor: 0.3048},
	"in":    {category: "length", factor: 0.0254},
	"nm":    {category: "length", factor: 1e-9},
	"um":    {category: "length", factor: 1e-6},

	// mass, base kilogram
	"kg":       {category: "mass", factor: 1},
	"kilogram": {category: "mass", factor: 1},
	"g":        {category: "mass", factor: 0.001},
	"gram":     {category: "mass", factor: 0.001},
	"mg":       {category: "mass", factor: 1e-6},
	"t":        {category: "mass", factor: 1000},
	"tonne":    {category: "mass", factor: 1000},
	"lb":       {category: "mass", factor: 0.45359237},
	"pound":    {category: "mass", factor: 0.45359237},
	"oz":       {category: "mass", factor: 0.028349523125},

	// time, base second
	"s":      {category: "time", factor: 1},
	"second": {category: "time", factor: 1},
	"ms":     {category: "time", factor: 0.001},
	"us":     {category: "time", factor: 1e-6},
	"min":    {category: "time", factor: 60},
	"minute": {category: "time", factor: 60},
	"h":      {category: "time", factor: 3600},
	"hour":   {category: "time", factor: 3600},
	"day":    {category: "time", factor: 86400},

	// temperature, base kelvin
	"k":          {category: "temperature", factor: 1},
	"kelvin":     {category: "temperature", factor: 1},
	"c":          {category: "temperature", factor: 1, offset: 273.15},
	"celsius":    {category: "temperature", factor: 1, offset: 273.15},
	"f":          {category: "temperature", factor: 5.0 / 9.0, offset: 255.3722222222222},
	"fahrenheit": {category: "temperature", factor: 5.0 / 9.0, offset: 255.3722222222222},

	// energy, base joule
	"j":     {category: "energy", factor: 1},
	"joule": {category: "energy", factor: 1},
	"kj":    {category: "energy", factor: 1000},
	"cal":   {category: "energy", factor: 4.184},
	"kcal":  {category: "energy", factor: 4184},
	"ev":    {category: "energy", factor: 1.602176634e-19},
	"kwh":   {category: "energy", factor: 3.6e6},

	// pressure, base pascal
	"pa":     {category: "pressure", factor: 1},
	"pascal": {category: "pressure", factor: 1},
	"kpa":    {category: "pressure", factor: 1000},
	"bar":    {category: "pressure", factor: 100000},
	"atm":    {category: "pressure", factor: 101325},
	"mmhg":   {category: "pressure", factor: 133.322387415},
	"torr":   {category: "pressure", factor: 101325.0 / 760.0},
	"psi":    {category: "pressure", factor: 6894.757293168},

	// volume, base liter
	"l":      {category: "volume", factor: 1},
	"liter":  {category: "volume", factor: 1},
	"ml":     {category: "volume", factor: 0.001},
	"m3":     {category: "volume", factor: 1000},
	"cm3":    {category: "volume", factor: 0.001},
	"gal":    {category: "volume", factor: 3.785411784},
	"gallon": {category: "volume", factor: 3.785411784},
}

// Tool converts values between units of the same category.
type Tool struct {
	name        string
	description string
	funcParams  any
}

var _ tools.Tool[ConvertRequest, ConvertResult] = (*Tool)(nil)

func New() *Tool {
	sc := schema.MustNew(reflect.TypeOf(ConvertRequest{}))
	return &Tool{
		name:        ToolName,
		description: "Converts a value between units of length, mass, time, temperature, energy, pressure or volume. Both units must belong to the same category.",
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

func (t *Tool) Run(_ context.Context, req *ConvertRequest) (*ConvertResult, error) {
	result, category, err := Convert(req.Value, req.FromUnit, req.ToUnit)
	if err != nil {
		return nil, err
	}
	return &ConvertResult{
		Value:    req.Value,
		FromUnit: req.FromUnit,
		ToUnit:   req.ToUnit,
		Result:   result,
		Category: category,
	}, nil
}

func (t *Tool) Call(ctx context.Context, input string) (string, error) {
	var req ConvertRequest
	if err := json.Unmarshal(llmutils.CleanJSON([]byte(input)), &req); err != nil {
		return "", errors.WithMessage(chatmodel.ErrFailedUnmarshalInput, err.Error())
	}
	out, err := t.Run(ctx, &req)
	if err != nil {
		return "", err
	}
	return out.GetContent(), nil
}

// Convert converts a value between two units and returns the result and
// the category both units belong to.
func Convert(value float64, fromUnit, toUnit string) (float64, string, error) {
	from, ok := units[canonical(fromUnit)]
	if !ok {
		return 0, "", errors.Newf("unknown unit %q", fromUnit)
	}
	to, ok := units[canonical(toUnit)]
	if !ok {
		return 0, "", errors.Newf("unknown unit %q", toUnit)
	}
	if from.category != to.category {
		return 0, "", errors.Newf("cannot convert %s to %s: %s and %s are different categories",
			fromUnit, toUnit, from.category, to.category)
	}

	base := value*from.factor + from.offset
	return (base - to.offset) / to.factor, from.category, nil
}

func canonical(u string) string {
	u = strings.ToLower(strings.TrimSpace(u))
	u = strings.TrimSuffix(u, ".")
	// accept degree prefixes for temperatures
	u = strings.TrimPrefix(u, "°")
	u = strings.TrimPrefix(u, "deg ")
	u = strings.TrimPrefix(u, "degrees ")
	if len(u) > 1 {
		if s := strings.TrimSuffix(u, "s"); s != u {
			if _, ok := units[u]; !ok {
				if _, ok := units[s]; ok {
					return s
				}
			}
		}
	}
	return u
}
