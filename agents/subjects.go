package agents

import (
	"github.com/tutorstack/tutor/pkg/llms"
	"github.com/tutorstack/tutor/pkg/prompts"
	"github.com/tutorstack/tutor/tools/calculator"
	"github.com/tutorstack/tutor/tools/constants"
	"github.com/tutorstack/tutor/tools/periodic"
	"github.com/tutorstack/tutor/tools/unitconv"
)

// SubjectAnswer is the typed output of the subject agents.
type SubjectAnswer struct {
	Answer     string  `json:"answer" jsonschema:"title=Answer,description=The complete answer to the question."`
	Confidence float64 `json:"confidence" jsonschema:"title=Confidence,description=Confidence in the answer between 0 and 1."`
}

// GetContent gets the content of the message for the chat history.
func (a SubjectAnswer) GetContent() string {
	return a.Answer
}

const mathPromptTemplate = `You are a math tutor. Answer the student's question with a complete mathematical solution that includes:
1. Mathematical Concepts Involved
2. Step-by-Step Solution
3. Verification and Reasoning
4. Final Answer

Whenever the question requires arithmetic, use the Calculator tool instead of computing yourself.
Explain the mathematical concepts and reasoning clearly.`

const physicsPromptTemplate = `You are a physics tutor. Answer the student's question with a clear explanation that includes:
1. Physical Concepts Involved
2. Step-by-Step Solution with formulas
3. Final Answer with units

Use the ConstantLookup tool for physical constants, the UnitConverter tool for unit conversions,
and the Calculator tool for arithmetic. Never compute or recall these yourself.`

const chemistryPromptTemplate = `You are a chemistry tutor. Answer the student's question with a clear, concise answer that:
1. Directly addresses the question
2. Includes relevant chemical concepts
3. Uses simple, understandable language
4. Gives practical examples where appropriate

Use the PeriodicTable tool for element properties, the MolarMass tool for molar masses of formulas,
and the ConstantLookup tool for chemical constants. Keep the response focused and to the point.`

// NewMathAgent creates the math tutoring agent with the Calculator tool.
func NewMathAgent(llmModel llms.Model, options ...Option) *Agent[SubjectAnswer] {
	return NewAgent[SubjectAnswer](llmModel, prompts.NewPromptTemplate(mathPromptTemplate, nil), options...).
		WithName("MathAgent").
		WithDescription("Answers math questions: algebra, calculus, geometry, arithmetic.").
		WithTools(calculator.New())
}

// NewPhysicsAgent creates the physics tutoring agent with constant lookup,
// unit conversion and calculator tools.
func NewPhysicsAgent(llmModel llms.Model, options ...Option) *Agent[SubjectAnswer] {
	return NewAgent[SubjectAnswer](llmModel, prompts.NewPromptTemplate(physicsPromptTemplate, nil), options...).
		WithName("PhysicsAgent").
		WithDescription("Answers physics questions: forces, motion, energy, waves, electricity.").
		WithTools(constants.New(constants.Physics), unitconv.New(), calculator.New())
}

// NewChemistryAgent creates the chemistry tutoring agent with periodic table,
// molar mass and constant lookup tools.
func NewChemistryAgent(llmModel llms.Model, options ...Option) *Agent[SubjectAnswer] {
	return NewAgent[SubjectAnswer](llmModel, prompts.NewPromptTemplate(chemistryPromptTemplate, nil), options...).
		WithName("ChemistryAgent").
		WithDescription("Answers chemistry questions: elements, reactions, compounds, molecules.").
		WithTools(periodic.New(), periodic.NewMolarMass(), constants.New(constants.Chemistry))
}
