package agents

import (
	"github.com/tutorstack/tutor/chatmodel"
	"github.com/tutorstack/tutor/encoding"
	"github.com/tutorstack/tutor/pkg/llms"
	"github.com/tutorstack/tutor/pkg/schema"
	"github.com/tutorstack/tutor/store"
)

// Defaults for the agent run loop limits.
const (
	DefaultMaxRetries      = 3
	DefaultMaxMessages     = 100
	DefaultMaxToolCalls    = 20
	DefaultMaxContentSize  = 512 * 1024
	DefaultMaxNotFoundRuns = 3
)

// Option is a function that can be used to modify the behavior of the Agent Config.
type Option func(*Config)

type Config struct {
	// Model is the model to use in an LLM call.
	Model    string
	modelSet bool

	// MaxTokens is the maximum number of tokens to generate to use in an LLM call.
	MaxTokens    int
	maxTokensSet bool

	// Temperature is the temperature for sampling to use in an LLM call, between 0 and 1.
	Temperature    float64
	temperatureSet bool

	// StopWords is a list of words to stop on to use in an LLM call.
	StopWords    []string
	stopWordsSet bool

	// TopK is the number of tokens to consider for top-k sampling in an LLM call.
	TopK    int
	topkSet bool

	// TopP is the cumulative probability for top-p sampling in an LLM call.
	TopP    float64
	toppSet bool

	// Seed is a seed for deterministic sampling in an LLM call.
	Seed    int
	seedSet bool

	// CallbackHandler is the callback handler for the agent and its tools.
	CallbackHandler Callback

	// Tools is a list of tool definitions to pass to the LLM call.
	Tools    []llms.Tool
	toolsSet bool

	// ResponseFormat is the response format derived from the typed output.
	ResponseFormat *schema.ResponseFormat

	//
	// Below are the options for the Agent, not related to LLM call
	//

	// Store keeps the conversation history between calls.
	Store store.MessageStore

	PromptInput        map[string]any
	Examples           chatmodel.FewShotExamples
	Mode               encoding.Mode
	SkipMessageHistory bool
	SkipToolHistory    bool

	// MaxMessages caps the message history sent to the LLM in one run.
	MaxMessages int
	// MaxToolCalls caps the total tool calls executed in one run.
	MaxToolCalls int
	// MaxContentSize caps the total bytes sent to the LLM in one run.
	MaxContentSize int
}

func NewConfig(opts ...Option) *Config {
	cfg := &Config{
		Mode: encoding.ModeDefault,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Apply returns a copy of the config with the given options applied,
// leaving the receiver unchanged.
func (c *Config) Apply(opts ...Option) *Config {
	if len(opts) == 0 {
		return c
	}
	cp := *c
	for _, opt := range opts {
		opt(&cp)
	}
	return &cp
}

// WithMode is an option that allows to specify the encoding mode.
func WithMode(mode encoding.Mode) Option {
	return func(o *Config) {
		o.Mode = mode
	}
}

// WithStore is an option that sets the conversation history store.
func WithStore(s store.MessageStore) Option {
	return func(o *Config) {
		o.Store = s
	}
}

// WithExamples is an option that allows to specify the few-shot examples for the system prompt.
func WithExamples(examples chatmodel.FewShotExamples) Option {
	return func(o *Config) {
		o.Examples = examples
	}
}

// WithSkipMessageHistory is an option that allows to skip adding Agent messages to History.
func WithSkipMessageHistory(skip bool) Option {
	return func(o *Config) {
		o.SkipMessageHistory = skip
	}
}

// WithSkipToolHistory is an option that allows to skip adding tool calls to History.
func WithSkipToolHistory(skip bool) Option {
	return func(o *Config) {
		o.SkipToolHistory = skip
	}
}

// WithPromptInput is an option that allows the user to specify the system prompt input.
func WithPromptInput(input map[string]any) Option {
	return func(o *Config) {
		o.PromptInput = input
	}
}

// WithModel is an option for LLM.Call.
func WithModel(model string) Option {
	return func(o *Config) {
		o.Model = model
		o.modelSet = true
	}
}

// WithMaxTokens is an option for LLM.Call.
func WithMaxTokens(maxTokens int) Option {
	return func(o *Config) {
		o.MaxTokens = maxTokens
		o.maxTokensSet = true
	}
}

// WithTemperature is an option for LLM.Call.
func WithTemperature(temperature float64) Option {
	return func(o *Config) {
		o.Temperature = temperature
		o.temperatureSet = true
	}
}

// WithTopK will add an option to use top-k sampling for LLM.Call.
func WithTopK(topK int) Option {
	return func(o *Config) {
		o.TopK = topK
		o.topkSet = true
	}
}

// WithTopP will add an option to use top-p sampling for LLM.Call.
func WithTopP(topP float64) Option {
	return func(o *Config) {
		o.TopP = topP
		o.toppSet = true
	}
}

// WithSeed will add an option to use deterministic sampling for LLM.Call.
func WithSeed(seed int) Option {
	return func(o *Config) {
		o.Seed = seed
		o.seedSet = true
	}
}

// WithStopWords is an option for setting the stop words for LLM.Call.
func WithStopWords(stopWords []string) Option {
	return func(o *Config) {
		o.StopWords = stopWords
		o.stopWordsSet = true
	}
}

// WithCallback allows setting a custom Callback Handler.
func WithCallback(callbackHandler Callback) Option {
	return func(o *Config) {
		o.CallbackHandler = callbackHandler
	}
}

// WithTools is an option for LLM.Call.
func WithTools(tools []llms.Tool) Option {
	return func(o *Config) {
		o.Tools = tools
		o.toolsSet = true
	}
}

// WithMaxMessages caps the message history sent to the LLM in one run.
func WithMaxMessages(n int) Option {
	return func(o *Config) {
		o.MaxMessages = n
	}
}

// WithMaxToolCalls caps the total tool calls executed in one run.
func WithMaxToolCalls(n int) Option {
	return func(o *Config) {
		o.MaxToolCalls = n
	}
}

// WithMaxContentSize caps the total bytes sent to the LLM in one run.
func WithMaxContentSize(n int) Option {
	return func(o *Config) {
		o.MaxContentSize = n
	}
}

// GetCallOptions maps the config to options for an LLM call.
func (c *Config) GetCallOptions(options ...Option) []llms.CallOption {
	cfg := c.Apply(options...)

	var callOpts []llms.CallOption
	if cfg.modelSet {
		callOpts = append(callOpts, llms.WithModel(cfg.Model))
	}
	if cfg.maxTokensSet {
		callOpts = append(callOpts, llms.WithMaxTokens(cfg.MaxTokens))
	}
	if cfg.temperatureSet {
		callOpts = append(callOpts, llms.WithTemperature(cfg.Temperature))
	}
	if cfg.stopWordsSet {
		callOpts = append(callOpts, llms.WithStopWords(cfg.StopWords))
	}
	if cfg.topkSet {
		callOpts = append(callOpts, llms.WithTopK(cfg.TopK))
	}
	if cfg.toppSet {
		callOpts = append(callOpts, llms.WithTopP(cfg.TopP))
	}
	if cfg.seedSet {
		callOpts = append(callOpts, llms.WithSeed(cfg.Seed))
	}
	if cfg.toolsSet {
		callOpts = append(callOpts, llms.WithTools(cfg.Tools))
	}
	if cfg.ResponseFormat != nil {
		callOpts = append(callOpts, llms.WithResponseFormat(cfg.ResponseFormat))
	}

	return callOpts
}
