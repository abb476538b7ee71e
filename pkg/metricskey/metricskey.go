package metricskey

import "github.com/effective-security/metrics"

// Stats
var (
	StatsQueriesTotal = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tutor_queries_total",
		Help:         "stats_tutor_queries_total provides total queries received by the tutor",
		RequiredTags: []string{"subject"},
	}

	StatsQueriesCached = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tutor_queries_cached",
		Help:         "stats_tutor_queries_cached provides total queries served from the response cache",
		RequiredTags: []string{"subject"},
	}

	StatsClassifications = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tutor_classifications",
		Help:         "stats_tutor_classifications provides total query classifications by subject and method",
		RequiredTags: []string{"subject", "method"},
	}

	StatsLLMMessagesSent = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_messages_sent",
		Help:         "stats_llm_messages_sent provides total messages sent to LLM",
		RequiredTags: []string{"agent", "model"},
	}

	StatsLLMBytesSent = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_bytes_sent",
		Help:         "stats_llm_bytes_sent provides total bytes sent to LLM",
		RequiredTags: []string{"agent", "model"},
	}

	StatsLLMBytesReceived = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_bytes_received",
		Help:         "stats_llm_bytes_received provides total bytes received from LLM",
		RequiredTags: []string{"agent", "model"},
	}

	StatsLLMInputTokens = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_input_tokens",
		Help:         "stats_llm_input_tokens provides total input tokens sent to LLM",
		RequiredTags: []string{"agent", "model"},
	}

	StatsLLMOutputTokens = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_output_tokens",
		Help:         "stats_llm_output_tokens provides total output tokens received from LLM",
		RequiredTags: []string{"agent", "model"},
	}

	StatsLLMTotalTokens = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_total_tokens",
		Help:         "stats_llm_total_tokens provides total tokens sent and received from LLM",
		RequiredTags: []string{"agent", "model"},
	}

	StatsLLMRetries = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_retries",
		Help:         "stats_llm_retries provides total LLM calls retried",
		RequiredTags: []string{"model"},
	}

	StatsLLMRateLimited = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_rate_limited",
		Help:         "stats_llm_rate_limited provides total LLM calls rejected by the rate limiter",
		RequiredTags: []string{"model"},
	}

	StatsLLMBreakerOpen = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_breaker_open",
		Help:         "stats_llm_breaker_open provides total LLM calls rejected by the open circuit breaker",
		RequiredTags: []string{"model"},
	}

	StatsAgentCallsSucceeded = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_agent_calls_succeeded",
		Help:         "stats_agent_calls_succeeded provides total agent calls succeeded",
		RequiredTags: []string{"agent"},
	}

	StatsAgentCallsFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_agent_calls_failed",
		Help:         "stats_agent_calls_failed provides total agent calls failed",
		RequiredTags: []string{"agent"},
	}

	StatsAgentLLMParseErrors = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_agent_llm_parse_errors",
		Help:         "stats_agent_llm_parse_errors provides total agent LLM parse errors",
		RequiredTags: []string{"agent"},
	}

	StatsToolCallsSucceeded = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_succeeded",
		Help:         "stats_tool_calls_succeeded provides total tool calls succeeded",
		RequiredTags: []string{"tool"},
	}

	StatsToolCallsFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_failed",
		Help:         "stats_tool_calls_failed provides total tool calls failed",
		RequiredTags: []string{"tool"},
	}

	StatsToolCallsNotFound = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_not_found",
		Help:         "stats_tool_calls_not_found provides total tool calls not found",
		RequiredTags: []string{"tool"},
	}
)

// Perf
var (
	PerfTutorQuery = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_tutor_query",
		Help:         "perf_tutor_query provides duration of a tutor query",
		RequiredTags: []string{"subject"},
	}

	PerfAgentCall = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_agent_call",
		Help:         "perf_agent_call provides duration of agent call",
		RequiredTags: []string{"agent"},
	}

	PerfToolCall = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_tool_call",
		Help:         "perf_tool_call provides duration of tool call",
		RequiredTags: []string{"tool"},
	}
)

// Metrics returns slice of metrics from this repo
// keep sorted by name
var Metrics = []*metrics.Describe{
	&PerfAgentCall,
	&PerfTutorQuery,
	&PerfToolCall,
	&StatsAgentCallsFailed,
	&StatsAgentCallsSucceeded,
	&StatsAgentLLMParseErrors,
	&StatsClassifications,
	&StatsLLMBreakerOpen,
	&StatsLLMBytesReceived,
	&StatsLLMBytesSent,
	&StatsLLMInputTokens,
	&StatsLLMMessagesSent,
	&StatsLLMOutputTokens,
	&StatsLLMRateLimited,
	&StatsLLMRetries,
	&StatsLLMTotalTokens,
	&StatsQueriesCached,
	&StatsQueriesTotal,
	&StatsToolCallsFailed,
	&StatsToolCallsNotFound,
	&StatsToolCallsSucceeded,
}
