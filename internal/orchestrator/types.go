package orchestrator

import "context"

// PipelineRequest is the body of one assistant Process invocation
type PipelineRequest struct {
	// CorrelationID ties the invocation to the gateway's logs and metrics
	CorrelationID string `json:"correlation_id"`

	// Text is the transcript to process
	Text string `json:"text"`

	// ToolsEnabled lets the assistant call its registered tools
	ToolsEnabled bool `json:"tools_enabled"`

	// RecursionLimit bounds the assistant's internal tool-call loop
	RecursionLimit int `json:"recursion_limit"`
}

// PipelineResponse is the assistant's final answer for one invocation
type PipelineResponse struct {
	CorrelationID string `json:"correlation_id"`
	Message       string `json:"message"`
	TotalTokens   int32  `json:"total_tokens,omitempty"`
}

// Pipeline is the interface for the downstream assistant pipeline. Each
// Process call is one complete request/response exchange; retry across
// invocations belongs to the caller.
type Pipeline interface {
	// Process sends transcript text downstream and returns the final reply
	Process(ctx context.Context, correlationID, text string) (string, error)
}
