package llm

import (
	"context"
)

// RequestType selects the payload shape sent to the classification endpoint.
type RequestType string

// Request types accepted by the classification endpoint.
const (
	RequestTypeSingle RequestType = "single"
	RequestTypeBatch  RequestType = "batch"
)

// Request is the provider-agnostic payload built for one classification
// call. Schema is the strict output contract the provider must honor; it is
// what keeps response parsing deterministic.
type Request struct {
	Schema map[string]any `json:"schema"`
	Type   RequestType    `json:"type"`
	Prompt string         `json:"prompt"`
}

// Client dispatches a built request to the classification endpoint and
// returns the raw content of the first completion choice. Transport-level
// failures come back as *Error with the appropriate kind.
type Client interface {
	Complete(ctx context.Context, req Request, token string) (string, error)
}
