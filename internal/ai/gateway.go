// Package ai talks to the Google Gemini REST API
// (generativelanguage.googleapis.com). It exposes a small gateway
// interface so services can be tested against a scripted fake.
package ai

import "context"

// StreamEvent represents one streamed message from the model.
// At most one of TextDelta/FunctionCall/Err is set per event; Done
// marks the end of a successful stream.
type StreamEvent struct {
	// TextDelta contains a plain text fragment of the response.
	TextDelta string
	// FunctionCall specifies a tool the model wants invoked. Gemini
	// emits function calls whole, with their input finalized.
	FunctionCall *FunctionCall
	// Done signals the end of the response stream.
	Done bool
	// Err contains any error produced while streaming.
	Err error
}

// Gateway defines the language-model operations the services rely on.
type Gateway interface {
	// Generate performs a single non-streaming call.
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)

	// Stream performs a streaming call. Events arrive on the returned
	// channel in model emission order; the channel is closed when the
	// stream ends (after a Done or Err event).
	Stream(ctx context.Context, req *GenerateRequest) (<-chan StreamEvent, error)
}
