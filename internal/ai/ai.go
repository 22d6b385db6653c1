// Package ai declares the contract between the matching code and a text generation model.
package ai

import "context"

// Request is a single prompt round trip.
type Request struct {
	// Kind labels the call for logs and metrics, e.g. "requirements" or "score".
	Kind        string
	System      string
	Prompt      string
	Temperature float32
}

// Generator sends a prompt to a model and returns its raw text answer.
// The answer is untyped and may be wrapped in markup.
type Generator interface {
	Generate(ctx context.Context, req *Request) (string, error)
	Model() string
}

// Transcriber turns a binary document into plain text.
type Transcriber interface {
	Transcribe(ctx context.Context, data []byte, mimeType string) (string, error)
}
