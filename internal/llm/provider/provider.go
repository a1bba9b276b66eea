// Package provider implements the completion backends the suggestion engine
// talks to. Every backend exposes a batch call and an event-channel stream.
package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/glint-nvim/glint/internal/stream"
)

type EventType string

const (
	EventContentDelta EventType = "content_delta"
	EventComplete     EventType = "complete"
	EventError        EventType = "error"
)

// Request carries the editor context snapshot a completion is generated from.
type Request struct {
	Filename    string
	Filetype    string
	Prefix      string
	Suffix      string
	CurrentLine string
	MaxTokens   int64
	Candidates  int
}

// Response is the result of a completion call. Text is the primary
// completion; Candidates holds every returned alternative, Text first.
type Response struct {
	Text         string
	Candidates   []string
	FinishReason string
}

// Event is one item on a streaming response channel. The channel carries
// zero or more EventContentDelta items followed by exactly one EventComplete
// or EventError, after which it is closed.
type Event struct {
	Type     EventType
	Chunk    stream.Chunk
	Response *Response
	Error    error
}

type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
	Stream(ctx context.Context, req Request) <-chan Event
}

// Options configures a backend client.
type Options struct {
	Model     string
	APIKey    string
	BaseURL   string
	MaxTokens int64
}

// New returns the named backend. Supported names are "gemini" and "openai"
// (the latter speaks to any OpenAI-compatible endpoint via BaseURL).
func New(ctx context.Context, name string, opts Options) (Client, error) {
	switch name {
	case "", "gemini":
		return newGeminiClient(ctx, opts)
	case "openai":
		return newOpenAIClient(opts), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}

const promptInstruction = "You are a code completion engine. Continue the code at the cursor. " +
	"Output only the raw completion text, with no markdown fences and no explanation."

// buildPrompt renders the request context into a fill-in-the-middle style
// prompt for backends without a native completion endpoint.
func buildPrompt(req Request) string {
	var sb strings.Builder
	sb.WriteString(promptInstruction)
	sb.WriteString("\n\n")
	if req.Filename != "" {
		fmt.Fprintf(&sb, "File: %s\n", req.Filename)
	}
	if req.Filetype != "" {
		fmt.Fprintf(&sb, "Language: %s\n", req.Filetype)
	}
	sb.WriteString("\nCode before cursor:\n")
	sb.WriteString(req.Prefix)
	if req.Suffix != "" {
		sb.WriteString("\n\nCode after cursor:\n")
		sb.WriteString(req.Suffix)
	}
	sb.WriteString("\n\nCompletion:")
	return sb.String()
}
