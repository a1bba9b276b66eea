// Package stream parses server-sent completion events and accumulates the
// incremental text they carry.
package stream

import (
	"encoding/json"
	"strings"
)

const dataPrefix = "data:"

// Chunk is one unit of streamed completion text. FinishReason is empty
// until the terminal chunk of a stream.
type Chunk struct {
	Text         string
	FinishReason string
}

type wirePart struct {
	Text string `json:"text"`
}

type wireContent struct {
	Parts []wirePart `json:"parts"`
}

type wireCandidate struct {
	Content      wireContent `json:"content"`
	FinishReason string      `json:"finishReason"`
}

type wirePayload struct {
	Candidates []wireCandidate `json:"candidates"`
	Error      *WireError      `json:"error"`
}

// WireError is the error object the API embeds in a response body.
type WireError struct {
	Message string `json:"message"`
}

// ParseLine maps one raw event-stream line to a Chunk. The second return is
// false for anything that is not a well-formed data line: blank lines, other
// SSE fields, malformed JSON, and payloads without a usable first candidate.
// An error-only payload also yields no chunk; errors surface through the
// request path, not the stream.
func ParseLine(line string) (Chunk, bool) {
	if !strings.HasPrefix(line, dataPrefix) {
		return Chunk{}, false
	}
	payload := strings.TrimLeft(line[len(dataPrefix):], " \t")

	var body wirePayload
	if err := json.Unmarshal([]byte(payload), &body); err != nil {
		return Chunk{}, false
	}
	if len(body.Candidates) == 0 {
		return Chunk{}, false
	}

	cand := body.Candidates[0]
	if len(cand.Content.Parts) == 0 && cand.FinishReason == "" {
		return Chunk{}, false
	}

	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		sb.WriteString(part.Text)
	}
	return Chunk{Text: sb.String(), FinishReason: cand.FinishReason}, true
}
