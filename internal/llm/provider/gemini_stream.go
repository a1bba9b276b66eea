package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/glint-nvim/glint/internal/stream"
)

const maxStreamLineBytes = 1 << 20

type geminiStreamRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig *geminiGenCfg   `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenCfg struct {
	MaxOutputTokens int64 `json:"maxOutputTokens,omitempty"`
}

// Stream issues a streamGenerateContent request and feeds each SSE line
// through the stream parser, emitting a delta event per text chunk and a
// final complete event with the accumulated text.
func (g *geminiClient) Stream(ctx context.Context, req Request) <-chan Event {
	eventChan := make(chan Event)

	go func() {
		defer close(eventChan)

		body := geminiStreamRequest{
			Contents: []geminiContent{{Parts: []geminiPart{{Text: buildPrompt(req)}}}},
		}
		if req.MaxTokens > 0 {
			body.GenerationConfig = &geminiGenCfg{MaxOutputTokens: req.MaxTokens}
		}
		payload, err := json.Marshal(body)
		if err != nil {
			eventChan <- Event{Type: EventError, Error: fmt.Errorf("encoding stream request: %w", err)}
			return
		}

		url := fmt.Sprintf("%s/v1beta/models/%s:streamGenerateContent?alt=sse", g.baseURL(), g.options.Model)
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			eventChan <- Event{Type: EventError, Error: fmt.Errorf("building stream request: %w", err)}
			return
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("x-goog-api-key", g.options.APIKey)

		resp, err := g.httpClient.Do(httpReq)
		if err != nil {
			eventChan <- Event{Type: EventError, Error: fmt.Errorf("gemini stream request: %w", err)}
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			eventChan <- Event{Type: EventError, Error: readAPIError(resp)}
			return
		}

		acc := stream.NewAccumulator()
		finishReason := ""

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), maxStreamLineBytes)
		for scanner.Scan() {
			line := strings.TrimRight(scanner.Text(), "\r")
			chunk, ok := stream.ParseLine(line)
			if !ok {
				continue
			}
			acc.Add(&chunk)
			if chunk.FinishReason != "" {
				finishReason = chunk.FinishReason
			}
			if chunk.Text != "" {
				eventChan <- Event{Type: EventContentDelta, Chunk: chunk}
			}
		}
		if err := scanner.Err(); err != nil {
			eventChan <- Event{Type: EventError, Error: fmt.Errorf("reading stream: %w", err)}
			return
		}

		slog.Debug("gemini stream complete", "chunks", len(acc.Chunks()), "finish_reason", finishReason)
		text := acc.Text()
		eventChan <- Event{
			Type: EventComplete,
			Response: &Response{
				Text:         text,
				Candidates:   []string{text},
				FinishReason: finishReason,
			},
		}
	}()

	return eventChan
}

func readAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var wire struct {
		Error *stream.WireError `json:"error"`
	}
	if err := json.Unmarshal(body, &wire); err == nil && wire.Error != nil && wire.Error.Message != "" {
		return fmt.Errorf("gemini API error (%d): %s", resp.StatusCode, wire.Error.Message)
	}
	return fmt.Errorf("gemini API error: status %d", resp.StatusCode)
}
