package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/glint-nvim/glint/internal/stream"
)

// openaiClient speaks to any OpenAI-compatible chat completion endpoint.
type openaiClient struct {
	options Options
	client  openai.Client
}

func newOpenAIClient(opts Options) *openaiClient {
	if opts.Model == "" {
		opts.Model = "gpt-4o-mini"
	}

	clientOptions := []option.RequestOption{}
	if opts.APIKey != "" {
		clientOptions = append(clientOptions, option.WithAPIKey(opts.APIKey))
	}
	if opts.BaseURL != "" {
		clientOptions = append(clientOptions, option.WithBaseURL(opts.BaseURL))
	}

	return &openaiClient{
		options: opts,
		client:  openai.NewClient(clientOptions...),
	}
}

func (o *openaiClient) params(req Request) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.options.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(promptInstruction),
			openai.UserMessage(buildPrompt(req)),
		},
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(req.MaxTokens)
	}
	if req.Candidates > 1 {
		params.N = openai.Int(int64(req.Candidates))
	}
	return params
}

func (o *openaiClient) Complete(ctx context.Context, req Request) (*Response, error) {
	completion, err := o.client.Chat.Completions.New(ctx, o.params(req))
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return &Response{}, nil
	}

	candidates := make([]string, 0, len(completion.Choices))
	for _, choice := range completion.Choices {
		candidates = append(candidates, choice.Message.Content)
	}

	return &Response{
		Text:         candidates[0],
		Candidates:   candidates,
		FinishReason: finishReason(string(completion.Choices[0].FinishReason)),
	}, nil
}

func (o *openaiClient) Stream(ctx context.Context, req Request) <-chan Event {
	params := o.params(req)
	eventChan := make(chan Event)

	go func() {
		defer close(eventChan)

		openaiStream := o.client.Chat.Completions.NewStreaming(ctx, params)
		acc := openai.ChatCompletionAccumulator{}
		var sb strings.Builder

		for openaiStream.Next() {
			chunk := openaiStream.Current()
			acc.AddChunk(chunk)

			for _, choice := range chunk.Choices {
				if choice.Delta.Content != "" {
					sb.WriteString(choice.Delta.Content)
					eventChan <- Event{
						Type:  EventContentDelta,
						Chunk: stream.Chunk{Text: choice.Delta.Content},
					}
				}
			}
		}

		if err := openaiStream.Err(); err != nil && !errors.Is(err, io.EOF) {
			eventChan <- Event{Type: EventError, Error: fmt.Errorf("openai stream: %w", err)}
			return
		}

		reason := ""
		if len(acc.ChatCompletion.Choices) > 0 {
			reason = finishReason(string(acc.ChatCompletion.Choices[0].FinishReason))
		}
		text := sb.String()
		eventChan <- Event{
			Type: EventComplete,
			Response: &Response{
				Text:         text,
				Candidates:   []string{text},
				FinishReason: reason,
			},
		}
	}()

	return eventChan
}

// finishReason normalizes OpenAI finish reasons onto the wire vocabulary the
// rest of the engine uses.
func finishReason(reason string) string {
	switch reason {
	case "stop":
		return "STOP"
	case "length":
		return "MAX_TOKENS"
	case "":
		return ""
	default:
		return strings.ToUpper(reason)
	}
}
