package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

const (
	defaultGeminiModel   = "gemini-2.0-flash"
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"
)

// geminiClient uses the genai SDK for batch completions and a raw SSE
// request for streaming (see gemini_stream.go), since the engine parses the
// event stream itself.
type geminiClient struct {
	options    Options
	client     *genai.Client
	httpClient *http.Client
}

func newGeminiClient(ctx context.Context, opts Options) (*geminiClient, error) {
	if opts.Model == "" {
		opts.Model = defaultGeminiModel
	}

	cc := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cc.HTTPOptions.BaseURL = opts.BaseURL
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &geminiClient{
		options:    opts,
		client:     client,
		httpClient: http.DefaultClient,
	}, nil
}

func (g *geminiClient) Complete(ctx context.Context, req Request) (*Response, error) {
	config := &genai.GenerateContentConfig{}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.Candidates > 1 {
		config.CandidateCount = int32(req.Candidates)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.options.Model, genai.Text(buildPrompt(req)), config)
	if err != nil {
		return nil, fmt.Errorf("gemini generateContent: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return &Response{}, nil
	}

	candidates := make([]string, 0, len(resp.Candidates))
	for _, cand := range resp.Candidates {
		candidates = append(candidates, candidateText(cand))
	}

	return &Response{
		Text:         candidates[0],
		Candidates:   candidates,
		FinishReason: string(resp.Candidates[0].FinishReason),
	}, nil
}

func candidateText(cand *genai.Candidate) string {
	if cand == nil || cand.Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String()
}

func (g *geminiClient) baseURL() string {
	if g.options.BaseURL != "" {
		return strings.TrimRight(g.options.BaseURL, "/")
	}
	return defaultGeminiBaseURL
}
