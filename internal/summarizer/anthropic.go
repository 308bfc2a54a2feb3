package summarizer

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/ryosukesatoh/morning-brief/internal/httpx"
)

const anthropicVersion = "2023-06-01"

// AnthropicGenerator calls the Anthropic Messages API.
type AnthropicGenerator struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

func NewAnthropicGenerator(client *http.Client, baseURL, apiKey string) (*AnthropicGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic: api key is required (set ANTHROPIC_API_KEY)")
	}
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	return &AnthropicGenerator{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}, nil
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []anthropicContent `json:"content"`
	Error   *anthropicError    `json:"error,omitempty"`
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (g *AnthropicGenerator) Generate(ctx context.Context, req Request) (string, error) {
	body := anthropicRequest{
		Model:     req.Model,
		MaxTokens: req.MaxTokens,
		System:    req.System,
		Messages:  []anthropicMessage{{Role: "user", Content: req.User}},
	}
	header := http.Header{}
	header.Set("x-api-key", g.apiKey)
	header.Set("anthropic-version", anthropicVersion)

	var resp anthropicResponse
	if err := httpx.PostJSON(ctx, g.client, g.baseURL+"/v1/messages", header, body, &resp); err != nil {
		return "", fmt.Errorf("anthropic: %w", err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("anthropic: API error: %s - %s", resp.Error.Type, resp.Error.Message)
	}

	var sb strings.Builder
	for _, c := range resp.Content {
		if c.Type == "text" {
			sb.WriteString(c.Text)
		}
	}
	return sb.String(), nil
}
