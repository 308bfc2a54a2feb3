package summarizer

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIGenerator calls any OpenAI-compatible chat completion endpoint.
type OpenAIGenerator struct {
	client openai.Client
}

func NewOpenAIGenerator(httpClient *http.Client, baseURL, apiKey string) (*OpenAIGenerator, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("openai: api key is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(apiKey)),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	if trimmed := strings.TrimRight(baseURL, "/"); trimmed != "" {
		opts = append(opts, option.WithBaseURL(trimmed))
	}

	return &OpenAIGenerator{client: openai.NewClient(opts...)}, nil
}

func (g *OpenAIGenerator) Generate(ctx context.Context, req Request) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.User),
		},
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	resp, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai: request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
