package summary

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/buildwellai/news-scraper/internal/model"
)

type OpenAISummarizer struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAISummarizer creates a summarizer backed by any OpenAI-compatible
// API. Set baseURL to a non-empty string to point at a local server; leave
// empty for api.openai.com.
func NewOpenAISummarizer(baseURL, apiKey, modelName string, timeout time.Duration) *OpenAISummarizer {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAISummarizer{
		client:  openai.NewClientWithConfig(cfg),
		model:   modelName,
		timeout: timeout,
	}
}

func (o *OpenAISummarizer) Summarize(ctx context.Context, candidate model.CandidateArticle) (model.Summary, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(candidate)},
		},
	})
	if err != nil {
		return model.Summary{}, fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return model.Summary{}, fmt.Errorf("empty response from model %q", o.model)
	}

	return parseResponse(resp.Choices[0].Message.Content)
}
