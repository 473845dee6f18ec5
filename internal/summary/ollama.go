package summary

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/buildwellai/news-scraper/internal/model"
)

type OllamaSummarizer struct {
	client  *api.Client
	model   string
	timeout time.Duration
	mu      sync.Mutex
}

func NewOllamaSummarizer(baseURL, modelName string, timeout time.Duration) *OllamaSummarizer {
	c := api.NewClient(&url.URL{
		Scheme: "http",
		Host:   baseURL,
		Path:   "/",
	}, &http.Client{})

	return &OllamaSummarizer{
		client:  c,
		model:   modelName,
		timeout: timeout,
	}
}

func (o *OllamaSummarizer) Summarize(ctx context.Context, candidate model.CandidateArticle) (model.Summary, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	req := &api.GenerateRequest{
		Model:  o.model,
		System: systemPrompt,
		Prompt: userPrompt(candidate),
	}

	var responseFlow []string
	err := o.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		responseFlow = append(responseFlow, resp.Response)
		return nil
	})
	if err != nil {
		return model.Summary{}, err
	}

	return parseResponse(strings.Join(responseFlow, ""))
}
