// Package summary adapts external LLMs into the pipeline's summarize step.
// Adapters return an error on any failure; callers degrade to Fallback so a
// single bad summarization never aborts a batch.
package summary

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/buildwellai/news-scraper/internal/model"
)

// CategoryGeneral is the category of last resort.
const CategoryGeneral = "general"

var categories = map[string]bool{
	"infrastructure": true,
	"housing":        true,
	"commercial":     true,
	"regulation":     true,
	"technology":     true,
	"safety":         true,
	"environment":    true,
	"planning":       true,
	CategoryGeneral:  true,
}

const systemPrompt = `You summarize UK construction industry news. Given an article, respond with a JSON object and nothing else:
{"summary": "...", "category": "..."}
The summary must be 1-2 factual sentences focused on key figures, regulatory changes, project values or safety implications, using only information present in the article. The category must be exactly one of: infrastructure, housing, commercial, regulation, technology, safety, environment, planning, general.`

// promptContentLimit keeps request bodies inside typical model context.
const promptContentLimit = 6000

func userPrompt(candidate model.CandidateArticle) string {
	content := candidate.Content
	if len(content) > promptContentLimit {
		content = content[:promptContentLimit]
	}
	return fmt.Sprintf("Title: %s\n\nContent: %s", candidate.Title, content)
}

// parseResponse extracts the JSON object from a model reply, tolerating
// markdown code fences and surrounding prose.
func parseResponse(raw string) (model.Summary, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return model.Summary{}, fmt.Errorf("no JSON object in model response")
	}

	var out model.Summary
	if err := json.Unmarshal([]byte(raw[start:end+1]), &out); err != nil {
		return model.Summary{}, fmt.Errorf("decode model response: %w", err)
	}

	out.Summary = strings.TrimSpace(out.Summary)
	if out.Summary == "" {
		return model.Summary{}, fmt.Errorf("model response has empty summary")
	}
	out.Category = normalizeCategory(out.Category)

	return out, nil
}

func normalizeCategory(category string) string {
	category = strings.ToLower(strings.TrimSpace(category))
	if !categories[category] {
		return CategoryGeneral
	}
	return category
}

// Fallback builds the degraded result used when an adapter fails: the
// failure reason stands in for the summary and the category is general.
func Fallback(reason string) model.Summary {
	return model.Summary{
		Summary:  reason,
		Category: CategoryGeneral,
	}
}
