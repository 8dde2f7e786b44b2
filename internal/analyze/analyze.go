// Package analyze turns extracted text into a structured best-practice
// summary: title, platform, category, goal, key insights, and tags.
package analyze

import (
	"context"
	"fmt"
	"strings"

	"github.com/merchantlab/curator/internal/extract"
	"github.com/merchantlab/curator/internal/llm"
)

const analysisSystem = `You are analyzing marketing and e-commerce best-practice content for Shopify merchants. You summarize content into a structured record. Respond with JSON only.`

const analysisPrompt = `Analyze this content and extract a structured best-practice record.

platform must be one of: facebook, instagram, tiktok, google, pinterest, email, multi
category must be one of: advertising, creative, targeting, budget, measurement, seo, conversion, content, general
goal must be one of: awareness, traffic, conversion, retention, general

Content:
%s

Respond with ONLY this JSON:
{
    "title": "A concise, specific title for this best practice",
    "platform": "...",
    "category": "...",
    "goal": "...",
    "description": "2-3 sentence summary of what this content teaches",
    "key_insights": ["insight 1", "insight 2", "insight 3"],
    "tags": ["tag1", "tag2"]
}`

// Content longer than this is truncated before analysis.
const maxAnalysisChars = 6000

var validPlatforms = map[string]bool{
	"facebook": true, "instagram": true, "tiktok": true, "google": true,
	"pinterest": true, "email": true, "multi": true,
}

var validCategories = map[string]bool{
	"advertising": true, "creative": true, "targeting": true, "budget": true,
	"measurement": true, "seo": true, "conversion": true, "content": true,
	"general": true,
}

var validGoals = map[string]bool{
	"awareness": true, "traffic": true, "conversion": true, "retention": true,
	"general": true,
}

// Result is the structured analysis of one extracted content item.
type Result struct {
	Title       string
	Platform    string
	Category    string
	Goal        string
	Description string
	KeyInsights []string
	Tags        []string
}

// Analyzer produces structured analyses via an LLM completion.
type Analyzer struct {
	provider llm.Provider
}

// New creates a new Analyzer.
func New(provider llm.Provider) *Analyzer {
	return &Analyzer{provider: provider}
}

// Analyze summarizes an extraction into a structured record.
func (a *Analyzer) Analyze(ctx context.Context, extraction *extract.Result) (*Result, error) {
	if a.provider == nil {
		return nil, fmt.Errorf("analysis: no LLM provider available")
	}

	content := extraction.ExtractedText
	if len(content) > maxAnalysisChars {
		content = llm.Truncate(content, maxAnalysisChars) + "..."
	}

	response, err := a.provider.Generate(ctx, llm.Request{
		System:      analysisSystem,
		Prompt:      fmt.Sprintf(analysisPrompt, content),
		MaxTokens:   768,
		Temperature: 0.3,
		ForceJSON:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("analysis: %w", err)
	}

	parsed := llm.ParseJSONResponse(response)
	if parsed == nil {
		return nil, fmt.Errorf("analysis: response was not valid JSON")
	}

	result := &Result{
		Title:       llm.GetString(parsed, "title", "Untitled best practice"),
		Platform:    normalize(llm.GetString(parsed, "platform", "multi"), validPlatforms, "multi"),
		Category:    normalize(llm.GetString(parsed, "category", "general"), validCategories, "general"),
		Goal:        normalize(llm.GetString(parsed, "goal", "general"), validGoals, "general"),
		Description: llm.GetString(parsed, "description", ""),
		KeyInsights: llm.GetStrings(parsed, "key_insights"),
		Tags:        llm.GetStrings(parsed, "tags"),
	}
	return result, nil
}

func normalize(value string, valid map[string]bool, fallback string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	if valid[v] {
		return v
	}
	return fallback
}
