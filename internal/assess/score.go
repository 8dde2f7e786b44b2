package assess

import (
	"context"
	"fmt"
	"strings"

	"github.com/merchantlab/curator/internal/analyze"
	"github.com/merchantlab/curator/internal/extract"
	"github.com/merchantlab/curator/internal/llm"
)

// Extracted text beyond this many characters is truncated before scoring.
const maxScoredChars = 3000

const scoringSystem = `You evaluate best-practice content for Shopify merchants. Score the content 0-10 on each criterion:

- relevance: how applicable is this to e-commerce merchants on the stated platform
- actionability: can a merchant act on this directly, with concrete steps
- accuracy: is the content factually sound and consistent with current platform behavior
- completeness: does it cover the topic without major gaps
- uniqueness: does it go beyond generic, widely-repeated advice

Respond with ONLY this JSON:
{
    "relevance": 0-10,
    "actionability": 0-10,
    "accuracy": 0-10,
    "completeness": 0-10,
    "uniqueness": 0-10,
    "reasoning": "One or two sentences explaining the scores"
}`

const scoringPrompt = `Title: %s
Platform: %s
Category: %s

Content:
%s

Key insights:
%s`

// scoreCriteria issues a single structured completion and parses the five
// numeric fields. A missing field scores 0; a response that is not JSON at
// all is an error.
func (a *Assessor) scoreCriteria(ctx context.Context, extraction *extract.Result, analysis *analyze.Result) (Scores, error) {
	if a.provider == nil {
		return Scores{}, fmt.Errorf("no LLM provider available")
	}

	content := extraction.ExtractedText
	if len(content) > maxScoredChars {
		content = llm.Truncate(content, maxScoredChars) + "..."
	}

	insights := "None"
	if len(analysis.KeyInsights) > 0 {
		insights = "- " + strings.Join(analysis.KeyInsights, "\n- ")
	}

	prompt := fmt.Sprintf(scoringPrompt,
		analysis.Title, analysis.Platform, analysis.Category, content, insights)

	response, err := a.provider.Generate(ctx, llm.Request{
		System:      scoringSystem,
		Prompt:      prompt,
		MaxTokens:   512,
		Temperature: 0.2,
		ForceJSON:   true,
	})
	if err != nil {
		return Scores{}, err
	}

	parsed := llm.ParseJSONResponse(response)
	if parsed == nil {
		return Scores{}, fmt.Errorf("scoring response was not valid JSON")
	}

	return Scores{
		Relevance:     clampScore(llm.GetFloat(parsed, "relevance", 0)),
		Actionability: clampScore(llm.GetFloat(parsed, "actionability", 0)),
		Accuracy:      clampScore(llm.GetFloat(parsed, "accuracy", 0)),
		Completeness:  clampScore(llm.GetFloat(parsed, "completeness", 0)),
		Uniqueness:    clampScore(llm.GetFloat(parsed, "uniqueness", 0)),
	}, nil
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}
