package assess

import (
	"context"
	"log"
	"strings"

	"github.com/merchantlab/curator/internal/analyze"
	"github.com/merchantlab/curator/internal/extract"
	"github.com/merchantlab/curator/internal/llm"
)

const (
	// How many nearest entries the duplicate search retrieves.
	duplicateSearchLimit = 3
	// How much extracted text goes into the search string.
	searchTextChars = 1000
	// Platform value meaning "applies everywhere": no platform filter.
	platformMulti = "multi"
)

type duplicateResult struct {
	isDuplicate bool
	matchID     string
	similarity  float64
}

// checkDuplicate embeds a search string built from the analysis and the
// extracted text, then asks the similarity backend for the nearest existing
// entries. Any backend failure is absorbed: a search outage must not block
// ingestion, so it logs a warning and reports no duplicate.
func (a *Assessor) checkDuplicate(ctx context.Context, extraction *extract.Result, analysis *analyze.Result, skip bool) duplicateResult {
	if skip {
		return duplicateResult{}
	}
	if a.embedder == nil || a.search == nil {
		return duplicateResult{}
	}

	searchText := SearchText(extraction, analysis)

	vector, err := a.embedder.Embed(ctx, searchText)
	if err != nil {
		log.Printf("Warning: duplicate check embedding failed, assuming no duplicate: %v", err)
		return duplicateResult{}
	}

	platform := analysis.Platform
	if platform == platformMulti {
		platform = ""
	}

	matches, err := a.search.Search(ctx, vector, a.cfg.SearchThreshold, duplicateSearchLimit, platform, analysis.Goal)
	if err != nil {
		log.Printf("Warning: duplicate search failed, assuming no duplicate: %v", err)
		return duplicateResult{}
	}

	if len(matches) > 0 && matches[0].Similarity >= a.cfg.DuplicateThreshold {
		return duplicateResult{
			isDuplicate: true,
			matchID:     matches[0].ID,
			similarity:  matches[0].Similarity,
		}
	}
	return duplicateResult{}
}

// SearchText builds the text embedded for similarity comparison: title,
// description, and the leading slice of the extracted content. Storage and
// duplicate lookup must embed this same composition so stored and query
// vectors compare like-for-like.
func SearchText(extraction *extract.Result, analysis *analyze.Result) string {
	content := llm.Truncate(extraction.ExtractedText, searchTextChars)

	var parts []string
	for _, s := range []string{analysis.Title, analysis.Description, content} {
		if strings.TrimSpace(s) != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}
