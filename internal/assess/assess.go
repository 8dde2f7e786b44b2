// Package assess scores extracted content against weighted quality criteria,
// checks for near-duplicates in the knowledge store, classifies issues, and
// derives the approval decision.
package assess

import (
	"context"
	"fmt"

	"github.com/merchantlab/curator/internal/analyze"
	"github.com/merchantlab/curator/internal/extract"
	"github.com/merchantlab/curator/internal/llm"
)

const bypassScore = 8.0

// Assessor produces quality assessments for candidate entries.
type Assessor struct {
	provider llm.Provider
	embedder llm.Embedder
	search   SimilaritySearcher
	cfg      Config
}

// New creates an Assessor. Zero-valued thresholds fall back to the defaults.
func New(provider llm.Provider, embedder llm.Embedder, search SimilaritySearcher, cfg Config) *Assessor {
	def := DefaultConfig()
	if cfg.MinQualityScore <= 0 {
		cfg.MinQualityScore = def.MinQualityScore
	}
	if cfg.DuplicateThreshold <= 0 {
		cfg.DuplicateThreshold = def.DuplicateThreshold
	}
	if cfg.SearchThreshold <= 0 {
		cfg.SearchThreshold = def.SearchThreshold
	}
	return &Assessor{provider: provider, embedder: embedder, search: search, cfg: cfg}
}

// Assess produces one QualityAssessment. Criterion scoring and the
// duplicate check are independent, so they run concurrently and join before
// the assessment is assembled. A scoring failure aborts the attempt; a
// duplicate-search failure is absorbed (fail-open).
func (a *Assessor) Assess(ctx context.Context, extraction *extract.Result, analysis *analyze.Result, opts Options) (*QualityAssessment, error) {
	if opts.SkipQualityCheck {
		return bypassAssessment(), nil
	}

	type scoreOut struct {
		scores Scores
		err    error
	}

	scoreCh := make(chan scoreOut, 1)
	dupCh := make(chan duplicateResult, 1)

	go func() {
		scores, err := a.scoreCriteria(ctx, extraction, analysis)
		scoreCh <- scoreOut{scores: scores, err: err}
	}()
	go func() {
		dupCh <- a.checkDuplicate(ctx, extraction, analysis, opts.SkipDuplicateCheck)
	}()

	scored := <-scoreCh
	dup := <-dupCh

	if scored.err != nil {
		return nil, fmt.Errorf("quality scoring: %w", scored.err)
	}

	return a.assemble(extraction, analysis, scored.scores, dup), nil
}

// assemble combines the joined scoring and duplicate results into the final
// assessment. Approval is purely derived, never set elsewhere.
func (a *Assessor) assemble(extraction *extract.Result, analysis *analyze.Result, scores Scores, dup duplicateResult) *QualityAssessment {
	overall := scores.Overall()
	issues := a.classifyIssues(overall, scores, dup, extraction.ExtractedText)

	qa := &QualityAssessment{
		OverallScore:    overall,
		Scores:          scores,
		Issues:          issues,
		Recommendations: buildRecommendations(scores, issues, analysis),
		IsDuplicate:     dup.isDuplicate,
	}
	if dup.isDuplicate {
		qa.DuplicateOf = dup.matchID
		qa.DuplicateSimilarity = dup.similarity
	}

	qa.IsApproved = overall >= a.cfg.MinQualityScore &&
		!dup.isDuplicate &&
		!hasCritical(issues)

	return qa
}

// bypassAssessment is the fixed passing result for skip_quality_check. It
// must not touch any external service.
func bypassAssessment() *QualityAssessment {
	return &QualityAssessment{
		OverallScore: bypassScore,
		Scores: Scores{
			Relevance:     bypassScore,
			Actionability: bypassScore,
			Accuracy:      bypassScore,
			Completeness:  bypassScore,
			Uniqueness:    bypassScore,
		},
		Recommendations: []string{"Quality check was bypassed for this entry"},
		IsApproved:      true,
	}
}

func hasCritical(issues []Issue) bool {
	for _, issue := range issues {
		if issue.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

func hasIssueType(issues []Issue, t IssueType) bool {
	for _, issue := range issues {
		if issue.Type == t {
			return true
		}
	}
	return false
}
