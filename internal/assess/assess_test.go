package assess

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"math/rand"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/merchantlab/curator/internal/analyze"
	"github.com/merchantlab/curator/internal/extract"
	"github.com/merchantlab/curator/internal/llm"
)

// mockProvider implements llm.Provider for testing.
type mockProvider struct {
	response  string
	err       error
	calls     int
	gotPrompt string
}

func (m *mockProvider) Generate(_ context.Context, req llm.Request) (string, error) {
	m.calls++
	m.gotPrompt = req.Prompt
	return m.response, m.err
}

func (m *mockProvider) IsConfigured() bool { return true }

// mockEmbedder implements llm.Embedder for testing.
type mockEmbedder struct {
	vector []float64
	err    error
	calls  int
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) ([]float64, error) {
	m.calls++
	return m.vector, m.err
}

// mockSearcher implements SimilaritySearcher for testing.
type mockSearcher struct {
	matches []Match
	err     error
	calls   int

	gotPlatform string
	gotGoal     string
}

func (m *mockSearcher) Search(_ context.Context, _ []float64, _ float64, _ int, platform, goal string) ([]Match, error) {
	m.calls++
	m.gotPlatform = platform
	m.gotGoal = goal
	return m.matches, m.err
}

func scoresJSON(t *testing.T, s Scores) string {
	t.Helper()
	data, err := json.Marshal(map[string]any{
		"relevance":     s.Relevance,
		"actionability": s.Actionability,
		"accuracy":      s.Accuracy,
		"completeness":  s.Completeness,
		"uniqueness":    s.Uniqueness,
		"reasoning":     "test scores",
	})
	if err != nil {
		t.Fatalf("marshaling scores: %v", err)
	}
	return string(data)
}

func testExtraction(text string) *extract.Result {
	return &extract.Result{
		ExtractedText:    text,
		FileFormat:       extract.FormatText,
		WordCount:        len(text) / 5,
		ExtractionMethod: extract.MethodDirect,
		ConfidenceScore:  1.0,
	}
}

func testAnalysis() *analyze.Result {
	return &analyze.Result{
		Title:       "5 Tips",
		Platform:    "facebook",
		Category:    "advertising",
		Goal:        "conversion",
		Description: "Quick wins for ad campaigns",
		KeyInsights: []string{"a", "b", "c"},
		Tags:        []string{"ads", "tips", "facebook", "budget", "creative", "cro", "roas", "testing"},
	}
}

func TestWeightsSumToOne(t *testing.T) {
	sum := weightRelevance + weightActionability + weightAccuracy + weightCompleteness + weightUniqueness
	if sum != 1.0 {
		t.Errorf("criterion weights must sum to exactly 1.0, got %v", sum)
	}
}

func TestOverallScoreWeightedSum(t *testing.T) {
	s := Scores{Relevance: 9, Actionability: 8, Accuracy: 9, Completeness: 7, Uniqueness: 8}
	want := 0.25*9 + 0.25*8 + 0.20*9 + 0.15*7 + 0.15*8
	if math.Abs(s.Overall()-want) > 1e-9 {
		t.Errorf("expected overall %v, got %v", want, s.Overall())
	}
	if math.Abs(s.Overall()-8.15) > 1e-9 {
		t.Errorf("expected overall 8.15, got %v", s.Overall())
	}
}

// is_approved must hold exactly when the score passes, no duplicate was
// found, and no critical issue exists, for arbitrary combinations.
func TestApprovalDerivation(t *testing.T) {
	a := New(nil, nil, nil, DefaultConfig())
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 500; i++ {
		scores := Scores{
			Relevance:     float64(rng.Intn(11)),
			Actionability: float64(rng.Intn(11)),
			Accuracy:      float64(rng.Intn(11)),
			Completeness:  float64(rng.Intn(11)),
			Uniqueness:    float64(rng.Intn(11)),
		}
		dup := duplicateResult{}
		if rng.Intn(2) == 1 {
			dup = duplicateResult{isDuplicate: true, matchID: "x", similarity: 0.99}
		}

		qa := a.assemble(testExtraction("some content"), testAnalysis(), scores, dup)

		critical := false
		for _, issue := range qa.Issues {
			if issue.Severity == SeverityCritical {
				critical = true
			}
		}
		want := qa.OverallScore >= a.cfg.MinQualityScore && !dup.isDuplicate && !critical
		if qa.IsApproved != want {
			t.Fatalf("approval mismatch: scores=%+v dup=%v critical=%v approved=%v",
				scores, dup.isDuplicate, critical, qa.IsApproved)
		}
		if qa.OverallScore < 0 || qa.OverallScore > 10 {
			t.Fatalf("overall score out of range: %v", qa.OverallScore)
		}
	}
}

func TestBypassSkipsAllNetworkCalls(t *testing.T) {
	provider := &mockProvider{response: "should never be used"}
	embedder := &mockEmbedder{vector: []float64{1, 0}}
	searcher := &mockSearcher{}

	a := New(provider, embedder, searcher, DefaultConfig())
	qa, err := a.Assess(context.Background(), testExtraction("anything"), testAnalysis(),
		Options{SkipQualityCheck: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if provider.calls != 0 || embedder.calls != 0 || searcher.calls != 0 {
		t.Errorf("bypass must not call external services (provider=%d embedder=%d searcher=%d)",
			provider.calls, embedder.calls, searcher.calls)
	}
	if !qa.IsApproved {
		t.Error("bypass assessment must be approved")
	}
	if qa.OverallScore != 8.0 {
		t.Errorf("expected fixed score 8.0, got %v", qa.OverallScore)
	}
	if qa.Scores.Relevance != 8 || qa.Scores.Uniqueness != 8 {
		t.Errorf("expected all sub-scores 8, got %+v", qa.Scores)
	}
	if len(qa.Recommendations) != 1 {
		t.Errorf("expected one bypass recommendation, got %v", qa.Recommendations)
	}
}

func TestDuplicateBlocksApprovalDespiteGoodScore(t *testing.T) {
	scores := Scores{Relevance: 9, Actionability: 8, Accuracy: 9, Completeness: 7, Uniqueness: 8}
	provider := &mockProvider{response: scoresJSON(t, scores)}
	embedder := &mockEmbedder{vector: []float64{1, 0}}
	searcher := &mockSearcher{matches: []Match{{ID: "entry-123", Similarity: 0.97}}}

	a := New(provider, embedder, searcher, DefaultConfig())
	qa, err := a.Assess(context.Background(), testExtraction("Tip one... Tip two..."), testAnalysis(), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if math.Abs(qa.OverallScore-8.15) > 1e-9 {
		t.Errorf("expected overall 8.15, got %v", qa.OverallScore)
	}
	if !qa.IsDuplicate {
		t.Error("expected duplicate at similarity 0.97")
	}
	if qa.DuplicateOf != "entry-123" {
		t.Errorf("expected duplicate_of entry-123, got %q", qa.DuplicateOf)
	}
	if qa.IsApproved {
		t.Error("duplicate must block approval despite a passing score")
	}

	var dupIssue *Issue
	for i := range qa.Issues {
		if qa.Issues[i].Type == IssueDuplicate {
			dupIssue = &qa.Issues[i]
		}
	}
	if dupIssue == nil || dupIssue.Severity != SeverityCritical {
		t.Error("expected critical duplicate issue")
	}
}

func TestBelowDuplicateThresholdApproves(t *testing.T) {
	scores := Scores{Relevance: 9, Actionability: 8, Accuracy: 9, Completeness: 7, Uniqueness: 8}
	provider := &mockProvider{response: scoresJSON(t, scores)}
	embedder := &mockEmbedder{vector: []float64{1, 0}}
	searcher := &mockSearcher{matches: []Match{{ID: "entry-123", Similarity: 0.6}}}

	a := New(provider, embedder, searcher, DefaultConfig())
	qa, err := a.Assess(context.Background(), testExtraction("Tip one... Tip two..."), testAnalysis(), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if qa.IsDuplicate {
		t.Error("similarity 0.6 must not be a duplicate at threshold 0.95")
	}
	if !qa.IsApproved {
		t.Errorf("expected approval, got issues %v", qa.Issues)
	}
}

func TestDuplicateSearchFailureIsAbsorbed(t *testing.T) {
	scores := Scores{Relevance: 8, Actionability: 8, Accuracy: 8, Completeness: 8, Uniqueness: 8}
	provider := &mockProvider{response: scoresJSON(t, scores)}
	embedder := &mockEmbedder{vector: []float64{1, 0}}
	searcher := &mockSearcher{err: errors.New("search backend down")}

	a := New(provider, embedder, searcher, DefaultConfig())
	qa, err := a.Assess(context.Background(), testExtraction("content"), testAnalysis(), Options{})
	if err != nil {
		t.Fatalf("search failure must not surface to caller, got %v", err)
	}
	if qa.IsDuplicate {
		t.Error("failed search must report no duplicate")
	}
	if !qa.IsApproved {
		t.Errorf("expected approval, got issues %v", qa.Issues)
	}
}

func TestEmbeddingFailureIsAbsorbed(t *testing.T) {
	scores := Scores{Relevance: 8, Actionability: 8, Accuracy: 8, Completeness: 8, Uniqueness: 8}
	provider := &mockProvider{response: scoresJSON(t, scores)}
	embedder := &mockEmbedder{err: errors.New("embed service down")}
	searcher := &mockSearcher{}

	a := New(provider, embedder, searcher, DefaultConfig())
	qa, err := a.Assess(context.Background(), testExtraction("content"), testAnalysis(), Options{})
	if err != nil {
		t.Fatalf("embedding failure must not surface to caller, got %v", err)
	}
	if qa.IsDuplicate {
		t.Error("failed embedding must report no duplicate")
	}
	if searcher.calls != 0 {
		t.Error("search must not run without a vector")
	}
}

func TestSkipDuplicateCheckSkipsSearch(t *testing.T) {
	scores := Scores{Relevance: 8, Actionability: 8, Accuracy: 8, Completeness: 8, Uniqueness: 8}
	provider := &mockProvider{response: scoresJSON(t, scores)}
	embedder := &mockEmbedder{vector: []float64{1, 0}}
	searcher := &mockSearcher{matches: []Match{{ID: "x", Similarity: 0.99}}}

	a := New(provider, embedder, searcher, DefaultConfig())
	qa, err := a.Assess(context.Background(), testExtraction("content"), testAnalysis(),
		Options{SkipDuplicateCheck: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if embedder.calls != 0 || searcher.calls != 0 {
		t.Error("skip_duplicate_check must not touch the embedder or searcher")
	}
	if qa.IsDuplicate {
		t.Error("expected no duplicate when the check is skipped")
	}
}

func TestMultiPlatformDropsFilter(t *testing.T) {
	scores := Scores{Relevance: 8, Actionability: 8, Accuracy: 8, Completeness: 8, Uniqueness: 8}
	provider := &mockProvider{response: scoresJSON(t, scores)}
	embedder := &mockEmbedder{vector: []float64{1, 0}}
	searcher := &mockSearcher{}

	analysis := testAnalysis()
	analysis.Platform = "multi"

	a := New(provider, embedder, searcher, DefaultConfig())
	if _, err := a.Assess(context.Background(), testExtraction("content"), analysis, Options{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if searcher.gotPlatform != "" {
		t.Errorf("platform filter must be dropped for multi, got %q", searcher.gotPlatform)
	}
	if searcher.gotGoal != "conversion" {
		t.Errorf("expected goal filter, got %q", searcher.gotGoal)
	}
}

func TestScoringMissingFieldsDefaultToZero(t *testing.T) {
	provider := &mockProvider{response: `{"relevance": 9, "actionability": 8}`}
	a := New(provider, nil, nil, DefaultConfig())

	qa, err := a.Assess(context.Background(), testExtraction("content"), testAnalysis(),
		Options{SkipDuplicateCheck: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if qa.Scores.Accuracy != 0 || qa.Scores.Completeness != 0 || qa.Scores.Uniqueness != 0 {
		t.Errorf("missing fields must default to 0, got %+v", qa.Scores)
	}
	if qa.Scores.Relevance != 9 {
		t.Errorf("expected relevance 9, got %v", qa.Scores.Relevance)
	}
}

func TestScoringUnparseableResponseFails(t *testing.T) {
	provider := &mockProvider{response: "I cannot score this content"}
	a := New(provider, nil, nil, DefaultConfig())

	_, err := a.Assess(context.Background(), testExtraction("content"), testAnalysis(),
		Options{SkipDuplicateCheck: true})
	if err == nil {
		t.Fatal("expected error for unparseable scoring response")
	}
}

// Truncating long content for the scoring prompt must never split a
// multi-byte rune.
func TestScoringPromptStaysValidUTF8(t *testing.T) {
	scores := Scores{Relevance: 8, Actionability: 8, Accuracy: 8, Completeness: 8, Uniqueness: 8}
	provider := &mockProvider{response: scoresJSON(t, scores)}
	a := New(provider, nil, nil, DefaultConfig())

	// A leading ASCII byte shifts the two-byte runes so the byte limit
	// lands mid-rune.
	content := "a" + strings.Repeat("é", maxScoredChars)
	_, err := a.Assess(context.Background(), testExtraction(content), testAnalysis(),
		Options{SkipDuplicateCheck: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !utf8.ValidString(provider.gotPrompt) {
		t.Error("scoring prompt contains an invalid UTF-8 sequence")
	}
}

func TestSearchTextSharesCompositionWithStorage(t *testing.T) {
	extraction := testExtraction(strings.Repeat("x", 2*searchTextChars))
	analysis := testAnalysis()

	text := SearchText(extraction, analysis)
	if !strings.HasPrefix(text, analysis.Title+"\n"+analysis.Description+"\n") {
		t.Errorf("expected title and description first, got %q", text[:80])
	}
	// Content is capped at the search-text limit.
	wantLen := len(analysis.Title) + 1 + len(analysis.Description) + 1 + searchTextChars
	if len(text) != wantLen {
		t.Errorf("expected %d bytes, got %d", wantLen, len(text))
	}
}

func TestScoringProviderFailureFails(t *testing.T) {
	provider := &mockProvider{err: errors.New("model offline")}
	a := New(provider, nil, nil, DefaultConfig())

	_, err := a.Assess(context.Background(), testExtraction("content"), testAnalysis(),
		Options{SkipDuplicateCheck: true})
	if err == nil {
		t.Fatal("expected error when the scoring provider fails")
	}
}
