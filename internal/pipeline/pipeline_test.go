package pipeline

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/merchantlab/curator/internal/analyze"
	"github.com/merchantlab/curator/internal/assess"
	"github.com/merchantlab/curator/internal/config"
	"github.com/merchantlab/curator/internal/extract"
	"github.com/merchantlab/curator/internal/llm"
	"github.com/merchantlab/curator/internal/store"
)

const testAnalysisResponse = `{
	"title": "Lookalike audiences for store owners",
	"platform": "facebook",
	"category": "targeting",
	"goal": "conversion",
	"description": "Using seed audiences to find new buyers",
	"key_insights": ["seed from purchasers", "start at 1%", "exclude existing customers"],
	"tags": ["facebook", "audiences", "lookalike", "targeting", "ads", "acquisition", "seed", "scaling"]
}`

const goodScoresResponse = `{"relevance": 9, "actionability": 8, "accuracy": 9, "completeness": 8, "uniqueness": 7, "reasoning": "solid"}`

const poorScoresResponse = `{"relevance": 3, "actionability": 2, "accuracy": 4, "completeness": 3, "uniqueness": 2, "reasoning": "thin"}`

// routingProvider answers analysis and scoring requests differently, keyed
// on the system prompt.
type routingProvider struct {
	scoresResponse string
}

func (p *routingProvider) Generate(_ context.Context, req llm.Request) (string, error) {
	if strings.Contains(req.System, "Score the content") {
		return p.scoresResponse, nil
	}
	return testAnalysisResponse, nil
}

func (p *routingProvider) IsConfigured() bool { return true }

type fixedEmbedder struct {
	vector []float64
	texts  []string
}

func (e *fixedEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	e.texts = append(e.texts, text)
	return e.vector, nil
}

func newTestPipeline(t *testing.T, scoresResponse string) (*Pipeline, *store.DB) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "curator.db"))
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	provider := &routingProvider{scoresResponse: scoresResponse}
	embedder := &fixedEmbedder{vector: []float64{0.6, 0.8}}

	return &Pipeline{
		cfg:       config.Default(),
		db:        db,
		extractor: extract.New(nil, nil, 5*time.Second, "curator-test"),
		analyzer:  analyze.New(provider),
		assessor: assess.New(provider, embedder, &storeSearcher{db: db},
			assess.DefaultConfig()),
		embedder: embedder,
	}, db
}

func textContext(text string) AgentContext {
	return AgentContext{
		Source: extract.SourceText,
		Text: &extract.TextInput{
			Text:  text,
			Title: "Lookalike audiences",
		},
	}
}

func TestIngestApprovedTextEndToEnd(t *testing.T) {
	p, db := newTestPipeline(t, goodScoresResponse)

	outcome, err := p.Ingest(context.Background(),
		textContext("Seed lookalike audiences from your best purchasers and start narrow."))
	if err != nil {
		t.Fatalf("ingestion failed: %v", err)
	}

	if !outcome.Stored || outcome.EntryID == "" {
		t.Fatalf("expected stored entry, got stored=%v id=%q", outcome.Stored, outcome.EntryID)
	}
	if !outcome.Assessment.IsApproved {
		t.Errorf("expected approval, got issues %v", outcome.Assessment.Issues)
	}
	if outcome.Analysis.Platform != "facebook" {
		t.Errorf("expected platform facebook, got %q", outcome.Analysis.Platform)
	}

	entry, err := db.GetEntry(outcome.EntryID)
	if err != nil || entry == nil {
		t.Fatalf("stored entry not retrievable: %v", err)
	}
	if entry.Title != "Lookalike audiences for store owners" {
		t.Errorf("unexpected stored title %q", entry.Title)
	}
	if len(entry.Embedding) != 2 {
		t.Errorf("expected stored embedding, got %v", entry.Embedding)
	}
	if entry.SourceType != "text" || entry.ExtractionMethod != "direct" {
		t.Errorf("unexpected provenance: %q/%q", entry.SourceType, entry.ExtractionMethod)
	}
	if entry.ConfidenceScore != 1.0 {
		t.Errorf("direct text must carry confidence 1.0, got %v", entry.ConfidenceScore)
	}
}

func TestIngestRejectedIsNotStored(t *testing.T) {
	p, db := newTestPipeline(t, poorScoresResponse)

	outcome, err := p.Ingest(context.Background(), textContext("Buy stuff."))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if outcome.Stored || outcome.EntryID != "" {
		t.Errorf("rejected entry must not be stored, got stored=%v id=%q", outcome.Stored, outcome.EntryID)
	}
	if outcome.Assessment.IsApproved {
		t.Error("expected rejection")
	}

	n, err := db.CountEntries()
	if err != nil {
		t.Fatalf("counting entries: %v", err)
	}
	if n != 0 {
		t.Errorf("expected empty store, got %d entries", n)
	}
}

func TestIngestDetectsDuplicateOfStoredEntry(t *testing.T) {
	p, db := newTestPipeline(t, goodScoresResponse)

	first, err := p.Ingest(context.Background(),
		textContext("Seed lookalike audiences from your best purchasers."))
	if err != nil {
		t.Fatalf("first ingestion failed: %v", err)
	}
	if !first.Stored {
		t.Fatal("first ingestion must be stored")
	}

	second, err := p.Ingest(context.Background(),
		textContext("Seed lookalike audiences from your best purchasers."))
	if err != nil {
		t.Fatalf("second ingestion failed: %v", err)
	}

	if !second.Assessment.IsDuplicate {
		t.Error("identical embedding must be detected as a duplicate")
	}
	if second.Assessment.DuplicateOf != first.EntryID {
		t.Errorf("expected duplicate_of %q, got %q", first.EntryID, second.Assessment.DuplicateOf)
	}
	if second.Stored {
		t.Error("duplicate must not be stored")
	}

	n, _ := db.CountEntries()
	if n != 1 {
		t.Errorf("expected 1 stored entry, got %d", n)
	}
}

// The vector stored with an approved entry must come from the same text
// composition the duplicate check embeds, so re-ingested content compares
// like-for-like.
func TestStoredVectorUsesDuplicateSearchText(t *testing.T) {
	db, err := store.Open(filepath.Join(t.TempDir(), "curator.db"))
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	provider := &routingProvider{scoresResponse: goodScoresResponse}
	embedder := &fixedEmbedder{vector: []float64{0.6, 0.8}}
	p := &Pipeline{
		cfg:       config.Default(),
		db:        db,
		extractor: extract.New(nil, nil, 5*time.Second, "curator-test"),
		analyzer:  analyze.New(provider),
		assessor:  assess.New(provider, embedder, &storeSearcher{db: db}, assess.DefaultConfig()),
		embedder:  embedder,
	}

	content := "Seed lookalike audiences from your best purchasers and start narrow."
	outcome, err := p.Ingest(context.Background(), textContext(content))
	if err != nil {
		t.Fatalf("ingestion failed: %v", err)
	}
	if !outcome.Stored {
		t.Fatal("expected stored entry")
	}

	if len(embedder.texts) != 2 {
		t.Fatalf("expected duplicate-query and storage embeddings, got %d calls", len(embedder.texts))
	}
	if embedder.texts[0] != embedder.texts[1] {
		t.Errorf("storage embedded %q, duplicate query embedded %q", embedder.texts[1], embedder.texts[0])
	}
	if !strings.Contains(embedder.texts[1], content) {
		t.Error("embedded search text must include the extracted content")
	}
}

func TestIngestSkipQualityCheckStores(t *testing.T) {
	p, db := newTestPipeline(t, poorScoresResponse)

	ac := textContext("Anything goes when the check is bypassed.")
	ac.SkipQualityCheck = true

	outcome, err := p.Ingest(context.Background(), ac)
	if err != nil {
		t.Fatalf("ingestion failed: %v", err)
	}
	if !outcome.Stored {
		t.Fatal("bypassed ingestion must be stored")
	}
	if outcome.Assessment.OverallScore != 8.0 {
		t.Errorf("expected fixed bypass score 8.0, got %v", outcome.Assessment.OverallScore)
	}

	entry, err := db.GetEntry(outcome.EntryID)
	if err != nil || entry == nil {
		t.Fatalf("stored entry not retrievable: %v", err)
	}
	if entry.QualityScore != 8.0 {
		t.Errorf("expected stored quality score 8.0, got %v", entry.QualityScore)
	}
}

func TestIngestEmptyExtractionFails(t *testing.T) {
	p, _ := newTestPipeline(t, goodScoresResponse)

	ac := AgentContext{
		Source: extract.SourceText,
		Text:   &extract.TextInput{Text: "   \n\t  "},
	}
	_, err := p.Ingest(context.Background(), ac)
	if err == nil {
		t.Fatal("expected error for whitespace-only text")
	}
	if !strings.Contains(err.Error(), "no text") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestIngestRecordsLog(t *testing.T) {
	p, db := newTestPipeline(t, goodScoresResponse)

	if _, err := p.Ingest(context.Background(), textContext("Seed lookalikes well.")); err != nil {
		t.Fatalf("ingestion failed: %v", err)
	}

	rejecting, _ := newTestPipeline(t, poorScoresResponse)
	if _, err := rejecting.Ingest(context.Background(), textContext("Thin content.")); err != nil {
		t.Fatalf("ingestion failed: %v", err)
	}

	n, err := db.CountIngestions()
	if err != nil {
		t.Fatalf("counting log rows: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 log row in this store, got %d", n)
	}
}
