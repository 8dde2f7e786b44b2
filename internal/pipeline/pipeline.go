// Package pipeline orchestrates a single ingestion attempt: extraction,
// analysis, quality assessment, and persistence of approved entries.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/merchantlab/curator/internal/analyze"
	"github.com/merchantlab/curator/internal/assess"
	"github.com/merchantlab/curator/internal/config"
	"github.com/merchantlab/curator/internal/extract"
	"github.com/merchantlab/curator/internal/llm"
	"github.com/merchantlab/curator/internal/store"
)

// AgentContext is the input envelope for one ingestion attempt.
type AgentContext struct {
	Source extract.SourceType
	File   *extract.FileInput
	URL    string
	Text   *extract.TextInput

	SkipQualityCheck   bool
	SkipDuplicateCheck bool
}

// Outcome is the all-or-nothing result of one ingestion attempt.
type Outcome struct {
	EntryID    string
	Stored     bool
	Extraction *extract.Result
	Analysis   *analyze.Result
	Assessment *assess.QualityAssessment
}

// Pipeline runs ingestion attempts against a shared knowledge store.
type Pipeline struct {
	cfg       *config.Config
	db        *store.DB
	extractor *extract.Extractor
	analyzer  *analyze.Analyzer
	assessor  *assess.Assessor
	embedder  llm.Embedder
}

// New wires up a pipeline from configuration.
func New(cfg *config.Config, db *store.DB) *Pipeline {
	l := cfg.LLM
	provider := llm.CreateProvider(l.Provider, l.Model, l.OllamaURL, l.OpenAIModel, l.APIKeyEnv)
	embedder := createEmbedder(l)

	var vision llm.Vision
	if l.VisionModel != "" {
		vision = llm.NewOllamaVision(l.VisionModel, l.OllamaURL)
	}
	var transcriber llm.Transcriber
	if t := llm.NewOpenAITranscriber(l.TranscriptionModel, l.APIKeyEnv); t.IsConfigured() {
		transcriber = t
	}

	extractor := extract.New(transcriber, vision,
		time.Duration(cfg.Extraction.FetchTimeoutSeconds)*time.Second,
		cfg.Extraction.UserAgent)

	assessor := assess.New(provider, embedder, &storeSearcher{db: db}, assess.Config{
		MinQualityScore:    cfg.Quality.MinQualityScore,
		DuplicateThreshold: cfg.Quality.DuplicateThreshold,
		SearchThreshold:    cfg.Quality.SearchThreshold,
	})

	return &Pipeline{
		cfg:       cfg,
		db:        db,
		extractor: extractor,
		analyzer:  analyze.New(provider),
		assessor:  assessor,
		embedder:  embedder,
	}
}

func createEmbedder(l config.LLM) llm.Embedder {
	if strings.ToLower(l.Provider) == "openai" {
		return llm.NewOpenAIEmbedder("", l.APIKeyEnv)
	}
	model := l.EmbeddingModel
	if model == "" {
		model = "nomic-embed-text"
	}
	baseURL := l.OllamaURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return llm.NewOllamaEmbedder(model, baseURL)
}

// Ingest runs one full ingestion attempt. An extraction that yields no text
// is terminal; an approved assessment persists the entry, a rejected one only
// records the attempt.
func (p *Pipeline) Ingest(ctx context.Context, ac AgentContext) (*Outcome, error) {
	log.Printf("Step 1/4: Extracting content (%s)...", ac.Source)
	extraction, err := p.extractor.Extract(ctx, extract.Input{
		Source: ac.Source,
		File:   ac.File,
		URL:    ac.URL,
		Text:   ac.Text,
	})
	if err != nil {
		return nil, fmt.Errorf("extraction: %w", err)
	}
	if strings.TrimSpace(extraction.ExtractedText) == "" {
		return nil, fmt.Errorf("extraction produced no text")
	}

	log.Printf("Step 2/4: Analyzing content (%d words)...", extraction.WordCount)
	analysis, err := p.analyzer.Analyze(ctx, extraction)
	if err != nil {
		return nil, err
	}

	log.Printf("Step 3/4: Assessing quality...")
	assessment, err := p.assessor.Assess(ctx, extraction, analysis, assess.Options{
		SkipQualityCheck:   ac.SkipQualityCheck,
		SkipDuplicateCheck: ac.SkipDuplicateCheck,
	})
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{
		Extraction: extraction,
		Analysis:   analysis,
		Assessment: assessment,
	}

	log.Printf("Step 4/4: Recording outcome (score %.1f, approved=%v)...",
		assessment.OverallScore, assessment.IsApproved)

	if assessment.IsApproved {
		entryID, err := p.storeEntry(ctx, ac, extraction, analysis, assessment)
		if err != nil {
			return nil, err
		}
		outcome.EntryID = entryID
		outcome.Stored = true
	}

	if err := p.db.LogIngestion(outcome.EntryID, string(ac.Source),
		assessment.OverallScore, assessment.IsApproved, assessment.DuplicateOf); err != nil {
		log.Printf("Warning: recording ingestion log failed: %v", err)
	}

	return outcome, nil
}

func (p *Pipeline) storeEntry(ctx context.Context, ac AgentContext, extraction *extract.Result, analysis *analyze.Result, assessment *assess.QualityAssessment) (string, error) {
	var embedding []float64
	if p.embedder != nil {
		// Stored vectors must be built from the same text composition the
		// duplicate check embeds, or re-ingested content would not compare
		// like-for-like.
		searchText := assess.SearchText(extraction, analysis)
		vector, err := p.embedder.Embed(ctx, searchText)
		if err != nil {
			log.Printf("Warning: embedding for storage failed, entry stored without vector: %v", err)
		} else {
			embedding = vector
		}
	}

	entryID, err := p.db.InsertEntry(&store.Entry{
		Title:            analysis.Title,
		Platform:         analysis.Platform,
		Category:         analysis.Category,
		Goal:             analysis.Goal,
		Description:      analysis.Description,
		Content:          extraction.ExtractedText,
		KeyInsights:      analysis.KeyInsights,
		Tags:             analysis.Tags,
		Embedding:        embedding,
		QualityScore:     assessment.OverallScore,
		SourceType:       string(ac.Source),
		ExtractionMethod: string(extraction.ExtractionMethod),
		ConfidenceScore:  extraction.ConfidenceScore,
	})
	if err != nil {
		return "", fmt.Errorf("storing entry: %w", err)
	}
	return entryID, nil
}

// storeSearcher adapts the knowledge store to the assessor's search
// interface.
type storeSearcher struct {
	db *store.DB
}

func (s *storeSearcher) Search(_ context.Context, vector []float64, threshold float64, limit int, platform, goal string) ([]assess.Match, error) {
	hits, err := s.db.SearchSimilar(vector, threshold, limit, platform, goal)
	if err != nil {
		return nil, err
	}
	matches := make([]assess.Match, len(hits))
	for i, h := range hits {
		matches[i] = assess.Match{ID: h.ID, Similarity: h.Similarity}
	}
	return matches, nil
}
