package assess

import "context"

// Severity of a classified issue. Critical issues block approval.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
)

// IssueType classifies what is wrong with a candidate entry.
type IssueType string

const (
	IssueIncomplete  IssueType = "incomplete"
	IssueDuplicate   IssueType = "duplicate"
	IssueOutdated    IssueType = "outdated"
	IssuePromotional IssueType = "promotional"
)

// Issue is one classified problem found during assessment.
type Issue struct {
	Severity Severity  `json:"severity"`
	Type     IssueType `json:"type"`
	Message  string    `json:"message"`
}

// Scores holds the five criterion sub-scores, each in [0,10].
type Scores struct {
	Relevance     float64 `json:"relevance"`
	Actionability float64 `json:"actionability"`
	Accuracy      float64 `json:"accuracy"`
	Completeness  float64 `json:"completeness"`
	Uniqueness    float64 `json:"uniqueness"`
}

// Criterion weights. They must sum to exactly 1.0; a test enforces this.
const (
	weightRelevance     = 0.25
	weightActionability = 0.25
	weightAccuracy      = 0.20
	weightCompleteness  = 0.15
	weightUniqueness    = 0.15
)

// Overall computes the weighted overall score from the sub-scores.
func (s Scores) Overall() float64 {
	return weightRelevance*s.Relevance +
		weightActionability*s.Actionability +
		weightAccuracy*s.Accuracy +
		weightCompleteness*s.Completeness +
		weightUniqueness*s.Uniqueness
}

// QualityAssessment is the final verdict for one ingestion attempt.
type QualityAssessment struct {
	OverallScore        float64  `json:"overall_score"`
	Scores              Scores   `json:"scores"`
	Issues              []Issue  `json:"issues"`
	Recommendations     []string `json:"recommendations"`
	IsApproved          bool     `json:"is_approved"`
	IsDuplicate         bool     `json:"is_duplicate"`
	DuplicateOf         string   `json:"duplicate_of,omitempty"`
	DuplicateSimilarity float64  `json:"duplicate_similarity,omitempty"`
}

// Match is one hit from the similarity search backend, by descending
// similarity.
type Match struct {
	ID         string
	Similarity float64
}

// SimilaritySearcher finds existing entries near a query vector. An empty
// platform or goal filter matches everything.
type SimilaritySearcher interface {
	Search(ctx context.Context, vector []float64, threshold float64, limit int, platform, goal string) ([]Match, error)
}

// Config holds the assessment thresholds. SearchThreshold controls
// retrieval breadth for the duplicate search; DuplicateThreshold is the
// decision cutoff. They serve different purposes and stay separate.
type Config struct {
	MinQualityScore    float64
	DuplicateThreshold float64
	SearchThreshold    float64
}

// DefaultConfig returns the documented default thresholds.
func DefaultConfig() Config {
	return Config{
		MinQualityScore:    6.0,
		DuplicateThreshold: 0.95,
		SearchThreshold:    0.8,
	}
}

// Options carries the per-ingestion bypass flags.
type Options struct {
	SkipQualityCheck   bool
	SkipDuplicateCheck bool
}
