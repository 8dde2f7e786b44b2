package assess

import "github.com/merchantlab/curator/internal/analyze"

const (
	// Sub-scores below this floor each earn one fixed recommendation.
	recommendationFloor = 7.0
	// Analyses thinner than these shapes earn a recommendation.
	minKeyInsights = 3
	minTags        = 8
)

// buildRecommendations assembles the deterministic recommendation list.
// Each unmet condition appends exactly one fixed string, in a fixed order:
// the five sub-scores, the two analysis-shape checks, then the outdated and
// promotional issues.
func buildRecommendations(scores Scores, issues []Issue, analysis *analyze.Result) []string {
	var recs []string

	if scores.Relevance < recommendationFloor {
		recs = append(recs, "Clarify how this practice applies to e-commerce merchants on the target platform")
	}
	if scores.Actionability < recommendationFloor {
		recs = append(recs, "Add concrete steps a merchant can follow to apply this practice")
	}
	if scores.Accuracy < recommendationFloor {
		recs = append(recs, "Verify claims against current platform documentation and behavior")
	}
	if scores.Completeness < recommendationFloor {
		recs = append(recs, "Cover the topic more fully; the content leaves significant gaps")
	}
	if scores.Uniqueness < recommendationFloor {
		recs = append(recs, "Add specifics that go beyond commonly repeated advice")
	}

	if analysis != nil {
		if len(analysis.KeyInsights) < minKeyInsights {
			recs = append(recs, "Extract more key insights; aim for at least three")
		}
		if len(analysis.Tags) < minTags {
			recs = append(recs, "Add more tags to improve discoverability")
		}
	}

	if hasIssueType(issues, IssueOutdated) {
		recs = append(recs, "Update or remove references to outdated platform features")
	}
	if hasIssueType(issues, IssuePromotional) {
		recs = append(recs, "Rewrite promotional passages as neutral, educational guidance")
	}

	return recs
}
