package assess

import (
	"fmt"
	"regexp"
)

// Sub-scores below this raise a warning during issue classification.
const lowScoreFloor = 5.0

// A promotional issue needs at least this many distinct pattern hits; one
// or two marketing phrases in otherwise useful content are not a problem.
const promotionalMatchThreshold = 3

// contentHeuristic is a (pattern set, classification) pair evaluated
// uniformly over the extracted text. These are intentionally coarse
// text-pattern checks, not authoritative detectors.
type contentHeuristic struct {
	issueType  IssueType
	message    string
	minMatches int
	patterns   []*regexp.Regexp
}

var contentHeuristics = []contentHeuristic{
	{
		issueType:  IssueOutdated,
		message:    "Content references dated practices or platform features; verify it still applies",
		minMatches: 1,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\b(2018|2019|2020)\b`),
			regexp.MustCompile(`(?i)facebook pixel`),
			regexp.MustCompile(`(?i)20% text rule`),
		},
	},
	{
		issueType:  IssuePromotional,
		message:    "Content reads as promotional rather than educational",
		minMatches: promotionalMatchThreshold,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)buy now`),
			regexp.MustCompile(`(?i)sign up today`),
			regexp.MustCompile(`(?i)limited time offer`),
			regexp.MustCompile(`(?i)contact us`),
			regexp.MustCompile(`(?i)our (service|product|company)`),
		},
	},
}

// classifyIssues runs the ordered, independent issue checks. The checks are
// not mutually exclusive; one entry can collect several issues.
func (a *Assessor) classifyIssues(overall float64, scores Scores, dup duplicateResult, text string) []Issue {
	var issues []Issue

	if overall < a.cfg.MinQualityScore {
		issues = append(issues, Issue{
			Severity: SeverityCritical,
			Type:     IssueIncomplete,
			Message:  fmt.Sprintf("Overall quality score %.1f is below the minimum %.1f", overall, a.cfg.MinQualityScore),
		})
	}

	if dup.isDuplicate {
		issues = append(issues, Issue{
			Severity: SeverityCritical,
			Type:     IssueDuplicate,
			Message:  fmt.Sprintf("Near-duplicate of existing entry %s (similarity %.2f)", dup.matchID, dup.similarity),
		})
	}

	if scores.Relevance < lowScoreFloor {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Type:     IssueIncomplete,
			Message:  "Relevance to merchants is low",
		})
	}

	if scores.Actionability < lowScoreFloor {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Type:     IssueIncomplete,
			Message:  "Content lacks actionable guidance",
		})
	}

	for _, h := range contentHeuristics {
		matched := 0
		for _, p := range h.patterns {
			if p.MatchString(text) {
				matched++
			}
		}
		if matched >= h.minMatches {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Type:     h.issueType,
				Message:  h.message,
			})
		}
	}

	return issues
}
