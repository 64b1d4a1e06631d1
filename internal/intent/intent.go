// Package intent classifies a user utterance into a small closed set of
// query intents. The classification is rule-based and runs once per
// incoming query; the confidence classifier and the prompt assembler both
// consume it.
package intent

import (
	"regexp"
	"strings"

	"policy-rag/internal/models"
)

var (
	greetingRe = regexp.MustCompile(models.GreetingRegex)
	analysisRe = regexp.MustCompile(models.AnalysisRegex)
)

// Classify maps a query to its intent. Short greetings and small talk are
// conversational, analytic phrasing maps to analysis, everything else is
// treated as a lookup for a specific fact.
func Classify(query string) models.QueryIntent {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return models.IntentConversational
	}

	if loc := greetingRe.FindStringIndex(trimmed); loc != nil {
		// a greeting followed by a real question is still a question
		rest := strings.TrimSpace(trimmed[loc[1]:])
		if rest == "" || !containsQuestion(rest) {
			return models.IntentConversational
		}
	}

	if analysisRe.MatchString(trimmed) {
		return models.IntentAnalysis
	}
	return models.IntentLookup
}

func containsQuestion(s string) bool {
	if strings.Contains(s, "?") {
		return true
	}
	lower := strings.ToLower(s)
	for _, w := range []string{"what", "when", "where", "who", "which", "how", "why", "does", "is ", "are ", "can ", "tell me", "show me"} {
		if strings.Contains(lower, w) {
			return true
		}
	}
	// anything with enough substance gets retrieval rather than chit-chat
	return len(strings.Fields(s)) >= 4
}
