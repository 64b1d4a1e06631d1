package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"policy-rag/internal/models"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  models.QueryIntent
	}{
		{"plain greeting", "Hello!", models.IntentConversational},
		{"casual greeting", "hey there", models.IntentConversational},
		{"thanks", "thanks, that helps", models.IntentConversational},
		{"empty", "   ", models.IntentConversational},
		{"greeting then question", "Hi, what is the deductible on this policy?", models.IntentLookup},
		{"fact lookup", "What is the bodily injury limit?", models.IntentLookup},
		{"keyword lookup", "effective date of the policy", models.IntentLookup},
		{"comparison", "Compare the Progressive and Travelers quotes", models.IntentAnalysis},
		{"summary", "Summarize the coverage in this document", models.IntentAnalysis},
		{"difference", "What is the difference between the two deductibles?", models.IntentAnalysis},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.query))
		})
	}
}
