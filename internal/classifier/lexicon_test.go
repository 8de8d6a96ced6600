package classifier

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify_PolicyQueries(t *testing.T) {
	tests := []struct {
		name    string
		message string
	}{
		{"bullying policy", "What is the bullying policy?"},
		{"uppercase acronym", "Can I share grades under FERPA?"},
		{"mixed case", "How do I handle an IeP meeting?"},
		{"multi-word term", "Is there a Dress Code for staff?"},
		{"term inside word", "Our attendance-tracking sheet is broken"},
		{"equity", "equity in grading"},
		{"safety drill", "When is the next safety drill?"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, Classify(tt.message).IsPolicyQuery, tt.message)
		})
	}
}

func TestClassify_GeneralQueries(t *testing.T) {
	tests := []string{
		"",
		"   ",
		"How do I make my lesson plans more engaging?",
		"What's a good warm-up activity for fifth graders?",
		"Tell me a joke",
	}
	for _, msg := range tests {
		assert.False(t, Classify(msg).IsPolicyQuery, "%q should not be a policy query", msg)
	}
}

func TestClassify_EveryLexiconTermAnyCase(t *testing.T) {
	for _, term := range lexicon {
		assert.True(t, Classify(term).IsPolicyQuery, term)
		assert.True(t, Classify(strings.ToUpper(term)).IsPolicyQuery, strings.ToUpper(term))
		assert.True(t, Classify("Question about "+strings.Title(term)+" please").IsPolicyQuery, term) //nolint:staticcheck // Title is fine for ASCII terms
	}
}

func TestLexicon_IsLowercase(t *testing.T) {
	for _, term := range lexicon {
		assert.Equal(t, strings.ToLower(term), term, "lexicon terms must be stored lowercase")
	}
}

func TestMatchedTerms(t *testing.T) {
	assert.Equal(t, []string{"policy", "bullying"}, MatchedTerms("What is the BULLYING policy?"))
	assert.Empty(t, MatchedTerms("hello there"))
}
