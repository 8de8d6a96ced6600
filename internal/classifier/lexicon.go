// Package classifier decides whether a caller's question concerns district
// policy or compliance. Classification is a case-insensitive substring match
// against a fixed lexicon; there is no scoring and no failure mode.
package classifier

import "strings"

// LexiconVersion identifies the revision of the policy lexicon. Bump it
// whenever a term is added or removed so audit reviewers can correlate
// classification changes with content decisions.
const LexiconVersion = "2024-09"

// lexicon holds lowercase terms; order is irrelevant to the result but kept
// stable for review diffs.
var lexicon = []string{
	"policy",
	"policies",
	"procedure",
	"protocol",
	"handbook",
	"guideline",
	"regulation",
	"compliance",
	"attendance",
	"absence",
	"truancy",
	"tardy",
	"discipline",
	"suspension",
	"expulsion",
	"code of conduct",
	"dress code",
	"safety",
	"emergency",
	"lockdown",
	"evacuation",
	"grading",
	"assessment",
	"ferpa",
	"iep",
	"504 plan",
	"special education",
	"accommodation",
	"bullying",
	"harassment",
	"title ix",
	"equity",
	"confidential",
	"privacy",
	"mandated report",
	"child abuse",
	"field trip",
	"permission slip",
}

// Result is the outcome of classifying a message.
type Result struct {
	IsPolicyQuery bool `json:"is_policy_query"`
}

// Classify reports whether message mentions any lexicon term, ignoring case.
// The empty string is never a policy query.
func Classify(message string) Result {
	lower := strings.ToLower(message)
	for _, term := range lexicon {
		if strings.Contains(lower, term) {
			return Result{IsPolicyQuery: true}
		}
	}
	return Result{}
}

// MatchedTerms returns every lexicon term found in message, in lexicon order.
// Logged at debug level by the orchestrator; Classify is the decision.
func MatchedTerms(message string) []string {
	lower := strings.ToLower(message)
	var matched []string
	for _, term := range lexicon {
		if strings.Contains(lower, term) {
			matched = append(matched, term)
		}
	}
	return matched
}
