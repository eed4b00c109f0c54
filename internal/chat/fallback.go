package chat

import (
	"regexp"
	"strings"

	"github.com/kalambet/folio/internal/retrieval"
)

// The checks below are string heuristics kept for compatibility with the
// widget's observed behavior. Do not grow them into a classifier.

// dontKnowPattern matches a normalized answer containing a plain
// "I don't know" anywhere, e.g. "sorry i dont know".
var dontKnowPattern = regexp.MustCompile(`\bi\s+(dont|do\s+not)\s+know\b`)

// hedges count only when they are the entire answer; "not sure about x, but
// y" still carries y.
var hedges = []string{
	"dont know",
	"i am not sure",
	"im not sure",
	"not sure",
	"unknown",
}

// isDontKnow reports whether answer is empty or an "I don't know"
// equivalent, ignoring case and punctuation.
func isDontKnow(answer string) bool {
	n := Normalize(answer)
	if n == "" {
		return true
	}
	if dontKnowPattern.MatchString(n) {
		return true
	}
	for _, h := range hedges {
		if n == h {
			return true
		}
	}
	return false
}

var nameQuestion = regexp.MustCompile(`(?i)\bname\b`)

// fallbackAnswer picks the reply for an empty or "I don't know" answer: the
// canonical name when the query asks for a name and a ranked document
// mentions it, otherwise NoInfoMessage.
func fallbackAnswer(query, canonicalName string, ranked []retrieval.ScoredDocument) string {
	if nameQuestion.MatchString(query) && mentionsName(ranked, canonicalName) {
		return canonicalName
	}
	return NoInfoMessage
}

func mentionsName(docs []retrieval.ScoredDocument, canonicalName string) bool {
	name := strings.ToLower(strings.TrimRight(strings.TrimSpace(canonicalName), "."))
	if name == "" {
		return false
	}
	for _, d := range docs {
		if strings.Contains(strings.ToLower(d.Text), name) || strings.Contains(strings.ToLower(d.Title), name) {
			return true
		}
	}
	return false
}
