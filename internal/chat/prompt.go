package chat

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kalambet/folio/internal/retrieval"
)

const emptyContext = "(none)"

// SystemPrompt returns the fixed grounding preamble.
func SystemPrompt(canonicalName string) string {
	return "You are an assistant for a personal portfolio site. " +
		"Answer briefly and professionally, grounded ONLY in the provided CONTEXT. " +
		"If the answer is not in the context, say \"I don't know\". " +
		"Never ask the user for personal or contact details. " +
		"If asked for his name, answer exactly: " + canonicalName
}

// BuildContext renders ranked documents as numbered entries separated by a
// blank line:
//
//	[#1] Title (url)
//	text
//
// The " (url)" part is omitted when a document has no URL. No documents
// renders as "(none)".
func BuildContext(docs []retrieval.ScoredDocument) string {
	if len(docs) == 0 {
		return emptyContext
	}
	entries := make([]string, len(docs))
	for i, d := range docs {
		header := fmt.Sprintf("[#%d] %s", i+1, d.Title)
		if d.URL != "" {
			header += " (" + d.URL + ")"
		}
		entries[i] = header + "\n" + d.Text
	}
	return strings.Join(entries, "\n\n")
}

// BuildPrompt assembles the full generation prompt for the raw user query.
func BuildPrompt(canonicalName, context, query string) string {
	if context == "" {
		context = emptyContext
	}
	return SystemPrompt(canonicalName) + "\n\nCONTEXT:\n" + context + "\n\nUSER: " + query + "\nASSISTANT:"
}

var assistantMarker = regexp.MustCompile(`(?is)^.*ASSISTANT:`)

// ExtractAnswer keeps only the text after the last "ASSISTANT:" marker
// (any case), trimmed. Text without a marker is returned trimmed.
func ExtractAnswer(completion string) string {
	return strings.TrimSpace(assistantMarker.ReplaceAllString(completion, ""))
}
