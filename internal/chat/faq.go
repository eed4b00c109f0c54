package chat

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FAQ maps normalized questions to canned answers. It is read-only after
// construction.
type FAQ struct {
	answers map[string]string
}

// FAQEntry is one question/answer pair as written in a content file.
type FAQEntry struct {
	Question string `yaml:"question" json:"question"`
	Answer   string `yaml:"answer" json:"answer"`
}

// NewFAQ builds a table from entries. Questions are normalized; later
// entries override earlier ones with the same normalized question.
func NewFAQ(entries []FAQEntry) *FAQ {
	f := &FAQ{answers: make(map[string]string, len(entries))}
	for _, e := range entries {
		q := Normalize(e.Question)
		if q == "" || e.Answer == "" {
			continue
		}
		f.answers[q] = e.Answer
	}
	return f
}

// DefaultFAQ returns the built-in table. Name questions answer with
// canonicalName verbatim.
func DefaultFAQ(canonicalName string) *FAQ {
	return NewFAQ(defaultEntries(canonicalName))
}

func defaultEntries(canonicalName string) []FAQEntry {
	return []FAQEntry{
		{Question: "what is his name", Answer: canonicalName},
		{Question: "whats his name", Answer: canonicalName},
		{Question: "what is your name", Answer: canonicalName},
		{Question: "who is he", Answer: canonicalName},
		{Question: "name", Answer: canonicalName},
	}
}

// Lookup returns the canned answer for q, which may be raw user input.
func (f *FAQ) Lookup(q string) (string, bool) {
	if f == nil {
		return "", false
	}
	a, ok := f.answers[Normalize(q)]
	return a, ok
}

// Len returns the number of questions in the table.
func (f *FAQ) Len() int {
	if f == nil {
		return 0
	}
	return len(f.answers)
}

// Content is the optional YAML file that extends the built-in FAQ and sets
// the quick suggestions:
//
//	faq:
//	  - question: Where is he based?
//	    answer: Chennai, India.
//	suggestions:
//	  - What projects has he built?
type Content struct {
	FAQ         []FAQEntry `yaml:"faq"`
	Suggestions []string   `yaml:"suggestions"`
}

// DefaultSuggestions are the quick-suggestion shortcuts shown when no
// content file sets any.
var DefaultSuggestions = []string{
	"What is his name?",
	"What projects has he built?",
	"What are his main skills?",
	"Tell me about his experience.",
}

// LoadContent reads a content file. An empty path yields the defaults.
func LoadContent(path, canonicalName string) (*FAQ, []string, error) {
	if path == "" {
		return DefaultFAQ(canonicalName), DefaultSuggestions, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading content file: %w", err)
	}
	var c Content
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, nil, fmt.Errorf("parsing content file %s: %w", path, err)
	}

	entries := append(defaultEntries(canonicalName), c.FAQ...)
	suggestions := c.Suggestions
	if len(suggestions) == 0 {
		suggestions = DefaultSuggestions
	}
	return NewFAQ(entries), suggestions, nil
}
