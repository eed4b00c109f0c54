package chat

import (
	"strings"
	"time"
)

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one entry of a conversation. Conversations only ever grow.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Fixed assistant replies. DefaultGreeting is Greeting of the default
// canonical name.
const (
	DefaultGreeting = "Hi! Ask me about Anup’s experience, projects, or skills."
	ErrorMessage    = "Sorry, I ran into an issue. Please try again."
	RefusalMessage  = "I can only help with questions about experience, projects, or skills. Please ask about one of those."
	NoInfoMessage   = "I don't have information about that. Try asking about experience, projects, or skills."
)

// FirstName returns the first word of canonicalName with trailing
// punctuation removed: "Anup Davin Mathivanan." gives "Anup".
func FirstName(canonicalName string) string {
	fields := strings.Fields(canonicalName)
	if len(fields) == 0 {
		return ""
	}
	return strings.TrimRight(fields[0], ".,;:!?")
}

// Greeting returns the opening assistant message for the subject named
// canonicalName.
func Greeting(canonicalName string) string {
	name := FirstName(canonicalName)
	if name == "" {
		return "Hi! Ask me about experience, projects, or skills."
	}
	return "Hi! Ask me about " + name + "’s experience, projects, or skills."
}
