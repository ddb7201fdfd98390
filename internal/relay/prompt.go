package relay

import (
	"strings"

	"github.com/kiranalabs/kirana/internal/conversation"
)

// BuildPrompt assembles the persona instruction, language hint, prior
// turns and the current message into a single prompt string. The
// backend receives it as one user-role content with no separate system
// instruction.
func BuildPrompt(languageLabel string, history []conversation.Turn, message string) string {
	var b strings.Builder
	b.WriteString("You are a friendly and helpful AI shopkeeper for a store in India.\n")
	b.WriteString("Your customer is speaking ")
	b.WriteString(languageLabel)
	b.WriteString(".\n")
	b.WriteString("Your goal is to understand their shopping needs, suggest relevant products, and help them place an order.\n")
	b.WriteString("Keep your responses concise, friendly, and natural.\n")
	b.WriteString("\nConversation History:\n")
	for _, t := range history {
		b.WriteString(string(t.Role))
		b.WriteString(": ")
		b.WriteString(t.Text)
		b.WriteString("\n")
	}
	b.WriteString("\nCurrent User Message:\n")
	b.WriteString(message)
	return b.String()
}
