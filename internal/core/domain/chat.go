package domain

// ChatRole is the author of a chat message.
type ChatRole string

const (
	ChatRoleSystem    ChatRole = "system"
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// ChatMessage is one turn of the visitor conversation.
type ChatMessage struct {
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`
}

// IsValid reports whether the message may be forwarded to the model.
// System messages from the client are dropped; the server owns the prompt.
func (m ChatMessage) IsValid() bool {
	if m.Content == "" {
		return false
	}
	return m.Role == ChatRoleUser || m.Role == ChatRoleAssistant
}

// ChatRequest is what a chat model receives.
type ChatRequest struct {
	System      string
	Messages    []ChatMessage
	Temperature float32
}
