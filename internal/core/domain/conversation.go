package domain

import "time"

// Role is the author of a message.
type Role string

// Message roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one turn in a conversation.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`

	// Sources lists the evidence used to produce an assistant message.
	Sources []Source `json:"sources,omitempty"`
}

// Conversation is the ordered message history of one chat thread.
type Conversation struct {
	ID        string    `json:"conversation_id"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Summary returns the list view of the conversation.
func (c *Conversation) Summary() ConversationSummary {
	s := ConversationSummary{
		ID:           c.ID,
		MessageCount: len(c.Messages),
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
	if n := len(c.Messages); n > 0 {
		ts := c.Messages[n-1].Timestamp
		s.LastMessageAt = &ts
	}
	return s
}

// ConversationSummary is the list view of a conversation.
type ConversationSummary struct {
	ID            string     `json:"conversation_id"`
	MessageCount  int        `json:"message_count"`
	LastMessageAt *time.Time `json:"last_message"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// LastMessages returns at most n trailing messages.
func LastMessages(msgs []Message, n int) []Message {
	if n <= 0 {
		return nil
	}
	if len(msgs) <= n {
		return msgs
	}
	return msgs[len(msgs)-n:]
}
