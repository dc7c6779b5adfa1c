// Package domain defines the core types shared by the consultant engine.
package domain

// Role identifies who authored a message in a conversation history.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	default:
		return false
	}
}

// Message is a single entry of a conversation history.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// SystemMessage builds a system-role message.
func SystemMessage(content string) Message { return Message{Role: RoleSystem, Content: content} }

// UserMessage builds a user-role message.
func UserMessage(content string) Message { return Message{Role: RoleUser, Content: content} }

// AssistantMessage builds an assistant-role message.
func AssistantMessage(content string) Message { return Message{Role: RoleAssistant, Content: content} }

// Stats counts the messages of a history by role.
type Stats struct {
	Total     int `json:"total_messages"`
	User      int `json:"user_messages"`
	Assistant int `json:"ai_messages"`
	System    int `json:"system_messages"`
}

// CountStats computes Stats for the given history.
func CountStats(history []Message) Stats {
	stats := Stats{Total: len(history)}
	for _, m := range history {
		switch m.Role {
		case RoleSystem:
			stats.System++
		case RoleUser:
			stats.User++
		case RoleAssistant:
			stats.Assistant++
		}
	}
	return stats
}
