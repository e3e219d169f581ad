// Package role defines the sender roles used in chat prompts.
package role

// Role represents the sender of a message in a conversation.
type Role string

const (
	System    Role = "system"
	User      Role = "user"
	Assistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case System, User, Assistant:
		return true
	}
	return false
}

// String returns the underlying string value of the role.
func (r Role) String() string {
	return string(r)
}

// Label returns the speaker prefix used when a conversation is rendered as
// plain text ("System", "Human", "AI").
func (r Role) Label() string {
	switch r {
	case System:
		return "System"
	case User:
		return "Human"
	case Assistant:
		return "AI"
	}
	return string(r)
}
