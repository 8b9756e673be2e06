package models

// Party identifies an assignee or team on a conversation. IDs come back
// from the remote API as either numbers or strings depending on version,
// so both fields stay loosely typed and render as null when absent.
type Party struct {
	ID   any `json:"id"`
	Name any `json:"name"`
}

// ConversationStatus is the normalized, fixed-shape view of a conversation.
// Derived on every query, never persisted.
type ConversationStatus struct {
	ConversationID any   `json:"conversation_id"`
	Status         any   `json:"status"`
	Priority       any   `json:"priority"`
	Assignee       Party `json:"assignee"`
	Team           Party `json:"team"`
}

// Assigned reports whether the conversation already carries an assignee.
func (c *ConversationStatus) Assigned() bool {
	return c != nil && c.Assignee.ID != nil
}

// TeamMember is one agent on a team roster. The id is string-normalized
// regardless of the wire representation.
type TeamMember struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// LoadMap counts active conversations per assignee id within one team.
// Recomputed per balancing decision.
type LoadMap map[string]int
