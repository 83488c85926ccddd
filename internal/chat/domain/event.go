package domain

import "time"

// MessageReadPayload payload of messageRead
type MessageReadPayload struct {
	MessageID string    `json:"messageId"`
	ReadAt    time.Time `json:"readAt"`
}

// MessageEditedPayload payload of messageEdited
type MessageEditedPayload struct {
	MessageID string    `json:"messageId"`
	NewText   string    `json:"newText"`
	EditedAt  time.Time `json:"editedAt"`
	EditedBy  string    `json:"editedBy"`
}

// MessageDeletedForUserPayload payload of messageDeletedForUser
type MessageDeletedForUserPayload struct {
	MessageID  string     `json:"messageId"`
	DeletedBy  string     `json:"deletedBy"`
	DeleteType DeleteType `json:"deleteType"`
}

// MessageDeletedForEveryonePayload payload of messageDeletedForEveryone
type MessageDeletedForEveryonePayload struct {
	MessageID  string `json:"messageId"`
	DeletedBy  string `json:"deletedBy"`
	NewContent string `json:"newContent"`
}

// MessageReactedPayload payload of messageReacted
type MessageReactedPayload struct {
	MessageID string     `json:"messageId"`
	UserID    string     `json:"userId"`
	Emoji     string     `json:"emoji"`
	Reactions []Reaction `json:"reactions"`
}

// MessageReactionRemovedPayload payload of messageReactionRemoved
type MessageReactionRemovedPayload struct {
	MessageID string     `json:"messageId"`
	UserID    string     `json:"userId"`
	Reactions []Reaction `json:"reactions"`
}

// TypingPayload payload of typing / stopTyping
type TypingPayload struct {
	From string `json:"from"`
}

// JournalEntry one committed lifecycle change, written to the event journal
type JournalEntry struct {
	Event          Event     `json:"event"`
	MessageID      string    `json:"messageId"`
	ConversationID string    `json:"conversationId"`
	ActorID        string    `json:"actorId"`
	TargetID       string    `json:"targetId"`
	At             time.Time `json:"at"`
}
