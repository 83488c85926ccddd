package domain

import (
	"strings"
	"time"

	errprocess "private_chat_service/pkg/err"
)

// MessageStatus delivery status, only moves forward
type MessageStatus string

const (
	// StatusSent stored, receiver not reached yet
	StatusSent MessageStatus = "sent"
	// StatusDelivered receiver had a live connection
	StatusDelivered MessageStatus = "delivered"
	// StatusRead receiver marked read
	StatusRead MessageStatus = "read"
)

func (s MessageStatus) rank() int {
	switch s {
	case StatusDelivered:
		return 1
	case StatusRead:
		return 2
	default:
		return 0
	}
}

// DeleteType kind of deletion record
type DeleteType string

const (
	// DeleteForMe hide for one party
	DeleteForMe DeleteType = "forMe"
	// DeleteForEveryone redact for both parties
	DeleteForEveryone DeleteType = "forEveryone"
)

// DeletionRecord one entry of the deletion log
type DeletionRecord struct {
	UserID     string     `json:"userId"`
	DeleteType DeleteType `json:"deleteType"`
	DeletedAt  time.Time  `json:"deletedAt"`
}

// EditEntry snapshot of the text, oldest first
type EditEntry struct {
	Text     string    `json:"text"`
	EditedAt time.Time `json:"editedAt"`
}

// Reaction one per actor
type Reaction struct {
	UserID    string    `json:"userId"`
	Emoji     string    `json:"emoji"`
	CreatedAt time.Time `json:"createdAt"`
}

// Message 一對一聊天訊息
type Message struct {
	ID         string
	SenderID   string
	ReceiverID string
	Content    Content

	ConversationID string
	SequenceNumber int64

	Status      MessageStatus
	DeliveredAt *time.Time
	ReadAt      *time.Time

	DeletedBy    []DeletionRecord
	IsDeleted    bool
	FullyDeleted bool

	IsEdited    bool
	EditedAt    *time.Time
	EditHistory []EditEntry

	Reactions []Reaction

	CreatedAt time.Time
	UpdatedAt time.Time
	// Version CAS counter, bumped by the store on every update
	Version int64
}

// NewMessage validate and build a message in status sent
func NewMessage(id, senderID, receiverID string, content Content, now time.Time) (*Message, error) {
	if senderID == "" || receiverID == "" {
		return nil, errprocess.Wrap(ErrValidation, "sender and receiver are required")
	}
	if senderID == receiverID {
		return nil, errprocess.Wrap(ErrValidation, "cannot send a message to yourself")
	}
	if err := ValidateContent(content); err != nil {
		return nil, err
	}

	return &Message{
		ID:             id,
		SenderID:       senderID,
		ReceiverID:     receiverID,
		Content:        content,
		ConversationID: ConversationID(senderID, receiverID),
		Status:         StatusSent,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// IsParty user is sender or receiver
func (m *Message) IsParty(userID string) bool {
	return userID == m.SenderID || userID == m.ReceiverID
}

// OtherParty the party that is not userID
func (m *Message) OtherParty(userID string) string {
	if userID == m.SenderID {
		return m.ReceiverID
	}
	return m.SenderID
}

// DeletedForEveryone a forEveryone record exists
func (m *Message) DeletedForEveryone() bool {
	for _, d := range m.DeletedBy {
		if d.DeleteType == DeleteForEveryone {
			return true
		}
	}
	return false
}

// DeletedFor viewer has a forMe record
func (m *Message) DeletedFor(viewer string) bool {
	for _, d := range m.DeletedBy {
		if d.DeleteType == DeleteForMe && d.UserID == viewer {
			return true
		}
	}
	return false
}

// ReactionOf actor's reaction, nil if none
func (m *Message) ReactionOf(actor string) *Reaction {
	for i := range m.Reactions {
		if m.Reactions[i].UserID == actor {
			return &m.Reactions[i]
		}
	}
	return nil
}

func (m *Message) advance(s MessageStatus) bool {
	if s.rank() <= m.Status.rank() {
		return false
	}
	m.Status = s
	return true
}

// MarkDelivered sent -> delivered, false when already at or past delivered
func (m *Message) MarkDelivered(now time.Time) bool {
	if !m.advance(StatusDelivered) {
		return false
	}
	m.DeliveredAt = &now
	m.UpdatedAt = now
	return true
}

// MarkRead only the receiver; changed=false when it was already read
func (m *Message) MarkRead(actor string, now time.Time) (bool, error) {
	if actor != m.ReceiverID {
		return false, errprocess.Wrap(ErrAuthorization, "only the receiver can mark a message as read")
	}
	if !m.advance(StatusRead) {
		return false, nil
	}
	m.ReadAt = &now
	m.UpdatedAt = now
	return true, nil
}

// Edit replace the text of a plaintext message, first edit snapshots the original
func (m *Message) Edit(actor, newText string, now time.Time) error {
	newText = strings.TrimSpace(newText)
	if newText == "" {
		return errprocess.Wrap(ErrValidation, "message text is required")
	}
	if actor != m.SenderID {
		return errprocess.Wrap(ErrAuthorization, "only the sender can edit a message")
	}
	if m.DeletedForEveryone() {
		return errprocess.Wrap(ErrInvalidState, "cannot edit a deleted message")
	}
	text, ok := m.Content.(PlaintextContent)
	if !ok {
		if m.Content.Kind() == KindEncrypted {
			return errprocess.Wrap(ErrInvalidState, "encrypted messages cannot be edited")
		}
		return errprocess.Wrap(ErrInvalidState, "only text messages can be edited")
	}

	if len(m.EditHistory) == 0 {
		m.EditHistory = append(m.EditHistory, EditEntry{Text: text.Text, EditedAt: m.CreatedAt})
	}
	m.EditHistory = append(m.EditHistory, EditEntry{Text: newText, EditedAt: now})
	m.Content = PlaintextContent{Text: newText}
	m.IsEdited = true
	m.EditedAt = &now
	m.UpdatedAt = now
	return nil
}

// DeleteForMe append a forMe record for actor
func (m *Message) DeleteForMe(actor string, now time.Time) error {
	if !m.IsParty(actor) {
		return errprocess.Wrap(ErrAuthorization, "not a party of this message")
	}
	if m.DeletedFor(actor) {
		return errprocess.Wrap(ErrDuplicateOperation, "message already deleted for you")
	}

	m.DeletedBy = append(m.DeletedBy, DeletionRecord{UserID: actor, DeleteType: DeleteForMe, DeletedAt: now})
	// informational only, visibility still goes by per-viewer records
	m.FullyDeleted = m.DeletedFor(m.SenderID) && m.DeletedFor(m.ReceiverID)
	m.UpdatedAt = now
	return nil
}

// DeleteForEveryone redact the content, the original text is not kept anywhere
func (m *Message) DeleteForEveryone(actor string, now time.Time) error {
	if actor != m.SenderID {
		return errprocess.Wrap(ErrAuthorization, "only the sender can delete a message for everyone")
	}
	if m.DeletedForEveryone() {
		return errprocess.Wrap(ErrDuplicateOperation, "message already deleted for everyone")
	}

	m.Content = redact(m.Content)
	m.EditHistory = nil
	m.DeletedBy = append(m.DeletedBy, DeletionRecord{UserID: actor, DeleteType: DeleteForEveryone, DeletedAt: now})
	m.IsDeleted = true
	m.UpdatedAt = now
	return nil
}

// React set or replace actor's reaction
func (m *Message) React(actor, emoji string, now time.Time) error {
	emoji = strings.TrimSpace(emoji)
	if emoji == "" {
		return errprocess.Wrap(ErrValidation, "emoji is required")
	}
	if !m.IsParty(actor) {
		return errprocess.Wrap(ErrAuthorization, "not a party of this message")
	}
	if m.DeletedForEveryone() || m.DeletedFor(actor) {
		return errprocess.Wrap(ErrInvalidState, "cannot react to a deleted message")
	}

	m.removeReaction(actor)
	m.Reactions = append(m.Reactions, Reaction{UserID: actor, Emoji: emoji, CreatedAt: now})
	m.UpdatedAt = now
	return nil
}

// Unreact remove actor's reaction
func (m *Message) Unreact(actor string, now time.Time) error {
	if !m.IsParty(actor) {
		return errprocess.Wrap(ErrAuthorization, "not a party of this message")
	}
	if !m.removeReaction(actor) {
		return errprocess.Wrap(ErrNoOp, "no reaction to remove")
	}
	m.UpdatedAt = now
	return nil
}

func (m *Message) removeReaction(actor string) bool {
	for i := range m.Reactions {
		if m.Reactions[i].UserID == actor {
			m.Reactions = append(m.Reactions[:i], m.Reactions[i+1:]...)
			return true
		}
	}
	return false
}

// Clone deep copy, Content variants are values so a shallow copy of the interface is enough
func (m *Message) Clone() *Message {
	c := *m
	c.DeletedBy = append([]DeletionRecord(nil), m.DeletedBy...)
	c.EditHistory = append([]EditEntry(nil), m.EditHistory...)
	c.Reactions = append([]Reaction(nil), m.Reactions...)
	if m.DeliveredAt != nil {
		t := *m.DeliveredAt
		c.DeliveredAt = &t
	}
	if m.ReadAt != nil {
		t := *m.ReadAt
		c.ReadAt = &t
	}
	if m.EditedAt != nil {
		t := *m.EditedAt
		c.EditedAt = &t
	}
	return &c
}
