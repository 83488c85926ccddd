package domain

import (
	"time"
)

// AttachmentView attachment as seen by clients
type AttachmentView struct {
	URL      string `json:"url"`
	MimeType string `json:"mimeType,omitempty"`
	FileName string `json:"fileName,omitempty"`
}

// MessageView message as one viewer is allowed to see it
type MessageView struct {
	ID             string `json:"_id"`
	SenderID       string `json:"senderId"`
	ReceiverID     string `json:"receiverId"`
	ConversationID string `json:"conversationId"`
	SequenceNumber int64  `json:"sequenceNumber"`

	ContentType    ContentKind     `json:"contentType"`
	Text           string          `json:"text,omitempty"`
	Attachment     *AttachmentView `json:"attachment,omitempty"`
	Ciphertext     string          `json:"ciphertext,omitempty"`
	MessageType    string          `json:"messageType,omitempty"`
	SenderDeviceID int             `json:"senderDeviceId,omitempty"`

	Status      MessageStatus `json:"status"`
	DeliveredAt *time.Time    `json:"deliveredAt,omitempty"`
	ReadAt      *time.Time    `json:"readAt,omitempty"`

	IsEdited  bool       `json:"isEdited"`
	EditedAt  *time.Time `json:"editedAt,omitempty"`
	Reactions []Reaction `json:"reactions"`

	DeletedForEveryone bool `json:"deletedForEveryone"`
	DeletedForMe       bool `json:"deletedForMe"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Resolve the single redaction rule, every read path goes through here
func Resolve(m *Message, viewer string) MessageView {
	v := MessageView{
		ID:                 m.ID,
		SenderID:           m.SenderID,
		ReceiverID:         m.ReceiverID,
		ConversationID:     m.ConversationID,
		SequenceNumber:     m.SequenceNumber,
		ContentType:        m.Content.Kind(),
		Status:             m.Status,
		DeliveredAt:        m.DeliveredAt,
		ReadAt:             m.ReadAt,
		IsEdited:           m.IsEdited,
		EditedAt:           m.EditedAt,
		Reactions:          append([]Reaction{}, m.Reactions...),
		DeletedForEveryone: m.DeletedForEveryone(),
		DeletedForMe:       m.DeletedFor(viewer),
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}

	switch c := m.Content.(type) {
	case PlaintextContent:
		v.Text = c.Text
		v.MessageType = "plaintext"
	case AttachmentContent:
		v.Text = c.Caption
		v.Attachment = &AttachmentView{URL: c.URL, MimeType: c.MimeType, FileName: c.FileName}
		v.MessageType = "plaintext"
		if c.IsImage() {
			v.MessageType = "image"
		}
	case EncryptedContent:
		v.Ciphertext = c.Ciphertext
		v.MessageType = c.Algorithm
		v.SenderDeviceID = c.SenderDeviceID
	}

	if v.DeletedForEveryone || v.DeletedForMe {
		v.Text = RedactionSentinel
		v.Attachment = nil
		if m.Content.Kind() == KindEncrypted {
			v.Ciphertext = RedactionSentinel
		}
	}
	return v
}

// ResolveAll resolve a list for one viewer
func ResolveAll(msgs []*Message, viewer string) []MessageView {
	out := make([]MessageView, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, Resolve(m, viewer))
	}
	return out
}
