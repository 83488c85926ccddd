package repository

import (
	"time"

	"private_chat_service/internal/chat/domain"
)

// messageDocument mongo layout of domain.Message, content variant flattened with a kind tag
type messageDocument struct {
	ID         string `bson:"_id"`
	SenderID   string `bson:"sender_id"`
	ReceiverID string `bson:"receiver_id"`

	ContentKind    domain.ContentKind  `bson:"content_kind"`
	Text           string              `bson:"text,omitempty"`
	Attachment     *attachmentDocument `bson:"attachment,omitempty"`
	Ciphertext     string              `bson:"ciphertext,omitempty"`
	Algorithm      string              `bson:"algorithm,omitempty"`
	SenderDeviceID int                 `bson:"sender_device_id,omitempty"`

	ConversationID string `bson:"conversation_id"`
	SequenceNumber int64  `bson:"sequence_number"`

	Status      domain.MessageStatus `bson:"status"`
	DeliveredAt *time.Time           `bson:"delivered_at,omitempty"`
	ReadAt      *time.Time           `bson:"read_at,omitempty"`

	DeletedBy    []deletionDocument `bson:"deleted_by"`
	IsDeleted    bool               `bson:"is_deleted"`
	FullyDeleted bool               `bson:"fully_deleted"`

	IsEdited    bool           `bson:"is_edited"`
	EditedAt    *time.Time     `bson:"edited_at,omitempty"`
	EditHistory []editDocument `bson:"edit_history"`

	Reactions []reactionDocument `bson:"reactions"`

	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
	Version   int64     `bson:"version"`
}

type attachmentDocument struct {
	URL      string `bson:"url"`
	MimeType string `bson:"mime_type,omitempty"`
	FileName string `bson:"file_name,omitempty"`
}

type deletionDocument struct {
	UserID     string            `bson:"user_id"`
	DeleteType domain.DeleteType `bson:"delete_type"`
	DeletedAt  time.Time         `bson:"deleted_at"`
}

type editDocument struct {
	Text     string    `bson:"text"`
	EditedAt time.Time `bson:"edited_at"`
}

type reactionDocument struct {
	UserID    string    `bson:"user_id"`
	Emoji     string    `bson:"emoji"`
	CreatedAt time.Time `bson:"created_at"`
}

func toDocument(m *domain.Message) messageDocument {
	d := messageDocument{
		ID:             m.ID,
		SenderID:       m.SenderID,
		ReceiverID:     m.ReceiverID,
		ContentKind:    m.Content.Kind(),
		ConversationID: m.ConversationID,
		SequenceNumber: m.SequenceNumber,
		Status:         m.Status,
		DeliveredAt:    m.DeliveredAt,
		ReadAt:         m.ReadAt,
		DeletedBy:      make([]deletionDocument, 0, len(m.DeletedBy)),
		IsDeleted:      m.IsDeleted,
		FullyDeleted:   m.FullyDeleted,
		IsEdited:       m.IsEdited,
		EditedAt:       m.EditedAt,
		EditHistory:    make([]editDocument, 0, len(m.EditHistory)),
		Reactions:      make([]reactionDocument, 0, len(m.Reactions)),
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
		Version:        m.Version,
	}

	switch c := m.Content.(type) {
	case domain.PlaintextContent:
		d.Text = c.Text
	case domain.AttachmentContent:
		d.Text = c.Caption
		d.Attachment = &attachmentDocument{URL: c.URL, MimeType: c.MimeType, FileName: c.FileName}
	case domain.EncryptedContent:
		d.Ciphertext = c.Ciphertext
		d.Algorithm = c.Algorithm
		d.SenderDeviceID = c.SenderDeviceID
	}

	for _, r := range m.DeletedBy {
		d.DeletedBy = append(d.DeletedBy, deletionDocument(r))
	}
	for _, e := range m.EditHistory {
		d.EditHistory = append(d.EditHistory, editDocument(e))
	}
	for _, r := range m.Reactions {
		d.Reactions = append(d.Reactions, reactionDocument(r))
	}
	return d
}

func (d messageDocument) toDomain() *domain.Message {
	m := &domain.Message{
		ID:             d.ID,
		SenderID:       d.SenderID,
		ReceiverID:     d.ReceiverID,
		ConversationID: d.ConversationID,
		SequenceNumber: d.SequenceNumber,
		Status:         d.Status,
		DeliveredAt:    d.DeliveredAt,
		ReadAt:         d.ReadAt,
		IsDeleted:      d.IsDeleted,
		FullyDeleted:   d.FullyDeleted,
		IsEdited:       d.IsEdited,
		EditedAt:       d.EditedAt,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
		Version:        d.Version,
	}

	switch d.ContentKind {
	case domain.KindEncrypted:
		m.Content = domain.EncryptedContent{Ciphertext: d.Ciphertext, Algorithm: d.Algorithm, SenderDeviceID: d.SenderDeviceID}
	case domain.KindAttachment:
		c := domain.AttachmentContent{Caption: d.Text}
		if d.Attachment != nil {
			c.URL, c.MimeType, c.FileName = d.Attachment.URL, d.Attachment.MimeType, d.Attachment.FileName
		}
		m.Content = c
	default:
		m.Content = domain.PlaintextContent{Text: d.Text}
	}

	for _, r := range d.DeletedBy {
		m.DeletedBy = append(m.DeletedBy, domain.DeletionRecord(r))
	}
	for _, e := range d.EditHistory {
		m.EditHistory = append(m.EditHistory, domain.EditEntry(e))
	}
	for _, r := range d.Reactions {
		m.Reactions = append(m.Reactions, domain.Reaction(r))
	}
	return m
}
