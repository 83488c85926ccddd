package domain

import (
	"time"
	"unicode/utf8"
)

// preview markers
const (
	PreviewDeletedForMe = "[Message deleted]"
	PreviewEncrypted    = "🔐 Encrypted message"
	PreviewImage        = "📷 Image"
	PreviewFallback     = "Message"

	previewMaxRunes = 30
)

// ChatPartnerSummary derived per request, never stored
type ChatPartnerSummary struct {
	PartnerID       string      `json:"partnerId"`
	PartnerName     string      `json:"partnerName,omitempty"`
	LastMessage     MessageView `json:"lastMessage"`
	LastMessageAt   time.Time   `json:"lastMessageAt"`
	LastMessageText string      `json:"lastMessageText"`
	UnreadCount     int         `json:"unreadCount"`
}

// Preview human readable one-liner of m for viewer
func Preview(m *Message, viewer string) string {
	switch {
	case m.DeletedForEveryone():
		return RedactionSentinel
	case m.DeletedFor(viewer):
		return PreviewDeletedForMe
	}

	switch c := m.Content.(type) {
	case EncryptedContent:
		return PreviewEncrypted
	case PlaintextContent:
		return Truncate(c.Text, previewMaxRunes)
	case AttachmentContent:
		if c.Caption != "" {
			return Truncate(c.Caption, previewMaxRunes)
		}
		if c.IsImage() {
			return PreviewImage
		}
	}
	return PreviewFallback
}

// Truncate cut to max runes and add "..."
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max]) + "..."
}
