package domain

import (
	"sort"
	"strings"

	errprocess "private_chat_service/pkg/err"
)

// RedactionSentinel replaces content once a message is deleted for everyone
const RedactionSentinel = "[This message was deleted]"

// ContentKind tag of the content variant
type ContentKind string

const (
	// KindPlaintext plain text message
	KindPlaintext ContentKind = "plaintext"
	// KindAttachment image / file reference, optional caption
	KindAttachment ContentKind = "attachment"
	// KindEncrypted opaque ciphertext
	KindEncrypted ContentKind = "encrypted"
)

// supported ciphertext algorithm tags
const (
	AlgPreKeySignal = "PreKeySignalMessage"
	AlgSignal       = "SignalMessage"
	AlgSenderKey    = "SenderKeyMessage"
)

// Content is exactly one of PlaintextContent, AttachmentContent, EncryptedContent
type Content interface {
	Kind() ContentKind
	isEmpty() bool
}

// PlaintextContent text message
type PlaintextContent struct {
	Text string
}

// AttachmentContent reference to an uploaded blob
type AttachmentContent struct {
	URL      string
	MimeType string
	FileName string
	Caption  string
}

// EncryptedContent ciphertext is stored and forwarded, never inspected
type EncryptedContent struct {
	Ciphertext     string
	Algorithm      string
	SenderDeviceID int
}

// Kind implement Content
func (PlaintextContent) Kind() ContentKind { return KindPlaintext }

// Kind implement Content
func (AttachmentContent) Kind() ContentKind { return KindAttachment }

// Kind implement Content
func (EncryptedContent) Kind() ContentKind { return KindEncrypted }

func (c PlaintextContent) isEmpty() bool  { return strings.TrimSpace(c.Text) == "" }
func (c AttachmentContent) isEmpty() bool { return c.URL == "" }
func (c EncryptedContent) isEmpty() bool  { return c.Ciphertext == "" }

// IsImage attachment is an image
func (c AttachmentContent) IsImage() bool {
	return strings.HasPrefix(c.MimeType, "image/")
}

// ValidateContent check the variant is usable for a new message
func ValidateContent(c Content) error {
	if c == nil || c.isEmpty() {
		return errprocess.Wrap(ErrValidation, "message content is empty")
	}
	if enc, ok := c.(EncryptedContent); ok {
		switch enc.Algorithm {
		case AlgPreKeySignal, AlgSignal, AlgSenderKey:
		default:
			return errprocess.Wrapf(ErrValidation, "unsupported ciphertext algorithm %q", enc.Algorithm)
		}
	}
	return nil
}

// redact overwrite every content slot with the sentinel
func redact(c Content) Content {
	if enc, ok := c.(EncryptedContent); ok {
		enc.Ciphertext = RedactionSentinel
		return enc
	}
	return PlaintextContent{Text: RedactionSentinel}
}

// ConversationID deterministic id of the pair, same for (a,b) and (b,a)
func ConversationID(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return pair[0] + "_" + pair[1]
}
