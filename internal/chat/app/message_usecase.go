package app

import (
	"context"
	"errors"
	"hash/fnv"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"private_chat_service/internal/chat/domain"
	"private_chat_service/internal/chat/repository"
	errprocess "private_chat_service/pkg/err"
	"private_chat_service/pkg/logger"
	"private_chat_service/pkg/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultUpdateRetries = 5
	messageLockStripes   = 64
)

// allowed upload types, mime and extension must both match
var allowedAttachmentTypes = map[string][]string{
	"image/jpeg":      {".jpg", ".jpeg"},
	"image/jpg":       {".jpg", ".jpeg"},
	"image/png":       {".png"},
	"image/gif":       {".gif"},
	"image/webp":      {".webp"},
	"application/pdf": {".pdf"},
	"text/plain":      {".txt"},
	"video/mp4":       {".mp4"},
	"video/quicktime": {".mov"},
	"audio/mpeg":      {".mp3"},
	"audio/mp3":       {".mp3"},

	"application/msword": {".doc"},

	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {".docx"},
}

// MessageUseCase lifecycle of one-to-one messages
type MessageUseCase struct {
	msgRepo     repository.MessageRepository
	userRepo    repository.UserRepository
	seqRepo     repository.SequenceRepository
	attachments repository.AttachmentRepository
	journal     repository.JournalRepository

	presence *PresenceRegistry
	emitter  *EventEmitter
	notifier *NotificationDispatcher

	now           func() time.Time
	newID         func() string
	updateRetries int

	// 同一則訊息的 commit + emit 依序進行, 接收端看到的事件順序與寫入順序一致
	messageLocks [messageLockStripes]sync.Mutex

	// 送出後的背景副作用 (push / journal), shutdown 時等待
	sideEffects sync.WaitGroup
	mu          sync.Mutex
	closed      bool
}

// MessageOption optional MessageUseCase setting
type MessageOption func(*MessageUseCase)

// WithClock override the engine clock
func WithClock(now func() time.Time) MessageOption {
	return func(uc *MessageUseCase) { uc.now = now }
}

// WithIDGenerator override message id generation
func WithIDGenerator(gen func() string) MessageOption {
	return func(uc *MessageUseCase) { uc.newID = gen }
}

// WithUpdateRetries max reload-and-reapply attempts on a version conflict
func WithUpdateRetries(n int) MessageOption {
	return func(uc *MessageUseCase) {
		if n > 0 {
			uc.updateRetries = n
		}
	}
}

// WithJournal append every committed change to the event journal
func WithJournal(j repository.JournalRepository) MessageOption {
	return func(uc *MessageUseCase) { uc.journal = j }
}

// WithAttachments enable multipart uploads
func WithAttachments(a repository.AttachmentRepository) MessageOption {
	return func(uc *MessageUseCase) { uc.attachments = a }
}

// NewMessageUseCase create MessageUseCase
func NewMessageUseCase(
	msgRepo repository.MessageRepository,
	userRepo repository.UserRepository,
	seqRepo repository.SequenceRepository,
	presence *PresenceRegistry,
	emitter *EventEmitter,
	notifier *NotificationDispatcher,
	opts ...MessageOption,
) *MessageUseCase {
	uc := &MessageUseCase{
		msgRepo:       msgRepo,
		userRepo:      userRepo,
		seqRepo:       seqRepo,
		presence:      presence,
		emitter:       emitter,
		notifier:      notifier,
		now:           func() time.Time { return time.Now().UTC() },
		newID:         func() string { return uuid.New().String() },
		updateRetries: defaultUpdateRetries,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Wait block until every dispatched side effect finished
func (uc *MessageUseCase) Wait() {
	uc.sideEffects.Wait()
}

// Shutdown wait for the background side effects, later ones run inline
func (uc *MessageUseCase) Shutdown() {
	uc.mu.Lock()
	uc.closed = true
	uc.mu.Unlock()
	uc.sideEffects.Wait()
}

// after run fn once the write is committed, detached from the request context.
// Realtime emits are not routed through here, they must keep commit order.
func (uc *MessageUseCase) after(ctx context.Context, fn func(ctx context.Context)) {
	ctx = context.WithoutCancel(ctx)

	uc.mu.Lock()
	if uc.closed {
		uc.mu.Unlock()
		fn(ctx)
		return
	}
	uc.sideEffects.Add(1)
	uc.mu.Unlock()

	go func() {
		defer uc.sideEffects.Done()
		fn(ctx)
	}()
}

// lockMessage serialize commit + emit of one message id
func (uc *MessageUseCase) lockMessage(id string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	mu := &uc.messageLocks[h.Sum32()%messageLockStripes]
	mu.Lock()
	return mu.Unlock
}

func (uc *MessageUseCase) record(ctx context.Context, event domain.Event, m *domain.Message, actor, target string, at time.Time) {
	if uc.journal == nil {
		return
	}
	entry := domain.JournalEntry{
		Event:          event,
		MessageID:      m.ID,
		ConversationID: m.ConversationID,
		ActorID:        actor,
		TargetID:       target,
		At:             at,
	}
	if err := uc.journal.Append(ctx, entry); err != nil {
		logger.Log.Warn("journal append failed", zap.String("event", string(event)), zap.String("messageID", m.ID), zap.Error(err))
	}
}

// UploadAttachment store an uploaded file and return the content referencing it.
// Callers run Authorize first so a rejected send leaves no object behind.
func (uc *MessageUseCase) UploadAttachment(ctx context.Context, fileName, mimeType, caption string, r io.Reader, size int64) (domain.AttachmentContent, error) {
	if uc.attachments == nil {
		return domain.AttachmentContent{}, errprocess.Wrap(domain.ErrValidation, "attachments are not enabled")
	}
	if err := checkAttachmentType(mimeType, fileName); err != nil {
		return domain.AttachmentContent{}, err
	}

	url, err := uc.attachments.Upload(ctx, fileName, mimeType, r, size)
	if err != nil {
		return domain.AttachmentContent{}, err
	}
	return domain.AttachmentContent{URL: url, MimeType: mimeType, FileName: fileName, Caption: strings.TrimSpace(caption)}, nil
}

func checkAttachmentType(mimeType, fileName string) error {
	exts, ok := allowedAttachmentTypes[mimeType]
	ext := strings.ToLower(filepath.Ext(fileName))
	if !ok || !containsExt(exts, ext) {
		return errprocess.Wrapf(domain.ErrValidation, "file type %s (%s) not supported", mimeType, ext)
	}
	return nil
}

func containsExt(exts []string, ext string) bool {
	for _, e := range exts {
		if e == ext {
			return true
		}
	}
	return false
}

// checkAttachment only blobs stored by our own attachment storage can be sent
func (uc *MessageUseCase) checkAttachment(c domain.AttachmentContent) error {
	if uc.attachments == nil || !uc.attachments.Owns(c.URL) {
		return errprocess.Wrap(domain.ErrValidation, "attachment must be uploaded first")
	}
	return checkAttachmentType(c.MimeType, c.FileName)
}

// Authorize senderID may write to receiverID: different users, receiver exists, no block either way
func (uc *MessageUseCase) Authorize(ctx context.Context, senderID, receiverID string) error {
	_, _, err := uc.authorize(ctx, senderID, receiverID)
	return err
}

func (uc *MessageUseCase) authorize(ctx context.Context, senderID, receiverID string) (sender, receiver *domain.UserProfile, err error) {
	if senderID == "" || receiverID == "" {
		return nil, nil, errprocess.Wrap(domain.ErrValidation, "sender and receiver are required")
	}
	if senderID == receiverID {
		return nil, nil, errprocess.Wrap(domain.ErrValidation, "cannot send a message to yourself")
	}

	profiles, err := uc.userRepo.FindProfiles(ctx, []string{senderID, receiverID})
	if err != nil {
		return nil, nil, err
	}
	receiver, ok := profiles[receiverID]
	if !ok {
		return nil, nil, errprocess.Wrapf(domain.ErrNotFound, "receiver %s not found", receiverID)
	}
	sender = profiles[senderID]
	if receiver.HasBlocked(senderID) {
		return nil, nil, errprocess.Wrap(domain.ErrAuthorization, "you are blocked by this user")
	}
	if sender.HasBlocked(receiverID) {
		return nil, nil, errprocess.Wrap(domain.ErrAuthorization, "you have blocked this user")
	}
	return sender, receiver, nil
}

// Send 驗證 -> 封鎖檢查 -> 單次寫入 -> 即時通知 / 推播
func (uc *MessageUseCase) Send(ctx context.Context, senderID, receiverID string, content domain.Content) (view domain.MessageView, err error) {
	defer func() { metrics.ObserveOperation("send", err) }()

	now := uc.now()
	m, err := domain.NewMessage(uc.newID(), senderID, receiverID, content, now)
	if err != nil {
		return view, err
	}
	if att, ok := content.(domain.AttachmentContent); ok {
		if err = uc.checkAttachment(att); err != nil {
			return view, err
		}
	}

	sender, receiver, err := uc.authorize(ctx, senderID, receiverID)
	if err != nil {
		return view, err
	}

	seq, err := uc.seqRepo.Next(ctx, m.ConversationID)
	if err != nil {
		return view, err
	}
	m.SequenceNumber = seq

	// 對方在線: 直接以 delivered 寫入
	if uc.presence.IsOnline(receiverID) {
		m.MarkDelivered(now)
	}

	defer uc.lockMessage(m.ID)()

	if err = uc.msgRepo.Create(ctx, m); err != nil {
		return view, err
	}

	if m.Status == domain.StatusDelivered {
		uc.emitter.Emit(receiverID, domain.EventNewMessage, domain.Resolve(m, receiverID))
	}
	uc.after(ctx, func(ctx context.Context) {
		uc.record(ctx, domain.EventNewMessage, m, senderID, receiverID, now)
		if uc.notifier != nil {
			uc.notifier.Dispatch(ctx, sender, receiver, m)
		}
	})

	return domain.Resolve(m, senderID), nil
}

// mutate load -> apply -> compare-and-swap, reloading on a concurrent write.
// apply returning changed=false commits nothing.
func (uc *MessageUseCase) mutate(ctx context.Context, id string, apply func(m *domain.Message) (bool, error)) (*domain.Message, bool, error) {
	for attempt := 0; attempt < uc.updateRetries; attempt++ {
		m, err := uc.msgRepo.FindByID(ctx, id)
		if err != nil {
			return nil, false, err
		}
		changed, err := apply(m)
		if err != nil {
			return m, false, err
		}
		if !changed {
			return m, false, nil
		}

		err = uc.msgRepo.Update(ctx, m)
		if errors.Is(err, domain.ErrVersionConflict) {
			logger.Log.Debug("message version conflict, retrying", zap.String("messageID", id), zap.Int("attempt", attempt+1))
			continue
		}
		if err != nil {
			return nil, false, err
		}
		return m, true, nil
	}
	return nil, false, errprocess.Wrapf(domain.ErrStorage, "message %s: too many concurrent updates", id)
}

// MarkRead receiver marks a message read, repeating it is a silent success
func (uc *MessageUseCase) MarkRead(ctx context.Context, actorID, messageID string) (view domain.MessageView, err error) {
	defer func() { metrics.ObserveOperation("mark_read", err) }()

	defer uc.lockMessage(messageID)()

	now := uc.now()
	m, changed, err := uc.mutate(ctx, messageID, func(m *domain.Message) (bool, error) {
		return m.MarkRead(actorID, now)
	})
	if err != nil {
		return view, err
	}

	if changed {
		uc.emitter.Emit(m.SenderID, domain.EventMessageRead, domain.MessageReadPayload{MessageID: m.ID, ReadAt: *m.ReadAt})
		uc.after(ctx, func(ctx context.Context) {
			uc.record(ctx, domain.EventMessageRead, m, actorID, m.SenderID, now)
		})
	}
	return domain.Resolve(m, actorID), nil
}

// EditMessage sender replaces the text of a plaintext message
func (uc *MessageUseCase) EditMessage(ctx context.Context, actorID, messageID, text string) (view domain.MessageView, err error) {
	defer func() { metrics.ObserveOperation("edit", err) }()

	defer uc.lockMessage(messageID)()

	now := uc.now()
	m, _, err := uc.mutate(ctx, messageID, func(m *domain.Message) (bool, error) {
		return true, m.Edit(actorID, text, now)
	})
	if err != nil {
		return view, err
	}

	uc.emitter.Emit(m.ReceiverID, domain.EventMessageEdited, domain.MessageEditedPayload{
		MessageID: m.ID,
		NewText:   m.Content.(domain.PlaintextContent).Text,
		EditedAt:  now,
		EditedBy:  actorID,
	})
	uc.after(ctx, func(ctx context.Context) {
		uc.record(ctx, domain.EventMessageEdited, m, actorID, m.ReceiverID, now)
	})
	return domain.Resolve(m, actorID), nil
}

// DeleteForMe hide a message for the actor only
func (uc *MessageUseCase) DeleteForMe(ctx context.Context, actorID, messageID string) (view domain.MessageView, err error) {
	defer func() { metrics.ObserveOperation("delete_for_me", err) }()

	defer uc.lockMessage(messageID)()

	now := uc.now()
	m, _, err := uc.mutate(ctx, messageID, func(m *domain.Message) (bool, error) {
		return true, m.DeleteForMe(actorID, now)
	})
	if err != nil {
		return view, err
	}

	other := m.OtherParty(actorID)
	uc.emitter.Emit(other, domain.EventMessageDeletedForUser, domain.MessageDeletedForUserPayload{
		MessageID:  m.ID,
		DeletedBy:  actorID,
		DeleteType: domain.DeleteForMe,
	})
	uc.after(ctx, func(ctx context.Context) {
		uc.record(ctx, domain.EventMessageDeletedForUser, m, actorID, other, now)
	})
	return domain.Resolve(m, actorID), nil
}

// DeleteForEveryone sender redacts a message for both parties
func (uc *MessageUseCase) DeleteForEveryone(ctx context.Context, actorID, messageID string) (view domain.MessageView, err error) {
	defer func() { metrics.ObserveOperation("delete_for_everyone", err) }()

	defer uc.lockMessage(messageID)()

	now := uc.now()
	m, _, err := uc.mutate(ctx, messageID, func(m *domain.Message) (bool, error) {
		return true, m.DeleteForEveryone(actorID, now)
	})
	if err != nil {
		return view, err
	}

	uc.emitter.Emit(m.ReceiverID, domain.EventMessageDeletedForEveryone, domain.MessageDeletedForEveryonePayload{
		MessageID:  m.ID,
		DeletedBy:  actorID,
		NewContent: domain.RedactionSentinel,
	})
	uc.after(ctx, func(ctx context.Context) {
		uc.record(ctx, domain.EventMessageDeletedForEveryone, m, actorID, m.ReceiverID, now)
	})
	return domain.Resolve(m, actorID), nil
}

// React set or replace the actor's reaction
func (uc *MessageUseCase) React(ctx context.Context, actorID, messageID, emoji string) (view domain.MessageView, err error) {
	defer func() { metrics.ObserveOperation("react", err) }()

	defer uc.lockMessage(messageID)()

	now := uc.now()
	m, _, err := uc.mutate(ctx, messageID, func(m *domain.Message) (bool, error) {
		return true, m.React(actorID, emoji, now)
	})
	if err != nil {
		return view, err
	}

	other := m.OtherParty(actorID)
	uc.emitter.Emit(other, domain.EventMessageReacted, domain.MessageReactedPayload{
		MessageID: m.ID,
		UserID:    actorID,
		Emoji:     strings.TrimSpace(emoji),
		Reactions: append([]domain.Reaction{}, m.Reactions...),
	})
	uc.after(ctx, func(ctx context.Context) {
		uc.record(ctx, domain.EventMessageReacted, m, actorID, other, now)
	})
	return domain.Resolve(m, actorID), nil
}

// Unreact remove the actor's reaction
func (uc *MessageUseCase) Unreact(ctx context.Context, actorID, messageID string) (view domain.MessageView, err error) {
	defer func() { metrics.ObserveOperation("unreact", err) }()

	defer uc.lockMessage(messageID)()

	now := uc.now()
	m, _, err := uc.mutate(ctx, messageID, func(m *domain.Message) (bool, error) {
		return true, m.Unreact(actorID, now)
	})
	if err != nil {
		return view, err
	}

	other := m.OtherParty(actorID)
	uc.emitter.Emit(other, domain.EventMessageReactionRemoved, domain.MessageReactionRemovedPayload{
		MessageID: m.ID,
		UserID:    actorID,
		Reactions: append([]domain.Reaction{}, m.Reactions...),
	})
	uc.after(ctx, func(ctx context.Context) {
		uc.record(ctx, domain.EventMessageReactionRemoved, m, actorID, other, now)
	})
	return domain.Resolve(m, actorID), nil
}

// ClearConversation delete-for-me every message of the pair, returns how many were cleared
func (uc *MessageUseCase) ClearConversation(ctx context.Context, actorID, otherID string) (cleared int, err error) {
	defer func() { metrics.ObserveOperation("clear_conversation", err) }()

	if otherID == "" || otherID == actorID {
		return 0, errprocess.Wrap(domain.ErrValidation, "a chat partner is required")
	}

	msgs, err := uc.msgRepo.FindConversation(ctx, actorID, otherID)
	if err != nil {
		return 0, err
	}

	now := uc.now()
	for _, msg := range msgs {
		_, changed, err := uc.mutate(ctx, msg.ID, func(m *domain.Message) (bool, error) {
			if m.DeletedFor(actorID) {
				return false, nil
			}
			return true, m.DeleteForMe(actorID, now)
		})
		if err != nil {
			return cleared, err
		}
		if changed {
			cleared++
		}
	}
	return cleared, nil
}
