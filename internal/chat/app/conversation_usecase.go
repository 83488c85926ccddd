package app

import (
	"context"
	"strings"

	"private_chat_service/internal/chat/domain"
	"private_chat_service/internal/chat/repository"
	errprocess "private_chat_service/pkg/err"
	"private_chat_service/pkg/metrics"
)

// ConversationUseCase read paths, every message leaves through domain.Resolve
type ConversationUseCase struct {
	msgRepo  repository.MessageRepository
	userRepo repository.UserRepository
}

// NewConversationUseCase create ConversationUseCase
func NewConversationUseCase(msgRepo repository.MessageRepository, userRepo repository.UserRepository) *ConversationUseCase {
	return &ConversationUseCase{msgRepo: msgRepo, userRepo: userRepo}
}

func validPartner(viewerID, otherID string) error {
	if otherID == "" || otherID == viewerID {
		return errprocess.Wrap(domain.ErrValidation, "a chat partner is required")
	}
	return nil
}

// ListMessages conversation with otherID, oldest first
func (uc *ConversationUseCase) ListMessages(ctx context.Context, viewerID, otherID string) (views []domain.MessageView, err error) {
	defer func() { metrics.ObserveOperation("list", err) }()

	if err = validPartner(viewerID, otherID); err != nil {
		return nil, err
	}
	msgs, err := uc.msgRepo.FindConversation(ctx, viewerID, otherID)
	if err != nil {
		return nil, err
	}
	return domain.ResolveAll(msgs, viewerID), nil
}

// SearchMessages text search within one conversation, newest first
func (uc *ConversationUseCase) SearchMessages(ctx context.Context, viewerID, otherID, query string) (views []domain.MessageView, err error) {
	defer func() { metrics.ObserveOperation("search", err) }()

	if err = validPartner(viewerID, otherID); err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.MessageView{}, nil
	}
	msgs, err := uc.msgRepo.SearchConversation(ctx, viewerID, otherID, query)
	if err != nil {
		return nil, err
	}
	return domain.ResolveAll(msgs, viewerID), nil
}

// GetEditHistory edit snapshots of a message, empty once it is hidden from the viewer
func (uc *ConversationUseCase) GetEditHistory(ctx context.Context, viewerID, messageID string) (history []domain.EditEntry, err error) {
	defer func() { metrics.ObserveOperation("edit_history", err) }()

	m, err := uc.msgRepo.FindByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if !m.IsParty(viewerID) {
		return nil, errprocess.Wrap(domain.ErrAuthorization, "not a party of this message")
	}
	if m.DeletedForEveryone() || m.DeletedFor(viewerID) {
		return []domain.EditEntry{}, nil
	}
	return append([]domain.EditEntry{}, m.EditHistory...), nil
}
