package handlers

import (
	"context"
	"io"

	"private_chat_service/internal/chat/domain"

	"github.com/stretchr/testify/mock"
)

// MockMessageService Mock MessageService
type MockMessageService struct {
	mock.Mock
}

func (m *MockMessageService) Authorize(ctx context.Context, senderID, receiverID string) error {
	return m.Called(ctx, senderID, receiverID).Error(0)
}

func (m *MockMessageService) Send(ctx context.Context, senderID, receiverID string, content domain.Content) (domain.MessageView, error) {
	args := m.Called(ctx, senderID, receiverID, content)
	return args.Get(0).(domain.MessageView), args.Error(1)
}

func (m *MockMessageService) UploadAttachment(ctx context.Context, fileName, mimeType, caption string, r io.Reader, size int64) (domain.AttachmentContent, error) {
	args := m.Called(ctx, fileName, mimeType, caption, r, size)
	return args.Get(0).(domain.AttachmentContent), args.Error(1)
}

func (m *MockMessageService) MarkRead(ctx context.Context, actorID, messageID string) (domain.MessageView, error) {
	args := m.Called(ctx, actorID, messageID)
	return args.Get(0).(domain.MessageView), args.Error(1)
}

func (m *MockMessageService) EditMessage(ctx context.Context, actorID, messageID, text string) (domain.MessageView, error) {
	args := m.Called(ctx, actorID, messageID, text)
	return args.Get(0).(domain.MessageView), args.Error(1)
}

func (m *MockMessageService) DeleteForMe(ctx context.Context, actorID, messageID string) (domain.MessageView, error) {
	args := m.Called(ctx, actorID, messageID)
	return args.Get(0).(domain.MessageView), args.Error(1)
}

func (m *MockMessageService) DeleteForEveryone(ctx context.Context, actorID, messageID string) (domain.MessageView, error) {
	args := m.Called(ctx, actorID, messageID)
	return args.Get(0).(domain.MessageView), args.Error(1)
}

func (m *MockMessageService) React(ctx context.Context, actorID, messageID, emoji string) (domain.MessageView, error) {
	args := m.Called(ctx, actorID, messageID, emoji)
	return args.Get(0).(domain.MessageView), args.Error(1)
}

func (m *MockMessageService) Unreact(ctx context.Context, actorID, messageID string) (domain.MessageView, error) {
	args := m.Called(ctx, actorID, messageID)
	return args.Get(0).(domain.MessageView), args.Error(1)
}

func (m *MockMessageService) ClearConversation(ctx context.Context, actorID, otherID string) (int, error) {
	args := m.Called(ctx, actorID, otherID)
	return args.Int(0), args.Error(1)
}

// MockConversationService Mock ConversationService
type MockConversationService struct {
	mock.Mock
}

func (m *MockConversationService) ListMessages(ctx context.Context, viewerID, otherID string) ([]domain.MessageView, error) {
	args := m.Called(ctx, viewerID, otherID)
	return args.Get(0).([]domain.MessageView), args.Error(1)
}

func (m *MockConversationService) SearchMessages(ctx context.Context, viewerID, otherID, query string) ([]domain.MessageView, error) {
	args := m.Called(ctx, viewerID, otherID, query)
	return args.Get(0).([]domain.MessageView), args.Error(1)
}

func (m *MockConversationService) GetEditHistory(ctx context.Context, viewerID, messageID string) ([]domain.EditEntry, error) {
	args := m.Called(ctx, viewerID, messageID)
	return args.Get(0).([]domain.EditEntry), args.Error(1)
}

func (m *MockConversationService) ChatPartners(ctx context.Context, viewerID string) ([]domain.ChatPartnerSummary, error) {
	args := m.Called(ctx, viewerID)
	return args.Get(0).([]domain.ChatPartnerSummary), args.Error(1)
}

// MockUserService Mock UserService
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) UpsertProfile(ctx context.Context, userID, fullName, profilePic string) (*domain.UserProfile, error) {
	args := m.Called(ctx, userID, fullName, profilePic)
	if p, ok := args.Get(0).(*domain.UserProfile); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserService) GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	args := m.Called(ctx, userID)
	if p, ok := args.Get(0).(*domain.UserProfile); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserService) Block(ctx context.Context, userID, targetID string) error {
	return m.Called(ctx, userID, targetID).Error(0)
}

func (m *MockUserService) Unblock(ctx context.Context, userID, targetID string) error {
	return m.Called(ctx, userID, targetID).Error(0)
}

func (m *MockUserService) ListBlocked(ctx context.Context, userID string) ([]domain.UserProfile, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.UserProfile), args.Error(1)
}

func (m *MockUserService) RegisterPushToken(ctx context.Context, userID, token string) error {
	return m.Called(ctx, userID, token).Error(0)
}

func (m *MockUserService) RemovePushToken(ctx context.Context, userID, token string) error {
	return m.Called(ctx, userID, token).Error(0)
}

func (m *MockUserService) ListContacts(ctx context.Context, userID string) ([]domain.UserProfile, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.UserProfile), args.Error(1)
}

func (m *MockUserService) Pin(ctx context.Context, userID, targetID string) error {
	return m.Called(ctx, userID, targetID).Error(0)
}

func (m *MockUserService) Unpin(ctx context.Context, userID, targetID string) error {
	return m.Called(ctx, userID, targetID).Error(0)
}

func (m *MockUserService) ListPinned(ctx context.Context, userID string) ([]domain.UserProfile, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.UserProfile), args.Error(1)
}
