package app

import (
	"context"
	"strings"

	"private_chat_service/internal/chat/domain"
	"private_chat_service/internal/chat/repository"
	errprocess "private_chat_service/pkg/err"
	"private_chat_service/pkg/logger"

	"go.uber.org/zap"
)

// UserUseCase chat profile, contacts, block list, pins and push tokens
type UserUseCase struct {
	userRepo repository.UserRepository
}

// NewUserUseCase create UserUseCase
func NewUserUseCase(userRepo repository.UserRepository) *UserUseCase {
	return &UserUseCase{userRepo: userRepo}
}

// UpsertProfile create or update the caller's profile
func (uc *UserUseCase) UpsertProfile(ctx context.Context, userID, fullName, profilePic string) (*domain.UserProfile, error) {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return nil, errprocess.Wrap(domain.ErrValidation, "full name is required")
	}
	p := &domain.UserProfile{ID: userID, FullName: fullName, ProfilePic: strings.TrimSpace(profilePic)}
	if err := uc.userRepo.UpsertProfile(ctx, p); err != nil {
		return nil, err
	}
	return uc.userRepo.FindProfile(ctx, userID)
}

// GetProfile profile of userID
func (uc *UserUseCase) GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	return uc.userRepo.FindProfile(ctx, userID)
}

// Block add targetID to the caller's block list
func (uc *UserUseCase) Block(ctx context.Context, userID, targetID string) error {
	if targetID == "" || targetID == userID {
		return errprocess.Wrap(domain.ErrValidation, "cannot block yourself")
	}
	if _, err := uc.userRepo.FindProfile(ctx, targetID); err != nil {
		return err
	}
	if err := uc.userRepo.Block(ctx, userID, targetID); err != nil {
		return err
	}
	logger.Log.Info("user blocked", zap.String("userID", userID), zap.String("blockedID", targetID))
	return nil
}

// Unblock remove targetID from the caller's block list
func (uc *UserUseCase) Unblock(ctx context.Context, userID, targetID string) error {
	if targetID == "" || targetID == userID {
		return errprocess.Wrap(domain.ErrValidation, "cannot unblock yourself")
	}
	return uc.userRepo.Unblock(ctx, userID, targetID)
}

// ListBlocked profiles the caller blocked, ids without a profile are listed by id only
func (uc *UserUseCase) ListBlocked(ctx context.Context, userID string) ([]domain.UserProfile, error) {
	me, err := uc.userRepo.FindProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	return uc.profilesInOrder(ctx, me.BlockedUsers)
}

// ListContacts everyone the caller can write to: not themselves, not anyone who blocked them
func (uc *UserUseCase) ListContacts(ctx context.Context, userID string) ([]domain.UserProfile, error) {
	return uc.userRepo.ListContacts(ctx, userID)
}

// Pin keep targetID on top of the caller's chat list
func (uc *UserUseCase) Pin(ctx context.Context, userID, targetID string) error {
	if targetID == "" || targetID == userID {
		return errprocess.Wrap(domain.ErrValidation, "cannot pin yourself")
	}
	if _, err := uc.userRepo.FindProfile(ctx, targetID); err != nil {
		return err
	}
	return uc.userRepo.Pin(ctx, userID, targetID)
}

// Unpin drop targetID from the caller's pins
func (uc *UserUseCase) Unpin(ctx context.Context, userID, targetID string) error {
	if targetID == "" || targetID == userID {
		return errprocess.Wrap(domain.ErrValidation, "cannot unpin yourself")
	}
	return uc.userRepo.Unpin(ctx, userID, targetID)
}

// ListPinned profiles the caller pinned, oldest pin first
func (uc *UserUseCase) ListPinned(ctx context.Context, userID string) ([]domain.UserProfile, error) {
	ids, err := uc.userRepo.ListPinned(ctx, userID)
	if err != nil {
		return nil, err
	}
	return uc.profilesInOrder(ctx, ids)
}

func (uc *UserUseCase) profilesInOrder(ctx context.Context, ids []string) ([]domain.UserProfile, error) {
	profiles, err := uc.userRepo.FindProfiles(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]domain.UserProfile, 0, len(ids))
	for _, id := range ids {
		if p, ok := profiles[id]; ok {
			out = append(out, domain.UserProfile{ID: p.ID, FullName: p.FullName, ProfilePic: p.ProfilePic, BlockedUsers: []string{}})
			continue
		}
		out = append(out, domain.UserProfile{ID: id, BlockedUsers: []string{}})
	}
	return out, nil
}

// RegisterPushToken add a device token for the caller
func (uc *UserUseCase) RegisterPushToken(ctx context.Context, userID, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errprocess.Wrap(domain.ErrValidation, "push token is required")
	}
	return uc.userRepo.AddPushToken(ctx, userID, token)
}

// RemovePushToken drop a device token of the caller
func (uc *UserUseCase) RemovePushToken(ctx context.Context, userID, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errprocess.Wrap(domain.ErrValidation, "push token is required")
	}
	return uc.userRepo.RemovePushToken(ctx, userID, token)
}
