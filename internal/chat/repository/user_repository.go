package repository

import (
	"context"
	"time"

	"private_chat_service/internal/chat/domain"
	errprocess "private_chat_service/pkg/err"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository chat profiles, block lists, pins and push tokens
type UserRepository interface {
	AutoMigrate() error
	UpsertProfile(ctx context.Context, p *domain.UserProfile) error
	FindProfile(ctx context.Context, userID string) (*domain.UserProfile, error)
	// FindProfiles missing ids are simply absent from the map
	FindProfiles(ctx context.Context, userIDs []string) (map[string]*domain.UserProfile, error)
	Block(ctx context.Context, userID, blockedID string) error
	Unblock(ctx context.Context, userID, blockedID string) error
	// ListContacts every profile except viewerID and users who blocked viewerID, by name
	ListContacts(ctx context.Context, viewerID string) ([]domain.UserProfile, error)
	Pin(ctx context.Context, userID, pinnedID string) error
	Unpin(ctx context.Context, userID, pinnedID string) error
	// ListPinned pinned ids, oldest pin first
	ListPinned(ctx context.Context, userID string) ([]string, error)
	AddPushToken(ctx context.Context, userID, token string) error
	RemovePushToken(ctx context.Context, userID, token string) error
}

type userRecord struct {
	ID         string `gorm:"primaryKey;size:64"`
	FullName   string `gorm:"size:128"`
	ProfilePic string `gorm:"size:512"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (userRecord) TableName() string { return "chat_users" }

type blockRecord struct {
	UserID    string `gorm:"primaryKey;size:64"`
	BlockedID string `gorm:"primaryKey;size:64;index"`
	CreatedAt time.Time
}

func (blockRecord) TableName() string { return "user_blocks" }

type pinRecord struct {
	UserID    string `gorm:"primaryKey;size:64"`
	PinnedID  string `gorm:"primaryKey;size:64"`
	CreatedAt time.Time
}

func (pinRecord) TableName() string { return "user_pins" }

type pushTokenRecord struct {
	UserID    string `gorm:"primaryKey;size:64"`
	Token     string `gorm:"primaryKey;size:512"`
	CreatedAt time.Time
}

func (pushTokenRecord) TableName() string { return "push_tokens" }

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository create UserRepository on postgreSQL
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&userRecord{}, &blockRecord{}, &pinRecord{}, &pushTokenRecord{})
}

func (r *userRepository) UpsertProfile(ctx context.Context, p *domain.UserProfile) error {
	rec := userRecord{ID: p.ID, FullName: p.FullName, ProfilePic: p.ProfilePic}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"full_name", "profile_pic", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return errprocess.WithCause(domain.ErrStorage, "upsert profile", err)
	}
	return nil
}

func (r *userRepository) FindProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	profiles, err := r.FindProfiles(ctx, []string{userID})
	if err != nil {
		return nil, err
	}
	p, ok := profiles[userID]
	if !ok {
		return nil, errprocess.Wrapf(domain.ErrNotFound, "user %s not found", userID)
	}
	return p, nil
}

func (r *userRepository) FindProfiles(ctx context.Context, userIDs []string) (map[string]*domain.UserProfile, error) {
	out := make(map[string]*domain.UserProfile, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	db := r.db.WithContext(ctx)

	var users []userRecord
	if err := db.Where("id IN ?", userIDs).Find(&users).Error; err != nil {
		return nil, errprocess.WithCause(domain.ErrStorage, "find profiles", err)
	}
	for _, u := range users {
		out[u.ID] = &domain.UserProfile{ID: u.ID, FullName: u.FullName, ProfilePic: u.ProfilePic, BlockedUsers: []string{}}
	}

	var blocks []blockRecord
	if err := db.Where("user_id IN ?", userIDs).Order("created_at").Find(&blocks).Error; err != nil {
		return nil, errprocess.WithCause(domain.ErrStorage, "find blocks", err)
	}
	for _, b := range blocks {
		if p, ok := out[b.UserID]; ok {
			p.BlockedUsers = append(p.BlockedUsers, b.BlockedID)
		}
	}

	var tokens []pushTokenRecord
	if err := db.Where("user_id IN ?", userIDs).Order("created_at").Find(&tokens).Error; err != nil {
		return nil, errprocess.WithCause(domain.ErrStorage, "find push tokens", err)
	}
	for _, t := range tokens {
		if p, ok := out[t.UserID]; ok {
			p.PushTokens = append(p.PushTokens, t.Token)
		}
	}
	return out, nil
}

func (r *userRepository) Block(ctx context.Context, userID, blockedID string) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&blockRecord{UserID: userID, BlockedID: blockedID}).Error
	if err != nil {
		return errprocess.WithCause(domain.ErrStorage, "block user", err)
	}
	return nil
}

func (r *userRepository) Unblock(ctx context.Context, userID, blockedID string) error {
	err := r.db.WithContext(ctx).Where("user_id = ? AND blocked_id = ?", userID, blockedID).Delete(&blockRecord{}).Error
	if err != nil {
		return errprocess.WithCause(domain.ErrStorage, "unblock user", err)
	}
	return nil
}

func (r *userRepository) ListContacts(ctx context.Context, viewerID string) ([]domain.UserProfile, error) {
	blockedViewer := r.db.WithContext(ctx).Model(&blockRecord{}).Select("user_id").Where("blocked_id = ?", viewerID)

	var users []userRecord
	err := r.db.WithContext(ctx).
		Where("id <> ?", viewerID).
		Where("id NOT IN (?)", blockedViewer).
		Order("full_name, id").
		Find(&users).Error
	if err != nil {
		return nil, errprocess.WithCause(domain.ErrStorage, "list contacts", err)
	}

	out := make([]domain.UserProfile, 0, len(users))
	for _, u := range users {
		out = append(out, domain.UserProfile{ID: u.ID, FullName: u.FullName, ProfilePic: u.ProfilePic, BlockedUsers: []string{}})
	}
	return out, nil
}

func (r *userRepository) Pin(ctx context.Context, userID, pinnedID string) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&pinRecord{UserID: userID, PinnedID: pinnedID}).Error
	if err != nil {
		return errprocess.WithCause(domain.ErrStorage, "pin user", err)
	}
	return nil
}

func (r *userRepository) Unpin(ctx context.Context, userID, pinnedID string) error {
	err := r.db.WithContext(ctx).Where("user_id = ? AND pinned_id = ?", userID, pinnedID).Delete(&pinRecord{}).Error
	if err != nil {
		return errprocess.WithCause(domain.ErrStorage, "unpin user", err)
	}
	return nil
}

func (r *userRepository) ListPinned(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&pinRecord{}).
		Where("user_id = ?", userID).
		Order("created_at").
		Pluck("pinned_id", &ids).Error
	if err != nil {
		return nil, errprocess.WithCause(domain.ErrStorage, "list pinned", err)
	}
	return ids, nil
}

func (r *userRepository) AddPushToken(ctx context.Context, userID, token string) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&pushTokenRecord{UserID: userID, Token: token}).Error
	if err != nil {
		return errprocess.WithCause(domain.ErrStorage, "add push token", err)
	}
	return nil
}

func (r *userRepository) RemovePushToken(ctx context.Context, userID, token string) error {
	err := r.db.WithContext(ctx).Where("user_id = ? AND token = ?", userID, token).Delete(&pushTokenRecord{}).Error
	if err != nil {
		return errprocess.WithCause(domain.ErrStorage, "remove push token", err)
	}
	return nil
}
