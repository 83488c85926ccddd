package handlers

import (
	"context"

	"private_chat_service/internal/chat/domain"
	"private_chat_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
)

// UserService profile, contacts, block list, pins and push tokens
type UserService interface {
	UpsertProfile(ctx context.Context, userID, fullName, profilePic string) (*domain.UserProfile, error)
	GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error)
	Block(ctx context.Context, userID, targetID string) error
	Unblock(ctx context.Context, userID, targetID string) error
	ListBlocked(ctx context.Context, userID string) ([]domain.UserProfile, error)
	ListContacts(ctx context.Context, userID string) ([]domain.UserProfile, error)
	Pin(ctx context.Context, userID, targetID string) error
	Unpin(ctx context.Context, userID, targetID string) error
	ListPinned(ctx context.Context, userID string) ([]domain.UserProfile, error)
	RegisterPushToken(ctx context.Context, userID, token string) error
	RemovePushToken(ctx context.Context, userID, token string) error
}

// UserHandler 处理用户相关的 HTTP 请求
type UserHandler struct {
	users UserService
}

// NewUserHandler create UserHandler
func NewUserHandler(users UserService) *UserHandler {
	return &UserHandler{users: users}
}

// ProfileRequest body of a profile update
type ProfileRequest struct {
	FullName   string `json:"fullName"`
	ProfilePic string `json:"profilePic"`
}

// PushTokenRequest body of a token registration
type PushTokenRequest struct {
	Token string `json:"token"`
}

// GetProfile caller's chat profile
// @Summary Get my profile
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} domain.UserProfile
// @Failure 404 {object} map[string]interface{}
// @Router /users/profile [get]
func (h *UserHandler) GetProfile(c *fiber.Ctx) error {
	me, ok := middlewares.MemberID(c)
	if !ok {
		return unauthorized(c)
	}
	p, err := h.users.GetProfile(c.UserContext(), me)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(p)
}

// UpsertProfile create or update the caller's chat profile
// @Summary Update my profile
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ProfileRequest true "Profile"
// @Success 200 {object} domain.UserProfile
// @Failure 400 {object} map[string]interface{}
// @Router /users/profile [put]
func (h *UserHandler) UpsertProfile(c *fiber.Ctx) error {
	me, ok := middlewares.MemberID(c)
	if !ok {
		return unauthorized(c)
	}
	var req ProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "invalid request"})
	}
	p, err := h.users.UpsertProfile(c.UserContext(), me, req.FullName, req.ProfilePic)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(p)
}

// Block block :id
// @Summary Block a user
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User id"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /users/block/{id} [post]
func (h *UserHandler) Block(c *fiber.Ctx) error {
	me, ok := middlewares.MemberID(c)
	if !ok {
		return unauthorized(c)
	}
	if err := h.users.Block(c.UserContext(), me, c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "User blocked successfully"})
}

// Unblock unblock :id
// @Summary Unblock a user
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User id"
// @Success 200 {object} map[string]interface{}
// @Router /users/unblock/{id} [post]
func (h *UserHandler) Unblock(c *fiber.Ctx) error {
	me, ok := middlewares.MemberID(c)
	if !ok {
		return unauthorized(c)
	}
	if err := h.users.Unblock(c.UserContext(), me, c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "User unblocked successfully"})
}

// ListBlocked users the caller blocked
// @Summary List blocked users
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Success 200 {array} domain.UserProfile
// @Router /users/blocked [get]
func (h *UserHandler) ListBlocked(c *fiber.Ctx) error {
	me, ok := middlewares.MemberID(c)
	if !ok {
		return unauthorized(c)
	}
	users, err := h.users.ListBlocked(c.UserContext(), me)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(users)
}

// ListContacts users the caller can chat with
// @Summary List contacts
// @Description Every user except the caller and users who blocked the caller
// @Tags Messages
// @Produce json
// @Security BearerAuth
// @Success 200 {array} domain.UserProfile
// @Failure 401 {object} map[string]interface{}
// @Router /messages/contacts [get]
func (h *UserHandler) ListContacts(c *fiber.Ctx) error {
	me, ok := middlewares.MemberID(c)
	if !ok {
		return unauthorized(c)
	}
	users, err := h.users.ListContacts(c.UserContext(), me)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(users)
}

// Pin pin :id
// @Summary Pin a user
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User id"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /users/pin/{id} [post]
func (h *UserHandler) Pin(c *fiber.Ctx) error {
	me, ok := middlewares.MemberID(c)
	if !ok {
		return unauthorized(c)
	}
	if err := h.users.Pin(c.UserContext(), me, c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "User pinned successfully"})
}

// Unpin unpin :id
// @Summary Unpin a user
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User id"
// @Success 200 {object} map[string]interface{}
// @Router /users/unpin/{id} [post]
func (h *UserHandler) Unpin(c *fiber.Ctx) error {
	me, ok := middlewares.MemberID(c)
	if !ok {
		return unauthorized(c)
	}
	if err := h.users.Unpin(c.UserContext(), me, c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "User unpinned successfully"})
}

// ListPinned users the caller pinned
// @Summary List pinned users
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Success 200 {array} domain.UserProfile
// @Router /users/pinned [get]
func (h *UserHandler) ListPinned(c *fiber.Ctx) error {
	me, ok := middlewares.MemberID(c)
	if !ok {
		return unauthorized(c)
	}
	users, err := h.users.ListPinned(c.UserContext(), me)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(users)
}

// RegisterPushToken add a device token
// @Summary Register a push token
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body PushTokenRequest true "Device token"
// @Success 200 {object} map[string]interface{}
// @Router /users/push-tokens [post]
func (h *UserHandler) RegisterPushToken(c *fiber.Ctx) error {
	me, ok := middlewares.MemberID(c)
	if !ok {
		return unauthorized(c)
	}
	var req PushTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "invalid request"})
	}
	if err := h.users.RegisterPushToken(c.UserContext(), me, req.Token); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// RemovePushToken drop a device token
// @Summary Remove a push token
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body PushTokenRequest true "Device token"
// @Success 200 {object} map[string]interface{}
// @Router /users/push-tokens [delete]
func (h *UserHandler) RemovePushToken(c *fiber.Ctx) error {
	me, ok := middlewares.MemberID(c)
	if !ok {
		return unauthorized(c)
	}
	var req PushTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "invalid request"})
	}
	if err := h.users.RemovePushToken(c.UserContext(), me, req.Token); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}
