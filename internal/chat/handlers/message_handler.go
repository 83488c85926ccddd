package handlers

import (
	"context"
	"io"
	"strings"

	"private_chat_service/internal/chat/domain"
	errprocess "private_chat_service/pkg/err"
	"private_chat_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
)

// MessageService lifecycle operations used by the REST surface
type MessageService interface {
	Authorize(ctx context.Context, senderID, receiverID string) error
	Send(ctx context.Context, senderID, receiverID string, content domain.Content) (domain.MessageView, error)
	UploadAttachment(ctx context.Context, fileName, mimeType, caption string, r io.Reader, size int64) (domain.AttachmentContent, error)
	MarkRead(ctx context.Context, actorID, messageID string) (domain.MessageView, error)
	EditMessage(ctx context.Context, actorID, messageID, text string) (domain.MessageView, error)
	DeleteForMe(ctx context.Context, actorID, messageID string) (domain.MessageView, error)
	DeleteForEveryone(ctx context.Context, actorID, messageID string) (domain.MessageView, error)
	React(ctx context.Context, actorID, messageID, emoji string) (domain.MessageView, error)
	Unreact(ctx context.Context, actorID, messageID string) (domain.MessageView, error)
	ClearConversation(ctx context.Context, actorID, otherID string) (int, error)
}

// ConversationService read paths used by the REST surface
type ConversationService interface {
	ListMessages(ctx context.Context, viewerID, otherID string) ([]domain.MessageView, error)
	SearchMessages(ctx context.Context, viewerID, otherID, query string) ([]domain.MessageView, error)
	GetEditHistory(ctx context.Context, viewerID, messageID string) ([]domain.EditEntry, error)
	ChatPartners(ctx context.Context, viewerID string) ([]domain.ChatPartnerSummary, error)
}

// MessageHandler 处理訊息相关的 HTTP 请求
type MessageHandler struct {
	messages       MessageService
	conversations  ConversationService
	maxUploadBytes int64
}

// NewMessageHandler create MessageHandler, maxUploadMB <= 0 means 10MB
func NewMessageHandler(messages MessageService, conversations ConversationService, maxUploadMB int64) *MessageHandler {
	if maxUploadMB <= 0 {
		maxUploadMB = 10
	}
	return &MessageHandler{
		messages:       messages,
		conversations:  conversations,
		maxUploadBytes: maxUploadMB << 20,
	}
}

// SendRequest body of a JSON send
type SendRequest struct {
	Text           string `json:"text" form:"text"`
	Image          string `json:"image" form:"image"`
	MimeType       string `json:"mimeType" form:"mimeType"`
	FileName       string `json:"fileName" form:"fileName"`
	Ciphertext     string `json:"ciphertext" form:"ciphertext"`
	MessageType    string `json:"messageType" form:"messageType"`
	SenderDeviceID int    `json:"senderDeviceId" form:"senderDeviceId"`
}

// TextRequest body of an edit
type TextRequest struct {
	Text string `json:"text"`
}

// EmojiRequest body of a reaction
type EmojiRequest struct {
	Emoji string `json:"emoji"`
}

// ChatPartners conversation summaries of the caller
// @Summary List chat partners
// @Description One summary per partner with last message preview and unread count, newest first
// @Tags Messages
// @Produce json
// @Security BearerAuth
// @Success 200 {array} domain.ChatPartnerSummary
// @Failure 401 {object} map[string]interface{}
// @Router /messages/chats [get]
func (h *MessageHandler) ChatPartners(c *fiber.Ctx) error {
	me, ok := middlewares.MemberID(c)
	if !ok {
		return unauthorized(c)
	}
	summaries, err := h.conversations.ChatPartners(c.UserContext(), me)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(summaries)
}

// ListMessages conversation between the caller and :id
// @Summary List messages with a user
// @Tags Messages
// @Produce json
// @Security BearerAuth
// @Param id path string true "Partner user id"
// @Success 200 {array} domain.MessageView
// @Failure 400 {object} map[string]interface{}
// @Router /messages/{id} [get]
func (h *MessageHandler) ListMessages(c *fiber.Ctx) error {
	me, ok := middlewares.MemberID(c)
	if !ok {
		return unauthorized(c)
	}
	views, err := h.conversations.ListMessages(c.UserContext(), me, c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(views)
}

// Send send a message to :id, JSON or multipart with an `image` file
// @Summary Send a message
// @Tags Messages
// @Accept json,mpfd
// @Produce json
// @Security BearerAuth
// @Param id path string true "Receiver user id"
// @Param request body SendRequest false "Message content"
// @Param image formData file false "Attachment"
// @Success 201 {object} domain.MessageView
// @Failure 400 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /messages/send/{id} [post]
func (h *MessageHandler) Send(c *fiber.Ctx) error {
	me, ok := middlewares.MemberID(c)
	if !ok {
		return unauthorized(c)
	}

	var req SendRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "invalid request"})
	}

	receiverID := c.Params("id")
	content := domain.BuildContent(req.Text, req.Image, req.MimeType, req.FileName, req.Ciphertext, req.MessageType, req.SenderDeviceID)

	if isMultipart(c) {
		if fh, err := c.FormFile("image"); err == nil {
			if fh.Size > h.maxUploadBytes {
				return respondError(c, errprocess.Wrapf(domain.ErrValidation, "file too large, max %d bytes", h.maxUploadBytes))
			}
			// 先檢查封鎖 / 收件者, 被拒絕的訊息不留下孤兒檔案
			if err := h.messages.Authorize(c.UserContext(), me, receiverID); err != nil {
				return respondError(c, err)
			}
			f, err := fh.Open()
			if err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "invalid upload"})
			}
			defer f.Close()

			att, err := h.messages.UploadAttachment(c.UserContext(), fh.Filename, fh.Header.Get(fiber.HeaderContentType), req.Text, f, fh.Size)
			if err != nil {
				return respondError(c, err)
			}
			content = att
		}
	}

	view, err := h.messages.Send(c.UserContext(), me, receiverID, content)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Message sent successfully",
		"data":    view,
	})
}

func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm)
}

// MarkRead mark :messageId as read
// @Summary Mark a message as read
// @Tags Messages
// @Produce json
// @Security BearerAuth
// @Param messageId path string true "Message id"
// @Success 200 {object} domain.MessageView
// @Failure 403 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /messages/read/{messageId} [put]
func (h *MessageHandler) MarkRead(c *fiber.Ctx) error {
	me, ok := middlewares.MemberID(c)
	if !ok {
		return unauthorized(c)
	}
	view, err := h.messages.MarkRead(c.UserContext(), me, c.Params("messageId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": view})
}

// Search text search in the conversation with :userId
// @Summary Search messages with a user
// @Tags Messages
// @Produce json
// @Security BearerAuth
// @Param userId path string true "Partner user id"
// @Param q query string true "Search text"
// @Success 200 {array} domain.MessageView
// @Router /messages/search/{userId} [get]
func (h *MessageHandler) Search(c *fiber.Ctx) error {
	me, ok := middlewares.MemberID(c)
	if !ok {
		return unauthorized(c)
	}
	views, err := h.conversations.SearchMessages(c.UserContext(), me, c.Params("userId"), c.Query("q"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(views)
}

// DeleteForMe hide :messageId for the caller
// @Summary Delete a message for me
// @Tags Messages
// @Produce json
// @Security BearerAuth
// @Param messageId path string true "Message id"
// @Success 200 {object} domain.MessageView
// @Failure 409 {object} map[string]interface{}
// @Router /messages/delete-for-me/{messageId} [delete]
func (h *MessageHandler) DeleteForMe(c *fiber.Ctx) error {
	me, ok := middlewares.MemberID(c)
	if !ok {
		return unauthorized(c)
	}
	view, err := h.messages.DeleteForMe(c.UserContext(), me, c.Params("messageId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "Message deleted for you", "data": view})
}

// DeleteForEveryone redact :messageId for both parties
// @Summary Delete a message for everyone
// @Tags Messages
// @Produce json
// @Security BearerAuth
// @Param messageId path string true "Message id"
// @Success 200 {object} domain.MessageView
// @Failure 403 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /messages/delete-for-everyone/{messageId} [delete]
func (h *MessageHandler) DeleteForEveryone(c *fiber.Ctx) error {
	me, ok := middlewares.MemberID(c)
	if !ok {
		return unauthorized(c)
	}
	view, err := h.messages.DeleteForEveryone(c.UserContext(), me, c.Params("messageId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "Message deleted for everyone", "data": view})
}

// ClearChat delete-for-me the whole conversation with :userId
// @Summary Clear a chat for me
// @Tags Messages
// @Produce json
// @Security BearerAuth
// @Param userId path string true "Partner user id"
// @Success 200 {object} map[string]interface{}
// @Router /messages/clear-chat/{userId} [delete]
func (h *MessageHandler) ClearChat(c *fiber.Ctx) error {
	me, ok := middlewares.MemberID(c)
	if !ok {
		return unauthorized(c)
	}
	n, err := h.messages.ClearConversation(c.UserContext(), me, c.Params("userId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "cleared": n})
}

// Edit replace the text of :messageId
// @Summary Edit a message
// @Tags Messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param messageId path string true "Message id"
// @Param request body TextRequest true "New text"
// @Success 200 {object} domain.MessageView
// @Failure 400 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /messages/edit/{messageId} [put]
func (h *MessageHandler) Edit(c *fiber.Ctx) error {
	me, ok := middlewares.MemberID(c)
	if !ok {
		return unauthorized(c)
	}
	var req TextRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "invalid request"})
	}
	view, err := h.messages.EditMessage(c.UserContext(), me, c.Params("messageId"), req.Text)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": view})
}

// EditHistory snapshots of :messageId
// @Summary Get the edit history of a message
// @Tags Messages
// @Produce json
// @Security BearerAuth
// @Param messageId path string true "Message id"
// @Success 200 {array} domain.EditEntry
// @Router /messages/edit-history/{messageId} [get]
func (h *MessageHandler) EditHistory(c *fiber.Ctx) error {
	me, ok := middlewares.MemberID(c)
	if !ok {
		return unauthorized(c)
	}
	history, err := h.conversations.GetEditHistory(c.UserContext(), me, c.Params("messageId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "editHistory": history})
}

// React set the caller's reaction on :messageId
// @Summary React to a message
// @Tags Messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param messageId path string true "Message id"
// @Param request body EmojiRequest true "Emoji"
// @Success 200 {object} domain.MessageView
// @Router /messages/react/{messageId} [post]
func (h *MessageHandler) React(c *fiber.Ctx) error {
	me, ok := middlewares.MemberID(c)
	if !ok {
		return unauthorized(c)
	}
	var req EmojiRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "invalid request"})
	}
	view, err := h.messages.React(c.UserContext(), me, c.Params("messageId"), req.Emoji)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": view})
}

// Unreact remove the caller's reaction on :messageId
// @Summary Remove a reaction
// @Tags Messages
// @Produce json
// @Security BearerAuth
// @Param messageId path string true "Message id"
// @Success 200 {object} domain.MessageView
// @Failure 400 {object} map[string]interface{}
// @Router /messages/react/{messageId} [delete]
func (h *MessageHandler) Unreact(c *fiber.Ctx) error {
	me, ok := middlewares.MemberID(c)
	if !ok {
		return unauthorized(c)
	}
	view, err := h.messages.Unreact(c.UserContext(), me, c.Params("messageId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": view})
}
