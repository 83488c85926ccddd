package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"private_chat_service/internal/chat/domain"
	errprocess "private_chat_service/pkg/err"

	"github.com/gofiber/fiber/v2"
)

const defaultPushTimeout = 5 * time.Second

// PushRepository push transport, one token per call
type PushRepository interface {
	// Send returns domain.ErrTokenInvalid when the token should be dropped
	Send(ctx context.Context, n domain.PushNotification) error
}

type fcmPushRepository struct {
	endpoint    string
	projectID   string
	accessToken string
}

// NewFCMPushRepository create PushRepository on FCM HTTP v1
func NewFCMPushRepository(endpoint, projectID, accessToken string) PushRepository {
	if endpoint == "" {
		endpoint = "https://fcm.googleapis.com"
	}
	return &fcmPushRepository{
		endpoint:    strings.TrimRight(endpoint, "/"),
		projectID:   projectID,
		accessToken: accessToken,
	}
}

type fcmRequest struct {
	Message fcmMessage `json:"message"`
}

type fcmMessage struct {
	Token        string            `json:"token"`
	Notification fcmNotification   `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
	Android      *fcmAndroid       `json:"android,omitempty"`
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type fcmAndroid struct {
	Priority     string                 `json:"priority"`
	Notification map[string]interface{} `json:"notification,omitempty"`
}

type fcmErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Status  string `json:"status"`
		Message string `json:"message"`
		Details []struct {
			ErrorCode       string `json:"errorCode"`
			FieldViolations []struct {
				Field       string `json:"field"`
				Description string `json:"description"`
			} `json:"fieldViolations"`
		} `json:"details"`
	} `json:"error"`
}

func (r *fcmPushRepository) Send(ctx context.Context, n domain.PushNotification) error {
	timeout := defaultPushTimeout
	if dl, ok := ctx.Deadline(); ok {
		timeout = time.Until(dl)
	}
	if timeout <= 0 {
		return context.DeadlineExceeded
	}

	req := fcmRequest{Message: fcmMessage{
		Token:        n.Token,
		Notification: fcmNotification{Title: n.Title, Body: n.Body},
		Data:         n.Data,
		Android:      &fcmAndroid{Priority: "high"},
	}}
	if action := n.Data["click_action"]; action != "" {
		req.Message.Android.Notification = map[string]interface{}{"click_action": action}
	}

	agent := fiber.Post(fmt.Sprintf("%s/v1/projects/%s/messages:send", r.endpoint, r.projectID))
	agent.Set(fiber.HeaderAuthorization, "Bearer "+r.accessToken)
	agent.JSON(req)
	agent.Timeout(timeout)

	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("push transport: %w", errs[0])
	}
	if code >= 200 && code < 300 {
		return nil
	}
	return classifyFCMError(code, body)
}

const fcmTokenField = "message.token"

// classifyFCMError only an unregistered token, or an INVALID_ARGUMENT naming the token field, is permanent.
// INVALID_ARGUMENT is also used for payload problems (message too big...), those keep the token.
func classifyFCMError(code int, body []byte) error {
	var eb fcmErrorBody
	_ = json.Unmarshal(body, &eb)

	tokenRejected := false
	for _, d := range eb.Error.Details {
		if d.ErrorCode == "UNREGISTERED" {
			return errprocess.Wrapf(domain.ErrTokenInvalid, "fcm %d %s", code, d.ErrorCode)
		}
		for _, v := range d.FieldViolations {
			if v.Field == fcmTokenField {
				tokenRejected = true
			}
		}
	}
	if code == fiber.StatusNotFound {
		return errprocess.Wrapf(domain.ErrTokenInvalid, "fcm %d %s", code, eb.Error.Status)
	}
	if code == fiber.StatusBadRequest && eb.Error.Status == "INVALID_ARGUMENT" && tokenRejected {
		return errprocess.Wrapf(domain.ErrTokenInvalid, "fcm %d %s %s", code, eb.Error.Status, fcmTokenField)
	}
	return fmt.Errorf("fcm status %d %s: %s", code, eb.Error.Status, eb.Error.Message)
}
