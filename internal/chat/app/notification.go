package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"private_chat_service/internal/chat/domain"
	"private_chat_service/internal/chat/repository"
	"private_chat_service/pkg/logger"
	"private_chat_service/pkg/metrics"

	"go.uber.org/zap"
)

const (
	defaultPushTimeout = 5 * time.Second
	pushBodyFallback   = "New message"
	pushMessageType    = "MESSAGE"

	// FCM 單則 payload 上限 4KB, body 只放預覽
	pushBodyMaxRunes = 120
)

// DispatchResult per-token outcome counts of one dispatch
type DispatchResult struct {
	Sent    int
	Failed  int
	Pruned  int
	Timeout int
}

// NotificationDispatcher one independent push per device token of the receiver
type NotificationDispatcher struct {
	push        repository.PushRepository
	users       repository.UserRepository
	timeout     time.Duration
	clickAction string
}

// NewNotificationDispatcher create NotificationDispatcher
func NewNotificationDispatcher(push repository.PushRepository, users repository.UserRepository, timeout time.Duration, clickAction string) *NotificationDispatcher {
	if timeout <= 0 {
		timeout = defaultPushTimeout
	}
	return &NotificationDispatcher{
		push:        push,
		users:       users,
		timeout:     timeout,
		clickAction: clickAction,
	}
}

// BuildNotification title / body / data for one token
func (d *NotificationDispatcher) BuildNotification(token string, sender *domain.UserProfile, m *domain.Message) domain.PushNotification {
	name := m.SenderID
	if sender != nil && sender.FullName != "" {
		name = sender.FullName
	}

	body := pushBodyFallback
	switch c := m.Content.(type) {
	case domain.EncryptedContent:
		body = domain.PreviewEncrypted
	case domain.PlaintextContent:
		body = domain.Truncate(c.Text, pushBodyMaxRunes)
	case domain.AttachmentContent:
		switch {
		case c.Caption != "":
			body = domain.Truncate(c.Caption, pushBodyMaxRunes)
		case c.IsImage():
			body = domain.PreviewImage
		}
	}

	data := map[string]string{
		"type":      pushMessageType,
		"senderId":  m.SenderID,
		"messageId": m.ID,
		"chatId":    m.ConversationID,
	}
	if d.clickAction != "" {
		data["click_action"] = d.clickAction
	}

	return domain.PushNotification{
		Token: token,
		Title: "New message from " + name,
		Body:  body,
		Data:  data,
	}
}

// Dispatch 對每個 token 各自送出, 互不影響; 無效 token 會被移除, 不重試
func (d *NotificationDispatcher) Dispatch(ctx context.Context, sender, receiver *domain.UserProfile, m *domain.Message) DispatchResult {
	var (
		res DispatchResult
		mu  sync.Mutex
		wg  sync.WaitGroup
	)
	if receiver == nil {
		return res
	}

	for _, token := range receiver.PushTokens {
		wg.Add(1)
		go func(token string) {
			defer wg.Done()
			outcome := d.sendOne(ctx, receiver.ID, d.BuildNotification(token, sender, m))

			mu.Lock()
			switch outcome {
			case metrics.PushSent:
				res.Sent++
			case metrics.PushPruned:
				res.Pruned++
			case metrics.PushTimeout:
				res.Timeout++
			default:
				res.Failed++
			}
			mu.Unlock()
		}(token)
	}
	wg.Wait()
	return res
}

func (d *NotificationDispatcher) sendOne(ctx context.Context, userID string, n domain.PushNotification) string {
	tctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	outcome := metrics.PushSent
	err := d.push.Send(tctx, n)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrTokenInvalid):
		outcome = metrics.PushPruned
		if rmErr := d.users.RemovePushToken(ctx, userID, n.Token); rmErr != nil {
			logger.Log.Error("remove invalid push token failed", zap.String("userID", userID), zap.Error(rmErr))
		}
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(tctx.Err(), context.DeadlineExceeded):
		outcome = metrics.PushTimeout
	default:
		outcome = metrics.PushFailed
	}

	if err != nil {
		logger.Log.Warn("push notification failed", zap.String("userID", userID), zap.String("result", outcome), zap.Error(err))
	}
	metrics.PushNotifications.WithLabelValues(outcome).Inc()
	return outcome
}
