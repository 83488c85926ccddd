package repository

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"private_chat_service/internal/chat/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFCMServer(t *testing.T, handler func(w http.ResponseWriter, req fcmRequest)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/projects/demo/messages:send", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		b, _ := io.ReadAll(r.Body)
		var req fcmRequest
		require.NoError(t, json.Unmarshal(b, &req))
		handler(w, req)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFCMPush_Success(t *testing.T) {
	var got fcmRequest
	srv := newFCMServer(t, func(w http.ResponseWriter, req fcmRequest) {
		got = req
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"name":"projects/demo/messages/1"}`))
	})

	repo := NewFCMPushRepository(srv.URL, "demo", "secret")
	err := repo.Send(context.Background(), domain.PushNotification{
		Token: "tok-1",
		Title: "New message from Alice",
		Body:  "hi",
		Data:  map[string]string{"type": "MESSAGE", "click_action": "OPEN_CHAT"},
	})

	require.NoError(t, err)
	assert.Equal(t, "tok-1", got.Message.Token)
	assert.Equal(t, "New message from Alice", got.Message.Notification.Title)
	assert.Equal(t, "MESSAGE", got.Message.Data["type"])
}

func TestFCMPush_InvalidTokenClassified(t *testing.T) {
	tests := []struct {
		name string
		code int
		body string
	}{
		{"unregistered", http.StatusNotFound, `{"error":{"code":404,"status":"NOT_FOUND","details":[{"errorCode":"UNREGISTERED"}]}}`},
		{"unregistered without details", http.StatusNotFound, `{"error":{"code":404,"status":"NOT_FOUND","message":"Requested entity was not found."}}`},
		{"invalid token field", http.StatusBadRequest, `{"error":{"code":400,"status":"INVALID_ARGUMENT","message":"The registration token is not a valid FCM registration token","details":[{"errorCode":"INVALID_ARGUMENT"},{"fieldViolations":[{"field":"message.token","description":"Invalid registration token"}]}]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newFCMServer(t, func(w http.ResponseWriter, _ fcmRequest) {
				w.WriteHeader(tt.code)
				_, _ = w.Write([]byte(tt.body))
			})
			err := NewFCMPushRepository(srv.URL, "demo", "secret").Send(context.Background(), domain.PushNotification{Token: "x"})
			assert.True(t, errors.Is(err, domain.ErrTokenInvalid), "got %v", err)
		})
	}
}

// INVALID_ARGUMENT 但不是 token 欄位 (例如 payload 太大) 不可移除 token
func TestFCMPush_PayloadErrorKeepsToken(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"message too big", `{"error":{"code":400,"status":"INVALID_ARGUMENT","message":"Android message is too big","details":[{"errorCode":"INVALID_ARGUMENT"}]}}`},
		{"other field", `{"error":{"code":400,"status":"INVALID_ARGUMENT","message":"bad data","details":[{"fieldViolations":[{"field":"message.data[0].value","description":"Invalid value"}]}]}}`},
		{"no details", `{"error":{"code":400,"status":"INVALID_ARGUMENT","message":"Request contains an invalid argument."}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newFCMServer(t, func(w http.ResponseWriter, _ fcmRequest) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(tt.body))
			})
			err := NewFCMPushRepository(srv.URL, "demo", "secret").Send(context.Background(), domain.PushNotification{Token: "x"})
			require.Error(t, err)
			assert.False(t, errors.Is(err, domain.ErrTokenInvalid), "got %v", err)
		})
	}
}

func TestFCMPush_TransientFailure(t *testing.T) {
	srv := newFCMServer(t, func(w http.ResponseWriter, _ fcmRequest) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"code":503,"status":"UNAVAILABLE","message":"try later"}}`))
	})
	err := NewFCMPushRepository(srv.URL, "demo", "secret").Send(context.Background(), domain.PushNotification{Token: "x"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrTokenInvalid))
}

func TestFCMPush_ExpiredContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	err := NewFCMPushRepository("http://127.0.0.1:1", "demo", "secret").Send(ctx, domain.PushNotification{Token: "x"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
