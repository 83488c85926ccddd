package app

import (
	"context"
	"encoding/json"
	"time"

	"private_chat_service/internal/chat/domain"
	"private_chat_service/pkg/logger"
	"private_chat_service/pkg/middlewares"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

// ChatWebsocketHandler 可包含所有需要的 UseCase
type ChatWebsocketHandler struct {
	messageUC *MessageUseCase
	presence  *PresenceRegistry
	emitter   *EventEmitter
	queueSize int
}

// NewChatWebsocketHandler create ChatWebsocketHandler
func NewChatWebsocketHandler(messageUC *MessageUseCase, presence *PresenceRegistry, emitter *EventEmitter, queueSize int) *ChatWebsocketHandler {
	return &ChatWebsocketHandler{
		messageUC: messageUC,
		presence:  presence,
		emitter:   emitter,
		queueSize: queueSize,
	}
}

// HandleConnection 是 WebSocket 連線的進入點
func (h *ChatWebsocketHandler) HandleConnection(conn *websocket.Conn) {
	memberID, _ := conn.Locals(middlewares.TokenMemberID).(string)
	if memberID == "" {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "unauthorized"))
		_ = conn.Close()
		return
	}

	client := NewWSClient(memberID, conn, h.queueSize)
	ctx, cancel := context.WithCancel(context.Background())

	// last connect wins, 舊連線直接關閉
	if prev := h.presence.Connect(memberID, client); prev != nil {
		logger.Log.Info("websocket replaced", zap.String("userID", memberID))
		prev.Close()
	}
	logger.Log.Info("websocket connected", zap.String("userID", memberID))
	h.emitter.BroadcastOnlineUsers()

	go client.WritePump()

	//server發出ping之後client連線正常會回pong
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// writePump 結束 (寫入失敗 / 被新連線取代) 時中斷讀取
	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		select {
		case <-client.Done():
			_ = conn.SetReadDeadline(time.Now())
		case <-ctx.Done():
		}
	}()

	// 返回後 fiber 會把 conn 放回 pool, 所有用到 conn 的 goroutine 必須先結束
	defer func() {
		cancel()
		<-watchDone
		if h.presence.Disconnect(memberID, client) {
			h.emitter.BroadcastOnlineUsers()
		}
		client.Close()
		<-client.Stopped()
		logger.Log.Info("websocket close", zap.String("userID", memberID))
	}()

	for {
		mt, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Log.Warn("websocket read error", zap.String("userID", memberID), zap.Error(err))
			}
			return
		}
		if mt != websocket.TextMessage {
			client.Send(domain.WSResponse{Success: false, Error: "unsupported frame type"})
			continue
		}
		client.Send(h.textMessageAction(ctx, memberID, message))
	}
}

func (h *ChatWebsocketHandler) textMessageAction(ctx context.Context, memberID string, msg []byte) domain.WSResponse {
	var req domain.WSRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		logger.Log.Debug("websocket json unmarshal error", zap.Error(err))
		return domain.WSResponse{Success: false, Error: "invalid message format"}
	}
	return h.handleRequest(ctx, memberID, req)
}

// handleRequest run one client action and build its reply
func (h *ChatWebsocketHandler) handleRequest(ctx context.Context, memberID string, req domain.WSRequest) domain.WSResponse {
	resp := domain.WSResponse{Action: req.Action}

	var (
		payload interface{}
		err     error
	)
	switch domain.Action(req.Action) {
	case domain.SendMessage:
		payload, err = h.messageUC.Send(ctx, memberID, req.To, req.Content())
	case domain.ReadMessage:
		payload, err = h.messageUC.MarkRead(ctx, memberID, req.MessageID)
	case domain.EditMessage:
		payload, err = h.messageUC.EditMessage(ctx, memberID, req.MessageID, req.Text)
	case domain.DeleteMessageForMe:
		payload, err = h.messageUC.DeleteForMe(ctx, memberID, req.MessageID)
	case domain.DeleteMessageForEveryone:
		payload, err = h.messageUC.DeleteForEveryone(ctx, memberID, req.MessageID)
	case domain.ReactMessage:
		payload, err = h.messageUC.React(ctx, memberID, req.MessageID, req.Emoji)
	case domain.UnreactMessage:
		payload, err = h.messageUC.Unreact(ctx, memberID, req.MessageID)

	//typing 只轉發, 不落地
	case domain.Typing:
		h.emitter.Emit(req.To, domain.EventTyping, domain.TypingPayload{From: memberID})
	case domain.StopTyping:
		h.emitter.Emit(req.To, domain.EventStopTyping, domain.TypingPayload{From: memberID})

	default:
		resp.Error = "unknown action"
		return resp
	}

	if err != nil {
		logger.Log.Debug("websocket action failed", zap.String("action", req.Action), zap.String("userID", memberID), zap.Error(err))
		resp.Error = err.Error()
		return resp
	}
	resp.Success = true
	resp.Payload = payload
	return resp
}
