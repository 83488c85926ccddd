package app

import (
	"strconv"

	"private_chat_service/internal/chat/domain"
	"private_chat_service/pkg/logger"
	"private_chat_service/pkg/metrics"

	"go.uber.org/zap"
)

// EventEmitter fire-and-forget delivery of realtime events
type EventEmitter struct {
	presence *PresenceRegistry
}

// NewEventEmitter create EventEmitter
func NewEventEmitter(presence *PresenceRegistry) *EventEmitter {
	return &EventEmitter{presence: presence}
}

// Emit push event to userID if they are connected, silently dropped otherwise
func (e *EventEmitter) Emit(userID string, event domain.Event, payload interface{}) bool {
	delivered := false
	if conn, ok := e.presence.Lookup(userID); ok {
		delivered = conn.Send(domain.WSResponse{Action: string(event), Success: true, Payload: payload})
		if !delivered {
			logger.Log.Warn("realtime event dropped", zap.String("userID", userID), zap.String("event", string(event)))
		}
	}
	metrics.RealtimeEvents.WithLabelValues(string(event), strconv.FormatBool(delivered)).Inc()
	return delivered
}

// BroadcastOnlineUsers send the current online list to every live connection
func (e *EventEmitter) BroadcastOnlineUsers() {
	online := e.presence.OnlineUsers()
	for userID, conn := range e.presence.snapshot() {
		delivered := conn.Send(domain.WSResponse{Action: string(domain.EventOnlineUsers), Success: true, Payload: online})
		if !delivered {
			logger.Log.Debug("onlineUsers dropped", zap.String("userID", userID))
		}
		metrics.RealtimeEvents.WithLabelValues(string(domain.EventOnlineUsers), strconv.FormatBool(delivered)).Inc()
	}
}
