package app

import (
	"encoding/json"
	"sync"
	"time"

	"private_chat_service/internal/chat/domain"
	"private_chat_service/pkg/logger"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 64 * 1024

	defaultSendQueueSize = 256
)

// wsConn the part of *websocket.Conn the write side needs
type wsConn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// WSClient one websocket connection, every write goes through the send queue
type WSClient struct {
	userID string
	conn   wsConn

	// Buffered channel of outbound frames
	send chan []byte

	done      chan struct{}
	closeOnce sync.Once

	// pumpDone closed when WritePump returned, conn is no longer touched after that
	pumpDone chan struct{}
}

// NewWSClient create WSClient
func NewWSClient(userID string, conn wsConn, queueSize int) *WSClient {
	if queueSize <= 0 {
		queueSize = defaultSendQueueSize
	}
	return &WSClient{
		userID:   userID,
		conn:     conn,
		send:     make(chan []byte, queueSize),
		done:     make(chan struct{}),
		pumpDone: make(chan struct{}),
	}
}

// UserID owner of the connection
func (c *WSClient) UserID() string {
	return c.userID
}

// Send 非阻塞, queue 滿或已關閉時丟棄
func (c *WSClient) Send(resp domain.WSResponse) bool {
	b, err := json.Marshal(resp)
	if err != nil {
		logger.Log.Error("websocket marshal failed", zap.String("action", resp.Action), zap.Error(err))
		return false
	}

	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- b:
		return true
	default:
		return false
	}
}

// Close stop the write pump, safe to call more than once
func (c *WSClient) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Done closed once the client is shut down
func (c *WSClient) Done() <-chan struct{} {
	return c.done
}

// Stopped closed once WritePump returned
func (c *WSClient) Stopped() <-chan struct{} {
	return c.pumpDone
}

// WritePump drain the send queue and keep the connection alive with pings.
// Must run at most once per client.
func (c *WSClient) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
		close(c.pumpDone)
	}()

	for {
		select {
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Log.Warn("websocket write failed", zap.String("userID", c.userID), zap.Error(err))
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logger.Log.Warn("websocket ping failed", zap.String("userID", c.userID), zap.Error(err))
				return
			}

		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
