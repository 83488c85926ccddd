package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// MessageOperations counts lifecycle operations by name and outcome
	MessageOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chat",
			Name:      "message_operations_total",
			Help:      "Message lifecycle operations by operation and result.",
		},
		[]string{"op", "result"},
	)

	// RealtimeEvents counts emitted events, delivered=false when the target had no live connection or a full queue
	RealtimeEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chat",
			Name:      "realtime_events_total",
			Help:      "Realtime events emitted to live connections.",
		},
		[]string{"event", "delivered"},
	)

	// PushNotifications counts per-token push outcomes
	PushNotifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chat",
			Name:      "push_notifications_total",
			Help:      "Push notification attempts per device token.",
		},
		[]string{"result"},
	)

	// OnlineUsers current size of the presence registry
	OnlineUsers = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "chat",
		Name:      "online_users",
		Help:      "Users with a live connection.",
	})
)

// push outcome labels
const (
	PushSent    = "sent"
	PushFailed  = "failed"
	PushTimeout = "timeout"
	PushPruned  = "pruned"
)

func init() {
	prometheus.MustRegister(MessageOperations, RealtimeEvents, PushNotifications, OnlineUsers)
}

// ObserveOperation record one lifecycle operation result
func ObserveOperation(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	MessageOperations.WithLabelValues(op, result).Inc()
}
