package repository

import (
	"context"

	"private_chat_service/internal/chat/domain"
	errprocess "private_chat_service/pkg/err"

	"github.com/go-redis/redis/v8"
)

// SequenceRepository per-conversation monotonic counter
type SequenceRepository interface {
	Next(ctx context.Context, conversationID string) (int64, error)
}

type redisSequenceRepository struct {
	client *redis.Client
}

// NewRedisSequenceRepository create SequenceRepository on redis INCR
func NewRedisSequenceRepository(client *redis.Client) SequenceRepository {
	return &redisSequenceRepository{client: client}
}

func sequenceKey(conversationID string) string {
	return "chat:seq:" + conversationID
}

func (r *redisSequenceRepository) Next(ctx context.Context, conversationID string) (int64, error) {
	n, err := r.client.Incr(ctx, sequenceKey(conversationID)).Result()
	if err != nil {
		return 0, errprocess.WithCause(domain.ErrStorage, "next sequence number", err)
	}
	return n, nil
}
