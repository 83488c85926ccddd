package repository

import (
	"context"
	"encoding/json"

	"private_chat_service/internal/chat/domain"

	"github.com/segmentio/kafka-go"
)

// JournalRepository append-only log of committed lifecycle changes
type JournalRepository interface {
	Append(ctx context.Context, entry domain.JournalEntry) error
	Close() error
}

type kafkaJournalRepository struct {
	writer *kafka.Writer
}

// NewKafkaJournalRepository create JournalRepository on a kafka topic, keyed by conversation
func NewKafkaJournalRepository(writer *kafka.Writer) JournalRepository {
	return &kafkaJournalRepository{writer: writer}
}

func (r *kafkaJournalRepository) Append(ctx context.Context, entry domain.JournalEntry) error {
	b, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return r.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(entry.ConversationID),
		Value: b,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(entry.Event)},
		},
	})
}

func (r *kafkaJournalRepository) Close() error {
	return r.writer.Close()
}
