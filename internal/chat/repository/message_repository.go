package repository

import (
	"context"
	"errors"
	"regexp"

	"private_chat_service/internal/chat/domain"
	errprocess "private_chat_service/pkg/err"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MessageRepository message store
type MessageRepository interface {
	Create(ctx context.Context, m *domain.Message) error
	FindByID(ctx context.Context, id string) (*domain.Message, error)
	// Update compare-and-swap on m.Version, ErrVersionConflict when someone else wrote first
	Update(ctx context.Context, m *domain.Message) error
	// FindConversation messages between viewer and other not deleted for viewer, oldest first
	FindConversation(ctx context.Context, viewer, other string) ([]*domain.Message, error)
	// SearchConversation case-insensitive substring on text, deletions filtered, newest first
	SearchConversation(ctx context.Context, viewer, other, query string) ([]*domain.Message, error)
	// FindByParty every message of viewer not deleted for viewer, newest first
	FindByParty(ctx context.Context, viewer string) ([]*domain.Message, error)
	EnsureIndexes(ctx context.Context) error
}

type chatMessageRepository struct {
	coll *mongo.Collection
}

// NewMongoChatMessageRepository create a MessageRepository
func NewMongoChatMessageRepository(db *mongo.Database) MessageRepository {
	return &chatMessageRepository{
		coll: db.Collection("chat_messages"),
	}
}

func (r *chatMessageRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "sender_id", Value: 1}, {Key: "receiver_id", Value: 1}, {Key: "created_at", Value: 1}}},
		{Keys: bson.D{{Key: "receiver_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "sequence_number", Value: 1}}},
		{Keys: bson.D{{Key: "deleted_by.user_id", Value: 1}}},
	})
	if err != nil {
		return errprocess.WithCause(domain.ErrStorage, "create message indexes", err)
	}
	return nil
}

func (r *chatMessageRepository) Create(ctx context.Context, m *domain.Message) error {
	if _, err := r.coll.InsertOne(ctx, toDocument(m)); err != nil {
		return errprocess.WithCause(domain.ErrStorage, "insert message", err)
	}
	return nil
}

func (r *chatMessageRepository) FindByID(ctx context.Context, id string) (*domain.Message, error) {
	var doc messageDocument
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errprocess.Wrapf(domain.ErrNotFound, "message %s not found", id)
	}
	if err != nil {
		return nil, errprocess.WithCause(domain.ErrStorage, "find message", err)
	}
	return doc.toDomain(), nil
}

func (r *chatMessageRepository) Update(ctx context.Context, m *domain.Message) error {
	doc := toDocument(m)
	doc.Version = m.Version + 1

	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": m.ID, "version": m.Version}, doc)
	if err != nil {
		return errprocess.WithCause(domain.ErrStorage, "update message", err)
	}
	if res.MatchedCount == 0 {
		return errprocess.Wrapf(domain.ErrVersionConflict, "message %s version %d", m.ID, m.Version)
	}
	m.Version = doc.Version
	return nil
}

// notDeletedFor excludes messages the viewer deleted for themselves
func notDeletedFor(viewer string) bson.M {
	return bson.M{"$not": bson.M{"$elemMatch": bson.M{"user_id": viewer, "delete_type": domain.DeleteForMe}}}
}

func pairFilter(a, b string) bson.A {
	return bson.A{
		bson.M{"sender_id": a, "receiver_id": b},
		bson.M{"sender_id": b, "receiver_id": a},
	}
}

func (r *chatMessageRepository) FindConversation(ctx context.Context, viewer, other string) ([]*domain.Message, error) {
	filter := bson.M{
		"$or":        pairFilter(viewer, other),
		"deleted_by": notDeletedFor(viewer),
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "sequence_number", Value: 1}})
	return r.find(ctx, filter, opts)
}

func (r *chatMessageRepository) SearchConversation(ctx context.Context, viewer, other, query string) ([]*domain.Message, error) {
	filter := bson.M{
		"$or": pairFilter(viewer, other),
		"$and": bson.A{
			bson.M{"deleted_by": notDeletedFor(viewer)},
			bson.M{"deleted_by.delete_type": bson.M{"$ne": domain.DeleteForEveryone}},
		},
		"content_kind": bson.M{"$ne": domain.KindEncrypted},
		"text":         bson.M{"$regex": regexp.QuoteMeta(query), "$options": "i"},
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "sequence_number", Value: -1}})
	return r.find(ctx, filter, opts)
}

func (r *chatMessageRepository) FindByParty(ctx context.Context, viewer string) ([]*domain.Message, error) {
	filter := bson.M{
		"$or":        bson.A{bson.M{"sender_id": viewer}, bson.M{"receiver_id": viewer}},
		"deleted_by": notDeletedFor(viewer),
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "sequence_number", Value: -1}})
	return r.find(ctx, filter, opts)
}

func (r *chatMessageRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domain.Message, error) {
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, errprocess.WithCause(domain.ErrStorage, "find messages", err)
	}
	defer cur.Close(ctx)

	var docs []messageDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errprocess.WithCause(domain.ErrStorage, "decode messages", err)
	}

	out := make([]*domain.Message, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}
