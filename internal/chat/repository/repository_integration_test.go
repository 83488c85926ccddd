package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"private_chat_service/internal/chat/domain"
	"private_chat_service/pkg/database"
	testtool "private_chat_service/pkg/test_tool"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// 需要 docker, go test -short 時略過
func startContainer(t *testing.T, req testcontainers.ContainerRequest) (string, string) {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test skipped in -short mode")
	}
	ctx := context.Background()
	c, host, port, err := testtool.SetupContainer(ctx, req)
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	t.Cleanup(func() { _ = c.Terminate(ctx) })
	return host, port
}

func setupMessageRepo(t *testing.T) MessageRepository {
	host, port := startContainer(t, testcontainers.ContainerRequest{
		Image:        "mongo:7",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   wait.ForListeningPort("27017/tcp"),
	})

	ctx := context.Background()
	mongo, err := database.NewMongoDB(ctx, database.Connection{
		ConnectStr:    fmt.Sprintf("mongodb://%s:%s", host, port),
		RetryCount:    5,
		RetryInterval: 1,
	}, "test_chat_db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = mongo.Close(ctx) })

	repo := NewMongoChatMessageRepository(mongo.Database)
	require.NoError(t, repo.EnsureIndexes(ctx))
	return repo
}

func mustMessage(t *testing.T, id, from, to, text string, at time.Time) *domain.Message {
	t.Helper()
	m, err := domain.NewMessage(id, from, to, domain.PlaintextContent{Text: text}, at)
	require.NoError(t, err)
	return m
}

func TestMessageRepository_CRUDAndCAS(t *testing.T) {
	repo := setupMessageRepo(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	m := mustMessage(t, "m1", "alice", "bob", "hello", now)
	m.SequenceNumber = 1
	require.NoError(t, repo.Create(ctx, m))

	got, err := repo.FindByID(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, domain.PlaintextContent{Text: "hello"}, got.Content)
	assert.Equal(t, int64(0), got.Version)

	// 兩個併發的修改者: 第二個必須衝突
	a, b := got.Clone(), got.Clone()
	require.NoError(t, a.React("bob", "👍", now))
	require.NoError(t, repo.Update(ctx, a))
	assert.Equal(t, int64(1), a.Version)

	require.NoError(t, b.Edit("alice", "edited", now))
	err = repo.Update(ctx, b)
	assert.True(t, errors.Is(err, domain.ErrVersionConflict))

	latest, err := repo.FindByID(ctx, "m1")
	require.NoError(t, err)
	require.Len(t, latest.Reactions, 1)
	assert.Equal(t, domain.PlaintextContent{Text: "hello"}, latest.Content)

	_, err = repo.FindByID(ctx, "missing")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestMessageRepository_Queries(t *testing.T) {
	repo := setupMessageRepo(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Millisecond)

	m1 := mustMessage(t, "m1", "alice", "bob", "Hello there", base)
	m2 := mustMessage(t, "m2", "bob", "alice", "hello back", base.Add(time.Second))
	m3 := mustMessage(t, "m3", "alice", "bob", "hidden from bob", base.Add(2*time.Second))
	require.NoError(t, m3.DeleteForMe("bob", base))
	m4 := mustMessage(t, "m4", "alice", "bob", "hello gone", base.Add(3*time.Second))
	require.NoError(t, m4.DeleteForEveryone("alice", base))
	m5 := mustMessage(t, "m5", "alice", "carol", "hello carol", base.Add(4*time.Second))
	enc, err := domain.NewMessage("m6", "alice", "bob", domain.EncryptedContent{Ciphertext: "hello", Algorithm: domain.AlgSignal}, base.Add(5*time.Second))
	require.NoError(t, err)

	for _, m := range []*domain.Message{m1, m2, m3, m4, m5, enc} {
		require.NoError(t, repo.Create(ctx, m))
	}

	conv, err := repo.FindConversation(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"m1", "m2", "m4", "m6"}, ids(conv))

	conv, err = repo.FindConversation(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"m1", "m2", "m3", "m4", "m6"}, ids(conv))

	found, err := repo.SearchConversation(ctx, "bob", "alice", "HELLO")
	require.NoError(t, err)
	assert.Equal(t, []string{"m2", "m1"}, ids(found))

	found, err = repo.SearchConversation(ctx, "alice", "bob", "there.*")
	require.NoError(t, err)
	assert.Empty(t, found)

	party, err := repo.FindByParty(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"m6", "m5", "m4", "m3", "m2", "m1"}, ids(party))

	round, err := repo.FindByID(ctx, "m6")
	require.NoError(t, err)
	assert.Equal(t, domain.EncryptedContent{Ciphertext: "hello", Algorithm: domain.AlgSignal}, round.Content)
}

func ids(ms []*domain.Message) []string {
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.ID)
	}
	return out
}

func TestUserRepository_Postgres(t *testing.T) {
	host, port := startContainer(t, testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "chat",
			"POSTGRES_PASSWORD": "chat",
			"POSTGRES_DB":       "chat",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
	})

	db, err := database.NewPGConnection(database.Connection{
		ConnectStr:    fmt.Sprintf("host=%s port=%s user=chat password=chat dbname=chat sslmode=disable", host, port),
		RetryCount:    5,
		RetryInterval: 1,
	})
	require.NoError(t, err)

	repo := NewUserRepository(db)
	require.NoError(t, repo.AutoMigrate())
	ctx := context.Background()

	require.NoError(t, repo.UpsertProfile(ctx, &domain.UserProfile{ID: "alice", FullName: "Alice"}))
	require.NoError(t, repo.UpsertProfile(ctx, &domain.UserProfile{ID: "alice", FullName: "Alice A."}))
	require.NoError(t, repo.UpsertProfile(ctx, &domain.UserProfile{ID: "bob", FullName: "Bob"}))

	require.NoError(t, repo.Block(ctx, "bob", "alice"))
	require.NoError(t, repo.Block(ctx, "bob", "alice"))
	require.NoError(t, repo.AddPushToken(ctx, "alice", "t1"))
	require.NoError(t, repo.AddPushToken(ctx, "alice", "t2"))

	profiles, err := repo.FindProfiles(ctx, []string{"alice", "bob", "nobody"})
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, "Alice A.", profiles["alice"].FullName)
	assert.ElementsMatch(t, []string{"t1", "t2"}, profiles["alice"].PushTokens)
	assert.Equal(t, []string{"alice"}, profiles["bob"].BlockedUsers)

	require.NoError(t, repo.RemovePushToken(ctx, "alice", "t1"))
	require.NoError(t, repo.Unblock(ctx, "bob", "alice"))

	alice, err := repo.FindProfile(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"t2"}, alice.PushTokens)

	bob, err := repo.FindProfile(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, bob.BlockedUsers)

	_, err = repo.FindProfile(ctx, "nobody")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	// contacts: 不含自己, 不含封鎖自己的人
	require.NoError(t, repo.UpsertProfile(ctx, &domain.UserProfile{ID: "carol", FullName: "Carol"}))
	require.NoError(t, repo.Block(ctx, "carol", "alice"))
	contacts, err := repo.ListContacts(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "bob", contacts[0].ID)

	contacts, err = repo.ListContacts(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, contacts, 2)

	require.NoError(t, repo.Pin(ctx, "alice", "bob"))
	require.NoError(t, repo.Pin(ctx, "alice", "bob"))
	require.NoError(t, repo.Pin(ctx, "alice", "carol"))
	pinned, err := repo.ListPinned(ctx, "alice")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"bob", "carol"}, pinned)

	require.NoError(t, repo.Unpin(ctx, "alice", "bob"))
	require.NoError(t, repo.Unpin(ctx, "alice", "bob"))
	pinned, err = repo.ListPinned(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"carol"}, pinned)

	// 刪除不存在的 token 也算成功
	require.NoError(t, repo.RemovePushToken(ctx, "alice", "never-registered"))
}

func TestSequenceRepository_Redis(t *testing.T) {
	host, port := startContainer(t, testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp"),
	})

	client, err := database.NewRedisStandalone(host+":"+port, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	repo := NewRedisSequenceRepository(client)
	ctx := context.Background()
	conv := domain.ConversationID("alice", "bob")

	for want := int64(1); want <= 3; want++ {
		n, err := repo.Next(ctx, conv)
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}
	n, err := repo.Next(ctx, domain.ConversationID("alice", "carol"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
