package app

import (
	"context"
	"testing"

	"private_chat_service/internal/chat/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListMessages_OrderAndRedaction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v1 := f.send(t, "alice", "bob", "first")
	v2 := f.send(t, "bob", "alice", "second")
	v3 := f.send(t, "alice", "bob", "third")
	_, err := f.uc.DeleteForEveryone(ctx, "alice", v3.ID)
	require.NoError(t, err)
	f.uc.Wait()

	pairs := [][2]string{{"alice", "bob"}, {"bob", "alice"}}
	for _, pair := range pairs {
		list, err := f.conv.ListMessages(ctx, pair[0], pair[1])
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, []string{v1.ID, v2.ID, v3.ID}, []string{list[0].ID, list[1].ID, list[2].ID})
		assert.Equal(t, domain.RedactionSentinel, list[2].Text)
		assert.True(t, list[2].DeletedForEveryone)
	}

	_, err = f.conv.ListMessages(ctx, "alice", "")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestSearchMessages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.send(t, "alice", "bob", "Hello world")
	v2 := f.send(t, "bob", "alice", "hello again")
	v3 := f.send(t, "alice", "bob", "hello gone")
	_, err := f.uc.Send(ctx, "alice", "bob", domain.EncryptedContent{Ciphertext: "hello", Algorithm: domain.AlgSignal})
	require.NoError(t, err)
	_, err = f.uc.DeleteForEveryone(ctx, "alice", v3.ID)
	require.NoError(t, err)
	_, err = f.uc.DeleteForMe(ctx, "alice", v2.ID)
	require.NoError(t, err)
	f.uc.Wait()

	got, err := f.conv.SearchMessages(ctx, "bob", "alice", "HELLO")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "hello again", got[0].Text)
	assert.Equal(t, "Hello world", got[1].Text)

	got, err = f.conv.SearchMessages(ctx, "alice", "bob", "hello")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Hello world", got[0].Text)

	got, err = f.conv.SearchMessages(ctx, "alice", "bob", "   ")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestGetEditHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.send(t, "alice", "bob", "draft")

	history, err := f.conv.GetEditHistory(ctx, "alice", v.ID)
	require.NoError(t, err)
	assert.Empty(t, history)

	_, err = f.uc.EditMessage(ctx, "alice", v.ID, "final")
	require.NoError(t, err)

	_, err = f.conv.GetEditHistory(ctx, "carol", v.ID)
	assert.ErrorIs(t, err, domain.ErrAuthorization)
	_, err = f.conv.GetEditHistory(ctx, "alice", "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// 對 bob 隱藏後, bob 看不到歷史; alice 仍可
	_, err = f.uc.DeleteForMe(ctx, "bob", v.ID)
	require.NoError(t, err)
	history, err = f.conv.GetEditHistory(ctx, "bob", v.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
	history, err = f.conv.GetEditHistory(ctx, "alice", v.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)
	f.uc.Wait()
}

func TestChatPartners(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.send(t, "bob", "alice", "hi alice")
	f.send(t, "bob", "alice", "are you there")
	f.send(t, "carol", "alice", "lunch?")
	last := f.send(t, "alice", "carol", "sure, a very long reply that goes past thirty runes")
	f.uc.Wait()

	got, err := f.conv.ChatPartners(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "carol", got[0].PartnerID)
	assert.Equal(t, "Carol", got[0].PartnerName)
	assert.Equal(t, last.ID, got[0].LastMessage.ID)
	assert.Equal(t, "sure, a very long reply that g...", got[0].LastMessageText)
	assert.Equal(t, 1, got[0].UnreadCount)

	assert.Equal(t, "bob", got[1].PartnerID)
	assert.Equal(t, "are you there", got[1].LastMessageText)
	assert.Equal(t, 2, got[1].UnreadCount)

	// 讀取後未讀歸零; 刪除最後一則後以前一則為準
	bobMsgs, err := f.conv.ListMessages(ctx, "alice", "bob")
	require.NoError(t, err)
	for _, m := range bobMsgs {
		_, err = f.uc.MarkRead(ctx, "alice", m.ID)
		require.NoError(t, err)
	}
	_, err = f.uc.DeleteForMe(ctx, "alice", bobMsgs[1].ID)
	require.NoError(t, err)
	f.uc.Wait()

	got, err = f.conv.ChatPartners(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 0, got[1].UnreadCount)
	assert.Equal(t, "hi alice", got[1].LastMessageText)
}

func TestChatPartners_HidesPartnersWhoBlockedViewer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.send(t, "alice", "bob", "hi")
	f.send(t, "alice", "carol", "hi")
	require.NoError(t, f.users.Block(ctx, "bob", "alice"))
	f.uc.Wait()

	got, err := f.conv.ChatPartners(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "carol", got[0].PartnerID)

	// bob 封鎖者自己仍看得到
	got, err = f.conv.ChatPartners(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = f.conv.ChatPartners(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
