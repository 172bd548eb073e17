package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mercadito/internal/domain/entity"
	"mercadito/pkg/errors"
)

type chatTestEnv struct {
	uc       *ChatUseCase
	chats    *fakeChatRepo
	users    *fakeUserRepo
	products *fakeProductRepo
	auth     *fakeAuthClient
}

// newChatTestEnv builds a fresh use case per test so each test gets its own
// rate limit buckets.
func newChatTestEnv() *chatTestEnv {
	users := newFakeUserRepo(
		&entity.User{UID: "alice", Email: "alice@example.com", Username: "alice_g", ProfileImageURL: "https://img.example.com/alice.png"},
		&entity.User{UID: "bruno", Email: "bruno@example.com", Username: "bruno_m"},
	)
	products := newFakeProductRepo(
		&entity.Product{ID: "prod-1", Name: "Vintage Lamp", Price: 45, Category: "Home", SellerID: "bruno", ImageURL: "https://img.example.com/lamp.png"},
	)
	chats := newFakeChatRepo()
	auth := newFakeAuthClient()

	return &chatTestEnv{
		uc:       NewChatUseCase(chats, users, products, auth, nil),
		chats:    chats,
		users:    users,
		products: products,
		auth:     auth,
	}
}

func TestResolveChatCreatesNewChat(t *testing.T) {
	env := newChatTestEnv()
	ctx := context.Background()

	resp, err := env.uc.ResolveChat(ctx, "alice", ResolveChatInput{RecipientID: "bruno", ProductID: "prod-1"})
	require.NoError(t, err)

	assert.Equal(t, []string{"alice", "bruno"}, resp.ParticipantUIDs)
	assert.Equal(t, "alice_bruno", resp.PairKey)
	assert.Equal(t, "prod-1", resp.ProductKey)
	assert.Equal(t, entity.ChatDocID("alice_bruno", "prod-1"), resp.ID)
	assert.Nil(t, resp.LastMessage)

	require.NotNil(t, resp.ProductContext)
	assert.Equal(t, "prod-1", resp.ProductContext.ProductID)
	assert.Equal(t, "Vintage Lamp", resp.ProductContext.ProductName)
	assert.Equal(t, "bruno", resp.ProductContext.SellerID)

	assert.Equal(t, "alice_g", resp.ParticipantInfo["alice"].Username)
	assert.Equal(t, "bruno@example.com", resp.ParticipantInfo["bruno"].Email)

	require.NotNil(t, resp.OtherUser)
	assert.Equal(t, "bruno", resp.OtherUser.UID)
}

func TestResolveChatReusesExistingRegardlessOfOrder(t *testing.T) {
	env := newChatTestEnv()
	ctx := context.Background()

	first, err := env.uc.ResolveChat(ctx, "alice", ResolveChatInput{RecipientID: "bruno", ProductID: "prod-1"})
	require.NoError(t, err)

	// The counterpart opening the same thread from the other side must land
	// on the same chat, with cached profile data refreshed.
	env.users.users["alice"].Username = "alice_renamed"

	second, err := env.uc.ResolveChat(ctx, "bruno", ResolveChatInput{RecipientID: "alice", ProductID: "prod-1"})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "alice_renamed", second.ParticipantInfo["alice"].Username)

	chats, _, err := env.chats.ListByUserID(ctx, "alice", 0, 0)
	require.NoError(t, err)
	assert.Len(t, chats, 1)
}

func TestResolveChatWithoutProductIsSeparateThread(t *testing.T) {
	env := newChatTestEnv()
	ctx := context.Background()

	withProduct, err := env.uc.ResolveChat(ctx, "alice", ResolveChatInput{RecipientID: "bruno", ProductID: "prod-1"})
	require.NoError(t, err)

	general, err := env.uc.ResolveChat(ctx, "alice", ResolveChatInput{RecipientID: "bruno"})
	require.NoError(t, err)

	assert.NotEqual(t, withProduct.ID, general.ID)
	assert.Equal(t, entity.NoProductKey, general.ProductKey)
	assert.Nil(t, general.ProductContext)
}

func TestResolveChatDefaultsCounterpartToSeller(t *testing.T) {
	env := newChatTestEnv()
	ctx := context.Background()

	resp, err := env.uc.ResolveChat(ctx, "alice", ResolveChatInput{ProductID: "prod-1"})
	require.NoError(t, err)

	assert.True(t, resp.HasParticipant("bruno"))
	assert.Equal(t, "bruno", resp.OtherUser.UID)
}

func TestResolveChatRejectsSelfChat(t *testing.T) {
	env := newChatTestEnv()
	ctx := context.Background()

	_, err := env.uc.ResolveChat(ctx, "bruno", ResolveChatInput{ProductID: "prod-1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, "INVALID_PARTICIPANTS"))

	// Nothing may be written for a rejected request.
	chats, _, err := env.chats.ListByUserID(ctx, "bruno", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, chats)
}

func TestResolveChatRequiresRecipientOrProduct(t *testing.T) {
	env := newChatTestEnv()

	_, err := env.uc.ResolveChat(context.Background(), "alice", ResolveChatInput{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, "BAD_REQUEST"))
}

func TestResolveChatUnknownProduct(t *testing.T) {
	env := newChatTestEnv()

	_, err := env.uc.ResolveChat(context.Background(), "alice", ResolveChatInput{ProductID: "missing"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, "NOT_FOUND"))
}

func TestResolveChatSurfacesAmbiguousKey(t *testing.T) {
	env := newChatTestEnv()
	ctx := context.Background()

	// Two chats under the same canonical key can only exist as legacy data
	// from before conditional creation. The resolver must refuse to pick one.
	now := time.Now()
	for _, id := range []string{"legacy-1", "legacy-2"} {
		require.NoError(t, env.chats.Create(ctx, &entity.Chat{
			ID:              id,
			ParticipantUIDs: []string{"alice", "bruno"},
			PairKey:         "alice_bruno",
			ProductKey:      entity.NoProductKey,
			CreatedAt:       now,
			UpdatedAt:       now,
		}))
	}

	_, err := env.uc.ResolveChat(ctx, "alice", ResolveChatInput{RecipientID: "bruno"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, "CONVERSATION_AMBIGUOUS"))
}

// racingChatRepo simulates losing the first-contact race: another request
// creates the chat between this request's lookup and its create.
type racingChatRepo struct {
	*fakeChatRepo
	winner *entity.Chat
	raced  bool
}

func (r *racingChatRepo) Create(ctx context.Context, chat *entity.Chat) error {
	if !r.raced {
		r.raced = true
		if err := r.fakeChatRepo.Create(ctx, r.winner); err != nil {
			return err
		}
	}
	return r.fakeChatRepo.Create(ctx, chat)
}

func TestResolveChatLosingRaceReturnsWinner(t *testing.T) {
	env := newChatTestEnv()
	ctx := context.Background()

	now := time.Now()
	winner := &entity.Chat{
		ParticipantUIDs: []string{"alice", "bruno"},
		PairKey:         "alice_bruno",
		ProductKey:      "prod-1",
		ParticipantInfo: map[string]entity.ParticipantInfo{
			"bruno": {Email: "bruno@example.com", Username: "winner_snapshot"},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	racing := &racingChatRepo{fakeChatRepo: env.chats, winner: winner}
	uc := NewChatUseCase(racing, env.users, env.products, env.auth, nil)

	resp, err := uc.ResolveChat(ctx, "alice", ResolveChatInput{RecipientID: "bruno", ProductID: "prod-1"})
	require.NoError(t, err)

	assert.Equal(t, entity.ChatDocID("alice_bruno", "prod-1"), resp.ID)
	assert.Equal(t, "winner_snapshot", resp.ParticipantInfo["bruno"].Username)

	chats, err := env.chats.GetByKey(ctx, "alice_bruno", "prod-1")
	require.NoError(t, err)
	assert.Len(t, chats, 1)
}

func TestResolveChatSendsInitialMessage(t *testing.T) {
	env := newChatTestEnv()
	ctx := context.Background()

	resp, err := env.uc.ResolveChat(ctx, "alice", ResolveChatInput{
		RecipientID:    "bruno",
		ProductID:      "prod-1",
		InitialMessage: "Is the lamp still available?",
	})
	require.NoError(t, err)

	messages, _, err := env.chats.GetMessages(ctx, resp.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "Is the lamp still available?", messages[0].Text)
	assert.Equal(t, "alice", messages[0].SenderID)
}

func TestSendMessageUpdatesChatAtomically(t *testing.T) {
	env := newChatTestEnv()
	ctx := context.Background()

	resp, err := env.uc.ResolveChat(ctx, "alice", ResolveChatInput{RecipientID: "bruno", ProductID: "prod-1"})
	require.NoError(t, err)
	before := resp.UpdatedAt

	msg, err := env.uc.SendMessage(ctx, "alice", resp.ID, "Hello!")
	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)
	assert.False(t, msg.CreatedAt.IsZero())

	chat, err := env.chats.GetByID(ctx, resp.ID)
	require.NoError(t, err)
	require.NotNil(t, chat.LastMessage)
	assert.Equal(t, "Hello!", chat.LastMessage.Text)
	assert.Equal(t, "alice", chat.LastMessage.SenderID)
	assert.Equal(t, msg.CreatedAt, chat.LastMessage.Timestamp)
	assert.True(t, chat.UpdatedAt.After(before))
}

func TestSendMessageReturnsStoreAssignedTimestamp(t *testing.T) {
	env := newChatTestEnv()
	ctx := context.Background()

	resp, err := env.uc.ResolveChat(ctx, "alice", ResolveChatInput{RecipientID: "bruno"})
	require.NoError(t, err)

	msg, err := env.uc.SendMessage(ctx, "alice", resp.ID, "Hello!")
	require.NoError(t, err)

	// The timestamp on the returned message is the one the store assigned,
	// identical to what readers of the chat and its messages observe. A
	// client sorting by it must place the message last, never first.
	require.False(t, msg.CreatedAt.IsZero())

	stored, _, err := env.chats.GetMessages(ctx, resp.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, stored[0].CreatedAt, msg.CreatedAt)

	chat, err := env.chats.GetByID(ctx, resp.ID)
	require.NoError(t, err)
	assert.Equal(t, msg.CreatedAt, chat.LastMessage.Timestamp)
	assert.True(t, msg.CreatedAt.After(resp.CreatedAt))
}

func TestSendMessageRejectsNonParticipant(t *testing.T) {
	env := newChatTestEnv()
	ctx := context.Background()
	require.NoError(t, env.users.Create(ctx, &entity.User{UID: "cora", Email: "cora@example.com", Username: "cora_v"}))

	resp, err := env.uc.ResolveChat(ctx, "alice", ResolveChatInput{RecipientID: "bruno", ProductID: "prod-1"})
	require.NoError(t, err)

	_, err = env.uc.SendMessage(ctx, "cora", resp.ID, "Let me in")
	require.Error(t, err)
	assert.True(t, errors.Is(err, "NOT_A_PARTICIPANT"))

	// The rejected send must leave the chat untouched.
	chat, err := env.chats.GetByID(ctx, resp.ID)
	require.NoError(t, err)
	assert.Nil(t, chat.LastMessage)
	messages, _, err := env.chats.GetMessages(ctx, resp.ID, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestSendMessageRejectsBlankText(t *testing.T) {
	env := newChatTestEnv()
	ctx := context.Background()

	resp, err := env.uc.ResolveChat(ctx, "alice", ResolveChatInput{RecipientID: "bruno"})
	require.NoError(t, err)

	for _, text := range []string{"", "   ", "\n\t "} {
		_, err := env.uc.SendMessage(ctx, "alice", resp.ID, text)
		require.Error(t, err)
		assert.True(t, errors.Is(err, "EMPTY_MESSAGE"))
	}

	messages, _, err := env.chats.GetMessages(ctx, resp.ID, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestSendMessageTrimsText(t *testing.T) {
	env := newChatTestEnv()
	ctx := context.Background()

	resp, err := env.uc.ResolveChat(ctx, "alice", ResolveChatInput{RecipientID: "bruno"})
	require.NoError(t, err)

	msg, err := env.uc.SendMessage(ctx, "alice", resp.ID, "  hola  \n")
	require.NoError(t, err)
	assert.Equal(t, "hola", msg.Text)
}

func TestMessagesKeepDistinctIDsAndOrder(t *testing.T) {
	env := newChatTestEnv()
	ctx := context.Background()

	resp, err := env.uc.ResolveChat(ctx, "alice", ResolveChatInput{RecipientID: "bruno"})
	require.NoError(t, err)

	texts := []string{"one", "two", "three", "four"}
	for _, text := range texts {
		_, err := env.uc.SendMessage(ctx, "alice", resp.ID, text)
		require.NoError(t, err)
	}

	messages, total, err := env.uc.GetChatMessages(ctx, "alice", resp.ID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(len(texts)), total)
	require.Len(t, messages, len(texts))

	seen := make(map[string]bool)
	for i, msg := range messages {
		assert.Equal(t, texts[i], msg.Text)
		assert.False(t, seen[msg.ID])
		seen[msg.ID] = true
		if i > 0 {
			assert.False(t, msg.CreatedAt.Before(messages[i-1].CreatedAt))
		}
	}
}

func TestSendMessageBackfillsSenderInfo(t *testing.T) {
	env := newChatTestEnv()
	ctx := context.Background()

	// A chat created before the sender completed their profile carries only
	// an email snapshot for them.
	now := time.Now()
	chat := &entity.Chat{
		ParticipantUIDs: []string{"alice", "bruno"},
		PairKey:         "alice_bruno",
		ProductKey:      entity.NoProductKey,
		ParticipantInfo: map[string]entity.ParticipantInfo{
			"alice": {Email: "alice@example.com"},
			"bruno": {Email: "bruno@example.com", Username: "bruno_m"},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, env.chats.Create(ctx, chat))

	_, err := env.uc.SendMessage(ctx, "alice", chat.ID, "profile is done now")
	require.NoError(t, err)

	stored, err := env.chats.GetByID(ctx, chat.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice_g", stored.ParticipantInfo["alice"].Username)
}

func TestGetChatByIDRequiresParticipant(t *testing.T) {
	env := newChatTestEnv()
	ctx := context.Background()

	resp, err := env.uc.ResolveChat(ctx, "alice", ResolveChatInput{RecipientID: "bruno"})
	require.NoError(t, err)

	_, err = env.uc.GetChatByID(ctx, "cora", resp.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, "FORBIDDEN"))

	chat, err := env.uc.GetChatByID(ctx, "bruno", resp.ID)
	require.NoError(t, err)
	assert.Equal(t, resp.ID, chat.ID)
}

func TestGetUserChatsOrderedByRecency(t *testing.T) {
	env := newChatTestEnv()
	ctx := context.Background()
	require.NoError(t, env.users.Create(ctx, &entity.User{UID: "cora", Email: "cora@example.com", Username: "cora_v"}))

	withBruno, err := env.uc.ResolveChat(ctx, "alice", ResolveChatInput{RecipientID: "bruno"})
	require.NoError(t, err)
	withCora, err := env.uc.ResolveChat(ctx, "alice", ResolveChatInput{RecipientID: "cora"})
	require.NoError(t, err)

	// Activity in the older chat moves it back to the top.
	_, err = env.uc.SendMessage(ctx, "alice", withBruno.ID, "bump")
	require.NoError(t, err)

	chats, total, err := env.uc.GetUserChats(ctx, "alice", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, chats, 2)
	assert.Equal(t, withBruno.ID, chats[0].ID)
	assert.Equal(t, withCora.ID, chats[1].ID)
}

func TestStreamMessagesReplaysCurrentSet(t *testing.T) {
	env := newChatTestEnv()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	resp, err := env.uc.ResolveChat(ctx, "alice", ResolveChatInput{RecipientID: "bruno"})
	require.NoError(t, err)
	for _, text := range []string{"first", "second"} {
		_, err := env.uc.SendMessage(ctx, "alice", resp.ID, text)
		require.NoError(t, err)
	}

	stream, err := env.uc.StreamMessages(ctx, "bruno", resp.ID)
	require.NoError(t, err)

	select {
	case snapshot := <-stream:
		require.Len(t, snapshot, 2)
		assert.Equal(t, "first", snapshot[0].Text)
		assert.Equal(t, "second", snapshot[1].Text)
	case <-time.After(time.Second):
		t.Fatal("no snapshot received")
	}

	cancel()
	select {
	case _, open := <-stream:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("stream did not close on cancel")
	}
}

func TestStreamMessagesRequiresParticipant(t *testing.T) {
	env := newChatTestEnv()
	ctx := context.Background()

	resp, err := env.uc.ResolveChat(ctx, "alice", ResolveChatInput{RecipientID: "bruno"})
	require.NoError(t, err)

	_, err = env.uc.StreamMessages(ctx, "cora", resp.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, "FORBIDDEN"))
}
