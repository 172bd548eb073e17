package repository

import (
	"context"

	"mercadito/internal/domain/entity"
)

type ChatRepository interface {
	// Create inserts a chat under its deterministic document id with a
	// not-exists precondition. A concurrent duplicate create fails with a
	// CONFLICT error and the caller re-reads the winner.
	Create(ctx context.Context, chat *entity.Chat) error
	GetByID(ctx context.Context, id string) (*entity.Chat, error)
	// GetByKey returns every chat matching a canonical (pair, product) key.
	// More than one result means the uniqueness invariant was violated
	// upstream; the resolver surfaces that, so all matches are returned.
	GetByKey(ctx context.Context, pairKey, productKey string) ([]*entity.Chat, error)
	ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*entity.Chat, int64, error)
	RefreshParticipantInfo(ctx context.Context, chatID string, info map[string]entity.ParticipantInfo) error

	// AppendMessage atomically inserts the message and updates the chat's
	// lastMessage/updatedAt, backfilling senderInfo when non-nil. Readers
	// never observe the message without the updated chat, nor vice versa.
	// On success message.CreatedAt holds the store-assigned timestamp; the
	// sender's clock is never written.
	AppendMessage(ctx context.Context, chatID string, message *entity.Message, senderInfo *entity.ParticipantInfo) error
	GetMessages(ctx context.Context, chatID string, limit, offset int) ([]*entity.Message, int64, error)

	// StreamMessages emits the full ordered message set on every change,
	// createdAt ascending, until ctx is cancelled. Resubscribing replays the
	// current set and then follows live updates.
	StreamMessages(ctx context.Context, chatID string) (<-chan []*entity.Message, error)
	// StreamChats emits the user's chats ordered by updatedAt descending.
	StreamChats(ctx context.Context, userID string) (<-chan []*entity.Chat, error)
}
