package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"mercadito/internal/domain/entity"
	"mercadito/internal/domain/repository"
	"mercadito/pkg/errors"
	"mercadito/pkg/logger"
)

type firestoreChatRepository struct {
	client *firestore.Client
}

func NewFirestoreChatRepository(client *firestore.Client) repository.ChatRepository {
	return &firestoreChatRepository{
		client: client,
	}
}

func (r *firestoreChatRepository) Create(ctx context.Context, chat *entity.Chat) error {
	if chat.ID == "" {
		chat.ID = entity.ChatDocID(chat.PairKey, chat.ProductKey)
	}

	// Create, not Set: the not-exists precondition is what closes the
	// concurrent first-contact race on the deterministic document id.
	_, err := r.client.Collection("chats").Doc(chat.ID).Create(ctx, chat)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return errors.Conflict("Chat already exists for this pair and product")
		}
		return errors.CollaboratorUnavailable("Failed to create chat", status.Code(err).String(), err)
	}

	return nil
}

func (r *firestoreChatRepository) GetByID(ctx context.Context, id string) (*entity.Chat, error) {
	doc, err := r.client.Collection("chats").Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Chat", err)
		}
		return nil, errors.CollaboratorUnavailable("Failed to get chat", status.Code(err).String(), err)
	}

	var chat entity.Chat
	if err := doc.DataTo(&chat); err != nil {
		return nil, errors.Internal("Failed to parse chat data", err)
	}
	chat.ID = doc.Ref.ID

	return &chat, nil
}

func (r *firestoreChatRepository) GetByKey(ctx context.Context, pairKey, productKey string) ([]*entity.Chat, error) {
	query := r.client.Collection("chats").
		Where("pairKey", "==", pairKey).
		Where("productKey", "==", productKey)

	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, errors.CollaboratorUnavailable("Failed to query chats by key", status.Code(err).String(), err)
	}

	var chats []*entity.Chat
	for _, doc := range docs {
		var chat entity.Chat
		if err := doc.DataTo(&chat); err != nil {
			logger.Warn("Skipping malformed chat document %s: %v", doc.Ref.ID, err)
			continue
		}
		chat.ID = doc.Ref.ID
		chats = append(chats, &chat)
	}

	return chats, nil
}

func (r *firestoreChatRepository) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*entity.Chat, int64, error) {
	query := r.client.Collection("chats").
		Where("participantUids", "array-contains", userID).
		OrderBy("updatedAt", firestore.Desc)

	allDocs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, 0, errors.CollaboratorUnavailable("Failed to fetch chats", status.Code(err).String(), err)
	}

	total := int64(len(allDocs))

	start := offset
	if start > len(allDocs) {
		start = len(allDocs)
	}
	end := len(allDocs)
	if limit > 0 && start+limit < end {
		end = start + limit
	}

	var chats []*entity.Chat
	for i := start; i < end; i++ {
		var chat entity.Chat
		if err := allDocs[i].DataTo(&chat); err != nil {
			logger.Warn("Skipping malformed chat document %s: %v", allDocs[i].Ref.ID, err)
			continue
		}
		chat.ID = allDocs[i].Ref.ID
		chats = append(chats, &chat)
	}

	return chats, total, nil
}

func (r *firestoreChatRepository) RefreshParticipantInfo(ctx context.Context, chatID string, info map[string]entity.ParticipantInfo) error {
	_, err := r.client.Collection("chats").Doc(chatID).Update(ctx, []firestore.Update{
		{Path: "participantInfo", Value: info},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	})
	if err != nil {
		return errors.CollaboratorUnavailable("Failed to refresh participant info", status.Code(err).String(), err)
	}

	return nil
}

func (r *firestoreChatRepository) AppendMessage(ctx context.Context, chatID string, message *entity.Message, senderInfo *entity.ParticipantInfo) error {
	chatRef := r.client.Collection("chats").Doc(chatID)
	msgRef := chatRef.Collection("messages").Doc(message.ID)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(chatRef); err != nil {
			return err
		}

		if err := tx.Create(msgRef, map[string]interface{}{
			"chatId":    message.ChatID,
			"senderId":  message.SenderID,
			"text":      message.Text,
			"createdAt": firestore.ServerTimestamp,
		}); err != nil {
			return err
		}

		updates := []firestore.Update{
			{Path: "lastMessage", Value: map[string]interface{}{
				"text":      message.Text,
				"senderId":  message.SenderID,
				"timestamp": firestore.ServerTimestamp,
			}},
			{Path: "updatedAt", Value: firestore.ServerTimestamp},
		}
		if senderInfo != nil {
			updates = append(updates, firestore.Update{
				FieldPath: firestore.FieldPath{"participantInfo", message.SenderID},
				Value:     senderInfo,
			})
		}

		return tx.Update(chatRef, updates)
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return errors.NotFound("Chat", err)
		}
		return errors.CollaboratorUnavailable("Failed to append message", status.Code(err).String(), err)
	}

	// createdAt is assigned by the server inside the commit; read it back so
	// the caller returns the authoritative timestamp instead of a zero value.
	snap, err := msgRef.Get(ctx)
	if err != nil {
		logger.Warn("Failed to read back message %s in chat %s: %v", message.ID, chatID, err)
		return nil
	}
	if ts, err := snap.DataAt("createdAt"); err == nil {
		if t, ok := ts.(time.Time); ok {
			message.CreatedAt = t
		}
	}

	return nil
}

func (r *firestoreChatRepository) GetMessages(ctx context.Context, chatID string, limit, offset int) ([]*entity.Message, int64, error) {
	query := r.messagesQuery(chatID)

	allDocs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, 0, errors.CollaboratorUnavailable("Failed to fetch messages", status.Code(err).String(), err)
	}

	total := int64(len(allDocs))

	start := offset
	if start > len(allDocs) {
		start = len(allDocs)
	}
	end := len(allDocs)
	if limit > 0 && start+limit < end {
		end = start + limit
	}

	var messages []*entity.Message
	for i := start; i < end; i++ {
		msg, err := messageFromDoc(allDocs[i])
		if err != nil {
			logger.Warn("Skipping malformed message %s in chat %s: %v", allDocs[i].Ref.ID, chatID, err)
			continue
		}
		messages = append(messages, msg)
	}

	return messages, total, nil
}

func (r *firestoreChatRepository) StreamMessages(ctx context.Context, chatID string) (<-chan []*entity.Message, error) {
	snapshots := r.messagesQuery(chatID).Snapshots(ctx)
	out := make(chan []*entity.Message, 1)

	go func() {
		defer close(out)
		defer snapshots.Stop()

		var lastFingerprint string
		for {
			snap, err := snapshots.Next()
			if err != nil {
				if ctx.Err() == nil {
					logger.Error("Message stream for chat %s ended: %v", chatID, err)
				}
				return
			}

			docs, err := snap.Documents.GetAll()
			if err != nil {
				logger.Error("Failed to read message snapshot for chat %s: %v", chatID, err)
				return
			}

			var messages []*entity.Message
			var fp strings.Builder
			for _, doc := range docs {
				msg, err := messageFromDoc(doc)
				if err != nil {
					continue
				}
				messages = append(messages, msg)
				fmt.Fprintf(&fp, "%s@%d;", msg.ID, msg.CreatedAt.UnixNano())
			}

			// Identical consecutive snapshots (local echoes of a write the
			// server has not confirmed yet) are not re-emitted.
			fingerprint := fp.String()
			if fingerprint == lastFingerprint {
				continue
			}
			lastFingerprint = fingerprint

			emitLatest(ctx, out, messages)
		}
	}()

	return out, nil
}

func (r *firestoreChatRepository) StreamChats(ctx context.Context, userID string) (<-chan []*entity.Chat, error) {
	query := r.client.Collection("chats").
		Where("participantUids", "array-contains", userID).
		OrderBy("updatedAt", firestore.Desc)

	snapshots := query.Snapshots(ctx)
	out := make(chan []*entity.Chat, 1)

	go func() {
		defer close(out)
		defer snapshots.Stop()

		var lastFingerprint string
		for {
			snap, err := snapshots.Next()
			if err != nil {
				if ctx.Err() == nil {
					logger.Error("Chat stream for user %s ended: %v", userID, err)
				}
				return
			}

			docs, err := snap.Documents.GetAll()
			if err != nil {
				logger.Error("Failed to read chat snapshot for user %s: %v", userID, err)
				return
			}

			var chats []*entity.Chat
			var fp strings.Builder
			for _, doc := range docs {
				var chat entity.Chat
				if err := doc.DataTo(&chat); err != nil {
					continue
				}
				chat.ID = doc.Ref.ID
				chats = append(chats, &chat)
				fmt.Fprintf(&fp, "%s@%d;", chat.ID, chat.UpdatedAt.UnixNano())
			}

			fingerprint := fp.String()
			if fingerprint == lastFingerprint {
				continue
			}
			lastFingerprint = fingerprint

			emitLatest(ctx, out, chats)
		}
	}()

	return out, nil
}

func (r *firestoreChatRepository) messagesQuery(chatID string) firestore.Query {
	// Ties on createdAt are broken by document id, keeping the order total.
	return r.client.Collection("chats").Doc(chatID).Collection("messages").
		OrderBy("createdAt", firestore.Asc).
		OrderBy(firestore.DocumentID, firestore.Asc)
}

func messageFromDoc(doc *firestore.DocumentSnapshot) (*entity.Message, error) {
	var message entity.Message
	if err := doc.DataTo(&message); err != nil {
		return nil, err
	}
	message.ID = doc.Ref.ID
	return &message, nil
}

// emitLatest delivers the newest snapshot, replacing a buffered one the
// consumer has not drained yet. A slow consumer sees the latest state, never
// a backlog of stale snapshots.
func emitLatest[T any](ctx context.Context, out chan []T, value []T) {
	for {
		select {
		case out <- value:
			return
		case <-ctx.Done():
			return
		default:
			select {
			case <-out:
			default:
			}
		}
	}
}
