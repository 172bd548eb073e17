package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"mercadito/internal/domain/entity"
	"mercadito/internal/domain/repository"
	"mercadito/internal/infrastructure/ratelimit"
	ws "mercadito/internal/infrastructure/websocket"
	"mercadito/pkg/errors"
	"mercadito/pkg/logger"
)

type ChatUseCase struct {
	chatRepo     repository.ChatRepository
	userRepo     repository.UserRepository
	productRepo  repository.ProductRepository
	firebaseAuth FirebaseAuthClient
	wsManager    *ws.Manager
	rateLimiter  *ratelimit.RateLimiter
}

func NewChatUseCase(
	chatRepo repository.ChatRepository,
	userRepo repository.UserRepository,
	productRepo repository.ProductRepository,
	firebaseAuth FirebaseAuthClient,
	wsManager *ws.Manager,
) *ChatUseCase {
	rateLimiter := ratelimit.NewRateLimiter()
	rateLimiter.StartCleanupRoutine()

	return &ChatUseCase{
		chatRepo:     chatRepo,
		userRepo:     userRepo,
		productRepo:  productRepo,
		firebaseAuth: firebaseAuth,
		wsManager:    wsManager,
		rateLimiter:  rateLimiter,
	}
}

type ResolveChatInput struct {
	RecipientID    string
	ProductID      string
	InitialMessage string
}

type ChatResponse struct {
	*entity.Chat
	Product   *entity.Product `json:"product,omitempty"`
	OtherUser *entity.User    `json:"other_user,omitempty"`
}

// ResolveChat finds or creates the single chat a requester and counterpart
// should use for an optional product context. The recipient may be omitted
// when a product id is given; the product's seller is the counterpart then.
//
// Exactly one chat exists per canonical (pair, product) key after a
// successful call. Two concurrent first contacts converge on one chat
// because creation is conditional on the deterministic document id.
func (uc *ChatUseCase) ResolveChat(ctx context.Context, requesterUID string, input ResolveChatInput) (*ChatResponse, error) {
	allowed, waitTime := uc.rateLimiter.Allow(requesterUID, "create_chat")
	if !allowed {
		logger.Warn("ResolveChat rate limited: user %s must wait %v", requesterUID, waitTime)
		return nil, errors.TooManyRequests("Rate limit exceeded. Please wait before starting another chat", waitTime)
	}

	var product *entity.Product
	if input.ProductID != "" {
		var err error
		product, err = uc.productRepo.GetByID(ctx, input.ProductID)
		if err != nil {
			return nil, err
		}
	}

	counterpartUID := input.RecipientID
	if counterpartUID == "" {
		if product == nil {
			return nil, errors.BadRequest("Either recipient_id or product_id is required", nil)
		}
		counterpartUID = product.SellerID
	}

	if requesterUID == counterpartUID {
		return nil, errors.InvalidParticipants("You cannot start a chat with yourself")
	}

	pairKey := entity.PairKey(requesterUID, counterpartUID)
	productKey := entity.NoProductKey
	if product != nil {
		productKey = product.ID
	}

	chat, err := uc.lookupOrCreate(ctx, requesterUID, counterpartUID, pairKey, productKey, product)
	if err != nil {
		return nil, err
	}

	if input.InitialMessage != "" {
		if _, err := uc.SendMessage(ctx, requesterUID, chat.ID, input.InitialMessage); err != nil {
			return nil, err
		}
	}

	otherUser, err := uc.userRepo.GetByID(ctx, counterpartUID)
	if err != nil {
		otherUser = nil
	}

	return &ChatResponse{
		Chat:      chat,
		Product:   product,
		OtherUser: otherUser,
	}, nil
}

func (uc *ChatUseCase) lookupOrCreate(ctx context.Context, requesterUID, counterpartUID, pairKey, productKey string, product *entity.Product) (*entity.Chat, error) {
	existing, err := uc.chatRepo.GetByKey(ctx, pairKey, productKey)
	if err != nil {
		return nil, err
	}

	switch len(existing) {
	case 0:
		// Fall through to create.
	case 1:
		chat := existing[0]
		// Stale cached names and avatars self-heal on reuse; a refresh
		// failure is non-fatal, the existing chat is still returned.
		info := uc.buildParticipantInfo(ctx, requesterUID, counterpartUID)
		if err := uc.chatRepo.RefreshParticipantInfo(ctx, chat.ID, info); err != nil {
			logger.Warn("ResolveChat: participant info refresh failed for chat %s: %v", chat.ID, err)
		} else {
			chat.ParticipantInfo = info
		}
		return chat, nil
	default:
		logger.Error("ResolveChat: uniqueness violated for key %s/%s: %d chats", pairKey, productKey, len(existing))
		return nil, errors.ConversationAmbiguous(pairKey + "/" + productKey)
	}

	now := time.Now()
	chat := &entity.Chat{
		ParticipantUIDs: entity.CanonicalPair(requesterUID, counterpartUID),
		PairKey:         pairKey,
		ProductKey:      productKey,
		ParticipantInfo: uc.buildParticipantInfo(ctx, requesterUID, counterpartUID),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if product != nil {
		chat.ProductContext = &entity.ProductContext{
			ProductID:       product.ID,
			ProductName:     product.Name,
			ProductImageURL: product.ImageURL,
			SellerID:        product.SellerID,
		}
	}

	if err := uc.chatRepo.Create(ctx, chat); err != nil {
		if errors.Is(err, "CONFLICT") {
			// Lost the first-contact race; the winner's chat is the one.
			return uc.winnerAfterConflict(ctx, pairKey, productKey)
		}
		return nil, err
	}

	return chat, nil
}

func (uc *ChatUseCase) winnerAfterConflict(ctx context.Context, pairKey, productKey string) (*entity.Chat, error) {
	chats, err := uc.chatRepo.GetByKey(ctx, pairKey, productKey)
	if err != nil {
		return nil, err
	}
	switch len(chats) {
	case 1:
		return chats[0], nil
	case 0:
		return nil, errors.Internal("Chat creation conflicted but no chat exists", nil)
	default:
		return nil, errors.ConversationAmbiguous(pairKey + "/" + productKey)
	}
}

// buildParticipantInfo snapshots the best available profile data for each
// uid. A missing profile degrades to the auth email or a placeholder; it is
// never a hard failure.
func (uc *ChatUseCase) buildParticipantInfo(ctx context.Context, uids ...string) map[string]entity.ParticipantInfo {
	info := make(map[string]entity.ParticipantInfo, len(uids))
	for _, uid := range uids {
		user, err := uc.userRepo.GetByID(ctx, uid)
		if err == nil {
			info[uid] = entity.ParticipantInfo{
				Email:           user.Email,
				Username:        user.Username,
				ProfileImageURL: user.ProfileImageURL,
			}
			continue
		}

		email := ""
		if uc.firebaseAuth != nil {
			email, _ = uc.firebaseAuth.GetUserEmail(ctx, uid)
		}
		if email == "" {
			email = "unknown"
		}
		info[uid] = entity.ParticipantInfo{Email: email}
	}
	return info
}

// SendMessage appends a message to a chat. The message insert and the chat's
// lastMessage/updatedAt update land in one atomic commit; a failed send
// leaves the chat unchanged and can be retried without side effects.
func (uc *ChatUseCase) SendMessage(ctx context.Context, senderUID, chatID, text string) (*entity.Message, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, errors.EmptyMessage()
	}

	allowed, waitTime := uc.rateLimiter.Allow(senderUID, "send_message")
	if !allowed {
		logger.Warn("SendMessage rate limited: user %s must wait %v", senderUID, waitTime)
		return nil, errors.TooManyRequests("Rate limit exceeded. Please wait before sending another message", waitTime)
	}

	chat, err := uc.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}

	if !chat.HasParticipant(senderUID) {
		return nil, errors.NotAParticipant("You are not a participant of this chat")
	}

	// Backfill the sender's cached snapshot when it lacks a display name.
	var senderInfo *entity.ParticipantInfo
	if cached, ok := chat.ParticipantInfo[senderUID]; !ok || cached.Username == "" {
		if user, err := uc.userRepo.GetByID(ctx, senderUID); err == nil {
			senderInfo = &entity.ParticipantInfo{
				Email:           user.Email,
				Username:        user.Username,
				ProfileImageURL: user.ProfileImageURL,
			}
		}
	}

	message := &entity.Message{
		ID:       uuid.New().String(),
		ChatID:   chatID,
		SenderID: senderUID,
		Text:     trimmed,
	}

	if err := uc.chatRepo.AppendMessage(ctx, chatID, message, senderInfo); err != nil {
		return nil, err
	}

	uc.notifyCounterpart(chat, senderUID, message)

	return message, nil
}

// notifyCounterpart pushes the new message over the live view connection of
// the other participant. Delivery is best-effort; the subscribed message
// stream remains the source of truth.
func (uc *ChatUseCase) notifyCounterpart(chat *entity.Chat, senderUID string, message *entity.Message) {
	if uc.wsManager == nil {
		return
	}
	other := chat.OtherParticipant(senderUID)
	if other == "" {
		return
	}
	event := ws.NewEvent(ws.EventMessage, message)
	event.ChatID = chat.ID
	uc.wsManager.SendToUser(other, event.Encode())
}

func (uc *ChatUseCase) GetUserChats(ctx context.Context, userID string, limit, offset int) ([]*entity.Chat, int64, error) {
	return uc.chatRepo.ListByUserID(ctx, userID, limit, offset)
}

func (uc *ChatUseCase) GetChatByID(ctx context.Context, userID, chatID string) (*entity.Chat, error) {
	chat, err := uc.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}

	if !chat.HasParticipant(userID) {
		return nil, errors.Forbidden("You are not a participant of this chat", nil)
	}

	return chat, nil
}

func (uc *ChatUseCase) GetChatMessages(ctx context.Context, userID, chatID string, limit, offset int) ([]*entity.Message, int64, error) {
	if _, err := uc.GetChatByID(ctx, userID, chatID); err != nil {
		return nil, 0, err
	}

	return uc.chatRepo.GetMessages(ctx, chatID, limit, offset)
}

// StreamMessages opens a live ordered view of a chat's messages. The stream
// ends when ctx is cancelled; callers switching chats must cancel the
// previous subscription before opening a new one.
func (uc *ChatUseCase) StreamMessages(ctx context.Context, userID, chatID string) (<-chan []*entity.Message, error) {
	if _, err := uc.GetChatByID(ctx, userID, chatID); err != nil {
		return nil, err
	}

	return uc.chatRepo.StreamMessages(ctx, chatID)
}

// StreamChats opens a live recency-ordered view of the user's chat list.
func (uc *ChatUseCase) StreamChats(ctx context.Context, userID string) (<-chan []*entity.Chat, error) {
	return uc.chatRepo.StreamChats(ctx, userID)
}
