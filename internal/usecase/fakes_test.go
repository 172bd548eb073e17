package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"mercadito/internal/domain/entity"
	"mercadito/internal/domain/repository"
	"mercadito/pkg/errors"
)

type fakeUserRepo struct {
	users map[string]*entity.User
}

func newFakeUserRepo(users ...*entity.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[string]*entity.User)}
	for _, u := range users {
		repo.users[u.UID] = u
	}
	return repo
}

func (r *fakeUserRepo) Create(ctx context.Context, user *entity.User) error {
	r.users[user.UID] = user
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, uid string) (*entity.User, error) {
	user, ok := r.users[uid]
	if !ok {
		return nil, errors.NotFound("User", nil)
	}
	return user, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, errors.NotFound("User", nil)
}

func (r *fakeUserRepo) Update(ctx context.Context, user *entity.User) error {
	r.users[user.UID] = user
	return nil
}

type fakeProductRepo struct {
	products map[string]*entity.Product
}

func newFakeProductRepo(products ...*entity.Product) *fakeProductRepo {
	repo := &fakeProductRepo{products: make(map[string]*entity.Product)}
	for _, p := range products {
		repo.products[p.ID] = p
	}
	return repo
}

func (r *fakeProductRepo) Create(ctx context.Context, product *entity.Product) error {
	r.products[product.ID] = product
	return nil
}

func (r *fakeProductRepo) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	product, ok := r.products[id]
	if !ok {
		return nil, errors.NotFound("Product", nil)
	}
	return product, nil
}

func (r *fakeProductRepo) List(ctx context.Context, filter repository.ProductFilter, sort string, limit, offset int) ([]*entity.Product, int64, error) {
	var products []*entity.Product
	for _, p := range r.products {
		products = append(products, p)
	}
	return products, int64(len(products)), nil
}

func (r *fakeProductRepo) ListBySeller(ctx context.Context, sellerID string, limit, offset int) ([]*entity.Product, int64, error) {
	var products []*entity.Product
	for _, p := range r.products {
		if p.SellerID == sellerID {
			products = append(products, p)
		}
	}
	return products, int64(len(products)), nil
}

func (r *fakeProductRepo) Categories(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var categories []string
	for _, p := range r.products {
		if !seen[p.Category] {
			seen[p.Category] = true
			categories = append(categories, p.Category)
		}
	}
	sort.Strings(categories)
	return categories, nil
}

func (r *fakeProductRepo) Update(ctx context.Context, product *entity.Product) error {
	r.products[product.ID] = product
	return nil
}

func (r *fakeProductRepo) Delete(ctx context.Context, id string) error {
	delete(r.products, id)
	return nil
}

// fakeChatRepo keeps chats and messages in memory and assigns strictly
// increasing timestamps, standing in for the store's server clock.
type fakeChatRepo struct {
	mu       sync.Mutex
	chats    map[string]*entity.Chat
	messages map[string][]*entity.Message
	now      time.Time
}

func newFakeChatRepo() *fakeChatRepo {
	return &fakeChatRepo{
		chats:    make(map[string]*entity.Chat),
		messages: make(map[string][]*entity.Message),
		// Starts ahead of the wall clock so appended messages always sort
		// after creation timestamps taken with time.Now.
		now: time.Now().Add(time.Hour),
	}
}

func (r *fakeChatRepo) tick() time.Time {
	r.now = r.now.Add(time.Second)
	return r.now
}

func (r *fakeChatRepo) Create(ctx context.Context, chat *entity.Chat) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if chat.ID == "" {
		chat.ID = entity.ChatDocID(chat.PairKey, chat.ProductKey)
	}
	if _, exists := r.chats[chat.ID]; exists {
		return errors.Conflict("Chat already exists for this pair and product")
	}
	r.chats[chat.ID] = chat
	return nil
}

func (r *fakeChatRepo) GetByID(ctx context.Context, id string) (*entity.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	chat, ok := r.chats[id]
	if !ok {
		return nil, errors.NotFound("Chat", nil)
	}
	return chat, nil
}

func (r *fakeChatRepo) GetByKey(ctx context.Context, pairKey, productKey string) ([]*entity.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var chats []*entity.Chat
	for _, chat := range r.chats {
		if chat.PairKey == pairKey && chat.ProductKey == productKey {
			chats = append(chats, chat)
		}
	}
	return chats, nil
}

func (r *fakeChatRepo) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*entity.Chat, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var chats []*entity.Chat
	for _, chat := range r.chats {
		if chat.HasParticipant(userID) {
			chats = append(chats, chat)
		}
	}
	sort.Slice(chats, func(i, j int) bool {
		return chats[i].UpdatedAt.After(chats[j].UpdatedAt)
	})
	return chats, int64(len(chats)), nil
}

func (r *fakeChatRepo) RefreshParticipantInfo(ctx context.Context, chatID string, info map[string]entity.ParticipantInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	chat, ok := r.chats[chatID]
	if !ok {
		return errors.NotFound("Chat", nil)
	}
	chat.ParticipantInfo = info
	chat.UpdatedAt = r.tick()
	return nil
}

func (r *fakeChatRepo) AppendMessage(ctx context.Context, chatID string, message *entity.Message, senderInfo *entity.ParticipantInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	chat, ok := r.chats[chatID]
	if !ok {
		return errors.NotFound("Chat", nil)
	}

	message.CreatedAt = r.tick()
	r.messages[chatID] = append(r.messages[chatID], message)

	chat.LastMessage = &entity.LastMessage{
		Text:      message.Text,
		SenderID:  message.SenderID,
		Timestamp: message.CreatedAt,
	}
	chat.UpdatedAt = message.CreatedAt
	if senderInfo != nil {
		if chat.ParticipantInfo == nil {
			chat.ParticipantInfo = make(map[string]entity.ParticipantInfo)
		}
		chat.ParticipantInfo[message.SenderID] = *senderInfo
	}
	return nil
}

func (r *fakeChatRepo) GetMessages(ctx context.Context, chatID string, limit, offset int) ([]*entity.Message, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	messages := append([]*entity.Message(nil), r.messages[chatID]...)
	sort.Slice(messages, func(i, j int) bool {
		if messages[i].CreatedAt.Equal(messages[j].CreatedAt) {
			return messages[i].ID < messages[j].ID
		}
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})
	return messages, int64(len(messages)), nil
}

func (r *fakeChatRepo) StreamMessages(ctx context.Context, chatID string) (<-chan []*entity.Message, error) {
	messages, _, err := r.GetMessages(ctx, chatID, 0, 0)
	if err != nil {
		return nil, err
	}

	out := make(chan []*entity.Message, 1)
	out <- messages
	go func() {
		<-ctx.Done()
		close(out)
	}()
	return out, nil
}

func (r *fakeChatRepo) StreamChats(ctx context.Context, userID string) (<-chan []*entity.Chat, error) {
	chats, _, err := r.ListByUserID(ctx, userID, 0, 0)
	if err != nil {
		return nil, err
	}

	out := make(chan []*entity.Chat, 1)
	out <- chats
	go func() {
		<-ctx.Done()
		close(out)
	}()
	return out, nil
}

type fakeAuthClient struct {
	emails map[string]string
	tokens map[string]string
}

func newFakeAuthClient() *fakeAuthClient {
	return &fakeAuthClient{
		emails: make(map[string]string),
		tokens: make(map[string]string),
	}
}

func (f *fakeAuthClient) CreateUser(ctx context.Context, email, password, displayName string) (string, error) {
	uid := "uid-" + displayName
	f.emails[uid] = email
	return uid, nil
}

func (f *fakeAuthClient) VerifyToken(ctx context.Context, token string) (string, error) {
	uid, ok := f.tokens[token]
	if !ok {
		return "", errors.Unauthorized("Invalid token", nil)
	}
	return uid, nil
}

func (f *fakeAuthClient) GetUserEmail(ctx context.Context, uid string) (string, error) {
	email, ok := f.emails[uid]
	if !ok {
		return "", errors.NotFound("User", nil)
	}
	return email, nil
}

func (f *fakeAuthClient) SignInWithEmailPassword(ctx context.Context, email, password string) (string, error) {
	return "token-" + email, nil
}
