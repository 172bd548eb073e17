package usecase

import (
	"context"

	"mercadito/internal/domain/entity"
)

type FirebaseAuthClient interface {
	CreateUser(ctx context.Context, email, password, displayName string) (string, error)
	VerifyToken(ctx context.Context, token string) (string, error)
	GetUserEmail(ctx context.Context, uid string) (string, error)
	SignInWithEmailPassword(ctx context.Context, email, password string) (string, error)
}

// RecommendationClient is the hosted generative model collaborator. Results
// are a best-effort subset of the submitted products; callers must not treat
// them as authoritative filtering.
type RecommendationClient interface {
	Recommend(ctx context.Context, searchQuery string, products []entity.Product, categories []string) ([]entity.Product, error)
}
