package usecase

import (
	"context"
	"strings"

	"mercadito/internal/domain/entity"
	"mercadito/internal/domain/repository"
	"mercadito/internal/infrastructure/ratelimit"
	"mercadito/pkg/errors"
	"mercadito/pkg/logger"
)

type RecommendationUseCase struct {
	productRepo repository.ProductRepository
	client      RecommendationClient
	rateLimiter *ratelimit.RateLimiter
}

func NewRecommendationUseCase(productRepo repository.ProductRepository, client RecommendationClient) *RecommendationUseCase {
	return &RecommendationUseCase{
		productRepo: productRepo,
		client:      client,
		rateLimiter: ratelimit.NewRateLimiter(),
	}
}

// Recommend asks the model which catalog products fit the search query. The
// model only ever sees and returns items from the submitted list; its output
// is joined back against the catalog by name, so it cannot invent products.
func (uc *RecommendationUseCase) Recommend(ctx context.Context, userID, searchQuery string) ([]*entity.Product, error) {
	searchQuery = strings.TrimSpace(searchQuery)
	if searchQuery == "" {
		return nil, errors.BadRequest("Search query must not be empty", nil)
	}

	allowed, waitTime := uc.rateLimiter.Allow(userID, "recommend")
	if !allowed {
		logger.Warn("Recommend rate limited: user %s must wait %v", userID, waitTime)
		return nil, errors.TooManyRequests("Rate limit exceeded. Please wait before requesting more recommendations", waitTime)
	}

	catalog, _, err := uc.productRepo.List(ctx, repository.ProductFilter{}, "", 0, 0)
	if err != nil {
		return nil, err
	}
	if len(catalog) == 0 {
		return nil, nil
	}

	categories, err := uc.productRepo.Categories(ctx)
	if err != nil {
		logger.Warn("Recommend: failed to load categories: %v", err)
		categories = nil
	}

	summaries := make([]entity.Product, len(catalog))
	byName := make(map[string]*entity.Product, len(catalog))
	for i, p := range catalog {
		summaries[i] = entity.Product{
			Name:        p.Name,
			Description: p.Description,
			Price:       p.Price,
			Category:    p.Category,
		}
		byName[strings.ToLower(p.Name)] = p
	}

	recommended, err := uc.client.Recommend(ctx, searchQuery, summaries, categories)
	if err != nil {
		return nil, err
	}

	var results []*entity.Product
	seen := make(map[string]bool)
	for _, rec := range recommended {
		product, ok := byName[strings.ToLower(rec.Name)]
		if !ok || seen[product.ID] {
			continue
		}
		seen[product.ID] = true
		results = append(results, product)
	}

	return results, nil
}
