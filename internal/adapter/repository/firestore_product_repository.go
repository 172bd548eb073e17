package repository

import (
	"context"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"mercadito/internal/domain/entity"
	"mercadito/internal/domain/repository"
	"mercadito/pkg/errors"
)

type firestoreProductRepository struct {
	client *firestore.Client
}

func NewFirestoreProductRepository(client *firestore.Client) repository.ProductRepository {
	return &firestoreProductRepository{
		client: client,
	}
}

func (r *firestoreProductRepository) Create(ctx context.Context, product *entity.Product) error {
	if product.ID == "" {
		doc := r.client.Collection("products").NewDoc()
		product.ID = doc.ID
	}

	now := time.Now()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now

	_, err := r.client.Collection("products").Doc(product.ID).Set(ctx, product)
	if err != nil {
		return errors.CollaboratorUnavailable("Failed to create product", status.Code(err).String(), err)
	}

	return nil
}

func (r *firestoreProductRepository) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	doc, err := r.client.Collection("products").Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Product", err)
		}
		return nil, errors.CollaboratorUnavailable("Failed to get product", status.Code(err).String(), err)
	}

	var product entity.Product
	if err := doc.DataTo(&product); err != nil {
		return nil, errors.Internal("Failed to parse product data", err)
	}
	product.ID = doc.Ref.ID

	return &product, nil
}

func (r *firestoreProductRepository) List(ctx context.Context, filter repository.ProductFilter, sortBy string, limit, offset int) ([]*entity.Product, int64, error) {
	query := r.client.Collection("products").Query
	if filter.Category != "" {
		query = query.Where("category", "==", filter.Category)
	}

	if sortBy != "" {
		parts := strings.Split(sortBy, "_")
		field := parts[0]
		order := firestore.Asc
		if len(parts) > 1 && parts[1] == "desc" {
			order = firestore.Desc
		}
		query = query.OrderBy(field, order)
	} else {
		query = query.OrderBy("createdAt", firestore.Desc)
	}

	// Price range and substring search cannot be expressed as indexed
	// predicates alongside the category filter, so they are applied after
	// the fetch. Firestore has no full-text search.
	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, 0, errors.CollaboratorUnavailable("Failed to fetch products", status.Code(err).String(), err)
	}

	var matched []*entity.Product
	for _, doc := range docs {
		var product entity.Product
		if err := doc.DataTo(&product); err != nil {
			continue // Skip malformed documents
		}
		product.ID = doc.Ref.ID

		if product.Price < filter.MinPrice {
			continue
		}
		if filter.MaxPrice > 0 && product.Price > filter.MaxPrice {
			continue
		}
		if filter.Search != "" && !matchesSearch(&product, filter.Search) {
			continue
		}
		matched = append(matched, &product)
	}

	total := int64(len(matched))

	start := offset
	if start > len(matched) {
		start = len(matched)
	}
	end := len(matched)
	if limit > 0 && start+limit < end {
		end = start + limit
	}

	return matched[start:end], total, nil
}

func matchesSearch(product *entity.Product, search string) bool {
	search = strings.ToLower(search)
	if strings.Contains(strings.ToLower(product.Name), search) {
		return true
	}
	if strings.Contains(strings.ToLower(product.Description), search) {
		return true
	}
	for _, keyword := range product.Keywords {
		if strings.Contains(strings.ToLower(keyword), search) {
			return true
		}
	}
	return false
}

func (r *firestoreProductRepository) ListBySeller(ctx context.Context, sellerID string, limit, offset int) ([]*entity.Product, int64, error) {
	query := r.client.Collection("products").Where("sellerId", "==", sellerID).OrderBy("createdAt", firestore.Desc)

	allDocs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, 0, errors.CollaboratorUnavailable("Failed to fetch seller products", status.Code(err).String(), err)
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

	var products []*entity.Product
	for i := start; i < end; i++ {
		var product entity.Product
		if err := allDocs[i].DataTo(&product); err != nil {
			continue
		}
		product.ID = allDocs[i].Ref.ID
		products = append(products, &product)
	}

	return products, total, nil
}

func (r *firestoreProductRepository) Categories(ctx context.Context) ([]string, error) {
	docs, err := r.client.Collection("products").Select("category").Documents(ctx).GetAll()
	if err != nil {
		return nil, errors.CollaboratorUnavailable("Failed to fetch categories", status.Code(err).String(), err)
	}

	seen := make(map[string]bool)
	var categories []string
	for _, doc := range docs {
		category, err := doc.DataAt("category")
		if err != nil {
			continue
		}
		name, ok := category.(string)
		if !ok || name == "" || seen[name] {
			continue
		}
		seen[name] = true
		categories = append(categories, name)
	}
	sort.Strings(categories)

	return categories, nil
}

func (r *firestoreProductRepository) Update(ctx context.Context, product *entity.Product) error {
	product.UpdatedAt = time.Now()

	_, err := r.client.Collection("products").Doc(product.ID).Set(ctx, product)
	if err != nil {
		return errors.CollaboratorUnavailable("Failed to update product", status.Code(err).String(), err)
	}

	return nil
}

func (r *firestoreProductRepository) Delete(ctx context.Context, id string) error {
	_, err := r.client.Collection("products").Doc(id).Delete(ctx)
	if err != nil {
		return errors.CollaboratorUnavailable("Failed to delete product", status.Code(err).String(), err)
	}

	return nil
}
