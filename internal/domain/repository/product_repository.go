package repository

import (
	"context"

	"mercadito/internal/domain/entity"
)

// ProductFilter narrows a catalog listing. Zero values mean "no constraint";
// MaxPrice <= 0 disables the upper bound.
type ProductFilter struct {
	Category string
	MinPrice float64
	MaxPrice float64
	Search   string
}

type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	List(ctx context.Context, filter ProductFilter, sort string, limit, offset int) ([]*entity.Product, int64, error)
	ListBySeller(ctx context.Context, sellerID string, limit, offset int) ([]*entity.Product, int64, error)
	Categories(ctx context.Context) ([]string, error)
	Update(ctx context.Context, product *entity.Product) error
	Delete(ctx context.Context, id string) error
}
