package usecase

import (
	"context"
	"time"

	"mercadito/internal/domain/entity"
	"mercadito/internal/domain/repository"
	"mercadito/pkg/errors"
)

type ProductUseCase struct {
	productRepo repository.ProductRepository
}

func NewProductUseCase(productRepo repository.ProductRepository) *ProductUseCase {
	return &ProductUseCase{
		productRepo: productRepo,
	}
}

type ProductInput struct {
	Name        string
	Description string
	Price       float64
	Category    string
	ImageURL    string
	ImageHint   string
	Keywords    []string
}

func (uc *ProductUseCase) Create(ctx context.Context, sellerID string, input ProductInput) (*entity.Product, error) {
	now := time.Now()
	product := &entity.Product{
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		Category:    input.Category,
		ImageURL:    input.ImageURL,
		ImageHint:   input.ImageHint,
		Keywords:    input.Keywords,
		SellerID:    sellerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := uc.productRepo.Create(ctx, product); err != nil {
		return nil, err
	}

	return product, nil
}

func (uc *ProductUseCase) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	return uc.productRepo.GetByID(ctx, id)
}

func (uc *ProductUseCase) List(ctx context.Context, filter repository.ProductFilter, sort string, limit, offset int) ([]*entity.Product, int64, error) {
	return uc.productRepo.List(ctx, filter, sort, limit, offset)
}

func (uc *ProductUseCase) ListBySeller(ctx context.Context, sellerID string, limit, offset int) ([]*entity.Product, int64, error) {
	return uc.productRepo.ListBySeller(ctx, sellerID, limit, offset)
}

func (uc *ProductUseCase) Categories(ctx context.Context) ([]string, error) {
	return uc.productRepo.Categories(ctx)
}

func (uc *ProductUseCase) Update(ctx context.Context, sellerID, productID string, input ProductInput) (*entity.Product, error) {
	product, err := uc.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	if product.SellerID != sellerID {
		return nil, errors.Forbidden("You can only update your own products", nil)
	}

	product.Name = input.Name
	product.Description = input.Description
	product.Price = input.Price
	product.Category = input.Category
	if input.ImageURL != "" {
		product.ImageURL = input.ImageURL
	}
	product.ImageHint = input.ImageHint
	product.Keywords = input.Keywords

	if err := uc.productRepo.Update(ctx, product); err != nil {
		return nil, err
	}

	return product, nil
}

func (uc *ProductUseCase) Delete(ctx context.Context, sellerID, productID string) error {
	product, err := uc.productRepo.GetByID(ctx, productID)
	if err != nil {
		return err
	}

	if product.SellerID != sellerID {
		return errors.Forbidden("You can only delete your own products", nil)
	}

	return uc.productRepo.Delete(ctx, productID)
}
