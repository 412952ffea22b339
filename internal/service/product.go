package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/chainbazzar/chainbazzar/internal/domain/models"
	"github.com/chainbazzar/chainbazzar/internal/storage"
	"github.com/shopspring/decimal"
)

// ProductService определяет интерфейс для работы с каталогом.
type ProductService interface {
	List(ctx context.Context) ([]*models.Product, error)
	Create(ctx context.Context, sellerID int64, name string, price decimal.Decimal, stock int, imageRef string) (*models.Product, error)
}

type productService struct {
	log         *slog.Logger
	productRepo storage.ProductStorage
}

func NewProductService(log *slog.Logger, productRepo storage.ProductStorage) ProductService {
	return &productService{
		log:         log,
		productRepo: productRepo,
	}
}

func (s *productService) List(ctx context.Context) ([]*models.Product, error) {
	const op = "service.ProductService.List"

	products, err := s.productRepo.ListProducts(ctx)
	if err != nil {
		s.log.Error("failed to list products", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to list products: %w", op, err)
	}
	return products, nil
}

func (s *productService) Create(ctx context.Context, sellerID int64, name string, price decimal.Decimal, stock int, imageRef string) (*models.Product, error) {
	const op = "service.ProductService.Create"
	logger := s.log.With(slog.String("op", op), slog.Int64("sellerID", sellerID), slog.String("name", name))

	if price.IsNegative() {
		return nil, fmt.Errorf("%s: price must not be negative", op)
	}
	if stock < 0 {
		return nil, fmt.Errorf("%s: stock must not be negative", op)
	}

	product, err := s.productRepo.CreateProduct(ctx, &models.Product{
		SellerID: sellerID,
		Name:     name,
		Price:    price,
		Stock:    stock,
		ImageRef: imageRef,
	})
	if err != nil {
		logger.Error("failed to create product", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to create product: %w", op, err)
	}

	logger.Info("product created", slog.Int64("productID", product.ID))
	return product, nil
}
