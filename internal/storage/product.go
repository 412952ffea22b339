package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/chainbazzar/chainbazzar/internal/domain/models"
	"github.com/lib/pq"
)

var ErrProductNotFound = errors.New("product not found")

// ProductStorage описывает методы для работы с таблицей товаров.
type ProductStorage interface {
	// LockProductByIDTx locks a product row for the duration of the
	// surrounding order transaction.
	LockProductByIDTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Product, error)
	UpdateStockTx(ctx context.Context, tx *sql.Tx, id int64, newStock int) error
	ListProducts(ctx context.Context) ([]*models.Product, error)
	CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error)
}

type productRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) ProductStorage {
	return &productRepository{db: db}
}

func (r *productRepository) LockProductByIDTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Product, error) {
	product := &models.Product{}
	row := tx.QueryRowContext(ctx,
		"SELECT id, seller_id, name, price, stock, image_ref FROM products WHERE id = $1 FOR UPDATE NOWAIT", id)
	if err := row.Scan(&product.ID, &product.SellerID, &product.Name, &product.Price, &product.Stock, &product.ImageRef); err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "55P03" { // lock
				return nil, fmt.Errorf("resource is locked, please try again: %w", err)
			}
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return product, nil
}

func (r *productRepository) UpdateStockTx(ctx context.Context, tx *sql.Tx, id int64, newStock int) error {
	res, err := tx.ExecContext(ctx, "UPDATE products SET stock = $1 WHERE id = $2", newStock, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *productRepository) ListProducts(ctx context.Context) ([]*models.Product, error) {
	query := `
		SELECT id, seller_id, name, price, stock, image_ref
		FROM products
		ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		product := &models.Product{}
		if err := rows.Scan(&product.ID, &product.SellerID, &product.Name, &product.Price, &product.Stock, &product.ImageRef); err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (r *productRepository) CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		"INSERT INTO products (seller_id, name, price, stock, image_ref) VALUES ($1, $2, $3, $4, $5) RETURNING id",
		product.SellerID, product.Name, product.Price, product.Stock, product.ImageRef,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	product.ID = id
	return product, nil
}
