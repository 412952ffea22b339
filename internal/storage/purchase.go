package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/chainbazzar/chainbazzar/internal/domain/models"
)

var ErrPurchaseNotFound = errors.New("purchase not found")

// PurchaseStorage records mined on-chain purchase transactions.
type PurchaseStorage interface {
	CreatePurchase(ctx context.Context, p *models.PurchaseTransaction) (*models.PurchaseTransaction, error)
	GetPurchaseByTxHash(ctx context.Context, txHash string) (*models.PurchaseTransaction, error)
	GetPurchasesByOrderID(ctx context.Context, orderID int64) ([]*models.PurchaseTransaction, error)
}

type purchaseRepository struct {
	db *sql.DB
}

func NewPurchaseRepository(db *sql.DB) PurchaseStorage {
	return &purchaseRepository{db: db}
}

func (r *purchaseRepository) CreatePurchase(ctx context.Context, p *models.PurchaseTransaction) (*models.PurchaseTransaction, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO purchases (order_id, product_id, buyer_address, contract_address, tx_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5, NOW()) RETURNING id`,
		p.OrderID, p.ProductID, p.BuyerAddress, p.ContractAddress, p.TxHash,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to create purchase record: %w", err)
	}
	p.ID = id
	return p, nil
}

func (r *purchaseRepository) GetPurchaseByTxHash(ctx context.Context, txHash string) (*models.PurchaseTransaction, error) {
	p := &models.PurchaseTransaction{}
	row := r.db.QueryRowContext(ctx,
		`SELECT id, order_id, product_id, buyer_address, contract_address, tx_hash, created_at
		 FROM purchases WHERE tx_hash = $1`, txHash)
	if err := row.Scan(&p.ID, &p.OrderID, &p.ProductID, &p.BuyerAddress, &p.ContractAddress, &p.TxHash, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPurchaseNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *purchaseRepository) GetPurchasesByOrderID(ctx context.Context, orderID int64) ([]*models.PurchaseTransaction, error) {
	query := `
		SELECT id, order_id, product_id, buyer_address, contract_address, tx_hash, created_at
		FROM purchases
		WHERE order_id = $1
		ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var purchases []*models.PurchaseTransaction
	for rows.Next() {
		p := &models.PurchaseTransaction{}
		if err := rows.Scan(&p.ID, &p.OrderID, &p.ProductID, &p.BuyerAddress, &p.ContractAddress, &p.TxHash, &p.CreatedAt); err != nil {
			return nil, err
		}
		purchases = append(purchases, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return purchases, nil
}
