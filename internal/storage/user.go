package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/chainbazzar/chainbazzar/internal/domain/models"
)

var ErrUserNotFound = errors.New("user not found")

type UserStorage interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	UpdatePassword(ctx context.Context, email string, passHash []byte) error
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *userRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	row := r.db.QueryRowContext(ctx, "SELECT id, email, pass_hash, wallet_address FROM users WHERE email = $1", email)
	if err := row.Scan(&user.ID, &user.Email, &user.PassHash, &user.WalletAddress); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (r *userRepository) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		"INSERT INTO users (email, pass_hash, wallet_address) VALUES ($1, $2, $3) RETURNING id",
		user.Email, user.PassHash, user.WalletAddress,
	).Scan(&id)
	if err != nil {
		return nil, err
	}
	user.ID = id
	return user, nil
}

func (r *userRepository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	user := &models.User{}
	row := r.db.QueryRowContext(ctx, "SELECT id, email, pass_hash, wallet_address FROM users WHERE id = $1", id)
	if err := row.Scan(&user.ID, &user.Email, &user.PassHash, &user.WalletAddress); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// UpdatePassword replaces the stored hash for the given account. Used by the
// one-shot admin reset command, never by the request path.
func (r *userRepository) UpdatePassword(ctx context.Context, email string, passHash []byte) error {
	res, err := r.db.ExecContext(ctx, "UPDATE users SET pass_hash = $1 WHERE email = $2", passHash, email)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}
