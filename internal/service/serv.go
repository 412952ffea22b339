package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chainbazzar/chainbazzar/internal/domain/models"
	"github.com/chainbazzar/chainbazzar/internal/security"
	"github.com/chainbazzar/chainbazzar/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")
var ErrEmailTaken = errors.New("email already registered")

type AuthService struct {
	log      *slog.Logger
	userRepo storage.UserStorage
	tokenTTL time.Duration
}

func NewAuthService(log *slog.Logger, userRepo storage.UserStorage, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		log:      log,
		userRepo: userRepo,
		tokenTTL: tokenTTL,
	}
}

type AuthServiceInterface interface {
	Register(ctx context.Context, email, password, walletAddress string) (string, error)
	Login(ctx context.Context, email, password string) (string, error)
	Me(ctx context.Context, userID int64) (*models.User, error)
}

// Register creates an account with a bcrypt-hashed password (bcrypt salts
// automatically) and returns a signed JWT for the new user.
func (a *AuthService) Register(ctx context.Context, email, password, walletAddress string) (string, error) {
	const op = "auth.Register"
	logger := a.log.With(
		slog.String("op", op),
		slog.String("email", email),
	)
	logger.Info("registering user")

	if _, err := a.userRepo.GetUserByEmail(ctx, email); err == nil {
		logger.Warn("email already registered")
		return "", fmt.Errorf("%s: %w", op, ErrEmailTaken)
	} else if !errors.Is(err, storage.ErrUserNotFound) {
		logger.Error("failed to check user", slog.Any("error", err))
		return "", fmt.Errorf("%s: failed to check user: %w", op, err)
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("failed to hash password", slog.Any("error", err))
		return "", fmt.Errorf("%s: failed to hash password: %w", op, err)
	}

	user, err := a.userRepo.CreateUser(ctx, &models.User{
		Email:         email,
		PassHash:      passHash,
		WalletAddress: walletAddress,
	})
	if err != nil {
		logger.Error("failed to create user", slog.Any("error", err))
		return "", fmt.Errorf("%s: failed to create user: %w", op, err)
	}

	token, err := security.NewToken(ctx, user, a.tokenTTL)
	if err != nil {
		logger.Error("failed to generate token", slog.Any("error", err))
		return "", fmt.Errorf("%s: failed to generate token: %w", op, err)
	}

	logger.Info("user registered", slog.Int64("userID", user.ID))
	return token, nil
}

// Login verifies the password against the stored bcrypt hash and issues a
// JWT. The signing secret is loaded inside security.NewToken from JWT_SECRET.
func (a *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	const op = "auth.Login"
	logger := a.log.With(
		slog.String("op", op),
		slog.String("email", email),
	)
	logger.Info("checking user")

	user, err := a.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			logger.Warn("user not found")
			return "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}
		logger.Error("failed to get user", slog.Any("error", err))
		return "", fmt.Errorf("%s: failed to get user: %w", op, err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PassHash, []byte(password)); err != nil {
		logger.Warn("invalid password")
		return "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	token, err := security.NewToken(ctx, user, a.tokenTTL)
	if err != nil {
		logger.Error("failed to generate token", slog.Any("error", err))
		return "", fmt.Errorf("%s: failed to generate token: %w", op, err)
	}

	logger.Info("user logged in successfully", slog.Int64("userID", user.ID))
	return token, nil
}

// Me returns the profile of the authenticated user.
func (a *AuthService) Me(ctx context.Context, userID int64) (*models.User, error) {
	const op = "auth.Me"

	user, err := a.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		a.log.Error("failed to get user", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get user: %w", op, err)
	}
	return user, nil
}
