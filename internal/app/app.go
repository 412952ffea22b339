package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/chainbazzar/chainbazzar/internal/config"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

type App struct {
	Config *config.Config
	Logger *slog.Logger
	DB     *sql.DB
	Redis  *redis.Client
}

// NewApp opens the database and redis connections and bundles them with
// the config and logger.
func NewApp(log *slog.Logger, cfg *config.Config) (*App, error) {

	dbPassword := os.Getenv("DB_PASSWORD")
	if dbPassword == "" {
		return nil, fmt.Errorf("DB_PASSWORD environment variable is not set")
	}

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.Database.User,
		dbPassword,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Name,
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	app := &App{
		Config: cfg,
		Logger: log,
		DB:     db,
		Redis:  rdb,
	}

	return app, nil
}
