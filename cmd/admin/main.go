package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/chainbazzar/chainbazzar/internal/chain"
	"github.com/chainbazzar/chainbazzar/internal/config"
	"github.com/chainbazzar/chainbazzar/internal/domain/models"
	"github.com/chainbazzar/chainbazzar/internal/lib/logger"
	"github.com/chainbazzar/chainbazzar/internal/storage"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ilyakaznacheev/cleanenv"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// One-shot administrative commands, run outside the request path:
//
//	admin seed -fixture ./fixtures/seed.yaml
//	admin reset-password -email buyer@example.com
//	admin deploy-contract
//
// Each command parses its own flag set; the config path comes from the
// -config flag or CONFIG_PATH. Every command prints a structured result
// line and exits non-zero on failure.
func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: admin <seed|reset-password|deploy-contract> [flags]")
		os.Exit(2)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "seed":
		err = runSeed(args)
	case "reset-password":
		err = runResetPassword(args)
	case "deploy-contract":
		err = runDeployContract(args)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", command)
		os.Exit(2)
	}

	if err != nil {
		fmt.Printf("result=error command=%s error=%q\n", command, err.Error())
		os.Exit(1)
	}
	fmt.Printf("result=ok command=%s\n", command)
}

func newFlagSet(name string, configPath *string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(configPath, "config", os.Getenv("CONFIG_PATH"), "path to config file")
	return fs
}

type seedArgs struct {
	configPath  string
	fixturePath string
}

func parseSeedArgs(args []string) (*seedArgs, error) {
	a := &seedArgs{}
	fs := newFlagSet("seed", &a.configPath)
	fs.StringVar(&a.fixturePath, "fixture", "./fixtures/seed.yaml", "path to seed fixture")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if a.configPath == "" {
		return nil, fmt.Errorf("config path is not set: pass -config or set CONFIG_PATH")
	}
	return a, nil
}

type resetPasswordArgs struct {
	configPath string
	email      string
}

func parseResetPasswordArgs(args []string) (*resetPasswordArgs, error) {
	a := &resetPasswordArgs{}
	fs := newFlagSet("reset-password", &a.configPath)
	fs.StringVar(&a.email, "email", "", "account email")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if a.configPath == "" {
		return nil, fmt.Errorf("config path is not set: pass -config or set CONFIG_PATH")
	}
	if a.email == "" {
		return nil, fmt.Errorf("-email is required")
	}
	return a, nil
}

type deployContractArgs struct {
	configPath string
}

func parseDeployContractArgs(args []string) (*deployContractArgs, error) {
	a := &deployContractArgs{}
	fs := newFlagSet("deploy-contract", &a.configPath)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if a.configPath == "" {
		return nil, fmt.Errorf("config path is not set: pass -config or set CONFIG_PATH")
	}
	return a, nil
}

func openDB(cfg *config.Config) (*sql.DB, error) {
	dbPassword := os.Getenv("DB_PASSWORD")
	if dbPassword == "" {
		return nil, fmt.Errorf("DB_PASSWORD environment variable is not set")
	}
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.Database.User, dbPassword, cfg.Database.Host, cfg.Database.Port, cfg.Database.Name)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// seedFixture is the YAML shape consumed by the seed command.
type seedFixture struct {
	Users []struct {
		Email         string `yaml:"email"`
		Password      string `yaml:"password"`
		WalletAddress string `yaml:"wallet_address"`
	} `yaml:"users"`
	Products []struct {
		SellerEmail string `yaml:"seller_email"`
		Name        string `yaml:"name"`
		Price       string `yaml:"price"`
		Stock       int    `yaml:"stock"`
		ImageRef    string `yaml:"image_ref"`
	} `yaml:"products"`
}

func runSeed(args []string) error {
	a, err := parseSeedArgs(args)
	if err != nil {
		return err
	}
	cfg := config.MustLoadByPath(a.configPath)
	log := logger.SetupLogger(cfg.Env)

	var fixture seedFixture
	if err := cleanenv.ReadConfig(a.fixturePath, &fixture); err != nil {
		return fmt.Errorf("failed to read fixture %s: %w", a.fixturePath, err)
	}

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	userRepo := storage.NewUserRepository(db)
	productRepo := storage.NewProductRepository(db)

	ctx := context.Background()
	sellers := make(map[string]int64)

	for _, u := range fixture.Users {
		existing, err := userRepo.GetUserByEmail(ctx, u.Email)
		if err == nil {
			log.Info("user already seeded", slog.String("email", u.Email))
			sellers[u.Email] = existing.ID
			continue
		}

		passHash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash password for %s: %w", u.Email, err)
		}
		created, err := userRepo.CreateUser(ctx, &models.User{
			Email:         u.Email,
			PassHash:      passHash,
			WalletAddress: u.WalletAddress,
		})
		if err != nil {
			return fmt.Errorf("failed to create user %s: %w", u.Email, err)
		}
		sellers[u.Email] = created.ID
		log.Info("user seeded", slog.String("email", u.Email), slog.Int64("userID", created.ID))
	}

	for _, p := range fixture.Products {
		sellerID, ok := sellers[p.SellerEmail]
		if !ok {
			return fmt.Errorf("product %q references unknown seller %q", p.Name, p.SellerEmail)
		}
		price, err := decimal.NewFromString(p.Price)
		if err != nil {
			return fmt.Errorf("product %q has invalid price %q: %w", p.Name, p.Price, err)
		}
		created, err := productRepo.CreateProduct(ctx, &models.Product{
			SellerID: sellerID,
			Name:     p.Name,
			Price:    price,
			Stock:    p.Stock,
			ImageRef: p.ImageRef,
		})
		if err != nil {
			return fmt.Errorf("failed to create product %q: %w", p.Name, err)
		}
		log.Info("product seeded", slog.String("name", p.Name), slog.Int64("productID", created.ID))
	}

	fmt.Printf("seeded users=%d products=%d\n", len(fixture.Users), len(fixture.Products))
	return nil
}

func runResetPassword(args []string) error {
	a, err := parseResetPasswordArgs(args)
	if err != nil {
		return err
	}
	cfg := config.MustLoadByPath(a.configPath)
	log := logger.SetupLogger(cfg.Env)

	newPassword := os.Getenv("NEW_PASSWORD")
	if newPassword == "" {
		return fmt.Errorf("NEW_PASSWORD environment variable is not set")
	}
	if len(newPassword) < 8 {
		return fmt.Errorf("new password must be at least 8 characters")
	}

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	passHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	userRepo := storage.NewUserRepository(db)
	if err := userRepo.UpdatePassword(context.Background(), a.email, passHash); err != nil {
		return fmt.Errorf("failed to reset password for %s: %w", a.email, err)
	}

	log.Info("password reset", slog.String("email", a.email))
	return nil
}

func runDeployContract(args []string) error {
	a, err := parseDeployContractArgs(args)
	if err != nil {
		return err
	}
	cfg := config.MustLoadByPath(a.configPath)
	log := logger.SetupLogger(cfg.Env)

	if cfg.Chain.PrivateKey == "" {
		return fmt.Errorf("CHAIN_PRIVATE_KEY environment variable is not set")
	}

	artifact, err := chain.LoadArtifact(cfg.Chain.ArtifactPath)
	if err != nil {
		return err
	}

	client, err := ethclient.Dial(cfg.Chain.RPCURL)
	if err != nil {
		return fmt.Errorf("failed to dial chain rpc: %w", err)
	}

	recorder, err := chain.NewRecorder(log, client, artifact, cfg.Chain.PrivateKey, cfg.Chain.ChainID, cfg.Chain.ConfirmTimeout)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Chain.ConfirmTimeout+30*time.Second)
	defer cancel()

	address, err := recorder.Deploy(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("contract=%s\n", address)
	return nil
}
