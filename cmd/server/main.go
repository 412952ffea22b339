package main

import (
	"context"

	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chainbazzar/chainbazzar/internal/app"
	"github.com/chainbazzar/chainbazzar/internal/app/handlers"
	"github.com/chainbazzar/chainbazzar/internal/cart"
	"github.com/chainbazzar/chainbazzar/internal/chain"
	"github.com/chainbazzar/chainbazzar/internal/checkout"
	"github.com/chainbazzar/chainbazzar/internal/config"
	"github.com/chainbazzar/chainbazzar/internal/lib/logger"
	"github.com/chainbazzar/chainbazzar/internal/lib/logger/handlers/urllog"
	"github.com/chainbazzar/chainbazzar/internal/security/jwtmiddleware"
	"github.com/chainbazzar/chainbazzar/internal/service"
	"github.com/chainbazzar/chainbazzar/internal/storage"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"
)

func main() {
	cfg := config.MustLoad()

	log := logger.SetupLogger(cfg.Env)
	log.Info("starting app", slog.String("env", cfg.Env))

	application, err := app.NewApp(log, cfg)
	if err != nil {
		log.Error("failed to initialize app", slog.Any("error", err))
		panic(errors.Wrap(err, "failed to initialize app"))
	}
	defer application.DB.Close()
	defer application.Redis.Close()

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(urllog.CustomLoggerMiddleware(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)

	userRepo := storage.NewUserRepository(application.DB)
	productRepo := storage.NewProductRepository(application.DB)
	orderRepo := storage.NewOrderRepository(application.DB)
	purchaseRepo := storage.NewPurchaseRepository(application.DB)

	authService := service.NewAuthService(application.Logger, userRepo, time.Duration(application.Config.JWT.TokenTTL)*time.Minute)
	orderService := service.NewOrderService(application.Logger, application.DB, orderRepo, productRepo)
	productService := service.NewProductService(application.Logger, productRepo)
	purchaseService := service.NewPurchaseService(application.Logger, purchaseRepo, orderRepo)

	cartStore := cart.NewStore(application.Logger, cart.NewRedisPersister(application.Redis))
	receiptStore := checkout.NewReceiptStore(application.Redis)

	// The purchase recorder is optional: without a signer key checkout
	// runs orders-only.
	recorder := setupRecorder(log, cfg)
	orderClient := checkout.NewClient(application.Logger, cfg.Checkout.OrderServiceURL, cfg.Checkout.RequestTimeout)
	submitter := checkout.NewSubmitter(application.Logger, orderClient, recorder, purchaseService, cfg.Chain.ContractAddress)

	router.Post("/api/auth/register", handlers.RegisterHandler(application.Logger, authService))
	router.Post("/api/auth/login", handlers.LoginHandler(application.Logger, authService))
	router.Get("/api/products", handlers.ListProductsHandler(application.Logger, productService))

	router.Group(func(r chi.Router) {
		jwtMW := jwtmiddleware.NewJWTMiddleware()
		r.Use(jwtMW)
		r.Get("/api/auth/me", handlers.MeHandler(application.Logger, authService))

		r.Post("/api/products", handlers.CreateProductHandler(application.Logger, productService))

		r.Post("/api/orders", handlers.CreateOrderHandler(application.Logger, orderService))
		r.Get("/api/orders", handlers.ListOrdersHandler(application.Logger, orderService))
		r.Get("/api/orders/stats", handlers.SellerStatsHandler(application.Logger, orderService))
		r.Get("/api/orders/{id}", handlers.GetOrderHandler(application.Logger, orderService))
		r.Patch("/api/orders/{id}/status", handlers.UpdateOrderStatusHandler(application.Logger, orderService))

		r.Post("/api/purchases", handlers.RecordPurchaseHandler(application.Logger, purchaseService))

		r.Get("/api/cart", handlers.GetCartHandler(application.Logger, cartStore))
		r.Post("/api/cart/items", handlers.AddCartLineHandler(application.Logger, cartStore))
		r.Patch("/api/cart/items/{productID}", handlers.SetCartQuantityHandler(application.Logger, cartStore))
		r.Delete("/api/cart/items/{productID}", handlers.RemoveCartLineHandler(application.Logger, cartStore))
		r.Delete("/api/cart", handlers.ClearCartHandler(application.Logger, cartStore))

		r.Post("/api/checkout", handlers.CheckoutHandler(application.Logger, cartStore, submitter, receiptStore))
		r.Get("/api/checkout/receipt", handlers.LastReceiptHandler(application.Logger, receiptStore))
	})

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("starting server", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.Any("error", err))
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	stopSign := <-stop
	log.Info("received shutdown signal", slog.String("signal", stopSign.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server shutdown failed", slog.Any("error", err))
	}
	log.Info("server gracefully stopped")
}

func setupRecorder(log *slog.Logger, cfg *config.Config) checkout.Recorder {
	if cfg.Chain.PrivateKey == "" || cfg.Chain.ContractAddress == "" {
		log.Warn("chain signer or contract address not configured, purchases will not be recorded on-chain")
		return nil
	}

	artifact, err := chain.LoadArtifact(cfg.Chain.ArtifactPath)
	if err != nil {
		log.Error("failed to load contract artifact", slog.Any("error", err))
		panic(errors.Wrap(err, "failed to load contract artifact"))
	}

	client, err := ethclient.Dial(cfg.Chain.RPCURL)
	if err != nil {
		log.Error("failed to dial chain rpc", slog.Any("error", err))
		panic(errors.Wrap(err, "failed to dial chain rpc"))
	}

	recorder, err := chain.NewRecorder(log, client, artifact, cfg.Chain.PrivateKey, cfg.Chain.ChainID, cfg.Chain.ConfirmTimeout)
	if err != nil {
		log.Error("failed to build purchase recorder", slog.Any("error", err))
		panic(errors.Wrap(err, "failed to build purchase recorder"))
	}

	log.Info("purchase recorder ready",
		slog.String("rpc", cfg.Chain.RPCURL),
		slog.String("contract", cfg.Chain.ContractAddress),
	)
	return recorder
}
