package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ggshop-rest-api/internal/cache"
	"ggshop-rest-api/internal/catalog"
	"ggshop-rest-api/internal/commerce"
	"ggshop-rest-api/internal/config"
	"ggshop-rest-api/internal/handler"
	"ggshop-rest-api/internal/notify"
	"ggshop-rest-api/internal/repository"
	"ggshop-rest-api/internal/router"
	"ggshop-rest-api/internal/service"

	_ "github.com/go-sql-driver/mysql"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting GGShop API...")

	// Load configuration
	cfg := config.MustLoad()
	log.Printf("Environment: %s", cfg.App.Environment)

	// Initialize ledger repository based on config
	var ledgerRepo repository.LedgerRepository
	switch cfg.Ledger.Type {
	case "mysql":
		db, err := sql.Open("mysql", cfg.Database.DSN())
		if err != nil {
			log.Fatalf("Failed to open MySQL: %v", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
		if err := db.Ping(); err != nil {
			log.Fatalf("MySQL ping failed: %v", err)
		}
		ledgerRepo = repository.NewMySQLLedgerRepository(db)
		log.Println("MySQL ledger repository initialized")
	case "memory":
		ledgerRepo = repository.NewMemoryLedgerRepository()
		log.Println("In-memory ledger repository initialized")
	default: // sqlite
		sqliteRepo, err := repository.NewSQLiteLedgerRepository(cfg.Ledger.Path, cfg.Shop.DefaultOutfit)
		if err != nil {
			log.Fatalf("Failed to initialize SQLite: %v", err)
		}
		ledgerRepo = sqliteRepo
		log.Println("SQLite ledger repository initialized")
	}
	defer ledgerRepo.Close()

	// Load the catalog once at startup; reloads only happen through the
	// admin endpoint.
	catalogCache := catalog.New(ledgerRepo, cfg.Shop.DefaultOutfit)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := catalogCache.Load(ctx); err != nil {
		log.Fatalf("Failed to load catalog: %v", err)
	}
	cancel()

	// Initialize the notification transport
	var notifier notify.Notifier
	if cfg.Redis.Enabled {
		redisNotifier, err := notify.NewRedisNotifier(notify.RedisNotifierConfig{
			Addr:     cfg.Redis.RedisAddress(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Printf("Warning: Redis notifier unavailable, falling back to log: %v", err)
			notifier = notify.NewLogNotifier()
		} else {
			defer redisNotifier.Close()
			notifier = redisNotifier
			log.Println("Redis notifier initialized")
		}
	} else {
		notifier = notify.NewLogNotifier()
	}

	// Entitlement oracle
	oracle := commerce.NewWebshopClient(cfg.Commerce.BaseURL, cfg.Commerce.APIKey, cfg.Commerce.Timeout)

	// Core service
	sessions := cache.NewSessionCache()
	shop := service.NewShop(ledgerRepo, oracle, catalogCache, sessions, notifier)

	// Initialize handlers
	healthHandler := handler.New(sessions)
	shopHandler := handler.NewShopHandler(shop)
	adminHandler := handler.NewAdminHandler(catalogCache, ledgerRepo, cfg.Shop.AdminKey)

	// Create router
	r := router.New(router.Config{
		Handler:      healthHandler,
		ShopHandler:  shopHandler,
		AdminHandler: adminHandler,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server listening on %s", cfg.Server.Address())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel = context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}
