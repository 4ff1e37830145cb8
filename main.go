package main

import (
	"context"
	"database/sql"
	"log"
	"time"

	"boutique/internal/api"
	"boutique/internal/config"
	"boutique/internal/database"
	"boutique/internal/email"
	"boutique/internal/handlers"
	"boutique/internal/logger"
	"boutique/internal/middleware"
	"boutique/internal/storefront"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const (
	evictInterval = 5 * time.Minute
	purgeInterval = time.Hour
	retryBackoff  = 200 * time.Millisecond
)

func main() {
	cfg := config.Load()
	logger.Configure(cfg.LogLevel, cfg.IsDevelopment())

	db, err := database.Initialize(cfg.DatabasePath)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	emailService := email.NewService(cfg)
	if emailService.IsEnabled() {
		logger.Info("Email service enabled with Mailgun")
	} else {
		logger.Info("Email service disabled - Mailgun not configured")
	}

	// Prices go out as JSON numbers, the way the shop API sends them.
	decimal.MarshalJSONWithoutQuotes = true

	// Only idempotent GETs are ever retried.
	client := api.NewClient(cfg.APIBaseURL, cfg.UpstreamTimeout).
		WithRetry(cfg.UpstreamAttempts, retryBackoff)
	sealer := database.NewSealer(cfg.SecretKey)
	registry := storefront.NewRegistry(client, emailService, func(clientID string) storefront.Storage {
		return database.NewClientStorage(db, clientID, sealer)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go registry.Run(ctx, evictInterval)
	go purgeStale(ctx, db, cfg.SessionDuration)

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.LogRequests())
	r.Use(middleware.SecurityHeaders(cfg))
	r.Use(middleware.CORS(cfg))
	r.Use(middleware.RateLimit(cfg))

	handlers.SetupRoutes(r, cfg, client, registry)

	logger.Info("Server starting", "port", cfg.Port, "api", cfg.APIBaseURL)
	log.Fatal(r.Run(":" + cfg.Port))
}

// purgeStale drops storage rows of clients whose cookie has expired.
func purgeStale(ctx context.Context, db *sql.DB, maxAge time.Duration) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := database.PurgeStale(db, maxAge)
			if err != nil {
				logger.Error("Failed to purge stale client storage", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("Purged stale client storage", "rows", n)
			}
		}
	}
}
