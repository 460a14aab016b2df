package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/yourorg/tradedock/internal/handler"
	"github.com/yourorg/tradedock/internal/infrastructure/logger"
	"github.com/yourorg/tradedock/internal/infrastructure/redis"
	"github.com/yourorg/tradedock/internal/observability/metrics"
	"github.com/yourorg/tradedock/internal/observability/tracing"
	"github.com/yourorg/tradedock/internal/repository"
	"github.com/yourorg/tradedock/internal/security"
	"github.com/yourorg/tradedock/internal/security/audit"
	"github.com/yourorg/tradedock/internal/security/auth"
	"github.com/yourorg/tradedock/internal/security/middleware"
	"github.com/yourorg/tradedock/internal/security/ratelimit"
	"github.com/yourorg/tradedock/internal/service"
	"github.com/yourorg/tradedock/internal/worker"
	"github.com/yourorg/tradedock/pkg/cache"
	"github.com/yourorg/tradedock/pkg/config"
	"github.com/yourorg/tradedock/pkg/database"
)

func main() {
	// 1. Load configuration; startup fails without a signing secret
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize structured logger
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("starting tradedock server", slog.String("environment", cfg.Environment))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Tracing (no-op unless an OTLP endpoint is configured)
	shutdownTracing, err := tracing.Init(ctx, log, "tradedock", cfg.Environment)
	if err != nil {
		log.Error("failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Postgres pool
	pool, err := database.NewConnectionPool(ctx, &database.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Database: cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	}, log)
	if err != nil {
		log.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 5. Redis is optional; without it the listing cache is disabled
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = redis.NewClient(cfg.RedisURL)
		if err != nil {
			log.Error("failed to connect to redis", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer redisClient.Close()
	}

	// 6. Repositories
	db := pool.GetDB()
	userRepo := repository.NewPostgresUserRepository(db, log)
	companyRepo := repository.NewPostgresCompanyRepository(db, log)
	productRepo := repository.NewPostgresProductRepository(db, log)

	// 7. Security components
	tokenManager, err := auth.NewTokenManager(cfg.JWTSecret, "tradedock")
	if err != nil {
		log.Error("failed to initialize token manager", slog.String("error", err.Error()))
		os.Exit(1)
	}
	cookies := auth.NewSessionCookies(cfg.Environment)
	authorizer := security.NewAuthorizer(log)
	auditLogger := audit.NewLogger(log)
	rateLimiter := ratelimit.NewLimiter(100, time.Minute)
	defer rateLimiter.Stop()

	// 8. Caches
	localCache := cache.New()
	listingCache := service.NewRedisListingCache(redisClient, log, cfg.ListingCacheTTL)

	// 9. Services
	authService := service.NewAuthService(userRepo, tokenManager, log)
	companyService := service.NewCompanyService(companyRepo, productRepo, listingCache, localCache, log, cfg.FeaturedProductLimit, cfg.ExploreCompanyLimit)
	productService := service.NewProductService(productRepo, companyRepo, authorizer, log, cfg.DefaultPageSize, cfg.MaxPageSize)

	// 10. Handlers
	authHandler := handler.NewAuthHandler(authService, cookies, auditLogger, log)
	companyHandler := handler.NewCompanyHandler(companyService, auditLogger, log)
	productHandler := handler.NewProductHandler(productService, auditLogger, log)
	healthHandler := handler.NewHealthHandler(pool, redisClient, log)

	// 11. Routes
	mux := http.NewServeMux()

	authLimit := middleware.RateLimitAuth(rateLimiter, cfg.AuthRateLimit, log)
	mux.Handle("POST /api/auth/register", authLimit(http.HandlerFunc(authHandler.Register)))
	mux.Handle("POST /api/auth/login", authLimit(http.HandlerFunc(authHandler.Login)))
	mux.HandleFunc("POST /api/auth/logout", authHandler.Logout)
	mux.HandleFunc("GET /api/auth/me", authHandler.Me)
	mux.Handle("PUT /api/auth/password", middleware.RequireAuth(http.HandlerFunc(authHandler.ChangePassword)))

	apiLimit := middleware.RateLimit(rateLimiter, log)
	mux.Handle("GET /api/companies", apiLimit(http.HandlerFunc(companyHandler.List)))
	mux.Handle("GET /api/companies/mine", middleware.RequireAuth(http.HandlerFunc(companyHandler.Mine)))
	mux.Handle("PUT /api/companies/mine", middleware.RequireAuth(http.HandlerFunc(companyHandler.Update)))
	mux.Handle("GET /api/companies/{id}", apiLimit(http.HandlerFunc(companyHandler.Get)))
	mux.Handle("POST /api/companies", middleware.RequireAuth(http.HandlerFunc(companyHandler.Create)))
	mux.Handle("GET /api/categories", apiLimit(http.HandlerFunc(companyHandler.Categories)))

	mux.Handle("GET /api/products", apiLimit(http.HandlerFunc(productHandler.List)))
	mux.Handle("GET /api/products/{id}", apiLimit(http.HandlerFunc(productHandler.Get)))
	mux.Handle("POST /api/products", middleware.RequireAuth(http.HandlerFunc(productHandler.Create)))
	mux.Handle("PUT /api/products/{id}", middleware.RequireAuth(http.HandlerFunc(productHandler.Update)))
	mux.Handle("DELETE /api/products/{id}", middleware.RequireAuth(http.HandlerFunc(productHandler.Delete)))

	mux.HandleFunc("GET /healthz", healthHandler.Health)
	mux.HandleFunc("GET /readyz", healthHandler.Ready)
	mux.Handle("GET /metrics", promhttp.Handler())

	// CORS honoring configured origins
	handlerWithCORS := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if originAllowed(cfg.CORSAllowedOrigins, origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		mux.ServeHTTP(w, r)
	})

	// Chain: request ID -> metrics -> content-type validation -> session ->
	// route pattern capture -> CORS+mux. Session forwards a copied request,
	// so the pattern is captured on the mux side and carried back through
	// the metrics writer.
	chained := withRequestID(
		metrics.HTTPMetricsMiddleware(
			middleware.ValidateJSONContentType(log)(
				middleware.Session(tokenManager, userRepo, log)(
					metrics.RoutePattern(handlerWithCORS),
				),
			),
		),
		log,
	)
	rootHandler := otelhttp.NewHandler(chained, "http.server")

	// 12. Background cache janitor
	janitor := worker.NewCacheJanitor(localCache, log, 5*time.Minute)
	go janitor.Start(ctx)

	// 13. HTTP server with graceful shutdown
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      rootHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.String("auth", "jwt-cookie"),
		slog.Bool("listing_cache", listingCache != nil),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.String("error", err.Error()))
		}
	}()

	<-sigChan
	log.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}

	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracing shutdown error", slog.String("error", err.Error()))
	}

	cancel()
	log.Info("server stopped")
}

// withRequestID attaches a request ID to the context and response headers
// and logs request completion
func withRequestID(next http.Handler, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := generateRequestID()
		w.Header().Set("X-Request-ID", reqID)

		ctx := audit.WithRequestID(r.Context(), reqID)
		start := time.Now()

		next.ServeHTTP(w, r.WithContext(ctx))

		log.Info("request completed",
			slog.String("request_id", reqID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Duration("duration_ms", time.Since(start)),
		)
	})
}

func originAllowed(allowed []string, origin string) bool {
	if origin == "" {
		return false
	}
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}

func generateRequestID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err == nil {
		return hex.EncodeToString(buf)
	}
	return fmt.Sprintf("req-%d", time.Now().UnixNano())
}
