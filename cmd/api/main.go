//	@title			Mediabin API
//	@version		1.0
//	@description	Media-object store: image upload, CDN-friendly retrieval, boolean tag search.
//
//	@host		localhost:8080
//	@BasePath	/api/v1
//
//	@securityDefinitions.apikey	ApiKeyAuth
//	@in							header
//	@name						Authorization
//	@description				API key. Format: **Bearer {key}**

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/mediabin/service/internal/auth"
	"github.com/mediabin/service/internal/cache"
	"github.com/mediabin/service/internal/config"
	"github.com/mediabin/service/internal/db"
	"github.com/mediabin/service/internal/media"
	appMiddleware "github.com/mediabin/service/internal/middleware"
	"github.com/mediabin/service/internal/storage"
	"github.com/mediabin/service/internal/tag"

	_ "github.com/mediabin/service/docs/swagger"
)

func main() {
	cfg := config.Load()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	pool, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		log.Fatal().Err(err).Msg("database migration failed")
	}

	backend, err := newBackend(cfg, pool)
	if err != nil {
		log.Fatal().Err(err).Msg("storage backend init failed")
	}
	log.Info().Str("backend", backend.Name()).Msg("storage backend ready")

	// Wire dependencies: repository → service → handler
	tagRepo := tag.NewRepository(pool)
	mediaRepo := media.NewRepository(pool, tagRepo)
	mediaSvc := media.NewService(mediaRepo, backend, cfg.MaxUploadBytes)

	signer := auth.NewSigner(cfg.SignedURLSecret, cfg.SignedURLDefaultExpiry, cfg.SignedURLMaxExpiry)
	authRepo := auth.NewRepository(pool)
	authSvc := auth.NewService(authRepo, signer, mediaRepo)
	authHandler := auth.NewHandler(authSvc)

	if err := authSvc.EnsureBootstrapKey(context.Background(), cfg.BootstrapAdminKey); err != nil {
		log.Fatal().Err(err).Msg("bootstrap admin key failed")
	}

	validator := &cache.Validator{MaxAge: cfg.CacheMaxAge}
	mediaHandler := media.NewHandler(mediaSvc, authSvc, validator, cfg.MaxUploadBytes, cfg.SecurityEnabled)

	if !cfg.SecurityEnabled {
		log.Warn().Msg("SECURITY_ENABLED=false: all endpoints are open")
	}

	requireKey := func(perm auth.Permission) func(http.Handler) http.Handler {
		return appMiddleware.RequireKey(authSvc, cfg.SecurityEnabled, perm)
	}

	// Router
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "If-None-Match", "If-Modified-Since", "X-Request-ID"},
		MaxAge:         300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Swagger UI — available at http://localhost:8080/swagger/
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/media", func(r chi.Router) {
			r.With(requireKey(auth.PermUpload)).Post("/", mediaHandler.Upload)

			// Reads authorize inside the handler: api key, signed url, or token.
			r.Get("/{id}", mediaHandler.Get)
			r.Get("/{id}/meta", mediaHandler.GetMeta)

			r.With(requireKey(auth.PermDelete)).Delete("/{id}", mediaHandler.Delete)
			r.With(requireKey(auth.PermGenerateSignedURL)).Post("/{id}/signed-url", authHandler.SignURL)

			r.Group(func(r chi.Router) {
				r.Use(requireKey(auth.PermAdmin))
				r.Post("/{id}/tokens", authHandler.IssueToken)
				r.Get("/{id}/tokens", authHandler.ListTokens)
			})
		})

		r.With(requireKey(auth.PermSearch)).Get("/search", mediaHandler.Search)

		r.Group(func(r chi.Router) {
			r.Use(requireKey(auth.PermAdmin))
			r.Post("/keys", authHandler.CreateKey)
			r.Get("/keys", authHandler.ListKeys)
			r.Delete("/keys/{id}", authHandler.RevokeKey)
			r.Delete("/tokens/{id}", authHandler.RevokeToken)
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine; wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.AppEnv).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-quit
	log.Info().Msg("shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}

	log.Info().Msg("server stopped")
}

// newBackend builds the storage backend selected by configuration. The choice
// is fixed per deployment.
func newBackend(cfg *config.Config, pool *pgxpool.Pool) (storage.Backend, error) {
	switch cfg.StorageBackend {
	case "filesystem":
		return storage.NewFilesystem(cfg.StorageDir)
	case "database":
		return storage.NewDatabase(pool), nil
	case "s3":
		return storage.NewMinio(cfg.S3Endpoint, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3UseSSL)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
