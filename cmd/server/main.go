package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/d21hq/d21/internal/auth"
	"github.com/d21hq/d21/internal/cache"
	"github.com/d21hq/d21/internal/config"
	"github.com/d21hq/d21/internal/core"
	"github.com/d21hq/d21/internal/database"
	"github.com/d21hq/d21/internal/geocode"
	"github.com/d21hq/d21/internal/imagehost"
	"github.com/d21hq/d21/internal/logging"
	"github.com/d21hq/d21/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	core.EnableStackTraces(cfg.App.IsDevelopment())

	slog.Info("configuration loaded",
		"env", cfg.App.Environment,
		"port", cfg.Server.Port,
		"db_max_conns", cfg.Database.MaxConns,
		"image_backend", cfg.Images.Backend,
		"cache_enabled", cfg.Redis.Enabled(),
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	ctx := context.Background()
	pool, err := database.Connect(ctx, database.PoolConfig{
		URL:             cfg.Database.URL,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
	})
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, pool); err != nil {
			slog.Error("failed to apply schema", "error", err)
			os.Exit(1)
		}
		slog.Info("schema applied")
	}

	metrics := web.NewMetrics()

	// Image rehosting
	limiter := imagehost.NewLimiter(cfg.Images.MaxConcurrent, cfg.Images.MaxWait)
	images, err := newImageHelper(ctx, cfg, limiter, metrics)
	if err != nil {
		slog.Error("failed to set up image backend", "backend", cfg.Images.Backend, "error", err)
		os.Exit(1)
	}

	// Reference data cache
	var refCache core.Cache = cache.Nop{}
	if cfg.Redis.Enabled() {
		rc := cache.NewRedis(cache.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL,
		})
		if err := rc.Ping(ctx); err != nil {
			// Caching is optional; run uncached rather than refuse to start.
			slog.Warn("redis unavailable, reference data will not be cached", "error", err)
			_ = rc.Close()
		} else {
			defer rc.Close()
			refCache = rc
			slog.Info("connected to redis", "addr", cfg.Redis.Addr)
		}
	}

	service := core.NewService(database.New(pool),
		core.WithImageRehoster(images),
		core.WithGeocoder(geocode.NewClient(cfg.Geocode.BaseURL, cfg.Geocode.UserAgent, cfg.Geocode.Timeout)),
		core.WithCache(refCache),
	)

	server := web.NewServer(service, web.Options{
		Verifier:   auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Audience),
		CookieName: cfg.Auth.CookieName,
		Metrics:    metrics,
		Server:     cfg.Server,
		Rate:       cfg.Rate,
		Security:   cfg.Security,
		Ready:      pool.Ping,
	})

	// Create cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())

	go service.StartAuditPurgeScheduler(jobCtx, core.AuditPurgeConfig{
		RetentionDays: cfg.Audit.RetentionDays,
		Interval:      cfg.Audit.PurgeInterval,
	})

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		// Stop background jobs
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}

		// Let in-flight rehosts finish before the pool closes
		if active := limiter.ActiveCount(); active > 0 {
			slog.Info("waiting for image uploads to complete", "active", active)
			if err := limiter.WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("image uploads did not complete in time", "error", err)
			}
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(cfg.Server.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		cancelJobs()
		return
	}
	<-done
	slog.Info("server stopped")
}

// newImageHelper builds the rehosting helper for the configured backend.
func newImageHelper(ctx context.Context, cfg *config.Config, limiter *imagehost.Limiter, metrics *web.Metrics) (*imagehost.Helper, error) {
	opts := []imagehost.Option{
		imagehost.WithExtraHosts(cfg.Images.ExtraHosts...),
		imagehost.WithLimiter(limiter),
		imagehost.WithObserver(metrics.ObserveRehost),
	}

	switch cfg.Images.Backend {
	case "mirror":
		mcfg := imagehost.MirrorConfig{
			Endpoint:   cfg.Storage.Endpoint,
			AccessKey:  cfg.Storage.AccessKey,
			SecretKey:  cfg.Storage.SecretKey,
			UseSSL:     cfg.Storage.UseSSL,
			Bucket:     cfg.Storage.Bucket,
			PublicBase: cfg.Storage.PublicBase,
			Timeout:    cfg.Images.Timeout,
			MaxBytes:   cfg.Images.MaxBytes,

			AllowedNetworks: cfg.Images.AllowedNetworks,
		}
		client, err := imagehost.NewMinioClient(mcfg)
		if err != nil {
			return nil, err
		}
		mirror := imagehost.NewMirror(client, mcfg)
		if err := mirror.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		opts = append(opts, imagehost.WithExtraHosts(mirror.PublicHost()))
		return imagehost.New(mirror, opts...), nil

	default:
		return imagehost.New(imagehost.NewPostImages(cfg.Images.UploadURL, cfg.Images.Timeout), opts...), nil
	}
}
