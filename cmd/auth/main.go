package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/postloom/social-auth/internal/adapter/cache"
	"github.com/postloom/social-auth/internal/adapter/provider"
	"github.com/postloom/social-auth/internal/config"
	httptransport "github.com/postloom/social-auth/internal/http"
	"github.com/postloom/social-auth/internal/http/handler"
	apimiddleware "github.com/postloom/social-auth/internal/middleware"
	"github.com/postloom/social-auth/internal/publish"
	"github.com/postloom/social-auth/internal/secrets"
	"github.com/postloom/social-auth/internal/server"
	authservice "github.com/postloom/social-auth/internal/service/auth"
	"github.com/postloom/social-auth/internal/store"
	"github.com/postloom/social-auth/internal/telemetry"
)

func main() {
	app := fx.New(
		fx.Provide(
			newConfig,
			newLogger,
			newTelemetry,
			newStateStore,
			newCipher,
			newStore,
			newProviderClient,
			newPublisher,
			newTokenService,
			newAuthHandler,
			newRateLimiter,
			newRouter,
			server.NewHTTPServer,
		),
		fx.Invoke(useTelemetry, startHTTPServer),
	)

	app.Run()
}

func newConfig() (config.Config, error) {
	return config.Load()
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Environment == "development" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}

func newTelemetry(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*telemetry.Provider, error) {
	provider, err := telemetry.New(context.Background(), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("telemetry init: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return provider.Shutdown(stopCtx)
		},
	})

	return provider, nil
}

func newStateStore(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (store.StateStore, error) {
	if cfg.RedisAddr == "" {
		logger.Info("redis not configured, using in-memory state store")
		return cache.NewMemoryStateStore(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return cache.NewRedisStateStore(client), nil
}

func newCipher(cfg config.Config, logger *zap.Logger) (*secrets.Cipher, error) {
	return secrets.NewCipher(cfg.EncryptionKey, cfg.EncryptionKeyFile, logger)
}

func newStore(state store.StateStore, cipher *secrets.Cipher, logger *zap.Logger) *store.Store {
	return store.New(state, cipher, logger)
}

func newProviderClient(cfg config.Config) provider.Client {
	return provider.NewHTTPClient(&http.Client{Timeout: cfg.ProviderTimeout})
}

func newPublisher(cfg config.Config) publish.Publisher {
	return publish.NewHTTPPublisher(&http.Client{Timeout: cfg.PublishTimeout})
}

func newTokenService(st *store.Store, client provider.Client, logger *zap.Logger) *authservice.TokenService {
	return authservice.NewTokenService(st, client, logger)
}

func newAuthHandler(tokens *authservice.TokenService, publisher publish.Publisher, cfg config.Config, logger *zap.Logger) *handler.AuthHandler {
	return handler.NewAuthHandler(tokens, publisher, cfg.BaseURL, logger)
}

func newRateLimiter(cfg config.Config) *apimiddleware.RateLimiter {
	return apimiddleware.NewRateLimiter(cfg.RateLimitRPM)
}

func newRouter(cfg config.Config, authHandler *handler.AuthHandler, rateLimiter *apimiddleware.RateLimiter) *gin.Engine {
	return httptransport.NewRouter(cfg, authHandler, rateLimiter)
}

func startHTTPServer(lc fx.Lifecycle, srv *server.HTTPServer, cfg config.Config, logger *zap.Logger) {
	addr := ":" + cfg.HTTPPort
	var (
		cancel context.CancelFunc
		done   chan struct{}
	)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			runCtx, stop := context.WithCancel(context.Background())
			cancel = stop
			done = make(chan struct{})

			go func() {
				if err := srv.Run(runCtx, addr); err != nil {
					logger.Error("http server stopped", zap.Error(err))
				}
				close(done)
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cancel != nil {
				cancel()
			}
			if done == nil {
				return nil
			}
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

func useTelemetry(*telemetry.Provider) {}
