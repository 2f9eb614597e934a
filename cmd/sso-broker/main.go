// Command sso-broker runs the identity broker HTTP server.
package main

import (
	"context"
	"encoding/base64"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/appleboy/graceful"

	"github.com/go-identity/sso-broker/pkg/broker"
	"github.com/go-identity/sso-broker/pkg/core"
	"github.com/go-identity/sso-broker/pkg/httpapi"
	"github.com/go-identity/sso-broker/pkg/idp"
	"github.com/go-identity/sso-broker/pkg/logger"
	"github.com/go-identity/sso-broker/pkg/store"
	"github.com/go-identity/sso-broker/pkg/vault"
)

func main() {
	var addr string
	var userPoolID string
	var kmsKeyID string
	var cipherType string
	var logLevel string
	var storeType string
	var redisAddr string
	var redisPassword string
	var redisDB int
	var refreshTokenDays int
	flag.StringVar(&addr, "addr", ":8096", "address to listen on")
	flag.StringVar(&userPoolID, "user-pool-id", os.Getenv("COGNITO_POOL_ID"), "Cognito user pool ID")
	flag.StringVar(&kmsKeyID, "kms-key-id", os.Getenv("KMS_TOKEN_KEY_ALIAS"), "KMS key ID or alias for token encryption")
	flag.StringVar(&cipherType, "cipher", "kms", "Token cipher: kms or local")
	flag.StringVar(&logLevel, "log-level", "", "Log level (DEBUG, INFO, WARN, ERROR). Defaults to DEBUG in development, INFO in production")
	flag.StringVar(&storeType, "store", "memory", "Grant store type: memory or redis")
	flag.StringVar(&redisAddr, "redis-addr", "localhost:6379", "Redis address (only used when store=redis)")
	flag.StringVar(&redisPassword, "redis-password", "", "Redis password (only used when store=redis)")
	flag.IntVar(&redisDB, "redis-db", 0, "Redis database (only used when store=redis)")
	flag.IntVar(&refreshTokenDays, "refresh-token-days", 1, "Refresh token cookie lifetime in days")
	flag.Parse()

	// Initialize logger with the specified log level
	logger.NewWithLevel(logLevel)

	if userPoolID == "" {
		slog.Error("Cognito user pool ID must be provided")
		os.Exit(1)
	}

	ctx := context.Background()

	gateway, err := idp.NewCognitoGatewayFromConfig(ctx, userPoolID)
	if err != nil {
		slog.Error("Failed to create identity provider gateway", "error", err)
		os.Exit(1)
	}

	cipher, err := buildCipher(ctx, cipherType, kmsKeyID)
	if err != nil {
		slog.Error("Failed to create token cipher", "type", cipherType, "error", err)
		os.Exit(1)
	}

	storeConfig := store.Config{
		Type: store.ParseStoreType(storeType),
		Redis: store.RedisOptions{
			Addr:     redisAddr,
			Password: redisPassword,
			DB:       redisDB,
		},
	}
	grants, err := store.NewStore(storeConfig)
	if err != nil {
		slog.Error("Failed to create grant store", "type", storeType, "error", err)
		os.Exit(1)
	}
	switch storeConfig.Type {
	case store.StoreTypeMemory:
		slog.Info("Using in-memory grant store")
	case store.StoreTypeRedis:
		slog.Info("Using Redis grant store", "addr", redisAddr, "db", redisDB)
	}

	svc := broker.New(gateway, grants, vault.New(cipher))
	triggers := idp.NewTriggers(svc)
	server := httpapi.NewServer(svc, triggers, httpapi.Options{
		RefreshTokenMaxAge: time.Duration(refreshTokenDays) * 24 * time.Hour,
	})

	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("Identity broker listening", "addr", addr)

	m := graceful.NewManager()
	m.AddRunningJob(func(context.Context) error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	m.AddShutdownJob(func() error {
		slog.Info("Shutdown signal received, shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if redisStore, ok := grants.(*store.RedisStore); ok {
			defer redisStore.Close()
		}
		return srv.Shutdown(shutdownCtx)
	})
	<-m.Done()

	slog.Info("Server shutdown gracefully")
}

// buildCipher selects the token cipher backend. The local cipher exists for
// development without a KMS endpoint; its key comes from BROKER_LOCAL_KEY
// as base64 of 32 bytes.
func buildCipher(ctx context.Context, cipherType, kmsKeyID string) (core.Cipher, error) {
	switch cipherType {
	case "local":
		key, err := base64.StdEncoding.DecodeString(os.Getenv("BROKER_LOCAL_KEY"))
		if err != nil {
			return nil, err
		}
		return vault.NewLocalCipher(key)
	default:
		return vault.NewKMSCipherFromConfig(ctx, kmsKeyID)
	}
}
