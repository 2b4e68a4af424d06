// Command authd runs the authentication service: the engine, the HTTP
// surface, and optionally a Redis-backed refresh registry.
//
// Configuration comes from the environment:
//
//	AUTHD_ADDR            listen address (default :8080)
//	AUTHD_JWT_SECRET      HS256 signing secret, at least 32 bytes (required)
//	AUTHD_ISSUER          token issuer (default authcore)
//	AUTHD_REDIS_ADDR      Redis address; empty keeps the in-memory registry
//	AUTHD_SEED_ADMIN      "1" seeds the bootstrap admin account
//	AUTHD_ADMIN_PASSWORD  bootstrap admin password (required with AUTHD_SEED_ADMIN)
//	AUTHD_ALLOW_LEGACY    "1" accepts legacy MD5 digests during migration
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	authcore "github.com/modernwms/authcore"
	"github.com/modernwms/authcore/credstore"
	"github.com/modernwms/authcore/httpapi"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("authd exited", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	secret := os.Getenv("AUTHD_JWT_SECRET")
	if secret == "" {
		return errors.New("AUTHD_JWT_SECRET required")
	}

	cfg := authcore.DefaultConfig()
	cfg.JWT.Secret = []byte(secret)
	if issuer := os.Getenv("AUTHD_ISSUER"); issuer != "" {
		cfg.JWT.Issuer = issuer
	}
	if os.Getenv("AUTHD_ALLOW_LEGACY") == "1" {
		cfg.Password.AllowLegacyDigest = true
		cfg.Password.UpgradeOnLogin = true
	}
	if os.Getenv("AUTHD_SEED_ADMIN") == "1" {
		cfg.Bootstrap.Enabled = true
		cfg.Bootstrap.Password = os.Getenv("AUTHD_ADMIN_PASSWORD")
	}

	builder := authcore.New().
		WithConfig(cfg).
		WithUserStore(credstore.NewMemoryStore()).
		WithAuditSink(authcore.NewJSONAuditSink(os.Stdout))

	var rdb *redis.Client
	if addr := os.Getenv("AUTHD_REDIS_ADDR"); addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: addr})
		defer func() { _ = rdb.Close() }()
		builder = builder.WithRedis(rdb)
		logger.Info("refresh registry backed by redis", "addr", addr)
	}

	engine, err := builder.Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	addr := os.Getenv("AUTHD_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           httpapi.NewServer(engine, logger).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
