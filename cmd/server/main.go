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

	"golang.org/x/sync/errgroup"

	"roombook/internal/app"
	"roombook/internal/config"
	"roombook/internal/server"
	"roombook/internal/util"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	util.InitLogger(cfg.LogLevel)

	credentialTTL, err := config.ParseCredentialTTL(cfg.CredentialTTL)
	if err != nil {
		slog.Error("parse credential TTL", "err", err)
		os.Exit(1)
	}

	// The redis backend ignores the JWT secret and vice versa.
	jwtSecret := cfg.JWTSecret
	if cfg.CredentialBackend == config.BackendRedis {
		jwtSecret = ""
	}

	core, err := app.New(app.Config{
		DatabaseURL:   cfg.DatabaseURL,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		JWTSecret:     jwtSecret,
		CredentialTTL: credentialTTL,
		TimeZone:      cfg.TimeZone,
	})
	if err != nil {
		slog.Error("init application", "err", err)
		os.Exit(1)
	}

	trusted, err := util.NewTrustedProxies(cfg.TrustedProxyCIDRs)
	if err != nil {
		slog.Error("parse trusted proxies", "err", err)
		os.Exit(1)
	}

	srv, err := server.New(server.Config{
		App:                      core,
		RedisAddr:                cfg.RedisAddr,
		RedisPassword:            cfg.RedisPassword,
		VerifyRateLimitPerMinute: cfg.VerifyRateLimitPerMinute,
		TrustedProxies:           trusted,
	})
	if err != nil {
		slog.Error("init server", "err", err)
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server listening", "port", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("server exited", "err", err)
		os.Exit(1)
	}
}
