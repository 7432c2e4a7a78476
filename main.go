package main

import (
	"context"
	"time"

	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/kvstore"
	"storefront/internal/logger"
	"storefront/internal/services"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

func main() {
	cfg := config.LoadConfig()

	log := logger.InitLogger(cfg.LogLevel)
	log.Info().Str("driver", cfg.StoreDriver).Msg("Storefront state layer starting")

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("Storefront state layer failed")
	}
}

func run(cfg config.Config, log zerolog.Logger) error {
	backend, err := db.Open(cfg.StoreDriver, cfg.StoreDSN)
	if err != nil {
		return err
	}
	defer func() {
		if err := backend.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing store backend")
		}
	}()

	registry := prometheus.NewRegistry()
	store := kvstore.New(backend, cfg.KeyPrefix, log, registry)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := store.Ping(ctx); err != nil {
		return err
	}

	front, err := services.NewStorefront(store, services.AuthOptions{
		Admin: services.AdminCredentials{
			ID:       cfg.AdminID,
			Name:     cfg.AdminName,
			Email:    cfg.AdminEmail,
			Password: cfg.AdminPassword,
		},
		SessionSecret: cfg.SessionSecret,
		SessionTTL:    cfg.SessionTTL,
		LoginRate:     cfg.LoginRate,
		LoginBurst:    cfg.LoginBurst,
		BcryptCost:    cfg.BcryptCost,
	}, log)
	if err != nil {
		return err
	}

	current, err := front.Auth.CurrentUser(ctx)
	if err != nil {
		return err
	}
	if current != nil {
		log.Info().Str("user_id", current.ID).Str("role", current.Role).Msg("Session restored")
	} else {
		log.Info().Msg("No active session")
	}

	users, err := front.Users.ListUsers(ctx)
	if err != nil {
		return err
	}

	stats, err := front.Orders.Stats(ctx)
	if err != nil {
		return err
	}

	log.Info().
		Int("users", len(users)).
		Int("orders", stats.Orders).
		Int("pending", stats.Pending).
		Str("revenue", stats.Revenue.String()).
		Msg("Storefront state loaded")

	counts, err := kvstore.OperationCounts(registry)
	if err != nil {
		log.Warn().Err(err).Msg("Error gathering store metrics")
		return nil
	}
	event := log.Info()
	for key, n := range counts {
		event = event.Float64(key, n)
	}
	event.Msg("Store operations")

	return nil
}
