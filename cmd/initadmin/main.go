package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/custody-service/internal/auth"
	"github.com/spec-kit/custody-service/internal/config"
	"github.com/spec-kit/custody-service/internal/domain"
	"github.com/spec-kit/custody-service/internal/observability"
	"github.com/spec-kit/custody-service/internal/persistence"
	"github.com/spec-kit/custody-service/internal/repository"
)

// initadmin bootstraps the first administrator account. Every later account
// flows through provisioning tokens, which only administrators can mint.
func main() {
	phone := os.Getenv("ADMIN_PHONE")
	name := os.Getenv("ADMIN_NAME")
	sample := os.Getenv("ADMIN_BIOMETRIC_SAMPLE")
	if phone == "" || name == "" || sample == "" {
		log.Fatal("ADMIN_PHONE, ADMIN_NAME and ADMIN_BIOMETRIC_SAMPLE are required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	identities := repository.NewIdentityRepository(pg.PoolHandle())

	if existing, err := identities.GetByPhone(ctx, phone); err == nil {
		logger.Info("administrator already exists",
			zap.String("identity_id", existing.ID),
			zap.String("role", string(existing.Role)))
		return
	} else if err != pgx.ErrNoRows {
		logger.Fatal("failed to check existing identity", zap.Error(err))
	}

	hash, err := auth.HashSample(sample, cfg.Auth.BcryptCost)
	if err != nil {
		logger.Fatal("failed to hash biometric sample", zap.Error(err))
	}

	admin := &domain.Identity{
		Phone:         phone,
		Name:          name,
		Role:          domain.RoleAdministrator,
		Designation:   "System Administrator",
		BiometricHash: hash,
		Active:        true,
	}
	if err := identities.Create(ctx, admin); err != nil {
		logger.Fatal("failed to create administrator", zap.Error(err))
	}

	logger.Info("administrator bootstrapped", zap.String("identity_id", admin.ID))
}
