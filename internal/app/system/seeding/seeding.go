// internal/app/system/seeding/seeding.go
package seeding

import (
	"context"
	"errors"
	"fmt"

	userstore "github.com/vicarhk/vicarapi/internal/app/store/users"
	"github.com/vicarhk/vicarapi/internal/app/system/authutil"
	"github.com/vicarhk/vicarapi/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Config names the bootstrap admin created on an empty database.
type Config struct {
	AdminUsername string
	AdminPassword string
}

// SeedAll seeds default data if not already present.
func SeedAll(ctx context.Context, db *mongo.Database, cfg Config, logger *zap.Logger) error {
	if err := seedAdmin(ctx, db, cfg, logger); err != nil {
		return err
	}
	return nil
}

// seedAdmin creates the configured admin when no accounts exist yet.
// Nothing happens if either credential is unset or any account exists.
func seedAdmin(ctx context.Context, db *mongo.Database, cfg Config, logger *zap.Logger) error {
	users := userstore.New(db)

	n, err := users.Count(ctx)
	if err != nil {
		logger.Error("failed to count admin users", zap.Error(err))
		return err
	}
	if n > 0 {
		return nil
	}
	if cfg.AdminUsername == "" || cfg.AdminPassword == "" {
		logger.Warn("no admin accounts exist and no seed admin is configured; set seed_admin_username and seed_admin_password")
		return nil
	}

	if err := authutil.ValidatePassword(cfg.AdminUsername, cfg.AdminPassword); err != nil {
		return fmt.Errorf("seed admin password: %w", err)
	}
	hash, err := authutil.HashPassword(cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("seed admin password: %w", err)
	}

	u, err := users.Create(ctx, models.AdminUser{
		Username:     cfg.AdminUsername,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
	})
	if errors.Is(err, userstore.ErrDuplicateUsername) {
		// Another instance seeded first.
		return nil
	}
	if err != nil {
		logger.Error("failed to seed admin", zap.Error(err))
		return err
	}

	logger.Info("seeded admin account", zap.String("username", u.Username))
	return nil
}
