package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"leavelite/internal/domain/auth"
	"leavelite/internal/platform/config"
)

// Seed creates the bootstrap administrator. It is a no-op when no admin email is configured.
func Seed(ctx context.Context, pool *pgxpool.Pool, cfg config.Config, logger *zap.Logger) error {
	if strings.TrimSpace(cfg.SeedAdminEmail) == "" {
		logger.Info("seed skipped: SEED_ADMIN_EMAIL not set")
		return nil
	}
	svc := auth.NewService(auth.NewStore(pool), cfg.JWTSecret, cfg.TokenTTL, cfg.Policy.DefaultAvailableLeave, logger)
	user, created, err := svc.EnsureAdmin(ctx, cfg.SeedAdminName, cfg.SeedAdminEmail, cfg.SeedAdminPassword)
	if err != nil {
		return fmt.Errorf("seed admin user: %w", err)
	}
	if !created && user.Role != auth.RoleAdmin {
		logger.Warn("seed admin email belongs to a non-admin user", zap.String("userId", user.ID))
	}
	return nil
}
