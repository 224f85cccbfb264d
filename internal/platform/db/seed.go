package db

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/weerawatman/frappe-performance-pulse-sub001/internal/domain/auth"
	"github.com/weerawatman/frappe-performance-pulse-sub001/internal/platform/config"
)

// Seed provisions the bootstrap accounts on an empty database: one admin
// from config plus one user per workflow role so a fresh install can walk a
// record through the whole pipeline. Existing emails are left untouched.
func Seed(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	adminEmail := cfg.SeedAdminEmail
	adminPassword := cfg.SeedAdminPassword
	if adminEmail == "" {
		adminEmail = "admin@example.com"
	}
	if adminPassword == "" {
		adminPassword = "admin-change-me"
	}

	seeds := []struct {
		email    string
		name     string
		role     string
		password string
	}{
		{adminEmail, "Administrator", auth.RoleAdmin, adminPassword},
		{"employee@example.com", "Sample Employee", auth.RoleEmployee, adminPassword},
		{"checker@example.com", "Sample Checker", auth.RoleChecker, adminPassword},
		{"approver@example.com", "Sample Approver", auth.RoleApprover, adminPassword},
	}

	for _, seed := range seeds {
		hash, err := auth.HashPassword(seed.password)
		if err != nil {
			return err
		}
		tag, err := pool.Exec(ctx, `
      INSERT INTO users (id, email, name, role, status, password_hash)
      VALUES ($1, $2, $3, $4, $5, $6)
      ON CONFLICT (email) DO NOTHING
    `, uuid.NewString(), seed.email, seed.name, seed.role, auth.UserStatusActive, hash)
		if err != nil {
			return err
		}
		if tag.RowsAffected() > 0 {
			slog.Info("seeded user", "email", seed.email, "role", seed.role)
		}
	}
	return nil
}
