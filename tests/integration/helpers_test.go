//go:build integration

package integration

import (
	"context"
	"database/sql"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/zatekoja/firstresponder/backend/internal/adapters/memory"
	"github.com/zatekoja/firstresponder/backend/internal/domain/entities"
	"github.com/zatekoja/firstresponder/backend/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/firstresponder/backend/internal/infrastructure/clients/redis"
	"github.com/zatekoja/firstresponder/backend/pkg/config"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func newTestRedisClient(t *testing.T) *redis.Client {
	t.Helper()

	cfg := &config.RedisConfig{
		Host:     getEnv("TEST_REDIS_HOST", "localhost"),
		Port:     getEnvAsInt("TEST_REDIS_PORT", 6379),
		Password: getEnv("TEST_REDIS_PASSWORD", ""),
		DB:       getEnvAsInt("TEST_REDIS_DB", 0),
	}

	client, err := redis.NewClient(cfg)
	require.NoError(t, err, "Failed to create redis client")
	return client
}

func newTestPostgresClient(t *testing.T) *postgres.Client {
	t.Helper()

	cfg := &config.DatabaseConfig{
		Host:     getEnv("TEST_DB_HOST", "localhost"),
		Port:     getEnvAsInt("TEST_DB_PORT", 5432),
		User:     getEnv("TEST_DB_USER", "postgres"),
		Password: getEnv("TEST_DB_PASSWORD", "postgres"),
		Database: getEnv("TEST_DB_NAME", "first_responder_test"),
		SSLMode:  getEnv("TEST_DB_SSLMODE", "disable"),
	}

	client, err := postgres.NewClient(cfg)
	require.NoError(t, err, "Failed to create postgres client")
	return client
}

func runMigrations(t *testing.T, db *sql.DB, paths ...string) {
	t.Helper()
	for _, path := range paths {
		migrationSQL, err := os.ReadFile(path)
		require.NoError(t, err)
		_, err = db.Exec(string(migrationSQL))
		require.NoError(t, err)
	}
}

func cleanupDispatchData(t *testing.T, db *sql.DB) {
	t.Helper()
	tables := []string{
		"emergency_responses",
		"emergencies",
		"profiles",
		"frontline_types",
	}
	for _, table := range tables {
		_, err := db.Exec("DELETE FROM " + table)
		require.NoError(t, err)
	}
}

// seedDirectory loads the demo directory and returns its profiles
func seedDirectory(t *testing.T, db *sql.DB) []entities.Profile {
	t.Helper()
	ctx := context.Background()

	for _, ft := range memory.DemoFrontlineTypes() {
		_, err := db.ExecContext(ctx, `INSERT INTO frontline_types (id, name) VALUES ($1, $2)`, ft.ID, ft.Name)
		require.NoError(t, err)
	}

	profiles := memory.DemoProfiles(time.Now())
	for _, p := range profiles {
		_, err := db.ExecContext(ctx, `
			INSERT INTO profiles (id, full_name, phone, email, is_frontline_worker, frontline_type, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			p.ID, p.FullName, p.Phone, p.Email, p.IsFrontlineWorker, p.FrontlineTypeID, p.CreatedAt, p.UpdatedAt,
		)
		require.NoError(t, err)
	}
	return profiles
}
