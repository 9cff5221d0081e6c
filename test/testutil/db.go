package testutil

import (
	"os"
	"testing"

	"github.com/jmoiron/sqlx"

	"esagent/internal/config"
	"esagent/internal/repo"
)

// OpenTestDB connects to the local test Postgres, skipping when none is
// configured. The instance needs the pgvector extension available.
func OpenTestDB(t *testing.T) (*sqlx.DB, func()) {
	t.Helper()
	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		t.Skip("TEST_DB_HOST not set, skipping postgres test")
	}
	conn, err := repo.Open(config.PostgresConfig{
		Host:     host,
		Port:     5432,
		User:     "esagent",
		Password: "esagent_pass",
		DBName:   "esagent_test",
		SSLMode:  "disable",
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := repo.ApplyMigrations(conn); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	return conn, func() {
		_ = conn.Close()
	}
}
