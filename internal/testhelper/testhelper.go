// Package testhelper provides shared helpers for tests that need a real
// PostgreSQL installation or server.
package testhelper

import (
	"context"
	"os/exec"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// HasPostgresBinaries reports whether the three executables pgdb needs are
// available on the search path.
func HasPostgresBinaries() bool {
	for _, name := range []string{"initdb", "postgres", "psql"} {
		if _, err := exec.LookPath(name); err != nil {
			return false
		}
	}
	return true
}

// RequirePostgres skips the test unless a local PostgreSQL installation is
// available and integration tests are enabled.
func RequirePostgres(t *testing.T) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if !HasPostgresBinaries() {
		t.Skip("postgres binaries not found on PATH")
	}
}

// Connect opens a pgx connection to the given URL and registers cleanup.
func Connect(t *testing.T, url string) *pgx.Conn {
	t.Helper()

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, url)
	if err != nil {
		t.Fatalf("failed to connect to %s: %v", url, err)
	}
	t.Cleanup(func() {
		_ = conn.Close(context.Background())
	})
	return conn
}

// ConnectPool opens a pgxpool.Pool to the given URL and registers cleanup.
func ConnectPool(t *testing.T, url string) *pgxpool.Pool {
	t.Helper()

	pool, err := pgxpool.New(context.Background(), url)
	if err != nil {
		t.Fatalf("failed to create connection pool for %s: %v", url, err)
	}
	t.Cleanup(pool.Close)
	return pool
}

// DatabaseExists reports whether a database with the given name exists on
// the server conn points at.
func DatabaseExists(t *testing.T, conn *pgx.Conn, name string) bool {
	t.Helper()

	var exists bool
	err := conn.QueryRow(context.Background(),
		"SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)", name).Scan(&exists)
	if err != nil {
		t.Fatalf("failed to check database existence: %v", err)
	}
	return exists
}

// RoleExists reports whether a role with the given name exists on the
// server conn points at.
func RoleExists(t *testing.T, conn *pgx.Conn, name string) bool {
	t.Helper()

	var exists bool
	err := conn.QueryRow(context.Background(),
		"SELECT EXISTS(SELECT 1 FROM pg_roles WHERE rolname = $1)", name).Scan(&exists)
	if err != nil {
		t.Fatalf("failed to check role existence: %v", err)
	}
	return exists
}
