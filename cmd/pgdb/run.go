package main

import (
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yuku/pgdb"
	"github.com/yuku/pgdb/internal/pgquote"
)

func run(cmd *cobra.Command, args []string) error {
	for _, name := range []string{flagUser, flagDB} {
		if !pgquote.IsValidIdentifier(name) {
			return fmt.Errorf("%q is not a valid postgres identifier", name)
		}
	}
	if value := os.Getenv(pgdb.ExternalURLEnv); value != "" {
		return runExternal(value)
	}
	return runLocal()
}

// runLocal starts a local server, provisions the dev user/database, prints
// the URLs, and blocks until interrupted. Teardown always runs before exit
// so the spawned server never outlives the CLI.
func runLocal() error {
	config := pgdb.Config{
		Port:              flagPort,
		SuperuserPassword: flagSuperuserPW,
	}
	if flagPostgresBin != "" {
		config.InitdbPath = filepath.Join(flagPostgresBin, "initdb")
		config.PostgresPath = filepath.Join(flagPostgresBin, "postgres")
		config.PsqlPath = filepath.Join(flagPostgresBin, "psql")
	}

	inst, err := pgdb.Start(config)
	if err != nil {
		return err
	}
	defer inst.Stop()

	su := inst.AsSuperuser()
	if err := su.CreateUser(flagUser, flagPassword); err != nil {
		return fmt.Errorf("failed to create user %q: %w", flagUser, err)
	}
	if err := su.CreateDatabase(flagDB, flagUser); err != nil {
		return fmt.Errorf("failed to create database %q: %w", flagDB, err)
	}

	fmt.Println()
	fmt.Println("Postgres is now running and ready to accept connections.")
	fmt.Println()
	fmt.Printf("PGHOST=%s\n", inst.Host())
	fmt.Printf("PGPORT=%d\n", inst.Port())
	printAccess(su.URL("postgres"), inst.AsUser(flagUser, flagPassword).URL(flagDB))

	waitForInterrupt()
	fmt.Println("\nShutting down.")
	return nil
}

// runExternal provisions the dev user/database on a pre-existing server
// described by PGDB_TESTS_URL and blocks until interrupted. The created
// objects are left in place; an external server's lifecycle is not ours to
// manage.
func runExternal(value string) error {
	adminURL, err := pgdb.ParseExternalURL(value)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", pgdb.ExternalURLEnv, err)
	}

	if err := pgdb.CreateUserAndDatabase(adminURL, flagDB, flagUser, flagPassword); err != nil {
		return fmt.Errorf("failed to provision on external server: %w", err)
	}

	userURL := *adminURL
	userURL.User = url.UserPassword(flagUser, flagPassword)
	userURL.Path = "/" + flagDB

	fmt.Println()
	fmt.Println("Connected to external PostgreSQL instance.")
	fmt.Println()
	fmt.Printf("PGHOST=%s\n", adminURL.Hostname())
	port := adminURL.Port()
	if port == "" {
		port = "5432"
	}
	fmt.Printf("PGPORT=%s\n", port)
	printAccess(adminURL, &userURL)
	fmt.Printf("\n(Using external PostgreSQL instance from %s)\n", pgdb.ExternalURLEnv)

	waitForInterrupt()
	return nil
}

func printAccess(superuserURL, userURL *url.URL) {
	fmt.Printf("Superuser access:\n\n    %s\n", superuserURL)
	fmt.Printf("\nA database named %q, owned by a user %q has been created.\n\n", flagDB, flagUser)
	fmt.Printf("Regular user access:\n\n    %s\n", userURL)
	fmt.Println("\nYou can run `psql` with either URL to connect.")
}

func waitForInterrupt() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	<-ch
}
