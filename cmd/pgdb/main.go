// Package main provides the pgdb CLI: a disposable PostgreSQL server with
// one regular user owning a single database, intended for local
// development. The server (or, with PGDB_TESTS_URL set, the provisioned
// database on an external server) lives until the process is interrupted.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Flag values.
var (
	flagPort        uint16
	flagUser        string
	flagPassword    string
	flagDB          string
	flagSuperuserPW string
	flagPostgresBin string
)

// defaultPort deliberately avoids the stock 5432 so a development server
// does not clash with a system-wide installation or with test suites using
// auto-allocated ports.
const defaultPort = 15432

var rootCmd = &cobra.Command{
	Use:   "pgdb",
	Short: "Run a temporary postgres database with one user owning a single DB",
	Long: `pgdb starts a throwaway PostgreSQL server in a temporary directory,
creates a regular user and a database owned by it, prints the connection
URLs, and keeps the server alive until interrupted. All state is removed on
shutdown.

If the PGDB_TESTS_URL environment variable is set to a postgres:// URL with
administrative credentials, no local server is started; the user and
database are created on that server instead.`,
	Args: cobra.NoArgs,
	RunE: run,
	// The command manages its own teardown messaging.
	SilenceUsage: true,
}

func init() {
	rootCmd.Flags().Uint16VarP(&flagPort, "port", "p", defaultPort, "database port to use")
	rootCmd.Flags().StringVarP(&flagUser, "user", "u", "dev", "username for the regular database user")
	rootCmd.Flags().StringVarP(&flagPassword, "password", "P", "dev", "password for the regular database user")
	rootCmd.Flags().StringVarP(&flagDB, "db", "d", "dev", "name of the regular user-owned database")
	rootCmd.Flags().StringVarP(&flagSuperuserPW, "superuser-pw", "S", "", "superuser password (default: randomly generated)")
	rootCmd.Flags().StringVar(&flagPostgresBin, "postgres-bin", os.Getenv("PGDB_POSTGRES_BIN"),
		"directory containing the postgres binaries (env: PGDB_POSTGRES_BIN)")
}
