package pgdb

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/exec"

	"github.com/yuku/pgdb/internal/pgquote"
)

// adminDatabase is the always-present database administrative statements
// are issued against.
const adminDatabase = "postgres"

// Client is a credential-bound view over an Instance.
//
// A Client borrows its Instance and carries a username/password pair, which
// need not be the superuser's. It holds no connection state; every
// operation is an independent psql invocation. Any number of Clients may
// exist concurrently over one Instance.
type Client struct {
	instance *Instance
	username string
	password string
}

// URL returns the connection URL for the given database with this client's
// credentials.
func (c *Client) URL(database string) *url.URL {
	return connectionURL(c.username, c.password, c.instance.host, c.instance.port, database)
}

// RunSQL executes the given SQL against the named database via psql. The
// invocation inherits the caller's stdout and stderr. A non-zero exit
// status is returned as an ExitError; a failure to launch psql at all is a
// distinct, wrapped error.
func (c *Client) RunSQL(database, sql string) error {
	return runPsql(c.instance.psqlPath, c.URL(database), database, "-c", sql)
}

// LoadSQL executes the SQL script at path against the named database via
// psql, with the same error semantics as RunSQL.
func (c *Client) LoadSQL(database, path string) error {
	return runPsql(c.instance.psqlPath, c.URL(database), database, "-f", path)
}

// CreateUser creates a login role with the given password. This typically
// requires superuser credentials, see Instance.AsSuperuser.
func (c *Client) CreateUser(username, password string) error {
	return c.RunSQL(adminDatabase, createRoleSQL(username, password))
}

// CreateDatabase creates a database owned by the given role. This typically
// requires superuser credentials, see Instance.AsSuperuser.
func (c *Client) CreateDatabase(database, owner string) error {
	return c.RunSQL(adminDatabase, createDatabaseSQL(database, owner))
}

// createRoleSQL builds an escaped CREATE ROLE statement.
func createRoleSQL(username, password string) string {
	return fmt.Sprintf("CREATE ROLE %s LOGIN ENCRYPTED PASSWORD %s;",
		pgquote.EscapeIdentifier(username),
		pgquote.EscapeLiteral(password))
}

// createDatabaseSQL builds an escaped CREATE DATABASE statement.
func createDatabaseSQL(database, owner string) string {
	return fmt.Sprintf("CREATE DATABASE %s OWNER %s;",
		pgquote.EscapeIdentifier(database),
		pgquote.EscapeIdentifier(owner))
}

// Instance returns the Instance this client is bound to.
func (c *Client) Instance() *Instance {
	return c.instance
}

// psqlCommand builds a psql invocation for the connection described by u.
// The password travels through the PGPASSWORD environment variable, never
// the argument list.
func psqlCommand(psqlPath string, u *url.URL, database string, args ...string) *exec.Cmd {
	password, _ := u.User.Password()
	port := u.Port()
	if port == "" {
		port = "5432"
	}

	cmdArgs := []string{
		"-h", u.Hostname(),
		"-p", port,
		"-U", u.User.Username(),
		"-d", database,
	}
	cmdArgs = append(cmdArgs, args...)

	cmd := exec.Command(psqlPath, cmdArgs...)
	cmd.Env = append(os.Environ(), "PGPASSWORD="+password)
	return cmd
}

// runPsql runs psql with inherited stdout/stderr and maps the two failure
// modes: spawn failure and non-zero exit.
func runPsql(psqlPath string, u *url.URL, database string, args ...string) error {
	cmd := psqlCommand(psqlPath, u, database, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &ExitError{Binary: "psql", Code: exitErr.ExitCode()}
		}
		return fmt.Errorf("failed to run psql: %w", err)
	}
	return nil
}

// RunAdminSQL executes SQL against the named database of an arbitrary
// server, using the credentials embedded in adminURL and a search-path
// psql. It serves the external-server path, where no Instance exists.
func RunAdminSQL(adminURL *url.URL, database, sql string) error {
	return runPsql(lookupPsql(), adminURL, database, "-c", sql)
}

// CreateUserAndDatabase creates a login role and a database owned by it on
// the server described by adminURL, which must carry credentials allowed to
// create roles and databases.
func CreateUserAndDatabase(adminURL *url.URL, database, owner, password string) error {
	if err := RunAdminSQL(adminURL, adminDatabase, createRoleSQL(owner, password)); err != nil {
		return err
	}
	return RunAdminSQL(adminURL, adminDatabase, createDatabaseSQL(database, owner))
}

// lookupPsql finds psql on the search path, falling back to the bare name
// so the OS performs the lookup at spawn time.
func lookupPsql() string {
	path, err := exec.LookPath("psql")
	if err != nil {
		return "psql"
	}
	return path
}
