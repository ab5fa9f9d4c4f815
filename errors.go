package pgdb

import (
	"errors"
	"fmt"
	"strings"
)

// ErrStartupTimeout is returned by Start when the server process was
// launched but never accepted a TCP connection within the configured
// startup timeout. The process is terminated before the error is returned.
var ErrStartupTimeout = errors.New("timed out waiting for postgres to accept connections")

// External URL validation errors. CreateFixture returns one of these
// (wrapped) when the PGDB_TESTS_URL environment variable is set but does
// not describe a usable administrative URL.
var (
	// ErrExternalURLScheme indicates a scheme other than postgres://.
	ErrExternalURLScheme = errors.New("external database URL must use postgres:// scheme")

	// ErrExternalURLHost indicates a URL without a host.
	ErrExternalURLHost = errors.New("external database URL must include a host")

	// ErrExternalURLUser indicates a URL without a username.
	ErrExternalURLUser = errors.New("external database URL must include a username")
)

// BinaryNotFoundError is returned by Start when one of the required
// PostgreSQL executables (postgres, initdb, psql) could not be located on
// the search path and no explicit path was configured.
type BinaryNotFoundError struct {
	// Name is the executable that was searched for.
	Name string

	// Err is the underlying lookup error.
	Err error
}

func (e *BinaryNotFoundError) Error() string {
	return fmt.Sprintf("could not find %q binary: %v", e.Name, e.Err)
}

func (e *BinaryNotFoundError) Unwrap() error {
	return e.Err
}

// ExitError is returned when an invoked executable (initdb or psql) ran but
// exited with a non-zero status.
type ExitError struct {
	// Binary is the short name of the executable that failed.
	Binary string

	// Code is the exit status.
	Code int

	// Output is the combined output of the process, when captured. It is
	// empty for invocations that inherit the caller's stdout/stderr.
	Output []byte
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", e.Binary, e.Code)
	if out := strings.TrimSpace(string(e.Output)); out != "" {
		msg += ": " + out
	}
	return msg
}
