package pgdb

import "time"

// Defaults applied by Start for unset Config fields.
const (
	// DefaultHost is the bind host used when Config.Host is empty.
	DefaultHost = "127.0.0.1"

	// DefaultSuperuser is the superuser name used when Config.Superuser is
	// empty.
	DefaultSuperuser = "postgres"

	// DefaultProbeInterval is the pause between startup probes when
	// Config.ProbeInterval is zero.
	DefaultProbeInterval = 100 * time.Millisecond

	// DefaultStartupTimeout bounds the whole startup probe loop when
	// Config.StartupTimeout is zero.
	DefaultStartupTimeout = 10 * time.Second

	// stopGracePeriod is how long an Instance waits for postgres to shut
	// down after the termination request before forcing it.
	stopGracePeriod = 5 * time.Second
)

// Config describes a PostgreSQL instance to be launched by Start.
//
// The zero value is usable: every field has a documented default. No
// validation happens at construction time; Start applies the defaults and
// reports all failures.
type Config struct {
	// DataDir is the postgres data directory. If empty, a subdirectory of
	// a fresh temporary directory is used and removed on teardown.
	DataDir string

	// Host is the bind address. Defaults to DefaultHost.
	Host string

	// Port is the TCP port to listen on. If zero, an unused port is
	// allocated by binding to port 0 and reading back the OS-assigned
	// port. Postgres itself does not accept port 0, so this allocation is
	// inherently racy; see allocatePort.
	Port uint16

	// ReusePort skips the process-wide claimed-port bookkeeping for an
	// explicitly requested Port. The caller accepts the collision risk.
	ReusePort bool

	// Superuser is the name of the superuser account created by initdb.
	// Defaults to DefaultSuperuser.
	Superuser string

	// SuperuserPassword is the superuser password. If empty, a random
	// 128-bit hex string is generated. The password is handed to initdb
	// through a file, never on the command line.
	SuperuserPassword string

	// PostgresPath, InitdbPath, and PsqlPath are explicit locations of the
	// three required executables. Any that are empty are discovered via a
	// search-path lookup; a failed lookup yields a BinaryNotFoundError
	// naming the missing binary.
	PostgresPath string
	InitdbPath   string
	PsqlPath     string

	// ProbeInterval is how long to sleep between startup probe attempts.
	// Defaults to DefaultProbeInterval.
	ProbeInterval time.Duration

	// StartupTimeout is the total time allowed for the server to start
	// accepting TCP connections. Defaults to DefaultStartupTimeout.
	StartupTimeout time.Duration
}

// withDefaults returns a copy of c with the documented defaults filled in.
// Executable discovery is left to Start since it is fallible.
func (c Config) withDefaults() Config {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Superuser == "" {
		c.Superuser = DefaultSuperuser
	}
	if c.SuperuserPassword == "" {
		c.SuperuserPassword = randomHex()
	}
	if c.ProbeInterval <= 0 {
		c.ProbeInterval = DefaultProbeInterval
	}
	if c.StartupTimeout <= 0 {
		c.StartupTimeout = DefaultStartupTimeout
	}
	return c
}
