package pgdb

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/yuku/pgdb/internal/procguard"
)

// Instance is a running local PostgreSQL server.
//
// An Instance exclusively owns the server process and the temporary
// directory holding its data. Stop terminates the process (gracefully, with
// a bounded wait) and removes the directory; it runs at most once no matter
// how often it is called.
type Instance struct {
	host              string
	port              uint16
	superuser         string
	superuserPassword string

	guard    *procguard.Guard
	psqlPath string
	tmpDir   string

	stopOnce sync.Once
}

// Start launches a PostgreSQL instance described by config.
//
// It allocates a port, resolves the three required executables, initializes
// a fresh data directory under a new temporary directory, spawns the server
// process, and blocks until the server accepts a TCP connection or the
// startup timeout elapses. On any failure, resources acquired so far
// (process, temporary directory) are released before the error is returned.
func Start(config Config) (*Instance, error) {
	config = config.withDefaults()

	port, err := allocatePort(config.Port, config.ReusePort)
	if err != nil {
		return nil, err
	}

	postgresPath, err := resolveBinary("postgres", config.PostgresPath)
	if err != nil {
		return nil, err
	}
	initdbPath, err := resolveBinary("initdb", config.InitdbPath)
	if err != nil {
		return nil, err
	}
	psqlPath, err := resolveBinary("psql", config.PsqlPath)
	if err != nil {
		return nil, err
	}

	tmpDir, err := os.MkdirTemp("", "pgdb-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary directory for database: %w", err)
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = filepath.Join(tmpDir, "db")
	}

	// The password goes through a file so it never appears in a process
	// argument list.
	pwFile := filepath.Join(tmpDir, "superuser-pw")
	if err := os.WriteFile(pwFile, []byte(config.SuperuserPassword), 0o600); err != nil {
		_ = os.RemoveAll(tmpDir)
		return nil, fmt.Errorf("failed to write superuser password file: %w", err)
	}

	if err := runInitdb(initdbPath, dataDir, pwFile, config.Superuser); err != nil {
		_ = os.RemoveAll(tmpDir)
		return nil, err
	}

	// The Unix socket directory is pointed at the temporary directory so
	// the server never touches the system-wide default.
	serverCmd := exec.Command(postgresPath,
		"-D", dataDir,
		"-p", strconv.Itoa(int(port)),
		"-k", tmpDir,
	)
	guard, err := procguard.Start(serverCmd, stopGracePeriod)
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		return nil, fmt.Errorf("failed to launch postgres: %w", err)
	}

	if err := probeStartup(config.Host, port, config.ProbeInterval, config.StartupTimeout); err != nil {
		guard.Stop()
		_ = os.RemoveAll(tmpDir)
		return nil, err
	}

	return &Instance{
		host:              config.Host,
		port:              port,
		superuser:         config.Superuser,
		superuserPassword: config.SuperuserPassword,
		guard:             guard,
		psqlPath:          psqlPath,
		tmpDir:            tmpDir,
	}, nil
}

// resolveBinary returns the explicit path when set, otherwise looks the
// binary up on the search path.
func resolveBinary(name, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return "", &BinaryNotFoundError{Name: name, Err: err}
	}
	return path, nil
}

// runInitdb initializes the data directory. Locale is disabled, encoding is
// fixed to UTF8, password authentication is required for all roles, and
// durability sync is off since the data is disposable test state.
func runInitdb(initdbPath, dataDir, pwFile, superuser string) error {
	cmd := exec.Command(initdbPath,
		"--no-locale",
		"--auth=md5",
		"--encoding=UTF8",
		"--nosync",
		"--pgdata", dataDir,
		"--pwfile", pwFile,
		"--username", superuser,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &ExitError{Binary: "initdb", Code: exitErr.ExitCode(), Output: output}
		}
		return fmt.Errorf("failed to run initdb: %w", err)
	}
	return nil
}

// probeStartup repeatedly attempts a plain TCP connection to host:port
// until one succeeds or the timeout elapses. This loop is the only retry
// logic in the module and is bounded solely by the timeout.
func probeStartup(host string, port uint16, interval, timeout time.Duration) error {
	addr := net.JoinHostPort(host, strconv.Itoa(int(port)))
	deadline := time.Now().Add(timeout)
	for {
		conn, err := net.Dial("tcp", addr)
		if err == nil {
			_ = conn.Close()
			return nil
		}
		if time.Now().After(deadline) {
			return ErrStartupTimeout
		}
		time.Sleep(interval)
	}
}

// Host returns the bind host of the instance.
func (in *Instance) Host() string {
	return in.host
}

// Port returns the TCP port the instance is listening on.
func (in *Instance) Port() uint16 {
	return in.port
}

// SuperuserURL returns the connection URL with superuser credentials and no
// database path.
func (in *Instance) SuperuserURL() *url.URL {
	return connectionURL(in.superuser, in.superuserPassword, in.host, in.port, "")
}

// AsSuperuser returns a client bound to this instance with superuser
// credentials. No I/O occurs.
func (in *Instance) AsSuperuser() *Client {
	return in.AsUser(in.superuser, in.superuserPassword)
}

// AsUser returns a client bound to this instance with the given
// credentials. The credentials are not checked; a wrong password surfaces
// when the client is first used. No I/O occurs.
func (in *Instance) AsUser(username, password string) *Client {
	return &Client{
		instance: in,
		username: username,
		password: password,
	}
}

// Stop tears the instance down: the server process is terminated first
// (graceful request, bounded wait, then forced), then the temporary
// directory is removed. Stop never fails; filesystem removal errors are
// observable only as leftover directories. Safe to call multiple times;
// only the first call acts.
func (in *Instance) Stop() {
	in.stopOnce.Do(func() {
		if in.guard != nil {
			in.guard.Stop()
		}
		if in.tmpDir != "" {
			_ = os.RemoveAll(in.tmpDir)
		}
	})
}

// connectionURL assembles a postgres:// URL from its parts. database may be
// empty for a server-level URL.
func connectionURL(username, password, host string, port uint16, database string) *url.URL {
	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(username, password),
		Host:   net.JoinHostPort(host, strconv.Itoa(int(port))),
	}
	if database != "" {
		u.Path = "/" + database
	}
	return u
}
