package pgdb

import (
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbeStartupSucceedsOnListeningPort(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	port := uint16(listener.Addr().(*net.TCPAddr).Port)
	require.NoError(t, probeStartup("127.0.0.1", port, 10*time.Millisecond, time.Second))
}

func TestProbeStartupTimesOut(t *testing.T) {
	// Grab a free port and close it again so nothing is listening there.
	port, err := findUnusedPort()
	require.NoError(t, err)

	start := time.Now()
	err = probeStartup("127.0.0.1", port, 10*time.Millisecond, 150*time.Millisecond)
	assert.ErrorIs(t, err, ErrStartupTimeout)
	assert.Less(t, time.Since(start), 5*time.Second, "probe loop did not respect the timeout")
}

func TestInstanceStopRemovesTempDir(t *testing.T) {
	dir, err := os.MkdirTemp("", "pgdb-stop-test-")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	require.NoError(t, os.WriteFile(filepath.Join(dir, "db"), []byte("state"), 0o600))

	in := &Instance{tmpDir: dir}
	in.Stop()
	assert.NoDirExists(t, dir)

	// Stop is idempotent.
	in.Stop()
}

func TestResolveBinaryPrefersExplicitPath(t *testing.T) {
	path, err := resolveBinary("postgres", "/opt/pg/bin/postgres")
	require.NoError(t, err)
	assert.Equal(t, "/opt/pg/bin/postgres", path)
}

func TestResolveBinaryLookupFailure(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	_, err := resolveBinary("postgres", "")
	var notFound *BinaryNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "postgres", notFound.Name)
}

func TestStartReportsMissingBinary(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	_, err := Start(Config{})
	var notFound *BinaryNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "postgres", notFound.Name, "postgres is resolved first")
}

func TestConnectionURLPortRendering(t *testing.T) {
	u := connectionURL("u", "p", "localhost", 15432, "mydb")
	host, port, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	assert.Equal(t, "localhost", host)
	assert.Equal(t, strconv.Itoa(15432), port)
}
