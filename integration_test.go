package pgdb_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yuku/pgdb"
	"github.com/yuku/pgdb/internal/testhelper"
)

func TestStartAndStop(t *testing.T) {
	testhelper.RequirePostgres(t)

	inst, err := pgdb.Start(pgdb.Config{})
	require.NoError(t, err)
	defer inst.Stop()

	conn := testhelper.Connect(t, inst.AsSuperuser().URL("postgres").String())

	var one int
	require.NoError(t, conn.QueryRow(context.Background(), "SELECT 1").Scan(&one))
	assert.Equal(t, 1, one)
}

func TestCustomSuperuserPassword(t *testing.T) {
	testhelper.RequirePostgres(t)

	inst, err := pgdb.Start(pgdb.Config{SuperuserPassword: "helloworld"})
	require.NoError(t, err)
	defer inst.Stop()

	su := inst.AsSuperuser()
	require.NoError(t, su.CreateUser("foo", "bar"))

	// The command succeeded, so the configured password was in effect.
	password, _ := su.URL("postgres").User.Password()
	assert.Equal(t, "helloworld", password)

	// And the new user can actually log in.
	conn := testhelper.Connect(t, inst.AsUser("foo", "bar").URL("postgres").String())
	require.NoError(t, conn.Ping(context.Background()))
}

func TestInstancesUseDifferentPortsByDefault(t *testing.T) {
	testhelper.RequirePostgres(t)

	a, err := pgdb.Start(pgdb.Config{})
	require.NoError(t, err)
	defer a.Stop()

	b, err := pgdb.Start(pgdb.Config{})
	require.NoError(t, err)
	defer b.Stop()

	assert.NotEqual(t, a.Port(), b.Port())
}

func TestCreateDatabaseAndLoadSQL(t *testing.T) {
	testhelper.RequirePostgres(t)

	inst, err := pgdb.Start(pgdb.Config{})
	require.NoError(t, err)
	defer inst.Stop()

	su := inst.AsSuperuser()
	require.NoError(t, su.CreateUser("app", "apppw"))
	require.NoError(t, su.CreateDatabase("appdb", "app"))

	script := filepath.Join(t.TempDir(), "schema.sql")
	require.NoError(t, os.WriteFile(script, []byte(
		"CREATE TABLE events (id SERIAL PRIMARY KEY, name TEXT NOT NULL);\n"+
			"INSERT INTO events (name) VALUES ('created');\n"), 0o600))

	app := inst.AsUser("app", "apppw")
	require.NoError(t, app.LoadSQL("appdb", script))

	conn := testhelper.Connect(t, app.URL("appdb").String())
	var name string
	require.NoError(t, conn.QueryRow(context.Background(),
		"SELECT name FROM events LIMIT 1").Scan(&name))
	assert.Equal(t, "created", name)
}

func TestRunSQLFailureCarriesExitStatus(t *testing.T) {
	testhelper.RequirePostgres(t)

	inst, err := pgdb.Start(pgdb.Config{})
	require.NoError(t, err)
	defer inst.Stop()

	err = inst.AsSuperuser().RunSQL("postgres", "THIS IS NOT SQL;")
	var exitErr *pgdb.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, "psql", exitErr.Binary)
	assert.NotZero(t, exitErr.Code)
}
