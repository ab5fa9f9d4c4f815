// Package pgdb provisions short-lived, isolated PostgreSQL server instances
// for test suites and development tooling, and guarantees their teardown.
//
// pgdb launches the stock postgres binaries (initdb, postgres, psql) as
// external processes: it initializes a throwaway data directory under a
// temporary directory, spawns the server, and blocks until the server
// accepts TCP connections. The resulting Instance exclusively owns the
// process and the directory; stopping it terminates the process gracefully
// (with a bounded wait) and removes all on-disk state.
//
// # Fixture databases
//
// Most callers only need CreateFixture, which hands out a freshly created,
// uniquely named database plus login role on a shared instance:
//
//	db, err := pgdb.CreateFixture()
//	if err != nil {
//		t.Fatal(err)
//	}
//	defer db.Release()
//
//	conn, err := pgx.Connect(ctx, db.String())
//	// ...
//
// Concurrent callers within one process share a single running instance
// through an internal reference-counted registry: the first fixture launches
// the server, later fixtures reuse it, and the instance is torn down when
// the last handle is released. A fixture requested after full teardown
// transparently starts a fresh instance.
//
// # External servers
//
// Setting the PGDB_TESTS_URL environment variable to a postgres:// URL with
// administrative credentials redirects all fixture provisioning to that
// server instead of spawning a local one. Each fixture still gets its own
// database and role; Release then drops both (best-effort, never failing
// the caller).
//
// # Direct instance control
//
// Tooling that needs a dedicated server can start one explicitly:
//
//	inst, err := pgdb.Start(pgdb.Config{})
//	if err != nil {
//		return err
//	}
//	defer inst.Stop()
//
//	su := inst.AsSuperuser()
//	if err := su.CreateUser("dev", "hunter2"); err != nil { ... }
//	if err := su.CreateDatabase("dev", "dev"); err != nil { ... }
//
// All SQL execution is delegated to psql invoked as a subprocess, with the
// password passed through the PGPASSWORD environment variable. pgdb is not
// a connection pool or query layer; use a driver such as jackc/pgx against
// the URLs it hands out.
//
// # Requirements
//
//   - PostgreSQL binaries (initdb, postgres, psql) on the search path, or
//     explicit paths in Config
//   - Go 1.24 or higher
package pgdb
