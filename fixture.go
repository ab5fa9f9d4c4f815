package pgdb

import (
	"encoding/hex"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/yuku/pgdb/internal/pgquote"
)

// ExternalURLEnv is the environment variable that, when set, redirects all
// fixture provisioning to a pre-existing PostgreSQL server instead of
// spawning a local one. Its value must be a postgres:// URL with
// administrative credentials.
const ExternalURLEnv = "PGDB_TESTS_URL"

// DB is an ownership token for one fixture database.
//
// A DB either shares ownership of a local Instance (which stays alive
// exactly as long as at least one such handle exists) or carries
// administrative credentials for an externally managed server. Release
// performs cleanup exactly once; copying the handle by reference and
// releasing it repeatedly never duplicates teardown.
type DB struct {
	url *url.URL

	// Local variant: the shared registry reference.
	shared *registry
	inst   *Instance

	// External variant: the administrative URL needed for cleanup.
	adminURL *url.URL

	releaseOnce sync.Once
}

// CreateFixture provisions a freshly created, uniquely named database and
// login role for the caller's exclusive use.
//
// When ExternalURLEnv is set, the fixture is created on that server and the
// returned handle actively drops the database and role on Release.
// Otherwise a shared local Instance is acquired (launched on first use) and
// the fixture created on it; releasing the last handle tears the whole
// Instance down, fixture databases included.
func CreateFixture() (*DB, error) {
	admin, err := externalAdminURL()
	if err != nil {
		return nil, err
	}

	if admin != nil {
		u, err := createFixtureDB(admin, func(database, sql string) error {
			return RunAdminSQL(admin, database, sql)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create external fixture database: %w", err)
		}
		return &DB{url: u, adminURL: admin}, nil
	}

	inst, err := sharedInstances.acquire()
	if err != nil {
		return nil, fmt.Errorf("failed to start shared postgres instance: %w", err)
	}

	su := inst.AsSuperuser()
	u, err := createFixtureDB(inst.SuperuserURL(), su.RunSQL)
	if err != nil {
		sharedInstances.release(inst)
		return nil, fmt.Errorf("failed to create local fixture database: %w", err)
	}
	return &DB{url: u, shared: sharedInstances, inst: inst}, nil
}

// URL returns the fixture's connection URL.
func (db *DB) URL() *url.URL {
	return db.url
}

// String returns the fixture's connection URL as a string.
func (db *DB) String() string {
	return db.url.String()
}

// Local reports whether the fixture lives on a locally spawned Instance.
func (db *DB) Local() bool {
	return db.shared != nil
}

// Release frees the fixture. At most one teardown occurs per handle.
//
// For a local fixture, the shared Instance reference is dropped; if it was
// the last one, the Instance is stopped and its on-disk state removed. The
// fixture database and role are not dropped separately since they vanish
// with the Instance.
//
// For an external fixture, the database is dropped first and the role
// second; an existing connection would hold a lock on the database, so the
// ordering is not reversible. Both statements are best-effort: cleanup must
// never abort the caller's unwind path, so failures are logged and
// swallowed.
func (db *DB) Release() {
	db.releaseOnce.Do(func() {
		if db.shared != nil {
			db.shared.release(db.inst)
			return
		}

		database := strings.TrimPrefix(db.url.Path, "/")
		role := db.url.User.Username()

		dropQuietly(db.adminURL, fmt.Sprintf(
			"DROP DATABASE IF EXISTS %s;", pgquote.EscapeIdentifier(database)))
		dropQuietly(db.adminURL, fmt.Sprintf(
			"DROP ROLE IF EXISTS %s;", pgquote.EscapeIdentifier(role)))
	})
}

// dropQuietly runs a cleanup statement against the admin database with all
// output captured, logging failures instead of propagating them.
func dropQuietly(adminURL *url.URL, sql string) {
	cmd := psqlCommand(lookupPsql(), adminURL, adminDatabase, "-c", sql)
	if output, err := cmd.CombinedOutput(); err != nil {
		log.Printf("pgdb: fixture cleanup failed (%s): %v: %s",
			strings.TrimSuffix(sql, ";"), err, strings.TrimSpace(string(output)))
	}
}

// createFixtureDB creates a fixture_db_<hex> database owned by a matching
// fixture_user_<hex> role via run, then derives the fixture's connection
// URL from base. Collisions between random names are treated as negligible,
// not defended against.
func createFixtureDB(base *url.URL, run func(database, sql string) error) (*url.URL, error) {
	id := randomHex()
	database := "fixture_db_" + id
	user := "fixture_user_" + id
	password := "fixture_pass_" + id

	if err := run(adminDatabase, createRoleSQL(user, password)); err != nil {
		return nil, err
	}
	if err := run(adminDatabase, createDatabaseSQL(database, user)); err != nil {
		return nil, err
	}

	u := *base
	u.User = url.UserPassword(user, password)
	u.Path = "/" + database
	return &u, nil
}

// externalAdminURL reads and validates ExternalURLEnv. It returns (nil,
// nil) when the variable is unset.
func externalAdminURL() (*url.URL, error) {
	value := os.Getenv(ExternalURLEnv)
	if value == "" {
		return nil, nil
	}
	u, err := ParseExternalURL(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", ExternalURLEnv, err)
	}
	return u, nil
}

// ParseExternalURL parses and validates an administrative database URL: it
// must use the postgres scheme and include both a host and a username.
func ParseExternalURL(value string) (*url.URL, error) {
	u, err := url.Parse(value)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "postgres" {
		return nil, ErrExternalURLScheme
	}
	if u.Hostname() == "" {
		return nil, ErrExternalURLHost
	}
	if u.User.Username() == "" {
		return nil, ErrExternalURLUser
	}
	return u, nil
}

// randomHex returns 128 random bits as 32 lowercase hex characters, used
// for fixture names and generated passwords.
func randomHex() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}
