package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// schemaVersion is the migration the embedded set ends at.
const schemaVersion uint = 2

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")

	// ErrSchemaMismatch is returned when the database was left dirty by a
	// failed migration or was migrated past what this build knows.
	ErrSchemaMismatch = errors.New("schema version mismatch")
)

// DB is the dataset and computation log store.
type DB struct {
	conn    *sql.DB
	version uint
}

// New opens the sqlite file at dbPath and migrates it to the current schema.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dbPath+"?_fk=1&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// sqlite allows a single writer; serialise through one connection
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// migrate applies the embedded migrations and records the resulting version.
func (db *DB) migrate() error {
	driver, err := sqlite3.WithInstance(db.conn, &sqlite3.Config{})
	if err != nil {
		return err
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return err
	}

	// Refuse to touch a schema a newer build or a broken run left behind.
	if err := checkVersion(m, false); err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	if err := checkVersion(m, true); err != nil {
		return err
	}

	db.version = schemaVersion
	return nil
}

// checkVersion rejects dirty or unknown schema versions. An empty database
// passes unless exact is set, in which case the version must equal
// schemaVersion.
func checkVersion(m *migrate.Migrate, exact bool) error {
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) && !exact {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if dirty {
		return fmt.Errorf("schema version %d is dirty: %w", version, ErrSchemaMismatch)
	}
	if version > schemaVersion || (exact && version != schemaVersion) {
		return fmt.Errorf("schema version %d, expected %d: %w", version, schemaVersion, ErrSchemaMismatch)
	}
	return nil
}

// Version returns the schema version the database was migrated to.
func (db *DB) Version() uint {
	return db.version
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying database connection
func (db *DB) Conn() *sql.DB {
	return db.conn
}