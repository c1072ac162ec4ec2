package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/golang-migrate/migrate/v4/database"
)

// migrationsTable holds the applied schema version, matching the table
// name golang-migrate uses by default.
const migrationsTable = "schema_migrations"

// migrationDriver adapts our wasm-backed *sql.DB to golang-migrate's
// database.Driver. The stock sqlite drivers shipped with migrate pull in
// cgo or a second sqlite build, so we bind migrate to the connection we
// already have instead.
type migrationDriver struct {
	db     *sql.DB
	locked atomic.Bool
}

var _ database.Driver = (*migrationDriver)(nil)

func newMigrationDriver(db *sql.DB) (*migrationDriver, error) {
	d := &migrationDriver{db: db}
	if err := d.ensureVersionTable(); err != nil {
		return nil, fmt.Errorf("failed to create %s table: %w", migrationsTable, err)
	}
	return d, nil
}

func (d *migrationDriver) ensureVersionTable() error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (version uint64, dirty bool);
CREATE UNIQUE INDEX IF NOT EXISTS version_unique ON %s (version);`, migrationsTable, migrationsTable)
	_, err := d.db.Exec(query)
	return err
}

// Open implements database.Driver. The driver is always constructed
// around an existing connection, never from a URL.
func (d *migrationDriver) Open(url string) (database.Driver, error) {
	return nil, fmt.Errorf("sqlite migration driver does not support opening by URL")
}

// Close implements database.Driver. The connection is owned by DB and
// stays open.
func (d *migrationDriver) Close() error {
	return nil
}

// Lock implements database.Driver with an in-process flag; concurrent
// writers from other processes are already serialized by the busy
// timeout.
func (d *migrationDriver) Lock() error {
	if !d.locked.CompareAndSwap(false, true) {
		return database.ErrLocked
	}
	return nil
}

// Unlock implements database.Driver.
func (d *migrationDriver) Unlock() error {
	if !d.locked.CompareAndSwap(true, false) {
		return database.ErrNotLocked
	}
	return nil
}

// Run implements database.Driver. Migration files may contain multiple
// statements; sqlite executes them all in one Exec.
func (d *migrationDriver) Run(migration io.Reader) error {
	query, err := io.ReadAll(migration)
	if err != nil {
		return err
	}
	if _, err := d.db.Exec(string(query)); err != nil {
		return &database.Error{OrigErr: err, Query: query}
	}
	return nil
}

// SetVersion implements database.Driver.
func (d *migrationDriver) SetVersion(version int, dirty bool) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM " + migrationsTable); err != nil {
		_ = tx.Rollback()
		return err
	}
	// NilVersion means no migration applied; the table stays empty.
	if version >= 0 {
		insert := fmt.Sprintf("INSERT INTO %s (version, dirty) VALUES (?, ?)", migrationsTable)
		if _, err := tx.Exec(insert, version, dirty); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Version implements database.Driver.
func (d *migrationDriver) Version() (int, bool, error) {
	var version int
	var dirty bool
	err := d.db.QueryRow("SELECT version, dirty FROM " + migrationsTable + " LIMIT 1").Scan(&version, &dirty)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return database.NilVersion, false, nil
	case err != nil:
		return 0, false, err
	}
	return version, dirty, nil
}

// Drop implements database.Driver by dropping every user table.
func (d *migrationDriver) Drop() error {
	rows, err := d.db.Query(`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`)
	if err != nil {
		return err
	}
	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return err
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	for _, table := range tables {
		if _, err := d.db.Exec("DROP TABLE IF EXISTS " + table); err != nil {
			return err
		}
	}
	return nil
}
