// Package sqlite implements repository.Store on SQLite through database/sql
// and the pure-Go modernc.org/sqlite driver (no cgo, so cross-compiling the
// server needs nothing but the Go toolchain).
//
// The schema is not hand-written: migrate derives one table per resource
// descriptor plus one join table per many-to-many relation. Table and column
// names therefore only ever come from the compiled-in registry, never from a
// request; values always travel as ? placeholders.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"

	"github.com/sakif/artist-manager/internal/resource"
)

// DB wraps a sql.DB connection pool and the registry it migrated.
type DB struct {
	conn     *sql.DB
	registry *resource.Registry
}

// New opens the database, applies the connection pragmas and creates any
// missing tables for the resources in reg.
//
// dbPath examples:
//   - "data/artists.db"  file-based, persistent
//   - ":memory:"         in-memory, gone on Close (tests)
func New(dbPath string, reg *resource.Registry) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// SQLite serialises writers anyway. A single connection also keeps
	// ":memory:" databases alive and shared, and makes the per-connection
	// foreign_keys pragma below stick for every query.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Off by default in SQLite. Needed for ON DELETE SET NULL on foreign key
	// columns and ON DELETE CASCADE on join tables.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn, registry: reg}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool. Callers should defer it right after New.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks that the database still answers.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite: ping: %w", err)
	}
	return nil
}

// migrate creates every resource table, then every join table.
// CREATE ... IF NOT EXISTS makes it safe to run on each start.
func (db *DB) migrate() error {
	for _, d := range db.registry.All() {
		if _, err := db.conn.Exec(tableDDL(db.registry, d)); err != nil {
			return fmt.Errorf("creating %s table: %w", d.Table, err)
		}
	}

	for _, d := range db.registry.All() {
		for _, rel := range d.Relations {
			target := db.registry.MustLookup(rel.Target)
			if d.JoinColumn() == target.JoinColumn() {
				return fmt.Errorf("join table %s: owner and target share column %s", rel.JoinTable, d.JoinColumn())
			}
			if _, err := db.conn.Exec(joinTableDDL(d, rel, target)); err != nil {
				return fmt.Errorf("creating %s join table: %w", rel.JoinTable, err)
			}
		}
	}

	return nil
}

func columnType(t resource.Type) string {
	switch t {
	case resource.Integer:
		return "INTEGER"
	case resource.Number:
		return "REAL"
	default:
		return "TEXT"
	}
}

// tableDDL renders the CREATE TABLE statement for one resource.
//
// Required fields are NOT NULL. An optional foreign key is cleared when its
// target row goes away; a required one takes the row with it.
func tableDDL(reg *resource.Registry, d *resource.Descriptor) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", d.Table)
	b.WriteString("\tid INTEGER PRIMARY KEY AUTOINCREMENT")

	var indexes []string
	for _, f := range d.Fields {
		fmt.Fprintf(&b, ",\n\t%s %s", f.Name, columnType(f.Type))
		if f.Required {
			b.WriteString(" NOT NULL")
		}
		if f.Ref != "" {
			onDelete := "SET NULL"
			if f.Required {
				onDelete = "CASCADE"
			}
			fmt.Fprintf(&b, " REFERENCES %s(id) ON DELETE %s", reg.MustLookup(f.Ref).Table, onDelete)
			indexes = append(indexes, f.Name)
		}
	}

	b.WriteString(",\n\tcreated_at DATETIME NOT NULL")
	b.WriteString(",\n\tupdated_at DATETIME NOT NULL\n);\n")

	for _, col := range indexes {
		fmt.Fprintf(&b, "CREATE INDEX IF NOT EXISTS idx_%s_%s ON %s(%s);\n", d.Table, col, d.Table, col)
	}
	return b.String()
}

// joinTableDDL renders the link table for a many-to-many relation. Rows
// disappear with either side.
func joinTableDDL(owner *resource.Descriptor, rel resource.Relation, target *resource.Descriptor) string {
	ownerCol, targetCol := owner.JoinColumn(), target.JoinColumn()
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %[1]s (
	%[2]s INTEGER NOT NULL REFERENCES %[4]s(id) ON DELETE CASCADE,
	%[3]s INTEGER NOT NULL REFERENCES %[5]s(id) ON DELETE CASCADE,
	PRIMARY KEY (%[2]s, %[3]s)
);
CREATE INDEX IF NOT EXISTS idx_%[1]s_%[3]s ON %[1]s(%[3]s);
`, rel.JoinTable, ownerCol, targetCol, owner.Table, target.Table)
}
