package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/sakif/artist-manager/internal/apperror"
	"github.com/sakif/artist-manager/internal/model"
	"github.com/sakif/artist-manager/internal/repository"
	"github.com/sakif/artist-manager/internal/resource"
)

var _ repository.Store = (*DB)(nil)

// querier is satisfied by both *sql.DB and *sql.Tx, so reads can run inside
// or outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// timeLayout is how timestamps are written. Reads also accept the driver's
// own format in case a row was written by another tool.
const timeLayout = time.RFC3339Nano

var readTimeLayouts = []string{
	timeLayout,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
}

// FindMany returns every record of d in insertion (id) order.
func (db *DB) FindMany(ctx context.Context, d *resource.Descriptor) ([]model.Record, error) {
	records, err := db.query(ctx, db.conn, d, "ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing %s: %w", d.Table, err)
	}
	return records, nil
}

// FindUnique returns the record of d with the given id.
func (db *DB) FindUnique(ctx context.Context, d *resource.Descriptor, id int64) (model.Record, error) {
	return db.findUnique(ctx, db.conn, d, id)
}

func (db *DB) findUnique(ctx context.Context, q querier, d *resource.Descriptor, id int64) (model.Record, error) {
	records, err := db.query(ctx, q, d, "WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting %s %d: %w", d.Table, id, err)
	}
	if len(records) == 0 {
		return nil, apperror.NotFound(d.Name, id)
	}
	return records[0], nil
}

// Create inserts a row, links its relations and reads the full record back,
// all in one transaction.
func (db *DB) Create(ctx context.Context, d *resource.Descriptor, data model.Record) (model.Record, error) {
	cols, args, err := scalarColumns(d, data)
	if err != nil {
		return nil, fmt.Errorf("sqlite: creating %s: %w", d.Table, err)
	}

	now := time.Now().UTC().Format(timeLayout)
	cols = append(cols, model.FieldCreatedAt, model.FieldUpdatedAt)
	args = append(args, now, now)

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`,
			d.Table, strings.Join(cols, ", "), placeholders(len(cols))),
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: creating %s: %w", d.Table, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("sqlite: reading new %s id: %w", d.Table, err)
	}

	if err := db.connect(ctx, tx, d, id, data); err != nil {
		return nil, err
	}

	record, err := db.findUnique(ctx, tx, d, id)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: committing %s: %w", d.Table, err)
	}
	return record, nil
}

// Update writes only the fields present in data. updated_at always moves,
// even when data carries nothing but relations.
func (db *DB) Update(ctx context.Context, d *resource.Descriptor, id int64, data model.Record) (model.Record, error) {
	cols, args, err := scalarColumns(d, data)
	if err != nil {
		return nil, fmt.Errorf("sqlite: updating %s %d: %w", d.Table, id, err)
	}

	cols = append(cols, model.FieldUpdatedAt)
	args = append(args, time.Now().UTC().Format(timeLayout), id)

	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = c + " = ?"
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET %s WHERE id = ?`, d.Table, strings.Join(sets, ", ")),
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: updating %s %d: %w", d.Table, id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, apperror.NotFound(d.Name, id)
	}

	if err := db.connect(ctx, tx, d, id, data); err != nil {
		return nil, err
	}

	record, err := db.findUnique(ctx, tx, d, id)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: committing %s %d: %w", d.Table, id, err)
	}
	return record, nil
}

// Delete removes one row. Join rows go with it (ON DELETE CASCADE).
func (db *DB) Delete(ctx context.Context, d *resource.Descriptor, id int64) error {
	result, err := db.conn.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, d.Table),
		id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting %s %d: %w", d.Table, id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound(d.Name, id)
	}

	return nil
}

// scalarColumns picks the known scalar fields out of data, in descriptor
// order. Relation fields must hold a repository.Connect and are handled by
// connect.
func scalarColumns(d *resource.Descriptor, data model.Record) ([]string, []any, error) {
	var cols []string
	var args []any
	for _, f := range d.Fields {
		v, ok := data[f.Name]
		if !ok {
			continue
		}
		cols = append(cols, f.Name)
		args = append(args, v)
	}
	for _, rel := range d.Relations {
		v, ok := data[rel.Field]
		if !ok {
			continue
		}
		if _, isConnect := v.(repository.Connect); !isConnect {
			return nil, nil, fmt.Errorf("relation %s: expected repository.Connect, got %T", rel.Field, v)
		}
	}
	return cols, args, nil
}

// connect links id to every target listed in data's Connect values.
// INSERT OR IGNORE makes re-linking an existing pair a no-op. Linking to a
// target that does not exist fails on the foreign key.
func (db *DB) connect(ctx context.Context, q querier, d *resource.Descriptor, id int64, data model.Record) error {
	for _, rel := range d.Relations {
		c, ok := data[rel.Field].(repository.Connect)
		if !ok || len(c.IDs) == 0 {
			continue
		}
		target := db.registry.MustLookup(rel.Target)
		stmt := fmt.Sprintf(`INSERT OR IGNORE INTO %s (%s, %s) VALUES (?, ?)`,
			rel.JoinTable, d.JoinColumn(), target.JoinColumn())
		for _, targetID := range c.IDs {
			if _, err := q.ExecContext(ctx, stmt, id, targetID); err != nil {
				return fmt.Errorf("sqlite: connecting %s %d to %s %d: %w",
					d.Table, id, target.Table, targetID, err)
			}
		}
	}
	return nil
}

// readableFields are the columns selected back. Write-only fields never
// leave the database.
func readableFields(d *resource.Descriptor) []resource.Field {
	out := make([]resource.Field, 0, len(d.Fields))
	for _, f := range d.Fields {
		if !f.WriteOnly {
			out = append(out, f)
		}
	}
	return out
}

// query selects records of d matching the trailing SQL clause and fills in
// their relations.
func (db *DB) query(ctx context.Context, q querier, d *resource.Descriptor, clause string, args ...any) ([]model.Record, error) {
	fields := readableFields(d)

	cols := make([]string, 0, len(fields)+3)
	cols = append(cols, model.FieldID)
	for _, f := range fields {
		cols = append(cols, f.Name)
	}
	cols = append(cols, model.FieldCreatedAt, model.FieldUpdatedAt)

	records, err := scanRecords(ctx, q,
		fmt.Sprintf(`SELECT %s FROM %s %s`, strings.Join(cols, ", "), d.Table, clause),
		fields, args...)
	if err != nil {
		return nil, err
	}

	if err := db.loadRelations(ctx, q, d, records); err != nil {
		return nil, err
	}
	return records, nil
}

// scanRecords runs the query and closes its rows before returning. With a
// single pooled connection a second query can only run once the rows are
// released.
func scanRecords(ctx context.Context, q querier, query string, fields []resource.Field, args ...any) ([]model.Record, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]model.Record, 0)
	values := make([]any, len(fields)+3)
	dest := make([]any, len(values))
	for i := range values {
		dest[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		rec := make(model.Record, len(values))
		id, ok := values[0].(int64)
		if !ok {
			return nil, fmt.Errorf("unexpected id type %T", values[0])
		}
		rec[model.FieldID] = id

		for i, f := range fields {
			v, err := fromColumn(f.Type, values[i+1])
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", f.Name, err)
			}
			rec[f.Name] = v
		}

		n := len(fields) + 1
		if rec[model.FieldCreatedAt], err = toTime(values[n]); err != nil {
			return nil, fmt.Errorf("column created_at: %w", err)
		}
		if rec[model.FieldUpdatedAt], err = toTime(values[n+1]); err != nil {
			return nil, fmt.Errorf("column updated_at: %w", err)
		}

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return records, nil
}

// linkBatch bounds the ids bound into one IN (...) list.
const linkBatch = 500

// loadRelations sets every relation field of every record to its list of
// connected ids in ascending order. Records without links get an empty list.
func (db *DB) loadRelations(ctx context.Context, q querier, d *resource.Descriptor, records []model.Record) error {
	if len(d.Relations) == 0 || len(records) == 0 {
		return nil
	}

	byID := make(map[int64]model.Record, len(records))
	ids := make([]any, len(records))
	for i, rec := range records {
		byID[rec.ID()] = rec
		ids[i] = rec.ID()
		for _, rel := range d.Relations {
			rec[rel.Field] = []int64{}
		}
	}

	for _, rel := range d.Relations {
		target := db.registry.MustLookup(rel.Target)
		for start := 0; start < len(ids); start += linkBatch {
			batch := ids[start:min(start+linkBatch, len(ids))]
			links, err := scanLinks(ctx, q,
				fmt.Sprintf(`SELECT %[2]s, %[3]s FROM %[1]s WHERE %[2]s IN (%[4]s) ORDER BY %[2]s, %[3]s`,
					rel.JoinTable, d.JoinColumn(), target.JoinColumn(), placeholders(len(batch))),
				batch...)
			if err != nil {
				return fmt.Errorf("loading %s: %w", rel.JoinTable, err)
			}
			for _, l := range links {
				rec := byID[l[0]]
				rec[rel.Field] = append(rec.IDs(rel.Field), l[1])
			}
		}
	}
	return nil
}

func scanLinks(ctx context.Context, q querier, query string, args ...any) ([][2]int64, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links [][2]int64
	for rows.Next() {
		var l [2]int64
		if err := rows.Scan(&l[0], &l[1]); err != nil {
			return nil, fmt.Errorf("scanning link: %w", err)
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

// fromColumn normalises a driver value to the Go type the field carries.
func fromColumn(t resource.Type, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch t {
	case resource.Integer:
		switch n := v.(type) {
		case int64:
			return n, nil
		case float64:
			return int64(n), nil
		}
	case resource.Number:
		switch n := v.(type) {
		case float64:
			return n, nil
		case int64:
			return float64(n), nil
		}
	default:
		switch s := v.(type) {
		case string:
			return s, nil
		case []byte:
			return string(s), nil
		}
	}
	return nil, fmt.Errorf("unexpected %T for %s field", v, t)
}

func toTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case string:
		for _, layout := range readTimeLayouts {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("unparseable timestamp %q", t)
	case []byte:
		return toTime(string(t))
	}
	return time.Time{}, fmt.Errorf("unexpected timestamp type %T", v)
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
