package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	_ "modernc.org/sqlite"
)

// DefaultBusyTimeout is the SQLite busy_timeout in milliseconds.
const DefaultBusyTimeout = 5000

// DefaultPrefix is the WordPress table prefix.
const DefaultPrefix = "wp_"

var prefixPattern = regexp.MustCompile(`^[A-Za-z0-9_]*$`)

type DB struct {
	sql    *sql.DB
	prefix string
}

var _ RecordStore = (*DB)(nil)

type config struct {
	prefix      string
	busyTimeout int
	write       bool
	create      bool
}

// Option customises Open.
type Option func(*config)

// WithPrefix sets the table prefix. Default: "wp_".
func WithPrefix(p string) Option { return func(c *config) { c.prefix = p } }

// WithBusyTimeout sets PRAGMA busy_timeout in milliseconds.
func WithBusyTimeout(ms int) Option { return func(c *config) { c.busyTimeout = ms } }

// WithWrite opens the database read-write. Without it the connection is
// read-only and every write fails.
func WithWrite() Option { return func(c *config) { c.write = true } }

// WithCreateSchema creates the database file and the options, posts and
// postmeta tables when missing. Meant for fixtures, never for a live site.
func WithCreateSchema() Option {
	return func(c *config) {
		c.write = true
		c.create = true
	}
}

// Open connects to an existing WordPress database. Nothing about the file
// is changed unless WithCreateSchema is given: no DDL, no journal mode.
func Open(path string, opts ...Option) (*DB, error) {
	cfg := config{prefix: DefaultPrefix, busyTimeout: DefaultBusyTimeout}
	for _, o := range opts {
		o(&cfg)
	}
	if !prefixPattern.MatchString(cfg.prefix) {
		return nil, fmt.Errorf("storage: invalid table prefix %q", cfg.prefix)
	}

	mode := "ro"
	switch {
	case cfg.create:
		mode = "rwc"
	case cfg.write:
		mode = "rw"
	}
	dsn := fmt.Sprintf("file:%s?mode=%s&_pragma=busy_timeout(%d)", path, mode, cfg.busyTimeout)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, unavailable(err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, unavailable(err)
	}

	d := &DB{sql: db, prefix: cfg.prefix}
	if cfg.create {
		if err := d.createSchema(); err != nil {
			db.Close()
			return nil, err
		}
	}
	return d, nil
}

func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

func (d *DB) name(t Table) string { return d.prefix + string(t) }

// CountAll returns the number of rows in table.
func (d *DB) CountAll(ctx context.Context, table Table) (int, error) {
	if _, ok := tableSpecs[table]; !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownColumn, table)
	}
	var n int
	if err := d.sql.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+d.name(table)).Scan(&n); err != nil {
		return 0, unavailable(err)
	}
	return n, nil
}

// FindByPattern returns matching rows ordered by record id.
func (d *DB) FindByPattern(ctx context.Context, q PatternQuery) ([]Row, error) {
	spec, err := lookup(q.Table, q.Column)
	if err != nil {
		return nil, err
	}
	if q.Pattern == "" {
		return nil, nil
	}

	where := fmt.Sprintf("WHERE %s LIKE ? ESCAPE '\\'", q.Column)
	args := []interface{}{containsPattern(q.Pattern)}
	if q.ExcludeLike != "" {
		where += fmt.Sprintf(" AND COALESCE(%s, '') NOT LIKE ? ESCAPE '\\'", spec.key)
		args = append(args, containsPattern(q.ExcludeLike))
	}
	scope, err := d.scopeClause(q.Table, q.Scope)
	if err != nil {
		return nil, err
	}
	where += scope

	query := fmt.Sprintf("SELECT %s, %s, COALESCE(%s, ''), COALESCE(%s, ''), COALESCE(%s, '') FROM %s %s ORDER BY %s",
		spec.id, spec.post, spec.key, spec.title, q.Column, d.name(q.Table), where, spec.id)
	rows, err := d.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable(err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.ID, &r.PostID, &r.Key, &r.Title, &r.Value); err != nil {
			return nil, unavailable(err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(err)
	}
	return out, nil
}

// GetField reads one column of one record.
func (d *DB) GetField(ctx context.Context, table Table, id RecordID, column string) (string, error) {
	spec, err := lookup(table, column)
	if err != nil {
		return "", err
	}
	var v sql.NullString
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?", column, d.name(table), spec.id)
	if err := d.sql.QueryRowContext(ctx, q, id).Scan(&v); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%w: %s %d", ErrNotFound, table, id)
		}
		return "", unavailable(err)
	}
	return v.String, nil
}

// UpdateField writes u. A stale Previous yields ErrPrecondition and nothing
// is written.
func (d *DB) UpdateField(ctx context.Context, u FieldUpdate) error {
	spec, err := lookup(u.Table, u.Column)
	if err != nil {
		return err
	}
	q := fmt.Sprintf("UPDATE %s SET %s = ? WHERE %s = ?", d.name(u.Table), u.Column, spec.id)
	args := []interface{}{u.Value, u.ID}
	if u.Previous != nil {
		q += fmt.Sprintf(" AND COALESCE(%s, '') = ?", u.Column)
		args = append(args, *u.Previous)
	}
	n, err := d.exec(ctx, q, args...)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if u.Previous != nil {
		if _, err := d.GetField(ctx, u.Table, u.ID, u.Column); err != nil {
			return err
		}
		return fmt.Errorf("%w: %s %d", ErrPrecondition, u.Table, u.ID)
	}
	return fmt.Errorf("%w: %s %d", ErrNotFound, u.Table, u.ID)
}

// GetSerializedValue returns the raw option_value stored under key.
func (d *DB) GetSerializedValue(ctx context.Context, key string) (string, error) {
	var v sql.NullString
	q := fmt.Sprintf("SELECT option_value FROM %s WHERE option_name = ?", d.name(TableOptions))
	if err := d.sql.QueryRowContext(ctx, q, key).Scan(&v); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%w: option %s", ErrNotFound, key)
		}
		return "", unavailable(err)
	}
	return v.String, nil
}

// SetSerializedValue replaces the option row under key, conditioned on
// previous when set.
func (d *DB) SetSerializedValue(ctx context.Context, key, value string, previous *string) error {
	q := fmt.Sprintf("UPDATE %s SET option_value = ? WHERE option_name = ?", d.name(TableOptions))
	args := []interface{}{value, key}
	if previous != nil {
		q += " AND COALESCE(option_value, '') = ?"
		args = append(args, *previous)
	}
	n, err := d.exec(ctx, q, args...)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if _, err := d.GetSerializedValue(ctx, key); err != nil {
		return err
	}
	return fmt.Errorf("%w: option %s", ErrPrecondition, key)
}

// GetPostTitles maps each existing id to its post_title.
func (d *DB) GetPostTitles(ctx context.Context, ids []RecordID) (map[RecordID]string, error) {
	out := make(map[RecordID]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	q := fmt.Sprintf("SELECT ID, post_title FROM %s WHERE ID IN (?%s)", d.name(TablePosts), strings.Repeat(",?", len(ids)-1))
	rows, err := d.sql.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, unavailable(err)
	}
	defer rows.Close()
	for rows.Next() {
		var id RecordID
		var title sql.NullString
		if err := rows.Scan(&id, &title); err != nil {
			return nil, unavailable(err)
		}
		out[id] = title.String
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(err)
	}
	return out, nil
}

func (d *DB) exec(ctx context.Context, q string, args ...interface{}) (int64, error) {
	res, err := d.sql.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, unavailable(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, unavailable(err)
	}
	return n, nil
}
