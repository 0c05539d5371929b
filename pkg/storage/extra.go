package storage

import (
	"context"
	"fmt"
	"strings"
)

const schema = `
CREATE TABLE IF NOT EXISTS {p}options (
  option_id    INTEGER PRIMARY KEY,
  option_name  TEXT NOT NULL UNIQUE,
  option_value TEXT NOT NULL DEFAULT '',
  autoload     TEXT NOT NULL DEFAULT 'yes'
);
CREATE TABLE IF NOT EXISTS {p}posts (
  ID           INTEGER PRIMARY KEY,
  post_title   TEXT NOT NULL DEFAULT '',
  post_content TEXT NOT NULL DEFAULT '',
  post_status  TEXT NOT NULL DEFAULT 'publish',
  post_type    TEXT NOT NULL DEFAULT 'post'
);
CREATE TABLE IF NOT EXISTS {p}postmeta (
  meta_id    INTEGER PRIMARY KEY,
  post_id    INTEGER NOT NULL DEFAULT 0,
  meta_key   TEXT,
  meta_value TEXT
);
`

func (d *DB) createSchema() error {
	if _, err := d.sql.Exec(strings.ReplaceAll(schema, "{p}", d.prefix)); err != nil {
		return unavailable(err)
	}
	return nil
}

// Post is the subset of a posts row the tool reads and seeds.
type Post struct {
	ID      RecordID
	Title   string
	Content string
	Status  string
	Type    string
}

// AddOption inserts or replaces an option and returns its id.
func (d *DB) AddOption(ctx context.Context, name, value string) (RecordID, error) {
	q := fmt.Sprintf(`INSERT INTO %s(option_name, option_value) VALUES(?, ?)
ON CONFLICT(option_name) DO UPDATE SET option_value = excluded.option_value`, d.name(TableOptions))
	if _, err := d.sql.ExecContext(ctx, q, name, value); err != nil {
		return 0, unavailable(err)
	}
	var id RecordID
	if err := d.sql.QueryRowContext(ctx, "SELECT option_id FROM "+d.name(TableOptions)+" WHERE option_name = ?", name).Scan(&id); err != nil {
		return 0, unavailable(err)
	}
	return id, nil
}

// AddPost inserts p. Empty Status and Type default to "publish" and "post";
// a zero ID lets the database assign one.
func (d *DB) AddPost(ctx context.Context, p Post) (RecordID, error) {
	if p.Status == "" {
		p.Status = "publish"
	}
	if p.Type == "" {
		p.Type = "post"
	}
	var id interface{}
	if p.ID != 0 {
		id = p.ID
	}
	q := fmt.Sprintf("INSERT INTO %s(ID, post_title, post_content, post_status, post_type) VALUES(?, ?, ?, ?, ?)", d.name(TablePosts))
	res, err := d.sql.ExecContext(ctx, q, id, p.Title, p.Content, p.Status, p.Type)
	if err != nil {
		return 0, unavailable(err)
	}
	n, err := res.LastInsertId()
	if err != nil {
		return 0, unavailable(err)
	}
	return RecordID(n), nil
}

// AddMeta inserts a postmeta row and returns its meta_id.
func (d *DB) AddMeta(ctx context.Context, postID RecordID, key, value string) (RecordID, error) {
	q := fmt.Sprintf("INSERT INTO %s(post_id, meta_key, meta_value) VALUES(?, ?, ?)", d.name(TablePostMeta))
	res, err := d.sql.ExecContext(ctx, q, postID, key, value)
	if err != nil {
		return 0, unavailable(err)
	}
	n, err := res.LastInsertId()
	if err != nil {
		return 0, unavailable(err)
	}
	return RecordID(n), nil
}
