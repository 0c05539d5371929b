package storage

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrStoreUnavailable wraps failures to reach or query the database.
	ErrStoreUnavailable = errors.New("storage: record store unavailable")
	ErrNotFound         = errors.New("storage: record not found")
	// ErrPrecondition means the stored value changed since it was read.
	ErrPrecondition  = errors.New("storage: value changed since it was read")
	ErrUnknownColumn = errors.New("storage: unknown table or column")
)

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}

// Table names a logical table; the configured prefix is applied by the store.
type Table string

const (
	TableOptions  Table = "options"
	TablePosts    Table = "posts"
	TablePostMeta Table = "postmeta"
)

const (
	ColumnOptionValue = "option_value"
	ColumnPostContent = "post_content"
	ColumnPostTitle   = "post_title"
	ColumnMetaValue   = "meta_value"
)

type RecordID int64

// PostScope restricts posts and postmeta queries by the status and type of
// the owning post.
type PostScope int

const (
	AnyPost PostScope = iota
	// PublishedPostsPages is post_status 'publish' and post_type post or page.
	PublishedPostsPages
	// PublishedCustom is post_status 'publish' and any other post_type.
	PublishedCustom
	// OutsidePublishedPostsPages is everything PublishedPostsPages is not.
	OutsidePublishedPostsPages
)

// Row is one matched record. Key is the option name, meta key or post type;
// Title is only filled for posts.
type Row struct {
	ID     RecordID
	PostID RecordID
	Key    string
	Title  string
	Value  string
}

// PatternQuery selects rows whose Column contains Pattern, ignoring case.
// ExcludeLike, when set, drops rows whose key column contains it.
type PatternQuery struct {
	Table       Table
	Column      string
	Pattern     string
	ExcludeLike string
	Scope       PostScope
}

// FieldUpdate writes one column of one record. With Previous set the write
// only succeeds while the column still holds that value.
type FieldUpdate struct {
	Table    Table
	ID       RecordID
	Column   string
	Value    string
	Previous *string
}

// RecordStore is everything the scanner and replacer need from a database.
type RecordStore interface {
	CountAll(ctx context.Context, table Table) (int, error)
	FindByPattern(ctx context.Context, q PatternQuery) ([]Row, error)
	GetField(ctx context.Context, table Table, id RecordID, column string) (string, error)
	UpdateField(ctx context.Context, u FieldUpdate) error
	GetSerializedValue(ctx context.Context, key string) (string, error)
	SetSerializedValue(ctx context.Context, key, value string, previous *string) error
	GetPostTitles(ctx context.Context, ids []RecordID) (map[RecordID]string, error)
}
