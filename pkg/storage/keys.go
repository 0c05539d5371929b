package storage

import (
	"fmt"
	"strings"
)

type tableSpec struct {
	id      string
	post    string
	key     string
	title   string
	columns []string
}

var tableSpecs = map[Table]tableSpec{
	TableOptions:  {id: "option_id", post: "0", key: "option_name", title: "''", columns: []string{ColumnOptionValue}},
	TablePosts:    {id: "ID", post: "ID", key: "post_type", title: "post_title", columns: []string{ColumnPostContent, ColumnPostTitle}},
	TablePostMeta: {id: "meta_id", post: "post_id", key: "meta_key", title: "''", columns: []string{ColumnMetaValue}},
}

func lookup(table Table, column string) (tableSpec, error) {
	spec, ok := tableSpecs[table]
	if !ok {
		return tableSpec{}, fmt.Errorf("%w: %s", ErrUnknownColumn, table)
	}
	for _, c := range spec.columns {
		if c == column {
			return spec, nil
		}
	}
	return tableSpec{}, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, table, column)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern turns s into a LIKE pattern matching it anywhere.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

const publishedPostsPages = "post_status = 'publish' AND post_type IN ('post','page')"
const publishedCustom = "post_status = 'publish' AND post_type NOT IN ('post','page')"

func (d *DB) scopeClause(table Table, scope PostScope) (string, error) {
	if scope == AnyPost {
		return "", nil
	}
	var cond string
	switch scope {
	case PublishedPostsPages:
		cond = publishedPostsPages
	case PublishedCustom:
		cond = publishedCustom
	case OutsidePublishedPostsPages:
		cond = "NOT (" + publishedPostsPages + ")"
	default:
		return "", fmt.Errorf("storage: unknown post scope %d", scope)
	}
	switch table {
	case TablePosts:
		return " AND " + cond, nil
	case TablePostMeta:
		if scope == OutsidePublishedPostsPages {
			return " AND post_id NOT IN (SELECT ID FROM " + d.name(TablePosts) + " WHERE " + publishedPostsPages + ")", nil
		}
		return " AND post_id IN (SELECT ID FROM " + d.name(TablePosts) + " WHERE " + cond + ")", nil
	}
	return "", fmt.Errorf("storage: post scope does not apply to %s", table)
}
