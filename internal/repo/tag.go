package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// TagRepo reads the tag labels in use across persisted locations.
type TagRepo interface {
	// List returns every distinct tag label starting with prefix, ordered.
	// If prefix is empty, all labels are returned.
	List(ctx context.Context, prefix string) ([]string, error)
}

// pgTagRepo is the Postgres implementation of TagRepo.
type pgTagRepo struct {
	db db
}

// NewTagRepo constructs a TagRepo backed by the provided db connection.
func NewTagRepo(db db) TagRepo {
	return &pgTagRepo{db: db}
}

// List unnests the tags array of every persisted location. Drafts are
// excluded so an unconfirmed tag never shows up in suggestions.
func (r *pgTagRepo) List(ctx context.Context, prefix string) ([]string, error) {
	const q = `
		SELECT DISTINCT tag
		FROM locations, unnest(tags) AS tag
		WHERE NOT is_draft
		  AND tag LIKE @prefix || '%'
		ORDER BY tag`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"prefix": prefix})
	if err != nil {
		return nil, fmt.Errorf("repo.TagRepo.List: %w", err)
	}
	defer rows.Close()

	tags := []string{}
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("repo.TagRepo.List: scan: %w", err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.TagRepo.List: rows: %w", err)
	}
	return tags, nil
}
