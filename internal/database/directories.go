package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/d21hq/d21/internal/core"
)

const directoryColumns = `d.id, d.name, d.description, d.image_url, d.link, d.tags, d.location,
	d.latitude, d.longitude, d.slug, d.user_id, d.featured, d.featured_order, d.created_at`

func scanDirectory(row pgx.Row) (core.Directory, error) {
	var d core.Directory
	err := row.Scan(
		&d.ID, &d.Name, &d.Description, &d.ImageURL, &d.Link, &d.Tags, &d.Location,
		&d.Latitude, &d.Longitude, &d.Slug, &d.UserID, &d.Featured, &d.FeaturedOrder, &d.CreatedAt,
	)
	if d.Tags == nil {
		d.Tags = []string{}
	}
	return d, err
}

func collectDirectories(rows pgx.Rows) ([]core.Directory, error) {
	defer rows.Close()
	var out []core.Directory
	for rows.Next() {
		d, err := scanDirectory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// tagsOrEmpty keeps NOT NULL array columns from receiving NULL.
func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

const getDirectoryBySlug = `-- name: GetDirectoryBySlug :one
SELECT ` + directoryColumns + ` FROM directories d WHERE d.slug = $1`

func (s *Store) GetDirectoryBySlug(ctx context.Context, slug string) (core.Directory, error) {
	d, err := scanDirectory(s.db.QueryRow(ctx, getDirectoryBySlug, slug))
	if err != nil {
		return core.Directory{}, translate(err)
	}
	return d, nil
}

const directoryOwner = `-- name: DirectoryOwner :one
SELECT user_id FROM directories WHERE slug = $1`

func (s *Store) DirectoryOwner(ctx context.Context, slug string) (string, error) {
	var owner string
	if err := s.db.QueryRow(ctx, directoryOwner, slug).Scan(&owner); err != nil {
		return "", translate(err)
	}
	return owner, nil
}

const directorySlugExists = `-- name: DirectorySlugExists :one
SELECT EXISTS (SELECT 1 FROM directories WHERE slug = $1)`

func (s *Store) DirectorySlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	if err := s.db.QueryRow(ctx, directorySlugExists, slug).Scan(&exists); err != nil {
		return false, translate(err)
	}
	return exists, nil
}

const insertDirectory = `-- name: InsertDirectory :one
INSERT INTO directories AS d (name, slug, description, image_url, link, tags, location, latitude, longitude, user_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING ` + directoryColumns

func (s *Store) InsertDirectory(ctx context.Context, nd core.NewDirectory) (core.Directory, error) {
	d, err := scanDirectory(s.db.QueryRow(ctx, insertDirectory,
		nd.Name, nd.Slug, nd.Description, nd.ImageURL, nd.Link, tagsOrEmpty(nd.Tags),
		nd.Location, nd.Latitude, nd.Longitude, nd.UserID,
	))
	if err != nil {
		return core.Directory{}, translate(err)
	}
	return d, nil
}

const updateDirectory = `-- name: UpdateDirectory :one
UPDATE directories AS d
SET name = $2, slug = $3, description = $4, image_url = $5, link = $6,
    tags = $7, location = $8, latitude = $9, longitude = $10
WHERE d.id = $1
RETURNING ` + directoryColumns

func (s *Store) UpdateDirectory(ctx context.Context, id uuid.UUID, in core.DirectoryInput) (core.Directory, error) {
	d, err := scanDirectory(s.db.QueryRow(ctx, updateDirectory,
		id, in.Name, in.Slug, in.Description, in.ImageURL, in.Link, tagsOrEmpty(in.Tags),
		in.Location, in.Latitude, in.Longitude,
	))
	if err != nil {
		return core.Directory{}, translate(err)
	}
	return d, nil
}

// DeleteDirectory removes the directory; its startups go with it through
// ON DELETE CASCADE.
func (s *Store) DeleteDirectory(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM directories WHERE id = $1`, id)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrRecordNotFound
	}
	return nil
}

func (s *Store) SetDirectoryFeatured(ctx context.Context, slug string, featured bool, order *int) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE directories SET featured = $2, featured_order = $3 WHERE slug = $1`,
		slug, featured, order,
	)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrRecordNotFound
	}
	return nil
}

// ListDirectories returns one page of directories plus the total match count.
func (s *Store) ListDirectories(ctx context.Context, f core.DirectoryFilter) ([]core.Directory, int64, error) {
	wb := NewWhereBuilder()
	wb.AddILike("d.name", f.Name)
	wb.AddOverlap("d.tags", f.Tags)
	if f.FeaturedOnly {
		wb.AddRaw("d.featured")
	}
	where, args := wb.Build()

	var total int64
	if err := s.db.QueryRow(ctx, "SELECT COUNT(*) FROM directories d"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count directories: %w", translate(err))
	}

	argIdx := wb.NextArgIndex()
	query := fmt.Sprintf("SELECT %s FROM directories d%s%s LIMIT $%d OFFSET $%d",
		directoryColumns, where, directoryOrder(f.Sort), argIdx, argIdx+1)
	args = append(args, f.Limit, f.Offset)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list directories: %w", translate(err))
	}
	items, err := collectDirectories(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("scan directories: %w", err)
	}
	return items, total, nil
}

const listUserDirectories = `-- name: ListUserDirectories :many
SELECT ` + directoryColumns + ` FROM directories d WHERE d.user_id = $1 ORDER BY d.created_at DESC`

func (s *Store) ListUserDirectories(ctx context.Context, userID string) ([]core.Directory, error) {
	rows, err := s.db.Query(ctx, listUserDirectories, userID)
	if err != nil {
		return nil, translate(err)
	}
	return collectDirectories(rows)
}
