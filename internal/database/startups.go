package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/d21hq/d21/internal/core"
)

const startupColumns = `s.id, s.name, s.short_description, s.long_description, s.website_url, s.logo_url,
	s.slug, s.founded_at, s.location, s.latitude, s.longitude, s.team_size_id, s.funding_stage_id,
	s.contact_email, s.linkedin_url, s.tags, s.amount_raised, s.currency, s.directory_id, d.slug,
	s.visible, s.created_at, ts.name, ts.min_size, ts.max_size, fs.name, fs."order"`

// startupJoins expands the directory slug and reference relations. The
// startups row must be aliased s.
const startupJoins = ` JOIN directories d ON d.id = s.directory_id
	LEFT JOIN team_sizes ts ON ts.id = s.team_size_id
	LEFT JOIN funding_stages fs ON fs.id = s.funding_stage_id`

func scanStartup(row pgx.Row) (core.Startup, error) {
	var (
		st      core.Startup
		amount  pgtype.Numeric
		tsName  pgtype.Text
		tsMin   pgtype.Int4
		tsMax   *int
		fsName  pgtype.Text
		fsOrder pgtype.Int4
	)
	err := row.Scan(
		&st.ID, &st.Name, &st.ShortDescription, &st.LongDescription, &st.WebsiteURL, &st.LogoURL,
		&st.Slug, &st.FoundedAt, &st.Location, &st.Latitude, &st.Longitude, &st.TeamSizeID, &st.FundingStageID,
		&st.ContactEmail, &st.LinkedinURL, &st.Tags, &amount, &st.Currency, &st.DirectoryID, &st.DirectorySlug,
		&st.Visible, &st.CreatedAt, &tsName, &tsMin, &tsMax, &fsName, &fsOrder,
	)
	if err != nil {
		return core.Startup{}, err
	}

	st.AmountRaised = core.NumericToFloat(amount)
	if st.Tags == nil {
		st.Tags = []string{}
	}
	if st.TeamSizeID != nil && tsName.Valid {
		st.TeamSize = &core.TeamSize{ID: *st.TeamSizeID, Name: tsName.String, MinSize: int(tsMin.Int32), MaxSize: tsMax}
	}
	if st.FundingStageID != nil && fsName.Valid {
		st.FundingStage = &core.FundingStage{ID: *st.FundingStageID, Name: fsName.String, Order: int(fsOrder.Int32)}
	}
	return st, nil
}

func collectStartups(rows pgx.Rows) ([]core.Startup, error) {
	defer rows.Close()
	var out []core.Startup
	for rows.Next() {
		st, err := scanStartup(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

const getStartup = `-- name: GetStartup :one
SELECT ` + startupColumns + ` FROM startups s` + startupJoins + ` WHERE s.id = $1`

func (s *Store) GetStartup(ctx context.Context, id uuid.UUID) (core.Startup, error) {
	st, err := scanStartup(s.db.QueryRow(ctx, getStartup, id))
	if err != nil {
		return core.Startup{}, translate(err)
	}
	return st, nil
}

const getStartupBySlug = `-- name: GetStartupBySlug :one
SELECT ` + startupColumns + ` FROM startups s` + startupJoins + `
WHERE s.directory_id = $1 AND s.slug = $2`

func (s *Store) GetStartupBySlug(ctx context.Context, directoryID uuid.UUID, slug string) (core.Startup, error) {
	st, err := scanStartup(s.db.QueryRow(ctx, getStartupBySlug, directoryID, slug))
	if err != nil {
		return core.Startup{}, translate(err)
	}
	return st, nil
}

// The write and the relation-expanded read share one statement, so a
// constraint violation surfaces from the same call.
const insertStartup = `-- name: InsertStartup :one
WITH s AS (
    INSERT INTO startups (
        name, short_description, long_description, website_url, logo_url, slug, founded_at,
        location, latitude, longitude, team_size_id, funding_stage_id, contact_email,
        linkedin_url, tags, amount_raised, currency, directory_id, visible
    ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
    RETURNING *
)
SELECT ` + startupColumns + ` FROM s` + startupJoins

func (s *Store) InsertStartup(ctx context.Context, ns core.NewStartup) (core.Startup, error) {
	st, err := scanStartup(s.db.QueryRow(ctx, insertStartup,
		ns.Name, ns.ShortDescription, ns.LongDescription, ns.WebsiteURL, ns.LogoURL, ns.Slug, ns.FoundedAt,
		ns.Location, ns.Latitude, ns.Longitude, ns.TeamSizeID, ns.FundingStageID, ns.ContactEmail,
		ns.LinkedinURL, tagsOrEmpty(ns.Tags), ns.AmountRaised, ns.Currency, ns.DirectoryID, ns.Visible,
	))
	if err != nil {
		return core.Startup{}, translate(err)
	}
	return st, nil
}

const updateStartup = `-- name: UpdateStartup :one
WITH s AS (
    UPDATE startups SET
        name = $2, short_description = $3, long_description = $4, website_url = $5, logo_url = $6,
        slug = $7, founded_at = $8, location = $9, latitude = $10, longitude = $11,
        team_size_id = $12, funding_stage_id = $13, contact_email = $14, linkedin_url = $15,
        tags = $16, amount_raised = $17, currency = $18
    WHERE id = $1
    RETURNING *
)
SELECT ` + startupColumns + ` FROM s` + startupJoins

// UpdateStartup rewrites the editable fields. Visibility and directory are
// left untouched.
func (s *Store) UpdateStartup(ctx context.Context, id uuid.UUID, slug string, in core.StartupInput) (core.Startup, error) {
	st, err := scanStartup(s.db.QueryRow(ctx, updateStartup,
		id, in.Name, in.ShortDescription, in.LongDescription, in.WebsiteURL, in.LogoURL,
		slug, in.FoundedAt, in.Location, in.Latitude, in.Longitude,
		in.TeamSizeID, in.FundingStageID, in.ContactEmail, in.LinkedinURL,
		tagsOrEmpty(in.Tags), in.AmountRaised, in.Currency,
	))
	if err != nil {
		return core.Startup{}, translate(err)
	}
	return st, nil
}

const toggleStartupVisibility = `-- name: ToggleStartupVisibility :one
UPDATE startups SET visible = NOT visible WHERE id = $1 RETURNING visible`

// ToggleStartupVisibility flips the flag server-side so concurrent toggles
// serialize on the row lock instead of racing a read-modify-write.
func (s *Store) ToggleStartupVisibility(ctx context.Context, id uuid.UUID) (bool, error) {
	var visible bool
	if err := s.db.QueryRow(ctx, toggleStartupVisibility, id).Scan(&visible); err != nil {
		return false, translate(err)
	}
	return visible, nil
}

func (s *Store) SetStartupVisibility(ctx context.Context, id uuid.UUID, visible bool) error {
	tag, err := s.db.Exec(ctx, `UPDATE startups SET visible = $2 WHERE id = $1`, id, visible)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrRecordNotFound
	}
	return nil
}

func (s *Store) DeleteStartup(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM startups WHERE id = $1`, id)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrRecordNotFound
	}
	return nil
}

// startupWhere builds the shared filter of the count and page queries.
func startupWhere(f core.StartupFilter) *WhereBuilder {
	wb := NewWhereBuilder()
	wb.AddValue("s.directory_id", f.DirectoryID)
	if f.Visible != nil {
		wb.AddValue("s.visible", *f.Visible)
	}
	wb.AddILike("s.name", f.Name)
	wb.AddOverlap("s.tags", f.Tags)
	wb.AddAnyUUID("s.team_size_id", f.TeamSizeIDs)
	wb.AddAnyUUID("s.funding_stage_id", f.FundingStageIDs)
	return wb
}

// ListStartups returns one page of a directory's startups plus the total
// match count.
func (s *Store) ListStartups(ctx context.Context, f core.StartupFilter) ([]core.Startup, int64, error) {
	wb := startupWhere(f)
	where, args := wb.Build()

	var total int64
	if err := s.db.QueryRow(ctx, "SELECT COUNT(*) FROM startups s"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count startups: %w", translate(err))
	}

	argIdx := wb.NextArgIndex()
	query := fmt.Sprintf("SELECT %s FROM startups s%s%s%s LIMIT $%d OFFSET $%d",
		startupColumns, startupJoins, where, startupOrder(f.Sort), argIdx, argIdx+1)
	args = append(args, f.Limit, f.Offset)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list startups: %w", translate(err))
	}
	items, err := collectStartups(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("scan startups: %w", err)
	}
	return items, total, nil
}

const listStartupLocations = `-- name: ListStartupLocations :many
SELECT id, name, slug, location, latitude, longitude
FROM startups
WHERE directory_id = $1 AND visible AND NOT (latitude = 0 AND longitude = 0)
ORDER BY name`

// ListStartupLocations returns map pins for visible startups that carry
// coordinates.
func (s *Store) ListStartupLocations(ctx context.Context, directoryID uuid.UUID) ([]core.StartupLocation, error) {
	rows, err := s.db.Query(ctx, listStartupLocations, directoryID)
	if err != nil {
		return nil, translate(err)
	}
	locs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.StartupLocation, error) {
		var l core.StartupLocation
		err := row.Scan(&l.ID, &l.Name, &l.Slug, &l.Location, &l.Latitude, &l.Longitude)
		return l, err
	})
	if err != nil {
		return nil, translate(err)
	}
	return locs, nil
}

const listStartupTags = `-- name: ListStartupTags :many
SELECT DISTINCT tag
FROM startups, unnest(tags) AS tag
WHERE directory_id = $1 AND visible
ORDER BY tag`

func (s *Store) ListStartupTags(ctx context.Context, directoryID uuid.UUID) ([]string, error) {
	rows, err := s.db.Query(ctx, listStartupTags, directoryID)
	if err != nil {
		return nil, translate(err)
	}
	tags, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, translate(err)
	}
	return tags, nil
}
