package database

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/d21hq/d21/internal/core"
)

// PostgreSQL error codes.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// Constraint names from schema.sql.
const (
	constraintDirectorySlug    = "directories_slug_key"
	constraintStartupSlug      = "startups_directory_id_slug_key"
	constraintStartupDirectory = "startups_directory_id_fkey"
	constraintTeamSize         = "startups_team_size_id_fkey"
	constraintFundingStage     = "startups_funding_stage_id_fkey"
)

// translate maps driver errors onto core sentinels. Unrecognised errors are
// returned unchanged.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return core.ErrRecordNotFound
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case codeUniqueViolation:
		switch pgErr.ConstraintName {
		case constraintDirectorySlug, constraintStartupSlug:
			return fmt.Errorf("%w: %s", core.ErrDuplicateSlug, pgErr.ConstraintName)
		}
	case codeForeignKeyViolation:
		switch pgErr.ConstraintName {
		case constraintStartupDirectory:
			return fmt.Errorf("%w: %s", core.ErrRecordNotFound, pgErr.ConstraintName)
		case constraintTeamSize:
			return fmt.Errorf("%w: %s", core.ErrUnknownTeamSize, pgErr.ConstraintName)
		case constraintFundingStage:
			return fmt.Errorf("%w: %s", core.ErrUnknownFundingStage, pgErr.ConstraintName)
		}
	}
	return err
}
