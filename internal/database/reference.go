package database

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/d21hq/d21/internal/core"
)

const listTeamSizes = `-- name: ListTeamSizes :many
SELECT id, name, min_size, max_size FROM team_sizes ORDER BY min_size, name`

func (s *Store) ListTeamSizes(ctx context.Context) ([]core.TeamSize, error) {
	rows, err := s.db.Query(ctx, listTeamSizes)
	if err != nil {
		return nil, translate(err)
	}
	sizes, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.TeamSize, error) {
		var ts core.TeamSize
		err := row.Scan(&ts.ID, &ts.Name, &ts.MinSize, &ts.MaxSize)
		return ts, err
	})
	if err != nil {
		return nil, translate(err)
	}
	return sizes, nil
}

const listFundingStages = `-- name: ListFundingStages :many
SELECT id, name, "order" FROM funding_stages ORDER BY "order", name`

func (s *Store) ListFundingStages(ctx context.Context) ([]core.FundingStage, error) {
	rows, err := s.db.Query(ctx, listFundingStages)
	if err != nil {
		return nil, translate(err)
	}
	stages, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.FundingStage, error) {
		var fs core.FundingStage
		err := row.Scan(&fs.ID, &fs.Name, &fs.Order)
		return fs, err
	})
	if err != nil {
		return nil, translate(err)
	}
	return stages, nil
}
