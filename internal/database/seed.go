package database

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"gopkg.in/yaml.v3"

	"github.com/d21hq/d21/internal/core"
)

//go:embed seed.yaml
var defaultSeed []byte

// SeedData is the reference data loaded by Seed.
type SeedData struct {
	TeamSizes     []core.TeamSize     `yaml:"teamSizes"`
	FundingStages []core.FundingStage `yaml:"fundingStages"`
}

// DefaultSeed returns the embedded seed file.
func DefaultSeed() []byte {
	return defaultSeed
}

// ParseSeed decodes and validates a seed file. All problems are reported
// together.
func ParseSeed(data []byte) (SeedData, error) {
	var sd SeedData
	if err := yaml.Unmarshal(data, &sd); err != nil {
		return SeedData{}, fmt.Errorf("parse seed: %w", err)
	}

	var errs []error
	seen := make(map[string]bool)
	for i, ts := range sd.TeamSizes {
		switch {
		case ts.Name == "":
			errs = append(errs, fmt.Errorf("teamSizes[%d]: name is required", i))
		case seen["ts:"+ts.Name]:
			errs = append(errs, fmt.Errorf("teamSizes[%d]: duplicate name %q", i, ts.Name))
		}
		if ts.MaxSize != nil && *ts.MaxSize < ts.MinSize {
			errs = append(errs, fmt.Errorf("teamSizes[%d]: maxSize %d is below minSize %d", i, *ts.MaxSize, ts.MinSize))
		}
		seen["ts:"+ts.Name] = true
	}
	for i, fs := range sd.FundingStages {
		switch {
		case fs.Name == "":
			errs = append(errs, fmt.Errorf("fundingStages[%d]: name is required", i))
		case seen["fs:"+fs.Name]:
			errs = append(errs, fmt.Errorf("fundingStages[%d]: duplicate name %q", i, fs.Name))
		}
		seen["fs:"+fs.Name] = true
	}
	if err := errors.Join(errs...); err != nil {
		return SeedData{}, err
	}
	return sd, nil
}

const upsertTeamSize = `-- name: UpsertTeamSize :exec
INSERT INTO team_sizes (name, min_size, max_size) VALUES ($1, $2, $3)
ON CONFLICT (name) DO UPDATE SET min_size = EXCLUDED.min_size, max_size = EXCLUDED.max_size`

const upsertFundingStage = `-- name: UpsertFundingStage :exec
INSERT INTO funding_stages (name, "order") VALUES ($1, $2)
ON CONFLICT (name) DO UPDATE SET "order" = EXCLUDED."order"`

// Seed upserts the reference rows in one transaction. Existing ids are kept,
// so startups referencing them stay linked.
func Seed(ctx context.Context, db DBTX, sd SeedData) error {
	err := pgx.BeginFunc(ctx, db, func(tx pgx.Tx) error {
		for _, ts := range sd.TeamSizes {
			if _, err := tx.Exec(ctx, upsertTeamSize, ts.Name, ts.MinSize, ts.MaxSize); err != nil {
				return fmt.Errorf("upsert team size %q: %w", ts.Name, err)
			}
		}
		for _, fs := range sd.FundingStages {
			if _, err := tx.Exec(ctx, upsertFundingStage, fs.Name, fs.Order); err != nil {
				return fmt.Errorf("upsert funding stage %q: %w", fs.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	slog.Info("reference data seeded", "team_sizes", len(sd.TeamSizes), "funding_stages", len(sd.FundingStages))
	return nil
}
