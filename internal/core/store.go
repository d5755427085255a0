package core

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Reference sentinels returned when a startup points at a lookup row that
// does not exist.
var (
	ErrUnknownTeamSize     = errors.New("unknown team size")
	ErrUnknownFundingStage = errors.New("unknown funding stage")
)

// Store is the persistence contract the Service depends on.
//
// Lookups return ErrRecordNotFound when nothing matches. Inserts and updates
// return ErrDuplicateSlug when a slug uniqueness constraint rejects the row,
// so the check and the write are a single atomic operation.
type Store interface {
	GetDirectoryBySlug(ctx context.Context, slug string) (Directory, error)
	DirectoryOwner(ctx context.Context, slug string) (string, error)
	DirectorySlugExists(ctx context.Context, slug string) (bool, error)
	InsertDirectory(ctx context.Context, d NewDirectory) (Directory, error)
	UpdateDirectory(ctx context.Context, id uuid.UUID, in DirectoryInput) (Directory, error)
	DeleteDirectory(ctx context.Context, id uuid.UUID) error
	SetDirectoryFeatured(ctx context.Context, slug string, featured bool, order *int) error
	ListDirectories(ctx context.Context, f DirectoryFilter) ([]Directory, int64, error)
	ListUserDirectories(ctx context.Context, userID string) ([]Directory, error)

	// GetStartup fills Startup.DirectorySlug so callers can run the access guard.
	GetStartup(ctx context.Context, id uuid.UUID) (Startup, error)
	GetStartupBySlug(ctx context.Context, directoryID uuid.UUID, slug string) (Startup, error)
	InsertStartup(ctx context.Context, s NewStartup) (Startup, error)
	UpdateStartup(ctx context.Context, id uuid.UUID, slug string, in StartupInput) (Startup, error)
	// ToggleStartupVisibility flips the flag in one statement and returns the new value.
	ToggleStartupVisibility(ctx context.Context, id uuid.UUID) (bool, error)
	SetStartupVisibility(ctx context.Context, id uuid.UUID, visible bool) error
	DeleteStartup(ctx context.Context, id uuid.UUID) error
	ListStartups(ctx context.Context, f StartupFilter) ([]Startup, int64, error)
	ListStartupLocations(ctx context.Context, directoryID uuid.UUID) ([]StartupLocation, error)
	ListStartupTags(ctx context.Context, directoryID uuid.UUID) ([]string, error)

	ListTeamSizes(ctx context.Context) ([]TeamSize, error)
	ListFundingStages(ctx context.Context) ([]FundingStage, error)

	InsertAuditEntry(ctx context.Context, e AuditEntry) error
	ListAuditEntries(ctx context.Context, directorySlug string, limit int) ([]AuditEntry, error)
	PurgeAuditEntries(ctx context.Context, before time.Time) (int64, error)

	ListTables(ctx context.Context) ([]string, error)
}
