package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/d21hq/d21/internal/core"
)

const insertAuditEntry = `-- name: InsertAuditEntry :exec
INSERT INTO audit_log (action, severity, directory_slug, startup_id, user_id, ip_address, user_agent, details, created_at)
VALUES ($1, $2, $3, $4, $5, NULLIF($6, '')::inet, $7, $8, $9)`

func (s *Store) InsertAuditEntry(ctx context.Context, e core.AuditEntry) error {
	var details []byte
	if len(e.Details) > 0 {
		b, err := json.Marshal(e.Details)
		if err != nil {
			return fmt.Errorf("marshal audit details: %w", err)
		}
		details = b
	}

	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}

	_, err := s.db.Exec(ctx, insertAuditEntry,
		string(e.Action), string(e.Severity), e.DirectorySlug, e.StartupID,
		e.UserID, e.IPAddress, e.UserAgent, details, created,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", translate(err))
	}
	return nil
}

const listAuditEntries = `-- name: ListAuditEntries :many
SELECT id, action, severity, directory_slug, startup_id, user_id,
       COALESCE(host(ip_address), ''), user_agent, details, created_at
FROM audit_log
WHERE directory_slug = $1
ORDER BY created_at DESC, id DESC
LIMIT $2`

// ListAuditEntries returns the newest entries for a directory.
func (s *Store) ListAuditEntries(ctx context.Context, directorySlug string, limit int) ([]core.AuditEntry, error) {
	rows, err := s.db.Query(ctx, listAuditEntries, directorySlug, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", translate(err))
	}
	entries, err := pgx.CollectRows(rows, scanAuditRow)
	if err != nil {
		return nil, fmt.Errorf("scan audit log: %w", err)
	}
	return entries, nil
}

func scanAuditRow(row pgx.CollectableRow) (core.AuditEntry, error) {
	var (
		e        core.AuditEntry
		action   string
		severity string
		details  []byte
	)
	err := row.Scan(
		&e.ID, &action, &severity, &e.DirectorySlug, &e.StartupID, &e.UserID,
		&e.IPAddress, &e.UserAgent, &details, &e.CreatedAt,
	)
	if err != nil {
		return core.AuditEntry{}, err
	}
	e.Action = core.AuditAction(action)
	e.Severity = core.AuditSeverity(severity)
	if len(details) > 0 {
		if err := json.Unmarshal(details, &e.Details); err != nil {
			return core.AuditEntry{}, fmt.Errorf("decode audit details: %w", err)
		}
	}
	return e, nil
}

// PurgeAuditEntries deletes entries created before the cutoff.
func (s *Store) PurgeAuditEntries(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM audit_log WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("purge audit log: %w", translate(err))
	}
	return tag.RowsAffected(), nil
}
