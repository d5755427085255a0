package core

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/d21hq/d21/internal/logging"
)

// AuditAction represents the type of action being audited.
type AuditAction string

const (
	ActionDirectoryCreate   AuditAction = "directory_create"
	ActionDirectoryUpdate   AuditAction = "directory_update"
	ActionDirectoryDelete   AuditAction = "directory_delete"
	ActionDirectoryFeature  AuditAction = "directory_feature"
	ActionStartupCreate     AuditAction = "startup_create"
	ActionStartupUpdate     AuditAction = "startup_update"
	ActionStartupVisibility AuditAction = "startup_visibility"
	ActionStartupDelete     AuditAction = "startup_delete"
)

// AuditSeverity represents the severity level of an audit entry.
type AuditSeverity string

const (
	SeverityLow    AuditSeverity = "low"
	SeverityMedium AuditSeverity = "medium"
	SeverityHigh   AuditSeverity = "high"
)

// DefaultAuditLimit is the number of entries GetAuditLog returns when the
// caller asks for 0; MaxAuditLimit caps larger requests.
const (
	DefaultAuditLimit = 50
	MaxAuditLimit     = 500
)

// AuditEntry represents a single audit log entry.
type AuditEntry struct {
	ID            int64          `json:"id"`
	Action        AuditAction    `json:"action"`
	Severity      AuditSeverity  `json:"severity"`
	DirectorySlug string         `json:"directorySlug"`
	StartupID     *uuid.UUID     `json:"startupId,omitempty"`
	UserID        string         `json:"userId,omitempty"`
	IPAddress     string         `json:"ipAddress,omitempty"`
	UserAgent     string         `json:"userAgent,omitempty"`
	Details       map[string]any `json:"details,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
}

// auditRecord is what a mutation knows; request metadata comes from ctx.
type auditRecord struct {
	Action        AuditAction
	UserID        string
	DirectorySlug string
	StartupID     *uuid.UUID
	Details       map[string]any
}

// determineSeverity returns the appropriate severity for an action.
func determineSeverity(action AuditAction) AuditSeverity {
	switch action {
	case ActionDirectoryDelete, ActionStartupDelete:
		return SeverityHigh
	case ActionStartupVisibility, ActionDirectoryFeature:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// logAudit records a completed mutation. A failed write is logged and
// swallowed: the mutation already happened and must still report success.
func (s *Service) logAudit(ctx context.Context, rec auditRecord) {
	entry := AuditEntry{
		Action:        rec.Action,
		Severity:      determineSeverity(rec.Action),
		DirectorySlug: rec.DirectorySlug,
		StartupID:     rec.StartupID,
		UserID:        rec.UserID,
		IPAddress:     GetIPAddressFromContext(ctx),
		UserAgent:     GetUserAgentFromContext(ctx),
		Details:       rec.Details,
		CreatedAt:     s.now().UTC(),
	}

	if err := s.store.InsertAuditEntry(ctx, entry); err != nil {
		logging.FromContext(ctx).Error("audit log write failed",
			"action", rec.Action,
			"directory", rec.DirectorySlug,
			"error", err,
		)
	}
}

// GetAuditLog returns the most recent audit entries for a directory, newest
// first. Only the directory's owner may read it.
func (s *Service) GetAuditLog(ctx context.Context, userID, directorySlug string, limit int) ([]AuditEntry, error) {
	if userID == "" {
		return nil, unauthenticated()
	}
	dir, err := s.loadDirectory(ctx, directorySlug)
	if err != nil {
		return nil, err
	}
	if err := s.requireAccess(ctx, dir.Slug, userID); err != nil {
		return nil, err
	}

	switch {
	case limit <= 0:
		limit = DefaultAuditLimit
	case limit > MaxAuditLimit:
		limit = MaxAuditLimit
	}

	entries, err := s.store.ListAuditEntries(ctx, dir.Slug, limit)
	if err != nil {
		return nil, internal("list audit entries", err)
	}
	if entries == nil {
		entries = []AuditEntry{}
	}
	return entries, nil
}
