package core

// service_mutations.go holds the owner-scoped write actions.
//
// Owner-scoped actions check, in order: a session is present
// (Unauthenticated), the target exists (NotFound), the session owns the
// directory (Forbidden). Only then is the form parsed and the write issued.

import (
	"context"
	"errors"
	"maps"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// CreateDirectory creates a directory owned by userID.
func (s *Service) CreateDirectory(ctx context.Context, userID string, form url.Values) (Directory, error) {
	if userID == "" {
		return Directory{}, unauthenticated()
	}

	in, err := ParseDirectoryForm(form)
	if err != nil {
		return Directory{}, err
	}
	if in.ImageURL, err = s.rehostImage(ctx, in.ImageURL); err != nil {
		return Directory{}, err
	}

	dir, err := s.store.InsertDirectory(ctx, NewDirectory{DirectoryInput: in, UserID: userID})
	if err != nil {
		return Directory{}, translateWriteError("create directory", err, MsgSlugTaken, MsgDirectoryNotFound)
	}

	s.logAudit(ctx, auditRecord{
		Action:        ActionDirectoryCreate,
		UserID:        userID,
		DirectorySlug: dir.Slug,
		Details:       map[string]any{"name": dir.Name},
	})
	return dir, nil
}

// CheckSlugUniqueness reports whether no directory uses slug yet.
// The answer is advisory; CreateDirectory enforces uniqueness atomically.
func (s *Service) CheckSlugUniqueness(ctx context.Context, slug string) (bool, error) {
	slug = strings.TrimSpace(slug)
	if !IsValidSlug(slug) {
		return false, invalid(MsgInvalidSlug)
	}
	exists, err := s.store.DirectorySlugExists(ctx, slug)
	if err != nil {
		return false, internal("check slug", err)
	}
	return !exists, nil
}

// UpdateDirectory replaces the editable fields of the directory at slug.
// Owner and featured flags are never touched. An empty slug field keeps
// the current slug.
func (s *Service) UpdateDirectory(ctx context.Context, userID, slug string, form url.Values) (Directory, error) {
	if userID == "" {
		return Directory{}, unauthenticated()
	}
	current, err := s.loadDirectory(ctx, slug)
	if err != nil {
		return Directory{}, err
	}
	if err := s.requireAccess(ctx, current.Slug, userID); err != nil {
		return Directory{}, err
	}

	// The current slug stands in before validation so names that slugify
	// to nothing can still be edited.
	if FormValue(form, "slug") == "" {
		form = maps.Clone(form)
		form.Set("slug", current.Slug)
	}
	in, err := ParseDirectoryForm(form)
	if err != nil {
		return Directory{}, err
	}
	if in.ImageURL != current.ImageURL {
		if in.ImageURL, err = s.rehostImage(ctx, in.ImageURL); err != nil {
			return Directory{}, err
		}
	}

	dir, err := s.store.UpdateDirectory(ctx, current.ID, in)
	if err != nil {
		return Directory{}, translateWriteError("update directory", err, MsgSlugTaken, MsgDirectoryNotFound)
	}

	details := map[string]any{"name": dir.Name}
	if dir.Slug != current.Slug {
		details["previousSlug"] = current.Slug
	}
	s.logAudit(ctx, auditRecord{
		Action:        ActionDirectoryUpdate,
		UserID:        userID,
		DirectorySlug: dir.Slug,
		Details:       details,
	})
	return dir, nil
}

// DeleteDirectory hard-deletes the directory; its startups go with it.
func (s *Service) DeleteDirectory(ctx context.Context, userID, slug string) error {
	if userID == "" {
		return unauthenticated()
	}
	dir, err := s.loadDirectory(ctx, slug)
	if err != nil {
		return err
	}
	if err := s.requireAccess(ctx, dir.Slug, userID); err != nil {
		return err
	}

	if err := s.store.DeleteDirectory(ctx, dir.ID); err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return notFound(MsgDirectoryNotFound)
		}
		return internal("delete directory", err)
	}

	s.logAudit(ctx, auditRecord{
		Action:        ActionDirectoryDelete,
		UserID:        userID,
		DirectorySlug: dir.Slug,
		Details:       map[string]any{"name": dir.Name},
	})
	return nil
}

// SetDirectoryFeatured marks a directory for the featured listing. Operator
// only: there is no ownership check, so it is not exposed over HTTP.
func (s *Service) SetDirectoryFeatured(ctx context.Context, slug string, featured bool, order *int) error {
	err := s.store.SetDirectoryFeatured(ctx, slug, featured, order)
	if errors.Is(err, ErrRecordNotFound) {
		return notFound(MsgDirectoryNotFound)
	}
	if err != nil {
		return internal("set directory featured", err)
	}

	details := map[string]any{"featured": featured}
	if order != nil {
		details["order"] = *order
	}
	s.logAudit(ctx, auditRecord{
		Action:        ActionDirectoryFeature,
		DirectorySlug: slug,
		Details:       details,
	})
	return nil
}

// CreateStartup submits a startup to a directory. No session is needed: the
// public form and the owner's admin form both land here, and every
// submission starts hidden until the owner approves it.
func (s *Service) CreateStartup(ctx context.Context, directorySlug string, form url.Values) (Startup, error) {
	dir, err := s.loadDirectory(ctx, directorySlug)
	if err != nil {
		return Startup{}, err
	}

	in, err := ParseStartupForm(form)
	if err != nil {
		return Startup{}, err
	}
	if len(in.Tags) > MaxSubmissionTags {
		return Startup{}, invalid(MsgTooManyTags)
	}
	slug := Slugify(in.Name)
	if slug == "" {
		return Startup{}, invalid(MsgInvalidSlug)
	}
	if in.LogoURL != nil {
		hosted, err := s.rehostImage(ctx, *in.LogoURL)
		if err != nil {
			return Startup{}, err
		}
		in.LogoURL = &hosted
	}

	st, err := s.store.InsertStartup(ctx, NewStartup{
		StartupInput: in,
		DirectoryID:  dir.ID,
		Slug:         slug,
		Visible:      false,
	})
	if err != nil {
		return Startup{}, translateWriteError("create startup", err, MsgStartupExists, MsgDirectoryNotFound)
	}
	st.DirectorySlug = dir.Slug

	s.hub.Publish(SubmissionEvent{
		DirectorySlug: dir.Slug,
		StartupID:     st.ID,
		StartupName:   st.Name,
		StartupSlug:   st.Slug,
		SubmittedAt:   s.now(),
	})
	s.logAudit(ctx, auditRecord{
		Action:        ActionStartupCreate,
		UserID:        ActorFromContext(ctx),
		DirectorySlug: dir.Slug,
		StartupID:     &st.ID,
		Details:       map[string]any{"name": st.Name},
	})
	return st, nil
}

// UpdateStartup replaces the editable fields of a startup. The slug follows
// the new name; visibility is left alone.
func (s *Service) UpdateStartup(ctx context.Context, userID, startupID string, form url.Values) (Startup, error) {
	current, err := s.loadOwnedStartup(ctx, userID, startupID)
	if err != nil {
		return Startup{}, err
	}

	in, err := ParseStartupForm(form)
	if err != nil {
		return Startup{}, err
	}
	slug := Slugify(in.Name)
	if slug == "" {
		return Startup{}, invalid(MsgInvalidSlug)
	}
	if in.LogoURL != nil && (current.LogoURL == nil || *in.LogoURL != *current.LogoURL) {
		hosted, err := s.rehostImage(ctx, *in.LogoURL)
		if err != nil {
			return Startup{}, err
		}
		in.LogoURL = &hosted
	}

	st, err := s.store.UpdateStartup(ctx, current.ID, slug, in)
	if err != nil {
		return Startup{}, translateWriteError("update startup", err, MsgStartupExists, MsgStartupNotFound)
	}
	st.DirectorySlug = current.DirectorySlug

	s.logAudit(ctx, auditRecord{
		Action:        ActionStartupUpdate,
		UserID:        userID,
		DirectorySlug: current.DirectorySlug,
		StartupID:     &current.ID,
		Details:       map[string]any{"name": st.Name},
	})
	return st, nil
}

// ToggleStartupVisibility flips a startup between pending and visible and
// returns the new state. The flip is a single store operation, so concurrent
// toggles never lose an update.
func (s *Service) ToggleStartupVisibility(ctx context.Context, userID, startupID string) (bool, error) {
	st, err := s.loadOwnedStartup(ctx, userID, startupID)
	if err != nil {
		return false, err
	}

	visible, err := s.store.ToggleStartupVisibility(ctx, st.ID)
	if errors.Is(err, ErrRecordNotFound) {
		return false, notFound(MsgStartupNotFound)
	}
	if err != nil {
		return false, internal("toggle visibility", err)
	}

	s.logAudit(ctx, auditRecord{
		Action:        ActionStartupVisibility,
		UserID:        userID,
		DirectorySlug: st.DirectorySlug,
		StartupID:     &st.ID,
		Details:       map[string]any{"visible": visible},
	})
	return visible, nil
}

// SetStartupVisibility sets the flag explicitly; repeating a call is a no-op.
func (s *Service) SetStartupVisibility(ctx context.Context, userID, startupID string, visible bool) error {
	st, err := s.loadOwnedStartup(ctx, userID, startupID)
	if err != nil {
		return err
	}

	err = s.store.SetStartupVisibility(ctx, st.ID, visible)
	if errors.Is(err, ErrRecordNotFound) {
		return notFound(MsgStartupNotFound)
	}
	if err != nil {
		return internal("set visibility", err)
	}

	s.logAudit(ctx, auditRecord{
		Action:        ActionStartupVisibility,
		UserID:        userID,
		DirectorySlug: st.DirectorySlug,
		StartupID:     &st.ID,
		Details:       map[string]any{"visible": visible},
	})
	return nil
}

// DeleteStartup hard-deletes a startup.
func (s *Service) DeleteStartup(ctx context.Context, userID, startupID string) error {
	st, err := s.loadOwnedStartup(ctx, userID, startupID)
	if err != nil {
		return err
	}

	err = s.store.DeleteStartup(ctx, st.ID)
	if errors.Is(err, ErrRecordNotFound) {
		return notFound(MsgStartupNotFound)
	}
	if err != nil {
		return internal("delete startup", err)
	}

	s.logAudit(ctx, auditRecord{
		Action:        ActionStartupDelete,
		UserID:        userID,
		DirectorySlug: st.DirectorySlug,
		StartupID:     &st.ID,
		Details:       map[string]any{"name": st.Name},
	})
	return nil
}

// loadOwnedStartup runs the owner-scoped preamble for startup actions.
func (s *Service) loadOwnedStartup(ctx context.Context, userID, startupID string) (Startup, error) {
	if userID == "" {
		return Startup{}, unauthenticated()
	}

	id, err := uuid.Parse(strings.TrimSpace(startupID))
	if err != nil {
		return Startup{}, notFound(MsgStartupNotFound)
	}
	st, err := s.store.GetStartup(ctx, id)
	if errors.Is(err, ErrRecordNotFound) {
		return Startup{}, notFound(MsgStartupNotFound)
	}
	if err != nil {
		return Startup{}, internal("load startup", err)
	}

	if err := s.requireAccess(ctx, st.DirectorySlug, userID); err != nil {
		return Startup{}, err
	}
	return st, nil
}

// translateWriteError maps store sentinels from inserts and updates.
func translateWriteError(op string, err error, duplicateMsg, missingMsg string) error {
	switch {
	case errors.Is(err, ErrDuplicateSlug):
		return &ActionError{Kind: KindValidation, Message: duplicateMsg, Err: err}
	case errors.Is(err, ErrUnknownTeamSize):
		return &ActionError{Kind: KindValidation, Message: MsgInvalidTeamSize, Err: err}
	case errors.Is(err, ErrUnknownFundingStage):
		return &ActionError{Kind: KindValidation, Message: MsgInvalidFundingStage, Err: err}
	case errors.Is(err, ErrRecordNotFound):
		return notFound(missingMsg)
	default:
		return internal(op, err)
	}
}
