package core

import (
	"context"
	"errors"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memStore is an in-memory Store for service tests. It enforces the same
// uniqueness rules as the database schema.
type memStore struct {
	mu            sync.Mutex
	directories   map[uuid.UUID]*Directory
	startups      map[uuid.UUID]*storedStartup
	teamSizes     []TeamSize
	fundingStages []FundingStage
	audit         []AuditEntry

	auditErr       error
	listTeamCalls  int
	failNextInsert error
}

type storedStartup struct {
	NewStartup
	ID        uuid.UUID
	CreatedAt time.Time
}

func newMemStore() *memStore {
	return &memStore{
		directories: make(map[uuid.UUID]*Directory),
		startups:    make(map[uuid.UUID]*storedStartup),
	}
}

func (m *memStore) findDirectory(slug string) *Directory {
	for _, d := range m.directories {
		if d.Slug == slug {
			return d
		}
	}
	return nil
}

func (m *memStore) toStartup(s *storedStartup) Startup {
	st := Startup{
		ID:               s.ID,
		Name:             s.Name,
		ShortDescription: s.ShortDescription,
		LongDescription:  s.LongDescription,
		WebsiteURL:       s.WebsiteURL,
		LogoURL:          s.LogoURL,
		Slug:             s.Slug,
		FoundedAt:        s.FoundedAt,
		Location:         s.Location,
		Latitude:         s.Latitude,
		Longitude:        s.Longitude,
		TeamSizeID:       s.TeamSizeID,
		FundingStageID:   s.FundingStageID,
		ContactEmail:     s.ContactEmail,
		LinkedinURL:      s.LinkedinURL,
		Tags:             slices.Clone(s.Tags),
		AmountRaised:     NumericToFloat(s.AmountRaised),
		Currency:         s.Currency,
		DirectoryID:      s.DirectoryID,
		Visible:          s.Visible,
		CreatedAt:        s.CreatedAt,
	}
	if d, ok := m.directories[s.DirectoryID]; ok {
		st.DirectorySlug = d.Slug
	}
	return st
}

func (m *memStore) GetDirectoryBySlug(_ context.Context, slug string) (Directory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d := m.findDirectory(slug); d != nil {
		return *d, nil
	}
	return Directory{}, ErrRecordNotFound
}

func (m *memStore) DirectoryOwner(_ context.Context, slug string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d := m.findDirectory(slug); d != nil {
		return d.UserID, nil
	}
	return "", ErrRecordNotFound
}

func (m *memStore) DirectorySlugExists(_ context.Context, slug string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findDirectory(slug) != nil, nil
}

func (m *memStore) InsertDirectory(_ context.Context, nd NewDirectory) (Directory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failNextInsert; err != nil {
		m.failNextInsert = nil
		return Directory{}, err
	}
	if m.findDirectory(nd.Slug) != nil {
		return Directory{}, ErrDuplicateSlug
	}
	d := &Directory{
		ID:          uuid.New(),
		Name:        nd.Name,
		Description: nd.Description,
		ImageURL:    nd.ImageURL,
		Link:        nd.Link,
		Tags:        slices.Clone(nd.Tags),
		Location:    nd.Location,
		Latitude:    nd.Latitude,
		Longitude:   nd.Longitude,
		Slug:        nd.Slug,
		UserID:      nd.UserID,
		CreatedAt:   time.Now(),
	}
	m.directories[d.ID] = d
	return *d, nil
}

func (m *memStore) UpdateDirectory(_ context.Context, id uuid.UUID, in DirectoryInput) (Directory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.directories[id]
	if !ok {
		return Directory{}, ErrRecordNotFound
	}
	if other := m.findDirectory(in.Slug); other != nil && other.ID != id {
		return Directory{}, ErrDuplicateSlug
	}
	d.Name, d.Slug, d.Description = in.Name, in.Slug, in.Description
	d.ImageURL, d.Link, d.Tags, d.Location = in.ImageURL, in.Link, slices.Clone(in.Tags), in.Location
	d.Latitude, d.Longitude = in.Latitude, in.Longitude
	return *d, nil
}

func (m *memStore) DeleteDirectory(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.directories[id]; !ok {
		return ErrRecordNotFound
	}
	delete(m.directories, id)
	for sid, s := range m.startups {
		if s.DirectoryID == id {
			delete(m.startups, sid)
		}
	}
	return nil
}

func (m *memStore) SetDirectoryFeatured(_ context.Context, slug string, featured bool, order *int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.findDirectory(slug)
	if d == nil {
		return ErrRecordNotFound
	}
	d.Featured, d.FeaturedOrder = featured, order
	return nil
}

func (m *memStore) ListDirectories(_ context.Context, f DirectoryFilter) ([]Directory, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Directory
	for _, d := range m.directories {
		if f.FeaturedOnly && !d.Featured {
			continue
		}
		if f.Name != "" && !strings.Contains(strings.ToLower(d.Name), strings.ToLower(f.Name)) {
			continue
		}
		if len(f.Tags) > 0 && !overlaps(d.Tags, f.Tags) {
			continue
		}
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return paginate(out, f.Offset, f.Limit), int64(len(out)), nil
}

func (m *memStore) ListUserDirectories(_ context.Context, userID string) ([]Directory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Directory
	for _, d := range m.directories {
		if d.UserID == userID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *memStore) GetStartup(_ context.Context, id uuid.UUID) (Startup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.startups[id]
	if !ok {
		return Startup{}, ErrRecordNotFound
	}
	return m.toStartup(s), nil
}

func (m *memStore) GetStartupBySlug(_ context.Context, directoryID uuid.UUID, slug string) (Startup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.startups {
		if s.DirectoryID == directoryID && s.Slug == slug {
			return m.toStartup(s), nil
		}
	}
	return Startup{}, ErrRecordNotFound
}

func (m *memStore) slugTaken(directoryID uuid.UUID, slug string, except uuid.UUID) bool {
	for _, s := range m.startups {
		if s.DirectoryID == directoryID && s.Slug == slug && s.ID != except {
			return true
		}
	}
	return false
}

func (m *memStore) InsertStartup(_ context.Context, ns NewStartup) (Startup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.directories[ns.DirectoryID]; !ok {
		return Startup{}, ErrRecordNotFound
	}
	if m.slugTaken(ns.DirectoryID, ns.Slug, uuid.Nil) {
		return Startup{}, ErrDuplicateSlug
	}
	s := &storedStartup{NewStartup: ns, ID: uuid.New(), CreatedAt: time.Now()}
	m.startups[s.ID] = s
	return m.toStartup(s), nil
}

func (m *memStore) UpdateStartup(_ context.Context, id uuid.UUID, slug string, in StartupInput) (Startup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.startups[id]
	if !ok {
		return Startup{}, ErrRecordNotFound
	}
	if m.slugTaken(s.DirectoryID, slug, id) {
		return Startup{}, ErrDuplicateSlug
	}
	s.StartupInput = in
	s.Slug = slug
	return m.toStartup(s), nil
}

func (m *memStore) ToggleStartupVisibility(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.startups[id]
	if !ok {
		return false, ErrRecordNotFound
	}
	s.Visible = !s.Visible
	return s.Visible, nil
}

func (m *memStore) SetStartupVisibility(_ context.Context, id uuid.UUID, visible bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.startups[id]
	if !ok {
		return ErrRecordNotFound
	}
	s.Visible = visible
	return nil
}

func (m *memStore) DeleteStartup(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.startups[id]; !ok {
		return ErrRecordNotFound
	}
	delete(m.startups, id)
	return nil
}

func (m *memStore) ListStartups(_ context.Context, f StartupFilter) ([]Startup, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Startup
	for _, s := range m.startups {
		if s.DirectoryID != f.DirectoryID {
			continue
		}
		if f.Visible != nil && s.Visible != *f.Visible {
			continue
		}
		if f.Name != "" && !strings.Contains(strings.ToLower(s.Name), strings.ToLower(f.Name)) {
			continue
		}
		if len(f.Tags) > 0 && !overlaps(s.Tags, f.Tags) {
			continue
		}
		if len(f.TeamSizeIDs) > 0 && (s.TeamSizeID == nil || !slices.Contains(f.TeamSizeIDs, *s.TeamSizeID)) {
			continue
		}
		if len(f.FundingStageIDs) > 0 && (s.FundingStageID == nil || !slices.Contains(f.FundingStageIDs, *s.FundingStageID)) {
			continue
		}
		out = append(out, m.toStartup(s))
	}
	sort.Slice(out, func(i, j int) bool {
		if f.Sort == SortNameDesc {
			return out[i].Name > out[j].Name
		}
		return out[i].Name < out[j].Name
	})
	return paginate(out, f.Offset, f.Limit), int64(len(out)), nil
}

func (m *memStore) ListStartupLocations(_ context.Context, directoryID uuid.UUID) ([]StartupLocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []StartupLocation
	for _, s := range m.startups {
		if s.DirectoryID != directoryID || !s.Visible || (s.Latitude == 0 && s.Longitude == 0) {
			continue
		}
		out = append(out, StartupLocation{ID: s.ID, Name: s.Name, Slug: s.Slug, Location: s.Location, Latitude: s.Latitude, Longitude: s.Longitude})
	}
	return out, nil
}

func (m *memStore) ListStartupTags(_ context.Context, directoryID uuid.UUID) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var tags []string
	for _, s := range m.startups {
		if s.DirectoryID != directoryID || !s.Visible {
			continue
		}
		for _, t := range s.Tags {
			if !slices.Contains(tags, t) {
				tags = append(tags, t)
			}
		}
	}
	sort.Strings(tags)
	return tags, nil
}

func (m *memStore) ListTeamSizes(context.Context) ([]TeamSize, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listTeamCalls++
	return slices.Clone(m.teamSizes), nil
}

func (m *memStore) ListFundingStages(context.Context) ([]FundingStage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.fundingStages), nil
}

func (m *memStore) InsertAuditEntry(_ context.Context, e AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.auditErr != nil {
		return m.auditErr
	}
	e.ID = int64(len(m.audit) + 1)
	m.audit = append(m.audit, e)
	return nil
}

func (m *memStore) ListAuditEntries(_ context.Context, slug string, limit int) ([]AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []AuditEntry
	for i := len(m.audit) - 1; i >= 0 && len(out) < limit; i-- {
		if m.audit[i].DirectorySlug == slug {
			out = append(out, m.audit[i])
		}
	}
	return out, nil
}

func (m *memStore) PurgeAuditEntries(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.audit[:0]
	var purged int64
	for _, e := range m.audit {
		if e.CreatedAt.Before(before) {
			purged++
			continue
		}
		kept = append(kept, e)
	}
	m.audit = kept
	return purged, nil
}

func (m *memStore) ListTables(context.Context) ([]string, error) {
	return []string{"audit_log", "directories", "funding_stages", "startups", "team_sizes"}, nil
}

func (m *memStore) auditActions() []AuditAction {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]AuditAction, len(m.audit))
	for i, e := range m.audit {
		out[i] = e.Action
	}
	return out
}

func overlaps(have, want []string) bool {
	for _, w := range want {
		if slices.Contains(have, w) {
			return true
		}
	}
	return false
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return nil
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}

var errStoreDown = errors.New("pgx: connection refused")
