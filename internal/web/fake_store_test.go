package web

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/d21hq/d21/internal/core"
)

// fakeStore implements the parts of core.Store the transport tests reach.
// Calls outside that set hit the nil embedded interface and panic, which
// chi's Recoverer turns into a 500.
type fakeStore struct {
	core.Store

	mu        sync.Mutex
	dirs      map[string]core.Directory
	startups  map[uuid.UUID]core.Startup
	audit     []core.AuditEntry
	teamSizes []core.TeamSize
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		dirs:     make(map[string]core.Directory),
		startups: make(map[uuid.UUID]core.Startup),
	}
}

func (f *fakeStore) GetDirectoryBySlug(_ context.Context, slug string) (core.Directory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.dirs[slug]
	if !ok {
		return core.Directory{}, core.ErrRecordNotFound
	}
	return d, nil
}

func (f *fakeStore) DirectoryOwner(ctx context.Context, slug string) (string, error) {
	d, err := f.GetDirectoryBySlug(ctx, slug)
	return d.UserID, err
}

func (f *fakeStore) DirectorySlugExists(_ context.Context, slug string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.dirs[slug]
	return ok, nil
}

func (f *fakeStore) InsertDirectory(_ context.Context, nd core.NewDirectory) (core.Directory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.dirs[nd.Slug]; ok {
		return core.Directory{}, core.ErrDuplicateSlug
	}
	d := core.Directory{
		ID:          uuid.New(),
		Name:        nd.Name,
		Description: nd.Description,
		Tags:        nd.Tags,
		Slug:        nd.Slug,
		UserID:      nd.UserID,
		CreatedAt:   time.Now(),
	}
	f.dirs[d.Slug] = d
	return d, nil
}

func (f *fakeStore) InsertStartup(_ context.Context, ns core.NewStartup) (core.Startup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := core.Startup{
		ID:               uuid.New(),
		Name:             ns.Name,
		ShortDescription: ns.ShortDescription,
		WebsiteURL:       ns.WebsiteURL,
		Slug:             ns.Slug,
		Tags:             ns.Tags,
		DirectoryID:      ns.DirectoryID,
		Visible:          ns.Visible,
		CreatedAt:        time.Now(),
	}
	for slug, d := range f.dirs {
		if d.ID == ns.DirectoryID {
			st.DirectorySlug = slug
		}
	}
	f.startups[st.ID] = st
	return st, nil
}

func (f *fakeStore) GetStartup(_ context.Context, id uuid.UUID) (core.Startup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.startups[id]
	if !ok {
		return core.Startup{}, core.ErrRecordNotFound
	}
	return st, nil
}

func (f *fakeStore) ToggleStartupVisibility(_ context.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.startups[id]
	if !ok {
		return false, core.ErrRecordNotFound
	}
	st.Visible = !st.Visible
	f.startups[id] = st
	return st.Visible, nil
}

func (f *fakeStore) SetStartupVisibility(_ context.Context, id uuid.UUID, visible bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.startups[id]
	if !ok {
		return core.ErrRecordNotFound
	}
	st.Visible = visible
	f.startups[id] = st
	return nil
}

func (f *fakeStore) ListTeamSizes(context.Context) ([]core.TeamSize, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.teamSizes, nil
}

func (f *fakeStore) ListTables(context.Context) ([]string, error) {
	return []string{"audit_log", "directories", "startups"}, nil
}

func (f *fakeStore) InsertAuditEntry(_ context.Context, e core.AuditEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audit = append(f.audit, e)
	return nil
}

func (f *fakeStore) auditEntries() []core.AuditEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]core.AuditEntry(nil), f.audit...)
}

func (f *fakeStore) startup(id uuid.UUID) core.Startup {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.startups[id]
}
