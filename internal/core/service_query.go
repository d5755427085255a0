package core

// service_query.go provides the read actions behind public listings and
// the owner's admin views.

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/d21hq/d21/internal/geocode"
)

// Geocoding limits.
const (
	DefaultGeocodeLimit = 5
	MaxGeocodeLimit     = 10
)

// Cache keys for the reference lists.
const (
	CacheKeyTeamSizes     = "reference:team_sizes"
	CacheKeyFundingStages = "reference:funding_stages"
)

var startupSorts = map[SortOrder]bool{
	SortNameAsc:       true,
	SortNameDesc:      true,
	SortCreatedAtAsc:  true,
	SortCreatedAtDesc: true,
	SortFoundedAtAsc:  true,
	SortFoundedAtDesc: true,
}

// ParseStartupQuery reads listing parameters from a query string.
func ParseStartupQuery(v url.Values) StartupQuery {
	return StartupQuery{
		Name:            strings.TrimSpace(v.Get("name")),
		Tags:            ParseTags(v.Get("tags")),
		FundingStageIDs: ParseUUIDList(v.Get("fundingStages")),
		TeamSizeIDs:     ParseUUIDList(v.Get("teamSizes")),
		Page:            ParsePage(v.Get("page")),
		Sort:            SortOrder(strings.TrimSpace(v.Get("sort"))),
		Status:          StatusFilter(strings.ToLower(strings.TrimSpace(v.Get("status")))),
	}
}

// ParseDirectoryQuery reads directory listing parameters from a query string.
func ParseDirectoryQuery(v url.Values) DirectoryQuery {
	return DirectoryQuery{
		Name: strings.TrimSpace(v.Get("name")),
		Tags: ParseTags(v.Get("tags")),
		Page: ParsePage(v.Get("page")),
		Sort: SortOrder(strings.TrimSpace(v.Get("sort"))),
	}
}

// NormalizeStartupSort returns sort if it is a startup sort, else createdAtDesc.
func NormalizeStartupSort(sort SortOrder) SortOrder {
	if startupSorts[sort] {
		return sort
	}
	return SortCreatedAtDesc
}

// NormalizeDirectorySort accepts the startup sorts plus featured order.
// Directories have no founding date, so founded sorts use creation time.
func NormalizeDirectorySort(sort SortOrder) SortOrder {
	switch sort {
	case SortFeaturedOrderAsc, SortFeaturedOrderDesc:
		return sort
	case SortFoundedAtAsc:
		return SortCreatedAtAsc
	case SortFoundedAtDesc:
		return SortCreatedAtDesc
	}
	return NormalizeStartupSort(sort)
}

func pageOffset(page int) (int, int) {
	page = max(1, min(page, MaxPage))
	return page, (page - 1) * PageSize
}

// GetVisibleStartups lists a directory's approved startups.
func (s *Service) GetVisibleStartups(ctx context.Context, directorySlug string, q StartupQuery) (Page[Startup], error) {
	dir, err := s.loadDirectory(ctx, directorySlug)
	if err != nil {
		return Page[Startup]{}, err
	}
	visible := true
	return s.listStartups(ctx, dir, q, &visible)
}

// GetSubmittedStartups lists every startup of a directory, pending ones
// included, for its owner. q.Status narrows to pending or visible rows.
func (s *Service) GetSubmittedStartups(ctx context.Context, userID, directorySlug string, q StartupQuery) (Page[Startup], error) {
	if userID == "" {
		return Page[Startup]{}, unauthenticated()
	}
	dir, err := s.loadDirectory(ctx, directorySlug)
	if err != nil {
		return Page[Startup]{}, err
	}
	if err := s.requireAccess(ctx, dir.Slug, userID); err != nil {
		return Page[Startup]{}, err
	}

	var visible *bool
	switch q.Status {
	case StatusPending:
		v := false
		visible = &v
	case StatusVisible:
		v := true
		visible = &v
	}
	return s.listStartups(ctx, dir, q, visible)
}

func (s *Service) listStartups(ctx context.Context, dir Directory, q StartupQuery, visible *bool) (Page[Startup], error) {
	page, offset := pageOffset(q.Page)
	items, count, err := s.store.ListStartups(ctx, StartupFilter{
		DirectoryID:     dir.ID,
		Name:            q.Name,
		Tags:            q.Tags,
		FundingStageIDs: q.FundingStageIDs,
		TeamSizeIDs:     q.TeamSizeIDs,
		Visible:         visible,
		Sort:            NormalizeStartupSort(q.Sort),
		Limit:           PageSize,
		Offset:          offset,
	})
	if err != nil {
		return Page[Startup]{}, internal("list startups", err)
	}
	for i := range items {
		items[i].DirectorySlug = dir.Slug
	}
	if items == nil {
		items = []Startup{}
	}
	return Page[Startup]{Items: items, Count: count, Page: page, PageSize: PageSize}, nil
}

// GetStartupBySlug returns one visible startup of a directory.
// Hidden startups are reported as missing.
func (s *Service) GetStartupBySlug(ctx context.Context, directorySlug, startupSlug string) (Startup, error) {
	dir, err := s.loadDirectory(ctx, directorySlug)
	if err != nil {
		return Startup{}, err
	}

	st, err := s.store.GetStartupBySlug(ctx, dir.ID, startupSlug)
	if errors.Is(err, ErrRecordNotFound) || (err == nil && !st.Visible) {
		return Startup{}, notFound(MsgStartupNotFound)
	}
	if err != nil {
		return Startup{}, internal("load startup", err)
	}
	st.DirectorySlug = dir.Slug
	return st, nil
}

// GetStartupLocations returns map pins for visible startups with coordinates.
func (s *Service) GetStartupLocations(ctx context.Context, directorySlug string) ([]StartupLocation, error) {
	dir, err := s.loadDirectory(ctx, directorySlug)
	if err != nil {
		return nil, err
	}
	locs, err := s.store.ListStartupLocations(ctx, dir.ID)
	if err != nil {
		return nil, internal("list locations", err)
	}
	if locs == nil {
		locs = []StartupLocation{}
	}
	return locs, nil
}

// GetDirectoryTags returns the distinct tags used by visible startups.
func (s *Service) GetDirectoryTags(ctx context.Context, directorySlug string) ([]string, error) {
	dir, err := s.loadDirectory(ctx, directorySlug)
	if err != nil {
		return nil, err
	}
	tags, err := s.store.ListStartupTags(ctx, dir.ID)
	if err != nil {
		return nil, internal("list tags", err)
	}
	if tags == nil {
		tags = []string{}
	}
	return tags, nil
}

// GetDirectories lists directories matching q.
func (s *Service) GetDirectories(ctx context.Context, q DirectoryQuery) (Page[Directory], error) {
	page, offset := pageOffset(q.Page)
	items, count, err := s.store.ListDirectories(ctx, DirectoryFilter{
		Name:   q.Name,
		Tags:   q.Tags,
		Sort:   NormalizeDirectorySort(q.Sort),
		Limit:  PageSize,
		Offset: offset,
	})
	if err != nil {
		return Page[Directory]{}, internal("list directories", err)
	}
	if items == nil {
		items = []Directory{}
	}
	return Page[Directory]{Items: items, Count: count, Page: page, PageSize: PageSize}, nil
}

// GetFeaturedDirectories returns featured directories in featured order.
func (s *Service) GetFeaturedDirectories(ctx context.Context) ([]Directory, error) {
	items, _, err := s.store.ListDirectories(ctx, DirectoryFilter{
		FeaturedOnly: true,
		Sort:         SortFeaturedOrderAsc,
		Limit:        PageSize,
	})
	if err != nil {
		return nil, internal("list featured directories", err)
	}
	if items == nil {
		items = []Directory{}
	}
	return items, nil
}

// GetUserDirectories returns the directories owned by userID.
func (s *Service) GetUserDirectories(ctx context.Context, userID string) ([]Directory, error) {
	if userID == "" {
		return nil, unauthenticated()
	}
	items, err := s.store.ListUserDirectories(ctx, userID)
	if err != nil {
		return nil, internal("list user directories", err)
	}
	if items == nil {
		items = []Directory{}
	}
	return items, nil
}

// GetDirectoryBySlug returns a single directory.
func (s *Service) GetDirectoryBySlug(ctx context.Context, slug string) (Directory, error) {
	return s.loadDirectory(ctx, slug)
}

// GetTeamSizes returns the team size buckets ordered by minimum size.
func (s *Service) GetTeamSizes(ctx context.Context) ([]TeamSize, error) {
	return cachedList(ctx, s, CacheKeyTeamSizes, s.store.ListTeamSizes)
}

// GetFundingStages returns the funding stages in display order.
func (s *Service) GetFundingStages(ctx context.Context) ([]FundingStage, error) {
	return cachedList(ctx, s, CacheKeyFundingStages, s.store.ListFundingStages)
}

// InvalidateReferenceData drops the cached reference lists so the next read
// reloads them, used after reseeding.
func (s *Service) InvalidateReferenceData(ctx context.Context) error {
	if err := s.cache.Delete(ctx, CacheKeyTeamSizes, CacheKeyFundingStages); err != nil {
		return internal("invalidate reference cache", err)
	}
	return nil
}

// cachedList serves a reference list from the cache, filling it on a miss.
// Cache failures are logged by the cache and fall through to the store.
func cachedList[T any](ctx context.Context, s *Service, key string, load func(context.Context) ([]T, error)) ([]T, error) {
	var items []T
	if hit, err := s.cache.Get(ctx, key, &items); err == nil && hit {
		return items, nil
	}

	items, err := load(ctx)
	if err != nil {
		return nil, internal("load "+key, err)
	}
	if items == nil {
		items = []T{}
	}
	_ = s.cache.Set(ctx, key, items)
	return items, nil
}

// ListTables returns the public table names, a diagnostic for signed-in users.
func (s *Service) ListTables(ctx context.Context, userID string) ([]string, error) {
	if userID == "" {
		return nil, unauthenticated()
	}
	tables, err := s.store.ListTables(ctx)
	if err != nil {
		return nil, internal("list tables", err)
	}
	return tables, nil
}

// SearchLocations geocodes a free-text query. An empty query returns no
// places without calling the geocoder; limit is clamped to 1..10.
func (s *Service) SearchLocations(ctx context.Context, query string, limit int) ([]geocode.Place, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []geocode.Place{}, nil
	}
	if s.geocoder == nil {
		return nil, external(MsgLocationSearchFailed, errors.New("geocoder not configured"))
	}

	places, err := s.geocoder.Search(ctx, query, ClampGeocodeLimit(limit))
	if err != nil {
		return nil, external(MsgLocationSearchFailed, err)
	}
	return places, nil
}

// ClampGeocodeLimit applies the default for 0 and bounds the rest to 1..10.
func ClampGeocodeLimit(limit int) int {
	switch {
	case limit == 0:
		return DefaultGeocodeLimit
	case limit < 1:
		return 1
	case limit > MaxGeocodeLimit:
		return MaxGeocodeLimit
	}
	return limit
}
