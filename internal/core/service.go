package core

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/d21hq/d21/internal/geocode"
)

// ImageRehoster moves a remote image onto a stable host and returns the new URL.
type ImageRehoster interface {
	Rehost(ctx context.Context, rawURL string) (string, error)
}

// Geocoder resolves free-text locations to coordinates.
type Geocoder interface {
	Search(ctx context.Context, query string, limit int) ([]geocode.Place, error)
}

// Cache stores JSON-encodable reference data. A miss is (false, nil).
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, keys ...string) error
}

// Service provides the directory and startup actions. Every exported action
// returns either its result or an *ActionError; nothing panics past it.
type Service struct {
	store    Store
	images   ImageRehoster
	geocoder Geocoder
	cache    Cache
	hub      *SubmissionHub
	now      func() time.Time
}

// Option configures optional Service collaborators.
type Option func(*Service)

// WithImageRehoster sets the helper used for directory images and startup logos.
func WithImageRehoster(r ImageRehoster) Option {
	return func(s *Service) { s.images = r }
}

// WithGeocoder enables location search.
func WithGeocoder(g Geocoder) Option {
	return func(s *Service) { s.geocoder = g }
}

// WithCache caches reference lists.
func WithCache(c Cache) Option {
	return func(s *Service) { s.cache = c }
}

// WithSubmissionHub shares a hub with the transport layer.
func WithSubmissionHub(h *SubmissionHub) Option {
	return func(s *Service) { s.hub = h }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new Service instance.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		images: passthroughImages{},
		cache:  nopCache{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.hub == nil {
		s.hub = NewSubmissionHub()
	}
	return s
}

// Submissions returns the hub new startup submissions are published to.
func (s *Service) Submissions() *SubmissionHub {
	return s.hub
}

// CheckDirectoryAccess reports whether userID owns the directory with slug.
// A missing directory and a foreign one both yield false; the error carries
// store failures only.
func (s *Service) CheckDirectoryAccess(ctx context.Context, slug, userID string) (bool, error) {
	if slug == "" || userID == "" {
		return false, nil
	}

	owner, err := s.store.DirectoryOwner(ctx, slug)
	if errors.Is(err, ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return owner == userID, nil
}

// requireAccess runs the guard and converts a denial into Forbidden.
func (s *Service) requireAccess(ctx context.Context, slug, userID string) error {
	ok, err := s.CheckDirectoryAccess(ctx, slug, userID)
	if err != nil {
		return internal("check directory access", err)
	}
	if !ok {
		return forbidden()
	}
	return nil
}

// loadDirectory resolves a directory by slug, mapping a miss to NotFound.
func (s *Service) loadDirectory(ctx context.Context, slug string) (Directory, error) {
	dir, err := s.store.GetDirectoryBySlug(ctx, slug)
	if errors.Is(err, ErrRecordNotFound) {
		return Directory{}, notFound(MsgDirectoryNotFound)
	}
	if err != nil {
		return Directory{}, internal("load directory", err)
	}
	return dir, nil
}

// rehostImage passes non-empty URLs through the image helper.
func (s *Service) rehostImage(ctx context.Context, raw string) (string, error) {
	if raw == "" {
		return "", nil
	}
	hosted, err := s.images.Rehost(ctx, raw)
	if err != nil {
		return "", external(MsgImageUploadFailed, err)
	}
	return hosted, nil
}

// RehostImage moves rawURL onto the image host for a signed-in user. It
// backs the client-side upload widget; anonymous callers are refused so the
// helper cannot be used as an open relay.
func (s *Service) RehostImage(ctx context.Context, userID, rawURL string) (string, error) {
	if userID == "" {
		return "", unauthenticated()
	}
	rawURL = strings.TrimSpace(rawURL)
	if err := validate.Var(rawURL, "required,http_url"); err != nil {
		return "", &ActionError{Kind: KindValidation, Message: MsgInvalidURL, Err: err}
	}
	return s.rehostImage(ctx, rawURL)
}

// SubscribeSubmissions opens a submission feed for the directory owner. The
// caller must invoke cancel when done.
func (s *Service) SubscribeSubmissions(ctx context.Context, userID, slug string) (<-chan SubmissionEvent, func(), error) {
	if userID == "" {
		return nil, nil, unauthenticated()
	}
	if err := s.requireAccess(ctx, slug, userID); err != nil {
		return nil, nil, err
	}
	ch, cancel := s.hub.Subscribe(slug)
	return ch, cancel, nil
}

// passthroughImages keeps URLs as submitted when no rehoster is configured.
type passthroughImages struct{}

func (passthroughImages) Rehost(_ context.Context, rawURL string) (string, error) {
	return rawURL, nil
}

type nopCache struct{}

func (nopCache) Get(context.Context, string, any) (bool, error) { return false, nil }
func (nopCache) Set(context.Context, string, any) error         { return nil }
func (nopCache) Delete(context.Context, ...string) error        { return nil }
