// Package imagehost moves user-supplied image URLs onto a stable host.
//
// URLs already on a trusted image host are returned unchanged without any
// network call. Anything else is handed to a Backend: the postimages backend
// asks postimages.org to fetch the image by URL, the mirror backend downloads
// it and stores it in an S3-compatible bucket.
package imagehost

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// DefaultHosts are treated as already hosted. Subdomains match too.
var DefaultHosts = []string{
	"i.imgur.com",
	"imgur.com",
	"i.postimg.cc",
	"postimg.cc",
	"images.unsplash.com",
	"res.cloudinary.com",
}

// Backend uploads the image at rawURL and returns its hosted URL.
type Backend interface {
	Upload(ctx context.Context, rawURL string) (string, error)
}

// Outcome labels reported to an Observer.
const (
	OutcomeSkipped  = "skipped"
	OutcomeUploaded = "uploaded"
	OutcomeFailed   = "failed"
)

// Observer receives one outcome per non-empty Rehost call.
type Observer func(outcome string)

// RehostError reports a failed upload. Stage names the step that failed.
type RehostError struct {
	Stage      string
	StatusCode int
	Err        error
}

func (e *RehostError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("image rehost %s: status %d: %v", e.Stage, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("image rehost %s: %v", e.Stage, e.Err)
}

func (e *RehostError) Unwrap() error {
	return e.Err
}

// Helper decides whether an image needs uploading and runs the backend.
type Helper struct {
	backend  Backend
	hosts    []string
	limiter  *Limiter
	observer Observer
}

// Option configures a Helper.
type Option func(*Helper)

// WithExtraHosts adds hosts, such as the mirror bucket's public host, to the
// already-hosted list.
func WithExtraHosts(hosts ...string) Option {
	return func(h *Helper) {
		for _, host := range hosts {
			host = strings.ToLower(strings.TrimSpace(host))
			if host != "" {
				h.hosts = append(h.hosts, host)
			}
		}
	}
}

// WithLimiter bounds concurrent uploads.
func WithLimiter(l *Limiter) Option {
	return func(h *Helper) { h.limiter = l }
}

// WithObserver reports outcomes, typically to a metrics counter.
func WithObserver(o Observer) Option {
	return func(h *Helper) { h.observer = o }
}

// New creates a Helper over backend.
func New(backend Backend, opts ...Option) *Helper {
	h := &Helper{
		backend: backend,
		hosts:   append([]string(nil), DefaultHosts...),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// AlreadyHosted reports whether rawURL's host is on the trusted list.
func (h *Helper) AlreadyHosted(rawURL string) bool {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, allowed := range h.hosts {
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return true
		}
	}
	return false
}

// Rehost returns a hosted URL for rawURL. Empty input yields empty output and
// already-hosted URLs are returned as is; neither makes a network call.
// Failures are *RehostError values.
func (h *Helper) Rehost(ctx context.Context, rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", nil
	}
	if h.AlreadyHosted(rawURL) {
		h.observe(OutcomeSkipped)
		return rawURL, nil
	}

	if h.limiter != nil {
		if err := h.limiter.Acquire(ctx); err != nil {
			h.observe(OutcomeFailed)
			return "", &RehostError{Stage: "acquire", Err: err}
		}
		defer h.limiter.Release()
	}

	hosted, err := h.backend.Upload(ctx, rawURL)
	if err != nil {
		h.observe(OutcomeFailed)
		var re *RehostError
		if errors.As(err, &re) {
			return "", err
		}
		return "", &RehostError{Stage: "upload", Err: err}
	}
	h.observe(OutcomeUploaded)
	return hosted, nil
}

func (h *Helper) observe(outcome string) {
	if h.observer != nil {
		h.observer(outcome)
	}
}
