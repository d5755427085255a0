package imagehost

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// DefaultMaxBytes caps a mirrored image.
const DefaultMaxBytes = 5 << 20

var (
	errNotImage = errors.New("remote content is not an image")
	errTooLarge = errors.New("image exceeds size limit")
)

// ObjectStore is the subset of *minio.Client the mirror uses.
type ObjectStore interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucket, object string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// MirrorConfig configures the mirror backend.
type MirrorConfig struct {
	Endpoint   string
	AccessKey  string
	SecretKey  string
	UseSSL     bool
	Bucket     string
	PublicBase string
	Timeout    time.Duration
	MaxBytes   int64

	// AllowedNetworks are CIDRs or IPs exempt from the public-address check,
	// e.g. an image server on the local network.
	AllowedNetworks []string
}

// Mirror downloads images and stores them in an S3-compatible bucket.
type Mirror struct {
	store      ObjectStore
	bucket     string
	publicBase string
	guard      *addressGuard
	client     *http.Client
	maxBytes   int64
}

// NewMinioClient connects to the S3-compatible endpoint in cfg.
func NewMinioClient(cfg MirrorConfig) (*minio.Client, error) {
	endpoint := cfg.Endpoint
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		endpoint = u.Host
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return client, nil
}

// NewMirror creates the backend over store.
func NewMirror(store ObjectStore, cfg MirrorConfig) *Mirror {
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	guard := newAddressGuard(cfg.AllowedNetworks)
	return &Mirror{
		store:      store,
		bucket:     cfg.Bucket,
		publicBase: strings.TrimRight(cfg.PublicBase, "/"),
		guard:      guard,
		client:     guard.client(cfg.Timeout),
		maxBytes:   maxBytes,
	}
}

// EnsureBucket creates the bucket if it does not exist yet.
func (m *Mirror) EnsureBucket(ctx context.Context) error {
	exists, err := m.store.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", m.bucket, err)
	}
	if exists {
		return nil
	}
	if err := m.store.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", m.bucket, err)
	}
	slog.Info("image bucket created", "bucket", m.bucket)
	return nil
}

// PublicHost returns the host of the public base URL, for the already-hosted list.
func (m *Mirror) PublicHost() string {
	u, err := url.Parse(m.publicBase)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// Upload downloads rawURL and stores it under images/<uuid><ext>. Only
// public http(s) addresses are fetched, redirects included.
func (m *Mirror) Upload(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", &RehostError{Stage: "download", Err: err}
	}
	if err := m.guard.checkURL(u); err != nil {
		return "", &RehostError{Stage: "download", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", &RehostError{Stage: "download", Err: err}
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "image/*")

	resp, err := m.client.Do(req)
	if err != nil {
		return "", &RehostError{Stage: "download", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &RehostError{Stage: "download", StatusCode: resp.StatusCode, Err: errUploadStatus}
	}

	contentType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if !strings.HasPrefix(contentType, "image/") {
		return "", &RehostError{Stage: "download", Err: fmt.Errorf("%w: %q", errNotImage, contentType)}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, m.maxBytes+1))
	if err != nil {
		return "", &RehostError{Stage: "download", Err: err}
	}
	if int64(len(data)) > m.maxBytes {
		return "", &RehostError{Stage: "download", Err: errTooLarge}
	}

	key := "images/" + uuid.NewString() + extensionFor(contentType, rawURL)
	_, err = m.store.PutObject(ctx, m.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", &RehostError{Stage: "store", Err: err}
	}

	return m.publicBase + "/" + m.bucket + "/" + key, nil
}

// extensionFor picks a file extension from the content type, falling back
// to the source URL's extension.
func extensionFor(contentType, rawURL string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/svg+xml":
		return ".svg"
	}
	if u, err := url.Parse(rawURL); err == nil {
		if ext := path.Ext(u.Path); len(ext) > 1 && len(ext) <= 5 {
			return strings.ToLower(ext)
		}
	}
	return ""
}
