package imagehost

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"mime/multipart"
	"net/http"
	"regexp"
	"strconv"
	"time"
)

// DefaultUploadURL is the postimages JSON upload endpoint.
const DefaultUploadURL = "https://postimages.org/json/rr"

// browserUserAgent is sent because the endpoint rejects non-browser clients.
const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// pagePattern matches a postimages viewer page; the capture groups rebuild
// the direct image URL.
var pagePattern = regexp.MustCompile(`^https?://postimg\.cc/([^/?#]+)/([^/?#]+)$`)

var (
	errNoImageURL   = errors.New("response carried no image url")
	errUploadStatus = errors.New("upload rejected")
)

// postimagesResponse is the JSON answer of the upload endpoint.
type postimagesResponse struct {
	StatusCode int    `json:"status_code"`
	URL        string `json:"url"`
	Image      string `json:"image"`
	Error      string `json:"error"`
}

// PostImages uploads by URL to postimages.org.
type PostImages struct {
	uploadURL string
	client    *http.Client
	now       func() time.Time
}

// NewPostImages creates the backend. No retries are made; timeout bounds
// each upload.
func NewPostImages(uploadURL string, timeout time.Duration) *PostImages {
	if uploadURL == "" {
		uploadURL = DefaultUploadURL
	}
	return &PostImages{
		uploadURL: uploadURL,
		client:    &http.Client{Timeout: timeout},
		now:       time.Now,
	}
}

// Upload asks postimages to fetch rawURL and returns the direct image URL.
func (p *PostImages) Upload(ctx context.Context, rawURL string) (string, error) {
	body, contentType, err := p.buildForm(rawURL)
	if err != nil {
		return "", &RehostError{Stage: "encode", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.uploadURL, body)
	if err != nil {
		return "", &RehostError{Stage: "request", Err: err}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", &RehostError{Stage: "request", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &RehostError{Stage: "response", StatusCode: resp.StatusCode, Err: errUploadStatus}
	}

	var out postimagesResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return "", &RehostError{Stage: "decode", Err: err}
	}
	if out.StatusCode != http.StatusOK {
		err := errUploadStatus
		if out.Error != "" {
			err = fmt.Errorf("%w: %s", errUploadStatus, out.Error)
		}
		return "", &RehostError{Stage: "response", StatusCode: out.StatusCode, Err: err}
	}

	hosted := out.URL
	if hosted == "" {
		hosted = out.Image
	}
	if hosted == "" {
		return "", &RehostError{Stage: "response", Err: errNoImageURL}
	}
	return DirectURL(ctx, hosted), nil
}

func (p *PostImages) buildForm(rawURL string) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := [][2]string{
		{"upload_session", p.uploadSession()},
		{"url", rawURL},
		{"numfiles", "1"},
		{"optsize", "0"},
		{"expire", "0"},
		{"gallery", ""},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// uploadSession is the current unix millis followed by a random fraction.
func (p *PostImages) uploadSession() string {
	frac := strconv.FormatFloat(rand.Float64(), 'f', -1, 64)
	if len(frac) > 1 {
		frac = frac[1:]
	} else {
		frac = ""
	}
	return strconv.FormatInt(p.now().UnixMilli(), 10) + frac
}

// DirectURL rewrites a postimages viewer page URL to its direct image URL.
// URLs that do not match the viewer pattern are returned unchanged; a warning
// is logged unless the URL is already on the direct image host.
func DirectURL(ctx context.Context, hosted string) string {
	if m := pagePattern.FindStringSubmatch(hosted); m != nil {
		return "https://i.postimg.cc/" + m[1] + "/" + m[2]
	}
	if !directHostPattern.MatchString(hosted) {
		slog.WarnContext(ctx, "postimages url not in viewer format, using as returned", "url", hosted)
	}
	return hosted
}

var directHostPattern = regexp.MustCompile(`^https?://i\.postimg\.cc/`)
