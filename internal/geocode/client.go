// Package geocode resolves free-text locations through a Nominatim-compatible
// search endpoint.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// maxResponseBytes caps the search response body.
const maxResponseBytes = 1 << 20

// Place is a single geocoding match.
type Place struct {
	PlaceID     int64   `json:"placeId"`
	DisplayName string  `json:"displayName"`
	Latitude    float64 `json:"lat"`
	Longitude   float64 `json:"lon"`
}

// nominatimPlace is the upstream shape; coordinates arrive as strings.
type nominatimPlace struct {
	PlaceID     int64  `json:"place_id"`
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
}

// Client queries the search endpoint.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
}

// NewClient creates a client for baseURL. Nominatim's usage policy requires
// an identifying userAgent.
func NewClient(baseURL, userAgent string, timeout time.Duration) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		http:      &http.Client{Timeout: timeout},
	}
}

// Search returns up to limit places matching query. An empty query returns
// no places without a request. Callers clamp limit.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Place, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []Place{}, nil
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocode search: HTTP %d", resp.StatusCode)
	}

	var raw []nominatimPlace
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode geocode response: %w", err)
	}

	places := make([]Place, 0, len(raw))
	for _, p := range raw {
		lat, errLat := strconv.ParseFloat(p.Lat, 64)
		lon, errLon := strconv.ParseFloat(p.Lon, 64)
		if errLat != nil || errLon != nil {
			continue
		}
		places = append(places, Place{
			PlaceID:     p.PlaceID,
			DisplayName: p.DisplayName,
			Latitude:    lat,
			Longitude:   lon,
		})
	}
	return places, nil
}
