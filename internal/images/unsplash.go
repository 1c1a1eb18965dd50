package images

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Searcher finds a stock photo for a free-text query. An empty URL with a
// nil error means the search ran and matched nothing.
type Searcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// DefaultUnsplashEndpoint is the public Unsplash API.
const DefaultUnsplashEndpoint = "https://api.unsplash.com"

// Unsplash searches the Unsplash photo API.
type Unsplash struct {
	endpoint  string
	accessKey string
	timeout   time.Duration
	client    *http.Client
}

// NewUnsplash returns a Searcher; accessKey must be non-empty.
func NewUnsplash(endpoint, accessKey string, timeout time.Duration, client *http.Client) *Unsplash {
	if endpoint == "" {
		endpoint = DefaultUnsplashEndpoint
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Unsplash{
		endpoint:  strings.TrimRight(endpoint, "/"),
		accessKey: strings.TrimSpace(accessKey),
		timeout:   timeout,
		client:    client,
	}
}

type unsplashResponse struct {
	Results []struct {
		URLs struct {
			Regular string `json:"regular"`
		} `json:"urls"`
	} `json:"results"`
}

// Search asks for a single landscape photo and returns its regular size URL.
func (u *Unsplash) Search(ctx context.Context, query string) (string, error) {
	if u.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.timeout)
		defer cancel()
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("per_page", "1")
	params.Set("orientation", "landscape")
	params.Set("client_id", u.accessKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.endpoint+"/search/photos?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create search request: %w", stripURL(err))
	}
	req.Header.Set("Accept-Version", "v1")

	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to query Unsplash: %w", stripURL(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unsplash API returned status %d", resp.StatusCode)
	}

	var result unsplashResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode Unsplash response: %w", err)
	}

	if len(result.Results) == 0 {
		return "", nil
	}
	return result.Results[0].URLs.Regular, nil
}

// stripURL keeps the client_id query parameter out of logged errors.
func stripURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}
