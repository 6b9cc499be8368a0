// Package catalog implements the read-only client for the public anime
// catalog API (Jikan v4). It is unauthenticated and never touches session
// state; consumers pair its results with the session service's snapshot to
// decide favorite/watchlist affordances.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/mozillazg/go-unidecode"

	"aniview/models"
)

const (
	// DefaultBaseURL points at the public Jikan v4 API.
	DefaultBaseURL = "https://api.jikan.moe/v4"

	pageSize       = 25
	requestTimeout = 10 * time.Second
	retryAttempts  = 3
	retryBaseDelay = 500 * time.Millisecond
)

// ErrNotFound indicates the catalog has no entry for the requested id.
var ErrNotFound = errors.New("anime not found")

// Client fetches anime metadata from the catalog API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a catalog client; an empty baseURL selects the public
// API.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

type listResponse struct {
	Data       []models.Anime    `json:"data"`
	Pagination models.Pagination `json:"pagination"`
}

type singleResponse struct {
	Data models.Anime `json:"data"`
}

// Top returns a page of the most popular anime.
func (c *Client) Top(ctx context.Context, page int) ([]models.Anime, *models.Pagination, error) {
	path := fmt.Sprintf("/top/anime?page=%d&limit=%d", normalizePage(page), pageSize)

	var resp listResponse
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, nil, err
	}
	return resp.Data, &resp.Pagination, nil
}

// Search returns anime whose titles match the query.
func (c *Client) Search(ctx context.Context, query string, page int) ([]models.Anime, *models.Pagination, error) {
	path := fmt.Sprintf("/anime?q=%s&page=%d&limit=%d",
		url.QueryEscape(NormalizeQuery(query)), normalizePage(page), pageSize)

	var resp listResponse
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, nil, err
	}
	return resp.Data, &resp.Pagination, nil
}

// ByID looks up a single anime by its catalog id.
func (c *Client) ByID(ctx context.Context, id string) (*models.Anime, error) {
	var resp singleResponse
	if err := c.get(ctx, "/anime/"+url.PathEscape(id), &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// NormalizeQuery folds accented titles to ASCII so searches typed with or
// without diacritics hit the same results.
func NormalizeQuery(query string) string {
	return unidecode.Unidecode(strings.TrimSpace(query))
}

// get performs one catalog request, retrying rate-limit and server errors
// with backoff. The public API throttles aggressively, so 429s are routine.
func (c *Client) get(ctx context.Context, path string, out any) error {
	return retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("create request: %w", err))
			}

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return fmt.Errorf("catalog request: %w", err)
			}
			defer resp.Body.Close()

			switch {
			case resp.StatusCode == http.StatusOK:
				if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
					return retry.Unrecoverable(fmt.Errorf("decode response: %w", err))
				}
				return nil
			case resp.StatusCode == http.StatusNotFound:
				return retry.Unrecoverable(ErrNotFound)
			case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
				return fmt.Errorf("catalog api: %s", resp.Status)
			default:
				return retry.Unrecoverable(fmt.Errorf("catalog api: %s", resp.Status))
			}
		},
		retry.Attempts(retryAttempts),
		retry.Delay(retryBaseDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
}

func normalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}
