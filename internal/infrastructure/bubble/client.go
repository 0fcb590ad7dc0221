// Package bubble is a thin client for the Bubble Data API: cursor-paged
// object fetches plus the file downloads the migration engine needs.
package bubble

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/solarops/backend/internal/infrastructure/config"
)

// maxResponseSize is the maximum allowed Data API response size (10MB)
const maxResponseSize = 10 * 1024 * 1024

// Classified client errors. Rate limits and upstream failures are
// retried, auth failures are not.
var (
	ErrUnauthorized    = errors.New("bubble: unauthorized")
	ErrRateLimited     = errors.New("bubble: rate limited")
	ErrUnavailable     = errors.New("bubble: upstream unavailable")
	ErrInvalidResponse = errors.New("bubble: invalid response")
	ErrFileTooLarge    = errors.New("bubble: file exceeds size limit")
)

// Page is one page of a cursor-paginated object listing.
type Page struct {
	Results   []Record
	Cursor    int
	Count     int
	Remaining int
}

// File is one downloaded remote file, fully buffered.
type File struct {
	Data        []byte
	ContentType string
}

type envelope struct {
	Response struct {
		Results   []Record `json:"results"`
		Cursor    int      `json:"cursor"`
		Count     int      `json:"count"`
		Remaining int      `json:"remaining"`
	} `json:"response"`
}

type constraint struct {
	Key            string `json:"key"`
	ConstraintType string `json:"constraint_type"`
	Value          string `json:"value"`
}

// Client talks to one Bubble application's Data API.
type Client struct {
	cfg        *config.BubbleConfig
	httpClient *http.Client
}

// NewClient creates a client for the configured Bubble application.
func NewClient(cfg *config.BubbleConfig) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// FetchPage fetches one page of the named object type starting at
// cursor. A non-nil since adds a "Modified Date greater than" constraint
// for incremental syncs. Callers loop until Page.Remaining is zero.
func (c *Client) FetchPage(ctx context.Context, objectType string, cursor int, since *time.Time) (*Page, error) {
	endpoint := strings.TrimSuffix(c.cfg.BaseURL, "/") + "/api/1.1/obj/" + url.PathEscape(objectType)

	query := url.Values{}
	query.Set("cursor", strconv.Itoa(cursor))
	query.Set("limit", strconv.Itoa(c.cfg.PageSize))
	if since != nil {
		constraints, err := json.Marshal([]constraint{{
			Key:            "Modified Date",
			ConstraintType: "greater than",
			Value:          since.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		}})
		if err != nil {
			return nil, fmt.Errorf("bubble: failed to encode constraints: %w", err)
		}
		query.Set("constraints", string(constraints))
	}

	body, err := c.get(ctx, endpoint+"?"+query.Encode(), true)
	if err != nil {
		return nil, err
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	return &Page{
		Results:   env.Response.Results,
		Cursor:    env.Response.Cursor,
		Count:     env.Response.Count,
		Remaining: env.Response.Remaining,
	}, nil
}

// Download fetches a remote file into memory. Protocol-relative URLs
// (//host/path, common in Bubble file fields) are resolved as https.
// Files larger than maxSize abort with ErrFileTooLarge.
func (c *Client) Download(ctx context.Context, rawURL string, maxSize int64) (*File, error) {
	if strings.HasPrefix(rawURL, "//") {
		rawURL = "https:" + rawURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("bubble: failed to create download request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("bubble: download failed with HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("bubble: failed to read file body: %w", err)
	}
	if int64(len(data)) > maxSize {
		return nil, fmt.Errorf("%w: > %d bytes", ErrFileTooLarge, maxSize)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	return &File{Data: data, ContentType: contentType}, nil
}

// get performs an authenticated GET with bounded retries on rate limits
// and upstream errors.
func (c *Client) get(ctx context.Context, fullURL string, retry bool) ([]byte, error) {
	attempts := 1
	if retry {
		attempts = c.cfg.MaxRetries + 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := c.cfg.RetryBaseDelay << (attempt - 1)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		body, err := c.doGet(ctx, fullURL)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !errors.Is(err, ErrRateLimited) && !errors.Is(err, ErrUnavailable) {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *Client) doGet(ctx context.Context, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("bubble: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("bubble: failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: HTTP %d", ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: HTTP %d", ErrRateLimited, resp.StatusCode)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: HTTP %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("%w: HTTP %d", ErrInvalidResponse, resp.StatusCode)
	}

	return body, nil
}
