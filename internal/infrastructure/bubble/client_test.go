package bubble

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/solarops/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(baseURL string) *config.BubbleConfig {
	return &config.BubbleConfig{
		BaseURL:        baseURL,
		APIToken:       "test-token",
		PageSize:       100,
		Timeout:        5 * time.Second,
		MaxRetries:     2,
		RetryBaseDelay: time.Millisecond,
	}
}

func pageBody(results []map[string]any, cursor, remaining int) []byte {
	body, _ := json.Marshal(map[string]any{
		"response": map[string]any{
			"results":   results,
			"cursor":    cursor,
			"count":     len(results),
			"remaining": remaining,
		},
	})
	return body
}

func TestClient_FetchPage(t *testing.T) {
	t.Run("fetches a page with auth and pagination params", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/1.1/obj/agent", r.URL.Path)
			assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
			assert.Equal(t, "100", r.URL.Query().Get("cursor"))
			assert.Equal(t, "100", r.URL.Query().Get("limit"))
			assert.Empty(t, r.URL.Query().Get("constraints"))

			w.Write(pageBody([]map[string]any{
				{"_id": "a1", "Name": "First"},
				{"_id": "a2", "Name": "Second"},
			}, 100, 37))
		}))
		defer server.Close()

		client := NewClient(testConfig(server.URL))
		page, err := client.FetchPage(context.Background(), "agent", 100, nil)

		require.NoError(t, err)
		assert.Equal(t, 37, page.Remaining)
		require.Len(t, page.Results, 2)
		assert.Equal(t, "a1", page.Results[0].ID())
		assert.Equal(t, "First", page.Results[0].String("Name"))
	})

	t.Run("encodes modified-date constraint for incremental fetches", func(t *testing.T) {
		since := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.URL.Query().Get("constraints")
			var constraints []map[string]string
			require.NoError(t, json.Unmarshal([]byte(raw), &constraints))
			require.Len(t, constraints, 1)
			assert.Equal(t, "Modified Date", constraints[0]["key"])
			assert.Equal(t, "greater than", constraints[0]["constraint_type"])
			assert.Equal(t, "2026-02-01T00:00:00.000Z", constraints[0]["value"])

			w.Write(pageBody(nil, 0, 0))
		}))
		defer server.Close()

		client := NewClient(testConfig(server.URL))
		_, err := client.FetchPage(context.Background(), "agent", 0, &since)
		require.NoError(t, err)
	})

	t.Run("retries rate limits then succeeds", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			w.Write(pageBody([]map[string]any{{"_id": "a1"}}, 0, 0))
		}))
		defer server.Close()

		client := NewClient(testConfig(server.URL))
		page, err := client.FetchPage(context.Background(), "agent", 0, nil)

		require.NoError(t, err)
		assert.Len(t, page.Results, 1)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("gives up after bounded retries on upstream errors", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		client := NewClient(testConfig(server.URL))
		_, err := client.FetchPage(context.Background(), "agent", 0, nil)

		require.ErrorIs(t, err, ErrUnavailable)
		// MaxRetries=2 means three attempts total
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("does not retry auth failures", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		client := NewClient(testConfig(server.URL))
		_, err := client.FetchPage(context.Background(), "agent", 0, nil)

		require.ErrorIs(t, err, ErrUnauthorized)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("classifies malformed bodies", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<html>not json</html>"))
		}))
		defer server.Close()

		client := NewClient(testConfig(server.URL))
		_, err := client.FetchPage(context.Background(), "agent", 0, nil)

		assert.ErrorIs(t, err, ErrInvalidResponse)
	})
}

func TestClient_Download(t *testing.T) {
	t.Run("downloads a file with content type", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/pdf")
			w.Write([]byte("%PDF-1.4 fake"))
		}))
		defer server.Close()

		client := NewClient(testConfig(server.URL))
		file, err := client.Download(context.Background(), server.URL+"/doc.pdf", 1<<20)

		require.NoError(t, err)
		assert.Equal(t, "application/pdf", file.ContentType)
		assert.Equal(t, []byte("%PDF-1.4 fake"), file.Data)
	})

	t.Run("rejects files over the size cap", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write(make([]byte, 2048))
		}))
		defer server.Close()

		client := NewClient(testConfig(server.URL))
		_, err := client.Download(context.Background(), server.URL+"/big.bin", 1024)

		assert.ErrorIs(t, err, ErrFileTooLarge)
	})

	t.Run("fails on HTTP errors", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		client := NewClient(testConfig(server.URL))
		_, err := client.Download(context.Background(), server.URL+"/missing.pdf", 1024)

		assert.Error(t, err)
	})
}

func TestRecord(t *testing.T) {
	raw := []byte(`{
		"_id": "rec-1",
		"Modified Date": "2026-01-15T08:30:00.000Z",
		"Created Date": "2025-12-01T10:00:00.000Z",
		"Name": "Ali bin Abu",
		"Total": 1234.56,
		"Paid": true,
		"Attachments": ["//host/a.pdf", "//host/b.pdf", 42]
	}`)

	var rec Record
	require.NoError(t, json.Unmarshal(raw, &rec))

	assert.Equal(t, "rec-1", rec.ID())
	assert.Equal(t, time.Date(2026, 1, 15, 8, 30, 0, 0, time.UTC), rec.Modified())
	assert.Equal(t, time.Date(2025, 12, 1, 10, 0, 0, 0, time.UTC), rec.Created())
	assert.Equal(t, "Ali bin Abu", rec.String("Name"))
	assert.Equal(t, 1234.56, rec.Float("Total"))
	assert.True(t, rec.Bool("Paid"))
	// Non-string list members are dropped
	assert.Equal(t, []string{"//host/a.pdf", "//host/b.pdf"}, rec.StringList("Attachments"))

	t.Run("missing fields return zero values", func(t *testing.T) {
		assert.Empty(t, rec.String("Nope"))
		assert.Zero(t, rec.Float("Nope"))
		assert.True(t, rec.Time("Nope").IsZero())
		assert.Nil(t, rec.TimePtr("Nope"))
		assert.Nil(t, rec.StringList("Nope"))
	})

	t.Run("accepts timestamps without milliseconds", func(t *testing.T) {
		r := Record{"When": "2026-01-15T08:30:00Z"}
		assert.Equal(t, time.Date(2026, 1, 15, 8, 30, 0, 0, time.UTC), r.Time("When"))
	})
}
