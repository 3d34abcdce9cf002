// Package ics downloads iCalendar feeds, parses their VEVENTs and expands
// recurrences into concrete events.
package ics

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	appLog "notedesk/internal/log"
)

// ErrEmptyURL is returned for feeds without a URL.
var ErrEmptyURL = errors.New("feed URL is empty")

const defaultFetchTimeout = 15 * time.Second

// Feed identifies one subscribed calendar.
type Feed struct {
	CalendarID string
	URL        string
}

// Payload is the body of a fetched feed.
type Payload struct {
	Feed Feed
	Body []byte
	// Cached is true when the body came from disk (304 or fallback).
	Cached bool
}

type cacheMeta struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	StoredAt     time.Time `json:"stored_at"`
}

// Fetcher downloads feeds with conditional requests and keeps the last
// good body per calendar under cacheDir.
type Fetcher struct {
	client   *http.Client
	cacheDir string
}

// NewFetcher returns a Fetcher. An empty cacheDir disables the disk cache.
func NewFetcher(cacheDir string, timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	return &Fetcher{
		client:   &http.Client{Timeout: timeout},
		cacheDir: cacheDir,
	}
}

// Fetch downloads feed. When the server answers 304, fails, or is
// unreachable, the cached body is returned if one exists.
func (f *Fetcher) Fetch(ctx context.Context, feed Feed) (Payload, error) {
	if feed.URL == "" {
		return Payload{}, ErrEmptyURL
	}

	dir := f.entryDir(feed)
	var meta cacheMeta
	var cached []byte
	if dir != "" {
		meta, _ = readMeta(dir)
		cached, _ = os.ReadFile(filepath.Join(dir, "body.ics"))
		if meta.URL != feed.URL {
			meta = cacheMeta{}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.URL, nil)
	if err != nil {
		return Payload{}, fmt.Errorf("build request: %w", err)
	}
	if len(cached) > 0 {
		if meta.ETag != "" {
			req.Header.Set("If-None-Match", meta.ETag)
		}
		if meta.LastModified != "" {
			req.Header.Set("If-Modified-Since", meta.LastModified)
		}
	}

	appLog.Debug("ics fetch", "calendar", feed.CalendarID, "url", RedactURL(feed.URL))

	resp, err := f.client.Do(req)
	if err != nil {
		if len(cached) > 0 {
			appLog.Error("ics fetch failed, serving cache", err, "calendar", feed.CalendarID)
			return Payload{Feed: feed, Body: cached, Cached: true}, nil
		}
		return Payload{}, fmt.Errorf("fetch %s: %w", RedactURL(feed.URL), err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified && len(cached) > 0:
		appLog.Debug("ics not modified", "calendar", feed.CalendarID)
		return Payload{Feed: feed, Body: cached, Cached: true}, nil

	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return Payload{}, fmt.Errorf("read body: %w", err)
		}
		if dir != "" {
			m := cacheMeta{
				URL:          feed.URL,
				ETag:         resp.Header.Get("ETag"),
				LastModified: resp.Header.Get("Last-Modified"),
				StoredAt:     time.Now().UTC(),
			}
			if err := writeCache(dir, m, body); err != nil {
				appLog.Error("ics cache write failed", err, "calendar", feed.CalendarID)
			}
		}
		appLog.Info("ics fetched", "calendar", feed.CalendarID, "bytes", len(body))
		return Payload{Feed: feed, Body: body}, nil

	default:
		statusErr := fmt.Errorf("fetch %s: unexpected status %s", RedactURL(feed.URL), resp.Status)
		if len(cached) > 0 {
			appLog.Error("ics fetch failed, serving cache", statusErr, "calendar", feed.CalendarID)
			return Payload{Feed: feed, Body: cached, Cached: true}, nil
		}
		return Payload{}, statusErr
	}
}

// Forget drops the cache entry of a calendar.
func (f *Fetcher) Forget(calendarID string) error {
	if f.cacheDir == "" || calendarID == "" {
		return nil
	}
	return os.RemoveAll(filepath.Join(f.cacheDir, safeName(calendarID)))
}

func (f *Fetcher) entryDir(feed Feed) string {
	if f.cacheDir == "" {
		return ""
	}
	key := feed.CalendarID
	if key == "" {
		key = feed.URL
	}
	return filepath.Join(f.cacheDir, safeName(key))
}

func safeName(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:8])
}

func readMeta(dir string) (cacheMeta, error) {
	var m cacheMeta
	data, err := os.ReadFile(filepath.Join(dir, "meta.json"))
	if err != nil {
		return m, err
	}
	err = json.Unmarshal(data, &m)
	return m, err
}

// writeCache stores the body before the metadata so meta never refers to a
// missing body.
func writeCache(dir string, m cacheMeta, body []byte) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "body.ics"), body, 0o600); err != nil {
		return err
	}
	data, err := json.MarshalIndent(&m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "meta.json"), data, 0o600)
}

// RedactURL keeps scheme and host only; feed URLs often embed secrets.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "ics://...(redacted)"
	}
	return u.Scheme + "://" + u.Host + "/...(redacted)"
}
