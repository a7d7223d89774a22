// Package fetch downloads remote documents (spreadsheet payloads, holiday
// calendars) with HTTP conditional requests and a disk-backed cache.
package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	appLog "schoolboard/internal/log"
)

// Source is a single remote document.
type Source struct {
	// ID is an internal identifier used for logging and breaker state.
	ID string
	// URL is the document endpoint.
	URL string
}

// Result contains the outcome of fetching a single Source.
type Result struct {
	Source    Source
	Body      []byte // payload (either freshly fetched or from cache)
	FromCache bool   // true if we reused the cached body
}

// StatusError is returned for a non-OK response when no cached body exists.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return "fetch: unexpected status " + e.Status
}

// ErrNoCachedBody is returned on 304 Not Modified with an empty cache.
var ErrNoCachedBody = errors.New("fetch: received 304 Not Modified but no cached body available")

// cacheEntry holds HTTP cache metadata for a single URL.
type cacheEntry struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// response is what one round trip produced.
type response struct {
	status       int
	body         []byte
	etag         string
	lastModified string
}

// BreakerConfig tunes the per-source circuit breaker.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens the
	// breaker.
	FailureThreshold uint32
	// Cooldown is how long an open breaker rejects calls before probing.
	Cooldown time.Duration
}

// DefaultBreakerConfig returns the breaker settings used by NewFetcher.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{FailureThreshold: 3, Cooldown: 60 * time.Second}
}

// Fetcher is safe for concurrent use.
type Fetcher struct {
	client   *http.Client
	cacheDir string
	breaker  BreakerConfig

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[response]
}

// NewFetcher creates a new Fetcher.
//
// cacheDir is the base directory where per-URL cache subdirectories and
// metadata will be stored. Example: "/var/lib/schoolboard/cache".
func NewFetcher(cacheDir string) *Fetcher {
	if cacheDir == "" {
		// Development fallback so runs do not need root permissions.
		cacheDir = "./var/cache"
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		cacheDir: cacheDir,
		breaker:  DefaultBreakerConfig(),
		breakers: make(map[string]*gobreaker.CircuitBreaker[response]),
	}
}

// WithClient replaces the HTTP client (tests use httptest clients).
func (f *Fetcher) WithClient(c *http.Client) *Fetcher {
	f.client = c
	return f
}

// WithBreaker replaces the breaker settings. Must be called before the
// first Fetch.
func (f *Fetcher) WithBreaker(cfg BreakerConfig) *Fetcher {
	f.breaker = cfg
	return f
}

// Fetch downloads src, honoring ETag and Last-Modified. On a network error,
// an open breaker or a non-OK status it falls back to the cached body if
// one exists.
func (f *Fetcher) Fetch(ctx context.Context, src Source) (Result, error) {
	if src.URL == "" {
		return Result{}, errors.New("fetch: source URL is empty")
	}

	cachePath, err := f.cachePathForURL(src.URL)
	if err != nil {
		return Result{}, err
	}
	if err := os.MkdirAll(cachePath, 0o700); err != nil {
		return Result{}, err
	}

	meta, _ := f.loadCacheMeta(cachePath)
	cachedBody, _ := f.loadCacheBody(cachePath)

	appLog.Debug("fetch start", "id", src.ID, "url", redactURL(src.URL))

	resp, err := f.breakerFor(src.ID).Execute(func() (response, error) {
		return f.roundTrip(ctx, src, meta)
	})
	if err != nil {
		if len(cachedBody) > 0 {
			appLog.Error("fetch failed, using cached body", err, "id", src.ID, "url", redactURL(src.URL))
			return Result{Source: src, Body: cachedBody, FromCache: true}, nil
		}
		return Result{}, fmt.Errorf("fetch %s: %w", src.ID, err)
	}

	if resp.status == http.StatusNotModified {
		if len(cachedBody) == 0 {
			return Result{}, ErrNoCachedBody
		}
		appLog.Debug("fetch not modified; using cache", "id", src.ID, "url", redactURL(src.URL))
		return Result{Source: src, Body: cachedBody, FromCache: true}, nil
	}

	newMeta := cacheEntry{
		URL:          src.URL,
		ETag:         resp.etag,
		LastModified: resp.lastModified,
	}
	if err := f.saveCache(cachePath, newMeta, resp.body); err != nil {
		// Log but still return the freshly fetched body.
		appLog.Error("fetch cache save failed", err, "id", src.ID, "url", redactURL(src.URL))
	}

	appLog.Info("fetch success", "id", src.ID, "url", redactURL(src.URL), "status", resp.status, "bytes", len(resp.body))
	return Result{Source: src, Body: resp.body}, nil
}

// roundTrip performs one conditional GET. Any status other than 200 and 304
// is an error so it counts against the breaker.
func (f *Fetcher) roundTrip(ctx context.Context, src Source, meta cacheEntry) (response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return response{}, err
	}
	if meta.ETag != "" {
		req.Header.Set("If-None-Match", meta.ETag)
	}
	if meta.LastModified != "" {
		req.Header.Set("If-Modified-Since", meta.LastModified)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return response{}, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return response{}, err
		}
		return response{
			status:       resp.StatusCode,
			body:         body,
			etag:         resp.Header.Get("ETag"),
			lastModified: resp.Header.Get("Last-Modified"),
		}, nil
	case http.StatusNotModified:
		return response{status: resp.StatusCode}, nil
	default:
		return response{}, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}
}

func (f *Fetcher) breakerFor(id string) *gobreaker.CircuitBreaker[response] {
	f.mu.Lock()
	defer f.mu.Unlock()

	if cb, ok := f.breakers[id]; ok {
		return cb
	}

	threshold := f.breaker.FailureThreshold
	if threshold == 0 {
		threshold = 1
	}
	cb := gobreaker.NewCircuitBreaker[response](gobreaker.Settings{
		Name:        id,
		MaxRequests: 1,
		Timeout:     f.breaker.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			appLog.Info("fetch breaker state changed", "id", name, "from", from.String(), "to", to.String())
		},
	})
	f.breakers[id] = cb
	return cb
}

func (f *Fetcher) cachePathForURL(url string) (string, error) {
	if url == "" {
		return "", errors.New("empty url")
	}
	sum := sha256.Sum256([]byte(url))
	// First 16 hex chars as directory name.
	return filepath.Join(f.cacheDir, hex.EncodeToString(sum[:8])), nil
}

func (f *Fetcher) loadCacheMeta(cachePath string) (cacheEntry, error) {
	var meta cacheEntry
	data, err := os.ReadFile(filepath.Join(cachePath, "meta.json"))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return cacheEntry{}, err
	}
	return meta, nil
}

func (f *Fetcher) loadCacheBody(cachePath string) ([]byte, error) {
	return os.ReadFile(filepath.Join(cachePath, "body"))
}

func (f *Fetcher) saveCache(cachePath string, meta cacheEntry, body []byte) error {
	// Write body first so meta never points at missing body.
	if err := os.WriteFile(filepath.Join(cachePath, "body"), body, 0o600); err != nil {
		return err
	}

	meta.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(cachePath, "meta.json"), data, 0o600)
}

// redactURL hides path and query of a URL for logging purposes:
//
//	https://docs.google.com/spreadsheets/d/<id>/gviz/tq?sheet=Agenda
//	-> https://docs.google.com/...(redacted)
func redactURL(u string) string {
	const redactedSuffix = "/...(redacted)"

	i := -1
	for idx := 0; idx+2 < len(u); idx++ {
		if u[idx:idx+3] == "://" {
			i = idx + 3
			break
		}
	}
	if i == -1 {
		return "url://...(redacted)"
	}

	j := i
	for j < len(u) && u[j] != '/' {
		j++
	}
	return u[:j] + redactedSuffix
}
