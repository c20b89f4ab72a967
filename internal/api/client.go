package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pefman/quantum-battleships/internal/models"
)

var httpClient = &http.Client{Timeout: 8 * time.Second}

var (
	ErrNotFound = errors.New("records api: not found")
	ErrConflict = errors.New("records api: already exists")
)

// StatusError is a non-2xx answer the client has no sentinel for.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api status %d", e.Code)
	}
	return fmt.Sprintf("api status %d: %s", e.Code, e.Message)
}

// Config holds API configuration
type Config struct {
	BaseURL string
	// StatsTTL caches player stats lookups; 0 disables the cache.
	StatsTTL time.Duration
}

type cachedStats struct {
	stats models.PlayerStats
	at    time.Time
}

// Client talks to the match records service.
type Client struct {
	config Config

	cacheMu sync.RWMutex
	cache   map[string]cachedStats
}

func NewClient(baseURL string) *Client {
	return &Client{
		config: Config{BaseURL: baseURL, StatsTTL: 30 * time.Second},
		cache:  make(map[string]cachedStats),
	}
}

// PostMatch stores a finished match.
func (c *Client) PostMatch(ctx context.Context, rec models.MatchRecord) error {
	if err := c.apiDo(ctx, http.MethodPost, "/api/matches", rec, nil); err != nil {
		return err
	}
	c.forget(rec.Player1, rec.Player2)
	return nil
}

// GetMatch fetches a stored match.
func (c *Client) GetMatch(ctx context.Context, id string) (models.MatchRecord, error) {
	var rec models.MatchRecord
	err := c.apiGet(ctx, "/api/matches/"+url.PathEscape(id), &rec)
	return rec, err
}

// PlayerStats returns the lifetime record of name.
func (c *Client) PlayerStats(ctx context.Context, name string) (models.PlayerStats, error) {
	if c.config.StatsTTL > 0 {
		c.cacheMu.RLock()
		hit, ok := c.cache[name]
		c.cacheMu.RUnlock()
		if ok && time.Since(hit.at) < c.config.StatsTTL {
			return hit.stats, nil
		}
	}
	var st models.PlayerStats
	if err := c.apiGet(ctx, "/api/players/"+url.PathEscape(name)+"/stats", &st); err != nil {
		return models.PlayerStats{}, err
	}
	if c.config.StatsTTL > 0 {
		c.cacheMu.Lock()
		c.cache[name] = cachedStats{stats: st, at: time.Now()}
		c.cacheMu.Unlock()
	}
	return st, nil
}

func (c *Client) forget(names ...string) {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()
	for _, n := range names {
		delete(c.cache, n)
	}
}

func (c *Client) apiGet(ctx context.Context, path string, out interface{}) error {
	return c.apiDo(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) apiDo(ctx context.Context, method, path string, in, out interface{}) error {
	base := strings.TrimRight(c.config.BaseURL, "/")
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, base+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusConflict:
		return ErrConflict
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		var e struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return &StatusError{Code: resp.StatusCode, Message: e.Message}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
