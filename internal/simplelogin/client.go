// Package simplelogin provides a client for listing, creating, and annotating
// email aliases via the SimpleLogin REST API.
package simplelogin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the hosted SimpleLogin API.
	DefaultBaseURL = "https://app.simplelogin.io"

	// pageSize is the fixed number of aliases SimpleLogin returns per page.
	pageSize = 20

	// maxPages bounds listing against a provider that never returns a short page.
	maxPages = 500

	defaultRequestsPerSecond = 5
)

// ErrMissingCredential is returned before any request when no API key is set.
var ErrMissingCredential = errors.New("simplelogin: missing api key")

// ErrMalformedResponse is returned when a successful response cannot be
// decoded into the expected shape. It is never reported as an empty result.
var ErrMalformedResponse = errors.New("simplelogin: malformed response")

// Alias is a remote alias. IDs are assigned by SimpleLogin.
type Alias struct {
	ID        int64
	Email     string
	Enabled   bool
	Note      string
	CreatedAt time.Time
}

// Config holds connection settings. The API key travels with each call.
type Config struct {
	BaseURL           string
	RequestsPerSecond float64
}

// Client communicates with the SimpleLogin API.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a SimpleLogin client.
func NewClient(cfg Config) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = defaultRequestsPerSecond
	}

	return &Client{
		baseURL: base,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(rps), int(rps)+1),
	}
}

// ListAliases returns every alias on the account, following pages until a
// short page is returned. A failure on any page fails the whole listing.
func (c *Client) ListAliases(ctx context.Context, apiKey string) ([]Alias, error) {
	if apiKey == "" {
		return nil, ErrMissingCredential
	}

	var all []Alias
	for page := range maxPages {
		u := c.baseURL + "/api/v2/aliases?page_id=" + strconv.Itoa(page)

		body, err := c.do(ctx, apiKey, http.MethodGet, u, nil)
		if err != nil {
			return nil, fmt.Errorf("list aliases: page %d: %w", page, err)
		}

		var resp aliasesResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("list aliases: page %d: %w: %v", page, ErrMalformedResponse, err)
		}
		if resp.Aliases == nil {
			return nil, fmt.Errorf("list aliases: page %d: %w: no aliases field", page, ErrMalformedResponse)
		}

		for _, w := range *resp.Aliases {
			a, err := w.alias()
			if err != nil {
				return nil, fmt.Errorf("list aliases: page %d: %w", page, err)
			}
			all = append(all, a)
		}

		if len(*resp.Aliases) < pageSize {
			return all, nil
		}
	}

	return all, nil
}

// UpdateAliasNote replaces the note on an alias and returns the alias.
// SimpleLogin may answer with only {"ok": true}; the returned alias then
// carries just the id and the new note.
func (c *Client) UpdateAliasNote(ctx context.Context, apiKey string, aliasID int64, note string) (Alias, error) {
	if apiKey == "" {
		return Alias{}, ErrMissingCredential
	}

	u := c.baseURL + "/api/aliases/" + strconv.FormatInt(aliasID, 10)
	body, err := c.do(ctx, apiKey, http.MethodPatch, u, noteRequest{Note: note})
	if err != nil {
		return Alias{}, fmt.Errorf("update alias %d: %w", aliasID, err)
	}

	var w aliasWire
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &w); err != nil {
			return Alias{}, fmt.Errorf("update alias %d: %w: %v", aliasID, ErrMalformedResponse, err)
		}
	}
	if w.ID == 0 {
		return Alias{ID: aliasID, Note: note}, nil
	}

	a, err := w.alias()
	if err != nil {
		return Alias{}, fmt.Errorf("update alias %d: %w", aliasID, err)
	}
	return a, nil
}

// CreateRandomAlias creates a random alias with the given note. hostname is
// optional and lets SimpleLogin suggest a prefix.
func (c *Client) CreateRandomAlias(ctx context.Context, apiKey, hostname, note string) (Alias, error) {
	if apiKey == "" {
		return Alias{}, ErrMissingCredential
	}

	u := c.baseURL + "/api/alias/random/new"
	if hostname != "" {
		u += "?hostname=" + url.QueryEscape(hostname)
	}

	body, err := c.do(ctx, apiKey, http.MethodPost, u, noteRequest{Note: note})
	if err != nil {
		return Alias{}, fmt.Errorf("create alias: %w", err)
	}

	var w aliasWire
	if err := json.Unmarshal(body, &w); err != nil {
		return Alias{}, fmt.Errorf("create alias: %w: %v", ErrMalformedResponse, err)
	}

	a, err := w.alias()
	if err != nil {
		return Alias{}, fmt.Errorf("create alias: %w", err)
	}
	return a, nil
}

// ValidateKey reports whether the key can list aliases.
func (c *Client) ValidateKey(ctx context.Context, apiKey string) error {
	if apiKey == "" {
		return ErrMissingCredential
	}
	u := c.baseURL + "/api/v2/aliases?page_id=0"
	if _, err := c.do(ctx, apiKey, http.MethodGet, u, nil); err != nil {
		return fmt.Errorf("validate key: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, apiKey, method, u string, payload any) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authentication", apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiErrorResponse
		if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error != "" {
			return nil, &Error{StatusCode: resp.StatusCode, Message: apiErr.Error}
		}
		return nil, &Error{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	return data, nil
}

// Error represents a non-success response from SimpleLogin.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("simplelogin: %s (status %d)", e.Message, e.StatusCode)
}

// json wire types

type aliasesResponse struct {
	Aliases *[]aliasWire `json:"aliases"`
}

type aliasWire struct {
	ID                int64   `json:"id"`
	Email             string  `json:"email"`
	Enabled           bool    `json:"enabled"`
	Note              *string `json:"note"`
	CreationTimestamp int64   `json:"creation_timestamp"`
}

func (w aliasWire) alias() (Alias, error) {
	if w.ID <= 0 || w.Email == "" {
		return Alias{}, fmt.Errorf("%w: alias missing id or email", ErrMalformedResponse)
	}

	a := Alias{
		ID:        w.ID,
		Email:     w.Email,
		Enabled:   w.Enabled,
		CreatedAt: time.Unix(w.CreationTimestamp, 0).UTC(),
	}
	if w.Note != nil {
		a.Note = *w.Note
	}
	return a, nil
}

type noteRequest struct {
	Note string `json:"note"`
}

type apiErrorResponse struct {
	Error string `json:"error"`
}
