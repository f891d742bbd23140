// Package openreview is a rate-limited client for the OpenReview API v2, used to fetch the
// submissions of a conference and resolve author profile emails.
package openreview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hyperjump/catalogger/internal/models"
)

const (
	// BaseURL is the OpenReview API v2 base URL.
	BaseURL = "https://api2.openreview.net"

	// PDFBaseURL prefixes a note id to form its PDF link.
	PDFBaseURL = "https://openreview.net/pdf?id="

	DefaultPageSize          = 1000
	DefaultRequestsPerSecond = 2.0
	DefaultTimeout           = 60 * time.Second

	// profileBatchSize bounds the ids sent in one /profiles request.
	profileBatchSize = 50
)

// ErrAPI is returned for non-2xx responses.
var ErrAPI = errors.New("openreview api error")

// Client fetches notes and profiles.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	pageSize   int
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithPageSize sets the number of notes requested per page.
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithRateLimit caps requests per second. Zero or negative disables the limit.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a client with the given options.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRequestsPerSecond), 1),
		baseURL:    BaseURL,
		pageSize:   DefaultPageSize,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type valueField[T any] struct {
	Value T `json:"value"`
}

type note struct {
	ID      string `json:"id"`
	Content struct {
		Title     valueField[string]   `json:"title"`
		Abstract  valueField[string]   `json:"abstract"`
		Authors   valueField[[]string] `json:"authors"`
		AuthorIDs valueField[[]string] `json:"authorids"`
		Keywords  valueField[[]string] `json:"keywords"`
	} `json:"content"`
}

type notesResponse struct {
	Notes []note `json:"notes"`
	Count int    `json:"count"`
}

func (n note) paper() models.Paper {
	return models.Paper{
		ID:        n.ID,
		Title:     strings.TrimSpace(n.Content.Title.Value),
		Abstract:  strings.TrimSpace(n.Content.Abstract.Value),
		Authors:   models.JoinList(n.Content.Authors.Value),
		AuthorIDs: models.JoinList(n.Content.AuthorIDs.Value),
		Keywords:  models.JoinList(n.Content.Keywords.Value),
		PDFURL:    PDFBaseURL + n.ID,
	}
}

// Notes returns every note posted to invitation, in API order, following pagination
// until a short page is returned.
func (c *Client) Notes(ctx context.Context, invitation string) ([]models.Paper, error) {
	if invitation == "" {
		return nil, errors.New("invitation is required")
	}
	var papers []models.Paper
	for offset := 0; ; {
		q := url.Values{}
		q.Set("invitation", invitation)
		q.Set("limit", strconv.Itoa(c.pageSize))
		q.Set("offset", strconv.Itoa(offset))

		var page notesResponse
		if err := c.get(ctx, "/notes", q, &page); err != nil {
			return nil, fmt.Errorf("fetch notes at offset %d: %w", offset, err)
		}
		for _, n := range page.Notes {
			papers = append(papers, n.paper())
		}
		c.logger.Debug("Fetched notes page",
			zap.String("invitation", invitation),
			zap.Int("offset", offset),
			zap.Int("page", len(page.Notes)),
			zap.Int("total", page.Count))

		offset += len(page.Notes)
		if len(page.Notes) < c.pageSize || (page.Count > 0 && offset >= page.Count) {
			break
		}
	}
	return papers, nil
}

type profile struct {
	ID      string `json:"id"`
	Content struct {
		PublicEmail    string   `json:"public_email"`
		PreferredEmail string   `json:"preferredEmail"`
		Emails         []string `json:"emails"`
	} `json:"content"`
}

func (p profile) email() string {
	switch {
	case p.Content.PublicEmail != "":
		return p.Content.PublicEmail
	case p.Content.PreferredEmail != "":
		return p.Content.PreferredEmail
	case len(p.Content.Emails) > 0:
		return p.Content.Emails[0]
	}
	return ""
}

// Profiles maps author ids to an email address. Ids that already contain '@' map to
// themselves; '~' profile ids are resolved through the API. Profiles without a visible
// email are omitted.
func (c *Client) Profiles(ctx context.Context, ids []string) (map[string]string, error) {
	emails := make(map[string]string, len(ids))
	var profileIDs []string
	for _, id := range ids {
		id = strings.TrimSpace(id)
		switch {
		case strings.Contains(id, "@"):
			emails[id] = id
		case strings.HasPrefix(id, "~"):
			profileIDs = append(profileIDs, id)
		}
	}
	for start := 0; start < len(profileIDs); start += profileBatchSize {
		end := min(start+profileBatchSize, len(profileIDs))
		q := url.Values{}
		q.Set("ids", strings.Join(profileIDs[start:end], ","))

		var resp struct {
			Profiles []profile `json:"profiles"`
		}
		if err := c.get(ctx, "/profiles", q, &resp); err != nil {
			return emails, fmt.Errorf("fetch profiles: %w", err)
		}
		for _, p := range resp.Profiles {
			if e := p.email(); e != "" {
				emails[p.ID] = e
			}
		}
	}
	return emails, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s returned HTTP %d", ErrAPI, path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}
