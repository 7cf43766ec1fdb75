// Package pncp provides a stateless client for the PNCP public
// procurement catalog (search index and purchase-item API).
package pncp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// PageSize is the fixed page size requested from the search index.
const PageSize = 50

// Client defines the catalog operations used by the mining engine.
type Client interface {
	// SearchEditais queries one page of the search index restricted to
	// the "edital" document type, newest publications first.
	SearchEditais(ctx context.Context, query string, page int) (*SearchPage, error)
	// SearchAll queries one page with no document-type restriction.
	SearchAll(ctx context.Context, query string, page int) (*SearchPage, error)
	// ListItems fetches the line items of one tender.
	ListItems(ctx context.Context, cnpj string, year, seq int) ([]Item, error)
	// ItemResults fetches the award results of one line item.
	ItemResults(ctx context.Context, cnpj string, year, seq, itemNumber int) ([]ItemResult, error)
	// AuditURL builds the public provenance URL for a tender.
	AuditURL(cnpj string, year, seq int) string
}

// Option configures the client.
type Option func(*httpClient)

// WithSearchBaseURL overrides the search index base URL (for testing).
func WithSearchBaseURL(u string) Option {
	return func(c *httpClient) { c.searchBase = u }
}

// WithAPIBaseURL overrides the item API base URL (for testing).
func WithAPIBaseURL(u string) Option {
	return func(c *httpClient) { c.apiBase = u }
}

// WithAppBaseURL overrides the base of constructed audit URLs.
func WithAppBaseURL(u string) Option {
	return func(c *httpClient) { c.appBase = u }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

// WithUserAgent sets the descriptive User-Agent sent on every request.
func WithUserAgent(ua string) Option {
	return func(c *httpClient) { c.userAgent = ua }
}

// WithTimeouts sets the per-call timeouts for listing/search calls and
// for the per-item results lookup.
func WithTimeouts(list, result time.Duration) Option {
	return func(c *httpClient) {
		c.listTimeout = list
		c.resultTimeout = result
	}
}

// WithRateLimit caps outbound requests per second. The catalog has no
// published quota; this is client-side politeness only.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *httpClient) { c.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

type httpClient struct {
	searchBase    string
	apiBase       string
	appBase       string
	userAgent     string
	listTimeout   time.Duration
	resultTimeout time.Duration
	http          *http.Client
	limiter       *rate.Limiter
}

// NewClient creates a catalog client with production defaults.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		searchBase:    "https://pncp.gov.br/api/search/",
		apiBase:       "https://pncp.gov.br/api/pncp/v1",
		appBase:       "https://pncp.gov.br",
		userAgent:     "pricemine/1.0 (+market price research)",
		listTimeout:   10 * time.Second,
		resultTimeout: 4 * time.Second,
		http: &http.Client{
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(10, 10),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// get issues one GET with the given timeout and decodes JSON into out.
// A non-200 status is an error; callers treat it as "no data" and
// never retry.
func (c *httpClient) get(ctx context.Context, rawURL string, timeout time.Duration, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "pncp: rate limiter wait")
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return eris.Wrap(err, "pncp: create request")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "pncp: request failed")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "pncp: read response body")
	}

	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("pncp: unexpected status %d from %s", resp.StatusCode, rawURL)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "pncp: unmarshal response")
	}
	return nil
}

func (c *httpClient) search(ctx context.Context, query string, page int, editalOnly bool) (*SearchPage, error) {
	params := url.Values{}
	params.Set("q", query)
	if editalOnly {
		params.Set("tipos_documento", "edital")
	}
	params.Set("ordenacao", "-dataPublicacaoPncp")
	params.Set("pagina", fmt.Sprintf("%d", page))
	params.Set("tam_pagina", fmt.Sprintf("%d", PageSize))

	var out SearchPage
	if err := c.get(ctx, c.searchBase+"?"+params.Encode(), c.listTimeout, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) SearchEditais(ctx context.Context, query string, page int) (*SearchPage, error) {
	return c.search(ctx, query, page, true)
}

func (c *httpClient) SearchAll(ctx context.Context, query string, page int) (*SearchPage, error) {
	return c.search(ctx, query, page, false)
}

func (c *httpClient) ListItems(ctx context.Context, cnpj string, year, seq int) ([]Item, error) {
	u := fmt.Sprintf("%s/orgaos/%s/compras/%d/%d/itens", c.apiBase, url.PathEscape(cnpj), year, seq)
	var out []Item
	if err := c.get(ctx, u, c.listTimeout, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *httpClient) ItemResults(ctx context.Context, cnpj string, year, seq, itemNumber int) ([]ItemResult, error) {
	u := fmt.Sprintf("%s/orgaos/%s/compras/%d/%d/itens/%d/resultados", c.apiBase, url.PathEscape(cnpj), year, seq, itemNumber)
	var out []ItemResult
	if err := c.get(ctx, u, c.resultTimeout, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *httpClient) AuditURL(cnpj string, year, seq int) string {
	return fmt.Sprintf("%s/app/editais/%s/%d/%d", c.appBase, cnpj, year, seq)
}
