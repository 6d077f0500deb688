// Package ledger is a thin REST client for an Aptos-style ledger node.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/ratelimit"

	"github.com/hxuan190/aptos-route-engine/internal/domain"
)

var (
	ErrStatus    = errors.New("ledger: unexpected status")
	ErrMalformed = errors.New("ledger: malformed response")
)

const (
	DefaultTimeout = 30 * time.Second

	// ResourcePageSize is the limit sent with each account resources page.
	ResourcePageSize = 1000

	// CursorHeader carries the start value of the next resources page.
	CursorHeader = "X-Aptos-Cursor"
)

// API is the subset of ledger calls the registries and the watcher need.
type API interface {
	LedgerInfo(ctx context.Context) (*domain.LedgerInfo, error)
	Events(ctx context.Context, address, handle string, start, limit uint64) ([]domain.Event, error)
	Resources(ctx context.Context, address string) ([]domain.MoveResource, error)
	Resource(ctx context.Context, address, resourceType string) (*domain.MoveResource, error)
	Transactions(ctx context.Context, start, limit uint64) ([]domain.Transaction, error)
}

type Client struct {
	client  *http.Client
	host    string
	limiter ratelimit.Limiter
}

type Option func(*Client)

// WithRateLimit caps outgoing requests per second. Zero disables the cap.
func WithRateLimit(rps int) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = ratelimit.New(rps)
		}
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.client.Timeout = timeout
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.client = hc
	}
}

func NewClient(host string, opts ...Option) *Client {
	c := &Client{
		client:  &http.Client{Timeout: DefaultTimeout},
		host:    strings.TrimRight(host, "/"),
		limiter: ratelimit.NewUnlimited(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	_, err := c.getWithHeader(ctx, path, query, out)
	return err
}

// getWithHeader is get that also returns the response headers.
func (c *Client) getWithHeader(ctx context.Context, path string, query url.Values, out any) (http.Header, error) {
	c.limiter.Take()

	link := c.host + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, fmt.Errorf("ledger: build request %s: %w", link, err)
	}
	req.Header.Set("Accept", "application/json")
	if len(query) > 0 {
		req.URL.RawQuery = query.Encode()
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ledger: get %s: %w", link, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ledger: read %s: %w", link, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: get %s: %s: %s", ErrStatus, link, resp.Status, string(body))
	}

	if err := sonic.Unmarshal(body, out); err != nil {
		return nil, fmt.Errorf("%w: get %s: %v", ErrMalformed, link, err)
	}
	return resp.Header, nil
}

// escapeSegments escapes a Move type or event handle while keeping the
// "/" separators between handle and field name.
func escapeSegments(s string) string {
	parts := strings.Split(s, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

func (c *Client) LedgerInfo(ctx context.Context) (*domain.LedgerInfo, error) {
	var info domain.LedgerInfo
	if err := c.get(ctx, "/", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// LedgerVersion returns the current ledger version as an integer.
func (c *Client) LedgerVersion(ctx context.Context) (uint64, error) {
	info, err := c.LedgerInfo(ctx)
	if err != nil {
		return 0, err
	}
	v, err := domain.ParseU64(info.LedgerVersion)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return v, nil
}

func (c *Client) Events(ctx context.Context, address, handle string, start, limit uint64) ([]domain.Event, error) {
	q := url.Values{}
	q.Set("start", strconv.FormatUint(start, 10))
	q.Set("limit", strconv.FormatUint(limit, 10))

	var events []domain.Event
	path := "/accounts/" + address + "/events/" + escapeSegments(handle)
	if err := c.get(ctx, path, q, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// Resources lists every resource of address, following the cursor header
// across pages.
func (c *Client) Resources(ctx context.Context, address string) ([]domain.MoveResource, error) {
	path := "/accounts/" + address + "/resources"
	seen := make(map[string]struct{})

	var all []domain.MoveResource
	cursor := ""
	for {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(ResourcePageSize))
		if cursor != "" {
			q.Set("start", cursor)
		}

		var page []domain.MoveResource
		header, err := c.getWithHeader(ctx, path, q, &page)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)

		cursor = header.Get(CursorHeader)
		if cursor == "" {
			return all, nil
		}
		if _, dup := seen[cursor]; dup {
			return nil, fmt.Errorf("%w: resources of %s: cursor %s repeated", ErrMalformed, address, cursor)
		}
		seen[cursor] = struct{}{}
	}
}

func (c *Client) Resource(ctx context.Context, address, resourceType string) (*domain.MoveResource, error) {
	var resource domain.MoveResource
	path := "/accounts/" + address + "/resource/" + url.PathEscape(resourceType)
	if err := c.get(ctx, path, nil, &resource); err != nil {
		return nil, err
	}
	return &resource, nil
}

func (c *Client) Transactions(ctx context.Context, start, limit uint64) ([]domain.Transaction, error) {
	q := url.Values{}
	q.Set("start", strconv.FormatUint(start, 10))
	q.Set("limit", strconv.FormatUint(limit, 10))

	var txns []domain.Transaction
	if err := c.get(ctx, "/transactions", q, &txns); err != nil {
		return nil, err
	}
	return txns, nil
}
