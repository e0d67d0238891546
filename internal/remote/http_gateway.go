package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/mrlokans/readinglist/internal/entities"
)

const (
	defaultTimeout     = 30 * time.Second
	defaultMaxRetries  = 3
	initialRetryDelay  = 1 * time.Second
	maxRetryDelay      = 30 * time.Second
	retryBackoffFactor = 2
)

type HTTPConfig struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	// RateLimit is requests per second. Zero disables limiting.
	RateLimit float64
	// HTTPClient overrides the default client, mostly for tests.
	HTTPClient *http.Client
}

// HTTPGateway talks JSON to the reading-list service.
type HTTPGateway struct {
	baseURL    *url.URL
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
	retryDelay time.Duration
}

func NewHTTPGateway(cfg HTTPConfig) (*HTTPGateway, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("invalid remote base URL %q", cfg.BaseURL)
	}

	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		burst := int(cfg.RateLimit)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &HTTPGateway{
		baseURL:    base,
		httpClient: client,
		limiter:    limiter,
		maxRetries: maxRetries,
		retryDelay: initialRetryDelay,
	}, nil
}

func (g *HTTPGateway) FetchList(ctx context.Context, req ListRequest) (*ListPage, error) {
	q := url.Values{}
	if req.Cursor != "" {
		q.Set("cursor", req.Cursor)
	}
	if req.PageSize > 0 {
		q.Set("count", strconv.Itoa(req.PageSize))
	}
	if req.Sort != "" {
		q.Set("sort", string(req.Sort))
	}
	if req.Since != nil {
		q.Set("since", req.Since.UTC().Format(time.RFC3339))
	}

	var page ListPage
	if err := g.do(ctx, call{method: http.MethodGet, path: "/v1/items", query: q, token: req.Token}, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (g *HTTPGateway) MutateItem(ctx context.Context, req MutationRequest) error {
	c := call{token: req.Token, idempotencyKey: req.IdempotencyKey}
	id := url.PathEscape(req.RemoteID)
	switch req.Kind {
	case entities.MutationFavorite, entities.MutationUnfavorite, entities.MutationArchive:
		c.method = http.MethodPost
		c.path = "/v1/items/" + id + "/" + string(req.Kind)
	case entities.MutationDelete:
		c.method = http.MethodDelete
		c.path = "/v1/items/" + id
	default:
		return fmt.Errorf("unsupported mutation %q", req.Kind)
	}
	return g.do(ctx, c, nil)
}

func (g *HTTPGateway) SaveItem(ctx context.Context, req SaveRequest) (*SaveResponse, error) {
	var resp SaveResponse
	err := g.do(ctx, call{
		method:         http.MethodPost,
		path:           "/v1/items",
		token:          req.Token,
		idempotencyKey: req.IdempotencyKey,
		body:           map[string]string{"url": req.URL},
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (g *HTTPGateway) FetchSlateLineup(ctx context.Context, token, lineupID string) (*entities.SlateLineup, error) {
	var lineup entities.SlateLineup
	path := "/v1/lineups/" + url.PathEscape(lineupID)
	if err := g.do(ctx, call{method: http.MethodGet, path: path, token: token}, &lineup); err != nil {
		return nil, err
	}
	return &lineup, nil
}

func (g *HTTPGateway) FetchSlate(ctx context.Context, token, slateID string) (*entities.Slate, error) {
	var slate entities.Slate
	path := "/v1/slates/" + url.PathEscape(slateID)
	if err := g.do(ctx, call{method: http.MethodGet, path: path, token: token}, &slate); err != nil {
		return nil, err
	}
	return &slate, nil
}

func (g *HTTPGateway) FetchArchive(ctx context.Context, req ArchiveRequest) (*ArchivePage, error) {
	q := url.Values{}
	if req.Cursor != "" {
		q.Set("cursor", req.Cursor)
	}
	if req.PageSize > 0 {
		q.Set("count", strconv.Itoa(req.PageSize))
	}

	var page ArchivePage
	if err := g.do(ctx, call{method: http.MethodGet, path: "/v1/archive", query: q, token: req.Token}, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (g *HTTPGateway) MutateArchived(ctx context.Context, req ArchiveMutationRequest) error {
	c := call{token: req.Token}
	id := url.PathEscape(req.RemoteID)
	switch req.Action {
	case ArchiveFavorite, ArchiveUnfavorite, ArchiveReAdd:
		c.method = http.MethodPost
		c.path = "/v1/archive/" + id + "/" + string(req.Action)
	case ArchiveDelete:
		c.method = http.MethodDelete
		c.path = "/v1/archive/" + id
	default:
		return fmt.Errorf("unsupported archive action %q", req.Action)
	}
	return g.do(ctx, c, nil)
}

type call struct {
	method         string
	path           string
	query          url.Values
	token          string
	idempotencyKey string
	body           any
}

// do sends c, retrying rate limits and server errors with exponential backoff.
func (g *HTTPGateway) do(ctx context.Context, c call, out any) error {
	u := *g.baseURL
	u.Path = g.baseURL.Path + c.path
	if len(c.query) > 0 {
		u.RawQuery = c.query.Encode()
	}

	var payload []byte
	if c.body != nil {
		var err error
		if payload, err = json.Marshal(c.body); err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt < g.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(g.backoff(attempt)):
			}
		}

		if err := g.limiter.Wait(ctx); err != nil {
			return err
		}

		lastErr = g.doRequest(ctx, c, u.String(), payload, out)
		if lastErr == nil {
			return nil
		}

		// Only retry on rate limits or server errors
		if !IsRetryable(lastErr) {
			return lastErr
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (g *HTTPGateway) doRequest(ctx context.Context, c call, target string, payload []byte, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, c.method, target, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", c.idempotencyKey)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case resp.StatusCode >= 500:
		return &ServerError{StatusCode: resp.StatusCode}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(msg))
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (g *HTTPGateway) backoff(attempt int) time.Duration {
	delay := g.retryDelay
	for i := 1; i < attempt; i++ {
		delay *= time.Duration(retryBackoffFactor)
	}
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	return delay
}
