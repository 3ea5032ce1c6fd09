// Package storefront is the client for the commerce storefront GraphQL API.
package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MdAlAmin212104/hydrogen-demo-store/internal/cache"
	"github.com/MdAlAmin212104/hydrogen-demo-store/internal/cache/keys"
	"github.com/MdAlAmin212104/hydrogen-demo-store/internal/core/model"
	"github.com/MdAlAmin212104/hydrogen-demo-store/internal/core/observability"
	mylog "github.com/MdAlAmin212104/hydrogen-demo-store/internal/logger"
)

const tokenHeader = "X-Shopify-Storefront-Access-Token"

type Request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

type gqlError struct {
	Message string `json:"message"`
}

type gqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []gqlError      `json:"errors"`
}

type Options struct {
	Logger    *slog.Logger
	HTTP      *http.Client
	Cache     cache.Interface
	CacheTTL  time.Duration
	OpTimeout time.Duration
}

type Client struct {
	logger    *slog.Logger
	http      *http.Client
	endpoint  *url.URL
	token     string
	cache     cache.Interface
	ttl       time.Duration
	opTimeout time.Duration
}

// New builds a client for {baseURL}/api/{version}/graphql.json.
func New(baseURL, version, token string, opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse storefront url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("storefront url %q must be absolute", baseURL)
	}
	if version == "" {
		return nil, fmt.Errorf("storefront api version is required")
	}
	endpoint := base.JoinPath("api", version, "graphql.json")

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.HTTP == nil {
		opts.HTTP = http.DefaultClient
	}
	if opts.Cache == nil {
		opts.Cache = cache.Nop{}
	}
	return &Client{
		logger:    opts.Logger,
		http:      opts.HTTP,
		endpoint:  endpoint,
		token:     token,
		cache:     opts.Cache,
		ttl:       opts.CacheTTL,
		opTimeout: opts.OpTimeout,
	}, nil
}

func (c *Client) Endpoint() string { return c.endpoint.String() }

// Do posts one GraphQL operation and returns the raw data member, which may
// be empty or the literal null.
func (c *Client) Do(ctx context.Context, gr Request) (json.RawMessage, error) {
	body, err := json.Marshal(gr)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", gr.OperationName, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set(tokenHeader, c.token)
	}
	if rid := mylog.RequestID(ctx); rid != "" {
		req.Header.Set("X-Request-ID", rid)
	}

	start := time.Now()
	data, err := c.roundTrip(req, gr.OperationName)
	dur := time.Since(start)
	observability.ObserveUpstream(gr.OperationName, err, dur.Seconds())
	c.logger.DebugContext(ctx, "storefront call done",
		"operation", gr.OperationName,
		"duration", dur,
		"err", err)
	return data, err
}

func (c *Client) roundTrip(req *http.Request, op string) (json.RawMessage, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &UpstreamError{Operation: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		return nil, &UpstreamError{
			Operation: op,
			Status:    resp.StatusCode,
			Err:       fmt.Errorf("body: %s", strings.TrimSpace(string(b))),
		}
	}

	var out gqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &UpstreamError{Operation: op, Status: resp.StatusCode, Err: fmt.Errorf("decode body: %w", err)}
	}
	if len(out.Errors) > 0 {
		msgs := make([]string, 0, len(out.Errors))
		for _, e := range out.Errors {
			msgs = append(msgs, e.Message)
		}
		return nil, &UpstreamError{Operation: op, Status: resp.StatusCode, Messages: msgs}
	}
	return out.Data, nil
}

// AllProducts fetches one page of products for q in the given locale. Cached
// payloads are served without calling the storefront.
func (c *Client) AllProducts(ctx context.Context, q model.QueryParameters, loc model.Locale) ([]model.Product, error) {
	key := keys.Listing(OpAllProducts, loc, q)

	if data, ok := c.cacheGet(ctx, key); ok {
		products, err := decodeProducts(data)
		if err == nil {
			observability.IncCacheHit()
			c.logger.DebugContext(mylog.WithCacheStatus(ctx, "hit"), "listing served from cache", "key", key)
			return products, nil
		}
		c.logger.WarnContext(ctx, "discarding undecodable cache entry", "key", key, "err", err)
	}
	observability.IncCacheMiss()
	fill := c.startFill(ctx)

	data, err := c.Do(ctx, Request{
		Query:         allProductsQuery,
		OperationName: OpAllProducts,
		Variables: map[string]any{
			"count":    q.PageSize,
			"query":    q.SearchText,
			"reverse":  q.Reverse,
			"sortKey":  string(q.SortKey),
			"country":  loc.Country,
			"language": loc.Language,
		},
	})
	if err != nil {
		return nil, err
	}

	products, err := decodeProducts(data)
	if err != nil {
		return nil, err
	}
	c.cacheSet(ctx, key, data, fill)
	return products, nil
}

func decodeProducts(data json.RawMessage) ([]model.Product, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, &DataIntegrityError{Operation: OpAllProducts, Reason: "response has no data object"}
	}
	var payload struct {
		Products *struct {
			Nodes []model.Product `json:"nodes"`
		} `json:"products"`
	}
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return nil, &UpstreamError{Operation: OpAllProducts, Err: fmt.Errorf("decode products: %w", err)}
	}
	if payload.Products == nil {
		return nil, &DataIntegrityError{Operation: OpAllProducts, Reason: "products is null"}
	}
	if payload.Products.Nodes == nil {
		return []model.Product{}, nil
	}
	return payload.Products.Nodes, nil
}

// returns context with timeout if set
func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.opTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.opTimeout)
}

func (c *Client) cacheGet(ctx context.Context, key string) ([]byte, bool) {
	cctx, cancel := c.withTimeout(ctx)
	defer cancel()
	b, ok, err := c.cache.Get(cctx, key)
	if err != nil {
		c.logger.WarnContext(ctx, "cache get failed", "key", key, "err", err)
		return nil, false
	}
	return b, ok
}

// fillToken pins the cache generation a fetch started under. ok is false when
// the store could not report it; that fill is then skipped.
type fillToken struct {
	gen uint64
	ok  bool
}

func (c *Client) startFill(ctx context.Context) fillToken {
	g, isGen := c.cache.(cache.Generational)
	if !isGen {
		return fillToken{ok: true}
	}
	cctx, cancel := c.withTimeout(ctx)
	defer cancel()
	gen, err := g.Generation(cctx)
	if err != nil {
		c.logger.WarnContext(ctx, "cache generation unavailable, not caching this fetch", "err", err)
		return fillToken{}
	}
	return fillToken{gen: gen, ok: true}
}

// cache fills survive the caller going away. A fill is dropped when the
// listing cache was purged while the fetch was in flight.
func (c *Client) cacheSet(ctx context.Context, key string, data []byte, fill fillToken) {
	if !fill.ok {
		return
	}
	cctx, cancel := c.withTimeout(context.WithoutCancel(ctx))
	defer cancel()

	g, isGen := c.cache.(cache.Generational)
	if !isGen {
		if err := c.cache.Set(cctx, key, data, c.ttl); err != nil {
			c.logger.WarnContext(ctx, "cache set failed", "key", key, "err", err)
		}
		return
	}
	stored, err := g.SetIfGeneration(cctx, key, data, c.ttl, fill.gen)
	switch {
	case err != nil:
		c.logger.WarnContext(ctx, "cache set failed", "key", key, "err", err)
	case !stored:
		c.logger.DebugContext(ctx, "listing invalidated during fetch, not cached", "key", key)
	}
}
