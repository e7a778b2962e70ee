// Package client provides the HTTP client for the three remote operations of
// the comics API: list-collections, list-items and get-detail.
package client

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
	"strings"
	"time"

	"github.com/Sternrassler/comic-harvester/pkg/cache"
	"github.com/Sternrassler/comic-harvester/pkg/records"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for remote operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harvest_requests_total",
		Help: "Total remote API requests by operation and status",
	}, []string{"operation", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "harvest_request_duration_seconds",
		Help:    "Remote API request duration in seconds by operation",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
	}, []string{"operation"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harvest_errors_total",
		Help: "Total remote API errors by class",
	}, []string{"class"})
)

// MaxBodyBytes caps how much of a response body is read.
const MaxBodyBytes = 16 << 20

// Operation names a remote operation.
type Operation string

const (
	OperationListCollections Operation = "list_collections"
	OperationListItems       Operation = "list_items"
	OperationGetDetail       Operation = "get_detail"
)

// ResponseCache stores response bodies between runs. *cache.Manager
// implements it.
type ResponseCache interface {
	Get(ctx context.Context, key cache.Key) ([]byte, error)
	Set(ctx context.Context, key cache.Key, body []byte) error
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the remote base location, e.g. "http://localhost:8080".
	BaseURL string

	// Operation paths relative to BaseURL
	CollectionsPath string
	ItemsPath       string
	DetailsPath     string

	// UserAgent header sent with every request
	UserAgent string

	// Timeout per request. Zero means no timeout: a hung call blocks its
	// caller until the context is cancelled.
	Timeout time.Duration

	// Cache is optional. When set, list-items and get-detail bodies are
	// served from and stored in it.
	Cache ResponseCache
}

// DefaultConfig returns the configuration of the reference deployment.
func DefaultConfig(baseURL, userAgent string) Config {
	return Config{
		BaseURL:         baseURL,
		CollectionsPath: "/comics",
		ItemsPath:       "/issues",
		DetailsPath:     "/details",
		UserAgent:       userAgent,
	}
}

// Client talks to the comics API.
type Client struct {
	httpClient *http.Client
	cache      ResponseCache
	config     Config
	endpoints  map[Operation]string
	logger     zerolog.Logger
}

// New creates a new API client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url must be absolute (got %q)", cfg.BaseURL)
	}
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("timeout must be >= 0 (got %s)", cfg.Timeout)
	}

	paths := map[Operation]string{
		OperationListCollections: cfg.CollectionsPath,
		OperationListItems:       cfg.ItemsPath,
		OperationGetDetail:       cfg.DetailsPath,
	}
	endpoints := make(map[Operation]string, len(paths))
	for op, p := range paths {
		if p == "" {
			return nil, fmt.Errorf("%s path is required", op)
		}
		endpoints[op] = strings.TrimRight(cfg.BaseURL, "/") + "/" + strings.TrimLeft(p, "/")
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		cache:     cfg.Cache,
		config:    cfg,
		endpoints: endpoints,
		logger:    log.With().Str("component", "client").Logger(),
	}, nil
}

// ListCollections returns the collections of the named collection set.
func (c *Client) ListCollections(ctx context.Context, set string) ([]records.CollectionEntry, error) {
	body, err := c.post(ctx, OperationListCollections, records.CollectionsRequest{Name: set})
	if err != nil {
		return nil, err
	}

	entries, err := records.DecodeCollections(body)
	if err != nil {
		return nil, c.decodeError(OperationListCollections, err)
	}
	return entries, nil
}

// ListItems returns the item locators of one collection, in upstream order.
func (c *Client) ListItems(ctx context.Context, locator string) ([]string, error) {
	if locator == "" {
		return nil, ErrEmptyLocator
	}

	key := cache.Key{Operation: cache.OperationItems, Locator: locator}
	if body, ok := c.cached(ctx, key); ok {
		if urls, err := records.DecodeItems(body); err == nil {
			return urls, nil
		}
	}

	body, err := c.post(ctx, OperationListItems, records.LocatorRequest{URL: locator})
	if err != nil {
		return nil, err
	}

	urls, err := records.DecodeItems(body)
	if err != nil {
		return nil, c.decodeError(OperationListItems, err)
	}
	c.store(ctx, key, body)
	return urls, nil
}

// GetDetail returns the raw get-detail response body for one item locator.
// Decoding is left to the caller.
func (c *Client) GetDetail(ctx context.Context, locator string) (string, error) {
	if locator == "" {
		return "", ErrEmptyLocator
	}

	key := cache.Key{Operation: cache.OperationDetail, Locator: locator}
	if body, ok := c.cached(ctx, key); ok {
		return string(body), nil
	}

	body, err := c.post(ctx, OperationGetDetail, records.LocatorRequest{URL: locator})
	if err != nil {
		return "", err
	}
	// Bodies that are not JSON would fail again on the next run.
	if json.Valid(body) {
		c.store(ctx, key, body)
	}
	return string(body), nil
}

// post sends payload as JSON to the endpoint of op and returns the response
// body of a 2xx reply.
func (c *Client) post(ctx context.Context, op Operation, payload any) ([]byte, error) {
	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(string(op)).Observe(time.Since(startTime).Seconds())
	}()

	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoints[op], bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)

	c.logger.Debug().
		Str("operation", string(op)).
		Str("endpoint", req.URL.Path).
		Msg("Executing request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		requestsTotal.WithLabelValues(string(op), "network_error").Inc()
		return nil, c.fail(&APIError{Operation: op, Class: ErrorClassNetwork, Err: err})
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes))
	if err != nil {
		requestsTotal.WithLabelValues(string(op), "network_error").Inc()
		return nil, c.fail(&APIError{
			Operation:  op,
			StatusCode: resp.StatusCode,
			Class:      ErrorClassNetwork,
			Message:    "read response body",
			Err:        err,
		})
	}

	requestsTotal.WithLabelValues(string(op), strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.fail(&APIError{
			Operation:  op,
			StatusCode: resp.StatusCode,
			Class:      classifyStatus(resp.StatusCode),
			Message:    resp.Status,
		})
	}

	return body, nil
}

func (c *Client) fail(err *APIError) error {
	errorsTotal.WithLabelValues(string(err.Class)).Inc()
	c.logger.Debug().
		Str("operation", string(err.Operation)).
		Int("status", err.StatusCode).
		Str("error_class", string(err.Class)).
		Err(err.Err).
		Msg("Request failed")
	return err
}

func (c *Client) decodeError(op Operation, err error) error {
	return c.fail(&APIError{Operation: op, Class: ErrorClassDecode, Err: err})
}

func (c *Client) cached(ctx context.Context, key cache.Key) ([]byte, bool) {
	if c.cache == nil {
		return nil, false
	}
	body, err := c.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			c.logger.Warn().Err(err).Str("url", key.Locator).Msg("Cache get error")
		}
		return nil, false
	}
	c.logger.Debug().Str("url", key.Locator).Str("cache_operation", string(key.Operation)).Msg("Cache hit")
	return body, true
}

func (c *Client) store(ctx context.Context, key cache.Key, body []byte) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Set(ctx, key, body); err != nil {
		c.logger.Warn().Err(err).Str("url", key.Locator).Msg("Failed to cache response")
	}
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
