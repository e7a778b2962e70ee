package client

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/Sternrassler/comic-harvester/internal/testutil"
	"github.com/Sternrassler/comic-harvester/pkg/cache"
	"github.com/Sternrassler/comic-harvester/pkg/records"
)

// memoryCache is an in-process ResponseCache.
type memoryCache struct {
	mu     sync.Mutex
	data   map[string][]byte
	getErr error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: make(map[string][]byte)}
}

func (m *memoryCache) Get(_ context.Context, key cache.Key) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	body, ok := m.data[key.String()]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return body, nil
}

func (m *memoryCache) Set(_ context.Context, key cache.Key, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key.String()] = body
	return nil
}

func (m *memoryCache) has(key cache.Key) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key.String()]
	return ok
}

func newTestClient(t *testing.T, mock *testutil.MockAPI, c ResponseCache) *Client {
	t.Helper()
	cfg := DefaultConfig(mock.URL(), "TestApp/1.0.0")
	cfg.Cache = c
	client, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		expectError bool
		errorMsg    string
	}{
		{
			name:   "valid config",
			config: DefaultConfig("http://localhost:8080", "TestApp/1.0.0"),
		},
		{
			name:        "empty base url",
			config:      DefaultConfig("", "TestApp/1.0.0"),
			expectError: true,
			errorMsg:    "base url is required",
		},
		{
			name:        "relative base url",
			config:      DefaultConfig("localhost:8080", "TestApp/1.0.0"),
			expectError: true,
			errorMsg:    `base url must be absolute (got "localhost:8080")`,
		},
		{
			name:        "empty user agent",
			config:      DefaultConfig("http://localhost:8080", ""),
			expectError: true,
			errorMsg:    "user-agent is required",
		},
		{
			name: "missing details path",
			config: Config{
				BaseURL:         "http://localhost:8080",
				CollectionsPath: "/comics",
				ItemsPath:       "/issues",
				UserAgent:       "TestApp/1.0.0",
			},
			expectError: true,
			errorMsg:    "get_detail path is required",
		},
		{
			name: "negative timeout",
			config: func() Config {
				cfg := DefaultConfig("http://localhost:8080", "TestApp/1.0.0")
				cfg.Timeout = -time.Second
				return cfg
			}(),
			expectError: true,
			errorMsg:    "timeout must be >= 0 (got -1s)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := New(tt.config)

			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got nil")
					return
				}
				if tt.errorMsg != "" && err.Error() != tt.errorMsg {
					t.Errorf("Error message = %q, want %q", err.Error(), tt.errorMsg)
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
				return
			}
			if client == nil {
				t.Error("Client is nil")
			}
		})
	}
}

func TestNew_EndpointJoin(t *testing.T) {
	cfg := DefaultConfig("http://localhost:8080/api/", "TestApp/1.0.0")
	client, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	want := "http://localhost:8080/api/details"
	if got := client.endpoints[OperationGetDetail]; got != want {
		t.Errorf("details endpoint = %q, want %q", got, want)
	}
}

func TestListCollections(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()

	mock.SetCollections("valiant", testutil.NewOKResponse(
		`{"comics":[{"name":"A","url":"u1"},{"name":"B","url":"u2"}]}`))

	client := newTestClient(t, mock, nil)

	got, err := client.ListCollections(context.Background(), "valiant")
	if err != nil {
		t.Fatalf("ListCollections failed: %v", err)
	}

	want := []records.CollectionEntry{{Name: "A", URL: "u1"}, {Name: "B", URL: "u2"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ListCollections = %+v, want %+v", got, want)
	}
	if mock.LastContentType != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", mock.LastContentType)
	}
	if mock.LastUserAgent != "TestApp/1.0.0" {
		t.Errorf("User-Agent = %q, want TestApp/1.0.0", mock.LastUserAgent)
	}
}

func TestListCollections_DoubleEncoded(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()

	mock.SetCollections("valiant", testutil.NewOKResponse(
		testutil.JSON(`{"comics":[{"name":"A","url":"u1"}]}`)))

	client := newTestClient(t, mock, nil)

	got, err := client.ListCollections(context.Background(), "valiant")
	if err != nil {
		t.Fatalf("ListCollections failed: %v", err)
	}
	if len(got) != 1 || got[0].URL != "u1" {
		t.Errorf("ListCollections = %+v, want one entry u1", got)
	}
}

func TestListCollections_Errors(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()

	mock.SetCollections("broken", testutil.NewOKResponse(`{"oops":true}`))
	mock.SetCollections("down", testutil.NewServerErrorResponse())
	mock.SetCollections("dropped", testutil.NewDroppedResponse())

	client := newTestClient(t, mock, nil)

	tests := []struct {
		set    string
		class  ErrorClass
		status int
	}{
		{"broken", ErrorClassDecode, 0},
		{"down", ErrorClassServer, http.StatusInternalServerError},
		{"dropped", ErrorClassNetwork, 0},
		{"unknown", ErrorClassClient, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.set, func(t *testing.T) {
			_, err := client.ListCollections(context.Background(), tt.set)
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("Expected *APIError, got %T: %v", err, err)
			}
			if apiErr.Class != tt.class {
				t.Errorf("Class = %q, want %q", apiErr.Class, tt.class)
			}
			if apiErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, tt.status)
			}
			if apiErr.Operation != OperationListCollections {
				t.Errorf("Operation = %q, want %q", apiErr.Operation, OperationListCollections)
			}
		})
	}
}

func TestListItems(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()

	mock.SetItems("u1", testutil.NewOKResponse(`{"urls":["i1","i2"]}`))

	client := newTestClient(t, mock, nil)

	got, err := client.ListItems(context.Background(), "u1")
	if err != nil {
		t.Fatalf("ListItems failed: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"i1", "i2"}) {
		t.Errorf("ListItems = %v, want [i1 i2]", got)
	}

	if _, err := client.ListItems(context.Background(), ""); !errors.Is(err, ErrEmptyLocator) {
		t.Errorf("Expected ErrEmptyLocator, got %v", err)
	}
}

func TestListItems_Cache(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()

	mock.SetItems("u1", testutil.NewOKResponse(`{"urls":["i1"]}`))

	mem := newMemoryCache()
	client := newTestClient(t, mock, mem)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := client.ListItems(ctx, "u1")
		if err != nil {
			t.Fatalf("ListItems #%d failed: %v", i, err)
		}
		if !reflect.DeepEqual(got, []string{"i1"}) {
			t.Errorf("ListItems #%d = %v", i, got)
		}
	}

	if mock.GetRequestCount() != 1 {
		t.Errorf("Request count = %d, want 1 (cache should serve repeats)", mock.GetRequestCount())
	}
}

func TestGetDetail(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()

	mock.SetDetail("i1", testutil.NewOKResponse(`{"name":"Rec1"}`))
	mock.SetDetail("bad", testutil.NewOKResponse(`not json`))
	mock.SetDetail("gone", testutil.NewDroppedResponse())

	mem := newMemoryCache()
	client := newTestClient(t, mock, mem)
	ctx := context.Background()

	body, err := client.GetDetail(ctx, "i1")
	if err != nil {
		t.Fatalf("GetDetail failed: %v", err)
	}
	if body != `{"name":"Rec1"}` {
		t.Errorf("GetDetail body = %q", body)
	}
	if !mem.has(cache.Key{Operation: cache.OperationDetail, Locator: "i1"}) {
		t.Error("Valid detail body should be cached")
	}

	// Raw text is returned even when it is not JSON; decoding is the caller's job.
	body, err = client.GetDetail(ctx, "bad")
	if err != nil {
		t.Fatalf("GetDetail(bad) failed: %v", err)
	}
	if body != "not json" {
		t.Errorf("GetDetail(bad) body = %q", body)
	}
	if mem.has(cache.Key{Operation: cache.OperationDetail, Locator: "bad"}) {
		t.Error("Non-JSON detail body should not be cached")
	}

	_, err = client.GetDetail(ctx, "gone")
	if Classify(err) != ErrorClassNetwork {
		t.Errorf("Classify(dropped) = %q, want network (err=%v)", Classify(err), err)
	}

	if _, err := client.GetDetail(ctx, ""); !errors.Is(err, ErrEmptyLocator) {
		t.Errorf("Expected ErrEmptyLocator, got %v", err)
	}
}

func TestGetDetail_CacheErrorFallsBack(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetDetail("i1", testutil.NewOKResponse(`{"name":"Rec1"}`))

	mem := newMemoryCache()
	mem.getErr = errors.New("redis unavailable")
	client := newTestClient(t, mock, mem)

	body, err := client.GetDetail(context.Background(), "i1")
	if err != nil {
		t.Fatalf("GetDetail should fall back to the remote call: %v", err)
	}
	if body != `{"name":"Rec1"}` {
		t.Errorf("GetDetail body = %q", body)
	}
}

func TestGetDetail_Timeout(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetDetail("slow", testutil.NewDelayedResponse(`{}`, 500*time.Millisecond))

	cfg := DefaultConfig(mock.URL(), "TestApp/1.0.0")
	cfg.Timeout = 50 * time.Millisecond
	client, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	_, err = client.GetDetail(context.Background(), "slow")
	if Classify(err) != ErrorClassNetwork {
		t.Errorf("Classify(timeout) = %q, want network (err=%v)", Classify(err), err)
	}
}
