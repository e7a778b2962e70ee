// Package testutil provides testing utilities for the comic harvester.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// Default paths served by MockAPI, matching client.DefaultConfig.
const (
	CollectionsPath = "/comics"
	ItemsPath       = "/issues"
	DetailsPath     = "/details"
)

// MockResponse defines the behavior for one mocked request.
type MockResponse struct {
	StatusCode int
	Body       string
	Delay      time.Duration

	// Drop closes the connection without writing a response, which the
	// client sees as a transport error.
	Drop bool
}

// MockAPI is a configurable mock of the comics API. Responses are keyed by
// the "name" (list-collections) or "url" (list-items, get-detail) field of
// the JSON request body.
type MockAPI struct {
	server *httptest.Server
	mu     sync.RWMutex

	collections map[string]MockResponse
	items       map[string]MockResponse
	details     map[string]MockResponse

	// Tracking
	RequestCount    int
	DetailRequests  map[string]int
	LastContentType string
	LastUserAgent   string

	inFlight    int
	maxInFlight int
}

// NewMockAPI creates a new mock API server.
func NewMockAPI() *MockAPI {
	mock := &MockAPI{
		collections:    make(map[string]MockResponse),
		items:          make(map[string]MockResponse),
		details:        make(map[string]MockResponse),
		DetailRequests: make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(CollectionsPath, mock.handler(func(body requestBody) (MockResponse, bool) {
		return mock.lookup(mock.collections, body.Name)
	}, false))
	mux.HandleFunc(ItemsPath, mock.handler(func(body requestBody) (MockResponse, bool) {
		return mock.lookup(mock.items, body.URL)
	}, false))
	mux.HandleFunc(DetailsPath, mock.handler(func(body requestBody) (MockResponse, bool) {
		return mock.lookup(mock.details, body.URL)
	}, true))

	mock.server = httptest.NewServer(mux)
	return mock
}

type requestBody struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

func (m *MockAPI) handler(find func(requestBody) (MockResponse, bool), detail bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body requestBody
		decodeErr := json.NewDecoder(r.Body).Decode(&body)

		m.mu.Lock()
		m.RequestCount++
		m.LastContentType = r.Header.Get("Content-Type")
		m.LastUserAgent = r.Header.Get("User-Agent")
		if detail {
			m.DetailRequests[body.URL]++
			m.inFlight++
			if m.inFlight > m.maxInFlight {
				m.maxInFlight = m.inFlight
			}
		}
		m.mu.Unlock()

		if detail {
			defer func() {
				m.mu.Lock()
				m.inFlight--
				m.mu.Unlock()
			}()
		}

		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if decodeErr != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		resp, ok := find(body)
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		writeResponse(w, resp)
	}
}

func writeResponse(w http.ResponseWriter, resp MockResponse) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}

	if resp.Drop {
		hj, ok := w.(http.Hijacker)
		if !ok {
			panic("testutil: response writer does not support hijacking")
		}
		conn, _, err := hj.Hijack()
		if err == nil {
			conn.Close()
		}
		return
	}

	status := resp.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

func (m *MockAPI) lookup(table map[string]MockResponse, key string) (MockResponse, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	resp, ok := table[key]
	return resp, ok
}

// URL returns the mock server URL.
func (m *MockAPI) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockAPI) Close() {
	m.server.Close()
}

// SetCollections configures the list-collections response for a collection set.
func (m *MockAPI) SetCollections(set string, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections[set] = resp
}

// SetItems configures the list-items response for a collection locator.
func (m *MockAPI) SetItems(locator string, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[locator] = resp
}

// SetDetail configures the get-detail response for an item locator.
func (m *MockAPI) SetDetail(locator string, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.details[locator] = resp
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockAPI) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetDetailRequestCount returns how often get-detail was called for locator.
func (m *MockAPI) GetDetailRequestCount(locator string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.DetailRequests[locator]
}

// MaxDetailsInFlight returns the highest number of concurrent get-detail
// requests the server observed.
func (m *MockAPI) MaxDetailsInFlight() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.maxInFlight
}

// JSON marshals v for use as a response body and panics on failure.
func JSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(data)
}

// NewOKResponse creates a 200 OK response with a JSON body.
func NewOKResponse(body string) MockResponse {
	return MockResponse{StatusCode: http.StatusOK, Body: body}
}

// NewDelayedResponse creates a 200 OK response sent after delay.
func NewDelayedResponse(body string, delay time.Duration) MockResponse {
	return MockResponse{StatusCode: http.StatusOK, Body: body, Delay: delay}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
	}
}

// NewDroppedResponse creates a response that closes the connection.
func NewDroppedResponse() MockResponse {
	return MockResponse{Drop: true}
}
