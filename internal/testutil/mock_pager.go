package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// MockPagerResponse defines a canned response for a mock endpoint.
type MockPagerResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockPager is an httptest server serving paged JSON arrays.
//
// Endpoints registered with SetData answer GET path?page=N&page_size=M with
// the elements of that page as a JSON array and an X-Pages header.
type MockPager struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc
	data     map[string][]int

	// failures maps path -> page -> remaining failing responses
	failures map[string]map[int][]MockPagerResponse

	// Tracking
	RequestCount  int
	PageRequests  map[string][]int
	LastUserAgent string
}

// NewMockPager creates and starts a new mock server.
func NewMockPager() *MockPager {
	mock := &MockPager{
		handlers:     make(map[string]http.HandlerFunc),
		data:         make(map[string][]int),
		failures:     make(map[string]map[int][]MockPagerResponse),
		PageRequests: make(map[string][]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastUserAgent = r.Header.Get("User-Agent")
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}
		mock.pageHandler(w, r)
	}))

	return mock
}

// URL returns the server URL.
func (m *MockPager) URL() string {
	return m.server.URL
}

// Close shuts down the server.
func (m *MockPager) Close() {
	m.server.Close()
}

// SetData serves count numbered elements (0..count-1) under path.
func (m *MockPager) SetData(path string, count int) []int {
	data := make([]int, count)
	for i := range data {
		data[i] = i
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[path] = data
	return append([]int(nil), data...)
}

// SetHandler installs a custom handler for path.
func (m *MockPager) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for path.
func (m *MockPager) SetResponse(path string, resp MockPagerResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, resp)
	})
}

// FailPage queues responses returned for a page before it is served normally.
func (m *MockPager) FailPage(path string, page int, responses ...MockPagerResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures[path] == nil {
		m.failures[path] = make(map[int][]MockPagerResponse)
	}
	m.failures[path][page] = append(m.failures[path][page], responses...)
}

// GetRequestCount returns the number of requests served.
func (m *MockPager) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetPageRequests returns the page numbers requested for path, in order.
func (m *MockPager) GetPageRequests(path string) []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]int(nil), m.PageRequests[path]...)
}

func (m *MockPager) pageHandler(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		http.Error(w, `{"error": "invalid page"}`, http.StatusBadRequest)
		return
	}
	size, err := strconv.Atoi(r.URL.Query().Get("page_size"))
	if err != nil || size < 1 {
		http.Error(w, `{"error": "invalid page_size"}`, http.StatusBadRequest)
		return
	}

	m.mu.Lock()
	m.PageRequests[r.URL.Path] = append(m.PageRequests[r.URL.Path], page)
	data, exists := m.data[r.URL.Path]
	var failure *MockPagerResponse
	if queued := m.failures[r.URL.Path][page]; len(queued) > 0 {
		failure = &queued[0]
		m.failures[r.URL.Path][page] = queued[1:]
	}
	m.mu.Unlock()

	if failure != nil {
		writeResponse(w, *failure)
		return
	}
	if !exists {
		http.Error(w, `{"error": "not found"}`, http.StatusNotFound)
		return
	}

	pages := (len(data) + size - 1) / size
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Pages", strconv.Itoa(max(pages, 1)))

	start := (page - 1) * size
	if start >= len(data) {
		// pages past X-Pages are not found
		http.Error(w, `{"error": "page out of range"}`, http.StatusNotFound)
		return
	}
	end := min(start+size, len(data))

	body, _ := json.Marshal(data[start:end])
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func writeResponse(w http.ResponseWriter, resp MockPagerResponse) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockPagerResponse {
	return MockPagerResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockPagerResponse {
	return MockPagerResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error": "Rate limit exceeded"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewBadRequestResponse creates a 400 Bad Request response.
func NewBadRequestResponse() MockPagerResponse {
	return MockPagerResponse{
		StatusCode: http.StatusBadRequest,
		Body:       `{"error": "Bad request"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}
