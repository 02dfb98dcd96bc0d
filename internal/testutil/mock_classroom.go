// Package testutil provides testing utilities for the Classroom client.
package testutil

import (
	"embed"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

//go:embed testdata/*.json
var fixtures embed.FS

// Fixture returns the contents of a JSON fixture from testdata.
// It panics on unknown names since that is always a broken test.
func Fixture(name string) string {
	data, err := fixtures.ReadFile("testdata/" + name)
	if err != nil {
		panic(fmt.Sprintf("testutil: unknown fixture %q: %v", name, err))
	}
	return string(data)
}

// Paths served by the Classroom v1 API.
const (
	PathCourses = "/v1/courses"
	PathProfile = "/v1/userProfiles/me"
)

// CoursePath returns the path of a single course.
func CoursePath(courseID string) string {
	return fmt.Sprintf("/v1/courses/%s", courseID)
}

// StudentsPath returns the path of a course's student listing.
func StudentsPath(courseID string) string {
	return fmt.Sprintf("/v1/courses/%s/students", courseID)
}

// MockResponse defines the behavior for a mock Classroom endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockClassroom is a configurable mock Classroom API server for testing.
type MockClassroom struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	RequestCount      int
	PathCounts        map[string]int
	LastRequestHeader http.Header
}

// NewMockClassroom creates a new mock Classroom server.
func NewMockClassroom() *MockClassroom {
	mock := &MockClassroom{
		handlers:   make(map[string]func(w http.ResponseWriter, r *http.Request)),
		PathCounts: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.PathCounts[r.URL.Path]++
		mock.LastRequestHeader = r.Header.Clone()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		writeResponse(w, NewErrorResponse(http.StatusNotFound, "error_not_found.json"))
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockClassroom) URL() string {
	return m.server.URL
}

// Endpoint returns the base URL to hand to the Classroom client.
func (m *MockClassroom) Endpoint() string {
	return m.server.URL + "/"
}

// Close shuts down the mock server.
func (m *MockClassroom) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockClassroom) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.PathCounts = make(map[string]int)
	m.LastRequestHeader = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockClassroom) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockClassroom) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, resp)
	})
}

// SetPagedResponses configures a listing whose pages are selected by the
// pageToken query parameter. The first page is keyed by "".
func (m *MockClassroom) SetPagedResponses(path string, pages map[string]MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		resp, ok := pages[r.URL.Query().Get("pageToken")]
		if !ok {
			resp = NewErrorResponse(http.StatusBadRequest, "error_not_found.json")
		}
		writeResponse(w, resp)
	})
}

// SetSequence configures responses served in order, one per request. The
// last response repeats once the sequence is used up.
func (m *MockClassroom) SetSequence(path string, responses ...MockResponse) {
	var mu sync.Mutex
	next := 0
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		resp := responses[next]
		if next < len(responses)-1 {
			next++
		}
		mu.Unlock()
		writeResponse(w, resp)
	})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockClassroom) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetPathCount returns the number of requests made to a path.
func (m *MockClassroom) GetPathCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.PathCounts[path]
}

// LastAuthorization returns the Authorization header of the latest request.
func (m *MockClassroom) LastAuthorization() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastRequestHeader.Get("Authorization")
}

func writeResponse(w http.ResponseWriter, resp MockResponse) {
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

// NewFixtureResponse creates a 200 OK JSON response from a fixture.
func NewFixtureResponse(fixture string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       Fixture(fixture),
		Headers: map[string]string{
			"Content-Type": "application/json; charset=UTF-8",
		},
	}
}

// NewErrorResponse creates an error response whose body is a fixture.
func NewErrorResponse(status int, fixture string) MockResponse {
	return MockResponse{
		StatusCode: status,
		Body:       Fixture(fixture),
		Headers: map[string]string{
			"Content-Type": "application/json; charset=UTF-8",
		},
	}
}

// NewThrottledResponse creates a 429 RESOURCE_EXHAUSTED response.
func NewThrottledResponse() MockResponse {
	return NewErrorResponse(http.StatusTooManyRequests, "error_throttled.json")
}

// NewEndlessPagesHandler creates a listing handler that always reports a
// further page. Each page carries one course.
func NewEndlessPagesHandler() func(w http.ResponseWriter, r *http.Request) {
	var mu sync.Mutex
	served := 0
	return func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		served++
		n := served
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json; charset=UTF-8")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"courses":[{"id":"%d","name":"Course %d","courseState":"ACTIVE"}],"nextPageToken":"page-%d"}`, n, n, n+1)
	}
}
