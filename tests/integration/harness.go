package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gjovs/serverkit/internal/cache/memory"
	"github.com/gjovs/serverkit/internal/httpserver"
	"github.com/gjovs/serverkit/pkg/config"

	// Register the route handler modules so directory loading finds them
	_ "github.com/gjovs/serverkit/internal/routes"
)

// routesDir points at the real route modules, relative to this package
const routesDir = "../../internal/routes"

// TestHarness provides a complete test environment with an HTTP server,
// a memory cache store, and helper methods for making API requests.
type TestHarness struct {
	T      *testing.T
	Server *httptest.Server
	Config *config.Config
	HTTP   *httpserver.Server
	Cache  *memory.Store
	Logger *zap.Logger

	// Client is a pre-configured HTTP client for making requests
	Client *http.Client

	// BaseURL is the URL of the test server
	BaseURL string
}

// TestHarnessOption configures the test harness
type TestHarnessOption func(*TestHarness)

// WithConfig sets a custom config for the test harness
func WithConfig(cfg *config.Config) TestHarnessOption {
	return func(h *TestHarness) {
		h.Config = cfg
	}
}

// NewTestHarness creates a new test harness with a running test server.
// The real route modules directory is loaded, so the harness serves the
// same endpoints as the production binary.
func NewTestHarness(t *testing.T, opts ...TestHarnessOption) *TestHarness {
	t.Helper()

	gin.SetMode(gin.TestMode)

	logger := zap.NewNop()

	h := &TestHarness{
		T:      t,
		Logger: logger,
		Client: &http.Client{},
		Cache:  memory.NewStore(),
	}

	for _, opt := range opts {
		opt(h)
	}

	if h.Config == nil {
		h.Config = &config.Config{
			Server: config.ServerConfig{
				Host: "127.0.0.1",
			},
			Logging: config.LoggingConfig{Level: "info", Format: "json"},
			CORS: config.CORSConfig{
				AllowedOrigins: []string{"*"},
				AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			},
			Cache: config.CacheConfig{Type: "memory"},
		}
	}

	h.HTTP = httpserver.New(h.Config, logger)
	if err := h.HTTP.RoutesDirectory(routesDir); err != nil {
		t.Fatalf("Failed to load routes directory: %v", err)
	}

	h.Server = httptest.NewServer(h.HTTP.Engine())
	h.BaseURL = h.Server.URL

	t.Cleanup(func() {
		h.Server.Close()
	})

	return h
}

// Request makes an HTTP request to the test server
func (h *TestHarness) Request(method, path string, body interface{}) *Response {
	h.T.Helper()

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			h.T.Fatalf("Failed to marshal request body: %v", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequest(method, h.BaseURL+path, bodyReader)
	if err != nil {
		h.T.Fatalf("Failed to create request: %v", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return h.Do(req)
}

// Do executes an HTTP request and returns a Response wrapper
func (h *TestHarness) Do(req *http.Request) *Response {
	h.T.Helper()

	resp, err := h.Client.Do(req)
	if err != nil {
		h.T.Fatalf("Request failed: %v", err)
	}

	return &Response{
		T:        h.T,
		Response: resp,
	}
}

// GET makes a GET request
func (h *TestHarness) GET(path string) *Response {
	return h.Request(http.MethodGet, path, nil)
}

// POST makes a POST request with a JSON body
func (h *TestHarness) POST(path string, body interface{}) *Response {
	return h.Request(http.MethodPost, path, body)
}

// Response wraps an HTTP response with assertion helpers
type Response struct {
	T        *testing.T
	Response *http.Response
	body     []byte
	bodyRead bool
}

// Body returns the response body as bytes
func (r *Response) Body() []byte {
	r.T.Helper()
	if !r.bodyRead {
		var err error
		r.body, err = io.ReadAll(r.Response.Body)
		if err != nil {
			r.T.Fatalf("Failed to read response body: %v", err)
		}
		r.Response.Body.Close()
		r.bodyRead = true
	}
	return r.body
}

// JSON unmarshals the response body into the given target
func (r *Response) JSON(target interface{}) *Response {
	r.T.Helper()
	if err := json.Unmarshal(r.Body(), target); err != nil {
		r.T.Fatalf("Failed to unmarshal response: %v\nBody: %s", err, string(r.Body()))
	}
	return r
}

// Status asserts the response status code
func (r *Response) Status(expected int) *Response {
	r.T.Helper()
	if r.Response.StatusCode != expected {
		r.T.Errorf("Expected status %d, got %d\nBody: %s", expected, r.Response.StatusCode, string(r.Body()))
	}
	return r
}

// Header returns the value of a response header
func (r *Response) Header(name string) string {
	return r.Response.Header.Get(name)
}

// BodyContains asserts the response body contains a substring
func (r *Response) BodyContains(substr string) *Response {
	r.T.Helper()
	if !bytes.Contains(r.Body(), []byte(substr)) {
		r.T.Errorf("Expected body to contain %q\nBody: %s", substr, string(r.Body()))
	}
	return r
}

// Pretty returns pretty-printed JSON for debugging
func (r *Response) Pretty() string {
	var v interface{}
	if err := json.Unmarshal(r.Body(), &v); err != nil {
		return string(r.Body())
	}
	pretty, _ := json.MarshalIndent(v, "", "  ")
	return string(pretty)
}

// Debug logs the response for debugging
func (r *Response) Debug() *Response {
	fmt.Printf("=== Response ===\nStatus: %d\nHeaders: %v\nBody:\n%s\n================\n",
		r.Response.StatusCode, r.Response.Header, r.Pretty())
	return r
}
