// Package httpserver provides the HTTP server layer: a registry of
// deduplicated routes keyed by (path, baseURL), directory-based handler
// module loading, idempotent listen/refresh/close lifecycle, and the
// request adaptation pipeline (case conversion + per-request state bag).
//
// A Server is explicitly constructed and passed around; there is no
// package-level instance.
package httpserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gjovs/serverkit/internal/handler"
	"github.com/gjovs/serverkit/internal/registry"
	"github.com/gjovs/serverkit/pkg/config"
	"github.com/gjovs/serverkit/pkg/middleware"
)

// Routes is the process-wide registration table for route handler
// modules. A module file registers its setup here (typically from init)
// under its own file base name; RoutesDirectory invokes the setup for
// every eligible file discovered.
var Routes = registry.NewTable[*Route]()

// WebSocketAttachment is the narrow contract the HTTP server needs from
// an attached WebSocket server: bootstrap on ListenAsync, close on Close.
type WebSocketAttachment interface {
	Bootstrap(ctx context.Context) error
	Close() error
}

// routerEntry tracks one registered route. Identity is the
// (path, baseURL) pair; hidden entries back anonymous bulk-loaded routes
// and are excluded from lookup. Entries live for the server lifetime.
type routerEntry struct {
	path    string
	baseURL string
	route   *Route
	hidden  bool
	loaded  bool
}

// Server owns the router, the registered route entries and the HTTP
// listener lifecycle.
type Server struct {
	cfg    *config.Config
	logger *zap.Logger
	engine *gin.Engine

	mu       sync.Mutex
	entries  []*routerEntry
	mounted  map[string]bool // method + full path, guards duplicate mounts
	baseURL  string
	started  bool
	httpSrv  *http.Server
	listener net.Listener

	lastPort     int
	lastCallback func()

	startupCallbacks []func(context.Context) error
	ws               WebSocketAttachment
	limiter          *middleware.RateLimiter
}

// New creates a Server with the common middleware stack mounted
// (recovery, request id, request logging, CORS).
func New(cfg *config.Config, logger *zap.Logger) *Server {
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Logger(logger))
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    cfg.CORS.ExposedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           time.Duration(cfg.CORS.MaxAge) * time.Second,
	}))

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(middleware.RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
			BurstSize:         cfg.RateLimit.BurstSize,
		}, logger)
		engine.Use(middleware.RateLimitMiddleware(limiter, logger))
	}

	return &Server{
		cfg:     cfg,
		logger:  logger.Named("httpserver"),
		engine:  engine,
		mounted: make(map[string]bool),
		baseURL: normalizePrefix(cfg.Server.BaseURL),
		limiter: limiter,
	}
}

// Engine exposes the underlying router. Used by the WebSocket server to
// mount its upgrade endpoint.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// AttachWebSocket binds a WebSocket server to this server's lifecycle.
// The first attachment wins; later calls are ignored with a warning.
func (s *Server) AttachWebSocket(ws WebSocketAttachment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ws != nil {
		s.logger.Warn("WebSocket server already attached, ignoring")
		return
	}
	s.ws = ws
}

// SetBaseURL sets the global URL prefix for routes created afterwards.
// Ignored with a warning once the server has started, since already
// mounted paths cannot be moved.
func (s *Server) SetBaseURL(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		s.logger.Warn("SetBaseURL called after server start, ignoring",
			zap.String("base_url", url))
		return
	}
	s.baseURL = normalizePrefix(url)
}

// BaseURL returns the current global prefix
func (s *Server) BaseURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.baseURL
}

// Route returns the route registered under (path, baseURL), creating it
// if needed. Identical pairs share one underlying router group; hidden
// entries are never returned. An empty baseURL means the server's
// global prefix.
func (s *Server) Route(path, baseURL string) *Route {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		if !e.hidden && e.path == path && e.baseURL == baseURL {
			return e.route
		}
	}
	return s.newEntry(path, baseURL, false).route
}

// newEntry creates a route entry. Caller holds s.mu.
func (s *Server) newEntry(path, baseURL string, hidden bool) *routerEntry {
	prefix := baseURL
	if prefix == "" {
		prefix = s.baseURL
	}
	group := s.engine.Group(joinPath(prefix, path))

	entry := &routerEntry{
		path:    path,
		baseURL: baseURL,
		hidden:  hidden,
		route: &Route{
			server: s,
			group:  group,
		},
	}
	s.entries = append(s.entries, entry)
	return entry
}

// RoutesDirectory discovers handler module files in dir and invokes the
// registered setup of each one with a route. A route supplied via
// WithRoute is reused; otherwise a fresh hidden route is created for
// this call. Discovered files without a registered setup are skipped.
func (s *Server) RoutesDirectory(dir string, opts ...RoutesOption) error {
	var o routesOptions
	for _, opt := range opts {
		opt(&o)
	}

	names, err := registry.Discover(dir)
	if err != nil {
		return err
	}

	route := o.route
	var entry *routerEntry
	if route == nil {
		s.mu.Lock()
		entry = s.newEntry("", "", true)
		s.mu.Unlock()
		route = entry.route
	}
	if len(o.middlewares) > 0 {
		route = route.With(o.middlewares...)
	}

	for _, name := range names {
		setup, ok := Routes.Lookup(name)
		if !ok {
			s.logger.Debug("No route setup registered for module, skipping",
				zap.String("module", name), zap.String("dir", dir))
			continue
		}
		setup(route)
	}

	if entry != nil {
		entry.loaded = true
	}
	return nil
}

// RoutesOption configures a RoutesDirectory call
type RoutesOption func(*routesOptions)

type routesOptions struct {
	route       *Route
	middlewares []handler.Handler
}

// WithRoute reuses an existing route for every discovered registration
func WithRoute(r *Route) RoutesOption {
	return func(o *routesOptions) { o.route = r }
}

// WithMiddlewares applies middlewares to every discovered registration
func WithMiddlewares(mws ...handler.Handler) RoutesOption {
	return func(o *routesOptions) { o.middlewares = mws }
}

// Use mounts global middlewares, adapted through the same pipeline as
// route handlers.
func (s *Server) Use(mws ...handler.Handler) {
	for _, mw := range mws {
		s.engine.Use(adaptMiddleware(mw))
	}
}

// UseAt mounts middlewares scoped to requests whose path starts with
// the given prefix.
func (s *Server) UseAt(path string, mws ...handler.Handler) {
	prefix := joinPath(path, "")
	for _, mw := range mws {
		ginMw := adaptMiddleware(mw)
		s.engine.Use(func(c *gin.Context) {
			if !strings.HasPrefix(c.Request.URL.Path, prefix) {
				c.Next()
				return
			}
			ginMw(c)
		})
	}
}

// OnStartup registers a callback run by ListenAsync before the port is
// bound. Callbacks run concurrently with no ordering guarantee.
func (s *Server) OnStartup(fn func(ctx context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startupCallbacks = append(s.startupCallbacks, fn)
}

// Listen binds the port and serves in the background. A second call
// while started is a no-op.
func (s *Server) Listen(port int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listenLocked(port, nil)
}

// ListenAsync runs the registered startup callbacks concurrently,
// bootstraps the attached WebSocket server, then binds the port and
// invokes callback. Idempotent like Listen.
func (s *Server) ListenAsync(ctx context.Context, port int, callback func()) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	callbacks := make([]func(context.Context) error, len(s.startupCallbacks))
	copy(callbacks, s.startupCallbacks)
	ws := s.ws
	s.mu.Unlock()

	if err := runStartupCallbacks(ctx, callbacks); err != nil {
		return err
	}

	if ws != nil {
		if err := ws.Bootstrap(ctx); err != nil {
			return fmt.Errorf("failed to bootstrap websocket server: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listenLocked(port, callback)
}

// listenLocked binds and serves. Caller holds s.mu.
func (s *Server) listenLocked(port int, callback func()) error {
	if s.started {
		return nil
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", addr, err)
	}

	s.httpSrv = &http.Server{
		Handler:      s.engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	s.listener = ln
	s.started = true
	s.lastPort = port
	s.lastCallback = callback

	srv := s.httpSrv
	go func() {
		s.logger.Info("HTTP server listening", zap.String("address", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	if callback != nil {
		callback()
	}
	return nil
}

// runStartupCallbacks fans the callbacks out and waits for all of them.
// Relative completion order is unspecified.
func runStartupCallbacks(ctx context.Context, callbacks []func(context.Context) error) error {
	if len(callbacks) == 0 {
		return nil
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(callbacks))
	for _, fn := range callbacks {
		wg.Add(1)
		go func(fn func(context.Context) error) {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				errs <- err
			}
		}(fn)
	}
	wg.Wait()
	close(errs)

	if err := <-errs; err != nil {
		return fmt.Errorf("startup callback failed: %w", err)
	}
	return nil
}

// Addr returns the bound address, or nil until Listen completes
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Refresh closes the listener and re-listens with the last used port
// and callback. No-op if the server never started.
func (s *Server) Refresh() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	port := s.lastPort
	callback := s.lastCallback
	srv := s.httpSrv
	s.started = false
	s.listener = nil
	s.httpSrv = nil
	s.mu.Unlock()

	if err := srv.Close(); err != nil {
		return fmt.Errorf("failed to close server on refresh: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listenLocked(port, callback)
}

// Close closes the HTTP listener and the attached WebSocket server.
// No-op if the server never started.
func (s *Server) Close() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	srv := s.httpSrv
	ws := s.ws
	s.started = false
	s.listener = nil
	s.httpSrv = nil
	s.mu.Unlock()

	if s.limiter != nil {
		s.limiter.Stop()
	}
	if ws != nil {
		if err := ws.Close(); err != nil {
			s.logger.Error("Failed to close websocket server", zap.Error(err))
		}
	}
	return srv.Close()
}

// Shutdown gracefully drains in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	srv := s.httpSrv
	ws := s.ws
	s.started = false
	s.listener = nil
	s.httpSrv = nil
	s.mu.Unlock()

	if s.limiter != nil {
		s.limiter.Stop()
	}
	if ws != nil {
		if err := ws.Close(); err != nil {
			s.logger.Error("Failed to close websocket server", zap.Error(err))
		}
	}
	return srv.Shutdown(ctx)
}

// tryMount records a (method, path) mount and reports whether it is new.
// Duplicate mounts are skipped by the caller; gin panics on re-register.
func (s *Server) tryMount(method, fullPath string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := method + " " + fullPath
	if s.mounted[key] {
		return false
	}
	s.mounted[key] = true
	return true
}

// normalizePrefix ensures a non-empty prefix starts with / and has no
// trailing slash.
func normalizePrefix(p string) string {
	if p == "" {
		return ""
	}
	p = "/" + strings.Trim(p, "/")
	if p == "/" {
		return ""
	}
	return p
}

// joinPath joins prefix and path into a clean absolute route path
func joinPath(prefix, path string) string {
	joined := strings.Trim(prefix, "/") + "/" + strings.Trim(path, "/")
	joined = "/" + strings.Trim(joined, "/")
	return joined
}
