package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gjovs/serverkit/internal/handler"
)

// Route is a thin facade over one router group. Verb methods register a
// handler plus zero or more middlewares, all adapted through the case
// conversion and state-injection pipeline. Registering the same method
// and path twice mounts it once; the duplicate is skipped.
type Route struct {
	server      *Server
	group       *gin.RouterGroup
	middlewares []handler.Handler
}

// With returns a derived Route sharing the same router group but with
// additional default middlewares applied to every registration made
// through it.
func (r *Route) With(mws ...handler.Handler) *Route {
	combined := make([]handler.Handler, 0, len(r.middlewares)+len(mws))
	combined = append(combined, r.middlewares...)
	combined = append(combined, mws...)
	return &Route{
		server:      r.server,
		group:       r.group,
		middlewares: combined,
	}
}

// GET registers a handler for GET requests
func (r *Route) GET(path string, h handler.Handler, mws ...handler.Handler) {
	r.handle(http.MethodGet, path, h, mws)
}

// POST registers a handler for POST requests
func (r *Route) POST(path string, h handler.Handler, mws ...handler.Handler) {
	r.handle(http.MethodPost, path, h, mws)
}

// PUT registers a handler for PUT requests
func (r *Route) PUT(path string, h handler.Handler, mws ...handler.Handler) {
	r.handle(http.MethodPut, path, h, mws)
}

// PATCH registers a handler for PATCH requests
func (r *Route) PATCH(path string, h handler.Handler, mws ...handler.Handler) {
	r.handle(http.MethodPatch, path, h, mws)
}

// DELETE registers a handler for DELETE requests
func (r *Route) DELETE(path string, h handler.Handler, mws ...handler.Handler) {
	r.handle(http.MethodDelete, path, h, mws)
}

// OPTIONS registers a handler for OPTIONS requests
func (r *Route) OPTIONS(path string, h handler.Handler, mws ...handler.Handler) {
	r.handle(http.MethodOptions, path, h, mws)
}

// HEAD registers a handler for HEAD requests
func (r *Route) HEAD(path string, h handler.Handler, mws ...handler.Handler) {
	r.handle(http.MethodHead, path, h, mws)
}

func (r *Route) handle(method, path string, h handler.Handler, mws []handler.Handler) {
	fullPath := joinPath(r.group.BasePath(), path)
	if !r.server.tryMount(method, fullPath) {
		r.server.logger.Debug("Route already mounted, skipping",
			zap.String("method", method), zap.String("path", fullPath))
		return
	}

	chain := make([]handler.Handler, 0, len(r.middlewares)+len(mws))
	chain = append(chain, r.middlewares...)
	chain = append(chain, mws...)

	r.group.Handle(method, path, adapt(h, chain...))
}
