// Package routes holds the route handler modules. Each file registers
// its setup under its own base name, so directory loading picks it up
// when the routes directory is scanned.
package routes

import (
	"context"

	"github.com/gjovs/serverkit/internal/handler"
	"github.com/gjovs/serverkit/internal/httpserver"
)

func init() {
	httpserver.Routes.Register("health", func(r *httpserver.Route) {
		r.GET("health", handler.Func(health))
	})
}

func health(ctx context.Context, c *handler.Context) (*handler.Result, error) {
	return &handler.Result{
		StatusCode: 200,
		Body: map[string]any{
			"status":  "ok",
			"service": "serverkit",
		},
	}, nil
}
