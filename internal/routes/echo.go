package routes

import (
	"context"

	"github.com/gjovs/serverkit/internal/handler"
	"github.com/gjovs/serverkit/internal/httpserver"
)

func init() {
	httpserver.Routes.Register("echo", func(r *httpserver.Route) {
		r.POST("echo", handler.Func(echo))
	})
}

// echo returns the adapted request body, so clients see their payload
// round-tripped through the case conversion pipeline.
func echo(ctx context.Context, c *handler.Context) (*handler.Result, error) {
	return &handler.Result{
		StatusCode: 200,
		Body:       c.Body,
	}, nil
}
