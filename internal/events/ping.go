// Package events holds the event handler modules, registered under
// their file base names like the route modules.
package events

import (
	"context"

	"github.com/gjovs/serverkit/internal/handler"
	"github.com/gjovs/serverkit/internal/wsserver"
)

func init() {
	wsserver.Events.Register("ping", func(ws *wsserver.Server) {
		ws.Register(wsserver.EventOptions{
			Name:    "ping",
			Enabled: true,
			Payload: map[string]any{"message": "ping"},
		}, handler.Func(ping))
	})
}

func ping(ctx context.Context, c *handler.Context) (*handler.Result, error) {
	msg, _ := c.Body["message"].(string)
	return &handler.Result{
		Body: map[string]any{
			"message":  "pong",
			"received": msg,
		},
	}, nil
}
