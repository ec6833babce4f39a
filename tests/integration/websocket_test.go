package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/gjovs/serverkit/internal/httpserver"
	"github.com/gjovs/serverkit/internal/wsserver"
	"github.com/gjovs/serverkit/pkg/config"

	// Register the event handler modules for directory loading
	_ "github.com/gjovs/serverkit/internal/events"
)

const eventsDir = "../../internal/events"

// TestWebSocket_FullBootstrap exercises the production startup path:
// events directory load, ListenAsync bootstrap, then a live socket
// round trip.
func TestWebSocket_FullBootstrap(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Server:    config.ServerConfig{Host: "127.0.0.1"},
		WebSocket: config.WebSocketConfig{Enabled: true, Path: "/ws"},
		Logging:   config.LoggingConfig{Level: "info"},
		CORS: config.CORSConfig{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST"},
		},
	}

	srv := httpserver.New(cfg, zap.NewNop())
	ws := wsserver.New(srv, cfg, zap.NewNop())

	if err := ws.EventsDirectory(eventsDir); err != nil {
		t.Fatalf("EventsDirectory() error = %v", err)
	}

	if err := srv.ListenAsync(context.Background(), 0, nil); err != nil {
		t.Fatalf("ListenAsync() error = %v", err)
	}
	defer srv.Close()

	url := fmt.Sprintf("ws://%s/ws", srv.Addr())
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial(%s) error = %v", url, err)
	}
	defer conn.Close()

	err = conn.WriteJSON(map[string]any{
		"event":   "ping",
		"payload": map[string]any{"message": "hi"},
	})
	if err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var reply struct {
		Event   string         `json:"event"`
		Payload map[string]any `json:"payload"`
	}
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}

	if reply.Event != "ping" {
		t.Errorf("reply event = %q, want ping", reply.Event)
	}
	if reply.Payload["message"] != "pong" {
		t.Errorf("reply payload = %v, want message pong", reply.Payload)
	}
	if reply.Payload["received"] != "hi" {
		t.Errorf("reply payload = %v, want received hi", reply.Payload)
	}
}
