package wsserver

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/gjovs/serverkit/internal/handler"
	"github.com/gjovs/serverkit/internal/httpserver"
	"github.com/gjovs/serverkit/pkg/config"
)

func newTestServers(t *testing.T) (*httpserver.Server, *Server) {
	t.Helper()
	cfg := &config.Config{
		Server:    config.ServerConfig{Host: "127.0.0.1"},
		WebSocket: config.WebSocketConfig{Enabled: true, Path: "/ws"},
		Logging:   config.LoggingConfig{Level: "info"},
		CORS: config.CORSConfig{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST"},
		},
	}
	httpSrv := httpserver.New(cfg, zap.NewNop())
	return httpSrv, New(httpSrv, cfg, zap.NewNop())
}

func dial(t *testing.T, httpSrv *httpserver.Server) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(httpSrv.Engine())
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial(%s) error = %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestRegister_DisabledNeverStored(t *testing.T) {
	_, ws := newTestServers(t)

	ws.Register(EventOptions{Name: "off", Enabled: false}, handler.Func(
		func(ctx context.Context, c *handler.Context) (*handler.Result, error) {
			return nil, nil
		}))
	ws.LoadEvents()

	if got := ws.BoundEvents(); got != 0 {
		t.Errorf("BoundEvents() = %d, want 0 for disabled descriptor", got)
	}
}

func TestLoadEvents(t *testing.T) {
	_, ws := newTestServers(t)

	noop := handler.Func(func(ctx context.Context, c *handler.Context) (*handler.Result, error) {
		return nil, nil
	})
	ws.Register(EventOptions{Name: "a", Enabled: true}, noop)
	ws.Register(EventOptions{Name: "b", Enabled: true}, noop)
	ws.LoadEvents()

	if got := ws.BoundEvents(); got != 2 {
		t.Errorf("BoundEvents() = %d, want 2", got)
	}
}

func TestLoadEventsAsync(t *testing.T) {
	_, ws := newTestServers(t)

	noop := handler.Func(func(ctx context.Context, c *handler.Context) (*handler.Result, error) {
		return nil, nil
	})
	for _, name := range []string{"a", "b", "c"} {
		ws.Register(EventOptions{Name: name, Enabled: true}, noop)
	}

	if err := ws.LoadEventsAsync(context.Background()); err != nil {
		t.Fatalf("LoadEventsAsync() error = %v", err)
	}
	if got := ws.BoundEvents(); got != 3 {
		t.Errorf("BoundEvents() = %d, want 3", got)
	}
}

func TestEventsDirectory(t *testing.T) {
	_, ws := newTestServers(t)

	var setups int
	Events.Register("presence", func(s *Server) {
		setups++
		s.Register(EventOptions{Name: "presence", Enabled: true}, handler.Func(
			func(ctx context.Context, c *handler.Context) (*handler.Result, error) {
				return nil, nil
			}))
	})

	dir := t.TempDir()
	for _, f := range []string{"presence.go", "presence.spec.go", "unknown.go"} {
		if err := os.WriteFile(filepath.Join(dir, f), []byte("module"), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	if err := ws.EventsDirectory(dir); err != nil {
		t.Fatalf("EventsDirectory() error = %v", err)
	}
	if setups != 1 {
		t.Errorf("setup ran %d times, want 1", setups)
	}
	ws.LoadEvents()
	if got := ws.BoundEvents(); got != 1 {
		t.Errorf("BoundEvents() = %d, want 1", got)
	}
}

func TestEventsDirectory_UnreadableDir(t *testing.T) {
	_, ws := newTestServers(t)
	if err := ws.EventsDirectory(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("EventsDirectory(missing) error = nil, want error")
	}
}

func TestDispatch_EndToEnd(t *testing.T) {
	httpSrv, ws := newTestServers(t)

	ws.Register(EventOptions{Name: "greet", Enabled: true}, handler.Func(
		func(ctx context.Context, c *handler.Context) (*handler.Result, error) {
			// snake_case payload keys arrive camelCased
			name, _ := c.Body["userName"].(string)
			return &handler.Result{Body: map[string]any{"helloTo": name}}, nil
		}))
	ws.LoadEvents()
	ws.Connect(nil)

	conn := dial(t, httpSrv)

	err := conn.WriteJSON(map[string]any{
		"event":   "greet",
		"payload": map[string]any{"user_name": "ada"},
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

	if reply.Event != "greet" {
		t.Errorf("reply event = %q, want greet", reply.Event)
	}
	if reply.Payload["hello_to"] != "ada" {
		t.Errorf("reply payload = %v, want snake_cased {\"hello_to\":\"ada\"}", reply.Payload)
	}
}

func TestDispatch_DefaultPayload(t *testing.T) {
	httpSrv, ws := newTestServers(t)

	ws.Register(EventOptions{
		Name:    "tick",
		Enabled: true,
		Payload: map[string]any{"interval_ms": 100},
	}, handler.Func(
		func(ctx context.Context, c *handler.Context) (*handler.Result, error) {
			return &handler.Result{Body: map[string]any{"intervalMs": c.Body["intervalMs"]}}, nil
		}))
	ws.LoadEvents()
	ws.Connect(nil)

	conn := dial(t, httpSrv)

	if err := conn.WriteJSON(map[string]any{"event": "tick"}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var reply struct {
		Payload map[string]any `json:"payload"`
	}
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if reply.Payload["interval_ms"] != float64(100) {
		t.Errorf("payload = %v, want default interval_ms 100", reply.Payload)
	}
}

func TestConnect_DisconnectHook(t *testing.T) {
	httpSrv, ws := newTestServers(t)

	disconnected := make(chan string, 1)
	ws.Connect(func(socketID string) {
		disconnected <- socketID
	})

	conn := dial(t, httpSrv)
	conn.Close()

	select {
	case id := <-disconnected:
		if id == "" {
			t.Error("disconnect hook received empty socket id")
		}
	case <-time.After(2 * time.Second):
		t.Error("disconnect hook not invoked")
	}
}

func TestBootstrap(t *testing.T) {
	_, ws := newTestServers(t)

	ws.Register(EventOptions{Name: "boot", Enabled: true}, handler.Func(
		func(ctx context.Context, c *handler.Context) (*handler.Result, error) {
			return nil, nil
		}))

	if err := ws.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap() error = %v", err)
	}
	if got := ws.BoundEvents(); got != 1 {
		t.Errorf("BoundEvents() = %d, want 1 after Bootstrap", got)
	}
}
