// Package wsserver provides the WebSocket server layer: event handler
// registration, directory-based event module loading, and dispatch of
// incoming socket frames through the same adaptation pipeline as HTTP
// routes (case conversion + per-invocation state bag).
//
// A Server is explicitly constructed against one HTTP server and mounts
// its upgrade endpoint on that server's router.
package wsserver

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/gjovs/serverkit/internal/handler"
	"github.com/gjovs/serverkit/internal/httpserver"
	"github.com/gjovs/serverkit/internal/registry"
	"github.com/gjovs/serverkit/pkg/caseconv"
	"github.com/gjovs/serverkit/pkg/config"
)

// Events is the process-wide registration table for event handler
// modules, the WebSocket counterpart of httpserver.Routes.
var Events = registry.NewTable[*Server]()

// EventOptions describes one registered event
type EventOptions struct {
	Name    string
	Enabled bool
	// Payload is the default payload handed to the handlers when an
	// incoming frame carries none.
	Payload map[string]any
}

// eventDescriptor pairs the options with the handler chain. Descriptors
// accumulate during registration and are materialized into the dispatch
// table by LoadEvents.
type eventDescriptor struct {
	options   EventOptions
	callbacks []handler.Handler
}

// frame is the wire format of one socket message in either direction
type frame struct {
	Event   string         `json:"event"`
	Payload map[string]any `json:"payload,omitempty"`
}

// client is one connected socket
type client struct {
	id   string
	conn *websocket.Conn

	writeMu sync.Mutex
}

// Server owns the registered event descriptors and the live socket set
type Server struct {
	http     *httpserver.Server
	cfg      *config.Config
	logger   *zap.Logger
	upgrader websocket.Upgrader

	mu           sync.Mutex
	descriptors  []*eventDescriptor
	dispatch     map[string]*eventDescriptor
	connected    bool
	onDisconnect func(socketID string)

	clientsMu sync.RWMutex
	clients   map[string]*client
}

// New creates a WebSocket server bound to the given HTTP server and
// attaches it to that server's lifecycle. The HTTP server keeps its
// first attachment; constructing a second Server against it logs a
// warning there and the second server never bootstraps.
func New(httpSrv *httpserver.Server, cfg *config.Config, logger *zap.Logger) *Server {
	s := &Server{
		http:   httpSrv,
		cfg:    cfg,
		logger: logger.Named("wsserver"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		dispatch: make(map[string]*eventDescriptor),
		clients:  make(map[string]*client),
	}
	httpSrv.AttachWebSocket(s)
	return s
}

// Register stores an event descriptor. Disabled descriptors are never
// stored, so LoadEvents binds nothing for them.
func (s *Server) Register(opts EventOptions, callbacks ...handler.Handler) {
	if !opts.Enabled {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.descriptors = append(s.descriptors, &eventDescriptor{
		options:   opts,
		callbacks: callbacks,
	})
}

// LoadEvents materializes the stored descriptors into the dispatch
// table, one entry per descriptor name.
func (s *Server) LoadEvents() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.descriptors {
		s.dispatch[d.options.Name] = d
	}
}

// LoadEventsAsync binds the stored descriptors concurrently. All
// bindings complete before it returns; their relative order is
// unspecified.
func (s *Server) LoadEventsAsync(ctx context.Context) error {
	s.mu.Lock()
	descriptors := make([]*eventDescriptor, len(s.descriptors))
	copy(descriptors, s.descriptors)
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, d := range descriptors {
		wg.Add(1)
		go func(d *eventDescriptor) {
			defer wg.Done()
			s.mu.Lock()
			s.dispatch[d.options.Name] = d
			s.mu.Unlock()
		}(d)
	}
	wg.Wait()
	return ctx.Err()
}

// EventsDirectory discovers event handler module files in dir and
// invokes each registered setup with this server, mirroring the HTTP
// directory loader's soft-skip policy.
func (s *Server) EventsDirectory(dir string) error {
	names, err := registry.Discover(dir)
	if err != nil {
		return err
	}

	for _, name := range names {
		setup, ok := Events.Lookup(name)
		if !ok {
			s.logger.Debug("No event setup registered for module, skipping",
				zap.String("module", name), zap.String("dir", dir))
			continue
		}
		setup(s)
	}
	return nil
}

// Connect mounts the upgrade endpoint on the HTTP server's router and
// installs the disconnect callback (default: no-op). Calling Connect
// again only replaces the callback.
func (s *Server) Connect(onDisconnect func(socketID string)) {
	if onDisconnect == nil {
		onDisconnect = func(string) {}
	}

	s.mu.Lock()
	s.onDisconnect = onDisconnect
	if s.connected {
		s.mu.Unlock()
		return
	}
	s.connected = true
	s.mu.Unlock()

	s.http.Engine().GET(s.cfg.WebSocket.Path, func(c *gin.Context) {
		conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			s.logger.Error("Failed to upgrade connection", zap.Error(err))
			return
		}
		go s.handleClient(conn)
	})
}

// Bootstrap wires the connection handling and binds the registered
// events. Called by the HTTP server during ListenAsync.
func (s *Server) Bootstrap(ctx context.Context) error {
	s.mu.Lock()
	onDisconnect := s.onDisconnect
	s.mu.Unlock()

	s.Connect(onDisconnect)
	return s.LoadEventsAsync(ctx)
}

func (s *Server) handleClient(conn *websocket.Conn) {
	defer conn.Close()

	cl := &client{id: uuid.New().String(), conn: conn}

	s.clientsMu.Lock()
	s.clients[cl.id] = cl
	s.clientsMu.Unlock()

	s.logger.Info("WebSocket client connected", zap.String("socket_id", cl.id))

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.logger.Error("WebSocket read error", zap.Error(err))
			}
			break
		}

		var f frame
		if err := json.Unmarshal(message, &f); err != nil {
			s.logger.Error("Failed to parse frame", zap.Error(err))
			continue
		}
		s.dispatchFrame(cl, f)
	}

	s.clientsMu.Lock()
	if existing, ok := s.clients[cl.id]; ok && existing == cl {
		delete(s.clients, cl.id)
	}
	s.clientsMu.Unlock()

	s.mu.Lock()
	onDisconnect := s.onDisconnect
	s.mu.Unlock()
	if onDisconnect != nil {
		onDisconnect(cl.id)
	}
	s.logger.Info("WebSocket client disconnected", zap.String("socket_id", cl.id))
}

// dispatchFrame runs the adapted handler chain for one incoming frame
// and writes the reply, if the chain produced one.
func (s *Server) dispatchFrame(cl *client, f frame) {
	s.mu.Lock()
	d, ok := s.dispatch[f.Event]
	s.mu.Unlock()
	if !ok {
		s.logger.Debug("No handler bound for event", zap.String("event", f.Event))
		return
	}

	payload := f.Payload
	if payload == nil {
		payload = d.options.Payload
	}
	if payload == nil {
		payload = map[string]any{}
	}

	body, _ := caseconv.KeysToCamel(payload).(map[string]any)
	hc := handler.NewContext(body, nil, nil)

	var (
		res *handler.Result
		err error
	)
	if len(d.callbacks) == 0 {
		return
	}
	terminal := d.callbacks[len(d.callbacks)-1]
	middlewares := d.callbacks[:len(d.callbacks)-1]
	res, err = handler.Run(context.Background(), hc, terminal, middlewares...)
	if err != nil {
		s.logger.Error("Event handler failed",
			zap.String("event", f.Event), zap.Error(err))
		return
	}
	if res == nil {
		return
	}

	reply := frame{Event: f.Event}
	if res.Body != nil {
		if converted, ok := caseconv.KeysToSnake(res.Body).(map[string]any); ok {
			reply.Payload = converted
		}
	}

	cl.writeMu.Lock()
	defer cl.writeMu.Unlock()
	if err := cl.conn.WriteJSON(reply); err != nil {
		s.logger.Error("Failed to write reply",
			zap.String("event", f.Event), zap.Error(err))
	}
}

// BoundEvents returns the number of events currently bound for dispatch
func (s *Server) BoundEvents() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.dispatch)
}

// Close closes all live connections
func (s *Server) Close() error {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	for _, cl := range s.clients {
		cl.conn.Close()
	}
	s.clients = make(map[string]*client)
	return nil
}
