// Package dashboard provides a real-time WebSocket server for board activity.
//
// The dashboard broadcasts sync results, board edits, and cache statistics
// to connected WebSocket clients so a team can watch boards change live.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// MessageType defines the type of dashboard message
type MessageType string

const (
	// MessageTypeBoardUpdate indicates a board was created or edited
	MessageTypeBoardUpdate MessageType = "board_update"

	// MessageTypeSyncComplete indicates a sync pass finished
	MessageTypeSyncComplete MessageType = "sync_complete"

	// MessageTypeStats indicates updated cache statistics
	MessageTypeStats MessageType = "stats"
)

// Message represents a dashboard broadcast message
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// BoardUpdateData describes a board change.
type BoardUpdateData struct {
	DocumentID string `json:"document_id"`
	Name       string `json:"name"`
	Action     string `json:"action"` // create_board, move_card, add_card, ...
	Columns    int    `json:"columns"`
	Cards      int    `json:"cards"`
}

// SyncCompleteData describes a finished sync pass.
type SyncCompleteData struct {
	Succeeded bool   `json:"succeeded"`
	Message   string `json:"message"`
	Error     string `json:"error,omitempty"`
	Boards    int    `json:"boards"`
}

// StatsData contains cache statistics
type StatsData struct {
	CachedBoards int `json:"cached_boards"`
}

// clientQueueSize bounds the messages waiting for one client. A client that
// falls this far behind loses messages rather than holding up the others.
const clientQueueSize = 32

// client is one connected WebSocket with its own outbound queue.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Server fans dashboard messages out to WebSocket clients.
type Server struct {
	addr     string
	listener net.Listener
	server   *http.Server

	// mu guards clients and lastStats. Broadcast holds it while queueing so
	// a connecting client sees either the welcome or the message, never
	// neither.
	mu        sync.RWMutex
	clients   map[*client]struct{}
	lastStats []byte

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *log.Logger
}

// Config holds server configuration
type Config struct {
	// Host to bind (default: all interfaces)
	Host string

	// Port to listen on (default: 8080, 0 picks a free port)
	Port int

	// Logger for server activity (default: stderr logger)
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Port:   8080,
		Logger: log.New(os.Stderr, "[dashboard] ", log.LstdFlags),
	}
}

// NewServer creates a dashboard server. Call Start to begin listening.
func NewServer(config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = log.New(os.Stderr, "[dashboard] ", log.LstdFlags)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:    net.JoinHostPort(config.Host, fmt.Sprint(config.Port)),
		clients: make(map[*client]struct{}),
		ctx:     ctx,
		cancel:  cancel,
		logger:  config.Logger,
	}
}

// Start listens and serves /ws, /health and the / index in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/", s.handleIndex)

	s.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Printf("Dashboard server listening on %s", ln.Addr())
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Printf("Server error: %v", err)
		}
	}()
	return nil
}

// Stop disconnects every client and shuts the HTTP server down.
func (s *Server) Stop() error {
	s.logger.Println("Stopping dashboard server")
	s.cancel()

	s.mu.Lock()
	for c := range s.clients {
		delete(s.clients, c)
		close(c.send)
	}
	s.mu.Unlock()

	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
	}

	s.wg.Wait()
	s.logger.Println("Dashboard server stopped")
	return nil
}

// Broadcast queues msg for every connected client. Stats messages are also
// kept and sent to clients as they connect.
func (s *Server) Broadcast(msg Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Printf("Failed to marshal %s message: %v", msg.Type, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx.Err() != nil {
		return
	}
	if msg.Type == MessageTypeStats {
		s.lastStats = data
	}
	for c := range s.clients {
		select {
		case c.send <- data:
		default:
			s.logger.Printf("Warning: client queue full, dropping %s message", msg.Type)
		}
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.logger.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, clientQueueSize)}

	s.mu.Lock()
	if s.ctx.Err() != nil {
		s.mu.Unlock()
		_ = conn.Close(websocket.StatusGoingAway, "Server shutting down")
		return
	}
	welcome := s.lastStats
	if welcome == nil {
		welcome, _ = json.Marshal(Message{Type: MessageTypeStats, Timestamp: time.Now()})
	}
	c.send <- welcome
	s.clients[c] = struct{}{}
	count := len(s.clients)
	// Added under mu so Stop, which cancels before taking mu, waits for it.
	s.wg.Add(1)
	s.mu.Unlock()

	s.logger.Printf("Client connected (total: %d)", count)

	go s.writeLoop(c)
	go s.readLoop(c)
}

// writeLoop drains c's queue until the queue is closed or a write fails.
func (s *Server) writeLoop(c *client) {
	defer s.wg.Done()

	for data := range c.send {
		ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
		err := c.conn.Write(ctx, websocket.MessageText, data)
		cancel()
		if err != nil {
			if s.ctx.Err() == nil {
				s.logger.Printf("Failed to send to client: %v", err)
			}
			s.removeClient(c)
			break
		}
	}

	status, reason := websocket.StatusNormalClosure, ""
	if s.ctx.Err() != nil {
		status, reason = websocket.StatusGoingAway, "Server shutting down"
	}
	_ = c.conn.Close(status, reason)
}

// readLoop discards client messages and notices disconnects.
func (s *Server) readLoop(c *client) {
	for {
		if _, _, err := c.conn.Read(s.ctx); err != nil {
			s.removeClient(c)
			return
		}
	}
}

// removeClient unregisters c and closes its queue, which ends its writeLoop.
func (s *Server) removeClient(c *client) {
	s.mu.Lock()
	_, ok := s.clients[c]
	if ok {
		delete(s.clients, c)
		close(c.send)
	}
	count := len(s.clients)
	s.mu.Unlock()

	if ok {
		s.logger.Printf("Client disconnected (total: %d)", count)
	}
}

// HealthData is the /health response.
type HealthData struct {
	Status  string `json:"status"`
	Clients int    `json:"clients"`

	// CachedBoards is the count from the last stats message, if any.
	CachedBoards *int `json:"cached_boards,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	health := HealthData{Status: "ok", Clients: len(s.clients)}
	last := s.lastStats
	s.mu.RUnlock()

	if last != nil {
		var msg Message
		var stats StatsData
		if json.Unmarshal(last, &msg) == nil && json.Unmarshal(msg.Data, &stats) == nil {
			health.CachedBoards = &stats.CachedBoards
		}
	}
	writeJSON(w, health)
}

// IndexData is the / response: where to connect and what to expect.
type IndexData struct {
	Service   string        `json:"service"`
	WebSocket string        `json:"websocket"`
	Health    string        `json:"health"`
	Messages  []MessageType `json:"messages"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, IndexData{
		Service:   "teamboard-dashboard",
		WebSocket: "ws://" + r.Host + "/ws",
		Health:    "/health",
		Messages:  []MessageType{MessageTypeBoardUpdate, MessageTypeSyncComplete, MessageTypeStats},
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// Addr returns the listening address, or the configured one before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// ClientCount returns the number of connected clients.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}
