// Package dashboard provides the admin HTTP API and a real-time
// WebSocket feed over the portfolio store.
//
// The server broadcasts collection changes, hero edits, clean results,
// and statistics reports to connected WebSocket clients, and exposes a
// REST surface for the admin panel.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/ayonizm/folio/internal/model"
	"github.com/ayonizm/folio/internal/stats"
	"github.com/ayonizm/folio/internal/store"
)

// MessageType defines the type of dashboard message
type MessageType string

const (
	// MessageTypeCollectionUpdate indicates a collection's documents changed
	MessageTypeCollectionUpdate MessageType = "collection_update"

	// MessageTypeHeroUpdate indicates the hero singleton changed
	MessageTypeHeroUpdate MessageType = "hero_update"

	// MessageTypeCleanComplete indicates a duplicate-repair pass finished
	MessageTypeCleanComplete MessageType = "clean_complete"

	// MessageTypeStats indicates a fresh statistics report
	MessageTypeStats MessageType = "stats"
)

// Message represents a dashboard broadcast message
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// CollectionUpdateData carries a collection's full snapshot after a change
type CollectionUpdateData struct {
	Collection string      `json:"collection"`
	Docs       []model.Doc `json:"docs"`
}

// Server manages the admin API and WebSocket broadcasts
type Server struct {
	addr     string
	listener net.Listener
	server   *http.Server

	store      *store.Store
	aggregator *stats.Aggregator
	sessions   *sessionStore

	// WebSocket client management
	clients   map[*websocket.Conn]bool
	clientsMu sync.RWMutex

	// Message broadcasting
	broadcast chan Message

	// Store subscriptions, torn down on Stop
	unsubs []func()

	// Lifecycle management
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *log.Logger
}

// Config holds server configuration
type Config struct {
	// Port to listen on (default: 8422)
	Port int

	// Store backing the API (required)
	Store *store.Store

	// Aggregator for /api/stats (optional; 404 when absent)
	Aggregator *stats.Aggregator

	// Logger for server activity (default: stderr logger)
	Logger *log.Logger
}

// NewServer creates a new dashboard server
func NewServer(config *Config) *Server {
	if config.Logger == nil {
		config.Logger = log.Default()
	}
	port := config.Port
	if port == 0 {
		port = 8422
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		addr:       fmt.Sprintf(":%d", port),
		store:      config.Store,
		aggregator: config.Aggregator,
		sessions:   newSessionStore(),
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan Message, 100),
		ctx:        ctx,
		cancel:     cancel,
		logger:     config.Logger,
	}
}

// Start begins the HTTP server and subscribes to store changes
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln

	s.server = &http.Server{
		Handler:      s.routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	s.subscribeStore()

	s.wg.Add(1)
	go s.broadcastLoop()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Printf("Dashboard server listening on %s", s.addr)
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Printf("Server error: %v", err)
		}
	}()

	return nil
}

// subscribeStore fans store change notifications out to the clients.
func (s *Server) subscribeStore() {
	for _, collection := range model.Collections {
		collection := collection
		unsub := s.store.Subscribe(collection, func(docs []model.Doc) {
			data, err := json.Marshal(CollectionUpdateData{Collection: collection, Docs: docs})
			if err != nil {
				s.logger.Printf("Failed to marshal %s update: %v", collection, err)
				return
			}
			s.Broadcast(Message{Type: MessageTypeCollectionUpdate, Data: data})
		})
		s.unsubs = append(s.unsubs, unsub)
	}

	unsub := s.store.SubscribeHero(func(hero model.Doc) {
		data, err := json.Marshal(hero)
		if err != nil {
			s.logger.Printf("Failed to marshal hero update: %v", err)
			return
		}
		s.Broadcast(Message{Type: MessageTypeHeroUpdate, Data: data})
	})
	s.unsubs = append(s.unsubs, unsub)
}

// Stop gracefully shuts down the server
func (s *Server) Stop() error {
	s.logger.Println("Stopping dashboard server")

	for _, unsub := range s.unsubs {
		unsub()
	}
	s.unsubs = nil

	s.cancel()

	s.clientsMu.Lock()
	for conn := range s.clients {
		_ = conn.Close(websocket.StatusGoingAway, "Server shutting down")
		delete(s.clients, conn)
	}
	s.clientsMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	s.wg.Wait()

	s.logger.Println("Dashboard server stopped")
	return nil
}

// Broadcast sends a message to all connected clients
func (s *Server) Broadcast(msg Message) {
	select {
	case s.broadcast <- msg:
	case <-s.ctx.Done():
		return
	default:
		s.logger.Println("Warning: broadcast channel full, dropping message")
	}
}

// broadcastLoop handles message broadcasting to all clients
func (s *Server) broadcastLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return

		case msg := <-s.broadcast:
			if msg.Timestamp.IsZero() {
				msg.Timestamp = time.Now()
			}

			data, err := json.Marshal(msg)
			if err != nil {
				s.logger.Printf("Failed to marshal message: %v", err)
				continue
			}

			s.clientsMu.RLock()
			clients := make([]*websocket.Conn, 0, len(s.clients))
			for conn := range s.clients {
				clients = append(clients, conn)
			}
			s.clientsMu.RUnlock()

			// Send outside the read lock to avoid blocking broadcasts
			for _, conn := range clients {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				err := conn.Write(ctx, websocket.MessageText, data)
				cancel()

				if err != nil {
					s.logger.Printf("Failed to send to client: %v", err)
					s.removeClient(conn)
				}
			}
		}
	}
}

// handleWebSocket upgrades HTTP connections to WebSocket
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.logger.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	s.clientsMu.Lock()
	s.clients[conn] = true
	clientCount := len(s.clients)
	s.clientsMu.Unlock()

	s.logger.Printf("Client connected (total: %d)", clientCount)

	go s.readLoop(conn)
}

// readLoop keeps the WebSocket connection alive and handles client disconnects
func (s *Server) readLoop(conn *websocket.Conn) {
	defer s.removeClient(conn)

	for {
		_, _, err := conn.Read(s.ctx)
		if err != nil {
			return
		}
		// Client messages are not processed
	}
}

// removeClient safely removes a client connection
func (s *Server) removeClient(conn *websocket.Conn) {
	s.clientsMu.Lock()
	if _, exists := s.clients[conn]; exists {
		delete(s.clients, conn)
		clientCount := len(s.clients)
		s.clientsMu.Unlock()

		_ = conn.Close(websocket.StatusNormalClosure, "")
		s.logger.Printf("Client disconnected (total: %d)", clientCount)
	} else {
		s.clientsMu.Unlock()
	}
}

// GetAddr returns the server's listening address
func (s *Server) GetAddr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// ClientCount returns the current number of connected clients
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}
