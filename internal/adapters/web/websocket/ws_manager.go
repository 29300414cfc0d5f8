package websocket

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/netwarden/netwarden/internal/core/domain"
	"github.com/netwarden/netwarden/internal/core/ports"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")

		// Allow same-origin (no Origin header)
		if origin == "" {
			return true
		}

		allowedOrigins := []string{
			"http://localhost:8080",
			"http://127.0.0.1:8080",
			"http://[::1]:8080",
		}
		for _, allowed := range allowedOrigins {
			if origin == allowed {
				return true
			}
		}

		log.Printf("WebSocket: Rejected origin: %s", origin)
		return false
	},
}

// WSMessage is the envelope for every push-boundary event. Delivery is
// at-least-once; consumers dedupe by the payload's record ID.
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// WSManager broadcasts anomaly and alert events to connected subscribers.
// It implements ports.Notifier; sends are decoupled from the ingest path by
// a buffered queue so a slow client never stalls detection.
type WSManager struct {
	clients map[*websocket.Conn]struct{}
	mu      sync.Mutex
	queue   chan WSMessage
	done    chan struct{}
	once    sync.Once
}

func NewWSManager() *WSManager {
	return &WSManager{
		clients: make(map[*websocket.Conn]struct{}),
		queue:   make(chan WSMessage, 256),
		done:    make(chan struct{}),
	}
}

// Start launches the broadcast pump.
func (m *WSManager) Start() {
	go m.pump()
}

// Stop drains the manager and closes every connection.
func (m *WSManager) Stop() {
	m.once.Do(func() { close(m.done) })

	m.mu.Lock()
	defer m.mu.Unlock()
	for conn := range m.clients {
		conn.Close()
		delete(m.clients, conn)
	}
}

// HandleWebSocket upgrades the connection and registers the subscriber.
func (m *WSManager) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("Upgrade error:", err)
		return
	}

	m.mu.Lock()
	m.clients[conn] = struct{}{}
	m.mu.Unlock()

	log.Printf("WebSocket connected: %s", r.RemoteAddr)

	// Clean up on disconnect
	go func() {
		defer conn.Close()
		defer func() {
			m.mu.Lock()
			delete(m.clients, conn)
			m.mu.Unlock()
			log.Printf("WebSocket disconnected: %s", r.RemoteAddr)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

// NotifyAnomaly emits a newly created or updated anomaly record.
func (m *WSManager) NotifyAnomaly(event string, rec domain.AnomalyRecord) {
	m.enqueue(WSMessage{Type: event, Payload: rec})
}

// NotifyAlert emits a newly created or acknowledged alert record.
func (m *WSManager) NotifyAlert(event string, alert domain.AlertRecord) {
	m.enqueue(WSMessage{Type: event, Payload: alert})
}

// enqueue never blocks: when subscribers cannot keep up, the oldest queued
// event is dropped (consumers reconcile via the query boundary).
func (m *WSManager) enqueue(msg WSMessage) {
	select {
	case m.queue <- msg:
	default:
		select {
		case <-m.queue:
		default:
		}
		select {
		case m.queue <- msg:
		default:
		}
	}
}

func (m *WSManager) pump() {
	for {
		select {
		case <-m.done:
			return
		case msg := <-m.queue:
			m.broadcastMessage(msg)
		}
	}
}

func (m *WSManager) broadcastMessage(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Println("JSON marshal error:", err)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for conn := range m.clients {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			conn.Close()
			delete(m.clients, conn)
		}
	}
}

var _ ports.Notifier = (*WSManager)(nil)
