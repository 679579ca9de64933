package preview

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	writeWait  = 10 * time.Second
)

// Hub pushes preview state transitions to connected websocket clients.
// Clients may subscribe to one project with ?projectId=...; without it they
// receive every transition.
type Hub struct {
	clients    map[*websocket.Conn]string
	broadcast  chan State
	register   chan subscription
	unregister chan *websocket.Conn
	done       chan struct{}
	closeOnce  sync.Once
	mutex      sync.RWMutex
	upgrader   websocket.Upgrader
	log        *zap.Logger
}

type subscription struct {
	conn      *websocket.Conn
	projectID string
}

// NewHub starts a hub. origins lists the allowed Origin headers; "*" or an
// empty list allows any origin.
func NewHub(origins []string, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	h := &Hub{
		clients:    make(map[*websocket.Conn]string),
		broadcast:  make(chan State, 256),
		register:   make(chan subscription),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		log:        log.Named("preview-hub"),
		upgrader: websocket.Upgrader{
			CheckOrigin:     originChecker(origins),
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}

	go h.run()

	return h
}

func originChecker(origins []string) func(r *http.Request) bool {
	allowAll := len(origins) == 0
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		// Sandboxed frames send the literal origin "null".
		if allowAll || origin == "" || origin == "null" {
			return true
		}
		return allowed[strings.TrimRight(origin, "/")]
	}
}

func (h *Hub) run() {
	for {
		select {
		case <-h.done:
			h.log.Debug("shutting down")
			return

		case sub := <-h.register:
			h.mutex.Lock()
			h.clients[sub.conn] = sub.projectID
			total := len(h.clients)
			h.mutex.Unlock()
			h.log.Debug("client connected", zap.String("projectId", sub.projectID), zap.Int("total", total))

		case conn := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			total := len(h.clients)
			h.mutex.Unlock()
			h.log.Debug("client disconnected", zap.Int("total", total))

		case state := <-h.broadcast:
			h.sendToAll(state)
		}
	}
}

func (h *Hub) sendToAll(state State) {
	payload, err := json.Marshal(state)
	if err != nil {
		h.log.Warn("failed to marshal state", zap.Error(err))
		return
	}

	h.mutex.RLock()
	var failed []*websocket.Conn
	for conn, projectID := range h.clients {
		if projectID != "" && projectID != state.ProjectID {
			continue
		}
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.log.Debug("failed to send state", zap.Error(err))
			failed = append(failed, conn)
		}
	}
	h.mutex.RUnlock()

	if len(failed) > 0 {
		h.mutex.Lock()
		for _, conn := range failed {
			if _, ok := h.clients[conn]; ok {
				conn.Close()
				delete(h.clients, conn)
			}
		}
		h.mutex.Unlock()
	}
}

// Publish queues a state for broadcast. It never blocks: when the queue is
// full the transition is dropped, since clients can always poll the tracker.
func (h *Hub) Publish(s State) {
	select {
	case <-h.done:
	case h.broadcast <- s:
	default:
		h.log.Warn("broadcast queue full, dropping state", zap.String("projectId", s.ProjectID))
	}
}

// ServeHTTP upgrades the request to a websocket subscription.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("failed to upgrade connection", zap.Error(err))
		return
	}

	select {
	case <-h.done:
		conn.Close()
		return
	case h.register <- subscription{conn: conn, projectID: r.URL.Query().Get("projectId")}:
	}

	go h.readMessages(conn)
}

// readMessages drains the client for close frames and pongs.
func (h *Hub) readMessages(conn *websocket.Conn) {
	stop := make(chan struct{})
	defer func() {
		close(stop)
		select {
		case h.unregister <- conn:
		case <-h.done:
		}
	}()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					return
				}
			}
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Debug("websocket error", zap.Error(err))
			}
			return
		}
	}
}

// ConnectionCount returns the number of connected clients.
func (h *Hub) ConnectionCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and stops the hub.
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		close(h.done)

		h.mutex.Lock()
		defer h.mutex.Unlock()
		for conn := range h.clients {
			conn.Close()
		}
		h.clients = make(map[*websocket.Conn]string)
	})
}
