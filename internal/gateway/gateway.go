package gateway

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/GrEarl/CloverBINGO-sub000/bingo"
	"github.com/GrEarl/CloverBINGO-sub000/internal/auth"
	"github.com/GrEarl/CloverBINGO-sub000/internal/codec"
	"github.com/GrEarl/CloverBINGO-sub000/internal/directory"
	"github.com/GrEarl/CloverBINGO-sub000/internal/ledger"
	"github.com/GrEarl/CloverBINGO-sub000/internal/session"

	"github.com/gorilla/websocket"
)

const (
	sendBufferSize = 256
	readLimit      = 65536
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	writeWait      = 10 * time.Second
)

var (
	errSendBufferFull = errors.New("send buffer full")
	errConnClosed     = errors.New("connection closed")
)

// Connection is one WebSocket client bound to a session with a fixed role.
type Connection struct {
	ID      string
	Code    string
	Meta    session.ConnMeta
	Conn    *websocket.Conn
	Gateway *Gateway

	send          chan []byte
	coordinator   *session.Coordinator
	sessionConnID string

	closeMu sync.Mutex
	closed  bool
}

// Gateway serves the HTTP API and the real-time channel.
type Gateway struct {
	mu          sync.RWMutex
	connections map[string]*Connection
	nextConnID  uint64

	directory *directory.Directory
	tickets   *auth.Tickets
	audit     *ledger.HTTPHandler
	upgrader  websocket.Upgrader
}

// New creates a gateway. An empty allowedOrigins accepts any origin.
func New(dir *directory.Directory, store ledger.Store, tickets *auth.Tickets, allowedOrigins []string) *Gateway {
	g := &Gateway{
		connections: make(map[string]*Connection),
		directory:   dir,
		tickets:     tickets,
	}
	g.audit = ledger.NewHTTPHandler(store, dir, statusForError)
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return g
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := strings.TrimRight(r.Header.Get("Origin"), "/")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// HandleWebSocket serves GET /ws?code=&ticket=. The ticket fixes the role.
func (g *Gateway) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	code, err := directory.NormalizeCode(q.Get("code"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	meta, err := g.metaFromTicket(code, q.Get("ticket"))
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	coord, err := g.directory.Open(r.Context(), code)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Gateway] Upgrade error: %v", err)
		return
	}

	g.mu.Lock()
	g.nextConnID++
	c := &Connection{
		ID:          fmt.Sprintf("conn_%d", g.nextConnID),
		Code:        code,
		Meta:        meta,
		Conn:        conn,
		Gateway:     g,
		send:        make(chan []byte, sendBufferSize),
		coordinator: coord,
	}
	g.connections[c.ID] = c
	total := len(g.connections)
	g.mu.Unlock()

	go c.writePump()

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	id, err := coord.Connect(ctx, meta, c)
	if err != nil {
		log.Printf("[Gateway] %s rejected by session %s: %v", c.ID, code, err)
		if data, encErr := codec.EncodeError(err.Error()); encErr == nil {
			_ = c.enqueue(data)
		}
		c.Close()
		g.removeConnection(c)
		return
	}
	c.sessionConnID = id
	log.Printf("[Gateway] Client connected: %s (session=%s role=%s), total: %d", c.ID, code, meta.Role, total)

	go c.readPump()
}

func (g *Gateway) metaFromTicket(code, raw string) (session.ConnMeta, error) {
	t, err := g.tickets.Verify(raw)
	if err != nil {
		return session.ConnMeta{}, err
	}
	if t.Code != code {
		return session.ConnMeta{}, fmt.Errorf("%w: ticket is for another session", auth.ErrInvalidTicket)
	}
	role, err := session.ParseRole(t.Role)
	if err != nil {
		return session.ConnMeta{}, fmt.Errorf("%w: %v", auth.ErrInvalidTicket, err)
	}
	return session.ConnMeta{Role: role, PlayerID: t.PlayerID, Screen: bingo.Digit(t.Screen)}, nil
}

// Send encodes snap and queues it. It never blocks.
func (c *Connection) Send(snap session.Snapshot) error {
	data, err := codec.EncodeSnapshot(snap)
	if err != nil {
		return err
	}
	return c.enqueue(data)
}

func (c *Connection) enqueue(data []byte) error {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	if c.closed {
		return errConnClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		return errSendBufferFull
	}
}

// Close stops the write pump, which sends a close frame and closes the socket.
func (c *Connection) Close() {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *Connection) readPump() {
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		c.coordinator.Disconnect(ctx, c.sessionConnID)
		cancel()
		c.Close()
		c.Gateway.removeConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(readLimit)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[Gateway] Read error: %v", err)
			}
			break
		}
		if messageType == websocket.TextMessage {
			c.handleMessage(message)
		}
	}
}

// handleMessage answers keepalives. Clients never mutate state over the channel.
func (c *Connection) handleMessage(data []byte) {
	if _, err := codec.DecodeClientMessage(data); err != nil {
		if frame, encErr := codec.EncodeError(err.Error()); encErr == nil {
			_ = c.enqueue(frame)
		}
		return
	}
	pong, err := codec.EncodePong()
	if err != nil {
		return
	}
	if err := c.enqueue(pong); err != nil {
		log.Printf("[Gateway] pong to %s dropped: %v", c.ID, err)
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (g *Gateway) removeConnection(c *Connection) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.connections[c.ID]; !ok {
		return
	}
	delete(g.connections, c.ID)
	log.Printf("[Gateway] Client disconnected: %s, total: %d", c.ID, len(g.connections))
}

// ConnectionCount is the number of open sockets across all sessions.
func (g *Gateway) ConnectionCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.connections)
}
