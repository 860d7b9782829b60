package console

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/muurk/autoprint/internal/indicator"
	"github.com/muurk/autoprint/internal/logging"
	"github.com/muurk/autoprint/internal/session"
)

const (
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 16
	maxClients     = 32

	// Remote keypads may type quickly but not flood the key queue
	keyRate  = rate.Limit(10)
	keyBurst = 10
)

// KeySink accepts key names from remote clients
type KeySink interface {
	PushName(name string) bool
}

type frameMessage struct {
	Type string `json:"type"`
	session.Frame
}

type indicatorMessage struct {
	Type  string `json:"type"`
	Event string `json:"event"`
}

type keyMessage struct {
	Key string `json:"key"`
}

// clientWriter owns all writes to one connection
type clientWriter struct {
	conn   *websocket.Conn
	sendCh chan []byte
	done   chan struct{}
	once   sync.Once
}

func newClientWriter(conn *websocket.Conn) *clientWriter {
	cw := &clientWriter{
		conn:   conn,
		sendCh: make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
	}
	go cw.run()
	return cw
}

func (cw *clientWriter) run() {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case msg := <-cw.sendCh:
			_ = cw.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cw.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				cw.stop()
				return
			}
		case <-ping.C:
			_ = cw.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cw.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				cw.stop()
				return
			}
		case <-cw.done:
			return
		}
	}
}

// send queues msg, dropping it if the client is not keeping up
func (cw *clientWriter) send(msg []byte) bool {
	select {
	case cw.sendCh <- msg:
		return true
	default:
		return false
	}
}

func (cw *clientWriter) stop() {
	cw.once.Do(func() {
		close(cw.done)
		_ = cw.conn.Close()
	})
}

// Hub fans frames and indicator events out to websocket clients and feeds
// their key presses to a KeySink
type Hub struct {
	keys KeySink

	mu        sync.Mutex
	clients   map[*websocket.Conn]*clientWriter
	lastFrame *session.Frame
}

// NewHub creates a hub that forwards remote keys to keys (may be nil)
func NewHub(keys KeySink) *Hub {
	return &Hub{
		keys:    keys,
		clients: make(map[*websocket.Conn]*clientWriter),
	}
}

// Show broadcasts a frame and remembers it for clients that join later
func (h *Hub) Show(f session.Frame) {
	msg, err := json.Marshal(frameMessage{Type: "frame", Frame: f})
	if err != nil {
		logging.Error("Failed to encode frame", zap.Error(err))
		return
	}

	h.mu.Lock()
	h.lastFrame = &f
	h.mu.Unlock()

	h.broadcast(msg)
}

// Signal broadcasts an indicator event
func (h *Hub) Signal(e indicator.Event) {
	msg, err := json.Marshal(indicatorMessage{Type: "indicator", Event: e.String()})
	if err != nil {
		return
	}
	h.broadcast(msg)
}

// LastFrame returns the most recent frame, if any
func (h *Hub) LastFrame() (session.Frame, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.lastFrame == nil {
		return session.Frame{}, false
	}
	return *h.lastFrame, true
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) broadcast(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, cw := range h.clients {
		if !cw.send(msg) {
			logging.Warn("Console client too slow, dropping message", zap.String("remote_addr", conn.RemoteAddr().String()))
		}
	}
}

// register adds conn and sends it the current frame. It reports false when
// the hub is full.
func (h *Hub) register(conn *websocket.Conn) (*clientWriter, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.clients) >= maxClients {
		return nil, false
	}
	cw := newClientWriter(conn)
	h.clients[conn] = cw

	if h.lastFrame != nil {
		if msg, err := json.Marshal(frameMessage{Type: "frame", Frame: *h.lastFrame}); err == nil {
			cw.send(msg)
		}
	}
	return cw, true
}

func (h *Hub) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	cw, ok := h.clients[conn]
	delete(h.clients, conn)
	h.mu.Unlock()

	if ok {
		cw.stop()
	}
}

// serve runs the read loop for one connection until it closes
func (h *Hub) serve(conn *websocket.Conn) {
	remote := conn.RemoteAddr().String()

	if _, ok := h.register(conn); !ok {
		logging.Warn("Console full, rejecting client", zap.String("remote_addr", remote))
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "console full"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}
	logging.Info("Console client connected", zap.String("remote_addr", remote), zap.Int("clients", h.ClientCount()))

	defer func() {
		h.unregister(conn)
		logging.Info("Console client disconnected", zap.String("remote_addr", remote))
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	limiter := rate.NewLimiter(keyRate, keyBurst)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		logging.LogConsoleMessage(remote, "received", data)

		if !limiter.Allow() {
			logging.Debug("Console key rate exceeded", zap.String("remote_addr", remote))
			continue
		}
		h.handleMessage(data)
	}
}

func (h *Hub) handleMessage(data []byte) {
	var msg keyMessage
	if err := json.Unmarshal(data, &msg); err != nil || msg.Key == "" {
		logging.Debug("Ignoring console message", zap.ByteString("data", data))
		return
	}
	if h.keys == nil {
		return
	}
	if !h.keys.PushName(msg.Key) {
		logging.Debug("Console key rejected", zap.String("key", msg.Key))
	}
}

// Close disconnects every client
func (h *Hub) Close() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*websocket.Conn]*clientWriter)
	h.mu.Unlock()

	for _, cw := range clients {
		cw.stop()
	}
}
