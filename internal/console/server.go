package console

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/muurk/autoprint/internal/logging"
	"github.com/muurk/autoprint/internal/middleware"
	"github.com/muurk/autoprint/internal/version"
)

// DefaultListen is the console listen address
const DefaultListen = ":8081"

const shutdownTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The console is a LAN tool opened from arbitrary hosts
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Health is the /healthz response body
type Health struct {
	Status  string         `json:"status"`
	Version string         `json:"version"`
	Uptime  string         `json:"uptime"`
	Clients int            `json:"clients"`
	Frame   *frameSnapshot `json:"frame,omitempty"`
}

type frameSnapshot struct {
	Title  string `json:"title"`
	Body   string `json:"body"`
	Footer string `json:"footer"`
}

// Server serves the console routes for a Hub
type Server struct {
	hub     *Hub
	engine  *gin.Engine
	started time.Time
}

// NewServer builds the console routes around hub
func NewServer(hub *Hub) *Server {
	s := &Server{hub: hub, started: time.Now()}

	engine := gin.New()
	engine.Use(gin.Recovery(), middleware.RequestLogger("console"))

	engine.GET("/", s.handleIndex)
	engine.GET("/ws", s.handleWebSocket)
	engine.GET("/healthz", s.handleHealth)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.engine = engine
	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Serve listens on addr and serves until ctx is cancelled
func (s *Server) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	logging.Info("Device console listening", zap.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("console shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.Warn("Console upgrade failed", zap.Error(err))
		return
	}
	s.hub.serve(conn)
}

func (s *Server) handleHealth(c *gin.Context) {
	h := Health{
		Status:  "ok",
		Version: version.Version,
		Uptime:  time.Since(s.started).Truncate(time.Second).String(),
		Clients: s.hub.ClientCount(),
	}
	if f, ok := s.hub.LastFrame(); ok {
		h.Frame = &frameSnapshot{Title: f.Title, Body: f.Body, Footer: f.Footer}
	}
	c.JSON(http.StatusOK, h)
}

func (s *Server) handleIndex(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(indexPage))
}

const indexPage = `<!DOCTYPE html>
<html>
<head>
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>AutoPrint Console</title>
<style>
body { font-family: monospace; background: #111; color: #eee; max-width: 320px; margin: 20px auto; }
#screen { border: 2px solid #555; padding: 12px; min-height: 110px; white-space: pre-wrap; }
#screen.success { border-color: #2a2; }
#screen.error { border-color: #c22; }
#title { font-weight: bold; margin-bottom: 8px; }
#footer { color: #888; margin-top: 8px; }
.pad { display: grid; grid-template-columns: repeat(3, 1fr); gap: 6px; margin-top: 12px; }
.pad button { padding: 14px; font-size: 18px; font-family: monospace; }
</style>
</head>
<body>
<div id="screen"><div id="title"></div><div id="body"></div><div id="footer"></div></div>
<div class="pad" id="pad"></div>
<script>
var ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/ws");
var screen = document.getElementById("screen");
ws.onmessage = function (ev) {
  var m = JSON.parse(ev.data);
  if (m.type === "frame") {
    document.getElementById("title").textContent = m.title;
    document.getElementById("body").textContent = m.body;
    document.getElementById("footer").textContent = m.footer;
  } else if (m.type === "indicator" && m.event !== "tick") {
    screen.className = m.event;
    setTimeout(function () { screen.className = ""; }, 600);
  }
};
"123456789*0#".split("").forEach(function (k) {
  var b = document.createElement("button");
  b.textContent = k;
  b.onclick = function () { ws.send(JSON.stringify({key: k})); };
  document.getElementById("pad").appendChild(b);
});
document.addEventListener("keydown", function (e) {
  var k = e.key.length === 1 ? e.key : e.key.toLowerCase();
  ws.send(JSON.stringify({key: k}));
});
</script>
</body>
</html>
`
