package signal

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/sourcegraph/conc"

	"github.com/dkeye/Telemed/internal/app"
	"github.com/dkeye/Telemed/internal/core"
	"github.com/dkeye/Telemed/internal/domain"
)

// ClientTokenKey is the gin context key holding the caller's client token.
const ClientTokenKey = "client_token"

// Options tune the WebSocket transport. Zero PingPeriod disables keep-alive.
type Options struct {
	// ReadLimit caps one inbound frame. An oversize frame is a transport
	// failure: the socket is closed with 1009, unlike a malformed message.
	ReadLimit  int64
	PingPeriod time.Duration
	WriteWait  time.Duration
	SendBuffer int

	// AllowedOrigins lists cross-site origins allowed to upgrade.
	// Same-host origins and requests without Origin are always allowed.
	AllowedOrigins []string
}

type SignalWSController struct {
	Hub *app.Hub

	opts     Options
	limiter  *ConnectRateLimiter
	upgrader websocket.Upgrader
	wg       conc.WaitGroup
}

// NewSignalWSController builds the controller. A nil limiter admits every attempt.
func NewSignalWSController(hub *app.Hub, opts Options, limiter *ConnectRateLimiter) *SignalWSController {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 32
	}
	if opts.WriteWait <= 0 {
		opts.WriteWait = 5 * time.Second
	}
	return &SignalWSController{
		Hub:     hub,
		opts:    opts,
		limiter: limiter,
		upgrader: websocket.Upgrader{
			CheckOrigin: checkOrigin(opts.AllowedOrigins),
		},
	}
}

func checkOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || lo.Contains(allowed, origin) {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(u.Host, r.Host)
	}
}

// WsSignalConn is the WebSocket transport of one participant.
// It implements core.Transport.
type WsSignalConn struct {
	conn      *websocket.Conn
	send      chan core.Frame
	writeWait time.Duration

	mu     sync.RWMutex
	closed bool
}

func newWsSignalConn(ws *websocket.Conn, opts Options) *WsSignalConn {
	c := &WsSignalConn{
		conn:      ws,
		send:      make(chan core.Frame, opts.SendBuffer),
		writeWait: opts.WriteWait,
	}
	if opts.ReadLimit > 0 {
		ws.SetReadLimit(opts.ReadLimit)
	}
	if opts.PingPeriod > 0 {
		pongWait := opts.PingPeriod * 10 / 9
		_ = ws.SetReadDeadline(time.Now().Add(pongWait))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(pongWait))
		})
	}
	return c
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrClosed
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) IsOpen() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.closed
}

// Close stops accepting frames. The write pump sends a close frame and
// releases the socket, which also unblocks Receive.
func (c *WsSignalConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *WsSignalConn) Receive() (core.Frame, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Reject sends a policy-violation close frame and closes the connection.
func (c *WsSignalConn) Reject(reason string) {
	msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, truncateReason(reason))
	if err := c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.writeWait)); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("reject write close")
	}
	c.Close()
}

// truncateReason fits reason into a close frame without splitting a rune.
func truncateReason(reason string) string {
	if len(reason) <= maxCloseReason {
		return reason
	}
	n := maxCloseReason
	for n > 0 && !utf8.RuneStart(reason[n]) {
		n--
	}
	return reason[:n]
}

// HandleSignal upgrades the request and hands the connection to the hub.
// Join parameters are checked by the hub after the upgrade so that a bad join
// is answered with a WebSocket close code rather than an HTTP error.
func (ctl *SignalWSController) HandleSignal(c *gin.Context) {
	token := c.GetString(ClientTokenKey)
	if ctl.limiter != nil && !ctl.limiter.Allow(token) {
		log.Warn().Str("module", "signal").Str("client", token).Msg("connect rate limited")
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many connection attempts"})
		return
	}

	var params domain.JoinParams
	if err := c.ShouldBindQuery(&params); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bind join params")
	}

	ws, err := ctl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	sid := core.SessionID(uuid.NewString())
	conn := newWsSignalConn(ws, ctl.opts)
	log.Info().
		Str("module", "signal").
		Str("sid", string(sid)).
		Str("client", token).
		Str("remote", ws.RemoteAddr().String()).
		Msg("new WS connection")

	ctl.wg.Go(func() { ctl.writePump(sid, conn) })
	ctl.wg.Go(func() { ctl.readPump(sid, params, conn) })
}

// Shutdown closes every session and waits for all pumps to exit.
// Call it after the HTTP server stopped accepting requests.
func (ctl *SignalWSController) Shutdown() {
	ctl.Hub.CloseAll()
	ctl.wg.Wait()
	log.Info().Str("module", "signal").Msg("all connections drained")
}
