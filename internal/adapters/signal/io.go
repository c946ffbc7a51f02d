package signal

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Telemed/internal/core"
	"github.com/dkeye/Telemed/internal/domain"
)

// Close reasons longer than this do not fit a control frame.
const maxCloseReason = 123

// writePump is the only writer of data frames on the socket. It owns the
// socket's lifetime: when it returns, the socket is closed.
func (ctl *SignalWSController) writePump(sid core.SessionID, c *WsSignalConn) {
	var ping <-chan time.Time
	if ctl.opts.PingPeriod > 0 {
		ticker := time.NewTicker(ctl.opts.PingPeriod)
		defer ticker.Stop()
		ping = ticker.C
	}
	defer func() {
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
				_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.writeWait))
				log.Debug().Str("module", "signal").Str("sid", string(sid)).Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("writePump set deadline")
				c.Close()
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("writePump write error")
				c.Close()
				return
			}
		case <-ping:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeWait)); err != nil {
				log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("writePump ping")
				c.Close()
				return
			}
		}
	}
}

// readPump runs the hub's receive loop for this connection.
func (ctl *SignalWSController) readPump(sid core.SessionID, params domain.JoinParams, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump closing")
		c.Close()
	}()

	if err := ctl.Hub.Serve(sid, params, c); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("join refused")
	}
}
