// internal/httpserver/ws.go
//
// WebSocket play: GET /ws upgrades the connection and gives it its own
// game session. The session lives exactly as long as the connection and is
// never visible to other players.
//
// Protocol (JSON text frames):
//   client → {"type":"adjust","channel":"g","delta":-10} | {"type":"check"} |
//            {"type":"hint"} | {"type":"reset"} | {"type":"state"}
//   server → {"type":"state","action":...,"won":...,"distance":...,"snapshot":{...}}
//            {"type":"error","error":"invalid_channel"}
//
// The read loop owns the session; only the write pump writes to the socket.

package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/robalobadob/colorguess/internal/game"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Client messages are tiny.
	maxMessageSize = 4 * 1024
)

// wsMessage is a server → client frame.
type wsMessage struct {
	Type  string `json:"type"`
	Error string `json:"error,omitempty"`
	*game.Outcome
}

// wsClient is one connected player.
type wsClient struct {
	conn    *websocket.Conn
	send    chan []byte
	session *game.Session
	log     zerolog.Logger
}

func (s *Server) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || origin == s.opts.ClientOrigin {
				return true
			}
			u, err := url.Parse(origin)
			return err == nil && u.Host == r.Host
		},
	}
}

// handleWS upgrades the request and runs the client until it disconnects.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("websocket upgrade")
		return
	}
	g := game.New(game.WithClock(s.opts.Now))
	logger := hlog.FromRequest(r).With().Str("gameId", g.ID).Logger()
	if me := currentUser(r); me != nil {
		logger = logger.With().Str("user", me.ID).Logger()
	}

	c := &wsClient{
		conn:    conn,
		send:    make(chan []byte, 16),
		session: g,
		log:     logger,
	}
	c.log.Info().Msg("websocket connected")

	go c.writePump()
	c.push(wsMessage{Type: "state", Outcome: &game.Outcome{Action: game.ActionState, Snapshot: g.Snapshot()}})
	c.readPump()
	c.log.Info().Msg("websocket closed")
}

// readPump applies each client command to the session and queues the reply.
func (c *wsClient) readPump() {
	defer func() {
		close(c.send)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn().Err(err).Msg("websocket read")
			}
			return
		}
		c.push(c.handle(data))
	}
}

// handle decodes one frame and applies it.
func (c *wsClient) handle(data []byte) wsMessage {
	var cmd game.Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return wsMessage{Type: "error", Error: "bad_json"}
	}
	out, err := c.session.Apply(cmd)
	switch {
	case errors.Is(err, game.ErrInvalidChannel):
		return wsMessage{Type: "error", Error: "invalid_channel"}
	case errors.Is(err, game.ErrUnknownAction):
		return wsMessage{Type: "error", Error: "unknown_action"}
	case err != nil:
		c.log.Error().Err(err).Msg("apply command")
		return wsMessage{Type: "error", Error: "server_error"}
	}
	if out.Finished {
		c.log.Info().Int("attempts", out.Snapshot.Attempts).Int("hints", out.Snapshot.HintsUsed).
			Str("playTime", out.Snapshot.PlayTime).Msg("round won")
	}
	return wsMessage{Type: "state", Outcome: &out}
}

// push queues a message for the write pump. A client that stops reading
// is disconnected rather than allowed to stall the read loop.
func (c *wsClient) push(m wsMessage) {
	b, err := json.Marshal(m)
	if err != nil {
		c.log.Error().Err(err).Msg("encode websocket message")
		return
	}
	select {
	case c.send <- b:
	default:
		c.log.Warn().Msg("websocket send buffer full")
		_ = c.conn.Close()
	}
}

// writePump drains the send queue and keeps the connection alive with pings.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
