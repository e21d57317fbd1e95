package handlers

import (
	"net/http"
	"slices"
	"sync"
	"time"

	"project-management-api/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 5 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 30 * time.Second
	wsSendBuffer = 32
)

// wsClient implements realtime.Client by wrapping a websocket connection.
// Publishers only enqueue; writePump owns every write on the connection.
type wsClient struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func newWSClient(conn *websocket.Conn) *wsClient {
	return &wsClient{
		conn: conn,
		send: make(chan []byte, wsSendBuffer),
		done: make(chan struct{}),
	}
}

// Send queues message without blocking. It reports false when the client is
// closed or its buffer is full.
func (c *wsClient) Send(message []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

func (c *wsClient) Close() {
	c.once.Do(func() {
		close(c.done)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

// writePump delivers queued messages and keepalive pings until the client is
// closed. A failed write closes the connection, which ends the reader loop.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.Close()
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(wsWriteWait)); err != nil {
				c.Close()
				return
			}
		}
	}
}

func (h *Handler) upgrader() *websocket.Upgrader {
	origins := h.cfg.Server.AllowedOrigins
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || slices.Contains(origins, "*") || slices.Contains(origins, origin)
		},
	}
}

// WebSocketHandler handles GET /api/workspaces/:workspaceId/ws
// It upgrades the connection and subscribes it to the workspace's change
// events. Membership is checked before the upgrade.
func (h *Handler) WebSocketHandler(c *gin.Context) {
	ws, member, ok := h.workspaceFor(c, models.RoleViewer)
	if !ok {
		return
	}
	log := h.logger(c).With().Str("workspace_id", ws.ID).Str("user_id", member.UserID).Logger()

	// Upgrade HTTP connection to WebSocket
	conn, err := h.upgrader().Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := newWSClient(conn)
	h.hub.Register(ws.ID, client)
	log.Debug().Int("subscribers", h.hub.Subscribers(ws.ID)).Msg("websocket connected")
	go client.writePump()
	defer func() {
		h.hub.Unregister(ws.ID, client)
		client.Close()
		log.Debug().Msg("websocket disconnected")
	}()

	// Reader loop: drain messages and keep connection alive via pong handler
	conn.SetReadLimit(1024)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			// Normal close or error; exit loop
			return
		}
	}
}
