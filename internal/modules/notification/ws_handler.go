package notification

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"hotelbooking/internal/pkg/jwt"
	"hotelbooking/internal/pkg/response"
)

const (
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
)

// WSHandler serves the live booking feed for the front desk.
type WSHandler struct {
	hub        *Hub
	jwtService *jwt.Service
	upgrader   websocket.Upgrader
}

// NewWSHandler creates the feed handler. An empty allowedOrigins list accepts
// any origin.
func NewWSHandler(hub *Hub, jwtService *jwt.Service, allowedOrigins []string) *WSHandler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}
	return &WSHandler{
		hub:        hub,
		jwtService: jwtService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || len(allowed) == 0 {
					return true
				}
				_, ok := allowed[origin]
				return ok
			},
		},
	}
}

func (h *WSHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/ws/bookings", h.HandleWebSocket)
}

// HandleWebSocket upgrades an admin connection.
//
// Endpoint: GET /ws/bookings?token=JWT_TOKEN
//
// Browsers cannot set headers on a websocket handshake, so the token travels
// in the query string.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Token is required. Use ?token=YOUR_JWT_TOKEN")
		return
	}
	claims, err := h.jwtService.ValidateToken(token)
	if err != nil {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token")
		return
	}
	if claims.Role != jwt.RoleAdmin {
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "Access denied: insufficient permissions")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("level=warn msg=\"websocket upgrade failed\" err=%v", err)
		return
	}

	id := h.hub.Register(conn)
	log.Printf("level=info msg=\"live feed connected\" conn_id=%d email=%s", id, claims.Email)
	defer func() {
		h.hub.Unregister(id)
		log.Printf("level=info msg=\"live feed disconnected\" conn_id=%d", id)
	}()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go h.pingLoop(id, done)

	// The feed is one-way; reads only drive pong handling and detect close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *WSHandler) pingLoop(id int64, done <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if !h.hub.ping(id) {
				return
			}
		}
	}
}
