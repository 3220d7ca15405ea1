package handler

import (
	"net/http"

	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"tradechat/internal/adapter/api/middleware"
	ws "tradechat/internal/infrastructure/websocket"
	"tradechat/pkg/errors"
	"tradechat/pkg/logger"
	"tradechat/pkg/response"
)

type WebSocketHandler struct {
	wsManager  *ws.Manager
	upgrader   gorillaws.Upgrader
	sendBuffer int
}

// NewWebSocketHandler accepts upgrades from allowedOrigins; an empty list
// allows every origin.
func NewWebSocketHandler(wsManager *ws.Manager, allowedOrigins []string, sendBuffer int) *WebSocketHandler {
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = struct{}{}
	}

	return &WebSocketHandler{
		wsManager:  wsManager,
		sendBuffer: sendBuffer,
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(origins) == 0 {
					return true
				}
				_, ok := origins[r.Header.Get("Origin")]
				return ok
			},
		},
	}
}

// HandleWebSocket upgrades an authenticated request into a realtime
// session joined to the user's private channel.
func (h *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	userID := middleware.UserID(c)
	if userID == "" {
		return response.Error(c, errors.Unauthorized("Authentication required", nil))
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader has already written the HTTP error
		logger.Warn("WebSocket upgrade failed for %s: %v", userID, err)
		return nil
	}

	client := ws.NewClient(userID, conn, h.sendBuffer)
	if !h.wsManager.Join(client) {
		_ = conn.WriteMessage(gorillaws.CloseMessage, gorillaws.FormatCloseMessage(gorillaws.CloseGoingAway, "server shutting down"))
		conn.Close()
		return nil
	}

	go client.WritePump()
	go client.ReadPump(h.wsManager)
	return nil
}
