package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/wfunc/party-market/internal/config"
	ws "github.com/wfunc/party-market/internal/websocket"
	"go.uber.org/zap"
)

// WebSocketHandler 房间订阅WebSocket处理器
type WebSocketHandler struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(hub *ws.Hub, wsCfg *config.WebSocketConfig, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  wsCfg.ReadBufferSize,
			WriteBufferSize: wsCfg.WriteBufferSize,
			CheckOrigin: func(r *http.Request) bool {
				// 派对场景客户端来源不定，放开Origin
				return true
			},
		},
		logger: logger,
	}
}

// RoomWebSocket 订阅房间的实时推送
// @Summary 房间实时推送
// @Tags WebSocket
// @Param id path int true "房间ID"
// @Router /ws/rooms/{id} [get]
func (h *WebSocketHandler) RoomWebSocket(c *gin.Context) {
	roomID, err := pathID(c, "id")
	if err != nil {
		badRequest(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("WebSocket升级失败",
			zap.Uint("room_id", roomID),
			zap.Error(err))
		return
	}

	client := ws.NewClient(h.hub, conn, roomID)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
