package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Message 推送给房间的消息
type Message struct {
	Type      string      `json:"type"`
	RoomID    uint        `json:"room_id"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// 系统消息类型（游戏消息类型由service层定义）
const (
	MessageTypeConnected = "connected"
	MessageTypeError     = "error"
)

// Hub 按房间分组的WebSocket连接中心
// 实现 service.Notifier，服务层广播经由这里推到房间内所有连接
type Hub struct {
	rooms   map[uint]map[*Client]bool
	roomsMu sync.RWMutex

	broadcast  chan *Message
	register   chan *Client
	unregister chan *Client

	logger *zap.Logger
}

// NewHub 创建Hub
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		rooms:      make(map[uint]map[*Client]bool),
		broadcast:  make(chan *Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
	}
}

// Run 运行Hub主循环
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

// Register 注册客户端
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// NotifyRoom 向房间内所有连接广播消息
func (h *Hub) NotifyRoom(roomID uint, messageType string, payload interface{}) {
	msg := &Message{
		Type:      messageType,
		RoomID:    roomID,
		Data:      payload,
		Timestamp: time.Now().Unix(),
	}
	select {
	case h.broadcast <- msg:
	default:
		// 广播通道满说明消费跟不上，丢弃并记录
		h.logger.Warn("广播通道已满，消息被丢弃",
			zap.Uint("room_id", roomID),
			zap.String("type", messageType))
	}
}

// RoomClientCount 房间当前连接数
func (h *Hub) RoomClientCount(roomID uint) int {
	h.roomsMu.RLock()
	defer h.roomsMu.RUnlock()
	return len(h.rooms[roomID])
}

func (h *Hub) registerClient(client *Client) {
	h.roomsMu.Lock()
	clients, ok := h.rooms[client.RoomID]
	if !ok {
		clients = make(map[*Client]bool)
		h.rooms[client.RoomID] = clients
	}
	clients[client] = true
	h.roomsMu.Unlock()

	h.logger.Info("WebSocket客户端连接",
		zap.String("client_id", client.ID),
		zap.Uint("room_id", client.RoomID))

	client.sendJSON(&Message{
		Type:      MessageTypeConnected,
		RoomID:    client.RoomID,
		Timestamp: time.Now().Unix(),
	})
}

func (h *Hub) unregisterClient(client *Client) {
	h.roomsMu.Lock()
	if clients, ok := h.rooms[client.RoomID]; ok {
		if _, exists := clients[client]; exists {
			delete(clients, client)
			close(client.Send)
			if len(clients) == 0 {
				delete(h.rooms, client.RoomID)
			}
		}
	}
	h.roomsMu.Unlock()

	h.logger.Info("WebSocket客户端断开",
		zap.String("client_id", client.ID),
		zap.Uint("room_id", client.RoomID))
}

func (h *Hub) broadcastMessage(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("广播消息序列化失败", zap.Error(err))
		return
	}

	h.roomsMu.RLock()
	clients := h.rooms[message.RoomID]
	targets := make([]*Client, 0, len(clients))
	for client := range clients {
		targets = append(targets, client)
	}
	h.roomsMu.RUnlock()

	for _, client := range targets {
		select {
		case client.Send <- data:
		default:
			// 发送缓冲塞满的连接视为死连接
			h.logger.Warn("客户端发送缓冲已满，关闭连接",
				zap.String("client_id", client.ID))
			go func(c *Client) { h.unregister <- c }(client)
		}
	}
}
