package service

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"medtrain_backend/internal/model"
	"medtrain_backend/pkg/logger"
	"medtrain_backend/pkg/monitoring"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	shardCount     = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type hubClient struct {
	hub    *NotificationHub
	conn   *websocket.Conn
	send   chan []byte
	userID uint
}

// readPump 客户端只需要维持心跳，收到的消息直接丢弃
func (c *hubClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.Warn("WebSocket unexpected close", zap.Error(err), zap.Uint("userId", c.userID))
			}
			return
		}
	}
}

func (c *hubClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

type shard struct {
	clients map[uint]*hubClient
	mu      sync.RWMutex
}

// NotificationHub 通过 Redis 频道在多个实例间分发站内通知，再推送给本机的 websocket 连接
type NotificationHub struct {
	shards     [shardCount]*shard
	register   chan *hubClient
	unregister chan *hubClient
	redis      *redis.Client
	channel    string
}

type pubSubMessage struct {
	UserID  uint            `json:"user_id"`
	Payload json.RawMessage `json:"payload"`
}

func NewNotificationHub(rdb *redis.Client, channel string) *NotificationHub {
	h := &NotificationHub{
		register:   make(chan *hubClient),
		unregister: make(chan *hubClient),
		redis:      rdb,
		channel:    channel,
	}
	for i := 0; i < shardCount; i++ {
		h.shards[i] = &shard{clients: make(map[uint]*hubClient)}
	}
	return h
}

func (h *NotificationHub) getShard(userID uint) *shard {
	return h.shards[userID%shardCount]
}

// Publish 把通知发布到 Redis，所有实例都会收到
func (h *NotificationHub) Publish(ctx context.Context, n *model.Notification) error {
	payload, err := json.Marshal(WSMessage{Type: "NOTIFICATION", Data: n})
	if err != nil {
		return err
	}
	raw, err := json.Marshal(pubSubMessage{UserID: n.UserID, Payload: payload})
	if err != nil {
		return err
	}
	return h.redis.Publish(ctx, h.channel, raw).Err()
}

func (h *NotificationHub) Run(ctx context.Context) error {
	pubsub := h.redis.Subscribe(ctx, h.channel)
	defer pubsub.Close()
	messages := pubsub.Channel()

	logger.Log.Info("Notification hub started", zap.String("channel", h.channel))
	for {
		select {
		case <-ctx.Done():
			h.stop()
			return nil

		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var ps pubSubMessage
			if err := json.Unmarshal([]byte(msg.Payload), &ps); err != nil {
				logger.Log.Error("PubSub unmarshal error", zap.Error(err))
				continue
			}
			h.deliver(ps.UserID, ps.Payload)

		case client := <-h.register:
			s := h.getShard(client.userID)
			s.mu.Lock()
			if old, ok := s.clients[client.userID]; ok {
				close(old.send)
				monitoring.NotificationConnections.Dec()
			}
			s.clients[client.userID] = client
			s.mu.Unlock()
			monitoring.NotificationConnections.Inc()

		case client := <-h.unregister:
			s := h.getShard(client.userID)
			s.mu.Lock()
			if current, ok := s.clients[client.userID]; ok && current == client {
				delete(s.clients, client.userID)
				close(client.send)
				monitoring.NotificationConnections.Dec()
			}
			s.mu.Unlock()
		}
	}
}

// deliver 推送给本机连接；用户不在线或缓冲已满时丢弃，通知仍可通过列表接口获取
func (h *NotificationHub) deliver(userID uint, payload []byte) bool {
	s := h.getShard(userID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	client, ok := s.clients[userID]
	if !ok {
		return false
	}
	select {
	case client.send <- payload:
		return true
	default:
		return false
	}
}

func (h *NotificationHub) stop() {
	closed := 0
	for i := 0; i < shardCount; i++ {
		s := h.shards[i]
		s.mu.Lock()
		for userID, client := range s.clients {
			close(client.send)
			delete(s.clients, userID)
			closed++
		}
		s.mu.Unlock()
	}
	monitoring.NotificationConnections.Set(0)
	logger.Log.Info("Notification hub stopped", zap.Int("closedConnections", closed))
}

func (h *NotificationHub) ServeWs(w http.ResponseWriter, r *http.Request, userID uint) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Error("WebSocket upgrade failed", zap.Error(err), zap.Uint("userId", userID))
		return
	}
	client := &hubClient{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, 64),
		userID: userID,
	}
	h.register <- client

	go client.writePump()
	go client.readPump()
}
