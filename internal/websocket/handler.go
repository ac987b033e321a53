package websocket

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type Handler struct {
	hub         *Hub
	redisClient *redis.Client
	upgrader    websocket.Upgrader
	log         *zap.Logger

	mu         sync.Mutex
	subscribed map[string]bool
}

func NewHandler(h *Hub, redisClient *redis.Client, allowedOrigins []string, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		hub:         h,
		redisClient: redisClient,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		log:        log.Named("websocket"),
		subscribed: make(map[string]bool),
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		// non-browser clients (inboxctl) send no origin
		if origin == "" || len(allowed) == 0 {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}

// EnsureRoom subscribes to the room's Redis channel once per process.
func (h *Handler) EnsureRoom(ctx context.Context, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subscribed[roomID] {
		return
	}
	h.subscribed[roomID] = true
	go h.subscribeToRoomChannel(ctx, roomID)
}

func (h *Handler) subscribeToRoomChannel(ctx context.Context, roomID string) {
	log := h.log.With(zap.String("room", roomID))
	log.Info("subscribing to redis channel")

	subscriber := h.redisClient.Subscribe(ctx, roomID)
	defer subscriber.Close()

	ch := subscriber.Channel()
	for {
		select {
		case <-ctx.Done():
			log.Info("unsubscribed from redis channel")
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			select {
			case h.hub.Broadcast <- &WSMessage{
				Content:   msg.Payload,
				RoomID:    roomID,
				Timestamp: time.Now().Unix(),
			}:
			case <-ctx.Done():
				return
			}
		}
	}
}

// JoinRoom upgrades the request and attaches the connection to roomID.
func (h *Handler) JoinRoom(w http.ResponseWriter, r *http.Request, roomID, userID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("upgrade failed", zap.Error(err))
		return
	}

	connID := uuid.NewString()
	cl := &WSClient{
		Conn:    conn,
		Message: make(chan *WSMessage, 16),
		ID:      connID,
		UserID:  userID,
		RoomID:  roomID,
		done:    make(chan struct{}),
		log:     h.log.With(zap.String("conn", connID), zap.String("user", userID), zap.String("room", roomID)),
	}

	if !h.hub.join(cl) {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
		return
	}

	go cl.keepAlive()
	go cl.writeMessage()
	go cl.readMessage(h.hub)
}
