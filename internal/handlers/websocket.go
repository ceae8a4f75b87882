package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"shards-game-backend/internal/models"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler runs the live feed: every win is announced to all
// connected clients (the old channel broadcast), and referral bonuses go
// to the referrer's own connection.
type WebSocketHandler struct {
	hub    *WebSocketHub
	logger *slog.Logger
}

type WebSocketHub struct {
	clients    map[int64]*websocket.Conn
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
}

type Client struct {
	UserID int64
	Conn   *websocket.Conn
}

type Message struct {
	Type   string      `json:"type"`
	UserID int64       `json:"user_id,omitempty"`
	Data   interface{} `json:"data"`
}

func NewWebSocketHandler(logger *slog.Logger) *WebSocketHandler {
	if logger == nil {
		logger = slog.Default()
	}

	hub := &WebSocketHub{
		clients:    make(map[int64]*websocket.Conn),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 100),
	}

	go hub.run(logger)

	return &WebSocketHandler{hub: hub, logger: logger}
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	userID := c.GetInt64("user_id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "user_id", userID, "error", err)
		return
	}

	client := &Client{UserID: userID, Conn: conn}
	h.hub.register <- client

	defer func() {
		h.hub.unregister <- client
		conn.Close()
	}()

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("websocket read failed", "user_id", userID, "error", err)
			}
			break
		}

		if msg.Type == "PING" {
			conn.WriteJSON(Message{Type: "PONG", Data: gin.H{"timestamp": time.Now().Unix()}})
		}
	}
}

func (hub *WebSocketHub) run(logger *slog.Logger) {
	for {
		select {
		case client := <-hub.register:
			hub.clients[client.UserID] = client.Conn
			logger.Debug("feed client connected", "user_id", client.UserID)

		case client := <-hub.unregister:
			if _, ok := hub.clients[client.UserID]; ok {
				delete(hub.clients, client.UserID)
				logger.Debug("feed client disconnected", "user_id", client.UserID)
			}

		case message := <-hub.broadcast:
			hub.deliver(message)
		}
	}
}

func (hub *WebSocketHub) deliver(message *Message) {
	if message.UserID != 0 {
		if conn, ok := hub.clients[message.UserID]; ok {
			conn.WriteJSON(message)
		}
		return
	}
	for _, conn := range hub.clients {
		conn.WriteJSON(message)
	}
}

// BroadcastWin announces a prize to every connected client. The winner
// stays anonymous in the feed; only the game id and prize are shown.
func (h *WebSocketHandler) BroadcastWin(userID int64, outcome *models.RevealOutcome) {
	h.hub.broadcast <- &Message{
		Type: "WIN_ANNOUNCEMENT",
		Data: gin.H{
			"game_id":      outcome.GameID,
			"choice":       outcome.Choice,
			"prize_kind":   outcome.PrizeKind,
			"prize_amount": outcome.PrizeAmount,
			"timestamp":    time.Now().Unix(),
		},
	}
}

// NotifyReferralBonus tells the referrer their threshold bonus landed.
func (h *WebSocketHandler) NotifyReferralBonus(referrerID int64, amount float64, count int64, tokenLive bool) {
	h.hub.broadcast <- &Message{
		Type:   "REFERRAL_BONUS",
		UserID: referrerID,
		Data: gin.H{
			"bonus":          amount,
			"referral_count": count,
			"token_live":     tokenLive,
			"timestamp":      time.Now().Unix(),
		},
	}
}
