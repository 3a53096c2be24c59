package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"flipball-backend/internal/services"
)

const (
	MessageBalanceUpdate = "BALANCE_UPDATE"
	MessagePing          = "PING"
	MessagePong          = "PONG"

	writeWait = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Message struct {
	Type  string      `json:"type"`
	Email string      `json:"email,omitempty"`
	Data  interface{} `json:"data"`
}

type Client struct {
	Email string
	Conn  *websocket.Conn
}

// WebSocketHub owns every connection; all writes happen on the hub goroutine.
type WebSocketHub struct {
	clients    map[string]*websocket.Conn
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
	done       chan struct{}
	log        logrus.FieldLogger
}

type WebSocketHandler struct {
	store services.AccountStore
	hub   *WebSocketHub
	log   logrus.FieldLogger
}

func NewWebSocketHandler(store services.AccountStore, log logrus.FieldLogger) *WebSocketHandler {
	hub := &WebSocketHub{
		clients:    make(map[string]*websocket.Conn),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 100),
		done:       make(chan struct{}),
		log:        log,
	}

	go hub.run()

	return &WebSocketHandler{
		store: store,
		hub:   hub,
		log:   log,
	}
}

func (h *WebSocketHandler) Close() {
	close(h.hub.done)
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		fail(c, http.StatusBadRequest, "Missing email!")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.WithError(err).Warn("WebSocketHandler.Upgrade.Error")
		return
	}

	client := &Client{
		Email: email,
		Conn:  conn,
	}

	select {
	case h.hub.register <- client:
	case <-h.hub.done:
		conn.Close()
		return
	}

	defer func() {
		select {
		case h.hub.unregister <- client:
		case <-h.hub.done:
		}
		conn.Close()
	}()

	h.sendBalance(c, client)

	for {
		var msg Message
		err := conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.WithError(err).Warn("WebSocketHandler.Read.Error")
			}
			break
		}

		h.handleMessage(client, &msg)
	}
}

func (h *WebSocketHandler) handleMessage(client *Client, msg *Message) {
	switch msg.Type {
	case MessagePing:
		h.send(&Message{
			Type:  MessagePong,
			Email: client.Email,
			Data: gin.H{
				"timestamp": time.Now().Unix(),
			},
		})
	}
}

func (h *WebSocketHandler) sendBalance(c *gin.Context, client *Client) {
	acc, err := h.store.GetAccount(c.Request.Context(), client.Email)
	if errors.Is(err, services.ErrAccountNotFound) {
		return
	}
	if err != nil {
		h.log.WithError(err).Warn("WebSocketHandler.SendBalance.Error")
		return
	}

	h.BroadcastBalance(acc.Email, acc.Balance, acc.Attempts)
}

// BroadcastBalance pushes the ledger to the connection registered for email.
func (h *WebSocketHandler) BroadcastBalance(email string, balance decimal.Decimal, attempts int64) {
	h.send(&Message{
		Type:  MessageBalanceUpdate,
		Email: email,
		Data: gin.H{
			"balance":  balance,
			"attempts": attempts,
		},
	})
}

func (h *WebSocketHandler) send(msg *Message) {
	select {
	case h.hub.broadcast <- msg:
	default:
		h.log.WithField("type", msg.Type).Warn("WebSocketHub.Broadcast.Dropped")
	}
}

func (hub *WebSocketHub) run() {
	for {
		select {
		case client := <-hub.register:
			if old, ok := hub.clients[client.Email]; ok && old != client.Conn {
				old.Close()
			}
			hub.clients[client.Email] = client.Conn
			hub.log.WithField("email", client.Email).Debug("WebSocketHub.Register")

		case client := <-hub.unregister:
			if conn, ok := hub.clients[client.Email]; ok && conn == client.Conn {
				delete(hub.clients, client.Email)
				hub.log.WithField("email", client.Email).Debug("WebSocketHub.Unregister")
			}

		case message := <-hub.broadcast:
			hub.broadcastMessage(message)

		case <-hub.done:
			for email, conn := range hub.clients {
				conn.Close()
				delete(hub.clients, email)
			}
			return
		}
	}
}

func (hub *WebSocketHub) broadcastMessage(message *Message) {
	if message.Email != "" {
		if conn, ok := hub.clients[message.Email]; ok {
			hub.write(message.Email, conn, message)
		}
		return
	}

	for email, conn := range hub.clients {
		hub.write(email, conn, message)
	}
}

func (hub *WebSocketHub) write(email string, conn *websocket.Conn, message *Message) {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(message); err != nil {
		hub.log.WithError(err).WithField("email", email).Warn("WebSocketHub.Write.Error")
		conn.Close()
		delete(hub.clients, email)
	}
}
