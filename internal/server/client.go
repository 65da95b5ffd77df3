package server

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/roomly/roomly-server/internal/types"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 4096
	eventTimeout   = 10 * time.Second
)

type Client struct {
	id         uuid.UUID
	conn       *websocket.Conn
	chatServer *ChatServer
	log        *log.Logger
	userId     int
	send       chan *ServerMessage
	// rooms is owned by the hub goroutine
	rooms    map[string]struct{}
	ctx      context.Context
	cancel   context.CancelFunc
	stop     chan struct{}
	stopOnce sync.Once
}

func NewClient(userId int, conn *websocket.Conn, cs *ChatServer, l *log.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		id:         uuid.New(),
		conn:       conn,
		chatServer: cs,
		log:        l,
		userId:     userId,
		send:       make(chan *ServerMessage, 256),
		rooms:      make(map[string]struct{}),
		ctx:        ctx,
		cancel:     cancel,
		stop:       make(chan struct{}),
	}
}

func (c *Client) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			bytes, err := c.serializeMessage(msg)
			if err != nil {
				c.log.Println("failed to serialize message:", err)
				continue
			}

			if !c.sendMessage(websocket.TextMessage, bytes) {
				return
			}
		case <-c.stop:
			c.sendMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return
		case <-ticker.C:
			if !c.sendMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (c *Client) Read() {
	defer func() {
		c.conn.Close()
		c.cleanup()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(appData string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Printf("ws: read: %v", err)
			}
			break
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.log.Println("error parsing message:", err)
			c.queueMessage(ErrInvalidMessage(-1))
			continue
		}

		msg.Timestamp = Now()
		c.dispatch(&msg)
	}
}

// dispatch handles one client event. Events from a single connection
// are handled in arrival order.
func (c *Client) dispatch(msg *ClientMessage) {
	switch msg.Event {
	case EventJoinChat:
		c.handleJoinChat(msg)
	case EventLeaveChat:
		c.handleLeaveChat(msg)
	case EventSendMessage:
		c.handleSendMessage(msg)
	case EventMarkRead, EventMarkReadAlias:
		c.handleMarkRead(msg)
	default:
		c.queueMessage(ErrUnknownEvent(msg.Id))
	}
}

func (c *Client) handleJoinChat(msg *ClientMessage) {
	var ref ChatRef
	if err := decodeData(msg.Data, &ref); err != nil || ref.ChatId <= 0 {
		c.queueMessage(ErrInvalidInput(msg.Id))
		return
	}

	ctx, cancel := context.WithTimeout(c.ctx, eventTimeout)
	defer cancel()

	if err := c.chatServer.chats.ChatParticipant(ctx, ref.ChatId, c.userId); err != nil {
		c.respondErr(msg.Id, err)
		return
	}

	if !c.chatServer.join(&roomReq{id: msg.Id, room: chatRoom(ref.ChatId), client: c}) {
		c.log.Printf("joinChan full")
		c.queueMessage(ErrServiceUnavailable(msg.Id))
	}
}

func (c *Client) handleLeaveChat(msg *ClientMessage) {
	var ref ChatRef
	if err := decodeData(msg.Data, &ref); err != nil || ref.ChatId <= 0 {
		c.queueMessage(ErrInvalidInput(msg.Id))
		return
	}

	if !c.chatServer.leave(&roomReq{id: msg.Id, room: chatRoom(ref.ChatId), client: c}) {
		c.log.Printf("leaveChan full")
		c.queueMessage(ErrServiceUnavailable(msg.Id))
	}
}

func (c *Client) handleSendMessage(msg *ClientMessage) {
	var sm SendMessage
	if err := decodeData(msg.Data, &sm); err != nil {
		c.queueMessage(ErrInvalidInput(msg.Id))
		return
	}

	ctx, cancel := context.WithTimeout(c.ctx, eventTimeout)
	defer cancel()

	stored, err := c.chatServer.chats.AppendMessage(ctx, sm.ChatId, c.userId, sm.Text, types.MessageText)
	if err != nil {
		c.respondErr(msg.Id, err)
		return
	}

	if msg.Id > 0 {
		c.queueMessage(NoErrOK(msg.Id, map[string]any{"message": stored}))
	}
}

func (c *Client) handleMarkRead(msg *ClientMessage) {
	var ref ChatRef
	if err := decodeData(msg.Data, &ref); err != nil {
		c.queueMessage(ErrInvalidInput(msg.Id))
		return
	}

	ctx, cancel := context.WithTimeout(c.ctx, eventTimeout)
	defer cancel()

	n, err := c.chatServer.chats.MarkRead(ctx, ref.ChatId, c.userId, time.Now())
	if err != nil {
		c.respondErr(msg.Id, err)
		return
	}

	if msg.Id > 0 {
		c.queueMessage(NoErrOK(msg.Id, map[string]any{"count": n}))
	}
}

func (c *Client) respondErr(id int, err error) {
	resp, known := ErrFromService(id, err)
	if !known {
		c.log.Printf("user %d: %v", c.userId, err)
	}
	c.queueMessage(resp)
}

func decodeData(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return errEmptyData
	}
	return json.Unmarshal(data, v)
}

func (c *Client) queueMessage(msg *ServerMessage) bool {
	select {
	case c.send <- msg:
	default:
		c.log.Printf("failed to send message to client %s, channel is full", c.id)
		return false
	}

	return true
}

func (c *Client) serializeMessage(msg *ServerMessage) ([]byte, error) {
	return json.Marshal(msg)
}

func (c *Client) sendMessage(msgType int, msg []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(msgType, msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.log.Printf("write message: %s", err)
		}
		return false
	}

	return true
}

func (c *Client) stopClient() {
	c.stopOnce.Do(func() {
		c.cancel()
		close(c.stop)
	})
}

func (c *Client) cleanup() {
	c.chatServer.deregister(c)
	c.stopClient()
}
