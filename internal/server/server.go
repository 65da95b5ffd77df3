package server

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/roomly/roomly-server/internal/stats"
	"github.com/roomly/roomly-server/internal/types"
)

const (
	metricActiveClients = "NumActiveClients"
	metricOnlineUsers   = "NumOnlineUsers"
	metricMessagesSent  = "MessagesSent"
	metricReadReceipts  = "ReadReceipts"

	broadcastQueueSize = 256
)

var (
	ErrBroadcastQueueFull = errors.New("broadcast queue full")
	ErrServerStopped      = errors.New("chat server stopped")
)

// ChatService is the part of the chat service the gateway drives.
type ChatService interface {
	ChatParticipant(ctx context.Context, chatId, userId int) error
	AppendMessage(ctx context.Context, chatId, senderId int, content string, typ types.MessageType) (types.Message, error)
	MarkRead(ctx context.Context, chatId, readerId int, now time.Time) (int, error)
}

type roomReq struct {
	id     int
	room   string
	client *Client
}

type stopReq struct {
	done chan struct{}
}

// ChatServer is the realtime hub. Clients, rooms and presence are owned
// by the Run goroutine and must not be touched from anywhere else.
type ChatServer struct {
	log      *log.Logger
	chats    ChatService
	stats    stats.StatsProvider
	clients  map[*Client]struct{}
	rooms    map[string]map[*Client]struct{}
	presence *Presence

	registerChan   chan *Client
	deregisterChan chan *Client
	joinChan       chan *roomReq
	leaveChan      chan *roomReq
	broadcastChan  chan *ServerMessage
	stop           chan stopReq
	// done is closed once Run has returned
	done chan struct{}
}

func NewChatServer(logger *log.Logger, chats ChatService, statsProvider stats.StatsProvider) (*ChatServer, error) {
	if chats == nil {
		return nil, errors.New("chat service is required")
	}

	statsProvider.RegisterMetric(metricActiveClients)
	statsProvider.RegisterMetric(metricOnlineUsers)
	statsProvider.RegisterCounter(metricMessagesSent)
	statsProvider.RegisterCounter(metricReadReceipts)

	return &ChatServer{
		log:            logger,
		chats:          chats,
		stats:          statsProvider,
		clients:        make(map[*Client]struct{}),
		rooms:          make(map[string]map[*Client]struct{}),
		presence:       NewPresence(),
		registerChan:   make(chan *Client),
		deregisterChan: make(chan *Client),
		joinChan:       make(chan *roomReq, 256),
		leaveChan:      make(chan *roomReq, 256),
		broadcastChan:  make(chan *ServerMessage, broadcastQueueSize),
		stop:           make(chan stopReq),
		done:           make(chan struct{}),
	}, nil
}

func (cs *ChatServer) Run() {
	defer close(cs.done)

	for {
		select {
		case client := <-cs.registerChan:
			cs.log.Printf("adding connection %s for user %d", client.id, client.userId)
			cs.registerClient(client)
		case client := <-cs.deregisterChan:
			cs.log.Printf("removing connection %s for user %d", client.id, client.userId)
			cs.deregisterClient(client)
		case req := <-cs.joinChan:
			cs.handleJoin(req)
		case req := <-cs.leaveChan:
			cs.handleLeave(req)
		case msg := <-cs.broadcastChan:
			cs.handleBroadcast(msg)
		case req := <-cs.stop:
			cs.log.Println("stopping clients")
			for c := range cs.clients {
				c.stopClient()
			}
			close(req.done)
			return
		}
	}
}

// Register hands an authenticated connection to the hub.
func (cs *ChatServer) Register(c *Client) error {
	select {
	case cs.registerChan <- c:
		return nil
	case <-cs.done:
		return ErrServerStopped
	}
}

func (cs *ChatServer) deregister(c *Client) {
	select {
	case cs.deregisterChan <- c:
	case <-cs.done:
	}
}

func (cs *ChatServer) join(req *roomReq) bool {
	select {
	case cs.joinChan <- req:
		return true
	default:
		return false
	}
}

func (cs *ChatServer) leave(req *roomReq) bool {
	select {
	case cs.leaveChan <- req:
		return true
	default:
		return false
	}
}

func (cs *ChatServer) broadcast(msg *ServerMessage) error {
	select {
	case cs.broadcastChan <- msg:
		return nil
	default:
		return ErrBroadcastQueueFull
	}
}

// NotifyNewMessage fans a stored message out to the chat room and to the
// recipient's personal room.
func (cs *ChatServer) NotifyNewMessage(msg types.Message, recipientId int) error {
	ev := newEvent(EventNewMessage, msg)
	ev.Rooms = []string{chatRoom(msg.ChatId), userRoom(recipientId)}
	if err := cs.broadcast(ev); err != nil {
		return err
	}
	cs.stats.Incr(metricMessagesSent)
	return nil
}

// NotifyMessagesRead tells everyone in the chat room that the reader
// caught up.
func (cs *ChatServer) NotifyMessagesRead(receipt types.ReadReceipt) error {
	ev := newEvent(EventMessagesRead, receipt)
	ev.Rooms = []string{chatRoom(receipt.ChatId)}
	if err := cs.broadcast(ev); err != nil {
		return err
	}
	cs.stats.Incr(metricReadReceipts)
	return nil
}

func (cs *ChatServer) registerClient(c *Client) {
	cs.clients[c] = struct{}{}
	cs.stats.Incr(metricActiveClients)
	cs.addToRoom(userRoom(c.userId), c)

	if cs.presence.MarkOnline(c.userId) {
		cs.stats.Incr(metricOnlineUsers)
		cs.handleBroadcast(cs.onlineUsers(true))
		return
	}

	// the set did not change, so only the new connection lacks it
	c.queueMessage(cs.onlineUsers(false))
}

func (cs *ChatServer) deregisterClient(c *Client) {
	if _, ok := cs.clients[c]; !ok {
		return
	}

	delete(cs.clients, c)
	cs.stats.Decr(metricActiveClients)
	for room := range c.rooms {
		cs.removeFromRoom(room, c)
	}

	if cs.presence.MarkOffline(c.userId) {
		cs.stats.Decr(metricOnlineUsers)
		cs.handleBroadcast(cs.onlineUsers(true))
	}
}

func (cs *ChatServer) onlineUsers(everyone bool) *ServerMessage {
	ev := newEvent(EventOnlineUsers, cs.presence.Snapshot())
	ev.Everyone = everyone
	return ev
}

func (cs *ChatServer) handleJoin(req *roomReq) {
	if _, ok := cs.clients[req.client]; !ok {
		return
	}

	cs.addToRoom(req.room, req.client)
	if req.id > 0 {
		req.client.queueMessage(NoErrOK(req.id, map[string]any{"room": req.room}))
	}
}

func (cs *ChatServer) handleLeave(req *roomReq) {
	if _, ok := cs.clients[req.client]; !ok {
		return
	}

	cs.removeFromRoom(req.room, req.client)
	if req.id > 0 {
		req.client.queueMessage(NoErrOK(req.id, map[string]any{"room": req.room}))
	}
}

func (cs *ChatServer) addToRoom(room string, c *Client) {
	members, ok := cs.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		cs.rooms[room] = members
	}
	members[c] = struct{}{}
	c.rooms[room] = struct{}{}
}

func (cs *ChatServer) removeFromRoom(room string, c *Client) {
	delete(c.rooms, room)
	members, ok := cs.rooms[room]
	if !ok {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(cs.rooms, room)
	}
}

// handleBroadcast delivers msg to every targeted client exactly once,
// even when a client sits in more than one of the target rooms.
func (cs *ChatServer) handleBroadcast(msg *ServerMessage) {
	targets := make(map[*Client]struct{})
	if msg.Everyone {
		for c := range cs.clients {
			targets[c] = struct{}{}
		}
	}
	for _, room := range msg.Rooms {
		for c := range cs.rooms[room] {
			targets[c] = struct{}{}
		}
	}

	for c := range targets {
		c.queueMessage(msg)
	}
}

// Shutdown stops every client and the hub loop.
func (cs *ChatServer) Shutdown(ctx context.Context) error {
	cs.log.Println("received shutdown signal")
	req := stopReq{done: make(chan struct{})}

	select {
	case cs.stop <- req:
	case <-cs.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-req.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
