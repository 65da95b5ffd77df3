package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/roomly/roomly-server/internal/chat"
)

// Client to server events.
const (
	EventJoinChat      = "join_chat"
	EventLeaveChat     = "leave_chat"
	EventSendMessage   = "send_message"
	EventMarkRead      = "mark_read"
	EventMarkReadAlias = "markMessagesAsRead"
)

// Server to client events.
const (
	EventNewMessage   = "new_message"
	EventMessagesRead = "messages_read"
	EventOnlineUsers  = "online_users"
)

var errEmptyData = errors.New("missing event data")

type BaseMessage struct {
	Id        int       `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type ClientMessage struct {
	BaseMessage
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ChatRef is the payload of join_chat, leave_chat and mark_read. It is
// sent either as a bare chat id or as an object. A userId sent with
// mark_read is accepted on the wire and ignored.
type ChatRef struct {
	ChatId int `json:"chatId"`
	UserId int `json:"userId,omitempty"`
}

func (r *ChatRef) UnmarshalJSON(b []byte) error {
	var id int
	if err := json.Unmarshal(b, &id); err == nil {
		*r = ChatRef{ChatId: id}
		return nil
	}

	type chatRef ChatRef
	var obj chatRef
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	*r = ChatRef(obj)
	return nil
}

type SendMessage struct {
	ChatId int    `json:"chatId"`
	Text   string `json:"text"`
}

type ServerMessage struct {
	BaseMessage
	Event    string    `json:"event,omitempty"`
	Data     any       `json:"data,omitempty"`
	Response *Response `json:"response,omitempty"`

	// delivery targets, never serialized
	Rooms    []string `json:"-"`
	Everyone bool     `json:"-"`
}

type Response struct {
	ResponseCode int            `json:"response_code"`
	Error        string         `json:"error,omitempty"`
	Data         map[string]any `json:"data,omitempty"`
}

func userRoom(userId int) string {
	return fmt.Sprintf("user_%d", userId)
}

func chatRoom(chatId int) string {
	return fmt.Sprintf("chat_%d", chatId)
}

func newEvent(event string, data any) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Timestamp: Now(),
		},
		Event: event,
		Data:  data,
	}
}

func NoErrOK(id int, data map[string]any) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusOK,
			Data:         data,
		},
	}
}

func errResponse(id, code int, text string) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: code,
			Error:        text,
		},
	}
}

func ErrChatNotFound(id int) *ServerMessage {
	return errResponse(id, http.StatusNotFound, "chat not found")
}

func ErrForbidden(id int) *ServerMessage {
	return errResponse(id, http.StatusForbidden, "forbidden")
}

func ErrInvalidInput(id int) *ServerMessage {
	return errResponse(id, http.StatusBadRequest, "invalid input")
}

func ErrConflict(id int) *ServerMessage {
	return errResponse(id, http.StatusConflict, "conflict")
}

func ErrInternalError(id int) *ServerMessage {
	return errResponse(id, http.StatusInternalServerError, "internal server error")
}

func ErrServiceUnavailable(id int) *ServerMessage {
	return errResponse(id, http.StatusServiceUnavailable, "service unavailable")
}

func ErrInvalidMessage(id int) *ServerMessage {
	msg := errResponse(0, http.StatusBadRequest, "invalid message format")
	if id > 0 {
		msg.Id = id
	}
	return msg
}

func ErrUnknownEvent(id int) *ServerMessage {
	return errResponse(id, http.StatusBadRequest, "unknown event")
}

// ErrFromService classifies a chat service error. The second return
// value is false for unclassified errors, whose detail must not reach
// the client.
func ErrFromService(id int, err error) (*ServerMessage, bool) {
	switch {
	case errors.Is(err, chat.ErrInvalidInput):
		return ErrInvalidInput(id), true
	case errors.Is(err, chat.ErrForbidden):
		return ErrForbidden(id), true
	case errors.Is(err, chat.ErrNotFound):
		return ErrChatNotFound(id), true
	case errors.Is(err, chat.ErrConflict):
		return ErrConflict(id), true
	default:
		return ErrInternalError(id), false
	}
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
