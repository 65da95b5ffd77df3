package types

import (
	"time"
)

type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superAdmin"
)

// User is the public view of an account. It never carries credential
// material and is the only user shape written to clients.
type User struct {
	Id              int       `json:"id"`
	FirstName       string    `json:"firstName"`
	LastName        string    `json:"lastName"`
	EmailAddress    string    `json:"email,omitempty"`
	PhoneNumber     string    `json:"phoneNumber,omitempty"`
	Location        string    `json:"location,omitempty"`
	RoomType        string    `json:"roomType,omitempty"`
	BudgetMin       float64   `json:"budgetMin"`
	BudgetMax       float64   `json:"budgetMax"`
	Hobbies         []string  `json:"hobbies"`
	Gender          string    `json:"gender,omitempty"`
	PreferredGender string    `json:"preferredGender,omitempty"`
	Role            Role      `json:"role"`
	CreatedAt       time.Time `json:"createdAt,omitempty"`
	UpdatedAt       time.Time `json:"updatedAt,omitempty"`
}

type Chat struct {
	Id           int       `json:"id"`
	User1Id      int       `json:"user1Id"`
	User2Id      int       `json:"user2Id"`
	LastActivity time.Time `json:"lastActivity"`
	CreatedAt    time.Time `json:"createdAt"`
}

// HasParticipant reports whether userId is one of the chat's two users.
func (c Chat) HasParticipant(userId int) bool {
	return c.User1Id == userId || c.User2Id == userId
}

// Peer returns the participant that is not userId.
func (c Chat) Peer(userId int) int {
	if c.User1Id == userId {
		return c.User2Id
	}
	return c.User1Id
}

// ChatPeer is the other participant of a chat as shown in a chat list.
type ChatPeer struct {
	Id           int    `json:"id"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	EmailAddress string `json:"email"`
}

// ChatSummary is a chat as listed for one of its participants.
type ChatSummary struct {
	Chat
	Peer          *ChatPeer `json:"peer,omitempty"`
	LatestMessage *Message  `json:"latestMessage"`
}

type MessageType string

const (
	MessageText     MessageType = "text"
	MessageImage    MessageType = "image"
	MessageFile     MessageType = "file"
	MessageVideo    MessageType = "video"
	MessageAudio    MessageType = "audio"
	MessageDocument MessageType = "document"
)

func (t MessageType) Valid() bool {
	switch t {
	case MessageText, MessageImage, MessageFile, MessageVideo, MessageAudio, MessageDocument:
		return true
	}
	return false
}

type MessageStatus string

const (
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusRead      MessageStatus = "read"
)

type Message struct {
	Id        int64         `json:"id"`
	ChatId    int           `json:"chatId"`
	SenderId  int           `json:"senderId"`
	Content   string        `json:"content"`
	Type      MessageType   `json:"type"`
	Status    MessageStatus `json:"status"`
	SeenBy    *int          `json:"seenBy"`
	SeenAt    *time.Time    `json:"seenAt"`
	CreatedAt time.Time     `json:"createdAt"`
}

// ReadReceipt is published when a participant reads a chat.
type ReadReceipt struct {
	ChatId   int       `json:"chatId"`
	ReaderId int       `json:"readerId"`
	SeenAt   time.Time `json:"seenAt"`
	Count    int       `json:"-"`
}
