package database

import (
	"database/sql"
	"time"
)

type User struct {
	Id              int
	FirstName       string
	LastName        string
	PhoneNumber     string
	EmailAddress    string
	PasswordHash    string
	Location        string
	RoomType        string
	BudgetMin       float64
	BudgetMax       float64
	Hobbies         string
	Gender          string
	PreferredGender string
	Role            string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Chat struct {
	Id           int
	User1Id      int
	User2Id      int
	LastActivity time.Time
	CreatedAt    time.Time
}

type Message struct {
	Id        int64
	ChatId    int
	SenderId  int
	Content   string
	Type      string
	Status    string
	SeenBy    sql.NullInt64
	SeenAt    sql.NullTime
	CreatedAt time.Time
}

// ChatListing is a chat row joined with the other participant's account
// and the chat's most recent message, if any.
type ChatListing struct {
	Chat          Chat
	Peer          User
	LatestMessage *Message
}

type CreateAccountParams struct {
	FirstName    string
	LastName     string
	PhoneNumber  string
	EmailAddress string
	PasswordHash string
}

type UpdateAccountParams struct {
	UserId          int
	FirstName       string
	LastName        string
	PhoneNumber     string
	Location        string
	RoomType        string
	BudgetMin       float64
	BudgetMax       float64
	Hobbies         string
	Gender          string
	PreferredGender string
}

type SearchAccountsParams struct {
	Query     string
	Location  string
	RoomType  string
	Gender    string
	Hobbies   string
	BudgetMin *float64
	BudgetMax *float64
}

type CreateMessageParams struct {
	ChatId    int
	SenderId  int
	Content   string
	Type      string
	CreatedAt time.Time
}
