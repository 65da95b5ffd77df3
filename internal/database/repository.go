package database

import (
	"context"
	"time"
)

type Repository interface {
	Ping(ctx context.Context) error

	CreateAccount(ctx context.Context, params CreateAccountParams) (User, error)
	UpdateAccount(ctx context.Context, params UpdateAccountParams) (User, error)
	GetAccountById(ctx context.Context, accountId int) (User, error)
	GetAccountByEmail(ctx context.Context, email string) (User, error)
	SearchAccounts(ctx context.Context, params SearchAccountsParams) ([]User, error)

	GetChatById(ctx context.Context, chatId int) (Chat, error)
	GetChatByParticipants(ctx context.Context, userA, userB int) (Chat, error)
	CreateChat(ctx context.Context, userA, userB int) (Chat, error)
	ListChatsForUser(ctx context.Context, userId int) ([]ChatListing, error)

	CreateMessage(ctx context.Context, params CreateMessageParams) (Message, error)
	GetMessages(ctx context.Context, chatId int) ([]Message, error)
	MarkMessagesRead(ctx context.Context, chatId, readerId int, seenAt time.Time) (int, error)
}
