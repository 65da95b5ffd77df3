package database

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
func (m *MockRepository) CreateAccount(ctx context.Context, params CreateAccountParams) (User, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockRepository) UpdateAccount(ctx context.Context, params UpdateAccountParams) (User, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockRepository) GetAccountById(ctx context.Context, accountId int) (User, error) {
	args := m.Called(ctx, accountId)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockRepository) GetAccountByEmail(ctx context.Context, email string) (User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockRepository) SearchAccounts(ctx context.Context, params SearchAccountsParams) ([]User, error) {
	args := m.Called(ctx, params)
	if users, ok := args.Get(0).([]User); ok {
		return users, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockRepository) GetChatById(ctx context.Context, chatId int) (Chat, error) {
	args := m.Called(ctx, chatId)
	return args.Get(0).(Chat), args.Error(1)
}
func (m *MockRepository) GetChatByParticipants(ctx context.Context, userA, userB int) (Chat, error) {
	args := m.Called(ctx, userA, userB)
	return args.Get(0).(Chat), args.Error(1)
}
func (m *MockRepository) CreateChat(ctx context.Context, userA, userB int) (Chat, error) {
	args := m.Called(ctx, userA, userB)
	return args.Get(0).(Chat), args.Error(1)
}
func (m *MockRepository) ListChatsForUser(ctx context.Context, userId int) ([]ChatListing, error) {
	args := m.Called(ctx, userId)
	if listings, ok := args.Get(0).([]ChatListing); ok {
		return listings, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockRepository) CreateMessage(ctx context.Context, params CreateMessageParams) (Message, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockRepository) GetMessages(ctx context.Context, chatId int) ([]Message, error) {
	args := m.Called(ctx, chatId)
	if msgs, ok := args.Get(0).([]Message); ok {
		return msgs, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockRepository) MarkMessagesRead(ctx context.Context, chatId, readerId int, seenAt time.Time) (int, error) {
	args := m.Called(ctx, chatId, readerId, seenAt)
	return args.Int(0), args.Error(1)
}
