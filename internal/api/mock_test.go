package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/roomly/roomly-server/internal/assets"
	"github.com/roomly/roomly-server/internal/auth"
	"github.com/roomly/roomly-server/internal/config"
	"github.com/roomly/roomly-server/internal/database"
	"github.com/roomly/roomly-server/internal/testutil"
	"github.com/roomly/roomly-server/internal/types"
	"github.com/stretchr/testify/mock"
)

var testSigningKey = []byte("test-signing-key")

type MockChatService struct {
	mock.Mock
}

func (m *MockChatService) FindOrCreateChat(ctx context.Context, userA, userB int) (types.Chat, error) {
	args := m.Called(ctx, userA, userB)
	return args.Get(0).(types.Chat), args.Error(1)
}

func (m *MockChatService) ListChats(ctx context.Context, userId int) ([]types.ChatSummary, error) {
	args := m.Called(ctx, userId)
	if chats, ok := args.Get(0).([]types.ChatSummary); ok {
		return chats, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockChatService) AppendMessage(ctx context.Context, chatId, senderId int, content string, typ types.MessageType) (types.Message, error) {
	args := m.Called(ctx, chatId, senderId, content, typ)
	return args.Get(0).(types.Message), args.Error(1)
}

func (m *MockChatService) ListMessages(ctx context.Context, chatId, requesterId int) ([]types.Message, error) {
	args := m.Called(ctx, chatId, requesterId)
	if msgs, ok := args.Get(0).([]types.Message); ok {
		return msgs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockChatService) MarkRead(ctx context.Context, chatId, readerId int, now time.Time) (int, error) {
	args := m.Called(ctx, chatId, readerId, now)
	return args.Int(0), args.Error(1)
}

func (m *MockChatService) ChatParticipant(ctx context.Context, chatId, userId int) error {
	args := m.Called(ctx, chatId, userId)
	return args.Error(0)
}

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Save(ctx context.Context, r io.Reader) (assets.Asset, error) {
	args := m.Called(ctx, r)
	return args.Get(0).(assets.Asset), args.Error(1)
}

func testConfig() *config.Config {
	return &config.Config{
		ServerAddr:     "localhost:8080",
		DatabaseDSN:    "dsn",
		SigningKey:     testSigningKey,
		TokenTTL:       time.Hour,
		AllowedOrigins: []string{"http://localhost:3000"},
	}
}

// newTestApp builds an app without a chat server; websocket tests
// supply their own.
func newTestApp(t *testing.T, db database.Repository, chats ChatService, store assets.Store) *RoomlyApp {
	return NewRoomlyApp(http.NewServeMux(), testutil.TestLogger(t), nil, chats, db, store, testConfig())
}

func testToken(t *testing.T, userId int) string {
	token, err := auth.NewVerifier(testSigningKey).CreateToken(userId, types.RoleUser, time.Hour)
	if err != nil {
		t.Fatalf("failed to create token: %v", err)
	}
	return token
}

// doRequest sends a request through the app's full handler chain,
// authenticated as userId when userId is positive.
func doRequest(t *testing.T, app *RoomlyApp, method, target string, body any, userId int) *httptest.ResponseRecorder {
	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = bytes.NewBufferString(b)
	default:
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(b); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
		rdr = buf
	}

	req := httptest.NewRequest(method, target, rdr)
	req.Header.Set("Content-Type", "application/json")
	if userId > 0 {
		req.Header.Set("Authorization", "Bearer "+testToken(t, userId))
	}

	rr := httptest.NewRecorder()
	app.mux.Handler.ServeHTTP(rr, req)
	return rr
}

func decodeApiError(t *testing.T, rr *httptest.ResponseRecorder) ApiError {
	var apiErr ApiError
	if err := json.NewDecoder(rr.Body).Decode(&apiErr); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return apiErr
}
