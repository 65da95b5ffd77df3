package server

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/roomly/roomly-server/internal/stats"
	"github.com/roomly/roomly-server/internal/testutil"
	"github.com/roomly/roomly-server/internal/types"
	"github.com/stretchr/testify/mock"
)

type MockChatService struct {
	mock.Mock
}

func (m *MockChatService) ChatParticipant(ctx context.Context, chatId, userId int) error {
	args := m.Called(ctx, chatId, userId)
	return args.Error(0)
}

func (m *MockChatService) AppendMessage(ctx context.Context, chatId, senderId int, content string, typ types.MessageType) (types.Message, error) {
	args := m.Called(ctx, chatId, senderId, content, typ)
	return args.Get(0).(types.Message), args.Error(1)
}

func (m *MockChatService) MarkRead(ctx context.Context, chatId, readerId int, now time.Time) (int, error) {
	args := m.Called(ctx, chatId, readerId, now)
	return args.Int(0), args.Error(1)
}

// newTestChatServer creates a ChatServer whose loop is not running.
func newTestChatServer(t *testing.T, chats ChatService, su *stats.MockStatsUpdater) *ChatServer {
	su.On("RegisterMetric", mock.Anything).Return().Times(2)
	su.On("RegisterCounter", mock.Anything).Return().Times(2)

	cs, err := NewChatServer(testutil.TestLogger(t), chats, su)
	if err != nil {
		t.Fatalf("failed to create test ChatServer: %v", err)
	}
	return cs
}

// newTestClient creates a connectionless client for exercising the hub
// and the event handlers.
func newTestClient(t *testing.T, cs *ChatServer, userId int) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return &Client{
		id:         uuid.New(),
		chatServer: cs,
		log:        testutil.TestLogger(t),
		userId:     userId,
		send:       make(chan *ServerMessage, 16),
		rooms:      make(map[string]struct{}),
		ctx:        ctx,
		cancel:     cancel,
		stop:       make(chan struct{}),
	}
}

// drain returns every message queued for c without blocking.
func drain(c *Client) []*ServerMessage {
	var msgs []*ServerMessage
	for {
		select {
		case m := <-c.send:
			msgs = append(msgs, m)
		default:
			return msgs
		}
	}
}
