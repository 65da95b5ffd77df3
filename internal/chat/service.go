package chat

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/roomly/roomly-server/internal/database"
	"github.com/roomly/roomly-server/internal/types"
)

// Service owns chats and their messages. Every write is committed to the
// repository before any notification is attempted.
type Service struct {
	log   *log.Logger
	repo  database.Repository
	clock *clock

	mu       sync.RWMutex
	notifier Notifier
}

func NewService(logger *log.Logger, repo database.Repository) *Service {
	return &Service{
		log:   logger,
		repo:  repo,
		clock: newClock(time.Now),
	}
}

// SetNotifier attaches the realtime notifier. Until one is attached,
// writes still succeed and the skipped notifications are logged.
func (s *Service) SetNotifier(n Notifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifier = n
}

func (s *Service) getNotifier() Notifier {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.notifier
}

// FindOrCreateChat returns the chat between userA and userB, creating it
// with userA as the first participant when none exists.
func (s *Service) FindOrCreateChat(ctx context.Context, userA, userB int) (types.Chat, error) {
	if userA <= 0 || userB <= 0 || userA == userB {
		return types.Chat{}, ErrInvalidInput
	}

	if _, err := s.repo.GetAccountById(ctx, userB); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Chat{}, fmt.Errorf("recipient %d: %w", userB, ErrNotFound)
		}
		return types.Chat{}, fmt.Errorf("get recipient: %w", err)
	}

	c, err := s.repo.GetChatByParticipants(ctx, userA, userB)
	if err == nil {
		return c.Public(), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return types.Chat{}, fmt.Errorf("get chat: %w", err)
	}

	c, err = s.repo.CreateChat(ctx, userA, userB)
	if err == nil {
		return c.Public(), nil
	}
	if !errors.Is(err, database.ErrConflict) {
		return types.Chat{}, fmt.Errorf("create chat: %w", err)
	}

	// a concurrent request created the chat first
	c, err = s.repo.GetChatByParticipants(ctx, userA, userB)
	if err != nil {
		s.log.Printf("chat for users %d and %d conflicted but lookup failed: %v", userA, userB, err)
		return types.Chat{}, ErrConflict
	}

	return c.Public(), nil
}

// ListChats returns the user's chats, most recently active first.
func (s *Service) ListChats(ctx context.Context, userId int) ([]types.ChatSummary, error) {
	listings, err := s.repo.ListChatsForUser(ctx, userId)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}

	summaries := make([]types.ChatSummary, 0, len(listings))
	for _, l := range listings {
		peer := l.Peer.Peer()
		summary := types.ChatSummary{
			Chat: l.Chat.Public(),
			Peer: &peer,
		}
		if l.LatestMessage != nil {
			msg := l.LatestMessage.Public()
			summary.LatestMessage = &msg
		}
		summaries = append(summaries, summary)
	}

	return summaries, nil
}

// AppendMessage stores a message from senderId in the chat and notifies
// the other participant. Text content is stored trimmed.
func (s *Service) AppendMessage(ctx context.Context, chatId, senderId int, content string, typ types.MessageType) (types.Message, error) {
	if typ == "" {
		typ = types.MessageText
	}
	if !typ.Valid() {
		return types.Message{}, fmt.Errorf("message type %q: %w", typ, ErrInvalidInput)
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return types.Message{}, fmt.Errorf("empty content: %w", ErrInvalidInput)
	}

	c, err := s.participantChat(ctx, chatId, senderId)
	if err != nil {
		return types.Message{}, err
	}

	dbMsg, err := s.repo.CreateMessage(ctx, database.CreateMessageParams{
		ChatId:    c.Id,
		SenderId:  senderId,
		Content:   content,
		Type:      string(typ),
		CreatedAt: s.clock.Next(),
	})
	if err != nil {
		return types.Message{}, fmt.Errorf("create message: %w", err)
	}

	msg := dbMsg.Public()
	recipientId := c.Public().Peer(senderId)

	if n := s.getNotifier(); n == nil {
		s.log.Printf("no notifier attached, message %d in chat %d not pushed", msg.Id, msg.ChatId)
	} else if err := n.NotifyNewMessage(msg, recipientId); err != nil {
		s.log.Printf("notify new message %d in chat %d: %v", msg.Id, msg.ChatId, err)
	}

	return msg, nil
}

// ListMessages returns the chat's full history, oldest first.
func (s *Service) ListMessages(ctx context.Context, chatId, requesterId int) ([]types.Message, error) {
	if _, err := s.participantChat(ctx, chatId, requesterId); err != nil {
		return nil, err
	}

	dbMsgs, err := s.repo.GetMessages(ctx, chatId)
	if err != nil {
		return nil, fmt.Errorf("get messages: %w", err)
	}

	msgs := make([]types.Message, 0, len(dbMsgs))
	for _, m := range dbMsgs {
		msgs = append(msgs, m.Public())
	}

	return msgs, nil
}

// MarkRead marks every message the reader received in the chat as read
// and reports how many messages changed. Repeating the call changes
// nothing and notifies no one.
func (s *Service) MarkRead(ctx context.Context, chatId, readerId int, now time.Time) (int, error) {
	if _, err := s.participantChat(ctx, chatId, readerId); err != nil {
		return 0, err
	}

	seenAt := now.UTC()
	n, err := s.repo.MarkMessagesRead(ctx, chatId, readerId, seenAt)
	if err != nil {
		return 0, fmt.Errorf("mark messages read: %w", err)
	}

	if n == 0 {
		return 0, nil
	}

	receipt := types.ReadReceipt{
		ChatId:   chatId,
		ReaderId: readerId,
		SeenAt:   seenAt,
		Count:    n,
	}

	if nt := s.getNotifier(); nt == nil {
		s.log.Printf("no notifier attached, read receipt for chat %d not pushed", chatId)
	} else if err := nt.NotifyMessagesRead(receipt); err != nil {
		s.log.Printf("notify messages read in chat %d: %v", chatId, err)
	}

	return n, nil
}

// ChatParticipant returns nil when userId takes part in the chat.
func (s *Service) ChatParticipant(ctx context.Context, chatId, userId int) error {
	_, err := s.participantChat(ctx, chatId, userId)
	return err
}

func (s *Service) participantChat(ctx context.Context, chatId, userId int) (database.Chat, error) {
	if chatId <= 0 {
		return database.Chat{}, fmt.Errorf("chat id %d: %w", chatId, ErrInvalidInput)
	}

	c, err := s.repo.GetChatById(ctx, chatId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return database.Chat{}, fmt.Errorf("chat %d: %w", chatId, ErrNotFound)
		}
		return database.Chat{}, fmt.Errorf("get chat: %w", err)
	}

	if !c.Public().HasParticipant(userId) {
		return database.Chat{}, fmt.Errorf("user %d in chat %d: %w", userId, chatId, ErrForbidden)
	}

	return c, nil
}
