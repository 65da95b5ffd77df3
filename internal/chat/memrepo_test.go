package chat

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/roomly/roomly-server/internal/database"
)

// memRepo is an in-memory database.Repository that enforces the same
// pair uniqueness and ordering rules as the postgres schema.
type memRepo struct {
	mu       sync.Mutex
	accounts map[int]database.User
	chats    map[int]database.Chat
	messages []database.Message
	nextChat int
	nextMsg  int64

	// beforeCreateChat runs with the lock released, just before insert
	beforeCreateChat func()
}

func newMemRepo(accountIds ...int) *memRepo {
	r := &memRepo{
		accounts: make(map[int]database.User),
		chats:    make(map[int]database.Chat),
		nextChat: 1,
		nextMsg:  1,
	}
	for _, id := range accountIds {
		r.accounts[id] = database.User{Id: id, FirstName: "user", EmailAddress: fmt.Sprintf("user%d@example.com", id), PhoneNumber: "555-0100", Role: "user"}
	}
	return r
}

func pairKey(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}

func (r *memRepo) Ping(ctx context.Context) error { return nil }

func (r *memRepo) CreateAccount(ctx context.Context, p database.CreateAccountParams) (database.User, error) {
	panic("not used")
}

func (r *memRepo) UpdateAccount(ctx context.Context, p database.UpdateAccountParams) (database.User, error) {
	panic("not used")
}

func (r *memRepo) GetAccountById(ctx context.Context, id int) (database.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.accounts[id]
	if !ok {
		return database.User{}, sql.ErrNoRows
	}
	return u, nil
}

func (r *memRepo) GetAccountByEmail(ctx context.Context, email string) (database.User, error) {
	panic("not used")
}

func (r *memRepo) SearchAccounts(ctx context.Context, p database.SearchAccountsParams) ([]database.User, error) {
	panic("not used")
}

func (r *memRepo) GetChatById(ctx context.Context, id int) (database.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.chats[id]
	if !ok {
		return database.Chat{}, sql.ErrNoRows
	}
	return c, nil
}

func (r *memRepo) GetChatByParticipants(ctx context.Context, a, b int) (database.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.chats {
		if pairKey(c.User1Id, c.User2Id) == pairKey(a, b) {
			return c, nil
		}
	}
	return database.Chat{}, sql.ErrNoRows
}

func (r *memRepo) CreateChat(ctx context.Context, a, b int) (database.Chat, error) {
	if r.beforeCreateChat != nil {
		r.beforeCreateChat()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.chats {
		if pairKey(c.User1Id, c.User2Id) == pairKey(a, b) {
			return database.Chat{}, database.ErrConflict
		}
	}
	now := time.Now().UTC()
	c := database.Chat{Id: r.nextChat, User1Id: a, User2Id: b, LastActivity: now, CreatedAt: now}
	r.chats[c.Id] = c
	r.nextChat++
	return c, nil
}

func (r *memRepo) ListChatsForUser(ctx context.Context, userId int) ([]database.ChatListing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	listings := make([]database.ChatListing, 0)
	for _, c := range r.chats {
		if c.User1Id != userId && c.User2Id != userId {
			continue
		}
		peerId := c.User1Id
		if peerId == userId {
			peerId = c.User2Id
		}
		l := database.ChatListing{Chat: c, Peer: r.accounts[peerId]}
		for i := len(r.messages) - 1; i >= 0; i-- {
			if r.messages[i].ChatId == c.Id {
				m := r.messages[i]
				l.LatestMessage = &m
				break
			}
		}
		listings = append(listings, l)
	}
	sort.Slice(listings, func(i, j int) bool {
		return listings[i].Chat.LastActivity.After(listings[j].Chat.LastActivity)
	})
	return listings, nil
}

func (r *memRepo) CreateMessage(ctx context.Context, p database.CreateMessageParams) (database.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := database.Message{
		Id:        r.nextMsg,
		ChatId:    p.ChatId,
		SenderId:  p.SenderId,
		Content:   p.Content,
		Type:      p.Type,
		Status:    "sent",
		CreatedAt: p.CreatedAt,
	}
	r.nextMsg++
	r.messages = append(r.messages, m)

	c := r.chats[p.ChatId]
	if p.CreatedAt.After(c.LastActivity) {
		c.LastActivity = p.CreatedAt
	}
	r.chats[p.ChatId] = c
	return m, nil
}

func (r *memRepo) GetMessages(ctx context.Context, chatId int) ([]database.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msgs := make([]database.Message, 0)
	for _, m := range r.messages {
		if m.ChatId == chatId {
			msgs = append(msgs, m)
		}
	}
	sort.SliceStable(msgs, func(i, j int) bool {
		if msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].Id < msgs[j].Id
		}
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
	return msgs, nil
}

func (r *memRepo) MarkMessagesRead(ctx context.Context, chatId, readerId int, seenAt time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for i, m := range r.messages {
		if m.ChatId != chatId || m.SenderId == readerId || m.Status == "read" {
			continue
		}
		r.messages[i].Status = "read"
		r.messages[i].SeenBy = sql.NullInt64{Int64: int64(readerId), Valid: true}
		r.messages[i].SeenAt = sql.NullTime{Time: seenAt, Valid: true}
		n++
	}
	return n, nil
}
