package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

const (
	accountColumns = "id, first_name, last_name, phone_number, email, password_hash, location, room_type, " +
		"budget_min, budget_max, hobbies, gender, preferred_gender, role, created_at, updated_at"
	chatColumns    = "id, user1_id, user2_id, last_activity, created_at"
	messageColumns = "id, chat_id, sender_id, content, type, status, seen_by, seen_at, created_at"
)

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (User, error) {
	var u User
	err := row.Scan(
		&u.Id,
		&u.FirstName,
		&u.LastName,
		&u.PhoneNumber,
		&u.EmailAddress,
		&u.PasswordHash,
		&u.Location,
		&u.RoomType,
		&u.BudgetMin,
		&u.BudgetMax,
		&u.Hobbies,
		&u.Gender,
		&u.PreferredGender,
		&u.Role,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	return u, err
}

func scanChat(row scanner) (Chat, error) {
	var c Chat
	err := row.Scan(&c.Id, &c.User1Id, &c.User2Id, &c.LastActivity, &c.CreatedAt)
	return c, err
}

func scanMessage(row scanner) (Message, error) {
	var m Message
	err := row.Scan(
		&m.Id,
		&m.ChatId,
		&m.SenderId,
		&m.Content,
		&m.Type,
		&m.Status,
		&m.SeenBy,
		&m.SeenAt,
		&m.CreatedAt,
	)
	return m, err
}

// CreateAccount inserts a new account. The very first account in an
// empty table is created as superAdmin, every later one as user.
func (db *PgRepository) CreateAccount(ctx context.Context, params CreateAccountParams) (User, error) {
	now := time.Now().UTC()
	row := db.conn.QueryRowContext(ctx,
		"INSERT INTO accounts (first_name, last_name, phone_number, email, password_hash, role, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5, "+
			"CASE WHEN EXISTS (SELECT 1 FROM accounts) THEN 'user' ELSE 'superAdmin' END, $6, $6) "+
			"RETURNING "+accountColumns,
		params.FirstName,
		params.LastName,
		params.PhoneNumber,
		params.EmailAddress,
		params.PasswordHash,
		now,
	)

	u, err := scanAccount(row)
	if err != nil {
		return User{}, translateError(err)
	}
	return u, nil
}

func (db *PgRepository) UpdateAccount(ctx context.Context, params UpdateAccountParams) (User, error) {
	row := db.conn.QueryRowContext(ctx,
		"UPDATE accounts SET first_name = $2, last_name = $3, phone_number = $4, location = $5, room_type = $6, "+
			"budget_min = $7, budget_max = $8, hobbies = $9, gender = $10, preferred_gender = $11, updated_at = $12 "+
			"WHERE id = $1 RETURNING "+accountColumns,
		params.UserId,
		params.FirstName,
		params.LastName,
		params.PhoneNumber,
		params.Location,
		params.RoomType,
		params.BudgetMin,
		params.BudgetMax,
		params.Hobbies,
		params.Gender,
		params.PreferredGender,
		time.Now().UTC(),
	)

	return scanAccount(row)
}

func (db *PgRepository) GetAccountById(ctx context.Context, id int) (User, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE id = $1 LIMIT 1",
		id,
	)
	return scanAccount(row)
}

func (db *PgRepository) GetAccountByEmail(ctx context.Context, email string) (User, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE email = $1 LIMIT 1",
		email,
	)
	return scanAccount(row)
}

// SearchAccounts returns ordinary user accounts matching every supplied
// filter. A budget filter matches accounts whose budget range overlaps
// the requested one.
func (db *PgRepository) SearchAccounts(ctx context.Context, params SearchAccountsParams) ([]User, error) {
	var (
		where = []string{"role = 'user'"}
		args  []any
	)

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if params.Query != "" {
		p := arg(containsPattern(params.Query))
		where = append(where, fmt.Sprintf(
			"(first_name ILIKE %[1]s OR last_name ILIKE %[1]s OR location ILIKE %[1]s OR hobbies ILIKE %[1]s)", p))
	}
	if params.Location != "" {
		where = append(where, "location ILIKE "+arg(containsPattern(params.Location)))
	}
	if params.RoomType != "" {
		where = append(where, "room_type = "+arg(params.RoomType))
	}
	if params.Gender != "" {
		where = append(where, "gender = "+arg(params.Gender))
	}
	if params.Hobbies != "" {
		where = append(where, "hobbies ILIKE "+arg(containsPattern(params.Hobbies)))
	}
	if params.BudgetMax != nil {
		where = append(where, "budget_min <= "+arg(*params.BudgetMax))
	}
	if params.BudgetMin != nil {
		where = append(where, "budget_max >= "+arg(*params.BudgetMin))
	}

	rows, err := db.conn.QueryContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE "+strings.Join(where, " AND ")+
			" ORDER BY updated_at DESC, id DESC",
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		u, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		users = append(users, u)
	}

	return users, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds an ILIKE pattern matching s literally anywhere
// in the column. Backslash is the default LIKE escape in Postgres.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

func (db *PgRepository) GetChatById(ctx context.Context, chatId int) (Chat, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT "+chatColumns+" FROM chats WHERE id = $1 LIMIT 1",
		chatId,
	)
	return scanChat(row)
}

// GetChatByParticipants finds the chat for the unordered pair {userA, userB}.
func (db *PgRepository) GetChatByParticipants(ctx context.Context, userA, userB int) (Chat, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT "+chatColumns+" FROM chats "+
			"WHERE LEAST(user1_id, user2_id) = LEAST($1::int, $2::int) "+
			"AND GREATEST(user1_id, user2_id) = GREATEST($1::int, $2::int) LIMIT 1",
		userA,
		userB,
	)
	return scanChat(row)
}

// CreateChat stores a chat with userA as user1. A chat already existing
// for the pair, in either order, yields ErrConflict.
func (db *PgRepository) CreateChat(ctx context.Context, userA, userB int) (Chat, error) {
	now := time.Now().UTC()
	row := db.conn.QueryRowContext(ctx,
		"INSERT INTO chats (user1_id, user2_id, last_activity, created_at) "+
			"VALUES ($1, $2, $3, $3) RETURNING "+chatColumns,
		userA,
		userB,
		now,
	)

	c, err := scanChat(row)
	if err != nil {
		return Chat{}, translateError(err)
	}
	return c, nil
}

// ListChatsForUser returns every chat userId takes part in, newest
// activity first, each with the peer's account and the latest message.
func (db *PgRepository) ListChatsForUser(ctx context.Context, userId int) ([]ChatListing, error) {
	query := `
		SELECT
				c.id, c.user1_id, c.user2_id, c.last_activity, c.created_at,
				a.id, a.first_name, a.last_name, a.phone_number, a.email, a.password_hash,
				a.location, a.room_type, a.budget_min, a.budget_max, a.hobbies,
				a.gender, a.preferred_gender, a.role, a.created_at, a.updated_at,
				m.id, m.chat_id, m.sender_id, m.content, m.type, m.status,
				m.seen_by, m.seen_at, m.created_at
		FROM chats c
		JOIN accounts a
				ON a.id = CASE WHEN c.user1_id = $1 THEN c.user2_id ELSE c.user1_id END
		LEFT JOIN LATERAL (
				SELECT * FROM messages
				WHERE chat_id = c.id
				ORDER BY created_at DESC, id DESC
				LIMIT 1
		) m ON true
		WHERE c.user1_id = $1 OR c.user2_id = $1
		ORDER BY c.last_activity DESC, c.id DESC;
`

	rows, err := db.conn.QueryContext(ctx, query, userId)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	defer rows.Close()

	listings := make([]ChatListing, 0)
	for rows.Next() {
		var (
			l         ChatListing
			msgId     sql.NullInt64
			chatId    sql.NullInt64
			senderId  sql.NullInt64
			content   sql.NullString
			msgType   sql.NullString
			status    sql.NullString
			seenBy    sql.NullInt64
			seenAt    sql.NullTime
			createdAt sql.NullTime
		)

		err := rows.Scan(
			&l.Chat.Id,
			&l.Chat.User1Id,
			&l.Chat.User2Id,
			&l.Chat.LastActivity,
			&l.Chat.CreatedAt,
			&l.Peer.Id,
			&l.Peer.FirstName,
			&l.Peer.LastName,
			&l.Peer.PhoneNumber,
			&l.Peer.EmailAddress,
			&l.Peer.PasswordHash,
			&l.Peer.Location,
			&l.Peer.RoomType,
			&l.Peer.BudgetMin,
			&l.Peer.BudgetMax,
			&l.Peer.Hobbies,
			&l.Peer.Gender,
			&l.Peer.PreferredGender,
			&l.Peer.Role,
			&l.Peer.CreatedAt,
			&l.Peer.UpdatedAt,
			&msgId,
			&chatId,
			&senderId,
			&content,
			&msgType,
			&status,
			&seenBy,
			&seenAt,
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		if msgId.Valid {
			l.LatestMessage = &Message{
				Id:        msgId.Int64,
				ChatId:    int(chatId.Int64),
				SenderId:  int(senderId.Int64),
				Content:   content.String,
				Type:      msgType.String,
				Status:    status.String,
				SeenBy:    seenBy,
				SeenAt:    seenAt,
				CreatedAt: createdAt.Time,
			}
		}

		listings = append(listings, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return listings, nil
}

// CreateMessage inserts a message and advances the chat's last_activity
// in a single transaction.
func (db *PgRepository) CreateMessage(ctx context.Context, params CreateMessageParams) (Message, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return Message{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	row := tx.QueryRowContext(ctx,
		"INSERT INTO messages (chat_id, sender_id, content, type, status, created_at) "+
			"VALUES ($1, $2, $3, $4, 'sent', $5) RETURNING "+messageColumns,
		params.ChatId,
		params.SenderId,
		params.Content,
		params.Type,
		params.CreatedAt,
	)

	var msg Message
	msg, err = scanMessage(row)
	if err != nil {
		return Message{}, err
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE chats SET last_activity = GREATEST(last_activity, $2) WHERE id = $1",
		params.ChatId,
		params.CreatedAt,
	)
	if err != nil {
		return Message{}, err
	}

	if err = tx.Commit(); err != nil {
		return Message{}, err
	}

	return msg, nil
}

// GetMessages returns the full history of a chat, oldest first.
func (db *PgRepository) GetMessages(ctx context.Context, chatId int) ([]Message, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT "+messageColumns+" FROM messages WHERE chat_id = $1 ORDER BY created_at ASC, id ASC",
		chatId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]Message, 0)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

// MarkMessagesRead marks every unread message in the chat that readerId
// did not send as read, and reports how many rows changed.
func (db *PgRepository) MarkMessagesRead(ctx context.Context, chatId, readerId int, seenAt time.Time) (int, error) {
	res, err := db.conn.ExecContext(ctx,
		"UPDATE messages SET status = 'read', seen_by = $2, seen_at = $3 "+
			"WHERE chat_id = $1 AND sender_id <> $2 AND status <> 'read'",
		chatId,
		readerId,
		seenAt,
	)
	if err != nil {
		return 0, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	return int(n), nil
}
