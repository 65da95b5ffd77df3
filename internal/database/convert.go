package database

import (
	"strings"

	"github.com/roomly/roomly-server/internal/types"
)

// Public projects an account onto its client-facing shape, dropping the
// password hash.
func (u User) Public() types.User {
	return types.User{
		Id:              u.Id,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		EmailAddress:    u.EmailAddress,
		PhoneNumber:     u.PhoneNumber,
		Location:        u.Location,
		RoomType:        u.RoomType,
		BudgetMin:       u.BudgetMin,
		BudgetMax:       u.BudgetMax,
		Hobbies:         SplitHobbies(u.Hobbies),
		Gender:          u.Gender,
		PreferredGender: u.PreferredGender,
		Role:            types.Role(u.Role),
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}

func (u User) Peer() types.ChatPeer {
	return types.ChatPeer{
		Id:           u.Id,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		EmailAddress: u.EmailAddress,
	}
}

func (c Chat) Public() types.Chat {
	return types.Chat{
		Id:           c.Id,
		User1Id:      c.User1Id,
		User2Id:      c.User2Id,
		LastActivity: c.LastActivity,
		CreatedAt:    c.CreatedAt,
	}
}

func (m Message) Public() types.Message {
	msg := types.Message{
		Id:        m.Id,
		ChatId:    m.ChatId,
		SenderId:  m.SenderId,
		Content:   m.Content,
		Type:      types.MessageType(m.Type),
		Status:    types.MessageStatus(m.Status),
		CreatedAt: m.CreatedAt,
	}
	if m.SeenBy.Valid {
		seenBy := int(m.SeenBy.Int64)
		msg.SeenBy = &seenBy
	}
	if m.SeenAt.Valid {
		seenAt := m.SeenAt.Time
		msg.SeenAt = &seenAt
	}
	return msg
}

// SplitHobbies turns the stored comma separated list into a slice.
// Blank entries are dropped and the result is never nil.
func SplitHobbies(s string) []string {
	hobbies := make([]string, 0)
	for _, h := range strings.Split(s, ",") {
		if h = strings.TrimSpace(h); h != "" {
			hobbies = append(hobbies, h)
		}
	}
	return hobbies
}

// JoinHobbies is the inverse of SplitHobbies.
func JoinHobbies(hobbies []string) string {
	kept := make([]string, 0, len(hobbies))
	for _, h := range hobbies {
		if h = strings.TrimSpace(h); h != "" {
			kept = append(kept, h)
		}
	}
	return strings.Join(kept, ",")
}
