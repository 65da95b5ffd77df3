package chat

import "github.com/roomly/roomly-server/internal/types"

// Notifier pushes committed chat events to connected clients. Delivery is
// best effort: a returned error is logged and never undoes the write.
type Notifier interface {
	NotifyNewMessage(msg types.Message, recipientId int) error
	NotifyMessagesRead(receipt types.ReadReceipt) error
}
