// Package messaging holds the client-side conversation state machine: an
// in-memory entity store, a reconciler that merges optimistic writes with
// backend-confirmed rows and realtime pushes, the request/accept workflow,
// unread tracking, and the event router. Persistence, auth and event delivery
// stay behind the Gateway contract; the db package is the production
// implementation.
package messaging

import (
	"github.com/deemkeen/clubspace/domain"
	"github.com/google/uuid"
)

// Gateway is the backend contract this core consumes. All calls are network
// round-trips in production; tests substitute an in-memory fake.
type Gateway interface {
	ListConversations(userId uuid.UUID, status domain.ConversationStatus) ([]domain.Conversation, error)
	GetOrCreateConversation(userId, otherUserId uuid.UUID) (*domain.Conversation, error)
	ReadConversation(id uuid.UUID) (*domain.Conversation, error)
	UpdateConversationStatus(id uuid.UUID, status domain.ConversationStatus) error
	SoftDeleteConversation(id, userId uuid.UUID) error

	ListMessages(conversationId uuid.UUID) ([]domain.Message, error)
	SendMessage(req domain.SendMessage) (*domain.Message, error)
	MarkRead(conversationId, readerId uuid.UUID) error
	CountUnreadMessages(conversationId, userId uuid.UUID) (int, error)

	ReadAccById(id uuid.UUID) (error, *domain.Account)

	ReadNotifications(userId uuid.UUID) ([]domain.Notification, error)
	MarkNotificationRead(id uuid.UUID) error
	MarkAllNotificationsRead(userId uuid.UUID) error
	CountUnreadNotifications(userId uuid.UUID) (int, error)

	Ping() error
}
