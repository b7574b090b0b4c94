package messaging

import (
	"sort"

	"github.com/deemkeen/clubspace/domain"
	"github.com/google/uuid"
)

// Store is the in-memory working set for one session: conversations keyed by
// id and an ordered message sequence per conversation. It does no I/O and no
// locking; the owning Client serializes access.
type Store struct {
	conversations map[uuid.UUID]*domain.Conversation
	messages      map[uuid.UUID][]domain.Message
	messageIds    map[uuid.UUID]bool
}

func NewStore() *Store {
	return &Store{
		conversations: make(map[uuid.UUID]*domain.Conversation),
		messages:      make(map[uuid.UUID][]domain.Message),
		messageIds:    make(map[uuid.UUID]bool),
	}
}

// UpsertConversation inserts or replaces a conversation row.
func (s *Store) UpsertConversation(c domain.Conversation) {
	copied := c
	s.conversations[c.Id] = &copied
}

func (s *Store) Conversation(id uuid.UUID) *domain.Conversation {
	return s.conversations[id]
}

func (s *Store) Conversations() []domain.Conversation {
	out := make([]domain.Conversation, 0, len(s.conversations))
	for _, c := range s.conversations {
		out = append(out, *c)
	}
	return out
}

// UpsertMessage appends a message to its conversation. Idempotent by id: a
// message already present is a no-op and the method reports whether anything
// was inserted.
func (s *Store) UpsertMessage(m domain.Message) bool {
	if s.messageIds[m.Id] {
		return false
	}
	s.messageIds[m.Id] = true
	s.messages[m.ConversationId] = append(s.messages[m.ConversationId], m)
	return true
}

// RemoveMessage drops a message by id, used when rolling back an optimistic
// insert.
func (s *Store) RemoveMessage(conversationId, id uuid.UUID) {
	if !s.messageIds[id] {
		return
	}
	delete(s.messageIds, id)
	msgs := s.messages[conversationId]
	for i := range msgs {
		if msgs[i].Id == id {
			s.messages[conversationId] = append(msgs[:i], msgs[i+1:]...)
			return
		}
	}
}

// Messages returns the conversation's messages ordered by creation time
// ascending, id ascending on equal timestamps.
func (s *Store) Messages(conversationId uuid.UUID) []domain.Message {
	msgs := s.messages[conversationId]
	out := make([]domain.Message, len(msgs))
	copy(out, msgs)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Id.String() < out[j].Id.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// HasMessage reports whether the id is already known, for event dedup.
func (s *Store) HasMessage(id uuid.UUID) bool {
	return s.messageIds[id]
}

// MarkMessagesRead flips is_read on every stored message of the conversation
// not sent by the reader.
func (s *Store) MarkMessagesRead(conversationId, readerId uuid.UUID) {
	msgs := s.messages[conversationId]
	for i := range msgs {
		if msgs[i].SenderId != readerId {
			msgs[i].IsRead = true
		}
	}
}

// RemoveConversationForUser marks the conversation hidden for the user. The
// record itself stays, mirroring the backend's soft delete.
func (s *Store) RemoveConversationForUser(conversationId, userId uuid.UUID) {
	c := s.conversations[conversationId]
	if c == nil || c.DeletedBy(userId) {
		return
	}
	c.DeletedFor = append(c.DeletedFor, userId)
}

// RestoreConversationForUser undoes a soft delete, used both for rollback and
// when new activity revives a hidden thread.
func (s *Store) RestoreConversationForUser(conversationId, userId uuid.UUID) {
	c := s.conversations[conversationId]
	if c == nil {
		return
	}
	remaining := c.DeletedFor[:0]
	for _, id := range c.DeletedFor {
		if id != userId {
			remaining = append(remaining, id)
		}
	}
	c.DeletedFor = remaining
}

// Reset drops all session state, called on sign-out.
func (s *Store) Reset() {
	s.conversations = make(map[uuid.UUID]*domain.Conversation)
	s.messages = make(map[uuid.UUID][]domain.Message)
	s.messageIds = make(map[uuid.UUID]bool)
}
