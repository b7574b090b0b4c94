package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ConversationStatus decides inbox placement: active conversations live in the
// primary tab, requests in the request queue until the receiver accepts.
type ConversationStatus string

const (
	ConversationActive  ConversationStatus = "active"
	ConversationRequest ConversationStatus = "request"
)

// Conversation is a durable pairing of two participants. Participants are
// normalized so Participant1 < Participant2 lexicographically, which keeps the
// pair unique regardless of who opened the chat. DeletedFor holds the
// participants who have hidden the conversation from their own inbox; the row
// itself survives for the other side.
type Conversation struct {
	Id            uuid.UUID
	Participant1  uuid.UUID
	Participant2  uuid.UUID
	LastMessage   string
	LastMessageAt time.Time
	Status        ConversationStatus
	DeletedFor    []uuid.UUID
	CreatedAt     time.Time
}

// Other returns the participant that is not the given user.
func (c *Conversation) Other(userId uuid.UUID) uuid.UUID {
	if c.Participant1 == userId {
		return c.Participant2
	}
	return c.Participant1
}

// Involves reports whether the user is one of the two participants.
func (c *Conversation) Involves(userId uuid.UUID) bool {
	return c.Participant1 == userId || c.Participant2 == userId
}

// DeletedBy reports whether the user has hidden this conversation.
func (c *Conversation) DeletedBy(userId uuid.UUID) bool {
	for _, id := range c.DeletedFor {
		if id == userId {
			return true
		}
	}
	return false
}

type MessageType string

const (
	MessageText  MessageType = "text"
	MessageImage MessageType = "image"
	MessageVideo MessageType = "video"
	MessageAudio MessageType = "audio"
	MessagePost  MessageType = "post"
)

// Message belongs to exactly one conversation. Content, type and media URL are
// immutable after creation; only IsRead flips, and only for the non-sender.
type Message struct {
	Id             uuid.UUID
	ConversationId uuid.UUID
	SenderId       uuid.UUID
	Content        string
	Type           MessageType
	MediaURL       string
	ReplyToId      uuid.UUID
	IsRead         bool
	CreatedAt      time.Time
	// Joined, one level deep only
	ReplyTo *Message
}

// SendMessage carries the payload of a pending send.
type SendMessage struct {
	ConversationId uuid.UUID
	SenderId       uuid.UUID
	Content        string
	Type           MessageType
	MediaURL       string
	ReplyToId      uuid.UUID
}

// Preview derives the denormalized conversation preview line for a message.
func (s *SendMessage) Preview() string {
	if s.Type == MessageText {
		return s.Content
	}
	return fmt.Sprintf("Sent a %s", s.Type)
}
