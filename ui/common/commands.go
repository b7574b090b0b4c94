package common

import (
	"github.com/deemkeen/clubspace/messaging"
	"github.com/google/uuid"
)

type SessionState uint

const (
	InboxView SessionState = iota
	ChatView
	NewChatView
	NotificationsView
	LeaderboardView
	DiagnosticsView
	CreateUserView
	RefreshInbox
)

// OpenChatMsg asks the root model to open a conversation view.
type OpenChatMsg struct {
	ConversationId uuid.UUID
	OtherName      string
}

// ChatClosedMsg returns from the chat view to the inbox.
type ChatClosedMsg struct{}

// BannerMsg carries a dismissible inline notice (errors included).
type BannerMsg struct {
	Text    string
	IsError bool
}

// RealtimeMsg wraps one messaging client update for the tea loop.
type RealtimeMsg struct {
	Update messaging.Update
}
