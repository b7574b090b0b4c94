package messaging

import "github.com/google/uuid"

// Tracker keeps the per-conversation unread counters and the global
// notification badge. The two are deliberately independent: the badge counts
// unread Notification rows, never unread messages, and clearing one leaves
// the other untouched.
type Tracker struct {
	unread map[uuid.UUID]int
	badge  int
}

func NewTracker() *Tracker {
	return &Tracker{unread: make(map[uuid.UUID]int)}
}

func (t *Tracker) Unread(conversationId uuid.UUID) int {
	return t.unread[conversationId]
}

func (t *Tracker) SetUnread(conversationId uuid.UUID, count int) {
	if count <= 0 {
		delete(t.unread, conversationId)
		return
	}
	t.unread[conversationId] = count
}

func (t *Tracker) IncrementUnread(conversationId uuid.UUID) {
	t.unread[conversationId]++
}

func (t *Tracker) ClearUnread(conversationId uuid.UUID) {
	delete(t.unread, conversationId)
}

// TotalUnread sums message unread counters across conversations, for the
// inbox tab label.
func (t *Tracker) TotalUnread() int {
	total := 0
	for _, n := range t.unread {
		total += n
	}
	return total
}

func (t *Tracker) Badge() int {
	return t.badge
}

func (t *Tracker) SetBadge(count int) {
	if count < 0 {
		count = 0
	}
	t.badge = count
}

func (t *Tracker) IncrementBadge() {
	t.badge++
}

func (t *Tracker) ClearBadge() {
	t.badge = 0
}

// Reset drops all counters, called on sign-out.
func (t *Tracker) Reset() {
	t.unread = make(map[uuid.UUID]int)
	t.badge = 0
}
