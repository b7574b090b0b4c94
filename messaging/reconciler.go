package messaging

import (
	"sort"
	"time"

	"github.com/deemkeen/clubspace/domain"
	"github.com/google/uuid"
)

// MutationState tracks the lifecycle of one optimistic write. The reconciler
// is the only code allowed to move a mutation out of pending.
type MutationState int

const (
	MutationPending MutationState = iota
	MutationConfirmed
	MutationRolledBack
)

type pendingMutation struct {
	tempId         uuid.UUID
	conversationId uuid.UUID
	state          MutationState
	snapshot       domain.Message
}

// ConversationView is one inbox row: the conversation annotated with the
// other participant's profile and the unread count.
type ConversationView struct {
	Conversation domain.Conversation
	Other        *domain.Account
	Unread       int
}

// Reconciler merges backend-confirmed rows, realtime pushes and locally
// pending optimistic writes into one consistent view of the entity store.
// Confirmed state is only ever mutated through this type.
type Reconciler struct {
	store   *Store
	pending map[uuid.UUID]*pendingMutation
}

func NewReconciler(store *Store) *Reconciler {
	return &Reconciler{
		store:   store,
		pending: make(map[uuid.UUID]*pendingMutation),
	}
}

// ApplyOptimistic inserts a message under a temporary id ahead of backend
// confirmation. The snapshot is retained for rollback.
func (r *Reconciler) ApplyOptimistic(msg domain.Message) {
	r.pending[msg.Id] = &pendingMutation{
		tempId:         msg.Id,
		conversationId: msg.ConversationId,
		state:          MutationPending,
		snapshot:       msg,
	}
	r.store.UpsertMessage(msg)
}

// Confirm swaps the optimistic record for the backend-confirmed one. If the
// confirmed row already arrived via realtime push the swap degrades to a
// plain removal of the temp record.
func (r *Reconciler) Confirm(tempId uuid.UUID, confirmed domain.Message) {
	mut, ok := r.pending[tempId]
	if !ok || mut.state != MutationPending {
		r.store.UpsertMessage(confirmed)
		return
	}
	mut.state = MutationConfirmed
	r.store.RemoveMessage(mut.conversationId, tempId)
	r.store.UpsertMessage(confirmed)
	delete(r.pending, tempId)
}

// Rollback removes the optimistic record after a gateway failure.
func (r *Reconciler) Rollback(tempId uuid.UUID) {
	mut, ok := r.pending[tempId]
	if !ok || mut.state != MutationPending {
		return
	}
	mut.state = MutationRolledBack
	r.store.RemoveMessage(mut.conversationId, tempId)
	delete(r.pending, tempId)
}

// ApplyRemote merges a realtime-pushed message. A message already known
// locally, optimistic insert included, is a no-op; the method reports whether
// the event changed anything. Arrival order relative to the gateway response
// does not matter.
func (r *Reconciler) ApplyRemote(msg domain.Message) bool {
	if r.store.HasMessage(msg.Id) {
		return false
	}
	inserted := r.store.UpsertMessage(msg)
	if inserted {
		r.touchConversation(msg)
	}
	return inserted
}

// touchConversation refreshes the denormalized preview on the local row the
// way the backend does on insert, and un-hides the thread.
func (r *Reconciler) touchConversation(msg domain.Message) {
	c := r.store.Conversation(msg.ConversationId)
	if c == nil {
		return
	}
	preview := msg.Content
	if msg.Type != domain.MessageText {
		preview = (&domain.SendMessage{Type: msg.Type, Content: msg.Content}).Preview()
	}
	c.LastMessage = preview
	if msg.CreatedAt.After(c.LastMessageAt) {
		c.LastMessageAt = msg.CreatedAt
	}
	c.DeletedFor = nil
}

// MergeConfirmed reconciles a backend query result into the store. Rows the
// user has hidden are dropped rather than stored.
func (r *Reconciler) MergeConfirmed(rows []domain.Conversation) {
	for _, row := range rows {
		r.store.UpsertConversation(row)
	}
}

// VisibleConversations resolves the inbox for one tab: conversations where
// the user participates, the status matches, and the user has not hidden the
// row. Ordered by last activity descending, conversation id ascending on
// equal timestamps so the result is deterministic.
func (r *Reconciler) VisibleConversations(userId uuid.UUID, status domain.ConversationStatus, resolve func(uuid.UUID) *domain.Account, unread func(uuid.UUID) int) []ConversationView {
	var views []ConversationView
	for _, c := range r.store.Conversations() {
		if !c.Involves(userId) || c.Status != status || c.DeletedBy(userId) {
			continue
		}
		view := ConversationView{Conversation: c}
		if resolve != nil {
			view.Other = resolve(c.Other(userId))
		}
		if unread != nil {
			view.Unread = unread(c.Id)
		}
		views = append(views, view)
	}

	sort.SliceStable(views, func(i, j int) bool {
		a, b := views[i].Conversation, views[j].Conversation
		if a.LastMessageAt.Equal(b.LastMessageAt) {
			return a.Id.String() < b.Id.String()
		}
		return a.LastMessageAt.After(b.LastMessageAt)
	})
	return views
}

// PendingCount reports in-flight optimistic writes, for diagnostics.
func (r *Reconciler) PendingCount() int {
	return len(r.pending)
}

// NewOptimisticMessage builds the local placeholder for a send. The temp id is
// replaced by the backend-assigned one on confirmation.
func NewOptimisticMessage(req domain.SendMessage) domain.Message {
	msgType := req.Type
	if msgType == "" {
		msgType = domain.MessageText
	}
	return domain.Message{
		Id:             uuid.New(),
		ConversationId: req.ConversationId,
		SenderId:       req.SenderId,
		Content:        req.Content,
		Type:           msgType,
		MediaURL:       req.MediaURL,
		ReplyToId:      req.ReplyToId,
		CreatedAt:      time.Now(),
	}
}
