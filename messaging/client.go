package messaging

import (
	"log"
	"strings"
	"sync"

	"github.com/deemkeen/clubspace/domain"
	"github.com/deemkeen/clubspace/errs"
	"github.com/deemkeen/clubspace/realtime"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// UpdateKind tags an Update pushed to the UI.
type UpdateKind int

const (
	UpdateMessage UpdateKind = iota
	UpdateNotification
	UpdateConversation
)

// Update tells the UI that session state changed and which part.
type Update struct {
	Kind           UpdateKind
	ConversationId uuid.UUID
	Message        *domain.Message
	Notification   *domain.Notification
}

// DiagnosticsReport is the state dump behind the diagnostics panel.
type DiagnosticsReport struct {
	UserId            uuid.UUID
	OpenConversation  uuid.UUID
	Participants      []uuid.UUID
	DatabaseReachable bool
	OpenSubscriptions int
	ReadProbeOK       bool
	PendingWrites     int
}

// Client is the session facade over the messaging core. One instance serves
// one signed-in user; all state behind it (store, reconciler, tracker) is
// serialized through a single mutex, so handlers and UI calls never observe
// partial mutations.
type Client struct {
	gateway Gateway
	broker  *realtime.Broker

	mu        sync.Mutex
	userId    uuid.UUID
	openConvo uuid.UUID
	store     *Store
	rec       *Reconciler
	tracker   *Tracker
	router    *Router
	updates   chan Update
}

func NewClient(gateway Gateway, broker *realtime.Broker) *Client {
	store := NewStore()
	c := &Client{
		gateway: gateway,
		broker:  broker,
		store:   store,
		rec:     NewReconciler(store),
		tracker: NewTracker(),
		updates: make(chan Update, 64),
	}
	c.router = NewRouter(broker, gateway, c)
	return c
}

// Updates delivers change hints to the UI. Best effort; a full refresh on the
// next fetch covers anything dropped.
func (c *Client) Updates() <-chan Update {
	return c.updates
}

func (c *Client) pushUpdate(u Update) {
	select {
	case c.updates <- u:
	default:
	}
}

// SignIn binds the client to a user, establishes the realtime subscriptions
// and primes the notification badge. Any previous session is torn down first.
func (c *Client) SignIn(userId uuid.UUID) {
	c.mu.Lock()
	c.resetLocked()
	c.userId = userId
	c.mu.Unlock()

	c.router.Start(userId)

	badge, err := c.gateway.CountUnreadNotifications(userId)
	if err != nil {
		log.Printf("client: priming notification badge failed: %v", err)
		return
	}
	c.mu.Lock()
	c.tracker.SetBadge(badge)
	c.mu.Unlock()
}

// SignOut cancels the subscriptions and drops all session state.
func (c *Client) SignOut() {
	c.router.Stop()
	c.mu.Lock()
	c.resetLocked()
	c.mu.Unlock()
}

func (c *Client) resetLocked() {
	c.userId = uuid.Nil
	c.openConvo = uuid.Nil
	c.store.Reset()
	c.tracker.Reset()
	c.rec = NewReconciler(c.store)
}

// Inbox resolves one tab of the conversation list: fetches confirmed rows,
// refreshes the unread counters from the backend and merges everything into
// an ordered, annotated view.
func (c *Client) Inbox(status domain.ConversationStatus) ([]ConversationView, error) {
	c.mu.Lock()
	userId := c.userId
	c.mu.Unlock()
	if userId == uuid.Nil {
		return nil, errors.Wrap(errs.ErrUnauthorized, "no session")
	}

	rows, err := c.gateway.ListConversations(userId, status)
	if err != nil {
		return nil, err
	}

	unreads := make(map[uuid.UUID]int, len(rows))
	profiles := make(map[uuid.UUID]*domain.Account, len(rows))
	for _, row := range rows {
		count, err := c.gateway.CountUnreadMessages(row.Id, userId)
		if err != nil {
			log.Printf("client: unread count for %s failed: %v", row.Id, err)
		}
		unreads[row.Id] = count

		other := row.Other(userId)
		if _, ok := profiles[other]; !ok {
			if err, acc := c.gateway.ReadAccById(other); err == nil {
				profiles[other] = acc
			}
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.rec.MergeConfirmed(rows)
	for id, count := range unreads {
		c.tracker.SetUnread(id, count)
	}
	return c.rec.VisibleConversations(userId, status,
		func(id uuid.UUID) *domain.Account { return profiles[id] },
		c.tracker.Unread), nil
}

// OpenConversation loads the message history and marks it read. The fetch is
// tagged with the conversation id; if the user navigates away before it
// resolves the stale response is discarded instead of mutating the new view.
// The backend mark-read write is fire-and-forget.
func (c *Client) OpenConversation(id uuid.UUID) ([]domain.Message, error) {
	c.mu.Lock()
	userId := c.userId
	if userId == uuid.Nil {
		c.mu.Unlock()
		return nil, errors.Wrap(errs.ErrUnauthorized, "no session")
	}
	c.openConvo = id
	c.mu.Unlock()

	msgs, err := c.gateway.ListMessages(id)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.openConvo != id {
		// Stale response, the user already moved on.
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	for _, m := range msgs {
		c.store.UpsertMessage(m)
	}
	c.store.MarkMessagesRead(id, userId)
	c.tracker.ClearUnread(id)
	go c.markReadRemote(id, userId)
	return c.store.Messages(id), nil
}

// CloseConversation clears the open-conversation tag, so in-flight fetches
// for it get discarded.
func (c *Client) CloseConversation() {
	c.mu.Lock()
	c.openConvo = uuid.Nil
	c.mu.Unlock()
}

// markReadRemote is the fire-and-forget backend write behind opening a
// conversation. One retry, then give up; the next open reconciles.
func (c *Client) markReadRemote(conversationId, readerId uuid.UUID) {
	if err := c.gateway.MarkRead(conversationId, readerId); err != nil {
		log.Printf("client: mark read for %s failed, retrying: %v", conversationId, err)
		if err := c.gateway.MarkRead(conversationId, readerId); err != nil {
			log.Printf("client: mark read retry for %s failed: %v", conversationId, err)
		}
	}
}

// Send applies the message optimistically, invokes the gateway and either
// swaps in the confirmed record or rolls the optimistic one back.
func (c *Client) Send(req domain.SendMessage) (*domain.Message, error) {
	if strings.TrimSpace(req.Content) == "" && req.MediaURL == "" {
		return nil, errors.Wrap(errs.ErrValidation, "message needs content or an attachment")
	}

	c.mu.Lock()
	if c.userId == uuid.Nil {
		c.mu.Unlock()
		return nil, errors.Wrap(errs.ErrUnauthorized, "no session")
	}
	req.SenderId = c.userId
	optimistic := NewOptimisticMessage(req)
	c.rec.ApplyOptimistic(optimistic)
	c.mu.Unlock()

	confirmed, err := c.gateway.SendMessage(req)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.rec.Rollback(optimistic.Id)
		return nil, err
	}
	c.rec.Confirm(optimistic.Id, *confirmed)
	c.rec.touchConversation(*confirmed)
	return confirmed, nil
}

// StartChat resolves or lazily creates the conversation with another user.
// A concurrent creation by the other side resolves to the same row.
func (c *Client) StartChat(otherUserId uuid.UUID) (*domain.Conversation, error) {
	c.mu.Lock()
	userId := c.userId
	c.mu.Unlock()
	if userId == uuid.Nil {
		return nil, errors.Wrap(errs.ErrUnauthorized, "no session")
	}

	convo, err := c.gateway.GetOrCreateConversation(userId, otherUserId)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.store.UpsertConversation(*convo)
	c.mu.Unlock()
	return convo, nil
}

// AcceptRequest moves a requested conversation into the primary inbox. The
// transition is one-way; there is no way back to the request queue. NotFound
// surfaces to the caller as a non-fatal banner.
func (c *Client) AcceptRequest(conversationId uuid.UUID) error {
	if err := c.gateway.UpdateConversationStatus(conversationId, domain.ConversationActive); err != nil {
		return err
	}
	c.mu.Lock()
	if convo := c.store.Conversation(conversationId); convo != nil {
		convo.Status = domain.ConversationActive
	}
	c.mu.Unlock()
	return nil
}

// DeleteConversation hides the thread from the user's own inbox. Applied
// optimistically and restored if the gateway rejects it.
func (c *Client) DeleteConversation(conversationId uuid.UUID) error {
	c.mu.Lock()
	userId := c.userId
	c.store.RemoveConversationForUser(conversationId, userId)
	if c.openConvo == conversationId {
		c.openConvo = uuid.Nil
	}
	c.mu.Unlock()

	if err := c.gateway.SoftDeleteConversation(conversationId, userId); err != nil {
		c.mu.Lock()
		c.store.RestoreConversationForUser(conversationId, userId)
		c.mu.Unlock()
		return err
	}
	return nil
}

// Notifications fetches the user's notification feed.
func (c *Client) Notifications() ([]domain.Notification, error) {
	c.mu.Lock()
	userId := c.userId
	c.mu.Unlock()
	if userId == uuid.Nil {
		return nil, errors.Wrap(errs.ErrUnauthorized, "no session")
	}
	return c.gateway.ReadNotifications(userId)
}

// MarkNotificationRead consumes one notification. The badge is recounted from
// the backend rather than decremented locally, so re-reading an already-read
// row cannot skew it.
func (c *Client) MarkNotificationRead(id uuid.UUID) error {
	c.mu.Lock()
	userId := c.userId
	c.mu.Unlock()
	if userId == uuid.Nil {
		return errors.Wrap(errs.ErrUnauthorized, "no session")
	}
	if err := c.gateway.MarkNotificationRead(id); err != nil {
		return err
	}
	badge, err := c.gateway.CountUnreadNotifications(userId)
	if err != nil {
		log.Printf("client: badge recount failed: %v", err)
		return nil
	}
	c.mu.Lock()
	c.tracker.SetBadge(badge)
	c.mu.Unlock()
	return nil
}

// MarkAllNotificationsRead clears the badge. Message unread counters are a
// separate concern and stay untouched.
func (c *Client) MarkAllNotificationsRead() error {
	c.mu.Lock()
	userId := c.userId
	c.mu.Unlock()
	if userId == uuid.Nil {
		return errors.Wrap(errs.ErrUnauthorized, "no session")
	}
	if err := c.gateway.MarkAllNotificationsRead(userId); err != nil {
		return err
	}
	c.mu.Lock()
	c.tracker.ClearBadge()
	c.mu.Unlock()
	return nil
}

// Badge returns the notification badge count.
func (c *Client) Badge() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tracker.Badge()
}

// Unread returns one conversation's unread message count.
func (c *Client) Unread(conversationId uuid.UUID) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tracker.Unread(conversationId)
}

// Messages returns the locally stored history for a conversation.
func (c *Client) Messages(conversationId uuid.UUID) []domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Messages(conversationId)
}

// HandleMessageEvent routes an inbound realtime message. A row already known
// locally is a no-op regardless of which path delivered it first. Messages
// for the open conversation are marked read immediately; anything else bumps
// the unread counter.
func (c *Client) HandleMessageEvent(msg domain.Message) {
	c.mu.Lock()
	userId := c.userId
	if userId == uuid.Nil {
		c.mu.Unlock()
		return
	}
	if !c.rec.ApplyRemote(msg) {
		c.mu.Unlock()
		return
	}
	open := c.openConvo == msg.ConversationId
	if open {
		c.store.MarkMessagesRead(msg.ConversationId, userId)
		c.tracker.ClearUnread(msg.ConversationId)
	} else {
		c.tracker.IncrementUnread(msg.ConversationId)
	}
	c.mu.Unlock()

	if open {
		go c.markReadRemote(msg.ConversationId, userId)
	}
	c.pushUpdate(Update{Kind: UpdateMessage, ConversationId: msg.ConversationId, Message: &msg})
}

// HandleNotificationEvent bumps the badge for a freshly inserted notification.
func (c *Client) HandleNotificationEvent(n domain.Notification) {
	c.mu.Lock()
	c.tracker.IncrementBadge()
	c.mu.Unlock()
	c.pushUpdate(Update{Kind: UpdateNotification, Notification: &n})
}

// HandleConversationEvent merges a pushed conversation row.
func (c *Client) HandleConversationEvent(convo domain.Conversation) {
	c.mu.Lock()
	c.store.UpsertConversation(convo)
	c.mu.Unlock()
	c.pushUpdate(Update{Kind: UpdateConversation, ConversationId: convo.Id})
}

// Diagnostics reports the session's vitals for the diagnostics panel.
func (c *Client) Diagnostics() DiagnosticsReport {
	c.mu.Lock()
	report := DiagnosticsReport{
		UserId:           c.userId,
		OpenConversation: c.openConvo,
		PendingWrites:    c.rec.PendingCount(),
	}
	if convo := c.store.Conversation(c.openConvo); convo != nil {
		report.Participants = []uuid.UUID{convo.Participant1, convo.Participant2}
	}
	userId := c.userId
	c.mu.Unlock()

	report.DatabaseReachable = c.gateway.Ping() == nil
	report.OpenSubscriptions = c.router.OpenSubscriptions()
	if userId != uuid.Nil {
		_, err := c.gateway.ListConversations(userId, domain.ConversationActive)
		report.ReadProbeOK = err == nil
	}
	return report
}
