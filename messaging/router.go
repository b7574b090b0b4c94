package messaging

import (
	"log"
	"sync"

	"github.com/deemkeen/clubspace/domain"
	"github.com/deemkeen/clubspace/realtime"
	"github.com/google/uuid"
)

// EventHandler receives routed change events. The Client implements it.
type EventHandler interface {
	HandleMessageEvent(msg domain.Message)
	HandleNotificationEvent(n domain.Notification)
	HandleConversationEvent(c domain.Conversation)
}

// Router owns the realtime subscriptions for one authenticated session. The
// notification stream is scoped server-side to the user; the message stream
// is not, so membership is checked per event against the gateway before
// routing (the broker cannot scope by conversation participants). Start tears
// down any previous session's subscriptions first, so switching users never
// leaks listeners or double-delivers.
type Router struct {
	broker  *realtime.Broker
	gateway Gateway
	handler EventHandler

	mu     sync.Mutex
	userId uuid.UUID
	subs   []*realtime.Subscription
	wg     sync.WaitGroup
}

func NewRouter(broker *realtime.Broker, gateway Gateway, handler EventHandler) *Router {
	return &Router{
		broker:  broker,
		gateway: gateway,
		handler: handler,
	}
}

// Start subscribes for the given user, replacing any previous subscriptions.
func (r *Router) Start(userId uuid.UUID) {
	r.Stop()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.userId = userId

	msgSub := r.broker.Subscribe(realtime.EventSpec{Table: realtime.TableMessages})
	notifSub := r.broker.Subscribe(realtime.EventSpec{Table: realtime.TableNotifications, UserId: userId})
	convoSub := r.broker.Subscribe(realtime.EventSpec{Table: realtime.TableConversations})
	r.subs = []*realtime.Subscription{msgSub, notifSub, convoSub}

	r.wg.Add(3)
	go r.routeMessages(userId, msgSub)
	go r.routeNotifications(userId, notifSub)
	go r.routeConversations(userId, convoSub)
}

// Stop tears down the current subscriptions and waits for the routing
// goroutines to drain.
func (r *Router) Stop() {
	r.mu.Lock()
	subs := r.subs
	r.subs = nil
	r.userId = uuid.Nil
	r.mu.Unlock()

	for _, sub := range subs {
		r.broker.Unsubscribe(sub)
	}
	r.wg.Wait()
}

func (r *Router) routeMessages(userId uuid.UUID, sub *realtime.Subscription) {
	defer r.wg.Done()
	for evt := range sub.Events {
		msg, ok := evt.Payload.(domain.Message)
		if !ok {
			continue
		}
		// Own sends are reconciled through the gateway response path.
		if msg.SenderId == userId {
			continue
		}
		if !r.isParticipant(msg.ConversationId, userId) {
			continue
		}
		r.handler.HandleMessageEvent(msg)
	}
}

func (r *Router) routeNotifications(userId uuid.UUID, sub *realtime.Subscription) {
	defer r.wg.Done()
	for evt := range sub.Events {
		n, ok := evt.Payload.(domain.Notification)
		if !ok || n.UserId != userId {
			continue
		}
		r.handler.HandleNotificationEvent(n)
	}
}

func (r *Router) routeConversations(userId uuid.UUID, sub *realtime.Subscription) {
	defer r.wg.Done()
	for evt := range sub.Events {
		c, ok := evt.Payload.(domain.Conversation)
		if !ok || !c.Involves(userId) {
			continue
		}
		r.handler.HandleConversationEvent(c)
	}
}

func (r *Router) isParticipant(conversationId, userId uuid.UUID) bool {
	convo, err := r.gateway.ReadConversation(conversationId)
	if err != nil {
		log.Printf("router: membership check for %s failed: %v", conversationId, err)
		return false
	}
	return convo.Involves(userId)
}

// OpenSubscriptions reports the subscription count for the current session.
func (r *Router) OpenSubscriptions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}
