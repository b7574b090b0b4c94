// Package realtime is an in-process change-event broker. The db layer
// publishes a row event after every committed insert/update, and clients
// (the messaging router, the websocket bridge) subscribe with a table plus an
// optional user scope. Delivery is best-effort: a subscriber that stops
// draining its channel loses events and is expected to reconcile on the next
// explicit fetch.
package realtime

import (
	"log"

	"github.com/google/uuid"
)

const (
	ActionInsert = "insert"
	ActionUpdate = "update"

	TableMessages      = "messages"
	TableNotifications = "notifications"
	TableConversations = "conversations"
)

// Event is one row change. UserId scopes user-bound tables (notifications);
// it stays uuid.Nil for tables the broker cannot scope, in which case
// subscribers filter client-side.
type Event struct {
	Table   string
	Action  string
	UserId  uuid.UUID
	Payload interface{}
}

// EventSpec selects the events a subscription receives. A zero UserId matches
// every event of the table.
type EventSpec struct {
	Table  string
	UserId uuid.UUID
}

func (s EventSpec) matches(evt Event) bool {
	if s.Table != evt.Table {
		return false
	}
	if s.UserId != uuid.Nil && evt.UserId != uuid.Nil && s.UserId != evt.UserId {
		return false
	}
	return true
}

type Subscription struct {
	Spec   EventSpec
	Events chan Event
}

type Broker struct {
	register   chan *Subscription
	unregister chan *Subscription
	publish    chan Event
	count      chan chan int
	done       chan struct{}
	subs       map[*Subscription]bool
}

func NewBroker() *Broker {
	return &Broker{
		register:   make(chan *Subscription),
		unregister: make(chan *Subscription),
		publish:    make(chan Event, 64),
		count:      make(chan chan int),
		done:       make(chan struct{}),
		subs:       make(map[*Subscription]bool),
	}
}

// Run owns the subscription map; all map access happens on this goroutine.
func (b *Broker) Run() {
	for {
		select {
		case sub := <-b.register:
			b.subs[sub] = true

		case sub := <-b.unregister:
			if _, ok := b.subs[sub]; ok {
				delete(b.subs, sub)
				close(sub.Events)
			}

		case evt := <-b.publish:
			for sub := range b.subs {
				if !sub.Spec.matches(evt) {
					continue
				}
				select {
				case sub.Events <- evt:
				default:
					log.Printf("realtime: dropping %s/%s event for slow subscriber", evt.Table, evt.Action)
				}
			}

		case reply := <-b.count:
			reply <- len(b.subs)

		case <-b.done:
			for sub := range b.subs {
				delete(b.subs, sub)
				close(sub.Events)
			}
			return
		}
	}
}

func (b *Broker) Subscribe(spec EventSpec) *Subscription {
	sub := &Subscription{
		Spec:   spec,
		Events: make(chan Event, 64),
	}
	select {
	case b.register <- sub:
	case <-b.done:
		close(sub.Events)
	}
	return sub
}

func (b *Broker) Unsubscribe(sub *Subscription) {
	select {
	case b.unregister <- sub:
	case <-b.done:
	}
}

func (b *Broker) Publish(evt Event) {
	select {
	case b.publish <- evt:
	case <-b.done:
	}
}

// OpenSubscriptions reports the live subscription count for diagnostics.
func (b *Broker) OpenSubscriptions() int {
	reply := make(chan int, 1)
	select {
	case b.count <- reply:
		return <-reply
	case <-b.done:
		return 0
	}
}

func (b *Broker) Stop() {
	close(b.done)
}
