package web

import (
	"log"
	"net/http"
	"time"

	"github.com/deemkeen/clubspace/realtime"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPingPeriod = 50 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser clients come from the same closed network as the SSH surface.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type wireEvent struct {
	Table   string      `json:"table"`
	Action  string      `json:"action"`
	UserId  string      `json:"user_id,omitempty"`
	Payload interface{} `json:"payload,omitempty"`
}

// HandleEvents upgrades to a websocket and forwards broker events. The
// optional user query parameter scopes the notification stream; message and
// conversation streams are unscoped and the client filters by membership,
// same as the TUI router does.
func HandleEvents(broker *realtime.Broker) gin.HandlerFunc {
	return func(c *gin.Context) {
		var userId uuid.UUID
		if raw := c.Query("user"); raw != "" {
			parsed, err := uuid.Parse(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
				return
			}
			userId = parsed
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Println("Websocket upgrade failed:", err)
			return
		}

		subs := []*realtime.Subscription{
			broker.Subscribe(realtime.EventSpec{Table: realtime.TableMessages}),
			broker.Subscribe(realtime.EventSpec{Table: realtime.TableConversations}),
			broker.Subscribe(realtime.EventSpec{Table: realtime.TableNotifications, UserId: userId}),
		}

		events := make(chan realtime.Event, 64)
		done := make(chan struct{})
		for _, sub := range subs {
			go func(sub *realtime.Subscription) {
				for evt := range sub.Events {
					select {
					case events <- evt:
					case <-done:
						return
					}
				}
			}(sub)
		}

		// Reader only watches for the close frame.
		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ticker := time.NewTicker(wsPingPeriod)
		defer func() {
			ticker.Stop()
			for _, sub := range subs {
				broker.Unsubscribe(sub)
			}
			conn.Close()
		}()

		for {
			select {
			case evt := <-events:
				wire := wireEvent{Table: evt.Table, Action: evt.Action, Payload: evt.Payload}
				if evt.UserId != uuid.Nil {
					wire.UserId = evt.UserId.String()
				}
				conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				if err := conn.WriteJSON(wire); err != nil {
					return
				}
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}
}
