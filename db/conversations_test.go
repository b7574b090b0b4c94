package db

import (
	"database/sql"
	"testing"
	"time"

	"github.com/deemkeen/clubspace/domain"
	"github.com/deemkeen/clubspace/errs"
	"github.com/deemkeen/clubspace/realtime"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// setupTestDB creates an in-memory SQLite database for testing
func setupTestDB(t *testing.T) *DB {
	sqlDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}

	db := &DB{db: sqlDB}

	for _, stmt := range migrationStatements {
		if _, err := db.db.Exec(stmt); err != nil {
			t.Fatalf("Failed to run migration: %v", err)
		}
	}

	return db
}

// createTestAccount is a helper to create accounts directly via SQL
func createTestAccount(t *testing.T, db *DB, id uuid.UUID, username string) {
	_, err := db.db.Exec(sqlInsertAccount, id, username, "pk-"+username, time.Now())
	if err != nil {
		t.Fatalf("Failed to create test account: %v", err)
	}
}

func TestGetOrCreateConversationNormalizesPair(t *testing.T) {
	db := setupTestDB(t)
	defer db.db.Close()

	alice := uuid.New()
	bob := uuid.New()
	createTestAccount(t, db, alice, "alice")
	createTestAccount(t, db, bob, "bob")

	c1, err := db.GetOrCreateConversation(alice, bob)
	if err != nil {
		t.Fatalf("GetOrCreateConversation failed: %v", err)
	}

	// Opening from the other side must resolve to the same row
	c2, err := db.GetOrCreateConversation(bob, alice)
	if err != nil {
		t.Fatalf("GetOrCreateConversation failed: %v", err)
	}

	if c1.Id != c2.Id {
		t.Errorf("Expected same conversation for both directions, got %s and %s", c1.Id, c2.Id)
	}
	if c1.Participant1.String() > c1.Participant2.String() {
		t.Error("Expected participants to be stored in normalized order")
	}
	if c1.Status != domain.ConversationActive {
		t.Errorf("Expected status active, got %s", c1.Status)
	}
}

func TestSendMessageUpdatesConversationPreview(t *testing.T) {
	db := setupTestDB(t)
	defer db.db.Close()

	alice := uuid.New()
	bob := uuid.New()
	createTestAccount(t, db, alice, "alice")
	createTestAccount(t, db, bob, "bob")

	convo, err := db.GetOrCreateConversation(alice, bob)
	if err != nil {
		t.Fatalf("GetOrCreateConversation failed: %v", err)
	}

	msg, err := db.SendMessage(domain.SendMessage{
		ConversationId: convo.Id,
		SenderId:       alice,
		Content:        "hello bob",
	})
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if msg.Type != domain.MessageText {
		t.Errorf("Expected default type text, got %s", msg.Type)
	}
	if msg.IsRead {
		t.Error("Expected new message to be unread")
	}

	updated, err := db.ReadConversation(convo.Id)
	if err != nil {
		t.Fatalf("ReadConversation failed: %v", err)
	}
	if updated.LastMessage != "hello bob" {
		t.Errorf("Expected preview 'hello bob', got '%s'", updated.LastMessage)
	}
}

func TestSendMediaMessagePreview(t *testing.T) {
	db := setupTestDB(t)
	defer db.db.Close()

	alice := uuid.New()
	bob := uuid.New()
	createTestAccount(t, db, alice, "alice")
	createTestAccount(t, db, bob, "bob")

	convo, _ := db.GetOrCreateConversation(alice, bob)

	_, err := db.SendMessage(domain.SendMessage{
		ConversationId: convo.Id,
		SenderId:       alice,
		Type:           domain.MessageImage,
		MediaURL:       "/media/pic.png",
	})
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	updated, _ := db.ReadConversation(convo.Id)
	if updated.LastMessage != "Sent a image" {
		t.Errorf("Expected media preview, got '%s'", updated.LastMessage)
	}
}

func TestSendMessageUnknownConversation(t *testing.T) {
	db := setupTestDB(t)
	defer db.db.Close()

	_, err := db.SendMessage(domain.SendMessage{
		ConversationId: uuid.New(),
		SenderId:       uuid.New(),
		Content:        "into the void",
	})
	if !errs.IsNotFound(err) {
		t.Errorf("Expected not-found error, got %v", err)
	}
}

func TestSoftDeleteAndRestoreOnNewMessage(t *testing.T) {
	db := setupTestDB(t)
	defer db.db.Close()

	alice := uuid.New()
	bob := uuid.New()
	createTestAccount(t, db, alice, "alice")
	createTestAccount(t, db, bob, "bob")

	convo, _ := db.GetOrCreateConversation(alice, bob)

	if err := db.SoftDeleteConversation(convo.Id, alice); err != nil {
		t.Fatalf("SoftDeleteConversation failed: %v", err)
	}

	// Hidden for alice, still visible for bob
	aliceConvos, err := db.ListConversations(alice, domain.ConversationActive)
	if err != nil {
		t.Fatalf("ListConversations failed: %v", err)
	}
	if len(aliceConvos) != 0 {
		t.Errorf("Expected 0 conversations for alice, got %d", len(aliceConvos))
	}

	bobConvos, _ := db.ListConversations(bob, domain.ConversationActive)
	if len(bobConvos) != 1 {
		t.Fatalf("Expected 1 conversation for bob, got %d", len(bobConvos))
	}

	// New message revives the thread for everyone
	_, err = db.SendMessage(domain.SendMessage{
		ConversationId: convo.Id,
		SenderId:       bob,
		Content:        "you there?",
	})
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	aliceConvos, _ = db.ListConversations(alice, domain.ConversationActive)
	if len(aliceConvos) != 1 {
		t.Errorf("Expected conversation restored for alice, got %d", len(aliceConvos))
	}
}

func TestSoftDeleteIdempotent(t *testing.T) {
	db := setupTestDB(t)
	defer db.db.Close()

	alice := uuid.New()
	bob := uuid.New()
	createTestAccount(t, db, alice, "alice")
	createTestAccount(t, db, bob, "bob")

	convo, _ := db.GetOrCreateConversation(alice, bob)

	if err := db.SoftDeleteConversation(convo.Id, alice); err != nil {
		t.Fatalf("first SoftDeleteConversation failed: %v", err)
	}
	if err := db.SoftDeleteConversation(convo.Id, alice); err != nil {
		t.Fatalf("second SoftDeleteConversation failed: %v", err)
	}

	updated, _ := db.ReadConversation(convo.Id)
	if len(updated.DeletedFor) != 1 {
		t.Errorf("Expected deleted_for to hold alice once, got %d entries", len(updated.DeletedFor))
	}
}

func TestGetOrCreateRestoresHiddenConversation(t *testing.T) {
	db := setupTestDB(t)
	defer db.db.Close()

	alice := uuid.New()
	bob := uuid.New()
	createTestAccount(t, db, alice, "alice")
	createTestAccount(t, db, bob, "bob")

	convo, _ := db.GetOrCreateConversation(alice, bob)
	db.SoftDeleteConversation(convo.Id, alice)

	restored, err := db.GetOrCreateConversation(alice, bob)
	if err != nil {
		t.Fatalf("GetOrCreateConversation failed: %v", err)
	}
	if restored.Id != convo.Id {
		t.Error("Expected the existing conversation, not a new one")
	}
	if restored.DeletedBy(alice) {
		t.Error("Expected conversation restored for alice")
	}
}

func TestUpdateConversationStatus(t *testing.T) {
	db := setupTestDB(t)
	defer db.db.Close()

	alice := uuid.New()
	bob := uuid.New()
	createTestAccount(t, db, alice, "alice")
	createTestAccount(t, db, bob, "bob")

	convo, _ := db.GetOrCreateConversation(alice, bob)
	db.db.Exec(sqlUpdateConversationStatus, domain.ConversationRequest, convo.Id)

	if err := db.UpdateConversationStatus(convo.Id, domain.ConversationActive); err != nil {
		t.Fatalf("UpdateConversationStatus failed: %v", err)
	}

	updated, _ := db.ReadConversation(convo.Id)
	if updated.Status != domain.ConversationActive {
		t.Errorf("Expected status active, got %s", updated.Status)
	}
}

func TestUpdateConversationStatusNotFound(t *testing.T) {
	db := setupTestDB(t)
	defer db.db.Close()

	err := db.UpdateConversationStatus(uuid.New(), domain.ConversationActive)
	if !errs.IsNotFound(err) {
		t.Errorf("Expected not-found error, got %v", err)
	}
}

func TestListMessagesAscendingWithReply(t *testing.T) {
	db := setupTestDB(t)
	defer db.db.Close()

	alice := uuid.New()
	bob := uuid.New()
	createTestAccount(t, db, alice, "alice")
	createTestAccount(t, db, bob, "bob")

	convo, _ := db.GetOrCreateConversation(alice, bob)

	first, err := db.SendMessage(domain.SendMessage{
		ConversationId: convo.Id,
		SenderId:       alice,
		Content:        "first",
	})
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	_, err = db.SendMessage(domain.SendMessage{
		ConversationId: convo.Id,
		SenderId:       bob,
		Content:        "replying",
		ReplyToId:      first.Id,
	})
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	messages, err := db.ListMessages(convo.Id)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(messages))
	}
	if messages[0].Content != "first" {
		t.Errorf("Expected ascending order, got '%s' first", messages[0].Content)
	}

	reply := messages[1]
	if reply.ReplyTo == nil {
		t.Fatal("Expected reply_to to be resolved")
	}
	if reply.ReplyTo.Content != "first" {
		t.Errorf("Expected parent content 'first', got '%s'", reply.ReplyTo.Content)
	}
	// One level deep only
	if reply.ReplyTo.ReplyTo != nil {
		t.Error("Expected reply chain to stop after one level")
	}
}

func TestMarkReadOnlyFlipsOtherSendersMessages(t *testing.T) {
	db := setupTestDB(t)
	defer db.db.Close()

	alice := uuid.New()
	bob := uuid.New()
	createTestAccount(t, db, alice, "alice")
	createTestAccount(t, db, bob, "bob")

	convo, _ := db.GetOrCreateConversation(alice, bob)

	db.SendMessage(domain.SendMessage{ConversationId: convo.Id, SenderId: alice, Content: "from alice"})
	db.SendMessage(domain.SendMessage{ConversationId: convo.Id, SenderId: bob, Content: "from bob"})

	if err := db.MarkRead(convo.Id, alice); err != nil {
		t.Fatalf("MarkRead failed: %v", err)
	}

	messages, _ := db.ListMessages(convo.Id)
	for _, m := range messages {
		if m.SenderId == bob && !m.IsRead {
			t.Error("Expected bob's message read after alice marked")
		}
		if m.SenderId == alice && m.IsRead {
			t.Error("Expected alice's own message untouched")
		}
	}

	// Repeating is a no-op, not an error
	if err := db.MarkRead(convo.Id, alice); err != nil {
		t.Fatalf("second MarkRead failed: %v", err)
	}
}

func TestListConversationsMostRecentFirst(t *testing.T) {
	db := setupTestDB(t)
	defer db.db.Close()

	alice := uuid.New()
	bob := uuid.New()
	carol := uuid.New()
	createTestAccount(t, db, alice, "alice")
	createTestAccount(t, db, bob, "bob")
	createTestAccount(t, db, carol, "carol")

	withBob, _ := db.GetOrCreateConversation(alice, bob)
	withCarol, _ := db.GetOrCreateConversation(alice, carol)

	// Backdate the bob thread, then bump carol's with a message
	db.db.Exec(`UPDATE conversations SET last_message_at = ? WHERE id = ?`,
		time.Now().Add(-time.Hour), withBob.Id)
	db.SendMessage(domain.SendMessage{ConversationId: withCarol.Id, SenderId: carol, Content: "newest"})

	convos, err := db.ListConversations(alice, domain.ConversationActive)
	if err != nil {
		t.Fatalf("ListConversations failed: %v", err)
	}
	if len(convos) != 2 {
		t.Fatalf("Expected 2 conversations, got %d", len(convos))
	}
	if convos[0].Id != withCarol.Id {
		t.Error("Expected the most recently active conversation first")
	}
}

func TestCountUnreadMessages(t *testing.T) {
	db := setupTestDB(t)
	defer db.db.Close()

	alice := uuid.New()
	bob := uuid.New()
	createTestAccount(t, db, alice, "alice")
	createTestAccount(t, db, bob, "bob")

	convo, _ := db.GetOrCreateConversation(alice, bob)

	db.SendMessage(domain.SendMessage{ConversationId: convo.Id, SenderId: bob, Content: "one"})
	db.SendMessage(domain.SendMessage{ConversationId: convo.Id, SenderId: bob, Content: "two"})
	db.SendMessage(domain.SendMessage{ConversationId: convo.Id, SenderId: alice, Content: "mine"})

	count, err := db.CountUnreadMessages(convo.Id, alice)
	if err != nil {
		t.Fatalf("CountUnreadMessages failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 unread for alice, got %d", count)
	}

	db.MarkRead(convo.Id, alice)

	count, _ = db.CountUnreadMessages(convo.Id, alice)
	if count != 0 {
		t.Errorf("Expected 0 unread after marking, got %d", count)
	}
}

func TestStatusChangePublishesConversationEvent(t *testing.T) {
	db := setupTestDB(t)
	defer db.db.Close()

	broker := realtime.NewBroker()
	go broker.Run()
	defer broker.Stop()
	db.SetBroker(broker)

	alice := uuid.New()
	bob := uuid.New()
	createTestAccount(t, db, alice, "alice")
	createTestAccount(t, db, bob, "bob")

	convo, _ := db.GetOrCreateConversation(alice, bob)
	db.db.Exec(sqlUpdateConversationStatus, domain.ConversationRequest, convo.Id)

	sub := broker.Subscribe(realtime.EventSpec{Table: realtime.TableConversations})
	defer broker.Unsubscribe(sub)

	if err := db.UpdateConversationStatus(convo.Id, domain.ConversationActive); err != nil {
		t.Fatalf("UpdateConversationStatus failed: %v", err)
	}

	select {
	case evt := <-sub.Events:
		pushed, ok := evt.Payload.(domain.Conversation)
		if !ok {
			t.Fatalf("Expected a conversation payload, got %T", evt.Payload)
		}
		if pushed.Id != convo.Id {
			t.Errorf("Expected event for %s, got %s", convo.Id, pushed.Id)
		}
		if pushed.Status != domain.ConversationActive {
			t.Errorf("Expected pushed status active, got %s", pushed.Status)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Expected a conversation event after the status change")
	}
}

func TestSendMessagePublishesConversationUpdate(t *testing.T) {
	db := setupTestDB(t)
	defer db.db.Close()

	broker := realtime.NewBroker()
	go broker.Run()
	defer broker.Stop()
	db.SetBroker(broker)

	alice := uuid.New()
	bob := uuid.New()
	createTestAccount(t, db, alice, "alice")
	createTestAccount(t, db, bob, "bob")

	convo, _ := db.GetOrCreateConversation(alice, bob)
	db.SoftDeleteConversation(convo.Id, bob)

	sub := broker.Subscribe(realtime.EventSpec{Table: realtime.TableConversations})
	defer broker.Unsubscribe(sub)

	if _, err := db.SendMessage(domain.SendMessage{ConversationId: convo.Id, SenderId: alice, Content: "hi"}); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	select {
	case evt := <-sub.Events:
		pushed, ok := evt.Payload.(domain.Conversation)
		if !ok {
			t.Fatalf("Expected a conversation payload, got %T", evt.Payload)
		}
		if pushed.LastMessage != "hi" {
			t.Errorf("Expected the refreshed preview, got %q", pushed.LastMessage)
		}
		if len(pushed.DeletedFor) != 0 {
			t.Error("Expected deleted_for cleared on the pushed row")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Expected a conversation event after a send")
	}
}
