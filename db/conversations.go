package db

import (
	"database/sql"
	"encoding/json"
	"sort"
	"time"

	"github.com/deemkeen/clubspace/domain"
	"github.com/deemkeen/clubspace/errs"
	"github.com/deemkeen/clubspace/realtime"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Conversation and message queries. This file implements the backend gateway
// contract the messaging core consumes: row-to-entity mapping happens here,
// once, and nowhere else.

const (
	sqlConversationColumns = `id, participant_1, participant_2, last_message, last_message_at, status, deleted_for, created_at`

	sqlSelectConversationById   = `SELECT ` + sqlConversationColumns + ` FROM conversations WHERE id = ?`
	sqlSelectConversationByPair = `SELECT ` + sqlConversationColumns + ` FROM conversations WHERE participant_1 = ? AND participant_2 = ?`
	sqlSelectConversations      = `SELECT ` + sqlConversationColumns + ` FROM conversations
                                                            WHERE (participant_1 = ? OR participant_2 = ?) AND status = ?
                                                            ORDER BY last_message_at DESC, id ASC`
	sqlInsertConversation             = `INSERT INTO conversations(id, participant_1, participant_2, status, last_message_at, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	sqlUpdateConversationStatus       = `UPDATE conversations SET status = ? WHERE id = ?`
	sqlUpdateConversationDeletedFor   = `UPDATE conversations SET deleted_for = ? WHERE id = ?`
	sqlUpdateConversationOnNewMessage = `UPDATE conversations SET last_message = ?, last_message_at = ?, deleted_for = '[]' WHERE id = ?`

	sqlInsertMessage = `INSERT INTO messages(id, conversation_id, sender_id, content, type, media_url, reply_to_id, is_read, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?)`

	sqlSelectMessages = `SELECT m.id, m.conversation_id, m.sender_id, m.content, m.type, m.media_url, m.reply_to_id, m.is_read, m.created_at,
                                                                   r.id, r.sender_id, r.content, r.type, r.media_url, r.created_at
                                                            FROM messages m
                                                            LEFT JOIN messages r ON r.id = m.reply_to_id
                                                            WHERE m.conversation_id = ?
                                                            ORDER BY m.created_at ASC, m.id ASC`

	sqlMarkMessagesRead = `UPDATE messages SET is_read = 1 WHERE conversation_id = ? AND sender_id != ? AND is_read = 0`

	sqlCountUnreadMessages = `SELECT COUNT(*) FROM messages WHERE conversation_id = ? AND sender_id != ? AND is_read = 0`
)

func encodeDeletedFor(ids []uuid.UUID) string {
	if len(ids) == 0 {
		return "[]"
	}
	strs := make([]string, 0, len(ids))
	for _, id := range ids {
		strs = append(strs, id.String())
	}
	buf, _ := json.Marshal(strs)
	return string(buf)
}

func decodeDeletedFor(raw string) []uuid.UUID {
	var strs []string
	if err := json.Unmarshal([]byte(raw), &strs); err != nil {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(strs))
	for _, s := range strs {
		if id, err := uuid.Parse(s); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// normalizePair orders two participant ids lexicographically so the same pair
// always maps to the same row regardless of who initiates.
func normalizePair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if a.String() > b.String() {
		return b, a
	}
	return a, b
}

func scanConversation(row interface{ Scan(...interface{}) error }) (*domain.Conversation, error) {
	var c domain.Conversation
	var deletedFor string
	err := row.Scan(&c.Id, &c.Participant1, &c.Participant2, &c.LastMessage,
		&c.LastMessageAt, &c.Status, &deletedFor, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	c.DeletedFor = decodeDeletedFor(deletedFor)
	return &c, nil
}

// ReadConversation fetches a single conversation by id.
func (db *DB) ReadConversation(id uuid.UUID) (*domain.Conversation, error) {
	convo, err := scanConversation(db.db.QueryRow(sqlSelectConversationById, id))
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(errs.ErrNotFound, "conversation %s", id)
	}
	if err != nil {
		return nil, err
	}
	return convo, nil
}

// ListConversations returns the conversations visible to the user under the
// given tab: user is a participant, status matches, and the user has not
// hidden the row. Ordered by last_message_at descending, id ascending on ties.
func (db *DB) ListConversations(userId uuid.UUID, status domain.ConversationStatus) ([]domain.Conversation, error) {
	rows, err := db.db.Query(sqlSelectConversations, userId, userId, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conversations []domain.Conversation
	for rows.Next() {
		convo, err := scanConversation(rows)
		if err != nil {
			return conversations, err
		}
		if convo.DeletedBy(userId) {
			continue
		}
		conversations = append(conversations, *convo)
	}
	return conversations, rows.Err()
}

// GetOrCreateConversation finds the unique conversation between the two users
// or creates it. Creation status follows the current policy: always active.
// The privacy-gated variant (request when the target account is private and
// does not follow back) is deliberately disabled; see DESIGN.md.
// A lost creation race resolves to the winner's row instead of an error, and
// an existing row the caller had hidden is restored for them.
func (db *DB) GetOrCreateConversation(userId, otherUserId uuid.UUID) (*domain.Conversation, error) {
	p1, p2 := normalizePair(userId, otherUserId)

	existing, err := scanConversation(db.db.QueryRow(sqlSelectConversationByPair, p1, p2))
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	if existing != nil {
		return db.restoreIfDeleted(existing, userId)
	}

	now := time.Now()
	convo := &domain.Conversation{
		Id:            uuid.New(),
		Participant1:  p1,
		Participant2:  p2,
		Status:        domain.ConversationActive,
		LastMessageAt: now,
		CreatedAt:     now,
	}

	err = db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertConversation, convo.Id, convo.Participant1, convo.Participant2, convo.Status, now, now)
		return err
	})
	if err != nil {
		// Concurrent creation by the other participant: the UNIQUE pair
		// constraint fired, the winner's row is the conversation.
		if isUniqueViolation(errors.Cause(err)) {
			existing, serr := scanConversation(db.db.QueryRow(sqlSelectConversationByPair, p1, p2))
			if serr != nil {
				return nil, serr
			}
			return db.restoreIfDeleted(existing, userId)
		}
		return nil, err
	}

	return convo, nil
}

func (db *DB) restoreIfDeleted(convo *domain.Conversation, userId uuid.UUID) (*domain.Conversation, error) {
	if !convo.DeletedBy(userId) {
		return convo, nil
	}
	remaining := make([]uuid.UUID, 0, len(convo.DeletedFor))
	for _, id := range convo.DeletedFor {
		if id != userId {
			remaining = append(remaining, id)
		}
	}
	err := db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlUpdateConversationDeletedFor, encodeDeletedFor(remaining), convo.Id)
		return err
	})
	if err != nil {
		return nil, err
	}
	convo.DeletedFor = remaining
	return convo, nil
}

// publishConversation pushes the conversation row as an update event after a
// commit, so the other participant's session learns of status and preview
// changes without a full refetch.
func (db *DB) publishConversation(id uuid.UUID) {
	convo, err := db.ReadConversation(id)
	if err != nil {
		return
	}
	db.publish(realtime.Event{
		Table:   realtime.TableConversations,
		Action:  realtime.ActionUpdate,
		Payload: *convo,
	})
}

// UpdateConversationStatus moves a conversation between the request queue and
// the primary inbox. The only legal transition is request -> active.
func (db *DB) UpdateConversationStatus(id uuid.UUID, status domain.ConversationStatus) error {
	err := db.wrapTransaction(func(tx *sql.Tx) error {
		res, err := tx.Exec(sqlUpdateConversationStatus, status, id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errors.Wrapf(errs.ErrNotFound, "conversation %s", id)
		}
		return nil
	})
	if err != nil {
		return err
	}
	db.publishConversation(id)
	return nil
}

// SoftDeleteConversation hides the conversation from the user's inbox. The
// row persists for the other participant; a new message revives it.
func (db *DB) SoftDeleteConversation(id, userId uuid.UUID) error {
	convo, err := db.ReadConversation(id)
	if err != nil {
		return err
	}
	if convo.DeletedBy(userId) {
		return nil
	}
	deleted := append(convo.DeletedFor, userId)
	err = db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlUpdateConversationDeletedFor, encodeDeletedFor(deleted), id)
		return err
	})
	if err != nil {
		return err
	}
	db.publishConversation(id)
	return nil
}

// ListMessages returns a conversation's messages ascending by creation time,
// with reply_to resolved exactly one level deep.
func (db *DB) ListMessages(conversationId uuid.UUID) ([]domain.Message, error) {
	rows, err := db.db.Query(sqlSelectMessages, conversationId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var m domain.Message
		var isRead int
		var replyTo sql.NullString
		var rId, rSender, rContent, rType, rMediaURL sql.NullString
		var rCreatedAt sql.NullTime

		err := rows.Scan(&m.Id, &m.ConversationId, &m.SenderId, &m.Content, &m.Type, &m.MediaURL,
			&replyTo, &isRead, &m.CreatedAt,
			&rId, &rSender, &rContent, &rType, &rMediaURL, &rCreatedAt)
		if err != nil {
			return messages, err
		}
		m.IsRead = isRead != 0
		if replyTo.Valid {
			m.ReplyToId, _ = uuid.Parse(replyTo.String)
		}
		if rId.Valid {
			reply := domain.Message{
				Id:             uuid.MustParse(rId.String),
				ConversationId: m.ConversationId,
				Content:        rContent.String,
				Type:           domain.MessageType(rType.String),
				MediaURL:       rMediaURL.String,
				CreatedAt:      rCreatedAt.Time,
			}
			reply.SenderId, _ = uuid.Parse(rSender.String)
			m.ReplyTo = &reply
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return messages, err
	}

	// created_at has second resolution under sqlite; the id tie-break keeps
	// the order deterministic for bursts within the same second.
	sort.SliceStable(messages, func(i, j int) bool {
		if messages[i].CreatedAt.Equal(messages[j].CreatedAt) {
			return messages[i].Id.String() < messages[j].Id.String()
		}
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})

	return messages, nil
}

// SendMessage persists a message and, in the same transaction, refreshes the
// conversation preview and clears deleted_for so new activity un-hides the
// thread for everyone. The insert event is published after commit.
func (db *DB) SendMessage(req domain.SendMessage) (*domain.Message, error) {
	if _, err := db.ReadConversation(req.ConversationId); err != nil {
		return nil, err
	}

	if req.Type == "" {
		req.Type = domain.MessageText
	}

	now := time.Now()
	msg := &domain.Message{
		Id:             uuid.New(),
		ConversationId: req.ConversationId,
		SenderId:       req.SenderId,
		Content:        req.Content,
		Type:           req.Type,
		MediaURL:       req.MediaURL,
		ReplyToId:      req.ReplyToId,
		CreatedAt:      now,
	}

	err := db.wrapTransaction(func(tx *sql.Tx) error {
		var replyTo interface{}
		if req.ReplyToId != uuid.Nil {
			replyTo = req.ReplyToId
		}
		if _, err := tx.Exec(sqlInsertMessage, msg.Id, msg.ConversationId, msg.SenderId, msg.Content, msg.Type, msg.MediaURL, replyTo, now); err != nil {
			return err
		}
		_, err := tx.Exec(sqlUpdateConversationOnNewMessage, req.Preview(), now, req.ConversationId)
		return err
	})
	if err != nil {
		return nil, err
	}

	if req.ReplyToId != uuid.Nil {
		if parent := db.readMessage(req.ReplyToId); parent != nil {
			msg.ReplyTo = parent
		}
	}

	db.publish(realtime.Event{
		Table:   realtime.TableMessages,
		Action:  realtime.ActionInsert,
		Payload: *msg,
	})
	// The conversation row changed too: preview, timestamp, cleared deleted_for.
	db.publishConversation(req.ConversationId)

	return msg, nil
}

func (db *DB) readMessage(id uuid.UUID) *domain.Message {
	var m domain.Message
	var isRead int
	var replyTo sql.NullString
	err := db.db.QueryRow(`SELECT id, conversation_id, sender_id, content, type, media_url, reply_to_id, is_read, created_at FROM messages WHERE id = ?`, id).
		Scan(&m.Id, &m.ConversationId, &m.SenderId, &m.Content, &m.Type, &m.MediaURL, &replyTo, &isRead, &m.CreatedAt)
	if err != nil {
		return nil
	}
	m.IsRead = isRead != 0
	if replyTo.Valid {
		m.ReplyToId, _ = uuid.Parse(replyTo.String)
	}
	return &m
}

// MarkRead flags every message in the conversation not sent by the reader.
// Safe to call repeatedly.
func (db *DB) MarkRead(conversationId, readerId uuid.UUID) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlMarkMessagesRead, conversationId, readerId)
		return err
	})
}

// CountUnreadMessages is the derived per-conversation unread aggregate.
func (db *DB) CountUnreadMessages(conversationId, userId uuid.UUID) (int, error) {
	var count int
	err := db.db.QueryRow(sqlCountUnreadMessages, conversationId, userId).Scan(&count)
	return count, err
}
