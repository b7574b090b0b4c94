package db

import (
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/deemkeen/clubspace/domain"
	"github.com/deemkeen/clubspace/errs"
	"github.com/deemkeen/clubspace/realtime"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	sqlInsertFollow       = `INSERT INTO follows(id, follower_id, following_id, status, created_at) VALUES (?, ?, ?, ?, ?)`
	sqlSelectFollow       = `SELECT id, follower_id, following_id, status, created_at FROM follows WHERE follower_id = ? AND following_id = ?`
	sqlUpdateFollowStatus = `UPDATE follows SET status = ? WHERE follower_id = ? AND following_id = ?`
	sqlDeleteFollow       = `DELETE FROM follows WHERE follower_id = ? AND following_id = ?`
	sqlSelectFollowers    = `SELECT ` + prefixedAccountColumns + ` FROM accounts a
                                                    JOIN follows f ON f.follower_id = a.id
                                                    WHERE f.following_id = ? AND f.status = 'accepted' ORDER BY a.username`
	sqlSelectFollowing = `SELECT ` + prefixedAccountColumns + ` FROM accounts a
                                                    JOIN follows f ON f.following_id = a.id
                                                    WHERE f.follower_id = ? AND f.status = 'accepted' ORDER BY a.username`
	sqlSelectPendingFollowers = `SELECT ` + prefixedAccountColumns + ` FROM accounts a
                                                    JOIN follows f ON f.follower_id = a.id
                                                    WHERE f.following_id = ? AND f.status = 'pending' ORDER BY f.created_at`

	sqlInsertNotification       = `INSERT INTO notifications(id, user_id, actor_id, type, title, message, resource_id, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	sqlSelectNotifications      = `SELECT id, user_id, actor_id, type, title, message, resource_id, is_read, created_at FROM notifications WHERE user_id = ? ORDER BY created_at DESC LIMIT 50`
	sqlMarkNotificationsRead    = `UPDATE notifications SET is_read = 1 WHERE user_id = ? AND is_read = 0`
	sqlMarkNotificationRead     = `UPDATE notifications SET is_read = 1 WHERE id = ?`
	sqlCountUnreadNotifications = `SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_read = 0`

	sqlInsertPost        = `INSERT INTO posts(id, user_id, media_url, media_type, category, description, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`
	sqlSelectPost        = `SELECT p.id, p.user_id, a.username, p.media_url, p.media_type, p.category, p.description, p.created_at FROM posts p JOIN accounts a ON a.id = p.user_id WHERE p.id = ?`
	sqlSelectRecentPosts = `SELECT p.id, p.user_id, a.username, p.media_url, p.media_type, p.category, p.description, p.created_at
                                                    FROM posts p JOIN accounts a ON a.id = p.user_id
                                                    ORDER BY p.created_at DESC LIMIT ?`
	sqlDeletePost = `DELETE FROM posts WHERE id = ? AND user_id = ?`

	sqlDeleteReaction  = `DELETE FROM reactions WHERE post_id = ? AND user_id = ?`
	sqlInsertReaction  = `INSERT INTO reactions(id, post_id, user_id, reaction_type, created_at) VALUES (?, ?, ?, ?, ?)`
	sqlSelectReactions = `SELECT id, post_id, user_id, reaction_type, created_at FROM reactions WHERE post_id = ? ORDER BY created_at`

	sqlInsertBlock = `INSERT INTO blocks(id, blocker_id, blocked_id, created_at) VALUES (?, ?, ?, ?)`
	sqlDeleteBlock = `DELETE FROM blocks WHERE blocker_id = ? AND blocked_id = ?`
	sqlSelectBlock = `SELECT COUNT(*) FROM blocks WHERE (blocker_id = ? AND blocked_id = ?) OR (blocker_id = ? AND blocked_id = ?)`

	// Timestamps are stored as RFC3339 text with fractional seconds, which
	// strftime rejects; the year-month prefix comparison works on the raw text.
	sqlLeaderboardUploads = `SELECT user_id, COUNT(*) FROM posts
                                                    WHERE substr(created_at, 1, 7) = ? GROUP BY user_id`
	sqlLeaderboardReactions = `SELECT p.user_id, COUNT(*) FROM reactions r
                                                    JOIN posts p ON p.id = r.post_id
                                                    WHERE substr(r.created_at, 1, 7) = ? GROUP BY p.user_id`
)

const prefixedAccountColumns = `a.id, a.username, a.publickey, a.full_name, a.department, a.role, a.bio, a.avatar_url, a.is_private, a.created_at, a.first_time_login`

// FollowAccount creates the follow edge. Public targets get an accepted edge
// right away; private targets get a pending edge that the target has to
// approve. Either way the target is notified inside the same transaction.
func (db *DB) FollowAccount(followerId, followingId uuid.UUID) (*domain.Follow, error) {
	if followerId == followingId {
		return nil, errors.Wrap(errs.ErrValidation, "cannot follow yourself")
	}
	err, target := db.ReadAccById(followingId)
	if err != nil {
		return nil, errors.Wrapf(errs.ErrNotFound, "account %s", followingId)
	}
	err, follower := db.ReadAccById(followerId)
	if err != nil {
		return nil, errors.Wrapf(errs.ErrNotFound, "account %s", followerId)
	}

	status := domain.FollowAccepted
	if target.IsPrivate {
		status = domain.FollowPending
	}

	now := time.Now()
	follow := &domain.Follow{
		Id:          uuid.New(),
		FollowerId:  followerId,
		FollowingId: followingId,
		Status:      status,
		CreatedAt:   now,
	}

	title := fmt.Sprintf("%s started following you", follower.DisplayName())
	if status == domain.FollowPending {
		title = fmt.Sprintf("%s requested to follow you", follower.DisplayName())
	}
	notif := &domain.Notification{
		Id:        uuid.New(),
		UserId:    followingId,
		ActorId:   followerId,
		Type:      domain.NotificationFollow,
		Title:     title,
		CreatedAt: now,
	}

	txErr := db.wrapTransaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec(sqlInsertFollow, follow.Id, follow.FollowerId, follow.FollowingId, follow.Status, now); err != nil {
			return err
		}
		return insertNotification(tx, notif)
	})
	if txErr != nil {
		if isUniqueViolation(errors.Cause(txErr)) {
			return nil, errors.Wrap(errs.ErrValidation, "already following")
		}
		return nil, txErr
	}

	db.publishNotification(notif)
	return follow, nil
}

// AcceptFollowRequest flips a pending edge to accepted. Only the followed
// account may accept.
func (db *DB) AcceptFollowRequest(followerId, followingId uuid.UUID) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		res, err := tx.Exec(sqlUpdateFollowStatus, domain.FollowAccepted, followerId, followingId)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errors.Wrap(errs.ErrNotFound, "follow request")
		}
		return nil
	})
}

// RejectFollowRequest drops a pending edge. Also serves as unfollow.
func (db *DB) RejectFollowRequest(followerId, followingId uuid.UUID) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlDeleteFollow, followerId, followingId)
		return err
	})
}

// ReadFollowStatus reports the edge state between two users.
func (db *DB) ReadFollowStatus(followerId, followingId uuid.UUID) (domain.FollowStatus, error) {
	var f domain.Follow
	err := db.db.QueryRow(sqlSelectFollow, followerId, followingId).
		Scan(&f.Id, &f.FollowerId, &f.FollowingId, &f.Status, &f.CreatedAt)
	if err == sql.ErrNoRows {
		return domain.FollowNone, nil
	}
	if err != nil {
		return domain.FollowNone, err
	}
	return f.Status, nil
}

func (db *DB) readAccountList(query string, arg interface{}) (error, *[]domain.Account) {
	rows, err := db.db.Query(query, arg)
	if err != nil {
		return err, nil
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		err, acc := scanAccount(rows)
		if err != nil {
			return err, &accounts
		}
		accounts = append(accounts, *acc)
	}
	return rows.Err(), &accounts
}

func (db *DB) ReadFollowers(userId uuid.UUID) (error, *[]domain.Account) {
	return db.readAccountList(sqlSelectFollowers, userId)
}

func (db *DB) ReadFollowing(userId uuid.UUID) (error, *[]domain.Account) {
	return db.readAccountList(sqlSelectFollowing, userId)
}

func (db *DB) ReadPendingFollowers(userId uuid.UUID) (error, *[]domain.Account) {
	return db.readAccountList(sqlSelectPendingFollowers, userId)
}

func insertNotification(tx *sql.Tx, n *domain.Notification) error {
	var actor, resource interface{}
	if n.ActorId != uuid.Nil {
		actor = n.ActorId
	}
	if n.ResourceId != uuid.Nil {
		resource = n.ResourceId
	}
	_, err := tx.Exec(sqlInsertNotification, n.Id, n.UserId, actor, n.Type, n.Title, n.Message, resource, n.CreatedAt)
	return err
}

func (db *DB) publishNotification(n *domain.Notification) {
	db.publish(realtime.Event{
		Table:   realtime.TableNotifications,
		Action:  realtime.ActionInsert,
		UserId:  n.UserId,
		Payload: *n,
	})
}

// CreateNotification stores a standalone notification (system messages).
func (db *DB) CreateNotification(n domain.Notification) error {
	if n.Id == uuid.Nil {
		n.Id = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	err := db.wrapTransaction(func(tx *sql.Tx) error {
		return insertNotification(tx, &n)
	})
	if err != nil {
		return err
	}
	db.publishNotification(&n)
	return nil
}

// ReadNotifications returns the user's 50 most recent notifications, newest
// first.
func (db *DB) ReadNotifications(userId uuid.UUID) ([]domain.Notification, error) {
	rows, err := db.db.Query(sqlSelectNotifications, userId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []domain.Notification
	for rows.Next() {
		var n domain.Notification
		var isRead int
		var actor, resource sql.NullString
		err := rows.Scan(&n.Id, &n.UserId, &actor, &n.Type, &n.Title, &n.Message, &resource, &isRead, &n.CreatedAt)
		if err != nil {
			return notifications, err
		}
		n.IsRead = isRead != 0
		if actor.Valid {
			n.ActorId, _ = uuid.Parse(actor.String)
		}
		if resource.Valid {
			n.ResourceId, _ = uuid.Parse(resource.String)
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// MarkAllNotificationsRead clears the badge. Idempotent.
func (db *DB) MarkAllNotificationsRead(userId uuid.UUID) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlMarkNotificationsRead, userId)
		return err
	})
}

// MarkNotificationRead consumes a single notification.
func (db *DB) MarkNotificationRead(id uuid.UUID) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		res, err := tx.Exec(sqlMarkNotificationRead, id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errors.Wrapf(errs.ErrNotFound, "notification %s", id)
		}
		return nil
	})
}

func (db *DB) CountUnreadNotifications(userId uuid.UUID) (int, error) {
	var count int
	err := db.db.QueryRow(sqlCountUnreadNotifications, userId).Scan(&count)
	return count, err
}

// CreatePost stores an uploaded work.
func (db *DB) CreatePost(userId uuid.UUID, mediaURL string, mediaType domain.MediaType, category, description string) (*domain.Post, error) {
	if mediaURL == "" {
		return nil, errors.Wrap(errs.ErrValidation, "post needs a media url")
	}
	now := time.Now()
	post := &domain.Post{
		Id:          uuid.New(),
		UserId:      userId,
		MediaURL:    mediaURL,
		MediaType:   mediaType,
		Category:    category,
		Description: description,
		CreatedAt:   now,
	}
	err := db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertPost, post.Id, post.UserId, post.MediaURL, post.MediaType, post.Category, post.Description, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return post, nil
}

func scanPost(row interface{ Scan(...interface{}) error }) (*domain.Post, error) {
	var p domain.Post
	err := row.Scan(&p.Id, &p.UserId, &p.CreatedBy, &p.MediaURL, &p.MediaType, &p.Category, &p.Description, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (db *DB) ReadPost(id uuid.UUID) (*domain.Post, error) {
	post, err := scanPost(db.db.QueryRow(sqlSelectPost, id))
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(errs.ErrNotFound, "post %s", id)
	}
	return post, err
}

// ReadRecentPosts returns the newest posts for the feed and the RSS endpoint.
func (db *DB) ReadRecentPosts(limit int) ([]domain.Post, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.db.Query(sqlSelectRecentPosts, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []domain.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return posts, err
		}
		posts = append(posts, *post)
	}
	return posts, rows.Err()
}

// DeletePost removes a post, owner only.
func (db *DB) DeletePost(id, userId uuid.UUID) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		res, err := tx.Exec(sqlDeletePost, id, userId)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errors.Wrapf(errs.ErrNotFound, "post %s", id)
		}
		return nil
	})
}

// UpsertReaction replaces the user's previous reaction on the post, if any,
// and notifies the post owner. Reacting to your own post skips the
// notification.
func (db *DB) UpsertReaction(postId, userId uuid.UUID, reaction domain.ReactionType) (*domain.Reaction, error) {
	post, err := db.ReadPost(postId)
	if err != nil {
		return nil, err
	}
	err2, actor := db.ReadAccById(userId)
	if err2 != nil {
		return nil, errors.Wrapf(errs.ErrNotFound, "account %s", userId)
	}

	now := time.Now()
	r := &domain.Reaction{
		Id:        uuid.New(),
		PostId:    postId,
		UserId:    userId,
		Type:      reaction,
		CreatedAt: now,
	}

	var notif *domain.Notification
	if post.UserId != userId {
		notif = &domain.Notification{
			Id:         uuid.New(),
			UserId:     post.UserId,
			ActorId:    userId,
			Type:       domain.NotificationLike,
			Title:      fmt.Sprintf("%s reacted to your post", actor.DisplayName()),
			ResourceId: postId,
			CreatedAt:  now,
		}
	}

	err = db.wrapTransaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec(sqlDeleteReaction, postId, userId); err != nil {
			return err
		}
		if _, err := tx.Exec(sqlInsertReaction, r.Id, r.PostId, r.UserId, r.Type, now); err != nil {
			return err
		}
		if notif != nil {
			return insertNotification(tx, notif)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if notif != nil {
		db.publishNotification(notif)
	}
	return r, nil
}

// RemoveReaction withdraws the user's reaction. Idempotent.
func (db *DB) RemoveReaction(postId, userId uuid.UUID) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlDeleteReaction, postId, userId)
		return err
	})
}

func (db *DB) ReadReactions(postId uuid.UUID) ([]domain.Reaction, error) {
	rows, err := db.db.Query(sqlSelectReactions, postId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reactions []domain.Reaction
	for rows.Next() {
		var r domain.Reaction
		if err := rows.Scan(&r.Id, &r.PostId, &r.UserId, &r.Type, &r.CreatedAt); err != nil {
			return reactions, err
		}
		reactions = append(reactions, r)
	}
	return reactions, rows.Err()
}

// BlockAccount blocks a user and severs both follow edges in one transaction.
func (db *DB) BlockAccount(blockerId, blockedId uuid.UUID) error {
	if blockerId == blockedId {
		return errors.Wrap(errs.ErrValidation, "cannot block yourself")
	}
	err := db.wrapTransaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec(sqlInsertBlock, uuid.New(), blockerId, blockedId, time.Now()); err != nil {
			return err
		}
		if _, err := tx.Exec(sqlDeleteFollow, blockerId, blockedId); err != nil {
			return err
		}
		_, err := tx.Exec(sqlDeleteFollow, blockedId, blockerId)
		return err
	})
	if err != nil && isUniqueViolation(errors.Cause(err)) {
		return nil
	}
	return err
}

func (db *DB) UnblockAccount(blockerId, blockedId uuid.UUID) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlDeleteBlock, blockerId, blockedId)
		return err
	})
}

// IsBlocked reports whether a block exists in either direction.
func (db *DB) IsBlocked(a, b uuid.UUID) (bool, error) {
	var count int
	err := db.db.QueryRow(sqlSelectBlock, a, b, b, a).Scan(&count)
	return count > 0, err
}

// Leaderboard scores every member for the given month. Uploads count double,
// reactions received count single, mentors get a flat bonus of five points.
func (db *DB) Leaderboard(year int, month time.Month) ([]domain.LeaderboardEntry, error) {
	period := fmt.Sprintf("%04d-%02d", year, month)

	uploads, err := db.countByUser(sqlLeaderboardUploads, period)
	if err != nil {
		return nil, err
	}
	reactions, err := db.countByUser(sqlLeaderboardReactions, period)
	if err != nil {
		return nil, err
	}

	err2, accounts := db.ReadAllAccounts()
	if err2 != nil {
		return nil, err2
	}

	var entries []domain.LeaderboardEntry
	for _, acc := range *accounts {
		e := domain.LeaderboardEntry{
			UserId:        acc.Id,
			FullName:      acc.DisplayName(),
			Department:    acc.Department,
			UploadCount:   uploads[acc.Id],
			ReactionCount: reactions[acc.Id],
		}
		if acc.Role == domain.RoleMentor {
			e.MentorBonus = 5
		}
		e.TotalScore = e.UploadCount*2 + e.ReactionCount + e.MentorBonus
		if e.TotalScore == 0 {
			continue
		}
		entries = append(entries, e)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].TotalScore != entries[j].TotalScore {
			return entries[i].TotalScore > entries[j].TotalScore
		}
		return entries[i].FullName < entries[j].FullName
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

func (db *DB) countByUser(query, period string) (map[uuid.UUID]int, error) {
	rows, err := db.db.Query(query, period)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[uuid.UUID]int)
	for rows.Next() {
		var id uuid.UUID
		var count int
		if err := rows.Scan(&id, &count); err != nil {
			return counts, err
		}
		counts[id] = count
	}
	return counts, rows.Err()
}

