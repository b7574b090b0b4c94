package db

import (
	"database/sql"
	"log"
)

const (
	sqlCreateAccountsTable = `CREATE TABLE IF NOT EXISTS accounts(
                        id uuid NOT NULL PRIMARY KEY,
                        username varchar(100) UNIQUE NOT NULL,
                        publickey varchar(1000) UNIQUE,
                        full_name varchar(255) default '',
                        department varchar(100) default '',
                        role varchar(20) default 'student',
                        bio text default '',
                        avatar_url text default '',
                        is_private int default 0,
                        created_at timestamp default current_timestamp,
                        first_time_login int default 1
                        )`

	sqlCreateConversationsTable = `CREATE TABLE IF NOT EXISTS conversations(
                        id uuid NOT NULL PRIMARY KEY,
                        participant_1 uuid NOT NULL,
                        participant_2 uuid NOT NULL,
                        last_message text default '',
                        last_message_at timestamp default current_timestamp,
                        status varchar(20) default 'active',
                        deleted_for text default '[]',
                        created_at timestamp default current_timestamp,
                        UNIQUE(participant_1, participant_2)
                        )`

	sqlCreateMessagesTable = `CREATE TABLE IF NOT EXISTS messages(
                        id uuid NOT NULL PRIMARY KEY,
                        conversation_id uuid NOT NULL,
                        sender_id uuid NOT NULL,
                        content text default '',
                        type varchar(20) default 'text',
                        media_url text default '',
                        reply_to_id uuid,
                        is_read int default 0,
                        created_at timestamp default current_timestamp
                        )`

	sqlCreateMessagesIndices = `CREATE INDEX IF NOT EXISTS idx_messages_conversation_id ON messages(conversation_id)`

	sqlCreateFollowsTable = `CREATE TABLE IF NOT EXISTS follows(
                        id uuid NOT NULL PRIMARY KEY,
                        follower_id uuid NOT NULL,
                        following_id uuid NOT NULL,
                        status varchar(20) default 'accepted',
                        created_at timestamp default current_timestamp,
                        UNIQUE(follower_id, following_id)
                        )`

	sqlCreateNotificationsTable = `CREATE TABLE IF NOT EXISTS notifications(
                        id uuid NOT NULL PRIMARY KEY,
                        user_id uuid NOT NULL,
                        actor_id uuid,
                        type varchar(20) NOT NULL,
                        title text default '',
                        message text default '',
                        resource_id uuid,
                        is_read int default 0,
                        created_at timestamp default current_timestamp
                        )`

	sqlCreateNotificationsIndices = `CREATE INDEX IF NOT EXISTS idx_notifications_user_id ON notifications(user_id)`

	sqlCreatePostsTable = `CREATE TABLE IF NOT EXISTS posts(
                        id uuid NOT NULL PRIMARY KEY,
                        user_id uuid NOT NULL,
                        media_url text NOT NULL,
                        media_type varchar(20) NOT NULL,
                        category varchar(50) default 'other',
                        description text default '',
                        created_at timestamp default current_timestamp
                        )`

	sqlCreateReactionsTable = `CREATE TABLE IF NOT EXISTS reactions(
                        id uuid NOT NULL PRIMARY KEY,
                        post_id uuid NOT NULL,
                        user_id uuid NOT NULL,
                        reaction_type varchar(30) NOT NULL,
                        created_at timestamp default current_timestamp,
                        UNIQUE(post_id, user_id)
                        )`

	sqlCreateBlocksTable = `CREATE TABLE IF NOT EXISTS blocks(
                        id uuid NOT NULL PRIMARY KEY,
                        blocker_id uuid NOT NULL,
                        blocked_id uuid NOT NULL,
                        created_at timestamp default current_timestamp,
                        UNIQUE(blocker_id, blocked_id)
                        )`
)

var migrationStatements = []string{
	sqlCreateAccountsTable,
	sqlCreateConversationsTable,
	sqlCreateMessagesTable,
	sqlCreateMessagesIndices,
	sqlCreateFollowsTable,
	sqlCreateNotificationsTable,
	sqlCreateNotificationsIndices,
	sqlCreatePostsTable,
	sqlCreateReactionsTable,
	sqlCreateBlocksTable,
}

// RunMigrations creates all tables and indices. Statements are idempotent so
// running against an existing database is safe.
func (db *DB) RunMigrations() error {
	log.Println("Running schema migrations...")
	return db.wrapTransaction(func(tx *sql.Tx) error {
		for _, stmt := range migrationStatements {
			if _, err := tx.Exec(stmt); err != nil {
				return err
			}
		}
		return nil
	})
}
