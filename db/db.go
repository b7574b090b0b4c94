package db

import (
	"context"
	"database/sql"
	"sync"

	"github.com/charmbracelet/ssh"
	"github.com/deemkeen/clubspace/domain"
	"github.com/deemkeen/clubspace/realtime"
	"github.com/deemkeen/clubspace/util"
	"github.com/google/uuid"
	"log"
	"modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"
	"time"
)

// DB is the database struct.
type DB struct {
	db     *sql.DB
	broker *realtime.Broker
}

var (
	dbInstance *DB
	dbOnce     sync.Once
)

const (
	//Accounts
	sqlInsertAccount          = `INSERT INTO accounts(id, username, publickey, created_at) VALUES (?, ?, ?, ?)`
	sqlUpdateLoginAccount     = `UPDATE accounts SET first_time_login = 0, username = ? WHERE publickey = ?`
	sqlUpdateLoginAccountById = `UPDATE accounts SET first_time_login = 0, username = ? WHERE id = ?`
	sqlUpdateProfile          = `UPDATE accounts SET full_name = ?, department = ?, bio = ?, avatar_url = ?, is_private = ? WHERE id = ?`
	sqlUpdateRole             = `UPDATE accounts SET role = ? WHERE id = ?`

	sqlAccountColumns = `id, username, publickey, full_name, department, role, bio, avatar_url, is_private, created_at, first_time_login`

	sqlSelectAccByPublicKey = `SELECT ` + sqlAccountColumns + ` FROM accounts WHERE publickey = ?`
	sqlSelectAccById        = `SELECT ` + sqlAccountColumns + ` FROM accounts WHERE id = ?`
	sqlSelectAccByUsername  = `SELECT ` + sqlAccountColumns + ` FROM accounts WHERE username = ?`
	sqlSelectAllAccounts    = `SELECT ` + sqlAccountColumns + ` FROM accounts WHERE first_time_login = 0 ORDER BY username`
)

// SetBroker attaches the change-event broker. Row inserts on messages and
// notifications are published there after commit; a nil broker disables
// publishing (useful in tests that only exercise SQL).
func (db *DB) SetBroker(b *realtime.Broker) {
	db.broker = b
}

func (db *DB) publish(evt realtime.Event) {
	if db.broker != nil {
		db.broker.Publish(evt)
	}
}

func (db *DB) CreateAccount(s ssh.Session, username string) (error, bool) {
	err, found := db.ReadAccBySession(s)
	if err != nil {
		log.Printf("No records for %s found, creating new user..", username)
	}

	if found != nil {
		return nil, true
	}

	err2 := db.CreateAccByUsername(s, username)
	if err2 != nil {
		log.Println("Creating new user failed: ", err2)
		return err2, false
	}
	return nil, true
}

func (db *DB) CreateAccByUsername(s ssh.Session, username string) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertAccount, uuid.New(), username, util.PkToHash(util.PublicKeyToString(s.PublicKey())), time.Now())
		return err
	})
}

func (db *DB) UpdateLoginByPkHash(username string, pkHash string) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlUpdateLoginAccount, username, pkHash)
		return err
	})
}

func (db *DB) UpdateLoginById(username string, id uuid.UUID) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlUpdateLoginAccountById, username, id)
		return err
	})
}

// UpdateProfile overwrites the mutable profile fields of an account.
func (db *DB) UpdateProfile(id uuid.UUID, fullName, department, bio, avatarURL string, isPrivate bool) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		private := 0
		if isPrivate {
			private = 1
		}
		_, err := tx.Exec(sqlUpdateProfile, fullName, department, bio, avatarURL, private, id)
		return err
	})
}

func (db *DB) UpdateRole(id uuid.UUID, role string) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlUpdateRole, role, id)
		return err
	})
}

func scanAccount(row interface{ Scan(...interface{}) error }) (error, *domain.Account) {
	var acc domain.Account
	var private int
	err := row.Scan(&acc.Id, &acc.Username, &acc.Publickey, &acc.FullName, &acc.Department,
		&acc.Role, &acc.Bio, &acc.AvatarURL, &private, &acc.CreatedAt, &acc.FirstTimeLogin)
	if err != nil {
		return err, nil
	}
	acc.IsPrivate = private != 0
	return nil, &acc
}

func (db *DB) ReadAccBySession(s ssh.Session) (error, *domain.Account) {
	publicKeyToString := util.PublicKeyToString(s.PublicKey())
	return scanAccount(db.db.QueryRow(sqlSelectAccByPublicKey, util.PkToHash(publicKeyToString)))
}

func (db *DB) ReadAccByPkHash(pkHash string) (error, *domain.Account) {
	return scanAccount(db.db.QueryRow(sqlSelectAccByPublicKey, pkHash))
}

func (db *DB) ReadAccById(id uuid.UUID) (error, *domain.Account) {
	return scanAccount(db.db.QueryRow(sqlSelectAccById, id))
}

func (db *DB) ReadAccByUsername(username string) (error, *domain.Account) {
	return scanAccount(db.db.QueryRow(sqlSelectAccByUsername, username))
}

func (db *DB) ReadAllAccounts() (error, *[]domain.Account) {
	rows, err := db.db.Query(sqlSelectAllAccounts)
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
	if err = rows.Err(); err != nil {
		return err, &accounts
	}

	return nil, &accounts
}

// Ping probes database reachability for the diagnostics panel.
func (db *DB) Ping() error {
	var one int
	return db.db.QueryRow(`SELECT 1`).Scan(&one)
}

func GetDB() *DB {
	dbOnce.Do(func() {
		// Open database connection
		sqlDB, err := sql.Open("sqlite", util.ResolveFilePath("database.db"))
		if err != nil {
			panic(err)
		}

		// Configure connection pool for concurrent access
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(time.Hour)

		var journalMode string
		err = sqlDB.QueryRow("PRAGMA journal_mode=WAL").Scan(&journalMode)
		if err != nil {
			log.Printf("Warning: Failed to enable WAL mode: %v", err)
		} else {
			log.Printf("Database journal mode: %s", journalMode)
		}

		sqlDB.Exec("PRAGMA synchronous = NORMAL")
		sqlDB.Exec("PRAGMA cache_size = -64000")
		sqlDB.Exec("PRAGMA temp_store = MEMORY")
		sqlDB.Exec("PRAGMA busy_timeout = 5000")
		sqlDB.Exec("PRAGMA foreign_keys = ON")

		dbInstance = &DB{db: sqlDB}

		// Run initial schema setup
		if err := dbInstance.RunMigrations(); err != nil {
			panic(err)
		}
	})

	return dbInstance
}

// wrapTransaction runs the given function within a transaction.
func (db *DB) wrapTransaction(f func(tx *sql.Tx) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		log.Printf("error starting transaction: %s", err)
		return err
	}
	for {
		err = f(tx)
		if err != nil {
			serr, ok := err.(*sqlite.Error)
			if ok && serr.Code() == sqlitelib.SQLITE_BUSY {
				continue
			}
			tx.Rollback()
			return err
		}
		err = tx.Commit()
		if err != nil {
			log.Printf("error committing transaction: %s", err)
			return err
		}
		break
	}
	return nil
}

func isUniqueViolation(err error) bool {
	serr, ok := err.(*sqlite.Error)
	return ok && (serr.Code() == sqlitelib.SQLITE_CONSTRAINT_UNIQUE || serr.Code() == sqlitelib.SQLITE_CONSTRAINT_PRIMARYKEY)
}
