package services

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"counselweb/internal/models"
)

// BoltDB implements the session Store interface using a BoltDB backend. Sessions live in
// one bucket, each session's messages in a bucket of their own, and the active-session
// reference in a small meta bucket. All mutations run inside a single update
// transaction, which gives the atomic replace-by-id the orchestrator relies on.
type BoltDB struct {
	db *bolt.DB
}

const (
	sessionsBucket = "sessions"
	metaBucket     = "meta"

	currentSessionKey = "current-session"
)

// NewBoltDB creates a BoltDB instance backed by the file at path. The database file is
// created with 0600 permissions if it doesn't exist.
func NewBoltDB(path string) (BoltDB, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return BoltDB{}, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(sessionsBucket)); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists([]byte(metaBucket))
		return err
	})

	return BoltDB{db: db}, err
}

// Close releases the underlying database file.
func (b BoltDB) Close() error {
	return b.db.Close()
}

func messageBucketName(sessionID string) []byte {
	return []byte(fmt.Sprintf("session-%s", sessionID))
}

// CreateSession stores a new empty session and makes it the active one. The stored ID
// combines a sequence number with a random ID so iteration order stays chronological.
func (b BoltDB) CreateSession(context.Context) (models.ChatSession, error) {
	now := time.Now()
	session := models.ChatSession{
		Title:     "New Conversation",
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		sb := tx.Bucket([]byte(sessionsBucket))

		seq, err := sb.NextSequence()
		if err != nil {
			return fmt.Errorf("failed to get next sequence: %w", err)
		}
		// Zero-padded so lexicographic bucket order matches creation order.
		session.ID = fmt.Sprintf("%010d-%s", seq, uuid.New().String())

		if _, err := tx.CreateBucketIfNotExists(messageBucketName(session.ID)); err != nil {
			return fmt.Errorf("failed to create message bucket: %w", err)
		}

		v, err := json.Marshal(session)
		if err != nil {
			return fmt.Errorf("failed to marshal session: %w", err)
		}
		if err := sb.Put([]byte(session.ID), v); err != nil {
			return err
		}

		return tx.Bucket([]byte(metaBucket)).Put([]byte(currentSessionKey), []byte(session.ID))
	})

	return session, err
}

// Sessions retrieves all stored sessions in reverse chronological order.
func (b BoltDB) Sessions(context.Context) ([]models.ChatSession, error) {
	var sessions []models.ChatSession
	err := b.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(sessionsBucket)).ForEach(func(_, v []byte) error {
			var session models.ChatSession
			if err := json.Unmarshal(v, &session); err != nil {
				return fmt.Errorf("failed to unmarshal session: %w", err)
			}
			session.CreatedAt = models.NormalizeTime(session.CreatedAt)
			session.UpdatedAt = models.NormalizeTime(session.UpdatedAt)
			sessions = append(sessions, session)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	slices.Reverse(sessions)
	return sessions, nil
}

// UpdateSessionTitle renames a session.
func (b BoltDB) UpdateSessionTitle(_ context.Context, id, title string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		session, err := getSession(tx, id)
		if err != nil {
			return err
		}
		session.Title = title
		session.UpdatedAt = time.Now()
		return putSession(tx, session)
	})
}

// DeleteSession removes a session and its messages. If the deleted session was active,
// the most recent remaining session becomes active, or the reference is cleared when
// none remain.
func (b BoltDB) DeleteSession(_ context.Context, id string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		sb := tx.Bucket([]byte(sessionsBucket))
		if sb.Get([]byte(id)) == nil {
			return fmt.Errorf("session %s: %w", id, models.ErrNotFound)
		}
		if err := sb.Delete([]byte(id)); err != nil {
			return err
		}
		if err := tx.DeleteBucket(messageBucketName(id)); err != nil {
			return fmt.Errorf("failed to delete message bucket: %w", err)
		}

		mb := tx.Bucket([]byte(metaBucket))
		if string(mb.Get([]byte(currentSessionKey))) != id {
			return nil
		}
		var next []byte
		if k, _ := sb.Cursor().Last(); k != nil {
			next = k
		}
		if next == nil {
			return mb.Delete([]byte(currentSessionKey))
		}
		return mb.Put([]byte(currentSessionKey), next)
	})
}

// CurrentSessionID returns the active session's id, or the empty string when no session
// is active.
func (b BoltDB) CurrentSessionID(context.Context) (string, error) {
	var id string
	err := b.db.View(func(tx *bolt.Tx) error {
		id = string(tx.Bucket([]byte(metaBucket)).Get([]byte(currentSessionKey)))
		return nil
	})
	return id, err
}

// SetCurrentSession marks an existing session as active.
func (b BoltDB) SetCurrentSession(_ context.Context, id string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket([]byte(sessionsBucket)).Get([]byte(id)) == nil {
			return fmt.Errorf("session %s: %w", id, models.ErrNotFound)
		}
		return tx.Bucket([]byte(metaBucket)).Put([]byte(currentSessionKey), []byte(id))
	})
}

// Messages retrieves a session's messages in insertion order, with timestamps
// normalized.
func (b BoltDB) Messages(_ context.Context, sessionID string) ([]models.Message, error) {
	var messages []models.Message
	err := b.db.View(func(tx *bolt.Tx) error {
		mb := tx.Bucket(messageBucketName(sessionID))
		if mb == nil {
			return fmt.Errorf("session %s: %w", sessionID, models.ErrNotFound)
		}
		return mb.ForEach(func(_, v []byte) error {
			var message models.Message
			if err := json.Unmarshal(v, &message); err != nil {
				return fmt.Errorf("failed to unmarshal message: %w", err)
			}
			message.CreatedAt = models.NormalizeTime(message.CreatedAt)
			messages = append(messages, message)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// AddMessage appends a message to a session and returns its stored ID. The ID combines
// a sequence number with the message's original ID so bucket iteration preserves
// insertion order; callers must use the returned ID for later replace or remove calls.
func (b BoltDB) AddMessage(_ context.Context, sessionID string, message models.Message) (string, error) {
	var newID string
	err := b.db.Update(func(tx *bolt.Tx) error {
		mb := tx.Bucket(messageBucketName(sessionID))
		if mb == nil {
			return fmt.Errorf("session %s: %w", sessionID, models.ErrNotFound)
		}

		seq, err := mb.NextSequence()
		if err != nil {
			return fmt.Errorf("failed to get next sequence: %w", err)
		}
		newID = fmt.Sprintf("%010d-%s", seq, message.ID)
		message.ID = newID
		message.CreatedAt = models.NormalizeTime(message.CreatedAt)

		v, err := json.Marshal(message)
		if err != nil {
			return fmt.Errorf("failed to marshal message: %w", err)
		}
		if err := mb.Put([]byte(newID), v); err != nil {
			return err
		}

		return touchSession(tx, sessionID)
	})

	return newID, err
}

// ReplaceMessage overwrites an existing message, matched by ID.
func (b BoltDB) ReplaceMessage(_ context.Context, sessionID string, message models.Message) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		mb := tx.Bucket(messageBucketName(sessionID))
		if mb == nil {
			return fmt.Errorf("session %s: %w", sessionID, models.ErrNotFound)
		}
		if mb.Get([]byte(message.ID)) == nil {
			return fmt.Errorf("message %s: %w", message.ID, models.ErrNotFound)
		}

		message.CreatedAt = models.NormalizeTime(message.CreatedAt)
		v, err := json.Marshal(message)
		if err != nil {
			return fmt.Errorf("failed to marshal message: %w", err)
		}
		if err := mb.Put([]byte(message.ID), v); err != nil {
			return err
		}

		return touchSession(tx, sessionID)
	})
}

// RemoveMessage deletes a message from a session.
func (b BoltDB) RemoveMessage(_ context.Context, sessionID, messageID string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		mb := tx.Bucket(messageBucketName(sessionID))
		if mb == nil {
			return fmt.Errorf("session %s: %w", sessionID, models.ErrNotFound)
		}
		if mb.Get([]byte(messageID)) == nil {
			return fmt.Errorf("message %s: %w", messageID, models.ErrNotFound)
		}
		if err := mb.Delete([]byte(messageID)); err != nil {
			return err
		}
		return touchSession(tx, sessionID)
	})
}

func getSession(tx *bolt.Tx, id string) (models.ChatSession, error) {
	v := tx.Bucket([]byte(sessionsBucket)).Get([]byte(id))
	if v == nil {
		return models.ChatSession{}, fmt.Errorf("session %s: %w", id, models.ErrNotFound)
	}
	var session models.ChatSession
	if err := json.Unmarshal(v, &session); err != nil {
		return models.ChatSession{}, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return session, nil
}

func putSession(tx *bolt.Tx, session models.ChatSession) error {
	v, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	return tx.Bucket([]byte(sessionsBucket)).Put([]byte(session.ID), v)
}

func touchSession(tx *bolt.Tx, id string) error {
	session, err := getSession(tx, id)
	if err != nil {
		return err
	}
	session.UpdatedAt = time.Now()
	return putSession(tx, session)
}
