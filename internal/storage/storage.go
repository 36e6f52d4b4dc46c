// Package storage provides persistent data storage for the Foot-Perf
// services. It uses BoltDB as the underlying storage engine to store user
// accounts and per-user prediction history.
//
// The package provides thread-safe operations with automatic bucket
// management and prefix-scanned history queries.
package storage

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"go.etcd.io/bbolt"
)

const (
	usersBucket   = "users"       // user records keyed by id
	emailsBucket  = "user_emails" // email -> user id index
	historyBucket = "history"     // prediction history keyed by subject_unixnano
)

var (
	// ErrEmailTaken is returned when registering an email that already has
	// an account.
	ErrEmailTaken = errors.New("user already exists with this email")
	// ErrNotFound is returned when a user lookup misses.
	ErrNotFound = errors.New("user not found")
)

// User is one stored account. PasswordHash is empty for accounts created
// through an OAuth provider.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash,omitempty"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	AuthProvider string    `json:"auth_provider"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	IsActive     bool      `json:"is_active"`
}

// Public returns the transport representation of a user, without the
// password hash.
func (u *User) Public() map[string]any {
	return map[string]any{
		"id":            u.ID,
		"email":         u.Email,
		"first_name":    u.FirstName,
		"last_name":     u.LastName,
		"auth_provider": u.AuthProvider,
		"created_at":    u.CreatedAt.Format(time.RFC3339),
		"is_active":     u.IsActive,
	}
}

// HistoryRecord is one stored single-prediction outcome.
type HistoryRecord struct {
	Subject    string         `json:"user_id"`
	Input      map[string]any `json:"input_data"`
	Prediction float64        `json:"prediction_result"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Store provides persistent storage backed by BoltDB.
type Store struct {
	db *bbolt.DB
}

// New opens (or creates) the database under dataPath and ensures all
// buckets exist.
func New(dataPath string) (*Store, error) {
	dbPath := filepath.Join(dataPath, "footperf-data.db")

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{usersBucket, emailsBucket, historyBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create %s bucket: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database connection gracefully.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// CreateUser stores a new user and indexes its email. Fails with
// ErrEmailTaken when the email is already registered.
func (s *Store) CreateUser(u *User) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		emails := tx.Bucket([]byte(emailsBucket))
		if emails.Get([]byte(u.Email)) != nil {
			return ErrEmailTaken
		}

		data, err := json.Marshal(u)
		if err != nil {
			return fmt.Errorf("marshal user: %w", err)
		}

		if err := tx.Bucket([]byte(usersBucket)).Put([]byte(u.ID), data); err != nil {
			return err
		}
		return emails.Put([]byte(u.Email), []byte(u.ID))
	})
}

// UpdateUser rewrites an existing user record, refreshing UpdatedAt.
func (s *Store) UpdateUser(u *User) error {
	u.UpdatedAt = time.Now().UTC()
	return s.db.Update(func(tx *bbolt.Tx) error {
		users := tx.Bucket([]byte(usersBucket))
		if users.Get([]byte(u.ID)) == nil {
			return ErrNotFound
		}
		data, err := json.Marshal(u)
		if err != nil {
			return fmt.Errorf("marshal user: %w", err)
		}
		return users.Put([]byte(u.ID), data)
	})
}

// GetUserByID fetches a user by primary key.
func (s *Store) GetUserByID(id string) (*User, error) {
	var u *User
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(usersBucket)).Get([]byte(id))
		if data == nil {
			return ErrNotFound
		}
		u = &User{}
		return json.Unmarshal(data, u)
	})
	return u, err
}

// GetUserByEmail fetches a user through the email index.
func (s *Store) GetUserByEmail(email string) (*User, error) {
	var u *User
	err := s.db.View(func(tx *bbolt.Tx) error {
		id := tx.Bucket([]byte(emailsBucket)).Get([]byte(email))
		if id == nil {
			return ErrNotFound
		}
		data := tx.Bucket([]byte(usersBucket)).Get(id)
		if data == nil {
			return ErrNotFound
		}
		u = &User{}
		return json.Unmarshal(data, u)
	})
	return u, err
}

// RecordPrediction appends a prediction outcome to the caller's history.
// The key format subject_unixnano keeps one subject's records contiguous
// and time-ordered for prefix scans.
func (s *Store) RecordPrediction(rec HistoryRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal history record: %w", err)
		}
		key := fmt.Sprintf("%s_%d", rec.Subject, rec.CreatedAt.UnixNano())
		return tx.Bucket([]byte(historyBucket)).Put([]byte(key), data)
	})
}

// GetHistory returns up to limit history records for a subject, newest
// first.
func (s *Store) GetHistory(subject string, limit int) ([]HistoryRecord, error) {
	var records []HistoryRecord

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(historyBucket)).Cursor()
		prefix := []byte(subject + "_")

		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var rec HistoryRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				continue // skip malformed records
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Newest first.
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}
