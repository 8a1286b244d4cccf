// Package newsletter implements the double-opt-in subscription flow: a
// SQLite-backed subscriber store, hashed confirmation tokens and signed
// one-click unsubscribe links.
package newsletter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Subscription statuses.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
)

// Subscriber is one row of the subscribers table.
type Subscriber struct {
	ID                 int64
	Email              string
	Status             string
	ConfirmationToken  string // sha256 hex of the raw token, empty once confirmed
	ConfirmationSentAt time.Time
}

// Store persists subscribers in SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// OpenStore opens (or creates) the subscriber database.
// Use ":memory:" for an in-memory database, or a file path for persistent storage.
func OpenStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS subscribers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT NOT NULL UNIQUE,
		status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'confirmed')),
		confirmation_token TEXT,
		confirmation_sent_at INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_subscribers_token ON subscribers(confirmation_token);
	CREATE INDEX IF NOT EXISTS idx_subscribers_status ON subscribers(status);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// InsertPending tries to create a new pending subscriber. It reports whether
// a row was inserted; false means the email already exists.
func (s *Store) InsertPending(ctx context.Context, email, tokenHash string, sentAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO subscribers (email, status, confirmation_token, confirmation_sent_at) VALUES (?, ?, ?, ?) ON CONFLICT(email) DO NOTHING",
		email, StatusPending, tokenHash, sentAt.UnixMilli(),
	)
	if err != nil {
		return false, fmt.Errorf("insert subscriber: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// GetByEmail returns the subscriber for an email, or sql.ErrNoRows.
func (s *Store) GetByEmail(ctx context.Context, email string) (*Subscriber, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT id, email, status, confirmation_token, confirmation_sent_at FROM subscribers WHERE email = ?",
		email,
	)
	return scanSubscriber(row)
}

// GetByTokenHash looks up a subscriber by confirmation token hash.
func (s *Store) GetByTokenHash(ctx context.Context, tokenHash string) (*Subscriber, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT id, email, status, confirmation_token, confirmation_sent_at FROM subscribers WHERE confirmation_token = ?",
		tokenHash,
	)
	return scanSubscriber(row)
}

// RefreshToken stores a new confirmation token and send time for a pending
// subscriber.
func (s *Store) RefreshToken(ctx context.Context, id int64, tokenHash string, sentAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"UPDATE subscribers SET confirmation_token = ?, confirmation_sent_at = ? WHERE id = ? AND status = ?",
		tokenHash, sentAt.UnixMilli(), id, StatusPending,
	)
	if err != nil {
		return fmt.Errorf("refresh token: %w", err)
	}
	return nil
}

// Confirm marks a pending subscriber as confirmed and clears the token. It
// reports whether a row changed; false means the subscriber was not pending.
func (s *Store) Confirm(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE subscribers SET status = ?, confirmation_token = NULL WHERE id = ? AND status = ?",
		StatusConfirmed, id, StatusPending,
	)
	if err != nil {
		return false, fmt.Errorf("confirm subscriber: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// DeleteByEmail removes a subscriber. Deleting an unknown email is not an
// error.
func (s *Store) DeleteByEmail(ctx context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM subscribers WHERE email = ?", email); err != nil {
		return fmt.Errorf("delete subscriber: %w", err)
	}
	return nil
}

// DeleteStalePending removes pending subscribers whose confirmation email was
// sent before the cutoff. It returns the number of rows removed.
func (s *Store) DeleteStalePending(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM subscribers WHERE status = ? AND confirmation_sent_at < ?",
		StatusPending, cutoff.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("delete stale pending: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// ConfirmedEmails lists all confirmed subscriber addresses, ordered by id.
func (s *Store) ConfirmedEmails(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT email FROM subscribers WHERE status = ? ORDER BY id",
		StatusConfirmed,
	)
	if err != nil {
		return nil, fmt.Errorf("query confirmed subscribers: %w", err)
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		emails = append(emails, email)
	}
	return emails, rows.Err()
}

func scanSubscriber(row *sql.Row) (*Subscriber, error) {
	var (
		sub    Subscriber
		token  sql.NullString
		sentAt sql.NullInt64
	)
	if err := row.Scan(&sub.ID, &sub.Email, &sub.Status, &token, &sentAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan subscriber: %w", err)
	}
	sub.ConfirmationToken = token.String
	if sentAt.Valid {
		sub.ConfirmationSentAt = time.UnixMilli(sentAt.Int64)
	}
	return &sub, nil
}
