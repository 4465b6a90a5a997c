package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SaveSession replaces the stored tokens.
func (s *Store) SaveSession(access, refresh string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.Exec(
		`INSERT INTO session (id, access_token, refresh_token, saved_at) VALUES (1, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET access_token = excluded.access_token,
		 refresh_token = excluded.refresh_token, saved_at = excluded.saved_at`,
		access, refresh, now,
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// LoadSession returns the stored tokens, or ErrNoSession.
func (s *Store) LoadSession() (access, refresh string, err error) {
	err = s.db.QueryRow(`SELECT access_token, refresh_token FROM session WHERE id = 1`).Scan(&access, &refresh)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", ErrNoSession
	}
	if err != nil {
		return "", "", fmt.Errorf("load session: %w", err)
	}
	return access, refresh, nil
}

// ClearSession forgets the tokens and the cached profile that belongs to them.
func (s *Store) ClearSession() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM session`); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM profile`); err != nil {
		return fmt.Errorf("clear profile: %w", err)
	}
	return tx.Commit()
}
