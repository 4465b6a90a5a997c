package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

func (s *Store) SaveProfile(p CachedProfile) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.Exec(
		`INSERT INTO profile (id, user_id, username, email, phone, timezone, avatar_url, saved_at)
		 VALUES (1, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET user_id = excluded.user_id, username = excluded.username,
		 email = excluded.email, phone = excluded.phone, timezone = excluded.timezone,
		 avatar_url = excluded.avatar_url, saved_at = excluded.saved_at`,
		p.UserID, p.Username, p.Email, p.Phone, p.Timezone, p.AvatarURL, now,
	)
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// LoadProfile returns the cached snapshot, or nil if none is stored.
func (s *Store) LoadProfile() (*CachedProfile, error) {
	p := &CachedProfile{}
	var savedAt string
	err := s.db.QueryRow(
		`SELECT user_id, username, email, phone, timezone, avatar_url, saved_at FROM profile WHERE id = 1`,
	).Scan(&p.UserID, &p.Username, &p.Email, &p.Phone, &p.Timezone, &p.AvatarURL, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	p.SavedAt, _ = time.Parse(time.RFC3339, savedAt)
	return p, nil
}
