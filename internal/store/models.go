package store

import "time"

// CachedProfile is the last profile snapshot fetched for the logged-in user.
type CachedProfile struct {
	UserID    string
	Username  string
	Email     string
	Phone     string
	Timezone  string
	AvatarURL string
	SavedAt   time.Time
}

type Setting struct {
	Key   string
	Value string
}
