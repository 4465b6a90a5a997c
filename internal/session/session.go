// Package session holds the credential of the logged-in user for the whole
// process and mirrors it to durable storage.
package session

import (
	"errors"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/sadopc/taskhub/internal/logging"
	"github.com/sadopc/taskhub/internal/store"
)

// Persister is the durable side of the holder. *store.Store satisfies it.
type Persister interface {
	SaveSession(access, refresh string) error
	LoadSession() (access, refresh string, err error)
	ClearSession() error
}

// Holder is the single source of truth for "who is logged in". It is safe
// for concurrent use; API calls read the token from background commands.
type Holder struct {
	mu      sync.RWMutex
	access  string
	refresh string
	p       Persister
}

func New(p Persister) *Holder {
	return &Holder{p: p}
}

// Restore loads a previously saved credential. It reports whether one was found.
func (h *Holder) Restore() bool {
	if h.p == nil {
		return false
	}
	access, refresh, err := h.p.LoadSession()
	if err != nil {
		if !errors.Is(err, store.ErrNoSession) {
			logging.Logger.WithError(err).Warn("SESSION_RESTORE_FAILED")
		}
		return false
	}

	h.mu.Lock()
	h.access, h.refresh = access, refresh
	h.mu.Unlock()
	return access != ""
}

// SetCredential stores a fresh credential after login.
func (h *Holder) SetCredential(access, refresh string) error {
	access = strings.TrimSpace(access)
	if access == "" {
		return errors.New("empty access token")
	}

	h.mu.Lock()
	h.access, h.refresh = access, refresh
	h.mu.Unlock()

	if h.p != nil {
		if err := h.p.SaveSession(access, refresh); err != nil {
			return err
		}
	}
	logging.Logger.Info("SESSION_STARTED")
	return nil
}

// Credential returns the access token, if any.
func (h *Holder) Credential() (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.access, h.access != ""
}

func (h *Holder) RefreshToken() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.refresh
}

// Active reports whether someone is logged in.
func (h *Holder) Active() bool {
	_, ok := h.Credential()
	return ok
}

// Clear forgets the credential in memory and on disk. The in-memory copy is
// always dropped, even when the store fails.
func (h *Holder) Clear() error {
	h.mu.Lock()
	h.access, h.refresh = "", ""
	h.mu.Unlock()

	logging.Logger.WithFields(logrus.Fields{"reason": "clear"}).Info("SESSION_CLEARED")
	if h.p == nil {
		return nil
	}
	return h.p.ClearSession()
}
