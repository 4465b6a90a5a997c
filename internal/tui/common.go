package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"

	"github.com/sadopc/taskhub/internal/access"
	"github.com/sadopc/taskhub/internal/api"
	"github.com/sadopc/taskhub/internal/session"
	"github.com/sadopc/taskhub/internal/store"
)

// screen is the top-level view the App is showing.
type screen int

const (
	screenLogin screen = iota
	screenRegister
	screenProjects
	screenProject
	screenTask
	screenProfile
)

// deps are the long-lived collaborators every screen talks to.
type deps struct {
	client  *api.Client
	session *session.Holder
	store   *store.Store
}

// scope is what a screen inside a project knows: the project, the caller's
// resolved permissions and the context that dies when the screen is left.
type scope struct {
	ctx     context.Context
	deps    deps
	project api.Project
	perms   access.Permissions
	userID  string
}

// --- Messages ---

type statusMsg struct {
	text    string
	isError bool
}

// failMsg reports a failed API action. The App turns it into a notice, or
// into a logout when the session was rejected.
type failMsg struct {
	action string
	err    error
}

type navigateMsg struct {
	to screen
}

type openProjectMsg struct {
	project api.Project
}

type openTaskMsg struct {
	task api.Task
}

type loginDoneMsg struct {
	profile store.CachedProfile
}

type registeredMsg struct {
	username string
}

type loggedOutMsg struct{}

type profileSavedMsg struct {
	profile store.CachedProfile
}

type exportDoneMsg struct {
	path  string
	count int
}

// --- Helpers ---

func statusCmd(text string, isError bool) tea.Cmd {
	return func() tea.Msg {
		return statusMsg{text: text, isError: isError}
	}
}

func navigate(to screen) tea.Cmd {
	return func() tea.Msg { return navigateMsg{to: to} }
}

// moveCursor applies up/down keys to a list cursor.
func moveCursor(msg tea.KeyMsg, cursor, n int) (int, bool) {
	switch {
	case key.Matches(msg, keys.Up):
		if cursor > 0 {
			cursor--
		}
		return cursor, true
	case key.Matches(msg, keys.Down):
		if cursor < n-1 {
			cursor++
		}
		return cursor, true
	}
	return cursor, false
}

// hintLine renders "n: new  d: delete" for the given bindings.
func hintLine(bs []key.Binding) string {
	parts := make([]string, 0, len(bs))
	for _, b := range bs {
		if !b.Enabled() {
			continue
		}
		h := b.Help()
		parts = append(parts, h.Key+": "+h.Desc)
	}
	if len(parts) == 0 {
		return ""
	}
	return mutedStyle.Render("  " + strings.Join(parts, "  "))
}

func truncate(s string, w int) string {
	if w <= 1 {
		return s
	}
	return runewidth.Truncate(s, w, "…")
}

// pad truncates s and right-pads it to w cells.
func pad(s string, w int) string {
	return runewidth.FillRight(truncate(s, w), w)
}

func relTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return humanize.Time(t)
}

func cursorMark(selected bool) string {
	if selected {
		return "> "
	}
	return "  "
}

func profileFrom(p api.Profile) store.CachedProfile {
	return store.CachedProfile{
		UserID:    string(p.ID),
		Username:  p.Username,
		Email:     p.Email,
		Phone:     p.Phone,
		Timezone:  p.Timezone,
		AvatarURL: p.AvatarURL,
		SavedAt:   time.Now().UTC(),
	}
}

func countLabel(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
