package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/taskhub/internal/api"
	"github.com/sadopc/taskhub/internal/logging"
)

type loginModel struct {
	ctx    context.Context
	deps   deps
	width  int
	height int

	form     *huh.Form
	username *string
	password *string
	busy     bool
}

func newLoginModel(ctx context.Context, d deps, username string) loginModel {
	m := loginModel{ctx: ctx, deps: d}
	m.buildForm(username)
	return m
}

func (m *loginModel) setSize(w, h int) {
	m.width = w
	m.height = h
}

func (m *loginModel) buildForm(username string) {
	user, pass := username, ""
	m.username, m.password = &user, &pass
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Username").Value(m.username).Validate(required("username")),
			huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(m.password).Validate(required("password")),
		),
	).WithShowHelp(false).WithShowErrors(true)
}

func (m loginModel) init() tea.Cmd {
	return m.form.Init()
}

func (m loginModel) capturing() bool {
	return !m.busy
}

func (m loginModel) bindings() []key.Binding {
	return []key.Binding{keys.Register}
}

func (m loginModel) update(msg tea.Msg) (loginModel, tea.Cmd) {
	switch msg := msg.(type) {
	case failMsg:
		m.busy = false
		m.buildForm(*m.username)
		return m, m.form.Init()

	case tea.KeyMsg:
		if m.busy {
			return m, nil
		}
		if key.Matches(msg, keys.Register) {
			return m, navigate(screenRegister)
		}
	}

	if m.busy {
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}
	if m.form.State == huh.StateCompleted {
		m.busy = true
		return m, login(m.ctx, m.deps, *m.username, *m.password)
	}
	return m, cmd
}

// login exchanges credentials for tokens, stores them and caches the profile.
func login(ctx context.Context, d deps, username, password string) tea.Cmd {
	return func() tea.Msg {
		tokens, err := d.client.Login(ctx, api.Credentials{Username: username, Password: password})
		if err != nil {
			return failMsg{action: "log in", err: err}
		}
		if err := d.session.SetCredential(tokens.AccessToken(), tokens.Refresh); err != nil {
			return failMsg{action: "save session", err: err}
		}

		me, err := d.client.Me(ctx)
		if err != nil {
			if cerr := d.session.Clear(); cerr != nil {
				logging.Logger.WithError(cerr).Warn("SESSION_CLEAR_FAILED")
			}
			return failMsg{action: "load profile", err: err}
		}
		cached := profileFrom(me)
		if err := d.store.SaveProfile(cached); err != nil {
			logging.Logger.WithError(err).Warn("PROFILE_CACHE_FAILED")
		}
		logging.Logger.WithField("user", cached.Username).Info("USER_LOGGED_IN")
		return loginDoneMsg{profile: cached}
	}
}

func (m loginModel) view() string {
	w := min(m.width-4, 60)
	title := titleStyle.Render("Log in to TaskHub")
	sub := mutedStyle.Render(m.deps.client.BaseURL())

	body := m.form.View()
	if m.busy {
		body = mutedStyle.Render("Signing in…")
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		title, sub, "", body, "", hintLine(m.bindings()),
	)
	return activePanelStyle.Width(w).Render(content)
}
