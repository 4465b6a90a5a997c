package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/taskhub/internal/api"
	"github.com/sadopc/taskhub/internal/logging"
	"github.com/sadopc/taskhub/internal/store"
)

type profileModel struct {
	ctx    context.Context
	deps   deps
	width  int
	height int

	profile store.CachedProfile
	loading bool

	dlg *dialog
}

func newProfileModel(ctx context.Context, d deps, cached store.CachedProfile) profileModel {
	return profileModel{ctx: ctx, deps: d, profile: cached, loading: true}
}

func (m *profileModel) setSize(w, h int) {
	m.width = w
	m.height = h
}

// load fetches the remote profile and refreshes the local cache.
func (m profileModel) load() tea.Cmd {
	ctx, d := m.ctx, m.deps
	return func() tea.Msg {
		p, err := d.client.GetProfile(ctx)
		if err != nil {
			return failMsg{action: "load profile", err: err}
		}
		return cacheProfile(d, p)
	}
}

func cacheProfile(d deps, p api.Profile) profileSavedMsg {
	cached := profileFrom(p)
	if err := d.store.SaveProfile(cached); err != nil {
		logging.Logger.WithError(err).Warn("PROFILE_CACHE_FAILED")
	}
	return profileSavedMsg{profile: cached}
}

// logout drops the session locally and in the store.
func logout(d deps) tea.Cmd {
	return func() tea.Msg {
		if err := d.session.Clear(); err != nil {
			logging.Logger.WithError(err).Warn("SESSION_CLEAR_FAILED")
		}
		return loggedOutMsg{}
	}
}

func (m profileModel) capturing() bool {
	return m.dlg != nil
}

func (m profileModel) bindings() []key.Binding {
	return []key.Binding{labeled(keys.Edit, "edit profile"), keys.Logout, keys.Refresh, labeled(keys.Back, "projects")}
}

func (m profileModel) update(msg tea.Msg) (profileModel, tea.Cmd) {
	switch msg := msg.(type) {
	case profileSavedMsg:
		m.loading = false
		m.profile = msg.profile
		return m, nil

	case failMsg:
		m.loading = false
		return m, nil
	}

	if m.dlg != nil {
		var cmd tea.Cmd
		m.dlg, cmd = m.dlg.step(msg)
		return m, cmd
	}

	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(km, keys.Edit):
		return m.openForm()
	case key.Matches(km, keys.Logout):
		return m, logout(m.deps)
	case key.Matches(km, keys.Refresh):
		m.loading = true
		return m, m.load()
	case key.Matches(km, keys.Back):
		return m, navigate(screenProjects)
	}
	return m, nil
}

func (m profileModel) openForm() (profileModel, tea.Cmd) {
	upd := &api.ProfileUpdate{
		Username: m.profile.Username,
		Email:    m.profile.Email,
		Phone:    m.profile.Phone,
		Timezone: m.profile.Timezone,
	}
	m.dlg = newDialog("Edit Profile", func() tea.Cmd {
		return m.save(*upd)
	}, huh.NewGroup(
		huh.NewInput().Title("Username").Value(&upd.Username).Validate(required("username")),
		huh.NewInput().Title("Email").Value(&upd.Email).Validate(validEmail),
		huh.NewInput().Title("Phone").Value(&upd.Phone),
		huh.NewInput().Title("Timezone").Placeholder("Europe/Istanbul").Value(&upd.Timezone),
		huh.NewInput().Title("Avatar").Description("optional image file to upload").
			Placeholder("~/avatar.png").Value(&upd.AvatarPath).Validate(optionalFile),
	))
	return m, m.dlg.init()
}

func optionalFile(p string) error {
	if strings.TrimSpace(p) == "" {
		return nil
	}
	return existingFile(p)
}

func (m profileModel) save(upd api.ProfileUpdate) tea.Cmd {
	ctx, d := m.ctx, m.deps
	upd.Username = strings.TrimSpace(upd.Username)
	upd.Email = strings.TrimSpace(upd.Email)
	upd.Phone = strings.TrimSpace(upd.Phone)
	upd.Timezone = strings.TrimSpace(upd.Timezone)
	if upd.AvatarPath != "" {
		upd.AvatarPath = expandPath(upd.AvatarPath)
	}
	return func() tea.Msg {
		p, err := d.client.UpdateProfile(ctx, upd)
		if err != nil {
			return failMsg{action: "update profile", err: err}
		}
		return cacheProfile(d, p)
	}
}

func (m profileModel) view() string {
	w := min(m.width-4, 72)
	if m.dlg != nil {
		return m.dlg.view(w)
	}

	p := m.profile
	field := func(label, value string) string {
		if value == "" {
			value = mutedStyle.Render("not set")
		}
		return mutedStyle.Render(pad(label, 10)) + " " + value
	}

	rows := []string{titleStyle.Render("Profile")}
	if m.loading {
		rows[0] += mutedStyle.Render("  refreshing…")
	}
	rows = append(rows, "",
		field("Username", highlightStyle.Render(p.Username)),
		field("Email", p.Email),
		field("Phone", p.Phone),
		field("Timezone", p.Timezone),
		field("Avatar", p.AvatarURL),
		field("User ID", p.UserID),
	)
	if !p.SavedAt.IsZero() {
		rows = append(rows, "", mutedStyle.Render("cached "+relTime(p.SavedAt)))
	}
	rows = append(rows, "", hintLine(m.bindings()))
	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
