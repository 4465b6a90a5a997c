package tui

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/taskhub/internal/api"
)

type registerModel struct {
	ctx    context.Context
	deps   deps
	width  int
	height int

	form *huh.Form
	reg  *api.Registration
	busy bool
}

func newRegisterModel(ctx context.Context, d deps) registerModel {
	m := registerModel{ctx: ctx, deps: d}
	m.buildForm(api.Registration{})
	return m
}

func (m *registerModel) setSize(w, h int) {
	m.width = w
	m.height = h
}

func (m *registerModel) buildForm(prev api.Registration) {
	reg := prev
	reg.Password = ""
	m.reg = &reg
	confirm := ""
	r := m.reg

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Username").Value(&r.Username).Validate(required("username")),
			huh.NewInput().Title("Email").Value(&r.Email).Validate(validEmail),
			huh.NewInput().Title("Phone").Description("optional").Value(&r.Phone),
			huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(&r.Password).Validate(required("password")),
			huh.NewInput().Title("Confirm password").EchoMode(huh.EchoModePassword).Value(&confirm).
				Validate(func(s string) error {
					if s != r.Password {
						return errors.New("passwords do not match")
					}
					return nil
				}),
		),
	).WithShowHelp(false).WithShowErrors(true)
}

func validEmail(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("email is required")
	}
	if _, err := mail.ParseAddress(s); err != nil {
		return errors.New("not a valid email address")
	}
	return nil
}

func (m registerModel) init() tea.Cmd {
	return m.form.Init()
}

func (m registerModel) capturing() bool {
	return !m.busy
}

func (m registerModel) bindings() []key.Binding {
	return []key.Binding{labeled(keys.Back, "back to login")}
}

func (m registerModel) update(msg tea.Msg) (registerModel, tea.Cmd) {
	switch msg := msg.(type) {
	case failMsg:
		m.busy = false
		m.buildForm(*m.reg)
		return m, m.form.Init()

	case tea.KeyMsg:
		if m.busy {
			return m, nil
		}
		if key.Matches(msg, keys.Back) {
			return m, navigate(screenLogin)
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
		return m, register(m.ctx, m.deps, *m.reg)
	}
	return m, cmd
}

func register(ctx context.Context, d deps, reg api.Registration) tea.Cmd {
	reg.Username = strings.TrimSpace(reg.Username)
	reg.Email = strings.TrimSpace(reg.Email)
	return func() tea.Msg {
		if _, err := d.client.Register(ctx, reg); err != nil {
			return failMsg{action: "create account", err: err}
		}
		return registeredMsg{username: reg.Username}
	}
}

func (m registerModel) view() string {
	w := min(m.width-4, 60)
	title := titleStyle.Render("Create an account")

	body := m.form.View()
	if m.busy {
		body = mutedStyle.Render("Creating account…")
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		title, "", body, "", hintLine(m.bindings()),
	)
	return activePanelStyle.Width(w).Render(content)
}
