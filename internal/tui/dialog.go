package tui

import (
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// dialog is a modal huh form owned by a screen. submit runs once the form
// completes; esc discards it.
type dialog struct {
	title  string
	form   *huh.Form
	submit func() tea.Cmd
}

func newDialog(title string, submit func() tea.Cmd, groups ...*huh.Group) *dialog {
	form := huh.NewForm(groups...).WithShowHelp(true).WithShowErrors(true)
	return &dialog{title: title, form: form, submit: submit}
}

// confirmDialog asks a yes/no question and runs onYes only on "yes".
func confirmDialog(title, question, affirmative string, onYes func() tea.Cmd) *dialog {
	ok := false
	return newDialog(title, func() tea.Cmd {
		if !ok {
			return nil
		}
		return onYes()
	}, huh.NewGroup(
		huh.NewConfirm().
			Title(question).
			Affirmative(affirmative).
			Negative("Cancel").
			Value(&ok),
	))
}

func (d *dialog) init() tea.Cmd {
	return d.form.Init()
}

// step feeds msg to the form. The returned dialog is nil once it is done.
func (d *dialog) step(msg tea.Msg) (*dialog, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == "esc" {
		return nil, nil
	}

	form, cmd := d.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		d.form = f
	}

	switch d.form.State {
	case huh.StateCompleted:
		return nil, d.submit()
	case huh.StateAborted:
		return nil, nil
	}
	return d, cmd
}

func (d *dialog) view(width int) string {
	content := lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(d.title), "", d.form.View())
	return activePanelStyle.Width(width).Render(content)
}

// --- Validators ---

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return errors.New(field + " is required")
		}
		return nil
	}
}
