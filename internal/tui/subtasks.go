package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/google/uuid"

	"github.com/sadopc/taskhub/internal/api"
	"github.com/sadopc/taskhub/internal/collection"
)

type subtasksModel struct {
	sc     scope
	task   uuid.UUID
	width  int
	height int

	items   []api.Subtask
	cursor  int
	loading bool

	dlg *dialog
}

func newSubtasksModel(sc scope, task uuid.UUID) subtasksModel {
	return subtasksModel{sc: sc, task: task, loading: true}
}

func (m *subtasksModel) setSize(w, h int) {
	m.width = w
	m.height = h
}

func (m *subtasksModel) setItems(items []api.Subtask) {
	m.items = items
	m.cursor = collection.Clamp(m.cursor, len(m.items))
}

type subtaskSavedMsg struct {
	task    uuid.UUID
	subtask api.Subtask
}

type subtaskDeletedMsg struct {
	task uuid.UUID
	id   uuid.UUID
}

func (m subtasksModel) selected() (api.Subtask, bool) {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return api.Subtask{}, false
	}
	return m.items[m.cursor], true
}

func (m subtasksModel) capturing() bool {
	return m.dlg != nil
}

func (m subtasksModel) bindings() []key.Binding {
	var bs []key.Binding
	if m.sc.perms.Manage {
		bs = append(bs, labeled(keys.New, "add subtask"))
	}
	if _, ok := m.selected(); ok {
		if m.sc.perms.Collaborate {
			bs = append(bs, labeled(keys.Toggle, "done"))
		}
		if m.sc.perms.Manage {
			bs = append(bs, keys.Delete)
		}
	}
	return bs
}

func (m subtasksModel) update(msg tea.Msg) (subtasksModel, tea.Cmd) {
	switch msg := msg.(type) {
	case subtaskSavedMsg:
		if msg.task != m.task {
			return m, nil
		}
		m.items = collection.Upsert(m.items, msg.subtask)
		return m, nil

	case subtaskDeletedMsg:
		if msg.task != m.task {
			return m, nil
		}
		m.items = collection.Remove(m.items, msg.id)
		m.cursor = collection.Clamp(m.cursor, len(m.items))
		return m, statusCmd("Subtask deleted", false)

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
	if c, moved := moveCursor(km, m.cursor, len(m.items)); moved {
		m.cursor = c
		return m, nil
	}

	switch {
	case key.Matches(km, keys.New):
		if m.sc.perms.Manage {
			title := new(string)
			m.dlg = newDialog("New Subtask", func() tea.Cmd {
				return m.createSubtask(*title)
			}, huh.NewGroup(
				huh.NewInput().Title("Title").Value(title).Validate(required("title")),
			))
			return m, m.dlg.init()
		}
	case key.Matches(km, keys.Toggle):
		if s, ok := m.selected(); ok && m.sc.perms.Collaborate {
			return m, m.setDone(s.ID, !s.IsDone)
		}
	case key.Matches(km, keys.Delete):
		if s, ok := m.selected(); ok && m.sc.perms.Manage {
			m.dlg = confirmDialog("Delete Subtask", fmt.Sprintf("Delete %q?", s.Title), "Delete",
				func() tea.Cmd { return m.deleteSubtask(s.ID) })
			return m, m.dlg.init()
		}
	}
	return m, nil
}

func (m subtasksModel) createSubtask(title string) tea.Cmd {
	sc, task := m.sc, m.task
	title = strings.TrimSpace(title)
	return func() tea.Msg {
		s, err := sc.deps.client.CreateSubtask(sc.ctx, sc.project.ID, task, title)
		if err != nil {
			return failMsg{action: "add subtask", err: err}
		}
		return subtaskSavedMsg{task: task, subtask: s}
	}
}

func (m subtasksModel) setDone(id uuid.UUID, done bool) tea.Cmd {
	sc, task := m.sc, m.task
	return func() tea.Msg {
		s, err := sc.deps.client.SetSubtaskDone(sc.ctx, sc.project.ID, task, id, done)
		if err != nil {
			return failMsg{action: "update subtask", err: err}
		}
		return subtaskSavedMsg{task: task, subtask: s}
	}
}

func (m subtasksModel) deleteSubtask(id uuid.UUID) tea.Cmd {
	sc, task := m.sc, m.task
	return func() tea.Msg {
		if err := sc.deps.client.DeleteSubtask(sc.ctx, sc.project.ID, task, id); err != nil {
			return failMsg{action: "delete subtask", err: err}
		}
		return subtaskDeletedMsg{task: task, id: id}
	}
}

func (m subtasksModel) view() string {
	w := m.width - 4
	if m.dlg != nil {
		return m.dlg.view(w)
	}

	done := 0
	for _, s := range m.items {
		if s.IsDone {
			done++
		}
	}
	rows := []string{subtitleStyle.Render(fmt.Sprintf("Subtasks %d/%d", done, len(m.items))), ""}
	switch {
	case m.loading && len(m.items) == 0:
		rows = append(rows, mutedStyle.Render("Loading subtasks…"))
	case len(m.items) == 0:
		rows = append(rows, mutedStyle.Render("No subtasks."))
	default:
		for i, s := range m.items {
			style := normalItemStyle
			if i == m.cursor {
				style = selectedItemStyle
			}
			box := mutedStyle.Render("[ ]")
			if s.IsDone {
				box = successStyle.Render("[x]")
			}
			rows = append(rows, style.Render(cursorMark(i == m.cursor))+box+" "+style.Render(truncate(s.Title, w-10)))
		}
	}

	rows = append(rows, "", hintLine(m.bindings()))
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
