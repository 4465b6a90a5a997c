package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sync/errgroup"

	"github.com/sadopc/taskhub/internal/api"
)

type taskTab int

const (
	tabSubtasks taskTab = iota
	tabComments
	tabAttachments
)

var taskTabNames = []string{"Subtasks", "Comments", "Attachments"}

// taskModel shows one task. It inherits the project's scope, so the role
// resolved for the project gates every action here.
type taskModel struct {
	sc     scope
	task   api.Task
	width  int
	height int

	tab     taskTab
	loading bool
	visited [3]bool

	subtasks    subtasksModel
	comments    commentsModel
	attachments attachmentsModel
}

func newTaskModel(sc scope, t api.Task) taskModel {
	m := taskModel{
		sc:          sc,
		task:        t,
		subtasks:    newSubtasksModel(sc, t.ID),
		comments:    newCommentsModel(sc, t.ID),
		attachments: newAttachmentsModel(sc, t.ID),
	}
	m.subtasks.items = t.Subtasks
	m.loading = true
	m.visited[tabSubtasks] = true
	return m
}

func (m *taskModel) setSize(w, h int) {
	m.width = w
	m.height = h
	inner := max(4, h-8)
	m.subtasks.setSize(w, inner)
	m.comments.setSize(w, inner)
	m.attachments.setSize(w, inner)
}

type taskLoadedMsg struct {
	task     api.Task
	subtasks []api.Subtask
}

func (m taskModel) load() tea.Cmd {
	sc, id := m.sc, m.task.ID
	return func() tea.Msg {
		var msg taskLoadedMsg
		g, gctx := errgroup.WithContext(sc.ctx)
		g.Go(func() error {
			var err error
			msg.task, err = sc.deps.client.GetTask(gctx, sc.project.ID, id)
			return err
		})
		g.Go(func() error {
			var err error
			msg.subtasks, err = sc.deps.client.ListSubtasks(gctx, sc.project.ID, id)
			return err
		})
		if err := g.Wait(); err != nil {
			return failMsg{action: "load task", err: err}
		}
		return msg
	}
}

func (m taskModel) capturing() bool {
	switch m.tab {
	case tabSubtasks:
		return m.subtasks.capturing()
	case tabComments:
		return m.comments.capturing()
	case tabAttachments:
		return m.attachments.capturing()
	}
	return false
}

func (m taskModel) bindings() []key.Binding {
	var bs []key.Binding
	switch m.tab {
	case tabSubtasks:
		bs = m.subtasks.bindings()
	case tabComments:
		bs = m.comments.bindings()
	case tabAttachments:
		bs = m.attachments.bindings()
	}
	return append(bs, keys.Tab, labeled(keys.Back, "tasks"))
}

func (m taskModel) update(msg tea.Msg) (taskModel, tea.Cmd) {
	switch msg := msg.(type) {
	case taskLoadedMsg:
		if msg.task.ID != m.task.ID {
			return m, nil
		}
		m.task = msg.task
		m.loading = false
		m.subtasks.loading = false
		m.subtasks.setItems(msg.subtasks)
		return m, nil

	case failMsg:
		m.loading = false

	case tea.KeyMsg:
		if !m.capturing() {
			switch {
			case key.Matches(msg, keys.Tab, keys.Right):
				return m.switchTab((m.tab + 1) % 3)
			case key.Matches(msg, keys.BackTab, keys.Left):
				return m.switchTab((m.tab + 2) % 3)
			case key.Matches(msg, keys.Back):
				return m, navigate(screenProject)
			case key.Matches(msg, keys.Refresh):
				return m, m.reload()
			}
		}
		var cmd tea.Cmd
		switch m.tab {
		case tabSubtasks:
			m.subtasks, cmd = m.subtasks.update(msg)
		case tabComments:
			m.comments, cmd = m.comments.update(msg)
		case tabAttachments:
			m.attachments, cmd = m.attachments.update(msg)
		}
		return m, cmd
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.subtasks, cmd = m.subtasks.update(msg)
	cmds = append(cmds, cmd)
	m.comments, cmd = m.comments.update(msg)
	cmds = append(cmds, cmd)
	m.attachments, cmd = m.attachments.update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m taskModel) switchTab(t taskTab) (taskModel, tea.Cmd) {
	m.tab = t
	if m.visited[t] {
		return m, nil
	}
	m.visited[t] = true
	switch t {
	case tabComments:
		m.comments.loading = true
		return m, m.comments.load()
	case tabAttachments:
		m.attachments.loading = true
		return m, m.attachments.load()
	}
	return m, nil
}

func (m taskModel) reload() tea.Cmd {
	cmds := []tea.Cmd{m.load()}
	if m.visited[tabComments] {
		cmds = append(cmds, m.comments.load())
	}
	if m.visited[tabAttachments] {
		cmds = append(cmds, m.attachments.load())
	}
	return tea.Batch(cmds...)
}

func (m taskModel) renderHeader(w int) string {
	t := m.task
	title := titleStyle.Render(t.Title)
	meta := statusStyle(t.Status).Render(t.Status.Label()) + "  " +
		priorityStyle(t.Priority).Render(t.Priority.Label())
	if t.DueDate != nil {
		due := "due " + t.DueDate.String()
		if t.Overdue(time.Now()) {
			meta += "  " + errorStyle.Render(due+" (overdue)")
		} else {
			meta += "  " + mutedStyle.Render(due)
		}
	}

	rows := []string{title, meta}
	if names := t.AssigneeNames(); len(names) > 0 {
		rows = append(rows, mutedStyle.Render("assigned to "+strings.Join(names, ", ")))
	}
	if len(t.Labels) > 0 {
		var chips []string
		for _, l := range t.Labels {
			chips = append(chips, swatch(l.ColorHex)+" "+l.Name)
		}
		rows = append(rows, strings.Join(chips, "  "))
	}
	if t.Description != "" {
		rows = append(rows, "", lipgloss.NewStyle().Width(w-4).Render(t.Description))
	}
	if t.Creator != nil {
		rows = append(rows, mutedStyle.Render(fmt.Sprintf("created by %s %s", t.Creator.Username, relTime(t.CreatedAt))))
	}
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (m taskModel) renderTabs() string {
	var tabs []string
	for i, name := range taskTabNames {
		if taskTab(i) == m.tab {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m taskModel) view() string {
	w := m.width - 4
	var content string
	switch m.tab {
	case tabSubtasks:
		content = m.subtasks.view()
	case tabComments:
		content = m.comments.view()
	case tabAttachments:
		content = m.attachments.view()
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(w), " "+m.renderTabs(), content)
}
