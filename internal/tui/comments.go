package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/sadopc/taskhub/internal/access"
	"github.com/sadopc/taskhub/internal/api"
	"github.com/sadopc/taskhub/internal/collection"
)

type commentsModel struct {
	sc     scope
	task   uuid.UUID
	width  int
	height int

	items   []api.Comment
	cursor  int
	loading bool

	dlg *dialog
}

func newCommentsModel(sc scope, task uuid.UUID) commentsModel {
	return commentsModel{sc: sc, task: task}
}

func (m *commentsModel) setSize(w, h int) {
	m.width = w
	m.height = h
}

type commentsLoadedMsg struct {
	task  uuid.UUID
	items []api.Comment
}

type commentSavedMsg struct {
	task    uuid.UUID
	comment api.Comment
}

type commentDeletedMsg struct {
	task uuid.UUID
	id   uuid.UUID
}

func (m commentsModel) load() tea.Cmd {
	sc, task := m.sc, m.task
	return func() tea.Msg {
		items, err := sc.deps.client.ListComments(sc.ctx, sc.project.ID, task)
		if err != nil {
			return failMsg{action: "load comments", err: err}
		}
		return commentsLoadedMsg{task: task, items: items}
	}
}

func (m commentsModel) selected() (api.Comment, bool) {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return api.Comment{}, false
	}
	return m.items[m.cursor], true
}

func (m commentsModel) canEdit(c api.Comment) bool {
	return access.CanEditComment(m.sc.perms.Role, c.IsAuthor(m.sc.userID))
}

func (m commentsModel) canDelete() bool {
	return access.CanDeleteComment(m.sc.perms.Role)
}

func (m commentsModel) capturing() bool {
	return m.dlg != nil
}

func (m commentsModel) bindings() []key.Binding {
	var bs []key.Binding
	if m.sc.perms.Collaborate {
		bs = append(bs, labeled(keys.New, "comment"))
	}
	if c, ok := m.selected(); ok {
		if m.canEdit(c) {
			bs = append(bs, keys.Edit)
		}
		if m.canDelete() {
			bs = append(bs, keys.Delete)
		}
	}
	return bs
}

func (m commentsModel) update(msg tea.Msg) (commentsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case commentsLoadedMsg:
		if msg.task != m.task {
			return m, nil
		}
		m.loading = false
		m.items = msg.items
		m.cursor = collection.Clamp(m.cursor, len(m.items))
		return m, nil

	case commentSavedMsg:
		if msg.task != m.task {
			return m, nil
		}
		m.items = collection.Upsert(m.items, msg.comment)
		m.cursor = collection.Index(m.items, msg.comment.ID)
		return m, nil

	case commentDeletedMsg:
		if msg.task != m.task {
			return m, nil
		}
		m.items = collection.Remove(m.items, msg.id)
		m.cursor = collection.Clamp(m.cursor, len(m.items))
		return m, statusCmd("Comment deleted", false)

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
		if m.sc.perms.Collaborate {
			return m.openForm(nil)
		}
	case key.Matches(km, keys.Edit):
		if c, ok := m.selected(); ok && m.canEdit(c) {
			return m.openForm(&c)
		}
	case key.Matches(km, keys.Delete):
		if c, ok := m.selected(); ok && m.canDelete() {
			m.dlg = confirmDialog("Delete Comment", "Delete this comment by "+c.AuthorName()+"?", "Delete",
				func() tea.Cmd { return m.deleteComment(c.ID) })
			return m, m.dlg.init()
		}
	}
	return m, nil
}

func (m commentsModel) openForm(c *api.Comment) (commentsModel, tea.Cmd) {
	body := new(string)
	title := "New Comment"
	var id uuid.UUID
	if c != nil {
		*body = c.Body
		title = "Edit Comment"
		id = c.ID
	}
	m.dlg = newDialog(title, func() tea.Cmd {
		return m.saveComment(id, *body)
	}, huh.NewGroup(
		huh.NewText().Title("Comment").Lines(5).Value(body).Validate(required("comment")),
	))
	return m, m.dlg.init()
}

func (m commentsModel) saveComment(id uuid.UUID, body string) tea.Cmd {
	sc, task := m.sc, m.task
	body = strings.TrimSpace(body)
	return func() tea.Msg {
		var (
			c   api.Comment
			err error
		)
		if id == uuid.Nil {
			c, err = sc.deps.client.CreateComment(sc.ctx, sc.project.ID, task, body)
			if err != nil {
				return failMsg{action: "add comment", err: err}
			}
		} else {
			c, err = sc.deps.client.EditComment(sc.ctx, sc.project.ID, task, id, body)
			if err != nil {
				return failMsg{action: "edit comment", err: err}
			}
		}
		return commentSavedMsg{task: task, comment: c}
	}
}

func (m commentsModel) deleteComment(id uuid.UUID) tea.Cmd {
	sc, task := m.sc, m.task
	return func() tea.Msg {
		if err := sc.deps.client.DeleteComment(sc.ctx, sc.project.ID, task, id); err != nil {
			return failMsg{action: "delete comment", err: err}
		}
		return commentDeletedMsg{task: task, id: id}
	}
}

func (m commentsModel) view() string {
	w := m.width - 4
	if m.dlg != nil {
		return m.dlg.view(w)
	}

	rows := []string{subtitleStyle.Render("Comments"), ""}
	switch {
	case m.loading && len(m.items) == 0:
		rows = append(rows, mutedStyle.Render("Loading comments…"))
	case len(m.items) == 0:
		rows = append(rows, mutedStyle.Render("No comments yet."))
	default:
		body := lipgloss.NewStyle().Width(max(20, w-8)).PaddingLeft(4)
		for i, c := range m.items {
			style := normalItemStyle
			if i == m.cursor {
				style = selectedItemStyle
			}
			meta := relTime(c.CreatedAt)
			if c.EditedAt != nil {
				meta += " (edited)"
			}
			author := c.AuthorName()
			if c.IsAuthor(m.sc.userID) {
				author += " (you)"
			}
			rows = append(rows,
				style.Render(cursorMark(i == m.cursor)+author)+mutedStyle.Render("  "+meta),
				body.Render(c.Body),
			)
		}
	}

	rows = append(rows, "", hintLine(m.bindings()))
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
