package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/sadopc/taskhub/internal/api"
	"github.com/sadopc/taskhub/internal/collection"
)

type attachmentsModel struct {
	sc     scope
	task   uuid.UUID
	width  int
	height int

	items   []api.Attachment
	cursor  int
	loading bool

	dlg *dialog
}

func newAttachmentsModel(sc scope, task uuid.UUID) attachmentsModel {
	return attachmentsModel{sc: sc, task: task}
}

func (m *attachmentsModel) setSize(w, h int) {
	m.width = w
	m.height = h
}

type attachmentsLoadedMsg struct {
	task  uuid.UUID
	items []api.Attachment
}

type attachmentSavedMsg struct {
	task       uuid.UUID
	attachment api.Attachment
}

type attachmentDeletedMsg struct {
	task uuid.UUID
	id   uuid.UUID
}

func (m attachmentsModel) load() tea.Cmd {
	sc, task := m.sc, m.task
	return func() tea.Msg {
		items, err := sc.deps.client.ListAttachments(sc.ctx, sc.project.ID, task)
		if err != nil {
			return failMsg{action: "load attachments", err: err}
		}
		return attachmentsLoadedMsg{task: task, items: items}
	}
}

func (m attachmentsModel) selected() (api.Attachment, bool) {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return api.Attachment{}, false
	}
	return m.items[m.cursor], true
}

func (m attachmentsModel) capturing() bool {
	return m.dlg != nil
}

func (m attachmentsModel) bindings() []key.Binding {
	var bs []key.Binding
	if m.sc.perms.Collaborate {
		bs = append(bs, labeled(keys.New, "upload"))
	}
	if _, ok := m.selected(); ok && m.sc.perms.Manage {
		bs = append(bs, keys.Delete)
	}
	return bs
}

func (m attachmentsModel) update(msg tea.Msg) (attachmentsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case attachmentsLoadedMsg:
		if msg.task != m.task {
			return m, nil
		}
		m.loading = false
		m.items = msg.items
		m.cursor = collection.Clamp(m.cursor, len(m.items))
		return m, nil

	case attachmentSavedMsg:
		if msg.task != m.task {
			return m, nil
		}
		m.items = collection.Upsert(m.items, msg.attachment)
		return m, statusCmd("Uploaded "+msg.attachment.Filename, false)

	case attachmentDeletedMsg:
		if msg.task != m.task {
			return m, nil
		}
		m.items = collection.Remove(m.items, msg.id)
		m.cursor = collection.Clamp(m.cursor, len(m.items))
		return m, statusCmd("Attachment deleted", false)

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
			path := new(string)
			m.dlg = newDialog("Upload Attachment", func() tea.Cmd {
				return m.upload(expandPath(*path))
			}, huh.NewGroup(
				huh.NewInput().Title("File").Placeholder("~/path/to/file").Value(path).Validate(existingFile),
			))
			return m, m.dlg.init()
		}
	case key.Matches(km, keys.Delete):
		if a, ok := m.selected(); ok && m.sc.perms.Manage {
			m.dlg = confirmDialog("Delete Attachment", fmt.Sprintf("Delete %q?", a.Filename), "Delete",
				func() tea.Cmd { return m.deleteAttachment(a.ID) })
			return m, m.dlg.init()
		}
	}
	return m, nil
}

// expandPath resolves a leading ~ to the home directory.
func expandPath(p string) string {
	p = strings.TrimSpace(p)
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

func existingFile(p string) error {
	if strings.TrimSpace(p) == "" {
		return fmt.Errorf("file is required")
	}
	info, err := os.Stat(expandPath(p))
	if err != nil {
		return fmt.Errorf("cannot read %s", p)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", p)
	}
	return nil
}

func (m attachmentsModel) upload(path string) tea.Cmd {
	sc, task := m.sc, m.task
	return func() tea.Msg {
		a, err := sc.deps.client.UploadAttachment(sc.ctx, sc.project.ID, task, path)
		if err != nil {
			return failMsg{action: "upload attachment", err: err}
		}
		return attachmentSavedMsg{task: task, attachment: a}
	}
}

func (m attachmentsModel) deleteAttachment(id uuid.UUID) tea.Cmd {
	sc, task := m.sc, m.task
	return func() tea.Msg {
		if err := sc.deps.client.DeleteAttachment(sc.ctx, sc.project.ID, task, id); err != nil {
			return failMsg{action: "delete attachment", err: err}
		}
		return attachmentDeletedMsg{task: task, id: id}
	}
}

func (m attachmentsModel) view() string {
	w := m.width - 4
	if m.dlg != nil {
		return m.dlg.view(w)
	}

	rows := []string{subtitleStyle.Render("Attachments"), ""}
	switch {
	case m.loading && len(m.items) == 0:
		rows = append(rows, mutedStyle.Render("Loading attachments…"))
	case len(m.items) == 0:
		rows = append(rows, mutedStyle.Render("No attachments."))
	default:
		nameW := max(16, w-48)
		for i, a := range m.items {
			style := normalItemStyle
			if i == m.cursor {
				style = selectedItemStyle
			}
			size := "?"
			if a.Size != nil {
				size = humanize.Bytes(a.Bytes())
			}
			uploader := ""
			if a.Uploader != nil {
				uploader = a.Uploader.Username
			}
			rows = append(rows, style.Render(cursorMark(i == m.cursor)+pad(a.Filename, nameW))+
				mutedStyle.Render(fmt.Sprintf(" %9s  %-12s %s", size, pad(uploader, 12), relTime(a.CreatedAt))))
		}
		if a, ok := m.selected(); ok && a.ContentType != "" {
			rows = append(rows, "", mutedStyle.Render("  "+a.ContentType))
		}
	}

	rows = append(rows, "", hintLine(m.bindings()))
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
