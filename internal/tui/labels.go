package tui

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/google/uuid"

	"github.com/sadopc/taskhub/internal/api"
	"github.com/sadopc/taskhub/internal/collection"
)

type labelPreset struct {
	name string
	hex  string
}

var labelPresets = []labelPreset{
	{"Bug", "#ef4444"},
	{"Urgent", "#f59e0b"},
	{"Research", "#3b82f6"},
	{"Improvement", "#10b981"},
	{"Frontend", "#a855f7"},
	{"Backend", "#6366f1"},
}

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

func validHex(s string) error {
	if !hexColor.MatchString(strings.TrimSpace(s)) {
		return errors.New("color must look like #rrggbb")
	}
	return nil
}

type labelsModel struct {
	sc     scope
	width  int
	height int

	items   []api.Label
	cursor  int
	loading bool

	dlg *dialog
}

func newLabelsModel(sc scope) labelsModel {
	return labelsModel{sc: sc}
}

func (m *labelsModel) setSize(w, h int) {
	m.width = w
	m.height = h
}

type labelsLoadedMsg struct {
	project uuid.UUID
	items   []api.Label
}

type labelSavedMsg struct {
	label api.Label
}

type labelDeletedMsg struct {
	id uuid.UUID
}

func (m labelsModel) load() tea.Cmd {
	sc := m.sc
	return func() tea.Msg {
		items, err := sc.deps.client.ListLabels(sc.ctx, sc.project.ID)
		if err != nil {
			return failMsg{action: "load labels", err: err}
		}
		return labelsLoadedMsg{project: sc.project.ID, items: items}
	}
}

func (m labelsModel) selected() (api.Label, bool) {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return api.Label{}, false
	}
	return m.items[m.cursor], true
}

func (m labelsModel) capturing() bool {
	return m.dlg != nil
}

func (m labelsModel) bindings() []key.Binding {
	if !m.sc.perms.Manage {
		return []key.Binding{keys.Refresh}
	}
	bs := []key.Binding{labeled(keys.New, "new label")}
	if _, ok := m.selected(); ok {
		bs = append(bs, keys.Delete)
	}
	return append(bs, keys.Refresh)
}

func (m labelsModel) update(msg tea.Msg) (labelsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case labelsLoadedMsg:
		if msg.project != m.sc.project.ID {
			return m, nil
		}
		m.loading = false
		m.items = msg.items
		m.cursor = collection.Clamp(m.cursor, len(m.items))
		return m, nil

	case labelSavedMsg:
		m.items = collection.Upsert(m.items, msg.label)
		m.cursor = collection.Index(m.items, msg.label.ID)
		return m, statusCmd("Label "+msg.label.Name+" created", false)

	case labelDeletedMsg:
		m.items = collection.Remove(m.items, msg.id)
		m.cursor = collection.Clamp(m.cursor, len(m.items))
		return m, statusCmd("Label deleted", false)

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
	case key.Matches(km, keys.Refresh):
		m.loading = true
		return m, m.load()
	case key.Matches(km, keys.New):
		if m.sc.perms.Manage {
			return m.openForm()
		}
	case key.Matches(km, keys.Delete):
		if l, ok := m.selected(); ok && m.sc.perms.Manage {
			m.dlg = confirmDialog("Delete Label", fmt.Sprintf("Delete label %q?", l.Name), "Delete",
				func() tea.Cmd { return m.deleteLabel(l.ID) })
			return m, m.dlg.init()
		}
	}
	return m, nil
}

const customPreset = -1

func (m labelsModel) openForm() (labelsModel, tea.Cmd) {
	preset := new(int)
	name, color := new(string), new(string)
	*color = "#"

	opts := make([]huh.Option[int], 0, len(labelPresets)+1)
	for i, p := range labelPresets {
		opts = append(opts, huh.NewOption(swatch(p.hex)+" "+p.name, i))
	}
	opts = append(opts, huh.NewOption("Custom…", customPreset))

	m.dlg = newDialog("New Label", func() tea.Cmd {
		if *preset != customPreset {
			p := labelPresets[*preset]
			return m.createLabel(p.name, p.hex)
		}
		return m.createLabel(*name, *color)
	},
		huh.NewGroup(
			huh.NewSelect[int]().Title("Label").Options(opts...).Value(preset),
		),
		huh.NewGroup(
			huh.NewInput().Title("Name").Value(name).Validate(required("name")),
			huh.NewInput().Title("Color").Placeholder("#rrggbb").Value(color).Validate(validHex),
		).WithHideFunc(func() bool { return *preset != customPreset }),
	)
	return m, m.dlg.init()
}

func (m labelsModel) createLabel(name, hex string) tea.Cmd {
	sc := m.sc
	return func() tea.Msg {
		label, err := sc.deps.client.CreateLabel(sc.ctx, sc.project.ID, name, strings.TrimSpace(hex))
		if err != nil {
			return failMsg{action: "create label", err: err}
		}
		return labelSavedMsg{label: label}
	}
}

func (m labelsModel) deleteLabel(id uuid.UUID) tea.Cmd {
	sc := m.sc
	return func() tea.Msg {
		if err := sc.deps.client.DeleteLabel(sc.ctx, sc.project.ID, id); err != nil {
			return failMsg{action: "delete label", err: err}
		}
		return labelDeletedMsg{id: id}
	}
}

func (m labelsModel) view() string {
	w := m.width - 4
	if m.dlg != nil {
		return m.dlg.view(w)
	}

	rows := []string{titleStyle.Render("Labels"), ""}
	switch {
	case m.loading && len(m.items) == 0:
		rows = append(rows, mutedStyle.Render("Loading labels…"))
	case len(m.items) == 0:
		rows = append(rows, mutedStyle.Render("No labels."))
	default:
		for i, l := range m.items {
			style := normalItemStyle
			if i == m.cursor {
				style = selectedItemStyle
			}
			rows = append(rows, fmt.Sprintf("%s%s %s %s",
				style.Render(cursorMark(i == m.cursor)),
				swatch(l.ColorHex),
				style.Render(pad(l.Name, 24)),
				mutedStyle.Render(l.ColorHex)))
		}
	}

	rows = append(rows, "", hintLine(m.bindings()))
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
