package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/sadopc/taskhub/internal/access"
	"github.com/sadopc/taskhub/internal/api"
	"github.com/sadopc/taskhub/internal/collection"
	"github.com/sadopc/taskhub/internal/logging"
)

// projectRow pairs a project with the caller's role in it.
type projectRow struct {
	project api.Project
	role    access.Role
}

func (r projectRow) Key() uuid.UUID { return r.project.ID }

type projectsModel struct {
	ctx    context.Context
	deps   deps
	width  int
	height int

	rows         []projectRow
	cursor       int
	loading      bool
	showArchived bool

	search    textinput.Model
	searching bool

	dlg *dialog
}

func newProjectsModel(ctx context.Context, d deps) projectsModel {
	ti := textinput.New()
	ti.Placeholder = "search projects"
	ti.Prompt = "/ "
	ti.CharLimit = 64

	return projectsModel{
		ctx:          ctx,
		deps:         d,
		search:       ti,
		showArchived: d.store.GetBool("show_archived", false),
	}
}

func (p *projectsModel) setSize(w, h int) {
	p.width = w
	p.height = h
	p.search.Width = max(10, w-12)
}

type projectsLoadedMsg struct {
	rows []projectRow
}

type projectSavedMsg struct {
	row projectRow
}

type projectDeletedMsg struct {
	id uuid.UUID
}

func (p projectsModel) load() tea.Cmd {
	ctx, d := p.ctx, p.deps
	return func() tea.Msg {
		projects, err := d.client.ListProjects(ctx)
		if err != nil {
			return failMsg{action: "load projects", err: err}
		}
		token, _ := d.session.Credential()

		// The list endpoint may omit members; fetch details for those.
		rows := make([]projectRow, len(projects))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(4)
		for i, proj := range projects {
			rows[i].project = proj
			if len(proj.Members) > 0 {
				rows[i].role = access.Resolve(token, proj.Members)
				continue
			}
			g.Go(func() error {
				full, err := d.client.GetProject(gctx, proj.ID)
				if errors.Is(err, context.Canceled) || api.Classify(err) == api.KindAuth {
					return err
				}
				if err != nil {
					logging.Logger.WithError(err).WithField("project", proj.ID).Warn("ROLE_UNRESOLVED")
					rows[i].role = access.Viewer
					return nil
				}
				rows[i].project = full
				rows[i].role = access.Resolve(token, full.Members)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return failMsg{action: "load projects", err: err}
		}
		return projectsLoadedMsg{rows: rows}
	}
}

// visible applies the archived toggle and the search query.
func (p projectsModel) visible() []projectRow {
	q := strings.ToLower(strings.TrimSpace(p.search.Value()))
	out := make([]projectRow, 0, len(p.rows))
	for _, r := range p.rows {
		if r.project.Archived && !p.showArchived {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(r.project.Name), q) &&
			!strings.Contains(strings.ToLower(r.project.Description), q) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func (p projectsModel) selected() (projectRow, bool) {
	rows := p.visible()
	if p.cursor < 0 || p.cursor >= len(rows) {
		return projectRow{}, false
	}
	return rows[p.cursor], true
}

func (p projectsModel) capturing() bool {
	return p.dlg != nil || p.searching
}

func (p projectsModel) bindings() []key.Binding {
	bs := []key.Binding{
		labeled(keys.New, "new project"),
		keys.Search,
		labeled(keys.Filter, "show archived"),
		keys.Refresh,
		keys.Logout,
	}
	if p.showArchived {
		bs[2] = labeled(keys.Filter, "hide archived")
	}
	if row, ok := p.selected(); ok {
		bs = append([]key.Binding{labeled(keys.Enter, "open")}, bs...)
		if access.CanManage(row.role) {
			archive := "archive"
			if row.project.Archived {
				archive = "unarchive"
			}
			bs = append(bs, keys.Edit, keys.Delete, labeled(keys.Archive, archive))
		}
	}
	return bs
}

func (p projectsModel) update(msg tea.Msg) (projectsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case projectsLoadedMsg:
		p.loading = false
		p.rows = msg.rows
		p.cursor = collection.Clamp(p.cursor, len(p.visible()))
		return p, nil

	case projectSavedMsg:
		if collection.Index(p.rows, msg.row.Key()) >= 0 {
			p.rows = collection.Replace(p.rows, msg.row)
		} else {
			p.rows = collection.Prepend(p.rows, msg.row)
		}
		p.cursor = collection.Clamp(p.cursor, len(p.visible()))
		return p, nil

	case projectDeletedMsg:
		p.rows = collection.Remove(p.rows, msg.id)
		p.cursor = collection.Clamp(p.cursor, len(p.visible()))
		return p, statusCmd("Project deleted", false)

	case failMsg:
		p.loading = false
		return p, nil
	}

	if p.dlg != nil {
		var cmd tea.Cmd
		p.dlg, cmd = p.dlg.step(msg)
		return p, cmd
	}

	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return p, nil
	}

	if p.searching {
		return p.updateSearch(km)
	}

	if c, moved := moveCursor(km, p.cursor, len(p.visible())); moved {
		p.cursor = c
		return p, nil
	}

	switch {
	case key.Matches(km, keys.Enter):
		if row, ok := p.selected(); ok {
			return p, func() tea.Msg { return openProjectMsg{project: row.project} }
		}
	case key.Matches(km, keys.New):
		return p.openForm(nil)
	case key.Matches(km, keys.Search):
		p.searching = true
		return p, p.search.Focus()
	case key.Matches(km, keys.Filter):
		p.showArchived = !p.showArchived
		if err := p.deps.store.SetSetting("show_archived", strconv.FormatBool(p.showArchived)); err != nil {
			logging.Logger.WithError(err).Warn("SETTING_SAVE_FAILED")
		}
		p.cursor = collection.Clamp(p.cursor, len(p.visible()))
	case key.Matches(km, keys.Refresh):
		p.loading = true
		return p, p.load()
	case key.Matches(km, keys.Logout):
		return p, logout(p.deps)
	case key.Matches(km, keys.Edit):
		if row, ok := p.selected(); ok && access.CanManage(row.role) {
			return p.openForm(&row)
		}
	case key.Matches(km, keys.Delete):
		if row, ok := p.selected(); ok && access.CanManage(row.role) {
			p.dlg = confirmDialog("Delete Project",
				fmt.Sprintf("Delete %q and everything in it?", row.project.Name), "Delete",
				func() tea.Cmd { return p.deleteProject(row.project.ID) })
			return p, p.dlg.init()
		}
	case key.Matches(km, keys.Archive):
		if row, ok := p.selected(); ok && access.CanManage(row.role) {
			return p, p.toggleArchive(row)
		}
	}
	return p, nil
}

func (p projectsModel) updateSearch(msg tea.KeyMsg) (projectsModel, tea.Cmd) {
	switch msg.String() {
	case "esc":
		p.search.SetValue("")
		fallthrough
	case "enter":
		p.searching = false
		p.search.Blur()
		p.cursor = collection.Clamp(p.cursor, len(p.visible()))
		return p, nil
	}
	var cmd tea.Cmd
	p.search, cmd = p.search.Update(msg)
	p.cursor = collection.Clamp(p.cursor, len(p.visible()))
	return p, cmd
}

// openForm shows the create form, or the edit form when row is set.
func (p projectsModel) openForm(row *projectRow) (projectsModel, tea.Cmd) {
	in := api.ProjectInput{}
	title := "New Project"
	if row != nil {
		in = api.ProjectInput{Name: row.project.Name, Description: row.project.Description}
		title = "Edit Project"
	}
	input := &in

	submit := func() tea.Cmd {
		if row != nil {
			return p.updateProject(*row, *input)
		}
		return p.createProject(*input)
	}
	p.dlg = newDialog(title, submit, huh.NewGroup(
		huh.NewInput().Title("Name").Value(&input.Name).Validate(required("name")),
		huh.NewText().Title("Description").Lines(4).Value(&input.Description),
	))
	return p, p.dlg.init()
}

func (p projectsModel) createProject(in api.ProjectInput) tea.Cmd {
	ctx, d := p.ctx, p.deps
	in.Name = strings.TrimSpace(in.Name)
	return func() tea.Msg {
		proj, err := d.client.CreateProject(ctx, in)
		if err != nil {
			return failMsg{action: "create project", err: err}
		}
		if len(proj.Members) == 0 {
			if full, err := d.client.GetProject(ctx, proj.ID); err == nil {
				proj = full
			}
		}
		token, _ := d.session.Credential()
		return projectSavedMsg{row: projectRow{project: proj, role: access.Resolve(token, proj.Members)}}
	}
}

func (p projectsModel) updateProject(row projectRow, in api.ProjectInput) tea.Cmd {
	ctx, d := p.ctx, p.deps
	in.Name = strings.TrimSpace(in.Name)
	return func() tea.Msg {
		proj, err := d.client.UpdateProject(ctx, row.project.ID, in)
		if err != nil {
			return failMsg{action: "update project", err: err}
		}
		return projectSavedMsg{row: keepRole(row, proj, d)}
	}
}

func (p projectsModel) toggleArchive(row projectRow) tea.Cmd {
	ctx, d := p.ctx, p.deps
	return func() tea.Msg {
		proj, err := d.client.ToggleArchive(ctx, row.project.ID)
		if err != nil {
			return failMsg{action: "archive project", err: err}
		}
		return projectSavedMsg{row: keepRole(row, proj, d)}
	}
}

func (p projectsModel) deleteProject(id uuid.UUID) tea.Cmd {
	ctx, d := p.ctx, p.deps
	return func() tea.Msg {
		if err := d.client.DeleteProject(ctx, id); err != nil {
			return failMsg{action: "delete project", err: err}
		}
		return projectDeletedMsg{id: id}
	}
}

// keepRole re-resolves the role when the response carries members and
// otherwise keeps the one already known.
func keepRole(row projectRow, proj api.Project, d deps) projectRow {
	if len(proj.Members) == 0 {
		proj.Members = row.project.Members
		return projectRow{project: proj, role: row.role}
	}
	token, _ := d.session.Credential()
	return projectRow{project: proj, role: access.Resolve(token, proj.Members)}
}

func (p projectsModel) view() string {
	w := p.width - 4
	if p.dlg != nil {
		return p.dlg.view(w)
	}

	title := titleStyle.Render("Projects")
	if p.showArchived {
		title += mutedStyle.Render("  (including archived)")
	}

	var rows []string
	rows = append(rows, title)
	if p.searching || p.search.Value() != "" {
		rows = append(rows, p.search.View())
	}
	rows = append(rows, "")

	visible := p.visible()
	switch {
	case p.loading && len(p.rows) == 0:
		rows = append(rows, mutedStyle.Render("Loading projects…"))
	case len(visible) == 0 && len(p.rows) == 0:
		rows = append(rows, mutedStyle.Render("No projects yet. Press n to create one."))
	case len(visible) == 0:
		rows = append(rows, mutedStyle.Render("No projects match."))
	default:
		nameW := max(16, min(36, w-40))
		header := mutedStyle.Render(fmt.Sprintf("  %s %-8s %-8s %s", pad("Name", nameW), "Role", "Members", "Updated"))
		rows = append(rows, header)
		for i, r := range visible {
			style := normalItemStyle
			if i == p.cursor {
				style = selectedItemStyle
			}
			name := pad(r.project.Name, nameW)
			line := style.Render(cursorMark(i == p.cursor) + name)
			line += " " + roleStyle(r.role).Render(fmt.Sprintf("%-8s", r.role.Label()))
			line += mutedStyle.Render(fmt.Sprintf(" %-8d %s", len(r.project.Members), relTime(r.project.UpdatedAt)))
			if r.project.Archived {
				line += warningStyle.Render("  archived")
			}
			rows = append(rows, line)
		}
		if row, ok := p.selected(); ok && row.project.Description != "" {
			rows = append(rows, "", mutedStyle.Render("  "+truncate(row.project.Description, w-6)))
		}
	}

	rows = append(rows, "", hintLine(p.bindings()))
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
