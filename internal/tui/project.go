package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/sadopc/taskhub/internal/access"
	"github.com/sadopc/taskhub/internal/api"
	"github.com/sadopc/taskhub/internal/collection"
	"github.com/sadopc/taskhub/internal/logging"
)

type projectTab int

const (
	tabTasks projectTab = iota
	tabMembers
	tabLabels
	tabDashboard
)

var projectTabNames = []string{"Tasks", "Members", "Labels", "Dashboard"}

// projectModel is the workspace for one project. It resolves the caller's
// role once per visit and hands the result to every tab.
type projectModel struct {
	sc     scope
	width  int
	height int

	tab     projectTab
	loading bool
	visited [4]bool

	tasks     tasksModel
	members   membersModel
	labels    labelsModel
	dashboard dashboardModel
}

func newProjectModel(sc scope) projectModel {
	sc.perms = access.For(access.Viewer)
	m := projectModel{
		sc:        sc,
		tasks:     newTasksModel(sc),
		members:   newMembersModel(sc),
		labels:    newLabelsModel(sc),
		dashboard: newDashboardModel(sc),
		loading:   true,
	}
	m.visited[tabTasks] = true
	return m
}

func (m *projectModel) setSize(w, h int) {
	m.width = w
	m.height = h
	inner := h - 2
	m.tasks.setSize(w, inner)
	m.members.setSize(w, inner)
	m.labels.setSize(w, inner)
	m.dashboard.setSize(w, inner)
}

// setScope pushes a changed scope into every tab.
func (m *projectModel) setScope(sc scope) {
	m.sc = sc
	m.tasks.sc = sc
	m.members.sc = sc
	m.labels.sc = sc
	m.dashboard.sc = sc
}

func (m projectModel) role() access.Role {
	return m.sc.perms.Role
}

type projectLoadedMsg struct {
	id      uuid.UUID
	project api.Project
	tasks   []api.Task
	userID  string
	role    access.Role
}

// load fetches the project and its tasks concurrently, then resolves the
// caller's role against the membership list.
func (m projectModel) load() tea.Cmd {
	sc := m.sc
	filter := m.tasks.filter()
	return func() tea.Msg {
		var (
			project api.Project
			tasks   []api.Task
		)
		g, gctx := errgroup.WithContext(sc.ctx)
		g.Go(func() error {
			var err error
			project, err = sc.deps.client.GetProject(gctx, sc.project.ID)
			return err
		})
		g.Go(func() error {
			var err error
			tasks, err = sc.deps.client.ListTasks(gctx, sc.project.ID, filter)
			return err
		})
		if err := g.Wait(); err != nil {
			return failMsg{action: "load project", err: err}
		}

		token, _ := sc.deps.session.Credential()
		userID, err := access.IdentityFromToken(token)
		if err != nil {
			logging.Logger.WithError(err).Debug("IDENTITY_UNRESOLVED")
		}
		role := access.RoleOf(userID, project.Members)
		logging.Logger.WithFields(logrus.Fields{
			"project": project.ID.String(),
			"role":    role.String(),
		}).Debug("ROLE_RESOLVED")

		return projectLoadedMsg{id: project.ID, project: project, tasks: tasks, userID: userID, role: role}
	}
}

func (m projectModel) capturing() bool {
	switch m.tab {
	case tabTasks:
		return m.tasks.capturing()
	case tabMembers:
		return m.members.capturing()
	case tabLabels:
		return m.labels.capturing()
	case tabDashboard:
		return m.dashboard.capturing()
	}
	return false
}

func (m projectModel) bindings() []key.Binding {
	var bs []key.Binding
	switch m.tab {
	case tabTasks:
		bs = m.tasks.bindings()
	case tabMembers:
		bs = m.members.bindings()
	case tabLabels:
		bs = m.labels.bindings()
	case tabDashboard:
		bs = m.dashboard.bindings()
	}
	return append(bs, keys.Tab, labeled(keys.Back, "projects"))
}

func (m projectModel) update(msg tea.Msg) (projectModel, tea.Cmd) {
	switch msg := msg.(type) {
	case projectLoadedMsg:
		if msg.id != m.sc.project.ID {
			return m, nil
		}
		sc := m.sc
		sc.project = msg.project
		sc.userID = msg.userID
		sc.perms = access.For(msg.role)
		m.setScope(sc)
		m.loading = false
		m.tasks.loading = false
		m.tasks.setItems(msg.tasks)
		return m, nil

	// Label and member changes also update the project snapshot that the
	// task form and role column read from.
	case labelSavedMsg:
		m.sc.project.Labels = collection.Upsert(m.sc.project.Labels, msg.label)
		m.setScope(m.sc)
	case labelDeletedMsg:
		m.sc.project.Labels = collection.Remove(m.sc.project.Labels, msg.id)
		m.setScope(m.sc)
	case memberSavedMsg:
		m.sc.project.Members = collection.Upsert(m.sc.project.Members, msg.member)
		m.setScope(m.sc)
	case memberRemovedMsg:
		m.sc.project.Members = collection.Remove(m.sc.project.Members, msg.id)
		m.setScope(m.sc)
	case failMsg:
		m.loading = false

	case tea.KeyMsg:
		if !m.capturing() {
			switch {
			case key.Matches(msg, keys.Tab, keys.Right):
				return m.switchTab((m.tab + 1) % 4)
			case key.Matches(msg, keys.BackTab, keys.Left):
				return m.switchTab((m.tab + 3) % 4)
			case key.Matches(msg, keys.Back):
				return m, navigate(screenProjects)
			}
		}
		return m.updateActive(msg)
	}

	// Data messages go to every tab; each ignores what is not its own.
	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.tasks, cmd = m.tasks.update(msg)
	cmds = append(cmds, cmd)
	m.members, cmd = m.members.update(msg)
	cmds = append(cmds, cmd)
	m.labels, cmd = m.labels.update(msg)
	cmds = append(cmds, cmd)
	m.dashboard, cmd = m.dashboard.update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m projectModel) updateActive(msg tea.Msg) (projectModel, tea.Cmd) {
	var cmd tea.Cmd
	switch m.tab {
	case tabTasks:
		m.tasks, cmd = m.tasks.update(msg)
	case tabMembers:
		m.members, cmd = m.members.update(msg)
	case tabLabels:
		m.labels, cmd = m.labels.update(msg)
	case tabDashboard:
		m.dashboard, cmd = m.dashboard.update(msg)
	}
	return m, cmd
}

// switchTab activates t and loads it the first time it is shown.
func (m projectModel) switchTab(t projectTab) (projectModel, tea.Cmd) {
	m.tab = t
	if m.visited[t] {
		return m, nil
	}
	m.visited[t] = true
	switch t {
	case tabMembers:
		m.members.loading = true
		return m, m.members.load()
	case tabLabels:
		m.labels.loading = true
		return m, m.labels.load()
	case tabDashboard:
		m.dashboard.loading = true
		return m, m.dashboard.load()
	}
	return m, nil
}

// reload refreshes the project and whatever tabs were already opened.
func (m projectModel) reload() tea.Cmd {
	cmds := []tea.Cmd{m.load()}
	if m.visited[tabMembers] {
		cmds = append(cmds, m.members.load())
	}
	if m.visited[tabLabels] {
		cmds = append(cmds, m.labels.load())
	}
	if m.visited[tabDashboard] {
		cmds = append(cmds, m.dashboard.load())
	}
	return tea.Batch(cmds...)
}

func (m projectModel) renderTabs() string {
	var tabs []string
	for i, name := range projectTabNames {
		if projectTab(i) == m.tab {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m projectModel) view() string {
	title := titleStyle.Render(m.sc.project.Name)
	if m.sc.project.Archived {
		title += warningStyle.Render("  archived")
	}
	if m.loading {
		title += mutedStyle.Render("  loading…")
	}

	var content string
	switch m.tab {
	case tabTasks:
		content = m.tasks.view()
	case tabMembers:
		content = m.members.view()
	case tabLabels:
		content = m.labels.view()
	case tabDashboard:
		content = m.dashboard.view()
	}
	return strings.Join([]string{" " + title + "  " + m.renderTabs(), content}, "\n")
}
