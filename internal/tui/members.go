package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/google/uuid"

	"github.com/sadopc/taskhub/internal/access"
	"github.com/sadopc/taskhub/internal/api"
	"github.com/sadopc/taskhub/internal/collection"
)

type membersModel struct {
	sc     scope
	width  int
	height int

	items   []api.Membership
	cursor  int
	loading bool

	dlg *dialog
}

func newMembersModel(sc scope) membersModel {
	return membersModel{sc: sc}
}

func (m *membersModel) setSize(w, h int) {
	m.width = w
	m.height = h
}

type membersLoadedMsg struct {
	project uuid.UUID
	items   []api.Membership
}

type memberSavedMsg struct {
	member api.Membership
}

type memberRemovedMsg struct {
	id uuid.UUID
}

type usersFoundMsg struct {
	query string
	users []api.User
}

func (m membersModel) load() tea.Cmd {
	sc := m.sc
	return func() tea.Msg {
		items, err := sc.deps.client.ListMembers(sc.ctx, sc.project.ID)
		if err != nil {
			return failMsg{action: "load members", err: err}
		}
		return membersLoadedMsg{project: sc.project.ID, items: items}
	}
}

func (m membersModel) selected() (api.Membership, bool) {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return api.Membership{}, false
	}
	return m.items[m.cursor], true
}

func (m membersModel) capturing() bool {
	return m.dlg != nil
}

func (m membersModel) bindings() []key.Binding {
	if !m.sc.perms.ManageMembers {
		return []key.Binding{keys.Refresh}
	}
	bs := []key.Binding{labeled(keys.New, "add member")}
	if _, ok := m.selected(); ok {
		bs = append(bs, keys.Role, labeled(keys.Delete, "remove"))
	}
	return append(bs, keys.Refresh)
}

// hasMember reports whether username already belongs to the project.
func (m membersModel) hasMember(username string) bool {
	for _, mem := range m.items {
		if strings.EqualFold(mem.User.Username, username) {
			return true
		}
	}
	return false
}

func (m membersModel) update(msg tea.Msg) (membersModel, tea.Cmd) {
	switch msg := msg.(type) {
	case membersLoadedMsg:
		if msg.project != m.sc.project.ID {
			return m, nil
		}
		m.loading = false
		m.items = msg.items
		m.cursor = collection.Clamp(m.cursor, len(m.items))
		return m, nil

	case memberSavedMsg:
		m.items = collection.Upsert(m.items, msg.member)
		return m, statusCmd(fmt.Sprintf("%s is now %s", msg.member.User.Username, msg.member.Role.Label()), false)

	case memberRemovedMsg:
		m.items = collection.Remove(m.items, msg.id)
		m.cursor = collection.Clamp(m.cursor, len(m.items))
		return m, statusCmd("Member removed", false)

	case usersFoundMsg:
		return m.openPick(msg)

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
		if m.sc.perms.ManageMembers {
			return m.openSearch()
		}
	case key.Matches(km, keys.Role):
		if mem, ok := m.selected(); ok && m.sc.perms.ManageMembers {
			return m.openRole(mem)
		}
	case key.Matches(km, keys.Delete):
		if mem, ok := m.selected(); ok && m.sc.perms.ManageMembers {
			m.dlg = confirmDialog("Remove Member",
				fmt.Sprintf("Remove %s from %s?", mem.User.Username, m.sc.project.Name), "Remove",
				func() tea.Cmd { return m.removeMember(mem.ID) })
			return m, m.dlg.init()
		}
	}
	return m, nil
}

// openSearch is the first step of adding a member: a username query.
func (m membersModel) openSearch() (membersModel, tea.Cmd) {
	query := new(string)
	sc := m.sc
	m.dlg = newDialog("Add Member", func() tea.Cmd {
		q := strings.TrimSpace(*query)
		return func() tea.Msg {
			users, err := sc.deps.client.SearchUsers(sc.ctx, q)
			if err != nil {
				return failMsg{action: "search users", err: err}
			}
			return usersFoundMsg{query: q, users: users}
		}
	}, huh.NewGroup(
		huh.NewInput().Title("Username").Placeholder("start typing a username").Value(query).Validate(required("username")),
	))
	return m, m.dlg.init()
}

// openPick is the second step: choose one of the matches and a role.
func (m membersModel) openPick(found usersFoundMsg) (membersModel, tea.Cmd) {
	var opts []huh.Option[string]
	for _, u := range found.users {
		if m.hasMember(u.Username) {
			continue
		}
		label := u.Username
		if u.Email != "" {
			label += " <" + u.Email + ">"
		}
		opts = append(opts, huh.NewOption(label, u.Username))
	}
	if len(opts) == 0 {
		return m, statusCmd(fmt.Sprintf("No users to add matching %q", found.query), true)
	}

	username := new(string)
	role := new(access.Role)
	*role = access.Member
	m.dlg = newDialog("Add Member", func() tea.Cmd {
		if m.hasMember(*username) {
			return statusCmd(*username+" is already a member", true)
		}
		return m.addMember(*username, *role)
	}, huh.NewGroup(
		huh.NewSelect[string]().Title("User").Options(opts...).Value(username),
		huh.NewSelect[access.Role]().Title("Role").Options(roleOptions()...).Value(role),
	))
	return m, m.dlg.init()
}

func roleOptions() []huh.Option[access.Role] {
	opts := make([]huh.Option[access.Role], 0, 4)
	for _, r := range access.Roles() {
		opts = append(opts, huh.NewOption(r.Label(), r))
	}
	return opts
}

func (m membersModel) openRole(mem api.Membership) (membersModel, tea.Cmd) {
	role := new(access.Role)
	*role = mem.Role
	m.dlg = newDialog("Change Role", func() tea.Cmd {
		if *role == mem.Role {
			return nil
		}
		return m.changeRole(mem.ID, *role)
	}, huh.NewGroup(
		huh.NewSelect[access.Role]().
			Title("Role for "+mem.User.Username).
			Options(roleOptions()...).
			Value(role),
	))
	return m, m.dlg.init()
}

func (m membersModel) addMember(username string, role access.Role) tea.Cmd {
	sc := m.sc
	return func() tea.Msg {
		mem, err := sc.deps.client.AddMember(sc.ctx, sc.project.ID, username, role)
		if err != nil {
			return failMsg{action: "add member", err: err}
		}
		return memberSavedMsg{member: mem}
	}
}

func (m membersModel) changeRole(id uuid.UUID, role access.Role) tea.Cmd {
	sc := m.sc
	return func() tea.Msg {
		mem, err := sc.deps.client.UpdateMemberRole(sc.ctx, sc.project.ID, id, role)
		if err != nil {
			return failMsg{action: "change role", err: err}
		}
		return memberSavedMsg{member: mem}
	}
}

func (m membersModel) removeMember(id uuid.UUID) tea.Cmd {
	sc := m.sc
	return func() tea.Msg {
		if err := sc.deps.client.RemoveMember(sc.ctx, sc.project.ID, id); err != nil {
			return failMsg{action: "remove member", err: err}
		}
		return memberRemovedMsg{id: id}
	}
}

func (m membersModel) view() string {
	w := m.width - 4
	if m.dlg != nil {
		return m.dlg.view(w)
	}

	rows := []string{titleStyle.Render("Members") + mutedStyle.Render("  "+countLabel(len(m.items), "member")), ""}
	switch {
	case m.loading && len(m.items) == 0:
		rows = append(rows, mutedStyle.Render("Loading members…"))
	case len(m.items) == 0:
		rows = append(rows, mutedStyle.Render("No members."))
	default:
		for i, mem := range m.items {
			style := normalItemStyle
			if i == m.cursor {
				style = selectedItemStyle
			}
			name := mem.User.Username
			if string(mem.User.ID) == m.sc.userID {
				name += " (you)"
			}
			line := style.Render(cursorMark(i == m.cursor)+pad(name, 24)) + " " +
				roleStyle(mem.Role).Render(fmt.Sprintf("%-8s", mem.Role.Label())) +
				mutedStyle.Render("  joined "+relTime(mem.JoinedAt))
			rows = append(rows, line)
		}
	}

	rows = append(rows, "", hintLine(m.bindings()))
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
