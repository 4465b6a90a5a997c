package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/google/uuid"

	"github.com/sadopc/taskhub/internal/api"
	"github.com/sadopc/taskhub/internal/collection"
	"github.com/sadopc/taskhub/internal/logging"
)

var taskSorts = []string{"priority", "due", "title", "status", "updated"}

type tasksModel struct {
	sc     scope
	width  int
	height int

	items   []api.Task
	cursor  int
	loading bool
	status  api.Status
	sortBy  string

	dlg *dialog
}

func newTasksModel(sc scope) tasksModel {
	sortBy, err := sc.deps.store.GetSetting("task_sort")
	if err != nil || !validSort(sortBy) {
		sortBy = "priority"
	}
	return tasksModel{sc: sc, loading: true, sortBy: sortBy}
}

func validSort(s string) bool {
	for _, v := range taskSorts {
		if v == s {
			return true
		}
	}
	return false
}

func (m *tasksModel) setSize(w, h int) {
	m.width = w
	m.height = h
}

func (m tasksModel) filter() api.TaskFilter {
	return api.TaskFilter{Status: m.status}
}

type tasksLoadedMsg struct {
	project uuid.UUID
	items   []api.Task
}

type taskSavedMsg struct {
	task api.Task
}

type taskDeletedMsg struct {
	id uuid.UUID
}

func (m tasksModel) load() tea.Cmd {
	sc, f := m.sc, m.filter()
	return func() tea.Msg {
		items, err := sc.deps.client.ListTasks(sc.ctx, sc.project.ID, f)
		if err != nil {
			return failMsg{action: "load tasks", err: err}
		}
		return tasksLoadedMsg{project: sc.project.ID, items: items}
	}
}

func (m *tasksModel) setItems(items []api.Task) {
	m.items = items
	m.sortItems()
	m.cursor = collection.Clamp(m.cursor, len(m.items))
}

func (m *tasksModel) sortItems() {
	less := func(a, b api.Task) bool { return a.Priority.Rank() > b.Priority.Rank() }
	switch m.sortBy {
	case "due":
		less = func(a, b api.Task) bool {
			switch {
			case a.DueDate == nil:
				return false
			case b.DueDate == nil:
				return true
			}
			return a.DueDate.Before(b.DueDate.Time)
		}
	case "title":
		less = func(a, b api.Task) bool { return strings.ToLower(a.Title) < strings.ToLower(b.Title) }
	case "status":
		less = func(a, b api.Task) bool { return statusOrder(a.Status) < statusOrder(b.Status) }
	case "updated":
		less = func(a, b api.Task) bool { return a.UpdatedAt.After(b.UpdatedAt) }
	}
	sort.SliceStable(m.items, func(i, j int) bool { return less(m.items[i], m.items[j]) })
}

func statusOrder(s api.Status) int {
	for i, v := range api.Statuses() {
		if v == s {
			return i
		}
	}
	return len(api.Statuses())
}

func (m tasksModel) selected() (api.Task, bool) {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return api.Task{}, false
	}
	return m.items[m.cursor], true
}

func (m tasksModel) capturing() bool {
	return m.dlg != nil
}

func (m tasksModel) bindings() []key.Binding {
	var bs []key.Binding
	if _, ok := m.selected(); ok {
		bs = append(bs, labeled(keys.Enter, "open task"))
	}
	if m.sc.perms.Manage {
		bs = append(bs, labeled(keys.New, "new task"))
		if _, ok := m.selected(); ok {
			bs = append(bs, keys.Edit, keys.Delete)
		}
	}
	return append(bs,
		labeled(keys.Filter, "status filter"),
		labeled(keys.Sort, "sort: "+m.sortBy),
		keys.Refresh,
	)
}

func (m tasksModel) update(msg tea.Msg) (tasksModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tasksLoadedMsg:
		if msg.project != m.sc.project.ID {
			return m, nil
		}
		m.loading = false
		m.setItems(msg.items)
		return m, nil

	case taskSavedMsg:
		if m.status != "" && msg.task.Status != m.status {
			m.items = collection.Remove(m.items, msg.task.ID)
			m.cursor = collection.Clamp(m.cursor, len(m.items))
			return m, statusCmd("Task saved", false)
		}
		m.items = collection.Upsert(m.items, msg.task)
		m.sortItems()
		if i := collection.Index(m.items, msg.task.ID); i >= 0 {
			m.cursor = i
		}
		return m, statusCmd("Task saved", false)

	case taskDeletedMsg:
		m.items = collection.Remove(m.items, msg.id)
		m.cursor = collection.Clamp(m.cursor, len(m.items))
		return m, statusCmd("Task deleted", false)

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
	case key.Matches(km, keys.Enter):
		if t, ok := m.selected(); ok {
			return m, func() tea.Msg { return openTaskMsg{task: t} }
		}
	case key.Matches(km, keys.Filter):
		m.status = nextStatus(m.status)
		m.loading = true
		return m, m.load()
	case key.Matches(km, keys.Sort):
		m.sortBy = taskSorts[(indexOf(taskSorts, m.sortBy)+1)%len(taskSorts)]
		if err := m.sc.deps.store.SetSetting("task_sort", m.sortBy); err != nil {
			logging.Logger.WithError(err).Warn("SETTING_SAVE_FAILED")
		}
		m.sortItems()
	case key.Matches(km, keys.Refresh):
		m.loading = true
		return m, m.load()
	case key.Matches(km, keys.New):
		if m.sc.perms.Manage {
			return m.openForm(nil)
		}
	case key.Matches(km, keys.Edit):
		if t, ok := m.selected(); ok && m.sc.perms.Manage {
			return m.openForm(&t)
		}
	case key.Matches(km, keys.Delete):
		if t, ok := m.selected(); ok && m.sc.perms.Manage {
			m.dlg = confirmDialog("Delete Task", fmt.Sprintf("Delete %q?", t.Title), "Delete",
				func() tea.Cmd { return m.deleteTask(t.ID) })
			return m, m.dlg.init()
		}
	}
	return m, nil
}

// nextStatus cycles all -> each status -> all.
func nextStatus(s api.Status) api.Status {
	all := api.Statuses()
	if s == "" {
		return all[0]
	}
	i := statusOrder(s)
	if i+1 >= len(all) {
		return ""
	}
	return all[i+1]
}

func indexOf(xs []string, s string) int {
	for i, x := range xs {
		if x == s {
			return i
		}
	}
	return -1
}

// taskForm holds the values a task dialog edits.
type taskForm struct {
	title       string
	description string
	status      api.Status
	priority    api.Priority
	due         string
	labels      []uuid.UUID
	assignees   []api.UserID
}

func taskFormFrom(t *api.Task) *taskForm {
	f := &taskForm{status: api.StatusTodo, priority: api.PriorityMedium}
	if t == nil {
		return f
	}
	f.title = t.Title
	f.description = t.Description
	f.status = t.Status
	f.priority = t.Priority
	if t.DueDate != nil {
		f.due = t.DueDate.String()
	}
	for _, l := range t.Labels {
		f.labels = append(f.labels, l.ID)
	}
	for _, a := range t.Assignees {
		f.assignees = append(f.assignees, a.User.ID)
	}
	return f
}

func (f *taskForm) input() (api.TaskInput, error) {
	in := api.TaskInput{
		Title:       strings.TrimSpace(f.title),
		Description: strings.TrimSpace(f.description),
		Status:      f.status,
		Priority:    f.priority,
		LabelIDs:    f.labels,
		AssigneeIDs: f.assignees,
	}
	if strings.TrimSpace(f.due) != "" {
		d, err := api.ParseDate(f.due)
		if err != nil {
			return in, err
		}
		in.DueDate = &d
	}
	return in, nil
}

func validDue(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	_, err := api.ParseDate(s)
	return err
}

func (m tasksModel) openForm(t *api.Task) (tasksModel, tea.Cmd) {
	f := taskFormFrom(t)
	title := "New Task"
	if t != nil {
		title = "Edit Task"
	}

	statusOpts := make([]huh.Option[api.Status], 0, 4)
	for _, s := range api.Statuses() {
		statusOpts = append(statusOpts, huh.NewOption(s.Label(), s))
	}
	priorityOpts := make([]huh.Option[api.Priority], 0, 4)
	for _, p := range api.Priorities() {
		priorityOpts = append(priorityOpts, huh.NewOption(p.Label(), p))
	}

	fields := []huh.Field{
		huh.NewInput().Title("Title").Value(&f.title).Validate(required("title")),
		huh.NewText().Title("Description").Lines(3).Value(&f.description),
		huh.NewSelect[api.Status]().Title("Status").Options(statusOpts...).Value(&f.status),
		huh.NewSelect[api.Priority]().Title("Priority").Options(priorityOpts...).Value(&f.priority),
		huh.NewInput().Title("Due date").Placeholder("YYYY-MM-DD").Value(&f.due).Validate(validDue),
	}

	var extra []huh.Field
	if labels := m.sc.project.Labels; len(labels) > 0 {
		opts := make([]huh.Option[uuid.UUID], 0, len(labels))
		for _, l := range labels {
			opts = append(opts, huh.NewOption(l.Name, l.ID))
		}
		extra = append(extra, huh.NewMultiSelect[uuid.UUID]().Title("Labels").Options(opts...).Value(&f.labels))
	}
	if members := m.sc.project.Members; len(members) > 0 {
		opts := make([]huh.Option[api.UserID], 0, len(members))
		for _, mem := range members {
			opts = append(opts, huh.NewOption(mem.User.Username, mem.User.ID))
		}
		extra = append(extra, huh.NewMultiSelect[api.UserID]().Title("Assignees").Options(opts...).Value(&f.assignees))
	}

	groups := []*huh.Group{huh.NewGroup(fields...)}
	if len(extra) > 0 {
		groups = append(groups, huh.NewGroup(extra...))
	}

	var id uuid.UUID
	if t != nil {
		id = t.ID
	}
	m.dlg = newDialog(title, func() tea.Cmd {
		in, err := f.input()
		if err != nil {
			return statusCmd(err.Error(), true)
		}
		return m.saveTask(id, in)
	}, groups...)
	return m, m.dlg.init()
}

// saveTask creates the task when id is nil and replaces it otherwise.
func (m tasksModel) saveTask(id uuid.UUID, in api.TaskInput) tea.Cmd {
	sc := m.sc
	return func() tea.Msg {
		var (
			task api.Task
			err  error
		)
		if id == uuid.Nil {
			task, err = sc.deps.client.CreateTask(sc.ctx, sc.project.ID, in)
			if err != nil {
				return failMsg{action: "create task", err: err}
			}
		} else {
			task, err = sc.deps.client.UpdateTask(sc.ctx, sc.project.ID, id, in)
			if err != nil {
				return failMsg{action: "update task", err: err}
			}
		}
		return taskSavedMsg{task: task}
	}
}

func (m tasksModel) deleteTask(id uuid.UUID) tea.Cmd {
	sc := m.sc
	return func() tea.Msg {
		if err := sc.deps.client.DeleteTask(sc.ctx, sc.project.ID, id); err != nil {
			return failMsg{action: "delete task", err: err}
		}
		return taskDeletedMsg{id: id}
	}
}

func (m tasksModel) view() string {
	w := m.width - 4
	if m.dlg != nil {
		return m.dlg.view(w)
	}

	header := titleStyle.Render("Tasks")
	if m.status != "" {
		header += "  " + statusStyle(m.status).Render(m.status.Label())
	} else {
		header += mutedStyle.Render("  all statuses")
	}
	header += mutedStyle.Render("  sorted by " + m.sortBy)

	rows := []string{header, ""}
	switch {
	case m.loading && len(m.items) == 0:
		rows = append(rows, mutedStyle.Render("Loading tasks…"))
	case len(m.items) == 0:
		rows = append(rows, mutedStyle.Render("No tasks."))
	default:
		now := time.Now()
		titleW := max(16, w-68)
		rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-12s %-8s %s %-10s %-16s %s",
			"Status", "Priority", pad("Title", titleW), "Due", "Assignees", "Subtasks")))
		for i, t := range m.items {
			style := normalItemStyle
			if i == m.cursor {
				style = selectedItemStyle
			}
			due := ""
			if t.DueDate != nil {
				due = t.DueDate.String()
			}
			dueCell := mutedStyle.Render(fmt.Sprintf("%-10s", due))
			if t.Overdue(now) {
				dueCell = errorStyle.Render(fmt.Sprintf("%-10s", due))
			}
			progress := ""
			if done, total := t.SubtaskProgress(); total > 0 {
				progress = fmt.Sprintf("%d/%d", done, total)
			}
			line := style.Render(cursorMark(i == m.cursor)) +
				statusStyle(t.Status).Render(fmt.Sprintf("%-12s", t.Status.Label())) + " " +
				priorityStyle(t.Priority).Render(fmt.Sprintf("%-8s", t.Priority.Label())) + " " +
				style.Render(pad(t.Title, titleW)) + " " +
				dueCell + " " +
				mutedStyle.Render(pad(strings.Join(t.AssigneeNames(), ", "), 16)) + " " +
				mutedStyle.Render(progress)
			rows = append(rows, line)
		}
		if t, ok := m.selected(); ok && len(t.Labels) > 0 {
			var chips []string
			for _, l := range t.Labels {
				chips = append(chips, swatch(l.ColorHex)+" "+l.Name)
			}
			rows = append(rows, "", "  "+strings.Join(chips, "  "))
		}
	}

	rows = append(rows, "", hintLine(m.bindings()))
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
