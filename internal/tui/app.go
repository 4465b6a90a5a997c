package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/taskhub/internal/api"
	"github.com/sadopc/taskhub/internal/logging"
	"github.com/sadopc/taskhub/internal/session"
	"github.com/sadopc/taskhub/internal/store"
)

// notice is a blocking message shown over the active screen.
type notice struct {
	title string
	body  string
}

// App is the root Bubble Tea model.
type App struct {
	deps   deps
	width  int
	height int

	// Every screen visit runs under its own context; leaving the screen
	// cancels whatever it still has in flight.
	root   context.Context
	ctx    context.Context
	cancel context.CancelFunc

	screen     screen
	login      loginModel
	register   registerModel
	projects   projectsModel
	project    projectModel
	task       taskModel
	profile    profileModel
	hasProject bool

	user      store.CachedProfile
	notice    *notice
	help      help.Model
	showHelp  bool
	spinner   spinner.Model
	status    string
	statusErr bool
}

func NewApp(client *api.Client, sess *session.Holder, st *store.Store) App {
	h := help.New()
	h.ShowAll = false

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = accentStyle

	a := App{
		deps:    deps{client: client, session: sess, store: st},
		root:    context.Background(),
		help:    h,
		spinner: sp,
	}
	if cached, err := st.LoadProfile(); err != nil {
		logging.Logger.WithError(err).Warn("PROFILE_CACHE_UNREADABLE")
	} else if cached != nil {
		a.user = *cached
	}

	start := screenLogin
	if sess.Active() {
		start = screenProjects
	}
	a, _ = a.enter(start)
	return a
}

func (a App) Init() tea.Cmd {
	var cmd tea.Cmd
	switch a.screen {
	case screenLogin:
		cmd = a.login.init()
	case screenProjects:
		cmd = a.projects.load()
	}
	return tea.Batch(a.spinner.Tick, cmd)
}

// renew cancels the current screen context and derives a fresh one.
func (a *App) renew() context.Context {
	if a.cancel != nil {
		a.cancel()
	}
	a.ctx, a.cancel = context.WithCancel(a.root)
	return a.ctx
}

func (a App) contentHeight() int {
	return max(1, a.height-4)
}

// enter switches to s with a fresh context and model.
func (a App) enter(s screen) (App, tea.Cmd) {
	if s == screenProject {
		if !a.hasProject {
			s = screenProjects
		} else {
			return a.resumeProject()
		}
	}

	ctx := a.renew()
	a.screen = s
	w, h := a.width, a.contentHeight()

	var cmd tea.Cmd
	switch s {
	case screenLogin:
		a.hasProject = false
		a.login = newLoginModel(ctx, a.deps, a.user.Username)
		a.login.setSize(w, h)
		cmd = a.login.init()
	case screenRegister:
		a.register = newRegisterModel(ctx, a.deps)
		a.register.setSize(w, h)
		cmd = a.register.init()
	case screenProjects:
		a.hasProject = false
		a.projects = newProjectsModel(ctx, a.deps)
		a.projects.setSize(w, h)
		a.projects.loading = true
		cmd = a.projects.load()
	case screenProfile:
		a.hasProject = false
		a.profile = newProfileModel(ctx, a.deps, a.user)
		a.profile.setSize(w, h)
		cmd = a.profile.load()
	}
	return a, cmd
}

func (a App) openProject(p api.Project) (App, tea.Cmd) {
	ctx := a.renew()
	a.screen = screenProject
	a.hasProject = true
	a.project = newProjectModel(scope{ctx: ctx, deps: a.deps, project: p})
	a.project.setSize(a.width, a.contentHeight())
	return a, a.project.load()
}

// resumeProject returns to the open project and refreshes what it shows.
func (a App) resumeProject() (App, tea.Cmd) {
	ctx := a.renew()
	a.screen = screenProject
	sc := a.project.sc
	sc.ctx = ctx
	a.project.setScope(sc)
	a.project.loading = true
	return a, a.project.reload()
}

func (a App) openTask(t api.Task) (App, tea.Cmd) {
	ctx := a.renew()
	a.screen = screenTask
	sc := a.project.sc
	sc.ctx = ctx
	a.task = newTaskModel(sc, t)
	a.task.setSize(a.width, a.contentHeight())
	return a, a.task.load()
}

// handleFailure is the one place failed API calls end up. A rejected
// session always leads back to the login screen.
func (a App) handleFailure(msg failMsg) (App, tea.Cmd) {
	if errors.Is(msg.err, context.Canceled) {
		return a, nil
	}

	log := logging.Logger.WithError(msg.err).WithField("action", msg.action)
	if api.Classify(msg.err) == api.KindAuth {
		log.Warn("SESSION_REJECTED")
		if err := a.deps.session.Clear(); err != nil {
			logging.Logger.WithError(err).Warn("SESSION_CLEAR_FAILED")
		}
		var cmd tea.Cmd
		a, cmd = a.enter(screenLogin)
		a.notice = &notice{title: "Session expired", body: api.Describe(msg.err)}
		return a, cmd
	}

	log.Warn("ACTION_FAILED")
	a.notice = &notice{title: "Failed to " + msg.action, body: api.Describe(msg.err)}
	return a.updateScreen(msg)
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		h := a.contentHeight()
		a.login.setSize(a.width, h)
		a.register.setSize(a.width, h)
		a.projects.setSize(a.width, h)
		a.project.setSize(a.width, h)
		a.task.setSize(a.width, h)
		a.profile.setSize(a.width, h)
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if a.notice != nil {
			if key.Matches(msg, keys.Enter, keys.Back) {
				a.notice = nil
			}
			return a, nil
		}
		if a.capturing() {
			return a.updateScreen(msg)
		}
		switch {
		case key.Matches(msg, keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp
			return a, nil
		case key.Matches(msg, keys.Profile) && a.signedIn():
			return a.enter(screenProfile)
		}
		return a.updateScreen(msg)

	case failMsg:
		return a.handleFailure(msg)

	case loginDoneMsg:
		a.user = msg.profile
		a.status, a.statusErr = "Welcome, "+msg.profile.Username, false
		return a.enter(screenProjects)

	case registeredMsg:
		a.user = store.CachedProfile{Username: msg.username}
		a.status, a.statusErr = "Account created. Log in as "+msg.username, false
		return a.enter(screenLogin)

	case loggedOutMsg:
		logging.Logger.WithField("user", a.user.Username).Info("USER_LOGGED_OUT")
		a.user = store.CachedProfile{Username: a.user.Username}
		a.status, a.statusErr = "Logged out", false
		return a.enter(screenLogin)

	case navigateMsg:
		return a.enter(msg.to)

	case openProjectMsg:
		return a.openProject(msg.project)

	case openTaskMsg:
		return a.openTask(msg.task)

	case profileSavedMsg:
		a.user = msg.profile
		return a.updateScreen(msg)

	case statusMsg:
		a.status, a.statusErr = msg.text, msg.isError
		return a, nil
	}

	return a.updateScreen(msg)
}

func (a App) updateScreen(msg tea.Msg) (App, tea.Cmd) {
	var cmd tea.Cmd
	switch a.screen {
	case screenLogin:
		a.login, cmd = a.login.update(msg)
	case screenRegister:
		a.register, cmd = a.register.update(msg)
	case screenProjects:
		a.projects, cmd = a.projects.update(msg)
	case screenProject:
		a.project, cmd = a.project.update(msg)
	case screenTask:
		a.task, cmd = a.task.update(msg)
	case screenProfile:
		a.profile, cmd = a.profile.update(msg)
	}
	return a, cmd
}

func (a App) signedIn() bool {
	switch a.screen {
	case screenLogin, screenRegister:
		return false
	}
	return a.deps.session.Active()
}

func (a App) capturing() bool {
	switch a.screen {
	case screenLogin:
		return a.login.capturing()
	case screenRegister:
		return a.register.capturing()
	case screenProjects:
		return a.projects.capturing()
	case screenProject:
		return a.project.capturing()
	case screenTask:
		return a.task.capturing()
	case screenProfile:
		return a.profile.capturing()
	}
	return false
}

func (a App) busy() bool {
	switch a.screen {
	case screenLogin:
		return a.login.busy
	case screenRegister:
		return a.register.busy
	case screenProjects:
		return a.projects.loading
	case screenProject:
		p := a.project
		return p.loading || p.tasks.loading || p.members.loading || p.labels.loading || p.dashboard.loading
	case screenTask:
		t := a.task
		return t.loading || t.comments.loading || t.attachments.loading
	case screenProfile:
		return a.profile.loading
	}
	return false
}

// bindings are the keys the footer advertises for the current screen.
func (a App) bindings() []key.Binding {
	if a.notice != nil {
		return []key.Binding{labeled(keys.Enter, "dismiss")}
	}
	var bs []key.Binding
	switch a.screen {
	case screenLogin:
		bs = a.login.bindings()
	case screenRegister:
		bs = a.register.bindings()
	case screenProjects:
		bs = a.projects.bindings()
	case screenProject:
		bs = a.project.bindings()
	case screenTask:
		bs = a.task.bindings()
	case screenProfile:
		bs = a.profile.bindings()
	}
	if a.capturing() {
		return bs
	}
	if a.signedIn() && a.screen != screenProfile {
		bs = append(bs, keys.Profile)
	}
	return append(bs, keys.Help, keys.Quit)
}

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	switch a.screen {
	case screenLogin:
		content = a.login.view()
	case screenRegister:
		content = a.register.view()
	case screenProjects:
		content = a.projects.view()
	case screenProject:
		content = a.project.view()
	case screenTask:
		content = a.task.view()
	case screenProfile:
		content = a.profile.view()
	}

	contentHeight := max(1, a.height-lipgloss.Height(header)-lipgloss.Height(footer))
	if a.notice != nil {
		content = lipgloss.Place(a.width, contentHeight, lipgloss.Center, lipgloss.Center, a.renderNotice())
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		MaxHeight(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderNotice() string {
	w := min(a.width-4, 64)
	body := lipgloss.NewStyle().Width(w - 4).Render(a.notice.body)
	return noticePanelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
		errorStyle.Bold(true).Render(a.notice.title),
		"",
		body,
		"",
		mutedStyle.Render("enter/esc: dismiss"),
	))
}

func (a App) crumbs() []string {
	switch a.screen {
	case screenLogin:
		return []string{"Log in"}
	case screenRegister:
		return []string{"Create account"}
	case screenProjects:
		return []string{"Projects"}
	case screenProject:
		return []string{"Projects", a.project.sc.project.Name}
	case screenTask:
		return []string{"Projects", a.project.sc.project.Name, a.task.task.Title}
	case screenProfile:
		return []string{"Profile"}
	}
	return nil
}

func (a App) renderHeader() string {
	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("taskhub")

	crumbs := a.crumbs()
	for i, c := range crumbs {
		crumbs[i] = truncate(c, 28)
	}
	path := mutedStyle.Render(strings.Join(crumbs, " › "))
	left := lipgloss.JoinHorizontal(lipgloss.Bottom, title, "  ", path)

	right := ""
	if a.signedIn() && a.user.Username != "" {
		right = highlightStyle.Render(a.user.Username)
	}
	if a.screen == screenProject || a.screen == screenTask {
		role := a.project.role()
		if a.screen == screenTask {
			role = a.task.sc.perms.Role
		}
		right += " " + roleStyle(role).Render("["+role.Label()+"]")
	}

	gap := max(1, a.width-lipgloss.Width(left)-lipgloss.Width(right)-4)
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right))
}

func (a App) renderFooter() string {
	helpView := a.help.View(helpKeys(a.bindings()))

	right := ""
	if a.busy() {
		right = a.spinner.View() + " "
	}
	if a.status != "" {
		if a.statusErr {
			right += errorStyle.Render(a.status)
		} else {
			right += mutedStyle.Render(a.status)
		}
	}

	left := footerStyle.Render(helpView)
	gap := max(1, a.width-lipgloss.Width(left)-lipgloss.Width(right)-2)
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right)
}
