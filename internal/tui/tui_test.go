package tui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/sadopc/taskhub/internal/access"
	"github.com/sadopc/taskhub/internal/api"
	"github.com/sadopc/taskhub/internal/collection"
	"github.com/sadopc/taskhub/internal/session"
	"github.com/sadopc/taskhub/internal/store"
)

// backend is a fake API server plus the deps a screen needs to talk to it.
type backend struct {
	router *mux.Router
	deps   deps

	mu    sync.Mutex
	calls []string
}

func newBackend(t *testing.T) *backend {
	t.Helper()
	st, err := store.NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	b := &backend{router: mux.NewRouter()}
	b.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			b.mu.Lock()
			b.calls = append(b.calls, r.Method+" "+r.URL.Path)
			b.mu.Unlock()
			next.ServeHTTP(w, r)
		})
	})
	srv := httptest.NewServer(b.router)
	t.Cleanup(srv.Close)

	sess := session.New(st)
	client, err := api.New(srv.URL+"/api/v1", api.WithTokenSource(sess))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	b.deps = deps{client: client, session: sess, store: st}
	return b
}

func (b *backend) called(call string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		if c == call {
			n++
		}
	}
	return n
}

// signIn stores a token whose user_id claim is userID.
func (b *backend) signIn(t *testing.T, userID int) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": userID}).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if err := b.deps.session.SetCredential(tok, "refresh-token"); err != nil {
		t.Fatalf("set credential: %v", err)
	}
	return tok
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func page(results any) map[string]any {
	return map[string]any{"count": 0, "next": nil, "previous": nil, "results": results}
}

func projectJSON(id uuid.UUID, role access.Role) map[string]any {
	return map[string]any{
		"id":          id,
		"name":        "Apollo",
		"description": "moon landing",
		"is_archived": false,
		"created_by":  7,
		"members": []map[string]any{{
			"id":   uuid.New(),
			"user": map[string]any{"id": 7, "username": "ada"},
			"role": string(role),
		}},
		"labels": []any{},
	}
}

func taskJSON(id uuid.UUID, title string, status api.Status) map[string]any {
	return map[string]any{
		"id":       id,
		"title":    title,
		"status":   string(status),
		"priority": "MEDIUM",
		"due_date": nil,
	}
}

// serveProject answers the project detail and task list endpoints.
func (b *backend) serveProject(id uuid.UUID, role access.Role, tasks ...map[string]any) {
	if tasks == nil {
		tasks = []map[string]any{}
	}
	b.router.HandleFunc("/api/v1/projects/{id}/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, projectJSON(id, role))
	}).Methods(http.MethodGet)
	b.router.HandleFunc("/api/v1/projects/{id}/tasks/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, page(tasks))
	}).Methods(http.MethodGet)
}

// openProject loads a project workspace the way the App does.
func openProject(t *testing.T, b *backend, id uuid.UUID) projectModel {
	t.Helper()
	m := newProjectModel(scope{ctx: context.Background(), deps: b.deps, project: api.Project{ID: id}})
	m.setSize(140, 40)
	msg := m.load()()
	if f, ok := msg.(failMsg); ok {
		t.Fatalf("load project: %v", f.err)
	}
	m, _ = m.update(msg)
	return m
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// ============================================================
// Role gating
// ============================================================

func TestViewerTasksAreReadOnly(t *testing.T) {
	b := newBackend(t)
	b.signIn(t, 7)
	pid := uuid.New()
	b.serveProject(pid, access.Viewer,
		taskJSON(uuid.New(), "Write report", api.StatusTodo),
		taskJSON(uuid.New(), "Fix login", api.StatusBlocked),
	)

	m := openProject(t, b, pid)
	if m.role() != access.Viewer {
		t.Fatalf("role = %s, want VIEWER", m.role())
	}
	if len(m.tasks.items) != 2 {
		t.Fatalf("tasks = %d, want 2", len(m.tasks.items))
	}

	view := m.view()
	if strings.Contains(view, "new task") {
		t.Fatal("viewer should not see the new task action")
	}
	for _, want := range []string{"Write report", "To Do", "Fix login", "Blocked"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q", want)
		}
	}

	m, _ = m.update(keyMsg("n"))
	if m.tasks.dlg != nil {
		t.Fatal("n should not open a task form for a viewer")
	}
	m, _ = m.update(keyMsg("d"))
	if m.tasks.dlg != nil {
		t.Fatal("d should not open a confirm dialog for a viewer")
	}
}

func TestOwnerSeesManageActions(t *testing.T) {
	b := newBackend(t)
	b.signIn(t, 7)
	pid := uuid.New()
	b.serveProject(pid, access.Owner, taskJSON(uuid.New(), "Write report", api.StatusTodo))

	m := openProject(t, b, pid)
	if !m.sc.perms.Manage {
		t.Fatal("owner should be able to manage")
	}
	if !strings.Contains(m.view(), "new task") {
		t.Fatal("owner should see the new task action")
	}
	m, _ = m.update(keyMsg("n"))
	if m.tasks.dlg == nil {
		t.Fatal("n should open the task form for an owner")
	}
	if !m.capturing() {
		t.Fatal("an open form should capture keys")
	}
}

func TestUnlistedUserIsViewer(t *testing.T) {
	b := newBackend(t)
	b.signIn(t, 99)
	pid := uuid.New()
	b.serveProject(pid, access.Owner)

	m := openProject(t, b, pid)
	if m.role() != access.Viewer {
		t.Fatalf("role = %s, want VIEWER for a user with no membership", m.role())
	}
}

func TestCommentPermissions(t *testing.T) {
	sc := scope{perms: access.For(access.Member), userID: "7"}
	m := newCommentsModel(sc, uuid.New())
	own := api.Comment{ID: uuid.New(), Body: "mine", Author: &api.User{ID: "7", Username: "ada"}}
	other := api.Comment{ID: uuid.New(), Body: "theirs", Author: &api.User{ID: "8", Username: "bob"}}

	if !m.canEdit(own) {
		t.Fatal("member should edit their own comment")
	}
	if m.canEdit(other) {
		t.Fatal("member should not edit someone else's comment")
	}
	if m.canDelete() {
		t.Fatal("member should not delete comments")
	}

	m.sc.perms = access.For(access.Viewer)
	if m.canEdit(own) {
		t.Fatal("viewer should not edit even their own comment")
	}
}

// ============================================================
// List splicing
// ============================================================

func TestOwnerCreatesLabel(t *testing.T) {
	b := newBackend(t)
	b.signIn(t, 7)
	pid := uuid.New()
	lid := uuid.New()
	b.serveProject(pid, access.Owner)

	var got map[string]string
	b.router.HandleFunc("/api/v1/projects/{id}/labels/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, page([]any{}))
	}).Methods(http.MethodGet)
	b.router.HandleFunc("/api/v1/projects/{id}/labels/", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		b.mu.Lock()
		got = body
		b.mu.Unlock()
		writeJSON(w, http.StatusCreated, map[string]any{"id": lid, "name": body["name"], "color_hex": body["color_hex"]})
	}).Methods(http.MethodPost)

	m := openProject(t, b, pid)
	m, cmd := m.switchTab(tabLabels)
	if cmd == nil {
		t.Fatal("first visit to labels should load them")
	}
	m, _ = m.update(cmd())

	msg := m.labels.createLabel("Bug", "#ef4444")()
	if f, ok := msg.(failMsg); ok {
		t.Fatalf("create label: %v", f.err)
	}
	m, _ = m.update(msg)

	if n := b.called(fmt.Sprintf("POST /api/v1/projects/%s/labels/", pid)); n != 1 {
		t.Fatalf("label POSTs = %d, want 1", n)
	}
	b.mu.Lock()
	body := got
	b.mu.Unlock()
	if body["name"] != "Bug" || body["color_hex"] != "#ef4444" {
		t.Fatalf("body = %v", body)
	}
	if n := collection.Count(m.labels.items, lid); n != 1 {
		t.Fatalf("label appears %d times, want 1", n)
	}
	l, _ := collection.Find(m.labels.items, lid)
	if l.Name != "Bug" || l.ColorHex != "#ef4444" {
		t.Fatalf("label = %+v", l)
	}
	view := m.view()
	if strings.Count(view, "Bug") != 1 || !strings.Contains(view, "#ef4444") {
		t.Fatalf("label not rendered once:\n%s", view)
	}
	if collection.Count(m.sc.project.Labels, lid) != 1 {
		t.Fatal("project snapshot should carry the new label for the task form")
	}

	// A repeated response must not duplicate the entry.
	m, _ = m.update(msg)
	if n := collection.Count(m.labels.items, lid); n != 1 {
		t.Fatalf("label appears %d times after replay, want 1", n)
	}
}

func TestDeleteTaskRemovesIt(t *testing.T) {
	b := newBackend(t)
	b.signIn(t, 7)
	pid := uuid.New()
	keep, gone := uuid.New(), uuid.New()
	b.serveProject(pid, access.Admin,
		taskJSON(keep, "Keep me", api.StatusTodo),
		taskJSON(gone, "Remove me", api.StatusDone),
	)
	b.router.HandleFunc("/api/v1/projects/{id}/tasks/{task}/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodDelete)

	m := openProject(t, b, pid)
	msg := m.tasks.deleteTask(gone)()
	if f, ok := msg.(failMsg); ok {
		t.Fatalf("delete task: %v", f.err)
	}
	m, _ = m.update(msg)

	if collection.Index(m.tasks.items, gone) >= 0 {
		t.Fatal("deleted task still listed")
	}
	if collection.Index(m.tasks.items, keep) < 0 {
		t.Fatal("other task should remain")
	}
}

func TestFailedDeleteLeavesList(t *testing.T) {
	b := newBackend(t)
	b.signIn(t, 7)
	pid := uuid.New()
	tid := uuid.New()
	b.serveProject(pid, access.Admin, taskJSON(tid, "Stubborn", api.StatusTodo))
	b.router.HandleFunc("/api/v1/projects/{id}/tasks/{task}/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, map[string]any{"detail": "You do not have permission to perform this action."})
	}).Methods(http.MethodDelete)

	m := openProject(t, b, pid)
	msg := m.tasks.deleteTask(tid)()
	f, ok := msg.(failMsg)
	if !ok {
		t.Fatalf("expected failMsg, got %T", msg)
	}
	if api.Classify(f.err) != api.KindRejected {
		t.Fatalf("kind = %v, want rejected", api.Classify(f.err))
	}
	m, _ = m.update(msg)
	if collection.Index(m.tasks.items, tid) < 0 {
		t.Fatal("task should remain after a failed delete")
	}
}

func TestMemberPickSkipsExisting(t *testing.T) {
	sc := scope{perms: access.For(access.Owner)}
	m := newMembersModel(sc)
	m.items = []api.Membership{{ID: uuid.New(), User: api.User{ID: "7", Username: "ada"}, Role: access.Owner}}

	m, cmd := m.openPick(usersFoundMsg{query: "ad", users: []api.User{{ID: "7", Username: "ada"}}})
	if m.dlg != nil {
		t.Fatal("no dialog expected when every match is already a member")
	}
	if cmd == nil {
		t.Fatal("expected a status message")
	}
	if s, ok := cmd().(statusMsg); !ok || !s.isError {
		t.Fatalf("expected error status, got %#v", s)
	}

	m, _ = m.openPick(usersFoundMsg{query: "a", users: []api.User{{ID: "7", Username: "ada"}, {ID: "9", Username: "alan"}}})
	if m.dlg == nil {
		t.Fatal("expected the pick dialog for a new user")
	}
}

// ============================================================
// Projects list
// ============================================================

func TestProjectsResolveRoles(t *testing.T) {
	b := newBackend(t)
	b.signIn(t, 7)
	owned, viewed := uuid.New(), uuid.New()

	b.router.HandleFunc("/api/v1/projects/", func(w http.ResponseWriter, r *http.Request) {
		bare := projectJSON(viewed, access.Viewer)
		bare["name"] = "Gemini"
		delete(bare, "members")
		writeJSON(w, http.StatusOK, page([]any{projectJSON(owned, access.Owner), bare}))
	}).Methods(http.MethodGet)
	b.router.HandleFunc("/api/v1/projects/{id}/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, projectJSON(viewed, access.Viewer))
	}).Methods(http.MethodGet)

	m := newProjectsModel(context.Background(), b.deps)
	m.setSize(140, 40)
	msg := m.load()()
	if f, ok := msg.(failMsg); ok {
		t.Fatalf("load projects: %v", f.err)
	}
	m, _ = m.update(msg)

	if len(m.rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(m.rows))
	}
	roles := map[uuid.UUID]access.Role{}
	for _, r := range m.rows {
		roles[r.project.ID] = r.role
	}
	if roles[owned] != access.Owner || roles[viewed] != access.Viewer {
		t.Fatalf("roles = %v", roles)
	}
	if n := b.called(fmt.Sprintf("GET /api/v1/projects/%s/", viewed)); n != 1 {
		t.Fatalf("detail fetches for the bare project = %d, want 1", n)
	}

	m.cursor = collection.Index(m.visible(), viewed)
	for _, k := range m.bindings() {
		if k.Help().Desc == "delete" {
			t.Fatal("viewer row should not offer delete")
		}
	}
}

func TestProjectsSearchAndArchived(t *testing.T) {
	b := newBackend(t)
	m := newProjectsModel(context.Background(), b.deps)
	archived := api.Project{ID: uuid.New(), Name: "Old", Archived: true}
	m.rows = []projectRow{
		{project: api.Project{ID: uuid.New(), Name: "Apollo", Description: "moon"}},
		{project: api.Project{ID: uuid.New(), Name: "Gemini"}},
		{project: archived},
	}

	if n := len(m.visible()); n != 2 {
		t.Fatalf("visible = %d, want 2 with archived hidden", n)
	}
	m, _ = m.update(keyMsg("f"))
	if !m.showArchived || len(m.visible()) != 3 {
		t.Fatal("f should reveal archived projects")
	}
	if !b.deps.store.GetBool("show_archived", false) {
		t.Fatal("archived toggle should be persisted")
	}

	m.search.SetValue("MOON")
	if v := m.visible(); len(v) != 1 || v[0].project.Name != "Apollo" {
		t.Fatalf("search results = %+v", v)
	}
}

// ============================================================
// Session and App
// ============================================================

func TestLoginStoresSession(t *testing.T) {
	b := newBackend(t)
	tok, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": 7}).SignedString([]byte("k"))
	b.router.HandleFunc("/api/v1/auth/login/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"access": tok, "refresh": "r1"})
	}).Methods(http.MethodPost)
	b.router.HandleFunc("/api/v1/auth/me/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+tok {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "no"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": 7, "username": "ada", "email": "ada@example.com"})
	}).Methods(http.MethodGet)

	app := NewApp(b.deps.client, b.deps.session, b.deps.store)
	if app.screen != screenLogin {
		t.Fatalf("screen = %v, want login without a session", app.screen)
	}

	msg := login(context.Background(), b.deps, "ada", "secret")()
	done, ok := msg.(loginDoneMsg)
	if !ok {
		t.Fatalf("expected loginDoneMsg, got %#v", msg)
	}
	if got, _ := b.deps.session.Credential(); got != tok {
		t.Fatal("access token not held")
	}
	stored, refresh, err := b.deps.store.LoadSession()
	if err != nil || stored != tok || refresh != "r1" {
		t.Fatalf("stored session = %q %q %v", stored, refresh, err)
	}
	cached, err := b.deps.store.LoadProfile()
	if err != nil || cached == nil || cached.Username != "ada" || cached.UserID != "7" {
		t.Fatalf("cached profile = %+v, %v", cached, err)
	}

	model, _ := app.Update(done)
	app = model.(App)
	if app.screen != screenProjects {
		t.Fatalf("screen = %v, want projects after login", app.screen)
	}
	if app.user.Username != "ada" {
		t.Fatalf("user = %q", app.user.Username)
	}
}

func TestBadPasswordStaysOnLogin(t *testing.T) {
	b := newBackend(t)
	b.router.HandleFunc("/api/v1/auth/login/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "No active account found with the given credentials"})
	}).Methods(http.MethodPost)

	app := NewApp(b.deps.client, b.deps.session, b.deps.store)
	msg := login(context.Background(), b.deps, "ada", "wrong")()
	model, _ := app.Update(msg)
	app = model.(App)

	if app.screen != screenLogin {
		t.Fatalf("screen = %v, want login", app.screen)
	}
	if app.notice == nil || app.notice.title != "Failed to log in" {
		t.Fatalf("notice = %+v", app.notice)
	}
	if b.deps.session.Active() {
		t.Fatal("no session should be held after a rejected login")
	}
}

func TestUnauthorizedClearsSession(t *testing.T) {
	b := newBackend(t)
	b.signIn(t, 7)
	pid := uuid.New()
	b.router.HandleFunc("/api/v1/projects/{id}/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Token is invalid or expired"})
	}).Methods(http.MethodGet)
	b.router.HandleFunc("/api/v1/projects/{id}/tasks/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, page([]any{}))
	}).Methods(http.MethodGet)

	app := NewApp(b.deps.client, b.deps.session, b.deps.store)
	if app.screen != screenProjects {
		t.Fatalf("screen = %v, want projects with a stored session", app.screen)
	}
	app, _ = app.openProject(api.Project{ID: pid, Name: "Apollo"})

	msg := app.project.load()()
	model, _ := app.Update(msg)
	app = model.(App)

	if app.screen != screenLogin {
		t.Fatalf("screen = %v, want login after 401", app.screen)
	}
	if b.deps.session.Active() {
		t.Fatal("credential should be cleared in memory")
	}
	if _, _, err := b.deps.store.LoadSession(); !errors.Is(err, store.ErrNoSession) {
		t.Fatalf("stored session err = %v, want ErrNoSession", err)
	}
	if app.notice == nil || app.notice.title != "Session expired" {
		t.Fatalf("notice = %+v", app.notice)
	}
}

func TestNoticeBlocksInput(t *testing.T) {
	b := newBackend(t)
	b.signIn(t, 7)
	app := NewApp(b.deps.client, b.deps.session, b.deps.store)
	model, _ := app.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	app = model.(App)

	model, _ = app.Update(failMsg{action: "delete project", err: &api.APIError{Status: 400, Detail: "Project is not empty."}})
	app = model.(App)
	if app.notice == nil {
		t.Fatal("expected a notice")
	}
	if !strings.Contains(app.View(), "Project is not empty.") {
		t.Fatal("notice body should be rendered")
	}

	model, cmd := app.Update(keyMsg("q"))
	app = model.(App)
	if cmd != nil {
		t.Fatal("keys other than enter/esc should be swallowed by the notice")
	}
	if app.notice == nil {
		t.Fatal("notice should still be shown")
	}

	model, _ = app.Update(keyMsg("esc"))
	app = model.(App)
	if app.notice != nil {
		t.Fatal("esc should dismiss the notice")
	}

	_, cmd = app.Update(keyMsg("q"))
	if cmd == nil {
		t.Fatal("q should quit once the notice is gone")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected a quit command")
	}
}

func TestCanceledFailureIsDropped(t *testing.T) {
	b := newBackend(t)
	b.signIn(t, 7)
	app := NewApp(b.deps.client, b.deps.session, b.deps.store)

	err := fmt.Errorf("load projects: %w", context.Canceled)
	model, _ := app.Update(failMsg{action: "load projects", err: err})
	app = model.(App)
	if app.notice != nil {
		t.Fatal("a canceled request should not raise a notice")
	}
	if app.screen != screenProjects {
		t.Fatalf("screen = %v, want projects", app.screen)
	}
}

func TestNavigationCancelsContext(t *testing.T) {
	b := newBackend(t)
	b.signIn(t, 7)
	app := NewApp(b.deps.client, b.deps.session, b.deps.store)

	before := app.ctx
	app, _ = app.openProject(api.Project{ID: uuid.New(), Name: "Apollo"})
	if !errors.Is(before.Err(), context.Canceled) {
		t.Fatal("leaving the projects list should cancel its context")
	}
	if app.ctx.Err() != nil {
		t.Fatal("the new screen context should be live")
	}
	if app.project.sc.ctx != app.ctx {
		t.Fatal("project screen should run under the new context")
	}
}

func TestLogoutClearsSession(t *testing.T) {
	b := newBackend(t)
	b.signIn(t, 7)
	app := NewApp(b.deps.client, b.deps.session, b.deps.store)

	msg := logout(b.deps)()
	model, _ := app.Update(msg)
	app = model.(App)
	if app.screen != screenLogin {
		t.Fatalf("screen = %v, want login", app.screen)
	}
	if b.deps.session.Active() {
		t.Fatal("session should be cleared")
	}
}

// ============================================================
// Key handling and failure paths
// ============================================================

func TestListKeysMoveAndConfirm(t *testing.T) {
	sc := scope{perms: access.For(access.Owner), project: api.Project{ID: uuid.New(), Name: "Apollo"}}
	task := uuid.New()
	ada := &api.User{ID: "7", Username: "ada"}

	tests := []struct {
		name string
		// press sends a key and reports the cursor and whether a dialog is open.
		press func(k string) (int, bool)
	}{
		{"tasks", func() func(string) (int, bool) {
			m := tasksModel{sc: sc, items: []api.Task{{ID: uuid.New(), Title: "a"}, {ID: uuid.New(), Title: "b"}}}
			return func(k string) (int, bool) { m, _ = m.update(keyMsg(k)); return m.cursor, m.dlg != nil }
		}()},
		{"labels", func() func(string) (int, bool) {
			m := newLabelsModel(sc)
			m.items = []api.Label{{ID: uuid.New(), Name: "Bug"}, {ID: uuid.New(), Name: "Urgent"}}
			return func(k string) (int, bool) { m, _ = m.update(keyMsg(k)); return m.cursor, m.dlg != nil }
		}()},
		{"members", func() func(string) (int, bool) {
			m := newMembersModel(sc)
			m.items = []api.Membership{{ID: uuid.New(), User: *ada, Role: access.Owner}, {ID: uuid.New(), User: api.User{ID: "9", Username: "alan"}}}
			return func(k string) (int, bool) { m, _ = m.update(keyMsg(k)); return m.cursor, m.dlg != nil }
		}()},
		{"subtasks", func() func(string) (int, bool) {
			m := newSubtasksModel(sc, task)
			m.items = []api.Subtask{{ID: uuid.New(), Title: "one"}, {ID: uuid.New(), Title: "two"}}
			return func(k string) (int, bool) { m, _ = m.update(keyMsg(k)); return m.cursor, m.dlg != nil }
		}()},
		{"comments", func() func(string) (int, bool) {
			m := newCommentsModel(sc, task)
			m.items = []api.Comment{{ID: uuid.New(), Body: "hi", Author: ada}, {ID: uuid.New(), Body: "yo", Author: ada}}
			return func(k string) (int, bool) { m, _ = m.update(keyMsg(k)); return m.cursor, m.dlg != nil }
		}()},
		{"attachments", func() func(string) (int, bool) {
			m := newAttachmentsModel(sc, task)
			m.items = []api.Attachment{{ID: uuid.New(), Filename: "a.txt"}, {ID: uuid.New(), Filename: "b.txt"}}
			return func(k string) (int, bool) { m, _ = m.update(keyMsg(k)); return m.cursor, m.dlg != nil }
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if c, _ := tt.press("j"); c != 1 {
				t.Fatalf("cursor after j = %d, want 1", c)
			}
			if c, _ := tt.press("j"); c != 1 {
				t.Fatalf("cursor should stop at the last row, got %d", c)
			}
			if c, _ := tt.press("k"); c != 0 {
				t.Fatalf("cursor after k = %d, want 0", c)
			}
			if _, open := tt.press("d"); !open {
				t.Fatal("d should open a confirm dialog")
			}
		})
	}
}

func TestProjectsSurviveMissingDetail(t *testing.T) {
	b := newBackend(t)
	b.signIn(t, 7)
	owned, gone := uuid.New(), uuid.New()

	b.router.HandleFunc("/api/v1/projects/", func(w http.ResponseWriter, r *http.Request) {
		bare := projectJSON(gone, access.Owner)
		bare["name"] = "Gemini"
		delete(bare, "members")
		writeJSON(w, http.StatusOK, page([]any{projectJSON(owned, access.Owner), bare}))
	}).Methods(http.MethodGet)
	b.router.HandleFunc("/api/v1/projects/{id}/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "Not found."})
	}).Methods(http.MethodGet)

	m := newProjectsModel(context.Background(), b.deps)
	msg := m.load()()
	if f, ok := msg.(failMsg); ok {
		t.Fatalf("one missing detail should not fail the list: %v", f.err)
	}
	m, _ = m.update(msg)

	if len(m.rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(m.rows))
	}
	for _, r := range m.rows {
		want := access.Owner
		if r.project.ID == gone {
			want = access.Viewer
		}
		if r.role != want {
			t.Fatalf("%s role = %s, want %s", r.project.Name, r.role, want)
		}
	}
}

func TestProjectsDetailUnauthorizedFails(t *testing.T) {
	b := newBackend(t)
	b.signIn(t, 7)
	bare := projectJSON(uuid.New(), access.Owner)
	delete(bare, "members")

	b.router.HandleFunc("/api/v1/projects/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, page([]any{bare}))
	}).Methods(http.MethodGet)
	b.router.HandleFunc("/api/v1/projects/{id}/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Token is invalid or expired"})
	}).Methods(http.MethodGet)

	msg := newProjectsModel(context.Background(), b.deps).load()()
	f, ok := msg.(failMsg)
	if !ok {
		t.Fatalf("expected failMsg, got %T", msg)
	}
	if api.Classify(f.err) != api.KindAuth {
		t.Fatalf("kind = %v, want auth", api.Classify(f.err))
	}
}

func TestProfileFailureAfterLoginKeepsNoSession(t *testing.T) {
	b := newBackend(t)
	tok, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": 7}).SignedString([]byte("k"))
	b.router.HandleFunc("/api/v1/auth/login/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"access": tok, "refresh": "r1"})
	}).Methods(http.MethodPost)
	b.router.HandleFunc("/api/v1/auth/me/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "Profile unavailable."})
	}).Methods(http.MethodGet)

	msg := login(context.Background(), b.deps, "ada", "secret")()
	if _, ok := msg.(failMsg); !ok {
		t.Fatalf("expected failMsg, got %#v", msg)
	}
	if b.deps.session.Active() {
		t.Fatal("credential should not be held when the profile fetch fails")
	}
	if _, _, err := b.deps.store.LoadSession(); !errors.Is(err, store.ErrNoSession) {
		t.Fatalf("stored session err = %v, want ErrNoSession", err)
	}

	app := NewApp(b.deps.client, b.deps.session, b.deps.store)
	if app.screen != screenLogin {
		t.Fatalf("screen = %v, want login on the next start", app.screen)
	}
}

func TestExportWriteFailureRaisesNotice(t *testing.T) {
	b := newBackend(t)
	b.signIn(t, 7)
	pid := uuid.New()
	b.serveProject(pid, access.Owner, taskJSON(uuid.New(), "Write report", api.StatusTodo))
	missing := t.TempDir() + "/does/not/exist"
	if err := b.deps.store.SetSetting("export_dir", missing); err != nil {
		t.Fatalf("set export_dir: %v", err)
	}

	d := newDashboardModel(scope{ctx: context.Background(), deps: b.deps, project: api.Project{ID: pid, Name: "Apollo"}})
	for _, format := range []int{0, 1} {
		msg := d.doExport(format)()
		f, ok := msg.(failMsg)
		if !ok {
			t.Fatalf("format %d: expected failMsg, got %#v", format, msg)
		}
		if f.action != "export tasks" {
			t.Fatalf("action = %q", f.action)
		}

		app := NewApp(b.deps.client, b.deps.session, b.deps.store)
		model, _ := app.Update(msg)
		app = model.(App)
		if app.notice == nil || app.notice.title != "Failed to export tasks" {
			t.Fatalf("notice = %+v", app.notice)
		}
	}
}

func TestFilteredListDropsTaskOutsideFilter(t *testing.T) {
	sc := scope{perms: access.For(access.Owner), project: api.Project{ID: uuid.New()}}
	todo := api.Task{ID: uuid.New(), Title: "Plan", Status: api.StatusTodo}
	m := tasksModel{sc: sc, status: api.StatusTodo, items: []api.Task{todo}}

	fresh := api.Task{ID: uuid.New(), Title: "Ship", Status: api.StatusDone}
	m, _ = m.update(taskSavedMsg{task: fresh})
	if collection.Index(m.items, fresh.ID) >= 0 {
		t.Fatal("a task created outside the status filter should not be listed")
	}

	todo.Status = api.StatusDone
	m, _ = m.update(taskSavedMsg{task: todo})
	if len(m.items) != 0 {
		t.Fatalf("items = %d, want the edited task dropped from the filtered list", len(m.items))
	}

	m.status = ""
	m, _ = m.update(taskSavedMsg{task: fresh})
	if collection.Index(m.items, fresh.ID) < 0 {
		t.Fatal("without a filter every saved task is listed")
	}
}
